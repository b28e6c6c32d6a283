package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_DRIVER", "SQLITE_PATH", "LOG_LEVEL", "GEMINI_MODEL"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StorageDriver)
	assert.Equal(t, "goally.db", cfg.SQLitePath)
	assert.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownDriver(t *testing.T) {
	cfg := FromEnv()
	cfg.StorageDriver = "redis"
	require.Error(t, cfg.Validate())
}

func TestValidate_DriverSpecificRequirements(t *testing.T) {
	cfg := FromEnv()
	cfg.StorageDriver = "postgres"
	cfg.PostgresDSN = ""
	require.Error(t, cfg.Validate())

	cfg = FromEnv()
	cfg.StorageDriver = "s3"
	cfg.S3Bucket = ""
	require.Error(t, cfg.Validate())

	cfg = FromEnv()
	cfg.StorageDriver = "mongo"
	cfg.MongoURI = ""
	cfg.MongoUsername = ""
	require.Error(t, cfg.Validate())

	cfg.MongoURI = "mongodb://localhost:27017"
	require.NoError(t, cfg.Validate())
}

func TestMongoConnectionURI(t *testing.T) {
	cfg := &Config{MongoUsername: "u", MongoPassword: "p", MongoCluster: "c.example.net", MongoAppName: "goally"}
	assert.Equal(t, "mongodb+srv://u:p@c.example.net/?retryWrites=true&w=majority&appName=goally", cfg.MongoConnectionURI())

	cfg.MongoURI = "mongodb://localhost"
	assert.Equal(t, "mongodb://localhost", cfg.MongoConnectionURI())
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	os.Unsetenv("STORAGE_DRIVER")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_DRIVER=memory\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StorageDriver)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
