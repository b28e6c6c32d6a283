// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          string `validate:"required,numeric"`
	StorageDriver string `validate:"oneof=memory sqlite postgres mongo s3"`

	SQLitePath  string `validate:"required_if=StorageDriver sqlite"`
	PostgresDSN string `validate:"required_if=StorageDriver postgres"`

	MongoURI      string
	MongoUsername string
	MongoPassword string
	MongoCluster  string
	MongoAppName  string
	MongoDatabase string

	S3Bucket    string `validate:"required_if=StorageDriver s3"`
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	JWTSecret    string
	GeminiAPIKey string
	GeminiModel  string

	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string
}

// Load reads .env (when present) and the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromEnv() *Config {
	return &Config{
		Port:          getenv("PORT", "8081"),
		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", "sqlite")),
		SQLitePath:    getenv("SQLITE_PATH", "goally.db"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoUsername: os.Getenv("MONGO_USERNAME"),
		MongoPassword: os.Getenv("MONGO_PASSWORD"),
		MongoCluster:  os.Getenv("MONGO_CLUSTER"),
		MongoAppName:  os.Getenv("MONGO_APP_NAME"),
		MongoDatabase: getenv("MONGO_DATABASE", "goally"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3Region:      getenv("S3_REGION", "us-east-1"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3PathStyle:   strings.EqualFold(os.Getenv("S3_PATH_STYLE"), "true"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFile:       os.Getenv("LOG_FILE"),
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, e := range verrs {
				fields = append(fields, e.Field()+":"+e.Tag())
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return err
	}
	if c.StorageDriver == "mongo" && c.MongoURI == "" &&
		(c.MongoUsername == "" || c.MongoPassword == "" || c.MongoCluster == "" || c.MongoAppName == "") {
		return errors.New("invalid configuration: mongo driver needs MONGO_URI or MONGO_USERNAME, MONGO_PASSWORD, MONGO_CLUSTER and MONGO_APP_NAME")
	}
	return nil
}

// MongoConnectionURI returns MONGO_URI, or builds the Atlas SRV URI from the
// individual credentials.
func (c *Config) MongoConnectionURI() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority&appName=%s",
		c.MongoUsername, c.MongoPassword, c.MongoCluster, c.MongoAppName)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
