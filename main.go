package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goally/config"
	"goally/database"
	"goally/handlers"
	"goally/logging"
	"goally/metrics"
	repository "goally/repositories"
	"goally/routes"
	services "goally/services"
	"goally/suggest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading configuration:", err)
	}

	logger, logCloser, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatal("Error opening log file:", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	goalMetrics, err := metrics.NewGoalMetrics(registry)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Initialize storage for the configured driver
	repos, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	var suggester suggest.Suggester
	if cfg.GeminiAPIKey != "" {
		client, err := suggest.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, suggest.WithMetrics(goalMetrics))
		if err != nil {
			logger.Warn("title suggestions disabled", "error", err)
		} else {
			suggester = client
		}
	} else {
		logger.Info("GEMINI_API_KEY not set, title suggestions echo the raw title")
	}

	// Initialize sessions, handler and routes
	sessions := services.NewSessionManager(repos, logger, goalMetrics)
	goalHandler := handlers.NewGoalHandler(sessions, suggester, logger)
	mux := routes.SetupGoalRoutes(goalHandler, cfg.JWTSecret, registry)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Port, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// openStorage returns the repository factory for the configured driver and a
// function releasing its resources.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Factory, func(), error) {
	switch cfg.StorageDriver {
	case "memory":
		logger.Warn("memory storage selected, goals are lost on restart")
		return repository.NewMemoryFactory(), func() {}, nil

	case "sqlite":
		store, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite storage", "path", cfg.SQLitePath)
		return store.For, func() { _ = store.Close() }, nil

	case "postgres":
		store, err := repository.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres storage")
		return store.For, func() { _ = store.Close() }, nil

	case "mongo":
		return openMongo(ctx, cfg, logger)

	case "s3":
		store, err := repository.NewS3SnapshotStore(ctx, repository.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using s3 storage", "bucket", cfg.S3Bucket)
		return store.For, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func openMongo(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Factory, func(), error) {
	client, err := database.Connect(ctx, cfg.MongoConnectionURI())
	if err != nil {
		return nil, nil, err
	}
	logger.Info("successfully connected to MongoDB")
	database.IsReplicaSet(ctx, client, logger)

	db := client.Database(cfg.MongoDatabase)
	if name, err := database.CreateSnapshotIndexes(ctx, db); err != nil {
		logger.Warn("failed to create snapshot indexes", "error", err)
	} else {
		logger.Debug("snapshot index ready", "index", name)
	}

	if sizes, err := repository.GetSnapshotSizes(ctx, db); err != nil {
		logger.Warn("failed to read stored snapshot sizes", "error", err)
	} else {
		logger.Info("stored goal hierarchies", "owners", len(sizes))
		for _, s := range sizes {
			logger.Debug("stored hierarchy", "owner", s["_id"], "goals", s["goals"], "key_results", s["key_results"], "initiatives", s["initiatives"])
		}
	}

	closer := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("failed to disconnect from MongoDB", "error", err)
		}
	}
	return repository.NewMongoSnapshotRepositories(db), closer, nil
}
