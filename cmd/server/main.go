package main

import (
	"context"
	"os"
	"strings"

	"otaflow/internal/cache"
	"otaflow/internal/config"
	"otaflow/internal/db"
	"otaflow/internal/logging"
	"otaflow/internal/server"
	"otaflow/internal/storage"
	"otaflow/internal/telemetry"
)

func main() {
	// Set development environment variables
	if os.Getenv("ENV") != "production" {
		os.Setenv("ENV", "development")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Configure and get logger
	logConfig := &logging.Config{
		Level:      strings.ToLower(cfg.LogLevel),
		File:       cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
	}
	if err := logging.InitLogger(logConfig); err != nil {
		panic(err)
	}
	logger := logging.GetGlobalLogger()
	defer logger.Close()

	logger.Info("Starting server in %s mode", cfg.Environment)

	// Initialize database connection
	database, err := db.Initialize(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer database.Close()

	// Initialize cache store
	store, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to initialize cache store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize signed-URL issuer
	issuer, err := storage.NewS3Issuer(context.Background(), storage.S3Config{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		logger.Error("Failed to initialize storage issuer: %v", err)
		os.Exit(1)
	}

	// Initialize tracing
	shutdownTracing, err := telemetry.Init(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("Failed to initialize tracing: %v", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// Create and start server
	srv := server.NewServer(cfg, database, store, issuer)
	defer srv.Close()

	logger.Info("Listening on port %s", cfg.Port)
	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server: %v", err)
		os.Exit(1)
	}
}
