package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"skillswap-service/internal/api/routes"
	"skillswap-service/internal/config"
	"skillswap-service/internal/database"
	"skillswap-service/internal/realtime"
	"skillswap-service/internal/repositories/postgres"
	"skillswap-service/internal/services"
)

func main() {
	// Load .env if present; real deployments set env vars directly
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting skillswap server")

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize MinIO connection
	minioClient, err := database.NewMinIOClient(
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.UseSSL,
	)
	if err != nil {
		slog.Error("Failed to connect to MinIO", "error", err)
		os.Exit(1)
	}

	// Kafka is optional; without brokers the relay skips stream publishing
	var stream realtime.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		streamService, err := services.NewStreamService(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			slog.Error("Failed to connect to Kafka", "error", err)
			os.Exit(1)
		}
		defer streamService.Close()
		stream = streamService
	}

	messageRepo := postgres.NewMessageRepository(db)
	videoService := services.NewVideoService(cfg.Video.APIKey, cfg.Video.Secret, cfg.Video.TokenTTL)
	presenceService := services.NewPresenceService(redisClient)

	// Initialize realtime hub
	hub := realtime.NewHub(messageRepo, videoService, presenceService, stream, realtime.Options{
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
	})
	go hub.Run()

	// Initialize router with all dependencies
	router := routes.NewRouter(cfg, hub, db, redisClient, minioClient)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
