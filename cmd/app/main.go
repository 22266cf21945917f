package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/boardlock/boardlock/internal/auth"
	"github.com/boardlock/boardlock/internal/config"
	"github.com/boardlock/boardlock/internal/handler"
	"github.com/boardlock/boardlock/internal/repo"
	"github.com/boardlock/boardlock/internal/service"
	"github.com/boardlock/boardlock/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to Database.")
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal("Failed to ping the Database.")
	}
	cancel()
	logger.Info("Successfully connected to the Database!")

	taskRepo := repo.NewTaskRepo(client.Database(cfg.MongoDB))
	if err := taskRepo.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal("Failed to create indexes", zap.Error(err))
	}

	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)
	taskService := service.NewTaskService(taskRepo, cfg.DefaultBoard)
	taskHandler := handler.NewTaskHandler(taskService, logger)
	authHandler := handler.NewAuthHandler(tokens, logger)

	router := handler.NewRouter(taskHandler, authHandler, tokens)

	// The board UI runs in a browser on another origin.
	corsHandler := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key"},
	}).Handler(middleware.Logger(router))

	sweeper := worker.NewSweeper(taskRepo, logger, cfg.IdempKeyTTL, cfg.SweepInterval)
	sweeper.Start(context.Background())

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started at ", zap.String("port", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: ", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Shutdown error: ", zap.Error(err))
	}
	logger.Info("Server stopped succsessfully!")
}
