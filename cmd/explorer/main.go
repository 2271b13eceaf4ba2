package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bjornhona/movie-explorer/internal/config"
	"github.com/Bjornhona/movie-explorer/internal/container"
	"github.com/Bjornhona/movie-explorer/internal/handlers"
	"github.com/Bjornhona/movie-explorer/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	logger.Init()
	log := logger.Get()

	if err := godotenv.Load(".env.local"); err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	ctx := context.Background()

	c, err := container.New(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer c.Close()

	port := config.ServerPort()
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handlers.New(c).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		log.Infof("Movie explorer starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
}
