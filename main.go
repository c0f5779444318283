package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"statlab/internal"
	"statlab/internal/config"
	"statlab/internal/container"
	"statlab/ui"
)

func main() {
	logger := internal.NewDefaultLogger()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		logger.Error("Failed to create application container: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := appContainer.InitWithDatabase(ctx); err != nil {
		logger.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}

	server, err := ui.NewServer(appContainer.Service, appContainer.Reader, ui.Options{
		GinMode:        appConfig.Server.GinMode,
		MaxUploadBytes: appConfig.Limits.MaxUploadBytes(),
		Usage:          appContainer.Usage,
	}, logger.With("component", "http"))
	if err != nil {
		logger.Error("Failed to initialize web server: %v", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting statlab on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed: %v", err)
	}
	if err := appContainer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to close database: %v", err)
	}
}
