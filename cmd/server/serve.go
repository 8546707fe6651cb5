package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dreamui/backend/pkg/di"
	"dreamui/backend/pkg/router"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load environment variables
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	container, err := di.New(cfg)
	if err != nil {
		return err
	}
	log := container.Logger
	log.Info("Starting application", "env", cfg.Server.Env, "inference", cfg.Inference.BaseURL)

	container.Health.Start()

	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
		log.Info("Shutting down server...")
	case runErr = <-serveErr:
		log.LogError(runErr, "Server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	r.Close()
	if err := container.Close(ctx); err != nil {
		log.LogError(err, "Failed to release resources")
	}

	log.Info("Server exited")
	return runErr
}
