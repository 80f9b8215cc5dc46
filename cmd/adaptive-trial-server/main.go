package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/adaptive-trial/internal/logging"
	"github.com/iwvelando/adaptive-trial/internal/server"
	"github.com/iwvelando/adaptive-trial/pkg/constants"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	configLocation := flag.String("config", constants.DefaultServerConfigFile, "path to server configuration file")
	address := flag.String("address", "", "listen address override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	maxUploadSize := flag.String("max-upload-size", "", "largest accepted upload override, e.g. 512KB")
	flag.Parse()

	cfg, err := server.LoadConfig(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}
	if err := applyServerOverrides(cfg, *address, *maxUploadSize); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"invalid command line override\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, cfg, version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("op", "main"),
			zap.String("address", cfg.Address),
			zap.Int64("max_upload_bytes", cfg.UploadSizeBytes()),
			zap.Int("max_replications", cfg.MaxReplications),
			zap.Int("max_total_replications", cfg.MaxTotalReplications),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()

	waitForShutdown(logger, httpServer)
}

// applyServerOverrides layers non-empty command line values over the loaded configuration.
func applyServerOverrides(cfg *server.Config, address, maxUploadSize string) error {
	if address != "" {
		cfg.Address = address
	}
	if maxUploadSize != "" {
		size, err := server.ParseSize(maxUploadSize)
		if err != nil {
			return fmt.Errorf("invalid -max-upload-size: %w", err)
		}
		cfg.SetUploadSizeBytes(size)
	}
	return nil
}

func waitForShutdown(logger *zap.Logger, srv *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
