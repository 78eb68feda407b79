package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"
	_ "time/tzdata" // MARKET_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/spf13/afero"

	"stocktracker/internal/cli"
	"stocktracker/internal/config"
	"stocktracker/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	if err := logger.Init(logger.Config{
		Level:          cfg.LogLevel,
		Format:         cfg.LogFormat,
		TracingEnabled: cfg.TracingEnabled,
	}); err != nil {
		log.Printf("Failed to initialize logging: %v", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Shutdown(ctx)
	}()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, abandoning in-flight fetches...")
		cancel()
	}()

	app := &cli.App{
		Config: cfg,
		Fs:     afero.NewOsFs(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	return int(cli.Execute(ctx, app, path.Base(os.Args[0]), os.Args[1:]))
}
