// Command rackd runs the audio graph engine and serves its transport over
// the NATS control bus.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/algo-rack/internal/config"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath     string
		descriptorPath string
		showVersion    bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&descriptorPath, "descriptor", "", "Unit descriptor to connect at startup")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if descriptorPath != "" {
		cfg.Engine.Descriptor = descriptorPath
	}

	level, _ := config.ParseLogLevel(cfg.Telemetry.LogLevel)
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rackd exited with error", slog.String("error", err.Error()))
		time.Sleep(time.Second)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
