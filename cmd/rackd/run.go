package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cwbudde/algo-rack/device"
	"github.com/cwbudde/algo-rack/engine"
	"github.com/cwbudde/algo-rack/host"
	"github.com/cwbudde/algo-rack/internal/config"
	"github.com/cwbudde/algo-rack/internal/control"
	"github.com/cwbudde/algo-rack/internal/natsserver"
	"github.com/cwbudde/algo-rack/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// engineOptions maps configuration onto engine options.
func engineOptions(cfg config.Config, logger *slog.Logger) ([]engine.Option, error) {
	opts := []engine.Option{
		engine.WithSampleRate(float64(cfg.Engine.SampleRate)),
		engine.WithBlockSize(cfg.Engine.BlockSize),
		engine.WithTapSize(cfg.Engine.TapSize),
		engine.WithLogger(logger),
	}

	if cfg.Engine.SamplePath != "" {
		data, err := os.ReadFile(cfg.Engine.SamplePath)
		if err != nil {
			return nil, fmt.Errorf("read sample: %w", err)
		}
		opts = append(opts, engine.WithSample(data))
	}

	switch cfg.Device.Kind {
	case "null":
		opts = append(opts, engine.WithDeviceFactory(func(sr float64, block int) (device.Device, error) {
			return device.NewNull(sr, block)
		}))
	default:
		channels := cfg.Device.Channels
		opts = append(opts, engine.WithDeviceFactory(func(sr float64, block int) (device.Device, error) {
			return device.NewOto(sr, device.WithChannels(channels), device.WithBlockSize(block))
		}))
	}

	return opts, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	tel, err := telemetry.Setup("rackd", version, logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()
	if cfg.Telemetry.PrometheusBind != "" {
		if _, err := tel.Serve(cfg.Telemetry.PrometheusBind); err != nil {
			return err
		}
	}

	opts, err := engineOptions(cfg, logger)
	if err != nil {
		return err
	}
	opts = append(opts, engine.WithMeterProvider(tel.Provider))

	eng, err := engine.New(opts...)
	if err != nil {
		return err
	}
	if _, err := eng.Init(ctx); err != nil {
		return err
	}
	defer func() {
		if err := eng.Teardown(context.Background()); err != nil {
			logger.Error("engine teardown error", slog.String("error", err.Error()))
		}
	}()

	if cfg.Engine.Descriptor != "" {
		d, err := host.LoadDescriptorFile(cfg.Engine.Descriptor)
		if err != nil {
			return err
		}
		if err := eng.ConnectUnit(ctx, d); err != nil {
			logger.Warn("startup unit not connected", slog.String("error", err.Error()))
		}
	}

	if cfg.Bus.Enabled {
		srv, err := natsserver.Start(cfg.Bus, logger)
		if err != nil {
			return err
		}
		defer srv.Shutdown()

		conn, err := control.Connect(cfg.Bus, srv.ClientURL(), logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		svc := control.NewService(ctx, conn, eng, cfg.Bus.SubjectPrefix, logger)
		if err := svc.Start(); err != nil {
			return err
		}
		defer svc.Close()
	}

	tel.SetReady(true)
	logger.Info("rackd started",
		slog.String("version", version),
		slog.Int("sample_rate", cfg.Engine.SampleRate),
		slog.String("device", cfg.Device.Kind))

	<-ctx.Done()
	tel.SetReady(false)
	logger.Info("rackd stopping")

	return nil
}
