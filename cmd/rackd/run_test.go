package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-rack/internal/config"
	"github.com/cwbudde/algo-rack/internal/control"
)

func TestEngineOptionsReadSample(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.SamplePath = filepath.Join(t.TempDir(), "missing.wav")

	_, err := engineOptions(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunServesControlBus(t *testing.T) {
	cfg := config.Default()
	cfg.Device.Kind = "null"
	cfg.Bus.Port = 14222 + os.Getpid()%1000
	cfg.Telemetry.PrometheusBind = ""
	cfg.Engine.Descriptor = "../../units/crunch.yaml"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	var nc *nats.Conn
	require.Eventually(t, func() bool {
		var err error
		nc, err = nats.Connect(fmt.Sprintf("nats://127.0.0.1:%d", cfg.Bus.Port))
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	defer nc.Close()

	var reply control.Reply
	require.Eventually(t, func() bool {
		msg, err := nc.Request("rack."+control.SubjectState, nil, time.Second)
		if err != nil {
			return false
		}
		return json.Unmarshal(msg.Data, &reply) == nil
	}, 5*time.Second, 50*time.Millisecond)

	require.True(t, reply.OK)
	require.Equal(t, "crunch", reply.Status.Unit)

	msg, err := nc.Request("rack."+control.SubjectPlay, nil, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	require.True(t, reply.OK, reply.Error)
	require.Equal(t, "playing_processed", reply.State)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
