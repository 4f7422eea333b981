package control

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cwbudde/algo-rack/internal/config"
)

// Connect dials the bus. url overrides cfg.Servers when non-empty, which
// is how an embedded server's address is passed in.
func Connect(cfg config.BusConfig, url string, log *slog.Logger) (*nats.Conn, error) {
	if url == "" {
		if len(cfg.Servers) == 0 {
			return nil, errors.New("no NATS servers configured")
		}
		url = strings.Join(cfg.Servers, ",")
	}

	options := []nats.Option{
		nats.Name("rackd"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return conn, nil
}
