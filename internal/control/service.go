// Package control exposes the engine transport over NATS request/reply.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cwbudde/algo-rack/engine"
	"github.com/cwbudde/algo-rack/host"
)

const requestTimeout = 10 * time.Second

// Engine is the part of *engine.Engine the service drives.
type Engine interface {
	Play(ctx context.Context, d *host.Descriptor) error
	Stop(ctx context.Context) error
	ConnectUnit(ctx context.Context, d *host.Descriptor) error
	DisconnectUnit(ctx context.Context) error
	SetParam(id string, value float64)
	Status() engine.Status
}

type Service struct {
	eng    Engine
	conn   *nats.Conn
	prefix string
	subs   []*nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

func NewService(parent context.Context, conn *nats.Conn, eng Engine, prefix string, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		eng:    eng,
		conn:   conn,
		prefix: prefix,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With(slog.String("component", "control")),
	}
}

// Subject returns the full subject for suffix.
func (s *Service) Subject(suffix string) string { return s.prefix + "." + suffix }

// Start subscribes every control subject.
func (s *Service) Start() error {
	handlers := map[string]func(context.Context, []byte) Reply{
		SubjectPlay:       s.play,
		SubjectStop:       s.stop,
		SubjectConnect:    s.connect,
		SubjectDisconnect: s.disconnect,
		SubjectParam:      s.setParam,
		SubjectState:      s.state,
	}

	for suffix, h := range handlers {
		subject := s.Subject(suffix)
		sub, err := s.conn.Subscribe(subject, s.wrap(subject, h))
		if err != nil {
			s.Close()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}

	s.logger.Info("control service started", slog.String("prefix", s.prefix))
	return nil
}

// Close drains the subscriptions.
func (s *Service) Close() {
	s.cancel()
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	s.subs = nil
}

func (s *Service) wrap(subject string, h func(context.Context, []byte) Reply) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
		defer cancel()

		reply := h(ctx, msg.Data)
		reply.State = s.eng.Status().State.String()
		if reply.Error != "" {
			s.logger.Warn("control request failed",
				slog.String("subject", subject),
				slog.String("error", reply.Error))
		}

		if msg.Reply == "" {
			return
		}
		data, err := json.Marshal(reply)
		if err != nil {
			s.logger.Error("encode reply", slog.String("error", err.Error()))
			return
		}
		if err := msg.Respond(data); err != nil {
			s.logger.Warn("respond", slog.String("subject", subject), slog.String("error", err.Error()))
		}
	}
}

func result(err error) Reply {
	if err == nil {
		return Reply{OK: true}
	}
	return Reply{
		Error:        err.Error(),
		RetryGesture: errors.Is(err, engine.ErrResumeDenied),
	}
}

func decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func (s *Service) play(ctx context.Context, data []byte) Reply {
	var req PlayRequest
	if err := decode(data, &req); err != nil {
		return result(err)
	}
	return result(s.eng.Play(ctx, req.Descriptor))
}

func (s *Service) stop(ctx context.Context, _ []byte) Reply {
	return result(s.eng.Stop(ctx))
}

func (s *Service) connect(ctx context.Context, data []byte) Reply {
	var req ConnectRequest
	if err := decode(data, &req); err != nil {
		return result(err)
	}
	return result(s.eng.ConnectUnit(ctx, req.Descriptor))
}

func (s *Service) disconnect(ctx context.Context, _ []byte) Reply {
	return result(s.eng.DisconnectUnit(ctx))
}

func (s *Service) setParam(_ context.Context, data []byte) Reply {
	var req ParamRequest
	if err := decode(data, &req); err != nil {
		return result(err)
	}
	if req.ID == "" {
		return result(errors.New("param.set: missing id"))
	}
	s.eng.SetParam(req.ID, req.Value)
	return result(nil)
}

func (s *Service) state(context.Context, []byte) Reply {
	st := s.eng.Status()
	return Reply{OK: true, Status: &st}
}
