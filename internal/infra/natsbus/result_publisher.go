// Package natsbus publishes session lifecycle events to a NATS subject tree.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/magnusohlin/numba/internal/domain"
)

// Config holds connection settings for the publisher.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns defaults for a local NATS server.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "numba",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// ResultPublisher emits one message per finished game on
// <prefix>.rooms.<code>.ended.
type ResultPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewResultPublisher(cfg Config) (*ResultPublisher, error) {
	opts := []nats.Option{
		nats.Name("numba"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "numba"
	}
	return &ResultPublisher{nc: nc, prefix: prefix}, nil
}

func (p *ResultPublisher) RecordResult(ctx context.Context, result domain.GameResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	msg := nats.NewMsg(EndedSubject(p.prefix, result.RoomCode))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, result.ID)
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return p.nc.FlushWithContext(ctx)
}

func (p *ResultPublisher) Close() {
	p.nc.Close()
}

// EndedSubject is the subject a finished game in roomCode is published on.
func EndedSubject(prefix, roomCode string) string {
	return prefix + ".rooms." + roomCode + ".ended"
}
