// Package bus publishes accepted DMs to NATS so other services can act on
// them.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/rickgao/dmrelay/internal/discord"
)

// ErrNotConnected is returned by Publish after Close.
var ErrNotConnected = errors.New("bus not connected")

// Event is the JSON document published for each DM.
type Event struct {
	ID         string    `json:"id"`
	MessageID  string    `json:"message_id"`
	ChannelID  string    `json:"channel_id"`
	AuthorID   string    `json:"author_id"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	ReceivedAt time.Time `json:"received_at"`
}

// conn is the subset of *nats.Conn used here.
type conn interface {
	PublishMsg(m *nats.Msg) error
	Drain() error
}

// Publisher sends events to one subject.
type Publisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// Config configures Connect.
type Config struct {
	URL           string
	Subject       string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Connect dials NATS and returns a Publisher for cfg.Subject.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	logger = logger.With("component", "bus")

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	logger.Info("nats connected", "url", nc.ConnectedUrl(), "subject", cfg.Subject)
	return newPublisher(nc, cfg.Subject, logger), nil
}

func newPublisher(c conn, subject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: c, subject: subject, logger: logger}
}

// Publish sends msg as an Event with the Discord message id as Nats-Msg-Id.
func (p *Publisher) Publish(ctx context.Context, msg discord.Message) error {
	if p.conn == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ev := Event{
		ID:         uuid.NewString(),
		MessageID:  msg.ID,
		ChannelID:  msg.ChannelID,
		AuthorID:   msg.Author.ID,
		Author:     msg.Author.Username,
		Content:    msg.Content,
		ReceivedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	m := nats.NewMsg(p.subject)
	m.Data = data
	msgID := msg.ID
	if msgID == "" {
		msgID = ev.ID
	}
	m.Header.Set(nats.MsgIdHdr, msgID)

	if err := p.conn.PublishMsg(m); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	p.logger.Debug("published dm", "subject", p.subject, "message_id", msg.ID)
	return nil
}

// Close drains pending publishes and disconnects.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	p.conn = nil
	return err
}
