// Package notify publishes committed document transitions to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rpggio/saraban/internal/domain/document"
)

// Publisher sends document events to per-tenant subjects.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// Connect dials the NATS server at url.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	nc, err := nats.Connect(url,
		nats.Name("saraban"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{nc: nc, logger: logger}, nil
}

// Subject returns saraban.<tenant>.documents.<status>.
func Subject(event document.Event) string {
	return fmt.Sprintf("saraban.%s.documents.%s", token(event.TenantID), token(strings.ToLower(string(event.Status))))
}

// Publish sends the event as JSON.
func (p *Publisher) Publish(ctx context.Context, event document.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(Subject(event), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

// token strips characters NATS treats as separators or wildcards.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

var _ document.EventPublisher = (*Publisher)(nil)
