// Package events publishes analysis decisions to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultSubject = "docintel.decisions"

// DecisionEvent is the message body published for every analysis.
type DecisionEvent struct {
	DocumentID          string    `json:"document_id"`
	CompanyID           string    `json:"company_id,omitempty"`
	UserID              string    `json:"user_id,omitempty"`
	Filename            string    `json:"filename"`
	Checksum            string    `json:"checksum"`
	Context             string    `json:"context"`
	Recommendation      string    `json:"recommendation"`
	Action              string    `json:"action"`
	OverallScore        float64   `json:"overall_score"`
	WarningLevel        string    `json:"warning_level"`
	ExactDuplicates     int       `json:"exact_duplicates"`
	PotentialDuplicates int       `json:"potential_duplicates"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// Publisher is implemented by NATSPublisher and Noop.
type Publisher interface {
	PublishDecision(ctx context.Context, ev DecisionEvent) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishDecision(context.Context, DecisionEvent) error { return nil }

type msgConn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

type Options struct {
	Name           string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	// Flush waits for the server to acknowledge each publish.
	Flush bool
}

type NATSPublisher struct {
	conn    msgConn
	subject string
	flush   bool
	logger  *slog.Logger
}

func Connect(url, subject string, opts Options, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = "docintel"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 2 * time.Second
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 60
	}
	conn, err := nats.Connect(
		url,
		nats.Name(opts.Name),
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newPublisher(conn, subject, opts.Flush, logger), nil
}

func newPublisher(conn msgConn, subject string, flush bool, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: conn, subject: subject, flush: flush, logger: logger}
}

// Subject returns the subject an event is published on: <base>.<recommendation>.
func (p *NATSPublisher) Subject(ev DecisionEvent) string {
	if ev.Recommendation == "" {
		return p.subject
	}
	return p.subject + "." + ev.Recommendation
}

func (p *NATSPublisher) PublishDecision(ctx context.Context, ev DecisionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := nats.NewMsg(p.Subject(ev))
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	if ev.DocumentID != "" {
		msg.Header.Set(nats.MsgIdHdr, ev.DocumentID)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	if p.flush {
		if err := p.conn.FlushWithContext(ctx); err != nil {
			return fmt.Errorf("nats flush: %w", err)
		}
	}
	p.logger.Debug("decision event published", "subject", msg.Subject, "document_id", ev.DocumentID)
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
