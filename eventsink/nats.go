package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "gosession"

// Publisher is the subset of *nats.Conn the sinks use.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// Config configures a NATS connection for the sinks.
type Config struct {
	URL           string        `mapstructure:"url"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 10
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
}

// Connect dials NATS with reconnect handling that logs through logger.
func Connect(cfg Config, logger *zap.Logger) (*nats.Conn, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []nats.Option{
		nats.Name("gosession"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NATSSink publishes audit events. Publish failures are logged and counted,
// never returned to the session.
type NATSSink struct {
	pub    Publisher
	prefix string
	logger *zap.Logger

	published atomic.Uint64
	failed    atomic.Uint64
}

var _ goSession.AuditSink = (*NATSSink)(nil)

// NewNATSSink returns a sink publishing on "<prefix>.<event type>". An empty
// prefix means DefaultSubjectPrefix.
func NewNATSSink(pub Publisher, prefix string, logger *zap.Logger) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSSink{pub: pub, prefix: prefix, logger: logger}
}

// Subject returns the subject an event of type eventType is published on.
func (s *NATSSink) Subject(eventType string) string {
	return subject(s.prefix, eventType)
}

// Emit implements goSession.AuditSink.
func (s *NATSSink) Emit(_ context.Context, event goSession.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		s.logger.Error("failed to marshal audit event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	if err := s.pub.Publish(s.Subject(event.Type), data); err != nil {
		s.failed.Add(1)
		s.logger.Warn("failed to publish audit event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	s.published.Add(1)
}

// Published counts events handed to the broker.
func (s *NATSSink) Published() uint64 { return s.published.Load() }

// Failed counts events that could not be encoded or published.
func (s *NATSSink) Failed() uint64 { return s.failed.Load() }

// LogoutMessage is the payload published by ForwardLogouts.
type LogoutMessage struct {
	Reason   string    `json:"reason"`
	Username string    `json:"username,omitempty"`
	Role     string    `json:"role"`
	At       time.Time `json:"at"`
}

// ForwardLogouts publishes every logout of c on "<prefix>.logout.<reason>".
// The returned function stops forwarding.
func ForwardLogouts(c *goSession.Controller, pub Publisher, prefix string, logger *zap.Logger) (stop func()) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return c.OnLogout(func(_ context.Context, ev goSession.LogoutEvent) {
		data, err := json.Marshal(LogoutMessage{
			Reason:   string(ev.Reason),
			Username: ev.Username,
			Role:     ev.Role.String(),
			At:       ev.At,
		})
		if err != nil {
			logger.Error("failed to marshal logout", zap.Error(err))
			return
		}
		if err := pub.Publish(subject(prefix, "logout."+string(ev.Reason)), data); err != nil {
			logger.Warn("failed to publish logout", zap.String("reason", string(ev.Reason)), zap.Error(err))
		}
	})
}

func subject(prefix, suffix string) string {
	return strings.TrimSuffix(prefix, ".") + "." + suffix
}
