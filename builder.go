package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/gateway"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/store"
	"go.uber.org/zap"
)

// Builder assembles a [Controller]. A Builder is single use.
type Builder struct {
	config Config
	logger *zap.Logger

	backend    store.Backend
	httpClient *http.Client
	encoder    gateway.PasswordEncoder
	auditSink  AuditSink
	now        func() time.Time

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithBackend supplies a credential backend, overriding Config.Store. The
// Controller closes it on Close.
func (b *Builder) WithBackend(backend store.Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPClient sets the client used for gateway calls and as the base of
// [Controller.HTTPClient].
func (b *Builder) WithHTTPClient(h *http.Client) *Builder {
	b.httpClient = h
	return b
}

// WithPasswordEncoder sets the hook applied to passwords before they leave
// the process.
func (b *Builder) WithPasswordEncoder(enc gateway.PasswordEncoder) *Builder {
	b.encoder = enc
	return b
}

// WithAuditSink sets the lifecycle event sink. Audit.Enabled must be true
// for events to be dispatched.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters read by
// [Controller.MetricsSnapshot].
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram. Build rejects it
// while metrics are disabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, opens the credential backend and
// returns a Controller. Build performs no network I/O against the gateway.
func (b *Builder) Build() (*Controller, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- CREDENTIAL STORE --------
	backend := b.backend
	if backend == nil {
		var err error
		backend, err = store.Open(cfg.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("open credential store: %w", err)
		}
	}

	// -------- GATEWAY --------
	var c *Controller
	opts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithRenewalObserver(func(h http.Header) { c.ObserveResponse(h) }),
	}
	if b.httpClient != nil {
		opts = append(opts, gateway.WithHTTPClient(b.httpClient))
	}
	if b.encoder != nil {
		opts = append(opts, gateway.WithPasswordEncoder(b.encoder))
	}
	gw, err := gateway.New(cfg.Gateway, opts...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	c = &Controller{
		cfg:        cfg,
		state:      session.NewState(),
		store:      store.New(backend, logger),
		gateway:    gw,
		baseClient: b.httpClient,
		logger:     logger.Named("session"),
		now:        now,
		metrics:    NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	b.built = true

	return c, nil
}
