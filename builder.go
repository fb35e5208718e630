package authclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	internalaudit "github.com/eyoklama/authclient/internal/audit"
	"github.com/eyoklama/authclient/internal/wire"
	"github.com/eyoklama/authclient/session"
	"github.com/eyoklama/authclient/transport"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. It is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	backend   session.Backend
	auditSink AuditSink
	hooks     Hooks
	roundTrip http.RoundTripper

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL overrides API.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithBackend supplies a credential backend directly, bypassing Storage.Backend.
// Passphrase sealing from the config still applies. The Client closes it on
// Close when it implements Close.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis supplies the client used by the redis storage backend. The Client
// does not close it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithHooks sets state change callbacks.
func (b *Builder) WithHooks(h Hooks) *Builder {
	b.hooks = h
	return b
}

// WithHTTPTransport sets the RoundTripper beneath the interceptor. Defaults to
// http.DefaultTransport.
func (b *Builder) WithHTTPTransport(rt http.RoundTripper) *Builder {
	b.roundTrip = rt
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, opens storage, and wires the interceptor
// into the Client's HTTP client. It performs no network I/O against the
// backend; call [Client.Initialize] next.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if b.backend != nil && cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- CREDENTIAL STORE --------
	var (
		backend session.Backend
		closers []io.Closer
		err     error
	)
	if b.backend != nil {
		backend = b.backend
		if cfg.Storage.Passphrase != "" {
			backend, err = session.NewSealedBackend(backend, cfg.Storage.Passphrase, cfg.Storage.Namespace, cfg.Storage.Seal.session())
			if err != nil {
				return nil, errors.Join(ErrInvalidConfig, err)
			}
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), openTimeout(cfg.API.Timeout))
		backend, closers, err = openBackend(ctx, cfg.Storage, b.redis)
		cancel()
		if err != nil {
			return nil, errors.Join(ErrCredentialStore, err)
		}
	}
	store := session.NewStore(backend)

	// -------- MANAGER --------
	metrics := NewMetrics(cfg.Metrics)
	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	base := b.roundTrip
	if base == nil {
		base = http.DefaultTransport
	}
	plain := &http.Client{Transport: base, Timeout: cfg.API.Timeout}

	manager := &Manager{
		store:     store,
		namespace: cfg.Storage.Namespace,
		base:      &wire.Caller{Client: plain, BaseURL: cfg.API.BaseURL, UserAgent: cfg.API.UserAgent},
		audit:     dispatcher,
		metrics:   metrics,
		hooks:     b.hooks,
		state:     StateInitializing,
	}

	// -------- INTERCEPTOR --------
	interceptor := transport.New(base, manager, transport.Config{
		ProactiveWindow:  cfg.Refresh.ProactiveWindow,
		DisableRequestID: cfg.Refresh.DisableRequestID,
		Observer: transport.Observer{
			OnCoalesced: func() { metrics.Inc(MetricRefreshCoalesced) },
			OnRetry:     func() { metrics.Inc(MetricRequestRetried) },
			OnTerminal:  func() { metrics.Inc(MetricRequestTerminal401) },
		},
	})
	authorized := &http.Client{Transport: interceptor, Timeout: cfg.API.Timeout}
	manager.authed = &wire.Caller{Client: authorized, BaseURL: cfg.API.BaseURL, UserAgent: cfg.API.UserAgent}

	b.built = true

	return &Client{
		config:      cfg,
		manager:     manager,
		store:       store,
		interceptor: interceptor,
		http:        authorized,
		api:         manager.authed,
		audit:       dispatcher,
		metrics:     metrics,
		closers:     closers,
	}, nil
}

func openTimeout(apiTimeout time.Duration) time.Duration {
	if apiTimeout <= 0 {
		return 30 * time.Second
	}
	return apiTimeout
}
