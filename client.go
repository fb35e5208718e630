package authclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	internalaudit "github.com/eyoklama/authclient/internal/audit"
	"github.com/eyoklama/authclient/internal/wire"
	"github.com/eyoklama/authclient/session"
	"github.com/eyoklama/authclient/transport"
)

// Client is an assembled session layer: the Manager, its credential store, and
// an HTTP client that authorizes every request it sends.
type Client struct {
	config      Config
	manager     *Manager
	store       *session.Store
	interceptor *transport.Interceptor
	http        *http.Client
	api         *wire.Caller
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	closers     []io.Closer

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Initialize restores any persisted session. See [Manager.Initialize].
func (c *Client) Initialize(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.manager.Initialize(ctx)
}

// Manager returns the session manager.
func (c *Client) Manager() *Manager {
	return c.manager
}

// HTTPClient returns the authorizing HTTP client. Requests sent through it carry
// the current access token and survive a single token expiry.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Transport returns the interceptor, for callers that build their own http.Client.
func (c *Client) Transport() *transport.Interceptor {
	return c.interceptor
}

// Config returns the configuration the Client was built with.
func (c *Client) Config() Config {
	return c.config
}

// URL resolves path against the backend base URL.
func (c *Client) URL(path string) string {
	return c.api.URL(path)
}

// Do sends an authorized JSON request and decodes a 2xx body into out. A 401
// that survived the refresh retry is an *APIError of kind [ErrUnauthorized];
// other non-2xx responses have kind [ErrRequestFailed]. A request abandoned
// because the session expired fails with [ErrRequestIncomplete].
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	err := c.api.Do(ctx, method, path, in, out)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRequestIncomplete) {
		return err
	}
	if se, ok := wire.AsStatus(err); ok {
		kind := ErrRequestFailed
		if se.Status == http.StatusUnauthorized {
			kind = ErrUnauthorized
		}
		return &APIError{Status: se.Status, Message: se.Message, Kind: kind}
	}
	if errors.Is(err, wire.ErrMalformedResponse) {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
}

// RefreshState reports whether a refresh is in flight.
func (c *Client) RefreshState() transport.RefreshState {
	return c.interceptor.State()
}

// MetricsSnapshot copies the current counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close flushes audit events and releases storage connections. The persisted
// session is kept.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.audit.Close()
		c.closeErr = errors.Join(c.store.Close(), closeAll(c.closers))
		if c.closeErr != nil {
			log.Printf("authclient: close failed: %v", c.closeErr)
		}
	})
	return c.closeErr
}
