package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRequestIncomplete is returned for requests that could not be completed
// because the session could not be refreshed.
var ErrRequestIncomplete = errors.New("request could not be completed")

// RefreshState is the coordinator's refresh status.
type RefreshState int

const (
	RefreshIdle RefreshState = iota
	RefreshInFlight
)

func (s RefreshState) String() string {
	if s == RefreshInFlight {
		return "refreshing"
	}
	return "idle"
}

// TokenSource supplies the current access token and performs refreshes.
// Refresh must update the value returned by AccessToken before it returns.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context) (string, error)
}

// Observer receives refresh coordination events. Any field may be nil.
type Observer struct {
	// OnRefresh is called once per refresh with its duration, the number of
	// requests it resolved, and its error.
	OnRefresh func(d time.Duration, waiters int, err error)
	// OnCoalesced is called for each request that joined an in-flight refresh.
	OnCoalesced func()
	// OnRetry is called for each request retried after a refresh.
	OnRetry func()
	// OnTerminal is called when a retried request is rejected again.
	OnTerminal func()
}

type outcome struct {
	token string
	err   error
}

// coordinator serializes refreshes. At most one refresh runs at a time; requests
// arriving during it queue behind it and share its outcome.
type coordinator struct {
	source   TokenSource
	observer Observer

	mu      sync.Mutex
	state   RefreshState
	waiters []chan outcome
}

func (c *coordinator) State() RefreshState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// await returns a token newer than stale, refreshing if nobody has yet.
func (c *coordinator) await(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	if c.state == RefreshIdle {
		// A refresh finished after this request was sent.
		if current := c.source.AccessToken(); current != "" && current != stale {
			c.mu.Unlock()
			return current, nil
		}
	}

	// Buffered so resolution never blocks on a waiter that gave up.
	ch := make(chan outcome, 1)
	c.waiters = append(c.waiters, ch)
	leader := c.state == RefreshIdle
	if leader {
		c.state = RefreshInFlight
	}
	c.mu.Unlock()

	if leader {
		go c.refresh(context.WithoutCancel(ctx))
	} else if c.observer.OnCoalesced != nil {
		c.observer.OnCoalesced()
	}

	select {
	case o := <-ch:
		if o.err != nil {
			return "", fmt.Errorf("%w: %w", ErrRequestIncomplete, o.err)
		}
		return o.token, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *coordinator) refresh(ctx context.Context) {
	ctx, settle := withSettleQueue(ctx)
	defer settle.run()

	start := time.Now()
	token, err := c.source.Refresh(ctx)
	if err == nil && token == "" {
		err = errors.New("refresh returned an empty token")
	}

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = RefreshIdle
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- outcome{token: token, err: err}
	}
	if c.observer.OnRefresh != nil {
		c.observer.OnRefresh(time.Since(start), len(waiters), err)
	}
}
