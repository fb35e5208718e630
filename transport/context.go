package transport

import (
	"context"
	"sync"
)

type attemptContextKey struct{}

// WithAttempt tags ctx with the authorization attempt number. Zero is the
// original send; one is the single post-refresh retry.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptContextKey{}, attempt)
}

// AttemptFrom returns the attempt number carried by ctx, or zero.
func AttemptFrom(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	attempt, _ := ctx.Value(attemptContextKey{}).(int)
	return attempt
}

type settleContextKey struct{}

// settleQueue holds callbacks deferred until a coordinated refresh settles.
type settleQueue struct {
	mu      sync.Mutex
	settled bool
	fns     []func()
}

func withSettleQueue(ctx context.Context) (context.Context, *settleQueue) {
	q := &settleQueue{}
	return context.WithValue(ctx, settleContextKey{}, q), q
}

// AfterRefresh runs fn once the refresh that ctx belongs to has handed its result
// to every queued request and the coordinator is idle again. Outside a
// coordinated refresh fn runs immediately. Callbacks that may send requests
// through the Interceptor must be registered this way.
func AfterRefresh(ctx context.Context, fn func()) {
	if ctx != nil {
		if q, ok := ctx.Value(settleContextKey{}).(*settleQueue); ok {
			q.mu.Lock()
			if !q.settled {
				q.fns = append(q.fns, fn)
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
		}
	}
	fn()
}

func (q *settleQueue) run() {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.settled = true
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
