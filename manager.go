package authclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	internalaudit "github.com/eyoklama/authclient/internal/audit"
	"github.com/eyoklama/authclient/internal/flows"
	"github.com/eyoklama/authclient/internal/wire"
	"github.com/eyoklama/authclient/permission"
	"github.com/eyoklama/authclient/session"
	"github.com/eyoklama/authclient/transport"
)

// Manager owns the session state machine. It is the only writer of the
// credential store and the only component that knows the auth endpoints.
type Manager struct {
	store     *session.Store
	namespace string

	// base reaches the auth endpoints without the interceptor; authed goes
	// through it.
	base   *wire.Caller
	authed *wire.Caller

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	hooks   Hooks

	initOnce sync.Once
	initErr  error

	mu    sync.RWMutex
	state State
	sess  *session.Session
}

/*
====================================
INITIALIZATION
====================================
*/

// Initialize restores a persisted session. Partial or corrupt stored state is
// purged first. Only the first call does any work; later calls return its result.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.initErr = m.initialize(ctx)
	})
	return m.initErr
}

func (m *Manager) initialize(ctx context.Context) error {
	cleared, err := m.store.CheckConsistency(ctx)
	if err != nil {
		m.transition(nil, StateUnauthenticated)
		return fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	if cleared {
		log.Print("authclient: purged inconsistent stored session")
		m.metrics.Inc(MetricSessionPurged)
		m.emitAudit(ctx, auditEventSessionPurged, true, "", nil, nil)
	}

	sess, err := m.store.Load(ctx)
	if err != nil {
		m.transition(nil, StateUnauthenticated)
		return fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	if sess == nil {
		m.transition(nil, StateUnauthenticated)
		return nil
	}

	m.transition(sess, StateAuthenticated)
	m.metrics.Inc(MetricSessionRestored)
	m.emitAudit(ctx, auditEventSessionRestored, true, sess.User.ID, nil, nil)
	return nil
}

/*
====================================
LOGIN / LOGOUT
====================================
*/

// Login authenticates with the backend and persists the session. On failure no
// state changes: a rejection is an *APIError of kind [ErrInvalidCredentials]
// carrying the backend's message; an unreachable backend is [ErrNetworkFailure].
func (m *Manager) Login(ctx context.Context, mail, password string) (*Session, error) {
	if !m.Initialized() {
		return nil, ErrNotInitialized
	}

	var from State
	res := flows.RunLogin(ctx, mail, password, flows.LoginDeps{
		Call: m.base.Do,
		Save: func(ctx context.Context, sess *session.Session) error {
			var err error
			from, err = m.commitSession(ctx, sess)
			return err
		},
	})
	if res.Failure != flows.FailureNone {
		err := m.mapFailure(res.Failure, res.Err, ErrInvalidCredentials)
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, "", err, func() map[string]string {
			return map[string]string{"reason": res.Failure.String()}
		})
		return nil, err
	}

	m.notifyStateChange(from, StateAuthenticated)
	m.metrics.Inc(MetricLoginSuccess)
	m.emitAudit(ctx, auditEventLoginSuccess, true, res.Session.User.ID, nil, func() map[string]string {
		return map[string]string{"role": res.Session.User.Role}
	})
	return res.Session.Clone(), nil
}

// Logout notifies the backend (best effort) and clears the session. It is safe
// to call when no session exists. Only a failure to clear local storage is returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.RLock()
	sess := m.sess
	m.mu.RUnlock()

	var refreshToken, userID string
	if sess != nil {
		refreshToken, userID = sess.RefreshToken, sess.User.ID
	}

	from := StateUnauthenticated
	res := flows.RunLogout(ctx, refreshToken, flows.LogoutDeps{
		Call: m.base.Do,
		Clear: func(ctx context.Context) error {
			var err error
			from, err = m.commitSession(ctx, nil)
			return err
		},
	})
	if res.NotifyErr != nil {
		log.Printf("authclient: logout notification failed: %v", res.NotifyErr)
		m.metrics.Inc(MetricLogoutNotifyFailure)
	}

	m.notifyStateChange(from, StateUnauthenticated)
	m.metrics.Inc(MetricLogout)
	m.emitAudit(ctx, auditEventLogout, res.ClearErr == nil, userID, res.ClearErr, func() map[string]string {
		return map[string]string{"notified": fmt.Sprint(res.Notified)}
	})

	if res.ClearErr != nil {
		return fmt.Errorf("%w: %w", ErrCredentialStore, res.ClearErr)
	}
	return nil
}

/*
====================================
REFRESH
====================================
*/

// errSuperseded marks a refresh whose session was replaced while it ran.
var errSuperseded = errors.New("session superseded during refresh")

// Refresh exchanges the refresh token for a new access token. Any failure ends
// the session: storage is cleared, OnSessionExpired runs, and the error wraps
// [ErrSessionExpired]. Before Initialize it returns [ErrNotInitialized] and
// leaves storage alone. Concurrent callers should go through the Client's
// transport, which guarantees a single refresh in flight.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	if !m.Initialized() {
		return "", ErrNotInitialized
	}

	m.mu.Lock()
	sess := m.sess
	from := m.state
	if sess != nil {
		m.state = StateRefreshing
	}
	m.mu.Unlock()
	if sess != nil {
		m.afterRefresh(ctx, func() { m.notifyStateChange(from, StateRefreshing) })
	}

	var refreshToken string
	if sess != nil {
		refreshToken = sess.RefreshToken
	}

	start := time.Now()
	res := flows.RunRefresh(ctx, refreshToken, flows.RefreshDeps{
		Call: m.base.Do,
		UpdateAccessToken: func(ctx context.Context, token string) error {
			return m.commitAccessToken(ctx, sess, token)
		},
		MissingToken: ErrNotAuthenticated,
	})
	if sess != nil {
		m.metrics.Observe(MetricRefreshLatency, time.Since(start))
	}

	if res.Failure == flows.FailureNone {
		m.afterRefresh(ctx, func() { m.notifyStateChange(StateRefreshing, StateAuthenticated) })
		m.metrics.Inc(MetricRefreshSuccess)
		m.emitAudit(ctx, auditEventRefreshSuccess, true, sess.User.ID, nil, nil)
		return res.AccessToken, nil
	}
	if errors.Is(res.Err, errSuperseded) {
		if token := m.AccessToken(); token != "" {
			return token, nil
		}
	}

	cause := m.mapFailure(res.Failure, res.Err, ErrUnauthorized)
	err := fmt.Errorf("%w: %w", ErrSessionExpired, cause)
	if sess == nil {
		// Nothing to expire; make sure no stray slots survive.
		if clearErr := m.store.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			log.Printf("authclient: clearing credential store failed: %v", clearErr)
		}
		return "", err
	}

	m.metrics.Inc(MetricRefreshFailure)
	m.emitAudit(ctx, auditEventRefreshFailure, false, sess.User.ID, cause, func() map[string]string {
		return map[string]string{"reason": res.Failure.String()}
	})
	m.expire(ctx, sess)
	return "", err
}

// commitAccessToken stores token for sess, in storage and in memory under one
// lock, unless sess is no longer the current session.
func (m *Manager) commitAccessToken(ctx context.Context, sess *session.Session, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != sess {
		return errSuperseded
	}
	if err := m.store.UpdateAccessToken(ctx, token); err != nil {
		return err
	}
	next := sess.Clone()
	next.AccessToken = token
	m.sess = next
	m.state = StateAuthenticated
	return nil
}

// expire clears the session that a failed refresh was started for. A session
// replaced by a newer Login in the meantime is left alone.
func (m *Manager) expire(ctx context.Context, sess *session.Session) {
	m.mu.Lock()
	if m.sess != sess {
		m.mu.Unlock()
		return
	}
	from := m.state
	m.sess = nil
	m.state = StateUnauthenticated
	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Printf("authclient: clearing expired session failed: %v", err)
	}
	m.mu.Unlock()

	m.metrics.Inc(MetricSessionExpired)
	m.emitAudit(ctx, auditEventSessionExpired, false, sess.User.ID, ErrSessionExpired, nil)
	m.afterRefresh(ctx, func() {
		m.notifyStateChange(from, StateUnauthenticated)
		if m.hooks.OnSessionExpired != nil {
			m.hooks.OnSessionExpired()
		}
	})
}

/*
====================================
AUTHORIZED OPERATIONS
====================================
*/

// ChangePassword asks the backend to replace the password and returns its
// confirmation message. A refusal is an *APIError of kind
// [ErrPasswordChangeRejected] with the backend's reason.
func (m *Manager) ChangePassword(ctx context.Context, current, next string) (string, error) {
	user, ok := m.CurrentUser()
	if !ok {
		return "", ErrNotAuthenticated
	}

	res := flows.RunChangePassword(ctx, current, next, flows.PasswordDeps{Call: m.authed.Do})
	if res.Failure != flows.FailureNone {
		err := m.mapFailure(res.Failure, res.Err, ErrPasswordChangeRejected)
		m.metrics.Inc(MetricPasswordChangeFailure)
		m.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, err, nil)
		return "", err
	}

	m.metrics.Inc(MetricPasswordChangeSuccess)
	m.emitAudit(ctx, auditEventPasswordChange, true, user.ID, nil, nil)
	return res.Message, nil
}

// Verify asks the backend whether the current access token is valid and
// returns the claims it reports.
func (m *Manager) Verify(ctx context.Context) (*Verification, error) {
	if _, ok := m.CurrentUser(); !ok {
		return nil, ErrNotAuthenticated
	}
	res := flows.RunVerify(ctx, flows.VerifyDeps{Call: m.authed.Do})
	if res.Failure != flows.FailureNone {
		return nil, m.mapFailure(res.Failure, res.Err, ErrUnauthorized)
	}
	return &Verification{Valid: res.Valid, Claims: res.Claims}, nil
}

/*
====================================
STATE ACCESSORS
====================================
*/

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Initialized reports whether Initialize has completed.
func (m *Manager) Initialized() bool {
	return m.State() != StateInitializing
}

// AccessToken returns the current access token, or "" without a session.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return ""
	}
	return m.sess.AccessToken
}

// CurrentUser returns a copy of the authenticated user.
func (m *Manager) CurrentUser() (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return User{}, false
	}
	return m.sess.User, true
}

// CurrentRole returns the canonical role of the authenticated user, with
// legacy aliases normalized. It reports false without a session.
func (m *Manager) CurrentRole() (permission.Role, bool) {
	user, ok := m.CurrentUser()
	if !ok {
		return "", false
	}
	return user.CanonicalRole()
}

// Session returns a copy of the current session, or nil.
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return nil
	}
	return m.sess.Clone()
}

/*
====================================
HELPERS
====================================
*/

// commitSession persists sess (or clears storage when sess is nil) and makes it
// current under one lock. The in-memory session is cleared even if clearing
// storage fails.
func (m *Manager) commitSession(ctx context.Context, sess *session.Session) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.state
	if sess == nil {
		err := m.store.Clear(ctx)
		m.sess = nil
		m.state = StateUnauthenticated
		return from, err
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return from, err
	}
	m.sess = sess
	m.state = StateAuthenticated
	return from, nil
}

func (m *Manager) transition(sess *session.Session, to State) {
	m.mu.Lock()
	from := m.state
	m.sess = sess
	m.state = to
	m.mu.Unlock()
	m.notifyStateChange(from, to)
}

// afterRefresh runs hook callbacks for a refresh once the transport has settled
// it, so a hook may send requests through the Client without queueing behind
// the refresh that fired it.
func (m *Manager) afterRefresh(ctx context.Context, fn func()) {
	transport.AfterRefresh(ctx, fn)
}

func (m *Manager) notifyStateChange(from, to State) {
	if from != to && m.hooks.OnStateChange != nil {
		m.hooks.OnStateChange(from, to)
	}
}

// mapFailure turns a flow failure into the package's error vocabulary.
// rejectedKind is the kind given to 4xx responses.
func (m *Manager) mapFailure(kind flows.FailureKind, err error, rejectedKind error) error {
	if errors.Is(err, ErrRequestIncomplete) {
		return err
	}
	switch kind {
	case flows.FailureRejected:
		if se, ok := wire.AsStatus(err); ok {
			return &APIError{Status: se.Status, Message: se.Message, Kind: rejectedKind}
		}
		return fmt.Errorf("%w: %w", rejectedKind, err)
	case flows.FailureMissingToken:
		return err
	case flows.FailureMalformed:
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	case flows.FailurePersist:
		return fmt.Errorf("%w: %w", ErrCredentialStore, err)
	default:
		if se, ok := wire.AsStatus(err); ok {
			return &APIError{Status: se.Status, Message: se.Message, Kind: ErrNetworkFailure}
		}
		return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
}

