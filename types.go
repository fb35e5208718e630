package authclient

import (
	"github.com/eyoklama/authclient/jwt"
	"github.com/eyoklama/authclient/session"
)

// State is the Manager's session state.
type State int

const (
	// StateInitializing holds until Initialize has run. Role gating answers
	// "pending" in this state.
	StateInitializing State = iota
	StateUnauthenticated
	StateAuthenticated
	// StateRefreshing is Authenticated with a refresh in flight.
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Session is an authenticated session: both tokens and the user record.
type Session = session.Session

// User is the backend's user record.
type User = session.User

// TokenClaims are the claims the backend reports for a verified access token.
type TokenClaims = jwt.AccessClaims

// Verification is the backend's answer to a token check.
type Verification struct {
	Valid  bool
	Claims *TokenClaims
}

// Hooks are invoked synchronously after the matching state change, outside the
// Manager's lock. Hooks fired by a refresh the transport started run once that
// refresh has settled and every request queued on it has its result, so they
// may send requests through the Client. Any field may be nil.
type Hooks struct {
	// OnSessionExpired runs after a failed refresh cleared the session. Clients
	// typically send the user back to the login view from here.
	OnSessionExpired func()
	// OnStateChange runs after every state transition.
	OnStateChange func(from, to State)
}
