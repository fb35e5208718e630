package authclient

import (
	"errors"
	"fmt"

	"github.com/eyoklama/authclient/transport"
)

var (
	// ErrInvalidCredentials is returned by Login when the backend rejects the credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNetworkFailure is returned when the backend could not be reached or answered 5xx.
	ErrNetworkFailure = errors.New("network failure")
	// ErrSessionExpired is returned when the session could not be refreshed. The
	// session has been cleared by the time it is observed.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden is produced by role gating when the current role does not qualify.
	ErrForbidden = errors.New("forbidden")
	// ErrRequestIncomplete is returned for requests abandoned because the session expired.
	ErrRequestIncomplete = transport.ErrRequestIncomplete
	// ErrUnauthorized is the kind of a 401 that survived the post-refresh retry.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotAuthenticated is returned by operations that need a session when there is none.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrPasswordChangeRejected is returned when the backend refuses a password change.
	ErrPasswordChangeRejected = errors.New("password change rejected")
	// ErrRequestFailed is the kind of any other non-2xx backend response.
	ErrRequestFailed = errors.New("request failed")
	// ErrInvalidResponse is returned when a 2xx backend body lacks required fields.
	ErrInvalidResponse = errors.New("invalid backend response")
	// ErrCredentialStore is returned when the credential store cannot be read or written.
	ErrCredentialStore = errors.New("credential store failure")
	// ErrNotInitialized is returned by Login before Initialize has completed.
	ErrNotInitialized = errors.New("session manager not initialized")
	// ErrInvalidConfig is returned by Validate and Build for unusable configuration.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("client closed")
)

// APIError is a backend rejection. Message is the backend's own explanation
// when it sent one. errors.Is matches Kind.
type APIError struct {
	Status  int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}
