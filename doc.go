// Package authclient is the session and authorization layer of the attendance
// client. It persists credentials, attaches them to outbound requests, refreshes
// expired access tokens transparently, and answers role questions for route gating.
//
// A [Client] is assembled once through [Builder.Build]. It owns a [Manager] (the
// session state machine), the credential store, and an *http.Client whose
// transport authorizes requests and coordinates refreshes. Manager methods are
// safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// authclient is the public surface. It exposes [Client], [Manager], [Builder],
// [Config], and value types (MetricsSnapshot, AuditEvent, State). Endpoint
// contracts live in internal/flows; storage backends live in session; the
// interceptor lives in transport; route gating lives in guard.
//
// # What this package must NOT do
//
//   - Log passwords or tokens.
//   - Hold session state outside the Manager.
//   - Import guard or any sub-package that re-imports authclient.
//
// # Concurrency contract
//
// At most one refresh is in flight per Client. Requests rejected while a refresh
// runs wait for it and are retried once with its token.
package authclient
