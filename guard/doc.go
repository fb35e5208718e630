// Package guard gates views and HTTP routes on the current session's role.
//
// [Guard.CanAccess] answers Allowed, Pending (session restore has not finished),
// or Deny with a redirect target: the login path when there is no session, the
// unauthorized path when the role does not qualify. Legacy role names are
// normalized before comparison, so "ogretmen" qualifies for teacher.
//
// # Architecture boundaries
//
// This package reads session state; it never refreshes, logs in, or sends
// requests. [Require] adapts decisions to net/http so any router can mount it.
//
// # What this package must NOT do
//
//   - Mutate session state.
//   - Treat Pending as Deny.
package guard
