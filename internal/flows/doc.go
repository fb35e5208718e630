// Package flows contains the backend endpoint contracts behind every Manager operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, RunChangePassword, RunVerify)
// accepts a typed dependency struct and returns a result carrying a failure kind.
// The root package maps failure kinds onto its sentinel errors, audit events,
// and metrics, which keeps the Manager type thin.
//
// # Architecture boundaries
//
// Flow functions know request paths, request bodies, and response shapes. They
// persist through the dependency callbacks and never hold the session in memory.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authclient (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency callbacks.
package flows
