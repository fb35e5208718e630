// Package session provides durable persistence of the client's credential record and the
// [Session] model shared by the rest of authclient.
//
// # Slots
//
// A session is persisted as three independently addressable slots: the access token,
// the refresh token, and the serialized user record. [Store] enforces all-or-absent
// semantics on top of any [Backend]: a partially written record reads as "no session"
// and [Store.CheckConsistency] purges it.
//
// # Backends
//
//   - [MemoryBackend] for tests and short-lived processes.
//   - [FileBackend] writes one 0600 file per slot using temp file + rename.
//   - [RedisBackend] keys slots under a namespace and writes them in a MULTI block.
//   - [SQLiteBackend] keeps slots in one table and writes them in a transaction.
//   - [SealedBackend] wraps any backend and encrypts slot values at rest.
//
// # Architecture boundaries
//
// This package owns storage and the user record codec. It does NOT talk to the
// authentication backend, decide when to refresh, or make gating decisions.
//
// # What this package must NOT do
//
//   - Import authclient, transport, or guard (no upward imports).
//   - Log or return token values inside error messages.
//   - Return a partially populated [Session].
package session
