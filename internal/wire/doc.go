// Package wire performs JSON request/response exchanges with the attendance backend.
//
// # Architecture boundaries
//
// This package owns URL joining, JSON encoding, and the backend's error body
// shape ({"error": ...} or {"message": ...}). It does NOT attach credentials;
// callers pass an *http.Client whose transport does that when needed.
//
// # What this package must NOT do
//
//   - Import authclient or any sibling internal package.
//   - Retry requests.
//   - Log request or response bodies (they carry passwords and tokens).
package wire
