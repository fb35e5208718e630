// Package transport implements the request authorization interceptor: an
// [http.RoundTripper] that attaches the current access token to outbound requests
// and recovers from expired tokens with a single-flight refresh.
//
// # Flow
//
//  1. The request is cloned and given "Authorization: Bearer <token>" and an
//     X-Request-ID header. The caller's request is never mutated.
//  2. A 401 on the first attempt parks the request on the refresh queue. The
//     first parked request starts one refresh; every other request that arrives
//     while it runs waits for the same outcome.
//  3. Each parked request is retried exactly once with the new token. A 401 on
//     the retry is returned to the caller as-is.
//
// If the refresh fails, every parked request fails with [ErrRequestIncomplete]
// wrapping the refresh error.
//
// # What this package must NOT do
//
//   - Persist tokens or know the refresh endpoint; that belongs to the TokenSource.
//   - Retry on anything other than 401 (no 5xx or network retries).
//   - Log tokens or request bodies.
package transport
