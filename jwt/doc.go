// Package jwt reads claims from access tokens without verifying their signature.
//
// The client never holds the signing key, so nothing read here is trusted for
// authorization. Claims are used only to schedule an early refresh and to show token
// expiry to the user. Tokens that are not JWTs are treated as opaque.
package jwt
