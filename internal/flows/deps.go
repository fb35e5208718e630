package flows

import "context"

// Backend endpoint paths, relative to the configured base URL.
const (
	PathLogin          = "/auth/login"
	PathLogout         = "/auth/logout"
	PathRefresh        = "/auth/refresh-token"
	PathChangePassword = "/auth/change-password"
	PathVerify         = "/auth/verify-token"
)

// CallFunc performs one JSON exchange. in may be nil; out may be nil to discard.
type CallFunc func(ctx context.Context, method, path string, in, out any) error

// FailureKind classifies flow failures for root-level mapping.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureMissingToken means the flow needed a stored token that was absent.
	FailureMissingToken
	// FailureRejected means the backend answered with a 4xx.
	FailureRejected
	// FailureTransport means no usable response was received (network, 5xx, cancellation).
	FailureTransport
	// FailureMalformed means a 2xx body lacked required fields.
	FailureMalformed
	// FailurePersist means the credential store could not be written.
	FailurePersist
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureMissingToken:
		return "missing_token"
	case FailureRejected:
		return "rejected"
	case FailureTransport:
		return "transport"
	case FailureMalformed:
		return "malformed"
	case FailurePersist:
		return "persist"
	default:
		return "unknown"
	}
}
