package flows

import (
	"errors"

	"github.com/eyoklama/authclient/internal/wire"
)

func classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	if se, ok := wire.AsStatus(err); ok && se.ClientError() {
		return FailureRejected
	}
	if errors.Is(err, wire.ErrMalformedResponse) {
		return FailureMalformed
	}
	return FailureTransport
}
