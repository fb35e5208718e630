package flows

import (
	"context"
	"net/http"

	"github.com/eyoklama/authclient/jwt"
)

type verifyReply struct {
	Valid bool              `json:"valid"`
	User  *jwt.AccessClaims `json:"user"`
}

// VerifyResult is the backend's view of the presented access token.
type VerifyResult struct {
	Failure FailureKind
	Err     error
	Valid   bool
	Claims  *jwt.AccessClaims
}

// VerifyDeps captures verify flow dependencies. Call must be an authorized caller.
type VerifyDeps struct {
	Call CallFunc
}

// RunVerify asks the backend to validate the current access token.
func RunVerify(ctx context.Context, deps VerifyDeps) VerifyResult {
	var reply verifyReply
	if err := deps.Call(ctx, http.MethodGet, PathVerify, nil, &reply); err != nil {
		return VerifyResult{Failure: classify(err), Err: err}
	}
	if reply.User == nil {
		reply.User = &jwt.AccessClaims{}
	}
	return VerifyResult{Valid: reply.Valid, Claims: reply.User}
}
