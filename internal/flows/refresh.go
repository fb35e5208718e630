package flows

import (
	"context"
	"errors"
	"net/http"
)

// ErrMissingAccessToken is returned when a 2xx refresh response has no access_token.
var ErrMissingAccessToken = errors.New("refresh response missing access_token")

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshReply struct {
	AccessToken string `json:"access_token"`
}

// RefreshResult carries either the new access token or failure metadata.
type RefreshResult struct {
	Failure     FailureKind
	Err         error
	AccessToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Call              CallFunc
	UpdateAccessToken func(context.Context, string) error
	MissingToken      error
}

// RunRefresh exchanges the refresh token for a new access token and stores it.
// The refresh token itself is never rotated by the backend.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: FailureMissingToken, Err: deps.MissingToken}
	}

	var reply refreshReply
	if err := deps.Call(ctx, http.MethodPost, PathRefresh, refreshRequest{RefreshToken: refreshToken}, &reply); err != nil {
		return RefreshResult{Failure: classify(err), Err: err}
	}
	if reply.AccessToken == "" {
		return RefreshResult{Failure: FailureMalformed, Err: ErrMissingAccessToken}
	}
	if err := deps.UpdateAccessToken(ctx, reply.AccessToken); err != nil {
		return RefreshResult{Failure: FailurePersist, Err: err}
	}
	return RefreshResult{AccessToken: reply.AccessToken}
}
