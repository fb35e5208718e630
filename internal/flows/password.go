package flows

import (
	"context"
	"net/http"

	"github.com/eyoklama/authclient/internal/wire"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type messageReply struct {
	Message string `json:"message"`
}

// PasswordResult carries the backend confirmation message or failure metadata.
// Message is also set on rejection when the backend explained why.
type PasswordResult struct {
	Failure FailureKind
	Err     error
	Message string
}

// PasswordDeps captures change-password flow dependencies. Call must be an
// authorized caller.
type PasswordDeps struct {
	Call CallFunc
}

// RunChangePassword asks the backend to replace the current password.
func RunChangePassword(ctx context.Context, current, next string, deps PasswordDeps) PasswordResult {
	var reply messageReply
	err := deps.Call(ctx, http.MethodPost, PathChangePassword, changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	}, &reply)
	if err != nil {
		res := PasswordResult{Failure: classify(err), Err: err}
		if se, ok := wire.AsStatus(err); ok {
			res.Message = se.Message
		}
		return res
	}
	return PasswordResult{Message: reply.Message}
}
