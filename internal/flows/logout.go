package flows

import (
	"context"
	"net/http"
)

// LogoutResult reports the notification outcome separately from the local clear.
type LogoutResult struct {
	Notified  bool
	NotifyErr error
	ClearErr  error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Call  CallFunc
	Clear func(context.Context) error
}

// RunLogout tells the backend to invalidate the refresh token, then clears local
// state regardless of the notification outcome.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	var res LogoutResult
	if refreshToken != "" && deps.Call != nil {
		res.NotifyErr = deps.Call(ctx, http.MethodPost, PathLogout, refreshRequest{RefreshToken: refreshToken}, nil)
		res.Notified = res.NotifyErr == nil
	}
	// The local clear must not be skipped because the caller gave up on the notification.
	res.ClearErr = deps.Clear(context.WithoutCancel(ctx))
	return res
}
