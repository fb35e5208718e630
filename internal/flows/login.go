package flows

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/eyoklama/authclient/session"
)

// ErrIncompleteLoginReply is returned when a 2xx login response lacks tokens or user.
var ErrIncompleteLoginReply = errors.New("login response missing tokens or user")

type loginRequest struct {
	Mail     string `json:"mail"`
	Password string `json:"sifre"`
}

type loginReply struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         json.RawMessage `json:"user"`
}

// LoginResult carries the persisted session or failure metadata.
type LoginResult struct {
	Failure FailureKind
	Err     error
	Session *session.Session
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Call CallFunc
	Save func(context.Context, *session.Session) error
}

// RunLogin exchanges credentials for a token pair and persists the session.
// Nothing is persisted unless the response is complete.
func RunLogin(ctx context.Context, mail, password string, deps LoginDeps) LoginResult {
	var reply loginReply
	err := deps.Call(ctx, http.MethodPost, PathLogin, loginRequest{
		Mail:     strings.TrimSpace(mail),
		Password: password,
	}, &reply)
	if err != nil {
		return LoginResult{Failure: classify(err), Err: err}
	}

	if reply.AccessToken == "" || reply.RefreshToken == "" || len(reply.User) == 0 {
		return LoginResult{Failure: FailureMalformed, Err: ErrIncompleteLoginReply}
	}
	user, err := session.DecodeUser(reply.User)
	if err != nil {
		return LoginResult{Failure: FailureMalformed, Err: err}
	}

	sess := &session.Session{
		AccessToken:  reply.AccessToken,
		RefreshToken: reply.RefreshToken,
		User:         user,
	}
	if err := deps.Save(ctx, sess); err != nil {
		return LoginResult{Failure: FailurePersist, Err: err}
	}
	return LoginResult{Session: sess}
}
