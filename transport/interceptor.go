package transport

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/eyoklama/authclient/jwt"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// RequestIDHeader is added to every outbound request that lacks one.
const RequestIDHeader = "X-Request-ID"

// Config tunes an [Interceptor].
type Config struct {
	// ProactiveWindow refreshes before sending when the access token is a JWT
	// expiring within the window. Zero disables proactive refresh.
	ProactiveWindow time.Duration
	// DisableRequestID stops the interceptor from adding X-Request-ID.
	DisableRequestID bool
	Observer         Observer
	Now              func() time.Time
}

// Interceptor is an [http.RoundTripper] that authorizes requests and recovers
// from expired access tokens. It is safe for concurrent use.
type Interceptor struct {
	base  http.RoundTripper
	cfg   Config
	coord *coordinator
}

// New wraps base (http.DefaultTransport when nil) with authorization handling.
func New(base http.RoundTripper, source TokenSource, cfg Config) *Interceptor {
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Interceptor{
		base: base,
		cfg:  cfg,
		coord: &coordinator{
			source:   source,
			observer: cfg.Observer,
		},
	}
}

// State reports whether a refresh is currently in flight.
func (it *Interceptor) State() RefreshState {
	return it.coord.State()
}

// RoundTrip implements [http.RoundTripper].
func (it *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	attempt := AttemptFrom(ctx)

	getBody, err := replayable(req)
	if err != nil {
		return nil, err
	}

	token := it.coord.source.AccessToken()
	if attempt == 0 && token != "" && jwt.ExpiresWithin(token, it.cfg.ProactiveWindow, it.cfg.Now()) {
		token, err = it.coord.await(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	out, err := it.prepare(req, getBody, token)
	if err != nil {
		return nil, err
	}
	resp, err := it.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || token == "" {
		return resp, nil
	}
	if attempt > 0 {
		if it.cfg.Observer.OnTerminal != nil {
			it.cfg.Observer.OnTerminal()
		}
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	if _, err := it.coord.await(ctx, token); err != nil {
		return nil, err
	}
	if it.cfg.Observer.OnRetry != nil {
		it.cfg.Observer.OnRetry()
	}

	// The retry keeps the request ID of the first send and picks up the new token
	// when it passes through RoundTrip again.
	retry := out.Clone(WithAttempt(ctx, attempt+1))
	retry.Header.Del("Authorization")
	if getBody != nil {
		if retry.Body, err = getBody(); err != nil {
			return nil, err
		}
		retry.GetBody = getBody
	}
	return it.RoundTrip(retry)
}

func (it *Interceptor) prepare(req *http.Request, getBody func() (io.ReadCloser, error), token string) (*http.Request, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
		out.GetBody = getBody
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(out)
	}
	if !it.cfg.DisableRequestID && out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, uuid.NewString())
	}
	return out, nil
}

// replayable closes req.Body and returns a function producing fresh copies of it,
// or nil when the request has no body.
func replayable(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}
