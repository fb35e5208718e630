package authclient_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	authclient "github.com/eyoklama/authclient"
	"github.com/eyoklama/authclient/guard"
	"github.com/eyoklama/authclient/permission"
	"github.com/eyoklama/authclient/session"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const goodPassword = "dogru-sifre"

func newClient(t *testing.T, fb *fakeBackend, backend session.Backend, hooks authclient.Hooks) *authclient.Client {
	t.Helper()
	c, err := authclient.New().
		WithBaseURL(fb.baseURL()).
		WithBackend(backend).
		WithHooks(hooks).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func loggedIn(t *testing.T, fb *fakeBackend, backend session.Backend, mail string, hooks authclient.Hooks) *authclient.Client {
	t.Helper()
	c := newClient(t, fb, backend, hooks)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := c.Manager().Login(context.Background(), mail, goodPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	return c
}

func counter(c *authclient.Client, id authclient.MetricID) uint64 {
	return c.MetricsSnapshot().Counters[id]
}

func TestLoginPersistsSession(t *testing.T) {
	fb := newFakeBackend(t)
	store := session.NewMemoryBackend()
	c := newClient(t, fb, store, authclient.Hooks{})
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if got := c.Manager().State(); got != authclient.StateUnauthenticated {
		t.Fatalf("state = %v", got)
	}

	sess, err := c.Manager().Login(ctx, "  hoca@okul.edu ", goodPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.AccessToken != "access-1" || sess.RefreshToken != "refresh-1" || sess.User.Role != "ogretmen" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if got := c.Manager().State(); got != authclient.StateAuthenticated {
		t.Fatalf("state = %v", got)
	}
	if role, ok := c.Manager().CurrentRole(); !ok || role != permission.RoleTeacher {
		t.Fatalf("role = %q %v", role, ok)
	}

	for _, slot := range session.AllSlots {
		v, err := store.Get(ctx, slot)
		if err != nil || len(v) == 0 {
			t.Fatalf("slot %s: %q %v", slot, v, err)
		}
	}
}

func TestLoginBeforeInitialize(t *testing.T) {
	fb := newFakeBackend(t)
	c := newClient(t, fb, session.NewMemoryBackend(), authclient.Hooks{})

	_, err := c.Manager().Login(context.Background(), "hoca@okul.edu", goodPassword)
	if !errors.Is(err, authclient.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if fb.logins.Load() != 0 {
		t.Fatal("login must not reach the backend")
	}
}

func TestLoginRejectedLeavesStateUntouched(t *testing.T) {
	fb := newFakeBackend(t)
	store := session.NewMemoryBackend()
	c := newClient(t, fb, store, authclient.Hooks{})
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	_, err := c.Manager().Login(ctx, "hoca@okul.edu", "yanlis")
	if !errors.Is(err, authclient.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var apiErr *authclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Geçersiz e-posta veya şifre" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}

	if c.Manager().State() != authclient.StateUnauthenticated || c.Manager().Session() != nil {
		t.Fatal("rejected login must not create a session")
	}
	if store.Len() != 0 {
		t.Fatalf("store holds %d slots", store.Len())
	}
	if n := counter(c, authclient.MetricLoginFailure); n != 1 {
		t.Fatalf("login failures = %d", n)
	}
}

func TestLoginBackendUnreachable(t *testing.T) {
	fb := newFakeBackend(t)
	c := newClient(t, fb, session.NewMemoryBackend(), authclient.Hooks{})
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	fb.srv.Close()

	_, err := c.Manager().Login(context.Background(), "hoca@okul.edu", goodPassword)
	if !errors.Is(err, authclient.ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}
	if c.Manager().State() != authclient.StateUnauthenticated {
		t.Fatalf("state = %v", c.Manager().State())
	}
}

func TestRestoredSessionRefreshesOnceForConcurrentRequests(t *testing.T) {
	fb := newFakeBackend(t)
	store := session.NewMemoryBackend()
	ctx := context.Background()

	first := loggedIn(t, fb, store, "hoca@okul.edu", authclient.Hooks{})
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	fb.expire()
	gate := fb.gateRefresh()

	c := newClient(t, fb, store, authclient.Hooks{})
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if c.Manager().State() != authclient.StateAuthenticated || c.Manager().AccessToken() != "access-1" {
		t.Fatalf("restored state=%v token=%q", c.Manager().State(), c.Manager().AccessToken())
	}

	const n = 8
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			var courses []map[string]string
			if err := c.Do(ctx, http.MethodGet, "/courses", nil, &courses); err != nil {
				return err
			}
			if len(courses) != 1 {
				return errors.New("unexpected course list")
			}
			return nil
		})
	}

	waitFor(t, "requests to queue behind one refresh", func() bool {
		return counter(c, authclient.MetricRefreshCoalesced) == n-1
	})
	waitFor(t, "refreshing state", func() bool {
		return c.Manager().State() == authclient.StateRefreshing
	})
	close(gate)

	if err := g.Wait(); err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := fb.refreshes.Load(); got != 1 {
		t.Fatalf("refreshes = %d, want 1", got)
	}
	if got := fb.resource.Load(); got != n {
		t.Fatalf("resource hits = %d, want %d", got, n)
	}
	if c.Manager().State() != authclient.StateAuthenticated {
		t.Fatalf("state = %v", c.Manager().State())
	}

	snap := c.MetricsSnapshot()
	if snap.Counters[authclient.MetricRefreshSuccess] != 1 ||
		snap.Counters[authclient.MetricRequestRetried] != n ||
		snap.Counters[authclient.MetricSessionRestored] != 1 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}

	stored, err := store.Get(ctx, session.SlotAccessToken)
	if err != nil || string(stored) != "access-2" {
		t.Fatalf("stored access token %q %v", stored, err)
	}
	if c.Manager().AccessToken() != "access-2" {
		t.Fatalf("access token = %q", c.Manager().AccessToken())
	}
}

func TestRefreshRejectedEndsSession(t *testing.T) {
	fb := newFakeBackend(t)
	store := session.NewMemoryBackend()
	expired := make(chan struct{}, 1)
	c := loggedIn(t, fb, store, "admin@okul.edu", authclient.Hooks{
		OnSessionExpired: func() { expired <- struct{}{} },
	})
	ctx := context.Background()

	fb.expire()
	fb.rejectRefresh()

	err := c.Do(ctx, http.MethodGet, "/courses", nil, nil)
	if !errors.Is(err, authclient.ErrRequestIncomplete) || !errors.Is(err, authclient.ErrSessionExpired) {
		t.Fatalf("expected incomplete request on expired session, got %v", err)
	}

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("OnSessionExpired not called")
	}

	if c.Manager().State() != authclient.StateUnauthenticated || c.Manager().Session() != nil {
		t.Fatal("session must be cleared")
	}
	if store.Len() != 0 {
		t.Fatalf("store holds %d slots", store.Len())
	}
	if fb.resource.Load() != 0 {
		t.Fatal("request must not reach the resource")
	}

	d := guard.ForClient(c).CanAccess(permission.RoleAdmin)
	if d.Outcome != guard.Deny || d.Redirect != "/login" {
		t.Fatalf("unexpected decision %+v", d)
	}

	if counter(c, authclient.MetricRefreshFailure) != 1 || counter(c, authclient.MetricSessionExpired) != 1 {
		t.Fatalf("unexpected counters %v", c.MetricsSnapshot().Counters)
	}
}

func TestRefreshFailureAlwaysEndsSession(t *testing.T) {
	cases := []struct {
		name  string
		fail  func(fb *fakeBackend)
		cause error
	}{
		{
			name:  "rejected",
			fail:  func(fb *fakeBackend) { fb.rejectRefresh() },
			cause: authclient.ErrUnauthorized,
		},
		{
			name: "server error",
			fail: func(fb *fakeBackend) {
				fb.failRefresh(http.StatusInternalServerError, map[string]string{"error": "Sunucu hatası"})
			},
			cause: authclient.ErrNetworkFailure,
		},
		{
			name: "missing access token",
			fail: func(fb *fakeBackend) {
				fb.failRefresh(http.StatusOK, map[string]string{"message": "Token yenilendi"})
			},
			cause: authclient.ErrInvalidResponse,
		},
		{
			name:  "unreachable",
			fail:  func(fb *fakeBackend) { fb.srv.Close() },
			cause: authclient.ErrNetworkFailure,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			store := session.NewMemoryBackend()
			var expired atomic.Int32
			c := loggedIn(t, fb, store, "hoca@okul.edu", authclient.Hooks{
				OnSessionExpired: func() { expired.Add(1) },
			})
			tc.fail(fb)

			token, err := c.Manager().Refresh(context.Background())
			if token != "" {
				t.Fatalf("token = %q", token)
			}
			if !errors.Is(err, authclient.ErrSessionExpired) || !errors.Is(err, tc.cause) {
				t.Fatalf("expected ErrSessionExpired wrapping %v, got %v", tc.cause, err)
			}
			if role, ok := c.Manager().CurrentRole(); ok {
				t.Fatalf("role %q survived a failed refresh", role)
			}
			if store.Len() != 0 {
				t.Fatalf("store holds %d slots", store.Len())
			}
			if expired.Load() != 1 {
				t.Fatalf("OnSessionExpired called %d times", expired.Load())
			}
			if c.Manager().State() != authclient.StateUnauthenticated {
				t.Fatalf("state = %v", c.Manager().State())
			}
		})
	}
}

func TestRefreshBeforeInitializeKeepsStoredSession(t *testing.T) {
	fb := newFakeBackend(t)
	store := session.NewMemoryBackend()
	ctx := context.Background()

	first := loggedIn(t, fb, store, "admin@okul.edu", authclient.Hooks{})
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var expired atomic.Int32
	c := newClient(t, fb, store, authclient.Hooks{OnSessionExpired: func() { expired.Add(1) }})
	if _, err := c.Manager().Refresh(ctx); !errors.Is(err, authclient.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if store.Len() != len(session.AllSlots) {
		t.Fatalf("store holds %d slots, want %d", store.Len(), len(session.AllSlots))
	}
	if fb.refreshes.Load() != 0 || expired.Load() != 0 {
		t.Fatal("refresh before Initialize must not reach the backend or expire the session")
	}

	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if c.Manager().State() != authclient.StateAuthenticated {
		t.Fatalf("state = %v", c.Manager().State())
	}
	if !guard.ForClient(c).IsAdmin() {
		t.Fatal("restored session lost its role")
	}
}

func TestTerminalUnauthorizedKeepsSession(t *testing.T) {
	fb := newFakeBackend(t)
	c := loggedIn(t, fb, session.NewMemoryBackend(), "admin@okul.edu", authclient.Hooks{})

	err := c.Do(context.Background(), http.MethodGet, "/admin/only", nil, nil)
	if !errors.Is(err, authclient.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var apiErr *authclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Token geçersiz" {
		t.Fatalf("unexpected error %v", err)
	}

	if fb.refreshes.Load() != 1 {
		t.Fatalf("refreshes = %d", fb.refreshes.Load())
	}
	if c.Manager().State() != authclient.StateAuthenticated {
		t.Fatalf("state = %v", c.Manager().State())
	}
	if n := counter(c, authclient.MetricRequestTerminal401); n != 1 {
		t.Fatalf("terminal 401s = %d", n)
	}
}

func TestLogoutIsBestEffort(t *testing.T) {
	fb := newFakeBackend(t)
	store := session.NewMemoryBackend()
	c := loggedIn(t, fb, store, "ogrenci@okul.edu", authclient.Hooks{})
	fb.setLogoutStatus(http.StatusInternalServerError)

	if err := c.Manager().Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if fb.logouts.Load() != 1 {
		t.Fatalf("logouts = %d", fb.logouts.Load())
	}
	if c.Manager().State() != authclient.StateUnauthenticated || store.Len() != 0 {
		t.Fatal("logout must clear the session")
	}
	if n := counter(c, authclient.MetricLogoutNotifyFailure); n != 1 {
		t.Fatalf("notify failures = %d", n)
	}

	// Nothing left to notify about.
	if err := c.Manager().Logout(context.Background()); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if fb.logouts.Load() != 1 {
		t.Fatalf("logouts = %d", fb.logouts.Load())
	}
}

func TestLogoutWithUnreachableBackend(t *testing.T) {
	fb := newFakeBackend(t)
	store := session.NewMemoryBackend()
	c := loggedIn(t, fb, store, "ogrenci@okul.edu", authclient.Hooks{})
	fb.srv.Close()

	if err := c.Manager().Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.Manager().Session() != nil || store.Len() != 0 {
		t.Fatal("logout must clear the session")
	}
}

func TestChangePassword(t *testing.T) {
	fb := newFakeBackend(t)
	c := loggedIn(t, fb, session.NewMemoryBackend(), "hoca@okul.edu", authclient.Hooks{})
	ctx := context.Background()

	_, err := c.Manager().ChangePassword(ctx, "yanlis", "yeni-sifre")
	if !errors.Is(err, authclient.ErrPasswordChangeRejected) {
		t.Fatalf("expected ErrPasswordChangeRejected, got %v", err)
	}
	var apiErr *authclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Mevcut şifre yanlış" {
		t.Fatalf("unexpected error %v", err)
	}
	// The 401 looks like an expired token until the retry proves otherwise.
	if fb.refreshes.Load() != 1 {
		t.Fatalf("refreshes = %d", fb.refreshes.Load())
	}
	if c.Manager().State() != authclient.StateAuthenticated {
		t.Fatalf("state = %v", c.Manager().State())
	}

	msg, err := c.Manager().ChangePassword(ctx, goodPassword, "yeni-sifre")
	if err != nil || msg != "Şifre başarıyla değiştirildi" {
		t.Fatalf("change password: %q %v", msg, err)
	}

	_, err = c.Manager().ChangePassword(ctx, "yeni-sifre", "x")
	if !errors.Is(err, authclient.ErrPasswordChangeRejected) {
		t.Fatalf("expected ErrPasswordChangeRejected, got %v", err)
	}
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestChangePasswordRequiresSession(t *testing.T) {
	fb := newFakeBackend(t)
	c := newClient(t, fb, session.NewMemoryBackend(), authclient.Hooks{})
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	_, err := c.Manager().ChangePassword(context.Background(), goodPassword, "yeni-sifre")
	if !errors.Is(err, authclient.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	fb := newFakeBackend(t)
	c := loggedIn(t, fb, session.NewMemoryBackend(), "hoca@okul.edu", authclient.Hooks{})

	v, err := c.Manager().Verify(context.Background())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !v.Valid || v.Claims.UserID != "64b7f0c2a1" || v.Claims.Subject != "hoca@okul.edu" {
		t.Fatalf("unexpected verification %+v", v)
	}
	exp, ok := v.Claims.Expiry()
	if !ok || exp.UTC().Year() != 2100 {
		t.Fatalf("expiry = %v %v", exp, ok)
	}
}

func TestInitializePurgesPartialSession(t *testing.T) {
	fb := newFakeBackend(t)
	store := session.NewMemoryBackend()
	ctx := context.Background()
	if err := store.Set(ctx, session.SlotAccessToken, []byte("access-9")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := newClient(t, fb, store, authclient.Hooks{})
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if c.Manager().State() != authclient.StateUnauthenticated || store.Len() != 0 {
		t.Fatal("partial session must be purged")
	}
	if n := counter(c, authclient.MetricSessionPurged); n != 1 {
		t.Fatalf("purges = %d", n)
	}
	if d := guard.ForClient(c).CanAccess(permission.RoleStudent); d.Redirect != "/login" {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestStateChangeHook(t *testing.T) {
	fb := newFakeBackend(t)

	var (
		mu    sync.Mutex
		trail []string
	)
	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), trail...)
	}
	hooks := authclient.Hooks{OnStateChange: func(from, to authclient.State) {
		mu.Lock()
		trail = append(trail, from.String()+">"+to.String())
		mu.Unlock()
	}}
	c := loggedIn(t, fb, session.NewMemoryBackend(), "hoca@okul.edu", hooks)
	fb.expire()
	if err := c.Do(context.Background(), http.MethodGet, "/courses", nil, nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	// Refresh hooks run once the refresh has settled.
	waitFor(t, "refresh hooks", func() bool { return len(snapshot()) == 4 })
	if err := c.Manager().Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	want := []string{
		"initializing>unauthenticated",
		"unauthenticated>authenticated",
		"authenticated>refreshing",
		"refreshing>authenticated",
		"authenticated>unauthenticated",
	}
	if got := snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("trail = %v, want %v", got, want)
	}
}

func TestHookMaySendRequestsDuringRefresh(t *testing.T) {
	fb := newFakeBackend(t)

	var (
		client  atomic.Pointer[authclient.Client]
		once    sync.Once
		hookErr = make(chan error, 1)
	)
	hooks := authclient.Hooks{OnStateChange: func(_, to authclient.State) {
		if to != authclient.StateRefreshing {
			return
		}
		once.Do(func() {
			hookErr <- client.Load().Do(context.Background(), http.MethodGet, "/courses", nil, nil)
		})
	}}
	c := loggedIn(t, fb, session.NewMemoryBackend(), "hoca@okul.edu", hooks)
	client.Store(c)
	fb.expire()

	done := make(chan error, 1)
	go func() { done <- c.Do(context.Background(), http.MethodGet, "/courses", nil, nil) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("do: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("request stuck behind the refresh running its hook")
	}
	select {
	case err := <-hookErr:
		if err != nil {
			t.Fatalf("request from hook: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("hook never ran")
	}
	if got := fb.refreshes.Load(); got != 1 {
		t.Fatalf("refreshes = %d, want 1", got)
	}
	if got := fb.resource.Load(); got != 2 {
		t.Fatalf("resource hits = %d, want 2", got)
	}
}

func TestAuditEvents(t *testing.T) {
	fb := newFakeBackend(t)
	sink := authclient.NewChannelSink(16)
	c, err := authclient.New().
		WithBaseURL(fb.baseURL()).
		WithBackend(session.NewMemoryBackend()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := c.Manager().Login(ctx, "hoca@okul.edu", "yanlis"); err == nil {
		t.Fatal("expected rejected login")
	}
	if _, err := c.Manager().Login(ctx, "hoca@okul.edu", goodPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := c.Manager().Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []authclient.AuditEvent
	for len(sink.Events()) > 0 {
		got = append(got, <-sink.Events())
	}
	if len(got) != 3 {
		t.Fatalf("events = %d, want 3", len(got))
	}

	if got[0].EventType != "login_failure" || got[0].Error != "invalid_credentials" {
		t.Fatalf("unexpected first event %+v", got[0])
	}
	if got[1].EventType != "login_success" || got[1].UserID != "64b7f0c2a1" || got[1].Metadata["role"] != "ogretmen" {
		t.Fatalf("unexpected second event %+v", got[1])
	}
	if got[2].EventType != "logout" || got[2].Metadata["notified"] != "true" {
		t.Fatalf("unexpected third event %+v", got[2])
	}
	for _, e := range got {
		if e.ID == "" || e.Namespace != "eyoklama" {
			t.Fatalf("event missing id or namespace: %+v", e)
		}
	}
}

func TestClosedClient(t *testing.T) {
	fb := newFakeBackend(t)
	c := newClient(t, fb, session.NewMemoryBackend(), authclient.Hooks{})
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if err := c.Initialize(context.Background()); !errors.Is(err, authclient.ErrClientClosed) {
		t.Fatalf("initialize: expected ErrClientClosed, got %v", err)
	}
	if err := c.Do(context.Background(), http.MethodGet, "/courses", nil, nil); !errors.Is(err, authclient.ErrClientClosed) {
		t.Fatalf("do: expected ErrClientClosed, got %v", err)
	}
}

func TestConfiguredStorageSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cases := []struct {
		name  string
		redis bool
		setup func(t *testing.T, cfg *authclient.Config)
	}{
		{name: "file", setup: func(t *testing.T, cfg *authclient.Config) {
			cfg.Storage.Backend = authclient.StorageFile
			cfg.Storage.Dir = t.TempDir()
		}},
		{name: "sqlite", setup: func(t *testing.T, cfg *authclient.Config) {
			cfg.Storage.Backend = authclient.StorageSQLite
			cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "session.db")
		}},
		{name: "redis", redis: true, setup: func(_ *testing.T, cfg *authclient.Config) {
			cfg.Storage.Backend = authclient.StorageRedis
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			cfg := authclient.DefaultConfig()
			cfg.API.BaseURL = fb.baseURL()
			cfg.Storage.Namespace = "restart-" + tc.name
			tc.setup(t, &cfg)

			build := func() *authclient.Client {
				b := authclient.New().WithConfig(cfg)
				if tc.redis {
					b.WithRedis(rdb)
				}
				client, err := b.Build()
				if err != nil {
					t.Fatalf("build: %v", err)
				}
				t.Cleanup(func() { _ = client.Close() })
				return client
			}

			ctx := context.Background()
			first := build()
			if err := first.Initialize(ctx); err != nil {
				t.Fatalf("initialize: %v", err)
			}
			if _, err := first.Manager().Login(ctx, "admin@okul.edu", goodPassword); err != nil {
				t.Fatalf("login: %v", err)
			}
			if err := first.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}

			second := build()
			if err := second.Initialize(ctx); err != nil {
				t.Fatalf("initialize after restart: %v", err)
			}
			if second.Manager().State() != authclient.StateAuthenticated {
				t.Fatalf("state = %v", second.Manager().State())
			}
			g := guard.ForClient(second)
			if !g.IsAdmin() || g.HomeFor() != "/admin" {
				t.Fatalf("restored guard: admin=%v home=%q", g.IsAdmin(), g.HomeFor())
			}
		})
	}
}

func TestSealedStorage(t *testing.T) {
	fb := newFakeBackend(t)
	raw := session.NewMemoryBackend()
	cfg := authclient.DefaultConfig()
	cfg.API.BaseURL = fb.baseURL()
	cfg.Storage.Backend = authclient.StorageMemory
	cfg.Storage.Passphrase = "correct horse battery"
	cfg.Storage.Seal = authclient.SealConfig{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1}

	c, err := authclient.New().WithConfig(cfg).WithBackend(raw).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := c.Manager().Login(ctx, "hoca@okul.edu", goodPassword); err != nil {
		t.Fatalf("login: %v", err)
	}

	for _, slot := range session.AllSlots {
		v, err := raw.Get(ctx, slot)
		if err != nil {
			t.Fatalf("slot %s: %v", slot, err)
		}
		if bytes.Contains(v, []byte("access-1")) || bytes.Contains(v, []byte("hoca@okul.edu")) {
			t.Fatalf("slot %s stored in plaintext", slot)
		}
	}

	restored, err := authclient.New().WithConfig(cfg).WithBackend(raw).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = restored.Close() })
	if err := restored.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if restored.Manager().AccessToken() != "access-1" {
		t.Fatalf("restored token = %q", restored.Manager().AccessToken())
	}
}
