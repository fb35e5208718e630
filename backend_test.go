package authclient_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend imitates the attendance API's auth routes and one protected
// resource. Access tokens are opaque "access-N" strings; only the latest one
// is accepted.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu             sync.Mutex
	access         string
	refresh        string
	seq            int
	refreshFail    *cannedReply
	refreshGate    chan struct{}
	logoutStatus   int
	password       string

	logins    atomic.Int32
	refreshes atomic.Int32
	logouts   atomic.Int32
	resource  atomic.Int32
	unauthz   atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		t:            t,
		refresh:      "refresh-1",
		logoutStatus: http.StatusOK,
		password:     "dogru-sifre",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", fb.login)
	mux.HandleFunc("POST /api/auth/refresh-token", fb.refreshToken)
	mux.HandleFunc("POST /api/auth/logout", fb.logout)
	mux.HandleFunc("POST /api/auth/change-password", fb.authorized(fb.changePassword))
	mux.HandleFunc("GET /api/auth/verify-token", fb.authorized(fb.verify))
	mux.HandleFunc("GET /api/courses", fb.authorized(fb.courses))
	mux.HandleFunc("GET /api/admin/only", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token geçersiz"})
	})

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) baseURL() string {
	return fb.srv.URL + "/api"
}

// expire invalidates the current access token server-side.
func (fb *fakeBackend) expire() {
	fb.mu.Lock()
	fb.access = "revoked"
	fb.mu.Unlock()
}

// cannedReply replaces the normal answer of a route.
type cannedReply struct {
	status int
	body   any
}

func (fb *fakeBackend) rejectRefresh() {
	fb.failRefresh(http.StatusUnauthorized, map[string]string{"error": "Geçersiz refresh token"})
}

// failRefresh makes every refresh answer status with body.
func (fb *fakeBackend) failRefresh(status int, body any) {
	fb.mu.Lock()
	fb.refreshFail = &cannedReply{status: status, body: body}
	fb.mu.Unlock()
}

func (fb *fakeBackend) gateRefresh() chan struct{} {
	gate := make(chan struct{})
	fb.mu.Lock()
	fb.refreshGate = gate
	fb.mu.Unlock()
	return gate
}

func (fb *fakeBackend) setLogoutStatus(code int) {
	fb.mu.Lock()
	fb.logoutStatus = code
	fb.mu.Unlock()
}

func (fb *fakeBackend) nextAccessLocked() string {
	fb.seq++
	fb.access = fmt.Sprintf("access-%d", fb.seq)
	return fb.access
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (fb *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	fb.logins.Add(1)
	var in struct {
		Mail  string `json:"mail"`
		Sifre string `json:"sifre"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Mail == "" || in.Sifre == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "E-posta ve şifre gerekli"})
		return
	}

	role := ""
	switch in.Mail {
	case "admin@okul.edu":
		role = "admin"
	case "hoca@okul.edu":
		role = "ogretmen"
	case "ogrenci@okul.edu":
		role = "ogrenci"
	}

	fb.mu.Lock()
	ok := role != "" && in.Sifre == fb.password
	var access string
	if ok {
		access = fb.nextAccessLocked()
	}
	fb.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Geçersiz e-posta veya şifre"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Giriş başarılı",
		"access_token":  access,
		"refresh_token": fb.refresh,
		"user": map[string]any{
			"id":    "64b7f0c2a1",
			"mail":  in.Mail,
			"role":  role,
			"ad":    "Ayşe",
			"soyad": "Yılmaz",
		},
	})
}

func (fb *fakeBackend) refreshToken(w http.ResponseWriter, r *http.Request) {
	fb.refreshes.Add(1)
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	fb.mu.Lock()
	gate := fb.refreshGate
	fb.mu.Unlock()
	if gate != nil {
		<-gate
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.refreshFail != nil {
		writeJSON(w, fb.refreshFail.status, fb.refreshFail.body)
		return
	}
	if in.RefreshToken != fb.refresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Geçersiz refresh token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": fb.nextAccessLocked()})
}

func (fb *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	fb.logouts.Add(1)
	fb.mu.Lock()
	status := fb.logoutStatus
	fb.mu.Unlock()
	writeJSON(w, status, map[string]string{"message": "Çıkış başarılı"})
}

func (fb *fakeBackend) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		want := "Bearer " + fb.access
		fb.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			fb.unauthz.Add(1)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token süresi dolmuş"})
			return
		}
		next(w, r)
	}
}

func (fb *fakeBackend) changePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if in.Current != fb.password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Mevcut şifre yanlış"})
		return
	}
	if len(strings.TrimSpace(in.New)) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Yeni şifre en az 6 karakter olmalı"})
		return
	}
	fb.password = in.New
	writeJSON(w, http.StatusOK, map[string]string{"message": "Şifre başarıyla değiştirildi"})
}

func (fb *fakeBackend) verify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user": map[string]any{
			"user_id":    "64b7f0c2a1",
			"role":       "ogretmen",
			"token_type": "access",
			"sub":        "hoca@okul.edu",
			"exp":        4102444800,
		},
	})
}

func (fb *fakeBackend) courses(w http.ResponseWriter, r *http.Request) {
	fb.resource.Add(1)
	writeJSON(w, http.StatusOK, []map[string]string{{"kod": "BLM101", "ad": "Programlama"}})
}

// waitFor polls cond until it holds or five seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
