package guard

import (
	"context"
	"net/http"

	"github.com/eyoklama/authclient/permission"
)

type decisionContextKey struct{}

// DecisionFromContext returns the Decision that admitted the request.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}

// Require admits requests whose session holds role. Pending answers 503 with
// Retry-After so the caller can show a loading state; Deny redirects with 303.
func Require(g *Guard, role permission.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.CanAccess(role)
			switch d.Outcome {
			case Allowed:
				ctx := context.WithValue(r.Context(), decisionContextKey{}, d)
				next.ServeHTTP(w, r.WithContext(ctx))
			case Pending:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session loading", http.StatusServiceUnavailable)
			default:
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
			}
		})
	}
}

// HomeHandler redirects to the landing path for the current role.
func HomeHandler(g *Guard) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		home := g.HomeFor()
		if home == "" {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "session loading", http.StatusServiceUnavailable)
			return
		}
		http.Redirect(w, r, home, http.StatusSeeOther)
	})
}
