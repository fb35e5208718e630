package guard

import (
	authclient "github.com/eyoklama/authclient"
	"github.com/eyoklama/authclient/permission"
)

// Session is the session state the guard reads. *authclient.Manager satisfies it.
type Session interface {
	Initialized() bool
	CurrentRole() (permission.Role, bool)
}

// Outcome is the kind of a Decision.
type Outcome int

const (
	Allowed Outcome = iota
	Pending
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Pending:
		return "pending"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Decision is the guard's answer for one required role.
type Decision struct {
	Outcome Outcome
	// Redirect is set on Deny: the login path or the unauthorized path.
	Redirect string
	// Role is the session's canonical role when there is one.
	Role permission.Role
}

// Err returns nil when allowed, [authclient.ErrForbidden] on a role mismatch,
// and [authclient.ErrNotAuthenticated] otherwise.
func (d Decision) Err() error {
	switch {
	case d.Outcome == Allowed:
		return nil
	case d.Outcome == Deny && d.Role != "":
		return authclient.ErrForbidden
	case d.Outcome == Pending:
		return authclient.ErrNotInitialized
	default:
		return authclient.ErrNotAuthenticated
	}
}

// Routes are the redirect targets and per-role landing paths.
type Routes struct {
	Login        string
	Unauthorized string
	Home         map[permission.Role]string
}

// RoutesFrom converts the client's route configuration.
func RoutesFrom(cfg authclient.RoutesConfig) Routes {
	return Routes{
		Login:        cfg.LoginPath,
		Unauthorized: cfg.UnauthorizedPath,
		Home: map[permission.Role]string{
			permission.RoleAdmin:   cfg.AdminHome,
			permission.RoleTeacher: cfg.TeacherHome,
			permission.RoleStudent: cfg.StudentHome,
		},
	}
}

// Guard evaluates role requirements against a Session.
type Guard struct {
	session Session
	routes  Routes
}

// New returns a Guard over s. Empty route fields fall back to the defaults.
func New(s Session, routes Routes) *Guard {
	def := RoutesFrom(authclient.DefaultConfig().Routes)
	if routes.Login == "" {
		routes.Login = def.Login
	}
	if routes.Unauthorized == "" {
		routes.Unauthorized = def.Unauthorized
	}
	if routes.Home == nil {
		routes.Home = def.Home
	}
	return &Guard{session: s, routes: routes}
}

// ForClient builds a Guard over the client's Manager using its configured routes.
func ForClient(c *authclient.Client) *Guard {
	return New(c.Manager(), RoutesFrom(c.Config().Routes))
}

// CanAccess decides whether the session may see a view requiring role. required
// may be a legacy alias ("ogretmen"); an unknown required role admits nobody. An
// empty required role admits any authenticated session.
func (g *Guard) CanAccess(required permission.Role) Decision {
	if g == nil || g.session == nil {
		return Decision{Outcome: Deny, Redirect: "/login"}
	}
	if !g.session.Initialized() {
		return Decision{Outcome: Pending}
	}

	role, ok := g.session.CurrentRole()
	if !ok {
		return Decision{Outcome: Deny, Redirect: g.routes.Login}
	}
	if required != "" {
		if want, known := permission.Normalize(string(required)); !known || role != want {
			return Decision{Outcome: Deny, Redirect: g.routes.Unauthorized, Role: role}
		}
	}
	return Decision{Outcome: Allowed, Role: role}
}

// CanAccessAny allows the session when its role is any of roles.
func (g *Guard) CanAccessAny(roles ...permission.Role) Decision {
	var last Decision
	for _, r := range roles {
		last = g.CanAccess(r)
		if last.Outcome != Deny || last.Redirect == g.routes.Login {
			return last
		}
	}
	if len(roles) == 0 {
		return g.CanAccess("")
	}
	return last
}

// HomeFor returns the landing path for the session's role: the login path
// without a session and "" while Pending.
func (g *Guard) HomeFor() string {
	d := g.CanAccess("")
	switch d.Outcome {
	case Pending:
		return ""
	case Allowed:
		if home, ok := g.routes.Home[d.Role]; ok && home != "" {
			return home
		}
		return g.routes.Unauthorized
	default:
		return d.Redirect
	}
}

func (g *Guard) IsAdmin() bool   { return g.CanAccess(permission.RoleAdmin).Outcome == Allowed }
func (g *Guard) IsTeacher() bool { return g.CanAccess(permission.RoleTeacher).Outcome == Allowed }
func (g *Guard) IsStudent() bool { return g.CanAccess(permission.RoleStudent).Outcome == Allowed }
