package permission

import "errors"

// Role is a canonical application role.
type Role string

const (
	// RoleAdmin manages users, courses and face data.
	RoleAdmin Role = "admin"
	// RoleTeacher runs attendance for owned courses.
	RoleTeacher Role = "teacher"
	// RoleStudent views own attendance.
	RoleStudent Role = "student"
)

// ErrUnknownRole is returned when a role name does not map to a canonical role.
var ErrUnknownRole = errors.New("unknown role")

var defaultManager = newDefaultManager()

func newDefaultManager() *RoleManager {
	rm := NewRoleManager()
	_ = rm.RegisterRole(RoleAdmin)
	_ = rm.RegisterRole(RoleTeacher, "ogretmen")
	_ = rm.RegisterRole(RoleStudent, "ogrenci")
	rm.Freeze()
	return rm
}

// Default returns the frozen process-wide role table.
func Default() *RoleManager {
	return defaultManager
}

// Normalize maps a stored role value to its canonical role using the default table.
func Normalize(stored string) (Role, bool) {
	return defaultManager.Normalize(stored)
}

// ParseRole is Normalize with an error for unknown names. It is meant for user input
// such as CLI flags.
func ParseRole(name string) (Role, error) {
	role, ok := defaultManager.Normalize(name)
	if !ok {
		return "", ErrUnknownRole
	}
	return role, nil
}

// Accepts reports whether a stored role value satisfies required under the default table.
func Accepts(required Role, stored string) bool {
	return defaultManager.Accepts(required, stored)
}

// Canonical lists the canonical roles in a stable order.
func Canonical() []Role {
	return []Role{RoleAdmin, RoleTeacher, RoleStudent}
}

func (r Role) String() string {
	return string(r)
}
