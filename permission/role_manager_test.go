package permission

import (
	"errors"
	"testing"
)

func TestDefaultAliasTable(t *testing.T) {
	cases := []struct {
		required Role
		stored   string
		want     bool
	}{
		{RoleAdmin, "admin", true},
		{RoleAdmin, "teacher", false},
		{RoleAdmin, "Admin", false},
		{RoleTeacher, "teacher", true},
		{RoleTeacher, "ogretmen", true},
		{RoleTeacher, "ogrenci", false},
		{RoleStudent, "student", true},
		{RoleStudent, "ogrenci", true},
		{RoleStudent, "admin", false},
		{RoleStudent, "", false},
		{Role("superuser"), "superuser", false},
	}
	for _, tc := range cases {
		if got := Accepts(tc.required, tc.stored); got != tc.want {
			t.Fatalf("Accepts(%q, %q) = %v, want %v", tc.required, tc.stored, got, tc.want)
		}
	}
}

func TestNormalizeAliases(t *testing.T) {
	role, ok := Normalize("ogretmen")
	if !ok || role != RoleTeacher {
		t.Fatalf("expected teacher, got %q ok=%v", role, ok)
	}
	if _, ok := Normalize("unknown"); ok {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("ogrenci")
	if err != nil || role != RoleStudent {
		t.Fatalf("expected student, got %q err=%v", role, err)
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRoleManagerFrozen(t *testing.T) {
	if err := Default().RegisterRole("auditor"); err == nil {
		t.Fatal("expected frozen default manager to reject registration")
	}
	if Default().Count() != 3 {
		t.Fatalf("expected 3 canonical roles, got %d", Default().Count())
	}
}

func TestRoleManagerRejectsDuplicates(t *testing.T) {
	rm := NewRoleManager()
	if err := rm.RegisterRole(RoleTeacher, "ogretmen"); err != nil {
		t.Fatalf("register teacher: %v", err)
	}
	if err := rm.RegisterRole(RoleTeacher); err == nil {
		t.Fatal("expected duplicate role error")
	}
	if err := rm.RegisterRole(RoleStudent, "ogretmen"); err == nil {
		t.Fatal("expected duplicate alias error")
	}
	if err := rm.RegisterRole(Role("ogretmen")); err == nil {
		t.Fatal("expected alias collision error")
	}
	if err := rm.RegisterRole(RoleStudent, ""); err == nil {
		t.Fatal("expected empty alias error")
	}
}

func TestNilManagerNormalize(t *testing.T) {
	var rm *RoleManager
	if _, ok := rm.Normalize("admin"); ok {
		t.Fatal("nil manager must not normalize")
	}
}
