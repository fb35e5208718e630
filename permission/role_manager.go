package permission

import (
	"errors"
	"sync"
)

// RoleManager maps stored role values, including legacy aliases, to canonical roles.
//
// RoleManager instances are configured during initialization and frozen before use.
type RoleManager struct {
	mu        sync.RWMutex
	names     map[string]Role
	canonical map[Role]struct{}
	frozen    bool
}

// NewRoleManager returns an empty, unfrozen manager.
func NewRoleManager() *RoleManager {
	return &RoleManager{
		names:     make(map[string]Role),
		canonical: make(map[Role]struct{}),
	}
}

// RegisterRole adds a canonical role and the legacy names accepted for it.
func (rm *RoleManager) RegisterRole(role Role, aliases ...string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if role == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.canonical[role]; exists {
		return errors.New("role already registered")
	}
	if _, taken := rm.names[string(role)]; taken {
		return errors.New("role name already used as alias")
	}
	for _, alias := range aliases {
		if alias == "" {
			return errors.New("alias empty")
		}
		if _, taken := rm.names[alias]; taken {
			return errors.New("alias already registered: " + alias)
		}
	}

	rm.canonical[role] = struct{}{}
	rm.names[string(role)] = role
	for _, alias := range aliases {
		rm.names[alias] = role
	}
	return nil
}

/*
====================================
NORMALIZE
====================================
*/

// Normalize returns the canonical role for a stored value. Matching is exact.
func (rm *RoleManager) Normalize(stored string) (Role, bool) {
	if rm == nil || stored == "" {
		return "", false
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	role, ok := rm.names[stored]
	return role, ok
}

// Accepts reports whether stored normalizes to the same canonical role as required.
// Unknown values on either side never match.
func (rm *RoleManager) Accepts(required Role, stored string) bool {
	want, ok := rm.Normalize(string(required))
	if !ok {
		return false
	}
	have, ok := rm.Normalize(stored)
	if !ok {
		return false
	}
	return want == have
}

/*
====================================
FREEZE
====================================
*/

// Freeze rejects further registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of canonical roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.canonical)
}
