package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleAgent      Role = "AGENT"
)

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleAgent:
		return true
	}
	return false
}

// ParseRole normalizes input; empty => AGENT.
// Returns (value, true) if valid; otherwise (AGENT, false).
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r == "" {
		return RoleAgent, true
	}
	if !r.Valid() {
		return RoleAgent, false
	}
	return r, true
}

type User struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	Username  string    `db:"username"`
	Name      string    `db:"name"`
	Role      Role      `db:"role"`
	APIKey    string    `db:"api_key"`
	Disabled  bool      `db:"disabled"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
