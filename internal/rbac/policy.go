// Package rbac resolves what a role may do from a single policy table
// instead of role-string comparisons in handlers.
package rbac

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/jmehdipour/agenthub/internal/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Capabilities, written "object:action".
const (
	LibraryView         = "library:view"
	LibraryTrack        = "library:track"
	LibraryRecommend    = "library:recommend"
	PresenceRead        = "presence:read"
	PresentationWatch   = "presentation:watch"
	PresentationPresent = "presentation:present"
	ReportsRead         = "reports:read"
)

type Policy struct {
	e *casbin.SyncedEnforcer
}

// NewPolicy loads the embedded role table.
func NewPolicy() (*Policy, error) {
	m, err := casbinmodel.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if err := loadPolicy(e, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Policy{e: e}, nil
}

func loadPolicy(e *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		var err error
		switch {
		case parts[0] == "p" && len(parts) == 4:
			_, err = e.AddPolicy(parts[1], parts[2], parts[3])
		case parts[0] == "g" && len(parts) == 3:
			_, err = e.AddGroupingPolicy(parts[1], parts[2])
		default:
			err = fmt.Errorf("unrecognised rule")
		}
		if err != nil {
			return fmt.Errorf("policy line %q: %w", line, err)
		}
	}
	return nil
}

// Can reports whether role holds capability. Unknown roles and malformed
// capabilities are denied.
func (p *Policy) Can(role model.Role, capability string) bool {
	if !role.Valid() {
		return false
	}
	obj, act, ok := strings.Cut(capability, ":")
	if !ok {
		return false
	}
	allowed, err := p.e.Enforce(role.String(), obj, act)
	return err == nil && allowed
}
