package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// The default three-agent table.
const (
	RoleDoer    = "doer"
	RoleCritic  = "critic"
	RoleArbiter = "arbiter"
)

// DefaultRoleNames lists the built-in roles in protocol order.
var DefaultRoleNames = []string{RoleDoer, RoleCritic, RoleArbiter}

// Role describes an agent's capabilities at the table.
type Role struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description"`
	CanPlan     bool    `json:"can_plan"`
	CanCritique bool    `json:"can_critique"`
	CanDecide   bool    `json:"can_decide"`
	CanVote     bool    `json:"can_vote"`
	TrustWeight float64 `json:"trust_weight"`
	Tags        []string
}

func defaultRoles() map[string]Role {
	return map[string]Role{
		RoleDoer: {
			Name:        RoleDoer,
			DisplayName: "Doer",
			Description: "Implements tasks, writes code, and executes changes.",
			CanPlan:     true,
			CanVote:     true,
			TrustWeight: 0.8,
			Tags:        []string{"implementation", "execution"},
		},
		RoleCritic: {
			Name:        RoleCritic,
			DisplayName: "Critic",
			Description: "Reviews plans and code, provides constructive critique.",
			CanCritique: true,
			CanVote:     true,
			TrustWeight: 0.9,
			Tags:        []string{"review", "quality"},
		},
		RoleArbiter: {
			Name:        RoleArbiter,
			DisplayName: "Arbiter",
			Description: "Makes final decisions and resolves disputes.",
			CanDecide:   true,
			CanVote:     true,
			TrustWeight: 1.0,
			Tags:        []string{"decision", "authority"},
		},
	}
}

// Registry holds all roles known to a table. The three default roles are
// always present; custom roles can be added for larger tables.
type Registry struct {
	roles map[string]Role
}

// NewRegistry creates a registry pre-populated with the default roles.
func NewRegistry() *Registry {
	return &Registry{roles: defaultRoles()}
}

// Register adds or replaces a role. Roles without a display name get one
// derived from their name.
func (r *Registry) Register(role Role) {
	if role.DisplayName == "" {
		role.DisplayName = strings.ToUpper(role.Name[:1]) + role.Name[1:]
	}
	r.roles[role.Name] = role
}

// Get returns the role and whether it exists.
func (r *Registry) Get(name string) (Role, bool) {
	role, ok := r.roles[name]
	return role, ok
}

// MustGet returns the role or an error listing the available names.
func (r *Registry) MustGet(name string) (Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return Role{}, fmt.Errorf("protocol: unknown role %q (available: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	return role, nil
}

// Has reports whether a role is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.roles[name]
	return ok
}

// Remove deletes a custom role. Default roles cannot be removed.
func (r *Registry) Remove(name string) (bool, error) {
	for _, d := range DefaultRoleNames {
		if name == d {
			return false, fmt.Errorf("protocol: cannot remove default role %q", name)
		}
	}
	_, ok := r.roles[name]
	delete(r.roles, name)
	return ok, nil
}

// Names returns all registered role names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.roles))
	for name := range r.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered roles.
func (r *Registry) All() []Role {
	roles := make([]Role, 0, len(r.roles))
	for _, name := range r.Names() {
		roles = append(roles, r.roles[name])
	}
	return roles
}

// Len returns the number of registered roles.
func (r *Registry) Len() int {
	return len(r.roles)
}
