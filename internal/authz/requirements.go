// Package authz turns route requirements and an actor's roles and permissions
// into an allow or deny decision.
package authz

import (
	"github.com/google/uuid"
)

// Requirement kinds, as reported in denial messages.
const (
	KindAllRoles       = "RequireAllRoles"
	KindAnyRole        = "RequireAnyRole"
	KindAllPermissions = "RequireAllPermissions"
	KindAnyPermission  = "RequireAnyPermission"
)

// Requirements is the requirement set declared for one route. Kinds left empty
// are vacuously satisfied; present kinds are ANDed together.
type Requirements struct {
	// Public routes skip identity resolution entirely
	Public bool

	AllRoles       []string
	AnyRoles       []string
	AllPermissions []string
	AnyPermissions []string
}

// Public marks a route that needs no identity.
func Public() Requirements {
	return Requirements{Public: true}
}

// Authenticated requires an identity and nothing else.
func Authenticated() Requirements {
	return Requirements{}
}

func AllRoles(names ...string) Requirements {
	return Requirements{AllRoles: names}
}

func AnyRole(names ...string) Requirements {
	return Requirements{AnyRoles: names}
}

func AllPermissions(names ...string) Requirements {
	return Requirements{AllPermissions: names}
}

func AnyPermission(names ...string) Requirements {
	return Requirements{AnyPermissions: names}
}

// And merges two requirement sets. The result is public only if both are.
func (r Requirements) And(other Requirements) Requirements {
	return Requirements{
		Public:         r.Public && other.Public,
		AllRoles:       append(append([]string(nil), r.AllRoles...), other.AllRoles...),
		AnyRoles:       append(append([]string(nil), r.AnyRoles...), other.AnyRoles...),
		AllPermissions: append(append([]string(nil), r.AllPermissions...), other.AllPermissions...),
		AnyPermissions: append(append([]string(nil), r.AnyPermissions...), other.AnyPermissions...),
	}
}

// IsEmpty reports whether no requirement kind is present.
func (r Requirements) IsEmpty() bool {
	return len(r.AllRoles) == 0 && len(r.AnyRoles) == 0 &&
		len(r.AllPermissions) == 0 && len(r.AnyPermissions) == 0
}

// Identity is the resolved actor of a request.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// Snapshot holds the active role and permission names of one actor.
type Snapshot struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}
