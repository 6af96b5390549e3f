package model

import "time"

// Role names understood by the access-control layer. Any identity holding
// neither role still has the unprivileged public capability: read queries and
// verification require no grant at all.
const (
	RoleAdmin       = "admin"
	RoleInstitution = "institution"
)

// ValidRoles is the flat set of grantable roles.
var ValidRoles = map[string]bool{
	RoleAdmin:       true,
	RoleInstitution: true,
}

// RoleGrant records one role membership. Stored under a composite key of
// (role, identity); existence of the key is what HasRole answers.
type RoleGrant struct {
	ObjectType string    `json:"objectType"` // "RoleGrant"
	Role       string    `json:"role"`
	Identity   string    `json:"identity"`
	GrantedBy  string    `json:"grantedBy"`
	GrantedAt  time.Time `json:"grantedAt"`
}
