// Package authz centralizes role and ownership decisions. Role names match
// the values stored in the users table and in the JWT role claim. Row-level
// checks go through the predicates below instead of ad hoc id comparisons in
// each handler, so the rules live in exactly one place.
package authz

// Role values. Registration defaults to RoleTenant; RoleAdmin is only ever
// assigned out of band.
const (
	RoleAdmin    = "ADMIN"
	RoleOwner    = "OWNER"
	RoleTenant   = "TENANT"
	RoleProvider = "PROVIDER"
)

// Identity is the authenticated principal attached to the request context by
// the JWT middleware.
type Identity struct {
	ID    uint64
	Email string
	Role  string
}

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	switch s {
	case RoleAdmin, RoleOwner, RoleTenant, RoleProvider:
		return true
	}
	return false
}

// IsAdmin reports whether the identity carries the administrator role.
func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

// Owns reports whether the identity is the owner of a resource, given the
// resource's owner id.
func (id Identity) Owns(ownerID uint64) bool { return id.ID != 0 && id.ID == ownerID }

// CanModify is the generic row-level predicate: admins may modify anything,
// everyone else only what they own.
func CanModify(id Identity, ownerID uint64) bool {
	return id.IsAdmin() || id.Owns(ownerID)
}

// RequestParties names the users attached to a maintenance request that
// authorization cares about. ProviderID is zero while unassigned.
type RequestParties struct {
	RequesterID     uint64
	PropertyOwnerID uint64
	ProviderID      uint64
}

// CanViewRequest: the requester, the property owner, the assigned provider
// and admins may read a request.
func CanViewRequest(id Identity, p RequestParties) bool {
	return id.IsAdmin() || id.Owns(p.RequesterID) || id.Owns(p.PropertyOwnerID) ||
		(p.ProviderID != 0 && id.Owns(p.ProviderID))
}

// CanUpdateRequestStatus: admins, the property owner and the assigned
// provider may move a request through its lifecycle. The requester may not;
// they cancel by deleting a pending request instead.
func CanUpdateRequestStatus(id Identity, p RequestParties) bool {
	return id.IsAdmin() || id.Owns(p.PropertyOwnerID) ||
		(p.ProviderID != 0 && id.Owns(p.ProviderID))
}

// CanAssignProvider: only admins and the property owner schedule providers.
func CanAssignProvider(id Identity, p RequestParties) bool {
	return id.IsAdmin() || id.Owns(p.PropertyOwnerID)
}

// CanDeleteRequest: the requester, the property owner and admins may delete;
// the handler additionally restricts deletion to pending requests.
func CanDeleteRequest(id Identity, p RequestParties) bool {
	return id.IsAdmin() || id.Owns(p.RequesterID) || id.Owns(p.PropertyOwnerID)
}
