package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleOwner))
	assert.True(t, ValidRole(RoleTenant))
	assert.True(t, ValidRole(RoleProvider))
	assert.False(t, ValidRole("owner"))
	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("SUPERUSER"))
}

func TestCanModify(t *testing.T) {
	admin := Identity{ID: 1, Role: RoleAdmin}
	owner := Identity{ID: 7, Role: RoleOwner}

	assert.True(t, CanModify(admin, 99), "admin modifies anything")
	assert.True(t, CanModify(owner, 7), "owner modifies own rows")
	assert.False(t, CanModify(owner, 8), "owner cannot touch other rows")
	assert.False(t, CanModify(Identity{}, 0), "zero identity owns nothing")
}

func TestRequestPredicates(t *testing.T) {
	p := RequestParties{RequesterID: 10, PropertyOwnerID: 20, ProviderID: 30}
	unassigned := RequestParties{RequesterID: 10, PropertyOwnerID: 20}

	admin := Identity{ID: 1, Role: RoleAdmin}
	requester := Identity{ID: 10, Role: RoleTenant}
	propOwner := Identity{ID: 20, Role: RoleOwner}
	provider := Identity{ID: 30, Role: RoleProvider}
	stranger := Identity{ID: 99, Role: RoleTenant}

	tests := []struct {
		name string
		fn   func(Identity, RequestParties) bool
		want map[*Identity]bool
	}{
		{
			name: "view",
			fn:   CanViewRequest,
			want: map[*Identity]bool{&admin: true, &requester: true, &propOwner: true, &provider: true, &stranger: false},
		},
		{
			name: "update status",
			fn:   CanUpdateRequestStatus,
			want: map[*Identity]bool{&admin: true, &requester: false, &propOwner: true, &provider: true, &stranger: false},
		},
		{
			name: "assign provider",
			fn:   CanAssignProvider,
			want: map[*Identity]bool{&admin: true, &requester: false, &propOwner: true, &provider: false, &stranger: false},
		},
		{
			name: "delete",
			fn:   CanDeleteRequest,
			want: map[*Identity]bool{&admin: true, &requester: true, &propOwner: true, &provider: false, &stranger: false},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for ident, want := range tc.want {
				assert.Equal(t, want, tc.fn(*ident, p), "identity %d", ident.ID)
			}
		})
	}

	// A zero ProviderID must never grant access to unauthenticated-looking
	// identities or to some other user with id 0.
	assert.False(t, CanViewRequest(stranger, unassigned))
	assert.False(t, CanUpdateRequestStatus(Identity{ID: 0}, unassigned))
}
