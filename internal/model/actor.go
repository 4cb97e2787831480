package model

// Actor is the authenticated caller of an operation, as established by the
// access token.
type Actor struct {
	ID   uint64
	Role Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanRecordSales reports whether the actor may create sales and own products.
func (a Actor) CanRecordSales() bool { return a.Role == RoleAdmin || a.Role == RoleVendor }

// Owns reports whether the actor is the owner identified by ownerID or an
// admin acting on its behalf.
func (a Actor) Owns(ownerID uint64) bool { return a.IsAdmin() || a.ID == ownerID }
