package model

import (
	"errors"
	"strings"
	"time"
)

// Role is the closed set of account roles understood by the API.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

// ErrUnknownRole is returned by ParseRole and ApplyRole for values outside
// the role enumeration.
var ErrUnknownRole = errors.New("unknown role")

// ErrAdminFlagMismatch is returned when a caller tries to raise the
// administrator flag on an account whose role is not admin.
var ErrAdminFlagMismatch = errors.New("admin flag requires admin role")

// ParseRole normalizes s and checks it against the role enumeration.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleVendor, RoleCustomer:
		return r, nil
	}
	return "", ErrUnknownRole
}

// Location is an optional latitude/longitude pair attached to a profile.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// User represents an account as stored in the `users` table.  The password
// hash never leaves the server; it is excluded from JSON encoding.
//
// Fields:
//
//	ID           – primary key identifier.
//	Name         – display name.
//	Email        – unique, stored lower-cased.
//	PasswordHash – bcrypt hash of the password.
//	Role         – one of admin, vendor, customer.
//	IsAdmin      – administrator flag; true exactly when Role is admin.
//	Phone        – optional contact number.
//	Location     – optional geographic position.
//	Business     – optional business name (vendors).
//	Photos       – optional image references.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsAdmin      bool      `json:"isAdmin"`
	Phone        string    `json:"phone,omitempty"`
	Location     *Location `json:"location,omitempty"`
	Business     string    `json:"business,omitempty"`
	Photos       []string  `json:"photos,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ApplyRole is the only place where the role and the administrator flag are
// changed.  Admin always carries the flag.  For other roles the flag is
// cleared; an explicit request to set it is rejected.
func (u *User) ApplyRole(role Role, isAdmin *bool) error {
	switch role {
	case RoleAdmin:
		if isAdmin != nil && !*isAdmin {
			return ErrAdminFlagMismatch
		}
		u.Role = RoleAdmin
		u.IsAdmin = true
	case RoleVendor, RoleCustomer:
		if isAdmin != nil && *isAdmin {
			return ErrAdminFlagMismatch
		}
		u.Role = role
		u.IsAdmin = false
	default:
		return ErrUnknownRole
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address so that uniqueness checks
// are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
