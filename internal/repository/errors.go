// Package repository defines the persistence contracts of the service and
// their MySQL implementations.  The sentinel values below let higher layers
// distinguish failure scenarios without inspecting driver errors.
package repository

import "errors"

var (
	// ErrUserNotFound indicates that no account matched the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound indicates that no product matched the lookup.
	ErrProductNotFound = errors.New("product not found")
	// ErrSaleNotFound indicates that no sale matched the lookup.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrEmailExists is returned when an insert or update would duplicate
	// an email address.
	ErrEmailExists = errors.New("email already exists")
	// ErrInsufficientStock is returned by a conditional stock decrement that
	// matched no row.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity rejects a stock decrement of less than one unit.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrInvalidToken covers unknown, revoked and expired refresh tokens.
	ErrInvalidToken = errors.New("invalid refresh token")
	// ErrConflict is returned when a delete cannot be performed because of
	// dependent rows, such as removing a vendor that still owns products.
	ErrConflict = errors.New("conflict")
)
