// Package service holds the business rules of the sales application.  Every
// operation returns one of the typed errors below or an error wrapping
// ErrInternal; store failures never reach the caller verbatim.
package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrInternal is the generic failure reported for unexpected store or
// infrastructure errors.
var ErrInternal = errors.New("internal error")

// ErrInvalidCredentials is returned by Authenticate for an unknown email or
// a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports malformed or incomplete input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NotFoundError reports a missing product, sale or user.
type NotFoundError struct {
	Resource string
	ID       uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// InsufficientStockError reports a basket line that asks for more units than
// the catalog holds.
type InsufficientStockError struct {
	ProductID   uint64
	ProductName string
	Available   int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// AuthorizationError reports an actor lacking the role or ownership needed
// for an operation.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return "forbidden: " + e.Reason }

// ConflictError reports an operation refused because of existing state, such
// as a duplicate email or a protected account.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }

func validation(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

func forbidden(reason string) error { return &AuthorizationError{Reason: reason} }

// internal logs err with the failing operation and hides it behind
// ErrInternal.
func internal(log *zap.Logger, op string, err error) error {
	log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, ErrInternal)
}

// isDomainError reports whether err already belongs to the service taxonomy.
func isDomainError(err error) bool {
	var (
		ve *ValidationError
		ne *NotFoundError
		se *InsufficientStockError
		ae *AuthorizationError
		ce *ConflictError
	)
	return errors.As(err, &ve) || errors.As(err, &ne) || errors.As(err, &se) ||
		errors.As(err, &ae) || errors.As(err, &ce) ||
		errors.Is(err, ErrInternal) || errors.Is(err, ErrInvalidCredentials)
}

// Pagination bounds shared by the list operations.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizePage clamps page and size and returns the row offset.
func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, (page - 1) * size
}

func pageCount(total int64, size int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
