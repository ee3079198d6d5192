// Package user holds the minimal buyer identity the store core needs.
// Authentication and role management belong to the identity provider and are
// out of scope here; orders only need to resolve a buyer by email.
package user

import "context"

// User is a store customer.
type User struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
}

// Repository defines lookup operations for users.
type Repository interface {
	// GetByEmail resolves a user by email, failing with apperr.NotFound when
	// no such user exists.
	GetByEmail(ctx context.Context, email string) (*User, error)
}
