package rbac

import (
	"errors"
	"time"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// ErrInvalidAssignment indicates a blank user or role.
var ErrInvalidAssignment = errors.New("rbac: user and role are required")

// UserRole links a user to a named role.
type UserRole struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
