package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailAlreadyUsed   = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrNameRequired       = errors.New("display name is required")
)

// User is someone who can own items and book other people's items.
type User struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	IsActive     bool
}
