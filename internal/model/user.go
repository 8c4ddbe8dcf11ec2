package model

import (
	"fmt"
	"time"
)

// User represents an authentication account.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	FullName string `json:"full_name,omitempty"`
	Username string `json:"username,omitempty"`
	Status   string `json:"status,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Profile holds the display identity for a user account.
type Profile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile statuses.
const (
	ProfileActive   = "active"
	ProfileInactive = "inactive"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidatePassword checks that a password meets the minimum requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
