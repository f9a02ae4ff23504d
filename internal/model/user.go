package model

import "time"

// User mirrors the 'users' table.  LoginAttempts and LockedUntil implement
// the lockout policy: the counter resets to zero on any successful login or
// once an expired lock is observed.
type User struct {
	ID            uint64
	Username      string
	PasswordHash  string
	Role          Role
	IsActive      bool
	LoginAttempts int
	LockedUntil   *time.Time
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
