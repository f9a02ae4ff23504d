package service

import (
	"errors"
	"fmt"
)

// Sentinel errors the handlers translate into the HTTP error taxonomy.
var (
	// ErrRepairNotFound: no case matches the identifier (404).
	ErrRepairNotFound = errors.New("repair not found")
	// ErrInvalidStatus: the supplied label maps to no known status (400).
	ErrInvalidStatus = errors.New("invalid status")
	// ErrDuplicateRepairID: an explicitly supplied identifier already
	// exists (409).
	ErrDuplicateRepairID = errors.New("رقم الطلب موجود مسبقاً. الرجاء استخدام رقم آخر.")
	// ErrIDGenerationExhausted: no unique identifier found within the
	// bounded retry budget (5xx - load exceeds the ID scheme's capacity).
	ErrIDGenerationExhausted = errors.New("failed to generate unique repair ID after maximum attempts")
	// ErrImageProcessing: the explicitly requested image could not be
	// stored; creation is aborted (502).
	ErrImageProcessing = errors.New("failed to process image")

	// ErrInvalidCredentials covers both unknown handle and wrong password
	// so the response does not reveal which factor failed (401).
	ErrInvalidCredentials = errors.New("Invalid username or password")
	// ErrAccountDisabled: the account's active flag is off (401).
	ErrAccountDisabled = errors.New("Account is disabled")
	// ErrTooManyAttempts: this failed attempt tripped the lockout (401).
	ErrTooManyAttempts = errors.New("Too many failed login attempts. Account locked for 15 minutes.")
)

// AccountLockedError rejects a login attempted while a lockout is still in
// force, carrying the remaining minutes for the user-facing message.  The
// failed-attempt counter is not incremented while locked.
type AccountLockedError struct {
	RemainingMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("Account is locked due to too many failed attempts. Try again in %d minutes.", e.RemainingMinutes)
}
