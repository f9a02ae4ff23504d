// Package repository implements raw-SQL persistence for users and repairs.
// Sentinel errors defined here let the service layer distinguish failure
// scenarios without inspecting driver error strings.
package repository

import "errors"

// ErrUsernameExists is returned when inserting a user whose handle is
// already taken.
var ErrUsernameExists = errors.New("username already exists")

// ErrRepairIDExists is returned when inserting a repair whose public
// identifier collides with an existing row.  The unique key on
// repairs.repair_id is the authoritative uniqueness check; the generator's
// pre-read is only an optimization.
var ErrRepairIDExists = errors.New("repair id already exists")
