// Package service implements the repair lifecycle manager, the identifier
// generator, the report engine and the auth guard.  Services depend on
// small store interfaces so the SQL repositories can be swapped for
// in-memory stubs in tests; the process-wide database handle is injected at
// construction, never reached through a global.
package service

import (
	"context"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/repository"
)

// RepairStore is the persistence surface the lifecycle manager and report
// engine need.  *repository.RepairRepo satisfies it.
type RepairStore interface {
	ExistsByPublicID(ctx context.Context, repairID string) (bool, error)
	GetByAnyID(ctx context.Context, identifier string) (*model.Repair, error)
	Create(ctx context.Context, rep *model.Repair, h *model.HistoryEntry) error
	Update(ctx context.Context, rep *model.Repair, h *model.HistoryEntry) error
	List(ctx context.Context, f repository.Filter) ([]model.Repair, error)
	ListHistory(ctx context.Context, repairID uint64) ([]model.HistoryEntry, error)
	ListNotes(ctx context.Context, repairID uint64) ([]model.Note, error)
	AddNote(ctx context.Context, n *model.Note) error
	StatusCounts(ctx context.Context) ([]model.StatusCount, error)
}

// UserStore is the persistence surface the auth guard needs.
// *repository.UserRepo satisfies it.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	SaveLoginState(ctx context.Context, u *model.User) error
}

// ImageStore stores an uploaded image and returns its reference.
// *upload.Store satisfies it.
type ImageStore interface {
	SaveImage(data []byte, repairID string) (string, error)
	SaveBase64Image(data, repairID string) (string, error)
}
