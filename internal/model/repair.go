package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Repair mirrors the 'repairs' table.  RepairID is the public human-readable
// identifier (RPRyymmdd-nnn), distinct from the internal key; both columns
// are unique.  ReturnDate is set exactly once, on delivery.
type Repair struct {
	ID            uint64
	RepairID      string
	CustomerName  string
	Phone         string
	Device        string
	Branch        Branch
	Issue         string
	Status        Status
	Warranty      bool
	EstimatedCost *decimal.Decimal
	CostCenter    CostCenter
	ReceivedDate  time.Time
	ReturnDate    *time.Time
	ImageURL      string
	QRCodeURL     string
	CreatedByID   uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HistoryEntry is an immutable audit record owned by one repair.  Action is
// the Arabic status label transitioned to, or a system action text.  UserID
// is nil for system entries.
type HistoryEntry struct {
	ID        uint64
	RepairID  uint64
	Action    string
	UserName  string
	UserID    *uint64
	Notes     string
	Timestamp time.Time
}

// Note is a free-text annotation on a repair, independent of status.
type Note struct {
	ID        uint64
	RepairID  uint64
	NoteText  string
	UserName  string
	UserID    uint64
	CreatedAt time.Time
}

// StatusCount is one dashboard summary row.
type StatusCount struct {
	Status Status `json:"key"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}
