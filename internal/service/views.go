package service

import (
	"time"

	"github.com/nixflow/repair-tracker/internal/model"
)

// RepairView is a repair row with the derived display fields the clients
// render: the Arabic status label, date-only timestamp projections, Yes/No
// warranty and the cost as a string ("" when unset).
type RepairView struct {
	ID            uint64 `json:"id"`
	RepairID      string `json:"repairId"`
	CustomerName  string `json:"customerName"`
	Phone         string `json:"phone"`
	Device        string `json:"device"`
	Branch        string `json:"branch"`
	Issue         string `json:"issue"`
	Status        string `json:"status"`
	RepairStatus  string `json:"repairStatus"`
	Date          string `json:"date"`
	ReturnDate    string `json:"returnDate"`
	Warranty      string `json:"warranty"`
	EstimatedCost string `json:"estimatedCost"`
	CostCenter    string `json:"costCenter"`
	ImageURL      string `json:"imageUrl,omitempty"`
	QRCodeURL     string `json:"qrCodeUrl"`
}

// HistoryView is one audit entry as displayed, newest first.
type HistoryView struct {
	Action    string    `json:"action"`
	UserName  string    `json:"userName"`
	Notes     string    `json:"notes"`
	Timestamp time.Time `json:"timestamp"`
}

// NoteView is one free-text note as displayed, newest first.
type NoteView struct {
	NoteText  string    `json:"noteText"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

// RepairDetail is a full case view: the row fields plus ordered history and
// notes.
type RepairDetail struct {
	RepairView
	History []HistoryView `json:"history"`
	Notes   []NoteView    `json:"notes"`
}

func dateOnly(t time.Time) string { return t.UTC().Format("2006-01-02") }

func viewOf(rep *model.Repair) RepairView {
	v := RepairView{
		ID:           rep.ID,
		RepairID:     rep.RepairID,
		CustomerName: rep.CustomerName,
		Phone:        rep.Phone,
		Device:       rep.Device,
		Branch:       string(rep.Branch),
		Issue:        rep.Issue,
		Status:       string(rep.Status),
		RepairStatus: rep.Status.Label(),
		Date:         dateOnly(rep.ReceivedDate),
		Warranty:     "No",
		CostCenter:   string(rep.CostCenter),
		ImageURL:     rep.ImageURL,
		QRCodeURL:    rep.QRCodeURL,
	}
	if rep.Warranty {
		v.Warranty = "Yes"
	}
	if rep.ReturnDate != nil {
		v.ReturnDate = dateOnly(*rep.ReturnDate)
	}
	if rep.EstimatedCost != nil {
		v.EstimatedCost = rep.EstimatedCost.String()
	}
	return v
}

func historyViews(entries []model.HistoryEntry) []HistoryView {
	out := make([]HistoryView, 0, len(entries))
	for _, h := range entries {
		out = append(out, HistoryView{
			Action:    h.Action,
			UserName:  h.UserName,
			Notes:     h.Notes,
			Timestamp: h.Timestamp,
		})
	}
	return out
}

func noteViews(notes []model.Note) []NoteView {
	out := make([]NoteView, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteView{
			NoteText:  n.NoteText,
			UserName:  n.UserName,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
