package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nixflow/repair-tracker/internal/model"
)

// RepairRepo provides persistence for repair cases together with their
// history entries and notes.  Multi-row writes (case + audit entry) run in
// one transaction so a status change can never be persisted without its
// history record.
type RepairRepo struct{ DB *sql.DB }

func NewRepairRepo(db *sql.DB) *RepairRepo { return &RepairRepo{DB: db} }

// Filter narrows List results.  Zero values mean "no constraint".  Search
// matches case-insensitively against repair_id, customer_name, phone and
// device, OR-combined; Status and Branch are exact matches AND-combined
// with it.  From/To bound received_date inclusively.
type Filter struct {
	Status model.Status
	Branch model.Branch
	Search string
	From   *time.Time
	To     *time.Time
}

const repairColumns = `id, repair_id, customer_name, phone, device, branch, issue, status,
	warranty, estimated_cost, cost_center, received_date, return_date,
	image_url, qr_code_url, created_by_id, created_at, updated_at`

type repairScanner interface{ Scan(dest ...any) error }

func scanRepair(row repairScanner) (*model.Repair, error) {
	var rep model.Repair
	var branch, status string
	var cost decimal.NullDecimal
	var costCenter, imageURL sql.NullString
	var returnDate sql.NullTime
	err := row.Scan(&rep.ID, &rep.RepairID, &rep.CustomerName, &rep.Phone, &rep.Device,
		&branch, &rep.Issue, &status, &rep.Warranty, &cost, &costCenter,
		&rep.ReceivedDate, &returnDate, &imageURL, &rep.QRCodeURL,
		&rep.CreatedByID, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rep.Branch = model.Branch(branch)
	rep.Status, _ = model.ParseStatus(status)
	if cost.Valid {
		d := cost.Decimal
		rep.EstimatedCost = &d
	}
	if costCenter.Valid {
		rep.CostCenter = model.CostCenter(costCenter.String)
	}
	if returnDate.Valid {
		t := returnDate.Time
		rep.ReturnDate = &t
	}
	rep.ImageURL = imageURL.String
	return &rep, nil
}

// ExistsByPublicID reports whether any repair carries the given public
// identifier.
func (r *RepairRepo) ExistsByPublicID(ctx context.Context, repairID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM repairs WHERE repair_id=? LIMIT 1", repairID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByAnyID looks a repair up by internal key or public identifier.  Both
// columns are unique so at most one row can match.  Returns (nil, nil) when
// absent: callers distinguish "no such case" from a transport failure.
func (r *RepairRepo) GetByAnyID(ctx context.Context, identifier string) (*model.Repair, error) {
	q := "SELECT " + repairColumns + " FROM repairs WHERE repair_id=? LIMIT 1"
	args := []any{identifier}
	if n, err := strconv.ParseUint(identifier, 10, 64); err == nil {
		q = "SELECT " + repairColumns + " FROM repairs WHERE id=? OR repair_id=? LIMIT 1"
		args = []any{n, identifier}
	}
	rep, err := scanRepair(r.DB.QueryRowContext(ctx, q, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// List returns repairs matching the filter, newest received first.
func (r *RepairRepo) List(ctx context.Context, f Filter) ([]model.Repair, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(f.Status))
	}
	if f.Branch != "" {
		where = append(where, "branch=?")
		args = append(args, string(f.Branch))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(repair_id LIKE ? OR customer_name LIKE ? OR phone LIKE ? OR device LIKE ?)")
		pat := "%" + s + "%"
		args = append(args, pat, pat, pat, pat)
	}
	if f.From != nil {
		where = append(where, "received_date >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "received_date <= ?")
		args = append(args, f.To.UTC())
	}
	q := "SELECT " + repairColumns + " FROM repairs"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY received_date DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Repair
	for rows.Next() {
		rep, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rep)
	}
	return out, rows.Err()
}

func nullCost(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullCostCenter(c model.CostCenter) any {
	if c == "" {
		return nil
	}
	return string(c)
}

func insertHistoryTx(ctx context.Context, tx *sql.Tx, h *model.HistoryEntry) error {
	var userID any
	if h.UserID != nil {
		userID = *h.UserID
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO repair_history (repair_id, action, user_name, user_id, notes, timestamp) VALUES (?,?,?,?,?,?)",
		h.RepairID, h.Action, h.UserName, userID, h.Notes, h.Timestamp.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// Create inserts a repair case and its creation history entry atomically.
// The generated internal key is written back to rep, and the history entry
// is bound to it.  A duplicate public identifier surfaces as
// ErrRepairIDExists whether it lost a race or was supplied explicitly.
func (r *RepairRepo) Create(ctx context.Context, rep *model.Repair, h *model.HistoryEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO repairs (repair_id, customer_name, phone, device, branch, issue, status,
			warranty, estimated_cost, cost_center, received_date, image_url, qr_code_url, created_by_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rep.RepairID, rep.CustomerName, rep.Phone, rep.Device, string(rep.Branch), rep.Issue,
		string(rep.Status), rep.Warranty, nullCost(rep.EstimatedCost), nullCostCenter(rep.CostCenter),
		rep.ReceivedDate.UTC(), nullStr(rep.ImageURL), rep.QRCodeURL, rep.CreatedByID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrRepairIDExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)

	h.RepairID = rep.ID
	if err := insertHistoryTx(ctx, tx, h); err != nil {
		return err
	}
	return tx.Commit()
}

// Update persists the mutable case fields and appends one history entry in
// the same transaction.  A partially applied update (status change without
// its audit record) is a correctness violation, hence the shared tx.
func (r *RepairRepo) Update(ctx context.Context, rep *model.Repair, h *model.HistoryEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var returnDate any
	if rep.ReturnDate != nil {
		returnDate = rep.ReturnDate.UTC()
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE repairs SET status=?, branch=?, estimated_cost=?, cost_center=?, return_date=? WHERE id=?",
		string(rep.Status), string(rep.Branch), nullCost(rep.EstimatedCost),
		nullCostCenter(rep.CostCenter), returnDate, rep.ID)
	if err != nil {
		return err
	}

	h.RepairID = rep.ID
	if err := insertHistoryTx(ctx, tx, h); err != nil {
		return err
	}
	return tx.Commit()
}

// ListHistory returns a case's audit entries, newest first.
func (r *RepairRepo) ListHistory(ctx context.Context, repairID uint64) ([]model.HistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, repair_id, action, user_name, user_id, notes, timestamp FROM repair_history WHERE repair_id=? ORDER BY timestamp DESC, id DESC",
		repairID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var h model.HistoryEntry
		var userID sql.NullInt64
		if err := rows.Scan(&h.ID, &h.RepairID, &h.Action, &h.UserName, &userID, &h.Notes, &h.Timestamp); err != nil {
			return nil, err
		}
		if userID.Valid {
			uid := uint64(userID.Int64)
			h.UserID = &uid
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListNotes returns a case's free-text notes, newest first.
func (r *RepairRepo) ListNotes(ctx context.Context, repairID uint64) ([]model.Note, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, repair_id, note_text, user_name, user_id, created_at FROM repair_notes WHERE repair_id=? ORDER BY created_at DESC, id DESC",
		repairID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.RepairID, &n.NoteText, &n.UserName, &n.UserID, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// AddNote appends a note and writes the generated ID and timestamp back.
func (r *RepairRepo) AddNote(ctx context.Context, n *model.Note) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO repair_notes (repair_id, note_text, user_name, user_id) VALUES (?,?,?,?)",
		n.RepairID, n.NoteText, n.UserName, n.UserID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	err = r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM repair_notes WHERE id=?", n.ID).Scan(&n.CreatedAt)
	return err
}

// StatusCounts groups repairs by status.  Ordering (count desc, then
// locale-aware label) is applied by the report service, not here.
func (r *RepairRepo) StatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM repairs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StatusCount
	for rows.Next() {
		var raw string
		var c model.StatusCount
		if err := rows.Scan(&raw, &c.Count); err != nil {
			return nil, err
		}
		c.Status, _ = model.ParseStatus(raw)
		c.Label = c.Status.Label()
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
