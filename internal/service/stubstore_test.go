package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/repository"
)

// stubRepairStore is an in-memory RepairStore with the same lookup and
// ordering semantics as the SQL repository.
type stubRepairStore struct {
	nextID  uint64
	repairs []*model.Repair
	history map[uint64][]model.HistoryEntry
	notes   map[uint64][]model.Note

	createErr error
}

func newStubRepairStore() *stubRepairStore {
	return &stubRepairStore{
		history: map[uint64][]model.HistoryEntry{},
		notes:   map[uint64][]model.Note{},
	}
}

func (s *stubRepairStore) ExistsByPublicID(_ context.Context, repairID string) (bool, error) {
	for _, r := range s.repairs {
		if r.RepairID == repairID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepairStore) GetByAnyID(_ context.Context, identifier string) (*model.Repair, error) {
	numeric, numErr := strconv.ParseUint(identifier, 10, 64)
	for _, r := range s.repairs {
		if r.RepairID == identifier || (numErr == nil && r.ID == numeric) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepairStore) Create(_ context.Context, rep *model.Repair, h *model.HistoryEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, r := range s.repairs {
		if r.RepairID == rep.RepairID {
			return repository.ErrRepairIDExists
		}
	}
	s.nextID++
	rep.ID = s.nextID
	cp := *rep
	s.repairs = append(s.repairs, &cp)
	s.history[rep.ID] = append(s.history[rep.ID], *h)
	return nil
}

func (s *stubRepairStore) Update(_ context.Context, rep *model.Repair, h *model.HistoryEntry) error {
	for i, r := range s.repairs {
		if r.ID == rep.ID {
			cp := *rep
			s.repairs[i] = &cp
			s.history[rep.ID] = append(s.history[rep.ID], *h)
			return nil
		}
	}
	return nil
}

func (s *stubRepairStore) List(_ context.Context, f repository.Filter) ([]model.Repair, error) {
	out := []model.Repair{}
	for _, r := range s.repairs {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Branch != "" && r.Branch != f.Branch {
			continue
		}
		if f.Search != "" && !matchesSearch(r, f.Search) {
			continue
		}
		if f.From != nil && r.ReceivedDate.Before(*f.From) {
			continue
		}
		if f.To != nil && r.ReceivedDate.After(*f.To) {
			continue
		}
		out = append(out, *r)
	}
	// Received date descending, like the SQL ORDER BY.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ReceivedDate.After(out[i].ReceivedDate) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func matchesSearch(r *model.Repair, q string) bool {
	q = strings.ToLower(q)
	for _, field := range []string{r.RepairID, r.CustomerName, r.Phone, r.Device} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (s *stubRepairStore) ListHistory(_ context.Context, repairID uint64) ([]model.HistoryEntry, error) {
	entries := s.history[repairID]
	out := make([]model.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (s *stubRepairStore) ListNotes(_ context.Context, repairID uint64) ([]model.Note, error) {
	notes := s.notes[repairID]
	out := make([]model.Note, 0, len(notes))
	for i := len(notes) - 1; i >= 0; i-- {
		out = append(out, notes[i])
	}
	return out, nil
}

func (s *stubRepairStore) AddNote(_ context.Context, n *model.Note) error {
	s.notes[n.RepairID] = append(s.notes[n.RepairID], *n)
	return nil
}

func (s *stubRepairStore) StatusCounts(_ context.Context) ([]model.StatusCount, error) {
	byStatus := map[model.Status]int{}
	for _, r := range s.repairs {
		byStatus[r.Status]++
	}
	out := []model.StatusCount{}
	for st, n := range byStatus {
		out = append(out, model.StatusCount{Status: st, Label: st.Label(), Count: n})
	}
	return out, nil
}

// stubUserStore is an in-memory UserStore keyed by username.
type stubUserStore struct {
	users map[string]*model.User
}

func newStubUserStore(users ...*model.User) *stubUserStore {
	s := &stubUserStore{users: map[string]*model.User{}}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

func (s *stubUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *stubUserStore) SaveLoginState(_ context.Context, u *model.User) error {
	cp := *u
	s.users[u.Username] = &cp
	return nil
}

// fixedClock returns a deterministic now() for tests.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedRepair(publicID string) *model.Repair {
	return &model.Repair{RepairID: publicID}
}
