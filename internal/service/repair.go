package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/queue"
	"github.com/nixflow/repair-tracker/internal/repository"
	"github.com/nixflow/repair-tracker/internal/utils"
)

// notifyTimeout bounds the broker submission of an outbound notification.
const notifyTimeout = 10 * time.Second

// Actor identifies the authenticated account performing an operation.
type Actor struct {
	ID       uint64
	Username string
}

// RepairService is the repair lifecycle manager: it creates cases, applies
// status transitions with their audit entries, and computes the derived
// display fields.  Outbound notifications are submitted to the broker from
// a detached goroutine and never affect the request outcome.
type RepairService struct {
	store   RepairStore
	images  ImageStore
	ids     *IDGenerator
	publish func(ctx context.Context, ev queue.RepairEvent) error

	qrBase       string
	trackingBase string
	notifyOn     bool

	now func() time.Time
}

// NewRepairService wires the lifecycle manager.  images may be nil when no
// upload directory is available; creation then rejects image payloads.
func NewRepairService(store RepairStore, images ImageStore, ids *IDGenerator, qrBase, trackingBase string, notifyOn bool) *RepairService {
	return &RepairService{
		store:        store,
		images:       images,
		ids:          ids,
		publish:      queue.Publish,
		qrBase:       qrBase,
		trackingBase: trackingBase,
		notifyOn:     notifyOn,
		now:          time.Now,
	}
}

// CreateInput carries a validated create request.  ImageBytes (file upload)
// takes precedence over ImageBase64 when both are present.
type CreateInput struct {
	CustomerName  string
	Phone         string
	Device        string
	Branch        model.Branch
	Issue         string
	Warranty      bool
	EstimatedCost *decimal.Decimal
	ReceivedDate  *time.Time
	RepairID      string // optional: re-registering a previously issued code
	ImageBytes    []byte
	ImageBase64   string
}

// CreateResult is returned to the front desk after registration.
type CreateResult struct {
	RepairID  string `json:"repairId"`
	QRCodeURL string `json:"qrCodeUrl"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Status    string `json:"status"`
}

// CreateRepair registers a new case: mints or verifies the identifier,
// stores the image if one was supplied, derives the initial status from the
// branch, and persists the case together with its creation history entry.
func (s *RepairService) CreateRepair(ctx context.Context, in CreateInput, actor Actor) (*CreateResult, error) {
	repairID := in.RepairID
	if repairID != "" {
		exists, err := s.store.ExistsByPublicID(ctx, repairID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateRepairID
		}
	} else {
		var err error
		repairID, err = s.ids.Generate(ctx)
		if err != nil {
			return nil, err
		}
	}

	imageURL := ""
	if len(in.ImageBytes) > 0 || in.ImageBase64 != "" {
		if s.images == nil {
			return nil, ErrImageProcessing
		}
		var err error
		if len(in.ImageBytes) > 0 {
			imageURL, err = s.images.SaveImage(in.ImageBytes, repairID)
		} else {
			imageURL, err = s.images.SaveBase64Image(in.ImageBase64, repairID)
		}
		if err != nil {
			logrus.WithError(err).Error("image processing failed")
			return nil, ErrImageProcessing
		}
	}

	initialStatus := model.InitialStatus(in.Branch)
	received := s.now().UTC()
	if in.ReceivedDate != nil {
		received = in.ReceivedDate.UTC()
	}

	rep := &model.Repair{
		RepairID:      repairID,
		CustomerName:  in.CustomerName,
		Phone:         in.Phone,
		Device:        in.Device,
		Branch:        in.Branch,
		Issue:         in.Issue,
		Status:        initialStatus,
		Warranty:      in.Warranty,
		EstimatedCost: in.EstimatedCost,
		ReceivedDate:  received,
		ImageURL:      imageURL,
		QRCodeURL:     utils.QRCodeURL(s.qrBase, repairID),
		CreatedByID:   actor.ID,
	}
	history := s.historyEntry(initialStatus.Label(), actor, "موظف الاستقبال", "تم إنشاء الطلب")

	if err := s.store.Create(ctx, rep, history); err != nil {
		if errors.Is(err, repository.ErrRepairIDExists) {
			// Lost the race between the pre-check and the insert; the
			// unique key is the real arbiter.
			return nil, ErrDuplicateRepairID
		}
		return nil, err
	}

	s.notify(s.newRepairEvent(rep))

	return &CreateResult{
		RepairID:  rep.RepairID,
		QRCodeURL: rep.QRCodeURL,
		ImageURL:  rep.ImageURL,
		Status:    initialStatus.Label(),
	}, nil
}

// UpdateInput carries a validated status update.  Cost, Branch and
// CostCenter are independently optional; CostCenter distinguishes "absent"
// (nil) from "explicitly cleared" (pointer to empty).
type UpdateInput struct {
	StatusLabel string
	Cost        *decimal.Decimal
	Branch      model.Branch
	CostCenter  *model.CostCenter
	Notes       string
}

// UpdateStatus applies a status transition plus any accompanying field
// changes, appending exactly one history entry whose notes concatenate the
// caller's notes and the auto-generated change fragments, pipe-separated in
// that order.  The return timestamp is set on the first transition into the
// delivered status and never overwritten.
func (s *RepairService) UpdateStatus(ctx context.Context, identifier string, in UpdateInput, actor Actor) (*RepairDetail, error) {
	rep, err := s.store.GetByAnyID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrRepairNotFound
	}

	newStatus, ok := model.ParseStatusLabel(in.StatusLabel)
	if !ok {
		return nil, ErrInvalidStatus
	}
	rep.Status = newStatus

	activityNotes := in.Notes
	appendFragment := func(fragment string) {
		if activityNotes != "" {
			activityNotes += " | "
		}
		activityNotes += fragment
	}

	if in.Cost != nil && (rep.EstimatedCost == nil || !rep.EstimatedCost.Equal(*in.Cost)) {
		c := *in.Cost
		rep.EstimatedCost = &c
		appendFragment(fmt.Sprintf("تم تحديث التكلفة: %s", c.String()))
	}
	if in.Branch != "" && in.Branch != rep.Branch {
		rep.Branch = in.Branch
		appendFragment(fmt.Sprintf("تم النقل إلى: %s", in.Branch))
	}
	if in.CostCenter != nil && *in.CostCenter != rep.CostCenter {
		rep.CostCenter = *in.CostCenter
		if *in.CostCenter != "" {
			appendFragment(fmt.Sprintf("تم تعيين مركز التكلفة: %s", in.CostCenter.Label()))
		} else {
			appendFragment("تم مسح مركز التكلفة")
		}
	}
	if newStatus == model.StatusDeliveredToCustomer && rep.ReturnDate == nil {
		t := s.now().UTC()
		rep.ReturnDate = &t
	}

	history := s.historyEntry(in.StatusLabel, actor, "موظف", activityNotes)
	if err := s.store.Update(ctx, rep, history); err != nil {
		return nil, err
	}

	s.notify(s.statusEvent(rep, in.StatusLabel, activityNotes))

	return s.detailOf(ctx, rep)
}

// AddNote appends a free-text note to a case.  Notes never touch status or
// history.
func (s *RepairService) AddNote(ctx context.Context, identifier, text string, actor Actor) (*NoteView, error) {
	rep, err := s.store.GetByAnyID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrRepairNotFound
	}

	note := &model.Note{
		RepairID:  rep.ID,
		NoteText:  text,
		UserName:  nameOr(actor.Username, "User"),
		UserID:    actor.ID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AddNote(ctx, note); err != nil {
		return nil, err
	}
	v := NoteView{NoteText: note.NoteText, UserName: note.UserName, CreatedAt: note.CreatedAt}
	return &v, nil
}

// GetRepair looks a case up by internal key or public identifier and
// returns it with its history and notes, newest first.  A missing case
// returns (nil, nil): absence is an answer, not a failure.
func (s *RepairService) GetRepair(ctx context.Context, identifier string) (*RepairDetail, error) {
	rep, err := s.store.GetByAnyID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, nil
	}
	return s.detailOf(ctx, rep)
}

// ListFilter narrows ListRepairs.
type ListFilter struct {
	Status model.Status
	Branch model.Branch
	Search string
}

// ListRepairs returns matching cases ordered by received date descending,
// each carrying the derived display fields.
func (s *RepairService) ListRepairs(ctx context.Context, f ListFilter) ([]RepairView, error) {
	reps, err := s.store.List(ctx, repository.Filter{
		Status: f.Status,
		Branch: f.Branch,
		Search: f.Search,
	})
	if err != nil {
		return nil, err
	}
	out := make([]RepairView, 0, len(reps))
	for i := range reps {
		out = append(out, viewOf(&reps[i]))
	}
	return out, nil
}

func (s *RepairService) detailOf(ctx context.Context, rep *model.Repair) (*RepairDetail, error) {
	history, err := s.store.ListHistory(ctx, rep.ID)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, rep.ID)
	if err != nil {
		return nil, err
	}
	return &RepairDetail{
		RepairView: viewOf(rep),
		History:    historyViews(history),
		Notes:      noteViews(notes),
	}, nil
}

func (s *RepairService) historyEntry(action string, actor Actor, fallbackName, notes string) *model.HistoryEntry {
	h := &model.HistoryEntry{
		Action:    action,
		UserName:  nameOr(actor.Username, fallbackName),
		Notes:     notes,
		Timestamp: s.now().UTC(),
	}
	if actor.ID != 0 {
		id := actor.ID
		h.UserID = &id
	}
	return h
}

// notify submits an event to the outbound queue from a detached goroutine.
// Submission failure is logged inside the publisher and never propagates to
// the request path.
func (s *RepairService) notify(ev queue.RepairEvent) {
	if !s.notifyOn {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		_ = s.publish(ctx, ev)
	}()
}

func (s *RepairService) newRepairEvent(rep *model.Repair) queue.RepairEvent {
	warranty := "لا"
	if rep.Warranty {
		warranty = "نعم"
	}
	cost := "غير محدد بعد"
	if rep.EstimatedCost != nil {
		cost = rep.EstimatedCost.String()
	}
	return queue.RepairEvent{
		Action:      queue.ActionNewRepair,
		RepairID:    rep.RepairID,
		Status:      string(rep.Status),
		Customer:    rep.CustomerName,
		Phone:       rep.Phone,
		Device:      rep.Device,
		Issue:       rep.Issue,
		Branch:      string(rep.Branch),
		Warranty:    warranty,
		Cost:        cost,
		Date:        dateOnly(rep.ReceivedDate),
		QRCodeURL:   rep.QRCodeURL,
		ImageURL:    rep.ImageURL,
		TrackingURL: utils.TrackingURL(s.trackingBase, rep.RepairID),
	}
}

func (s *RepairService) statusEvent(rep *model.Repair, statusLabel, notes string) queue.RepairEvent {
	action := queue.ActionStatusUpdate
	switch rep.Status {
	case model.StatusRepairComplete:
		action = queue.ActionRepairComplete
	case model.StatusUnrepairable:
		action = queue.ActionUnrepairable
	case model.StatusReadyForPickup:
		action = queue.ActionReadyForPickup
	}
	cost := "غير محدد"
	if rep.EstimatedCost != nil {
		cost = rep.EstimatedCost.String()
	}
	return queue.RepairEvent{
		Action:      action,
		RepairID:    rep.RepairID,
		Status:      statusLabel,
		Customer:    rep.CustomerName,
		Phone:       rep.Phone,
		Device:      rep.Device,
		Branch:      string(rep.Branch),
		Cost:        cost,
		Notes:       notes,
		TrackingURL: utils.TrackingURL(s.trackingBase, rep.RepairID),
	}
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
