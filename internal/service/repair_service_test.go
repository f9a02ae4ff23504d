package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/queue"
)

func newTestService(store *stubRepairStore) *RepairService {
	svc := NewRepairService(store, nil, NewIDGenerator(store),
		"https://quickchart.io/qr", "https://fix.example.com/track", false)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = fixedClock(at)
	svc.ids.now = fixedClock(at)
	svc.ids.randInt = func(int) int { return 123 }
	return svc
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreateRepairInitialStatusPerBranch(t *testing.T) {
	cases := []struct {
		branch model.Branch
		want   model.Status
	}{
		{model.BranchAqd, model.StatusReceivedAqd},
		{model.BranchBabylon, model.StatusReceivedBabylon},
		{model.BranchCamp, model.StatusReceivedCamp},
	}
	for _, tc := range cases {
		t.Run(string(tc.branch), func(t *testing.T) {
			store := newStubRepairStore()
			svc := newTestService(store)

			res, err := svc.CreateRepair(context.Background(), CreateInput{
				CustomerName: "أحمد",
				Phone:        "07701234567",
				Device:       "iPhone 13",
				Branch:       tc.branch,
				Issue:        "شاشة مكسورة",
			}, Actor{ID: 1, Username: "user"})
			if err != nil {
				t.Fatalf("CreateRepair: %v", err)
			}
			if res.Status != tc.want.Label() {
				t.Fatalf("status label = %q, want %q", res.Status, tc.want.Label())
			}
			if store.repairs[0].Status != tc.want {
				t.Fatalf("stored status = %q, want %q", store.repairs[0].Status, tc.want)
			}
		})
	}
}

func TestCreateRepairMintsIDAndHistory(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)

	res, err := svc.CreateRepair(context.Background(), CreateInput{
		CustomerName: "Sara",
		Phone:        "07701112222",
		Device:       "Laptop",
		Branch:       model.BranchAqd,
		Issue:        "does not boot",
	}, Actor{}) // anonymous actor
	if err != nil {
		t.Fatalf("CreateRepair: %v", err)
	}
	if res.RepairID != "RPR250601-123" {
		t.Fatalf("repair id = %q", res.RepairID)
	}
	if want := "https://quickchart.io/qr?text=RPR250601-123&size=200"; res.QRCodeURL != want {
		t.Fatalf("qr url = %q, want %q", res.QRCodeURL, want)
	}

	hist := store.history[store.repairs[0].ID]
	if len(hist) != 1 {
		t.Fatalf("history entries = %d, want 1", len(hist))
	}
	h := hist[0]
	if h.Action != model.StatusReceivedAqd.Label() {
		t.Fatalf("history action = %q", h.Action)
	}
	if h.UserName != "موظف الاستقبال" {
		t.Fatalf("history user = %q", h.UserName)
	}
	if h.Notes != "تم إنشاء الطلب" {
		t.Fatalf("history notes = %q", h.Notes)
	}
	if h.UserID != nil {
		t.Fatalf("anonymous actor should leave UserID nil")
	}
}

func TestCreateRepairRejectsDuplicateExplicitID(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	ctx := context.Background()

	in := CreateInput{
		CustomerName: "Ali", Phone: "0771", Device: "TV",
		Branch: model.BranchBabylon, Issue: "no signal",
		RepairID: "RPR250601-900",
	}
	if _, err := svc.CreateRepair(ctx, in, Actor{ID: 2, Username: "user"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateRepair(ctx, in, Actor{ID: 2, Username: "user"})
	if !errors.Is(err, ErrDuplicateRepairID) {
		t.Fatalf("err = %v, want ErrDuplicateRepairID", err)
	}
}

func TestCreateRepairUnknownBranchFallsBack(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)

	res, err := svc.CreateRepair(context.Background(), CreateInput{
		CustomerName: "Omar", Phone: "0772", Device: "Tablet",
		Branch: model.Branch("فرع غير معروف"), Issue: "battery drain",
	}, Actor{ID: 3, Username: "user"})
	if err != nil {
		t.Fatalf("CreateRepair: %v", err)
	}
	if res.Status != model.StatusReceivedAqd.Label() {
		t.Fatalf("status = %q, want fallback %q", res.Status, model.StatusReceivedAqd.Label())
	}
}

func createFixture(t *testing.T, svc *RepairService) string {
	t.Helper()
	res, err := svc.CreateRepair(context.Background(), CreateInput{
		CustomerName: "Huda", Phone: "0773", Device: "Printer",
		Branch: model.BranchAqd, Issue: "paper jam",
	}, Actor{ID: 5, Username: "reception"})
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	return res.RepairID
}

func TestUpdateStatusInvalidLabel(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	id := createFixture(t, svc)

	_, err := svc.UpdateStatus(context.Background(), id,
		UpdateInput{StatusLabel: "حالة غير موجودة"}, Actor{ID: 5, Username: "tech"})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := newTestService(newStubRepairStore())
	_, err := svc.UpdateStatus(context.Background(), "RPR000000-000",
		UpdateInput{StatusLabel: model.StatusInRepair.Label()}, Actor{})
	if !errors.Is(err, ErrRepairNotFound) {
		t.Fatalf("err = %v, want ErrRepairNotFound", err)
	}
}

func TestUpdateStatusNoteFragments(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	id := createFixture(t, svc)

	cc := model.CostCenterCustomer
	detail, err := svc.UpdateStatus(context.Background(), id, UpdateInput{
		StatusLabel: model.StatusInRepair.Label(),
		Cost:        dec("25000"),
		Branch:      model.BranchCamp,
		CostCenter:  &cc,
		Notes:       "فحص أولي",
	}, Actor{ID: 7, Username: "tech"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	hist := store.history[1]
	got := hist[len(hist)-1].Notes
	want := "فحص أولي | تم تحديث التكلفة: 25000 | تم النقل إلى: " +
		string(model.BranchCamp) + " | تم تعيين مركز التكلفة: الزبون"
	if got != want {
		t.Fatalf("notes = %q, want %q", got, want)
	}
	if detail.Branch != string(model.BranchCamp) {
		t.Fatalf("branch = %q", detail.Branch)
	}
	if detail.EstimatedCost != "25000" {
		t.Fatalf("cost = %q", detail.EstimatedCost)
	}
}

func TestUpdateStatusSkipsUnchangedFields(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	id := createFixture(t, svc)

	// Same branch, no cost, no cost center: only the caller notes survive.
	_, err := svc.UpdateStatus(context.Background(), id, UpdateInput{
		StatusLabel: model.StatusInRepair.Label(),
		Branch:      model.BranchAqd,
		Notes:       "بدء العمل",
	}, Actor{ID: 7, Username: "tech"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	hist := store.history[1]
	if got := hist[len(hist)-1].Notes; got != "بدء العمل" {
		t.Fatalf("notes = %q, want caller notes only", got)
	}
}

func TestUpdateStatusClearsCostCenter(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	id := createFixture(t, svc)

	set := model.CostCenterCompany
	if _, err := svc.UpdateStatus(context.Background(), id, UpdateInput{
		StatusLabel: model.StatusInRepair.Label(),
		CostCenter:  &set,
	}, Actor{ID: 7, Username: "tech"}); err != nil {
		t.Fatalf("set cost center: %v", err)
	}

	cleared := model.CostCenter("")
	_, err := svc.UpdateStatus(context.Background(), id, UpdateInput{
		StatusLabel: model.StatusInRepair.Label(),
		CostCenter:  &cleared,
	}, Actor{ID: 7, Username: "tech"})
	if err != nil {
		t.Fatalf("clear cost center: %v", err)
	}

	hist := store.history[1]
	if got := hist[len(hist)-1].Notes; got != "تم مسح مركز التكلفة" {
		t.Fatalf("notes = %q", got)
	}
	if store.repairs[0].CostCenter != "" {
		t.Fatalf("cost center not cleared: %q", store.repairs[0].CostCenter)
	}
}

func TestUpdateStatusReturnDateSetOnce(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	id := createFixture(t, svc)

	first := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	svc.now = fixedClock(first)
	if _, err := svc.UpdateStatus(context.Background(), id, UpdateInput{
		StatusLabel: model.StatusDeliveredToCustomer.Label(),
	}, Actor{ID: 7, Username: "tech"}); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	svc.now = fixedClock(first.Add(48 * time.Hour))
	if _, err := svc.UpdateStatus(context.Background(), id, UpdateInput{
		StatusLabel: model.StatusDeliveredToCustomer.Label(),
	}, Actor{ID: 7, Username: "tech"}); err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	rd := store.repairs[0].ReturnDate
	if rd == nil || !rd.Equal(first) {
		t.Fatalf("return date = %v, want %v (unchanged)", rd, first)
	}
}

func TestAddNote(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	id := createFixture(t, svc)

	note, err := svc.AddNote(context.Background(), id, "تم الاتصال بالزبون", Actor{ID: 9})
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if note.UserName != "User" {
		t.Fatalf("fallback user name = %q, want %q", note.UserName, "User")
	}
	if len(store.notes[1]) != 1 {
		t.Fatalf("stored notes = %d, want 1", len(store.notes[1]))
	}
	// Notes never create history entries.
	if len(store.history[1]) != 1 {
		t.Fatalf("history entries = %d, want 1", len(store.history[1]))
	}
}

func TestGetRepairByNumericAndPublicID(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	publicID := createFixture(t, svc)

	byPublic, err := svc.GetRepair(context.Background(), publicID)
	if err != nil || byPublic == nil {
		t.Fatalf("public lookup: %v %v", byPublic, err)
	}
	byRow, err := svc.GetRepair(context.Background(), "1")
	if err != nil || byRow == nil {
		t.Fatalf("row id lookup: %v %v", byRow, err)
	}
	if byPublic.RepairID != byRow.RepairID {
		t.Fatalf("lookups disagree: %q vs %q", byPublic.RepairID, byRow.RepairID)
	}

	missing, err := svc.GetRepair(context.Background(), "RPR999999-999")
	if err != nil || missing != nil {
		t.Fatalf("missing lookup: %v %v", missing, err)
	}
}

func TestNotifyEventsGated(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	suffix := 0
	svc.ids.randInt = func(int) int {
		suffix++
		return suffix
	}

	var published []queue.RepairEvent
	done := make(chan struct{}, 4)
	svc.publish = func(_ context.Context, ev queue.RepairEvent) error {
		published = append(published, ev)
		done <- struct{}{}
		return nil
	}

	// Disabled: nothing published.
	createFixture(t, svc)
	select {
	case <-done:
		t.Fatal("published while notifications disabled")
	case <-time.After(50 * time.Millisecond):
	}

	// Enabled: one event per create, with the lifecycle action.
	svc.notifyOn = true
	id := createFixture(t, svc)
	<-done
	if _, err := svc.UpdateStatus(context.Background(), id, UpdateInput{
		StatusLabel: model.StatusRepairComplete.Label(),
	}, Actor{ID: 7, Username: "tech"}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	<-done

	if len(published) != 2 {
		t.Fatalf("published = %d events, want 2", len(published))
	}
	if published[0].Action != queue.ActionNewRepair {
		t.Fatalf("first action = %q", published[0].Action)
	}
	if published[1].Action != queue.ActionRepairComplete {
		t.Fatalf("second action = %q", published[1].Action)
	}
	if !strings.Contains(published[0].TrackingURL, "?id=") {
		t.Fatalf("tracking url = %q", published[0].TrackingURL)
	}
}

func TestRepairFullLifecycle(t *testing.T) {
	store := newStubRepairStore()
	svc := newTestService(store)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = fixedClock(start)
	id := createFixture(t, svc)

	transitions := []model.Status{
		model.StatusInRepair,
		model.StatusRepairComplete,
		model.StatusReadyForPickup,
		model.StatusDeliveredToCustomer,
	}
	var detail *RepairDetail
	for i, st := range transitions {
		svc.now = fixedClock(start.Add(time.Duration(i+1) * time.Hour))
		var err error
		detail, err = svc.UpdateStatus(ctx, id, UpdateInput{StatusLabel: st.Label()},
			Actor{ID: 7, Username: "tech"})
		if err != nil {
			t.Fatalf("transition to %s: %v", st, err)
		}

		// The return timestamp appears only on delivery.
		delivered := st == model.StatusDeliveredToCustomer
		if (detail.ReturnDate != "") != delivered {
			t.Fatalf("after %s: returnDate = %q", st, detail.ReturnDate)
		}
	}

	// One creation entry plus one per transition, newest first.
	if len(detail.History) != 5 {
		t.Fatalf("history entries = %d, want 5", len(detail.History))
	}
	for i := 1; i < len(detail.History); i++ {
		if !detail.History[i].Timestamp.Before(detail.History[i-1].Timestamp) {
			t.Fatalf("history not strictly descending at %d: %v then %v",
				i, detail.History[i-1].Timestamp, detail.History[i].Timestamp)
		}
	}
	wantActions := []string{
		model.StatusDeliveredToCustomer.Label(),
		model.StatusReadyForPickup.Label(),
		model.StatusRepairComplete.Label(),
		model.StatusInRepair.Label(),
		model.StatusReceivedAqd.Label(),
	}
	for i, want := range wantActions {
		if detail.History[i].Action != want {
			t.Fatalf("history[%d].action = %q, want %q", i, detail.History[i].Action, want)
		}
	}
}
