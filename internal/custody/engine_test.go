package custody_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/decms-project/decms/internal/custody"
	"go.uber.org/zap"
)

var ctx = context.Background()

func newEngine(t *testing.T) (*custody.Engine, *custody.MemoryStore) {
	t.Helper()
	store := custody.NewMemoryStore()
	store.AddCase(1)
	for _, uid := range []int64{1, 2, 3, 4} {
		store.AddUser(uid)
	}
	return custody.NewEngine(store, nil, zap.NewNop()), store
}

func intakeLaptop(t *testing.T, e *custody.Engine) *custody.EvidenceItem {
	t.Helper()
	item, _, err := e.Intake(ctx, custody.IntakeRequest{
		CaseID:       1,
		ItemName:     "Laptop",
		EvidenceType: "Digital",
		InitialHash:  "abc123",
		CreatorID:    1,
		CustodianID:  2,
	})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	return item
}

func TestIntake_createsGenesis(t *testing.T) {
	e, store := newEngine(t)
	item := intakeLaptop(t, e)

	if item.CurrentCustodianID != 2 {
		t.Errorf("custodian: got %d, want 2", item.CurrentCustodianID)
	}
	if item.Status != custody.StatusCheckedIn {
		t.Errorf("status: got %q, want %q", item.Status, custody.StatusCheckedIn)
	}

	recs, err := store.Transfers(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one genesis record, got %d", len(recs))
	}
	genesis := recs[0]
	if genesis.FromUserID != 1 || genesis.ToUserID != 2 {
		t.Errorf("genesis from/to: got %d/%d, want 1/2", genesis.FromUserID, genesis.ToUserID)
	}
	if !strings.Contains(genesis.Notes, "abc123") {
		t.Errorf("genesis notes should describe the original hash, got %q", genesis.Notes)
	}
}

func TestIntake_unknownCase(t *testing.T) {
	e, _ := newEngine(t)
	_, _, err := e.Intake(ctx, custody.IntakeRequest{
		CaseID: 99, ItemName: "USB stick", InitialHash: "h", CreatorID: 1, CustodianID: 2,
	})
	if !errors.Is(err, custody.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestIntake_unknownActor(t *testing.T) {
	e, _ := newEngine(t)
	_, _, err := e.Intake(ctx, custody.IntakeRequest{
		CaseID: 1, ItemName: "USB stick", InitialHash: "h", CreatorID: 1, CustodianID: 42,
	})
	if !errors.Is(err, custody.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

// The concrete scenario: intake to custodian 2, transfer 2→3, then a stale
// transfer from 2 must be rejected because custody has moved on.
func TestTransfer_custodyHandoff(t *testing.T) {
	e, _ := newEngine(t)
	item := intakeLaptop(t, e)

	rec, err := e.Transfer(ctx, item.ID, 2, 3, "lab handoff")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if rec.FromUserID != 2 || rec.ToUserID != 3 {
		t.Errorf("record from/to: got %d/%d, want 2/3", rec.FromUserID, rec.ToUserID)
	}

	head, err := e.VerifyChain(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !head.Valid {
		t.Errorf("chain invalid after transfer: %+v", head)
	}

	_, err = e.Transfer(ctx, item.ID, 2, 4, "stale sender")
	if !errors.Is(err, custody.ErrNotCustodian) {
		t.Errorf("expected ErrNotCustodian, got %v", err)
	}
}

func TestTransfer_continuityAcrossManyHops(t *testing.T) {
	e, store := newEngine(t)
	item := intakeLaptop(t, e)

	hops := []struct{ from, to int64 }{{2, 3}, {3, 4}, {4, 2}}
	for _, h := range hops {
		if _, err := e.Transfer(ctx, item.ID, h.from, h.to, ""); err != nil {
			t.Fatalf("transfer %d→%d: %v", h.from, h.to, err)
		}
	}

	recs, err := store.Transfers(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].FromUserID != recs[i-1].ToUserID {
			t.Errorf("continuity broken at index %d: from=%d, prev.to=%d",
				i, recs[i].FromUserID, recs[i-1].ToUserID)
		}
	}

	res, err := e.VerifyChain(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid {
		t.Errorf("chain invalid after %d hops: %+v", len(hops), res)
	}
}

func TestTransfer_unknownEvidence(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Transfer(ctx, 404, 2, 3, "")
	if !errors.Is(err, custody.ErrEvidenceNotFound) {
		t.Errorf("expected ErrEvidenceNotFound, got %v", err)
	}
}

func TestTransfer_rejectedSenderLeavesNoRecord(t *testing.T) {
	e, store := newEngine(t)
	item := intakeLaptop(t, e)

	_, err := e.Transfer(ctx, item.ID, 3, 4, "not the custodian")
	if !errors.Is(err, custody.ErrNotCustodian) {
		t.Fatalf("expected ErrNotCustodian, got %v", err)
	}

	recs, _ := store.Transfers(ctx, item.ID)
	if len(recs) != 1 {
		t.Errorf("failed transfer must not append a record: got %d records", len(recs))
	}
	got, _ := store.GetEvidence(ctx, item.ID)
	if got.CurrentCustodianID != 2 || got.Status != custody.StatusCheckedIn {
		t.Errorf("failed transfer must not mutate head state: custodian=%d status=%q",
			got.CurrentCustodianID, got.Status)
	}
}

func TestVerifyChain_detectsTamperedNotes(t *testing.T) {
	e, store := newEngine(t)
	item := intakeLaptop(t, e)
	rec, err := e.Transfer(ctx, item.ID, 2, 3, "lab handoff")
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a direct edit behind the engine's back.
	recs, _ := store.Transfers(ctx, item.ID)
	recs[1].Notes = "nothing to see here"

	res, err := e.VerifyChain(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Fatal("tampered chain reported valid")
	}
	if res.BrokenAt != rec.ID {
		t.Errorf("broken at: got %d, want %d", res.BrokenAt, rec.ID)
	}
}

func TestVerifyChain_detectsRewrittenRecipient(t *testing.T) {
	e, store := newEngine(t)
	item := intakeLaptop(t, e)
	if _, err := e.Transfer(ctx, item.ID, 2, 3, ""); err != nil {
		t.Fatal(err)
	}
	second, err := e.Transfer(ctx, item.ID, 3, 4, "")
	if err != nil {
		t.Fatal(err)
	}

	recs, _ := store.Transfers(ctx, item.ID)
	recs[1].ToUserID = 4 // break both the middle hash and continuity to record 3

	res, err := e.VerifyChain(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Fatal("tampered chain reported valid")
	}
	if res.BrokenAt != recs[1].ID && res.BrokenAt != second.ID {
		t.Errorf("broken at: got %d, want %d or %d", res.BrokenAt, recs[1].ID, second.ID)
	}
}

func TestVerifyChain_detectsTamperedGenesis(t *testing.T) {
	e, store := newEngine(t)
	item := intakeLaptop(t, e)

	recs, _ := store.Transfers(ctx, item.ID)
	recs[0].FromUserID = 3

	res, err := e.VerifyChain(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Fatal("tampered genesis reported valid")
	}
	if res.BrokenAt != recs[0].ID {
		t.Errorf("broken at: got %d, want genesis %d", res.BrokenAt, recs[0].ID)
	}
}

func TestVerifyChain_detectsHeadStateEdit(t *testing.T) {
	e, store := newEngine(t)
	item := intakeLaptop(t, e)

	head, _ := store.GetEvidence(ctx, item.ID)
	head.CurrentCustodianID = 4 // direct edit of the denormalized head

	res, err := e.VerifyChain(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Error("edited head state reported valid")
	}
}

func TestVerifyChain_unknownEvidence(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.VerifyChain(ctx, 404)
	if !errors.Is(err, custody.ErrEvidenceNotFound) {
		t.Errorf("expected ErrEvidenceNotFound, got %v", err)
	}
}

// Two transfers racing on one item: exactly one may win; the loser must not
// fork the chain by reusing the winner's predecessor hash.
func TestTransfer_concurrentSameItem(t *testing.T) {
	e, store := newEngine(t)
	item := intakeLaptop(t, e)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, to := range []int64{3, 4} {
		wg.Add(1)
		go func(i int, to int64) {
			defer wg.Done()
			_, errs[i] = e.Transfer(ctx, item.ID, 2, to, "race")
		}(i, to)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, custody.ErrNotCustodian) {
			t.Errorf("loser failed with unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	recs, _ := store.Transfers(ctx, item.ID)
	if len(recs) != 2 {
		t.Errorf("expected genesis + one transfer, got %d records", len(recs))
	}
	res, _ := e.VerifyChain(ctx, item.ID)
	if !res.Valid {
		t.Errorf("chain invalid after race: %+v", res)
	}
}

// failingEmitter always errors; custody operations must still succeed.
type failingEmitter struct{}

func (failingEmitter) Record(context.Context, int64, string, string) error {
	return errors.New("audit sink unavailable")
}

func TestAuditFailure_neverAbortsCustodyOps(t *testing.T) {
	store := custody.NewMemoryStore()
	store.AddCase(1)
	store.AddUser(1)
	store.AddUser(2)
	store.AddUser(3)
	e := custody.NewEngine(store, failingEmitter{}, zap.NewNop())

	item, _, err := e.Intake(ctx, custody.IntakeRequest{
		CaseID: 1, ItemName: "Phone", InitialHash: "fff", CreatorID: 1, CustodianID: 2,
	})
	if err != nil {
		t.Fatalf("intake must survive audit failure: %v", err)
	}
	if _, err := e.Transfer(ctx, item.ID, 2, 3, ""); err != nil {
		t.Fatalf("transfer must survive audit failure: %v", err)
	}
}
