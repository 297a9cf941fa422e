package custody

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

// An item with no transfer log was not created through Intake; appending to
// it must fail rather than silently start a new chain.
func TestTransfer_genesisMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddUser(2)
	store.AddUser(3)

	// Inject a head row with no log, bypassing Intake.
	store.items[7] = &EvidenceItem{ID: 7, CurrentCustodianID: 2, Status: StatusCheckedIn}

	e := NewEngine(store, nil, zap.NewNop())
	_, err := e.Transfer(ctx, 7, 2, 3, "")
	if !errors.Is(err, ErrGenesisMissing) {
		t.Errorf("expected ErrGenesisMissing, got %v", err)
	}
}

func TestVerifyChain_genesisMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.items[7] = &EvidenceItem{ID: 7, CurrentCustodianID: 2}

	e := NewEngine(store, nil, zap.NewNop())
	res, err := e.VerifyChain(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Error("item without a genesis record reported valid")
	}
}

// Duplicate link hashes are rejected by the store's uniqueness constraint.
func TestAppendTransfer_hashCollision(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddCase(1)
	store.AddUser(1)
	store.AddUser(2)

	e := NewEngine(store, nil, zap.NewNop())
	item, _, err := e.Intake(ctx, IntakeRequest{
		CaseID: 1, ItemName: "Drive", InitialHash: "aaa", CreatorID: 1, CustodianID: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	dupHash := store.transfers[item.ID][0].LinkHash
	_, err = store.AppendTransfer(ctx, item.ID, func(_ *EvidenceItem, last *TransferRecord) (*TransferRecord, error) {
		return &TransferRecord{EvidenceID: item.ID, FromUserID: 2, ToUserID: 1, LinkHash: dupHash}, nil
	})
	if !errors.Is(err, ErrHashCollision) {
		t.Errorf("expected ErrHashCollision, got %v", err)
	}
}

func TestDeleteEvidence_underAnalysisGuard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddCase(1)
	store.AddUser(1)
	store.AddUser(2)

	e := NewEngine(store, nil, zap.NewNop())
	item, _, err := e.Intake(ctx, IntakeRequest{
		CaseID: 1, ItemName: "Drive", InitialHash: "aaa", CreatorID: 1, CustodianID: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.UpdateStatus(ctx, item.ID, StatusUnderAnalysis); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteEvidence(ctx, item.ID); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation while under analysis, got %v", err)
	}

	if err := store.UpdateStatus(ctx, item.ID, StatusArchived); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteEvidence(ctx, item.ID); err != nil {
		t.Fatalf("delete archived item: %v", err)
	}
	if _, err := store.GetEvidence(ctx, item.ID); !errors.Is(err, ErrEvidenceNotFound) {
		t.Errorf("expected ErrEvidenceNotFound after delete, got %v", err)
	}
}

// Deleting an item releases its link hashes, so re-acquiring the same content
// later must not be misread as a chain collision.
func TestDeleteEvidence_releasesLinkHashes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.AddCase(1)
	store.AddUser(1)
	store.AddUser(2)

	e := NewEngine(store, nil, zap.NewNop())
	item, _, err := e.Intake(ctx, IntakeRequest{
		CaseID: 1, ItemName: "Drive", InitialHash: "aaa", CreatorID: 1, CustodianID: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	genesisHash := store.transfers[item.ID][0].LinkHash
	if err := store.DeleteEvidence(ctx, item.ID); err != nil {
		t.Fatal(err)
	}

	if _, held := store.hashes[genesisHash]; held {
		t.Error("deleted item's link hash still held by the store")
	}
	if _, _, err := e.Intake(ctx, IntakeRequest{
		CaseID: 1, ItemName: "Drive", InitialHash: "aaa", CreatorID: 1, CustodianID: 2,
	}); err != nil {
		t.Fatalf("re-intake after delete: %v", err)
	}
}
