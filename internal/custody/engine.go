// Package custody implements the hash-chained chain-of-custody ledger for
// evidence items.
//
// Every evidence item carries an append-only sequence of transfer records.
// Each record's link hash binds it to its predecessor (see hash.go for the
// chain format), so any retroactive edit or reordering of the log is
// detectable by VerifyChain. The item's head state (current custodian,
// status) is a denormalized cache of the chain tail and is kept
// transactionally consistent with it by the Store.
package custody

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AuditEmitter records a human-readable trace of each state-changing custody
// action. Emitter failures are logged and suppressed: the audit trail must
// never abort a committed custody operation. *audit.Recorder satisfies this.
type AuditEmitter interface {
	Record(ctx context.Context, actorID int64, action, details string) error
}

// Engine orchestrates custody operations: genesis creation, transfer
// appending, and chain verification. It holds no mutable state of its own;
// all isolation comes from the Store's atomic units, so one Engine may be
// shared by any number of request handlers.
type Engine struct {
	store  Store
	audit  AuditEmitter // nil = no audit trail
	logger *zap.Logger
}

// NewEngine creates an Engine. audit may be nil to disable the audit trail.
func NewEngine(store Store, audit AuditEmitter, logger *zap.Logger) *Engine {
	return &Engine{store: store, audit: audit, logger: logger}
}

// IntakeRequest carries the inputs for registering a new evidence item.
// Actor identifiers are assumed to be already authenticated and resolved by
// the identity layer.
type IntakeRequest struct {
	CaseID       int64
	ItemName     string
	Description  string
	EvidenceType string // "Digital", "Physical"
	InitialHash  string // content hash captured at acquisition time
	CreatorID    int64  // actor logging the evidence
	CustodianID  int64  // actor receiving initial custody
}

// Intake creates a new evidence item together with its genesis transfer
// record, in one atomic unit. The genesis link chains from the item's content
// hash and the creating identities (the chain root convention, see hash.go);
// its From is the creator and its To the initial custodian.
//
// On success the item is visible with status Checked In and exactly one
// transfer record. On any failure nothing is visible: no orphan item, no
// orphan record.
func (e *Engine) Intake(ctx context.Context, req IntakeRequest) (*EvidenceItem, *TransferRecord, error) {
	if req.ItemName == "" || req.InitialHash == "" {
		return nil, nil, fmt.Errorf("%w: item_name and initial_hash are required", ErrValidation)
	}
	ok, err := e.store.CaseExists(ctx, req.CaseID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: case %d does not exist", ErrValidation, req.CaseID)
	}
	for _, uid := range []int64{req.CreatorID, req.CustodianID} {
		ok, err := e.store.UserExists(ctx, uid)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, fmt.Errorf("%w: user %d does not exist", ErrValidation, uid)
		}
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	item := &EvidenceItem{
		CaseID:             req.CaseID,
		ItemName:           req.ItemName,
		Description:        req.Description,
		EvidenceType:       req.EvidenceType,
		InitialHash:        req.InitialHash,
		Status:             StatusCheckedIn,
		CurrentCustodianID: req.CustodianID,
		AcquiredAt:         now,
	}

	var genesis *TransferRecord
	err = e.store.Intake(ctx, item, func(evidenceID int64) *TransferRecord {
		genesis = &TransferRecord{
			EvidenceID: evidenceID,
			FromUserID: req.CreatorID,
			ToUserID:   req.CustodianID,
			Timestamp:  now,
			Notes:      fmt.Sprintf("Initial check-in. Original hash: %s", req.InitialHash),
			LinkHash:   genesisHash(req.InitialHash, evidenceID, req.CreatorID, req.CustodianID),
		}
		return genesis
	})
	if err != nil {
		return nil, nil, err
	}

	e.emit(ctx, req.CreatorID, "CREATE_EVIDENCE",
		fmt.Sprintf("New evidence %q (ID: %d) created for case %d.", item.ItemName, item.ID, item.CaseID))
	return item, genesis, nil
}

// Transfer appends a custody hand-off to the item's chain. The whole
// read-validate-write cycle runs inside one atomic unit: the sender must be
// the current custodian at commit time, and the new link hash chains from the
// most recent record observed under the same lock, so two racing transfers on
// one item can never both chain from the same predecessor.
func (e *Engine) Transfer(ctx context.Context, evidenceID, fromUserID, toUserID int64, notes string) (*TransferRecord, error) {
	ok, err := e.store.UserExists(ctx, toUserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %d does not exist", ErrValidation, toUserID)
	}

	rec, err := e.store.AppendTransfer(ctx, evidenceID, func(item *EvidenceItem, last *TransferRecord) (*TransferRecord, error) {
		if item.CurrentCustodianID != fromUserID {
			return nil, fmt.Errorf("%w: custodian of evidence %d is user %d", ErrNotCustodian, evidenceID, item.CurrentCustodianID)
		}
		if last == nil {
			return nil, fmt.Errorf("%w: evidence %d has no transfer log", ErrGenesisMissing, evidenceID)
		}
		// Server-side timestamp: never caller-supplied, to prevent backdating.
		ts := time.Now().UTC().Truncate(time.Microsecond)
		return &TransferRecord{
			EvidenceID: evidenceID,
			FromUserID: fromUserID,
			ToUserID:   toUserID,
			Timestamp:  ts,
			Notes:      notes,
			LinkHash:   linkHash(last.LinkHash, evidenceID, fromUserID, toUserID, ts, notes),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, fromUserID, "TRANSFER_EVIDENCE",
		fmt.Sprintf("Evidence %d transferred from user %d to user %d.", evidenceID, fromUserID, toUserID))
	return rec, nil
}

// VerifyChain recomputes every link of the item's chain and checks custodian
// continuity, starting from the genesis rule. It is read-only and never
// mutates ledger state; it exists so an auditor can detect edits made behind
// the engine's back (e.g. a direct database UPDATE).
func (e *Engine) VerifyChain(ctx context.Context, evidenceID int64) (*VerifyResult, error) {
	item, err := e.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	recs, err := e.store.Transfers(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return &VerifyResult{Valid: false, Reason: "genesis record missing"}, nil
	}

	genesis := recs[0]
	if genesis.LinkHash != genesisHash(item.InitialHash, evidenceID, genesis.FromUserID, genesis.ToUserID) {
		return &VerifyResult{Valid: false, BrokenAt: genesis.ID, Reason: "genesis link hash mismatch"}, nil
	}

	prev := genesis
	for _, rec := range recs[1:] {
		if rec.FromUserID != prev.ToUserID {
			return &VerifyResult{Valid: false, BrokenAt: rec.ID, Reason: "custodian continuity broken"}, nil
		}
		if rec.LinkHash != linkHash(prev.LinkHash, evidenceID, rec.FromUserID, rec.ToUserID, rec.Timestamp, rec.Notes) {
			return &VerifyResult{Valid: false, BrokenAt: rec.ID, Reason: "link hash mismatch"}, nil
		}
		prev = rec
	}

	if item.CurrentCustodianID != prev.ToUserID {
		return &VerifyResult{Valid: false, BrokenAt: prev.ID, Reason: "head custodian does not match chain tail"}, nil
	}
	return &VerifyResult{Valid: true}, nil
}

// emit records an audit event in a non-fatal manner.
func (e *Engine) emit(ctx context.Context, actorID int64, action, details string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(ctx, actorID, action, details); err != nil {
		e.logger.Error("audit record failed (non-fatal)",
			zap.String("action", action),
			zap.Int64("actor_id", actorID),
			zap.Error(err),
		)
	}
}
