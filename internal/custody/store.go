package custody

import "context"

// Store is the transactional ledger store consumed by the Engine. It owns two
// tables: the mutable evidence head state and the append-only transfer log.
// Both closure-style methods run their callback inside one atomic unit against
// a consistent snapshot; if the callback or any write fails, the whole unit
// rolls back and no partial state is ever observable.
//
// Two implementations are provided: PostgresStore for production and
// MemoryStore for tests and single-process development.
type Store interface {
	// Intake atomically allocates the evidence item row and writes its genesis
	// transfer. genesis is called with the store-assigned evidence ID inside
	// the same unit; the record it returns is committed together with the
	// item, or neither is.
	Intake(ctx context.Context, item *EvidenceItem, genesis func(evidenceID int64) *TransferRecord) error

	// AppendTransfer runs build against the item's current head state and its
	// most recent transfer record, both read under a lock that serialises
	// concurrent appends on the same item (appends on different items do not
	// block each other). last is nil when the item has no transfer records.
	// When build succeeds, the returned record is inserted and the item's
	// custodian and status are updated to match it, all in the same unit.
	AppendTransfer(ctx context.Context, evidenceID int64, build func(item *EvidenceItem, last *TransferRecord) (*TransferRecord, error)) (*TransferRecord, error)

	// GetEvidence returns the head state for one item, or ErrEvidenceNotFound.
	GetEvidence(ctx context.Context, id int64) (*EvidenceItem, error)

	// Transfers returns the item's full transfer log ordered by timestamp
	// ascending (ties broken by transfer ID).
	Transfers(ctx context.Context, evidenceID int64) ([]*TransferRecord, error)

	// AllTransfers returns the most recent transfers across every item,
	// newest first, with the display names of both parties joined in. limit
	// caps the result size; limit <= 0 means no cap.
	AllTransfers(ctx context.Context, limit int) ([]*TransferLogEntry, error)

	// EvidenceByCase returns the head state of every item filed under one
	// case, ordered by evidence ID.
	EvidenceByCase(ctx context.Context, caseID int64) ([]*EvidenceItem, error)

	// UpdateStatus sets a workflow status (Under Analysis, Archived) on the
	// head state. It never touches the custodian and is not part of the chain.
	UpdateStatus(ctx context.Context, id int64, status Status) error

	// DeleteEvidence removes an item together with its entire transfer log.
	// An item whose head status is Under Analysis is protected: the call
	// fails with ErrValidation until the status moves on.
	DeleteEvidence(ctx context.Context, id int64) error

	// CaseExists and UserExists are the validation hooks for Intake
	// preconditions.
	CaseExists(ctx context.Context, caseID int64) (bool, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
}
