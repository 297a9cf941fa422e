package custody

import "time"

// Status is the lifecycle state of an evidence item's head record.
type Status string

const (
	// StatusCheckedIn means only the genesis transfer exists: the item is held
	// by its initial custodian.
	StatusCheckedIn Status = "Checked In"
	// StatusTransferred means at least one custody hand-off has occurred.
	StatusTransferred Status = "Transferred"
	// StatusUnderAnalysis and StatusArchived are set by the surrounding case
	// workflow, not by the custody engine.
	StatusUnderAnalysis Status = "Under Analysis"
	StatusArchived      Status = "Archived"
)

// EvidenceItem is the mutable head state of one physical or digital artifact.
// CurrentCustodianID and Status are a denormalized cache of the chain tail:
// after every committed transfer, CurrentCustodianID equals the To of the most
// recent TransferRecord. The custody engine owns both fields; descriptive
// metadata belongs to the case layer.
type EvidenceItem struct {
	ID                 int64     `json:"evidence_id"`
	CaseID             int64     `json:"case_id"`
	ItemName           string    `json:"item_name"`
	Description        string    `json:"description"`
	EvidenceType       string    `json:"evidence_type"` // "Digital", "Physical"
	InitialHash        string    `json:"initial_hash"`  // content hash captured at acquisition
	Status             Status    `json:"status"`
	CurrentCustodianID int64     `json:"current_custodian_id"`
	AcquiredAt         time.Time `json:"acquired_at"`
}

// TransferRecord is one immutable link in an evidence item's custody chain.
// Rows are append-only: no field is ever updated or deleted; undoing custody
// means appending a new transfer back to the previous holder.
type TransferRecord struct {
	ID         int64     `json:"transfer_id"`
	EvidenceID int64     `json:"evidence_id"`
	FromUserID int64     `json:"from_user_id"`
	ToUserID   int64     `json:"to_user_id"`
	Timestamp  time.Time `json:"transfer_timestamp"` // assigned server-side at commit
	Notes      string    `json:"notes"`
	LinkHash   string    `json:"link_hash"` // see hash.go for the chain format
}

// TransferLogEntry is one transfer joined with the display names of both
// parties, as served by the global transfer log.
type TransferLogEntry struct {
	TransferRecord
	FromUserName string `json:"from_user_name"`
	ToUserName   string `json:"to_user_name"`
}

// VerifyResult is the outcome of a full chain verification pass.
// When Valid is false, BrokenAt identifies the first transfer at which either
// the recomputed link hash or the custodian continuity check failed.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	BrokenAt int64  `json:"broken_at_transfer_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
