package custody

import "errors"

// Error taxonomy for custody operations. Callers classify with errors.Is;
// every error raised inside an atomic unit causes a full rollback of that
// unit, so none of these ever leaves partial state behind.
var (
	// ErrValidation covers bad input: unknown case, unknown actor, empty
	// content hash. No mutation is attempted.
	ErrValidation = errors.New("validation failed")

	// ErrEvidenceNotFound is returned when the referenced evidence item does
	// not exist.
	ErrEvidenceNotFound = errors.New("evidence item not found")

	// ErrNotCustodian is the core access-control rule of the system: the
	// sender of a transfer must be the item's current custodian. It is
	// independent of any role/permission layer.
	ErrNotCustodian = errors.New("user is not the current custodian of this item")

	// ErrGenesisMissing indicates a malformed chain: the item exists but has
	// no transfer records, so it was not created through Intake.
	ErrGenesisMissing = errors.New("genesis transfer record not found")

	// ErrHashCollision is raised when a link hash collides with an existing
	// one. link_hash is globally unique in the store; a duplicate means either
	// a forked chain or tampering.
	ErrHashCollision = errors.New("link hash already exists")

	// ErrStorage wraps persistence-layer failures, including lock and
	// transaction timeouts. The underlying cause is attached via %w chaining.
	ErrStorage = errors.New("storage failure")
)
