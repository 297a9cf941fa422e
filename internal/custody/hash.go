package custody

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// ChainFormatVersion identifies the canonical hashing format used for custody
// chain links. Any change to the field order, the delimiter, or the timestamp
// encoding is a breaking format change and must bump this version.
//
// Format v1:
//   - digest: SHA-256, lowercase hex
//   - fields joined with "," in a fixed order
//   - genesis link (no predecessor): initialHash, evidenceID, creatorID, custodianID
//   - link i >= 1: prevHash, evidenceID, fromID, toID, timestamp, notes
//   - timestamps: UTC, RFC3339Nano, truncated to microseconds
//
// The genesis link deliberately chains from the item's content hash and the
// creating identities rather than from a prior link; that is the documented
// root-of-chain convention, not an oversight.
const ChainFormatVersion = 1

// digest computes the v1 chain digest over the given fields.
func digest(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, ",")))
	return hex.EncodeToString(sum[:])
}

// genesisHash computes the root link hash for a newly created evidence item.
func genesisHash(initialHash string, evidenceID, creatorID, custodianID int64) string {
	return digest(
		initialHash,
		strconv.FormatInt(evidenceID, 10),
		strconv.FormatInt(creatorID, 10),
		strconv.FormatInt(custodianID, 10),
	)
}

// linkHash computes the hash of a non-genesis transfer, binding it to its
// predecessor via prevHash.
func linkHash(prevHash string, evidenceID, fromID, toID int64, ts time.Time, notes string) string {
	return digest(
		prevHash,
		strconv.FormatInt(evidenceID, 10),
		strconv.FormatInt(fromID, 10),
		strconv.FormatInt(toID, 10),
		canonicalTime(ts),
		notes,
	)
}

// canonicalTime renders a timestamp in the v1 canonical form. Precision is
// truncated to microseconds so that a hash computed before commit can be
// reproduced from the stored row (Postgres timestamptz is microsecond-precise).
func canonicalTime(ts time.Time) string {
	return ts.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}
