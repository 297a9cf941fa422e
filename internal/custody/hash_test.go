package custody

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"
)

func TestDigest_canonicalForm(t *testing.T) {
	sum := sha256.Sum256([]byte("abc123,7,1,2"))
	want := hex.EncodeToString(sum[:])

	if got := genesisHash("abc123", 7, 1, 2); got != want {
		t.Errorf("genesisHash: got %q, want %q", got, want)
	}
}

func TestDigest_fieldOrderMatters(t *testing.T) {
	if genesisHash("h", 1, 2, 3) == genesisHash("h", 1, 3, 2) {
		t.Error("swapping creator and custodian must change the genesis hash")
	}
}

func TestLinkHash_deterministic(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	a := linkHash("prev", 42, 2, 3, ts, "lab handoff")
	b := linkHash("prev", 42, 2, 3, ts, "lab handoff")
	if a != b {
		t.Errorf("linkHash not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestLinkHash_notesChangeHash(t *testing.T) {
	ts := time.Now().UTC()
	if linkHash("p", 1, 2, 3, ts, "a") == linkHash("p", 1, 2, 3, ts, "b") {
		t.Error("notes must be bound into the link hash")
	}
}

// A timestamp hashed before commit must produce the same canonical form after
// a round-trip through microsecond-precision storage.
func TestCanonicalTime_survivesMicrosecondStorage(t *testing.T) {
	ts := time.Now().UTC().Truncate(time.Microsecond)
	stored := ts.Truncate(time.Microsecond) // what timestamptz gives back

	if canonicalTime(ts) != canonicalTime(stored) {
		t.Errorf("canonical form changed across storage round-trip: %q vs %q",
			canonicalTime(ts), canonicalTime(stored))
	}
}

func TestCanonicalTime_normalisesZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)
	if canonicalTime(ts) != canonicalTime(ts.UTC()) {
		t.Error("canonicalTime must normalise to UTC")
	}
}
