package custody

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation. It is
// primarily useful for testing and for single-process deployments that do not
// require durable persistence across restarts. A single mutex serialises all
// appends; the per-item lock granularity of PostgresStore is not reproduced.
type MemoryStore struct {
	mu        sync.RWMutex
	items     map[int64]*EvidenceItem
	transfers map[int64][]*TransferRecord // keyed by evidence ID, append order
	hashes    map[string]struct{}         // link_hash uniqueness constraint
	cases     map[int64]struct{}
	users     map[int64]string // ID to display name; "" for unnamed test users

	nextEvidenceID int64
	nextTransferID int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:     make(map[int64]*EvidenceItem),
		transfers: make(map[int64][]*TransferRecord),
		hashes:    make(map[string]struct{}),
		cases:     make(map[int64]struct{}),
		users:     make(map[int64]string),
	}
}

// AddCase registers a case ID so that CaseExists reports it.
func (s *MemoryStore) AddCase(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[id] = struct{}{}
}

// AddUser registers a user ID so that UserExists reports it.
func (s *MemoryStore) AddUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = ""
}

// AddUserWithName registers a user ID together with the display name that
// AllTransfers joins into its entries.
func (s *MemoryStore) AddUserWithName(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = name
}

// Intake implements Store.
func (s *MemoryStore) Intake(_ context.Context, item *EvidenceItem, genesis func(evidenceID int64) *TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEvidenceID++
	item.ID = s.nextEvidenceID
	rec := genesis(item.ID)

	if _, dup := s.hashes[rec.LinkHash]; dup {
		item.ID = 0
		return fmt.Errorf("%w: %s", ErrHashCollision, rec.LinkHash)
	}

	s.nextTransferID++
	rec.ID = s.nextTransferID
	s.items[item.ID] = item
	s.transfers[item.ID] = append(s.transfers[item.ID], rec)
	s.hashes[rec.LinkHash] = struct{}{}
	return nil
}

// AppendTransfer implements Store.
func (s *MemoryStore) AppendTransfer(_ context.Context, evidenceID int64, build func(item *EvidenceItem, last *TransferRecord) (*TransferRecord, error)) (*TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[evidenceID]
	if !ok {
		return nil, fmt.Errorf("%w: evidence %d", ErrEvidenceNotFound, evidenceID)
	}

	var last *TransferRecord
	if log := s.transfers[evidenceID]; len(log) > 0 {
		last = log[len(log)-1]
	}

	rec, err := build(item, last)
	if err != nil {
		return nil, err
	}
	if _, dup := s.hashes[rec.LinkHash]; dup {
		return nil, fmt.Errorf("%w: %s", ErrHashCollision, rec.LinkHash)
	}

	s.nextTransferID++
	rec.ID = s.nextTransferID
	s.transfers[evidenceID] = append(s.transfers[evidenceID], rec)
	s.hashes[rec.LinkHash] = struct{}{}
	item.CurrentCustodianID = rec.ToUserID
	item.Status = StatusTransferred
	return rec, nil
}

// GetEvidence implements Store.
func (s *MemoryStore) GetEvidence(_ context.Context, id int64) (*EvidenceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: evidence %d", ErrEvidenceNotFound, id)
	}
	return item, nil
}

// Transfers implements Store.
func (s *MemoryStore) Transfers(_ context.Context, evidenceID int64) ([]*TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.transfers[evidenceID]
	out := make([]*TransferRecord, len(log))
	copy(out, log)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AllTransfers implements Store.
func (s *MemoryStore) AllTransfers(_ context.Context, limit int) ([]*TransferLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*TransferLogEntry
	for _, log := range s.transfers {
		for _, rec := range log {
			out = append(out, &TransferLogEntry{
				TransferRecord: *rec,
				FromUserName:   s.users[rec.FromUserID],
				ToUserName:     s.users[rec.ToUserID],
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// EvidenceByCase implements Store.
func (s *MemoryStore) EvidenceByCase(_ context.Context, caseID int64) ([]*EvidenceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceItem
	for _, item := range s.items {
		if item.CaseID == caseID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteEvidence implements Store. The item's link hashes are released so
// a later intake of the same content hash is not misread as a collision.
func (s *MemoryStore) DeleteEvidence(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: evidence %d", ErrEvidenceNotFound, id)
	}
	if item.Status == StatusUnderAnalysis {
		return fmt.Errorf("%w: evidence %d is under analysis and cannot be deleted", ErrValidation, id)
	}
	for _, rec := range s.transfers[id] {
		delete(s.hashes, rec.LinkHash)
	}
	delete(s.transfers, id)
	delete(s.items, id)
	return nil
}

// UpdateStatus implements Store.
func (s *MemoryStore) UpdateStatus(_ context.Context, id int64, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: evidence %d", ErrEvidenceNotFound, id)
	}
	item.Status = status
	return nil
}

// CaseExists implements Store.
func (s *MemoryStore) CaseExists(_ context.Context, caseID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cases[caseID]
	return ok, nil
}

// UserExists implements Store.
func (s *MemoryStore) UserExists(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}
