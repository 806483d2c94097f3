package record

import (
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 32

// Store is the authoritative mapping of keys to versioned records, kept in an
// ordered in-memory tree. The store is not a concurrency control mechanism:
// read-modify-write atomicity for a key is provided by the caller holding
// that key's latch. The internal mutex only protects the tree structure
// itself, so that writers of disjoint keys and snapshot scans never corrupt
// it.
type Store struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func NewStore() *Store {
	return &Store{tree: btree.New(btreeDegree)}
}

// Get returns a copy of the record stored under key, or NotFoundError.
func (s *Store) Get(key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.tree.Get(&Record{Key: key})
	if item == nil {
		return nil, &NotFoundError{Key: key}
	}
	rec := item.(*Record)
	cp := *rec
	cp.Value = append([]byte(nil), rec.Value...)
	return &cp, nil
}

// Put unconditionally writes value under key and returns the new version.
// A first write to a key creates the record at version 1.
func (s *Store) Put(key string, value []byte, writer string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(key, value, writer)
}

// PutIf writes value under key only if the stored version equals expect.
// A missing record fails with NotFoundError, a version mismatch with
// ConflictError.
func (s *Store) PutIf(key string, value []byte, expect uint64, writer string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.tree.Get(&Record{Key: key})
	if item == nil {
		return 0, &NotFoundError{Key: key}
	}
	if actual := item.(*Record).Version; actual != expect {
		return 0, &ConflictError{Key: key, Expected: expect, Actual: actual}
	}
	return s.putLocked(key, value, writer), nil
}

func (s *Store) putLocked(key string, value []byte, writer string) uint64 {
	rec := &Record{
		Key:        key,
		Value:      append([]byte(nil), value...),
		Version:    1,
		LastWriter: writer,
	}
	if prev := s.tree.Get(&Record{Key: key}); prev != nil {
		rec.Version = prev.(*Record).Version + 1
	}
	s.tree.ReplaceOrInsert(rec)
	return rec.Version
}

// Delete removes the record stored under key and returns its final version.
// A later write to the same key starts a fresh version sequence at 1.
func (s *Store) Delete(key string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.tree.Delete(&Record{Key: key})
	if item == nil {
		return 0, &NotFoundError{Key: key}
	}
	return item.(*Record).Version, nil
}

// Scan returns copies of up to limit records with key >= start, in ascending
// key order. limit <= 0 means no limit. The result is a structural snapshot:
// it promises nothing about cross-key consistency.
func (s *Store) Scan(start string, limit int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	s.tree.AscendGreaterOrEqual(&Record{Key: start}, func(item btree.Item) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		rec := item.(*Record)
		cp := *rec
		cp.Value = append([]byte(nil), rec.Value...)
		out = append(out, cp)
		return true
	})
	return out
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}
