package record

import (
	"fmt"

	"github.com/google/btree"
)

// A Record is one versioned entry in the store. Version starts at 1 on the
// key's first write and increments by exactly one on every successful write,
// so the versions observed for a key form a gap-free sequence for as long as
// the record exists. LastWriter identifies the worker that performed the most
// recent write.
type Record struct {
	Key        string
	Value      []byte
	Version    uint64
	LastWriter string
}

func (r *Record) Less(than btree.Item) bool {
	return r.Key < than.(*Record).Key
}

// NotFoundError is returned when reading, updating or deleting a key that has
// never been written (or has been deleted).
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("key not found: %q", e.Key)
}

// ConflictError is returned by a conditioned put whose expected version does
// not match the stored version.
type ConflictError struct {
	Key      string
	Expected uint64
	Actual   uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %q: expected %d, stored %d", e.Key, e.Expected, e.Actual)
}
