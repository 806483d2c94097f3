package engine

import (
	"sync"
	"time"

	"github.com/streamkv/streamkv/kv/storage/record"
)

// Kind identifies what an Operation does to the store.
type Kind int

const (
	KindRead Kind = iota + 1
	KindWrite
	KindUpdate
	KindDelete
	KindScan
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindScan:
		return "scan"
	}
	return "unknown"
}

// An Operation is one unit of work against the store. It is immutable once
// submitted.
type Operation struct {
	Kind Kind
	Key  string
	// Value is the payload for Write and Update.
	Value []byte
	// ExpectVersion conditions an Update: the write succeeds only if the
	// stored version matches. Zero (never a stored version) means
	// unconditioned.
	ExpectVersion uint64
	// Limit bounds a Scan. <= 0 means no limit.
	Limit int
}

// Read returns the record stored under key.
func Read(key string) Operation {
	return Operation{Kind: KindRead, Key: key}
}

// Write blindly stores value under key, creating the record if needed.
func Write(key string, value []byte) Operation {
	return Operation{Kind: KindWrite, Key: key, Value: value}
}

// Update rewrites an existing record under its key latch. expect is the
// version the caller last observed; pass 0 to update unconditionally.
func Update(key string, value []byte, expect uint64) Operation {
	return Operation{Kind: KindUpdate, Key: key, Value: value, ExpectVersion: expect}
}

// Delete removes the record stored under key.
func Delete(key string) Operation {
	return Operation{Kind: KindDelete, Key: key}
}

// Scan reads up to limit records with key >= start in ascending key order.
func Scan(start string, limit int) Operation {
	return Operation{Kind: KindScan, Key: start, Limit: limit}
}

// Result is the outcome of an executed operation. Exactly one of the payload
// fields is meaningful, depending on the operation kind; Err is set for the
// failure taxonomy in errors.go.
type Result struct {
	Value   []byte
	Version uint64
	// Records holds Scan output.
	Records []record.Record
	Err     error
}

// A Handle is the caller's side of a submitted operation: a one-shot slot
// fulfilled by exactly one worker. Waiting never times out on its own;
// callers needing a bound use WaitTimeout.
type Handle struct {
	ch <-chan Result

	mu   sync.Mutex
	done bool
	res  Result
}

// Wait blocks until the operation has executed and returns its result.
// Repeated calls return the same result.
func (h *Handle) Wait() Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.done {
		h.res = <-h.ch
		h.done = true
	}
	return h.res
}

// WaitTimeout is Wait with an upper bound. It reports false if the result
// was not available in time; the operation still executes in full and a
// later Wait will observe it.
func (h *Handle) WaitTimeout(timeout time.Duration) (Result, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return h.res, true
	}
	select {
	case res := <-h.ch:
		h.res = res
		h.done = true
		return res, true
	case <-time.After(timeout):
		return Result{}, false
	}
}

// task pairs an operation with its result slot. finish fulfills the slot
// exactly once no matter how many paths report completion.
type task struct {
	op       Operation
	resultCh chan Result
	once     sync.Once
}

func newTask(op Operation) *task {
	return &task{op: op, resultCh: make(chan Result, 1)}
}

func (t *task) finish(res Result) {
	t.once.Do(func() {
		t.resultCh <- res
		close(t.resultCh)
	})
}

func (t *task) handle() *Handle {
	return &Handle{ch: t.resultCh}
}
