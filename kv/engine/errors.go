package engine

import (
	"fmt"

	"github.com/pingcap/errors"

	"github.com/streamkv/streamkv/kv/storage/record"
)

// ErrClosed is returned by Submit once shutdown has been requested.
var ErrClosed = errors.New("engine closed")

// InternalError reports an unexpected failure while executing an operation,
// e.g. a panic caught at the worker boundary. It is delivered through the
// task's handle like every other failure; it never crashes a worker.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Reason)
}

// IsNotFound reports whether err is a read, update or delete of a key that
// has never been written.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*record.NotFoundError)
	return ok
}

// IsConflict reports whether err is a conditioned update that failed its
// version check. The caller may re-read and resubmit with a fresh version.
func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*record.ConflictError)
	return ok
}

// IsClosed reports whether err is a submission rejected after shutdown.
func IsClosed(err error) bool {
	return errors.Cause(err) == ErrClosed
}

// IsInternal reports whether err is a worker-boundary failure.
func IsInternal(err error) bool {
	_, ok := errors.Cause(err).(*InternalError)
	return ok
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	case IsConflict(err):
		return "conflict"
	default:
		return "internal"
	}
}
