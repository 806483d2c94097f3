package engine

import (
	"fmt"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/streamkv/streamkv/kv/storage/record"
)

// runWorker is the loop of one pool worker: dequeue, execute, fulfill the
// task's slot, repeat until the queue is closed and drained.
func (e *Engine) runWorker(id string) {
	defer e.wg.Done()
	for {
		t, ok := e.queue.dequeue()
		if !ok {
			log.Debug("worker exiting", zap.String("worker", id))
			return
		}
		e.executeTask(id, t)
	}
}

// executeTask runs one task and delivers its result. A panic while executing
// is caught here, reported as an Internal result, and the worker moves on to
// the next task; one failing operation never stalls the pool.
func (e *Engine) executeTask(id string, t *task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("task execution panicked",
				zap.String("worker", id),
				zap.String("kind", t.op.Kind.String()),
				zap.String("key", t.op.Key),
				zap.Reflect("panic", r))
			res := Result{Err: &InternalError{Reason: fmt.Sprintf("panic: %v", r)}}
			t.finish(res)
			taskCounter.WithLabelValues(t.op.Kind.String(), resultLabel(res.Err)).Inc()
		}
	}()

	res := e.apply(id, t.op)
	t.finish(res)
	taskCounter.WithLabelValues(t.op.Kind.String(), resultLabel(res.Err)).Inc()
	taskDuration.WithLabelValues(t.op.Kind.String()).Observe(time.Since(start).Seconds())
}

// apply executes op against the store. Every single-key operation runs
// inside its key's latch; the latch is the concurrency control mechanism,
// and nothing outside this function touches the store.
func (e *Engine) apply(worker string, op Operation) Result {
	var res Result
	switch op.Kind {
	case KindRead:
		e.latches.WithKey(op.Key, func() error {
			rec, err := e.store.Get(op.Key)
			if err != nil {
				res.Err = err
				return err
			}
			res.Value = rec.Value
			res.Version = rec.Version
			return nil
		})

	case KindWrite:
		e.latches.WithKey(op.Key, func() error {
			res.Version = e.store.Put(op.Key, op.Value, worker)
			return nil
		})

	case KindUpdate:
		e.latches.WithKey(op.Key, func() error {
			rec, err := e.store.Get(op.Key)
			if err != nil {
				res.Err = err
				return err
			}
			if op.ExpectVersion != 0 && rec.Version != op.ExpectVersion {
				res.Err = &record.ConflictError{
					Key:      op.Key,
					Expected: op.ExpectVersion,
					Actual:   rec.Version,
				}
				return res.Err
			}
			// The latch excludes every other writer of this key, so the
			// conditioned put below cannot conflict. If it does, the latch
			// protocol has been violated somewhere.
			version, err := e.store.PutIf(op.Key, op.Value, rec.Version, worker)
			if err != nil {
				log.Error("conditioned write failed under latch",
					zap.String("worker", worker),
					zap.String("key", op.Key),
					zap.Error(err))
				res.Err = &InternalError{Reason: err.Error()}
				return res.Err
			}
			res.Value = op.Value
			res.Version = version
			return nil
		})

	case KindDelete:
		e.latches.WithKey(op.Key, func() error {
			version, err := e.store.Delete(op.Key)
			if err != nil {
				res.Err = err
				return err
			}
			res.Version = version
			return nil
		})

	case KindScan:
		// Scans take no latches: the store serves a structural snapshot and
		// single-key atomicity is all the engine promises.
		res.Records = e.store.Scan(op.Key, op.Limit)

	default:
		res.Err = &InternalError{Reason: fmt.Sprintf("unknown operation kind %d", op.Kind)}
	}
	return res
}
