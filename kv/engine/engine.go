// Package engine is an in-process concurrent data engine: an in-memory
// versioned record store that a fixed pool of workers reads and writes
// through fair per-key latches. Callers submit operations and receive a
// handle resolving to the eventual result; operations on disjoint keys run
// in parallel, operations on the same key are serialized in latch-arrival
// order.
package engine

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/streamkv/streamkv/kv/config"
	"github.com/streamkv/streamkv/kv/storage/latches"
	"github.com/streamkv/streamkv/kv/storage/record"
)

// State is the worker pool lifecycle. It only moves forward:
// Idle -> Running -> Draining -> Stopped.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Engine owns a store, its latch table and a worker pool. Engines are
// self-contained: nothing is process-global, so independent engines can
// coexist in one process.
type Engine struct {
	workers int
	store   *record.Store
	latches *latches.Latches
	queue   *taskQueue
	state   *atomic.Int32
	wg      sync.WaitGroup
}

// New builds an engine from conf without starting any workers. A
// non-positive concurrency falls back to the available parallelism.
func New(conf *config.Config) *Engine {
	workers := conf.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		workers: workers,
		store:   record.NewStore(),
		latches: latches.NewLatches(),
		queue:   newTaskQueue(),
		state:   atomic.NewInt32(int32(StateIdle)),
	}
}

// Start launches the worker pool. Starting twice is a no-op.
func (e *Engine) Start() {
	if !e.state.CAS(int32(StateIdle), int32(StateRunning)) {
		return
	}
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.runWorker(fmt.Sprintf("worker-%d", i))
	}
	log.Info("engine started", zap.Int("workers", e.workers))
}

// Submit wraps op in a task, enqueues it and immediately returns a handle
// for the eventual result. Submit never blocks; after Shutdown it fails
// with ErrClosed and nothing is enqueued. Every accepted operation executes
// exactly once, even if the caller abandons the handle.
func (e *Engine) Submit(op Operation) (*Handle, error) {
	t := newTask(op)
	if !e.queue.enqueue(t) {
		return nil, errors.Trace(ErrClosed)
	}
	return t.handle(), nil
}

// Shutdown stops accepting submissions and closes the queue. With drain set
// it blocks until every queued and in-flight task has resolved; otherwise
// the workers drain asynchronously and the pool reaches Stopped on its own.
func (e *Engine) Shutdown(drain bool) {
	if !e.state.CAS(int32(StateRunning), int32(StateDraining)) &&
		!e.state.CAS(int32(StateIdle), int32(StateDraining)) {
		return
	}
	log.Info("engine draining", zap.Int("queued", e.queue.depth()))
	e.queue.close()
	if drain {
		e.stop()
		return
	}
	go e.stop()
}

func (e *Engine) stop() {
	e.wg.Wait()
	// If the pool never ran, fail whatever is still queued rather than leave
	// its handles pending forever.
	for _, t := range e.queue.drain() {
		t.finish(Result{Err: errors.Trace(ErrClosed)})
	}
	e.state.Store(int32(StateStopped))
	log.Info("engine stopped")
}

// State returns the pool lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// QueueDepth returns the number of tasks waiting for a worker.
func (e *Engine) QueueDepth() int {
	return e.queue.depth()
}
