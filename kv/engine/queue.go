package engine

import "sync"

// taskQueue is the hand-off channel between Submit and the worker pool:
// FIFO, unbounded, with non-blocking enqueue. A bounded channel would make
// Submit block under load, so the queue is built from a mutex and condition
// variable instead.
type taskQueue struct {
	mu     sync.Mutex
	ready  *sync.Cond
	tasks  []*task
	closed bool
}

func newTaskQueue() *taskQueue {
	q := new(taskQueue)
	q.ready = sync.NewCond(&q.mu)
	return q
}

// enqueue appends t and returns true, or returns false if the queue has been
// closed. It never blocks.
func (q *taskQueue) enqueue(t *task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	queueDepth.Inc()
	q.ready.Signal()
	return true
}

// dequeue blocks until a task is available and returns it. Once the queue is
// closed and drained it returns false to every caller.
func (q *taskQueue) dequeue() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 && !q.closed {
		q.ready.Wait()
	}
	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	queueDepth.Dec()
	return t, true
}

// close stops enqueueing. Tasks already queued are still handed out; blocked
// dequeuers are released once the queue drains.
func (q *taskQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.ready.Broadcast()
}

// drain empties the queue and returns whatever was still waiting. Only
// meaningful after close, when no worker will pick the tasks up.
func (q *taskQueue) drain() []*task {
	q.mu.Lock()
	defer q.mu.Unlock()
	rest := q.tasks
	q.tasks = nil
	queueDepth.Sub(float64(len(rest)))
	return rest
}

func (q *taskQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
