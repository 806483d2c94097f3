package latches

import (
	"sort"
	"sync"
)

// Latches provides fair per-key mutual exclusion. Before touching a key's
// record the caller must hold the latch for that key; latches for distinct
// keys are independent, so operations on disjoint keys run in parallel.
//
// Unlike a plain mutex per key, granting is first-come-first-served: each
// latch keeps an explicit FIFO of waiters, and release hands the latch
// directly to the head waiter instead of letting whoever wakes first barge
// in. Starvation under a skewed key distribution is therefore impossible.
//
// A latch is created lazily on first use of its key, under latchGuard, and
// is never removed. Removal would race with a concurrent acquire that
// already looked the latch up.
type Latches struct {
	latchMap map[string]*latch
	// latchGuard protects latchMap and every latch in it. A thread must hold
	// it while making any change to either.
	latchGuard sync.Mutex
}

func NewLatches() *Latches {
	l := new(Latches)
	l.latchMap = make(map[string]*latch)
	return l
}

type latch struct {
	held    bool
	waiters []chan struct{}
}

func (l *Latches) acquire(key string) {
	l.latchGuard.Lock()
	la := l.latchMap[key]
	if la == nil {
		la = new(latch)
		l.latchMap[key] = la
	}
	if !la.held {
		la.held = true
		l.latchGuard.Unlock()
		return
	}
	wait := make(chan struct{})
	la.waiters = append(la.waiters, wait)
	l.latchGuard.Unlock()
	<-wait
}

func (l *Latches) release(key string) {
	l.latchGuard.Lock()
	la := l.latchMap[key]
	if len(la.waiters) > 0 {
		// Hand the latch to the head waiter. held stays true: ownership
		// transfers without ever being observable as free.
		wait := la.waiters[0]
		la.waiters = la.waiters[1:]
		l.latchGuard.Unlock()
		close(wait)
		return
	}
	la.held = false
	l.latchGuard.Unlock()
}

// WithKey runs fn while holding the latch for key. The latch is released on
// every exit path, including a panic in fn.
func (l *Latches) WithKey(key string, fn func() error) error {
	l.acquire(key)
	defer l.release(key)
	return fn()
}

// WithKeys runs fn while holding the latches for all keys. Latches are
// acquired in lexicographic key order, so two callers latching overlapping
// key sets cannot deadlock.
func (l *Latches) WithKeys(keys []string, fn func() error) error {
	sorted := sortedUnique(keys)
	for _, key := range sorted {
		l.acquire(key)
	}
	defer func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			l.release(sorted[i])
		}
	}()
	return fn()
}

func sortedUnique(keys []string) []string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, key := range sorted {
		if i == 0 || key != sorted[i-1] {
			out = append(out, key)
		}
	}
	return out
}
