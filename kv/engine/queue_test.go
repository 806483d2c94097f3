package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := newTaskQueue()

	for i := 0; i < 5; i++ {
		assert.True(t, q.enqueue(newTask(Read(key(i)))))
	}
	assert.Equal(t, 5, q.depth())

	for i := 0; i < 5; i++ {
		task, ok := q.dequeue()
		require.True(t, ok)
		assert.Equal(t, key(i), task.op.Key)
	}
	assert.Equal(t, 0, q.depth())
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := newTaskQueue()

	got := make(chan string, 1)
	go func() {
		task, ok := q.dequeue()
		if ok {
			got <- task.op.Key
		}
	}()

	// The dequeuer must still be parked.
	select {
	case <-got:
		t.Fatal("dequeue returned before anything was enqueued")
	case <-time.After(10 * time.Millisecond):
	}

	q.enqueue(newTask(Read("k")))
	select {
	case key := <-got:
		assert.Equal(t, "k", key)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake on enqueue")
	}
}

func TestCloseDrainsThenReleases(t *testing.T) {
	q := newTaskQueue()
	q.enqueue(newTask(Read("a")))
	q.enqueue(newTask(Read("b")))
	q.close()

	// Tasks queued before close are still handed out, in order.
	task, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", task.op.Key)
	task, ok = q.dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", task.op.Key)

	// Then every dequeuer is released empty-handed.
	_, ok = q.dequeue()
	assert.False(t, ok)

	assert.False(t, q.enqueue(newTask(Read("c"))))
}

func TestCloseWakesBlockedDequeuers(t *testing.T) {
	q := newTaskQueue()

	released := make(chan bool, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, ok := q.dequeue()
			released <- ok
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.close()

	for i := 0; i < 3; i++ {
		select {
		case ok := <-released:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("blocked dequeuer not released by close")
		}
	}
}

func key(i int) string {
	return string(rune('a' + i))
}
