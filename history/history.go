package history

import (
	"sync"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// DefaultCapacity is used when a Buffer is created with a non-positive
// capacity.
const DefaultCapacity = 100

// Counts summarises the states held in a Buffer.
type Counts struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Buffer is a fixed-capacity FIFO of terminal jobs. It is safe for
// concurrent use.
type Buffer struct {
	mu    sync.RWMutex
	ring  []*job.Job
	start int
	size  int
}

// New creates a Buffer holding at most capacity jobs.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{ring: make([]*job.Job, capacity)}
}

// Cap returns the capacity of the buffer.
func (b *Buffer) Cap() int { return len(b.ring) }

// Len returns the number of retained jobs.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Push appends j and returns the job evicted to make room, if any.
func (b *Buffer) Push(j *job.Job) (evicted *job.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size < len(b.ring) {
		b.ring[(b.start+b.size)%len(b.ring)] = j
		b.size++
		return nil
	}

	evicted = b.ring[b.start]
	b.ring[b.start] = j
	b.start = (b.start + 1) % len(b.ring)
	return evicted
}

// Recent returns snapshots of up to n jobs, newest first. A non-positive
// n returns every retained job.
func (b *Buffer) Recent(n int) []*job.Job {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > b.size {
		n = b.size
	}
	out := make([]*job.Job, 0, n)
	for i := 0; i < n; i++ {
		idx := (b.start + b.size - 1 - i) % len(b.ring)
		out = append(out, b.ring[idx].Snapshot())
	}
	return out
}

// Counts tallies completed and failed jobs currently retained.
func (b *Buffer) Counts() Counts {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var c Counts
	for i := 0; i < b.size; i++ {
		switch b.ring[(b.start+i)%len(b.ring)].State {
		case job.StateCompleted:
			c.Completed++
		case job.StateFailed:
			c.Failed++
		}
	}
	return c
}

// Clear removes every retained job and returns how many were dropped.
func (b *Buffer) Clear() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.size
	clear(b.ring)
	b.start, b.size = 0, 0
	return n
}
