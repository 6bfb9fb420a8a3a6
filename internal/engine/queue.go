package engine

import (
	"context"
	"sync"
	"sync/atomic"
)

// WorkQueue is the bounded hand-off between the distributor and the workers.
// Send blocks while the queue is full. Exactly one producer calls Close, after
// its final Send; receivers observe closure once the queue is drained.
type WorkQueue struct {
	ch        chan RepoName
	closeOnce sync.Once
	sent      atomic.Int64
}

func NewWorkQueue(capacity int) *WorkQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &WorkQueue{ch: make(chan RepoName, capacity)}
}

func (q *WorkQueue) Cap() int { return cap(q.ch) }

// Sent reports how many items have been accepted so far.
func (q *WorkQueue) Sent() int { return int(q.sent.Load()) }

// Send enqueues repo, blocking until there is room or ctx is done.
func (q *WorkQueue) Send(ctx context.Context, repo RepoName) error {
	select {
	case q.ch <- repo:
		q.sent.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the end of the stream. Calling it more than once is harmless.
func (q *WorkQueue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}

// Receive returns the next item, or ok=false once the queue is closed and
// drained or ctx is done.
func (q *WorkQueue) Receive(ctx context.Context) (repo RepoName, ok bool) {
	if ctx.Err() != nil {
		return "", false
	}
	select {
	case repo, ok = <-q.ch:
		return repo, ok
	case <-ctx.Done():
		return "", false
	}
}
