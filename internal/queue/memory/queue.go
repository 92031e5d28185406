// Package memory provides the in-process worklist used by the dispatcher.
package memory

import (
	"sync"

	"github.com/benangmerah/sekolah/internal/crawler"
)

// Queue is an unbounded FIFO of page descriptors safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []crawler.PageDescriptor
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends page to the tail of the queue.
func (q *Queue) Push(page crawler.PageDescriptor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, page)
}

// Pop removes and returns the head of the queue. It reports false when empty.
func (q *Queue) Pop() (crawler.PageDescriptor, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return crawler.PageDescriptor{}, false
	}
	page := q.items[0]
	q.items[0] = crawler.PageDescriptor{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return page, true
}

// Len returns the number of queued descriptors.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
