// Package dedupe maps client idempotency keys to the job they created, so a
// retried submission returns the original job instead of queueing a copy.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 50000

// Index binds idempotency keys to job IDs.
type Index interface {
	// Claim binds key to id unless key is already bound. It returns the
	// bound id and whether this call created the binding.
	Claim(ctx context.Context, key, id string) (bound string, claimed bool)

	// Release removes the binding, but only while key is still bound to id.
	// It is used when the job behind a fresh claim could not be queued.
	Release(ctx context.Context, key, id string)

	Size() int64
}

// node is one binding in the insertion-ordered list.
type node struct {
	key, id    string
	prev, next *node
}

func (n *node) reset() {
	*n = node{}
}

// inMemoryIndex keeps bindings in a map plus a doubly linked list ordered
// by insertion. When bounded it evicts the oldest binding first; an evicted
// key simply starts a new job on its next use.
type inMemoryIndex struct {
	mu       sync.Mutex
	keys     map[string]*node
	head     *node // newest
	tail     *node // oldest
	maxSize  int   // <= 0 means unbounded
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryIndex creates an in-memory index.
func NewInMemoryIndex(opts ...Option) Index {
	d := &inMemoryIndex{
		maxSize: defaultMaxSize,
		keys:    make(map[string]*node),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.nodePool.New = func() interface{} { return &node{} }
	return d
}

func (d *inMemoryIndex) Claim(_ context.Context, key, id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.keys[key]; ok {
		return n.id, false
	}
	if d.maxSize > 0 && len(d.keys) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key, n.id = key, id
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.keys[key] = n
	d.size.Add(1)
	return id, true
}

func (d *inMemoryIndex) Release(_ context.Context, key, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.keys[key]; ok && n.id == id {
		d.unlink(n)
	}
}

// Size returns the number of live bindings.
func (d *inMemoryIndex) Size() int64 {
	return d.size.Load()
}

// evictOldest drops the tail. Must be called with d.mu held.
func (d *inMemoryIndex) evictOldest() {
	if d.tail != nil {
		d.unlink(d.tail)
	}
}

// unlink removes n from the list and the map. Must be called with d.mu held.
func (d *inMemoryIndex) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.keys, n.key)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}
