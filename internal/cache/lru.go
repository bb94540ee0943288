package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a size-bounded cache whose entries expire after ttl without access.
// Every entry that leaves the cache, for whatever reason, is passed to the evict
// callback once, outside the lock.
type LRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
	onEvict func(key string, value T)
	now     func() time.Time
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

type Option[T any] func(*LRU[T])

// WithEvict registers fn for entries removed by capacity, expiry, replacement or Delete.
func WithEvict[T any](fn func(key string, value T)) Option[T] {
	return func(c *LRU[T]) { c.onEvict = fn }
}

// WithClock replaces time.Now.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *LRU[T]) { c.now = now }
}

func NewLRU[T any](maxSize int, ttl time.Duration, opts ...Option[T]) *LRU[T] {
	c := &LRU[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and extends its lifetime.
func (c *LRU[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	e := elem.Value.(*entry[T])
	now := c.now()
	if now.After(e.expiresAt) {
		c.removeLocked(elem)
		c.mu.Unlock()
		c.evict(e)
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.order.MoveToFront(elem)
	c.mu.Unlock()
	return e.value, true
}

// Set stores value under key. A previous value for key is evicted.
func (c *LRU[T]) Set(key string, value T) {
	var evicted []*entry[T]

	c.mu.Lock()
	e := &entry[T]{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		evicted = append(evicted, elem.Value.(*entry[T]))
		elem.Value = e
		c.order.MoveToFront(elem)
	} else {
		c.items[key] = c.order.PushFront(e)
		for c.order.Len() > c.maxSize {
			oldest := c.order.Back()
			evicted = append(evicted, oldest.Value.(*entry[T]))
			c.removeLocked(oldest)
		}
	}
	c.mu.Unlock()

	c.evict(evicted...)
}

// Delete removes key if present.
func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e := elem.Value.(*entry[T])
	c.removeLocked(elem)
	c.mu.Unlock()

	c.evict(e)
}

// CleanExpired removes every expired entry and returns how many it removed.
func (c *LRU[T]) CleanExpired() int {
	var expired []*entry[T]

	c.mu.Lock()
	now := c.now()
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if e := elem.Value.(*entry[T]); now.After(e.expiresAt) {
			expired = append(expired, e)
			c.removeLocked(elem)
		}
		elem = prev
	}
	c.mu.Unlock()

	c.evict(expired...)
	return len(expired)
}

// Purge removes every entry.
func (c *LRU[T]) Purge() {
	var all []*entry[T]

	c.mu.Lock()
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		all = append(all, elem.Value.(*entry[T]))
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()

	c.evict(all...)
}

func (c *LRU[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[T]) removeLocked(elem *list.Element) {
	delete(c.items, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}

func (c *LRU[T]) evict(entries ...*entry[T]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range entries {
		c.onEvict(e.key, e.value)
	}
}
