package cache

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	defaultTTL             = time.Hour
	defaultCleanupInterval = time.Minute
)

type memoryOptions struct {
	clock           clock.Clock
	ttl             time.Duration
	cleanupInterval time.Duration
	maxEntries      int
}

// Option configures a Memory cache.
type Option func(*memoryOptions)

// WithTTL sets the expiry used when Set is called with a zero ttl.
func WithTTL(d time.Duration) Option {
	return func(o *memoryOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithCleanupInterval sets how often expired entries are swept.
// Zero disables the sweeper; expired entries are then dropped on access.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *memoryOptions) {
		o.cleanupInterval = d
	}
}

// WithMaxEntries caps the number of entries. When full, the entry closest
// to expiry is evicted first.
func WithMaxEntries(n int) Option {
	return func(o *memoryOptions) {
		o.maxEntries = n
	}
}

// WithClock replaces the time source.
func WithClock(c clock.Clock) Option {
	return func(o *memoryOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

type memoryEntry[V any] struct {
	expiresAt time.Time
	value     V
}

// Memory is a process-local cache.
type Memory[V any] struct {
	items  map[string]memoryEntry[V]
	opts   memoryOptions
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewMemory creates an in-memory cache and starts its sweeper.
func NewMemory[V any](opts ...Option) *Memory[V] {
	o := memoryOptions{
		clock:           clock.New(),
		ttl:             defaultTTL,
		cleanupInterval: defaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Memory[V]{
		items: make(map[string]memoryEntry[V]),
		opts:  o,
		done:  make(chan struct{}),
	}
	if o.cleanupInterval > 0 {
		go m.sweep()
	}
	return m
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	if m.closed {
		return zero, ErrClosed
	}
	e, ok := m.items[key]
	if !ok {
		return zero, ErrNotFound
	}
	if !m.opts.clock.Now().Before(e.expiresAt) {
		delete(m.items, key)
		return zero, ErrNotFound
	}
	return e.value, nil
}

func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if ttl <= 0 {
		ttl = m.opts.ttl
	}
	if _, exists := m.items[key]; !exists && m.opts.maxEntries > 0 && len(m.items) >= m.opts.maxEntries {
		m.evictOne()
	}
	m.items[key] = memoryEntry[V]{value: value, expiresAt: m.opts.clock.Now().Add(ttl)}
	return nil
}

func (m *Memory[V]) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *Memory[V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	clear(m.items)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops the sweeper and drops all entries.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.items = nil
	return nil
}

// evictOne must be called with mu held.
func (m *Memory[V]) evictOne() {
	var (
		victim string
		soon   time.Time
		found  bool
	)
	for k, e := range m.items {
		if !found || e.expiresAt.Before(soon) {
			victim, soon, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(m.items, victim)
	}
}

func (m *Memory[V]) sweep() {
	ticker := m.opts.clock.Ticker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *Memory[V]) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.clock.Now()
	for k, e := range m.items {
		if !now.Before(e.expiresAt) {
			delete(m.items, k)
		}
	}
}

var _ Cache[any] = (*Memory[any])(nil)
