package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type memoryRecord struct {
	voters  map[string]struct{}
	comment Comment
}

// Memory is a Store kept in process memory.
type Memory struct {
	clock    clock.Clock
	comments map[int64]*memoryRecord
	nextID   int64
	mu       sync.RWMutex
	closed   bool
}

// NewMemory returns an empty in-memory store. Only WithClock applies.
func NewMemory(opts ...Option) *Memory {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Memory{
		clock:    o.clock,
		comments: make(map[int64]*memoryRecord),
	}
}

func (m *Memory) Add(_ context.Context, uri string, c Comment) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Comment{}, ErrClosed
	}

	if c.Parent != nil {
		parent, ok := m.comments[*c.Parent]
		if !ok || parent.comment.URI != uri {
			return Comment{}, ErrInvalidParent
		}
		if parent.comment.Parent != nil {
			c.Parent = ptr(*parent.comment.Parent)
		}
	}

	m.nextID++
	c.ID = m.nextID
	c.URI = uri
	if c.Created.IsZero() {
		c.Created = m.clock.Now()
	}
	if c.Mode == 0 {
		c.Mode = ModeAccepted
	}
	c.Modified = nil
	c.Likes, c.Dislikes = 0, 0

	m.comments[c.ID] = &memoryRecord{comment: c, voters: make(map[string]struct{})}
	return cloneComment(c), nil
}

func (m *Memory) Get(_ context.Context, id int64) (Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Comment{}, ErrClosed
	}
	rec, ok := m.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	return cloneComment(rec.comment), nil
}

func (m *Memory) Fetch(_ context.Context, uri string) ([]Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	var out []Comment
	for _, rec := range m.comments {
		if rec.comment.URI != uri {
			continue
		}
		if rec.comment.Mode == ModeAccepted || rec.comment.Mode == ModeDeleted {
			out = append(out, cloneComment(rec.comment))
		}
	}
	slices.SortFunc(out, func(a, b Comment) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) Update(_ context.Context, id int64, e Edit) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Comment{}, ErrClosed
	}
	rec, ok := m.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	rec.comment.Text = e.Text
	rec.comment.Author = e.Author
	rec.comment.Website = e.Website
	rec.comment.Modified = ptr(m.clock.Now())
	return cloneComment(rec.comment), nil
}

func (m *Memory) Delete(_ context.Context, id int64) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	rec, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}

	if m.hasReplies(id) {
		rec.comment.Mode = ModeDeleted
		rec.comment.Text = ""
		rec.comment.Author = ""
		rec.comment.Email = ""
		rec.comment.Website = ""
		c := cloneComment(rec.comment)
		return &c, nil
	}

	delete(m.comments, id)
	if p := rec.comment.Parent; p != nil {
		if parent, ok := m.comments[*p]; ok && parent.comment.Mode == ModeDeleted && !m.hasReplies(*p) {
			delete(m.comments, *p)
		}
	}
	return nil, nil
}

func (m *Memory) Vote(_ context.Context, id int64, like bool, addr string) (Votes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Votes{}, ErrClosed
	}
	rec, ok := m.comments[id]
	if !ok {
		return Votes{}, ErrNotFound
	}

	_, voted := rec.voters[addr]
	if !voted && addr != rec.comment.RemoteAddr && len(rec.voters) < MaxVoters {
		rec.voters[addr] = struct{}{}
		if like {
			rec.comment.Likes++
		} else {
			rec.comment.Dislikes++
		}
	}
	return Votes{Likes: rec.comment.Likes, Dislikes: rec.comment.Dislikes}, nil
}

func (m *Memory) Count(_ context.Context, uris ...string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	index := make(map[string]int, len(uris))
	for _, rec := range m.comments {
		if rec.comment.Mode == ModeAccepted {
			index[rec.comment.URI]++
		}
	}
	counts := make([]int, len(uris))
	for i, uri := range uris {
		counts[i] = index[uri]
	}
	return counts, nil
}

func (m *Memory) Purge(_ context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	cutoff := m.clock.Now().Add(-olderThan)
	var n int64
	for id, rec := range m.comments {
		if rec.comment.Mode == ModePending && rec.comment.Created.Before(cutoff) {
			delete(m.comments, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.comments = nil
	return nil
}

// hasReplies must be called with mu held.
func (m *Memory) hasReplies(id int64) bool {
	for _, rec := range m.comments {
		if rec.comment.Parent != nil && *rec.comment.Parent == id {
			return true
		}
	}
	return false
}

func cloneComment(c Comment) Comment {
	if c.Parent != nil {
		c.Parent = ptr(*c.Parent)
	}
	if c.Modified != nil {
		c.Modified = ptr(*c.Modified)
	}
	return c
}

func ptr[T any](v T) *T {
	return &v
}

var _ Store = (*Memory)(nil)
