package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/isso/internal/storage"
	"github.com/dmitrymomot/isso/pkg/logger"
)

// Event names.
const (
	CommentNew    = "comments.new"
	CommentEdit   = "comments.edit"
	CommentDelete = "comments.delete"
	CommentVote   = "comments.vote"
)

// Event describes something that happened to a comment.
// Host is the base URL of the comment service; Origin is the embedding
// site the comment was posted from, and URI is relative to it.
type Event struct {
	Name    string
	URI     string
	Host    string
	Origin  string
	Comment storage.Comment
}

// Listener handles one event.
type Listener func(ctx context.Context, e Event) error

// Subscriber registers its listeners on a Signal.
type Subscriber interface {
	Subscribe(s *Signal)
}

// Signal dispatches events to listeners in registration order.
type Signal struct {
	logger    *slog.Logger
	listeners map[string][]Listener
	mu        sync.RWMutex
}

func NewSignal(l *slog.Logger) *Signal {
	if l == nil {
		l = logger.NewNope()
	}
	return &Signal{
		logger:    l.With(logger.Component("notify")),
		listeners: make(map[string][]Listener),
	}
}

// Add registers subscribers.
func (s *Signal) Add(subs ...Subscriber) {
	for _, sub := range subs {
		if sub != nil {
			sub.Subscribe(s)
		}
	}
}

// On registers fn for the named events.
func (s *Signal) On(fn Listener, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		s.listeners[name] = append(s.listeners[name], fn)
	}
}

// Emit calls every listener of e.Name synchronously.
func (s *Signal) Emit(ctx context.Context, e Event) {
	s.mu.RLock()
	listeners := s.listeners[e.Name]
	s.mu.RUnlock()

	for _, fn := range listeners {
		if err := fn(ctx, e); err != nil {
			s.logger.ErrorContext(ctx, "listener failed",
				slog.String("event", e.Name),
				slog.Int64("comment_id", e.Comment.ID),
				logger.Error(err),
			)
		}
	}
}
