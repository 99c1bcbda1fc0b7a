package storage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dmitrymomot/isso/pkg/logger"
)

// Mode is the moderation state of a comment.
type Mode int

const (
	ModeAccepted Mode = 1
	ModePending  Mode = 2
	ModeDeleted  Mode = 4
)

// MaxVoters caps the number of distinct addresses recorded per comment.
// Votes past the cap are ignored.
const MaxVoters = 142

// Comment is a stored comment.
type Comment struct {
	Created    time.Time
	Modified   *time.Time
	Parent     *int64
	URI        string
	RemoteAddr string
	Text       string
	Author     string
	Email      string
	Website    string
	ID         int64
	Mode       Mode
	Likes      int
	Dislikes   int
}

// Edit holds the fields an author may change after posting.
type Edit struct {
	Text    string
	Author  string
	Website string
}

// Votes is the vote tally of a comment.
type Votes struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// Store is the persistence collaborator of the comment views.
type Store interface {
	// Add stores c under the thread identified by uri, creating the thread
	// on first use. A zero Created is set to the current time and a zero
	// Mode to ModeAccepted.
	Add(ctx context.Context, uri string, c Comment) (Comment, error)
	Get(ctx context.Context, id int64) (Comment, error)
	// Fetch lists the visible comments of a thread in insertion order:
	// accepted ones and placeholders of deleted ones.
	Fetch(ctx context.Context, uri string) ([]Comment, error)
	Update(ctx context.Context, id int64, e Edit) (Comment, error)
	// Delete removes a comment. When replies remain, the comment is blanked
	// and kept as a placeholder which is returned; otherwise nil is returned.
	Delete(ctx context.Context, id int64) (*Comment, error)
	// Vote records a like or dislike from addr. Repeated votes from the same
	// address and votes by the comment's author leave the tally unchanged.
	Vote(ctx context.Context, id int64, like bool, addr string) (Votes, error)
	// Count returns the number of accepted comments for each uri.
	Count(ctx context.Context, uris ...string) ([]int, error)
	// Purge deletes pending comments created before now-olderThan.
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

type options struct {
	clock           clock.Clock
	logger          *slog.Logger
	migrationsTable string
	retryAttempts   int
	retryInterval   time.Duration
	maxConns        int32
	minConns        int32
}

func defaultOptions() *options {
	return &options{
		clock:           clock.New(),
		logger:          logger.NewNope(),
		migrationsTable: "schema_migrations",
		retryAttempts:   3,
		retryInterval:   5 * time.Second,
		maxConns:        10,
		minConns:        2,
	}
}

// Option configures a Store.
type Option func(*options)

// WithClock replaces the time source used for timestamps and purging.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger used for migrations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRetry sets how many times Open tries to reach the database and the
// base delay between attempts.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(o *options) {
		o.retryAttempts = attempts
		o.retryInterval = interval
	}
}

// WithPoolSize sets the connection pool bounds.
func WithPoolSize(minConns, maxConns int32) Option {
	return func(o *options) {
		o.minConns = minConns
		o.maxConns = maxConns
	}
}

// WithMigrationsTable sets the table goose records applied versions in.
func WithMigrationsTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.migrationsTable = name
		}
	}
}

// Open returns the Store selected by dsn.
func Open(ctx context.Context, dsn string, opts ...Option) (Store, error) {
	switch {
	case dsn == "" || dsn == "memory:":
		return NewMemory(opts...), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn, opts...)
	default:
		return nil, ErrUnsupportedDSN
	}
}

// Shutdown returns a hook that closes the store.
func Shutdown(s Store) func(context.Context) error {
	return func(context.Context) error {
		return s.Close()
	}
}
