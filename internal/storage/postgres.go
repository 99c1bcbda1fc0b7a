package storage

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectComment = `
SELECT c.id, t.uri, c.parent_id, c.created, c.modified, c.mode, c.remote_addr,
       c.text, c.author, c.email, c.website, c.likes, c.dislikes
FROM comments c
JOIN threads t ON t.id = c.thread_id`

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

// OpenPostgres connects to the database at dsn and applies pending
// migrations. Connecting is retried with a growing delay.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	pool, err := connect(ctx, dsn, o)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, pool, o.migrationsTable, o.logger); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgres(pool, WithClock(o.clock)), nil
}

// NewPostgres wraps an open pool whose schema is already migrated.
func NewPostgres(pool *pgxpool.Pool, opts ...Option) *Postgres {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Postgres{pool: pool, clock: o.clock}
}

func connect(ctx context.Context, dsn string, o *options) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrUnsupportedDSN, err)
	}
	cfg.MaxConns = o.maxConns
	cfg.MinConns = o.minConns
	cfg.HealthCheckPeriod = time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	attempts := max(o.retryAttempts, 1)
	var lastErr error
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnectionFailed, ctx.Err())
		case <-time.After(time.Duration(i+1) * o.retryInterval):
		}
	}
	return nil, errors.Join(ErrConnectionFailed, lastErr)
}

func (p *Postgres) Add(ctx context.Context, uri string, c Comment) (Comment, error) {
	if c.Created.IsZero() {
		c.Created = p.clock.Now()
	}
	if c.Mode == 0 {
		c.Mode = ModeAccepted
	}

	err := withTx(ctx, p.pool, func(tx pgx.Tx) error {
		var threadID int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO threads (uri) VALUES ($1)
			ON CONFLICT (uri) DO UPDATE SET uri = EXCLUDED.uri
			RETURNING id`, uri).Scan(&threadID); err != nil {
			return err
		}

		if c.Parent != nil {
			var grandparent *int64
			err := tx.QueryRow(ctx,
				`SELECT parent_id FROM comments WHERE id = $1 AND thread_id = $2`,
				*c.Parent, threadID,
			).Scan(&grandparent)
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidParent
			}
			if err != nil {
				return err
			}
			if grandparent != nil {
				c.Parent = grandparent
			}
		}

		return tx.QueryRow(ctx, `
			INSERT INTO comments (thread_id, parent_id, created, mode, remote_addr, text, author, email, website)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			threadID, c.Parent, c.Created, int16(c.Mode), c.RemoteAddr, c.Text, c.Author, c.Email, c.Website,
		).Scan(&c.ID)
	})
	if err != nil {
		return Comment{}, err
	}

	c.URI = uri
	c.Modified = nil
	c.Likes, c.Dislikes = 0, 0
	return c, nil
}

func (p *Postgres) Get(ctx context.Context, id int64) (Comment, error) {
	c, err := scanComment(p.pool.QueryRow(ctx, selectComment+` WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	return c, err
}

func (p *Postgres) Fetch(ctx context.Context, uri string) ([]Comment, error) {
	rows, err := p.pool.Query(ctx, selectComment+`
		WHERE t.uri = $1 AND c.mode = ANY($2)
		ORDER BY c.id`,
		uri, []int16{int16(ModeAccepted), int16(ModeDeleted)},
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Comment, error) {
		return scanComment(row)
	})
}

func (p *Postgres) Update(ctx context.Context, id int64, e Edit) (Comment, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE comments SET text = $2, author = $3, website = $4, modified = $5
		WHERE id = $1`,
		id, e.Text, e.Author, e.Website, p.clock.Now(),
	)
	if err != nil {
		return Comment{}, err
	}
	if tag.RowsAffected() == 0 {
		return Comment{}, ErrNotFound
	}
	return p.Get(ctx, id)
}

func (p *Postgres) Delete(ctx context.Context, id int64) (*Comment, error) {
	var placeholder bool
	err := withTx(ctx, p.pool, func(tx pgx.Tx) error {
		var parent *int64
		err := tx.QueryRow(ctx, `SELECT parent_id FROM comments WHERE id = $1 FOR UPDATE`, id).Scan(&parent)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM comments WHERE parent_id = $1)`, id,
		).Scan(&placeholder); err != nil {
			return err
		}

		if placeholder {
			_, err := tx.Exec(ctx, `
				UPDATE comments SET mode = $2, text = '', author = '', email = '', website = ''
				WHERE id = $1`, id, int16(ModeDeleted))
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
			return err
		}
		if parent == nil {
			return nil
		}
		_, err = tx.Exec(ctx, `
			DELETE FROM comments c
			WHERE c.id = $1 AND c.mode = $2
			  AND NOT EXISTS (SELECT 1 FROM comments r WHERE r.parent_id = c.id)`,
			*parent, int16(ModeDeleted))
		return err
	})
	if err != nil || !placeholder {
		return nil, err
	}

	c, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) Vote(ctx context.Context, id int64, like bool, addr string) (Votes, error) {
	var v Votes
	err := withTx(ctx, p.pool, func(tx pgx.Tx) error {
		var (
			author string
			voters []string
		)
		err := tx.QueryRow(ctx, `
			SELECT remote_addr, likes, dislikes, voters FROM comments
			WHERE id = $1 FOR UPDATE`, id,
		).Scan(&author, &v.Likes, &v.Dislikes, &voters)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if addr == author || slices.Contains(voters, addr) || len(voters) >= MaxVoters {
			return nil
		}
		if like {
			v.Likes++
		} else {
			v.Dislikes++
		}
		_, err = tx.Exec(ctx, `
			UPDATE comments SET likes = $2, dislikes = $3, voters = array_append(voters, $4)
			WHERE id = $1`, id, v.Likes, v.Dislikes, addr)
		return err
	})
	return v, err
}

func (p *Postgres) Count(ctx context.Context, uris ...string) ([]int, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT t.uri, count(c.id)
		FROM threads t
		LEFT JOIN comments c ON c.thread_id = t.id AND c.mode = $2
		WHERE t.uri = ANY($1)
		GROUP BY t.uri`, uris, int16(ModeAccepted))
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(uris))
	var (
		uri string
		n   int
	)
	if _, err := pgx.ForEachRow(rows, []any{&uri, &n}, func() error {
		index[uri] = n
		return nil
	}); err != nil {
		return nil, err
	}

	counts := make([]int, len(uris))
	for i, u := range uris {
		counts[i] = index[u]
	}
	return counts, nil
}

func (p *Postgres) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM comments WHERE mode = $1 AND created < $2`,
		int16(ModePending), p.clock.Now().Add(-olderThan),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanComment(row pgx.Row) (Comment, error) {
	var (
		c    Comment
		mode int16
	)
	err := row.Scan(
		&c.ID, &c.URI, &c.Parent, &c.Created, &c.Modified, &mode, &c.RemoteAddr,
		&c.Text, &c.Author, &c.Email, &c.Website, &c.Likes, &c.Dislikes,
	)
	c.Mode = Mode(mode)
	return c, err
}

// withTx runs fn in a transaction, rolling back on error or panic.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

var _ Store = (*Postgres)(nil)
