// Package storage persists threads, comments and votes.
//
// Two backends implement [Store]:
//
//   - [Memory] keeps everything in process and is used for tests and dry runs.
//   - [Postgres] uses a [github.com/jackc/pgx/v5/pgxpool] pool and applies its
//     schema with [github.com/pressly/goose/v3] on open.
//
// [Open] picks the backend from the configured DSN:
//
//	store, err := storage.Open(ctx, cfg.String("general", "dbpath"),
//		storage.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
// "memory:" (or an empty DSN) selects the in-process backend; postgres:// and
// postgresql:// URLs select PostgreSQL.
//
// Replies are always attached to a top-level comment: adding a reply to a
// reply re-parents it to the thread root. Deleting a comment that still has
// replies keeps a placeholder in [ModeDeleted] until the last reply is gone.
package storage
