package storage_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/isso/internal/storage"
)

func newStore(t *testing.T) (*storage.Memory, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s := storage.NewMemory(storage.WithClock(mock))
	t.Cleanup(func() { _ = s.Close() })
	return s, mock
}

func parentOf(id int64) *int64 { return &id }

func TestMemoryAddAndFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("assigns id, thread and defaults", func(t *testing.T) {
		t.Parallel()
		s, mock := newStore(t)

		c, err := s.Add(ctx, "/post/", storage.Comment{Text: "hello", RemoteAddr: "127.0.0.0"})
		require.NoError(t, err)
		require.EqualValues(t, 1, c.ID)
		require.Equal(t, "/post/", c.URI)
		require.Equal(t, storage.ModeAccepted, c.Mode)
		require.True(t, c.Created.Equal(mock.Now()))
		require.Nil(t, c.Modified)

		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, c, got)
	})

	t.Run("replies to replies attach to the root", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)

		root, err := s.Add(ctx, "/a", storage.Comment{Text: "root"})
		require.NoError(t, err)
		reply, err := s.Add(ctx, "/a", storage.Comment{Text: "reply", Parent: parentOf(root.ID)})
		require.NoError(t, err)
		nested, err := s.Add(ctx, "/a", storage.Comment{Text: "nested", Parent: parentOf(reply.ID)})
		require.NoError(t, err)

		require.NotNil(t, nested.Parent)
		require.Equal(t, root.ID, *nested.Parent)
	})

	t.Run("parent must exist in the same thread", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)

		other, err := s.Add(ctx, "/other", storage.Comment{Text: "x"})
		require.NoError(t, err)

		_, err = s.Add(ctx, "/a", storage.Comment{Text: "x", Parent: parentOf(other.ID)})
		require.ErrorIs(t, err, storage.ErrInvalidParent)
		_, err = s.Add(ctx, "/a", storage.Comment{Text: "x", Parent: parentOf(99)})
		require.ErrorIs(t, err, storage.ErrInvalidParent)
	})

	t.Run("fetch hides pending comments and keeps order", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)

		for _, text := range []string{"one", "two", "three"} {
			_, err := s.Add(ctx, "/a", storage.Comment{Text: text})
			require.NoError(t, err)
		}
		_, err := s.Add(ctx, "/a", storage.Comment{Text: "held", Mode: storage.ModePending})
		require.NoError(t, err)
		_, err = s.Add(ctx, "/b", storage.Comment{Text: "elsewhere"})
		require.NoError(t, err)

		got, err := s.Fetch(ctx, "/a")
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, text := range []string{"one", "two", "three"} {
			require.Equal(t, text, got[i].Text)
		}

		empty, err := s.Fetch(ctx, "/missing")
		require.NoError(t, err)
		require.Empty(t, empty)
	})
}

func TestMemoryUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mock := newStore(t)

	c, err := s.Add(ctx, "/a", storage.Comment{Text: "draft", Author: "anon"})
	require.NoError(t, err)

	mock.Add(time.Minute)
	updated, err := s.Update(ctx, c.ID, storage.Edit{Text: "final", Author: "jane", Website: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, "final", updated.Text)
	require.Equal(t, "jane", updated.Author)
	require.NotNil(t, updated.Modified)
	require.True(t, updated.Modified.Equal(mock.Now()))

	_, err = s.Update(ctx, 42, storage.Edit{Text: "x"})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("leaf comment is removed", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)

		c, err := s.Add(ctx, "/a", storage.Comment{Text: "bye"})
		require.NoError(t, err)

		placeholder, err := s.Delete(ctx, c.ID)
		require.NoError(t, err)
		require.Nil(t, placeholder)

		_, err = s.Get(ctx, c.ID)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("comment with replies becomes a placeholder", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)

		root, err := s.Add(ctx, "/a", storage.Comment{Text: "root", Author: "jane", Email: "j@example.com"})
		require.NoError(t, err)
		reply, err := s.Add(ctx, "/a", storage.Comment{Text: "reply", Parent: parentOf(root.ID)})
		require.NoError(t, err)

		placeholder, err := s.Delete(ctx, root.ID)
		require.NoError(t, err)
		require.NotNil(t, placeholder)
		require.Equal(t, storage.ModeDeleted, placeholder.Mode)
		require.Empty(t, placeholder.Text)
		require.Empty(t, placeholder.Author)
		require.Empty(t, placeholder.Email)

		thread, err := s.Fetch(ctx, "/a")
		require.NoError(t, err)
		require.Len(t, thread, 2)

		// Removing the last reply also drops the placeholder.
		_, err = s.Delete(ctx, reply.ID)
		require.NoError(t, err)
		_, err = s.Get(ctx, root.ID)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)

		_, err := s.Delete(ctx, 7)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestMemoryVote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	add := func(t *testing.T, s storage.Store) storage.Comment {
		t.Helper()
		c, err := s.Add(ctx, "/a", storage.Comment{Text: "...", RemoteAddr: "127.0.0.0"})
		require.NoError(t, err)
		return c
	}

	t.Run("new comment has no votes", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)
		c := add(t, s)
		require.Zero(t, c.Likes)
		require.Zero(t, c.Dislikes)
	})

	t.Run("each address votes once", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)
		c := add(t, s)

		v, err := s.Vote(ctx, c.ID, true, "1.2.3.0")
		require.NoError(t, err)
		require.Equal(t, storage.Votes{Likes: 1}, v)

		v, err = s.Vote(ctx, c.ID, false, "1.2.3.0")
		require.NoError(t, err)
		require.Equal(t, storage.Votes{Likes: 1}, v)

		v, err = s.Vote(ctx, c.ID, false, "1.2.4.0")
		require.NoError(t, err)
		require.Equal(t, storage.Votes{Likes: 1, Dislikes: 1}, v)
	})

	t.Run("author cannot vote", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)
		c := add(t, s)

		v, err := s.Vote(ctx, c.ID, true, c.RemoteAddr)
		require.NoError(t, err)
		require.Zero(t, v.Likes)
	})

	t.Run("voters are capped", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)
		c := add(t, s)

		var v storage.Votes
		for i := range 200 {
			var err error
			v, err = s.Vote(ctx, c.ID, true, fmt.Sprintf("10.0.%d.0", i))
			require.NoError(t, err)
		}
		require.Equal(t, storage.MaxVoters, v.Likes)
	})

	t.Run("missing comment", func(t *testing.T) {
		t.Parallel()
		s, _ := newStore(t)

		_, err := s.Vote(ctx, 1, true, "1.2.3.4")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestMemoryCountAndPurge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, mock := newStore(t)

	_, err := s.Add(ctx, "/a", storage.Comment{Text: "1"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "/a", storage.Comment{Text: "2"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "/b", storage.Comment{Text: "3"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "/b", storage.Comment{Text: "old", Mode: storage.ModePending})
	require.NoError(t, err)

	counts, err := s.Count(ctx, "/a", "/b", "/c")
	require.NoError(t, err)
	require.Equal(t, []int{2, 1, 0}, counts)

	mock.Add(2 * time.Hour)
	_, err = s.Add(ctx, "/b", storage.Comment{Text: "fresh", Mode: storage.ModePending})
	require.NoError(t, err)

	n, err := s.Purge(ctx, time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Purge(ctx, time.Hour)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMemoryClosed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := storage.NewMemory()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Ping(ctx), storage.ErrClosed)
	_, err := s.Add(ctx, "/a", storage.Comment{})
	require.ErrorIs(t, err, storage.ErrClosed)
	_, err = s.Count(ctx, "/a")
	require.ErrorIs(t, err, storage.ErrClosed)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, dsn := range []string{"", "memory:"} {
		s, err := storage.Open(ctx, dsn)
		require.NoError(t, err)
		require.IsType(t, &storage.Memory{}, s)
		require.NoError(t, storage.Shutdown(s)(ctx))
	}

	_, err := storage.Open(ctx, "/var/lib/isso/comments.db")
	require.ErrorIs(t, err, storage.ErrUnsupportedDSN)
}
