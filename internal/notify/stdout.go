package notify

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/isso/pkg/logger"
)

// Stdout logs every comment event.
type Stdout struct {
	logger *slog.Logger
}

func NewStdout(l *slog.Logger) *Stdout {
	if l == nil {
		l = logger.NewNope()
	}
	return &Stdout{logger: l.With(logger.Component("notify"))}
}

func (o *Stdout) Subscribe(s *Signal) {
	s.On(o.log, CommentNew, CommentEdit, CommentDelete, CommentVote)
}

func (o *Stdout) log(ctx context.Context, e Event) error {
	attrs := []any{
		slog.String("event", e.Name),
		slog.String("uri", e.URI),
		slog.Int64("comment_id", e.Comment.ID),
	}
	if e.Comment.Author != "" {
		attrs = append(attrs, slog.String("author", e.Comment.Author))
	}
	if e.Name == CommentVote {
		attrs = append(attrs,
			slog.Int("likes", e.Comment.Likes),
			slog.Int("dislikes", e.Comment.Dislikes),
		)
	}
	o.logger.InfoContext(ctx, "comment event", attrs...)
	return nil
}
