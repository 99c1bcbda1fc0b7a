package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/isso/internal/storage"
	"github.com/dmitrymomot/isso/pkg/logger"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 30 * time.Second
)

// MailConfig configures the Mail subscriber.
type MailConfig struct {
	From        string
	To          []string
	QueueSize   int
	SendTimeout time.Duration
}

// Mail emails the site owner about every new comment. Messages are queued
// by the listener and delivered by Run.
type Mail struct {
	sender Sender
	logger *slog.Logger
	queue  chan *Email
	cfg    MailConfig
}

func NewMail(sender Sender, cfg MailConfig, l *slog.Logger) *Mail {
	if l == nil {
		l = logger.NewNope()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &Mail{
		sender: sender,
		logger: l.With(logger.Component("mail")),
		queue:  make(chan *Email, cfg.QueueSize),
		cfg:    cfg,
	}
}

func (m *Mail) Subscribe(s *Signal) {
	s.On(m.enqueue, CommentNew)
}

func (m *Mail) enqueue(_ context.Context, e Event) error {
	if len(m.cfg.To) == 0 {
		return ErrNoRecipient
	}
	select {
	case m.queue <- m.compose(e):
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx is done. Delivery failures are
// logged and the message is dropped.
func (m *Mail) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case email := <-m.queue:
			m.deliver(ctx, email)
		}
	}
}

func (m *Mail) deliver(ctx context.Context, email *Email) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.SendTimeout)
	defer cancel()

	if err := m.sender.Send(ctx, email); err != nil {
		m.logger.ErrorContext(ctx, "failed to deliver notification",
			slog.String("subject", email.Subject),
			logger.Error(err),
		)
		return
	}
	m.logger.DebugContext(ctx, "notification delivered", slog.String("subject", email.Subject))
}

func (m *Mail) compose(e Event) *Email {
	c := e.Comment
	var b strings.Builder
	b.WriteString(c.Text)
	b.WriteString("\n\n---\n")

	if c.Author != "" {
		fmt.Fprintf(&b, "User:       %s", c.Author)
		if c.Email != "" {
			fmt.Fprintf(&b, " <%s>", c.Email)
		}
		b.WriteString("\n")
	}
	if c.Website != "" {
		fmt.Fprintf(&b, "Website:    %s\n", c.Website)
	}
	fmt.Fprintf(&b, "IP address: %s\n", c.RemoteAddr)
	fmt.Fprintf(&b, "Link:       %s%s#isso-%d\n", strings.TrimSuffix(e.Origin, "/"), e.URI, c.ID)
	if c.Mode == storage.ModePending {
		b.WriteString("\nThis comment is awaiting moderation.\n")
	}

	email := &Email{
		From:    m.cfg.From,
		To:      m.cfg.To,
		Subject: "New comment on " + e.URI,
		Text:    b.String(),
	}
	if c.Email != "" {
		email.ReplyTo = c.Email
	}
	return email
}
