package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// ResendConfig holds Resend API settings.
type ResendConfig struct {
	APIKey string
	From   string
}

// Resend delivers email through the Resend API.
type Resend struct {
	client *resend.Client
	from   string
}

func NewResend(cfg ResendConfig) *Resend {
	return &Resend{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.From,
	}
}

func (r *Resend) Send(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipient
	}
	from := email.From
	if from == "" {
		from = r.from
	}
	if from == "" {
		return ErrNoSender
	}

	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
		Headers: email.Headers,
	})
	if err != nil {
		return fmt.Errorf("%w: resend: %w", ErrSendFailed, err)
	}
	return nil
}
