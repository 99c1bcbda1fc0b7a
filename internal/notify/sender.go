package notify

import "context"

// Email is a plain text message ready for delivery.
type Email struct {
	Headers map[string]string
	From    string
	ReplyTo string
	Subject string
	Text    string
	To      []string
}

// Sender delivers an email.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}
