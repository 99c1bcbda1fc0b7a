package notify

import "errors"

var (
	ErrNoRecipient = errors.New("notify: email must have at least one recipient")
	ErrNoSender    = errors.New("notify: email must have a sender address")
	ErrSendFailed  = errors.New("notify: failed to send email")
	ErrQueueFull   = errors.New("notify: mail queue is full")
)
