package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig holds the relay connection settings.
type SMTPConfig struct {
	Host     string
	Username string
	Password string
	From     string
	Port     int
}

// SMTP delivers email through an SMTP relay.
type SMTP struct {
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now  func() time.Time
	cfg  SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	return &SMTP{send: smtp.SendMail, now: time.Now, cfg: cfg}
}

func (s *SMTP) Send(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipient
	}
	from := email.From
	if from == "" {
		from = s.cfg.From
	}
	if from == "" {
		return ErrNoSender
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.message(from, email)
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, auth, from, email.To, msg); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

func (s *SMTP) message(from string, email *Email) ([]byte, error) {
	var buf bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}

	header("From", from)
	header("To", strings.Join(email.To, ", "))
	if email.ReplyTo != "" {
		header("Reply-To", email.ReplyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	header("Content-Transfer-Encoding", "quoted-printable")

	keys := make([]string, 0, len(email.Headers))
	for k := range email.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		header(k, email.Headers[k])
	}
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(email.Text)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
