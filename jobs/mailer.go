package jobs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/jordan-wright/email"
)

// Mailer sends one message.
type Mailer interface {
	Send(ctx context.Context, payload SendEmailPayload) error
}

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	addr string
	auth smtp.Auth
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSMTPMailer returns nil when no relay host is configured.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, nil
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.From == "" {
		return nil, errors.New("mailer: SMTP sender address required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth: auth,
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}, nil
}

// Send delivers the payload as a plain-text message. The context bounds the
// wait; an in-flight SMTP session is not interrupted.
func (m *SMTPMailer) Send(ctx context.Context, payload SendEmailPayload) error {
	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{payload.To}
	e.Subject = payload.Subject
	e.Text = []byte(payload.Body)

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.send(e, m.addr, m.auth) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mailer: %w", ctx.Err())
	}
}
