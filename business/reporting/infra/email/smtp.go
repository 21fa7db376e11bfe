// Package email sends plain-text mail over SMTP.
package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/fd1az/dex-arbitrage-bot/business/reporting/app"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
)

const defaultSMTPPort = 587

var _ app.Mailer = (*Sender)(nil)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// ConfigFrom maps the notify section of the application config. Mail is
// sent from the authenticated account.
func ConfigFrom(cfg config.NotifyConfig) Config {
	return Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		From:     cfg.EmailUser,
		To:       cfg.To(),
	}
}

// Sender delivers messages through an authenticated SMTP relay.
type Sender struct {
	cfg  Config
	dial func(ctx context.Context, msg *mail.Msg) error
}

// NewSender validates cfg and creates a Sender.
func NewSender(cfg Config) (*Sender, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("smtp host and credentials are required")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.To == "" {
		cfg.To = cfg.From
	}

	s := &Sender{cfg: cfg}
	s.dial = s.dialAndSend
	return s, nil
}

// Send mails subject and body to the configured recipient.
func (s *Sender) Send(ctx context.Context, subject, body string) error {
	msg, err := s.message(subject, body)
	if err != nil {
		return err
	}
	return s.dial(ctx, msg)
}

func (s *Sender) message(subject, body string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(s.cfg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)
	return m, nil
}

func (s *Sender) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	c, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
