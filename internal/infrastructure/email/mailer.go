package email

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Config captures the SMTP settings for sending transactional email.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends transactional email over SMTP. It implements ports.Mailer.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewMailer creates a Mailer from the given SMTP configuration.
func NewMailer(cfg Config) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("mailer: SMTP host and port are required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mailer: sender address is required")
	}

	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// Send delivers a plain-text email to a single recipient. The call blocks
// until the SMTP exchange completes; callers use the error to decide whether
// to roll back token state.
func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
