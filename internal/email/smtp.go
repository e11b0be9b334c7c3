package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/kanflow/movedigest/internal/digest"
)

// Dialer is the part of *gomail.Dialer the SMTP sender uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender renders templates locally and delivers them over SMTP.
type SMTPSender struct {
	from     string
	fromName string
	dialer   Dialer
	renderer *digest.Renderer
}

func NewSMTPSender(cfg SMTPConfig, renderer *digest.Renderer) *SMTPSender {
	return NewSMTPSenderWithDialer(cfg, renderer,
		gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password))
}

// NewSMTPSenderWithDialer lets tests substitute the SMTP connection.
func NewSMTPSenderWithDialer(cfg SMTPConfig, renderer *digest.Renderer, d Dialer) *SMTPSender {
	return &SMTPSender{from: cfg.From, fromName: cfg.FromName, dialer: d, renderer: renderer}
}

// Send builds a multipart message (text with an HTML alternative) and
// delivers it in a single SMTP session. gomail has no context support, so
// cancellation is only honoured before dialling.
func (s *SMTPSender) Send(ctx context.Context, to, subject, templateID string, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := s.renderer.Render(templateID, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", templateID, err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body.Text)
	m.AddAlternative("text/html", body.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

var _ Sender = (*SMTPSender)(nil)
