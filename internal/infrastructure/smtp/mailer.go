package smtp

import (
	"context"
	"fmt"

	"github.com/campus-chat-api/internal/config"
	"gopkg.in/gomail.v2"
)

// Mailer sends plain-text email through an SMTP relay.
type Mailer struct {
	from string
	send func(...*gomail.Message) error
}

func NewMailer(cfg *config.Config) *Mailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return &Mailer{from: cfg.SMTPFrom, send: d.DialAndSend}
}

// SendEmail dials the relay for every message; OTP mail is low volume.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("no recipient specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.send(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
