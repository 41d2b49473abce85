package notification

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/medipass/medipass/internal/config"
)

// EmailSender delivers messages over SMTP.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailSender returns an SMTP sender when credentials are configured
// and a mock-mode sender otherwise.
func NewEmailSender(cfg config.Config, logger *slog.Logger) Notifier {
	if !cfg.SMTPConfigured() {
		logger.Info("smtp credentials not found, using mock mode")
		return NewLogNotifier(logger, "email")
	}
	return &EmailSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   cfg.MailFrom,
	}
}

// Send delivers the message to the recipient's mailbox.
func (s *EmailSender) Send(_ context.Context, message Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", message.Recipient)
	m.SetHeader("Subject", message.Subject)
	m.SetBody("text/plain", message.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
