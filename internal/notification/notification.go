// Package notification holds the outbound SMS/email collaborators. Sends
// are best effort: failures are logged and never fail the enclosing
// authentication request.
package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOTP carries a verification code.
	KindOTP = "otp"
	// KindWelcome is the post-verification greeting.
	KindWelcome = "welcome"
)

// Message describes a notification payload bound for one recipient.
type Message struct {
	Kind      string
	Recipient string
	Subject   string
	Body      string
}

// Notifier delivers a message over one channel (SMS or email).
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LogNotifier is the mock-mode sender used when channel credentials are
// absent. It writes the would-be message to the structured logger.
type LogNotifier struct {
	logger  *slog.Logger
	channel string
}

// NewLogNotifier constructs a logging sender for the named channel.
func NewLogNotifier(logger *slog.Logger, channel string) *LogNotifier {
	return &LogNotifier{logger: logger, channel: channel}
}

// Send writes the message to the logger.
func (n *LogNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("mock notification",
		"channel", n.channel,
		"kind", message.Kind,
		"recipient", message.Recipient,
		"body", message.Body,
	)
	return nil
}
