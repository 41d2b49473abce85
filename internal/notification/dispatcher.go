package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Dispatcher fans a notification out to the SMS and email channels. The
// two sends run concurrently; the dispatcher waits for both so tests stay
// deterministic, but a failed send only produces a log line.
type Dispatcher struct {
	sms    Notifier
	email  Notifier
	logger *slog.Logger
}

// NewDispatcher wires the channel senders.
func NewDispatcher(sms, email Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sms: sms, email: email, logger: logger}
}

// OTP delivers a verification code by SMS, and by email when the record
// has one.
func (d *Dispatcher) OTP(ctx context.Context, mobile, email, code string) {
	body := fmt.Sprintf("Your Medipass verification code is: %s. Valid for 5 minutes.", code)
	d.fanOut(ctx,
		Message{Kind: KindOTP, Recipient: mobile, Body: body},
		email,
		Message{Kind: KindOTP, Recipient: email, Subject: "Your Medipass verification code", Body: body},
	)
}

// Welcome greets a freshly verified account.
func (d *Dispatcher) Welcome(ctx context.Context, mobile, email, name string) {
	body := fmt.Sprintf("Welcome to Medipass, %s! Your healthcare account is now active.", name)
	d.fanOut(ctx,
		Message{Kind: KindWelcome, Recipient: mobile, Body: body},
		email,
		Message{Kind: KindWelcome, Recipient: email, Subject: "Welcome to Medipass", Body: body},
	)
}

func (d *Dispatcher) fanOut(ctx context.Context, smsMsg Message, email string, emailMsg Message) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.sms.Send(ctx, smsMsg); err != nil {
			d.logger.Error("sms dispatch failed", "kind", smsMsg.Kind, "recipient", smsMsg.Recipient, "error", err)
		}
	}()

	if email != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.email.Send(ctx, emailMsg); err != nil {
				d.logger.Error("email dispatch failed", "kind", emailMsg.Kind, "recipient", emailMsg.Recipient, "error", err)
			}
		}()
	}

	wg.Wait()
}
