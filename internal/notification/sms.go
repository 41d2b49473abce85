package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/medipass/medipass/internal/config"
)

// SMSGateway sends messages through a bulk-SMS HTTP API.
type SMSGateway struct {
	username string
	password string
	senderID string
	apiURL   string
	client   *http.Client
}

type gatewayResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewSMSGateway returns a real gateway client when credentials are
// configured and a mock-mode sender otherwise.
func NewSMSGateway(cfg config.Config, logger *slog.Logger) Notifier {
	if !cfg.SMSConfigured() {
		logger.Info("sms gateway credentials not found, using mock mode")
		return NewLogNotifier(logger, "sms")
	}
	return &SMSGateway{
		username: cfg.SMSUsername,
		password: cfg.SMSPassword,
		senderID: cfg.SMSSenderID,
		apiURL:   cfg.SMSGatewayURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message to the gateway and checks the reported status.
func (g *SMSGateway) Send(ctx context.Context, message Message) error {
	params := url.Values{}
	params.Set("username", g.username)
	params.Set("password", g.password)
	params.Set("senderid", g.senderID)
	params.Set("destination", message.Recipient)
	params.Set("message", message.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var body gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}
	if body.Status != "success" {
		return fmt.Errorf("sms gateway rejected message: %s", body.Message)
	}
	return nil
}
