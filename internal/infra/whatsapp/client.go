package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"trade_relay/internal/domain"
)

// Client is the WhatsApp Cloud API send client (Boundary Layer).
// One attempt per message; failures come back as *domain.TransportError.
type Client struct {
	baseURL       string
	version       string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
	logger        *slog.Logger
}

// ClientConfig carries the credentials and endpoint of the send API
type ClientConfig struct {
	BaseURL       string
	Version       string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// NewClient creates a new Cloud API client.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		version:       cfg.Version,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "whatsapp_client"),
	}
}

// MessagesURL is the send endpoint for the configured sender phone id
func (c *Client) MessagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, c.phoneNumberID)
}

// Send posts msg to the Cloud API.
func (c *Client) Send(ctx context.Context, msg *OutboundMessage) error {
	const op = "send_message"

	body, err := json.Marshal(msg)
	if err != nil {
		return domain.NewTransportError(op, fmt.Errorf("encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.MessagesURL(), bytes.NewReader(body))
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.ErrorContext(ctx, "Timeout occurred while sending message", slog.String("to", msg.To))
			return domain.NewTimeoutError(op, err)
		}
		c.logger.ErrorContext(ctx, "Request failed", slog.String("to", msg.To), slog.Any("error", err))
		return domain.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.ErrorContext(ctx, "Send rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return domain.NewTransportError(op, fmt.Errorf("whatsapp api error: status=%d body=%s", resp.StatusCode, string(respBody)))
	}

	c.logger.InfoContext(ctx, "Message sent",
		slog.String("to", msg.To),
		slog.String("type", msg.Type),
		slog.Int("status", resp.StatusCode),
		slog.String("content_type", resp.Header.Get("Content-Type")),
	)
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
