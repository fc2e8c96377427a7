package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"github.com/goccy/go-json"

	"github.com/bft-labs/digestmail/internal/domain"
	"github.com/bft-labs/digestmail/internal/ports"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// webhookBody is the JSON document posted for each digest.
type webhookBody struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// WebhookSender implements ports.DigestSender by posting each digest as
// JSON to a URL, for relays that accept mail over HTTP.
type WebhookSender struct {
	url    string
	token  string
	client Doer
	logger ports.Logger
}

// NewWebhookSender creates a webhook sender. token is sent as a bearer
// token when non-empty.
func NewWebhookSender(url, token string, client Doer, logger ports.Logger) *WebhookSender {
	return &WebhookSender{
		url:    url,
		token:  token,
		client: client,
		logger: logger,
	}
}

// Send posts msg to the webhook URL. Any non-2xx response is an error.
func (s *WebhookSender) Send(ctx context.Context, msg domain.Message) error {
	body, err := json.Marshal(webhookBody{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "digestmail ("+runtime.GOOS+"/"+runtime.GOARCH+")")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	s.logger.Debug("digest posted", ports.Int("status", resp.StatusCode))
	return nil
}
