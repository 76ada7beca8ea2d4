package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPMailer posts notification emails to the transactional mail endpoint of
// the admin backend, which resolves recipient ids to addresses. A 429
// answer surfaces as ErrRateLimited so the notifier can apply its single
// bounded retry.
type HTTPMailer struct {
	client *http.Client
	url    string
	apiKey string
}

func NewHTTPMailer(url, apiKey string) *HTTPMailer {
	return &HTTPMailer{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		apiKey: apiKey,
	}
}

type mailRequest struct {
	RecipientId string `json:"recipient_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

func (m *HTTPMailer) Send(ctx context.Context, recipientId, subject, body string) error {
	payload, err := json.Marshal(mailRequest{
		RecipientId: recipientId,
		Subject:     subject,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call mail endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail endpoint returned %d: %s", resp.StatusCode, detail)
	}

	return nil
}
