package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookRequest is the JSON body posted to the transactional email API.
// Rendering happens on the API side from templateId and templateData.
type WebhookRequest struct {
	To           string            `json:"to"`
	Subject      string            `json:"subject"`
	TemplateID   string            `json:"templateId"`
	TemplateData map[string]string `json:"templateData"`
}

// WebhookSender delivers emails by POSTing to an HTTP email API.
// The URL is injected from config so tests can point to a local server.
type WebhookSender struct {
	url        string
	token      string
	httpClient *http.Client
}

func NewWebhookSender(url, token string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts the email and treats any 2xx response as accepted.
func (s *WebhookSender) Send(ctx context.Context, to, subject, templateID string, data map[string]string) error {
	body, err := json.Marshal(WebhookRequest{
		To:           to,
		Subject:      subject,
		TemplateID:   templateID,
		TemplateData: data,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected email api status: %d", resp.StatusCode)
	}
	return nil
}

var _ Sender = (*WebhookSender)(nil)
