package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/pkg/models"
)

// EmailService sends and lists mail through a configured mail gateway.
// Unconfigured installs get explicit "not connected" errors on send and
// empty listings.
type EmailService struct {
	cfg    config.EmailConfig
	client *http.Client
}

// NewEmailService creates the email collaborator.
func NewEmailService(cfg config.EmailConfig) *EmailService {
	return &EmailService{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Connected reports whether a mail gateway is configured.
func (e *EmailService) Connected() bool {
	return e.cfg.Endpoint != "" && e.cfg.Token != ""
}

// Send delivers one message.
func (e *EmailService) Send(ctx context.Context, to, subject, body string) *models.SendResult {
	if !e.Connected() {
		return &models.SendResult{Success: false, To: to, Subject: subject, Error: "email not connected"}
	}

	payload, _ := json.Marshal(map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", e.cfg.Endpoint+"/messages/send", bytes.NewReader(payload))
	if err != nil {
		return &models.SendResult{Success: false, To: to, Subject: subject, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.Token)

	resp, err := e.client.Do(req)
	if err != nil {
		return &models.SendResult{Success: false, To: to, Subject: subject, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &models.SendResult{
			Success: false,
			To:      to,
			Subject: subject,
			Error:   fmt.Sprintf("email: status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var sent struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&sent)

	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return &models.SendResult{Success: true, MessageID: sent.ID, To: to, Subject: subject}
}

// Recent lists recent messages matching the query. Returns an empty list
// when no gateway is configured.
func (e *EmailService) Recent(ctx context.Context, maxResults int, query string) ([]models.EmailSummary, error) {
	if !e.Connected() {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	if query == "" {
		query = "is:unread"
	}

	u := fmt.Sprintf("%s/messages?q=%s&max=%d", e.cfg.Endpoint, url.QueryEscape(query), maxResults)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.Token)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("email: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("email: status %d", resp.StatusCode)
	}

	var payload struct {
		Messages []models.EmailSummary `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("email: decode response: %w", err)
	}
	return payload.Messages, nil
}

// UnreadCount returns the unread estimate, 0 on any failure.
func (e *EmailService) UnreadCount(ctx context.Context) int {
	msgs, err := e.Recent(ctx, 100, "is:unread")
	if err != nil {
		log.Warn().Err(err).Msg("Unread count fetch failed")
		return 0
	}
	return len(msgs)
}
