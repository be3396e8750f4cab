// Package people talks to the candidate-side service: outbound email and
// SMS dispatch, inbound email polling. It also hosts the simulator that
// plays the candidates in a local setup.
package people

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"hireloop/internal/store"
)

const contentType = "application/json"

// Client is the HTTP client for the candidate-side service.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a transport client for the service at baseURL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// SendEmail dispatches an outreach email to the candidate.
func (c *Client) SendEmail(ctx context.Context, candidateID string, draft store.EmailDraft) error {
	return c.post(ctx, fmt.Sprintf("/send-email/%s", candidateID), draft)
}

// SendSMS dispatches a text message to the candidate.
func (c *Client) SendSMS(ctx context.Context, candidateID string, draft store.SMSDraft) error {
	return c.post(ctx, fmt.Sprintf("/send-sms/%s", candidateID), draft)
}

// Emails fetches the full inbound email list. Records that have been
// answered carry a non-nil response.
func (c *Client) Emails(ctx context.Context) ([]store.Email, error) {
	url := c.baseURL + "/emails"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("fetching inbound emails", zap.String("url", url))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch emails: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch emails: bad status: %s", resp.Status)
	}

	var emails []store.Email
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return nil, fmt.Errorf("decoding emails: %w", err)
	}

	return emails, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("dispatching message", zap.String("url", url))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post %s: bad status: %s", path, resp.Status)
	}

	return nil
}
