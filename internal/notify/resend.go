package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultResendBaseURL = "https://api.resend.com"

type ResendConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ResendChannel sends email through the Resend HTTP API.
type ResendChannel struct {
	httpc   *http.Client
	baseURL string
	apiKey  string
}

func NewResendChannel(cfg ResendConfig) (*ResendChannel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("resend: api key is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultResendBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ResendChannel{
		httpc:   &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
	}, nil
}

func (c *ResendChannel) Name() string { return "email" }

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send makes exactly one delivery attempt; there is no retry here.
func (c *ResendChannel) Send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(resendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("resend: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend: send failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("resend: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("resend: status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("resend: unexpected status %d", resp.StatusCode)
	}

	var ok struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &ok); err != nil {
		return "", fmt.Errorf("resend: decode response: %w", err)
	}
	if ok.ID == "" {
		return "", errors.New("resend: response missing delivery id")
	}
	return ok.ID, nil
}
