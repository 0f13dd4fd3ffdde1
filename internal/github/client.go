// Package github queries the GitHub GraphQL API for contribution counts.
package github

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

	"golang.org/x/time/rate"

	"streakwatch/pkg/logx"
)

const defaultBaseURL = "https://api.github.com/graphql"

var (
	// ErrUnauthorized means the token was rejected by the provider.
	ErrUnauthorized = errors.New("github: unauthorized")
	// ErrUserNotFound means the login does not exist.
	ErrUserNotFound = errors.New("github: user not found")
)

type Config struct {
	Token   string
	BaseURL string

	// Timeout bounds a single query end to end.
	Timeout time.Duration

	// RatePerMinute caps outbound queries; 0 disables the limiter.
	RatePerMinute int
}

type Client struct {
	httpc   *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
	log     logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var lim *rate.Limiter
	if cfg.RatePerMinute > 0 {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}
	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		baseURL: base,
		token:   cfg.Token,
		limiter: lim,
		log:     log,
	}
}

const contributionsQuery = `query($login: String!, $from: DateTime!, $to: DateTime!) {
  user(login: $login) {
    contributionsCollection(from: $from, to: $to) {
      contributionCalendar {
        totalContributions
      }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type contributionsResponse struct {
	Data struct {
		User *struct {
			ContributionsCollection struct {
				ContributionCalendar struct {
					TotalContributions int `json:"totalContributions"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// ContributionCount returns the number of contributions for login in
// [from, to]. The provider treats both bounds as inclusive, so callers
// holding a half-open window should pass its end minus one second.
func (c *Client) ContributionCount(ctx context.Context, login string, from, to time.Time) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("github: rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(graphqlRequest{
		Query: contributionsQuery,
		Variables: map[string]any{
			"login": login,
			"from":  from.UTC().Format(time.RFC3339),
			"to":    to.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("github: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("github: query failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("github: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("github: unexpected status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out contributionsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("github: decode response: %w", err)
	}
	for _, ge := range out.Errors {
		if strings.EqualFold(ge.Type, "NOT_FOUND") {
			return 0, fmt.Errorf("%w: %s", ErrUserNotFound, login)
		}
	}
	if len(out.Errors) > 0 {
		return 0, fmt.Errorf("github: graphql error: %s", out.Errors[0].Message)
	}
	if out.Data.User == nil {
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, login)
	}

	count := out.Data.User.ContributionsCollection.ContributionCalendar.TotalContributions
	if count < 0 {
		return 0, fmt.Errorf("github: negative contribution count %d", count)
	}

	c.log.Debug("contribution query ok",
		logx.String("login", login),
		logx.Int("count", count),
		logx.Duration("took", time.Since(start)),
	)
	return count, nil
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
