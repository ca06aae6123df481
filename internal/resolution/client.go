package resolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the answer resolution API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// Config contains resolution client configuration
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// NewClient creates a new resolution HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	// Resolution may call out to slow language models
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Resolve submits an extracted question and returns the answer text.
func (c *Client) Resolve(ctx context.Context, conversationID, question string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"chatid":   conversationID,
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := respBody
		if len(detail) > 4096 {
			detail = detail[:4096]
		}
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, detail)
	}

	var result struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if strings.TrimSpace(result.Answer) == "" {
		return "", fmt.Errorf("resolution backend returned an empty answer")
	}

	return result.Answer, nil
}
