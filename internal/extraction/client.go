package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the query extraction API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// Config contains extraction client configuration
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Result is the extraction verdict for one transcript.
type Result struct {
	IsQuery  bool   `json:"is_query"`
	Question string `json:"question"`
}

// NewClient creates a new extraction HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// ExtractQuery submits a transcript and returns whether it contains a
// question, along with the isolated question text.
func (c *Client) ExtractQuery(ctx context.Context, transcript string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{"text": transcript})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := respBody
		if len(detail) > 4096 {
			detail = detail[:4096]
		}
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, detail)
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return &result, nil
}
