package narrative

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

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL     = "https://api.cohere.ai/v1"
	defaultModel       = "command-r-plus"
	defaultMaxTokens   = 300
	defaultTemperature = 0.6
	generatePath       = "/generate"
	maxErrorBody       = 4 << 10
)

// Request is one generation call.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options parameterise the hosted generation client.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	UserAgent   string
}

// Client calls a Cohere-compatible generate endpoint.
type Client struct {
	opts    Options
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient constructs a generation client. The API key is never logged.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature < 0 {
		opts.Temperature = defaultTemperature
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		opts:    opts,
		baseURL: baseURL,
		client:  &http.Client{Timeout: opts.Timeout},
		logger:  logger.With().Str("component", "narrative").Logger(),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.opts.Model
}

// Defaults returns a request carrying the configured token budget and temperature.
func (c *Client) Defaults(prompt string) Request {
	return Request{Prompt: prompt, MaxTokens: c.opts.MaxTokens, Temperature: c.opts.Temperature}
}

// Generate sends the prompt and returns the first generation, trimmed.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(c.opts.APIKey) == "" {
		return "", &Error{Kind: KindAuth, Message: "api key not configured"}
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.opts.MaxTokens
	}

	body, err := json.Marshal(generateRequest{
		Model:       c.opts.Model,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", serviceError(0, "marshal request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", serviceError(0, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		httpReq.Header.Set("User-Agent", ua)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", networkError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", networkError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseHTTPError(resp.StatusCode, payload)
	}

	var out generateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", serviceError(resp.StatusCode, "decode response", err)
	}
	if len(out.Generations) == 0 {
		return "", serviceError(resp.StatusCode, "response contained no generations", nil)
	}

	text := strings.TrimSpace(out.Generations[0].Text)
	c.logger.Debug().Str("model", c.opts.Model).
		Dur("latency", time.Since(start)).
		Int("chars", len(text)).
		Msg("narrative generated")
	return text, nil
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	ID          string `json:"id"`
	Generations []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"generations"`
	Prompt string `json:"prompt"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	message := ""
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		message = apiErr.Message
	} else if len(payload) > 0 {
		if len(payload) > maxErrorBody {
			payload = payload[:maxErrorBody]
		}
		message = strings.TrimSpace(string(payload))
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &Error{Kind: KindAuth, Status: status, Message: message}
	}
	return serviceError(status, message, nil)
}

// IsTimeout reports whether err came from the request deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

var _ Generator = (*Client)(nil)
