package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"voice-story-go/internal/logger"
)

// Capability is the language-model completion interface every transform
// stage consumes. Cloud or local backends are interchangeable behind it.
type Capability interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config points the client at any OpenAI-compatible chat endpoint.
type Config struct {
	GatewayURL string
	APIKey     string
	Model      string
	Timeout    time.Duration
}

// Client calls a chat-completion gateway with retry on transient failures.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.New(),
	}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.GatewayURL == "" {
		return "", fmt.Errorf("llm gateway not configured")
	}

	log := c.log.WithField("component", "llm.client")
	reqBody := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.0,
	}
	data, _ := json.Marshal(reqBody)

	var content string
	var lastErr error
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(data))
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			lastErr = fmt.Errorf("llm gateway rejected request: http %d: %s", resp.StatusCode, body)
			return backoff.Permanent(lastErr)
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("llm server error: http %d", resp.StatusCode)
			return lastErr
		}

		inner, err := contentFromChoices(body)
		if err != nil {
			lastErr = err
			return lastErr
		}
		content = inner
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * c.cfg.Timeout
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("llm completion failed: %w", lastErr)
	}
	return content, nil
}

// contentFromChoices unwraps the OpenAI-style choices[0].message.content.
func contentFromChoices(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("gateway response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
