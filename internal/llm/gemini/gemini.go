// Package gemini implements answer generation against Google's Gemini API.
package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"docrag/internal/domain"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements domain.Generator over the generateContent endpoints.
type Client struct {
	apiKey string
	model  string
	http   *httpClient
}

// Config configures the Gemini client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	TimeoutSec int
}

// NewClient creates a Gemini client from configuration. The API key is read
// from the environment variable named by APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemma-3-27b-it"
	}
	return &Client{
		apiKey: key,
		model:  cfg.Model,
		http:   newHTTPClient(cfg.BaseURL, cfg.TimeoutSec),
	}, nil
}

// Model returns the model ID used for generation.
func (c *Client) Model() string { return c.model }

// Generate sends the prompt and returns the whole response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	path := fmt.Sprintf("/models/%s:generateContent?key=%s", c.model, c.apiKey)
	resp, err := c.http.post(ctx, path, requestBody(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini generate: %s", readErrorBody(resp))
	}

	var raw generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("gemini generate decode: %w", err)
	}
	text := raw.text()
	if text == "" {
		return "", errors.New("gemini generate: empty response")
	}
	return text, nil
}

// GenerateStream sends the prompt and returns a channel of text fragments.
// The channel is closed when the stream ends; if the connection fails
// mid-stream, the last fragment carries the error. The stream is not
// restartable.
func (c *Client) GenerateStream(ctx context.Context, prompt string) (<-chan domain.Fragment, error) {
	path := fmt.Sprintf("/models/%s:streamGenerateContent?key=%s&alt=sse", c.model, c.apiKey)
	resp, err := c.http.post(ctx, path, requestBody(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		errMsg := readErrorBody(resp)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("gemini stream: %s", errMsg)
	}

	ch := make(chan domain.Fragment, 64)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			var raw generateResponse
			if err := json.Unmarshal([]byte(data), &raw); err != nil {
				continue
			}
			if text := raw.text(); text != "" {
				select {
				case ch <- domain.Fragment{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			// a dropped connection must not pass for a complete answer
			select {
			case ch <- domain.Fragment{Err: fmt.Errorf("gemini stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, nil
}

func requestBody(prompt string) map[string]any {
	return map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": prompt}},
			},
		},
	}
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
			Role string `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var parts []string
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "")
}
