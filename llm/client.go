// Package llm is a small chat-completions client implementing
// openimage.Classifier for text and vision prompts.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/anatolykoptev/go-openimage"
)

// DefaultEndpoint is the chat endpoint used when Config.Endpoint is empty.
const DefaultEndpoint = "https://api.zeusllm.com/v1/ai"

const (
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.7
	maxReplyBytes      = 1 << 20
)

// ErrEmptyReply is returned when the reply carries no message content.
var ErrEmptyReply = errors.New("llm: empty reply")

// Config configures a Client.
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string // sent as "model" when set
	PipelineID  string // sent as "pipeline_id" when set
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client sends prompts to an OpenAI-style chat endpoint.
type Client struct {
	cfg Config
}

// New returns a Client with defaults applied.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{cfg: cfg}
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string, or []part with images
}

type part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type request struct {
	Messages    []message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	PipelineID  string    `json:"pipeline_id,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Classify sends prompt with optional images and returns the reply text.
func (c *Client) Classify(ctx context.Context, prompt string, images []openimage.ImageInput) (string, error) {
	msg := message{Role: "user", Content: prompt}
	if len(images) > 0 {
		parts := make([]part, 0, len(images)+1)
		parts = append(parts, part{Type: "text", Text: prompt})
		for _, img := range images {
			parts = append(parts, part{Type: "image_url", ImageURL: &imageURL{URL: img.URL}})
		}
		msg.Content = parts
	}
	body, err := json.Marshal(request{
		Messages:    []message{msg},
		Model:       c.cfg.Model,
		PipelineID:  c.cfg.PipelineID,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("llm: read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: unexpected status %d", resp.StatusCode)
	}

	reply, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return "", fmt.Errorf("llm: decode reply: %w", err)
	}
	choices, err := reply.GetObjectArray("choices")
	if err != nil || len(choices) == 0 {
		return "", ErrEmptyReply
	}
	content, err := choices[0].GetString("message", "content")
	if err != nil || content == "" {
		return "", ErrEmptyReply
	}
	return content, nil
}

var _ openimage.Classifier = (*Client)(nil)
