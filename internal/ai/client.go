// Package ai is a thin client for the hosted text-completion endpoint.
// The chat and journal code only ever consumes a plain string from it and
// must keep working when the service is absent or failing.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"embers/internal/utils"

	"github.com/rs/zerolog"
)

// ChatMessage is one prompt turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type Client struct {
	endpoint string
	hc       *http.Client
	log      zerolog.Logger
}

// NewClient builds a client for the given endpoint. An empty endpoint
// yields a client whose calls fail fast; Predict still degrades to "".
func NewClient(endpoint string, log zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: 15 * time.Second},
		log:      log.With().Str("component", "ai").Logger(),
	}
}

// Complete posts the prompt and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, msgs []ChatMessage, temperature float64, maxTokens int) (string, error) {
	if c.endpoint == "" {
		return "", utils.ConfigError("no ai endpoint configured")
	}
	body, err := json.Marshal(request{Messages: msgs, Temperature: temperature, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", utils.NewEmbersError("ai request failed").WithDetails(resp.Status)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

// Predict completes the next sentence for the editor. Predictive text is
// not worth an error dialog, so every failure degrades to an empty
// string.
func (c *Client) Predict(ctx context.Context, content string) string {
	if content == "" {
		return ""
	}
	msgs := []ChatMessage{
		{Role: "system", Content: "Complete the next sentence of this journal entry in the same voice. Output 5-15 words with punctuation and nothing else."},
		{Role: "user", Content: content},
	}
	text, err := c.Complete(ctx, msgs, 0.5, 50)
	if err != nil {
		c.log.Debug().Err(err).Msg("predict failed")
		return ""
	}
	return text
}
