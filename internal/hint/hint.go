// Package hint provides the answer-hint lookup, the Go analogue of
// original_source/backend/ai/ai.py's get_ai_help (there a direct Groq chat
// completion call). Generalized to a pluggable HTTP provider so the
// backend isn't pinned to one vendor's SDK.
package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider explains why a player's answer was wrong, without revealing the
// correct answer.
type Provider interface {
	Hint(ctx context.Context, question, correctAnswer, wrongAnswer string) (string, error)
}

// HTTPProvider calls a chat-completion-shaped HTTP endpoint (compatible
// with the Groq/OpenAI chat completions request/response envelope).
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

// NewHTTPProvider returns an HTTPProvider with a default model and a
// conservative timeout, since hint generation is on the critical path of a
// player's question flow.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   "llama3-8b-8192",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Stream    bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *HTTPProvider) Hint(ctx context.Context, question, correctAnswer, wrongAnswer string) (string, error) {
	prompt := fmt.Sprintf(
		"Provide hints and help the user understand. Do not give the answer. Be brief. Question: %s\nCorrect Answer: %s\nUser's Answer: %s",
		question, correctAnswer, wrongAnswer,
	)

	body, err := json.Marshal(chatRequest{
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		Model:     p.Model,
		MaxTokens: 100,
		Stream:    false,
	})
	if err != nil {
		return "", fmt.Errorf("hint: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("hint: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("hint: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hint: provider returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("hint: read response: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("hint: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("hint: provider returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
