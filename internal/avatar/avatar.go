// Package avatar resolves a player's GitHub avatar URL, the Go analogue of
// original_source/backend/github/github.py's get_github_avatar.
package avatar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Lookup resolves username to an avatar URL, returning a nil pointer (not
// an error) when the account has no avatar_url field.
type Lookup interface {
	Avatar(ctx context.Context, username string) (*string, error)
}

// HTTPLookup queries the GitHub users API directly:
// GET https://api.github.com/users/{username}.
type HTTPLookup struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPLookup returns a Lookup pointed at baseURL (normally
// "https://api.github.com/users").
func NewHTTPLookup(baseURL string) *HTTPLookup {
	return &HTTPLookup{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type userResponse struct {
	AvatarURL string `json:"avatar_url"`
}

func (l *HTTPLookup) Avatar(ctx context.Context, username string) (*string, error) {
	url := fmt.Sprintf("%s/%s", l.BaseURL, username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("avatar: build request: %w", err)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatar: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var out userResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("avatar: decode response: %w", err)
	}
	if out.AvatarURL == "" {
		return nil, nil
	}
	return &out.AvatarURL, nil
}
