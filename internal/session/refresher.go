// internal/session/refresher.go
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNoRefresher means the store was built for anonymous operation.
var ErrNoRefresher = errors.New("no session refresher configured")

// HTTPRefresher drives a token endpoint that accepts a refresh token and
// answers a new access/refresh token pair, the shape most hosted identity
// services expose.
type HTTPRefresher struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPRefresher points at a grant_type=refresh_token endpoint.
func NewHTTPRefresher(endpoint, apiKey string, httpClient *http.Client) *HTTPRefresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRefresher{endpoint: endpoint, apiKey: apiKey, httpClient: httpClient}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refresh exchanges current.RefreshToken for a fresh session.
func (r *HTTPRefresher) Refresh(ctx context.Context, current *Session) (*Session, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, errors.New("no refresh token available")
	}

	body, err := json.Marshal(map[string]string{"refresh_token": current.RefreshToken})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"?grant_type=refresh_token", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("refresh rejected: status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("refresh response missing access token")
	}

	sess := &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if sess.RefreshToken == "" {
		sess.RefreshToken = current.RefreshToken
	}
	if tok.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return sess, nil
}
