package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

const (
	DefaultTokenURL = "https://api.amazon.com/auth/o2/token"

	// tokens are refreshed this long before they expire
	tokenSkew = time.Minute
)

// TokenProvider supplies the access token sent with every marketplace call.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed access token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// TokenSource exchanges a long-lived refresh token for short-lived access
// tokens and caches them until shortly before expiry.
type TokenSource struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	HTTPClient   *http.Client

	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *TokenSource) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.clock().Before(s.expires) {
		return s.token, nil
	}

	tok, ttl, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}

	s.token = tok
	s.expires = s.clock().Add(ttl - tokenSkew)
	return tok, nil
}

func (s *TokenSource) fetch(ctx context.Context) (string, time.Duration, error) {
	endpoint := s.TokenURL
	if endpoint == "" {
		endpoint = DefaultTokenURL
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.RefreshToken)
	form.Set("client_id", s.ClientID)
	form.Set("client_secret", s.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("lwa: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	hc := s.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	resp, err := hc.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("lwa: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", 0, fmt.Errorf("lwa: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, domain.NewUpstreamError("lwa", "token", resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("lwa: decode response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("lwa: access_token: %w", domain.ErrMissingField)
	}

	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= tokenSkew {
		ttl = tokenSkew + time.Second
	}
	return tr.AccessToken, ttl, nil
}
