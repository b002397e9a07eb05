// Package auth maintains the Itsperfect session token. The API hands out
// short-lived bearer tokens from POST /authentication; a Session caches one
// and refreshes it lazily when it expires, so callers never deal with token
// plumbing beyond the TokenSource interface in pkg/client.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Token lifetime handling.
const (
	// defaultLifetime is assumed when the API omits expires_in or sends
	// something unusable.
	defaultLifetime = 5 * time.Minute

	// refreshMargin renews the token slightly before its stated expiry so a
	// request started near the boundary cannot carry a dead token.
	refreshMargin = 30 * time.Second
)

// AuthError represents a failed authentication exchange.
type AuthError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// Config holds the session configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://example.itsperfect.it/api/v3".
	BaseURL string

	// Username and Password are the API account credentials.
	Username string
	Password string

	// Timeout bounds the authentication round trip.
	Timeout time.Duration
}

// Session caches a bearer token and refreshes it lazily on expiry.
// It implements client.TokenSource.
type Session struct {
	config     Config
	httpClient *http.Client
	logger     zerolog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	// now is replaced in tests for expiry control.
	now func() time.Time
}

// NewSession creates a session for the given API account. No request is made
// until the first Token call.
func NewSession(cfg Config) (*Session, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.Username == "" {
		return nil, fmt.Errorf("username is required")
	}

	if cfg.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Session{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log.With().Str("component", "auth-session").Logger(),
		now:    time.Now,
	}, nil
}

// Token returns a valid bearer token, authenticating or re-authenticating as
// needed. Authentication failures are hard failures; there is no retry here.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiresAt) {
		return s.token, nil
	}

	return s.refresh(ctx)
}

// Invalidate drops the cached token so the next Token call re-authenticates.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.expiresAt = time.Time{}
}

// refresh performs the authentication exchange. Callers hold the mutex.
func (s *Session) refresh(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": s.config.Username,
		"password": s.config.Password,
	})
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+"/authentication", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("authentication request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var payload struct {
		Token     string    `json:"token"`
		ExpiresIn expiresIn `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode authentication response: %w", err)
	}
	if payload.Token == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Message: "response carried no token"}
	}

	lifetime := defaultLifetime
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn) * time.Second
	}

	s.token = payload.Token
	s.expiresAt = s.now().Add(lifetime - refreshMargin)

	s.logger.Info().
		Time("expires_at", s.expiresAt).
		Msg("Session token refreshed")

	return s.token, nil
}

// expiresIn is the token lifetime in seconds. The API serializes it as a
// number or a numeric string depending on version; anything unusable decodes
// to zero and falls back to defaultLifetime.
type expiresIn int64

// UnmarshalJSON implements tolerant decoding.
func (e *expiresIn) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		*e = 0
		return nil
	}
	*e = expiresIn(f)
	return nil
}
