// Package dvelop manages the d.velop identity provider session that every
// Alphaflow call is authenticated with, and sends authenticated requests
// with retries.
package dvelop

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

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"invoicer/internal/logger"
)

const (
	loginPath    = "identityprovider/login"
	validatePath = "identityprovider/validate"
	refreshPath  = "identityprovider/refresh"
	logoutPath   = "identityprovider/logout"

	// expirySkew renews JWT sessions shortly before they expire.
	expirySkew = 30 * time.Second
)

// Config configures a Session.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retry   RetryPolicy

	// ValidateAfter is how long an opaque (non-JWT) session id is trusted
	// before it is checked against the validate endpoint again.
	ValidateAfter time.Duration

	HTTPClient *http.Client
}

// Session holds the current d.velop session id. It is safe for concurrent use.
type Session struct {
	baseURL       *url.URL
	apiKey        string
	httpClient    *http.Client
	retry         RetryPolicy
	validateAfter time.Duration
	log           zerolog.Logger
	now           func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	checkedAt time.Time
}

// NewSession returns a session that logs in lazily on first use.
func NewSession(cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("dvelop: invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	validateAfter := cfg.ValidateAfter
	if validateAfter <= 0 {
		validateAfter = 5 * time.Minute
	}

	return &Session{
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		httpClient:    httpClient,
		retry:         cfg.Retry.normalized(),
		validateAfter: validateAfter,
		log:           logger.WithComponent("dvelop"),
		now:           time.Now,
	}, nil
}

// BaseURL returns the d.velop base URL with a trailing slash.
func (s *Session) BaseURL() *url.URL {
	u := *s.baseURL
	return &u
}

// Login authenticates with the API key and stores the returned session id.
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login(ctx)
}

func (s *Session) login(ctx context.Context) error {
	const op = "login"

	s.log.Debug().Msg("Authenticating against d.velop identity provider")

	req, err := s.newRequest(ctx, http.MethodGet, loginPath, "Bearer "+s.apiKey)
	if err != nil {
		return &AuthError{Op: op, Err: err}
	}

	resp, err := s.send(ctx, req)
	if err != nil {
		return &AuthError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Err: ErrAuthenticationFailed}
	}

	token, err := decodeSessionID(resp.Body)
	if err != nil {
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	s.store(token)
	s.log.Info().Msg("d.velop authentication successful")
	return nil
}

// Validate asks the identity provider whether the current session is still valid.
func (s *Session) Validate(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validate(ctx)
}

func (s *Session) validate(ctx context.Context) (bool, error) {
	if s.token == "" {
		return false, nil
	}

	req, err := s.newRequest(ctx, http.MethodGet, validatePath, "Bearer "+s.token)
	if err != nil {
		return false, &AuthError{Op: "validate", Err: err}
	}

	resp, err := s.send(ctx, req)
	if err != nil {
		return false, &AuthError{Op: "validate", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		s.log.Warn().Int("status", resp.StatusCode).Msg("d.velop session expired")
		return false, nil
	}

	s.checkedAt = s.now()
	return true, nil
}

// Refresh renews the session. Without a session, or when the refresh call
// fails, it falls back to a fresh login.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) error {
	if s.token == "" {
		return s.login(ctx)
	}

	req, err := s.newRequest(ctx, http.MethodPost, refreshPath, "Bearer "+s.token)
	if err == nil {
		var resp *http.Response
		resp, err = s.send(ctx, req)
		if err == nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				token, decodeErr := decodeSessionID(resp.Body)
				if decodeErr == nil {
					s.store(token)
					s.log.Debug().Msg("d.velop session refreshed")
					return nil
				}
				err = decodeErr
			} else {
				err = fmt.Errorf("HTTP %d", resp.StatusCode)
			}
		}
	}

	s.log.Warn().Err(err).Msg("Session refresh failed, logging in again")
	s.clear()
	return s.login(ctx)
}

// Logout ends the session on the server and clears local state. A missing
// session is not an error.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return nil
	}
	defer s.clear()

	req, err := s.newRequest(ctx, http.MethodPost, logoutPath, "Bearer "+s.token)
	if err != nil {
		return &AuthError{Op: "logout", Err: err}
	}

	resp, err := s.send(ctx, req)
	if err != nil {
		return &AuthError{Op: "logout", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &AuthError{Op: "logout", StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}
	s.log.Debug().Msg("d.velop logout successful")
	return nil
}

// Token returns a valid session id, logging in, validating or refreshing as needed.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureValid(ctx); err != nil {
		return "", err
	}
	return s.token, nil
}

func (s *Session) ensureValid(ctx context.Context) error {
	if s.token == "" {
		return s.login(ctx)
	}

	now := s.now()
	if !s.expiresAt.IsZero() {
		if now.Add(expirySkew).Before(s.expiresAt) {
			return nil
		}
		return s.refresh(ctx)
	}

	if now.Sub(s.checkedAt) < s.validateAfter {
		return nil
	}

	valid, err := s.validate(ctx)
	if err == nil && valid {
		return nil
	}
	return s.refresh(ctx)
}

// invalidate drops the cached session after the server rejected it.
func (s *Session) invalidate(rejected string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == rejected {
		s.clear()
	}
}

func (s *Session) store(token string) {
	s.token = token
	s.checkedAt = s.now()
	s.expiresAt = tokenExpiry(token)
}

func (s *Session) clear() {
	s.token = ""
	s.expiresAt = time.Time{}
	s.checkedAt = time.Time{}
}

func (s *Session) newRequest(ctx context.Context, method, path, authorization string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL.JoinPath(path).String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func decodeSessionID(body io.Reader) (string, error) {
	var payload struct {
		AuthSessionID string `json:"AuthSessionId"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if payload.AuthSessionID == "" {
		return "", ErrNoSessionID
	}
	return payload.AuthSessionID, nil
}

// tokenExpiry reads the exp claim when the session id is a JWT. The
// signature cannot be checked client side, so the token is parsed unverified
// and only used to schedule renewal.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
