package dvelop_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/internal/dvelop"
)

type idpCounters struct {
	login    atomic.Int32
	validate atomic.Int32
	refresh  atomic.Int32
	logout   atomic.Int32
}

// newIDP serves the identity provider endpoints. sessionIDs are handed out
// in order by login and refresh.
func newIDP(t *testing.T, extra http.HandlerFunc, sessionIDs ...string) (*httptest.Server, *idpCounters) {
	t.Helper()

	counters := &idpCounters{}
	var issued atomic.Int32
	next := func() string {
		i := int(issued.Add(1)) - 1
		if i >= len(sessionIDs) {
			i = len(sessionIDs) - 1
		}
		return sessionIDs[i]
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/identityprovider/login":
			counters.login.Add(1)
			assert.Equal(t, "Bearer api-key", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"AuthSessionId": "`+next()+`"}`)
		case "/identityprovider/validate":
			counters.validate.Add(1)
			w.WriteHeader(http.StatusOK)
		case "/identityprovider/refresh":
			counters.refresh.Add(1)
			_, _ = io.WriteString(w, `{"AuthSessionId": "`+next()+`"}`)
		case "/identityprovider/logout":
			counters.logout.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			if extra == nil {
				http.NotFound(w, r)
				return
			}
			extra(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, counters
}

func newSession(t *testing.T, baseURL string) *dvelop.Session {
	t.Helper()
	s, err := dvelop.NewSession(dvelop.Config{
		BaseURL: baseURL,
		APIKey:  "api-key",
		Retry:   dvelop.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2},
	})
	require.NoError(t, err)
	return s
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).
		SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func TestNewSessionValidation(t *testing.T) {
	_, err := dvelop.NewSession(dvelop.Config{BaseURL: "https://example.test"})
	assert.ErrorIs(t, err, dvelop.ErrMissingAPIKey)

	_, err = dvelop.NewSession(dvelop.Config{BaseURL: "not a url", APIKey: "k"})
	assert.Error(t, err)
}

func TestTokenCachesOpaqueSession(t *testing.T) {
	server, counters := newIDP(t, nil, "session-1")
	s := newSession(t, server.URL)

	first, err := s.Token(context.Background())
	require.NoError(t, err)
	second, err := s.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "session-1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), counters.login.Load())
	assert.Equal(t, int32(0), counters.validate.Load())
}

func TestTokenUsesJWTExpiry(t *testing.T) {
	t.Run("valid token is reused", func(t *testing.T) {
		server, counters := newIDP(t, nil, signedToken(t, time.Now().Add(time.Hour)))
		s := newSession(t, server.URL)

		_, err := s.Token(context.Background())
		require.NoError(t, err)
		_, err = s.Token(context.Background())
		require.NoError(t, err)

		assert.Equal(t, int32(1), counters.login.Load())
		assert.Equal(t, int32(0), counters.refresh.Load())
	})

	t.Run("expired token is refreshed", func(t *testing.T) {
		server, counters := newIDP(t, nil, signedToken(t, time.Now().Add(-time.Minute)), "fresh-session")
		s := newSession(t, server.URL)

		_, err := s.Token(context.Background())
		require.NoError(t, err)
		token, err := s.Token(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "fresh-session", token)
		assert.Equal(t, int32(1), counters.refresh.Load())
	})
}

func TestLoginMissingSessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	err := newSession(t, server.URL).Login(context.Background())
	assert.ErrorIs(t, err, dvelop.ErrNoSessionID)

	var authErr *dvelop.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "login", authErr.Op)
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := newSession(t, server.URL).Login(context.Background())
	assert.ErrorIs(t, err, dvelop.ErrAuthenticationFailed)
}

func TestDoRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server, _ := newIDP(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"a":1}`, string(body))
		assert.Equal(t, "Bearer session-1", r.Header.Get("Authorization"))

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}, "session-1")
	s := newSession(t, server.URL)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/svc", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)

	resp, err := s.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoReturnsLastRetryableResponse(t *testing.T) {
	var calls atomic.Int32
	server, _ := newIDP(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, "session-1")
	s := newSession(t, server.URL)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/svc", nil)
	require.NoError(t, err)

	resp, err := s.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoReauthenticatesOnce(t *testing.T) {
	server, counters := newIDP(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, "stale", "renewed")
	s := newSession(t, server.URL)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/svc", nil)
	require.NoError(t, err)

	resp, err := s.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), counters.login.Load())
}

func TestLogoutClearsSession(t *testing.T) {
	server, counters := newIDP(t, nil, "session-1", "session-2")
	s := newSession(t, server.URL)

	require.NoError(t, s.Login(context.Background()))
	require.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, int32(1), counters.logout.Load())

	token, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-2", token)
	assert.Equal(t, int32(2), counters.login.Load())

	valid, err := s.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, valid)
}
