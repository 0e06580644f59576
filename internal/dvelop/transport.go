package dvelop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RetryPolicy controls how transient failures are retried.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy makes three attempts, waiting 1s and then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 2}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

// delay returns the wait before retry number attempt (0-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Do sends req with the current session id. Transient failures are retried
// and a 401 triggers one re-authentication. The request body must be
// replayable (GetBody set), which holds for bodies built from bytes.
func (s *Session) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.send(ctx, withAuth(req, token))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	drain(resp)
	s.log.Warn().Str("path", req.URL.Path).Msg("Session rejected, re-authenticating")
	s.invalidate(token)

	token, err = s.Token(ctx)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, withAuth(req, token))
}

// send performs req with retries on transport errors, 429 and 5xx.
func (s *Session) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := s.retry.delay(attempt - 1)
			s.log.Debug().
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Str("path", req.URL.Path).
				Msg("Retrying request")
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		attemptReq, err := replay(ctx, req)
		if err != nil {
			return nil, err
		}

		resp, err := s.httpClient.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if retryable(resp.StatusCode) && attempt < s.retry.MaxAttempts-1 {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			drain(resp)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("request %s %s failed after %d attempts: %w",
		req.Method, req.URL.Path, s.retry.MaxAttempts, lastErr)
}

func withAuth(req *http.Request, token string) *http.Request {
	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+token)
	if authed.Header.Get("Accept") == "" {
		authed.Header.Set("Accept", "application/json")
	}
	return authed
}

func replay(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
