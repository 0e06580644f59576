// Package mite is a small client for the mite time tracking REST API.
package mite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
	"invoicer/pkg/services"
)

const (
	userAgent      = "Mite API Client 1.0"
	defaultTimeout = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	Account string
	APIKey  string

	// BaseURL overrides https://{account}.mite.de/.
	BaseURL string

	// RequestsPerSecond limits outgoing requests; zero disables the limit.
	RequestsPerSecond float64

	HTTPClient *http.Client
}

// Client talks to one mite account.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

var _ services.TimeTracking = (*Client)(nil)

// NewClient validates the configuration and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Account == "" || cfg.APIKey == "" {
		return nil, ErrMissingCredentials
	}

	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.mite.de/", cfg.Account)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("mite: invalid base URL %q: %w", base, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
		log:        logger.WithComponent("mite"),
	}, nil
}

// TimeEntries lists time entries matching filter.
func (c *Client) TimeEntries(ctx context.Context, filter services.EntryFilter) ([]models.TimeEntry, error) {
	const op = "mite.TimeEntries"

	params := url.Values{}
	if !filter.From.IsZero() {
		params.Set("from", filter.From.Format(models.DateLayout))
	}
	if !filter.To.IsZero() {
		params.Set("to", filter.To.Format(models.DateLayout))
	}
	if filter.ProjectID != "" {
		params.Set("project_id", filter.ProjectID)
	}
	if filter.Billable != nil {
		params.Set("billable", strconv.FormatBool(*filter.Billable))
	}
	if filter.Locked != nil {
		params.Set("locked", strconv.FormatBool(*filter.Locked))
	}

	var items []json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, "time_entries.json", params, nil, &items); err != nil {
		return nil, err
	}

	entries := make([]models.TimeEntry, 0, len(items))
	for _, item := range items {
		var entry models.TimeEntry
		if err := json.Unmarshal(unwrap(item, "time_entry", "time-entry"), &entry); err != nil {
			return nil, fmt.Errorf("%s: decode time entry: %w", op, err)
		}
		entries = append(entries, entry)
	}

	c.log.Debug().
		Int("count", len(entries)).
		Str("project_id", filter.ProjectID).
		Msg("Fetched time entries")

	return entries, nil
}

// TimeEntry fetches a single entry.
func (c *Client) TimeEntry(ctx context.Context, id int64) (*models.TimeEntry, error) {
	const op = "mite.TimeEntry"

	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, fmt.Sprintf("time_entries/%d.json", id), nil, nil, &raw); err != nil {
		return nil, err
	}

	var entry models.TimeEntry
	if err := json.Unmarshal(unwrap(raw, "time_entry", "time-entry"), &entry); err != nil {
		return nil, fmt.Errorf("%s: decode time entry: %w", op, err)
	}
	return &entry, nil
}

// LockTimeEntry sets the locked flag of an entry. mite answers a successful
// update with an empty body.
func (c *Client) LockTimeEntry(ctx context.Context, id int64) error {
	body := map[string]any{"time-entry": map[string]any{"locked": true}}
	return c.do(ctx, "mite.LockTimeEntry", http.MethodPatch, fmt.Sprintf("time_entries/%d.json", id), nil, body, nil)
}

// Projects lists active projects, or archived ones when archived is set.
func (c *Client) Projects(ctx context.Context, archived bool) ([]models.Project, error) {
	const op = "mite.Projects"

	path := "projects.json"
	if archived {
		path = "projects/archived.json"
	}

	var items []json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, path, nil, nil, &items); err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(items))
	for _, item := range items {
		var p models.Project
		if err := json.Unmarshal(unwrap(item, "project"), &p); err != nil {
			return nil, fmt.Errorf("%s: decode project: %w", op, err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// Project fetches one project by id.
func (c *Client) Project(ctx context.Context, id string) (*models.Project, error) {
	const op = "mite.Project"

	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, fmt.Sprintf("projects/%s.json", url.PathEscape(id)), nil, nil, &raw); err != nil {
		return nil, err
	}

	var p models.Project
	if err := json.Unmarshal(unwrap(raw, "project"), &p); err != nil {
		return nil, fmt.Errorf("%s: decode project: %w", op, err)
	}
	return &p, nil
}

// Customers lists active customers.
func (c *Client) Customers(ctx context.Context) ([]models.Customer, error) {
	const op = "mite.Customers"

	var items []json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, "customers.json", nil, nil, &items); err != nil {
		return nil, err
	}

	customers := make([]models.Customer, 0, len(items))
	for _, item := range items {
		var cu models.Customer
		if err := json.Unmarshal(unwrap(item, "customer"), &cu); err != nil {
			return nil, fmt.Errorf("%s: decode customer: %w", op, err)
		}
		customers = append(customers, cu)
	}
	return customers, nil
}

// Ping checks credentials by reading account.json.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "mite.Ping", http.MethodGet, "account.json", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	endpoint := c.baseURL.JoinPath(path)
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("X-MiteApiKey", c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("mite request")

	if resp.StatusCode >= 400 {
		return newAPIError(op, resp.StatusCode, string(data))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// unwrap returns the value under the first matching key of a single-key
// wrapper object, or raw itself when it is not wrapped.
func unwrap(raw json.RawMessage, keys ...string) json.RawMessage {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return raw
	}
	for _, key := range keys {
		if inner, ok := wrapper[key]; ok {
			return inner
		}
	}
	return raw
}
