// Package alphaflow is the client for the Alphaflow outgoing invoice and
// trading partner services, reached through an authenticated d.velop session.
package alphaflow

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

	"github.com/rs/zerolog"
	"invoicer/internal/logger"
)

const (
	invoicesPath        = "alphaflow-outgoinginvoice/outgoinginvoiceservice/outgoinginvoices"
	workflowPath        = "alphaflow-outgoinginvoice/workflowservice/workflowinstance_outgoinginvoice/workflow"
	tradingPartnersPath = "alphaflow-tradingpartner/tradingpartnerservice/tradingpartners"

	acceptLanguageGerman = "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7"
)

// Transport sends authenticated requests; *dvelop.Session implements it.
type Transport interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls Alphaflow services.
type Client struct {
	baseURL   *url.URL
	transport Transport
	log       zerolog.Logger
}

// NewClient returns a client for the d.velop instance at baseURL.
func NewClient(baseURL string, transport Transport) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("alphaflow: invalid base URL %q", baseURL)
	}
	return &Client{
		baseURL:   u,
		transport: transport,
		log:       logger.WithComponent("alphaflow"),
	}, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs req and decodes a JSON response into out when out is
// non-nil and the body is not empty.
func (c *Client) send(ctx context.Context, op string, req *http.Request, out any) error {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("alphaflow: %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("alphaflow: %s: read response: %w", op, err)
	}

	c.log.Debug().
		Str("op", op).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Msg("Alphaflow request")

	if !successStatus(resp.StatusCode) {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("alphaflow: %s: decode response: %w", op, err)
	}
	return nil
}

func successStatus(status int) bool {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return true
	}
	return false
}

// stringField reads a string or number field from a raw record.
func stringField(record map[string]any, key string) string {
	switch v := record[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case map[string]any:
		// references are sometimes expanded to {"id": ...}
		return stringField(v, "id")
	}
	return ""
}
