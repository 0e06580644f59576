package alphaflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"invoicer/pkg/models"
)

// DefaultTradingPartnerLimit is the page size used when listing all partners.
const DefaultTradingPartnerLimit = 1000

// ListTradingPartners returns up to limit trading partners.
func (c *Client) ListTradingPartners(ctx context.Context, limit int) ([]models.TradingPartner, error) {
	if limit <= 0 {
		limit = DefaultTradingPartnerLimit
	}
	partners, err := c.queryTradingPartners(ctx, "ListTradingPartners", limit, nil)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("count", len(partners)).Msg("Trading partners loaded")
	return partners, nil
}

// TradingPartnerByNumber returns the partner whose number matches exactly,
// or ErrTradingPartnerNotFound.
func (c *Client) TradingPartnerByNumber(ctx context.Context, number string) (*models.TradingPartner, error) {
	partners, err := c.queryTradingPartners(ctx, "TradingPartnerByNumber", 10, url.Values{"filter[number]": {number}})
	if err != nil {
		return nil, err
	}
	for i := range partners {
		if partners[i].Number == number {
			return &partners[i], nil
		}
	}
	return nil, fmt.Errorf("alphaflow: number %s: %w", number, ErrTradingPartnerNotFound)
}

// TradingPartnerByID fetches a single partner.
func (c *Client) TradingPartnerByID(ctx context.Context, id string) (*models.TradingPartner, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, tradingPartnersPath+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("alphaflow: TradingPartnerByID: %w", err)
	}

	var record map[string]any
	if err := c.send(ctx, "TradingPartnerByID", req, &record); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("alphaflow: id %s: %w", id, ErrTradingPartnerNotFound)
		}
		return nil, err
	}
	if len(record) == 0 {
		return nil, fmt.Errorf("alphaflow: id %s: %w", id, ErrTradingPartnerNotFound)
	}

	partner := tradingPartnerFromRecord(record)
	return &partner, nil
}

// SearchTradingPartners matches name case-insensitively against name and
// company name of all partners.
func (c *Client) SearchTradingPartners(ctx context.Context, name string) ([]models.TradingPartner, error) {
	partners, err := c.ListTradingPartners(ctx, DefaultTradingPartnerLimit)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(name)
	var matches []models.TradingPartner
	for _, p := range partners {
		if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.CompanyName), term) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// ResolveNumberToID returns the id of the partner with the given number.
func (c *Client) ResolveNumberToID(ctx context.Context, number string) (string, error) {
	partner, err := c.TradingPartnerByNumber(ctx, number)
	if err != nil {
		return "", err
	}
	return partner.ID, nil
}

func (c *Client) queryTradingPartners(ctx context.Context, op string, count int, extra url.Values) ([]models.TradingPartner, error) {
	query := url.Values{
		"i18n":     {"true"},
		"continue": {"true"},
		"count":    {strconv.Itoa(count)},
		"start":    {"0"},
	}
	for k, v := range extra {
		query[k] = v
	}

	req, err := c.newJSONRequest(ctx, http.MethodGet, tradingPartnersPath, query, nil)
	if err != nil {
		return nil, fmt.Errorf("alphaflow: %s: %w", op, err)
	}

	var raw json.RawMessage
	if err := c.send(ctx, op, req, &raw); err != nil {
		return nil, err
	}

	records, err := tradingPartnerRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("alphaflow: %s: %w", op, err)
	}

	partners := make([]models.TradingPartner, 0, len(records))
	for _, record := range records {
		partners = append(partners, tradingPartnerFromRecord(record))
	}
	return partners, nil
}

// tradingPartnerRecords accepts a bare list or an object wrapping the list
// under one of the keys the service has been seen to use.
func tradingPartnerRecords(raw json.RawMessage) ([]map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	for _, key := range []string{"items", "data", "tradingPartners", "tradingpartners"} {
		inner, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &list); err == nil && len(list) > 0 {
			return list, nil
		}
	}
	return nil, nil
}

func tradingPartnerFromRecord(record map[string]any) models.TradingPartner {
	partnerType := stringField(record, "type")
	if t, ok := record["type"].(map[string]any); ok {
		partnerType = stringField(t, "value")
	}
	return models.TradingPartner{
		ID:          stringField(record, "id"),
		Number:      stringField(record, "number"),
		Name:        stringField(record, "name"),
		CompanyName: stringField(record, "companyName"),
		Type:        partnerType,
	}
}
