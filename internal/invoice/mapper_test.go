package invoice_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/internal/invoice"
	"invoicer/pkg/models"
)

var (
	periodStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	issueDate   = time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
)

func testSettings() invoice.Settings {
	return invoice.Settings{
		OrganizationID:             "org-1",
		ResponsibleAdministratorID: "admin-1",
		DefaultTradingPartnerID:    "tp-default",
		DefaultHourlyRate:          decimal.NewFromInt(190),
		DefaultVATRate:             decimal.NewFromInt(19),
		DefaultDueDays:             30,
		DefaultCurrency:            "EUR",
	}
}

type partnerMap map[string]string

func (p partnerMap) TradingPartnerFor(projectID string) string { return p[projectID] }

func TestBuyerReference(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"BE24-2001 - Einführung Vertragsmanagement", "BE24-2001"},
		{"NoSeparatorHere", ""},
		{" PO-7  - Rollout - Phase 2", "PO-7"},
		{"Hyphen-only-name", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, invoice.BuyerReference(tt.name), tt.name)
	}
}

func TestMapOneInvoicePerProject(t *testing.T) {
	aggregates := invoice.Aggregate([]models.TimeEntry{
		entry(1, id(1), "BE24-2001 - Einführung", "ACME", 600),
		entry(2, id(2), "Beta", "Globex", 90),
		entry(3, id(3), "Gamma", "Gamma", 45),
		entry(4, id(2), "Beta", "Globex", 30),
	})

	result := invoice.NewMapper(testSettings()).Map(aggregates, periodStart, periodEnd, issueDate)

	require.Equal(t, 3, result.Produced())
	assert.Zero(t, result.Blacklisted())
	assert.Zero(t, result.FailedCount())

	for _, mapped := range result.Invoices {
		require.Len(t, mapped.Document.Items, 1)
		item := mapped.Document.Items[0]
		assert.Equal(t, 1, item.Number)
		assert.Equal(t, "Standard-DL-Text", item.Title)
		assert.Equal(t, "Dienstleistung gem. Tätigkeitsbericht", item.Description)
		assert.Equal(t, invoice.HoursUnitOfMeasure, item.UnitOfMeasure)
		assert.Equal(t, "tp-default", mapped.Document.TradingPartnerID)
	}

	first := result.Invoices[0].Document
	assert.Equal(t, "BE24-2001", first.BuyerReference)
	assert.Equal(t, "10", first.Items[0].Quantity.String())
	assert.Equal(t, "190", first.Items[0].UnitPrice.String())
	assert.Equal(t, "1900.00", first.TotalNetAmount().StringFixed(2))
	assert.Equal(t, "2261.00", first.TotalAmount().StringFixed(2))
	assert.Equal(t, "Consulting 2025-06 - BE24-2001 - Einführung", first.AccountingText)
	assert.Equal(t, "2025-08-01", first.DueDate().Format("2006-01-02"))
	assert.Equal(t, 30, first.DaysDue)
	assert.Equal(t, "org-1", first.OrganizationID)
	assert.Equal(t, "admin-1", first.ResponsibleAdministratorID)
}

func TestMapBlacklistedProjectIsSkipped(t *testing.T) {
	settings := testSettings()
	settings.ProjectBlacklist = []string{"2"}

	aggregates := invoice.Aggregate([]models.TimeEntry{
		entry(1, id(1), "Alpha", "ACME", 60),
		entry(2, id(2), "Internal", "Us", 600),
	})

	result := invoice.NewMapper(settings).Map(aggregates, periodStart, periodEnd, issueDate)

	require.Equal(t, 1, result.Produced())
	assert.Equal(t, "Alpha", result.Invoices[0].Aggregate.ProjectName)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "2", result.Skipped[0].ProjectID)
	assert.Equal(t, invoice.SkipReasonBlacklisted, result.Skipped[0].Reason)
	assert.Empty(t, result.Failed)
}

func TestMapBlacklistPrecedesTradingPartnerResolution(t *testing.T) {
	settings := testSettings()
	settings.ProjectBlacklist = []string{"2"}
	settings.TradingPartners = partnerMap{"1": "tp-alpha"}

	aggregates := invoice.Aggregate([]models.TimeEntry{
		entry(1, id(1), "Alpha", "ACME", 60),
		entry(2, id(2), "Internal", "Us", 60),
		entry(3, id(3), "Unmapped", "Other", 60),
	})

	result := invoice.NewMapper(settings).Map(aggregates, periodStart, periodEnd, issueDate)

	require.Equal(t, 1, result.Produced())
	assert.Equal(t, "tp-alpha", result.Invoices[0].Document.TradingPartnerID)
	assert.Equal(t, 1, result.Blacklisted())
	require.Equal(t, 1, result.FailedCount())
	assert.Equal(t, "3", result.Failed[0].ProjectID)
	assert.ErrorIs(t, result.Failed[0].Err, invoice.ErrMissingTradingPartner)
}

func TestMapFailureDoesNotStopOtherProjects(t *testing.T) {
	aggregates := invoice.Aggregate([]models.TimeEntry{
		entry(1, id(1), "Alpha", "ACME", 60),
		entry(2, id(2), "Orphan", "ACME", 30),
	})

	settings := testSettings()
	settings.TradingPartners = partnerMap{"1": "tp-alpha"}
	result := invoice.NewMapper(settings).Map(aggregates, periodStart, periodEnd, issueDate)

	assert.Equal(t, 1, result.Produced())
	require.Equal(t, 1, result.FailedCount())
	assert.ErrorIs(t, result.Failed[0].Err, invoice.ErrMissingTradingPartner)

	var mappingErr *invoice.MappingError
	require.ErrorAs(t, result.Failed[0].Err, &mappingErr)
	assert.Equal(t, "Orphan", mappingErr.ProjectName)
}

func TestMapZeroMinuteProject(t *testing.T) {
	aggregates := invoice.Aggregate([]models.TimeEntry{
		entry(1, id(1), "Alpha", "ACME", 60),
		entry(2, id(2), "Empty", "ACME", 0),
	})

	result := invoice.NewMapper(testSettings()).Map(aggregates, periodStart, periodEnd, issueDate)

	require.Equal(t, 2, result.Produced())
	assert.Zero(t, result.FailedCount())

	mapped := result.Invoices[1]
	require.Equal(t, "Empty", mapped.Aggregate.ProjectName)
	empty := mapped.Document
	assert.Equal(t, "0", empty.Items[0].Quantity.String())
	assert.Equal(t, "190", empty.Items[0].UnitPrice.String())
	assert.Equal(t, "0.00", empty.TotalNetAmount().StringFixed(2))
	assert.Equal(t, "0.00", empty.TotalAmount().StringFixed(2))
	assert.Contains(t, empty.Remarks, "Geleistete Stunden: 0.0h")
}

func TestMapNetReproducesRevenue(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		revenue float64
		want    string
	}{
		{name: "ten minutes", minutes: 10, revenue: 1666.67, want: "16.67"},
		{name: "seven minutes", minutes: 7, revenue: 100000, want: "1000.00"},
		{name: "seventy minutes", minutes: 70, revenue: 20000, want: "200.00"},
		{name: "even hours", minutes: 90, revenue: 22500, want: "225.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry(1, id(1), "Alpha", "ACME", tt.minutes)
			e.Revenue = cents(tt.revenue)

			result := invoice.NewMapper(testSettings()).Map(invoice.Aggregate([]models.TimeEntry{e}), periodStart, periodEnd, issueDate)
			require.Equal(t, 1, result.Produced())

			doc := result.Invoices[0].Document
			assert.Equal(t, tt.want, doc.TotalNetAmount().StringFixed(2))
			assert.Equal(t, tt.want, doc.Items[0].NetAmount().StringFixed(2))
		})
	}
}

func TestMapRejectsInvalidVATRate(t *testing.T) {
	settings := testSettings()
	settings.DefaultVATRate = decimal.NewFromInt(120)

	aggregates := invoice.Aggregate([]models.TimeEntry{entry(1, id(1), "Alpha", "ACME", 60)})
	result := invoice.NewMapper(settings).Map(aggregates, periodStart, periodEnd, issueDate)

	require.Equal(t, 1, result.FailedCount())
	assert.ErrorIs(t, result.Failed[0].Err, invoice.ErrInvalidRate)
}

func TestUnitPrice(t *testing.T) {
	mapper := invoice.NewMapper(testSettings())

	t.Run("derived from revenue", func(t *testing.T) {
		e := entry(1, id(1), "Alpha", "ACME", 90)
		e.Revenue = cents(22500)
		agg := invoice.Aggregate([]models.TimeEntry{e})[0]
		assert.Equal(t, "150", mapper.UnitPrice(&agg).String())
	})

	t.Run("divided by the billed quantity", func(t *testing.T) {
		e := entry(1, id(1), "Alpha", "ACME", 70)
		e.Revenue = cents(20000)
		agg := invoice.Aggregate([]models.TimeEntry{e})[0]
		// 200 EUR / 1.17 h = 170.94..., not rounded
		price := mapper.UnitPrice(&agg)
		assert.Equal(t, "1.17", invoice.Quantity(&agg).String())
		assert.Equal(t, "170.94", price.StringFixed(2))
		assert.False(t, price.Equal(price.Round(2)))
	})

	t.Run("default for zero hours", func(t *testing.T) {
		e := entry(1, id(1), "Alpha", "ACME", 0)
		e.Revenue = cents(5000)
		agg := invoice.Aggregate([]models.TimeEntry{e})[0]
		assert.Equal(t, "190", mapper.UnitPrice(&agg).String())
	})

	t.Run("default without revenue", func(t *testing.T) {
		agg := invoice.Aggregate([]models.TimeEntry{entry(1, id(1), "Alpha", "ACME", 90)})[0]
		assert.Equal(t, "190", mapper.UnitPrice(&agg).String())
	})

	t.Run("default for zero revenue", func(t *testing.T) {
		e := entry(1, id(1), "Alpha", "ACME", 90)
		e.Revenue = cents(0)
		agg := invoice.Aggregate([]models.TimeEntry{e})[0]
		assert.Equal(t, "190", mapper.UnitPrice(&agg).String())
	})
}

func TestRemarks(t *testing.T) {
	t.Run("customer differs from project", func(t *testing.T) {
		agg := invoice.Aggregate([]models.TimeEntry{
			entry(1, id(1), "Alpha", "ACME", 100),
			entry(2, id(1), "Alpha", "ACME", 35),
		})[0]

		assert.Equal(t,
			"Beratungsleistungen für Projekt 'Alpha' | Kunde: ACME | Zeitraum: 01.06.2025 - 30.06.2025 | Geleistete Stunden: 2.3h | Anzahl Buchungen: 2",
			invoice.Remarks(&agg, periodStart, periodEnd))
	})

	t.Run("customer equals project", func(t *testing.T) {
		agg := invoice.Aggregate([]models.TimeEntry{entry(1, id(1), "Gamma", "Gamma", 60)})[0]

		assert.Equal(t,
			"Beratungsleistungen für Projekt 'Gamma' | Zeitraum: 01.06.2025 - 30.06.2025 | Geleistete Stunden: 1.0h | Anzahl Buchungen: 1",
			invoice.Remarks(&agg, periodStart, periodEnd))
	})
}
