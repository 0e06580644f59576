package invoice

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invoicer/internal/logger"
)

const (
	// HoursUnitOfMeasure is the Alphaflow unit-of-measure id for hours.
	HoursUnitOfMeasure = "607da1058592fb520cff7451"

	itemTitle       = "Standard-DL-Text"
	itemDescription = "Dienstleistung gem. Tätigkeitsbericht"

	buyerReferenceSeparator = " - "

	// SkipReasonBlacklisted marks projects excluded by configuration.
	SkipReasonBlacklisted = "blacklisted"
)

// Settings are the configured values the mapper needs.
type Settings struct {
	OrganizationID             string
	ResponsibleAdministratorID string
	DefaultTradingPartnerID    string
	DefaultHourlyRate          decimal.Decimal
	DefaultVATRate             decimal.Decimal
	DefaultDueDays             int
	DefaultCurrency            string
	InvoiceTypeValue           string
	ProjectBlacklist           []string

	// TradingPartners resolves the invoice recipient per project. Nil means
	// every project goes to DefaultTradingPartnerID.
	TradingPartners TradingPartnerResolver
}

// TradingPartnerResolver picks the Alphaflow trading partner for a mite project.
type TradingPartnerResolver interface {
	TradingPartnerFor(projectID string) string
}

// DefaultTradingPartner resolves every project to the same trading partner.
type DefaultTradingPartner string

// TradingPartnerFor implements TradingPartnerResolver.
func (d DefaultTradingPartner) TradingPartnerFor(string) string {
	return string(d)
}

// MappedInvoice pairs a document with the aggregate it was built from.
type MappedInvoice struct {
	Aggregate *ProjectAggregate
	Document  *Document
}

// SkippedProject is a project intentionally not invoiced.
type SkippedProject struct {
	ProjectID   string
	ProjectName string
	Reason      string
}

// FailedProject is a project whose document could not be built.
type FailedProject struct {
	ProjectID   string
	ProjectName string
	Err         error
}

// MappingResult is the outcome of mapping all aggregates of a run.
type MappingResult struct {
	Invoices []MappedInvoice
	Skipped  []SkippedProject
	Failed   []FailedProject
}

// Produced returns the number of documents built.
func (r *MappingResult) Produced() int { return len(r.Invoices) }

// Blacklisted returns the number of skipped projects.
func (r *MappingResult) Blacklisted() int { return len(r.Skipped) }

// FailedCount returns the number of projects that failed to map.
func (r *MappingResult) FailedCount() int { return len(r.Failed) }

// Mapper converts project aggregates into invoice documents.
type Mapper struct {
	settings   Settings
	resolver   TradingPartnerResolver
	validation *AmountValidation
	log        zerolog.Logger
}

// NewMapper creates a mapper for the given settings.
func NewMapper(settings Settings) *Mapper {
	resolver := settings.TradingPartners
	if resolver == nil {
		resolver = DefaultTradingPartner(settings.DefaultTradingPartnerID)
	}
	return &Mapper{
		settings:   settings,
		resolver:   resolver,
		validation: NewAmountValidation(),
		log:        logger.WithComponent("invoice-mapper"),
	}
}

// Map builds one document per aggregate. Blacklisted projects are reported
// as skipped; projects that fail are reported as failed and do not stop the
// remaining ones.
func (m *Mapper) Map(aggregates []ProjectAggregate, periodStart, periodEnd, issueDate time.Time) *MappingResult {
	result := &MappingResult{}

	for i := range aggregates {
		agg := &aggregates[i]

		if m.IsBlacklisted(agg.ProjectKey) {
			m.log.Info().
				Str("project_id", agg.ProjectKey).
				Str("project", agg.ProjectName).
				Msg("Project skipped, on blacklist")
			result.Skipped = append(result.Skipped, SkippedProject{
				ProjectID:   agg.ProjectKey,
				ProjectName: agg.ProjectName,
				Reason:      SkipReasonBlacklisted,
			})
			continue
		}

		doc, err := m.MapProject(agg, periodStart, periodEnd, issueDate)
		if err != nil {
			m.log.Error().
				Err(err).
				Str("project_id", agg.ProjectKey).
				Str("project", agg.ProjectName).
				Msg("Failed to build invoice for project")
			result.Failed = append(result.Failed, FailedProject{
				ProjectID:   agg.ProjectKey,
				ProjectName: agg.ProjectName,
				Err:         err,
			})
			continue
		}

		m.log.Info().
			Str("project_id", agg.ProjectKey).
			Str("project", agg.ProjectName).
			Str("trading_partner_id", doc.TradingPartnerID).
			Float64("hours", agg.DisplayHours()).
			Msg("Invoice built for project")
		result.Invoices = append(result.Invoices, MappedInvoice{Aggregate: agg, Document: doc})
	}

	m.log.Info().
		Int("projects", len(aggregates)).
		Int("invoices", result.Produced()).
		Int("blacklisted", result.Blacklisted()).
		Int("failed", result.FailedCount()).
		Msg("Invoice mapping completed")

	return result
}

// IsBlacklisted reports whether a project id is excluded from invoicing.
func (m *Mapper) IsBlacklisted(projectID string) bool {
	return slices.Contains(m.settings.ProjectBlacklist, projectID)
}

// MapProject builds the document for a single aggregate without the blacklist check.
func (m *Mapper) MapProject(agg *ProjectAggregate, periodStart, periodEnd, issueDate time.Time) (*Document, error) {
	tradingPartnerID := m.resolver.TradingPartnerFor(agg.ProjectKey)
	if strings.TrimSpace(tradingPartnerID) == "" {
		return nil, NewMappingError("ResolveTradingPartner", agg, ErrMissingTradingPartner, "")
	}

	doc := &Document{
		TradingPartnerID:           tradingPartnerID,
		OrganizationID:             m.settings.OrganizationID,
		ResponsibleAdministratorID: m.settings.ResponsibleAdministratorID,
		Items:                      []LineItem{m.lineItem(agg, 1)},
		ServiceDateStart:           periodStart,
		ServiceDateEnd:             periodEnd,
		IssueDate:                  issueDate,
		DaysDue:                    m.settings.DefaultDueDays,
		Currency:                   m.settings.DefaultCurrency,
		Remarks:                    Remarks(agg, periodStart, periodEnd),
		BuyerReference:             BuyerReference(agg.ProjectName),
		AccountingText:             fmt.Sprintf("Consulting %s - %s", periodStart.Format("2006-01"), agg.ProjectName),
		InvoiceTypeValue:           m.settings.InvoiceTypeValue,
	}

	if validation := m.validation.Validate(doc); !validation.Valid() {
		return nil, NewMappingError("ValidateAmounts", agg, validation.Err(), "")
	}

	return doc, nil
}

func (m *Mapper) lineItem(agg *ProjectAggregate, number int) LineItem {
	return LineItem{
		Number:        number,
		Title:         itemTitle,
		Description:   itemDescription,
		Quantity:      Quantity(agg),
		UnitOfMeasure: HoursUnitOfMeasure,
		UnitPrice:     m.UnitPrice(agg),
		Discount:      decimal.Zero,
		VATRate:       m.settings.DefaultVATRate,
	}
}

// Quantity returns the billed hours of an aggregate as they appear on the
// line item, rounded to two decimals.
func Quantity(agg *ProjectAggregate) decimal.Decimal {
	return agg.TotalHours().Round(2)
}

// UnitPrice derives the hourly rate from mite revenue (cents) when present,
// falling back to the default rate. The rate is revenue divided by the line
// item quantity and stays unrounded, so quantity x rate reproduces the revenue.
func (m *Mapper) UnitPrice(agg *ProjectAggregate) decimal.Decimal {
	quantity := Quantity(agg)
	if !agg.HasRevenue || !agg.RevenueCents.IsPositive() || quantity.IsZero() {
		return m.settings.DefaultHourlyRate
	}
	return agg.RevenueCents.Div(hundred).Div(quantity)
}

// BuyerReference returns the text before the first " - " in a project name,
// trimmed, or "" when the name has no separator.
func BuyerReference(projectName string) string {
	code, _, found := strings.Cut(projectName, buyerReferenceSeparator)
	if !found {
		return ""
	}
	return strings.TrimSpace(code)
}

// Remarks builds the free-text remarks of a project invoice.
func Remarks(agg *ProjectAggregate, periodStart, periodEnd time.Time) string {
	parts := []string{
		fmt.Sprintf("Beratungsleistungen für Projekt '%s'", agg.ProjectName),
		"Zeitraum: " + FormatPeriod(periodStart, periodEnd),
		fmt.Sprintf("Geleistete Stunden: %sh", agg.TotalHours().StringFixed(1)),
		fmt.Sprintf("Anzahl Buchungen: %d", agg.EntriesCount()),
	}
	if agg.CustomerName != "" && agg.CustomerName != agg.ProjectName {
		parts = slices.Insert(parts, 1, "Kunde: "+agg.CustomerName)
	}
	return strings.Join(parts, " | ")
}
