package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineItem is one billable position. Its amounts are derived, each rounded
// to cents on its own: net from quantity, price and discount, VAT from the
// rounded net, gross from the rounded net and VAT.
type LineItem struct {
	Number        int
	Title         string
	Description   string
	Quantity      decimal.Decimal
	UnitOfMeasure string
	UnitPrice     decimal.Decimal
	Discount      decimal.Decimal // percent
	VATRate       decimal.Decimal // percent
}

// NetAmount returns round(quantity * unitPrice * (1 - discount/100), 2).
func (i LineItem) NetAmount() decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(i.Discount.Div(hundred))
	return i.Quantity.Mul(i.UnitPrice).Mul(factor).Round(2)
}

// VATAmount returns round(net * vatRate/100, 2).
func (i LineItem) VATAmount() decimal.Decimal {
	return i.NetAmount().Mul(i.VATRate.Div(hundred)).Round(2)
}

// GrossAmount returns round(net + vat, 2).
func (i LineItem) GrossAmount() decimal.Decimal {
	return i.NetAmount().Add(i.VATAmount()).Round(2)
}

// Document is one outgoing invoice before submission.
type Document struct {
	TradingPartnerID           string
	OrganizationID             string
	ResponsibleAdministratorID string

	Items []LineItem

	ServiceDateStart time.Time
	ServiceDateEnd   time.Time
	IssueDate        time.Time
	DaysDue          int
	Currency         string

	Remarks        string
	BuyerReference string
	AccountingText string

	// InvoiceTypeValue is sent as type.value; empty means "INVOICE".
	InvoiceTypeValue string

	// TradingPartnerName is only used for the display title.
	TradingPartnerName string
}

// TotalNetAmount sums the rounded item net amounts and rounds again.
func (d *Document) TotalNetAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.NetAmount())
	}
	return total.Round(2)
}

// TotalVATAmount sums the rounded item VAT amounts and rounds again.
func (d *Document) TotalVATAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.VATAmount())
	}
	return total.Round(2)
}

// TotalAmount returns round(total net + total VAT, 2).
func (d *Document) TotalAmount() decimal.Decimal {
	return d.TotalNetAmount().Add(d.TotalVATAmount()).Round(2)
}

// DueDate returns the first day of the month after the issue date. It does
// not depend on DaysDue; both are sent to Alphaflow.
func (d *Document) DueDate() time.Time {
	return FirstOfNextMonth(d.IssueDate)
}

// FirstOfNextMonth returns midnight on the first day of the month after t.
func FirstOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
}

// VATGroup sums the items sharing one VAT rate.
type VATGroup struct {
	Rate  decimal.Decimal
	Net   decimal.Decimal
	VAT   decimal.Decimal
	Total decimal.Decimal
}

// VATBreakdown groups items by VAT rate in order of first appearance.
func (d *Document) VATBreakdown() []VATGroup {
	var groups []VATGroup
	for _, item := range d.Items {
		i := -1
		for j := range groups {
			if groups[j].Rate.Equal(item.VATRate) {
				i = j
				break
			}
		}
		if i < 0 {
			groups = append(groups, VATGroup{
				Rate:  item.VATRate,
				Net:   decimal.Zero,
				VAT:   decimal.Zero,
				Total: decimal.Zero,
			})
			i = len(groups) - 1
		}
		groups[i].Net = groups[i].Net.Add(item.NetAmount())
		groups[i].VAT = groups[i].VAT.Add(item.VATAmount())
		groups[i].Total = groups[i].Total.Add(item.GrossAmount())
	}
	return groups
}
