package invoice_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"invoicer/internal/invoice"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLineItemRounding(t *testing.T) {
	tests := []struct {
		name                   string
		quantity, price        string
		discount, vatRate      string
		wantNet, wantVAT, want string
	}{
		{"ten hours at 190", "10", "190.0", "0", "19", "1900.00", "361.00", "2261.00"},
		{"fractional hours", "1.33", "190", "0", "19", "252.70", "48.01", "300.71"},
		{"discount applied before VAT", "8", "125.5", "10", "19", "903.60", "171.68", "1075.28"},
		{"zero VAT", "2.5", "99.99", "0", "0", "249.98", "0.00", "249.98"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := invoice.LineItem{
				Quantity:  dec(tt.quantity),
				UnitPrice: dec(tt.price),
				Discount:  dec(tt.discount),
				VATRate:   dec(tt.vatRate),
			}
			assert.Equal(t, tt.wantNet, item.NetAmount().StringFixed(2))
			assert.Equal(t, tt.wantVAT, item.VATAmount().StringFixed(2))
			assert.Equal(t, tt.want, item.GrossAmount().StringFixed(2))
		})
	}
}

func TestDocumentTotalsSumRoundedItems(t *testing.T) {
	doc := &invoice.Document{
		Items: []invoice.LineItem{
			{Quantity: dec("0.33"), UnitPrice: dec("10.01"), Discount: decimal.Zero, VATRate: dec("19")},
			{Quantity: dec("0.33"), UnitPrice: dec("10.01"), Discount: decimal.Zero, VATRate: dec("19")},
			{Quantity: dec("1"), UnitPrice: dec("100"), Discount: decimal.Zero, VATRate: dec("7")},
		},
	}

	// 0.33 * 10.01 = 3.3033 -> 3.30 each; VAT 0.627 -> 0.63 each
	assert.Equal(t, "106.60", doc.TotalNetAmount().StringFixed(2))
	assert.Equal(t, "8.26", doc.TotalVATAmount().StringFixed(2))
	assert.Equal(t, "114.86", doc.TotalAmount().StringFixed(2))

	groups := doc.VATBreakdown()
	if assert.Len(t, groups, 2) {
		assert.Equal(t, "19", groups[0].Rate.String())
		assert.Equal(t, "6.60", groups[0].Net.StringFixed(2))
		assert.Equal(t, "1.26", groups[0].VAT.StringFixed(2))
		assert.Equal(t, "7", groups[1].Rate.String())
	}
}

func TestDueDateIsFirstOfNextMonth(t *testing.T) {
	tests := []struct {
		issue time.Time
		want  string
	}{
		{time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), "2025-07-01"},
		{time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), "2026-01-01"},
		{time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), "2025-02-01"},
		{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
	}

	for _, tt := range tests {
		doc := &invoice.Document{IssueDate: tt.issue, DaysDue: 30}
		assert.Equal(t, tt.want, doc.DueDate().Format("2006-01-02"), "issue date %s", tt.issue.Format("2006-01-02"))
	}
}
