package invoice

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invoicer/internal/logger"
)

// amountTolerance is the largest accepted difference between net + VAT and gross.
var amountTolerance = decimal.RequireFromString("0.02")

// AmountValidation checks the computed amounts of a document before it is sent
type AmountValidation struct {
	log zerolog.Logger
}

// NewAmountValidation creates a new amount validation service
func NewAmountValidation() *AmountValidation {
	return &AmountValidation{
		log: logger.WithComponent("amount-validation"),
	}
}

// AmountValidationResult contains the checked totals and any problems found
type AmountValidationResult struct {
	NetAmount   decimal.Decimal
	VATAmount   decimal.Decimal
	GrossAmount decimal.Decimal

	Errors   []*ValidationError
	Warnings []string
}

// Valid reports whether no errors were found.
func (r *AmountValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns the first error wrapped as ErrAmountMismatch or ErrInvalidRate, or nil.
func (r *AmountValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	first := r.Errors[0]
	if first.Field == "vatRate" || first.Field == "unitPrice" || first.Field == "discount" {
		return fmt.Errorf("%w: %v", ErrInvalidRate, first)
	}
	return fmt.Errorf("%w: %v", ErrAmountMismatch, first)
}

// Validate checks item rates and cross-validates the document totals.
func (av *AmountValidation) Validate(doc *Document) *AmountValidationResult {
	result := &AmountValidationResult{
		NetAmount:   doc.TotalNetAmount(),
		VATAmount:   doc.TotalVATAmount(),
		GrossAmount: doc.TotalAmount(),
	}

	for _, item := range doc.Items {
		av.validateItem(item, result)
	}

	av.crossValidateAmounts(result)

	if result.NetAmount.IsZero() {
		result.Warnings = append(result.Warnings, "Invoice net amount is zero")
	}

	av.log.Debug().
		Str("net", result.NetAmount.StringFixed(2)).
		Str("vat", result.VATAmount.StringFixed(2)).
		Str("gross", result.GrossAmount.StringFixed(2)).
		Int("errors", len(result.Errors)).
		Strs("warnings", result.Warnings).
		Msg("Amount validation completed")

	return result
}

func (av *AmountValidation) validateItem(item LineItem, result *AmountValidationResult) {
	if item.UnitPrice.IsNegative() {
		result.Errors = append(result.Errors, NewValidationError("unitPrice", item.UnitPrice.String(), "must not be negative"))
	}
	if item.VATRate.IsNegative() || item.VATRate.GreaterThan(hundred) {
		result.Errors = append(result.Errors, NewValidationError("vatRate", item.VATRate.String(), "must be between 0 and 100"))
	}
	if item.Discount.IsNegative() || item.Discount.GreaterThan(hundred) {
		result.Errors = append(result.Errors, NewValidationError("discount", item.Discount.String(), "must be between 0 and 100"))
	}
	switch {
	case item.Quantity.IsNegative():
		result.Errors = append(result.Errors, NewValidationError("quantity", item.Quantity.String(), "must not be negative"))
	case item.Quantity.IsZero():
		result.Warnings = append(result.Warnings, fmt.Sprintf("Item %d has quantity 0", item.Number))
	}
}

// crossValidateAmounts checks that net + VAT matches gross within two cents
func (av *AmountValidation) crossValidateAmounts(result *AmountValidationResult) {
	calculated := result.NetAmount.Add(result.VATAmount)
	difference := calculated.Sub(result.GrossAmount).Abs()

	if difference.GreaterThan(amountTolerance) {
		result.Errors = append(result.Errors, NewValidationError("totalAmount", result.GrossAmount.StringFixed(2),
			fmt.Sprintf("net %s + VAT %s = %s (difference %s)",
				result.NetAmount.StringFixed(2),
				result.VATAmount.StringFixed(2),
				calculated.StringFixed(2),
				difference.StringFixed(2))))

		av.log.Warn().
			Str("net", result.NetAmount.StringFixed(2)).
			Str("vat", result.VATAmount.StringFixed(2)).
			Str("gross", result.GrossAmount.StringFixed(2)).
			Msg("Amount calculation discrepancy detected")
	}
}
