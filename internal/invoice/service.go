// Package invoice turns mite time entries into Alphaflow invoice documents.
//
// The flow is Aggregate, which groups entries per project, followed by
// Mapper.Map, which builds exactly one Document per project that is not
// blacklisted. Money is computed with decimal arithmetic; every derived
// amount is rounded to cents at the step that produces it.
//
// Fixed business conventions:
//   - one line item per invoice, quantity in hours, unit "hours"
//   - buyer reference is the project name prefix before the first " - "
//   - due date is the first day of the month after the issue date
//   - unit price is mite revenue divided by hours, else the default rate
package invoice

import "time"

// DateTimeLayout is the date format Alphaflow expects for all date fields.
const DateTimeLayout = "2006-01-02 00:00:00"

// GermanDateLayout is used in remarks and reports.
const GermanDateLayout = "02.01.2006"

// FormatPeriod renders a service period as "DD.MM.YYYY - DD.MM.YYYY".
func FormatPeriod(start, end time.Time) string {
	return start.Format(GermanDateLayout) + " - " + end.Format(GermanDateLayout)
}
