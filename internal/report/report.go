// Package report renders the service report (Dienstleistungsnachweis) that
// is attached to every invoice, as PDF and as XLSX.
package report

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"invoicer/internal/invoice"
	"invoicer/pkg/models"
	"invoicer/pkg/services"
)

const (
	// Title heads every report.
	Title = "Dienstleistungsnachweis"

	totalLabel = "Gesamt"
)

// Columns are the table headings shared by PDF and XLSX.
var Columns = []string{"Datum", "Mitarbeiter", "Leistung", "Notiz", "Stunden"}

var german = message.NewPrinter(language.German)

// FormatHours renders hours with two decimals and a German decimal comma.
func FormatHours(hours float64) string {
	return german.Sprintf("%.2f", hours)
}

// FormatAmount renders an amount as "1.234,56 €".
func FormatAmount(amount float64) string {
	return german.Sprintf("%.2f €", amount)
}

// Subtitle returns "<customer> – <project>", or just the project when the
// customer is unknown or equal.
func Subtitle(input services.ReportInput) string {
	if input.CustomerName == "" || input.CustomerName == input.ProjectName {
		return input.ProjectName
	}
	return input.CustomerName + " – " + input.ProjectName
}

// Period returns "Zeitraum: dd.mm.yyyy - dd.mm.yyyy".
func Period(input services.ReportInput) string {
	return "Zeitraum: " + invoice.FormatPeriod(input.PeriodStart, input.PeriodEnd)
}

type reportLine struct {
	date     string
	user     string
	service  string
	note     string
	hours    float64
	hoursStr string
}

// lines returns the report rows sorted by date, entry id breaking ties.
func lines(entries []models.TimeEntry) []reportLine {
	sorted := make([]models.TimeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DateAt != sorted[j].DateAt {
			return sorted[i].DateAt < sorted[j].DateAt
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := make([]reportLine, 0, len(sorted))
	for _, e := range sorted {
		date := e.DateAt
		if d := e.Date(); !d.IsZero() {
			date = d.Format(invoice.GermanDateLayout)
		}
		out = append(out, reportLine{
			date:     date,
			user:     e.UserName,
			service:  e.ServiceName,
			note:     e.Note,
			hours:    e.Hours(),
			hoursStr: FormatHours(e.Hours()),
		})
	}
	return out
}

// TotalHours returns the summed minutes in hours, rounded to two decimals.
func TotalHours(entries []models.TimeEntry) float64 {
	minutes := 0
	for _, e := range entries {
		minutes += e.Minutes
	}
	return models.TimeEntry{Minutes: minutes}.Hours()
}
