package models

import "time"

// RunStatus summarizes how a single project's invoice run ended.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "SUCCEEDED" // all stages succeeded
	RunStatusDegraded  RunStatus = "DEGRADED"  // invoice created, later stages reported warnings
	RunStatusFailed    RunStatus = "FAILED"    // invoice creation failed
	RunStatusSkipped   RunStatus = "SKIPPED"   // project blacklisted
)

// InvoiceRun is the record of one project invoiced in one run, as stored in
// the local journal and exported to the sheet.
type InvoiceRun struct {
	ID            string
	RunID         string
	ProjectID     string
	ProjectName   string
	CustomerName  string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	InvoiceID     string
	InvoiceNumber string
	Status        RunStatus

	// Amounts in EUR
	Hours       float64
	NetAmount   float64
	GrossAmount float64

	EntriesTotal  int
	EntriesLocked int
	EntriesFailed int

	Warnings  []string
	CreatedAt time.Time
}
