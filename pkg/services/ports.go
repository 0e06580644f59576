package services

import (
	"context"
	"time"

	"invoicer/internal/invoice"
	"invoicer/pkg/models"
)

// TimeTracking reads time entries from mite and locks them once invoiced.
type TimeTracking interface {
	// TimeEntries returns the entries matching the filter.
	TimeEntries(ctx context.Context, filter EntryFilter) ([]models.TimeEntry, error)

	// LockTimeEntry marks one entry as locked. Locking an already locked
	// entry must not fail.
	LockTimeEntry(ctx context.Context, entryID int64) error
}

// EntryFilter selects time entries. Nil pointers leave the flag unfiltered.
type EntryFilter struct {
	From      time.Time
	To        time.Time
	ProjectID string
	Billable  *bool
	Locked    *bool
}

// Invoicing is the Alphaflow outgoing invoice API as used by the submission workflow.
type Invoicing interface {
	// CreateInvoice posts the document and returns the identity assigned by Alphaflow.
	CreateInvoice(ctx context.Context, doc *invoice.Document) (*CreatedInvoice, error)

	// WorkflowInstanceID re-reads the invoice and returns the workflow
	// instance Alphaflow attached to it.
	WorkflowInstanceID(ctx context.Context, invoiceID string) (string, error)

	// GenerateDocument renders the invoice from a template and returns the document id.
	GenerateDocument(ctx context.Context, invoiceID string, settings DocumentSettings) (string, error)

	// UploadAttachment stores a file on the invoice and returns the attachment document id.
	UploadAttachment(ctx context.Context, invoiceID string, file []byte, filename, category string) (string, error)

	// JoinDocuments merges the given documents, in order, into "Rechnung_<number>".
	JoinDocuments(ctx context.Context, invoiceID, number string, documentIDs []string, documentType string) error

	StartWorkflow(ctx context.Context, invoiceID, workflowName string) error
	ForwardWorkflow(ctx context.Context, workflowInstanceID, flowID string) error
}

// CreatedInvoice is the identity of a freshly created invoice. Number may be
// empty when Alphaflow assigns it later.
type CreatedInvoice struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

// DocumentSettings selects template, category and format for document generation.
type DocumentSettings struct {
	Template   string
	Category   string
	Type       string
	StoreToDMS bool
}

// TimeReportRenderer produces the service report attached to every invoice.
type TimeReportRenderer interface {
	Render(input ReportInput) ([]byte, error)
}

// ReportInput is everything the service report shows.
type ReportInput struct {
	Entries      []models.TimeEntry
	CustomerName string
	ProjectName  string
	PeriodStart  time.Time
	PeriodEnd    time.Time
}

// RunRecorder persists the result of one invoiced project.
type RunRecorder interface {
	Record(ctx context.Context, run *models.InvoiceRun) error
}
