package workflow_test

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"
	"invoicer/internal/invoice"
	"invoicer/pkg/models"
	"invoicer/pkg/services"
)

type invoicingMock struct{ mock.Mock }

func (m *invoicingMock) CreateInvoice(ctx context.Context, doc *invoice.Document) (*services.CreatedInvoice, error) {
	args := m.Called(ctx, doc)
	created, _ := args.Get(0).(*services.CreatedInvoice)
	return created, args.Error(1)
}

func (m *invoicingMock) WorkflowInstanceID(ctx context.Context, invoiceID string) (string, error) {
	args := m.Called(ctx, invoiceID)
	return args.String(0), args.Error(1)
}

func (m *invoicingMock) GenerateDocument(ctx context.Context, invoiceID string, settings services.DocumentSettings) (string, error) {
	args := m.Called(ctx, invoiceID, settings)
	return args.String(0), args.Error(1)
}

func (m *invoicingMock) UploadAttachment(ctx context.Context, invoiceID string, file []byte, filename, category string) (string, error) {
	args := m.Called(ctx, invoiceID, file, filename, category)
	return args.String(0), args.Error(1)
}

func (m *invoicingMock) JoinDocuments(ctx context.Context, invoiceID, number string, documentIDs []string, documentType string) error {
	return m.Called(ctx, invoiceID, number, documentIDs, documentType).Error(0)
}

func (m *invoicingMock) StartWorkflow(ctx context.Context, invoiceID, workflowName string) error {
	return m.Called(ctx, invoiceID, workflowName).Error(0)
}

func (m *invoicingMock) ForwardWorkflow(ctx context.Context, workflowInstanceID, flowID string) error {
	return m.Called(ctx, workflowInstanceID, flowID).Error(0)
}

type trackingMock struct{ mock.Mock }

func (m *trackingMock) TimeEntries(ctx context.Context, filter services.EntryFilter) ([]models.TimeEntry, error) {
	args := m.Called(ctx, filter)
	entries, _ := args.Get(0).([]models.TimeEntry)
	return entries, args.Error(1)
}

func (m *trackingMock) LockTimeEntry(ctx context.Context, entryID int64) error {
	return m.Called(ctx, entryID).Error(0)
}

type stubRenderer struct {
	pdf []byte
	err error
}

func (r stubRenderer) Render(services.ReportInput) ([]byte, error) {
	return r.pdf, r.err
}

type memoryRecorder struct {
	runs []models.InvoiceRun
	err  error
}

func (r *memoryRecorder) Record(_ context.Context, run *models.InvoiceRun) error {
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, *run)
	return nil
}

var errBoom = errors.New("boom")
