// Package workflow submits mapped invoices to Alphaflow, locks the invoiced
// mite entries and runs the whole create pipeline.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/pkg/services"
)

// Stage names one step of the submission.
type Stage string

const (
	StageCreateInvoice    Stage = "CreateInvoice"
	StageGenerateDocument Stage = "GenerateDocument"
	StageUploadAttachment Stage = "UploadAttachment"
	StageJoinDocuments    Stage = "JoinDocuments"
	StageStartWorkflow    Stage = "StartWorkflow"
	StageForwardWorkflow  Stage = "ForwardWorkflow"
)

// Stages lists all stages in execution order.
var Stages = []Stage{
	StageCreateInvoice,
	StageGenerateDocument,
	StageUploadAttachment,
	StageJoinDocuments,
	StageStartWorkflow,
	StageForwardWorkflow,
}

// Skip reasons reported for stages that were not attempted.
const (
	SkipCreateFailed       = "invoice was not created"
	SkipMissingDocuments   = "document or attachment missing"
	SkipMissingNumber      = "invoice number unknown"
	SkipNoWorkflowName     = "no workflow configured"
	SkipNoForwardFlow      = "no forward flow configured"
	SkipWorkflowNotStarted = "workflow not started"
)

// ErrCreateInvoice marks the fatal failure of the first stage.
var ErrCreateInvoice = errors.New("invoice creation failed")

// SubmissionSettings are the Alphaflow ids the submission uses.
type SubmissionSettings struct {
	Document           services.DocumentSettings
	AttachmentCategory string
	AttachmentFilename string
	DocumentJoinType   string
	WorkflowName       string
	ForwardFlowID      string
}

// StageResult is the audit record of one stage.
type StageResult struct {
	Stage      Stage
	Attempted  bool
	Succeeded  bool
	Error      string
	SkipReason string
}

// Outcome is the result of submitting one invoice. Every stage has exactly
// one entry in Stages, in execution order.
type Outcome struct {
	InvoiceID    string
	Number       string
	DocumentID   string
	AttachmentID string
	Stages       []StageResult
}

// Created reports whether the fatal first stage succeeded.
func (o *Outcome) Created() bool {
	r := o.Stage(StageCreateInvoice)
	return r != nil && r.Succeeded
}

// Stage returns the result recorded for s.
func (o *Outcome) Stage(s Stage) *StageResult {
	for i := range o.Stages {
		if o.Stages[i].Stage == s {
			return &o.Stages[i]
		}
	}
	return nil
}

// Warnings returns one message per failed non-fatal stage.
func (o *Outcome) Warnings() []string {
	var warnings []string
	for _, r := range o.Stages {
		if r.Stage == StageCreateInvoice || !r.Attempted || r.Succeeded {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s: %s", r.Stage, r.Error))
	}
	return warnings
}

func (o *Outcome) record(r StageResult) {
	o.Stages = append(o.Stages, r)
}

func (o *Outcome) skip(s Stage, reason string) {
	o.record(StageResult{Stage: s, SkipReason: reason})
}

func (o *Outcome) attempt(s Stage, err error) bool {
	r := StageResult{Stage: s, Attempted: true, Succeeded: err == nil}
	if err != nil {
		r.Error = err.Error()
	}
	o.record(r)
	return err == nil
}

// Submission runs the submission stages against the invoicing port.
type Submission struct {
	invoicing services.Invoicing
	renderer  services.TimeReportRenderer
	settings  SubmissionSettings
	log       zerolog.Logger
}

// NewSubmission creates a submission workflow.
func NewSubmission(invoicing services.Invoicing, renderer services.TimeReportRenderer, settings SubmissionSettings) *Submission {
	return &Submission{
		invoicing: invoicing,
		renderer:  renderer,
		settings:  settings,
		log:       logger.WithComponent("submission"),
	}
}

// Submit creates the invoice and runs the follow-up stages. Only a failed
// CreateInvoice returns an error (wrapping ErrCreateInvoice); later failures
// are recorded in the outcome and never stop the remaining stages.
func (s *Submission) Submit(ctx context.Context, doc *invoice.Document, report services.ReportInput) (*Outcome, error) {
	outcome := &Outcome{}

	created, err := s.invoicing.CreateInvoice(ctx, doc)
	if err == nil && (created == nil || created.ID == "") {
		err = errors.New("response without invoice id")
	}
	if !outcome.attempt(StageCreateInvoice, err) {
		s.log.Error().Err(err).Str("stage", string(StageCreateInvoice)).Msg("Invoice creation failed")
		for _, stage := range Stages[1:] {
			outcome.skip(stage, SkipCreateFailed)
		}
		return outcome, fmt.Errorf("%w: %w", ErrCreateInvoice, err)
	}
	outcome.InvoiceID = created.ID
	outcome.Number = created.Number

	log := s.log.With().Str("invoice_id", outcome.InvoiceID).Logger()
	log.Info().Str("invoice_number", outcome.Number).Msg("Invoice created")

	documentID, err := s.invoicing.GenerateDocument(ctx, outcome.InvoiceID, s.settings.Document)
	if s.logStage(log, StageGenerateDocument, outcome.attempt(StageGenerateDocument, err), err) {
		outcome.DocumentID = documentID
	}

	attachmentID, err := s.uploadReport(ctx, outcome.InvoiceID, report)
	if s.logStage(log, StageUploadAttachment, outcome.attempt(StageUploadAttachment, err), err) {
		outcome.AttachmentID = attachmentID
	}

	switch {
	case outcome.DocumentID == "" || outcome.AttachmentID == "":
		outcome.skip(StageJoinDocuments, SkipMissingDocuments)
	case outcome.Number == "":
		outcome.skip(StageJoinDocuments, SkipMissingNumber)
	default:
		err = s.invoicing.JoinDocuments(ctx, outcome.InvoiceID, outcome.Number,
			[]string{outcome.DocumentID, outcome.AttachmentID}, s.settings.DocumentJoinType)
		s.logStage(log, StageJoinDocuments, outcome.attempt(StageJoinDocuments, err), err)
	}

	if s.settings.WorkflowName == "" {
		outcome.skip(StageStartWorkflow, SkipNoWorkflowName)
		outcome.skip(StageForwardWorkflow, SkipWorkflowNotStarted)
		return outcome, nil
	}
	err = s.invoicing.StartWorkflow(ctx, outcome.InvoiceID, s.settings.WorkflowName)
	s.logStage(log, StageStartWorkflow, outcome.attempt(StageStartWorkflow, err), err)

	// Forwarding runs whenever a start was attempted; the instance may exist
	// even when the start call reported an error.
	if s.settings.ForwardFlowID == "" {
		outcome.skip(StageForwardWorkflow, SkipNoForwardFlow)
		return outcome, nil
	}
	err = s.forward(ctx, outcome.InvoiceID)
	s.logStage(log, StageForwardWorkflow, outcome.attempt(StageForwardWorkflow, err), err)

	return outcome, nil
}

func (s *Submission) uploadReport(ctx context.Context, invoiceID string, report services.ReportInput) (string, error) {
	if s.renderer == nil {
		return "", errors.New("no report renderer configured")
	}
	pdf, err := s.renderer.Render(report)
	if err != nil {
		return "", fmt.Errorf("render time report: %w", err)
	}
	return s.invoicing.UploadAttachment(ctx, invoiceID, pdf, s.settings.AttachmentFilename, s.settings.AttachmentCategory)
}

func (s *Submission) forward(ctx context.Context, invoiceID string) error {
	instanceID, err := s.invoicing.WorkflowInstanceID(ctx, invoiceID)
	if err != nil {
		return err
	}
	return s.invoicing.ForwardWorkflow(ctx, instanceID, s.settings.ForwardFlowID)
}

func (s *Submission) logStage(log zerolog.Logger, stage Stage, ok bool, err error) bool {
	if ok {
		log.Info().Str("stage", string(stage)).Msg("Stage succeeded")
	} else {
		log.Warn().Err(err).Str("stage", string(stage)).Msg("Stage failed, continuing")
	}
	return ok
}
