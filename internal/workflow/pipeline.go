package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
	"invoicer/pkg/services"
)

// ErrNoEntries is returned when the period holds no unlocked entries.
var ErrNoEntries = errors.New("no unlocked time entries in period")

// Request selects what one create run invoices.
type Request struct {
	ProjectID    string
	From         time.Time
	To           time.Time
	IssueDate    time.Time
	BillableOnly bool
	DryRun       bool

	// TradingPartnerName is shown in the invoice title when known.
	TradingPartnerName string
}

// ProjectResult is the result for one mapped project.
type ProjectResult struct {
	Aggregate *invoice.ProjectAggregate
	Document  *invoice.Document
	Outcome   *Outcome
	Lock      *LockOutcome
	Run       *models.InvoiceRun
	Err       error
}

// Result is everything a run produced, also when it stopped early.
type Result struct {
	RunID      string
	DryRun     bool
	Entries    []models.TimeEntry
	Aggregates []invoice.ProjectAggregate
	Mapping    *invoice.MappingResult
	Projects   []ProjectResult
	Warnings   []string
}

// Failed reports whether any project hit the fatal stage.
func (r *Result) Failed() bool {
	for _, p := range r.Projects {
		if p.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline fetches, aggregates, maps, submits, locks and records.
type Pipeline struct {
	tracking   services.TimeTracking
	mapper     *invoice.Mapper
	submission *Submission
	locker     *Locker
	recorders  []services.RunRecorder
	now        func() time.Time
	log        zerolog.Logger
}

// NewPipeline wires a pipeline. Recorders may be empty.
func NewPipeline(tracking services.TimeTracking, mapper *invoice.Mapper, submission *Submission, locker *Locker, recorders ...services.RunRecorder) *Pipeline {
	return &Pipeline{
		tracking:   tracking,
		mapper:     mapper,
		submission: submission,
		locker:     locker,
		recorders:  recorders,
		now:        time.Now,
		log:        logger.WithComponent("pipeline"),
	}
}

// Run executes one create run. It returns ErrNoEntries when there is nothing
// to invoice, and the wrapped ErrCreateInvoice when a submission failed
// fatally; the run stops there and no further project is submitted. The
// result is returned in every case.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{RunID: uuid.NewString(), DryRun: req.DryRun}
	log := logger.WithRunID(result.RunID).With().Str("component", "pipeline").Str("project_id", req.ProjectID).Logger()

	filter := services.EntryFilter{
		From:      req.From,
		To:        req.To,
		ProjectID: req.ProjectID,
		Locked:    boolPtr(false),
	}
	if req.BillableOnly {
		filter.Billable = boolPtr(true)
	}

	entries, err := p.tracking.TimeEntries(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("fetch time entries: %w", err)
	}
	result.Entries = entries
	if len(entries) == 0 {
		log.Info().Msg("No unlocked time entries found")
		return result, ErrNoEntries
	}

	result.Aggregates = invoice.Aggregate(entries)
	result.Mapping = p.mapper.Map(result.Aggregates, req.From, req.To, req.IssueDate)
	for _, mapped := range result.Mapping.Invoices {
		mapped.Document.TradingPartnerName = req.TradingPartnerName
	}

	for _, f := range result.Mapping.Failed {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Projekt %s: %v", f.ProjectID, f.Err))
	}

	if req.DryRun {
		log.Info().Int("invoices", result.Mapping.Produced()).Msg("Dry run, nothing submitted")
		return result, nil
	}

	for _, s := range result.Mapping.Skipped {
		p.record(ctx, result, &models.InvoiceRun{
			ProjectID:   s.ProjectID,
			ProjectName: s.ProjectName,
			Status:      models.RunStatusSkipped,
			Warnings:    []string{s.Reason},
		}, req)
	}

	for _, mapped := range result.Mapping.Invoices {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		project := p.submit(ctx, result, mapped, req)
		result.Projects = append(result.Projects, project)
		if project.Err != nil {
			log.Error().Err(project.Err).Str("project", mapped.Aggregate.ProjectName).Msg("Run stopped")
			return result, project.Err
		}
	}

	log.Info().
		Int("invoices", len(result.Projects)).
		Int("warnings", len(result.Warnings)).
		Msg("Run completed")
	return result, nil
}

func (p *Pipeline) submit(ctx context.Context, result *Result, mapped invoice.MappedInvoice, req Request) ProjectResult {
	agg := mapped.Aggregate
	project := ProjectResult{Aggregate: agg, Document: mapped.Document}

	report := services.ReportInput{
		Entries:      agg.Entries,
		CustomerName: agg.CustomerName,
		ProjectName:  agg.ProjectName,
		PeriodStart:  req.From,
		PeriodEnd:    req.To,
	}

	run := &models.InvoiceRun{
		ProjectID:    agg.ProjectKey,
		ProjectName:  agg.ProjectName,
		CustomerName: agg.CustomerName,
		Hours:        agg.DisplayHours(),
		NetAmount:    mapped.Document.TotalNetAmount().InexactFloat64(),
		GrossAmount:  mapped.Document.TotalAmount().InexactFloat64(),
		EntriesTotal: agg.EntriesCount(),
	}
	project.Run = run

	outcome, err := p.submission.Submit(ctx, mapped.Document, report)
	project.Outcome = outcome
	if err != nil {
		project.Err = err
		run.Status = models.RunStatusFailed
		run.Warnings = []string{err.Error()}
		p.record(ctx, result, run, req)
		return project
	}

	run.InvoiceID = outcome.InvoiceID
	run.InvoiceNumber = outcome.Number
	run.Warnings = outcome.Warnings()

	project.Lock = p.locker.Lock(ctx, agg.Entries)
	run.EntriesLocked = project.Lock.Locked + project.Lock.AlreadyLocked
	run.EntriesFailed = project.Lock.Failed
	for _, e := range project.Lock.Errors {
		run.Warnings = append(run.Warnings, e.Message)
	}

	run.Status = models.RunStatusSucceeded
	if len(run.Warnings) > 0 {
		run.Status = models.RunStatusDegraded
	}
	result.Warnings = append(result.Warnings, run.Warnings...)

	p.record(ctx, result, run, req)
	return project
}

func (p *Pipeline) record(ctx context.Context, result *Result, run *models.InvoiceRun, req Request) {
	run.ID = uuid.NewString()
	run.RunID = result.RunID
	run.PeriodStart = req.From
	run.PeriodEnd = req.To
	run.CreatedAt = p.now().UTC()

	for _, recorder := range p.recorders {
		if err := recorder.Record(ctx, run); err != nil {
			p.log.Warn().Err(err).Str("project_id", run.ProjectID).Msg("Failed to record run")
			result.Warnings = append(result.Warnings, fmt.Sprintf("Protokoll %s: %v", run.ProjectID, err))
		}
	}
}

func boolPtr(b bool) *bool { return &b }
