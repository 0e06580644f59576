package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"invoicer/internal/alphaflow"
	"invoicer/internal/config"
	"invoicer/internal/dvelop"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/mite"
	"invoicer/internal/report"
	"invoicer/internal/workflow"
	"invoicer/pkg/services"
)

const (
	maxVerboseEntries = 10
	maxLockErrors     = 5
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create Alphaflow invoices from unlocked mite time entries",
	Long: `Create one outgoing invoice per project from the unlocked mite time entries
of the given period.

For every project the invoice is created in Alphaflow, the invoice document is
generated, the time report is attached, both are joined into one PDF and the
configured workflow is started. Afterwards the invoiced time entries are locked
in mite so they are never invoiced twice.

Only the creation of the invoice is fatal. Failures of the later steps are
reported as warnings and the run continues.

Exit codes:
  0   invoices created (also with warnings) or nothing to invoice
  1   configuration, validation or invoice creation failed
  130 interrupted`,
	Example: `  # Preview the June invoice of project 4711
  invoicer create -p 4711 -f 2025-06-01 -t 2025-06-30 --dry-run

  # Create it for the trading partner with number 10042
  invoicer create -p 4711 -f 2025-06-01 -t 2025-06-30 --trading-partner-number 10042

  # Include non-billable entries and set the issue date
  invoicer create -p 4711 -f 2025-06-01 -t 2025-06-30 --billable-only=false --issue-date 2025-07-01`,
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringP("project", "p", "", "mite project id [REQUIRED]")
	createCmd.Flags().StringP("from", "f", "", "Start date (YYYY-MM-DD) [REQUIRED]")
	createCmd.Flags().StringP("to", "t", "", "End date (YYYY-MM-DD) [REQUIRED]")
	createCmd.Flags().Bool("billable-only", true, "Only invoice billable time entries")
	createCmd.Flags().Bool("dry-run", false, "Show the invoice preview without creating anything")
	createCmd.Flags().String("trading-partner-id", "", "Alphaflow trading partner id (overrides the configured default)")
	createCmd.Flags().String("trading-partner-number", "", "Alphaflow trading partner number, resolved to an id")
	createCmd.Flags().String("issue-date", "", "Invoice date (YYYY-MM-DD, default: today)")
	createCmd.Flags().Int("timeout", 300, "Run timeout in seconds")

	_ = createCmd.MarkFlagRequired("project")
	_ = createCmd.MarkFlagRequired("from")
	_ = createCmd.MarkFlagRequired("to")
	createCmd.MarkFlagsMutuallyExclusive("trading-partner-id", "trading-partner-number")
}

func runCreate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("create")

	projectID, _ := cmd.Flags().GetString("project")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	billableOnly, _ := cmd.Flags().GetBool("billable-only")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	partnerID, _ := cmd.Flags().GetString("trading-partner-id")
	partnerNumber, _ := cmd.Flags().GetString("trading-partner-number")
	issueDateStr, _ := cmd.Flags().GetString("issue-date")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")

	from, to, err := parseDateRange(fromStr, toStr)
	if err != nil {
		return err
	}

	issueDate := time.Now()
	if issueDateStr != "" {
		issueDate, err = time.Parse(dateLayout, issueDateStr)
		if err != nil {
			return fmt.Errorf("ungültiges Rechnungsdatum %q, erwartet YYYY-MM-DD: %w", issueDateStr, err)
		}
	}
	issueDate = time.Date(issueDate.Year(), issueDate.Month(), issueDate.Day(), 0, 0, 0, 0, time.UTC)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Info().
		Str("project_id", projectID).
		Str("from", fromStr).
		Str("to", toStr).
		Bool("billable_only", billableOnly).
		Bool("dry_run", dryRun).
		Msg("Starting invoice run")

	ctx, cancel, interrupted := createCommandContext(timeoutSecs, log)
	defer cancel()

	miteClient, err := newMiteClient(cfg)
	if err != nil {
		return err
	}
	alphaflowClient, session, err := newAlphaflowClient(cfg)
	if err != nil {
		return err
	}
	defer logout(session, log)

	partner, err := resolveTradingPartner(ctx, alphaflowClient, cfg, partnerID, partnerNumber, log)
	if err != nil {
		return handleCreateError(err, interrupted(), log)
	}
	cfg = cfg.WithTradingPartner(partner.id)

	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
		if invoiced, err := j.HasInvoiced(ctx, projectID, from, to); err != nil {
			log.Warn().Err(err).Msg("Failed to check run journal")
		} else if invoiced {
			fmt.Printf("⚠ Für Projekt %s wurde im Zeitraum %s bereits eine Rechnung erstellt.\n\n",
				projectID, invoice.FormatPeriod(from, to))
		}
	}

	var recorders []services.RunRecorder
	if !dryRun {
		recorders = newRecorders(ctx, cfg, j, log)
	}

	submission := workflow.NewSubmission(alphaflowClient, report.NewPDFRenderer("invoicer"), submissionSettings(cfg))
	locker := workflow.NewLocker(miteClient, cfg.Lock.Concurrency)
	pipeline := workflow.NewPipeline(miteClient, invoice.NewMapper(mapperSettings(cfg)), submission, locker, recorders...)

	result, err := pipeline.Run(ctx, workflow.Request{
		ProjectID:          projectID,
		From:               from,
		To:                 to,
		IssueDate:          issueDate,
		BillableOnly:       billableOnly,
		DryRun:             dryRun,
		TradingPartnerName: partner.name,
	})

	if errors.Is(err, workflow.ErrNoEntries) {
		printNoEntries(projectID, from, to, billableOnly)
		return nil
	}
	if result != nil && len(result.Entries) > 0 {
		printRunHeader(result, cfg, partner, verbose)
	}
	if err != nil {
		if result != nil && result.Mapping != nil {
			printProjects(result)
		}
		return handleCreateError(err, interrupted(), log)
	}

	if dryRun {
		printPreview(result)
		return nil
	}

	printProjects(result)
	printWarnings(unreportedWarnings(result))
	return nil
}

type tradingPartnerChoice struct {
	id     string
	name   string
	source string
}

// resolveTradingPartner applies --trading-partner-id or --trading-partner-number
// over the configured default. The display name is looked up best effort.
func resolveTradingPartner(ctx context.Context, client *alphaflow.Client, cfg *config.Config, id, number string, log zerolog.Logger) (tradingPartnerChoice, error) {
	switch {
	case number != "":
		partner, err := client.TradingPartnerByNumber(ctx, number)
		if err != nil {
			return tradingPartnerChoice{}, fmt.Errorf("resolve trading partner number %s: %w", number, err)
		}
		log.Info().Str("number", number).Str("trading_partner_id", partner.ID).Msg("Trading partner number resolved")
		return tradingPartnerChoice{id: partner.ID, name: partner.DisplayName(), source: "Nummer " + number}, nil
	case id != "":
		choice := tradingPartnerChoice{id: id, source: "Parameter"}
		if partner, err := client.TradingPartnerByID(ctx, id); err != nil {
			log.Warn().Err(err).Str("trading_partner_id", id).Msg("Trading partner name unavailable")
		} else {
			choice.name = partner.DisplayName()
		}
		return choice, nil
	default:
		return tradingPartnerChoice{id: cfg.Alphaflow.DefaultTradingPartnerID, source: "Standard"}, nil
	}
}

// handleCreateError provides user-friendly messages and exit codes for failed runs
func handleCreateError(err error, interrupted bool, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Invoice run failed")

	if interrupted || errors.Is(err, context.Canceled) {
		return &exitError{code: exitInterrupted, err: fmt.Errorf("Vorgang abgebrochen")}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("Zeitüberschreitung. Erhöhen Sie --timeout: %w", err)
	case errors.Is(err, mite.ErrUnauthorized):
		return fmt.Errorf("mite-Anmeldung fehlgeschlagen. Prüfen Sie mite.api_key: %w", err)
	case errors.Is(err, mite.ErrNotFound):
		return fmt.Errorf("mite-Projekt nicht gefunden: %w", err)
	case errors.Is(err, mite.ErrRateLimited):
		return fmt.Errorf("mite-Ratenlimit erreicht. Bitte später erneut versuchen: %w", err)
	case errors.Is(err, dvelop.ErrAuthenticationFailed), errors.Is(err, dvelop.ErrNoSessionID):
		return fmt.Errorf("d.velop-Anmeldung fehlgeschlagen. Prüfen Sie alphaflow.dvelop_api_key: %w", err)
	case errors.Is(err, alphaflow.ErrTradingPartnerNotFound):
		return fmt.Errorf("Geschäftspartner nicht gefunden: %w", err)
	case errors.Is(err, workflow.ErrCreateInvoice):
		return fmt.Errorf("Rechnung konnte nicht erstellt werden, der Lauf wurde abgebrochen: %w", err)
	default:
		return fmt.Errorf("Rechnungslauf fehlgeschlagen: %w", err)
	}
}

func printNoEntries(projectID string, from, to time.Time, billableOnly bool) {
	kind := "offenen"
	if billableOnly {
		kind = "abrechenbaren offenen"
	}
	fmt.Printf("Keine %s Zeiteinträge für Projekt %s im Zeitraum %s gefunden.\n",
		kind, projectID, invoice.FormatPeriod(from, to))
	fmt.Println("Hinweis: Gesperrte Einträge werden nicht berücksichtigt, sie wurden vermutlich bereits abgerechnet.")
}

func printRunHeader(result *workflow.Result, cfg *config.Config, partner tradingPartnerChoice, verbose bool) {
	fmt.Println(strings.Repeat("=", 80))
	if result.DryRun {
		fmt.Println("                      RECHNUNGSVORSCHAU (DRY-RUN)")
	} else {
		fmt.Println("                           RECHNUNGSLAUF")
	}
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Printf("Lauf: %s\n", result.RunID)
	fmt.Printf("Zeiteinträge: %d\n", len(result.Entries))
	if partner.name != "" {
		fmt.Printf("Geschäftspartner: %s (%s, %s)\n", partner.name, cfg.Alphaflow.DefaultTradingPartnerID, partner.source)
	} else {
		fmt.Printf("Geschäftspartner: %s (%s)\n", cfg.Alphaflow.DefaultTradingPartnerID, partner.source)
	}
	fmt.Println()

	fmt.Println("=== PROJEKTE ===")
	for i := range result.Aggregates {
		agg := &result.Aggregates[i]
		fmt.Printf("%-8s %-40s %8s h  %3d Einträge  %s\n",
			agg.ProjectKey, agg.ProjectName, report.FormatHours(agg.DisplayHours()), agg.EntriesCount(), agg.CustomerName)
	}
	fmt.Println()

	if !verbose {
		return
	}

	fmt.Println("=== ZEITEINTRÄGE ===")
	for i, e := range result.Entries {
		if i == maxVerboseEntries {
			fmt.Printf("... und %d weitere\n", len(result.Entries)-maxVerboseEntries)
			break
		}
		fmt.Printf("%s  %-20s %6s h  %s\n", e.DateAt, e.UserName, report.FormatHours(e.Hours()), e.Note)
	}
	fmt.Println()
}

func printPreview(result *workflow.Result) {
	fmt.Println("=== VORSCHAU ===")
	for _, mapped := range result.Mapping.Invoices {
		doc := mapped.Document
		fmt.Printf("Projekt: %s\n", mapped.Aggregate.ProjectName)
		fmt.Printf("Leistungszeitraum: %s\n", invoice.FormatPeriod(doc.ServiceDateStart, doc.ServiceDateEnd))
		fmt.Printf("Rechnungsdatum: %s, fällig am %s\n",
			doc.IssueDate.Format(invoice.GermanDateLayout), doc.DueDate().Format(invoice.GermanDateLayout))
		if doc.BuyerReference != "" {
			fmt.Printf("Käuferreferenz: %s\n", doc.BuyerReference)
		}
		for _, item := range doc.Items {
			fmt.Printf("  Pos. %d: %s, %s h × %s\n", item.Number, item.Title,
				report.FormatHours(item.Quantity.InexactFloat64()), report.FormatAmount(item.UnitPrice.InexactFloat64()))
		}
		fmt.Printf("Netto: %s\n", report.FormatAmount(doc.TotalNetAmount().InexactFloat64()))
		fmt.Printf("MwSt: %s\n", report.FormatAmount(doc.TotalVATAmount().InexactFloat64()))
		fmt.Printf("Brutto: %s\n", report.FormatAmount(doc.TotalAmount().InexactFloat64()))
		fmt.Printf("Bemerkung: %s\n", doc.Remarks)
		fmt.Println()
	}

	for _, s := range result.Mapping.Skipped {
		fmt.Printf("Übersprungen: %s (%s), %s\n", s.ProjectName, s.ProjectID, s.Reason)
	}
	printWarnings(result.Warnings)

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("Dry-Run: Es wurde keine Rechnung erstellt und kein Eintrag gesperrt.")
	fmt.Println(strings.Repeat("=", 80))
}

func printProjects(result *workflow.Result) {
	for _, project := range result.Projects {
		fmt.Printf("=== RECHNUNG %s ===\n", project.Aggregate.ProjectName)
		if o := project.Outcome; o != nil {
			if o.InvoiceID != "" {
				fmt.Printf("Rechnungs-ID: %s\n", o.InvoiceID)
			}
			if o.Number != "" {
				fmt.Printf("Rechnungsnummer: %s\n", o.Number)
			}
			fmt.Printf("Brutto: %s\n", report.FormatAmount(project.Document.TotalAmount().InexactFloat64()))
			for _, stage := range o.Stages {
				fmt.Printf("  %s %-18s %s\n", stageMark(stage), stage.Stage, stageDetail(stage))
			}
		}
		if lock := project.Lock; lock != nil {
			printLockSummary(lock)
		}
		fmt.Println()
	}

	for _, s := range result.Mapping.Skipped {
		fmt.Printf("Übersprungen: %s (%s), %s\n", s.ProjectName, s.ProjectID, s.Reason)
	}
}

func stageMark(r workflow.StageResult) string {
	switch {
	case r.Succeeded:
		return "✓"
	case r.Attempted:
		return "✗"
	default:
		return "-"
	}
}

func stageDetail(r workflow.StageResult) string {
	switch {
	case r.Succeeded:
		return ""
	case r.Attempted:
		return r.Error
	default:
		return "übersprungen: " + r.SkipReason
	}
}

func printLockSummary(lock *workflow.LockOutcome) {
	fmt.Printf("Sperren: %d gesperrt, %d bereits gesperrt, %d fehlgeschlagen (von %d)\n",
		lock.Locked, lock.AlreadyLocked, lock.Failed, lock.Total)
	for i, e := range lock.Errors {
		if i == maxLockErrors {
			fmt.Printf("  ... und %d weitere\n", len(lock.Errors)-maxLockErrors)
			break
		}
		fmt.Printf("  ⚠ %s\n", e.Message)
	}
}

// unreportedWarnings drops the stage and lock warnings already shown per project.
func unreportedWarnings(result *workflow.Result) []string {
	shown := make(map[string]bool)
	for _, project := range result.Projects {
		if project.Outcome != nil {
			for _, w := range project.Outcome.Warnings() {
				shown[w] = true
			}
		}
		if project.Lock != nil {
			for _, e := range project.Lock.Errors {
				shown[e.Message] = true
			}
		}
	}

	var rest []string
	for _, w := range result.Warnings {
		if !shown[w] {
			rest = append(rest, w)
		}
	}
	return rest
}

func printWarnings(warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Println("=== HINWEISE ===")
	for _, w := range warnings {
		fmt.Printf("⚠ %s\n", w)
	}
	fmt.Println()
}
