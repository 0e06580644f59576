package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/report"
	"invoicer/pkg/services"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the time report (Dienstleistungsnachweis) of a project",
	Long: `Render the time report that is attached to every invoice, without creating
an invoice. The report can be written as PDF, as XLSX or both. Without --pdf
and --xlsx a PDF named after the project and period is written.`,
	Example: `  invoicer report -p 4711 -f 2025-06-01 -t 2025-06-30 --pdf juni.pdf
  invoicer report -p 4711 -f 2025-06-01 -t 2025-06-30 --xlsx juni.xlsx`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("project", "p", "", "mite project id [REQUIRED]")
	reportCmd.Flags().StringP("from", "f", "", "Start date (YYYY-MM-DD) [REQUIRED]")
	reportCmd.Flags().StringP("to", "t", "", "End date (YYYY-MM-DD) [REQUIRED]")
	reportCmd.Flags().String("pdf", "", "Write the PDF report to this file")
	reportCmd.Flags().String("xlsx", "", "Write the XLSX report to this file")
	reportCmd.Flags().Bool("billable-only", true, "Only include billable time entries")
	reportCmd.Flags().Int("timeout", 60, "Timeout in seconds")
	_ = reportCmd.MarkFlagRequired("project")
	_ = reportCmd.MarkFlagRequired("from")
	_ = reportCmd.MarkFlagRequired("to")
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	projectID, _ := cmd.Flags().GetString("project")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	pdfPath, _ := cmd.Flags().GetString("pdf")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	billableOnly, _ := cmd.Flags().GetBool("billable-only")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	from, to, err := parseDateRange(fromStr, toStr)
	if err != nil {
		return err
	}
	if pdfPath == "" && xlsxPath == "" {
		pdfPath = fmt.Sprintf("%s_%s_%s.pdf", report.Title, projectID, from.Format("2006-01"))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newMiteClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel, _ := createCommandContext(timeoutSecs, log)
	defer cancel()

	filter := services.EntryFilter{From: from, To: to, ProjectID: projectID}
	if billableOnly {
		billable := true
		filter.Billable = &billable
	}
	entries, err := client.TimeEntries(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load time entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Printf("Keine Zeiteinträge für Projekt %s im Zeitraum %s gefunden.\n", projectID, invoice.FormatPeriod(from, to))
		return nil
	}

	input := services.ReportInput{Entries: entries, PeriodStart: from, PeriodEnd: to}
	if aggregates := invoice.Aggregate(entries); len(aggregates) > 0 {
		input.CustomerName = aggregates[0].CustomerName
		input.ProjectName = aggregates[0].ProjectName
	}

	if pdfPath != "" {
		pdf, err := report.NewPDFRenderer("invoicer").Render(input)
		if err != nil {
			return fmt.Errorf("failed to render PDF: %w", err)
		}
		if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", pdfPath, err)
		}
		fmt.Printf("PDF geschrieben: %s\n", pdfPath)
	}

	if xlsxPath != "" {
		var buf bytes.Buffer
		if err := report.WriteEntriesXLSX(&buf, input); err != nil {
			return fmt.Errorf("failed to render XLSX: %w", err)
		}
		if err := os.WriteFile(xlsxPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", xlsxPath, err)
		}
		fmt.Printf("XLSX geschrieben: %s\n", xlsxPath)
	}

	log.Info().
		Str("project_id", projectID).
		Int("entries", len(entries)).
		Float64("hours", report.TotalHours(entries)).
		Msg("Time report written")
	return nil
}
