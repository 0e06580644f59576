package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"invoicer/internal/invoice"
	"invoicer/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded invoice runs from the local journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringP("project", "p", "", "Only show runs of this project")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	projectID, _ := cmd.Flags().GetString("project")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	if j == nil {
		fmt.Println("Das Laufprotokoll ist deaktiviert (journal.path ist leer).")
		return nil
	}
	defer j.Close()

	runs, err := j.List(context.Background(), 0)
	if err != nil {
		return fmt.Errorf("failed to read run journal: %w", err)
	}

	fmt.Printf("%-19s %-8s %-30s %-23s %-10s %-12s %12s\n",
		"Erfasst", "Projekt", "Name", "Zeitraum", "Status", "Rechnung", "Brutto")
	fmt.Println(strings.Repeat("-", 120))

	shown := 0
	for _, run := range runs {
		if projectID != "" && run.ProjectID != projectID {
			continue
		}
		if limit > 0 && shown == limit {
			break
		}
		shown++

		fmt.Printf("%-19s %-8s %-30s %-23s %-10s %-12s %12s\n",
			run.CreatedAt.Local().Format("02.01.2006 15:04:05"),
			run.ProjectID,
			truncate(run.ProjectName, 30),
			invoice.FormatPeriod(run.PeriodStart, run.PeriodEnd),
			run.Status,
			run.InvoiceNumber,
			report.FormatAmount(run.GrossAmount),
		)
		for _, w := range run.Warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
	}

	if shown == 0 {
		fmt.Println("Keine Läufe protokolliert.")
	}
	return nil
}
