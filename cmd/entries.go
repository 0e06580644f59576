package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/report"
	"invoicer/pkg/services"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Inspect mite time entries",
}

var entriesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the lock status of a project's time entries",
	Long: `Show every time entry of a project in the given period with its lock
status. Locked entries have already been invoiced.`,
	Example: `  invoicer entries status -p 4711 -f 2025-06-01 -t 2025-06-30`,
	Args:    cobra.NoArgs,
	RunE:    runEntriesStatus,
}

var entriesRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List projects with billable time entries in the last days",
	Example: `  invoicer entries recent
  invoicer entries recent --days 60 --top 20`,
	Args: cobra.NoArgs,
	RunE: runEntriesRecent,
}

func init() {
	rootCmd.AddCommand(entriesCmd)
	entriesCmd.AddCommand(entriesStatusCmd, entriesRecentCmd)

	entriesStatusCmd.Flags().StringP("project", "p", "", "mite project id [REQUIRED]")
	entriesStatusCmd.Flags().StringP("from", "f", "", "Start date (YYYY-MM-DD) [REQUIRED]")
	entriesStatusCmd.Flags().StringP("to", "t", "", "End date (YYYY-MM-DD) [REQUIRED]")
	entriesStatusCmd.Flags().Int("timeout", 60, "Timeout in seconds")
	_ = entriesStatusCmd.MarkFlagRequired("project")
	_ = entriesStatusCmd.MarkFlagRequired("from")
	_ = entriesStatusCmd.MarkFlagRequired("to")

	entriesRecentCmd.Flags().Int("days", 30, "Number of days to look back")
	entriesRecentCmd.Flags().Int("top", 10, "Number of projects to show")
	entriesRecentCmd.Flags().Int("timeout", 60, "Timeout in seconds")
}

func runEntriesStatus(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("entries")

	projectID, _ := cmd.Flags().GetString("project")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	from, to, err := parseDateRange(fromStr, toStr)
	if err != nil {
		return err
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

	entries, err := client.TimeEntries(ctx, services.EntryFilter{From: from, To: to, ProjectID: projectID})
	if err != nil {
		return fmt.Errorf("failed to load time entries: %w", err)
	}

	fmt.Printf("Projekt %s, Zeitraum %s\n", projectID, invoice.FormatPeriod(from, to))
	fmt.Println(strings.Repeat("-", 80))

	var locked, billable int
	var lockedMinutes, openMinutes int
	for _, e := range entries {
		status := "offen"
		if e.Locked {
			status = "gesperrt"
			locked++
			lockedMinutes += e.Minutes
		} else {
			openMinutes += e.Minutes
		}
		if e.Billable {
			billable++
		}
		fmt.Printf("%-10d %s  %-20s %6s h  %-9s %s\n",
			e.ID, e.DateAt, e.UserName, report.FormatHours(e.Hours()), status, e.Note)
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Einträge: %d (abrechenbar: %d)\n", len(entries), billable)
	fmt.Printf("Gesperrt: %d (%s h)\n", locked, report.FormatHours(float64(lockedMinutes)/60))
	fmt.Printf("Offen:    %d (%s h)\n", len(entries)-locked, report.FormatHours(float64(openMinutes)/60))
	return nil
}

func runEntriesRecent(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("entries")

	days, _ := cmd.Flags().GetInt("days")
	top, _ := cmd.Flags().GetInt("top")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	if days <= 0 {
		return fmt.Errorf("--days must be positive")
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

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -days)
	billable := true
	entries, err := client.TimeEntries(ctx, services.EntryFilter{From: from, To: to, Billable: &billable})
	if err != nil {
		return fmt.Errorf("failed to load time entries: %w", err)
	}

	aggregates := invoice.Aggregate(entries)
	fmt.Printf("Projekte mit abrechenbaren Einträgen, %s (%d Projekte)\n",
		invoice.FormatPeriod(from, to), len(aggregates))
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("%-10s %-40s %10s %10s %8s\n", "ID", "Projekt", "Stunden", "offen", "Einträge")

	for i := range aggregates {
		if top > 0 && i == top {
			break
		}
		agg := &aggregates[i]
		openMinutes := 0
		for _, e := range agg.Entries {
			if !e.Locked {
				openMinutes += e.Minutes
			}
		}
		fmt.Printf("%-10s %-40s %10s %10s %8d\n",
			agg.ProjectKey, truncate(agg.ProjectName, 40),
			report.FormatHours(agg.DisplayHours()), report.FormatHours(float64(openMinutes)/60),
			agg.EntriesCount())
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
