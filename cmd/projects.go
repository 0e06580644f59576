package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"invoicer/internal/logger"
	"invoicer/internal/report"
	"invoicer/pkg/models"
	"invoicer/pkg/services"
)

// windowDays are the look-back windows shown by "projects show".
var windowDays = []int{7, 30, 365}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List and inspect mite projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active (or archived) mite projects",
	Example: `  invoicer projects list
  invoicer projects list --archived`,
	Args: cobra.NoArgs,
	RunE: runProjectsList,
}

var projectsShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show project details and recent time entry counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsShow,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsShowCmd)

	projectsListCmd.Flags().Bool("archived", false, "List archived projects instead of active ones")
	projectsListCmd.Flags().Int("timeout", 60, "Timeout in seconds")
	projectsShowCmd.Flags().Int("timeout", 60, "Timeout in seconds")
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("projects")

	archived, _ := cmd.Flags().GetBool("archived")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

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

	projects, err := client.Projects(ctx, archived)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	sort.Slice(projects, func(i, j int) bool {
		return strings.ToLower(projects[i].Name) < strings.ToLower(projects[j].Name)
	})

	fmt.Printf("%-10s %-50s %s\n", "ID", "Projekt", "Kunde")
	fmt.Println(strings.Repeat("-", 80))
	for _, p := range projects {
		blacklisted := ""
		if cfg.IsProjectBlacklisted(fmt.Sprint(p.ID)) {
			blacklisted = "  [gesperrt]"
		}
		fmt.Printf("%-10d %-50s %s%s\n", p.ID, p.Name, p.CustomerName, blacklisted)
	}
	fmt.Printf("\n%d Projekte\n", len(projects))
	return nil
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("projects")

	projectID := args[0]
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

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

	project, err := client.Project(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load project %s: %w", projectID, err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	counts := make([][]models.TimeEntry, len(windowDays))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(windowDays))
	for i, days := range windowDays {
		g.Go(func() error {
			entries, err := client.TimeEntries(gctx, services.EntryFilter{
				From:      today.AddDate(0, 0, -days),
				To:        today,
				ProjectID: projectID,
			})
			if err != nil {
				return fmt.Errorf("last %d days: %w", days, err)
			}
			counts[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load time entries: %w", err)
	}

	printProject(project, cfg.IsProjectBlacklisted(projectID))
	fmt.Println("=== ZEITEINTRÄGE ===")
	for i, days := range windowDays {
		entries := counts[i]
		unlocked := 0
		for _, e := range entries {
			if !e.Locked {
				unlocked++
			}
		}
		fmt.Printf("Letzte %3d Tage: %4d Einträge, %s h, davon %d offen\n",
			days, len(entries), report.FormatHours(report.TotalHours(entries)), unlocked)
	}
	return nil
}

func printProject(p *models.Project, blacklisted bool) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Projekt %d: %s\n", p.ID, p.Name)
	fmt.Println(strings.Repeat("=", 80))
	if p.CustomerName != "" {
		fmt.Printf("Kunde: %s\n", p.CustomerName)
	}
	if p.Note != "" {
		fmt.Printf("Notiz: %s\n", p.Note)
	}
	if p.HourlyRate != nil {
		fmt.Printf("Stundensatz: %s\n", report.FormatAmount(*p.HourlyRate/100))
	}
	if p.Budget != nil {
		fmt.Printf("Budget: %.0f (%s)\n", *p.Budget, p.BudgetType)
	}
	fmt.Printf("Archiviert: %t\n", p.Archived)
	if blacklisted {
		fmt.Println("Abrechnung: durch project_blacklist ausgeschlossen")
	}
	fmt.Println()
}
