package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

var tradingPartnersCmd = &cobra.Command{
	Use:     "trading-partners",
	Aliases: []string{"tp"},
	Short:   "List and find Alphaflow trading partners",
}

var tradingPartnersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trading partners",
	Args:  cobra.NoArgs,
	RunE:  runTradingPartnersList,
}

var tradingPartnersFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find a trading partner by number or name",
	Example: `  invoicer trading-partners find --number 10042
  invoicer trading-partners find --name acme`,
	Args: cobra.NoArgs,
	RunE: runTradingPartnersFind,
}

func init() {
	rootCmd.AddCommand(tradingPartnersCmd)
	tradingPartnersCmd.AddCommand(tradingPartnersListCmd, tradingPartnersFindCmd)

	tradingPartnersListCmd.Flags().Int("limit", 20, "Maximum number of partners to list")
	tradingPartnersListCmd.Flags().Int("timeout", 60, "Timeout in seconds")

	tradingPartnersFindCmd.Flags().String("number", "", "Exact trading partner number")
	tradingPartnersFindCmd.Flags().String("name", "", "Case-insensitive part of the name")
	tradingPartnersFindCmd.Flags().Int("timeout", 60, "Timeout in seconds")
	tradingPartnersFindCmd.MarkFlagsMutuallyExclusive("number", "name")
	tradingPartnersFindCmd.MarkFlagsOneRequired("number", "name")
}

func runTradingPartnersList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("trading-partners")

	limit, _ := cmd.Flags().GetInt("limit")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, session, err := newAlphaflowClient(cfg)
	if err != nil {
		return err
	}
	defer logout(session, log)

	ctx, cancel, _ := createCommandContext(timeoutSecs, log)
	defer cancel()

	partners, err := client.ListTradingPartners(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list trading partners: %w", err)
	}
	printTradingPartners(partners, cfg.Alphaflow.DefaultTradingPartnerID)
	return nil
}

func runTradingPartnersFind(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("trading-partners")

	number, _ := cmd.Flags().GetString("number")
	name, _ := cmd.Flags().GetString("name")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, session, err := newAlphaflowClient(cfg)
	if err != nil {
		return err
	}
	defer logout(session, log)

	ctx, cancel, _ := createCommandContext(timeoutSecs, log)
	defer cancel()

	var partners []models.TradingPartner
	if number != "" {
		partner, err := client.TradingPartnerByNumber(ctx, number)
		if err != nil {
			return fmt.Errorf("trading partner %s: %w", number, err)
		}
		partners = append(partners, *partner)
	} else {
		partners, err = client.SearchTradingPartners(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to search trading partners: %w", err)
		}
	}

	if len(partners) == 0 {
		fmt.Printf("Kein Geschäftspartner gefunden für %q\n", name)
		return nil
	}
	printTradingPartners(partners, cfg.Alphaflow.DefaultTradingPartnerID)
	return nil
}

func printTradingPartners(partners []models.TradingPartner, defaultID string) {
	fmt.Printf("%-26s %-10s %-40s %s\n", "ID", "Nummer", "Name", "Typ")
	fmt.Println(strings.Repeat("-", 90))
	for _, p := range partners {
		marker := ""
		if p.ID == defaultID {
			marker = "  (Standard)"
		}
		fmt.Printf("%-26s %-10s %-40s %s%s\n", p.ID, p.Number, truncate(p.DisplayName(), 40), p.Type, marker)
	}
	fmt.Printf("\n%d Geschäftspartner\n", len(partners))
}
