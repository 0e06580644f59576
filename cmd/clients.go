package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invoicer/internal/alphaflow"
	"invoicer/internal/config"
	"invoicer/internal/dvelop"
	"invoicer/internal/invoice"
	"invoicer/internal/journal"
	"invoicer/internal/mite"
	"invoicer/internal/sheets"
	"invoicer/internal/workflow"
	"invoicer/pkg/services"
)

const dateLayout = "2006-01-02"

// createCommandContext creates a context with timeout that is also canceled
// on SIGINT or SIGTERM. interrupted reports whether a signal arrived.
func createCommandContext(timeoutSecs int, log zerolog.Logger) (ctx context.Context, cancel context.CancelFunc, interrupted func() bool) {
	ctx, cancel = context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	signaled := make(chan struct{})
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling run")
			close(signaled)
			cancel()
		case <-ctx.Done():
		}
	}()

	interrupted = func() bool {
		select {
		case <-signaled:
			return true
		default:
			return false
		}
	}
	return ctx, cancel, interrupted
}

// parseDateRange parses --from and --to and checks from <= to.
func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("ungültiges Startdatum %q, erwartet YYYY-MM-DD: %w", fromStr, err)
	}
	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("ungültiges Enddatum %q, erwartet YYYY-MM-DD: %w", toStr, err)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("ungültiger Zeitraum: %s liegt nach %s", fromStr, toStr)
	}
	return from, to, nil
}

func newMiteClient(cfg *config.Config) (*mite.Client, error) {
	client, err := mite.NewClient(mite.Config{
		Account:           cfg.Mite.Account,
		APIKey:            cfg.Mite.APIKey,
		BaseURL:           cfg.Mite.BaseURL,
		RequestsPerSecond: cfg.Mite.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mite client: %w", err)
	}
	return client, nil
}

// newAlphaflowClient returns the client and the session it runs on; callers
// log out through the session when done.
func newAlphaflowClient(cfg *config.Config) (*alphaflow.Client, *dvelop.Session, error) {
	session, err := dvelop.NewSession(dvelop.Config{
		BaseURL: cfg.Alphaflow.DvelopBaseURL,
		APIKey:  cfg.Alphaflow.DvelopAPIKey,
		Timeout: cfg.HTTPTimeout(),
		Retry: dvelop.RetryPolicy{
			MaxAttempts:  cfg.Alphaflow.Retry.MaxAttempts,
			InitialDelay: cfg.Alphaflow.Retry.InitialDelay,
			Multiplier:   cfg.Alphaflow.Retry.Multiplier,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create d.velop session: %w", err)
	}

	client, err := alphaflow.NewClient(cfg.Alphaflow.DvelopBaseURL, session)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Alphaflow client: %w", err)
	}
	return client, session, nil
}

func logout(session *dvelop.Session, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := session.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("d.velop logout failed")
	}
}

func mapperSettings(cfg *config.Config) invoice.Settings {
	return invoice.Settings{
		OrganizationID:             cfg.Alphaflow.OrganizationID,
		ResponsibleAdministratorID: cfg.Alphaflow.ResponsibleAdministratorID,
		DefaultTradingPartnerID:    cfg.Alphaflow.DefaultTradingPartnerID,
		DefaultHourlyRate:          decimal.NewFromFloat(cfg.Alphaflow.DefaultHourlyRate),
		DefaultVATRate:             decimal.NewFromFloat(cfg.Alphaflow.DefaultVATRate),
		DefaultDueDays:             cfg.Alphaflow.DefaultDueDays,
		DefaultCurrency:            cfg.Alphaflow.DefaultCurrency,
		InvoiceTypeValue:           cfg.Alphaflow.InvoiceTypeValue,
		ProjectBlacklist:           cfg.Alphaflow.ProjectBlacklist,
	}
}

func submissionSettings(cfg *config.Config) workflow.SubmissionSettings {
	gen := cfg.Alphaflow.DocumentGeneration
	return workflow.SubmissionSettings{
		Document: services.DocumentSettings{
			Template:   gen.DocTemplate,
			Category:   gen.Category,
			Type:       gen.Type,
			StoreToDMS: gen.StoreToDMS,
		},
		AttachmentCategory: gen.AttachmentCategory,
		AttachmentFilename: gen.AttachmentFilename,
		DocumentJoinType:   gen.DocumentJoinType,
		WorkflowName:       cfg.Alphaflow.WorkflowName,
		ForwardFlowID:      cfg.Alphaflow.WorkflowForwardFlowID,
	}
}

// openJournal opens the run journal, or returns nil when journal.path is empty.
func openJournal(cfg *config.Config) (*journal.Journal, error) {
	if cfg.Journal.Path == "" {
		return nil, nil
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run journal: %w", err)
	}
	return j, nil
}

// newRecorders returns the configured run recorders. A sheet export that
// cannot be set up is logged and left out.
func newRecorders(ctx context.Context, cfg *config.Config, j *journal.Journal, log zerolog.Logger) []services.RunRecorder {
	var recorders []services.RunRecorder
	if j != nil {
		recorders = append(recorders, j)
	}
	if cfg.Sheets.URL != "" {
		svc, err := sheets.NewSheetsService(ctx, cfg.Sheets.URL, cfg.Sheets.Worksheet)
		if err != nil {
			log.Warn().Err(err).Msg("Google Sheets export disabled")
		} else {
			recorders = append(recorders, svc)
		}
	}
	return recorders
}
