package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/api"
	"claims-reconciliation-service/internal/notify"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/internal/scheduler"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reconciliation results over HTTP, optionally on a schedule",
	Long: `Serve starts an HTTP API that reconciles on every request:

  GET  /health
  GET  /api/v1/summary
  GET  /api/v1/records?status=OVERPAID
  GET  /api/v1/report?format=html
  GET  /api/v1/runs        (with --archive)
  POST /api/v1/runs        (with --archive)
  GET  /api/v1/runs/:id    (with --archive)

With --schedule the pipeline also runs on a cron expression, writes the
report to --output-file ({{date}} is replaced by the run date), archives the
run with --archive, and emails the summary when smtp settings and
--notify-to are given.

Examples:
  reconciler serve -c claims.csv -i invoices.csv
  reconciler serve --source db --archive --addr :9090
  reconciler serve -c claims.csv -i invoices.csv --schedule "0 6 * * *" \
    --output-file reports/report-{{date}}.html --notify-to finance@example.com`,

	PreRunE: validateServeFlags,
	RunE:    runServe,
}

var serveBindings = map[string]string{
	"claims-file":   config.KeyClaimsFile,
	"invoices-file": config.KeyInvoicesFile,
	"source":        config.KeySource,
	"output-file":   config.KeyOutputFile,
	"archive":       config.KeyArchive,
	"addr":          config.KeyServeAddr,
	"schedule":      config.KeyServeSchedule,
	"timezone":      config.KeyServeTimezone,
	"notify-to":     config.KeySMTPTo,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("claims-file", "c", "", "path to claims CSV file")
	serveCmd.Flags().StringP("invoices-file", "i", "", "path to invoices CSV file")
	serveCmd.Flags().String("source", config.SourceCSV, "where to read claims and invoices: csv, db")
	serveCmd.Flags().StringP("output-file", "o", reconciler.DefaultOutputPath, "report path for scheduled runs")
	serveCmd.Flags().Bool("archive", false, "store run summaries in the database")

	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().String("schedule", "", "cron expression for scheduled runs, e.g. @daily or \"0 6 * * *\"")
	serveCmd.Flags().String("timezone", "UTC", "timezone the schedule is evaluated in")
	serveCmd.Flags().StringSlice("notify-to", []string{}, "email recipients of scheduled run summaries")
}

func validateServeFlags(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, serveBindings)
	if err != nil {
		return err
	}

	if cfg.Source == config.SourceCSV {
		if err := validateFileExists(cfg.ClaimsFile, "claims file"); err != nil {
			return err
		}
		if err := validateFileExists(cfg.InvoicesFile, "invoices file"); err != nil {
			return err
		}
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	if len(cfg.SMTP.To) > 0 {
		if cfg.Serve.Schedule == "" {
			return fmt.Errorf("notify-to requires --schedule")
		}
		if err := cfg.SMTP.Validate(); err != nil {
			return fmt.Errorf("invalid smtp config: %w", err)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	log := logger.GetGlobalLogger().WithComponent("cli")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	claims, invoices, db, err := openSources(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	sources := func() (reconciler.ClaimSource, reconciler.InvoiceSource) {
		return claims, invoices
	}
	opts := api.Options{
		Sources:     sources,
		ReportTitle: cfg.Report.Title,
		Logger:      log,
		ReleaseMode: !cfg.Verbose,
	}
	if cfg.Archive && db != nil {
		opts.Archive = db
	}

	server, err := api.NewServer(opts)
	if err != nil {
		return err
	}

	if cfg.Serve.Schedule != "" {
		sched, err := startScheduler(cfg, claims, invoices, db, log)
		if err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.WithError(err).Warn("Scheduler did not stop cleanly")
			}
		}()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", cfg.Serve.Addr)
	return server.ListenAndServe(ctx, cfg.Serve.Addr)
}

func startScheduler(cfg *config.Config, claims reconciler.ClaimSource, invoices reconciler.InvoiceSource, db *store.Store, log logger.Logger) (*scheduler.Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	reportConfig, err := config.CreateReportConfig(cfg.OutputFormat, cfg.Report.Title)
	if err != nil {
		return nil, err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return nil, err
	}

	job := scheduler.Job{
		Spec:       cfg.Serve.Schedule,
		Claims:     claims,
		Invoices:   invoices,
		OutputPath: cfg.OutputFile,
		Writer:     generator,
		Timeout:    30 * time.Minute,
	}
	if cfg.Archive && db != nil {
		job.Archive = db
	}
	if cfg.NotifyEnabled() {
		notifier, err := notify.NewEmailNotifier(&cfg.SMTP, log)
		if err != nil {
			return nil, err
		}
		job.Notifier = notifier
	}

	sched := scheduler.New(loc, log)
	if _, err := sched.Add(job); err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
