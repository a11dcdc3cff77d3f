package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/logger"
)

// stdoutPath as --output-file writes the report to standard output
const stdoutPath = "-"

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile claims with invoices and write a report",
	Long: `Reconcile sums the invoices of every claim, compares the total with the
claim's benefit amount and writes a report.

This command requires a claims file and an invoices file (CSV), or
--source db after 'reconciler import'.

Examples:
  # Basic reconciliation, HTML report in report.html
  reconciler reconcile --claims-file claims.csv --invoices-file invoices.csv

  # JSON report to a custom path
  reconciler reconcile -c claims.csv -i invoices.csv \
    --output-format json --output-file out/report.json

  # Print a summary to the terminal
  reconciler reconcile -c claims.csv -i invoices.csv --output-format console

  # Reconcile the imported tables and archive the run
  reconciler reconcile --source db --archive --progress`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

var reconcileBindings = map[string]string{
	"claims-file":   config.KeyClaimsFile,
	"invoices-file": config.KeyInvoicesFile,
	"output-file":   config.KeyOutputFile,
	"output-format": config.KeyOutputFormat,
	"source":        config.KeySource,
	"archive":       config.KeyArchive,
	"progress":      config.KeyProgress,
	"title":         config.KeyReportTitle,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Input flags
	reconcileCmd.Flags().StringP("claims-file", "c", "", "path to claims CSV file")
	reconcileCmd.Flags().StringP("invoices-file", "i", "", "path to invoices CSV file")
	reconcileCmd.Flags().String("source", config.SourceCSV, "where to read claims and invoices: csv, db")

	// Output flags
	reconcileCmd.Flags().StringP("output-file", "o", reconciler.DefaultOutputPath, "report path, '-' for stdout")
	reconcileCmd.Flags().StringP("output-format", "f", string(reporter.FormatHTML), "output format: html, json, csv, console")
	reconcileCmd.Flags().String("title", reporter.DefaultTitle, "report title")

	reconcileCmd.Flags().Bool("archive", false, "store the run summary in the database")
	reconcileCmd.Flags().Bool("progress", false, "show progress indicators")
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, reconcileBindings)
	if err != nil {
		return err
	}

	if cfg.Source == config.SourceCSV {
		if cfg.ClaimsFile == "" {
			return fmt.Errorf("claims-file is required")
		}
		if cfg.InvoicesFile == "" {
			return fmt.Errorf("invoices-file is required")
		}
		if err := validateFileExists(cfg.ClaimsFile, "claims file"); err != nil {
			return err
		}
		if err := validateFileExists(cfg.InvoicesFile, "invoices file"); err != nil {
			return err
		}
	}

	if cfg.OutputFile != stdoutPath && cfg.OutputFormat != string(reporter.FormatConsole) {
		dir := filepath.Dir(cfg.OutputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

// streamWriter renders the report to a stream instead of a file
type streamWriter struct {
	generator *reporter.ReportGenerator
	out       io.Writer
}

func (w *streamWriter) WriteReport(_ string, summary *models.Summary, records []models.ReconciliationRecord) error {
	return w.generator.Render(w.out, summary, records)
}

// openSources returns the configured sources, and the store when the source
// or the archive needs one. The caller closes the store.
func openSources(cfg *config.Config) (reconciler.ClaimSource, reconciler.InvoiceSource, *store.Store, error) {
	var db *store.Store
	if cfg.Source == config.SourceDB || cfg.Archive {
		var err error
		db, err = store.Open(&cfg.DB)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	if cfg.Source == config.SourceDB {
		return db, db, db, nil
	}

	claims, invoices, err := cfg.CreateSources()
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, nil, err
	}
	return claims, invoices, db, nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	log := logger.GetGlobalLogger().WithComponent("cli")
	stderr := cmd.ErrOrStderr()

	if cfg.Verbose {
		fmt.Fprintf(stderr, "Starting reconciliation...\n")
		if cfg.Source == config.SourceCSV {
			fmt.Fprintf(stderr, "Claims file: %s\n", cfg.ClaimsFile)
			fmt.Fprintf(stderr, "Invoices file: %s\n", cfg.InvoicesFile)
		} else {
			fmt.Fprintf(stderr, "Source: %s (%s)\n", cfg.DB.Driver, cfg.DB.DSN)
		}
		fmt.Fprintf(stderr, "Output format: %s\n", cfg.OutputFormat)
	}

	claims, invoices, db, err := openSources(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	reportConfig, err := config.CreateReportConfig(cfg.OutputFormat, cfg.Report.Title)
	if err != nil {
		return err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	var writer reconciler.ReportWriter = generator
	outputPath := cfg.OutputFile
	toStdout := outputPath == stdoutPath || reportConfig.Format == reporter.FormatConsole
	if toStdout {
		writer = &streamWriter{generator: generator, out: cmd.OutOrStdout()}
		outputPath = stdoutPath
	}

	opts := reconciler.Options{
		Claims:     claims,
		Invoices:   invoices,
		OutputPath: outputPath,
		Writer:     writer,
		Logger:     log,
	}
	if cfg.Progress {
		fmt.Fprintf(stderr, "Processing reconciliation...\n")
		opts.Progress = func(p reconciler.Progress) {
			fmt.Fprintf(stderr, "\r[%d/%d] %s (%.1f%% complete)",
				p.CompletedSteps, p.TotalSteps, p.Step, p.PercentComplete)
			if p.CompletedSteps == p.TotalSteps {
				fmt.Fprintf(stderr, "\n")
			}
		}
	}

	start := time.Now()
	result, err := reconciler.RunWithOptions(cmd.Context(), opts)
	if err != nil {
		return err
	}
	duration := time.Since(start)

	if cfg.Archive {
		run, err := db.SaveRun(cmd.Context(), result.Summary, store.RunMeta{
			Trigger:        "cli",
			ClaimsSource:   fmt.Sprint(claims),
			InvoicesSource: fmt.Sprint(invoices),
			OutputPath:     result.OutputPath,
			Duration:       duration,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Run archived as %s\n", run.ID)
	}

	summary := result.Summary
	fmt.Fprintf(stderr, "Reconciled %d claims: %d balanced, %d overpaid, %d underpaid.\n",
		summary.TotalClaims, summary.Balanced, summary.Overpaid, summary.Underpaid)
	if !toStdout {
		fmt.Fprintf(stderr, "Report written to %s\n", result.OutputPath)
	}

	if cfg.Verbose {
		diag := result.Diagnostics
		fmt.Fprintf(stderr, "Processed %d claims and %d invoices in %v.\n", diag.ClaimCount, diag.InvoiceCount, duration)
		if diag.OrphanInvoices > 0 {
			fmt.Fprintf(stderr, "Ignored %d invoices that reference unknown claims.\n", diag.OrphanInvoices)
		}
		if diag.ClaimsWithoutInvoices > 0 {
			fmt.Fprintf(stderr, "%d claims have no invoices; their total is 0.\n", diag.ClaimsWithoutInvoices)
		}
	}

	return nil
}
