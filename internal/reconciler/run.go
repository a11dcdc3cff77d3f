package reconciler

import (
	"context"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/pkg/logger"
)

// DefaultOutputPath is where Run writes the report when no path is given
const DefaultOutputPath = "report.html"

// Options configures a single pipeline run
type Options struct {
	Claims     ClaimSource
	Invoices   InvoiceSource
	OutputPath string
	Writer     ReportWriter
	Progress   ProgressCallback
	Logger     logger.Logger
}

// Result is everything a finished run produced
type Result struct {
	Summary     *models.Summary
	Records     []models.ReconciliationRecord
	Diagnostics Diagnostics
	OutputPath  string
}

// Run reconciles the two CSV files and writes an HTML report to outputPath.
// Nothing is written when any step fails.
func Run(ctx context.Context, claimsPath, invoicesPath, outputPath string) (*models.Summary, error) {
	result, err := RunWithOptions(ctx, Options{
		Claims:     &CSVClaimSource{Path: claimsPath},
		Invoices:   &CSVInvoiceSource{Path: invoicesPath},
		OutputPath: outputPath,
	})
	if err != nil {
		return nil, err
	}
	return result.Summary, nil
}

// RunWithOptions drives a fresh engine through every pipeline step
func RunWithOptions(ctx context.Context, opts Options) (*Result, error) {
	engine, err := NewEngine(opts.Claims, opts.Invoices)
	if err != nil {
		return nil, err
	}
	engine.SetLogger(opts.Logger)
	if opts.Progress != nil {
		engine.AddProgressCallback(opts.Progress)
	}

	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	if opts.Writer == nil {
		generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
		if err != nil {
			return nil, err
		}
		opts.Writer = generator
	}

	if err := engine.Load(ctx); err != nil {
		return nil, err
	}
	if err := engine.ProcessReconciliation(); err != nil {
		return nil, err
	}
	summary, err := engine.GenerateReport(opts.Writer, opts.OutputPath)
	if err != nil {
		return nil, err
	}

	return &Result{
		Summary:     summary,
		Records:     engine.Records(),
		Diagnostics: engine.Diagnostics(),
		OutputPath:  opts.OutputPath,
	}, nil
}

// Reconcile runs load, reconcile and statistics without rendering a report
func Reconcile(ctx context.Context, claims ClaimSource, invoices InvoiceSource) (*Result, error) {
	engine, err := NewEngine(claims, invoices)
	if err != nil {
		return nil, err
	}
	if err := engine.Load(ctx); err != nil {
		return nil, err
	}
	if err := engine.ProcessReconciliation(); err != nil {
		return nil, err
	}
	summary, err := engine.GenerateStatistics()
	if err != nil {
		return nil, err
	}

	return &Result{
		Summary:     summary,
		Records:     engine.Records(),
		Diagnostics: engine.Diagnostics(),
	}, nil
}
