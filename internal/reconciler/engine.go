// Package reconciler reconciles claim benefit amounts against the invoice
// transactions recorded for each claim.
//
// The Engine runs a fixed pipeline: load both tables, sum invoice values per
// claim and left-join the totals onto claims, compute summary statistics and
// render a report. Each step is one method call and the engine refuses steps
// taken out of order. Engines are single use; build a new one per run.
//
// Example usage:
//
//	engine, err := reconciler.NewEngine(
//		&reconciler.CSVClaimSource{Path: "data/claims.csv"},
//		&reconciler.CSVInvoiceSource{Path: "data/invoices.csv"},
//	)
//	engine.AddProgressCallback(func(p reconciler.Progress) {
//		fmt.Printf("%.0f%% %s\n", p.PercentComplete, p.Step)
//	})
//	if err := engine.Load(ctx); err != nil {
//		return err
//	}
//	if err := engine.ProcessReconciliation(); err != nil {
//		return err
//	}
//	generator, _ := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	summary, err := engine.GenerateReport(generator, "report.html")
//
// Run wraps the same steps for two CSV files.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// State is the position of an engine in its pipeline
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateReconciled
	StateReported
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateReconciled:
		return "reconciled"
	case StateReported:
		return "reported"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Pipeline step names reported to progress callbacks
const (
	StepLoad       = "load"
	StepReconcile  = "reconcile"
	StepStatistics = "statistics"
	StepReport     = "report"
)

const totalSteps = 4

// Progress is passed to callbacks after each pipeline step
type Progress struct {
	Step            string        `json:"step"`
	CompletedSteps  int           `json:"completed_steps"`
	TotalSteps      int           `json:"total_steps"`
	PercentComplete float64       `json:"percent_complete"`
	Elapsed         time.Duration `json:"elapsed"`
}

// ProgressCallback is called to report pipeline progress
type ProgressCallback func(Progress)

// Engine holds the tables of a single reconciliation run
type Engine struct {
	claimSource   ClaimSource
	invoiceSource InvoiceSource
	logger        logger.Logger
	callbacks     []ProgressCallback

	state       State
	started     time.Time
	completed   int
	claims      []models.Claim
	invoices    []models.Invoice
	records     []models.ReconciliationRecord
	summary     *models.Summary
	diagnostics Diagnostics
}

// NewEngine creates an engine over the given sources
func NewEngine(claims ClaimSource, invoices InvoiceSource) (*Engine, error) {
	if claims == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "claims source", nil, nil)
	}
	if invoices == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "invoices source", nil, nil)
	}

	return &Engine{
		claimSource:   claims,
		invoiceSource: invoices,
		logger:        logger.GetGlobalLogger().WithComponent("reconciliation_engine"),
		state:         StateUnloaded,
	}, nil
}

// SetLogger replaces the engine's logger
func (e *Engine) SetLogger(log logger.Logger) {
	if log != nil {
		e.logger = log.WithComponent("reconciliation_engine")
	}
}

// AddProgressCallback adds a progress callback function
func (e *Engine) AddProgressCallback(callback ProgressCallback) {
	e.callbacks = append(e.callbacks, callback)
}

// State returns the current pipeline state
func (e *Engine) State() State {
	return e.state
}

// Records returns the reconciled records in claim order
func (e *Engine) Records() []models.ReconciliationRecord {
	return e.records
}

// Diagnostics returns dataset diagnostics gathered by Load
func (e *Engine) Diagnostics() Diagnostics {
	return e.diagnostics
}

func (e *Engine) require(operation string, want State) error {
	if e.state != want {
		return errors.ReconciliationError(errors.CodeInvalidState, operation,
			fmt.Errorf("engine is %s, %s requires %s", e.state, operation, want)).
			WithContext("state", e.state.String())
	}
	return nil
}

func (e *Engine) stepDone(step string) {
	e.completed++
	progress := Progress{
		Step:            step,
		CompletedSteps:  e.completed,
		TotalSteps:      totalSteps,
		PercentComplete: float64(e.completed) / float64(totalSteps) * 100,
		Elapsed:         time.Since(e.started),
	}
	for _, callback := range e.callbacks {
		callback(progress)
	}
}

// Load reads both tables and validates their keys
func (e *Engine) Load(ctx context.Context) error {
	if err := e.require("load", StateUnloaded); err != nil {
		return err
	}
	e.started = time.Now()

	claims, err := e.claimSource.LoadClaims(ctx)
	if err != nil {
		e.logger.WithError(err).Error("Failed to load claims")
		return errors.WrapIfNeeded(err, errors.CategoryDataLoad, errors.CodeSourceQuery, "failed to load claims")
	}
	invoices, err := e.invoiceSource.LoadInvoices(ctx)
	if err != nil {
		e.logger.WithError(err).Error("Failed to load invoices")
		return errors.WrapIfNeeded(err, errors.CategoryDataLoad, errors.CodeSourceQuery, "failed to load invoices")
	}

	diag, err := validateDataset(sourceName(e.claimSource, "claims"), claims, sourceName(e.invoiceSource, "invoices"), invoices)
	if err != nil {
		e.logger.WithError(err).Error("Dataset validation failed")
		return err
	}

	if diag.OrphanInvoices > 0 {
		e.logger.WithFields(logger.Fields{
			"orphan_invoices": diag.OrphanInvoices,
			"samples":         diag.OrphanInvoiceSamples,
		}).Warn("Invoices reference unknown claims and will be ignored")
	}

	e.claims = claims
	e.invoices = invoices
	e.diagnostics = diag
	e.state = StateLoaded

	e.logger.WithFields(logger.Fields{
		"claims":   len(claims),
		"invoices": len(invoices),
	}).Info("Loaded reconciliation dataset")
	e.stepDone(StepLoad)
	return nil
}

// ProcessReconciliation joins invoice totals onto claims and classifies each claim
func (e *Engine) ProcessReconciliation() error {
	if err := e.require("reconciliation", StateLoaded); err != nil {
		return err
	}

	e.records = reconcile(e.claims, e.invoices)
	e.state = StateReconciled

	e.logger.WithField("records", len(e.records)).Info("Reconciliation processed")
	e.stepDone(StepReconcile)
	return nil
}

// GenerateStatistics computes the summary over the reconciled records. It may
// be called any number of times once the engine is reconciled.
func (e *Engine) GenerateStatistics() (*models.Summary, error) {
	if e.state != StateReconciled && e.state != StateReported {
		return nil, e.require("statistics", StateReconciled)
	}

	first := e.summary == nil
	e.summary = summarize(e.records)
	if first {
		e.stepDone(StepStatistics)
	}
	return e.summary, nil
}

// GenerateReport computes the statistics and hands them to writer
func (e *Engine) GenerateReport(writer ReportWriter, outputPath string) (*models.Summary, error) {
	if err := e.require("report", StateReconciled); err != nil {
		return nil, err
	}
	if writer == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "report writer", nil, nil)
	}

	summary, err := e.GenerateStatistics()
	if err != nil {
		return nil, err
	}

	if err := writer.WriteReport(outputPath, summary, e.records); err != nil {
		e.logger.WithError(err).WithField("output_path", outputPath).Error("Failed to write report")
		return nil, errors.WrapIfNeeded(err, errors.CategoryWrite, errors.CodeOutputNotWritable, "failed to write report")
	}

	e.state = StateReported
	e.logger.WithFields(logger.Fields{
		"output_path": outputPath,
		"total":       summary.TotalClaims,
		"balanced":    summary.Balanced,
		"overpaid":    summary.Overpaid,
		"underpaid":   summary.Underpaid,
	}).Info("Report generated")
	e.stepDone(StepReport)
	return summary, nil
}

func sourceName(source interface{}, fallback string) string {
	if s, ok := source.(fmt.Stringer); ok {
		return s.String()
	}
	return fallback
}
