// Package reporter renders reconciliation results.
//
// The default output is a self-contained HTML page with the executive
// summary, the status and provider breakdowns and the per-claim table. The
// same data can be written as JSON for programmatic consumers, as CSV for
// spreadsheets, or as a plain text summary for the terminal.
//
// Supported output formats:
//   - HTML: the full report page
//   - JSON: the summary and, optionally, every record
//   - CSV: one row per reconciled claim
//   - Console: a human-readable text summary
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	err = generator.WriteReport("report.html", summary, records)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatHTML    OutputFormat = "html"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatConsole OutputFormat = "console"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatHTML, FormatJSON, FormatCSV, FormatConsole:
		return true
	default:
		return false
	}
}

// ParseOutputFormat parses a format name, case-insensitively
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format: %s", s)
	}
	return f, nil
}

// ContentType returns the MIME type of the rendered format
func (f OutputFormat) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// DefaultTitle heads the HTML report
const DefaultTitle = "Healthcare Claims Reconciliation Report"

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`
	Title  string       `json:"title" mapstructure:"title"`

	// JSON only; HTML and CSV always carry the records
	IncludeRecords bool `json:"include_records" mapstructure:"include_records"`

	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"csv_delimiter"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatHTML,
		Title:          DefaultTitle,
		IncludeRecords: true,
		CSVDelimiter:   ',',
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.Format == FormatCSV {
		if c.CSVDelimiter == 0 || c.CSVDelimiter == '\r' || c.CSVDelimiter == '\n' || c.CSVDelimiter == '"' {
			return fmt.Errorf("invalid CSV delimiter: %q", c.CSVDelimiter)
		}
	}
	return nil
}

// ReportGenerator renders reconciliation results in the configured format
type ReportGenerator struct {
	config    *ReportConfig
	formatter *Formatter
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report.format", config.Format, err)
	}

	return &ReportGenerator{
		config:    config,
		formatter: NewFormatter(),
	}, nil
}

// Config returns the generator's configuration
func (rg *ReportGenerator) Config() *ReportConfig {
	return rg.config
}

// Render writes the report to w
func (rg *ReportGenerator) Render(w io.Writer, summary *models.Summary, records []models.ReconciliationRecord) error {
	if summary == nil {
		return errors.New(errors.CategoryInternal, errors.CodeUnexpectedError, "summary cannot be nil")
	}

	switch rg.config.Format {
	case FormatHTML:
		return rg.renderHTML(w, summary, records)
	case FormatJSON:
		return rg.renderJSON(w, summary, records)
	case FormatCSV:
		return rg.renderCSV(w, records)
	case FormatConsole:
		return rg.renderConsole(w, summary)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// WriteReport renders the report into path, replacing it atomically
func (rg *ReportGenerator) WriteReport(path string, summary *models.Summary, records []models.ReconciliationRecord) error {
	return WriteFile(path, func(w io.Writer) error {
		return rg.Render(w, summary, records)
	})
}

type jsonReport struct {
	Summary *models.Summary               `json:"summary"`
	Records []models.ReconciliationRecord `json:"records,omitempty"`
}

func (rg *ReportGenerator) renderJSON(w io.Writer, summary *models.Summary, records []models.ReconciliationRecord) error {
	report := jsonReport{Summary: summary}
	if rg.config.IncludeRecords {
		report.Records = records
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// CSVHeaders are the columns of the CSV report
var CSVHeaders = []string{
	"claim_id",
	"patient_id",
	"date_of_service",
	"charges_amount",
	"benefit_amount",
	"claim_status",
	"provider_name",
	"insurance_company",
	"total_transaction_value",
	"variance",
	"reconciliation_status",
}

func (rg *ReportGenerator) renderCSV(w io.Writer, records []models.ReconciliationRecord) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = rg.config.CSVDelimiter

	if err := csvWriter.Write(CSVHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ClaimID,
			r.PatientID,
			r.DateOfService.Format(models.DateLayout),
			models.FormatAmount(r.ChargesAmount),
			models.FormatAmount(r.BenefitAmount),
			r.ClaimStatus.String(),
			r.ProviderName,
			r.InsuranceCompany,
			models.FormatAmount(r.TotalTransactionValue),
			models.FormatAmount(r.Variance),
			r.ReconciliationStatus.String(),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ClaimID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) renderConsole(w io.Writer, s *models.Summary) error {
	f := rg.formatter
	var b strings.Builder

	fmt.Fprintf(&b, "RECONCILIATION REPORT\n\n")

	fmt.Fprintf(&b, "=== SUMMARY ===\n")
	fmt.Fprintf(&b, "  Total:     %s\n", f.Count(s.TotalClaims))
	fmt.Fprintf(&b, "  Balanced:  %s (%s%%)\n", f.Count(s.Balanced), f.Percent(s.BalancedPct))
	fmt.Fprintf(&b, "  Overpaid:  %s (%s%%)\n", f.Count(s.Overpaid), f.Percent(s.OverpaidPct))
	fmt.Fprintf(&b, "  Underpaid: %s (%s%%)\n\n", f.Count(s.Underpaid), f.Percent(s.UnderpaidPct))

	fmt.Fprintf(&b, "=== FINANCIAL SUMMARY ===\n")
	fmt.Fprintf(&b, "Total Overpaid Amount:  %s\n", f.Currency(s.TotalOverpaidAmount))
	fmt.Fprintf(&b, "Total Underpaid Amount: %s\n\n", f.Currency(s.TotalUnderpaidAmount))

	fmt.Fprintf(&b, "=== CLAIMS BY STATUS ===\n")
	for _, status := range models.ClaimStatuses {
		fmt.Fprintf(&b, "  %-9s %s\n", status.String()+":", f.Count(s.ClaimStatusCount(status)))
	}
	fmt.Fprintf(&b, "\n")

	if len(s.TopProviders) > 0 {
		fmt.Fprintf(&b, "=== TOP PROVIDERS BY TOTAL VARIANCE ===\n")
		for i, p := range s.TopProviders {
			fmt.Fprintf(&b, "  %d. %-30s %6s claims  %s\n", i+1, p.ProviderName, f.Count(p.Count), f.Currency(p.TotalVariance))
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(s.InsuranceStats) > 0 {
		fmt.Fprintf(&b, "=== INSURANCE COMPANIES ===\n")
		for _, ins := range s.InsuranceStats {
			fmt.Fprintf(&b, "  %-30s %6s claims  total %s  avg %s\n",
				ins.InsuranceCompany, f.Count(ins.Count), f.Currency(ins.TotalVariance), f.Currency(ins.AvgVariance))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
