package reconciler_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/pkg/errors"
)

const claimsCSV = `claim_id,patient_id,date_of_service,charges_amount,benefit_amount,claim_status,provider_name,insurance_company
C1,P0001,2024-01-10,150.00,100.00,Approved,City Hospital,Aetna
C2,P0001,2024-01-11,200.00,100.00,Denied,Valley Clinic,Cigna
C3,P0002,2024-02-01,120.00,100.00,Pending,City Hospital,Aetna
C4,P0003,2024-03-05,10.00,0.00,Approved,Northside Medical,Humana
`

const invoicesCSV = `invoice_id,claim_id,type_of_bill,transaction_value,invoice_date,payment_status,payment_method
I1,C1,fee,60.00,2024-01-15,Paid,Credit Card
I2,C2,procedure payment,150.00,2024-01-20,Pending,Check
I3,C1,fee,40.00,2024-01-21,Paid,Bank Transfer
I4,C4,fee,0.00,2024-03-09,Overdue,Cash
I5,C99,fee,12.00,2024-03-09,Paid,Cash
`

func writeDataset(t *testing.T, claims, invoices string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	claimsPath := filepath.Join(dir, "claims.csv")
	invoicesPath := filepath.Join(dir, "invoices.csv")
	require.NoError(t, os.WriteFile(claimsPath, []byte(claims), 0644))
	require.NoError(t, os.WriteFile(invoicesPath, []byte(invoices), 0644))
	return claimsPath, invoicesPath
}

func TestRun(t *testing.T) {
	claimsPath, invoicesPath := writeDataset(t, claimsCSV, invoicesCSV)
	output := filepath.Join(t.TempDir(), "report.html")

	summary, err := reconciler.Run(context.Background(), claimsPath, invoicesPath, output)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalClaims)
	assert.Equal(t, 2, summary.Balanced)
	assert.Equal(t, 1, summary.Overpaid)
	assert.Equal(t, 1, summary.Underpaid)
	assert.Equal(t, "50.00", models.FormatAmount(summary.TotalOverpaidAmount))
	assert.Equal(t, "100.00", models.FormatAmount(summary.TotalUnderpaidAmount))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	html := string(content)
	assert.Contains(t, html, "Executive Summary")
	assert.Contains(t, html, "Valley Clinic")
	assert.NotContains(t, html, "C99", "orphan invoices do not reach the report")
	assert.Equal(t, 4, strings.Count(html, `<span class="status-badge status-`)/2)
}

func TestRun_Idempotent(t *testing.T) {
	claimsPath, invoicesPath := writeDataset(t, claimsCSV, invoicesCSV)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.html")
	second := filepath.Join(dir, "second.html")

	summaryA, err := reconciler.Run(context.Background(), claimsPath, invoicesPath, first)
	require.NoError(t, err)
	summaryB, err := reconciler.Run(context.Background(), claimsPath, invoicesPath, second)
	require.NoError(t, err)
	assert.Equal(t, summaryA, summaryB)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRun_FailureLeavesNoReport(t *testing.T) {
	tests := []struct {
		name     string
		claims   string
		invoices string
		category errors.ErrorCategory
	}{
		{
			name:     "bad invoice amount",
			claims:   claimsCSV,
			invoices: strings.Replace(invoicesCSV, "150.00", "1S0.00", 1),
			category: errors.CategorySchema,
		},
		{
			name:     "missing column",
			claims:   strings.Replace(claimsCSV, "benefit_amount", "benefit", 1),
			invoices: invoicesCSV,
			category: errors.CategoryDataLoad,
		},
		{
			name:     "duplicate claim",
			claims:   claimsCSV + "C2,P0009,2024-05-01,1.00,1.00,Approved,X,Y\n",
			invoices: invoicesCSV,
			category: errors.CategorySchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claimsPath, invoicesPath := writeDataset(t, tt.claims, tt.invoices)
			dir := t.TempDir()
			output := filepath.Join(dir, "report.html")

			summary, err := reconciler.Run(context.Background(), claimsPath, invoicesPath, output)
			require.Error(t, err)
			assert.Nil(t, summary)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestRun_MissingFile(t *testing.T) {
	_, invoicesPath := writeDataset(t, claimsCSV, invoicesCSV)
	output := filepath.Join(t.TempDir(), "report.html")

	_, err := reconciler.Run(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), invoicesPath, output)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFileNotFound))

	reconcilerErr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, 2, reconcilerErr.GetExitCode())

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunWithOptions_JSON(t *testing.T) {
	claimsPath, invoicesPath := writeDataset(t, claimsCSV, invoicesCSV)
	output := filepath.Join(t.TempDir(), "report.json")

	config := reporter.DefaultReportConfig()
	config.Format = reporter.FormatJSON
	writer, err := reporter.NewReportGenerator(config)
	require.NoError(t, err)

	var progress []string
	result, err := reconciler.RunWithOptions(context.Background(), reconciler.Options{
		Claims:     &reconciler.CSVClaimSource{Path: claimsPath},
		Invoices:   &reconciler.CSVInvoiceSource{Path: invoicesPath},
		OutputPath: output,
		Writer:     writer,
		Progress:   func(p reconciler.Progress) { progress = append(progress, p.Step) },
	})
	require.NoError(t, err)

	assert.Equal(t, output, result.OutputPath)
	assert.Len(t, result.Records, 4)
	assert.Equal(t, 1, result.Diagnostics.OrphanInvoices)
	assert.Equal(t, []string{"load", "reconcile", "statistics", "report"}, progress)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"total_claims": 4`)
}

func TestReconcile(t *testing.T) {
	claimsPath, invoicesPath := writeDataset(t, claimsCSV, invoicesCSV)

	result, err := reconciler.Reconcile(context.Background(),
		&reconciler.CSVClaimSource{Path: claimsPath},
		&reconciler.CSVInvoiceSource{Path: invoicesPath})
	require.NoError(t, err)
	assert.Empty(t, result.OutputPath)
	assert.Equal(t, 4, result.Summary.TotalClaims)
	assert.Equal(t, models.StatusOverpaid, result.Records[1].ReconciliationStatus)
}
