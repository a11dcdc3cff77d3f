package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/errors"
)

func openMemory(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(&store.Config{Driver: store.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dataset() ([]models.Claim, []models.Invoice) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	claims := []models.Claim{
		{ClaimID: "C000002", PatientID: "P0001", DateOfService: day, ChargesAmount: decimal.RequireFromString("200.00"),
			BenefitAmount: decimal.RequireFromString("150.50"), ClaimStatus: models.ClaimStatusApproved,
			ProviderName: "Dr. Michael Chen", InsuranceCompany: "Aetna"},
		{ClaimID: "C000001", PatientID: "P0002", DateOfService: day.AddDate(0, 0, 3), ChargesAmount: decimal.RequireFromString("90.10"),
			BenefitAmount: decimal.RequireFromString("80.00"), ClaimStatus: models.ClaimStatusDenied,
			ProviderName: "St. Mary's Hospital", InsuranceCompany: "Cigna"},
	}
	invoices := []models.Invoice{
		{InvoiceID: "I0000001", ClaimID: "C000002", TypeOfBill: "fee", TransactionValue: decimal.RequireFromString("100.25"),
			InvoiceDate: day.AddDate(0, 0, 10), PaymentStatus: models.PaymentStatusPaid, PaymentMethod: "ACH"},
		{InvoiceID: "I0000002", ClaimID: "C000002", TypeOfBill: "procedure payment", TransactionValue: decimal.RequireFromString("50.25"),
			InvoiceDate: day.AddDate(0, 0, 12), PaymentStatus: models.PaymentStatusPending, PaymentMethod: "Check"},
		{InvoiceID: "I0000003", ClaimID: "C000001", TypeOfBill: "fee", TransactionValue: decimal.RequireFromString("-20.00"),
			InvoiceDate: day.AddDate(0, 0, 20), PaymentStatus: models.PaymentStatusOverdue, PaymentMethod: "Wire Transfer"},
	}
	return claims, invoices
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, store.DefaultConfig().Validate())
	assert.Error(t, (&store.Config{Driver: "postgres", DSN: "x"}).Validate())
	assert.Error(t, (&store.Config{Driver: store.DriverSQLite}).Validate())

	_, err := store.Open(&store.Config{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestImportAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	claims, invoices := dataset()

	stats, err := s.ImportDataset(ctx, claims, invoices)
	require.NoError(t, err)
	assert.Equal(t, &store.ImportStats{Claims: 2, Invoices: 3}, stats)

	loaded, err := s.LoadClaims(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	for i, c := range loaded {
		assert.Equal(t, claims[i].ClaimID, c.ClaimID, "import order is kept")
		assert.Equal(t, claims[i].PatientID, c.PatientID)
		assert.True(t, claims[i].DateOfService.Equal(c.DateOfService))
		assert.True(t, claims[i].ChargesAmount.Equal(c.ChargesAmount), c.ChargesAmount.String())
		assert.True(t, claims[i].BenefitAmount.Equal(c.BenefitAmount), c.BenefitAmount.String())
		assert.Equal(t, claims[i].ClaimStatus, c.ClaimStatus)
		assert.Equal(t, claims[i].ProviderName, c.ProviderName)
		assert.Equal(t, claims[i].InsuranceCompany, c.InsuranceCompany)
	}

	loadedInvoices, err := s.LoadInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, loadedInvoices, 3)
	for i, inv := range loadedInvoices {
		assert.Equal(t, invoices[i].InvoiceID, inv.InvoiceID)
		assert.Equal(t, invoices[i].ClaimID, inv.ClaimID)
		assert.True(t, invoices[i].TransactionValue.Equal(inv.TransactionValue), inv.TransactionValue.String())
		assert.True(t, invoices[i].InvoiceDate.Equal(inv.InvoiceDate))
		assert.Equal(t, invoices[i].PaymentStatus, inv.PaymentStatus)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	claims, invoices := dataset()

	_, err := s.ImportDataset(ctx, claims, invoices)
	require.NoError(t, err)

	claims[0].BenefitAmount = decimal.RequireFromString("151.00")
	_, err = s.ImportDataset(ctx, claims, invoices)
	require.NoError(t, err)

	loaded, err := s.LoadClaims(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "C000002", loaded[0].ClaimID)
	assert.True(t, loaded[0].BenefitAmount.Equal(decimal.RequireFromString("151.00")))

	loadedInvoices, err := s.LoadInvoices(ctx)
	require.NoError(t, err)
	assert.Len(t, loadedInvoices, 3)
}

func TestImportRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(claims []models.Claim, invoices []models.Invoice)
		wantCode errors.ErrorCode
		column   string
	}{
		{
			name:     "unknown claim status",
			mutate:   func(c []models.Claim, _ []models.Invoice) { c[1].ClaimStatus = "Bogus" },
			wantCode: errors.CodeInvalidEnum,
			column:   "claim_status",
		},
		{
			name:     "empty claim id",
			mutate:   func(c []models.Claim, _ []models.Invoice) { c[0].ClaimID = " " },
			wantCode: errors.CodeMissingField,
			column:   "claim_id",
		},
		{
			name:     "missing service date",
			mutate:   func(c []models.Claim, _ []models.Invoice) { c[0].DateOfService = time.Time{} },
			wantCode: errors.CodeMissingField,
			column:   "date_of_service",
		},
		{
			name:     "unknown payment status",
			mutate:   func(_ []models.Claim, i []models.Invoice) { i[2].PaymentStatus = "nope" },
			wantCode: errors.CodeInvalidEnum,
			column:   "payment_status",
		},
		{
			name:     "benefit with three decimals",
			mutate:   func(c []models.Claim, _ []models.Invoice) { c[0].BenefitAmount = decimal.RequireFromString("150.505") },
			wantCode: errors.CodeInvalidAmount,
			column:   "benefit_amount",
		},
		{
			name:     "transaction value with three decimals",
			mutate:   func(_ []models.Claim, i []models.Invoice) { i[0].TransactionValue = decimal.RequireFromString("0.001") },
			wantCode: errors.CodeInvalidAmount,
			column:   "transaction_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := openMemory(t)
			claims, invoices := dataset()
			tt.mutate(claims, invoices)

			_, err := s.ImportDataset(ctx, claims, invoices)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategorySchema), err.Error())
			assert.True(t, errors.IsCode(err, tt.wantCode), err.Error())
			reconcilerErr, _ := errors.AsReconcilerError(err)
			assert.Equal(t, tt.column, reconcilerErr.Context["column"])

			loaded, err := s.LoadClaims(ctx)
			require.NoError(t, err)
			assert.Empty(t, loaded, "nothing is written when a row is rejected")
		})
	}
}

func TestImportAcceptsTrailingZeroScale(t *testing.T) {
	s := openMemory(t)
	claims, invoices := dataset()
	claims[0].BenefitAmount = decimal.RequireFromString("150.500")

	_, err := s.ImportDataset(context.Background(), claims, invoices)
	assert.NoError(t, err)
}

func TestLoadRejectsInvalidStoredRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "claims.db")
	s, err := store.Open(&store.Config{Driver: store.DriverSQLite, DSN: path})
	require.NoError(t, err)
	defer s.Close()

	claims, invoices := dataset()
	_, err = s.ImportDataset(ctx, claims, invoices)
	require.NoError(t, err)

	// rows written by another tool bypass ImportDataset
	raw, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, raw.Create(&store.ClaimRow{
		ClaimID:       "C000003",
		DateOfService: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ChargesAmount: decimal.RequireFromString("10.00"),
		BenefitAmount: decimal.RequireFromString("10.00"),
		ClaimStatus:   "Bogus",
	}).Error)
	require.NoError(t, raw.Create(&store.InvoiceRow{
		InvoiceID:        "I0000004",
		ClaimID:          "C000003",
		TransactionValue: decimal.RequireFromString("10.00"),
		InvoiceDate:      time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		PaymentStatus:    "nope",
	}).Error)
	if db, err := raw.DB(); err == nil {
		db.Close()
	}

	_, err = s.LoadClaims(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidEnum))
	reconcilerErr, _ := errors.AsReconcilerError(err)
	assert.Equal(t, 3, reconcilerErr.Context["line"])
	assert.Equal(t, "database:sqlite/claims", reconcilerErr.Context["file"])

	_, err = s.LoadInvoices(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidEnum))

	_, err = reconciler.Reconcile(ctx, s, s)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategorySchema))
}

func TestStoreAsReconcilerSource(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	claims, invoices := dataset()
	_, err := s.ImportDataset(ctx, claims, invoices)
	require.NoError(t, err)

	result, err := reconciler.Reconcile(ctx, s, s)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.Equal(t, models.StatusBalanced, result.Records[0].ReconciliationStatus)
	assert.True(t, result.Records[0].TotalTransactionValue.Equal(decimal.RequireFromString("150.50")))
	assert.Equal(t, models.StatusUnderpaid, result.Records[1].ReconciliationStatus)
	assert.True(t, result.Records[1].Variance.Equal(decimal.RequireFromString("-100.00")))
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	summary := &models.Summary{
		TotalClaims:          2,
		Balanced:             1,
		BalancedPct:          50,
		Underpaid:            1,
		UnderpaidPct:         50,
		TotalOverpaidAmount:  decimal.Zero,
		TotalUnderpaidAmount: decimal.RequireFromString("100"),
		ClaimStatusCounts:    map[models.ClaimStatus]int{models.ClaimStatusApproved: 1, models.ClaimStatusPending: 0, models.ClaimStatusDenied: 1},
		TopProviders:         []models.ProviderStat{},
		InsuranceStats:       []models.InsuranceStat{},
	}

	first, err := s.SaveRun(ctx, summary, store.RunMeta{Trigger: "cli", ClaimsSource: "claims.csv", InvoicesSource: "invoices.csv", Duration: 1500 * time.Millisecond})
	require.NoError(t, err)
	_, err = uuid.Parse(first.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1500), first.DurationMS)

	time.Sleep(5 * time.Millisecond)
	second, err := s.SaveRun(ctx, summary, store.RunMeta{Trigger: "schedule"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err = s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	runs, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	got, err := s.GetRun(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cli", got.Trigger)

	decoded, err := got.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.TotalClaims)
	assert.Equal(t, 1, decoded.ClaimStatusCount(models.ClaimStatusDenied))
	assert.True(t, decoded.TotalUnderpaidAmount.Equal(decimal.RequireFromString("100")))

	missing, err := s.GetRun(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.SaveRun(ctx, nil, store.RunMeta{})
	assert.Error(t, err)
}
