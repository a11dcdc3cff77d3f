package parsers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
)

const claimsHeader = "claim_id,patient_id,date_of_service,charges_amount,benefit_amount,claim_status,provider_name,insurance_company\n"
const invoicesHeader = "invoice_id,claim_id,type_of_bill,transaction_value,invoice_date,payment_status,payment_method\n"

// Helper function to create temporary CSV file
func createTempCSVFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func requireCategory(t *testing.T, err error, category errors.ErrorCategory, code errors.ErrorCode) *errors.ReconcilerError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s/%s error, got nil", category, code)
	}
	reconcilerErr, ok := errors.AsReconcilerError(err)
	if !ok {
		t.Fatalf("expected ReconcilerError, got %T: %v", err, err)
	}
	if reconcilerErr.Category != category || reconcilerErr.Code != code {
		t.Fatalf("expected %s/%s, got %s/%s: %v", category, code, reconcilerErr.Category, reconcilerErr.Code, err)
	}
	return reconcilerErr
}

func TestDefaultParseConfig(t *testing.T) {
	config := DefaultParseConfig()

	if config.Delimiter != ',' {
		t.Errorf("Expected delimiter to be ',', got %q", config.Delimiter)
	}
	if !config.TrimLeadingSpace {
		t.Error("Expected TrimLeadingSpace to be true")
	}
	if !config.SkipEmptyRows {
		t.Error("Expected SkipEmptyRows to be true")
	}
	if !config.ValidateEncoding {
		t.Error("Expected ValidateEncoding to be true")
	}
}

func TestColumnConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *ClaimParserConfig
		wantErr bool
	}{
		{"default", DefaultClaimParserConfig(), false},
		{"alias", &ClaimParserConfig{ColumnConfig{Delimiter: ';', ColumnAliases: map[string]string{ColClaimID: "ClaimNumber"}}}, false},
		{"unknown column", &ClaimParserConfig{ColumnConfig{Delimiter: ',', ColumnAliases: map[string]string{"amount": "x"}}}, true},
		{"shared alias", &ClaimParserConfig{ColumnConfig{Delimiter: ',', ColumnAliases: map[string]string{ColClaimID: "id", ColPatientID: "ID"}}}, true},
		{"no delimiter", &ClaimParserConfig{ColumnConfig{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewClaimParser(tests[2].config); !errors.IsCategory(err, errors.CategoryConfiguration) {
		t.Errorf("expected configuration error from NewClaimParser, got %v", err)
	}
}

func TestClaimParser_ParseClaims(t *testing.T) {
	content := claimsHeader +
		"C000001,P0001,2024-03-15,1500.00,1200.50,Approved,City General Hospital,Aetna\n" +
		"C000002,P0001,2024-04-01,\"$2,000.00\",900,Pending,\"Dr. Sarah Johnson\",Cigna\n" +
		"\n" +
		"C000003,P0002,2024-05-20,300,0,Denied,St. Mary's Hospital,Humana\n"
	path := createTempCSVFile(t, content)

	parser, err := NewClaimParser(nil)
	if err != nil {
		t.Fatalf("NewClaimParser() error = %v", err)
	}

	claims, stats, err := parser.ParseClaims(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}

	if len(claims) != 3 {
		t.Fatalf("expected 3 claims, got %d", len(claims))
	}
	if stats.RecordsParsed != 3 {
		t.Errorf("expected 3 records parsed, got %d", stats.RecordsParsed)
	}

	ids := []string{claims[0].ClaimID, claims[1].ClaimID, claims[2].ClaimID}
	if strings.Join(ids, ",") != "C000001,C000002,C000003" {
		t.Errorf("expected file order, got %v", ids)
	}
	if !claims[1].ChargesAmount.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("expected currency formatted amount to parse, got %s", claims[1].ChargesAmount)
	}
	if claims[0].ClaimStatus != models.ClaimStatusApproved || claims[2].ClaimStatus != models.ClaimStatusDenied {
		t.Errorf("unexpected statuses %s, %s", claims[0].ClaimStatus, claims[2].ClaimStatus)
	}
	if claims[2].ProviderName != "St. Mary's Hospital" {
		t.Errorf("unexpected provider %q", claims[2].ProviderName)
	}
	if got := claims[0].DateOfService.Format(models.DateLayout); got != "2024-03-15" {
		t.Errorf("unexpected date %s", got)
	}
}

func TestClaimParser_ColumnAliases(t *testing.T) {
	content := "ClaimNumber;patient_id;date_of_service;charges_amount;benefit_amount;claim_status;provider_name;insurance_company\n" +
		"C9;P1;2024-01-01;10;10;Approved;A;B\n"
	path := createTempCSVFile(t, content)

	config := &ClaimParserConfig{ColumnConfig{Delimiter: ';', ColumnAliases: map[string]string{ColClaimID: "claimnumber"}}}
	parser, err := NewClaimParser(config)
	if err != nil {
		t.Fatalf("NewClaimParser() error = %v", err)
	}

	claims, _, err := parser.ParseClaims(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}
	if len(claims) != 1 || claims[0].ClaimID != "C9" {
		t.Errorf("expected aliased claim id, got %+v", claims)
	}
}

func TestClaimParser_Failures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		category errors.ErrorCategory
		code     errors.ErrorCode
		line     int
		column   string
	}{
		{
			name:     "missing column",
			content:  "claim_id,patient_id,date_of_service,charges_amount,claim_status,provider_name,insurance_company\n",
			category: errors.CategoryDataLoad,
			code:     errors.CodeMissingColumn,
		},
		{
			name:     "empty file",
			content:  "",
			category: errors.CategoryDataLoad,
			code:     errors.CodeEmptySource,
		},
		{
			name:     "ragged row",
			content:  claimsHeader + "C1,P1,2024-01-01,10,10,Approved\n",
			category: errors.CategoryDataLoad,
			code:     errors.CodeInvalidFormat,
		},
		{
			name:     "bad quoting",
			content:  claimsHeader + "C1,P1,2024-01-01,10,10,Approved,\"Open quote,Aetna\n",
			category: errors.CategoryDataLoad,
			code:     errors.CodeInvalidFormat,
		},
		{
			name: "bad amount",
			content: claimsHeader +
				"C1,P1,2024-01-01,10,10,Approved,A,B\n" +
				"C2,P1,2024-01-01,10,12.3.4,Approved,A,B\n",
			category: errors.CategorySchema,
			code:     errors.CodeInvalidAmount,
			line:     3,
			column:   ColBenefitAmount,
		},
		{
			name:     "bad date",
			content:  claimsHeader + "C1,P1,01/02/2024,10,10,Approved,A,B\n",
			category: errors.CategorySchema,
			code:     errors.CodeInvalidDate,
			line:     2,
			column:   ColDateOfService,
		},
		{
			name:     "unknown claim status",
			content:  claimsHeader + "C1,P1,2024-01-01,10,10,Rejected,A,B\n",
			category: errors.CategorySchema,
			code:     errors.CodeInvalidEnum,
			line:     2,
			column:   ColClaimStatus,
		},
		{
			name: "duplicate claim id",
			content: claimsHeader +
				"C1,P1,2024-01-01,10,10,Approved,A,B\n" +
				"C2,P1,2024-01-01,10,10,Approved,A,B\n" +
				"\n" +
				"C1,P2,2024-01-02,20,20,Denied,A,B\n",
			category: errors.CategorySchema,
			code:     errors.CodeDuplicateKey,
			line:     5,
			column:   ColClaimID,
		},
		{
			name:     "empty claim id",
			content:  claimsHeader + " ,P1,2024-01-01,10,10,Approved,A,B\n",
			category: errors.CategorySchema,
			code:     errors.CodeMissingField,
			line:     2,
			column:   ColClaimID,
		},
	}

	parser, err := NewClaimParser(nil)
	if err != nil {
		t.Fatalf("NewClaimParser() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, _, err := parser.ParseClaims(context.Background(), createTempCSVFile(t, tt.content))
			reconcilerErr := requireCategory(t, err, tt.category, tt.code)
			if claims != nil {
				t.Errorf("expected no claims on failure, got %d", len(claims))
			}
			if tt.line > 0 && reconcilerErr.Context["line"] != tt.line {
				t.Errorf("expected line %d, got %v", tt.line, reconcilerErr.Context["line"])
			}
			if tt.column != "" && reconcilerErr.Context["column"] != tt.column {
				t.Errorf("expected column %s, got %v", tt.column, reconcilerErr.Context["column"])
			}
		})
	}
}

func TestClaimParser_HeaderOnly(t *testing.T) {
	parser, _ := NewClaimParser(nil)
	claims, stats, err := parser.ParseClaims(context.Background(), createTempCSVFile(t, claimsHeader))
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}
	if len(claims) != 0 || stats.RecordsParsed != 0 {
		t.Errorf("expected no claims, got %d", len(claims))
	}
}

func TestClaimParser_BOMAndCase(t *testing.T) {
	content := "\ufeffCLAIM_ID,Patient_ID,date_of_service,charges_amount,benefit_amount,claim_status,provider_name,insurance_company\n" +
		"C1,P1,2024-01-01,10,10,Approved,A,B\n"
	parser, _ := NewClaimParser(nil)

	claims, _, err := parser.ParseClaims(context.Background(), createTempCSVFile(t, content))
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}
	if len(claims) != 1 || claims[0].ClaimID != "C1" || claims[0].PatientID != "P1" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestOpenFile_Errors(t *testing.T) {
	parser, _ := NewClaimParser(nil)

	_, _, err := parser.ParseClaims(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	requireCategory(t, err, errors.CategoryDataLoad, errors.CodeFileNotFound)

	_, _, err = parser.ParseClaims(context.Background(), t.TempDir())
	requireCategory(t, err, errors.CategoryDataLoad, errors.CodeFileCorrupted)

	invalid := createTempCSVFile(t, claimsHeader+"C1,P1,2024-01-01,10,10,Approved,\xff\xfe,B\n")
	_, _, err = parser.ParseClaims(context.Background(), invalid)
	requireCategory(t, err, errors.CategoryDataLoad, errors.CodeEncodingError)
}

func TestClaimParser_Cancelled(t *testing.T) {
	parser, _ := NewClaimParser(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := createTempCSVFile(t, claimsHeader+"C1,P1,2024-01-01,10,10,Approved,A,B\n")
	_, _, err := parser.ParseClaims(ctx, path)
	requireCategory(t, err, errors.CategoryInternal, errors.CodeCancelled)
}

func TestInvoiceParser_ParseInvoices(t *testing.T) {
	content := invoicesHeader +
		"I0000001,C000001,fee,250.00,2024-03-20,Paid,Check\n" +
		"I0000002,C000001,procedure payment,-75.25,2024-03-22,Overdue,Wire Transfer\n" +
		"I0000003,C000009,fee,0,2024-04-02,Pending,ACH\n"
	path := createTempCSVFile(t, content)

	parser, err := NewInvoiceParser(nil)
	if err != nil {
		t.Fatalf("NewInvoiceParser() error = %v", err)
	}

	invoices, stats, err := parser.ParseInvoices(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseInvoices() error = %v", err)
	}
	if len(invoices) != 3 || stats.RecordsParsed != 3 {
		t.Fatalf("expected 3 invoices, got %d", len(invoices))
	}
	if !invoices[1].TransactionValue.Equal(decimal.RequireFromString("-75.25")) {
		t.Errorf("expected negative value, got %s", invoices[1].TransactionValue)
	}
	if !invoices[2].TransactionValue.IsZero() {
		t.Errorf("expected zero value, got %s", invoices[2].TransactionValue)
	}
	if invoices[1].TypeOfBill != "procedure payment" || invoices[1].PaymentStatus != models.PaymentStatusOverdue {
		t.Errorf("unexpected invoice %+v", invoices[1])
	}
}

func TestInvoiceParser_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
		column  string
	}{
		{"bad value", invoicesHeader + "I1,C1,fee,abc,2024-01-01,Paid,ACH\n", errors.CodeInvalidAmount, ColTransactionValue},
		{"bad date", invoicesHeader + "I1,C1,fee,1,2024-02-30,Paid,ACH\n", errors.CodeInvalidDate, ColInvoiceDate},
		{"bad status", invoicesHeader + "I1,C1,fee,1,2024-01-01,Refunded,ACH\n", errors.CodeInvalidEnum, ColPaymentStatus},
		{"missing claim id", invoicesHeader + "I1,,fee,1,2024-01-01,Paid,ACH\n", errors.CodeMissingField, ColClaimID},
		{"duplicate invoice id", invoicesHeader + "I1,C1,fee,1,2024-01-01,Paid,ACH\nI1,C2,fee,2,2024-01-01,Paid,ACH\n", errors.CodeDuplicateKey, ColInvoiceID},
	}

	parser, _ := NewInvoiceParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parser.ParseInvoices(context.Background(), createTempCSVFile(t, tt.content))
			reconcilerErr := requireCategory(t, err, errors.CategorySchema, tt.code)
			if reconcilerErr.Context["column"] != tt.column {
				t.Errorf("expected column %s, got %v", tt.column, reconcilerErr.Context["column"])
			}
			if reconcilerErr.GetExitCode() != 3 {
				t.Errorf("expected schema exit code 3, got %d", reconcilerErr.GetExitCode())
			}
		})
	}
}

func TestParseContext_GetColumnIndex(t *testing.T) {
	parseCtx := NewParseContext(context.Background(), "x.csv")
	parseCtx.Headers = []string{"claim_id", "Amount"}
	parseCtx.HeaderMap = map[string]int{"claim_id": 0, "Amount": 1}

	tests := []struct {
		name     string
		expected int
	}{
		{"claim_id", 0},
		{"amount", 1},
		{"AMOUNT", 1},
		{"missing", -1},
	}
	for _, tt := range tests {
		if got := parseCtx.GetColumnIndex(tt.name); got != tt.expected {
			t.Errorf("GetColumnIndex(%q) = %d, want %d", tt.name, got, tt.expected)
		}
	}
}

func BenchmarkClaimParser_ParseClaims(b *testing.B) {
	var sb strings.Builder
	sb.WriteString(claimsHeader)
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&sb, "C%06d,P%04d,2024-01-01,1000.00,800.00,Approved,City General Hospital,Aetna\n", i, i%200)
	}
	path := filepath.Join(b.TempDir(), "claims.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		b.Fatal(err)
	}

	parser, _ := NewClaimParser(nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := parser.ParseClaims(context.Background(), path); err != nil {
			b.Fatal(err)
		}
	}
}
