package reconciler

import (
	"context"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/parsers"
)

// CSVClaimSource reads claims from a CSV file
type CSVClaimSource struct {
	Path   string
	Config *parsers.ClaimParserConfig
}

// LoadClaims parses the claims file
func (s *CSVClaimSource) LoadClaims(ctx context.Context) ([]models.Claim, error) {
	parser, err := parsers.NewClaimParser(s.Config)
	if err != nil {
		return nil, err
	}
	claims, _, err := parser.ParseClaims(ctx, s.Path)
	return claims, err
}

// String names the source in logs and errors
func (s *CSVClaimSource) String() string {
	return s.Path
}

// CSVInvoiceSource reads invoices from a CSV file
type CSVInvoiceSource struct {
	Path   string
	Config *parsers.InvoiceParserConfig
}

// LoadInvoices parses the invoices file
func (s *CSVInvoiceSource) LoadInvoices(ctx context.Context) ([]models.Invoice, error) {
	parser, err := parsers.NewInvoiceParser(s.Config)
	if err != nil {
		return nil, err
	}
	invoices, _, err := parser.ParseInvoices(ctx, s.Path)
	return invoices, err
}

// String names the source in logs and errors
func (s *CSVInvoiceSource) String() string {
	return s.Path
}
