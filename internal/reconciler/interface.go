package reconciler

import (
	"context"

	"claims-reconciliation-service/internal/models"
)

// ClaimSource supplies the claims table in a stable order.
//
//go:generate mockgen -destination=mocks/mock_sources.go -source=interface.go
type ClaimSource interface {
	LoadClaims(ctx context.Context) ([]models.Claim, error)
}

// InvoiceSource supplies the invoices table in a stable order.
type InvoiceSource interface {
	LoadInvoices(ctx context.Context) ([]models.Invoice, error)
}

// ReportWriter renders a finished reconciliation to outputPath.
type ReportWriter interface {
	WriteReport(outputPath string, summary *models.Summary, records []models.ReconciliationRecord) error
}
