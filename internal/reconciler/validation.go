package reconciler

import (
	"fmt"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
)

const maxOrphanSamples = 10

// Diagnostics describes the loaded dataset beyond what the summary reports
type Diagnostics struct {
	ClaimCount            int      `json:"claim_count"`
	InvoiceCount          int      `json:"invoice_count"`
	OrphanInvoices        int      `json:"orphan_invoices"`
	OrphanInvoiceSamples  []string `json:"orphan_invoice_samples,omitempty"`
	ClaimsWithoutInvoices int      `json:"claims_without_invoices"`
	ZeroValueInvoices     int      `json:"zero_value_invoices"`
}

// validateDataset enforces unique keys and collects diagnostics. Rows are
// numbered from 1 in source order; a header line, if any, is not counted.
func validateDataset(claimSource string, claims []models.Claim, invoiceSource string, invoices []models.Invoice) (Diagnostics, error) {
	diag := Diagnostics{ClaimCount: len(claims), InvoiceCount: len(invoices)}

	claimRows := make(map[string]int, len(claims))
	for i, claim := range claims {
		if first, dup := claimRows[claim.ClaimID]; dup {
			return diag, errors.SchemaError(errors.CodeDuplicateKey, claimSource, i+1, "claim_id", claim.ClaimID,
				fmt.Errorf("first seen at row %d", first))
		}
		claimRows[claim.ClaimID] = i + 1
	}

	invoiceRows := make(map[string]int, len(invoices))
	invoiced := make(map[string]bool, len(claims))
	for i, invoice := range invoices {
		if first, dup := invoiceRows[invoice.InvoiceID]; dup {
			return diag, errors.SchemaError(errors.CodeDuplicateKey, invoiceSource, i+1, "invoice_id", invoice.InvoiceID,
				fmt.Errorf("first seen at row %d", first))
		}
		invoiceRows[invoice.InvoiceID] = i + 1

		if invoice.TransactionValue.IsZero() {
			diag.ZeroValueInvoices++
		}
		if _, known := claimRows[invoice.ClaimID]; !known {
			diag.OrphanInvoices++
			if len(diag.OrphanInvoiceSamples) < maxOrphanSamples {
				diag.OrphanInvoiceSamples = append(diag.OrphanInvoiceSamples, invoice.InvoiceID)
			}
			continue
		}
		invoiced[invoice.ClaimID] = true
	}

	diag.ClaimsWithoutInvoices = len(claimRows) - len(invoiced)
	return diag, nil
}
