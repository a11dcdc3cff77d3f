package store

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
)

// amountScale is the number of decimals the amount columns hold
const amountScale = 2

// validateClaim applies the row rules the CSV parsers enforce. Row numbers
// start at 1.
func validateClaim(source string, row int, c *models.Claim) error {
	if err := c.Validate(); err != nil {
		switch {
		case strings.TrimSpace(c.ClaimID) == "":
			return errors.SchemaError(errors.CodeMissingField, source, row, "claim_id", "", err)
		case c.DateOfService.IsZero():
			return errors.SchemaError(errors.CodeMissingField, source, row, "date_of_service", "", err)
		default:
			return errors.SchemaError(errors.CodeInvalidEnum, source, row, "claim_status", string(c.ClaimStatus), err)
		}
	}
	if err := checkScale(source, row, "charges_amount", c.ChargesAmount); err != nil {
		return err
	}
	return checkScale(source, row, "benefit_amount", c.BenefitAmount)
}

func validateInvoice(source string, row int, i *models.Invoice) error {
	if err := i.Validate(); err != nil {
		switch {
		case strings.TrimSpace(i.InvoiceID) == "":
			return errors.SchemaError(errors.CodeMissingField, source, row, "invoice_id", "", err)
		case strings.TrimSpace(i.ClaimID) == "":
			return errors.SchemaError(errors.CodeMissingField, source, row, "claim_id", "", err)
		default:
			return errors.SchemaError(errors.CodeInvalidEnum, source, row, "payment_status", string(i.PaymentStatus), err)
		}
	}
	return checkScale(source, row, "transaction_value", i.TransactionValue)
}

// checkScale rejects amounts the decimal(15,2) columns would round
func checkScale(source string, row int, column string, amount decimal.Decimal) error {
	if amount.Equal(amount.Round(amountScale)) {
		return nil
	}
	return errors.SchemaError(errors.CodeInvalidAmount, source, row, column, amount.String(),
		fmt.Errorf("more than %d decimal places", amountScale))
}
