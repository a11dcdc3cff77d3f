package parsers

import (
	"fmt"
	"strings"
)

// Standard column names of the claims file
const (
	ColClaimID          = "claim_id"
	ColPatientID        = "patient_id"
	ColDateOfService    = "date_of_service"
	ColChargesAmount    = "charges_amount"
	ColBenefitAmount    = "benefit_amount"
	ColClaimStatus      = "claim_status"
	ColProviderName     = "provider_name"
	ColInsuranceCompany = "insurance_company"
)

// Standard column names of the invoices file
const (
	ColInvoiceID        = "invoice_id"
	ColTypeOfBill       = "type_of_bill"
	ColTransactionValue = "transaction_value"
	ColInvoiceDate      = "invoice_date"
	ColPaymentStatus    = "payment_status"
	ColPaymentMethod    = "payment_method"
)

// ClaimColumns lists the claims header in file order
var ClaimColumns = []string{
	ColClaimID, ColPatientID, ColDateOfService, ColChargesAmount,
	ColBenefitAmount, ColClaimStatus, ColProviderName, ColInsuranceCompany,
}

// InvoiceColumns lists the invoices header in file order
var InvoiceColumns = []string{
	ColInvoiceID, ColClaimID, ColTypeOfBill, ColTransactionValue,
	ColInvoiceDate, ColPaymentStatus, ColPaymentMethod,
}

// ColumnConfig maps standard column names onto the headers found in a file
type ColumnConfig struct {
	Delimiter     rune              `json:"delimiter" mapstructure:"delimiter"`
	ColumnAliases map[string]string `json:"column_aliases,omitempty" mapstructure:"column_aliases"`
}

// GetColumnName returns the actual column name, checking aliases first
func (cc *ColumnConfig) GetColumnName(standardName string) string {
	if alias, exists := cc.ColumnAliases[standardName]; exists && strings.TrimSpace(alias) != "" {
		return alias
	}
	return standardName
}

func (cc *ColumnConfig) validate(standard []string) error {
	if cc.Delimiter == 0 || cc.Delimiter == '\n' || cc.Delimiter == '\r' || cc.Delimiter == '"' {
		return fmt.Errorf("invalid delimiter %q", cc.Delimiter)
	}

	known := make(map[string]bool, len(standard))
	for _, name := range standard {
		known[name] = true
	}
	seen := make(map[string]string)
	for std, alias := range cc.ColumnAliases {
		if !known[std] {
			return fmt.Errorf("alias for unknown column '%s'", std)
		}
		if other, dup := seen[strings.ToLower(alias)]; dup {
			return fmt.Errorf("columns '%s' and '%s' share the alias '%s'", other, std, alias)
		}
		seen[strings.ToLower(alias)] = std
	}
	return nil
}

func (cc *ColumnConfig) required(standard []string) []string {
	names := make([]string, len(standard))
	for i, name := range standard {
		names[i] = cc.GetColumnName(name)
	}
	return names
}

func (cc *ColumnConfig) parseConfig() *ParseConfig {
	config := DefaultParseConfig()
	config.Delimiter = cc.Delimiter
	return config
}

// ClaimParserConfig holds configuration for parsing claims files
type ClaimParserConfig struct {
	ColumnConfig `mapstructure:",squash"`
}

// Validate checks if the claim parser configuration is valid
func (c *ClaimParserConfig) Validate() error {
	return c.validate(ClaimColumns)
}

// DefaultClaimParserConfig returns the default claims layout
func DefaultClaimParserConfig() *ClaimParserConfig {
	return &ClaimParserConfig{ColumnConfig{Delimiter: ',', ColumnAliases: make(map[string]string)}}
}

// InvoiceParserConfig holds configuration for parsing invoices files
type InvoiceParserConfig struct {
	ColumnConfig `mapstructure:",squash"`
}

// Validate checks if the invoice parser configuration is valid
func (c *InvoiceParserConfig) Validate() error {
	return c.validate(InvoiceColumns)
}

// DefaultInvoiceParserConfig returns the default invoices layout
func DefaultInvoiceParserConfig() *InvoiceParserConfig {
	return &InvoiceParserConfig{ColumnConfig{Delimiter: ',', ColumnAliases: make(map[string]string)}}
}
