package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the on-disk format of every date column
const DateLayout = "2006-01-02"

// ClaimStatus is the adjudication state of a claim
type ClaimStatus string

const (
	ClaimStatusApproved ClaimStatus = "Approved"
	ClaimStatusPending  ClaimStatus = "Pending"
	ClaimStatusDenied   ClaimStatus = "Denied"
)

// ClaimStatuses lists the claim statuses in report order
var ClaimStatuses = []ClaimStatus{ClaimStatusApproved, ClaimStatusPending, ClaimStatusDenied}

// String returns the string representation of ClaimStatus
func (s ClaimStatus) String() string {
	return string(s)
}

// IsValid checks if the claim status is one of the known values
func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimStatusApproved, ClaimStatusPending, ClaimStatusDenied:
		return true
	}
	return false
}

// ParseClaimStatus parses a claim status; matching is exact after trimming
func ParseClaimStatus(s string) (ClaimStatus, error) {
	status := ClaimStatus(strings.TrimSpace(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid claim status '%s': must be Approved, Pending or Denied", s)
	}
	return status, nil
}

// PaymentStatus is the settlement state of an invoice
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusOverdue PaymentStatus = "Overdue"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid checks if the payment status is one of the known values
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusPending, PaymentStatusOverdue:
		return true
	}
	return false
}

// ParsePaymentStatus parses a payment status; matching is exact after trimming
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.TrimSpace(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid payment status '%s': must be Paid, Pending or Overdue", s)
	}
	return status, nil
}

// ReconciliationStatus classifies a claim by the sign of its variance
type ReconciliationStatus string

const (
	StatusBalanced  ReconciliationStatus = "BALANCED"
	StatusOverpaid  ReconciliationStatus = "OVERPAID"
	StatusUnderpaid ReconciliationStatus = "UNDERPAID"
)

// String returns the string representation of ReconciliationStatus
func (s ReconciliationStatus) String() string {
	return string(s)
}

// IsValid checks if the reconciliation status is one of the known values
func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case StatusBalanced, StatusOverpaid, StatusUnderpaid:
		return true
	}
	return false
}

// ParseReconciliationStatus accepts the status in any letter case
func ParseReconciliationStatus(s string) (ReconciliationStatus, error) {
	status := ReconciliationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid reconciliation status '%s': must be BALANCED, OVERPAID or UNDERPAID", s)
	}
	return status, nil
}

// ClassifyVariance maps variance = total - benefit onto a status.
// Zero is BALANCED; there is no tolerance.
func ClassifyVariance(variance decimal.Decimal) ReconciliationStatus {
	switch variance.Sign() {
	case 0:
		return StatusBalanced
	case 1:
		return StatusOverpaid
	default:
		return StatusUnderpaid
	}
}

// Claim is one insurer claim for a patient visit
type Claim struct {
	ClaimID          string          `json:"claim_id"`
	PatientID        string          `json:"patient_id"`
	DateOfService    time.Time       `json:"date_of_service"`
	ChargesAmount    decimal.Decimal `json:"charges_amount"`
	BenefitAmount    decimal.Decimal `json:"benefit_amount"`
	ClaimStatus      ClaimStatus     `json:"claim_status"`
	ProviderName     string          `json:"provider_name"`
	InsuranceCompany string          `json:"insurance_company"`
}

// Validate performs basic validation on the Claim
func (c *Claim) Validate() error {
	if strings.TrimSpace(c.ClaimID) == "" {
		return fmt.Errorf("claim ID cannot be empty")
	}
	if c.DateOfService.IsZero() {
		return fmt.Errorf("date of service cannot be zero")
	}
	if !c.ClaimStatus.IsValid() {
		return fmt.Errorf("invalid claim status: %s", c.ClaimStatus)
	}
	return nil
}

// String returns a string representation of the Claim
func (c *Claim) String() string {
	return fmt.Sprintf("Claim{ID: %s, Patient: %s, Benefit: %s, Status: %s}",
		c.ClaimID, c.PatientID, c.BenefitAmount.String(), c.ClaimStatus)
}

// MarshalJSON writes the service date as YYYY-MM-DD
func (c Claim) MarshalJSON() ([]byte, error) {
	type Alias Claim
	return json.Marshal(&struct {
		DateOfService string `json:"date_of_service"`
		Alias
	}{
		DateOfService: c.DateOfService.Format(DateLayout),
		Alias:         Alias(c),
	})
}

// UnmarshalJSON reads the service date as YYYY-MM-DD
func (c *Claim) UnmarshalJSON(data []byte) error {
	type Alias Claim
	aux := &struct {
		DateOfService string `json:"date_of_service"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	date, err := ParseDate(aux.DateOfService)
	if err != nil {
		return err
	}
	c.DateOfService = date
	return nil
}

// Invoice is one payment transaction recorded against a claim
type Invoice struct {
	InvoiceID        string          `json:"invoice_id"`
	ClaimID          string          `json:"claim_id"`
	TypeOfBill       string          `json:"type_of_bill"`
	TransactionValue decimal.Decimal `json:"transaction_value"`
	InvoiceDate      time.Time       `json:"invoice_date"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	PaymentMethod    string          `json:"payment_method"`
}

// Validate performs basic validation on the Invoice.
// Zero and negative transaction values are legitimate.
func (i *Invoice) Validate() error {
	if strings.TrimSpace(i.InvoiceID) == "" {
		return fmt.Errorf("invoice ID cannot be empty")
	}
	if strings.TrimSpace(i.ClaimID) == "" {
		return fmt.Errorf("invoice claim ID cannot be empty")
	}
	if !i.PaymentStatus.IsValid() {
		return fmt.Errorf("invalid payment status: %s", i.PaymentStatus)
	}
	return nil
}

// String returns a string representation of the Invoice
func (i *Invoice) String() string {
	return fmt.Sprintf("Invoice{ID: %s, Claim: %s, Value: %s, Status: %s}",
		i.InvoiceID, i.ClaimID, i.TransactionValue.String(), i.PaymentStatus)
}

// MarshalJSON writes the invoice date as YYYY-MM-DD
func (i Invoice) MarshalJSON() ([]byte, error) {
	type Alias Invoice
	return json.Marshal(&struct {
		InvoiceDate string `json:"invoice_date"`
		Alias
	}{
		InvoiceDate: i.InvoiceDate.Format(DateLayout),
		Alias:       Alias(i),
	})
}

// Patient is produced by the generator only
type Patient struct {
	PatientID     string `json:"patient_id"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	State         string `json:"state"`
	InsurancePlan string `json:"insurance_plan"`
}

// ReconciliationRecord is a claim joined with its invoice total
type ReconciliationRecord struct {
	Claim
	TotalTransactionValue decimal.Decimal      `json:"total_transaction_value"`
	Variance              decimal.Decimal      `json:"variance"`
	ReconciliationStatus  ReconciliationStatus `json:"reconciliation_status"`
}

// NewReconciliationRecord derives variance and status from the claim's
// benefit and the summed invoice total
func NewReconciliationRecord(claim Claim, total decimal.Decimal) ReconciliationRecord {
	variance := total.Sub(claim.BenefitAmount)
	return ReconciliationRecord{
		Claim:                 claim,
		TotalTransactionValue: total,
		Variance:              variance,
		ReconciliationStatus:  ClassifyVariance(variance),
	}
}

// MarshalJSON flattens the embedded claim next to the derived columns
func (r ReconciliationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ClaimID               string               `json:"claim_id"`
		PatientID             string               `json:"patient_id"`
		DateOfService         string               `json:"date_of_service"`
		ChargesAmount         decimal.Decimal      `json:"charges_amount"`
		BenefitAmount         decimal.Decimal      `json:"benefit_amount"`
		ClaimStatus           ClaimStatus          `json:"claim_status"`
		ProviderName          string               `json:"provider_name"`
		InsuranceCompany      string               `json:"insurance_company"`
		TotalTransactionValue decimal.Decimal      `json:"total_transaction_value"`
		Variance              decimal.Decimal      `json:"variance"`
		ReconciliationStatus  ReconciliationStatus `json:"reconciliation_status"`
	}{
		ClaimID:               r.ClaimID,
		PatientID:             r.PatientID,
		DateOfService:         r.DateOfService.Format(DateLayout),
		ChargesAmount:         r.ChargesAmount,
		BenefitAmount:         r.BenefitAmount,
		ClaimStatus:           r.ClaimStatus,
		ProviderName:          r.ProviderName,
		InsuranceCompany:      r.InsuranceCompany,
		TotalTransactionValue: r.TotalTransactionValue,
		Variance:              r.Variance,
		ReconciliationStatus:  r.ReconciliationStatus,
	})
}

// TopProviderLimit caps the provider ranking
const TopProviderLimit = 5

// ProviderStat is one row of the top providers ranking
type ProviderStat struct {
	ProviderName  string          `json:"provider_name"`
	Count         int             `json:"count"`
	TotalVariance decimal.Decimal `json:"total_variance"`
}

// InsuranceStat is one row of the insurer ranking
type InsuranceStat struct {
	InsuranceCompany string          `json:"insurance_company"`
	Count            int             `json:"count"`
	TotalVariance    decimal.Decimal `json:"total_variance"`
	AvgVariance      decimal.Decimal `json:"avg_variance"`
}

// Summary holds the statistics computed over a reconciliation
type Summary struct {
	TotalClaims          int                 `json:"total_claims"`
	Balanced             int                 `json:"balanced"`
	BalancedPct          float64             `json:"balanced_pct"`
	Overpaid             int                 `json:"overpaid"`
	OverpaidPct          float64             `json:"overpaid_pct"`
	Underpaid            int                 `json:"underpaid"`
	UnderpaidPct         float64             `json:"underpaid_pct"`
	TotalOverpaidAmount  decimal.Decimal     `json:"total_overpaid_amount"`
	TotalUnderpaidAmount decimal.Decimal     `json:"total_underpaid_amount"`
	ClaimStatusCounts    map[ClaimStatus]int `json:"claim_status_counts"`
	TopProviders         []ProviderStat      `json:"top_providers"`
	InsuranceStats       []InsuranceStat     `json:"insurance_stats"`
}

// ClaimStatusCount returns the count for a status, 0 when absent
func (s *Summary) ClaimStatusCount(status ClaimStatus) int {
	return s.ClaimStatusCounts[status]
}

// ParseAmount parses a decimal amount, tolerating a leading currency
// symbol and thousands separators
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	cleaned := strings.ReplaceAll(s, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}
	return d, nil
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s': %w", s, err)
	}
	return t, nil
}

// FormatAmount renders an amount with exactly two decimals
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
