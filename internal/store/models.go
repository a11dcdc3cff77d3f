package store

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"claims-reconciliation-service/internal/models"
)

// ClaimRow is the persisted form of a claim. ID preserves import order.
type ClaimRow struct {
	ID               uint               `gorm:"primarykey"`
	CreatedAt        time.Time          `gorm:"autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime"`
	ClaimID          string             `gorm:"type:varchar(64);uniqueIndex;not null"`
	PatientID        string             `gorm:"type:varchar(64);index"`
	DateOfService    time.Time          `gorm:"not null"`
	ChargesAmount    decimal.Decimal    `gorm:"type:decimal(15,2);not null"`
	BenefitAmount    decimal.Decimal    `gorm:"type:decimal(15,2);not null"`
	ClaimStatus      models.ClaimStatus `gorm:"type:varchar(16);not null"`
	ProviderName     string             `gorm:"type:varchar(255)"`
	InsuranceCompany string             `gorm:"type:varchar(255)"`
}

// TableName overrides the table name used by ClaimRow
func (ClaimRow) TableName() string {
	return "claims"
}

func claimRow(c models.Claim) ClaimRow {
	return ClaimRow{
		ClaimID:          c.ClaimID,
		PatientID:        c.PatientID,
		DateOfService:    c.DateOfService,
		ChargesAmount:    c.ChargesAmount,
		BenefitAmount:    c.BenefitAmount,
		ClaimStatus:      c.ClaimStatus,
		ProviderName:     c.ProviderName,
		InsuranceCompany: c.InsuranceCompany,
	}
}

// Claim converts the row back to the domain type
func (r ClaimRow) Claim() models.Claim {
	return models.Claim{
		ClaimID:          r.ClaimID,
		PatientID:        r.PatientID,
		DateOfService:    r.DateOfService.UTC(),
		ChargesAmount:    r.ChargesAmount,
		BenefitAmount:    r.BenefitAmount,
		ClaimStatus:      r.ClaimStatus,
		ProviderName:     r.ProviderName,
		InsuranceCompany: r.InsuranceCompany,
	}
}

// InvoiceRow is the persisted form of an invoice
type InvoiceRow struct {
	ID               uint                 `gorm:"primarykey"`
	CreatedAt        time.Time            `gorm:"autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"autoUpdateTime"`
	InvoiceID        string               `gorm:"type:varchar(64);uniqueIndex;not null"`
	ClaimID          string               `gorm:"type:varchar(64);index;not null"`
	TypeOfBill       string               `gorm:"type:varchar(64)"`
	TransactionValue decimal.Decimal      `gorm:"type:decimal(15,2);not null"`
	InvoiceDate      time.Time            `gorm:"not null"`
	PaymentStatus    models.PaymentStatus `gorm:"type:varchar(16);not null"`
	PaymentMethod    string               `gorm:"type:varchar(64)"`
}

// TableName overrides the table name used by InvoiceRow
func (InvoiceRow) TableName() string {
	return "invoices"
}

func invoiceRow(i models.Invoice) InvoiceRow {
	return InvoiceRow{
		InvoiceID:        i.InvoiceID,
		ClaimID:          i.ClaimID,
		TypeOfBill:       i.TypeOfBill,
		TransactionValue: i.TransactionValue,
		InvoiceDate:      i.InvoiceDate,
		PaymentStatus:    i.PaymentStatus,
		PaymentMethod:    i.PaymentMethod,
	}
}

// Invoice converts the row back to the domain type
func (r InvoiceRow) Invoice() models.Invoice {
	return models.Invoice{
		InvoiceID:        r.InvoiceID,
		ClaimID:          r.ClaimID,
		TypeOfBill:       r.TypeOfBill,
		TransactionValue: r.TransactionValue,
		InvoiceDate:      r.InvoiceDate.UTC(),
		PaymentStatus:    r.PaymentStatus,
		PaymentMethod:    r.PaymentMethod,
	}
}

// ReconciliationRun archives the outcome of one pipeline run
type ReconciliationRun struct {
	ID                   string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt            time.Time       `json:"created_at" gorm:"index"`
	Trigger              string          `json:"trigger" gorm:"type:varchar(32)"`
	ClaimsSource         string          `json:"claims_source" gorm:"type:varchar(512)"`
	InvoicesSource       string          `json:"invoices_source" gorm:"type:varchar(512)"`
	OutputPath           string          `json:"output_path,omitempty" gorm:"type:varchar(512)"`
	DurationMS           int64           `json:"duration_ms"`
	TotalClaims          int             `json:"total_claims"`
	Balanced             int             `json:"balanced"`
	Overpaid             int             `json:"overpaid"`
	Underpaid            int             `json:"underpaid"`
	TotalOverpaidAmount  decimal.Decimal `json:"total_overpaid_amount" gorm:"type:decimal(15,2)"`
	TotalUnderpaidAmount decimal.Decimal `json:"total_underpaid_amount" gorm:"type:decimal(15,2)"`
	SummaryJSON          string          `json:"-" gorm:"type:text"`
}

// TableName overrides the table name used by ReconciliationRun
func (ReconciliationRun) TableName() string {
	return "reconciliation_runs"
}

// Summary decodes the archived statistics
func (r *ReconciliationRun) Summary() (*models.Summary, error) {
	var summary models.Summary
	if err := json.Unmarshal([]byte(r.SummaryJSON), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// RunMeta describes where an archived run came from
type RunMeta struct {
	Trigger        string
	ClaimsSource   string
	InvoicesSource string
	OutputPath     string
	Duration       time.Duration
}
