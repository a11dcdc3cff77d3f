// Package generator synthesizes a patients, claims and invoices dataset to
// exercise the reconciliation end to end.
//
// Output is reproducible: the same Config (including Seed and Now) always
// yields the same rows.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/logger"
)

// Defaults match the reference dataset shape
const (
	DefaultPatients            = 200
	DefaultMinClaimsPerPatient = 2
	DefaultMaxClaimsPerPatient = 20
	DefaultMinInvoicesPerClaim = 1
	DefaultMaxInvoicesPerClaim = 5

	serviceWindowDays = 730
	maxInvoiceLagDays = 60
	zeroInvoiceRate   = 0.05
)

var (
	usStates = []string{
		"CA", "TX", "FL", "NY", "PA", "IL", "OH", "GA", "NC", "MI",
		"NJ", "VA", "WA", "AZ", "MA", "TN", "IN", "MO", "MD", "WI",
	}

	insurancePlans = []string{"Gold Plan", "Silver Plan", "Bronze Plan", "PPO", "HMO", "EPO"}

	providers = []string{
		"City General Hospital", "Memorial Medical Center", "St. Mary's Hospital",
		"Dr. Sarah Johnson", "Dr. Michael Chen", "Dr. Emily Rodriguez",
		"HealthCare Clinic", "Urgent Care Center", "Primary Care Associates",
	}

	insuranceCompanies = []string{
		"BlueCross BlueShield", "United Healthcare", "Aetna",
		"Cigna", "Humana", "Kaiser Permanente",
	}

	billTypes = []string{"fee", "procedure payment"}

	paymentMethods = []string{"Check", "ACH", "Wire Transfer", "Credit Card", "Electronic Payment"}

	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
		"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
		"Thomas", "Sarah", "Carlos", "Karen", "Daniel", "Lisa", "Wei", "Nancy",
	}

	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas",
		"Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson", "White",
	}

	claimStatusWeights = []weighted[models.ClaimStatus]{
		{models.ClaimStatusApproved, 0.70},
		{models.ClaimStatusPending, 0.20},
		{models.ClaimStatusDenied, 0.10},
	}

	paymentStatusWeights = []weighted[models.PaymentStatus]{
		{models.PaymentStatusPaid, 0.70},
		{models.PaymentStatusPending, 0.20},
		{models.PaymentStatusOverdue, 0.10},
	}
)

// Config controls the size and randomness of a generated dataset
type Config struct {
	Patients            int   `mapstructure:"patients"`
	MinClaimsPerPatient int   `mapstructure:"min_claims_per_patient"`
	MaxClaimsPerPatient int   `mapstructure:"max_claims_per_patient"`
	MinInvoicesPerClaim int   `mapstructure:"min_invoices_per_claim"`
	MaxInvoicesPerClaim int   `mapstructure:"max_invoices_per_claim"`
	Seed                int64 `mapstructure:"seed"`

	// Now anchors the service date window; zero means the current day
	Now time.Time `mapstructure:"-"`
}

// DefaultConfig returns the reference dataset configuration
func DefaultConfig() *Config {
	return &Config{
		Patients:            DefaultPatients,
		MinClaimsPerPatient: DefaultMinClaimsPerPatient,
		MaxClaimsPerPatient: DefaultMaxClaimsPerPatient,
		MinInvoicesPerClaim: DefaultMinInvoicesPerClaim,
		MaxInvoicesPerClaim: DefaultMaxInvoicesPerClaim,
		Seed:                time.Now().UnixNano(),
	}
}

// Validate checks the configured ranges
func (c *Config) Validate() error {
	if c.Patients < 0 {
		return fmt.Errorf("patients must be non-negative, got %d", c.Patients)
	}
	if c.MinClaimsPerPatient < 0 || c.MaxClaimsPerPatient < c.MinClaimsPerPatient {
		return fmt.Errorf("invalid claims per patient range [%d, %d]", c.MinClaimsPerPatient, c.MaxClaimsPerPatient)
	}
	if c.MinInvoicesPerClaim < 0 || c.MaxInvoicesPerClaim < c.MinInvoicesPerClaim {
		return fmt.Errorf("invalid invoices per claim range [%d, %d]", c.MinInvoicesPerClaim, c.MaxInvoicesPerClaim)
	}
	return nil
}

// Dataset is one generated set of tables
type Dataset struct {
	Patients []models.Patient
	Claims   []models.Claim
	Invoices []models.Invoice
}

// Generator produces datasets from a seeded source
type Generator struct {
	config *Config
	rng    *rand.Rand
	today  time.Time
	logger logger.Logger
}

// New creates a generator. A nil config uses DefaultConfig.
func New(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	now := config.Now
	if now.IsZero() {
		now = time.Now()
	}

	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		today:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		logger: logger.GetGlobalLogger().WithComponent("generator"),
	}, nil
}

// sequence returns a closure handing out prefix + zero-padded counter ids
func sequence(prefix string, width int) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%0*d", prefix, width, n)
	}
}

// Generate builds patients, then claims per patient, then invoices per claim
func (g *Generator) Generate() *Dataset {
	ds := &Dataset{}
	nextPatient := sequence("P", 4)
	nextClaim := sequence("C", 6)
	nextInvoice := sequence("I", 7)

	for i := 0; i < g.config.Patients; i++ {
		ds.Patients = append(ds.Patients, g.patient(nextPatient()))
	}

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "generate_claims",
		Total:     int64(len(ds.Patients)),
		Logger:    g.logger,
	})
	for _, p := range ds.Patients {
		n := g.between(g.config.MinClaimsPerPatient, g.config.MaxClaimsPerPatient)
		for j := 0; j < n; j++ {
			ds.Claims = append(ds.Claims, g.claim(nextClaim(), p.PatientID))
		}
		tracker.Increment()
	}
	tracker.Complete()

	for _, c := range ds.Claims {
		n := g.between(g.config.MinInvoicesPerClaim, g.config.MaxInvoicesPerClaim)
		for j := 0; j < n; j++ {
			ds.Invoices = append(ds.Invoices, g.invoice(nextInvoice(), c))
		}
	}

	g.logger.WithFields(logger.Fields{
		"patients": len(ds.Patients),
		"claims":   len(ds.Claims),
		"invoices": len(ds.Invoices),
		"seed":     g.config.Seed,
	}).Info("Dataset generated")
	return ds
}

func (g *Generator) patient(id string) models.Patient {
	return models.Patient{
		PatientID:     id,
		Name:          pick(g.rng, firstNames) + " " + pick(g.rng, lastNames),
		Age:           g.between(18, 90),
		State:         pick(g.rng, usStates),
		InsurancePlan: pick(g.rng, insurancePlans),
	}
}

func (g *Generator) claim(id, patientID string) models.Claim {
	serviceDate := g.today.AddDate(0, 0, -g.between(0, serviceWindowDays))
	charges := g.uniform(100, 5000)
	benefit := charges.Mul(decimal.NewFromFloat(0.5 + g.rng.Float64()*0.5)).Round(2)

	return models.Claim{
		ClaimID:          id,
		PatientID:        patientID,
		DateOfService:    serviceDate,
		ChargesAmount:    charges,
		BenefitAmount:    benefit,
		ClaimStatus:      choose(g.rng, claimStatusWeights),
		ProviderName:     pick(g.rng, providers),
		InsuranceCompany: pick(g.rng, insuranceCompanies),
	}
}

func (g *Generator) invoice(id string, c models.Claim) models.Invoice {
	billType := pick(g.rng, billTypes)
	value := g.uniform(-500, 2000)
	if g.rng.Float64() < zeroInvoiceRate {
		value = decimal.Zero
	}

	return models.Invoice{
		InvoiceID:        id,
		ClaimID:          c.ClaimID,
		TypeOfBill:       billType,
		TransactionValue: value,
		InvoiceDate:      c.DateOfService.AddDate(0, 0, g.between(1, maxInvoiceLagDays)),
		PaymentStatus:    choose(g.rng, paymentStatusWeights),
		PaymentMethod:    pick(g.rng, paymentMethods),
	}
}

// between returns an int in [lo, hi]
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

// uniform returns an amount in [lo, hi] rounded to cents
func (g *Generator) uniform(lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(lo + g.rng.Float64()*(hi-lo)).Round(2)
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

type weighted[T any] struct {
	value  T
	weight float64
}

func choose[T any](rng *rand.Rand, options []weighted[T]) T {
	total := 0.0
	for _, o := range options {
		total += o.weight
	}
	r := rng.Float64() * total
	for _, o := range options {
		if r < o.weight {
			return o.value
		}
		r -= o.weight
	}
	return options[len(options)-1].value
}
