package reporter

import (
	"embed"
	"html/template"
	"io"

	"claims-reconciliation-service/internal/models"
)

//go:embed templates/report.html
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html"))

type htmlStatusCount struct {
	Label string
	Count string
}

type htmlProvider struct {
	Name          string
	Count         string
	TotalVariance string
}

type htmlInsurer struct {
	Name          string
	Count         string
	TotalVariance string
	AvgVariance   string
}

type htmlRecord struct {
	ClaimID          string
	PatientID        string
	DateOfService    string
	Provider         string
	Insurer          string
	Charges          string
	Benefit          string
	Total            string
	ClaimStatus      string
	ClaimStatusClass string
	Status           string
	StatusClass      string
	Variance         string
}

// htmlView is the fully formatted page model. Every value is a string so the
// template only places text and html/template escapes all of it.
type htmlView struct {
	Title            string
	TotalClaims      string
	Balanced         string
	BalancedPct      string
	Overpaid         string
	OverpaidPct      string
	Underpaid        string
	UnderpaidPct     string
	TotalOverpaid    string
	TotalUnderpaid   string
	ClaimStatuses    []htmlStatusCount
	TopProviderLimit int
	TopProviders     []htmlProvider
	Insurers         []htmlInsurer
	Records          []htmlRecord
}

func (rg *ReportGenerator) renderHTML(w io.Writer, s *models.Summary, records []models.ReconciliationRecord) error {
	return reportTemplate.Execute(w, rg.buildView(s, records))
}

func (rg *ReportGenerator) buildView(s *models.Summary, records []models.ReconciliationRecord) htmlView {
	f := rg.formatter
	title := rg.config.Title
	if title == "" {
		title = DefaultTitle
	}

	view := htmlView{
		Title:            title,
		TotalClaims:      f.Count(s.TotalClaims),
		Balanced:         f.Count(s.Balanced),
		BalancedPct:      f.Percent(s.BalancedPct),
		Overpaid:         f.Count(s.Overpaid),
		OverpaidPct:      f.Percent(s.OverpaidPct),
		Underpaid:        f.Count(s.Underpaid),
		UnderpaidPct:     f.Percent(s.UnderpaidPct),
		TotalOverpaid:    f.Currency(s.TotalOverpaidAmount),
		TotalUnderpaid:   f.Currency(s.TotalUnderpaidAmount),
		TopProviderLimit: models.TopProviderLimit,
		ClaimStatuses:    make([]htmlStatusCount, 0, len(models.ClaimStatuses)),
		TopProviders:     make([]htmlProvider, 0, len(s.TopProviders)),
		Insurers:         make([]htmlInsurer, 0, len(s.InsuranceStats)),
		Records:          make([]htmlRecord, 0, len(records)),
	}

	for _, status := range models.ClaimStatuses {
		view.ClaimStatuses = append(view.ClaimStatuses, htmlStatusCount{
			Label: status.String(),
			Count: f.Count(s.ClaimStatusCount(status)),
		})
	}
	for _, p := range s.TopProviders {
		view.TopProviders = append(view.TopProviders, htmlProvider{
			Name:          p.ProviderName,
			Count:         f.Count(p.Count),
			TotalVariance: f.Currency(p.TotalVariance),
		})
	}
	for _, ins := range s.InsuranceStats {
		view.Insurers = append(view.Insurers, htmlInsurer{
			Name:          ins.InsuranceCompany,
			Count:         f.Count(ins.Count),
			TotalVariance: f.Currency(ins.TotalVariance),
			AvgVariance:   f.Currency(ins.AvgVariance),
		})
	}
	for _, r := range records {
		view.Records = append(view.Records, htmlRecord{
			ClaimID:          r.ClaimID,
			PatientID:        r.PatientID,
			DateOfService:    r.DateOfService.Format(models.DateLayout),
			Provider:         r.ProviderName,
			Insurer:          r.InsuranceCompany,
			Charges:          f.Currency(r.ChargesAmount),
			Benefit:          f.Currency(r.BenefitAmount),
			Total:            f.Currency(r.TotalTransactionValue),
			ClaimStatus:      r.ClaimStatus.String(),
			ClaimStatusClass: claimStatusClass(r.ClaimStatus),
			Status:           r.ReconciliationStatus.String(),
			StatusClass:      reconciliationStatusClass(r.ReconciliationStatus),
			Variance:         f.Currency(r.Variance),
		})
	}

	return view
}

func claimStatusClass(s models.ClaimStatus) string {
	switch s {
	case models.ClaimStatusApproved:
		return "status-balanced"
	case models.ClaimStatusDenied:
		return "status-overpaid"
	default:
		return "status-underpaid"
	}
}

func reconciliationStatusClass(s models.ReconciliationStatus) string {
	switch s {
	case models.StatusBalanced:
		return "status-balanced"
	case models.StatusOverpaid:
		return "status-overpaid"
	default:
		return "status-underpaid"
	}
}
