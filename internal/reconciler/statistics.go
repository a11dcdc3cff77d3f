package reconciler

import (
	"github.com/shopspring/decimal"

	"claims-reconciliation-service/internal/aggregate"
	"claims-reconciliation-service/internal/models"
)

// reconcile sums invoices per claim and left-joins the totals onto claims.
// Claims without invoices get a total of zero; invoices for unknown claims
// are dropped. Output order follows claims.
func reconcile(claims []models.Claim, invoices []models.Invoice) []models.ReconciliationRecord {
	totals := aggregate.SumBy(invoices,
		func(inv models.Invoice) string { return inv.ClaimID },
		func(inv models.Invoice) decimal.Decimal { return inv.TransactionValue })

	records := make([]models.ReconciliationRecord, len(claims))
	for i, claim := range claims {
		records[i] = models.NewReconciliationRecord(claim, totals.SumOr(claim.ClaimID, decimal.Zero))
	}
	return records
}

// summarize computes the statistics over reconciled records
func summarize(records []models.ReconciliationRecord) *models.Summary {
	summary := &models.Summary{
		TotalClaims:          len(records),
		TotalOverpaidAmount:  decimal.Zero,
		TotalUnderpaidAmount: decimal.Zero,
		ClaimStatusCounts:    make(map[models.ClaimStatus]int, len(models.ClaimStatuses)),
		TopProviders:         []models.ProviderStat{},
		InsuranceStats:       []models.InsuranceStat{},
	}
	for _, status := range models.ClaimStatuses {
		summary.ClaimStatusCounts[status] = 0
	}

	underpaid := decimal.Zero
	providers := aggregate.NewGroups()
	insurers := aggregate.NewGroups()

	for _, record := range records {
		switch record.ReconciliationStatus {
		case models.StatusBalanced:
			summary.Balanced++
		case models.StatusOverpaid:
			summary.Overpaid++
			summary.TotalOverpaidAmount = summary.TotalOverpaidAmount.Add(record.Variance)
		case models.StatusUnderpaid:
			summary.Underpaid++
			underpaid = underpaid.Add(record.Variance)
		}
		summary.ClaimStatusCounts[record.ClaimStatus]++
		providers.Add(record.ProviderName, record.Variance)
		insurers.Add(record.InsuranceCompany, record.Variance)
	}
	summary.TotalUnderpaidAmount = underpaid.Abs()

	summary.BalancedPct = percentage(summary.Balanced, summary.TotalClaims)
	summary.OverpaidPct = percentage(summary.Overpaid, summary.TotalClaims)
	summary.UnderpaidPct = percentage(summary.Underpaid, summary.TotalClaims)

	for _, g := range aggregate.Top(aggregate.SortByTotalDesc(providers.All()), models.TopProviderLimit) {
		summary.TopProviders = append(summary.TopProviders, models.ProviderStat{
			ProviderName:  g.Key,
			Count:         g.Count,
			TotalVariance: g.Sum,
		})
	}

	for _, g := range aggregate.SortByTotalDesc(insurers.All()) {
		summary.InsuranceStats = append(summary.InsuranceStats, models.InsuranceStat{
			InsuranceCompany: g.Key,
			Count:            g.Count,
			TotalVariance:    g.Sum,
			AvgVariance:      g.Mean(),
		})
	}

	return summary
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
