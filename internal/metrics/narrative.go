package metrics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"golang-ar-aging-service/internal/models"
)

func money(d decimal.Decimal) string {
	return models.FormatCurrency(d, 0)
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// Findings returns the key findings of the executive summary
func (m *Metrics) Findings() []string {
	if m.TotalRecords == 0 {
		return []string{"No invoices found in the input; all figures are zero"}
	}

	findings := []string{
		fmt.Sprintf("Collection Success: %s of collectible AR value has been collected (%d of %s paid)",
			percent(m.CollectionRate), m.PaidCount, plural(m.CollectibleCount, "invoice")),
		fmt.Sprintf("Outstanding AR: %s in collectible receivables across %s",
			money(m.UnpaidCollectibleTotal), plural(m.UnpaidCount, "unpaid invoice")),
	}

	if m.HasHighRisk() {
		for _, bt := range m.HighRiskBuckets() {
			findings = append(findings, fmt.Sprintf("High Risk: %s %s across %s",
				money(bt.Amount), bt.Bucket.Label(), plural(bt.Count, "invoice")))
		}
	} else if m.UnpaidCount > 0 {
		findings = append(findings, "Low Risk: no outstanding collectible AR is more than 60 days past due")
	}

	if m.ExcludedCount > 0 {
		findings = append(findings, fmt.Sprintf("Excluded Items: %s across %s categorized as non-collectible",
			money(m.ExcludedTotal), plural(m.ExcludedCount, "invoice")))
	}

	if m.UnknownAgingCount > 0 {
		findings = append(findings, fmt.Sprintf("Unknown Aging: %s (%s) have no usable due date",
			plural(m.UnknownAgingCount, "outstanding invoice"), money(m.UnknownAgingTotal)))
	}

	if m.ParseWarningCount > 0 {
		findings = append(findings, fmt.Sprintf("Data Quality: %s could not be parsed; see the Notes column",
			plural(m.ParseWarningCount, "value")))
	}

	return findings
}

// RecommendedActions returns the follow-up actions derived from the metrics
func (m *Metrics) RecommendedActions() []string {
	var actions []string

	over90 := m.BucketTotals[models.Bucket90Plus]
	if over90 != nil && over90.Amount.IsPositive() {
		actions = append(actions, fmt.Sprintf("FOCUS: Target %s over 90 days past due (%s)",
			plural(over90.Count, "invoice"), money(over90.Amount)))
	}

	late := m.BucketTotals[models.Bucket61To90]
	if late != nil && late.Amount.IsPositive() {
		actions = append(actions, fmt.Sprintf("ESCALATE: Chase %s 61-90 days past due (%s) before they pass 90 days",
			plural(late.Count, "invoice"), money(late.Amount)))
	}

	mid := m.BucketTotals[models.Bucket31To60]
	if mid != nil && mid.Amount.IsPositive() {
		actions = append(actions, fmt.Sprintf("PRIORITY: Follow up on %s in the 31-60 day bucket (%s)",
			plural(mid.Count, "invoice"), money(mid.Amount)))
	}

	current := m.BucketTotals[models.BucketCurrent]
	if m.BucketCount() > 0 && current != nil && current.Count == 0 {
		actions = append(actions, "INVESTIGATE: No current AR; every outstanding invoice is past due")
	}

	if m.OldestDaysPastDue > 90 {
		actions = append(actions, fmt.Sprintf("ESCALATE: Oldest outstanding invoice (%d days) may require legal action",
			m.OldestDaysPastDue))
	}

	if m.UnknownAgingCount > 0 {
		actions = append(actions, fmt.Sprintf("DATA: Add due dates for %s so they can be aged",
			plural(m.UnknownAgingCount, "invoice")))
	}

	if m.CollectibleCount > 0 && m.CollectionRate.LessThan(hundred) {
		actions = append(actions, fmt.Sprintf("PROCESS: Review the collection process; %s of collectible AR value remains uncollected",
			percent(hundred.Sub(m.CollectionRate))))
	}

	if len(actions) == 0 {
		actions = append(actions, "No action required: there is no outstanding collectible AR")
	}

	return actions
}
