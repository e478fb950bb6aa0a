package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"golang-ar-aging-service/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rec(category models.Category, amount string, paid bool, days *int, bucket models.AgingBucket) *models.InvoiceRecord {
	r := &models.InvoiceRecord{Category: category, DaysPastDue: days, AgingBucket: bucket}
	if amount != "" {
		r.Amount = decimal.NewNullDecimal(d(amount))
	}
	if paid {
		p := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		r.PaymentDate = &p
	}
	if category == models.CategoryExcluded {
		r.ExclusionReason = "wire fee — excluded from AR"
	}
	return r
}

func days(n int) *int {
	return &n
}

func TestAggregate_Empty(t *testing.T) {
	m := Aggregate(nil, 0)

	if !m.CollectibleARTotal.IsZero() || !m.CollectionRate.IsZero() || !m.ExcludedTotal.IsZero() {
		t.Errorf("Expected zero totals, got %+v", m)
	}
	if len(m.BucketTotals) != 5 {
		t.Fatalf("Expected all 5 buckets present, got %d", len(m.BucketTotals))
	}
	for _, bt := range m.Buckets() {
		if bt.Count != 0 || !bt.Amount.IsZero() || !bt.Percentage.IsZero() {
			t.Errorf("Expected zeroed bucket %s, got %+v", bt.Bucket, bt)
		}
	}
	if m.HasHighRisk() {
		t.Error("Expected no high risk on empty input")
	}
	if len(m.Findings()) != 1 || len(m.RecommendedActions()) != 1 {
		t.Errorf("Expected single placeholder lines, got %v / %v", m.Findings(), m.RecommendedActions())
	}
}

func TestAggregate_Totals(t *testing.T) {
	records := []*models.InvoiceRecord{
		rec(models.CategoryCollectible, "1000", true, days(0), models.BucketCurrent),
		rec(models.CategoryCollectible, "500", false, days(45), models.Bucket31To60),
		rec(models.CategoryCollectible, "300", false, days(95), models.Bucket90Plus),
		rec(models.CategoryCollectible, "200", false, days(3), models.Bucket1To30),
		rec(models.CategoryCollectible, "250", false, nil, models.BucketUnknown),
		rec(models.CategoryCollectible, "", false, days(10), models.Bucket1To30),
		rec(models.CategoryExcluded, "75", false, nil, ""),
		rec(models.CategoryExcluded, "40", true, nil, ""),
	}

	m := Aggregate(records, 2)

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"collectible total", m.CollectibleARTotal, "2250"},
		{"paid total", m.PaidCollectibleTotal, "1000"},
		{"unpaid total", m.UnpaidCollectibleTotal, "1250"},
		{"unknown total", m.UnknownAgingTotal, "250"},
		{"excluded total", m.ExcludedTotal, "115"},
		{"bucket sum", m.BucketSum(), "1000"},
		{"1-30 amount", m.BucketTotals[models.Bucket1To30].Amount, "200"},
		{"31-60 percentage", m.BucketTotals[models.Bucket31To60].Percentage, "50"},
		{"90+ percentage", m.BucketTotals[models.Bucket90Plus].Percentage, "30"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, c.got)
		}
	}

	if got := m.CollectionRate.StringFixed(2); got != "44.44" {
		t.Errorf("Expected amount-based collection rate 44.44, got %s", got)
	}
	if got := m.CollectionRateByCount.StringFixed(2); got != "16.67" {
		t.Errorf("Expected count-based collection rate 16.67, got %s", got)
	}

	if m.CollectibleCount != 6 || m.PaidCount != 1 || m.UnpaidCount != 5 || m.UnknownAgingCount != 1 {
		t.Errorf("Unexpected counts: %+v", m)
	}
	if m.BucketTotals[models.Bucket1To30].Count != 2 {
		t.Errorf("Expected invalid amount counted in its bucket, got %d", m.BucketTotals[models.Bucket1To30].Count)
	}
	if m.BucketTotals[models.BucketCurrent].Count != 0 {
		t.Error("Expected paid records to stay out of the buckets")
	}
	if m.ExcludedCount != 2 || m.ExcludedByReason["wire fee — excluded from AR"].Count != 2 {
		t.Errorf("Unexpected excluded counts: %d %v", m.ExcludedCount, m.ExcludedByReason)
	}
	if m.OldestDaysPastDue != 95 {
		t.Errorf("Expected oldest 95 days, got %d", m.OldestDaysPastDue)
	}
	if m.ParseWarningCount != 2 {
		t.Errorf("Expected 2 parse warnings, got %d", m.ParseWarningCount)
	}
}

func TestAggregate_BucketConservation(t *testing.T) {
	records := []*models.InvoiceRecord{
		rec(models.CategoryCollectible, "123.45", false, days(0), models.BucketCurrent),
		rec(models.CategoryCollectible, "0.55", false, days(61), models.Bucket61To90),
		rec(models.CategoryCollectible, "1000", false, days(200), models.Bucket90Plus),
		rec(models.CategoryCollectible, "800", true, days(40), models.Bucket31To60),
		rec(models.CategoryCollectible, "99", false, nil, models.BucketUnknown),
	}

	m := Aggregate(records, 0)

	expected := decimal.Zero
	for _, r := range records {
		if r.IsCollectible() && !r.IsPaid() && r.AgingBucket != models.BucketUnknown {
			expected = expected.Add(r.AmountOrZero())
		}
	}
	if !m.BucketSum().Equal(expected) {
		t.Errorf("Bucket sum %s does not equal unpaid dated total %s", m.BucketSum(), expected)
	}

	total := decimal.Zero
	for _, bt := range m.Buckets() {
		total = total.Add(bt.Percentage)
	}
	if total.Sub(hundred).Abs().GreaterThan(d("0.000001")) {
		t.Errorf("Expected bucket percentages to sum to 100, got %s", total)
	}

	if m.CollectionRate.IsNegative() || m.CollectionRate.GreaterThan(hundred) {
		t.Errorf("Collection rate out of range: %s", m.CollectionRate)
	}
}

func TestAggregate_FullyPaid(t *testing.T) {
	m := Aggregate([]*models.InvoiceRecord{
		rec(models.CategoryCollectible, "100.50", true, days(0), models.BucketCurrent),
	}, 0)

	if !m.CollectionRate.Equal(hundred) {
		t.Errorf("Expected 100%% collection rate, got %s", m.CollectionRate)
	}
	if !m.BucketSum().IsZero() {
		t.Error("Expected no outstanding buckets")
	}

	actions := m.RecommendedActions()
	if len(actions) != 1 || !strings.HasPrefix(actions[0], "No action required") {
		t.Errorf("Expected no-action line, got %v", actions)
	}
}

func TestHighRiskFindings(t *testing.T) {
	m := Aggregate([]*models.InvoiceRecord{
		rec(models.CategoryCollectible, "400", false, days(70), models.Bucket61To90),
		rec(models.CategoryCollectible, "600", false, days(120), models.Bucket90Plus),
		rec(models.CategoryCollectible, "50", false, nil, models.BucketUnknown),
		rec(models.CategoryExcluded, "75", false, nil, ""),
	}, 1)

	risk := m.HighRiskBuckets()
	if len(risk) != 2 || risk[0].Bucket != models.Bucket61To90 || risk[1].Bucket != models.Bucket90Plus {
		t.Fatalf("Expected both high-risk buckets, got %v", risk)
	}

	findings := strings.Join(m.Findings(), "\n")
	for _, want := range []string{
		"High Risk: $400 61-90 Days Past Due across 1 invoice",
		"High Risk: $600 Over 90 Days Past Due across 1 invoice",
		"Excluded Items: $75 across 1 invoice",
		"Unknown Aging: 1 outstanding invoice ($50)",
		"Data Quality: 1 value could not be parsed",
	} {
		if !strings.Contains(findings, want) {
			t.Errorf("Expected finding %q in:\n%s", want, findings)
		}
	}

	actions := strings.Join(m.RecommendedActions(), "\n")
	for _, want := range []string{
		"FOCUS: Target 1 invoice over 90 days past due ($600)",
		"ESCALATE: Chase 1 invoice 61-90 days past due ($400)",
		"INVESTIGATE: No current AR",
		"Oldest outstanding invoice (120 days)",
		"DATA: Add due dates for 1 invoice",
		"PROCESS: Review the collection process; 100.0% of collectible AR value remains uncollected",
	} {
		if !strings.Contains(actions, want) {
			t.Errorf("Expected action %q in:\n%s", want, actions)
		}
	}
}

func TestZeroAmountBucketIsNotRisk(t *testing.T) {
	m := Aggregate([]*models.InvoiceRecord{
		rec(models.CategoryCollectible, "0", false, days(100), models.Bucket90Plus),
	}, 0)

	if m.HasHighRisk() {
		t.Error("Expected a zero-amount bucket not to be a risk")
	}
	if findings := strings.Join(m.Findings(), "\n"); !strings.Contains(findings, "Low Risk: no outstanding collectible AR") {
		t.Errorf("Expected low risk finding, got:\n%s", findings)
	}
	if m.BucketTotals[models.Bucket90Plus].Count != 1 {
		t.Error("Expected the record to be counted")
	}
}

func TestReasonsOrdered(t *testing.T) {
	a := rec(models.CategoryExcluded, "10", false, nil, "")
	b := rec(models.CategoryExcluded, "500", false, nil, "")
	b.ExclusionReason = "tax withholding — excluded from AR"

	reasons := Aggregate([]*models.InvoiceRecord{a, b}, 0).Reasons()
	if len(reasons) != 2 || reasons[0].Reason != "tax withholding — excluded from AR" {
		t.Errorf("Expected largest reason first, got %v", reasons)
	}
}
