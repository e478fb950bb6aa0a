// Package metrics aggregates classified and aged invoices into the summary
// figures of a run.
package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"golang-ar-aging-service/internal/models"
)

var hundred = decimal.NewFromInt(100)

// BucketTotal is the outstanding balance of one aging bucket
type BucketTotal struct {
	Bucket     models.AgingBucket `json:"bucket"`
	Count      int                `json:"count"`
	Amount     decimal.Decimal    `json:"amount"`
	Percentage decimal.Decimal    `json:"percentage"`
}

// ReasonTotal is the excluded balance of one exclusion reason
type ReasonTotal struct {
	Reason string          `json:"reason"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Metrics holds the summary figures of one run. Every amount is a sum of
// parsed amounts; records with an unparseable amount add zero.
type Metrics struct {
	TotalRecords int `json:"total_records"`

	CollectibleARTotal     decimal.Decimal `json:"collectible_ar_total"`
	PaidCollectibleTotal   decimal.Decimal `json:"paid_collectible_total"`
	UnpaidCollectibleTotal decimal.Decimal `json:"unpaid_collectible_total"`
	UnknownAgingTotal      decimal.Decimal `json:"unknown_aging_total"`
	CollectionRate         decimal.Decimal `json:"collection_rate"`
	CollectionRateByCount  decimal.Decimal `json:"collection_rate_by_count"`

	CollectibleCount  int `json:"collectible_count"`
	PaidCount         int `json:"paid_count"`
	UnpaidCount       int `json:"unpaid_count"`
	UnknownAgingCount int `json:"unknown_aging_count"`
	OldestDaysPastDue int `json:"oldest_days_past_due"`

	BucketTotals map[models.AgingBucket]*BucketTotal `json:"bucket_totals"`

	ExcludedTotal    decimal.Decimal         `json:"excluded_total"`
	ExcludedCount    int                     `json:"excluded_count"`
	ExcludedByReason map[string]*ReasonTotal `json:"excluded_by_reason"`

	ParseWarningCount int `json:"parse_warning_count"`
}

// newMetrics returns zeroed metrics with every bucket present
func newMetrics() *Metrics {
	m := &Metrics{
		BucketTotals:     make(map[models.AgingBucket]*BucketTotal),
		ExcludedByReason: make(map[string]*ReasonTotal),
	}
	for _, b := range models.OrderedBuckets() {
		m.BucketTotals[b] = &BucketTotal{Bucket: b}
	}
	return m
}

// Aggregate computes the metrics of classified and aged records.
// parseWarnings is the number of unparseable values met while reading.
func Aggregate(records []*models.InvoiceRecord, parseWarnings int) *Metrics {
	m := newMetrics()
	m.TotalRecords = len(records)
	m.ParseWarningCount = parseWarnings

	for _, r := range records {
		amount := r.AmountOrZero()

		if r.IsExcluded() {
			m.ExcludedCount++
			m.ExcludedTotal = m.ExcludedTotal.Add(amount)
			rt, ok := m.ExcludedByReason[r.ExclusionReason]
			if !ok {
				rt = &ReasonTotal{Reason: r.ExclusionReason}
				m.ExcludedByReason[r.ExclusionReason] = rt
			}
			rt.Count++
			rt.Amount = rt.Amount.Add(amount)
			continue
		}

		if !r.IsCollectible() {
			continue
		}

		m.CollectibleCount++
		m.CollectibleARTotal = m.CollectibleARTotal.Add(amount)

		if r.IsPaid() {
			m.PaidCount++
			m.PaidCollectibleTotal = m.PaidCollectibleTotal.Add(amount)
			continue
		}

		m.UnpaidCount++
		m.UnpaidCollectibleTotal = m.UnpaidCollectibleTotal.Add(amount)

		if r.DaysPastDue == nil || r.AgingBucket == models.BucketUnknown {
			m.UnknownAgingCount++
			m.UnknownAgingTotal = m.UnknownAgingTotal.Add(amount)
			continue
		}

		bt, ok := m.BucketTotals[r.AgingBucket]
		if !ok {
			continue
		}
		bt.Count++
		bt.Amount = bt.Amount.Add(amount)

		if *r.DaysPastDue > m.OldestDaysPastDue {
			m.OldestDaysPastDue = *r.DaysPastDue
		}
	}

	m.CollectionRate = percentOf(m.PaidCollectibleTotal, m.CollectibleARTotal)
	m.CollectionRateByCount = percentOf(decimal.NewFromInt(int64(m.PaidCount)), decimal.NewFromInt(int64(m.CollectibleCount)))

	bucketSum := m.BucketSum()
	for _, bt := range m.BucketTotals {
		bt.Percentage = percentOf(bt.Amount, bucketSum)
	}

	return m
}

// percentOf returns part ÷ whole × 100, or zero when whole is zero
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// BucketSum is the outstanding balance with a known aging bucket
func (m *Metrics) BucketSum() decimal.Decimal {
	sum := decimal.Zero
	for _, bt := range m.BucketTotals {
		sum = sum.Add(bt.Amount)
	}
	return sum
}

// BucketCount is the number of outstanding invoices with a known aging bucket
func (m *Metrics) BucketCount() int {
	count := 0
	for _, bt := range m.BucketTotals {
		count += bt.Count
	}
	return count
}

// Buckets returns the bucket totals from youngest to oldest
func (m *Metrics) Buckets() []BucketTotal {
	out := make([]BucketTotal, 0, len(m.BucketTotals))
	for _, b := range models.OrderedBuckets() {
		if bt, ok := m.BucketTotals[b]; ok {
			out = append(out, *bt)
		}
	}
	return out
}

// Reasons returns the excluded totals ordered by amount, largest first
func (m *Metrics) Reasons() []ReasonTotal {
	out := make([]ReasonTotal, 0, len(m.ExcludedByReason))
	for _, rt := range m.ExcludedByReason {
		out = append(out, *rt)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// HighRiskBuckets returns the 61-90 and 90+ buckets that hold money
func (m *Metrics) HighRiskBuckets() []BucketTotal {
	var out []BucketTotal
	for _, bt := range m.Buckets() {
		if bt.Bucket.IsHighRisk() && bt.Amount.IsPositive() {
			out = append(out, bt)
		}
	}
	return out
}

// HasHighRisk reports whether any high-risk bucket holds money
func (m *Metrics) HasHighRisk() bool {
	return len(m.HighRiskBuckets()) > 0
}
