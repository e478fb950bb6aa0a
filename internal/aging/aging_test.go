package aging

import (
	"testing"
	"time"

	"golang-ar-aging-service/internal/models"
)

var asOf = time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)

func daysBefore(n int) *time.Time {
	t := asOf.AddDate(0, 0, -n)
	return &t
}

func collectible(due, paid *time.Time) *models.InvoiceRecord {
	return &models.InvoiceRecord{
		Category:    models.CategoryCollectible,
		DueDate:     due,
		PaymentDate: paid,
	}
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		days     int
		expected models.AgingBucket
	}{
		{0, models.BucketCurrent},
		{1, models.Bucket1To30},
		{30, models.Bucket1To30},
		{31, models.Bucket31To60},
		{60, models.Bucket31To60},
		{61, models.Bucket61To90},
		{90, models.Bucket61To90},
		{91, models.Bucket90Plus},
		{400, models.Bucket90Plus},
	}

	for _, tt := range tests {
		if got := BucketFor(tt.days); got != tt.expected {
			t.Errorf("BucketFor(%d) = %s, want %s", tt.days, got, tt.expected)
		}
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		record *models.InvoiceRecord
		days   int
		bucket models.AgingBucket
		noDays bool
	}{
		{
			name:   "unpaid 45 days late",
			record: collectible(daysBefore(45), nil),
			days:   45,
			bucket: models.Bucket31To60,
		},
		{
			name:   "paid five days early",
			record: collectible(daysBefore(10), daysBefore(15)),
			days:   0,
			bucket: models.BucketCurrent,
		},
		{
			name:   "paid late uses payment date",
			record: collectible(daysBefore(100), daysBefore(30)),
			days:   70,
			bucket: models.Bucket61To90,
		},
		{
			name:   "not yet due",
			record: collectible(daysBefore(-14), nil),
			days:   0,
			bucket: models.BucketCurrent,
		},
		{
			name:   "due today",
			record: collectible(daysBefore(0), nil),
			days:   0,
			bucket: models.BucketCurrent,
		},
		{
			name:   "very old",
			record: collectible(daysBefore(181), nil),
			days:   181,
			bucket: models.Bucket90Plus,
		},
		{
			name:   "missing due date",
			record: collectible(nil, nil),
			bucket: models.BucketUnknown,
			noDays: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, bucket := Compute(tt.record, asOf)
			if bucket != tt.bucket {
				t.Errorf("Expected bucket %s, got %s", tt.bucket, bucket)
			}
			if tt.noDays {
				if days != nil {
					t.Errorf("Expected nil days, got %d", *days)
				}
				return
			}
			if days == nil || *days != tt.days {
				t.Errorf("Expected %d days, got %v", tt.days, days)
			}
		})
	}
}

func TestApply(t *testing.T) {
	excluded := &models.InvoiceRecord{
		Category:        models.CategoryExcluded,
		ExclusionReason: "wire fee — excluded from AR",
		DueDate:         daysBefore(200),
	}
	records := []*models.InvoiceRecord{
		collectible(daysBefore(45), nil),
		collectible(nil, nil),
		excluded,
	}

	summary := Apply(records, asOf.Add(17*time.Hour))

	if summary.Aged != 1 || summary.Unknown != 1 || summary.Skipped != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if records[0].DaysPastDue == nil || *records[0].DaysPastDue != 45 {
		t.Errorf("Expected the as-of clock time to be ignored, got %v", records[0].DaysPastDue)
	}
	if records[1].AgingBucket != models.BucketUnknown {
		t.Errorf("Expected Unknown bucket, got %s", records[1].AgingBucket)
	}
	if excluded.DaysPastDue != nil || excluded.AgingBucket != "" {
		t.Error("Expected excluded record to carry no aging")
	}

	for _, r := range records {
		if err := r.Validate(); err != nil {
			t.Errorf("Unexpected invariant violation: %v", err)
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	records := []*models.InvoiceRecord{collectible(daysBefore(75), nil)}

	Apply(records, asOf)
	first := *records[0].DaysPastDue
	Apply(records, asOf)

	if *records[0].DaysPastDue != first || records[0].AgingBucket != models.Bucket61To90 {
		t.Errorf("Expected stable aging, got %d %s", *records[0].DaysPastDue, records[0].AgingBucket)
	}
}
