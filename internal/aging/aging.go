// Package aging computes days past due and aging buckets for collectible
// invoices. Paid invoices are aged by how late the payment arrived; unpaid
// ones by how late they are on the as-of date.
package aging

import (
	"time"

	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/pkg/logger"
)

// Bucket upper bounds in days, inclusive
const (
	currentMaxDays  = 0
	bucket1To30Max  = 30
	bucket31To60Max = 60
	bucket61To90Max = 90
)

// Compute returns the days past due and bucket of r on asOf. A record without
// a due date gets (nil, Unknown). Early payment and not-yet-due invoices
// clamp to zero days.
func Compute(r *models.InvoiceRecord, asOf time.Time) (*int, models.AgingBucket) {
	if r.DueDate == nil {
		return nil, models.BucketUnknown
	}

	reference := asOf
	if r.PaymentDate != nil {
		reference = *r.PaymentDate
	}

	days := models.DaysBetween(*r.DueDate, reference)
	if days < 0 {
		days = 0
	}

	return &days, BucketFor(days)
}

// BucketFor maps a non-negative day count onto its bucket
func BucketFor(days int) models.AgingBucket {
	switch {
	case days <= currentMaxDays:
		return models.BucketCurrent
	case days <= bucket1To30Max:
		return models.Bucket1To30
	case days <= bucket31To60Max:
		return models.Bucket31To60
	case days <= bucket61To90Max:
		return models.Bucket61To90
	default:
		return models.Bucket90Plus
	}
}

// Summary counts the outcome of an Apply pass
type Summary struct {
	Aged    int `json:"aged"`
	Unknown int `json:"unknown"`
	Skipped int `json:"skipped"`
}

// Apply ages every collectible record in place. Excluded records are cleared
// of any aging.
func Apply(records []*models.InvoiceRecord, asOf time.Time) Summary {
	asOf = models.DateOnly(asOf)
	var summary Summary

	for _, r := range records {
		if !r.IsCollectible() {
			r.SetAging(nil, "")
			summary.Skipped++
			continue
		}

		days, bucket := Compute(r, asOf)
		r.SetAging(days, bucket)
		if days == nil {
			summary.Unknown++
		} else {
			summary.Aged++
		}
	}

	logger.GetGlobalLogger().WithComponent("aging").WithFields(logger.Fields{
		"as_of":   asOf.Format("2006-01-02"),
		"aged":    summary.Aged,
		"unknown": summary.Unknown,
		"skipped": summary.Skipped,
	}).Info("Aged collectible invoices")

	return summary
}
