package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the classification of an invoice record
type Category string

const (
	CategoryCollectible Category = "Collectible"
	CategoryExcluded    Category = "Excluded"
)

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is one of the known values
func (c Category) IsValid() bool {
	return c == CategoryCollectible || c == CategoryExcluded
}

// AgingBucket groups collectible invoices by days past due
type AgingBucket string

const (
	BucketCurrent   AgingBucket = "Current"
	Bucket1To30     AgingBucket = "1-30"
	Bucket31To60    AgingBucket = "31-60"
	Bucket61To90    AgingBucket = "61-90"
	Bucket90Plus    AgingBucket = "90+"
	BucketUnknown   AgingBucket = "Unknown"
	bucketUndefined AgingBucket = ""
)

var orderedBuckets = []AgingBucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, Bucket90Plus}

// OrderedBuckets returns the dated buckets from youngest to oldest. Unknown is
// not part of the list.
func OrderedBuckets() []AgingBucket {
	out := make([]AgingBucket, len(orderedBuckets))
	copy(out, orderedBuckets)
	return out
}

// String returns the string representation of the bucket
func (b AgingBucket) String() string {
	return string(b)
}

// Label returns the heading used in reports
func (b AgingBucket) Label() string {
	switch b {
	case BucketCurrent:
		return "Current"
	case Bucket1To30:
		return "1-30 Days Past Due"
	case Bucket31To60:
		return "31-60 Days Past Due"
	case Bucket61To90:
		return "61-90 Days Past Due"
	case Bucket90Plus:
		return "Over 90 Days Past Due"
	case BucketUnknown:
		return "Unknown Due Date"
	default:
		return ""
	}
}

// IsHighRisk reports whether outstanding money in the bucket is a collection risk
func (b AgingBucket) IsHighRisk() bool {
	return b == Bucket61To90 || b == Bucket90Plus
}

// InvoiceRecord is one normalized row of the receivables ledger
type InvoiceRecord struct {
	DocumentID   string              `json:"document_id"`
	CustomerName string              `json:"customer_name"`
	InvoiceDate  *time.Time          `json:"invoice_date,omitempty"`
	DueDate      *time.Time          `json:"due_date,omitempty"`
	PaymentDate  *time.Time          `json:"payment_date,omitempty"`
	Amount       decimal.NullDecimal `json:"amount"`

	Category        Category    `json:"category,omitempty"`
	ExclusionReason string      `json:"exclusion_reason,omitempty"`
	DaysPastDue     *int        `json:"days_past_due,omitempty"`
	AgingBucket     AgingBucket `json:"aging_bucket,omitempty"`

	Row         int               `json:"row"`
	ParseIssues []string          `json:"parse_issues,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// IsPaid reports whether a payment date is recorded
func (r *InvoiceRecord) IsPaid() bool {
	return r.PaymentDate != nil
}

// IsCollectible reports whether the record counts toward receivables
func (r *InvoiceRecord) IsCollectible() bool {
	return r.Category == CategoryCollectible
}

// IsExcluded reports whether the record was removed from receivables
func (r *InvoiceRecord) IsExcluded() bool {
	return r.Category == CategoryExcluded
}

// AmountOrZero returns the amount, or zero when it could not be parsed
func (r *InvoiceRecord) AmountOrZero() decimal.Decimal {
	if !r.Amount.Valid {
		return decimal.Zero
	}
	return r.Amount.Decimal
}

// Status is the payment state shown in reports
func (r *InvoiceRecord) Status() string {
	switch {
	case r.IsExcluded():
		return "Excluded"
	case r.IsPaid():
		return "Paid"
	default:
		return "Unpaid"
	}
}

// AddParseIssue records a field that could not be parsed
func (r *InvoiceRecord) AddParseIssue(issue string) {
	r.ParseIssues = append(r.ParseIssues, issue)
}

// Notes joins the exclusion reason and parse issues for display
func (r *InvoiceRecord) Notes() string {
	parts := make([]string, 0, len(r.ParseIssues)+1)
	if r.ExclusionReason != "" {
		parts = append(parts, r.ExclusionReason)
	}
	parts = append(parts, r.ParseIssues...)
	return strings.Join(parts, "; ")
}

// SetClassification stores the classifier decision
func (r *InvoiceRecord) SetClassification(category Category, reason string) {
	r.Category = category
	if category == CategoryExcluded {
		r.ExclusionReason = reason
	} else {
		r.ExclusionReason = ""
	}
}

// SetAging stores the aging result. Excluded records never carry aging.
func (r *InvoiceRecord) SetAging(days *int, bucket AgingBucket) {
	if !r.IsCollectible() {
		r.DaysPastDue = nil
		r.AgingBucket = bucketUndefined
		return
	}
	r.DaysPastDue = days
	r.AgingBucket = bucket
}

// Validate checks the classification invariants of a processed record
func (r *InvoiceRecord) Validate() error {
	if !r.Category.IsValid() {
		return fmt.Errorf("row %d: invalid category '%s'", r.Row, r.Category)
	}

	if r.IsExcluded() {
		if r.ExclusionReason == "" {
			return fmt.Errorf("row %d: excluded record has no reason", r.Row)
		}
		if r.DaysPastDue != nil || r.AgingBucket != bucketUndefined {
			return fmt.Errorf("row %d: excluded record carries aging", r.Row)
		}
		return nil
	}

	if r.ExclusionReason != "" {
		return fmt.Errorf("row %d: collectible record has an exclusion reason", r.Row)
	}
	if r.AgingBucket == bucketUndefined {
		return fmt.Errorf("row %d: collectible record is not aged", r.Row)
	}
	if (r.DaysPastDue == nil) != (r.AgingBucket == BucketUnknown) {
		return fmt.Errorf("row %d: days past due and bucket disagree", r.Row)
	}

	return nil
}

// String returns a short description of the record
func (r *InvoiceRecord) String() string {
	amount := "n/a"
	if r.Amount.Valid {
		amount = r.Amount.Decimal.StringFixed(2)
	}
	return fmt.Sprintf("Invoice{Doc: %s, Customer: %s, Amount: %s, Status: %s}",
		r.DocumentID, r.CustomerName, amount, r.Status())
}
