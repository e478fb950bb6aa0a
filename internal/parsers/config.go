package parsers

import (
	"fmt"
	"strings"
)

// Canonical field names every input must provide after column mapping
const (
	FieldDocumentNumber = "Document Number"
	FieldName           = "Name"
	FieldInvoiceDate    = "Invoice Date"
	FieldDueDate        = "Due Date"
	FieldPaymentDate    = "Payment Date"
	FieldAmount         = "Amount"
)

var requiredFields = []string{
	FieldDocumentNumber,
	FieldName,
	FieldInvoiceDate,
	FieldDueDate,
	FieldPaymentDate,
	FieldAmount,
}

// RequiredFields returns the canonical fields in report column order
func RequiredFields() []string {
	out := make([]string, len(requiredFields))
	copy(out, requiredFields)
	return out
}

// IsCanonicalField reports whether name (in any spelling) is a canonical field
func IsCanonicalField(name string) bool {
	_, ok := canonicalByKey[NormalizeHeader(name)]
	return ok
}

// CanonicalField returns the canonical spelling of name
func CanonicalField(name string) (string, bool) {
	field, ok := canonicalByKey[NormalizeHeader(name)]
	return field, ok
}

var canonicalByKey = func() map[string]string {
	m := make(map[string]string, len(requiredFields))
	for _, f := range requiredFields {
		m[NormalizeHeader(f)] = f
	}
	return m
}()

// DefaultColumnMapping maps the headers of a pivot-table export of the
// receivables ledger onto canonical fields.
func DefaultColumnMapping() map[string]string {
	return map[string]string{
		"Maximum of Date":                FieldInvoiceDate,
		"Maximum of Due Date/Receive By": FieldDueDate,
		"Maximum of Payment Date":        FieldPaymentDate,
		"Sum of Amount":                  FieldAmount,
	}
}

// InvoiceParserConfig holds configuration for reading invoice spreadsheets
type InvoiceParserConfig struct {
	ColumnMapping    map[string]string `json:"column_mapping" mapstructure:"column_mapping"`
	Sheet            string            `json:"sheet,omitempty" mapstructure:"sheet"`
	Delimiter        rune              `json:"delimiter" mapstructure:"-"`
	SkipEmptyRows    bool              `json:"skip_empty_rows" mapstructure:"skip_empty_rows"`
	ValidateEncoding bool              `json:"validate_encoding" mapstructure:"validate_encoding"`
	ShowProgress     bool              `json:"show_progress" mapstructure:"progress"`
	ProgressEvery    int64             `json:"progress_every,omitempty" mapstructure:"progress_every"`
}

// DefaultInvoiceParserConfig returns a configuration with standard defaults
func DefaultInvoiceParserConfig() *InvoiceParserConfig {
	return &InvoiceParserConfig{
		ColumnMapping:    DefaultColumnMapping(),
		Delimiter:        ',',
		SkipEmptyRows:    true,
		ValidateEncoding: true,
		ProgressEvery:    1000,
	}
}

// Validate checks that every mapping target is a canonical field
func (c *InvoiceParserConfig) Validate() error {
	for source, target := range c.ColumnMapping {
		if strings.TrimSpace(source) == "" {
			return fmt.Errorf("column mapping has an empty source header")
		}
		if !IsCanonicalField(target) {
			return fmt.Errorf("column mapping '%s' targets unknown field '%s' (valid: %s)",
				source, target, strings.Join(requiredFields, ", "))
		}
	}

	switch c.Delimiter {
	case '\r', '\n', '"':
		return fmt.Errorf("invalid csv delimiter %q", c.Delimiter)
	}

	if c.ProgressEvery < 0 {
		return fmt.Errorf("progress interval cannot be negative")
	}

	return nil
}
