package errors

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParseContext locates a recoverable parse problem inside the input
type ParseContext struct {
	File     string `json:"file"`
	Row      int    `json:"row"`
	Column   string `json:"column"`
	Value    string `json:"value"`
	Expected string `json:"expected,omitempty"`
}

// RowParseError is a recoverable, per-field parse failure. The offending
// field is left empty on the record and the run continues.
type RowParseError struct {
	*AnalyzerError
	Location    *ParseContext `json:"location"`
	Recoverable bool          `json:"recoverable"`
	Examples    []string      `json:"examples,omitempty"`
}

// Error implements the error interface with location information
func (e *RowParseError) Error() string {
	parts := []string{e.AnalyzerError.Error()}

	if e.Location != nil {
		location := fmt.Sprintf("at %s", filepath.Base(e.Location.File))
		if e.Location.Row > 0 {
			location += fmt.Sprintf(":%d", e.Location.Row)
		}
		if e.Location.Column != "" {
			location += fmt.Sprintf(" column '%s'", e.Location.Column)
		}
		parts = append(parts, location)
	}

	return strings.Join(parts, " ")
}

// Note returns the short form shown next to the record in the report
func (e *RowParseError) Note() string {
	if e.Location == nil || e.Location.Column == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: unparseable value '%s'", e.Location.Column, e.Location.Value)
}

// GetDetailedError returns a detailed multi-line error description
func (e *RowParseError) GetDetailedError() string {
	var lines []string

	lines = append(lines, fmt.Sprintf("WARNING: %s", e.Message))

	if e.Location != nil {
		lines = append(lines, fmt.Sprintf("  → File: %s", e.Location.File))
		if e.Location.Row > 0 {
			lines = append(lines, fmt.Sprintf("  → Row: %d", e.Location.Row))
		}
		if e.Location.Column != "" {
			lines = append(lines, fmt.Sprintf("  → Column: %s", e.Location.Column))
		}
		if e.Location.Value != "" {
			lines = append(lines, fmt.Sprintf("  → Value: '%s'", e.Location.Value))
		}
		if e.Location.Expected != "" {
			lines = append(lines, fmt.Sprintf("  → Expected: %s", e.Location.Expected))
		}
	}

	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  → Suggestion: %s", e.Suggestion))
	}

	if len(e.Examples) > 0 {
		lines = append(lines, "  → Examples:")
		for _, example := range e.Examples {
			lines = append(lines, fmt.Sprintf("    • %s", example))
		}
	}

	return strings.Join(lines, "\n")
}

// NewRowParseError creates a new recoverable parse error
func NewRowParseError(code ErrorCode, location *ParseContext, message string, cause error) *RowParseError {
	baseError := newOrWrap(cause, CategoryParse, code, message)

	if location != nil {
		baseError.WithContext("file", location.File).
			WithContext("row", location.Row).
			WithContext("column", location.Column).
			WithContext("value", location.Value)
	}

	return &RowParseError{
		AnalyzerError: baseError,
		Location:      location,
		Recoverable:   true,
	}
}

// WithExamples adds example values to help fix the error
func (e *RowParseError) WithExamples(examples ...string) *RowParseError {
	e.Examples = examples
	return e
}

// WithSuggestion adds a suggestion and returns the RowParseError
func (e *RowParseError) WithSuggestion(suggestion string) *RowParseError {
	e.AnalyzerError.WithSuggestion(suggestion)
	return e
}

// InvalidAmountError creates an error for an amount that is not a decimal
func InvalidAmountError(file string, row int, column string, value string, cause error) *RowParseError {
	location := &ParseContext{
		File:     file,
		Row:      row,
		Column:   column,
		Value:    value,
		Expected: "decimal number",
	}

	return NewRowParseError(CodeInvalidAmount, location, "invalid amount format", cause).
		WithExamples("1250.50", "$1,250.50", "(75.00)").
		WithSuggestion("use a plain decimal amount; the record is kept with an empty amount")
}

// InvalidDateError creates an error for a date cell that cannot be parsed
func InvalidDateError(file string, row int, column string, value string, cause error) *RowParseError {
	location := &ParseContext{
		File:     file,
		Row:      row,
		Column:   column,
		Value:    value,
		Expected: "calendar date",
	}

	return NewRowParseError(CodeInvalidDate, location, "invalid date format", cause).
		WithExamples("2025-01-15", "01/15/2025", "Jan 15, 2025").
		WithSuggestion("use a date cell or YYYY-MM-DD; the record is kept with an empty date")
}

// MalformedRecordError reports a CSV record the reader could not split
// cleanly. The fields that were read are kept on the record.
func MalformedRecordError(file string, row int, cause error) *RowParseError {
	location := &ParseContext{
		File:     file,
		Row:      row,
		Expected: "well-formed CSV record",
	}

	return NewRowParseError(CodeInvalidFormat, location, fmt.Sprintf("malformed CSV record: %v", cause), cause).
		WithSuggestion("check the quoting on this line; the record is kept with the fields that could be read")
}

// ParseErrorCollector collects recoverable parse errors during a run
type ParseErrorCollector struct {
	errors []*RowParseError
}

// NewParseErrorCollector creates a new error collector
func NewParseErrorCollector() *ParseErrorCollector {
	return &ParseErrorCollector{
		errors: make([]*RowParseError, 0),
	}
}

// Add adds an error to the collector
func (c *ParseErrorCollector) Add(err *RowParseError) {
	if err == nil {
		return
	}
	c.errors = append(c.errors, err)
}

// Len returns the number of collected errors
func (c *ParseErrorCollector) Len() int {
	return len(c.errors)
}

// GetErrors returns all collected errors
func (c *ParseErrorCollector) GetErrors() []*RowParseError {
	return c.errors
}

// CountByCode tallies the collected errors per error code
func (c *ParseErrorCollector) CountByCode() map[ErrorCode]int {
	counts := make(map[ErrorCode]int)
	for _, err := range c.errors {
		counts[err.Code]++
	}
	return counts
}

// FormatParseErrorsForUser renders up to maxDetailed errors in full and
// counts the rest. A maxDetailed of zero or less shows every error.
func FormatParseErrorsForUser(errs []*RowParseError, maxDetailed int) string {
	if len(errs) == 0 {
		return "No parse errors"
	}

	if len(errs) == 1 {
		return errs[0].GetDetailedError()
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Found %d unparseable values (records kept):", len(errs)))

	for i, err := range errs {
		if maxDetailed > 0 && i == maxDetailed {
			lines = append(lines, "", fmt.Sprintf("... and %d more", len(errs)-maxDetailed))
			break
		}
		lines = append(lines, "", err.GetDetailedError())
	}

	return strings.Join(lines, "\n")
}
