package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestInvalidAmountError(t *testing.T) {
	cause := errors.New("can't convert abc to decimal")
	err := InvalidAmountError("/data/ar.xlsx", 7, "Amount", "abc", cause)

	if err.Code != CodeInvalidAmount {
		t.Errorf("expected invalid amount code, got %s", err.Code)
	}
	if !err.Recoverable {
		t.Error("expected row parse errors to be recoverable")
	}
	if err.Unwrap() != cause {
		t.Errorf("expected cause to be kept, got %v", err.Unwrap())
	}
	if err.Context["row"] != 7 {
		t.Errorf("expected row context 7, got %v", err.Context["row"])
	}
	if len(err.Examples) == 0 {
		t.Error("expected examples to be set")
	}
	if !strings.Contains(err.Error(), "at ar.xlsx:7 column 'Amount'") {
		t.Errorf("expected location in error string, got %s", err.Error())
	}
	if err.Note() != "Amount: unparseable value 'abc'" {
		t.Errorf("unexpected note: %s", err.Note())
	}
}

func TestInvalidDateErrorDetails(t *testing.T) {
	err := InvalidDateError("ar.csv", 3, "Due Date", "31/31/2025", nil)

	detailed := err.GetDetailedError()
	for _, want := range []string{"invalid date format", "Row: 3", "Column: Due Date", "Value: '31/31/2025'", "Examples:"} {
		if !strings.Contains(detailed, want) {
			t.Errorf("expected detailed error to contain %q, got:\n%s", want, detailed)
		}
	}
}

func TestMalformedRecordError(t *testing.T) {
	cause := errors.New(`extraneous or missing " in quoted-field`)
	err := MalformedRecordError("/data/ar.csv", 4, cause)

	if err.Code != CodeInvalidFormat || !err.Recoverable {
		t.Errorf("expected recoverable invalid format error, got %s", err.Code)
	}
	if !strings.Contains(err.Error(), "at ar.csv:4") {
		t.Errorf("expected location in error string, got %s", err.Error())
	}
	if strings.Contains(err.Error(), "column") {
		t.Errorf("expected no column in error string, got %s", err.Error())
	}
	if err.Note() != `malformed CSV record: extraneous or missing " in quoted-field` {
		t.Errorf("unexpected note: %s", err.Note())
	}
}

func TestParseErrorCollector(t *testing.T) {
	collector := NewParseErrorCollector()
	if collector.Len() != 0 {
		t.Error("expected new collector to be empty")
	}

	collector.Add(nil)
	collector.Add(InvalidAmountError("ar.csv", 2, "Amount", "x", nil))
	collector.Add(InvalidDateError("ar.csv", 3, "Due Date", "y", nil))
	collector.Add(InvalidDateError("ar.csv", 4, "Payment Date", "z", nil))

	if collector.Len() != 3 {
		t.Errorf("expected 3 errors, got %d", collector.Len())
	}

	counts := collector.CountByCode()
	if counts[CodeInvalidDate] != 2 || counts[CodeInvalidAmount] != 1 {
		t.Errorf("unexpected counts by code: %v", counts)
	}

	formatted := FormatParseErrorsForUser(collector.GetErrors(), 0)
	if !strings.HasPrefix(formatted, "Found 3 unparseable values") {
		t.Errorf("unexpected formatted output: %s", formatted)
	}
	if strings.Contains(formatted, "more") {
		t.Errorf("expected every error without a limit, got:\n%s", formatted)
	}
}

func TestFormatParseErrorsTruncates(t *testing.T) {
	var errs []*RowParseError
	for i := 0; i < 5; i++ {
		errs = append(errs, InvalidAmountError("ar.csv", i+2, "Amount", "bad", nil))
	}

	formatted := FormatParseErrorsForUser(errs, 3)
	if !strings.Contains(formatted, "... and 2 more") {
		t.Errorf("expected truncation line, got:\n%s", formatted)
	}
	if FormatParseErrorsForUser(nil, 3) != "No parse errors" {
		t.Error("expected empty message for no errors")
	}
	if single := FormatParseErrorsForUser(errs[:1], 3); !strings.HasPrefix(single, "WARNING: invalid amount format") {
		t.Errorf("expected detailed single error, got:\n%s", single)
	}
}
