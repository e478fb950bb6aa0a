package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAnalyzerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "schema error",
			category:   CategorySchema,
			code:       CodeMissingColumn,
			message:    "missing column",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeInvalidFormat,
			message:    "invalid format",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *AnalyzerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a captured stack trace")
			}
		})
	}
}

func TestAnalyzerErrorWithContext(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "test error").
		WithContext("file", "/path/to/invoices.xlsx").
		WithContext("row", 42).
		WithSuggestion("check file path")

	if err.Context["file"] != "/path/to/invoices.xlsx" {
		t.Errorf("expected file context, got %v", err.Context["file"])
	}
	if err.Context["row"] != 42 {
		t.Errorf("expected row context 42, got %v", err.Context["row"])
	}

	expected := "test error (suggestion: check file path)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestSchemaError(t *testing.T) {
	missing := []string{"Due Date", "Amount"}
	available := []string{"Document Number", "Name", "Sum of Amt"}

	err := SchemaError(missing, available)

	if err.Category != CategorySchema {
		t.Errorf("expected schema category, got %s", err.Category)
	}
	if err.Message != "missing required column(s): Due Date, Amount" {
		t.Errorf("unexpected message: %s", err.Message)
	}
	if err.GetExitCode() != 3 {
		t.Errorf("expected exit code 3, got %d", err.GetExitCode())
	}
	if !IsCategory(fmt.Errorf("loading: %w", err), CategorySchema) {
		t.Error("expected wrapped schema error to be detected")
	}
	if IsCategory(errors.New("other"), CategorySchema) {
		t.Error("expected plain error not to be a schema error")
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/test/ar.xlsx", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Context["file_path"] != "/test/ar.xlsx" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		err := ParseError(CodeInvalidFormat, "ar.csv", 10, "Amount", "12.3.4", nil)

		if err.Category != CategoryParse {
			t.Errorf("expected parse category, got %s", err.Category)
		}
		if err.Context["file"] != "ar.csv" {
			t.Errorf("expected file context, got %v", err.Context["file"])
		}
		if err.Context["row"] != 10 {
			t.Errorf("expected row context, got %v", err.Context["row"])
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeInvalidAmount, "wire_fee_threshold", "abc", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "wire_fee_threshold" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
	})

	t.Run("ConfigurationError invalid rule", func(t *testing.T) {
		err := ConfigurationError(CodeInvalidRule, "intercompany", "unknown operator", nil)

		if err.GetExitCode() != 4 {
			t.Errorf("expected exit code 4, got %d", err.GetExitCode())
		}
		if !strings.Contains(err.Message, "intercompany") {
			t.Errorf("expected rule name in message, got %s", err.Message)
		}
	})

	t.Run("InternalError cancelled", func(t *testing.T) {
		err := InternalError(CodeCancelled, "invoice parsing", nil)

		if err.Message != "invoice parsing was cancelled" {
			t.Errorf("unexpected message: %s", err.Message)
		}
		if err.GetExitCode() != 5 {
			t.Errorf("expected exit code 5, got %d", err.GetExitCode())
		}
	})
}

func TestAsAnalyzerError(t *testing.T) {
	analyzerErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if extracted, ok := AsAnalyzerError(fmt.Errorf("outer: %w", analyzerErr)); !ok || extracted != analyzerErr {
		t.Error("expected AsAnalyzerError to extract a wrapped AnalyzerError")
	}
	if _, ok := AsAnalyzerError(genericErr); ok {
		t.Error("expected AsAnalyzerError to return false for generic error")
	}
	if _, ok := AsAnalyzerError(nil); ok {
		t.Error("expected AsAnalyzerError to return false for nil")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	analyzerErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if WrapIfNeeded(analyzerErr, CategoryParse, CodeInvalidFormat, "wrapped") != analyzerErr {
		t.Error("expected WrapIfNeeded to return original AnalyzerError")
	}

	wrapped := WrapIfNeeded(genericErr, CategoryAnalysis, CodeProcessingError, "wrapped")
	if wrapped.Cause != genericErr {
		t.Error("expected WrapIfNeeded to wrap generic error")
	}
	if wrapped.Category != CategoryAnalysis {
		t.Error("expected wrapped error to have correct category")
	}

	if WrapIfNeeded(nil, CategoryParse, CodeInvalidFormat, "wrapped") != nil {
		t.Error("expected WrapIfNeeded to return nil for nil input")
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		category     ErrorCategory
		expectedCode int
	}{
		{CategoryFile, 2},
		{CategorySchema, 3},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryAnalysis, 5},
		{CategoryInternal, 5},
		{"unknown", 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := New(tt.category, "test_code", "test message")
			if err.GetExitCode() != tt.expectedCode {
				t.Errorf("expected exit code %d for category %s, got %d",
					tt.expectedCode, tt.category, err.GetExitCode())
			}
		})
	}
}

func TestEmptyInputSentinel(t *testing.T) {
	wrapped := fmt.Errorf("analyzing ar.xlsx: %w", ErrEmptyInput)
	if !errors.Is(wrapped, ErrEmptyInput) {
		t.Error("expected wrapped sentinel to match ErrEmptyInput")
	}
}
