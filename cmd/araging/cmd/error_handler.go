package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"golang-ar-aging-service/cmd/araging/config"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	out     io.Writer
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler writing to out
func NewCLIErrorHandler(out io.Writer) *CLIErrorHandler {
	if out == nil {
		out = os.Stderr
	}
	return &CLIErrorHandler{
		out:     out,
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool(config.KeyVerbose),
	}
}

// HandleError prints err and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if analyzerErr, ok := errors.AsAnalyzerError(err); ok {
		return h.handleAnalyzerError(analyzerErr)
	}

	return h.handleGenericError(err)
}

// handleAnalyzerError prints message, context, suggestion and category help.
// File errors always carry the operating system error.
func (h *CLIErrorHandler) handleAnalyzerError(err *errors.AnalyzerError) int {
	ioErr := err.Category == errors.CategoryFile && err.Cause != nil
	if ioErr {
		fmt.Fprintf(h.out, "Error: %s (%v)\n", err.Message, err.Cause)
	} else {
		fmt.Fprintf(h.out, "Error: %s\n", err.Message)
	}

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil && !ioErr {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles errors raised outside the pipeline, mostly
// cobra argument errors
func (h *CLIErrorHandler) handleGenericError(err error) int {
	switch {
	case h.isFileNotFoundError(err):
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	case h.isPermissionError(err):
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	case h.isDiskFullError(err):
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "Run 'araging --help' for usage.\n")
	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check the file exists and is readable
• Inputs must be .xlsx or .csv; the workbook output must be .xlsx
• Close the workbook in Excel if it is open
• Make sure the output directory exists and is writable`

	case errors.CategorySchema:
		return `Column error help:
• The header row needs Document Number, Name, Invoice Date, Due Date,
  Payment Date and Amount
• Pivot exports ("Maximum of Date", "Sum of Amount", ...) are mapped automatically
• Map other header names with column_mapping in a config file (--config)
• Use --sheet if the ledger is not on the first worksheet`

	case errors.CategoryParse, errors.CategoryValidation:
		return `Data error help:
• Dates may be YYYY-MM-DD, MM/DD/YYYY, "Jan 2, 2006" or workbook date cells
• Amounts may use $, thousands separators and (123.45) for negatives
• Save CSV files in UTF-8 encoding`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and config file syntax
• Environment overrides use the ARAGING_ prefix, e.g. ARAGING_LOG_LEVEL
• Use 'araging analyze --help' to see all available options
• Try running with default settings first`

	case errors.CategoryAnalysis, errors.CategoryInternal:
		return `Analysis error help:
• Re-run with --verbose for debug logging
• Check the output location is writable
• Report the input layout if the problem persists`

	default:
		return `For more help:
• Use 'araging --help' for general help
• Use 'araging analyze --help' for command-specific help`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return stderrors.Is(err, os.ErrNotExist) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return stderrors.Is(err, os.ErrPermission) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if stderrors.Is(err, syscall.ENOSPC) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}
