package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang-ar-aging-service/internal/analyzer"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator and WorkbookWriter with logging
// and fallbacks
type SafeReportGenerator struct {
	*ReportGenerator
	workbook *WorkbookWriter
	logger   logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"summary_format",
			config,
			err,
		).WithSuggestion("use one of: console, json, csv, none")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		workbook:        NewWorkbookWriter(),
		logger:          log.WithComponent("reporter"),
	}, nil
}

// WriteWorkbook writes the analysis workbook to path. When the target cannot
// be replaced, typically because it is open in a spreadsheet program, the
// workbook is saved next to it under a backup name. The path actually
// written is returned.
func (srg *SafeReportGenerator) WriteWorkbook(result *analyzer.Result, path string) (string, error) {
	if err := srg.validateInputs(result, path); err != nil {
		srg.logger.WithError(err).Error("Workbook generation failed: input validation")
		return "", err
	}

	err := srg.workbook.Write(result, path)
	if err == nil {
		return path, nil
	}

	if !srg.shouldAttemptOutputFallback(err, path) {
		srg.logger.WithError(err).Error("Workbook generation failed")
		return "", srg.wrapGenerationError(err)
	}

	backupPath := srg.generateBackupPath(path)
	srg.logger.WithFields(logger.Fields{
		"original_file": path,
		"backup_file":   backupPath,
	}).Warn("Could not replace output file, attempting backup location")

	if backupErr := srg.workbook.Write(result, backupPath); backupErr != nil {
		return "", errors.InternalError(
			errors.CodeUnexpectedError,
			"workbook_output_fallback",
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%v", err, backupErr),
		)
	}

	srg.logger.WithField("backup_file", backupPath).Info("Workbook written to backup location")
	return backupPath, nil
}

// GenerateSummarySafely writes the run summary, falling back to the console
// format when the requested format fails
func (srg *SafeReportGenerator) GenerateSummarySafely(result *analyzer.Result, writer io.Writer) error {
	if srg.config.Format == FormatNone {
		return nil
	}

	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Writing run summary")

	if result == nil || result.Metrics == nil {
		return errors.ValidationError(errors.CodeMissingField, "result", nil, nil).
			WithSuggestion("Provide a completed analysis result")
	}
	if writer == nil {
		return errors.ValidationError(errors.CodeMissingField, "writer", nil, nil).
			WithSuggestion("Provide a valid output writer")
	}

	err := srg.GenerateReport(result, writer)
	if err == nil {
		return nil
	}

	srg.logger.WithError(err).Warn("Summary generation failed, attempting fallback")

	if !srg.shouldAttemptFormatFallback() {
		return srg.wrapGenerationError(err)
	}
	return srg.generateWithFormatFallback(result, writer, err)
}

// validateInputs validates the inputs for workbook generation
func (srg *SafeReportGenerator) validateInputs(result *analyzer.Result, path string) error {
	if result == nil || result.Metrics == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"result",
			nil,
			nil,
		).WithSuggestion("Provide a completed analysis result")
	}

	if strings.TrimSpace(path) == "" {
		return errors.ValidationError(
			errors.CodeMissingField,
			"output",
			nil,
			nil,
		).WithSuggestion("Provide an output .xlsx path")
	}

	return nil
}

// shouldAttemptFormatFallback determines if a format fallback should be attempted
func (srg *SafeReportGenerator) shouldAttemptFormatFallback() bool {
	return srg.config.Format != FormatConsole
}

// generateWithFormatFallback attempts to generate with the console format
func (srg *SafeReportGenerator) generateWithFormatFallback(result *analyzer.Result, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Summary generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.GenerateReport(result, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	srg.logger.Info("Summary generated successfully using format fallback")
	return nil
}

// shouldAttemptOutputFallback reports whether the target exists and could
// not be replaced
func (srg *SafeReportGenerator) shouldAttemptOutputFallback(err error, path string) bool {
	analyzerErr, ok := errors.AsAnalyzerError(err)
	if !ok || analyzerErr.Code != errors.CodeWriteFailed || !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return false
	}
	if isSpaceError(err) {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// generateBackupPath creates a backup file path
func (srg *SafeReportGenerator) generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]

	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}

// wrapGenerationError wraps generation errors with context
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	wrapped := errors.WrapIfNeeded(err, errors.CategoryAnalysis, errors.CodeReportFailed, "report generation failed")
	if wrapped.Suggestion == "" {
		wrapped.WithSuggestion("Check the output destination and summary format settings")
	}
	return wrapped
}

// Utility functions

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}
