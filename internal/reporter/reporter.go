// Package reporter renders analysis results.
//
// The primary artifact is an xlsx workbook (see WorkbookWriter) with three
// sheets: Executive Summary, Invoice Data and Collections Analysis. A short
// run summary can also be written to a terminal or pipe.
//
// Supported summary formats:
//   - Console: Human-readable summary for terminal display
//   - JSON: Structured data format for programmatic consumption
//   - CSV: The aging breakdown as comma-separated rows
//   - None: No summary output
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatJSON})
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang-ar-aging-service/internal/analyzer"
	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/pkg/errors"
)

// OutputFormat represents the supported summary output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatNone    OutputFormat = "none"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatNone:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for summary generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeFindings        bool `json:"include_findings"`
	IncludeExclusions      bool `json:"include_exclusions"`
	IncludeParseErrors     bool `json:"include_parse_errors"`
	IncludeProcessingStats bool `json:"include_processing_stats"`

	// Maximum parse errors listed in console output
	MaxParseErrors int `json:"max_parse_errors"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                 FormatConsole,
		IncludeFindings:        true,
		IncludeExclusions:      true,
		IncludeParseErrors:     true,
		IncludeProcessingStats: false,
		MaxParseErrors:         5,
		CSVDelimiter:           ',',
		CSVHeaders:             true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxParseErrors < 0 {
		return fmt.Errorf("max parse errors cannot be negative, got %d", c.MaxParseErrors)
	}

	if c.Format == FormatCSV {
		switch c.CSVDelimiter {
		case 0, '\r', '\n', '"':
			return fmt.Errorf("invalid csv delimiter %q", c.CSVDelimiter)
		}
	}

	return nil
}

// ReportGenerator writes run summaries in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes a summary of result to writer
func (rg *ReportGenerator) GenerateReport(result *analyzer.Result, writer io.Writer) error {
	if result == nil || result.Metrics == nil {
		return fmt.Errorf("analysis result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	case FormatNone:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport generates a human-readable console summary
func (rg *ReportGenerator) generateConsoleReport(result *analyzer.Result, writer io.Writer) error {
	m := result.Metrics

	fmt.Fprintf(writer, "AR AGING ANALYSIS\n")
	fmt.Fprintf(writer, "Run:    %s\n", result.RunID)
	fmt.Fprintf(writer, "Input:  %s\n", result.InputPath)
	fmt.Fprintf(writer, "As of:  %s\n\n", result.AsOf.Format("2006-01-02"))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Invoices:            %d\n", m.TotalRecords)
	fmt.Fprintf(writer, "  Collectible:       %d (%.1f%%)\n", m.CollectibleCount, rg.calculatePercentage(m.CollectibleCount, m.TotalRecords))
	fmt.Fprintf(writer, "  Excluded:          %d (%.1f%%)\n", m.ExcludedCount, rg.calculatePercentage(m.ExcludedCount, m.TotalRecords))
	fmt.Fprintf(writer, "  Paid:              %d\n", m.PaidCount)
	fmt.Fprintf(writer, "  Outstanding:       %d\n\n", m.UnpaidCount)

	fmt.Fprintf(writer, "=== FINANCIAL SUMMARY ===\n")
	fmt.Fprintf(writer, "Collectible AR:      %s\n", models.FormatCurrency(m.CollectibleARTotal, 2))
	fmt.Fprintf(writer, "Payments Received:   %s\n", models.FormatCurrency(m.PaidCollectibleTotal, 2))
	fmt.Fprintf(writer, "Outstanding AR:      %s\n", models.FormatCurrency(m.UnpaidCollectibleTotal, 2))
	fmt.Fprintf(writer, "Excluded:            %s\n", models.FormatCurrency(m.ExcludedTotal, 2))
	fmt.Fprintf(writer, "Collection Rate:     %s%%\n\n", m.CollectionRate.StringFixed(1))

	fmt.Fprintf(writer, "=== AGING BREAKDOWN ===\n")
	for _, bt := range m.Buckets() {
		fmt.Fprintf(writer, "%-24s %14s %6d  %5s%%\n",
			bt.Bucket.Label(), models.FormatCurrency(bt.Amount, 2), bt.Count, bt.Percentage.StringFixed(1))
	}
	if m.UnknownAgingCount > 0 {
		fmt.Fprintf(writer, "%-24s %14s %6d\n",
			models.BucketUnknown.Label(), models.FormatCurrency(m.UnknownAgingTotal, 2), m.UnknownAgingCount)
	}
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeExclusions && m.ExcludedCount > 0 {
		fmt.Fprintf(writer, "=== EXCLUSIONS ===\n")
		for _, reason := range m.Reasons() {
			fmt.Fprintf(writer, "%s: %d (%s)\n", reason.Reason, reason.Count, models.FormatCurrency(reason.Amount, 2))
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeFindings {
		fmt.Fprintf(writer, "=== KEY FINDINGS ===\n")
		for _, finding := range m.Findings() {
			fmt.Fprintf(writer, "  - %s\n", finding)
		}
		fmt.Fprintf(writer, "\n=== RECOMMENDED ACTIONS ===\n")
		for i, action := range m.RecommendedActions() {
			fmt.Fprintf(writer, "  %d. %s\n", i+1, action)
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeParseErrors && result.ParseStats != nil && result.ParseStats.HasErrors() {
		fmt.Fprintf(writer, "=== DATA QUALITY ===\n")
		fmt.Fprintf(writer, "%s\n\n", result.ParseStats.String())
		fmt.Fprintf(writer, "%s\n\n", errors.FormatParseErrorsForUser(result.ParseStats.Errors(), rg.config.MaxParseErrors))
	}

	if rg.config.IncludeProcessingStats && result.ProcessingStats != nil {
		stats := result.ProcessingStats
		fmt.Fprintf(writer, "=== PROCESSING STATISTICS ===\n")
		fmt.Fprintf(writer, "Records/Second:       %.2f\n", stats.RecordsPerSecond)
		fmt.Fprintf(writer, "Parsing Time:         %v\n", stats.ParsingTime.Round(time.Millisecond))
		fmt.Fprintf(writer, "Total Processing:     %v\n", stats.TotalProcessingTime.Round(time.Millisecond))
	}

	return nil
}

// generateJSONReport generates a structured JSON summary
func (rg *ReportGenerator) generateJSONReport(result *analyzer.Result, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(rg.filterResultForOutput(result))
}

// generateCSVReport writes the aging breakdown, one row per bucket
func (rg *ReportGenerator) generateCSVReport(result *analyzer.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		headers := []string{"Aging_Category", "Total_Amount", "Invoice_Count", "Percentage"}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	m := result.Metrics
	for _, bt := range m.Buckets() {
		record := []string{
			bt.Bucket.Label(),
			bt.Amount.StringFixed(2),
			strconv.Itoa(bt.Count),
			bt.Percentage.StringFixed(2),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write bucket record: %w", err)
		}
	}

	total := []string{"TOTAL", m.BucketSum().StringFixed(2), strconv.Itoa(m.BucketCount()), totalPercentage(m.BucketSum().IsZero())}
	if err := csvWriter.Write(total); err != nil {
		return fmt.Errorf("failed to write total record: %w", err)
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func totalPercentage(empty bool) string {
	if empty {
		return "0.00"
	}
	return "100.00"
}

// Helper methods

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func (rg *ReportGenerator) filterResultForOutput(result *analyzer.Result) map[string]interface{} {
	m := result.Metrics
	output := map[string]interface{}{
		"run_id":       result.RunID.String(),
		"input_path":   result.InputPath,
		"as_of":        result.AsOf.Format("2006-01-02"),
		"processed_at": result.ProcessedAt,
		"metrics":      m,
		"buckets":      m.Buckets(),
	}

	if rg.config.IncludeExclusions {
		output["exclusions"] = m.Reasons()
	}

	if rg.config.IncludeFindings {
		output["findings"] = m.Findings()
		output["recommended_actions"] = m.RecommendedActions()
	}

	if rg.config.IncludeParseErrors && result.ParseStats != nil {
		output["parse_stats"] = map[string]interface{}{
			"total_rows":          result.ParseStats.TotalRows,
			"records_parsed":      result.ParseStats.RecordsParsed,
			"records_with_issues": result.ParseStats.RecordsWithIssues,
			"error_count":         result.ParseStats.ErrorCount,
			"errors_by_code":      result.ParseStats.CountByCode(),
			"sample_errors":       result.ParseStats.GetSampleErrors(rg.config.MaxParseErrors),
		}
	}

	if len(result.Warnings) > 0 {
		output["warnings"] = result.Warnings
	}

	if rg.config.IncludeProcessingStats && result.ProcessingStats != nil {
		output["processing_stats"] = result.ProcessingStats
	}

	return output
}
