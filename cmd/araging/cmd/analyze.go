package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-ar-aging-service/cmd/araging/config"
	"golang-ar-aging-service/internal/analyzer"
	"golang-ar-aging-service/internal/reporter"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

// now is the clock behind default as-of dates and output names
var now = time.Now

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <input> [output]",
	Short: "Age receivables and write the analysis workbook",
	Long: `Analyze reads an AR ledger export and writes an .xlsx workbook with three
sheets: Executive Summary, Invoice Data and Collections Analysis.

The input needs the columns Document Number, Name, Invoice Date, Due Date,
Payment Date and Amount. Pivot-table exports using "Maximum of Date",
"Maximum of Due Date/Receive By", "Maximum of Payment Date" and "Sum of Amount"
are recognized without configuration; other layouts can be mapped with
column_mapping in a config file.

When no output is given the workbook is written to
ar_analysis_YYYYMMDD_HHMMSS.xlsx in the current directory.

Examples:
  # Age against today
  araging analyze ledger.xlsx

  # Fixed as-of date and explicit output
  araging analyze ledger.xlsx q2_aging.xlsx --as-of 2025-06-30

  # Read a named sheet and treat more documents as tax withholding
  araging analyze ledger.xlsx --sheet "AR Detail" --withholding-docs 3148,4410

  # Machine readable run summary
  araging analyze ledger.csv --summary-format json`,
	Args:    cobra.RangeArgs(1, 2),
	PreRunE: validateAnalyzeArgs,
	RunE:    runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("as-of", "", "date invoices are aged against (YYYY-MM-DD, default today)")
	analyzeCmd.Flags().String("wire-fee-threshold", "", "amounts at or below this are excluded as wire fees (default 100)")
	analyzeCmd.Flags().StringSlice("withholding-docs", nil, "document numbers excluded as tax withholding (default 3148)")
	analyzeCmd.Flags().String("sheet", "", "worksheet to read (default first sheet)")
	analyzeCmd.Flags().StringP("summary-format", "f", "", "run summary on stdout: console, json, csv, none (default console)")
	analyzeCmd.Flags().Bool("progress", false, "log row progress while reading")

	viper.BindPFlag(config.KeyAsOf, analyzeCmd.Flags().Lookup("as-of"))
	viper.BindPFlag(config.KeyWireFeeThreshold, analyzeCmd.Flags().Lookup("wire-fee-threshold"))
	viper.BindPFlag(config.KeyWithholdingDocs, analyzeCmd.Flags().Lookup("withholding-docs"))
	viper.BindPFlag(config.KeySheet, analyzeCmd.Flags().Lookup("sheet"))
	viper.BindPFlag(config.KeySummaryFormat, analyzeCmd.Flags().Lookup("summary-format"))
	viper.BindPFlag(config.KeyProgress, analyzeCmd.Flags().Lookup("progress"))
}

func validateAnalyzeArgs(cmd *cobra.Command, args []string) error {
	if err := validateInputFile(args[0]); err != nil {
		return err
	}

	output := defaultOutputPath(now())
	if len(args) > 1 {
		output = args[1]
	}
	return validateOutputPath(output)
}

// validateInputFile checks the ledger exists, is a file and has a supported
// extension
func validateInputFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.ValidationError(errors.CodeMissingField, "input", path, nil).
			WithSuggestion("pass the ledger export as the first argument")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, path, err)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, path, fmt.Errorf("expected a file, got a directory"))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".csv":
		return nil
	default:
		return errors.FileError(errors.CodeUnsupportedExt, path, nil)
	}
}

// validateOutputPath checks the workbook target is an .xlsx file in an
// existing directory
func validateOutputPath(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return errors.FileError(errors.CodeWriteFailed, path, fmt.Errorf("output must be an .xlsx file")).
			WithSuggestion("name the output with an .xlsx extension")
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, dir, err)
	}
	return nil
}

func defaultOutputPath(t time.Time) string {
	return fmt.Sprintf("ar_analysis_%s.xlsx", t.Format("20060102_150405"))
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	log := logger.GetGlobalLogger().WithComponent("cli")

	input := args[0]
	output := defaultOutputPath(now())
	if len(args) > 1 {
		output = args[1]
	}

	asOf, err := config.ResolveAsOf(v, now())
	if err != nil {
		return err
	}
	analyzerConfig, err := config.CreateAnalyzerConfig(v)
	if err != nil {
		return err
	}
	reportConfig, err := config.CreateReportConfig(v)
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"input":  input,
		"output": output,
		"as_of":  asOf.Format("2006-01-02"),
		"sheet":  analyzerConfig.Parser.Sheet,
	}).Info("Starting AR aging analysis")

	service, err := analyzer.NewService(analyzerConfig)
	if err != nil {
		return err
	}
	classifierConfig := service.GetConfiguration().Classifier
	log.WithFields(logger.Fields{
		"wire_fee_threshold": classifierConfig.WireFeeThreshold.String(),
		"withholding_docs":   classifierConfig.WithholdingDocs,
		"exclusion_rules":    len(classifierConfig.Rules),
	}).Debug("Classifier configured")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := service.Analyze(ctx, &analyzer.Request{
		InputPath: input,
		AsOf:      asOf,
	})
	if err != nil {
		return err
	}
	if result.IsEmpty() {
		log.WithField("input", input).Warn("No invoices found; writing an all-zero workbook")
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, log)
	if err != nil {
		return err
	}

	written, err := generator.WriteWorkbook(result, output)
	if err != nil {
		return err
	}

	if err := generator.GenerateSummarySafely(result, cmd.OutOrStdout()); err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"run_id":          result.RunID.String(),
		"output":          written,
		"records":         result.ParseStats.RecordsParsed,
		"parse_warnings":  result.ParseStats.ErrorCount,
		"collectible_ar":  result.Metrics.CollectibleARTotal.StringFixed(2),
		"processing_time": result.ProcessingStats.TotalProcessingTime.String(),
	}).Info("Analysis complete")
	fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to: %s\n", written)

	return nil
}
