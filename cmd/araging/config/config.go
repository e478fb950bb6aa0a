// Package config turns viper state (config file, ARAGING_* environment and
// bound flags) into component configurations.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"golang-ar-aging-service/internal/analyzer"
	"golang-ar-aging-service/internal/classifier"
	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/internal/parsers"
	"golang-ar-aging-service/internal/reporter"
	"golang-ar-aging-service/internal/sample"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

// Configuration keys
const (
	KeyVerbose           = "verbose"
	KeyAsOf              = "as_of"
	KeyWireFeeThreshold  = "wire_fee_threshold"
	KeyWithholdingDocs   = "withholding_docs"
	KeyColumnMapping     = "column_mapping"
	KeyExclusionRules    = "exclusion_rules"
	KeyWireFeeReason     = "reasons.wire_fee"
	KeyWithholdingReason = "reasons.withholding"
	KeySheet             = "sheet"
	KeyProgress          = "progress"
	KeySummaryFormat     = "summary_format"
	KeyMaxParseErrors    = "max_parse_errors"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
)

// EnvPrefix is prepended to every environment override, e.g. ARAGING_LOG_LEVEL
const EnvPrefix = "ARAGING"

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	classifierDefaults := classifier.DefaultConfig()
	reportDefaults := reporter.DefaultReportConfig()
	logDefaults := logger.DefaultConfig()

	v.SetDefault(KeyWireFeeThreshold, classifierDefaults.WireFeeThreshold.String())
	v.SetDefault(KeyWithholdingDocs, classifierDefaults.WithholdingDocs)
	v.SetDefault(KeyWireFeeReason, classifierDefaults.WireFeeReason)
	v.SetDefault(KeyWithholdingReason, classifierDefaults.WithholdingReason)
	v.SetDefault(KeySummaryFormat, string(reportDefaults.Format))
	v.SetDefault(KeyMaxParseErrors, reportDefaults.MaxParseErrors)
	v.SetDefault(KeyLogLevel, string(logDefaults.Level))
	v.SetDefault(KeyLogFormat, string(logDefaults.Format))
}

// BindEnv enables ARAGING_* overrides for every key, nested keys included
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// CreateAnalyzerConfig builds the pipeline configuration
func CreateAnalyzerConfig(v *viper.Viper) (*analyzer.Config, error) {
	parserConfig, err := CreateParserConfig(v)
	if err != nil {
		return nil, err
	}
	classifierConfig, err := CreateClassifierConfig(v)
	if err != nil {
		return nil, err
	}

	config := &analyzer.Config{
		Parser:     parserConfig,
		Classifier: classifierConfig,
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "analyzer", nil, err)
	}
	return config, nil
}

// CreateParserConfig builds the input reader configuration. Configured
// column mappings are added to the pivot-export defaults.
func CreateParserConfig(v *viper.Viper) (*parsers.InvoiceParserConfig, error) {
	config := parsers.DefaultInvoiceParserConfig()
	config.Sheet = strings.TrimSpace(v.GetString(KeySheet))
	config.ShowProgress = v.GetBool(KeyProgress)

	// viper lowercases map keys; header matching is case-insensitive
	for source, target := range v.GetStringMapString(KeyColumnMapping) {
		field, ok := parsers.CanonicalField(target)
		if !ok {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyColumnMapping, target,
				fmt.Errorf("column '%s' maps to unknown field '%s'", source, target)).
				WithSuggestion(fmt.Sprintf("valid fields: %s", strings.Join(parsers.RequiredFields(), ", ")))
		}
		config.ColumnMapping[source] = field
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyColumnMapping, nil, err)
	}
	return config, nil
}

// CreateClassifierConfig builds the exclusion policy
func CreateClassifierConfig(v *viper.Viper) (*classifier.Config, error) {
	config := classifier.DefaultConfig()

	if raw := strings.TrimSpace(v.GetString(KeyWireFeeThreshold)); raw != "" {
		threshold, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyWireFeeThreshold, raw, err).
				WithSuggestion("use a plain number such as 100 or 99.50")
		}
		config.WireFeeThreshold = threshold
	}

	if v.IsSet(KeyWithholdingDocs) {
		config.WithholdingDocs = splitList(v.GetStringSlice(KeyWithholdingDocs))
	}

	if reason := v.GetString(KeyWireFeeReason); reason != "" {
		config.WireFeeReason = reason
	}
	if reason := v.GetString(KeyWithholdingReason); reason != "" {
		config.WithholdingReason = reason
	}

	if v.IsSet(KeyExclusionRules) {
		var rules []classifier.Rule
		if err := v.UnmarshalKey(KeyExclusionRules, &rules); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidRule, KeyExclusionRules, nil, err).
				WithSuggestion("each rule needs name, field, operator, value(s) and reason")
		}
		config.Rules = rules
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reasons", nil, err)
	}
	if _, err := classifier.CompileRules(config.Rules); err != nil {
		return nil, err
	}
	return config, nil
}

// ResolveAsOf returns the configured as-of date, or today when unset
func ResolveAsOf(v *viper.Viper, now time.Time) (time.Time, error) {
	return ParseAsOf(v.GetString(KeyAsOf), now)
}

// ParseAsOf parses an as-of date. Blank means today.
func ParseAsOf(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DateOnly(now), nil
	}

	asOf, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, errors.ConfigurationError(errors.CodeInvalidConfig, KeyAsOf, raw, err).
			WithSuggestion("use YYYY-MM-DD, e.g. --as-of 2025-06-30")
	}
	return asOf, nil
}

// CreateReportConfig builds the run summary configuration
func CreateReportConfig(v *viper.Viper) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(strings.ToLower(strings.TrimSpace(v.GetString(KeySummaryFormat))))
	config.MaxParseErrors = v.GetInt(KeyMaxParseErrors)

	switch config.Format {
	case reporter.FormatJSON:
		config.IncludeProcessingStats = true
	case reporter.FormatConsole:
		config.IncludeProcessingStats = v.GetBool(KeyVerbose)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeySummaryFormat, config.Format, err).
			WithSuggestion("use one of: console, json, csv, none")
	}
	return config, nil
}

// CreateLoggerConfig builds the global logger configuration. --verbose
// raises the level to debug.
func CreateLoggerConfig(v *viper.Viper) (*logger.Config, error) {
	config := logger.DefaultConfig()
	if v.GetBool(KeyVerbose) {
		config = logger.DebugConfig()
	} else if level := v.GetString(KeyLogLevel); level != "" {
		config.Level = logger.Level(strings.ToLower(level))
	}
	if format := v.GetString(KeyLogFormat); format != "" {
		config.Format = logger.Format(strings.ToLower(format))
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", nil, err).
			WithSuggestion("log.level is debug|info|warn|error, log.format is text|json")
	}
	return config, nil
}

// CreateSampleConfig builds the sample ledger configuration
func CreateSampleConfig(v *viper.Viper, count int, seed int64, canonicalHeaders bool, asOf time.Time) (*sample.Config, error) {
	config := sample.DefaultConfig()
	config.Count = count
	config.Seed = seed
	config.AsOf = asOf
	config.PivotHeaders = !canonicalHeaders
	if v.IsSet(KeyWithholdingDocs) {
		config.WithholdingDocs = splitList(v.GetStringSlice(KeyWithholdingDocs))
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "sample", nil, err)
	}
	return config, nil
}

// splitList flattens comma separated entries, as given through environment
// variables, and drops blanks
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
