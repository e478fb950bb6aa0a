// Package analyzer runs the receivables aging pipeline over one input file:
// parse, classify, age, aggregate. Every run-scoped value (configuration and
// as-of date) is passed in explicitly so each stage stays independently
// testable.
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"golang-ar-aging-service/internal/aging"
	"golang-ar-aging-service/internal/classifier"
	"golang-ar-aging-service/internal/metrics"
	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/internal/parsers"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

// Config holds the component configuration of the pipeline
type Config struct {
	Parser     *parsers.InvoiceParserConfig `json:"parser"`
	Classifier *classifier.Config           `json:"classifier"`
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		Parser:     parsers.DefaultInvoiceParserConfig(),
		Classifier: classifier.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Parser == nil {
		return fmt.Errorf("parser configuration is required")
	}
	if c.Classifier == nil {
		return fmt.Errorf("classifier configuration is required")
	}
	if err := c.Parser.Validate(); err != nil {
		return fmt.Errorf("invalid parser configuration: %w", err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("invalid classifier configuration: %w", err)
	}
	return nil
}

// Request describes one analysis run
type Request struct {
	InputPath string    `json:"input_path"`
	AsOf      time.Time `json:"as_of"`
}

// Validate checks if the request is valid
func (r *Request) Validate() error {
	if strings.TrimSpace(r.InputPath) == "" {
		return fmt.Errorf("input path is required")
	}
	if r.AsOf.IsZero() {
		return fmt.Errorf("as-of date is required")
	}
	return nil
}

// ProcessingStats contains timing details of a run
type ProcessingStats struct {
	RecordsPerSecond    float64       `json:"records_per_second"`
	ParsingTime         time.Duration `json:"parsing_time"`
	TotalProcessingTime time.Duration `json:"total_processing_time"`
}

// Result is the outcome of one analysis run. Records are ordered for the
// invoice detail sheet.
type Result struct {
	RunID           uuid.UUID               `json:"run_id"`
	InputPath       string                  `json:"input_path"`
	AsOf            time.Time               `json:"as_of"`
	Records         []*models.InvoiceRecord `json:"-"`
	Metrics         *metrics.Metrics        `json:"metrics"`
	ParseStats      *parsers.ParseStats     `json:"parse_stats"`
	ClassCounts     classifier.Counts       `json:"classification"`
	AgingSummary    aging.Summary           `json:"aging"`
	ProcessingStats *ProcessingStats        `json:"processing_stats"`
	ProcessedAt     time.Time               `json:"processed_at"`
	Warnings        []string                `json:"warnings,omitempty"`
}

// IsEmpty reports whether the run produced no records
func (r *Result) IsEmpty() bool {
	return len(r.Records) == 0
}

// Service runs the analysis pipeline
type Service struct {
	parser     *parsers.InvoiceParser
	classifier *classifier.Classifier
	config     *Config
	logger     logger.Logger
}

// NewService creates a new analysis service
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "analyzer", nil, err)
	}

	parser, err := parsers.NewInvoiceParser(config.Parser)
	if err != nil {
		return nil, err
	}

	cls, err := classifier.New(config.Classifier)
	if err != nil {
		return nil, err
	}

	return &Service{
		parser:     parser,
		classifier: cls,
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("analyzer"),
	}, nil
}

// GetConfiguration returns the current configuration
func (s *Service) GetConfiguration() *Config {
	return s.config
}

// Analyze performs the complete analysis of one input file
func (s *Service) Analyze(ctx context.Context, request *Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if request == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "request", nil, fmt.Errorf("request is required"))
	}
	if err := request.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "request", request.InputPath, err)
	}

	startTime := time.Now()
	result := &Result{
		RunID:           uuid.New(),
		InputPath:       request.InputPath,
		AsOf:            models.DateOnly(request.AsOf),
		ProcessedAt:     startTime,
		ProcessingStats: &ProcessingStats{},
	}

	log := s.logger.WithFields(logger.Fields{
		"run_id": result.RunID.String(),
		"as_of":  result.AsOf.Format("2006-01-02"),
	})
	log.WithField("file_path", request.InputPath).Info("Starting analysis")

	// Step 1: read and normalize the input
	stage := logger.StartStage(log, "parse")
	records, stats, err := s.parser.ParseInvoices(ctx, request.InputPath)
	if err != nil {
		stage.Fail(err)
		return nil, err
	}
	result.ParseStats = stats
	result.ProcessingStats.ParsingTime = time.Since(startTime)
	stage.Done(logger.Fields{"records": len(records), "parse_errors": stats.ErrorCount})

	if len(records) == 0 {
		log.WithError(errors.ErrEmptyInput).WithField("file_path", request.InputPath).
			Warn("Producing an all-zero report")
		result.Warnings = append(result.Warnings, errors.ErrEmptyInput.Error())
	}
	if stats.HasErrors() {
		result.Warnings = append(result.Warnings, stats.String())
	}

	// Step 2: classify
	stage = logger.StartStage(log, "classify")
	result.ClassCounts = s.classifier.ClassifyAll(records)
	stage.Done(logger.Fields{
		"collectible": result.ClassCounts.Collectible,
		"excluded":    result.ClassCounts.Excluded,
	})

	// Step 3: age
	stage = logger.StartStage(log, "aging")
	result.AgingSummary = aging.Apply(records, result.AsOf)
	stage.Done(logger.Fields{
		"aged":    result.AgingSummary.Aged,
		"unknown": result.AgingSummary.Unknown,
	})

	if err := validateRecords(records); err != nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "record validation", err)
	}

	// Step 4: aggregate
	stage = logger.StartStage(log, "aggregate")
	result.Metrics = metrics.Aggregate(records, stats.ErrorCount)
	stage.Done(logger.Fields{
		"collectible_ar_total": result.Metrics.CollectibleARTotal.StringFixed(2),
		"collection_rate":      result.Metrics.CollectionRate.StringFixed(2),
	})

	SortForReport(records)
	result.Records = records

	elapsed := time.Since(startTime)
	result.ProcessingStats.TotalProcessingTime = elapsed
	if elapsed > 0 {
		result.ProcessingStats.RecordsPerSecond = float64(len(records)) / elapsed.Seconds()
	}

	log.WithFields(logger.Fields{
		"records":  len(records),
		"duration": elapsed.String(),
	}).Info("Analysis completed")

	return result, nil
}

func validateRecords(records []*models.InvoiceRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SortForReport orders records by days past due, largest first. Records
// without a day count go last; ties keep their input order.
func SortForReport(records []*models.InvoiceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].DaysPastDue, records[j].DaysPastDue
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}
