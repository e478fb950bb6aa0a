package parsers

import (
	"context"
	"time"

	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

// InvoiceParser turns a receivables spreadsheet into invoice records
type InvoiceParser struct {
	*BaseParser
	config     *InvoiceParserConfig
	normalizer *ColumnNormalizer
	logger     logger.Logger
}

// NewInvoiceParser creates a new InvoiceParser with the given configuration
func NewInvoiceParser(config *InvoiceParserConfig) (*InvoiceParser, error) {
	if config == nil {
		config = DefaultInvoiceParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"column_mapping",
			config.ColumnMapping,
			err,
		)
	}

	normalizer, err := NewColumnNormalizer(config.ColumnMapping)
	if err != nil {
		return nil, err
	}

	log := logger.GetGlobalLogger().WithComponent("invoice_parser")
	log.WithFields(logger.Fields{
		"mapped_columns": len(config.ColumnMapping),
		"sheet":          config.Sheet,
	}).Debug("Created invoice parser")

	return &InvoiceParser{
		BaseParser: NewBaseParser(config),
		config:     config,
		normalizer: normalizer,
		logger:     log,
	}, nil
}

// ParseInvoices reads every data row of path. Schema and I/O problems are
// fatal; unparseable cells are kept as issues on the record.
func (ip *InvoiceParser) ParseInvoices(ctx context.Context, path string) ([]*models.InvoiceRecord, *ParseStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ip.logger.WithFields(logger.Fields{
		"file_path": path,
		"operation": "parse_invoices",
	}).Info("Starting invoice parsing")

	stats := NewParseStats()
	stats.Source = path

	table, err := ip.ReadTable(path)
	if err != nil {
		return nil, stats, err
	}
	stats.Sheet = table.Sheet

	if table.Headers == nil {
		ip.logger.WithField("file_path", path).Warn("Input has no header row")
		return []*models.InvoiceRecord{}, stats, nil
	}

	layout, err := ip.normalizer.Resolve(table.Headers)
	if err != nil {
		if analyzerErr, ok := errors.AsAnalyzerError(err); ok {
			analyzerErr.WithContext("file", path)
		}
		return nil, stats, err
	}

	var progress *logger.ProgressTracker
	if ip.config.ShowProgress {
		progress = logger.NewProgressTracker(logger.ProgressConfig{
			Operation: "parse invoices",
			Total:     int64(len(table.Rows)),
			Every:     ip.config.ProgressEvery,
			Logger:    ip.logger,
		})
	}

	// Only workbook cells carry Excel date serials
	dateParser := models.ParseOptionalTextDate
	if table.Workbook {
		dateParser = models.ParseOptionalDate
	}

	records := make([]*models.InvoiceRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			cancelErr := errors.InternalError(errors.CodeCancelled, "invoice parsing", err)
			if progress != nil {
				progress.CompleteWithError(cancelErr)
			}
			return nil, stats, cancelErr
		}

		stats.TotalRows++
		if progress != nil {
			progress.Increment()
		}

		malformed := table.Malformed[i]
		if ip.config.SkipEmptyRows && isEmptyRecord(row) && malformed == nil {
			stats.SkippedEmpty++
			continue
		}

		rowNumber := table.HeaderRow + i + 1
		record := ip.parseRecord(row, rowNumber, layout, path, dateParser, stats)
		if malformed != nil {
			rowErr := errors.MalformedRecordError(path, rowNumber, malformed)
			stats.AddError(rowErr)
			record.AddParseIssue(rowErr.Note())
		}
		records = append(records, record)
		stats.RecordsParsed++
		if len(record.ParseIssues) > 0 {
			stats.RecordsWithIssues++
		}
	}

	if progress != nil {
		progress.Complete()
	}

	ip.logger.WithFields(logger.Fields{
		"file_path":      path,
		"sheet":          stats.Sheet,
		"total_rows":     stats.TotalRows,
		"records_parsed": stats.RecordsParsed,
		"with_issues":    stats.RecordsWithIssues,
		"error_count":    stats.ErrorCount,
	}).Info("Invoice parsing completed")

	if stats.HasErrors() {
		ip.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Some cells could not be parsed")
	}

	return records, stats, nil
}

func (ip *InvoiceParser) parseRecord(row []string, rowNumber int, layout *HeaderMap, path string,
	parseDate func(string) (*time.Time, error), stats *ParseStats) *models.InvoiceRecord {
	record := &models.InvoiceRecord{
		DocumentID:   cell(row, layout.Index(FieldDocumentNumber)),
		CustomerName: cell(row, layout.Index(FieldName)),
		Row:          rowNumber,
	}

	issue := func(rowErr *errors.RowParseError) {
		stats.AddError(rowErr)
		record.AddParseIssue(rowErr.Note())
	}

	raw := cell(row, layout.Index(FieldAmount))
	amount, err := models.ParseNullDecimal(raw)
	if err != nil {
		issue(errors.InvalidAmountError(path, rowNumber, FieldAmount, raw, err))
	}
	record.Amount = amount

	dates := []struct {
		field  string
		target **time.Time
	}{
		{FieldInvoiceDate, &record.InvoiceDate},
		{FieldDueDate, &record.DueDate},
		{FieldPaymentDate, &record.PaymentDate},
	}
	for _, d := range dates {
		raw := cell(row, layout.Index(d.field))
		parsed, err := parseDate(raw)
		if err != nil {
			issue(errors.InvalidDateError(path, rowNumber, d.field, raw, err))
		}
		*d.target = parsed
	}

	for idx, header := range layout.Extras {
		value := cell(row, idx)
		if value == "" {
			continue
		}
		if record.Extra == nil {
			record.Extra = make(map[string]string)
		}
		record.Extra[header] = value
	}

	return record
}
