// Package parsers reads receivables spreadsheets into invoice records.
//
// Inputs are .xlsx workbooks (first sheet unless one is named) or .csv files
// with a header row. Headers are resolved onto canonical fields by the
// ColumnNormalizer; missing required fields abort with a schema error before
// any row is parsed. Cells that cannot be parsed are recorded as parse issues
// on the record and in ParseStats, and the record is kept.
package parsers

import (
	"bufio"
	"bytes"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is the raw content of one sheet: a header row and the rows below it.
// Malformed maps an index into Rows to the reason that record was only
// partly read.
type Table struct {
	Source    string
	Sheet     string
	Headers   []string
	Rows      [][]string
	HeaderRow int
	Workbook  bool
	Malformed map[int]error
}

// BaseParser opens spreadsheet files and returns their raw table
type BaseParser struct {
	config *InvoiceParserConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *InvoiceParserConfig) *BaseParser {
	if config == nil {
		config = DefaultInvoiceParserConfig()
	}

	return &BaseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("base_parser"),
	}
}

// ReadTable reads the header row and data rows of path. A file with no
// non-blank rows yields a Table with nil Headers.
func (bp *BaseParser) ReadTable(path string) (*Table, error) {
	bp.logger.WithField("file_path", path).Debug("Opening input file")

	if err := checkReadable(path); err != nil {
		bp.logger.WithError(err).WithField("file_path", path).Error("Failed to open input file")
		return nil, err
	}

	var rows [][]string
	var malformed map[int]error
	var sheet string
	var err error

	workbook := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		workbook = true
		rows, sheet, err = bp.readWorkbook(path)
	case ".csv", ".txt":
		rows, malformed, err = bp.readCSV(path)
	default:
		return nil, errors.FileError(errors.CodeUnsupportedExt, path, nil)
	}
	if err != nil {
		return nil, err
	}

	table := &Table{Source: path, Sheet: sheet, Workbook: workbook}
	for i, row := range rows {
		if isEmptyRecord(row) && malformed[i] == nil {
			continue
		}
		table.Headers = cleanHeaders(row)
		table.HeaderRow = i + 1
		table.Rows = rows[i+1:]
		for idx, reason := range malformed {
			if idx > i {
				if table.Malformed == nil {
					table.Malformed = make(map[int]error)
				}
				table.Malformed[idx-i-1] = reason
			}
		}
		break
	}

	bp.logger.WithFields(logger.Fields{
		"file_path": path,
		"sheet":     sheet,
		"headers":   table.Headers,
		"rows":      len(table.Rows),
	}).Debug("Read input table")

	return table, nil
}

func checkReadable(path string) error {
	file, err := os.Open(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return errors.FileError(errors.CodeFileNotFound, path, err)
		case os.IsPermission(err):
			return errors.FileError(errors.CodeFilePermission, path, err)
		default:
			return errors.FileError(errors.CodeReadFailed, path, err)
		}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, path, fmt.Errorf("path is a directory"))
	}
	return nil
}

func (bp *BaseParser) readWorkbook(path string) ([][]string, string, error) {
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return nil, "", errors.FileError(errors.CodeFileLocked, path, nil)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer f.Close()

	sheet := bp.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, "", errors.FileError(errors.CodeFileCorrupted, path, fmt.Errorf("workbook has no sheets"))
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, "", errors.ConfigurationError(errors.CodeInvalidConfig, "sheet", sheet, err).
			WithSuggestion(fmt.Sprintf("available sheets: %s", strings.Join(f.GetSheetList(), ", ")))
	}

	// Raw values keep dates as serial numbers and amounts unformatted
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, "", errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	return rows, sheet, nil
}

// readCSV returns every record of the file. A record the reader cannot
// split cleanly is kept with the fields read so far and its index is
// returned in malformed.
func (bp *BaseParser) readCSV(path string) ([][]string, map[int]error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.FileError(errors.CodeReadFailed, path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if bp.config.ValidateEncoding {
		if err := validateEncoding(data, path); err != nil {
			return nil, nil, err
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	var malformed map[int]error
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !stderrors.As(err, &parseErr) {
				return nil, nil, errors.FileError(errors.CodeReadFailed, path, err)
			}
			if malformed == nil {
				malformed = make(map[int]error)
			}
			malformed[len(rows)] = parseErr.Err
			bp.logger.WithFields(logger.Fields{
				"file_path": path,
				"line":      parseErr.Line,
			}).WithError(err).Warn("Malformed CSV record kept")
			if record == nil {
				record = []string{}
			}
		}
		rows = append(rows, record)
	}

	return rows, malformed, nil
}

func validateEncoding(data []byte, path string) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if !utf8.Valid(scanner.Bytes()) {
			return errors.ParseError(
				errors.CodeEncodingError,
				path,
				line,
				"encoding",
				"",
				fmt.Errorf("invalid UTF-8 encoding detected"),
			)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	return nil
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		cleaned[i] = strings.TrimSpace(header)
	}
	return cleaned
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	Source            string `json:"source"`
	Sheet             string `json:"sheet,omitempty"`
	TotalRows         int    `json:"total_rows"`
	RecordsParsed     int    `json:"records_parsed"`
	RecordsWithIssues int    `json:"records_with_issues"`
	SkippedEmpty      int    `json:"skipped_empty"`
	ErrorCount        int    `json:"error_count"`

	issues *errors.ParseErrorCollector
}

// NewParseStats creates a new ParseStats instance
func NewParseStats() *ParseStats {
	return &ParseStats{
		issues: errors.NewParseErrorCollector(),
	}
}

// AddError adds an error to the parsing statistics
func (ps *ParseStats) AddError(err *errors.RowParseError) {
	if err == nil {
		return
	}
	if ps.issues == nil {
		ps.issues = errors.NewParseErrorCollector()
	}
	ps.issues.Add(err)
	ps.ErrorCount = ps.issues.Len()
}

// HasErrors returns true if there were any parsing errors
func (ps *ParseStats) HasErrors() bool {
	return ps.ErrorCount > 0
}

// Errors returns the recorded parse errors in input order
func (ps *ParseStats) Errors() []*errors.RowParseError {
	if ps.issues == nil {
		return nil
	}
	return ps.issues.GetErrors()
}

// CountByCode tallies the recorded parse errors per error code
func (ps *ParseStats) CountByCode() map[errors.ErrorCode]int {
	if ps.issues == nil {
		return map[errors.ErrorCode]int{}
	}
	return ps.issues.CountByCode()
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Read %d rows, %d records (%d with issues), %d unparseable values",
		ps.TotalRows, ps.RecordsParsed, ps.RecordsWithIssues, ps.ErrorCount)
}

// GetSampleErrors returns a sample of the parsing errors for logging
func (ps *ParseStats) GetSampleErrors(maxSamples int) []string {
	errs := ps.Errors()
	if len(errs) == 0 {
		return nil
	}

	limit := len(errs)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}

	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, errs[i].Error())
	}
	return samples
}
