package reporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"golang-ar-aging-service/internal/analyzer"
	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

// Sheet names of the analysis workbook, in tab order
const (
	SheetExecutiveSummary    = "Executive Summary"
	SheetInvoiceData         = "Invoice Data"
	SheetCollectionsAnalysis = "Collections Analysis"
)

// Number formats
const (
	dateFormat     = "mm/dd/yyyy"
	currencyFormat = `"$"#,##0.00`
	percentFormat  = "0.0%"
)

// Invoice Data columns
var invoiceHeaders = []string{
	"Document Number",
	"Name",
	"Invoice Date",
	"Due Date",
	"Payment Date",
	"Amount",
	"Days Past Due",
	"Status",
	"Aging Bucket",
	"Notes",
}

var invoiceColumnWidths = map[string]float64{
	"A": 15, "B": 40, "C": 12, "D": 12, "E": 12,
	"F": 15, "G": 14, "H": 10, "I": 14, "J": 50,
}

// Collections Analysis layout
const (
	analysisHeaderRow = 3
	analysisFirstRow  = 4
)

var analysisHeaders = []string{"Aging Category", "Total Amount", "Invoice Count", "Percentage"}

var analysisColumnWidths = map[string]float64{"A": 24, "B": 18, "C": 15, "D": 12}

var hundred = decimal.NewFromInt(100)

// WorkbookWriter renders an analysis result as an xlsx workbook
type WorkbookWriter struct {
	logger logger.Logger
}

// NewWorkbookWriter creates a new workbook writer
func NewWorkbookWriter() *WorkbookWriter {
	return &WorkbookWriter{
		logger: logger.GetGlobalLogger().WithComponent("workbook_writer"),
	}
}

// workbookStyles holds the style ids shared by the three sheets
type workbookStyles struct {
	title    int
	subtitle int
	section  int
	action   int
	label    int
	header   int
	date     int
	currency int
	percent  int
	note     int
	totalCur int
	totalPct int
}

// Write renders result to path. The workbook is built in a temporary file in
// the target directory and renamed into place, so a failed run leaves no
// partial artifact behind.
func (w *WorkbookWriter) Write(result *analyzer.Result, path string) error {
	if result == nil || result.Metrics == nil {
		return errors.ValidationError(errors.CodeMissingField, "result", nil, nil)
	}
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return errors.FileError(errors.CodeWriteFailed, path, fmt.Errorf("output must be an .xlsx file"))
	}

	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, dir, err)
	}

	w.logger.WithFields(logger.Fields{
		"output_path": path,
		"records":     len(result.Records),
		"run_id":      result.RunID.String(),
	}).Info("Writing analysis workbook")

	f, err := w.build(result)
	if err != nil {
		return errors.AnalysisError(errors.CodeReportFailed, "workbook rendering", err)
	}
	defer f.Close()

	tmp, err := os.CreateTemp(dir, ".araging-*.xlsx")
	if err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	committed = true

	w.logger.WithField("output_path", path).Info("Analysis workbook written")
	return nil
}

func (w *WorkbookWriter) build(result *analyzer.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SheetExecutiveSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename default sheet: %w", err)
	}
	for _, name := range []string{SheetInvoiceData, SheetCollectionsAnalysis} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	steps := []struct {
		name string
		fill func(*excelize.File, *analyzer.Result, *workbookStyles) error
	}{
		{SheetExecutiveSummary, fillExecutiveSummary},
		{SheetInvoiceData, fillInvoiceData},
		{SheetCollectionsAnalysis, fillCollectionsAnalysis},
	}
	for _, step := range steps {
		if err := step.fill(f, result, styles); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to fill %s: %w", step.name, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func newWorkbookStyles(f *excelize.File) (*workbookStyles, error) {
	custom := func(format string) *string { return &format }
	greyFill := excelize.Fill{Type: "pattern", Color: []string{"D3D3D3"}, Pattern: 1}
	pinkFill := excelize.Fill{Type: "pattern", Color: []string{"FFB6C1"}, Pattern: 1}
	headerFill := excelize.Fill{Type: "pattern", Color: []string{"E6E6FA"}, Pattern: 1}

	s := &workbookStyles{}
	var err error
	add := func(target *int, style *excelize.Style) {
		if err != nil {
			return
		}
		*target, err = f.NewStyle(style)
	}

	add(&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 18}, Alignment: &excelize.Alignment{Horizontal: "center"}})
	add(&s.subtitle, &excelize.Style{Font: &excelize.Font{Size: 12, Color: "666666"}, Alignment: &excelize.Alignment{Horizontal: "center"}})
	add(&s.section, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}, Fill: greyFill})
	add(&s.action, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}, Fill: pinkFill})
	add(&s.label, &excelize.Style{Font: &excelize.Font{Bold: true}})
	add(&s.header, &excelize.Style{Font: &excelize.Font{Bold: true}, Fill: headerFill})
	add(&s.date, &excelize.Style{CustomNumFmt: custom(dateFormat)})
	add(&s.currency, &excelize.Style{CustomNumFmt: custom(currencyFormat)})
	add(&s.percent, &excelize.Style{CustomNumFmt: custom(percentFormat)})
	add(&s.note, &excelize.Style{Font: &excelize.Font{Italic: true, Color: "666666"}})
	add(&s.totalCur, &excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: custom(currencyFormat)})
	add(&s.totalPct, &excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: custom(percentFormat)})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	return s, nil
}

// sheetWriter writes cells into one sheet, keeping the first error
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (sw *sheetWriter) cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil && sw.err == nil {
		sw.err = err
	}
	return name
}

func (sw *sheetWriter) value(col, row int, v interface{}) {
	if sw.err != nil {
		return
	}
	sw.err = sw.f.SetCellValue(sw.sheet, sw.cellName(col, row), v)
}

func (sw *sheetWriter) formula(col, row int, formula string) {
	if sw.err != nil {
		return
	}
	sw.err = sw.f.SetCellFormula(sw.sheet, sw.cellName(col, row), formula)
}

func (sw *sheetWriter) style(col, row, style int) {
	if sw.err != nil {
		return
	}
	cell := sw.cellName(col, row)
	sw.err = sw.f.SetCellStyle(sw.sheet, cell, cell, style)
}

func (sw *sheetWriter) styledValue(col, row int, v interface{}, style int) {
	sw.value(col, row, v)
	sw.style(col, row, style)
}

func (sw *sheetWriter) merge(row, fromCol, toCol int) {
	if sw.err != nil {
		return
	}
	sw.err = sw.f.MergeCell(sw.sheet, sw.cellName(fromCol, row), sw.cellName(toCol, row))
}

func (sw *sheetWriter) widths(widths map[string]float64) {
	for col, width := range widths {
		if sw.err != nil {
			return
		}
		sw.err = sw.f.SetColWidth(sw.sheet, col, col, width)
	}
}

func fillExecutiveSummary(f *excelize.File, result *analyzer.Result, s *workbookStyles) error {
	m := result.Metrics
	sw := &sheetWriter{f: f, sheet: SheetExecutiveSummary}

	sw.styledValue(1, 1, "ACCOUNTS RECEIVABLE EXECUTIVE SUMMARY", s.title)
	sw.merge(1, 1, 6)
	sw.styledValue(1, 2, "As of "+result.AsOf.Format("January 2, 2006"), s.subtitle)
	sw.merge(2, 1, 6)
	sw.styledValue(1, 3, "Run "+result.RunID.String(), s.subtitle)
	sw.merge(3, 1, 6)

	row := 5
	sw.styledValue(1, row, "KEY METRICS", s.section)
	row++

	keyMetrics := [][2]string{
		{"Total Payments Received:", money2(m.PaidCollectibleTotal)},
		{"Collectible AR (paid and unpaid):", money2(m.CollectibleARTotal)},
		{"Collectible Outstanding AR:", money2(m.UnpaidCollectibleTotal)},
		{"Excluded Items:", money2(m.ExcludedTotal)},
	}
	for _, reason := range m.Reasons() {
		keyMetrics = append(keyMetrics, [2]string{"  - " + reason.Reason + ":", money2(reason.Amount)})
	}
	keyMetrics = append(keyMetrics,
		[2]string{"Collectible Invoices:", fmt.Sprintf("%d", m.CollectibleCount)},
		[2]string{"Collectible Outstanding Invoices:", fmt.Sprintf("%d", m.UnpaidCount)},
		[2]string{"Collection Rate (by amount):", m.CollectionRate.StringFixed(1) + "%"},
		[2]string{"Collection Rate (by count):", m.CollectionRateByCount.StringFixed(1) + "%"},
		[2]string{"Unparseable Values:", fmt.Sprintf("%d", m.ParseWarningCount)},
	)
	for _, kv := range keyMetrics {
		sw.styledValue(1, row, kv[0], s.label)
		sw.value(2, row, kv[1])
		row++
	}

	row++
	sw.styledValue(1, row, "AGING SUMMARY", s.section)
	row++
	for i, header := range []string{"Category", "Amount", "Percentage", "Invoice Count"} {
		sw.styledValue(i+1, row, header, s.header)
	}
	row++
	for _, bt := range m.Buckets() {
		sw.value(1, row, bt.Bucket.Label())
		sw.value(2, row, money2(bt.Amount))
		sw.value(3, row, bt.Percentage.StringFixed(1)+"%")
		sw.value(4, row, bt.Count)
		row++
	}

	row++
	sw.styledValue(1, row, "KEY FINDINGS", s.section)
	row++
	for _, finding := range m.Findings() {
		sw.value(1, row, "• "+finding)
		sw.merge(row, 1, 6)
		row++
	}

	row++
	sw.styledValue(1, row, "RECOMMENDED ACTIONS", s.action)
	row++
	for i, action := range m.RecommendedActions() {
		sw.value(1, row, fmt.Sprintf("%d. %s", i+1, action))
		sw.merge(row, 1, 6)
		row++
	}

	sw.widths(map[string]float64{"A": 36, "B": 18, "C": 14, "D": 14})
	return sw.err
}

func fillInvoiceData(f *excelize.File, result *analyzer.Result, s *workbookStyles) error {
	sw := &sheetWriter{f: f, sheet: SheetInvoiceData}

	for i, header := range invoiceHeaders {
		sw.styledValue(i+1, 1, header, s.header)
	}

	for i, r := range result.Records {
		row := i + 2
		sw.value(1, row, r.DocumentID)
		sw.value(2, row, r.CustomerName)

		writeDate(sw, 3, row, r.InvoiceDate, s.date)
		writeDate(sw, 4, row, r.DueDate, s.date)
		writeDate(sw, 5, row, r.PaymentDate, s.date)

		if r.Amount.Valid {
			sw.styledValue(6, row, r.Amount.Decimal.InexactFloat64(), s.currency)
		}
		if r.DaysPastDue != nil {
			sw.value(7, row, *r.DaysPastDue)
		}
		sw.value(8, row, r.Status())
		if r.AgingBucket != "" {
			sw.value(9, row, r.AgingBucket.String())
		}
		if notes := r.Notes(); notes != "" {
			sw.styledValue(10, row, notes, s.note)
		}
	}

	sw.widths(invoiceColumnWidths)
	if sw.err == nil {
		sw.err = f.SetPanes(SheetInvoiceData, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return sw.err
}

func writeDate(sw *sheetWriter, col, row int, date *time.Time, style int) {
	if date == nil {
		return
	}
	sw.styledValue(col, row, *date, style)
}

func fillCollectionsAnalysis(f *excelize.File, result *analyzer.Result, s *workbookStyles) error {
	m := result.Metrics
	sw := &sheetWriter{f: f, sheet: SheetCollectionsAnalysis}

	sw.styledValue(1, 1, "Outstanding AR Analysis by Aging", s.title)
	sw.merge(1, 1, 4)

	for i, header := range analysisHeaders {
		sw.styledValue(i+1, analysisHeaderRow, header, s.header)
	}

	row := analysisFirstRow
	for _, bt := range m.Buckets() {
		sw.value(1, row, bt.Bucket.Label())
		sw.styledValue(2, row, bt.Amount.InexactFloat64(), s.currency)
		sw.value(3, row, bt.Count)
		sw.styledValue(4, row, bt.Percentage.Div(hundred).InexactFloat64(), s.percent)
		row++
	}

	last := row - 1
	sw.styledValue(1, row, "TOTAL", s.label)
	sw.formula(2, row, fmt.Sprintf("SUM(B%d:B%d)", analysisFirstRow, last))
	sw.style(2, row, s.totalCur)
	sw.formula(3, row, fmt.Sprintf("SUM(C%d:C%d)", analysisFirstRow, last))
	sw.style(3, row, s.label)
	sw.formula(4, row, fmt.Sprintf("SUM(D%d:D%d)", analysisFirstRow, last))
	sw.style(4, row, s.totalPct)

	sw.widths(analysisColumnWidths)
	return sw.err
}

func money2(d decimal.Decimal) string {
	return models.FormatCurrency(d, 2)
}
