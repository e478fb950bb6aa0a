// Package sample generates deterministic receivables ledgers for demos and
// tests. A ledger mixes paid and unpaid invoices across every aging bucket
// together with the rows the classifier excludes: tax withholding documents,
// wire fees and invoices without a due date.
package sample

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/internal/parsers"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

// SheetName is the sheet written into generated workbooks
const SheetName = "AR Detail"

var customers = []string{
	"Northwind Traders",
	"Contoso Pharmaceuticals",
	"Fabrikam Industries",
	"Tailspin Toys",
	"Wide World Importers",
	"Adventure Works Cycles",
	"Litware Systems",
	"Proseware Analytics",
	"Bharat Components Pvt Ltd",
	"Woodgrove Bank",
}

var paymentTerms = []int{15, 30, 30, 30, 45, 60}

// Config controls the shape of a generated ledger
type Config struct {
	Count           int             `json:"count"`
	Seed            int64           `json:"seed"`
	AsOf            time.Time       `json:"as_of"`
	PivotHeaders    bool            `json:"pivot_headers"`
	PaidRate        float64         `json:"paid_rate"`
	WireFeeRate     float64         `json:"wire_fee_rate"`
	UnknownDueRate  float64         `json:"unknown_due_rate"`
	MinAmount       decimal.Decimal `json:"min_amount"`
	MaxAmount       decimal.Decimal `json:"max_amount"`
	WithholdingDocs []string        `json:"withholding_docs"`
}

// DefaultConfig returns a 200-row ledger aged against today
func DefaultConfig() *Config {
	return &Config{
		Count:           200,
		Seed:            42,
		AsOf:            models.DateOnly(time.Now()),
		PivotHeaders:    true,
		PaidRate:        0.55,
		WireFeeRate:     0.05,
		UnknownDueRate:  0.03,
		MinAmount:       decimal.NewFromInt(150),
		MaxAmount:       decimal.NewFromInt(25000),
		WithholdingDocs: []string{"3148"},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", c.Count)
	}
	if c.AsOf.IsZero() {
		return fmt.Errorf("as-of date is required")
	}
	for name, rate := range map[string]float64{
		"paid rate":        c.PaidRate,
		"wire fee rate":    c.WireFeeRate,
		"unknown due rate": c.UnknownDueRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %.2f", name, rate)
		}
	}
	if !c.MinAmount.IsPositive() || c.MaxAmount.LessThanOrEqual(c.MinAmount) {
		return fmt.Errorf("amount range must be positive and increasing: %s..%s", c.MinAmount, c.MaxAmount)
	}
	return nil
}

// Invoice is one generated ledger row
type Invoice struct {
	DocumentNumber string
	Name           string
	InvoiceDate    time.Time
	DueDate        *time.Time
	PaymentDate    *time.Time
	Amount         decimal.Decimal
}

// Generator produces ledgers from a seeded random source
type Generator struct {
	config *Config
	logger logger.Logger
}

// NewGenerator creates a new Generator
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "sample", nil, err)
	}
	return &Generator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("sample_generator"),
	}, nil
}

// Generate returns Count invoices. The same configuration always yields the
// same ledger.
func (g *Generator) Generate() []Invoice {
	rng := rand.New(rand.NewSource(g.config.Seed))
	asOf := models.DateOnly(g.config.AsOf)
	invoices := make([]Invoice, 0, g.config.Count)

	withholding := g.config.WithholdingDocs
	nextDoc := 5001
	for i := 0; i < g.config.Count; i++ {
		if i < len(withholding) {
			invoices = append(invoices, g.invoice(rng, asOf, withholding[i], false))
			continue
		}
		doc := fmt.Sprintf("%d", nextDoc)
		nextDoc++
		invoices = append(invoices, g.invoice(rng, asOf, doc, rng.Float64() < g.config.WireFeeRate))
	}

	return invoices
}

func (g *Generator) invoice(rng *rand.Rand, asOf time.Time, doc string, wireFee bool) Invoice {
	// invoices issued up to 180 days before the as-of date
	invoiceDate := asOf.AddDate(0, 0, -(1 + rng.Intn(180)))
	inv := Invoice{
		DocumentNumber: doc,
		Name:           customers[rng.Intn(len(customers))],
		InvoiceDate:    invoiceDate,
	}

	if wireFee {
		cents := 500 + rng.Int63n(9500)
		inv.Amount = decimal.New(cents, -2)
	} else {
		spread := g.config.MaxAmount.Sub(g.config.MinAmount)
		inv.Amount = decimal.NewFromFloat(rng.Float64()).Mul(spread).Add(g.config.MinAmount).Round(2)
	}

	if rng.Float64() < g.config.UnknownDueRate {
		return inv
	}

	due := invoiceDate.AddDate(0, 0, paymentTerms[rng.Intn(len(paymentTerms))])
	inv.DueDate = &due

	if rng.Float64() < g.config.PaidRate {
		// between 10 days early and 40 days late, never after the as-of date
		paid := due.AddDate(0, 0, rng.Intn(51)-10)
		if paid.After(asOf) {
			paid = asOf
		}
		if paid.Before(invoiceDate) {
			paid = invoiceDate
		}
		inv.PaymentDate = &paid
	}

	return inv
}

// Headers returns the header row written for the configured layout
func (g *Generator) Headers() []string {
	if !g.config.PivotHeaders {
		return parsers.RequiredFields()
	}
	return []string{
		parsers.FieldDocumentNumber,
		parsers.FieldName,
		"Maximum of Date",
		"Maximum of Due Date/Receive By",
		"Maximum of Payment Date",
		"Sum of Amount",
	}
}

// Write saves invoices to path as .xlsx or .csv, by extension
func (g *Generator) Write(path string, invoices []Invoice) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		err = g.writeWorkbook(path, invoices)
	case ".csv":
		err = g.writeCSV(path, invoices)
	default:
		return errors.FileError(errors.CodeWriteFailed, path, fmt.Errorf("sample output must be .xlsx or .csv"))
	}
	if err != nil {
		return err
	}

	g.logger.WithFields(logger.Fields{
		"output_path": path,
		"invoices":    len(invoices),
		"seed":        g.config.Seed,
		"as_of":       g.config.AsOf.Format("2006-01-02"),
	}).Info("Sample ledger written")
	return nil
}

func (g *Generator) writeWorkbook(path string, invoices []Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.AnalysisError(errors.CodeReportFailed, "sample workbook", err)
	}

	dateFormat := "mm/dd/yyyy"
	currencyFormat := `"$"#,##0.00`
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return errors.AnalysisError(errors.CodeReportFailed, "sample workbook", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFormat})
	if err != nil {
		return errors.AnalysisError(errors.CodeReportFailed, "sample workbook", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return errors.AnalysisError(errors.CodeReportFailed, "sample workbook", err)
	}

	header := make([]interface{}, 0, 6)
	for _, h := range g.Headers() {
		header = append(header, h)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return errors.AnalysisError(errors.CodeReportFailed, "sample workbook", err)
	}

	dateCell := func(t *time.Time) interface{} {
		if t == nil {
			return ""
		}
		return excelize.Cell{StyleID: dateStyle, Value: *t}
	}

	for i, inv := range invoices {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.AnalysisError(errors.CodeReportFailed, "sample workbook", err)
		}
		row := []interface{}{
			inv.DocumentNumber,
			inv.Name,
			dateCell(&inv.InvoiceDate),
			dateCell(inv.DueDate),
			dateCell(inv.PaymentDate),
			excelize.Cell{StyleID: amountStyle, Value: inv.Amount.InexactFloat64()},
		}
		if err := sw.SetRow(cell, row); err != nil {
			return errors.AnalysisError(errors.CodeReportFailed, "sample workbook", err)
		}
	}

	if err := sw.Flush(); err != nil {
		return errors.AnalysisError(errors.CodeReportFailed, "sample workbook", err)
	}
	if err := f.SaveAs(path); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	return nil
}

func (g *Generator) writeCSV(path string, invoices []Invoice) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(g.Headers()); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}

	for _, inv := range invoices {
		record := []string{
			inv.DocumentNumber,
			inv.Name,
			models.FormatDate(&inv.InvoiceDate),
			models.FormatDate(inv.DueDate),
			models.FormatDate(inv.PaymentDate),
			inv.Amount.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return errors.FileError(errors.CodeWriteFailed, path, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	return file.Close()
}
