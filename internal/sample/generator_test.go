package sample

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-ar-aging-service/internal/parsers"
	"golang-ar-aging-service/pkg/errors"
)

var (
	testAsOf       = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	wireFeeCeiling = decimal.NewFromInt(100)
)

func newTestGenerator(t *testing.T, mutate func(*Config)) *Generator {
	t.Helper()
	config := DefaultConfig()
	config.AsOf = testAsOf
	config.Count = 120
	if mutate != nil {
		mutate(config)
	}
	g, err := NewGenerator(config)
	require.NoError(t, err)
	return g
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero count", func(c *Config) { c.Count = 0 }, false},
		{"missing as-of", func(c *Config) { c.AsOf = time.Time{} }, false},
		{"paid rate above one", func(c *Config) { c.PaidRate = 1.5 }, false},
		{"negative wire fee rate", func(c *Config) { c.WireFeeRate = -0.1 }, false},
		{"inverted amount range", func(c *Config) { c.MaxAmount = c.MinAmount }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Count = -1

	_, err := NewGenerator(config)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestGenerate_Deterministic(t *testing.T) {
	first := newTestGenerator(t, nil).Generate()
	second := newTestGenerator(t, nil).Generate()

	require.Len(t, first, 120)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].DocumentNumber, second[i].DocumentNumber)
		assert.True(t, first[i].Amount.Equal(second[i].Amount), "row %d amount differs", i)
		assert.Equal(t, first[i].DueDate, second[i].DueDate)
		assert.Equal(t, first[i].PaymentDate, second[i].PaymentDate)
	}

	other := newTestGenerator(t, func(c *Config) { c.Seed = 7 }).Generate()
	differs := false
	for i := range first {
		if !first[i].Amount.Equal(other[i].Amount) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "different seeds should produce different ledgers")
}

func TestGenerate_LedgerShape(t *testing.T) {
	invoices := newTestGenerator(t, func(c *Config) {
		c.WireFeeRate = 0.2
		c.UnknownDueRate = 0.1
	}).Generate()

	assert.Equal(t, "3148", invoices[0].DocumentNumber)

	var paid, unknownDue, small int
	for _, inv := range invoices {
		assert.False(t, inv.InvoiceDate.After(testAsOf))
		assert.True(t, inv.Amount.IsPositive())
		if inv.DueDate == nil {
			unknownDue++
			assert.Nil(t, inv.PaymentDate)
		}
		if inv.PaymentDate != nil {
			paid++
			assert.False(t, inv.PaymentDate.After(testAsOf))
			assert.False(t, inv.PaymentDate.Before(inv.InvoiceDate))
		}
		if inv.Amount.LessThanOrEqual(wireFeeCeiling) {
			small++
		}
	}

	assert.Positive(t, paid)
	assert.Positive(t, unknownDue)
	assert.Positive(t, small)
	assert.Less(t, paid, len(invoices))
}

func TestWrite_WorkbookRoundTrip(t *testing.T) {
	for _, pivot := range []bool{true, false} {
		name := "canonical headers"
		if pivot {
			name = "pivot headers"
		}
		t.Run(name, func(t *testing.T) {
			g := newTestGenerator(t, func(c *Config) { c.PivotHeaders = pivot })
			invoices := g.Generate()
			path := filepath.Join(t.TempDir(), "ledger.xlsx")
			require.NoError(t, g.Write(path, invoices))

			assertParsesBack(t, path, invoices)
		})
	}
}

func TestWrite_CSVRoundTrip(t *testing.T) {
	g := newTestGenerator(t, nil)
	invoices := g.Generate()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, g.Write(path, invoices))

	assertParsesBack(t, path, invoices)
}

func TestWrite_UnsupportedExtension(t *testing.T) {
	g := newTestGenerator(t, nil)
	err := g.Write(filepath.Join(t.TempDir(), "ledger.txt"), g.Generate())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFile))
}

func assertParsesBack(t *testing.T, path string, invoices []Invoice) {
	t.Helper()

	parser, err := parsers.NewInvoiceParser(nil)
	require.NoError(t, err)
	records, stats, err := parser.ParseInvoices(context.Background(), path)
	require.NoError(t, err)
	require.False(t, stats.HasErrors(), stats.GetSampleErrors(0))
	require.Len(t, records, len(invoices))

	for i, rec := range records {
		inv := invoices[i]
		assert.Equal(t, inv.DocumentNumber, rec.DocumentID)
		assert.Equal(t, inv.Name, rec.CustomerName)
		require.True(t, rec.Amount.Valid)
		assert.True(t, inv.Amount.Equal(rec.Amount.Decimal), "row %d: %s != %s", i, inv.Amount, rec.Amount.Decimal)
		require.NotNil(t, rec.InvoiceDate)
		assert.True(t, inv.InvoiceDate.Equal(*rec.InvoiceDate))
		assert.Equal(t, inv.DueDate == nil, rec.DueDate == nil)
		assert.Equal(t, inv.PaymentDate == nil, rec.PaymentDate == nil)
		if inv.DueDate != nil && rec.DueDate != nil {
			assert.True(t, inv.DueDate.Equal(*rec.DueDate))
		}
	}
}
