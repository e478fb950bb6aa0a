package classifier

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/pkg/errors"
)

func invoice(doc string, amount string) *models.InvoiceRecord {
	r := &models.InvoiceRecord{DocumentID: doc, CustomerName: "Acme Corp"}
	if amount != "" {
		r.Amount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	return r
}

func newTestClassifier(t *testing.T, config *Config) *Classifier {
	t.Helper()
	c, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create classifier: %v", err)
	}
	return c
}

func TestClassify_BuiltInRules(t *testing.T) {
	c := newTestClassifier(t, nil)

	tests := []struct {
		name     string
		record   *models.InvoiceRecord
		category models.Category
		reason   string
	}{
		{"withholding document", invoice("3148", "500"), models.CategoryExcluded, DefaultWithholdingReason},
		{"withholding beats wire fee", invoice("3148", "50"), models.CategoryExcluded, DefaultWithholdingReason},
		{"wire fee", invoice("INV-1", "75"), models.CategoryExcluded, DefaultWireFeeReason},
		{"wire fee at threshold", invoice("INV-2", "100"), models.CategoryExcluded, DefaultWireFeeReason},
		{"just above threshold", invoice("INV-3", "100.01"), models.CategoryCollectible, ""},
		{"negative amount is signed", invoice("INV-4", "-500"), models.CategoryExcluded, DefaultWireFeeReason},
		{"zero amount", invoice("INV-5", "0"), models.CategoryExcluded, DefaultWireFeeReason},
		{"unparseable amount", invoice("INV-6", ""), models.CategoryCollectible, ""},
		{"collectible", invoice("INV-7", "1250.50"), models.CategoryCollectible, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, reason := c.Classify(tt.record)
			if category != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, category)
			}
			if reason != tt.reason {
				t.Errorf("Expected reason %q, got %q", tt.reason, reason)
			}
			if tt.record.Category != "" {
				t.Error("Classify must not modify the record")
			}
		})
	}
}

func TestClassify_PaidRecordsAreStillClassified(t *testing.T) {
	c := newTestClassifier(t, nil)
	paid := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	r := invoice("INV-1", "60")
	r.PaymentDate = &paid

	if category, _ := c.Classify(r); category != models.CategoryExcluded {
		t.Errorf("Expected paid wire fee to be excluded, got %s", category)
	}
}

func TestClassify_ConfiguredPolicy(t *testing.T) {
	config := DefaultConfig()
	config.WireFeeThreshold = decimal.NewFromInt(25)
	config.WithholdingDocs = []string{" inv-77 ", "9001"}
	config.WireFeeReason = "bank charge"
	config.WithholdingReason = "TDS"
	c := newTestClassifier(t, config)

	if _, reason := c.Classify(invoice("INV-77", "900")); reason != "TDS" {
		t.Errorf("Expected normalized withholding match, got %q", reason)
	}
	if category, _ := c.Classify(invoice("3148", "900")); category != models.CategoryCollectible {
		t.Error("Expected default withholding doc to be replaced by configuration")
	}
	if _, reason := c.Classify(invoice("INV-8", "25")); reason != "bank charge" {
		t.Errorf("Expected configured wire fee reason, got %q", reason)
	}
	if category, _ := c.Classify(invoice("INV-9", "75")); category != models.CategoryCollectible {
		t.Error("Expected 75 to be collectible with threshold 25")
	}
}

func TestClassify_CustomRulesInOrder(t *testing.T) {
	config := DefaultConfig()
	config.Rules = []Rule{
		{Name: "intercompany", Field: "customer_name", Operator: OpContains, Value: "acme", Reason: "intercompany"},
		{Name: "credit memos", Field: "document_id", Operator: OpPrefix, Value: "CM-", Reason: "credit memo"},
		{Name: "large", Field: "amount", Operator: OpGreaterEq, Value: "1,000,000", Reason: "disputed"},
		{Name: "region", Field: "extra:Region", Operator: OpIn, Values: []string{"APAC", "emea"}, Reason: "handled by regional office"},
	}
	c := newTestClassifier(t, config)

	acme := invoice("CM-1", "500")
	if _, reason := c.Classify(acme); reason != "intercompany" {
		t.Errorf("Expected first matching rule to win, got %q", reason)
	}

	memo := invoice("cm-2", "500")
	memo.CustomerName = "Globex"
	if _, reason := c.Classify(memo); reason != "credit memo" {
		t.Errorf("Expected case-insensitive prefix match, got %q", reason)
	}

	large := invoice("INV-1", "2000000")
	large.CustomerName = "Globex"
	if _, reason := c.Classify(large); reason != "disputed" {
		t.Errorf("Expected numeric rule match, got %q", reason)
	}

	regional := invoice("INV-2", "500")
	regional.CustomerName = "Globex"
	regional.Extra = map[string]string{"region": "EMEA"}
	if _, reason := c.Classify(regional); reason != "handled by regional office" {
		t.Errorf("Expected extra column rule match, got %q", reason)
	}

	plain := invoice("INV-3", "500")
	plain.CustomerName = "Globex"
	if category, _ := c.Classify(plain); category != models.CategoryCollectible {
		t.Errorf("Expected collectible, got %s", category)
	}
}

func TestCompiledRule_Matches(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		record *models.InvoiceRecord
		match  bool
	}{
		{"equals text", Rule{Field: "document_id", Operator: OpEquals, Value: "inv-1"}, invoice("INV-1", "1"), true},
		{"suffix", Rule{Field: "document_id", Operator: OpSuffix, Value: "-adj"}, invoice("INV-1-ADJ", "1"), true},
		{"regex", Rule{Field: "document_id", Operator: OpRegex, Value: `^inv-\d+$`}, invoice("INV-42", "1"), true},
		{"regex no match", Rule{Field: "document_id", Operator: OpRegex, Value: `^inv-\d+$`}, invoice("INV-42a", "1"), false},
		{"amount equals", Rule{Field: "amount", Operator: OpEquals, Value: "$250.00"}, invoice("X", "250"), true},
		{"amount lt", Rule{Field: "amount", Operator: OpLess, Value: "0"}, invoice("X", "-0.01"), true},
		{"amount lte invalid", Rule{Field: "amount", Operator: OpLessEq, Value: "500"}, invoice("X", ""), false},
		{"amount gt", Rule{Field: "amount", Operator: OpGreater, Value: "10"}, invoice("X", "10"), false},
		{"in from comma list", Rule{Field: "document_id", Operator: OpIn, Value: "A, B ,C"}, invoice("b", "1"), true},
		{"missing extra", Rule{Field: "extra:Region", Operator: OpEquals, Value: "west"}, invoice("X", "1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.rule.Reason = "excluded"
			compiled, err := CompileRules([]Rule{tt.rule})
			if err != nil {
				t.Fatalf("Unexpected compile error: %v", err)
			}
			if got := compiled[0].Matches(tt.record); got != tt.match {
				t.Errorf("Matches() = %v, want %v", got, tt.match)
			}
		})
	}
}

func TestCompileRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"unknown field", Rule{Name: "r", Field: "balance", Operator: OpEquals, Value: "1", Reason: "x"}},
		{"empty extra column", Rule{Name: "r", Field: "extra:", Operator: OpEquals, Value: "1", Reason: "x"}},
		{"unknown operator", Rule{Name: "r", Field: "amount", Operator: "between", Value: "1", Reason: "x"}},
		{"missing reason", Rule{Name: "r", Field: "amount", Operator: OpLess, Value: "1"}},
		{"missing value", Rule{Name: "r", Field: "document_id", Operator: OpEquals, Reason: "x"}},
		{"empty in", Rule{Name: "r", Field: "document_id", Operator: OpIn, Values: []string{" "}, Reason: "x"}},
		{"bad regex", Rule{Name: "r", Field: "document_id", Operator: OpRegex, Value: "([", Reason: "x"}},
		{"non numeric operand", Rule{Name: "r", Field: "amount", Operator: OpGreater, Value: "lots", Reason: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileRules([]Rule{tt.rule})
			if err == nil {
				t.Fatal("Expected compile error")
			}
			analyzerErr, ok := errors.AsAnalyzerError(err)
			if !ok || analyzerErr.Code != errors.CodeInvalidRule {
				t.Errorf("Expected invalid rule error, got %v", err)
			}
			if analyzerErr.Context["setting"] != "r" {
				t.Errorf("Expected rule name in context, got %v", analyzerErr.Context["setting"])
			}
		})
	}
}

func TestCompileRules_DefaultNames(t *testing.T) {
	_, err := CompileRules([]Rule{
		{Field: "amount", Operator: OpLess, Value: "1", Reason: "x"},
		{Field: "amount", Operator: "nope", Value: "1", Reason: "x"},
	})
	analyzerErr, ok := errors.AsAnalyzerError(err)
	if !ok || analyzerErr.Context["setting"] != "rule 2" {
		t.Errorf("Expected the second rule to be named 'rule 2', got %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.WireFeeReason = " "
	if _, err := New(config); !errors.IsCategory(err, errors.CategoryConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestClassifyAll(t *testing.T) {
	c := newTestClassifier(t, nil)
	records := []*models.InvoiceRecord{
		invoice("3148", "500"),
		invoice("INV-1", "75"),
		invoice("INV-2", "50"),
		invoice("INV-3", "1200"),
	}

	counts := c.ClassifyAll(records)

	if counts.Total != 4 || counts.Collectible != 1 || counts.Excluded != 3 {
		t.Errorf("Unexpected counts: %+v", counts)
	}
	if counts.ByReason[DefaultWireFeeReason] != 2 || counts.ByReason[DefaultWithholdingReason] != 1 {
		t.Errorf("Unexpected reason counts: %v", counts.ByReason)
	}

	for _, r := range records {
		if r.IsExcluded() != (r.ExclusionReason != "") {
			t.Errorf("Record %s: reason present must match excluded category", r.DocumentID)
		}
	}
	if records[3].Category != models.CategoryCollectible {
		t.Errorf("Expected INV-3 collectible, got %s", records[3].Category)
	}
}
