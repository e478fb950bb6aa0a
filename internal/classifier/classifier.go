// Package classifier decides which invoices count toward collectible
// receivables. The built-in rules run first, in a fixed order: tax
// withholding documents, then wire fees at or below the threshold. Custom
// rules follow in declaration order and the first match wins.
package classifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

const (
	DefaultWithholdingReason = "tax withholding — excluded from AR"
	DefaultWireFeeReason     = "wire fee — excluded from AR"
)

// Config holds the exclusion policy
type Config struct {
	WireFeeThreshold  decimal.Decimal `json:"wire_fee_threshold"`
	WithholdingDocs   []string        `json:"withholding_docs"`
	Rules             []Rule          `json:"exclusion_rules,omitempty"`
	WithholdingReason string          `json:"withholding_reason"`
	WireFeeReason     string          `json:"wire_fee_reason"`
}

// DefaultConfig returns the policy used when nothing is configured
func DefaultConfig() *Config {
	return &Config{
		WireFeeThreshold:  decimal.NewFromInt(100),
		WithholdingDocs:   []string{"3148"},
		WithholdingReason: DefaultWithholdingReason,
		WireFeeReason:     DefaultWireFeeReason,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WithholdingReason) == "" {
		return fmt.Errorf("withholding reason cannot be empty")
	}
	if strings.TrimSpace(c.WireFeeReason) == "" {
		return fmt.Errorf("wire fee reason cannot be empty")
	}
	return nil
}

// Counts summarizes a ClassifyAll pass
type Counts struct {
	Total       int            `json:"total"`
	Collectible int            `json:"collectible"`
	Excluded    int            `json:"excluded"`
	ByReason    map[string]int `json:"by_reason"`
}

// Classifier applies the exclusion policy to invoice records
type Classifier struct {
	config      *Config
	withholding map[string]struct{}
	rules       []*CompiledRule
	logger      logger.Logger
}

// New creates a Classifier, compiling custom rules up front
func New(config *Config) (*Classifier, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reasons", err.Error(), err)
	}

	rules, err := CompileRules(config.Rules)
	if err != nil {
		return nil, err
	}

	withholding := make(map[string]struct{}, len(config.WithholdingDocs))
	for _, doc := range config.WithholdingDocs {
		if key := models.NormalizeKey(doc); key != "" {
			withholding[key] = struct{}{}
		}
	}

	log := logger.GetGlobalLogger().WithComponent("classifier")
	log.WithFields(logger.Fields{
		"wire_fee_threshold": config.WireFeeThreshold.String(),
		"withholding_docs":   len(withholding),
		"custom_rules":       len(rules),
	}).Debug("Created classifier")

	return &Classifier{
		config:      config,
		withholding: withholding,
		rules:       rules,
		logger:      log,
	}, nil
}

// Classify returns the category and exclusion reason for r without
// modifying it. The wire fee rule compares the signed amount, so credits
// and negative adjustments are excluded too.
func (c *Classifier) Classify(r *models.InvoiceRecord) (models.Category, string) {
	if _, ok := c.withholding[models.NormalizeKey(r.DocumentID)]; ok {
		return models.CategoryExcluded, c.config.WithholdingReason
	}

	if r.Amount.Valid && r.Amount.Decimal.LessThanOrEqual(c.config.WireFeeThreshold) {
		return models.CategoryExcluded, c.config.WireFeeReason
	}

	for _, rule := range c.rules {
		if rule.Matches(r) {
			return models.CategoryExcluded, rule.Reason
		}
	}

	return models.CategoryCollectible, ""
}

// ClassifyAll classifies every record in place
func (c *Classifier) ClassifyAll(records []*models.InvoiceRecord) Counts {
	counts := Counts{
		Total:    len(records),
		ByReason: make(map[string]int),
	}

	for _, r := range records {
		category, reason := c.Classify(r)
		r.SetClassification(category, reason)

		if category == models.CategoryExcluded {
			counts.Excluded++
			counts.ByReason[reason]++
			continue
		}
		counts.Collectible++
	}

	c.logger.WithFields(logger.Fields{
		"total":       counts.Total,
		"collectible": counts.Collectible,
		"excluded":    counts.Excluded,
	}).Info("Classified invoices")

	return counts
}
