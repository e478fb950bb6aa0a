package parsers

import (
	"strings"

	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/pkg/errors"
	"golang-ar-aging-service/pkg/logger"
)

// NormalizeHeader returns the key a header is matched on
func NormalizeHeader(header string) string {
	return models.NormalizeKey(header)
}

// HeaderMap is the resolved layout of an input header row
type HeaderMap struct {
	Headers []string
	Fields  map[string]int
	Extras  map[int]string
}

// Index returns the column of a canonical field, or -1
func (h *HeaderMap) Index(field string) int {
	if idx, ok := h.Fields[field]; ok {
		return idx
	}
	return -1
}

// ColumnNormalizer maps source headers onto canonical fields
type ColumnNormalizer struct {
	mapping map[string]string
	logger  logger.Logger
}

// NewColumnNormalizer builds a normalizer from a source header → field mapping
func NewColumnNormalizer(mapping map[string]string) (*ColumnNormalizer, error) {
	normalized := make(map[string]string, len(mapping))
	for source, target := range mapping {
		field, ok := CanonicalField(target)
		if !ok {
			return nil, errors.ConfigurationError(
				errors.CodeInvalidConfig,
				"column_mapping."+source,
				target,
				nil,
			).WithSuggestion("map columns to one of: " + strings.Join(requiredFields, ", "))
		}
		normalized[NormalizeHeader(source)] = field
	}

	return &ColumnNormalizer{
		mapping: normalized,
		logger:  logger.GetGlobalLogger().WithComponent("column_normalizer"),
	}, nil
}

// Resolve matches headers against the mapping. Every canonical field must be
// found or a schema error naming all missing fields is returned. The first
// header resolving to a field wins; later ones are kept as extras.
func (n *ColumnNormalizer) Resolve(headers []string) (*HeaderMap, error) {
	result := &HeaderMap{
		Headers: headers,
		Fields:  make(map[string]int, len(requiredFields)),
		Extras:  make(map[int]string),
	}

	for idx, header := range headers {
		key := NormalizeHeader(header)
		if key == "" {
			continue
		}

		field, ok := n.mapping[key]
		if !ok {
			field, ok = canonicalByKey[key]
		}
		if !ok {
			result.Extras[idx] = strings.TrimSpace(header)
			continue
		}

		if first, taken := result.Fields[field]; taken {
			n.logger.WithFields(logger.Fields{
				"field":     field,
				"kept":      headers[first],
				"duplicate": header,
			}).Warn("Multiple columns map to the same field, keeping the first")
			result.Extras[idx] = strings.TrimSpace(header)
			continue
		}
		result.Fields[field] = idx
	}

	var missing []string
	for _, field := range requiredFields {
		if _, ok := result.Fields[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		n.logger.WithFields(logger.Fields{
			"missing":   missing,
			"available": headers,
		}).Error("Required columns are missing")
		return nil, errors.SchemaError(missing, headers)
	}

	return result, nil
}
