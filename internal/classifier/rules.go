package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"golang-ar-aging-service/internal/models"
	"golang-ar-aging-service/pkg/errors"
)

// Operator is the comparison a custom rule applies to a field
type Operator string

const (
	OpEquals    Operator = "equals"
	OpIn        Operator = "in"
	OpContains  Operator = "contains"
	OpPrefix    Operator = "prefix"
	OpSuffix    Operator = "suffix"
	OpRegex     Operator = "regex"
	OpLess      Operator = "lt"
	OpLessEq    Operator = "lte"
	OpGreater   Operator = "gt"
	OpGreaterEq Operator = "gte"
)

// Rule fields
const (
	FieldDocumentID   = "document_id"
	FieldCustomerName = "customer_name"
	FieldAmount       = "amount"
	extraPrefix       = "extra:"
)

// Rule excludes matching records from receivables with its own reason
type Rule struct {
	Name     string   `json:"name" mapstructure:"name"`
	Field    string   `json:"field" mapstructure:"field"`
	Operator Operator `json:"operator" mapstructure:"operator"`
	Value    string   `json:"value,omitempty" mapstructure:"value"`
	Values   []string `json:"values,omitempty" mapstructure:"values"`
	Reason   string   `json:"reason" mapstructure:"reason"`
}

func (o Operator) isNumeric() bool {
	switch o {
	case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		return true
	}
	return false
}

func (o Operator) isKnown() bool {
	switch o {
	case OpEquals, OpIn, OpContains, OpPrefix, OpSuffix, OpRegex:
		return true
	}
	return o.isNumeric()
}

// CompiledRule is a validated rule with its pattern and operands prepared
type CompiledRule struct {
	Rule
	column  string
	pattern *regexp.Regexp
	number  decimal.Decimal
	text    string
	set     map[string]struct{}
}

// CompileRules validates rules in declaration order. The first invalid rule
// is reported by name.
func CompileRules(rules []Rule) ([]*CompiledRule, error) {
	compiled := make([]*CompiledRule, 0, len(rules))
	for i, rule := range rules {
		if strings.TrimSpace(rule.Name) == "" {
			rule.Name = fmt.Sprintf("rule %d", i+1)
		}
		c, err := compileRule(rule)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidRule, rule.Name, err.Error(), err)
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

func compileRule(rule Rule) (*CompiledRule, error) {
	rule.Field = strings.ToLower(strings.TrimSpace(rule.Field))
	rule.Operator = Operator(strings.ToLower(strings.TrimSpace(string(rule.Operator))))
	rule.Reason = strings.TrimSpace(rule.Reason)

	c := &CompiledRule{Rule: rule}

	switch {
	case rule.Field == FieldDocumentID, rule.Field == FieldCustomerName, rule.Field == FieldAmount:
	case strings.HasPrefix(rule.Field, extraPrefix):
		c.column = strings.TrimSpace(strings.TrimPrefix(rule.Field, extraPrefix))
		if c.column == "" {
			return nil, fmt.Errorf("field 'extra:' needs a column name")
		}
	default:
		return nil, fmt.Errorf("unknown field '%s'", rule.Field)
	}

	if !rule.Operator.isKnown() {
		return nil, fmt.Errorf("unknown operator '%s'", rule.Operator)
	}
	if rule.Reason == "" {
		return nil, fmt.Errorf("reason is required")
	}

	switch {
	case rule.Operator == OpIn:
		values := rule.Values
		if len(values) == 0 && rule.Value != "" {
			values = strings.Split(rule.Value, ",")
		}
		c.set = make(map[string]struct{}, len(values))
		for _, v := range values {
			if key := models.NormalizeKey(v); key != "" {
				c.set[key] = struct{}{}
			}
		}
		if len(c.set) == 0 {
			return nil, fmt.Errorf("operator 'in' needs values")
		}
	case strings.TrimSpace(rule.Value) == "":
		return nil, fmt.Errorf("value is required")
	case rule.Operator == OpRegex:
		pattern, err := regexp.Compile("(?i)" + rule.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		c.pattern = pattern
	case rule.Operator.isNumeric() || (rule.Field == FieldAmount && rule.Operator == OpEquals):
		n, err := models.ParseDecimalFromString(rule.Value)
		if err != nil {
			return nil, fmt.Errorf("value must be a number: %w", err)
		}
		c.number = n
	default:
		c.text = models.NormalizeKey(rule.Value)
	}

	return c, nil
}

// Matches reports whether the rule applies to the record. Records missing the
// field, or whose field is not a number under a numeric operator, never match.
func (c *CompiledRule) Matches(r *models.InvoiceRecord) bool {
	var raw string
	var amount decimal.NullDecimal

	switch {
	case c.Field == FieldDocumentID:
		raw = r.DocumentID
	case c.Field == FieldCustomerName:
		raw = r.CustomerName
	case c.Field == FieldAmount:
		amount = r.Amount
		if amount.Valid {
			raw = amount.Decimal.String()
		}
	default:
		v, ok := r.LookupExtra(c.column)
		if !ok {
			return false
		}
		raw = v
	}

	if c.Operator.isNumeric() || (c.Field == FieldAmount && c.Operator == OpEquals) {
		if !amount.Valid {
			n, err := models.ParseNullDecimal(raw)
			if err != nil || !n.Valid {
				return false
			}
			amount = n
		}
		return compareNumber(c.Operator, amount.Decimal, c.number)
	}

	value := models.NormalizeKey(raw)
	switch c.Operator {
	case OpEquals:
		return value == c.text
	case OpIn:
		_, ok := c.set[value]
		return ok
	case OpContains:
		return strings.Contains(value, c.text)
	case OpPrefix:
		return strings.HasPrefix(value, c.text)
	case OpSuffix:
		return strings.HasSuffix(value, c.text)
	case OpRegex:
		return c.pattern.MatchString(strings.TrimSpace(raw))
	}
	return false
}

func compareNumber(op Operator, v, operand decimal.Decimal) bool {
	switch op {
	case OpLess:
		return v.LessThan(operand)
	case OpLessEq:
		return v.LessThanOrEqual(operand)
	case OpGreater:
		return v.GreaterThan(operand)
	case OpGreaterEq:
		return v.GreaterThanOrEqual(operand)
	case OpEquals:
		return v.Equal(operand)
	}
	return false
}
