package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeKey returns the lookup key of a header or configured name: NFKC,
// trimmed, inner whitespace collapsed and case folded. Config loaders
// lowercase map keys, so every name compared against a header goes through
// this function.
func NormalizeKey(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// LookupExtra finds a pass-through column by name, ignoring spelling differences
func (r *InvoiceRecord) LookupExtra(column string) (string, bool) {
	if v, ok := r.Extra[column]; ok {
		return v, true
	}
	key := NormalizeKey(column)
	for name, v := range r.Extra {
		if NormalizeKey(name) == key {
			return v, true
		}
	}
	return "", false
}
