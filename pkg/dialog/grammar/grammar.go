// Package grammar parses the requirement-expression DSL attached to each
// intent in the catalog and selects the active branch for a session.
//
// An expression like "name | (workload,incentive_type)" lists alternatives
// separated by '|'; a parenthesized alternative is a conjunctive group. Any
// requirement entries beyond the first are trailing fields that are always
// required regardless of the chosen branch.
package grammar

import (
	"strings"
)

// Branch is one conjunctive set of fields that satisfies the expression.
// Declaration order is preserved because it drives next-missing-field order.
type Branch []string

// Rule is a fully parsed requirement: the branch alternatives of the first
// expression plus the trailing always-required fields.
type Rule struct {
	Branches []Branch
	Trailing []string
}

// Contains reports whether the branch includes the given field.
func (b Branch) Contains(field string) bool {
	for _, f := range b {
		if f == field {
			return true
		}
	}
	return false
}

// Equal reports whether two branches hold the same field set, order ignored.
func (b Branch) Equal(other Branch) bool {
	if len(b) != len(other) {
		return false
	}
	for _, f := range b {
		if !other.Contains(f) {
			return false
		}
	}
	return true
}

// ParseExpression parses a single requirement expression into its branches.
// Malformed input (unbalanced parens, stray commas) degrades to a
// best-effort reading; it never fails.
func ParseExpression(expr string) []Branch {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}

	if strings.Contains(expr, "|") {
		alts := strings.Split(expr, "|")
		out := make([]Branch, 0, len(alts))
		for _, alt := range alts {
			if b := parseAlternative(alt); len(b) > 0 {
				out = append(out, b)
			}
		}
		return out
	}

	if b := parseAlternative(expr); len(b) > 0 {
		return []Branch{b}
	}
	return nil
}

// parseAlternative reads one alternative: either a bare field or a
// comma-separated group, with or without parens. Unbalanced parens are
// stripped rather than rejected.
func parseAlternative(alt string) Branch {
	alt = strings.TrimSpace(alt)
	alt = strings.TrimPrefix(alt, "(")
	alt = strings.TrimSuffix(alt, ")")

	if strings.Contains(alt, ",") {
		parts := strings.Split(alt, ",")
		b := make(Branch, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				b = append(b, p)
			}
		}
		return b
	}

	if alt = strings.TrimSpace(alt); alt != "" {
		return Branch{alt}
	}
	return nil
}

// ParseRule parses a full required-fields list: the first entry becomes the
// branch expression, the remainder become trailing fields in given order.
// Empty trailing entries are dropped.
func ParseRule(requiredFields []string) Rule {
	if len(requiredFields) == 0 {
		return Rule{}
	}

	rule := Rule{
		Branches: ParseExpression(requiredFields[0]),
	}
	for _, t := range requiredFields[1:] {
		if t = strings.TrimSpace(t); t != "" {
			rule.Trailing = append(rule.Trailing, t)
		}
	}
	return rule
}
