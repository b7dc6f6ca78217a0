package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims surrounding whitespace and NFC-normalizes a name so
// visually identical names compare and index the same.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// FoldName returns the case-folded form used for name search.
// Casers are stateful, so each call builds its own.
func FoldName(s string) string {
	return cases.Fold().String(NormalizeName(s))
}

// NameContains reports whether name contains term, ignoring case.
// An empty term matches everything.
func NameContains(name, term string) bool {
	term = FoldName(term)
	if term == "" {
		return true
	}
	return strings.Contains(FoldName(name), term)
}
