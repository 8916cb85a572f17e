package inventory

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeName canonicalizes an item or ingredient name for matching:
// surrounding whitespace is trimmed, runs of inner whitespace collapse to a
// single space, and the result is Unicode case-folded. Folding (rather than
// lowercasing) keeps matches correct for names like "STRASSE"/"straße".
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	return cases.Fold().String(name)
}
