// Package normalize provides text normalization for search keys and export filenames.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes characters and strips combining marks,
// turning "Verão" into "Verao".
//
//nolint:gochecknoglobals // Stateless transformer chain, safe to share.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold removes diacritics and lowercases the input.
// Used for search keys so "verão" and "verao" match the same entries.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to the raw input.
		folded = s
	}
	return strings.ToLower(folded)
}

// Filename converts a display name into a safe download filename (without extension).
// Diacritics are folded and anything outside [a-z0-9] becomes an underscore,
// matching the naming the web client used for exported PDFs.
func Filename(name string) string {
	folded := Fold(name)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "ebook"
	}
	return out
}
