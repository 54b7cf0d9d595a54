package catalog

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	fallbackSKUBase = "PROD-GEN"
	maxSKULength    = 18
	maxSKUAttempts  = 1000
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeSKU uppercases, strips diacritics, collapses every run of
// characters outside [A-Z0-9] into a single hyphen, trims hyphens from
// both ends and caps the result at 18 characters.
func NormalizeSKU(raw string) string {
	s, _, err := transform.String(stripMarks, raw)
	if err != nil {
		s = raw
	}
	s = strings.ToUpper(s)

	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > maxSKULength {
		out = strings.TrimRight(out[:maxSKULength], "-")
	}
	return out
}

// GenerateSKU derives a unique SKU from the product name and category.
// On collision it appends a zero-padded numeric suffix starting at -02;
// if that somehow never frees up, a time-derived suffix breaks the tie.
// Every returned SKU honors the 18-character cap: the base is trimmed to
// make room for the suffix.
func GenerateSKU(name, category string, taken func(sku string) bool) string {
	base := NormalizeSKU(name + "-" + category)
	if base == "" {
		base = fallbackSKUBase
	}
	if !taken(base) {
		return base
	}
	for i := 2; i < 2+maxSKUAttempts; i++ {
		candidate := withSuffix(base, fmt.Sprintf("-%02d", i))
		if !taken(candidate) {
			return candidate
		}
	}
	return withSuffix(base, fmt.Sprintf("-%d", time.Now().UTC().UnixMilli()))
}

func withSuffix(base, suffix string) string {
	if len(base)+len(suffix) > maxSKULength {
		base = strings.TrimRight(base[:maxSKULength-len(suffix)], "-")
	}
	return base + suffix
}
