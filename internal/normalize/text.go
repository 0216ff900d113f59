package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type glyphFlag int

const (
	flagGreater glyphFlag = iota
	flagTempered
	flagImplicit
	flagSocket
	flagClassRestricted
)

// glyphFlags maps the decorative tooltip markers to the boolean flag each one
// encodes. Markers are stripped from the text; the flag carries the meaning.
var glyphFlags = map[rune]glyphFlag{
	'✦': flagGreater,         // greater affix star
	'⚒': flagTempered,        // tempering hammer
	'↯': flagTempered,        // alternate tempering mark
	'◆': flagImplicit,        // implicit diamond
	'⬦': flagSocket,          // empty socket
	'●': flagSocket,          // filled socket
	'♦': flagClassRestricted, // class restriction mark
}

var (
	bracketRe      = regexp.MustCompile(`\[([^\]]*)\]`)
	rangePairRe    = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*(?:-|–)\s*(\d+(?:\.\d+)?)\s*%?\s*$`)
	rangeSingleRe  = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*%?\s*$`)
	numberRe       = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
	thousandsRe    = regexp.MustCompile(`(\d),(\d{3})\b`)
	multiSpace     = regexp.MustCompile(`\s{2,}`)
	nonWordRe      = regexp.MustCompile(`[^a-z0-9]+`)
	foldTransform  = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ocrSubstitutes = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`, "—", "-", "–", "-")
)

// Fold reduces text to a canonical matching key: unicode-decomposed with
// diacritics dropped (OCR frequently mangles accented glyphs), lowercased,
// punctuation collapsed to single spaces.
func Fold(s string) string {
	s = ocrSubstitutes.Replace(s)
	if folded, _, err := transform.String(foldTransform, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripGlyphs removes decorative markers from s and returns the set of flags
// they encoded.
func stripGlyphs(s string) (string, map[glyphFlag]bool) {
	flags := make(map[glyphFlag]bool)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if f, ok := glyphFlags[r]; ok {
			flags[f] = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), flags
}

// parseBracket extracts a bracketed range annotation from s. It returns the
// text with the annotation removed, the parsed range, whether a bracket was
// present, and whether its contents were parseable.
func parseBracket(s string) (rest string, lo, hi float64, present, ok bool) {
	m := bracketRe.FindStringSubmatchIndex(s)
	if m == nil {
		return s, 0, 0, false, false
	}
	inner := s[m[2]:m[3]]
	rest = strings.TrimSpace(s[:m[0]] + s[m[1]:])

	if pair := rangePairRe.FindStringSubmatch(inner); pair != nil {
		lo, _ = strconv.ParseFloat(pair[1], 64)
		hi, _ = strconv.ParseFloat(pair[2], 64)
		return rest, lo, hi, true, true
	}
	if single := rangeSingleRe.FindStringSubmatch(inner); single != nil {
		v, _ := strconv.ParseFloat(single[1], 64)
		return rest, v, v, true, true
	}
	return rest, 0, 0, true, false
}

// parseNumber extracts the first numeric token from s. Thousands separators
// are collapsed first so "1,245" parses as 1245.
func parseNumber(s string) (rest string, value float64, found bool) {
	s = thousandsRe.ReplaceAllString(s, "$1$2")
	loc := numberRe.FindStringIndex(s)
	if loc == nil {
		return s, 0, false
	}
	v, err := strconv.ParseFloat(s[loc[0]:loc[1]], 64)
	if err != nil {
		return s, 0, false
	}
	rest = strings.TrimSpace(s[:loc[0]] + s[loc[1]:])
	return rest, v, true
}

// FirstNumber extracts the first numeric token from s without modifying it.
func FirstNumber(s string) (float64, bool) {
	_, v, ok := parseNumber(s)
	return v, ok
}

// cleanText collapses whitespace and trims leftover punctuation from a line
// after numbers, brackets, and glyphs have been stripped.
func cleanText(s string) string {
	s = strings.Trim(s, " \t+-%:,.")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
