package engine

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// DefaultCountNouns are the nouns that follow the listing total on the reference site
var DefaultCountNouns = []string{"врач", "доктор", "гинеколог", "терапевт", "педиатр", "хирург", "специалист"}

// DefaultMaxScanBytes bounds the full-text scan of the last resolution stage
const DefaultMaxScanBytes = 256 * 1024

// a number, optionally grouped in thousands by a space or nbsp ("6 537")
const numberPattern = `\d{1,3}(?:[ \x{00a0}]\d{3})+|\d+`

// TotalResolver extracts the declared listing total from a first page
type TotalResolver struct {
	meta    *regexp.Regexp
	heading *regexp.Regexp
	text    *regexp.Regexp
	maxScan int
}

// NewTotalResolver builds a resolver matching counts followed by one of nouns.
// A noun list with no non-blank entries falls back to DefaultCountNouns.
func NewTotalResolver(nouns []string, maxScanBytes int) *TotalResolver {
	if maxScanBytes <= 0 {
		maxScanBytes = DefaultMaxScanBytes
	}

	quoted := quoteNouns(nouns)
	if len(quoted) == 0 {
		quoted = quoteNouns(DefaultCountNouns)
	}
	alt := strings.Join(quoted, "|")

	return &TotalResolver{
		meta:    regexp.MustCompile(`(?i)(` + numberPattern + `)\s*(?:` + alt + `)`),
		heading: regexp.MustCompile(numberPattern),
		text:    regexp.MustCompile(`(?i)(\d{1,3}(?:[ \x{00a0}]\d{3})+|\d{3,6})\s*(?:` + alt + `)`),
		maxScan: maxScanBytes,
	}
}

func quoteNouns(nouns []string) []string {
	quoted := make([]string, 0, len(nouns))
	for _, n := range nouns {
		n = strings.TrimSpace(n)
		if n != "" {
			quoted = append(quoted, regexp.QuoteMeta(n))
		}
	}
	return quoted
}

// Resolve returns the declared total and true, or (0, false) when no stage
// matched. Stages in order: meta description, first h1, bounded body text.
func (r *TotalResolver) Resolve(body []byte) (int, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return 0, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, false
	}

	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if m := r.meta.FindStringSubmatch(desc); m != nil {
			if n, ok := parseCount(m[1]); ok {
				return n, true
			}
		}
	}

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		if m := r.heading.FindString(h1.Text()); m != "" {
			if n, ok := parseCount(m); ok {
				return n, true
			}
		}
	}

	text := truncateUTF8(doc.Text(), r.maxScan)
	if m := r.text.FindStringSubmatch(text); m != nil {
		if n, ok := parseCount(m[1]); ok {
			return n, true
		}
	}

	return 0, false
}

func parseCount(s string) (int, bool) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
