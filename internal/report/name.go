package report

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// NameOptions adjust how record fields are cleaned for the report name.
type NameOptions struct {
	// FoldDiacritics maps accented letters to their base form ("Café" ->
	// "Cafe") before non-ASCII characters are stripped.
	FoldDiacritics bool
}

func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// cleanComponent keeps ASCII letters, digits and whitespace, then joins
// the words with underscores. Empty results fall back to placeholder.
func cleanComponent(s, placeholder string, opts NameOptions) string {
	if opts.FoldDiacritics {
		s = removeDiacritics(s)
	}
	s = disallowedChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = whitespaceRuns.ReplaceAllString(s, "_")
	if s == "" {
		return placeholder
	}
	return s
}

// Name derives a filesystem-safe report name: {account}_{site}_{task}_{date}.
// Characters outside [a-zA-Z0-9] and whitespace are dropped ("Café" -> "Caf").
func Name(r Record, date time.Time) string {
	return NameWith(r, date, NameOptions{})
}

// NameWith is Name with explicit cleaning options.
func NameWith(r Record, date time.Time, opts NameOptions) string {
	return strings.Join([]string{
		cleanComponent(r.Account, "Account", opts),
		cleanComponent(r.Site, "Site", opts),
		cleanComponent(r.TaskName, "Task", opts),
		date.Format(DateLayout),
	}, "_")
}

// FileName is Name with the PDF extension.
func FileName(r Record, date time.Time) string {
	return Name(r, date) + ".pdf"
}
