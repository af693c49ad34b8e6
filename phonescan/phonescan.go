// Package phonescan detects phone numbers in free text selected on a page.
//
// The scanner is a pure function: no state, no I/O. It mirrors the behaviour
// the page-side selection listener relies on — a selection shorter than four
// characters is ignored, and a candidate counts as a phone number when its
// digit run is between 7 and 15 digits after stripping separators.
package phonescan

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MinSelectionLen is the minimum selection length worth scanning.
const MinSelectionLen = 4

const (
	minDigits = 7
	maxDigits = 15
)

// patterns cover international-leaning grouped digits, bare 10+ digit runs,
// and the dash/space separated 3-3-4 grouping.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}`),
	regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\d{10,}`),
	regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`),
}

var nonDigits = regexp.MustCompile(`\D`)

var stripMarkup = bluemonday.StrictPolicy()

// Scan returns the distinct phone numbers found in text, as digit-only
// strings in first-seen order. Selections shorter than MinSelectionLen
// yield nil.
func Scan(text string) []string {
	text = strings.TrimSpace(text)
	if len(text) < MinSelectionLen {
		return nil
	}

	var found []string
	seen := make(map[string]bool)
	for _, re := range patterns {
		for _, match := range re.FindAllString(text, -1) {
			digits := nonDigits.ReplaceAllString(match, "")
			if len(digits) < minDigits || len(digits) > maxDigits {
				continue
			}
			if seen[digits] {
				continue
			}
			seen[digits] = true
			found = append(found, digits)
		}
	}
	return found
}

// ScanHTML strips markup from an HTML fragment and scans the remaining text.
// Pages post raw selection fragments; tags must not leak digits (e.g. from
// attributes) into the scan, so the fragment is sanitised down to text first.
func ScanHTML(fragment string) []string {
	return Scan(stripMarkup.Sanitize(fragment))
}
