// Package canon canonicalizes the identifiers used to join checklist rows
// against shipment lines: item numbers, color numbers and order numbers.
// ERP exports and hand-maintained spreadsheets disagree about whitespace,
// float serialization ("450.0") and zero padding, so both sides of a join
// pass through these functions before any key comparison. Inconsistent
// application is the single largest source of silent join failure; apply the
// same function to both sides, always.
//
// All functions are pure and total: any string in, a string out, no errors.
// They are also idempotent, so values that went through a CSV round trip can
// safely be canonicalized again.
package canon

import (
	"strings"
	"unicode"
)

// Pad widths for all-digit identifiers.
const (
	itemWidth       = 7
	colorWidthShort = 3
	colorWidthLong  = 4
)

// ItemNumber canonicalizes an article number. All-digit values are
// left-padded with zeros to width 7; non-numeric item codes pass through
// with only whitespace and float artifacts removed.
func ItemNumber(s string) string {
	s = scrub(s)
	if isDigits(s) {
		return zeroPad(s, itemWidth)
	}
	return s
}

// ColorNumber canonicalizes a color number. All-digit values are left-padded
// to width 3 when they carry at most two significant digits, width 4
// otherwise. The width decision ignores leading zeros so the function maps
// its own output to itself.
func ColorNumber(s string) string {
	s = scrub(s)
	if !isDigits(s) {
		return s
	}
	if len(strings.TrimLeft(s, "0")) <= 2 {
		return zeroPad(s, colorWidthShort)
	}
	return zeroPad(s, colorWidthLong)
}

// OrderNumber canonicalizes an order number. No padding; order numbers carry
// no zero-width convention.
func OrderNumber(s string) string {
	return scrub(s)
}

// StripLeadingZeros removes leading zeros for display, returning "0" when
// nothing else remains. Display-only: apply after matching, never before.
func StripLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// scrub removes every whitespace rune and any trailing ".0" float
// serialization artifacts.
func scrub(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	for strings.HasSuffix(s, ".0") {
		s = s[:len(s)-2]
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
