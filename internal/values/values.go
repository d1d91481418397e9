// Package values parses the typed cells found on statements: dates, money,
// quantities and prices. Parsers never panic and report failure through a
// boolean instead of an error; deciding whether a bad cell matters is left
// to the row extractor.
package values

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const canonicalDate = "2006-01-02"

var (
	// MM/DD/YYYY
	dateSlash = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	// YYYY-MM-DD
	dateISO = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	// Mon D, YYYY (full month names are accepted, only the first 3 letters count)
	dateText = regexp.MustCompile(`^([A-Za-z]{3})[A-Za-z]*\.?\s+(\d{1,2}),?\s+(\d{4})$`)
	// YYMONDD as embedded in market symbols, e.g. 25SEP07
	dateCompact = regexp.MustCompile(`(\d{2})(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)(\d{2})`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// DatePattern matches any date form ParseDate understands, unanchored.
// It is shared by row classification and statement-date extraction.
const DatePattern = `(?:\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})`

// ParseDate returns s in canonical YYYY-MM-DD form. Formats are tried in
// order MM/DD/YYYY, YYYY-MM-DD, "Mon D, YYYY"; the first match wins.
func ParseDate(s string) (string, bool) {
	t, ok := ParseDateTime(s)
	if !ok {
		return "", false
	}
	return t.Format(canonicalDate), true
}

// ParseDateTime is ParseDate returning a UTC time.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := dateSlash.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[1], m[2])
	}
	if m := dateISO.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := dateText.FindStringSubmatch(s); m != nil {
		month, ok := months[strings.ToLower(m[1])]
		if !ok {
			return time.Time{}, false
		}
		return buildDate(m[3], strconv.Itoa(int(month)), m[2])
	}
	return time.Time{}, false
}

// ParseCompactDate finds a YYMONDD token inside s (e.g. "25SEP07PHIDAL")
// and returns it as YYYY-MM-DD. Two-digit years are taken as 20YY.
func ParseCompactDate(s string) (string, bool) {
	m := dateCompact.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		return "", false
	}
	month := months[strings.ToLower(m[2])]
	t, ok := buildDate("20"+m[1], strconv.Itoa(int(month)), m[3])
	if !ok {
		return "", false
	}
	return t.Format(canonicalDate), true
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// Reject dates that time.Date normalised, like 02/31.
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

// cleanNumber strips currency symbols, thousands separators and whitespace,
// and reports whether the value was written as negative, either with a
// leading minus or in accounting parentheses.
func cleanNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	negative := strings.Contains(s, "(")

	replacer := strings.NewReplacer(
		"$", "",
		",", "",
		" ", "",
		"\u00a0", "",
		"\t", "",
		"(", "",
		")", "",
	)
	s = replacer.Replace(s)

	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	return s, negative
}

// ParseDecimal parses a money string exactly. "$1,234.56", "(12.34)" and
// "-5.00" are all accepted; anything else yields false.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	cleaned, negative := cleanNumber(s)
	if cleaned == "" || strings.ContainsAny(cleaned, "+-") {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// ParseCurrency is ParseDecimal converted to float64.
func ParseCurrency(s string) (float64, bool) {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// ParseInteger parses a whole number such as "1,200" or "(3)".
func ParseInteger(s string) (int, bool) {
	cleaned, negative := cleanNumber(s)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	if negative {
		n = -n
	}
	return n, true
}

// ParsePrice parses a per-contract price. Prices quoted in cents ("45¢")
// are converted to dollars.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	cents := strings.HasSuffix(s, "¢")
	if cents {
		s = strings.TrimSuffix(s, "¢")
	}
	d, ok := ParseDecimal(s)
	if !ok {
		return 0, false
	}
	if cents {
		d = d.Div(decimal.NewFromInt(100))
	}
	return d.InexactFloat64(), true
}
