// Package symbols classifies and decomposes event-contract market
// identifiers such as "KXNFLGAME-25SEP07PHIDAL-PHI".
//
// The result feeds analytic tagging only; it never affects amounts, so every
// function here is best-effort and never fails.
package symbols

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/values"
)

// Delimiter separates the parts of a market identifier.
const Delimiter = "-"

type rule struct {
	category models.MarketCategory
	pattern  *regexp.Regexp
}

// Checked in order; the first match wins.
var rules = []rule{
	{models.CategoryNFL, regexp.MustCompile(`^KXNFL`)},
	{models.CategoryNBA, regexp.MustCompile(`^KX(?:NBA|WNBA)`)},
	{models.CategoryMLB, regexp.MustCompile(`^KXMLB`)},
	{models.CategoryNHL, regexp.MustCompile(`^KXNHL`)},
	{models.CategoryNCAAF, regexp.MustCompile(`^KXNCAAF`)},
	{models.CategoryNCAAB, regexp.MustCompile(`^KXNCAA(?:MB|WB|B)`)},
	{models.CategorySoccer, regexp.MustCompile(`^KX(?:EPL|MLS|UCL|LALIGA|SERIEA|BUNDESLIGA|SOCCER|WC)`)},
	{models.CategoryPolitics, regexp.MustCompile(`^KX(?:PRES|SENATE|HOUSE|GOV|MAYOR|ELECTION|APPROVAL)`)},
	{models.CategoryEconomics, regexp.MustCompile(`^KX(?:FED|CPI|GDP|PAYROLLS|JOBS|RATE|INX|NASDAQ)`)},
	{models.CategoryCrypto, regexp.MustCompile(`^KX(?:BTC|ETH|SOL|XRP|DOGE|CRYPTO)`)},
	{models.CategoryWeather, regexp.MustCompile(`^KX(?:HIGH|LOW|RAIN|SNOW|TEMP|HURRICANE)`)},
}

var (
	// Short alphabetic exchange prefix followed by the event-type token.
	headPattern = regexp.MustCompile(`^([A-Z]{2})([A-Z][A-Z0-9]*)$`)
	participant = regexp.MustCompile(`^[A-Z0-9.]+$`)
)

// Categorize returns the market category of raw, or Other.
func Categorize(raw string) models.MarketCategory {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	for _, r := range rules {
		if r.pattern.MatchString(upper) {
			return r.category
		}
	}
	return models.CategoryOther
}

// Parse decomposes raw into exchange prefix, event type, event date and
// participants. Parts that do not have the expected shape are left out.
func Parse(raw string) models.ParsedSymbol {
	raw = strings.TrimSpace(raw)
	result := models.ParsedSymbol{
		Raw:      raw,
		Category: Categorize(raw),
	}
	if raw == "" {
		return result
	}

	parts := strings.Split(strings.ToUpper(raw), Delimiter)

	if m := headPattern.FindStringSubmatch(parts[0]); m != nil {
		result.Exchange = m[1]
		result.EventType = m[2]
	}

	if len(parts) > 1 {
		if date, ok := values.ParseCompactDate(parts[1]); ok {
			result.EventDate = date
		}
	}

	for _, p := range parts[min(2, len(parts)):] {
		if p != "" && participant.MatchString(p) {
			result.Participants = append(result.Participants, p)
		}
	}

	return result
}
