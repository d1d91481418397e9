package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-engine/internal/layout"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/values"
)

var (
	accountNumber = regexp.MustCompile(`(?i)account\s*(?:#|number|no\.?)\s*:?\s*([A-Z0-9][A-Z0-9-]{3,})`)
	statementSpan = regexp.MustCompile(`(?i)statement\s+(?:period|date)\s*:?\s*(` + values.DatePattern + `)(?:\s*(?:-|–|to|through|thru)\s*(` + values.DatePattern + `))?`)

	// A summary line is a label followed by an amount at the end of the line.
	summaryLine = regexp.MustCompile(`^(.*?[A-Za-z&].*?)\s+(\(?[-+]?\$?\s?[\d,]+(?:\.\d+)?\)?)$`)
)

type summaryField int

const (
	fieldOpening summaryField = iota
	fieldClosing
	fieldDeposits
	fieldWithdrawals
	fieldFees
	fieldRealized
)

// Labels are matched against the whole lower-cased label, first match wins.
var summaryLabels = []struct {
	pattern *regexp.Regexp
	field   summaryField
}{
	{regexp.MustCompile(`^(?:opening|beginning|starting)\s+(?:cash\s+)?balance$`), fieldOpening},
	{regexp.MustCompile(`^(?:closing|ending)\s+(?:cash\s+)?balance$`), fieldClosing},
	{regexp.MustCompile(`^(?:total\s+)?deposits?$`), fieldDeposits},
	{regexp.MustCompile(`^(?:total\s+)?withdrawals?$`), fieldWithdrawals},
	{regexp.MustCompile(`^(?:total\s+)?(?:exchange\s+fees|commissions(?:\s+and\s+fees)?|fees)$`), fieldFees},
	{regexp.MustCompile(`^(?:net\s+)?realized\s+(?:p&l|p\s*/\s*l|pnl|profit(?:\s+and\s+loss)?)$`), fieldRealized},
}

// statementLabel marks the fragment that carries the statement period.
var statementLabel = regexp.MustCompile(`(?i)statement\s+(?:period|date)`)

// parseAccountSummary reads the label/value lines of the summary section.
// The account number comes from the whole document; the statement period
// from the line of the "Statement Period" label when there is one.
func parseAccountSummary(flat []models.TextFragment, sec *models.DetectedSection) models.AccountSummary {
	var s models.AccountSummary
	docText := strings.Join(layout.LineTexts(flat), "\n")

	if m := accountNumber.FindStringSubmatch(docText); m != nil {
		s.AccountNumber = m[1]
	}
	periodText := docText
	if anchor, ok := layout.FindTextAnchor(flat, statementLabel); ok {
		if line := layout.AnchorLine(flat, anchor); statementSpan.MatchString(line) {
			periodText = line
		}
	}
	if m := statementSpan.FindStringSubmatch(periodText); m != nil {
		first, _ := values.ParseDate(m[1])
		if m[2] != "" {
			s.PeriodStart = first
			s.PeriodEnd, _ = values.ParseDate(m[2])
		} else {
			s.PeriodEnd = first
		}
	}

	if sec == nil {
		return s
	}

	for _, line := range layout.LineTexts(sec.Items) {
		m := summaryLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		amount, ok := values.ParseCurrency(m[2])
		if !ok {
			continue
		}
		label := strings.ToLower(strings.Join(strings.Fields(strings.TrimRight(m[1], ": ")), " "))

		for _, l := range summaryLabels {
			if !l.pattern.MatchString(label) {
				continue
			}
			v := amount
			switch l.field {
			case fieldOpening:
				s.OpeningBalance = &v
			case fieldClosing:
				s.ClosingBalance = &v
			case fieldDeposits:
				s.Deposits = &v
			case fieldWithdrawals:
				s.Withdrawals = &v
			case fieldFees:
				s.TotalFees = &v
			case fieldRealized:
				s.RealizedPnL = &v
			}
			break
		}
	}
	return s
}
