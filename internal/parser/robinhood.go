package parser

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/layout"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/reconcile"
	"github.com/insightdelivered/statement-engine/internal/sections"
	"github.com/insightdelivered/statement-engine/internal/symbols"
	"github.com/insightdelivered/statement-engine/internal/values"
	"github.com/insightdelivered/statement-engine/internal/version"
)

// Column header labels shared by both layouts.
const (
	colTradeDate   = "Trade Date"
	colExchange    = "Exchange"
	colSymbol      = "Symbol"
	colSide        = "Side"
	colQty         = "Qty"
	colPrice       = "Price"
	colFees        = "Fees"
	colAmount      = "Amount"
	colOpenDate    = "Open Date"
	colCloseDate   = "Close Date"
	colCost        = "Cost"
	colProceeds    = "Proceeds"
	colRealized    = "Realized P&L"
	colDate        = "Date"
	colDescription = "Description"
	colAvgPrice    = "Avg Price"
	colMarketValue = "Market Value"
)

var (
	closedTable = tableSpec{
		section: models.SectionClosedPositions,
		headers: []string{colSymbol, colQty, colOpenDate, colCloseDate, colCost, colProceeds, colRealized},
	}
	journalTable = tableSpec{
		section: models.SectionJournalEntries,
		headers: []string{colDate, colDescription, colAmount},
	}
	openTable = tableSpec{
		section: models.SectionOpenPositions,
		headers: []string{colSymbol, colQty, colAvgPrice, colMarketValue},
	}
)

// layoutRules is what distinguishes one statement revision from another.
type layoutRules struct {
	id              string
	version         models.StatementVersion
	trades          tableSpec
	closedPositions bool // read the Purchase and Sale section
	required        []models.SectionType
}

// robinhood is the extraction shared by every revision.
type robinhood struct {
	rules  layoutRules
	from   time.Time
	to     time.Time
	hasEnd bool // to is set
	gate   *version.Gatekeeper
	finder *sections.Detector
}

func newRobinhood(rules layoutRules) robinhood {
	from, to, open, _ := version.DefaultCatalog().Range(rules.version)
	return robinhood{
		rules:  rules,
		from:   from,
		to:     to,
		hasEnd: !open,
		gate:   version.DefaultGatekeeper(),
		finder: sections.Default(),
	}
}

func (p robinhood) ID() string                       { return p.rules.id }
func (p robinhood) Version() models.StatementVersion { return p.rules.version }
func (p robinhood) EffectiveFrom() time.Time         { return p.from }
func (p robinhood) EffectiveTo() (time.Time, bool)   { return p.to, p.hasEnd }

// CanParse requires the brand gate and a line carrying every trades column
// header of this revision.
func (p robinhood) CanParse(doc *models.ExtractedDocument) bool {
	if !p.gate.Check(doc) {
		return false
	}
	for _, line := range layout.LineTexts(layout.Flatten(doc)) {
		if hasAllHeaders(line, p.rules.trades.headers) {
			return true
		}
	}
	return false
}

func hasAllHeaders(line string, headers []string) bool {
	lower := strings.ToLower(line)
	for _, h := range headers {
		if !strings.Contains(lower, strings.ToLower(h)) {
			return false
		}
	}
	return true
}

// Parse walks the detected sections in document order. A missing or
// headerless trades section fails the parse; problems in individual rows
// only add warnings.
func (p robinhood) Parse(ctx context.Context, doc *models.ExtractedDocument) (*models.ParsedStatement, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flat := layout.Flatten(doc)
	detected := p.finder.Detect(flat)

	stmt := &models.ParsedStatement{
		ParserVersion:   p.rules.version,
		Trades:          []models.Trade{},
		ClosedPositions: []models.ClosedPosition{},
		JournalEntries:  []models.JournalEntry{},
		OpenPositions:   []models.OpenPosition{},
		Warnings:        []string{},
	}

	var summary *models.DetectedSection
	if s, ok := sections.Find(detected, models.SectionAccountSummary); ok {
		summary = &s
	}
	stmt.AccountSummary = parseAccountSummary(flat, summary)

	sawTrades := false
	for _, sec := range detected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt.RawSections = append(stmt.RawSections, models.RawSection{
			Type:       sec.Type,
			HeaderText: sec.HeaderText,
			StartPage:  sec.StartPage,
			EndPage:    sec.EndPage,
			Lines:      layout.LineTexts(sec.Items),
		})

		var err error
		switch sec.Type {
		case models.SectionTrades:
			sawTrades = true
			err = p.readTrades(ctx, doc, sec, stmt)
		case models.SectionClosedPositions:
			if p.rules.closedPositions {
				err = p.readClosed(ctx, doc, sec, stmt)
			}
		case models.SectionJournalEntries:
			err = p.readJournal(ctx, doc, sec, stmt)
		case models.SectionOpenPositions:
			err = p.readOpen(ctx, doc, sec, stmt)
		}

		switch {
		case err == nil:
		case errors.Is(err, errNoHeader) && sec.Type != models.SectionTrades:
			stmt.Warnings = append(stmt.Warnings, fmt.Sprintf("%s section on page %d has no column header row; skipped", sec.Type, sec.StartPage))
		default:
			return nil, err
		}
	}

	if !sawTrades {
		return nil, fmt.Errorf("%s section not found", models.SectionTrades)
	}
	return stmt, nil
}

func rowWarning(sec models.SectionType, i int, r tableRow, format string, args ...any) string {
	return fmt.Sprintf("%s row %d (page %d): %s", sec, i+1, r.page, fmt.Sprintf(format, args...))
}

func normalizeSide(s string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B", "BOT", "BOUGHT":
		return models.SideBuy, true
	case "SELL", "S", "SLD", "SOLD":
		return models.SideSell, true
	}
	return "", false
}

func (p robinhood) readTrades(ctx context.Context, doc *models.ExtractedDocument, sec models.DetectedSection, stmt *models.ParsedStatement) error {
	rows, err := extractTable(ctx, doc, sec, p.rules.trades)
	if err != nil {
		return fmt.Errorf("%s: %w", sec.Type, err)
	}

	for i, r := range rows {
		warn := func(format string, args ...any) {
			stmt.Warnings = append(stmt.Warnings, rowWarning(sec.Type, i, r, format, args...))
		}

		date, ok := values.ParseDate(r.cell(colTradeDate))
		if !ok {
			warn("invalid trade date %q", r.cell(colTradeDate))
			continue
		}
		symbol := strings.TrimSpace(r.cell(colSymbol))
		if symbol == "" {
			warn("missing symbol")
			continue
		}
		side, ok := normalizeSide(r.cell(colSide))
		if !ok {
			warn("unknown side %q", r.cell(colSide))
			continue
		}
		qty, ok := values.ParseInteger(r.cell(colQty))
		if !ok {
			warn("invalid quantity %q", r.cell(colQty))
			continue
		}
		price, ok := values.ParsePrice(r.cell(colPrice))
		if !ok {
			warn("invalid price %q", r.cell(colPrice))
			continue
		}

		var fees float64
		if raw := r.cell(colFees); raw != "" {
			if fees, ok = values.ParseCurrency(raw); !ok {
				warn("invalid fees %q; using 0", raw)
				fees = 0
			}
		}

		market := symbols.Parse(symbol)
		t := models.Trade{
			TradeDate: date,
			Exchange:  strings.TrimSpace(r.cell(colExchange)),
			Symbol:    symbol,
			Side:      side,
			Quantity:  qty,
			Price:     price,
			Fees:      math.Abs(fees),
			Market:    market,
		}
		if t.Exchange == "" {
			t.Exchange = market.Exchange
		}

		if amount, ok := values.ParseCurrency(r.cell(colAmount)); ok {
			t.Amount = amount
		} else {
			t.Amount = tradeAmount(t)
			warn("amount missing; derived %.2f from quantity, price and fees", t.Amount)
		}
		stmt.Trades = append(stmt.Trades, t)
	}
	return nil
}

// tradeAmount is the cash effect of t: purchases cost price plus fees,
// sales return price less fees.
func tradeAmount(t models.Trade) float64 {
	gross := decimal.NewFromFloat(t.Price).Mul(decimal.NewFromInt(int64(t.Quantity)))
	fees := decimal.NewFromFloat(t.Fees)
	if t.Side == models.SideBuy {
		return gross.Add(fees).Neg().Round(2).InexactFloat64()
	}
	return gross.Sub(fees).Round(2).InexactFloat64()
}

func (p robinhood) readClosed(ctx context.Context, doc *models.ExtractedDocument, sec models.DetectedSection, stmt *models.ParsedStatement) error {
	rows, err := extractTable(ctx, doc, sec, closedTable)
	if err != nil {
		return fmt.Errorf("%s: %w", sec.Type, err)
	}

	for i, r := range rows {
		warn := func(format string, args ...any) {
			stmt.Warnings = append(stmt.Warnings, rowWarning(sec.Type, i, r, format, args...))
		}

		symbol := strings.TrimSpace(r.cell(colSymbol))
		if symbol == "" {
			warn("missing symbol")
			continue
		}
		qty, ok := values.ParseInteger(r.cell(colQty))
		if !ok {
			warn("invalid quantity %q", r.cell(colQty))
			continue
		}
		cost, _ := values.ParseCurrency(r.cell(colCost))
		proceeds, _ := values.ParseCurrency(r.cell(colProceeds))
		openDate, _ := values.ParseDate(r.cell(colOpenDate))
		closeDate, _ := values.ParseDate(r.cell(colCloseDate))

		pnl, ok := values.ParseCurrency(r.cell(colRealized))
		if !ok {
			pnl = decimal.NewFromFloat(proceeds).Sub(decimal.NewFromFloat(cost)).Round(2).InexactFloat64()
			warn("realized P&L missing; derived %.2f from proceeds and cost", pnl)
		}

		stmt.ClosedPositions = append(stmt.ClosedPositions, models.ClosedPosition{
			Symbol:      symbol,
			Quantity:    qty,
			OpenDate:    openDate,
			CloseDate:   closeDate,
			CostBasis:   cost,
			Proceeds:    proceeds,
			RealizedPnL: pnl,
			Market:      symbols.Parse(symbol),
		})
	}
	return nil
}

func (p robinhood) readJournal(ctx context.Context, doc *models.ExtractedDocument, sec models.DetectedSection, stmt *models.ParsedStatement) error {
	rows, err := extractTable(ctx, doc, sec, journalTable)
	if err != nil {
		return fmt.Errorf("%s: %w", sec.Type, err)
	}

	for i, r := range rows {
		date, ok := values.ParseDate(r.cell(colDate))
		if !ok {
			stmt.Warnings = append(stmt.Warnings, rowWarning(sec.Type, i, r, "invalid date %q", r.cell(colDate)))
			continue
		}
		amount, ok := values.ParseCurrency(r.cell(colAmount))
		if !ok {
			stmt.Warnings = append(stmt.Warnings, rowWarning(sec.Type, i, r, "invalid amount %q", r.cell(colAmount)))
			continue
		}
		stmt.JournalEntries = append(stmt.JournalEntries, models.JournalEntry{
			Date:        date,
			Description: strings.TrimSpace(r.cell(colDescription)),
			Amount:      amount,
		})
	}
	return nil
}

func (p robinhood) readOpen(ctx context.Context, doc *models.ExtractedDocument, sec models.DetectedSection, stmt *models.ParsedStatement) error {
	rows, err := extractTable(ctx, doc, sec, openTable)
	if err != nil {
		return fmt.Errorf("%s: %w", sec.Type, err)
	}

	for i, r := range rows {
		symbol := strings.TrimSpace(r.cell(colSymbol))
		qty, ok := values.ParseInteger(r.cell(colQty))
		if symbol == "" || !ok {
			stmt.Warnings = append(stmt.Warnings, rowWarning(sec.Type, i, r, "missing symbol or quantity"))
			continue
		}
		avg, _ := values.ParsePrice(r.cell(colAvgPrice))
		mv, _ := values.ParseCurrency(r.cell(colMarketValue))

		stmt.OpenPositions = append(stmt.OpenPositions, models.OpenPosition{
			Symbol:       symbol,
			Quantity:     qty,
			AveragePrice: avg,
			MarketValue:  mv,
			Market:       symbols.Parse(symbol),
		})
	}
	return nil
}

// allSections is the report order of SectionValidation entries.
var allSections = []models.SectionType{
	models.SectionAccountSummary,
	models.SectionTrades,
	models.SectionClosedPositions,
	models.SectionJournalEntries,
	models.SectionOpenPositions,
}

// validate checks required sections and the cash roll-forward.
func (p robinhood) validate(stmt *models.ParsedStatement) models.ValidationResult {
	res := models.ValidationResult{Errors: []string{}, Warnings: []string{}}
	if stmt == nil {
		res.Errors = append(res.Errors, "no statement")
		return res
	}

	found := make(map[models.SectionType]bool)
	for _, s := range stmt.RawSections {
		found[s.Type] = true
	}
	rowCount := map[models.SectionType]int{
		models.SectionTrades:          len(stmt.Trades),
		models.SectionClosedPositions: len(stmt.ClosedPositions),
		models.SectionJournalEntries:  len(stmt.JournalEntries),
		models.SectionOpenPositions:   len(stmt.OpenPositions),
	}
	if found[models.SectionAccountSummary] {
		rowCount[models.SectionAccountSummary] = 1
	}

	for _, st := range allSections {
		required := false
		for _, r := range p.rules.required {
			if r == st {
				required = true
			}
		}
		res.Sections = append(res.Sections, models.SectionValidation{
			Section:  st,
			Required: required,
			Found:    found[st],
			RowCount: rowCount[st],
		})
		if required && !found[st] {
			res.Errors = append(res.Errors, fmt.Sprintf("required section %s not found", st))
		}
	}

	sum := stmt.AccountSummary
	if sum.OpeningBalance == nil || sum.ClosingBalance == nil {
		res.Warnings = append(res.Warnings, "opening or closing balance missing; balance roll-forward not checked")
	} else {
		expected := decimal.NewFromFloat(*sum.OpeningBalance)
		for _, t := range stmt.Trades {
			expected = expected.Add(decimal.NewFromFloat(t.Amount))
		}
		if len(stmt.JournalEntries) > 0 {
			for _, j := range stmt.JournalEntries {
				expected = expected.Add(decimal.NewFromFloat(j.Amount))
			}
		} else {
			if sum.Deposits != nil {
				expected = expected.Add(decimal.NewFromFloat(*sum.Deposits))
			}
			if sum.Withdrawals != nil {
				expected = expected.Sub(decimal.NewFromFloat(math.Abs(*sum.Withdrawals)))
			}
		}
		closing := decimal.NewFromFloat(*sum.ClosingBalance)
		if diff := expected.Sub(closing); diff.Abs().GreaterThan(reconcile.DefaultTolerance) {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"closing balance %s does not match opening balance plus activity %s (difference %s)",
				closing.StringFixed(2), expected.StringFixed(2), diff.StringFixed(2),
			))
		}
	}

	res.Success = len(res.Errors) == 0
	return res
}
