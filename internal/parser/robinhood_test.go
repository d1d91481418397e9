package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-engine/internal/fixtures"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/version"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	require.NoError(t, RegisterDefaults(r, 10))
	return r
}

func TestParse_EndToEndV2(t *testing.T) {
	res, err := defaultRegistry(t).Parse(context.Background(), julyDoc())
	require.NoError(t, err)

	assert.Equal(t, version.V202406, res.VersionInfo.Version)
	assert.Equal(t, models.MethodDate, res.VersionInfo.Method)
	assert.Equal(t, "2024-07-10", res.VersionInfo.StatementDate)
	assert.Equal(t, "robinhood-v2", res.ParserID)

	stmt := res.Statement
	assert.Equal(t, version.V202406, stmt.ParserVersion)
	assert.Empty(t, stmt.Warnings)
	require.Len(t, stmt.Trades, 3)

	first := stmt.Trades[0]
	assert.Equal(t, "2024-07-02", first.TradeDate)
	assert.Equal(t, "KX", first.Exchange)
	assert.Equal(t, "KXNFLGAME-25SEP07PHIDAL-PHI", first.Symbol)
	assert.Equal(t, models.SideBuy, first.Side)
	assert.Equal(t, 10, first.Quantity)
	assert.InDelta(t, 0.45, first.Price, 1e-9)
	assert.InDelta(t, 0.10, first.Fees, 1e-9)
	assert.InDelta(t, -4.60, first.Amount, 1e-9)
	assert.Equal(t, models.CategoryNFL, first.Market.Category)
	assert.Equal(t, models.SideSell, stmt.Trades[1].Side)
	assert.Equal(t, models.CategoryCrypto, stmt.Trades[2].Market.Category)

	require.Len(t, stmt.ClosedPositions, 1)
	closed := stmt.ClosedPositions[0]
	assert.Equal(t, 10, closed.Quantity)
	assert.Equal(t, "2024-07-02", closed.OpenDate)
	assert.Equal(t, "2024-07-03", closed.CloseDate)
	assert.InDelta(t, 4.50, closed.CostBasis, 1e-9)
	assert.InDelta(t, 6.00, closed.Proceeds, 1e-9)
	assert.InDelta(t, 1.50, closed.RealizedPnL, 1e-9)

	require.Len(t, stmt.JournalEntries, 1)
	assert.Equal(t, models.JournalEntry{Date: "2024-07-01", Description: "ACH Deposit", Amount: 50}, stmt.JournalEntries[0])

	require.Len(t, stmt.OpenPositions, 1)
	assert.Equal(t, 5, stmt.OpenPositions[0].Quantity)
	assert.InDelta(t, 1.75, stmt.OpenPositions[0].MarketValue, 1e-9)

	sum := stmt.AccountSummary
	assert.Equal(t, "5RH-12345678", sum.AccountNumber)
	assert.Equal(t, "2024-07-10", sum.PeriodEnd)
	require.NotNil(t, sum.OpeningBalance)
	require.NotNil(t, sum.ClosingBalance)
	require.NotNil(t, sum.Deposits)
	require.NotNil(t, sum.TotalFees)
	require.NotNil(t, sum.RealizedPnL)
	assert.InDelta(t, 100.0, *sum.OpeningBalance, 1e-9)
	assert.InDelta(t, 149.75, *sum.ClosingBalance, 1e-9)
	assert.InDelta(t, 50.0, *sum.Deposits, 1e-9)
	assert.InDelta(t, 0.25, *sum.TotalFees, 1e-9)
	assert.InDelta(t, 1.50, *sum.RealizedPnL, 1e-9)
	assert.Nil(t, sum.Withdrawals)

	var types []models.SectionType
	for _, s := range stmt.RawSections {
		types = append(types, s.Type)
	}
	assert.Equal(t, []models.SectionType{
		models.SectionAccountSummary,
		models.SectionTrades,
		models.SectionClosedPositions,
		models.SectionJournalEntries,
		models.SectionOpenPositions,
	}, types)
}

func TestParse_RowMentioningHeaderNames(t *testing.T) {
	journal := [][]string{
		{"07/01/2024", "ACH Deposit", "$50.00"},
		{"07/08/2024", "Date correction, amount adjusted", "$1.00"},
	}
	doc := fixtures.NewBuilder().
		Preamble("Statement Period: 07/10/2024").
		Summary([2]string{"Opening Balance", "$100.00"}).
		Table("Trade Activity", fixtures.V2TradeX, fixtures.V2TradeHeaders, fixtures.V2Trades).
		Table("Journal Entries", fixtures.JournalX, fixtures.JournalHeaders, journal).
		Build()

	res, err := defaultRegistry(t).Parse(context.Background(), doc)
	require.NoError(t, err)

	entries := res.Statement.JournalEntries
	require.Len(t, entries, 2)
	assert.Equal(t, models.JournalEntry{Date: "2024-07-08", Description: "Date correction, amount adjusted", Amount: 1}, entries[1])
}

func TestParse_EndToEndV1(t *testing.T) {
	doc := fixtures.V1Statement("Statement Period: 01/01/2024 - 01/31/2024").Build()

	res, v, err := defaultRegistry(t).ParseAndValidate(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, "robinhood-v1", res.ParserID)
	require.Len(t, res.Statement.Trades, 2)
	assert.Equal(t, "KX", res.Statement.Trades[0].Exchange, "taken from the symbol prefix")
	assert.Equal(t, models.CategoryEconomics, res.Statement.Trades[0].Market.Category)
	assert.InDelta(t, 11.0, res.Statement.Trades[1].Amount, 1e-9)
	assert.Equal(t, "2024-01-01", res.Statement.AccountSummary.PeriodStart)
	assert.Equal(t, "2024-01-31", res.Statement.AccountSummary.PeriodEnd)
	require.NotNil(t, res.Statement.AccountSummary.TotalFees)

	assert.True(t, v.Success, v.Errors)
	assert.Empty(t, v.PnLValidation)
}

func TestParseAndValidate_V2Reconciles(t *testing.T) {
	res, v, err := defaultRegistry(t).ParseAndValidate(context.Background(), julyDoc())
	require.NoError(t, err)

	assert.True(t, v.Success, v.Errors)
	require.Len(t, v.PnLValidation, 2)
	for _, c := range v.PnLValidation {
		assert.True(t, c.WithinTolerance, c.Scope)
		assert.InDelta(t, 1.5, c.Actual, 1e-9)
	}
	assert.Empty(t, res.Statement.Warnings)

	require.Len(t, v.Sections, 5)
	assert.True(t, v.Sections[0].Required)
	assert.True(t, v.Sections[0].Found)
	assert.Equal(t, 3, v.Sections[1].RowCount)
}

func TestParseAndValidate_ReportsMismatches(t *testing.T) {
	doc := fixtures.NewBuilder().
		Preamble("Statement Period: 07/10/2024").
		Summary(
			[2]string{"Opening Balance", "$100.00"},
			[2]string{"Realized P&L", "$2.00"},
			[2]string{"Closing Balance", "$120.00"},
		).
		Table("Trade Activity", fixtures.V2TradeX, fixtures.V2TradeHeaders, fixtures.V2Trades).
		Build()

	res, v, err := defaultRegistry(t).ParseAndValidate(context.Background(), doc)
	require.NoError(t, err, "validation problems never fail the parse")

	assert.False(t, v.Success)
	require.Len(t, v.Errors, 2)
	assert.Contains(t, v.Errors[0], "closing balance 120.00")
	assert.Contains(t, v.Errors[1], "account_summary")
	require.Len(t, v.PnLValidation, 1)
	assert.False(t, v.PnLValidation[0].WithinTolerance)

	require.Len(t, res.Statement.Warnings, 2)
	assert.Contains(t, res.Statement.Warnings[0], "validation: ")
	require.Len(t, res.Statement.Trades, 3)
}

func TestValidate_MissingRequiredSection(t *testing.T) {
	doc := fixtures.NewBuilder().
		Preamble("Statement Period: 07/10/2024").
		Table("Trade Activity", fixtures.V2TradeX, fixtures.V2TradeHeaders, fixtures.V2Trades).
		Build()

	p := NewRobinhoodV2()
	stmt, err := p.Parse(context.Background(), doc)
	require.NoError(t, err)

	v := p.Validate(stmt)
	assert.False(t, v.Success)
	assert.Contains(t, v.Errors, "required section account_summary not found")
	assert.Contains(t, v.Warnings, "opening or closing balance missing; balance roll-forward not checked")
}

func TestParse_TableContinuesAcrossPages(t *testing.T) {
	doc := fixtures.NewBuilder().
		Preamble("Statement Period: 07/10/2024").
		Table("Trade Activity", fixtures.V2TradeX, fixtures.V2TradeHeaders, fixtures.V2Trades[:2]).
		Text("Page 1 of 2").
		NewPage().
		Row(fixtures.V2TradeX, fixtures.V2TradeHeaders...).
		Row(fixtures.V2TradeX, fixtures.V2Trades[2]...).
		Text("Page 2 of 2").
		Build()

	res, err := defaultRegistry(t).Parse(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, res.Statement.Trades, 3)
	assert.Equal(t, "2024-07-05", res.Statement.Trades[2].TradeDate)
	assert.Empty(t, res.Statement.Warnings)

	require.Len(t, res.Statement.RawSections, 1)
	assert.Equal(t, 1, res.Statement.RawSections[0].StartPage)
	assert.Equal(t, 2, res.Statement.RawSections[0].EndPage)
}

func TestParse_RowProblemsBecomeWarnings(t *testing.T) {
	rows := [][]string{
		fixtures.V2Trades[0],
		{"07/03/2024", "KX", "KXNFLGAME-25SEP07PHIDAL-PHI", "SELL", "ten", "$0.60", "$0.10", "$5.90"},
		{"07/05/2024", "KX", "KXBTCD-25JAN0117-T100000", "BUY", "5", "$0.30", "$0.05", ""},
	}
	doc := fixtures.NewBuilder().
		Preamble("Statement Period: 07/10/2024").
		Table("Trade Activity", fixtures.V2TradeX, fixtures.V2TradeHeaders, rows).
		Build()

	stmt, err := NewRobinhoodV2().Parse(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, stmt.Trades, 2)
	assert.InDelta(t, -1.55, stmt.Trades[1].Amount, 1e-9)
	require.Len(t, stmt.Warnings, 2)
	assert.Contains(t, stmt.Warnings[0], `trades row 2 (page 1): invalid quantity "ten"`)
	assert.Contains(t, stmt.Warnings[1], "amount missing; derived -1.55")
}

func TestParse_FailsClosedWithoutTrades(t *testing.T) {
	doc := fixtures.NewBuilder().
		Preamble("Statement Period: 07/10/2024").
		Summary([2]string{"Opening Balance", "$100.00"}).
		Build()

	_, err := NewRobinhoodV2().Parse(context.Background(), doc)
	assert.ErrorContains(t, err, "trades section not found")

	headerless := fixtures.NewBuilder().
		Preamble("").
		Text("Trade Activity").
		Text("07/02/2024 nothing lines up here 1.00").
		Build()
	_, err = NewRobinhoodV2().Parse(context.Background(), headerless)
	assert.ErrorIs(t, err, errNoHeader)
}

func TestCanParse(t *testing.T) {
	v1, v2 := NewRobinhoodV1(), NewRobinhoodV2()

	v2doc := julyDoc()
	assert.True(t, v2.CanParse(v2doc))
	assert.True(t, v1.CanParse(v2doc), "v1 columns are a subset of v2's")

	v1doc := fixtures.V1Statement("").Build()
	assert.True(t, v1.CanParse(v1doc))
	assert.False(t, v2.CanParse(v1doc))

	unbranded := fixtures.NewBuilder().Row(fixtures.V2TradeX, fixtures.V2TradeHeaders...).Build()
	assert.False(t, v2.CanParse(unbranded))
}

func TestEffectiveRanges(t *testing.T) {
	v1, v2 := NewRobinhoodV1(), NewRobinhoodV2()

	assert.Equal(t, jan2024, v1.EffectiveFrom())
	to, ok := v1.EffectiveTo()
	assert.True(t, ok)
	assert.Equal(t, june2024, to)

	assert.Equal(t, june2024, v2.EffectiveFrom())
	_, ok = v2.EffectiveTo()
	assert.False(t, ok)
}
