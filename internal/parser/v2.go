package parser

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/reconcile"
	"github.com/insightdelivered/statement-engine/internal/version"
)

// RobinhoodV2 reads the layout introduced on 2024-06-01, which adds exchange
// and per-trade fee columns and a Purchase and Sale section of closed
// positions.
type RobinhoodV2 struct {
	robinhood
}

// NewRobinhoodV2 returns the 2024.06 parser.
func NewRobinhoodV2() *RobinhoodV2 {
	return &RobinhoodV2{newRobinhood(layoutRules{
		id:      "robinhood-v2",
		version: version.V202406,
		trades: tableSpec{
			section: models.SectionTrades,
			headers: []string{colTradeDate, colExchange, colSymbol, colSide, colQty, colPrice, colFees, colAmount},
		},
		closedPositions: true,
		required:        []models.SectionType{models.SectionAccountSummary, models.SectionTrades},
	})}
}

// Validate adds FIFO realized P&L reconciliation to the common checks: the
// P&L matched from the trades must agree with the summary figure and with
// the Purchase and Sale total.
func (p *RobinhoodV2) Validate(stmt *models.ParsedStatement) models.ValidationResult {
	res := p.validate(stmt)
	if stmt == nil || len(stmt.Trades) == 0 {
		return res
	}

	fifo := reconcile.MatchFIFO(stmt.Trades)
	res.Warnings = append(res.Warnings, fifo.Notes...)

	if reported := stmt.AccountSummary.RealizedPnL; reported != nil {
		check := fifo.Check("account_summary", decimal.NewFromFloat(*reported), reconcile.DefaultTolerance)
		res.PnLValidation = append(res.PnLValidation, check)
		if !check.WithinTolerance {
			res.Errors = append(res.Errors, pnlMismatch(check))
		}
	}
	if len(stmt.ClosedPositions) > 0 {
		check := fifo.Check("closed_positions", reconcile.SumClosed(stmt.ClosedPositions), reconcile.DefaultTolerance)
		res.PnLValidation = append(res.PnLValidation, check)
		if !check.WithinTolerance {
			res.Errors = append(res.Errors, pnlMismatch(check))
		}
	}

	res.Success = len(res.Errors) == 0
	return res
}

func pnlMismatch(c models.PnLValidation) string {
	return fmt.Sprintf("FIFO realized P&L %.2f differs from %s total %.2f by %.2f",
		c.Actual, c.Scope, c.Expected, c.Difference)
}
