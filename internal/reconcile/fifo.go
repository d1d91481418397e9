// Package reconcile matches opening and closing trades first-in-first-out
// to compute realized P&L, and checks the result against the figure the
// statement reports.
//
// A closing fill larger than the oldest open lot consumes lots in order
// until it is exhausted; whatever remains opens a lot on the opposite side.
// Zero-quantity trades carry no position and are skipped with a note.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// DefaultTolerance is the largest difference treated as a match.
var DefaultTolerance = decimal.RequireFromString("0.01")

// Lot is an open position fragment waiting to be closed.
type Lot struct {
	Symbol    string
	Side      string // side of the opening trade
	Quantity  int
	Price     decimal.Decimal
	TradeDate string
}

// Match is one closed slice of a lot.
type Match struct {
	Symbol     string
	Quantity   int
	EntryDate  string
	ExitDate   string
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Short      bool
	PnL        decimal.Decimal
}

// Result is the outcome of MatchFIFO.
type Result struct {
	Matches  []Match
	OpenLots map[string][]Lot
	Realized decimal.Decimal
	Notes    []string
}

// MatchFIFO walks trades in the given order and pairs each closing fill
// with the oldest open lot of the same symbol on the opposite side.
// P&L is gross of fees: (exit - entry) * qty for longs, reversed for shorts.
func MatchFIFO(trades []models.Trade) Result {
	res := Result{
		OpenLots: make(map[string][]Lot),
		Realized: decimal.Zero,
	}

	for i, t := range trades {
		if t.Quantity == 0 {
			res.Notes = append(res.Notes, fmt.Sprintf("trade %d (%s %s) has zero quantity; skipped", i+1, t.Side, t.Symbol))
			continue
		}
		if t.Side != models.SideBuy && t.Side != models.SideSell {
			res.Notes = append(res.Notes, fmt.Sprintf("trade %d (%s) has unknown side %q; skipped", i+1, t.Symbol, t.Side))
			continue
		}

		qty := t.Quantity
		if qty < 0 {
			qty = -qty
		}
		price := decimal.NewFromFloat(t.Price)
		queue := res.OpenLots[t.Symbol]

		for qty > 0 && len(queue) > 0 && queue[0].Side != t.Side {
			lot := &queue[0]
			n := min(qty, lot.Quantity)

			m := Match{
				Symbol:     t.Symbol,
				Quantity:   n,
				EntryDate:  lot.TradeDate,
				ExitDate:   t.TradeDate,
				EntryPrice: lot.Price,
				ExitPrice:  price,
				Short:      lot.Side == models.SideSell,
			}
			diff := price.Sub(lot.Price)
			if m.Short {
				diff = diff.Neg()
			}
			m.PnL = diff.Mul(decimal.NewFromInt(int64(n)))

			res.Matches = append(res.Matches, m)
			res.Realized = res.Realized.Add(m.PnL)

			lot.Quantity -= n
			qty -= n
			if lot.Quantity == 0 {
				queue = queue[1:]
			}
		}

		if qty > 0 {
			queue = append(queue, Lot{
				Symbol:    t.Symbol,
				Side:      t.Side,
				Quantity:  qty,
				Price:     price,
				TradeDate: t.TradeDate,
			})
		}

		if len(queue) == 0 {
			delete(res.OpenLots, t.Symbol)
		} else {
			res.OpenLots[t.Symbol] = queue
		}
	}

	return res
}

// Check compares the computed realized P&L with a reported figure.
func (r Result) Check(scope string, reported decimal.Decimal, tolerance decimal.Decimal) models.PnLValidation {
	diff := r.Realized.Sub(reported)
	return models.PnLValidation{
		Scope:           scope,
		Expected:        reported.InexactFloat64(),
		Actual:          r.Realized.InexactFloat64(),
		Difference:      diff.InexactFloat64(),
		WithinTolerance: diff.Abs().LessThanOrEqual(tolerance),
	}
}

// SumClosed totals the realized P&L column of closed positions.
func SumClosed(positions []models.ClosedPosition) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(decimal.NewFromFloat(p.RealizedPnL))
	}
	return total
}
