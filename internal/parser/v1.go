package parser

import (
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/version"
)

// RobinhoodV1 reads statements issued before the June 2024 layout change:
// a single trades table without exchange or fee columns.
type RobinhoodV1 struct {
	robinhood
}

// NewRobinhoodV1 returns the 2024.01 parser.
func NewRobinhoodV1() *RobinhoodV1 {
	return &RobinhoodV1{newRobinhood(layoutRules{
		id:      "robinhood-v1",
		version: version.V202401,
		trades: tableSpec{
			section: models.SectionTrades,
			headers: []string{colTradeDate, colSymbol, colSide, colQty, colPrice, colAmount},
		},
		required: []models.SectionType{models.SectionAccountSummary, models.SectionTrades},
	})}
}

// Validate checks required sections and the balance roll-forward.
func (p *RobinhoodV1) Validate(stmt *models.ParsedStatement) models.ValidationResult {
	return p.validate(stmt)
}
