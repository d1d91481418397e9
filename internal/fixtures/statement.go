package fixtures

// Column x positions and header labels of the synthetic tables.
var (
	V1TradeX       = []float64{40, 120, 330, 380, 440, 520}
	V1TradeHeaders = []string{"Trade Date", "Symbol", "Side", "Qty", "Price", "Amount"}

	V2TradeX       = []float64{40, 105, 160, 330, 370, 410, 460, 520}
	V2TradeHeaders = []string{"Trade Date", "Exchange", "Symbol", "Side", "Qty", "Price", "Fees", "Amount"}

	ClosedX       = []float64{40, 200, 240, 310, 380, 440, 510}
	ClosedHeaders = []string{"Symbol", "Qty", "Open Date", "Close Date", "Cost", "Proceeds", "Realized P&L"}

	JournalX       = []float64{40, 120, 450}
	JournalHeaders = []string{"Date", "Description", "Amount"}

	OpenX       = []float64{40, 250, 320, 450}
	OpenHeaders = []string{"Symbol", "Qty", "Avg Price", "Market Value"}
)

// Sample rows. The three V2 trades realise $1.50 under FIFO and, with a
// $50.00 deposit, roll a $100.00 opening balance to $149.75.
var (
	V2Trades = [][]string{
		{"07/02/2024", "KX", "KXNFLGAME-25SEP07PHIDAL-PHI", "BUY", "10", "$0.45", "$0.10", "-$4.60"},
		{"07/03/2024", "KX", "KXNFLGAME-25SEP07PHIDAL-PHI", "SELL", "10", "$0.60", "$0.10", "$5.90"},
		{"07/05/2024", "KX", "KXBTCD-25JAN0117-T100000", "BUY", "5", "$0.30", "$0.05", "-$1.55"},
	}

	V1Trades = [][]string{
		{"01/08/2024", "KXFEDDECISION-24JAN-H0", "BUY", "20", "$0.40", "-$8.00"},
		{"01/09/2024", "KXFEDDECISION-24JAN-H0", "SELL", "20", "$0.55", "$11.00"},
	}

	ClosedRows = [][]string{
		{"KXNFLGAME-25SEP07PHIDAL-PHI", "10", "07/02/2024", "07/03/2024", "$4.50", "$6.00", "$1.50"},
	}

	V2Journal = [][]string{
		{"07/01/2024", "ACH Deposit", "$50.00"},
	}

	OpenRows = [][]string{
		{"KXBTCD-25JAN0117-T100000", "5", "$0.30", "$1.75"},
	}
)

const summaryValueX = 400.0

// Preamble writes the brand and statement lines. An empty period is left out.
func (b *Builder) Preamble(period string) *Builder {
	b.Text("Robinhood Derivatives, LLC")
	b.Text("Event Contracts Monthly Statement")
	b.Text("Account #: 5RH-12345678")
	if period != "" {
		b.Text(period)
	}
	return b
}

// Summary writes the Account Summary section from label/value pairs.
func (b *Builder) Summary(pairs ...[2]string) *Builder {
	b.Text("Account Summary")
	for _, p := range pairs {
		b.Line(Cell{Text: p[0], X: leftMargin}, Cell{Text: p[1], X: summaryValueX})
	}
	return b
}

// Table writes a section header, the column header row and the data rows.
func (b *Builder) Table(title string, xs []float64, headers []string, rows [][]string) *Builder {
	b.Text(title)
	b.Row(xs, headers...)
	for _, r := range rows {
		b.Row(xs, r...)
	}
	return b
}

// V2Statement lays out a complete 2024.06 statement with the sample rows.
func V2Statement(period string) *Builder {
	return NewBuilder().
		Preamble(period).
		Summary(
			[2]string{"Opening Balance", "$100.00"},
			[2]string{"Deposits", "$50.00"},
			[2]string{"Exchange Fees", "$0.25"},
			[2]string{"Realized P&L", "$1.50"},
			[2]string{"Closing Balance", "$149.75"},
		).
		Table("Trade Activity", V2TradeX, V2TradeHeaders, V2Trades).
		Table("Purchase and Sale", ClosedX, ClosedHeaders, ClosedRows).
		Table("Journal Entries", JournalX, JournalHeaders, V2Journal).
		Table("Open Positions", OpenX, OpenHeaders, OpenRows)
}

// V1Statement lays out a complete 2024.01 statement.
func V1Statement(period string) *Builder {
	return NewBuilder().
		Preamble(period).
		Summary(
			[2]string{"Opening Balance", "$200.00"},
			[2]string{"Commissions", "$0.00"},
			[2]string{"Net Liquidating Value", "$203.00"},
			[2]string{"Closing Balance", "$203.00"},
		).
		Table("Trade Activity", V1TradeX, V1TradeHeaders, V1Trades)
}
