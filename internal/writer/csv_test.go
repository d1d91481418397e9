package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-engine/internal/models"
)

func ptr(f float64) *float64 { return &f }

func sampleStatement() *models.ParsedStatement {
	return &models.ParsedStatement{
		ParserVersion: "2024.06",
		AccountSummary: models.AccountSummary{
			AccountNumber:  "5RH-12345678",
			PeriodStart:    "2024-07-01",
			PeriodEnd:      "2024-07-31",
			OpeningBalance: ptr(100),
			ClosingBalance: ptr(149.75),
		},
		Trades: []models.Trade{
			{TradeDate: "2024-07-02", Exchange: "KX", Symbol: "KXNFLGAME-25SEP07PHIDAL-PHI", Side: "BUY", Quantity: 10, Price: 0.45, Fees: 0.10, Amount: -4.60, Market: models.ParsedSymbol{Category: models.CategoryNFL}},
			{TradeDate: "2024-07-03", Exchange: "KX", Symbol: "KXNFLGAME-25SEP07PHIDAL-PHI", Side: "SELL", Quantity: 10, Price: 0.6, Amount: 6},
		},
		ClosedPositions: []models.ClosedPosition{
			{Symbol: "KXNFLGAME-25SEP07PHIDAL-PHI", Quantity: 10, OpenDate: "2024-07-02", CloseDate: "2024-07-03", CostBasis: 4.5, Proceeds: 6, RealizedPnL: 1.5},
		},
		JournalEntries: []models.JournalEntry{{Date: "2024-07-01", Description: "ACH Deposit, instant", Amount: 50}},
	}
}

func TestCSVWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	require.NoError(t, w.Write(&buf, sampleStatement()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// 5 metadata lines + 1 header + 2 trades
	require.Len(t, lines, 8)

	assert.Equal(t, "# Parser Version,2024.06", lines[0])
	assert.Equal(t, "# Account,5RH-12345678", lines[1])
	assert.Equal(t, "# Period,2024-07-01 to 2024-07-31", lines[2])
	assert.Equal(t, "# Opening Balance,100.00", lines[3])
	assert.Equal(t, "# Closing Balance,149.75", lines[4])
	assert.Equal(t, "Date,Exchange,Symbol,Category,Side,Quantity,Price,Fees,Amount", lines[5])
	assert.Equal(t, "2024-07-02,KX,KXNFLGAME-25SEP07PHIDAL-PHI,NFL,BUY,10,0.45,0.10,-4.60", lines[6])
	assert.Equal(t, "2024-07-03,KX,KXNFLGAME-25SEP07PHIDAL-PHI,,SELL,10,0.60,,6.00", lines[7])
}

func TestCSVWriter_WriteNoHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: false}
	require.NoError(t, w.Write(&buf, sampleStatement()))

	output := buf.String()
	assert.NotContains(t, output, "# Parser Version")
	assert.True(t, strings.HasPrefix(output, "Date,Exchange,Symbol"))
}

func TestCSVWriter_OtherTables(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVWriter{Table: TableClosed}).Write(&buf, sampleStatement()))
	assert.Contains(t, buf.String(), "Symbol,Category,Quantity,Open Date,Close Date,Cost Basis,Proceeds,Realized P&L")
	assert.Contains(t, buf.String(), ",4.50,6.00,1.50")

	buf.Reset()
	require.NoError(t, (&CSVWriter{Table: TableJournal}).Write(&buf, sampleStatement()))
	assert.Contains(t, buf.String(), `2024-07-01,"ACH Deposit, instant",50.00`)

	buf.Reset()
	assert.Error(t, (&CSVWriter{Table: "bogus"}).Write(&buf, sampleStatement()))
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, (&CSVWriter{}).WriteToFile(path, sampleStatement()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "KXNFLGAME-25SEP07PHIDAL-PHI")

	assert.Error(t, (&CSVWriter{}).WriteToFile(filepath.Join(t.TempDir(), "missing", "out.csv"), sampleStatement()))
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"amount", formatAmount(25.99), "25.99"},
		{"blank zero", formatAmount(0), ""},
		{"money keeps zero", formatMoney(0), "0.00"},
		{"negative", formatMoney(-4.6), "-4.60"},
		{"price two places", formatPrice(0.5), "0.50"},
		{"sub-cent price", formatPrice(0.455), "0.455"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
