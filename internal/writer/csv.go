package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// Table selects which record set of a statement is exported.
type Table string

const (
	TableTrades  Table = "trades"
	TableClosed  Table = "closed"
	TableJournal Table = "journal"
	TableOpen    Table = "open"
)

// Tables lists the exportable record sets.
var Tables = []Table{TableTrades, TableClosed, TableJournal, TableOpen}

// CSVWriter writes one record set of a parsed statement as CSV.
type CSVWriter struct {
	IncludeHeader bool
	Table         Table // defaults to TableTrades
}

type tradeRow struct {
	Date     string `csv:"Date"`
	Exchange string `csv:"Exchange"`
	Symbol   string `csv:"Symbol"`
	Category string `csv:"Category"`
	Side     string `csv:"Side"`
	Quantity int    `csv:"Quantity"`
	Price    string `csv:"Price"`
	Fees     string `csv:"Fees"`
	Amount   string `csv:"Amount"`
}

type closedRow struct {
	Symbol    string `csv:"Symbol"`
	Category  string `csv:"Category"`
	Quantity  int    `csv:"Quantity"`
	OpenDate  string `csv:"Open Date"`
	CloseDate string `csv:"Close Date"`
	Cost      string `csv:"Cost Basis"`
	Proceeds  string `csv:"Proceeds"`
	Realized  string `csv:"Realized P&L"`
}

type journalRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
}

type openRow struct {
	Symbol      string `csv:"Symbol"`
	Category    string `csv:"Category"`
	Quantity    int    `csv:"Quantity"`
	AvgPrice    string `csv:"Average Price"`
	MarketValue string `csv:"Market Value"`
}

// WriteToFile writes the statement to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, stmt *models.ParsedStatement) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, stmt)
}

// Write writes metadata comment rows (when IncludeHeader is set), then the
// column header and one row per record.
func (w *CSVWriter) Write(out io.Writer, stmt *models.ParsedStatement) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, row := range metadata(stmt) {
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	rows, err := w.rows(stmt)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}

	writer.Flush()
	return writer.Error()
}

func metadata(stmt *models.ParsedStatement) [][]string {
	var rows [][]string
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, []string{label, value})
		}
	}

	sum := stmt.AccountSummary
	add("# Parser Version", string(stmt.ParserVersion))
	add("# Account", sum.AccountNumber)
	switch {
	case sum.PeriodStart != "" && sum.PeriodEnd != "":
		add("# Period", sum.PeriodStart+" to "+sum.PeriodEnd)
	default:
		add("# Period", sum.PeriodEnd)
	}
	if sum.OpeningBalance != nil {
		add("# Opening Balance", formatMoney(*sum.OpeningBalance))
	}
	if sum.ClosingBalance != nil {
		add("# Closing Balance", formatMoney(*sum.ClosingBalance))
	}
	return rows
}

func (w *CSVWriter) rows(stmt *models.ParsedStatement) (any, error) {
	switch w.Table {
	case TableTrades, "":
		rows := make([]tradeRow, 0, len(stmt.Trades))
		for _, t := range stmt.Trades {
			rows = append(rows, tradeRow{
				Date:     t.TradeDate,
				Exchange: t.Exchange,
				Symbol:   t.Symbol,
				Category: string(t.Market.Category),
				Side:     t.Side,
				Quantity: t.Quantity,
				Price:    formatPrice(t.Price),
				Fees:     formatAmount(t.Fees),
				Amount:   formatMoney(t.Amount),
			})
		}
		return &rows, nil

	case TableClosed:
		rows := make([]closedRow, 0, len(stmt.ClosedPositions))
		for _, c := range stmt.ClosedPositions {
			rows = append(rows, closedRow{
				Symbol:    c.Symbol,
				Category:  string(c.Market.Category),
				Quantity:  c.Quantity,
				OpenDate:  c.OpenDate,
				CloseDate: c.CloseDate,
				Cost:      formatMoney(c.CostBasis),
				Proceeds:  formatMoney(c.Proceeds),
				Realized:  formatMoney(c.RealizedPnL),
			})
		}
		return &rows, nil

	case TableJournal:
		rows := make([]journalRow, 0, len(stmt.JournalEntries))
		for _, j := range stmt.JournalEntries {
			rows = append(rows, journalRow{Date: j.Date, Description: j.Description, Amount: formatMoney(j.Amount)})
		}
		return &rows, nil

	case TableOpen:
		rows := make([]openRow, 0, len(stmt.OpenPositions))
		for _, o := range stmt.OpenPositions {
			rows = append(rows, openRow{
				Symbol:      o.Symbol,
				Category:    string(o.Market.Category),
				Quantity:    o.Quantity,
				AvgPrice:    formatPrice(o.AveragePrice),
				MarketValue: formatMoney(o.MarketValue),
			})
		}
		return &rows, nil
	}
	return nil, fmt.Errorf("unknown table %q", w.Table)
}

// formatAmount leaves zero amounts blank; used for optional columns.
func formatAmount(amount float64) string {
	if amount == 0 {
		return ""
	}
	return formatMoney(amount)
}

func formatMoney(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// formatPrice keeps sub-cent precision when a price has it.
func formatPrice(price float64) string {
	s := strconv.FormatFloat(price, 'f', -1, 64)
	if f := strconv.FormatFloat(price, 'f', 2, 64); len(f) >= len(s) {
		return f
	}
	return s
}
