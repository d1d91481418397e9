package models

// MarketCategory is the coarse market bucket of an event-contract symbol.
type MarketCategory string

const (
	CategoryNFL       MarketCategory = "NFL"
	CategoryNBA       MarketCategory = "NBA"
	CategoryMLB       MarketCategory = "MLB"
	CategoryNHL       MarketCategory = "NHL"
	CategoryNCAAF     MarketCategory = "NCAAF"
	CategoryNCAAB     MarketCategory = "NCAAB"
	CategorySoccer    MarketCategory = "Soccer"
	CategoryPolitics  MarketCategory = "Politics"
	CategoryEconomics MarketCategory = "Economics"
	CategoryCrypto    MarketCategory = "Crypto"
	CategoryWeather   MarketCategory = "Weather"
	CategoryOther     MarketCategory = "Other"
)

// ParsedSymbol is the best-effort decomposition of a market identifier.
// Parts that could not be recognised are left empty.
type ParsedSymbol struct {
	Raw          string         `json:"raw"`
	Category     MarketCategory `json:"category"`
	Exchange     string         `json:"exchange,omitempty"`
	EventType    string         `json:"eventType,omitempty"`
	EventDate    string         `json:"eventDate,omitempty"`
	Participants []string       `json:"participants,omitempty"`
}

// StatementVersion labels a structural revision of the statement layout.
type StatementVersion string

// DetectionMethod records which branch of version detection decided.
type DetectionMethod string

const (
	MethodDate      DetectionMethod = "date"
	MethodStructure DetectionMethod = "structure"
	MethodHeuristic DetectionMethod = "heuristic"
	MethodFallback  DetectionMethod = "fallback"
)

// VersionDetectionResult is the outcome of version detection.
type VersionDetectionResult struct {
	Version       StatementVersion `json:"version"`
	Confidence    float64          `json:"confidence"`
	StatementDate string           `json:"statementDate,omitempty"`
	Method        DetectionMethod  `json:"method"`
	Notes         []string         `json:"notes,omitempty"`
}

// Trade side values.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// AccountSummary holds the statement's headline figures. Nil pointers mean
// the figure was not present on the statement.
type AccountSummary struct {
	AccountNumber  string   `json:"accountNumber,omitempty"`
	PeriodStart    string   `json:"periodStart,omitempty"`
	PeriodEnd      string   `json:"periodEnd,omitempty"`
	OpeningBalance *float64 `json:"openingBalance,omitempty"`
	ClosingBalance *float64 `json:"closingBalance,omitempty"`
	Deposits       *float64 `json:"deposits,omitempty"`
	Withdrawals    *float64 `json:"withdrawals,omitempty"`
	TotalFees      *float64 `json:"totalFees,omitempty"`
	RealizedPnL    *float64 `json:"realizedPnl,omitempty"`
}

// Trade is one executed event-contract trade.
// Amount is the signed cash effect: negative for purchases.
type Trade struct {
	TradeDate string       `json:"tradeDate"`
	Exchange  string       `json:"exchange,omitempty"`
	Symbol    string       `json:"symbol"`
	Side      string       `json:"side"`
	Quantity  int          `json:"quantity"`
	Price     float64      `json:"price"`
	Fees      float64      `json:"fees"`
	Amount    float64      `json:"amount"`
	Market    ParsedSymbol `json:"market"`
}

// ClosedPosition is a realized round trip reported by the statement.
type ClosedPosition struct {
	Symbol      string       `json:"symbol"`
	Quantity    int          `json:"quantity"`
	OpenDate    string       `json:"openDate,omitempty"`
	CloseDate   string       `json:"closeDate,omitempty"`
	CostBasis   float64      `json:"costBasis"`
	Proceeds    float64      `json:"proceeds"`
	RealizedPnL float64      `json:"realizedPnl"`
	Market      ParsedSymbol `json:"market"`
}

// JournalEntry is a cash movement that is not a trade (deposit, fee, ...).
type JournalEntry struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// OpenPosition is a position still held at the end of the period.
type OpenPosition struct {
	Symbol       string       `json:"symbol"`
	Quantity     int          `json:"quantity"`
	AveragePrice float64      `json:"averagePrice"`
	MarketValue  float64      `json:"marketValue"`
	Market       ParsedSymbol `json:"market"`
}

// RawSection keeps the merged line text of a detected section for review.
type RawSection struct {
	Type       SectionType `json:"type"`
	HeaderText string      `json:"headerText"`
	StartPage  int         `json:"startPage"`
	EndPage    int         `json:"endPage"`
	Lines      []string    `json:"lines"`
}

// ParsedStatement is the result of one successful parse. It is not mutated
// after the registry hands it to the caller, except for validation warnings
// appended by ParseAndValidate before return.
type ParsedStatement struct {
	ParserVersion   StatementVersion `json:"parserVersion"`
	AccountSummary  AccountSummary   `json:"accountSummary"`
	Trades          []Trade          `json:"trades"`
	ClosedPositions []ClosedPosition `json:"closedPositions"`
	JournalEntries  []JournalEntry   `json:"journalEntries"`
	OpenPositions   []OpenPosition   `json:"openPositions"`
	Warnings        []string         `json:"warnings"`
	RawSections     []RawSection     `json:"rawSections,omitempty"`
}

// SectionValidation reports whether an expected section was found.
type SectionValidation struct {
	Section  SectionType `json:"section"`
	Required bool        `json:"required"`
	Found    bool        `json:"found"`
	RowCount int         `json:"rowCount"`
}

// PnLValidation compares a computed P&L figure with the reported one.
type PnLValidation struct {
	Scope           string  `json:"scope"`
	Expected        float64 `json:"expected"`
	Actual          float64 `json:"actual"`
	Difference      float64 `json:"difference"`
	WithinTolerance bool    `json:"withinTolerance"`
}

// ValidationResult is the advisory outcome of StatementParser.Validate.
type ValidationResult struct {
	Success       bool                `json:"success"`
	Sections      []SectionValidation `json:"sections"`
	PnLValidation []PnLValidation     `json:"pnlValidation,omitempty"`
	Errors        []string            `json:"errors"`
	Warnings      []string            `json:"warnings"`
}
