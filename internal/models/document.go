package models

// TextFragment is one positioned run of text on a page.
// Coordinates use the PDF convention: origin at the bottom-left, so a larger
// Y is higher on the page.
type TextFragment struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FontName   string  `json:"fontName,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	PageNumber int     `json:"pageNumber"`
}

// CenterX returns the horizontal center of the fragment.
func (f TextFragment) CenterX() float64 {
	return f.X + f.Width/2
}

// ExtractedPage holds the fragments of a single page.
type ExtractedPage struct {
	PageNumber int            `json:"pageNumber"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Fragments  []TextFragment `json:"fragments"`
}

// ExtractedDocument is the output of the positioned-text source.
// Pages are sorted by PageNumber and PageCount == len(Pages).
type ExtractedDocument struct {
	PageCount int               `json:"pageCount"`
	Pages     []ExtractedPage   `json:"pages"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// PageWidth returns the width of the given page, or 0 when the page is unknown.
func (d *ExtractedDocument) PageWidth(pageNumber int) float64 {
	for _, p := range d.Pages {
		if p.PageNumber == pageNumber {
			return p.Width
		}
	}
	return 0
}

// SectionType labels a logical region of the statement.
type SectionType string

const (
	SectionAccountSummary  SectionType = "account_summary"
	SectionTrades          SectionType = "trades"
	SectionClosedPositions SectionType = "closed_positions"
	SectionJournalEntries  SectionType = "journal_entries"
	SectionOpenPositions   SectionType = "open_positions"
)

// DetectedSection is a contiguous region of the flattened fragment stream.
// StartIndex and EndIndex are inclusive indexes into that stream; Items[0]
// is the header fragment that opened the section.
type DetectedSection struct {
	Type       SectionType    `json:"type"`
	HeaderText string         `json:"headerText"`
	StartIndex int            `json:"startIndex"`
	EndIndex   int            `json:"endIndex"`
	StartPage  int            `json:"startPage"`
	EndPage    int            `json:"endPage"`
	Items      []TextFragment `json:"items"`
}

// ColumnPosition is the inferred horizontal span of one table column.
type ColumnPosition struct {
	Name          string  `json:"name"`
	LeftAbsolute  float64 `json:"leftAbsolute"`
	RightAbsolute float64 `json:"rightAbsolute"`
	LeftPercent   float64 `json:"leftPercent"`
	RightPercent  float64 `json:"rightPercent"`
}

// Center returns the midpoint of the column span.
func (c ColumnPosition) Center() float64 {
	return (c.LeftAbsolute + c.RightAbsolute) / 2
}

// ColumnLayout is derived once from a table's header row and reused for
// every data row of that table.
type ColumnLayout struct {
	PageWidth float64          `json:"pageWidth"`
	Columns   []ColumnPosition `json:"columns"`
}
