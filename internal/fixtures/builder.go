// Package fixtures builds synthetic positioned-text documents for tests.
// Real statements are not checked in; these builders lay out fragments the
// way the PDF extractor emits them (bottom-left origin, one fragment per
// cell).
package fixtures

import "github.com/insightdelivered/statement-engine/internal/models"

const (
	PageWidth  = 612.0
	PageHeight = 792.0

	topMargin   = 750.0
	lineSpacing = 14.0
	charWidth   = 5.0
	fontSize    = 10.0
	leftMargin  = 40.0
)

// Cell is one fragment placed at X on the current line.
type Cell struct {
	Text string
	X    float64
}

// Builder accumulates pages of fragments line by line.
type Builder struct {
	pages []models.ExtractedPage
	y     float64
}

// NewBuilder starts a document with one empty page.
func NewBuilder() *Builder {
	b := &Builder{}
	b.NewPage()
	return b
}

// NewPage starts a new page; following lines go to its top.
func (b *Builder) NewPage() *Builder {
	b.pages = append(b.pages, models.ExtractedPage{
		PageNumber: len(b.pages) + 1,
		Width:      PageWidth,
		Height:     PageHeight,
	})
	b.y = topMargin
	return b
}

// Text adds a line holding a single fragment at the left margin.
func (b *Builder) Text(text string) *Builder {
	return b.Line(Cell{Text: text, X: leftMargin})
}

// Line adds one line made of the given cells.
func (b *Builder) Line(cells ...Cell) *Builder {
	page := &b.pages[len(b.pages)-1]
	for _, c := range cells {
		page.Fragments = append(page.Fragments, models.TextFragment{
			Text:       c.Text,
			X:          c.X,
			Y:          b.y,
			Width:      float64(len(c.Text)) * charWidth,
			Height:     fontSize,
			FontName:   "Helvetica",
			FontSize:   fontSize,
			PageNumber: page.PageNumber,
		})
	}
	b.y -= lineSpacing
	return b
}

// Row places texts at the given column x positions on one line. Empty texts
// are skipped, mimicking blank cells.
func (b *Builder) Row(xs []float64, texts ...string) *Builder {
	var cells []Cell
	for i, t := range texts {
		if t == "" || i >= len(xs) {
			continue
		}
		cells = append(cells, Cell{Text: t, X: xs[i]})
	}
	return b.Line(cells...)
}

// Build returns the finished document.
func (b *Builder) Build() *models.ExtractedDocument {
	pages := make([]models.ExtractedPage, len(b.pages))
	copy(pages, b.pages)
	return &models.ExtractedDocument{
		PageCount: len(pages),
		Pages:     pages,
	}
}
