// Package layout reconstructs rows and columns from positioned text.
//
// PDF content streams give disconnected glyph runs, not rows. The helpers in
// this package rebuild lines by vertical position, merge their text, infer
// column spans from a table's header row and classify lines as data, header
// or footer.
package layout

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/insightdelivered/statement-engine/internal/models"
)

const (
	// DefaultLineTolerance is the maximum |Δy| between fragments on one line.
	DefaultLineTolerance = 5.0

	// DefaultGapThreshold is the horizontal gap above which merged fragments
	// are separated by a space.
	DefaultGapThreshold = 10.0
)

// FindTextAnchor returns the first fragment whose text matches pattern.
func FindTextAnchor(items []models.TextFragment, pattern *regexp.Regexp) (models.TextFragment, bool) {
	for _, item := range items {
		if pattern.MatchString(item.Text) {
			return item, true
		}
	}
	return models.TextFragment{}, false
}

// FindAllTextAnchors returns every fragment whose text matches pattern.
func FindAllTextAnchors(items []models.TextFragment, pattern *regexp.Regexp) []models.TextFragment {
	var found []models.TextFragment
	for _, item := range items {
		if pattern.MatchString(item.Text) {
			found = append(found, item)
		}
	}
	return found
}

// AnchorLine returns the merged text of the line holding anchor: the
// fragments on the anchor's page within DefaultLineTolerance of its y.
func AnchorLine(items []models.TextFragment, anchor models.TextFragment) string {
	var line []models.TextFragment
	for _, item := range items {
		if item.PageNumber == anchor.PageNumber && math.Abs(item.Y-anchor.Y) <= DefaultLineTolerance {
			line = append(line, item)
		}
	}
	return MergeLineText(line, DefaultGapThreshold)
}

// GroupIntoLines sorts items top to bottom (descending y) and buckets them
// greedily: a fragment joins the current line while its y is within
// tolerance of the previous fragment's y. Each line is sorted left to right.
// A tolerance <= 0 uses DefaultLineTolerance.
func GroupIntoLines(items []models.TextFragment, tolerance float64) [][]models.TextFragment {
	if len(items) == 0 {
		return nil
	}
	if tolerance <= 0 {
		tolerance = DefaultLineTolerance
	}

	sorted := make([]models.TextFragment, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines [][]models.TextFragment
	current := []models.TextFragment{sorted[0]}
	prevY := sorted[0].Y

	for _, item := range sorted[1:] {
		if math.Abs(prevY-item.Y) <= tolerance {
			current = append(current, item)
		} else {
			lines = append(lines, current)
			current = []models.TextFragment{item}
		}
		prevY = item.Y
	}
	lines = append(lines, current)

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].X < line[j].X
		})
	}
	return lines
}

// MergeLineText joins a line's fragments left to right. A single space is
// inserted only when the gap between consecutive fragments exceeds
// gapThreshold; closer fragments are treated as pieces of one token.
// A gapThreshold <= 0 uses DefaultGapThreshold.
func MergeLineText(items []models.TextFragment, gapThreshold float64) string {
	if len(items) == 0 {
		return ""
	}
	if gapThreshold <= 0 {
		gapThreshold = DefaultGapThreshold
	}

	sorted := make([]models.TextFragment, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].X < sorted[j].X
	})

	var b strings.Builder
	b.WriteString(sorted[0].Text)
	prevRight := sorted[0].X + sorted[0].Width
	for _, item := range sorted[1:] {
		if item.X-prevRight > gapThreshold {
			b.WriteByte(' ')
		}
		b.WriteString(item.Text)
		prevRight = item.X + item.Width
	}
	return strings.TrimSpace(b.String())
}

// LineTexts groups items into lines page by page and returns the merged
// text of each non-empty line.
func LineTexts(items []models.TextFragment) []string {
	lines := PageLines(items)
	texts := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := MergeLineText(line, DefaultGapThreshold); text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

// PageLines groups items into lines page by page, in ascending page order.
// Lines never span a page break, since y coordinates restart on every page.
func PageLines(items []models.TextFragment) [][]models.TextFragment {
	byPage := make(map[int][]models.TextFragment)
	var pageNumbers []int
	for _, item := range items {
		if _, seen := byPage[item.PageNumber]; !seen {
			pageNumbers = append(pageNumbers, item.PageNumber)
		}
		byPage[item.PageNumber] = append(byPage[item.PageNumber], item)
	}
	sort.Ints(pageNumbers)

	var lines [][]models.TextFragment
	for _, n := range pageNumbers {
		lines = append(lines, GroupIntoLines(byPage[n], DefaultLineTolerance)...)
	}
	return lines
}

// Flatten concatenates the document's pages in ascending page order, each
// page sorted top to bottom by line and left to right within a line. The
// result is deterministic for a given document.
func Flatten(doc *models.ExtractedDocument) []models.TextFragment {
	if doc == nil {
		return nil
	}
	pages := make([]models.ExtractedPage, len(doc.Pages))
	copy(pages, doc.Pages)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})

	var flat []models.TextFragment
	for _, page := range pages {
		for _, line := range GroupIntoLines(page.Fragments, DefaultLineTolerance) {
			for _, item := range line {
				if item.PageNumber == 0 {
					item.PageNumber = page.PageNumber
				}
				flat = append(flat, item)
			}
		}
	}
	return flat
}

// DocumentText returns the merged line text of the whole document, one line
// per row, pages in order.
func DocumentText(doc *models.ExtractedDocument) string {
	return strings.Join(LineTexts(Flatten(doc)), "\n")
}
