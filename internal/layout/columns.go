package layout

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/sections"
	"github.com/insightdelivered/statement-engine/internal/values"
)

// ColumnGap separates a column's right edge from the next column's left edge.
const ColumnGap = 5.0

// DetectColumnPositions derives a table's column spans from its header row.
// Each name is matched case-insensitively as a substring of a header
// fragment; its left edge becomes the column's left boundary. A column ends
// ColumnGap before the next column starts, and the last column runs to the
// page edge. Names with no matching header fragment are omitted.
func DetectColumnPositions(headerRow []models.TextFragment, pageWidth float64, names []string) models.ColumnLayout {
	layout := models.ColumnLayout{PageWidth: pageWidth}

	used := make(map[int]bool)
	for _, name := range names {
		needle := strings.ToLower(name)
		for i, item := range headerRow {
			if used[i] {
				continue
			}
			if strings.Contains(strings.ToLower(item.Text), needle) {
				used[i] = true
				layout.Columns = append(layout.Columns, models.ColumnPosition{
					Name:         name,
					LeftAbsolute: item.X,
				})
				break
			}
		}
	}

	sort.SliceStable(layout.Columns, func(i, j int) bool {
		return layout.Columns[i].LeftAbsolute < layout.Columns[j].LeftAbsolute
	})

	for i := range layout.Columns {
		col := &layout.Columns[i]
		if i+1 < len(layout.Columns) {
			col.RightAbsolute = layout.Columns[i+1].LeftAbsolute - ColumnGap
		} else {
			col.RightAbsolute = pageWidth
		}
		if pageWidth > 0 {
			col.LeftPercent = col.LeftAbsolute / pageWidth * 100
			col.RightPercent = col.RightAbsolute / pageWidth * 100
		}
	}

	return layout
}

// GetColumnForItem assigns a fragment to the column containing its
// horizontal center. When no column contains it (numbers often overflow
// their header's span) the column with the nearest center is used. It only
// reports false when the layout has no columns.
func GetColumnForItem(item models.TextFragment, layout models.ColumnLayout) (models.ColumnPosition, bool) {
	if len(layout.Columns) == 0 {
		return models.ColumnPosition{}, false
	}

	center := item.CenterX()
	for _, col := range layout.Columns {
		if center >= col.LeftAbsolute && center <= col.RightAbsolute {
			return col, true
		}
	}

	best := layout.Columns[0]
	bestDist := math.Abs(center - best.Center())
	for _, col := range layout.Columns[1:] {
		if d := math.Abs(center - col.Center()); d < bestDist {
			best, bestDist = col, d
		}
	}
	return best, true
}

var (
	leadingDate   = regexp.MustCompile(`^\s*` + values.DatePattern)
	twoDecimalNum = regexp.MustCompile(`\d\.\d{2}\b`)
	pageFooter    = regexp.MustCompile(`(?i)page\s*\d+|continued`)
)

// IsDataRow reports whether a merged line looks like a table row: it starts
// with a date or carries a two-decimal number, and it is neither a section
// header nor a page footer.
func IsDataRow(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !leadingDate.MatchString(line) && !twoDecimalNum.MatchString(line) {
		return false
	}
	if sections.IsSectionHeader(line) {
		return false
	}
	return !pageFooter.MatchString(line)
}

// IsTableContinuation reports whether line repeats at least two of the
// table's header names, as happens when a table resumes after a page break.
func IsTableContinuation(line string, headers []string) bool {
	lower := strings.ToLower(line)
	hits := 0
	for _, h := range headers {
		if h != "" && strings.Contains(lower, strings.ToLower(h)) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}
