package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/insightdelivered/statement-engine/internal/layout"
	"github.com/insightdelivered/statement-engine/internal/models"
)

// tableSpec names the columns expected under a section header.
type tableSpec struct {
	section models.SectionType
	headers []string
}

// tableRow is one data line with its text split into named cells.
type tableRow struct {
	page  int
	text  string
	cells map[string]string
}

func (r tableRow) cell(name string) string {
	return r.cells[name]
}

// errNoHeader means a table section had no recognisable column header row.
var errNoHeader = fmt.Errorf("column header row not found")

// extractTable reads the rows of one table section. The header row is found
// once and its column layout reused for every following row; repeated
// header rows after a page break are skipped. Lines that do not look like
// data are ignored. ctx is checked on every page change.
func extractTable(ctx context.Context, doc *models.ExtractedDocument, sec models.DetectedSection, spec tableSpec) ([]tableRow, error) {
	var (
		cols    models.ColumnLayout
		haveCol bool
		rows    []tableRow
		page    = -1
	)

	for _, line := range layout.PageLines(sec.Items) {
		if len(line) == 0 {
			continue
		}
		if n := line[0].PageNumber; n != page {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s table, page %d: %w", spec.section, n, err)
			}
			page = n
		}

		text := layout.MergeLineText(line, layout.DefaultGapThreshold)
		if !layout.IsDataRow(text) && layout.IsTableContinuation(text, spec.headers) {
			if !haveCol {
				cols = layout.DetectColumnPositions(line, doc.PageWidth(page), spec.headers)
				haveCol = len(cols.Columns) > 0
			}
			continue
		}
		if !haveCol || !layout.IsDataRow(text) {
			continue
		}

		row := tableRow{page: page, text: text, cells: make(map[string]string, len(cols.Columns))}
		for _, item := range line {
			col, ok := layout.GetColumnForItem(item, cols)
			if !ok {
				continue
			}
			if prev := row.cells[col.Name]; prev != "" {
				row.cells[col.Name] = prev + " " + strings.TrimSpace(item.Text)
			} else {
				row.cells[col.Name] = strings.TrimSpace(item.Text)
			}
		}
		rows = append(rows, row)
	}

	if !haveCol {
		return nil, errNoHeader
	}
	return rows, nil
}
