// Package extractor turns PDF bytes into positioned text fragments.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// Default page size (US Letter) used when a page has no MediaBox.
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
)

var (
	// ErrUnreadable means the PDF has no usable text layer. Scanned
	// statements end up here; they are not OCRed.
	ErrUnreadable = errors.New("no readable text could be extracted from PDF")
	// ErrNoPages means the PDF parsed but has no pages.
	ErrNoPages = errors.New("PDF has no pages")
)

// LoadOptions controls LoadDocument.
type LoadOptions struct {
	// Password opens encrypted PDFs.
	Password string
	// MaxPages stops extraction after that many pages. 0 reads all pages.
	MaxPages int
	// Logger receives per-document debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

// Source loads documents with a fixed set of options.
type Source struct {
	opts LoadOptions
}

// NewSource returns a Source using opts for every load.
func NewSource(opts LoadOptions) *Source {
	return &Source{opts: opts}
}

// Load extracts the PDF held in r.
func (s *Source) Load(ctx context.Context, r io.ReaderAt, size int64) (*models.ExtractedDocument, error) {
	return LoadDocument(ctx, r, size, s.opts)
}

// LoadFile opens the PDF at path and extracts it.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*models.ExtractedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF %q: %w", path, err)
	}
	return LoadDocument(ctx, f, info.Size(), opts)
}

// LoadDocument extracts positioned text from every page, in ascending page
// order. Pages are 1-indexed and coordinates keep the PDF's bottom-left
// origin. ctx is checked before each page.
func LoadDocument(ctx context.Context, r io.ReaderAt, size int64, opts LoadOptions) (doc *models.ExtractedDocument, err error) {
	// The PDF library panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("PDF library crashed: %v", rec)
		}
	}()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var reader *pdf.Reader
	if opts.Password != "" {
		tried := false
		reader, err = pdf.NewReaderEncrypted(r, size, func() string {
			// Returning "" stops the library from asking again.
			if tried {
				return ""
			}
			tried = true
			return opts.Password
		})
	} else {
		reader, err = pdf.NewReader(r, size)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, ErrNoPages
	}
	if opts.MaxPages > 0 && numPages > opts.MaxPages {
		logger.Debug("page limit reached", "pages", numPages, "maxPages", opts.MaxPages)
		numPages = opts.MaxPages
	}

	doc = &models.ExtractedDocument{Metadata: documentInfo(reader)}
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i, err)
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		width, height := pageSize(page)
		doc.Pages = append(doc.Pages, models.ExtractedPage{
			PageNumber: i,
			Width:      width,
			Height:     height,
			Fragments:  mergeGlyphs(page.Content().Text, i),
		})
	}
	doc.PageCount = len(doc.Pages)

	if !isReadable(doc) {
		return nil, ErrUnreadable
	}

	logger.Debug("PDF extracted",
		"pages", doc.PageCount,
		"fragments", fragmentCount(doc),
		"quality", textQuality(doc),
	)
	return doc, nil
}

// pageSize reads the MediaBox, inherited from parent page-tree nodes when
// the page has none of its own.
func pageSize(page pdf.Page) (float64, float64) {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
	}
	return DefaultPageWidth, DefaultPageHeight
}

func documentInfo(reader *pdf.Reader) map[string]string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}
	meta := make(map[string]string)
	for _, key := range []string{"Title", "Author", "Creator", "Producer", "CreationDate"} {
		if s := strings.TrimSpace(info.Key(key).Text()); s != "" {
			meta[key] = normalizeText(s)
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// mergeGlyphs joins consecutive glyphs of one text run into fragments.
// A run breaks when the baseline moves, the font size changes or the
// horizontal gap exceeds wordGapFactor times the font size. Spaces inside a
// run are kept, so a multi-word header cell stays one fragment.
func mergeGlyphs(glyphs []pdf.Text, pageNumber int) []models.TextFragment {
	var (
		fragments []models.TextFragment
		text      strings.Builder
		cur       models.TextFragment
		open      bool
	)

	flush := func() {
		if !open {
			return
		}
		cur.Text = strings.TrimSpace(normalizeText(text.String()))
		if cur.Text != "" {
			fragments = append(fragments, cur)
		}
		text.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if open {
			gap := g.X - (cur.X + cur.Width)
			sameLine := math.Abs(g.Y-cur.Y) <= baselineTolerance*cur.FontSize
			sameSize := math.Abs(g.FontSize-cur.FontSize) <= 0.1
			if !sameLine || !sameSize || gap > wordGapFactor*cur.FontSize || gap < -cur.FontSize {
				flush()
			}
		}

		if !open {
			if strings.TrimSpace(g.S) == "" {
				continue
			}
			cur = models.TextFragment{
				X:          g.X,
				Y:          g.Y,
				Height:     g.FontSize,
				FontName:   g.Font,
				FontSize:   g.FontSize,
				PageNumber: pageNumber,
			}
			open = true
		}
		text.WriteString(g.S)
		if right := g.X + g.W; right > cur.X+cur.Width {
			cur.Width = right - cur.X
		}
	}
	flush()
	return fragments
}

const (
	baselineTolerance = 0.3
	wordGapFactor     = 0.8
)

// normalizeText applies NFKC (ligatures, full-width digits, no-break
// spaces) and drops control characters.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func fragmentCount(doc *models.ExtractedDocument) int {
	n := 0
	for _, p := range doc.Pages {
		n += len(p.Fragments)
	}
	return n
}

// textQuality returns the ratio of plainly readable characters (ASCII
// letters, digits, whitespace, common punctuation) to all characters.
// Identity-encoded fonts without a ToUnicode map decode to garbage that
// fails this ratio.
func textQuality(doc *models.ExtractedDocument) float64 {
	total, readable := 0, 0
	for _, p := range doc.Pages {
		for _, f := range p.Fragments {
			for _, r := range f.Text {
				total++
				if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) ||
					unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)) {
					readable++
				} else if r == '¢' || r == '€' || r == '£' {
					readable++
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// minReadableChars is the least amount of text a statement page set can have.
const minReadableChars = 20

// isReadable requires some text and a readable-character ratio above 0.6.
func isReadable(doc *models.ExtractedDocument) bool {
	chars := 0
	for _, p := range doc.Pages {
		for _, f := range p.Fragments {
			chars += len(f.Text)
		}
	}
	return chars > minReadableChars && textQuality(doc) > 0.6
}
