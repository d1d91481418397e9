package version

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/insightdelivered/statement-engine/internal/layout"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/sections"
	"github.com/insightdelivered/statement-engine/internal/values"
)

// Confidence assigned by each detection branch.
const (
	DateConfidence      = 0.95
	StructureWeight     = 0.8
	HeuristicConfidence = 0.6
	FallbackConfidence  = 0.5

	// StructureThreshold is the minimum structure score (0-100) to decide.
	StructureThreshold = 50
)

var (
	periodRange = regexp.MustCompile(`(?i)statement\s+(?:period|date)\s*:?\s*(` + values.DatePattern + `)\s*(?:-|–|to|through|thru)\s*(` + values.DatePattern + `)`)
	periodDate  = regexp.MustCompile(`(?i)statement\s+(?:period|date)\s*:?\s*(` + values.DatePattern + `)`)
	bareRange   = regexp.MustCompile(`(?i)(` + values.DatePattern + `)\s*(?:-|–|to|through|thru)\s*(` + values.DatePattern + `)`)
)

// Heuristic selects a version outright when its phrase is present.
type Heuristic struct {
	Pattern *regexp.Regexp
	Version models.StatementVersion
}

// Detector runs the version-detection state machine.
type Detector struct {
	catalog   Catalog
	gate      *Gatekeeper
	sections  *sections.Detector
	heuristic Heuristic
	logger    *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithCatalog replaces the default catalog. An empty catalog is ignored.
func WithCatalog(c Catalog) Option {
	return func(d *Detector) {
		if len(c) > 0 {
			d.catalog = c
		}
	}
}

// WithGatekeeper replaces the default brand/domain gate.
func WithGatekeeper(g *Gatekeeper) Option {
	return func(d *Detector) { d.gate = g }
}

// WithHeuristic replaces the hard-coded heuristic phrase.
func WithHeuristic(h Heuristic) Option {
	return func(d *Detector) { d.heuristic = h }
}

// WithLogger sets the logger used for branch decisions.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// NewDetector creates a detector over DefaultCatalog unless overridden.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		catalog:  DefaultCatalog(),
		gate:     DefaultGatekeeper(),
		sections: sections.Default(),
		heuristic: Heuristic{
			Pattern: regexp.MustCompile(`(?i)purchase\s+and\s+sale`),
			Version: V202406,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Catalog returns the detector's catalog.
func (d *Detector) Catalog() Catalog {
	return d.catalog
}

// IsTargetStatement reports whether doc passes the brand/domain gate.
func (d *Detector) IsTargetStatement(doc *models.ExtractedDocument) bool {
	return d.gate.Check(doc)
}

// Detect decides the layout version of doc. Branches are tried in order:
// gatekeeper, statement date, structure score, heuristic phrase, fallback.
// It never fails; missing evidence only lowers the confidence.
func (d *Detector) Detect(doc *models.ExtractedDocument) models.VersionDetectionResult {
	earliest := d.catalog.Earliest()

	if !d.gate.Check(doc) {
		return d.decided(models.VersionDetectionResult{
			Version:    earliest.Version,
			Confidence: 0,
			Method:     models.MethodFallback,
			Notes:      []string{"document lacks brand and domain/statement indicators"},
		})
	}

	text := layout.DocumentText(doc)

	if date, ok := StatementDate(doc); ok {
		t, _ := values.ParseDateTime(date)
		spec := d.catalog.ForDate(t)
		notes := []string{fmt.Sprintf("statement date %s maps to version %s", date, spec.Version)}
		if t.Before(earliest.EffectiveFrom) {
			notes = append(notes, "statement date predates all known versions")
		}
		return d.decided(models.VersionDetectionResult{
			Version:       spec.Version,
			Confidence:    DateConfidence,
			StatementDate: date,
			Method:        models.MethodDate,
			Notes:         notes,
		})
	}

	sectionCount := len(d.sections.Detect(layout.Flatten(doc)))
	var best Spec
	bestScore := -1.0
	for _, spec := range d.catalog {
		score := StructureScore(spec, text, sectionCount)
		if score > bestScore {
			best, bestScore = spec, score
		}
	}
	if bestScore >= StructureThreshold {
		return d.decided(models.VersionDetectionResult{
			Version:    best.Version,
			Confidence: bestScore / 100 * StructureWeight,
			Method:     models.MethodStructure,
			Notes: []string{
				fmt.Sprintf("structure score %.0f with %d sections", bestScore, sectionCount),
			},
		})
	}

	if d.heuristic.Pattern != nil && d.heuristic.Pattern.MatchString(text) {
		return d.decided(models.VersionDetectionResult{
			Version:    d.heuristic.Version,
			Confidence: HeuristicConfidence,
			Method:     models.MethodHeuristic,
			Notes:      []string{fmt.Sprintf("matched phrase %q", d.heuristic.Pattern.String())},
		})
	}

	return d.decided(models.VersionDetectionResult{
		Version:    earliest.Version,
		Confidence: FallbackConfidence,
		Method:     models.MethodFallback,
		Notes:      []string{"no date, structure or heuristic signal; using earliest version"},
	})
}

func (d *Detector) decided(r models.VersionDetectionResult) models.VersionDetectionResult {
	d.logger.Debug("statement version detected",
		"version", r.Version,
		"method", r.Method,
		"confidence", r.Confidence,
		"statementDate", r.StatementDate,
	)
	return r
}

// StructureScore rates how well text fits spec on a 0-100 scale: 20 when the
// section count is in range, up to 40 for required patterns found and up to
// 40 for distinguishing patterns found.
func StructureScore(spec Spec, text string, sectionCount int) float64 {
	score := 0.0
	if sectionCount >= spec.MinSections && sectionCount <= spec.MaxSections {
		score += 20
	}
	score += 40 * fractionFound(spec.Required, text)
	score += 40 * fractionFound(spec.Distinguishing, text)
	return score
}

func fractionFound(patterns []*regexp.Regexp, text string) float64 {
	if len(patterns) == 0 {
		return 0
	}
	found := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			found++
		}
	}
	return float64(found) / float64(len(patterns))
}

// statementLabel marks the fragment that carries the statement date.
var statementLabel = regexp.MustCompile(`(?i)statement\s+(?:period|date)`)

// StatementDate reads the statement date from the lines holding a
// "Statement Period" or "Statement Date" label, then from the whole
// document text.
func StatementDate(doc *models.ExtractedDocument) (string, bool) {
	flat := layout.Flatten(doc)
	for _, anchor := range layout.FindAllTextAnchors(flat, statementLabel) {
		if date, ok := ExtractStatementDate(layout.AnchorLine(flat, anchor)); ok {
			return date, true
		}
	}
	return ExtractStatementDate(layout.DocumentText(doc))
}

// ExtractStatementDate finds the statement date in text and returns it as
// YYYY-MM-DD. A statement-period range yields its second (closing) date, a
// single "Statement Period:" anchor yields that date, and failing both the
// first bare date range in the text yields its second date.
func ExtractStatementDate(text string) (string, bool) {
	if m := periodRange.FindStringSubmatch(text); m != nil {
		if date, ok := values.ParseDate(m[2]); ok {
			return date, true
		}
	}
	if m := periodDate.FindStringSubmatch(text); m != nil {
		if date, ok := values.ParseDate(m[1]); ok {
			return date, true
		}
	}
	if m := bareRange.FindStringSubmatch(text); m != nil {
		if date, ok := values.ParseDate(m[2]); ok {
			return date, true
		}
	}
	return "", false
}

// Gatekeeper rejects documents that are not event-contract statements at
// all: a brand token is required together with a domain or statement
// indicator.
type Gatekeeper struct {
	matcher *ahocorasick.Matcher
	groups  []tokenGroup
}

type tokenGroup int

const (
	groupBrand tokenGroup = iota
	groupDomain
	groupStatement
)

// NewGatekeeper builds a gate from the three token lists. Matching is
// case-insensitive.
func NewGatekeeper(brand, domain, statement []string) *Gatekeeper {
	g := &Gatekeeper{}
	var dictionary []string
	add := func(tokens []string, group tokenGroup) {
		for _, t := range tokens {
			dictionary = append(dictionary, strings.ToLower(t))
			g.groups = append(g.groups, group)
		}
	}
	add(brand, groupBrand)
	add(domain, groupDomain)
	add(statement, groupStatement)
	g.matcher = ahocorasick.NewStringMatcher(dictionary)
	return g
}

// DefaultGatekeeper recognises Robinhood event-contract statements.
func DefaultGatekeeper() *Gatekeeper {
	return NewGatekeeper(
		[]string{"robinhood"},
		[]string{"event contract", "prediction market", "derivatives", "futures"},
		[]string{"statement", "account summary"},
	)
}

// Check reports whether doc carries a brand token and at least one domain
// or statement indicator. Safe for concurrent use.
func (g *Gatekeeper) Check(doc *models.ExtractedDocument) bool {
	if doc == nil {
		return false
	}
	var b strings.Builder
	for _, page := range doc.Pages {
		for _, f := range page.Fragments {
			b.WriteString(strings.ToLower(f.Text))
			b.WriteByte(' ')
		}
	}

	var brand, other bool
	for _, idx := range g.matcher.MatchThreadSafe([]byte(b.String())) {
		switch g.groups[idx] {
		case groupBrand:
			brand = true
		case groupDomain, groupStatement:
			other = true
		}
	}
	return brand && other
}
