// Package sections partitions a flattened fragment stream into the labelled
// regions of a statement (account summary, trades, ...).
package sections

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// Pattern maps a header regexp to the section type it opens.
type Pattern struct {
	Type   models.SectionType
	Regexp *regexp.Regexp
}

// DefaultPatterns returns the header table in priority order. When a
// fragment matches more than one pattern the earlier entry wins.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{models.SectionAccountSummary, regexp.MustCompile(`(?i)^\s*account\s+summary\b`)},
		{models.SectionTrades, regexp.MustCompile(`(?i)^\s*(?:monthly\s+)?trade\s+(?:activity|confirmations)\b`)},
		{models.SectionClosedPositions, regexp.MustCompile(`(?i)^\s*purchase\s+and\s+sale\b`)},
		{models.SectionJournalEntries, regexp.MustCompile(`(?i)^\s*journal\s+entries\b`)},
		{models.SectionOpenPositions, regexp.MustCompile(`(?i)^\s*open\s+positions\b`)},
	}
}

// Detector scans fragment streams for section headers.
type Detector struct {
	patterns []Pattern
}

// NewDetector creates a detector over the given patterns, checked in order.
func NewDetector(patterns []Pattern) *Detector {
	return &Detector{patterns: patterns}
}

var defaultDetector = NewDetector(DefaultPatterns())

// Default returns the detector built from DefaultPatterns.
func Default() *Detector {
	return defaultDetector
}

// DetectSectionType returns the type of the first pattern matching text.
func (d *Detector) DetectSectionType(text string) (models.SectionType, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, p := range d.patterns {
		if p.Regexp.MatchString(text) {
			return p.Type, true
		}
	}
	return "", false
}

// IsSectionHeader reports whether text would open a section.
func (d *Detector) IsSectionHeader(text string) bool {
	_, ok := d.DetectSectionType(text)
	return ok
}

// Detect walks items once. Each header fragment closes the open section at
// the preceding index and opens a new one; the last section runs to the end
// of the stream. Fragments before the first header belong to no section and
// a stream with no headers yields no sections.
func (d *Detector) Detect(items []models.TextFragment) []models.DetectedSection {
	var result []models.DetectedSection
	var current *models.DetectedSection

	closeAt := func(end int) {
		if current == nil {
			return
		}
		current.EndIndex = end
		current.EndPage = items[end].PageNumber
		current.Items = items[current.StartIndex : end+1]
		result = append(result, *current)
		current = nil
	}

	for i, item := range items {
		sectionType, ok := d.DetectSectionType(item.Text)
		if !ok {
			continue
		}
		closeAt(i - 1)
		current = &models.DetectedSection{
			Type:       sectionType,
			HeaderText: strings.TrimSpace(item.Text),
			StartIndex: i,
			StartPage:  item.PageNumber,
		}
	}
	if current != nil {
		closeAt(len(items) - 1)
	}

	return result
}

// DetectSectionType uses the default pattern table.
func DetectSectionType(text string) (models.SectionType, bool) {
	return defaultDetector.DetectSectionType(text)
}

// IsSectionHeader uses the default pattern table.
func IsSectionHeader(text string) bool {
	return defaultDetector.IsSectionHeader(text)
}

// Find returns the first section of the given type.
func Find(detected []models.DetectedSection, sectionType models.SectionType) (models.DetectedSection, bool) {
	for _, s := range detected {
		if s.Type == sectionType {
			return s, true
		}
	}
	return models.DetectedSection{}, false
}
