// Package version works out which structural revision of the statement
// layout produced a document.
package version

import (
	"regexp"
	"sort"
	"time"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// Known statement layouts.
const (
	V202401 models.StatementVersion = "2024.01"
	V202406 models.StatementVersion = "2024.06"
)

// Spec describes one layout revision and the structural evidence for it.
type Spec struct {
	Version       models.StatementVersion
	EffectiveFrom time.Time

	// MinSections and MaxSections bound the expected detected-section count.
	MinSections int
	MaxSections int

	// Required patterns appear in every statement of this revision.
	Required []*regexp.Regexp
	// Distinguishing patterns separate this revision from the others.
	Distinguishing []*regexp.Regexp
}

// Catalog is a set of specs sorted by descending effective date.
type Catalog []Spec

// NewCatalog sorts specs newest first.
func NewCatalog(specs ...Spec) Catalog {
	c := make(Catalog, len(specs))
	copy(c, specs)
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].EffectiveFrom.After(c[j].EffectiveFrom)
	})
	return c
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultCatalog returns the two known event-contract statement layouts.
func DefaultCatalog() Catalog {
	return NewCatalog(
		Spec{
			Version:       V202401,
			EffectiveFrom: day(2024, time.January, 1),
			MinSections:   2,
			MaxSections:   4,
			Required: []*regexp.Regexp{
				regexp.MustCompile(`(?i)account\s+summary`),
				regexp.MustCompile(`(?i)trade\s+activity`),
			},
			Distinguishing: []*regexp.Regexp{
				regexp.MustCompile(`(?i)net\s+liquidating\s+value`),
				regexp.MustCompile(`(?i)commissions`),
			},
		},
		Spec{
			Version:       V202406,
			EffectiveFrom: day(2024, time.June, 1),
			MinSections:   3,
			MaxSections:   6,
			Required: []*regexp.Regexp{
				regexp.MustCompile(`(?i)account\s+summary`),
				regexp.MustCompile(`(?i)trade\s+(?:activity|confirmations)`),
			},
			Distinguishing: []*regexp.Regexp{
				regexp.MustCompile(`(?i)purchase\s+and\s+sale`),
				regexp.MustCompile(`(?i)exchange\s+fees`),
				regexp.MustCompile(`(?i)realized\s+p&l`),
			},
		},
	)
}

// Versions lists the catalog's versions, newest first.
func (c Catalog) Versions() []models.StatementVersion {
	out := make([]models.StatementVersion, len(c))
	for i, s := range c {
		out[i] = s.Version
	}
	return out
}

// Earliest returns the oldest spec. The catalog must not be empty.
func (c Catalog) Earliest() Spec {
	return c[len(c)-1]
}

// ForDate returns the newest spec effective on or before date, or the
// earliest spec when date predates all of them.
func (c Catalog) ForDate(date time.Time) Spec {
	for _, s := range c {
		if !s.EffectiveFrom.After(date) {
			return s
		}
	}
	return c.Earliest()
}

// Lookup returns the spec for v.
func (c Catalog) Lookup(v models.StatementVersion) (Spec, bool) {
	for _, s := range c {
		if s.Version == v {
			return s, true
		}
	}
	return Spec{}, false
}

// Range returns the period during which v was the current layout. The end
// is the next newer version's effective date; open reports whether v is
// still current.
func (c Catalog) Range(v models.StatementVersion) (from, to time.Time, open bool, ok bool) {
	for i, s := range c {
		if s.Version != v {
			continue
		}
		if i == 0 {
			return s.EffectiveFrom, time.Time{}, true, true
		}
		return s.EffectiveFrom, c[i-1].EffectiveFrom, false, true
	}
	return time.Time{}, time.Time{}, false, false
}
