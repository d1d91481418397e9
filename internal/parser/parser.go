// Package parser holds the versioned statement parsers and the registry that
// picks one for a document.
package parser

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// StatementParser extracts a ParsedStatement from one layout revision.
type StatementParser interface {
	// ID identifies the implementation inside a registry.
	ID() string
	// Version is the layout revision this parser reads.
	Version() models.StatementVersion
	// EffectiveFrom is the first day the parser's layout was issued.
	EffectiveFrom() time.Time
	// EffectiveTo is the day the layout was retired. ok is false while the
	// layout is still current.
	EffectiveTo() (t time.Time, ok bool)
	// CanParse reports whether doc looks like something this parser reads.
	CanParse(doc *models.ExtractedDocument) bool
	// Parse extracts the statement. It stops early when ctx is done.
	Parse(ctx context.Context, doc *models.ExtractedDocument) (*models.ParsedStatement, error)
	// Validate checks a parsed statement for internal consistency.
	Validate(stmt *models.ParsedStatement) models.ValidationResult
}

// Registration is a parser plus its selection settings.
type Registration struct {
	Parser   StatementParser
	Priority int
	Enabled  bool
}

// Result is a successful parse.
type Result struct {
	ImportID      uuid.UUID                     `json:"importId"`
	ParserID      string                        `json:"parserId"`
	Statement     *models.ParsedStatement       `json:"statement"`
	VersionInfo   models.VersionDetectionResult `json:"versionInfo"`
	ParserVersion models.StatementVersion       `json:"parserVersion"`
	ParseTime     time.Duration                 `json:"-"`
}

// ParseTimeMs is ParseTime in milliseconds.
func (r *Result) ParseTimeMs() float64 {
	return float64(r.ParseTime) / float64(time.Millisecond)
}
