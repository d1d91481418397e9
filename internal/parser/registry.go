package parser

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/version"
)

// Registry holds the parsers available for dispatch and picks one per
// document. Thread-safe for concurrent use.
//
// Every mutation rebuilds the version index before it returns, so readers
// never observe a stale binding.
type Registry struct {
	mu            sync.RWMutex
	detector      *version.Detector
	registrations map[string]*Registration
	index         map[models.StatementVersion][]string // version -> parser ids, best first
	logger        *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for selection and failures.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry. A nil detector uses the defaults.
func NewRegistry(detector *version.Detector, opts ...RegistryOption) *Registry {
	if detector == nil {
		detector = version.NewDetector()
	}
	r := &Registry{
		detector:      detector,
		registrations: make(map[string]*Registration),
		index:         make(map[models.StatementVersion][]string),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Detector returns the version detector the registry dispatches with.
func (r *Registry) Detector() *version.Detector {
	return r.detector
}

// Register adds an enabled parser. It fails on a nil parser, an empty ID or
// an ID that is already registered.
func (r *Registry) Register(p StatementParser, priority int) error {
	if p == nil {
		return fmt.Errorf("statement parser cannot be nil")
	}
	id := p.ID()
	if id == "" {
		return fmt.Errorf("statement parser id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registrations[id]; exists {
		return fmt.Errorf("statement parser %q already registered", id)
	}
	r.registrations[id] = &Registration{Parser: p, Priority: priority, Enabled: true}
	r.rebuildIndex()
	return nil
}

// Unregister removes a parser by ID.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registrations[id]; !exists {
		return fmt.Errorf("statement parser %q not found", id)
	}
	delete(r.registrations, id)
	r.rebuildIndex()
	return nil
}

// SetEnabled turns a parser on or off without removing it.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, exists := r.registrations[id]
	if !exists {
		return fmt.Errorf("statement parser %q not found", id)
	}
	reg.Enabled = enabled
	r.rebuildIndex()
	return nil
}

// Get returns a copy of the registration for id.
func (r *Registry) Get(id string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registrations[id]
	if !ok {
		return Registration{}, false
	}
	return *reg, true
}

// ParsersFor returns the enabled parser IDs bound to v, best first.
func (r *Registry) ParsersFor(v models.StatementVersion) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.index[v]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// rebuildIndex binds every enabled parser to each catalog version whose
// effective range intersects the parser's own. Caller holds the write lock.
func (r *Registry) rebuildIndex() {
	index := make(map[models.StatementVersion][]string)
	catalog := r.detector.Catalog()

	for _, v := range catalog.Versions() {
		vFrom, vTo, vOpen, _ := catalog.Range(v)

		var ids []string
		for id, reg := range r.registrations {
			if !reg.Enabled {
				continue
			}
			pFrom := reg.Parser.EffectiveFrom()
			pTo, pClosed := reg.Parser.EffectiveTo()

			startsBeforeVersionEnds := vOpen || pFrom.Before(vTo)
			endsAfterVersionStarts := !pClosed || vFrom.Before(pTo)
			if startsBeforeVersionEnds && endsAfterVersionStarts {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		r.sortByPriority(ids)
		index[v] = ids
	}

	r.index = index
}

// sortByPriority orders ids by descending priority, then by ID.
func (r *Registry) sortByPriority(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		pi, pj := r.registrations[ids[i]].Priority, r.registrations[ids[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return ids[i] < ids[j]
	})
}

// candidates snapshots the parsers bound to v and, separately, every enabled
// parser, both best first.
func (r *Registry) candidates(v models.StatementVersion) (bound, all []StatementParser) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.index[v] {
		bound = append(bound, r.registrations[id].Parser)
	}

	var ids []string
	for id, reg := range r.registrations {
		if reg.Enabled {
			ids = append(ids, id)
		}
	}
	r.sortByPriority(ids)
	for _, id := range ids {
		all = append(all, r.registrations[id].Parser)
	}
	return bound, all
}

// FindBestParser detects the document's version and returns the
// highest-priority parser bound to it that accepts doc. When none does, any
// enabled parser that accepts doc is used. ok is false if nothing accepts it.
func (r *Registry) FindBestParser(doc *models.ExtractedDocument) (StatementParser, models.VersionDetectionResult, bool) {
	info := r.detector.Detect(doc)
	bound, all := r.candidates(info.Version)

	for _, p := range bound {
		if p.CanParse(doc) {
			return p, info, true
		}
	}
	for _, p := range all {
		if p.CanParse(doc) {
			info.Notes = append(info.Notes, fmt.Sprintf("no parser bound to %s accepted the document; using %s", info.Version, p.ID()))
			return p, info, true
		}
	}
	return nil, info, false
}

// Parse selects a parser for doc and runs it.
func (r *Registry) Parse(ctx context.Context, doc *models.ExtractedDocument) (*Result, error) {
	start := time.Now()

	if !r.detector.IsTargetStatement(doc) {
		return nil, r.fail(newError(CodeNotTarget, nil, "document is not a Robinhood event-contract statement"))
	}

	p, info, ok := r.FindBestParser(doc)
	if !ok {
		return nil, r.fail(newError(CodeNoParserAvailable, nil, "no enabled parser accepts a %s statement", info.Version))
	}
	r.logger.Debug("parser selected",
		"parser", p.ID(),
		"version", info.Version,
		"method", info.Method,
		"confidence", info.Confidence,
	)

	return r.run(ctx, p, doc, info, start)
}

// ParseWithVersion skips automatic selection and uses the highest-priority
// enabled parser for v.
func (r *Registry) ParseWithVersion(ctx context.Context, doc *models.ExtractedDocument, v models.StatementVersion) (*Result, error) {
	start := time.Now()

	if !r.detector.IsTargetStatement(doc) {
		return nil, r.fail(newError(CodeNotTarget, nil, "document is not a Robinhood event-contract statement"))
	}

	_, all := r.candidates(v)
	var p StatementParser
	for _, c := range all {
		if c.Version() == v {
			p = c
			break
		}
	}
	if p == nil {
		return nil, r.fail(newError(CodeParserNotFound, nil, "no enabled parser for version %s", v))
	}

	info := r.detector.Detect(doc)
	if info.Version != v {
		info.Notes = append(info.Notes, fmt.Sprintf("version forced to %s (detected %s)", v, info.Version))
	} else {
		info.Notes = append(info.Notes, fmt.Sprintf("version forced to %s", v))
	}
	info.Version = v

	return r.run(ctx, p, doc, info, start)
}

func (r *Registry) run(ctx context.Context, p StatementParser, doc *models.ExtractedDocument, info models.VersionDetectionResult, start time.Time) (*Result, error) {
	stmt, err := p.Parse(ctx, doc)
	if err != nil {
		return nil, r.fail(newError(CodeParseFailed, err, "parser %s failed", p.ID()))
	}
	if stmt == nil {
		return nil, r.fail(newError(CodeParseFailed, nil, "parser %s returned no statement", p.ID()))
	}
	if stmt.Warnings == nil {
		stmt.Warnings = []string{}
	}

	return &Result{
		ImportID:      uuid.New(),
		ParserID:      p.ID(),
		Statement:     stmt,
		VersionInfo:   info,
		ParserVersion: p.Version(),
		ParseTime:     time.Since(start),
	}, nil
}

// Validate runs the validator of the parser that produced res and appends
// its errors to the statement's warnings.
func (r *Registry) Validate(res *Result) (*models.ValidationResult, error) {
	if res == nil || res.Statement == nil {
		return nil, r.fail(newError(CodeValidationFailed, nil, "nothing to validate"))
	}

	reg, ok := r.Get(res.ParserID)
	if !ok {
		return nil, r.fail(newError(CodeParserNotFound, nil, "parser %q is no longer registered", res.ParserID))
	}

	v := reg.Parser.Validate(res.Statement)
	for _, msg := range v.Errors {
		res.Statement.Warnings = append(res.Statement.Warnings, "validation: "+msg)
	}
	if !v.Success {
		r.logger.Warn("statement failed validation",
			"parser", res.ParserID,
			"importId", res.ImportID,
			"errors", len(v.Errors),
		)
	}
	return &v, nil
}

// ParseAndValidate parses doc and validates the result. Validation problems
// become warnings on the statement; they never fail the call.
func (r *Registry) ParseAndValidate(ctx context.Context, doc *models.ExtractedDocument) (*Result, *models.ValidationResult, error) {
	res, err := r.Parse(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	v, err := r.Validate(res)
	if err != nil {
		return nil, nil, err
	}
	return res, v, nil
}

func (r *Registry) fail(err *Error) *Error {
	r.logger.Warn("statement parse rejected", "code", err.Code, "error", err.Error())
	return err
}

// RegisterDefaults registers every built-in parser at the given priority.
func RegisterDefaults(r *Registry, priority int) error {
	for _, p := range []StatementParser{NewRobinhoodV1(), NewRobinhoodV2()} {
		if err := r.Register(p, priority); err != nil {
			return err
		}
	}
	return nil
}

// ParserInfo describes one registration.
type ParserInfo struct {
	ID            string                  `json:"id"`
	Version       models.StatementVersion `json:"version"`
	Priority      int                     `json:"priority"`
	Enabled       bool                    `json:"enabled"`
	EffectiveFrom string                  `json:"effectiveFrom"`
	EffectiveTo   string                  `json:"effectiveTo,omitempty"`
}

// Stats summarises the registry.
type Stats struct {
	Total   int                                  `json:"total"`
	Enabled int                                  `json:"enabled"`
	Parsers []ParserInfo                         `json:"parsers"`
	Index   map[models.StatementVersion][]string `json:"index"`
}

// Stats returns a snapshot of registrations and the version index.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		Total:   len(r.registrations),
		Parsers: make([]ParserInfo, 0, len(r.registrations)),
		Index:   make(map[models.StatementVersion][]string, len(r.index)),
	}
	for id, reg := range r.registrations {
		if reg.Enabled {
			s.Enabled++
		}
		info := ParserInfo{
			ID:            id,
			Version:       reg.Parser.Version(),
			Priority:      reg.Priority,
			Enabled:       reg.Enabled,
			EffectiveFrom: reg.Parser.EffectiveFrom().Format(time.DateOnly),
		}
		if to, ok := reg.Parser.EffectiveTo(); ok {
			info.EffectiveTo = to.Format(time.DateOnly)
		}
		s.Parsers = append(s.Parsers, info)
	}
	sort.Slice(s.Parsers, func(i, j int) bool { return s.Parsers[i].ID < s.Parsers[j].ID })

	for v, ids := range r.index {
		s.Index[v] = append([]string(nil), ids...)
	}
	return s
}
