// Package api exposes the parsing engine over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insightdelivered/statement-engine/internal/extractor"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/parser"
	"github.com/insightdelivered/statement-engine/internal/writer"
)

// DocumentSource turns uploaded bytes into positioned text.
type DocumentSource interface {
	Load(ctx context.Context, r io.ReaderAt, size int64) (*models.ExtractedDocument, error)
}

// ParseResponse is the JSON body of POST /api/parse.
type ParseResponse struct {
	Success     bool                           `json:"success"`
	Code        parser.Code                    `json:"code,omitempty"`
	Error       string                         `json:"error,omitempty"`
	ImportID    string                         `json:"importId,omitempty"`
	ParserID    string                         `json:"parserId,omitempty"`
	VersionInfo *models.VersionDetectionResult `json:"versionInfo,omitempty"`
	Statement   *models.ParsedStatement        `json:"statement,omitempty"`
	Validation  *models.ValidationResult       `json:"validation,omitempty"`
	CSV         string                         `json:"csv,omitempty"`
	ParseTimeMs float64                        `json:"parseTimeMs,omitempty"`
	Version     string                         `json:"version"`
}

// Options configures a Handler.
type Options struct {
	// Version is reported by /api/health and every parse response.
	Version string
	// ParseTimeout bounds extraction plus parsing of one upload. 0 means no limit.
	ParseTimeout time.Duration
	Logger       *slog.Logger
}

// Handler serves the parse API.
type Handler struct {
	registry *parser.Registry
	source   DocumentSource
	opts     Options
	logger   *slog.Logger
	metrics  *metrics
}

// NewHandler wires a handler to a registry and a document source.
func NewHandler(registry *parser.Registry, source DocumentSource, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		source:   source,
		opts:     opts,
		logger:   logger,
		metrics:  newMetrics(),
	}
}

// NewApp builds a fiber app with the handler's routes and an upload limit.
func NewApp(h *Handler, maxUploadBytes int) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "statement-engine",
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes mounts the API on app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Get("/api/parsers", h.HandleParsers)
	app.Post("/api/parse", h.HandleParse)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.metrics.registry, promhttp.HandlerOpts{})))
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.opts.Version,
	})
}

// HandleParsers returns the registry statistics.
func (h *Handler) HandleParsers(c *fiber.Ctx) error {
	return c.JSON(h.registry.Stats())
}

// HandleParse accepts a multipart upload with a "file" field holding the
// statement PDF. Optional fields: "version" forces a layout revision,
// "validate" ("true") runs validation, "header" ("false") drops CSV
// metadata rows.
func (h *Handler) HandleParse(c *fiber.Ctx) error {
	start := time.Now()

	fh, err := c.FormFile("file")
	if err != nil {
		return h.reject(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return h.reject(c, fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	file, err := fh.Open()
	if err != nil {
		h.logger.Error("failed to open upload", "file", fh.Filename, "error", err)
		return h.reject(c, fiber.StatusInternalServerError, "Failed to read uploaded file.")
	}
	defer file.Close()

	ctx := c.UserContext()
	if h.opts.ParseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.ParseTimeout)
		defer cancel()
	}

	doc, err := h.source.Load(ctx, file, fh.Size)
	if err != nil {
		h.logger.Warn("extraction failed", "file", fh.Filename, "error", err)
		h.metrics.observe("extract_failed", "", "", time.Since(start))
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return h.reject(c, fiber.StatusGatewayTimeout, "Reading the PDF took too long.")
		case errors.Is(err, extractor.ErrUnreadable):
			return h.reject(c, fiber.StatusUnprocessableEntity, "The PDF has no readable text layer.")
		}
		return h.reject(c, fiber.StatusUnprocessableEntity, "The PDF could not be read.")
	}

	var res *parser.Result
	if forced := c.FormValue("version"); forced != "" {
		res, err = h.registry.ParseWithVersion(ctx, doc, models.StatementVersion(forced))
	} else {
		res, err = h.registry.Parse(ctx, doc)
	}
	if err != nil {
		return h.parseFailed(c, fh.Filename, err, time.Since(start))
	}

	resp := ParseResponse{
		Success:     true,
		ImportID:    res.ImportID.String(),
		ParserID:    res.ParserID,
		VersionInfo: &res.VersionInfo,
		Statement:   res.Statement,
		ParseTimeMs: res.ParseTimeMs(),
		Version:     h.opts.Version,
	}

	if c.FormValue("validate") == "true" {
		v, err := h.registry.Validate(res)
		if err != nil {
			return h.parseFailed(c, fh.Filename, err, time.Since(start))
		}
		resp.Validation = v
	}

	var buf bytes.Buffer
	csvWriter := &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"}
	if err := csvWriter.Write(&buf, res.Statement); err != nil {
		h.logger.Error("CSV generation failed", "importId", resp.ImportID, "error", err)
		return h.reject(c, fiber.StatusInternalServerError, "CSV generation failed.")
	}
	resp.CSV = buf.String()

	h.metrics.observe("success", string(res.VersionInfo.Version), string(res.VersionInfo.Method), time.Since(start))
	h.logger.Info("statement parsed",
		"importId", resp.ImportID,
		"file", fh.Filename,
		"parser", res.ParserID,
		"version", res.VersionInfo.Version,
		"trades", len(res.Statement.Trades),
		"parseTimeMs", resp.ParseTimeMs,
	)
	return c.JSON(resp)
}

func (h *Handler) parseFailed(c *fiber.Ctx, file string, err error, elapsed time.Duration) error {
	code := parser.CodeOf(err)
	h.logger.Warn("parse failed", "file", file, "code", code, "error", err)
	h.metrics.observe(strings.ToLower(string(code)), "", "", elapsed)

	status := statusFor(code)
	if errors.Is(err, context.DeadlineExceeded) {
		status = fiber.StatusGatewayTimeout
	}
	return c.Status(status).JSON(ParseResponse{
		Code:    code,
		Error:   clientMessage(code),
		Version: h.opts.Version,
	})
}

func (h *Handler) reject(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ParseResponse{Error: msg, Version: h.opts.Version})
}

func statusFor(code parser.Code) int {
	switch code {
	case parser.CodeNotTarget, parser.CodeNoParserAvailable, parser.CodeParserNotFound:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// clientMessages are safe to return; the full error is only logged.
var clientMessages = map[parser.Code]string{
	parser.CodeNotTarget:         "The document is not a supported brokerage statement.",
	parser.CodeNoParserAvailable: "No parser accepted this statement layout.",
	parser.CodeParserNotFound:    "No enabled parser handles the requested version.",
	parser.CodeParseFailed:       "The statement could not be parsed.",
	parser.CodeValidationFailed:  "The statement could not be validated.",
}

func clientMessage(code parser.Code) string {
	if msg, ok := clientMessages[code]; ok {
		return msg
	}
	return "Internal server error."
}

type metrics struct {
	registry *prometheus.Registry
	parses   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statement_engine",
			Name:      "parses_total",
			Help:      "Statement uploads by outcome, detected version and detection method.",
		}, []string{"outcome", "version", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "statement_engine",
			Name:      "parse_duration_seconds",
			Help:      "Time spent extracting and parsing one upload.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.parses, m.duration)
	return m
}

func (m *metrics) observe(outcome, version, method string, elapsed time.Duration) {
	m.parses.WithLabelValues(outcome, version, method).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
