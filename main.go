package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/statement-engine/internal/api"
	"github.com/insightdelivered/statement-engine/internal/config"
	"github.com/insightdelivered/statement-engine/internal/extractor"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/parser"
	"github.com/insightdelivered/statement-engine/internal/version"
	"github.com/insightdelivered/statement-engine/internal/writer"
)

var appVersion = "2.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "statement-engine",
		Short: "Event-contract brokerage statement parser",
		Long: `Statement Engine reads Robinhood event-contract statement PDFs and
converts them into structured trades, closed positions, journal entries
and open positions.

The statement's layout revision is detected from its date and structure,
and the parser bound to that revision extracts the tables.`,
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(parsersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRegistry builds the registry with the built-in parsers, minus any the
// configuration disables.
func newRegistry(cfg *config.Config, logger *slog.Logger) (*parser.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg := parser.NewRegistry(
		version.NewDetector(version.WithLogger(logger)),
		parser.WithRegistryLogger(logger),
	)
	if err := parser.RegisterDefaults(reg, 10); err != nil {
		return nil, err
	}
	for _, id := range cfg.Parse.DisabledParsers {
		if err := reg.SetEnabled(id, false); err != nil {
			return nil, fmt.Errorf("DISABLED_PARSERS: %w", err)
		}
	}
	return reg, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return cfg, nil
}

type parseOptions struct {
	version  string
	output   string
	table    string
	validate bool
	asJSON   bool
	header   bool
	maxPages int
	password string
}

func parseCmd() *cobra.Command {
	var opts parseOptions

	cmd := &cobra.Command{
		Use:   "parse <statement.pdf> [statement2.pdf ...]",
		Short: "Parse statement PDFs into CSV or JSON",
		Long: `Parse one or more statement PDFs.

By default each input is written next to itself with a .csv extension
(.json with --json). With a single input, --output names the output file
("-" for stdout). With several inputs, --output names a directory.

Examples:
  statement-engine parse july.pdf
  statement-engine parse --validate --json july.pdf
  statement-engine parse --version 2024.01 --table closed january.pdf
  statement-engine parse --output out/ jan.pdf feb.pdf mar.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-pages") {
				opts.maxPages = cfg.Parse.MaxPages
			}
			if opts.password == "" {
				opts.password = cfg.Parse.PDFPassword
			}
			if !validTable(opts.table) {
				return fmt.Errorf("unknown table %q; use one of %s", opts.table, tableNames())
			}
			if opts.output == "-" && len(args) > 1 {
				return errors.New("--output - needs exactly one input")
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level}))
			reg, err := newRegistry(cfg, logger)
			if err != nil {
				return err
			}
			src := extractor.NewSource(extractor.LoadOptions{
				Password: opts.password,
				MaxPages: opts.maxPages,
				Logger:   logger,
			})
			return runParse(cmd.Context(), cmd.OutOrStdout(), reg, src, args, opts, cfg.Parse.Timeout)
		},
	}

	cmd.Flags().StringVar(&opts.version, "version", "", "Force a layout version (e.g. 2024.06) instead of detecting it")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file, directory (several inputs) or - for stdout")
	cmd.Flags().StringVar(&opts.table, "table", string(writer.TableTrades), "Record set to export as CSV: "+tableNames())
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Validate the parsed statement and report the outcome")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Write the full parse result as JSON instead of CSV")
	cmd.Flags().BoolVar(&opts.header, "header", true, "Include statement metadata rows in CSV output")
	cmd.Flags().IntVar(&opts.maxPages, "max-pages", 0, "Read at most this many pages (default from MAX_PAGES)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password for encrypted PDFs (default from PDF_PASSWORD)")

	return cmd
}

func validTable(name string) bool {
	for _, t := range writer.Tables {
		if string(t) == name {
			return true
		}
	}
	return false
}

func tableNames() string {
	names := make([]string, len(writer.Tables))
	for i, t := range writer.Tables {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// documentSource is satisfied by *extractor.Source.
type documentSource interface {
	Load(ctx context.Context, r io.ReaderAt, size int64) (*models.ExtractedDocument, error)
}

// fileReport is what one input produced.
type fileReport struct {
	input      string
	output     string
	result     *parser.Result
	validation *models.ValidationResult
}

// runParse processes inputs concurrently, at most one per CPU. The first
// failure cancels the remaining files.
func runParse(ctx context.Context, stdout io.Writer, reg *parser.Registry, src documentSource, inputs []string, opts parseOptions, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reports := make([]fileReport, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			rep, err := processFile(gctx, reg, src, input, outputPath(input, opts, len(inputs)), opts, timeout, stdout)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.output == "-" {
		return nil
	}
	for _, rep := range reports {
		printSummary(stdout, rep)
	}
	return nil
}

// outputPath names the file an input is written to.
func outputPath(input string, opts parseOptions, inputs int) string {
	ext := ".csv"
	if opts.asJSON {
		ext = ".json"
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ext

	switch {
	case opts.output == "-":
		return "-"
	case opts.output != "" && inputs == 1:
		return opts.output
	case opts.output != "":
		return filepath.Join(opts.output, base)
	default:
		return filepath.Join(filepath.Dir(input), base)
	}
}

func processFile(ctx context.Context, reg *parser.Registry, src documentSource, input, output string, opts parseOptions, timeout time.Duration, stdout io.Writer) (fileReport, error) {
	rep := fileReport{input: input, output: output}

	if !strings.EqualFold(filepath.Ext(input), ".pdf") {
		return rep, fmt.Errorf("expected .pdf file, got %q", filepath.Ext(input))
	}
	f, err := os.Open(input)
	if err != nil {
		return rep, fmt.Errorf("input file not found: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return rep, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	doc, err := src.Load(ctx, f, info.Size())
	if err != nil {
		return rep, fmt.Errorf("PDF extraction failed: %w", err)
	}

	if opts.version != "" {
		rep.result, err = reg.ParseWithVersion(ctx, doc, models.StatementVersion(opts.version))
	} else {
		rep.result, err = reg.Parse(ctx, doc)
	}
	if err != nil {
		return rep, err
	}
	if opts.validate {
		if rep.validation, err = reg.Validate(rep.result); err != nil {
			return rep, err
		}
	}

	var out io.Writer = stdout
	if output != "-" {
		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return rep, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		file, err := os.Create(output)
		if err != nil {
			return rep, fmt.Errorf("failed to create output file %q: %w", output, err)
		}
		defer file.Close()
		out = file
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(struct {
			*parser.Result
			ParseTimeMs float64                  `json:"parseTimeMs"`
			Validation  *models.ValidationResult `json:"validation,omitempty"`
		}{rep.result, rep.result.ParseTimeMs(), rep.validation})
	} else {
		w := &writer.CSVWriter{IncludeHeader: opts.header, Table: writer.Table(opts.table)}
		err = w.Write(out, rep.result.Statement)
	}
	if err != nil {
		return rep, fmt.Errorf("write failed: %w", err)
	}
	return rep, nil
}

func printSummary(w io.Writer, rep fileReport) {
	res := rep.result
	stmt := res.Statement
	fmt.Fprintf(w, "Processed: %s\n", rep.input)
	fmt.Fprintf(w, "  Version: %s (%s, confidence %.2f) via %s\n",
		res.VersionInfo.Version, res.VersionInfo.Method, res.VersionInfo.Confidence, res.ParserID)
	if acct := stmt.AccountSummary.AccountNumber; acct != "" {
		fmt.Fprintf(w, "  Account: %s\n", acct)
	}
	fmt.Fprintf(w, "  Trades: %d, closed: %d, journal: %d, open: %d\n",
		len(stmt.Trades), len(stmt.ClosedPositions), len(stmt.JournalEntries), len(stmt.OpenPositions))
	for _, warn := range stmt.Warnings {
		fmt.Fprintf(w, "  Warning: %s\n", warn)
	}
	if v := rep.validation; v != nil {
		status := "passed"
		if !v.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "  Validation: %s\n", status)
		for _, e := range v.Errors {
			fmt.Fprintf(w, "    - %s\n", e)
		}
	}
	fmt.Fprintf(w, "  Output: %s\n", rep.output)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP parse API",
		Long: `Run the HTTP API.

Routes:
  POST /api/parse    multipart upload (field "file"; optional "version", "validate", "header")
  GET  /api/health   liveness
  GET  /api/parsers  registered parsers and the version index
  GET  /metrics      Prometheus metrics

Settings come from the environment or .env (SERVER_HOST, SERVER_PORT,
MAX_UPLOAD_MB, MAX_PAGES, PARSE_TIMEOUT, DISABLED_PARSERS, LOG_LEVEL).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.Level}))
			slog.SetDefault(logger)

			reg, err := newRegistry(cfg, logger)
			if err != nil {
				return err
			}
			src := extractor.NewSource(extractor.LoadOptions{
				Password: cfg.Parse.PDFPassword,
				MaxPages: cfg.Parse.MaxPages,
				Logger:   logger,
			})
			handler := api.NewHandler(reg, src, api.Options{
				Version:      appVersion,
				ParseTimeout: cfg.Parse.Timeout,
				Logger:       logger,
			})
			app := api.NewApp(handler, cfg.Server.MaxUploadBytes())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", "addr", cfg.Server.Addr(), "version", appVersion)
				errCh <- app.Listen(cfg.Server.Addr())
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}
}

func parsersCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parsers",
		Short: "List registered parsers and the version index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := newRegistry(cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level})))
			if err != nil {
				return err
			}
			return printParsers(cmd.OutOrStdout(), reg.Stats(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func printParsers(w io.Writer, stats parser.Stats, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tPRIORITY\tENABLED\tEFFECTIVE FROM\tEFFECTIVE TO")
	for _, p := range stats.Parsers {
		to := p.EffectiveTo
		if to == "" {
			to = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\t%s\n", p.ID, p.Version, p.Priority, p.Enabled, p.EffectiveFrom, to)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d registered, %d enabled\n", stats.Total, stats.Enabled)
	return nil
}
