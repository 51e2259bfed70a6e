// hepio reads, converts, and analyzes Monte Carlo event files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/xtxerr/hepio/internal/browse"
	"github.com/xtxerr/hepio/internal/codec"
	"github.com/xtxerr/hepio/internal/export/parquet"
	"github.com/xtxerr/hepio/internal/loader"
	"github.com/xtxerr/hepio/internal/logging"
	"github.com/xtxerr/hepio/internal/query"
	"github.com/xtxerr/hepio/internal/stats"
	"github.com/xtxerr/hepio/internal/stream"
)

// Version is set at build time via ldflags
var Version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `usage: hepio [-config file] <command> [flags]

commands:
  convert  rewrite event files into another format
  stats    per-status kinematic summaries of event files
  export   flatten event files into parquet tables
  query    run SQL or canned queries over exported parquet
  browse   inspect an event file interactively
  version  print the version

run "hepio <command> -h" for command flags
`)
}

func main() {
	cfgPath := flag.String("config", "", "config file path")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hepio: %v\n", err)
		os.Exit(1)
	}
	initLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "convert":
		err = cmdConvert(ctx, cfg, args)
	case "stats":
		err = cmdStats(ctx, cfg, args)
	case "export":
		err = cmdExport(ctx, cfg, args)
	case "query":
		err = cmdQuery(ctx, cfg, args)
	case "browse":
		err = cmdBrowse(args)
	case "version":
		fmt.Println("hepio", Version)
	default:
		fmt.Fprintf(os.Stderr, "hepio: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "hepio %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*loader.Config, error) {
	if path == "" {
		// An unnamed config is optional; a named one must load.
		cfg, err := loader.Load("hepio.yaml")
		if errors.Is(err, os.ErrNotExist) {
			return loader.DefaultConfig(), nil
		}
		return cfg, err
	}
	return loader.Load(path)
}

func initLogging(cfg *loader.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logging.Init(level, cfg.Logging.Format == "json")
}

// =========================================================================
// convert
// =========================================================================

func cmdConvert(ctx context.Context, cfg *loader.Config, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	formatName := fs.String("format", cfg.IO.DefaultFormat, "output format (hepmc3, hepmc2, hepevt)")
	out := fs.String("o", "", "output file (single input only)")
	outDir := fs.String("out-dir", "", "output directory for multiple inputs")
	compress := fs.String("compress", "", "output compression extension (gz, xz, zst)")
	fs.Parse(args)

	format, err := codec.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		return fmt.Errorf("no input files")
	}
	if *out != "" && len(inputs) > 1 {
		return fmt.Errorf("-o needs exactly one input, got %d", len(inputs))
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.IO.Workers > 1 {
		g.SetLimit(cfg.IO.Workers)
	} else {
		g.SetLimit(1)
	}
	for _, in := range inputs {
		outPath := *out
		if outPath == "" {
			outPath = derivedPath(in, *outDir, format, *compress)
		}
		if outPath == in {
			return fmt.Errorf("%s: output would overwrite the input", in)
		}
		g.Go(func() error {
			st, err := stream.Convert(ctx, in, outPath, format)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			fmt.Printf("%s -> %s: %d events", in, outPath, st.Events)
			if st.SkippedRecords > 0 {
				fmt.Printf(" (%d records skipped)", st.SkippedRecords)
			}
			fmt.Println()
			return nil
		})
	}
	return g.Wait()
}

// derivedPath builds the output name from the input, stripping the
// input's format and compression extensions first.
func derivedPath(in, dir string, format codec.Format, compress string) string {
	base := filepath.Base(in)
	for _, ext := range []string{".gz", ".gzip", ".bz2", ".xz", ".zst", ".zstd"} {
		base = strings.TrimSuffix(base, ext)
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base += formatExtension(format)
	if compress != "" {
		base += "." + strings.TrimPrefix(compress, ".")
	}
	if dir == "" {
		dir = filepath.Dir(in)
	}
	return filepath.Join(dir, base)
}

func formatExtension(f codec.Format) string {
	switch f {
	case codec.FormatHepMC2:
		return ".hepmc2"
	case codec.FormatHEPEVT:
		return ".hepevt"
	default:
		return ".hepmc"
	}
}

// =========================================================================
// stats
// =========================================================================

func cmdStats(ctx context.Context, cfg *loader.Config, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(args)

	inputs := fs.Args()
	if len(inputs) == 0 {
		return fmt.Errorf("no input files")
	}

	total := stats.NewCollector()
	g, ctx := errgroup.WithContext(ctx)
	if cfg.IO.Workers > 1 {
		g.SetLimit(cfg.IO.Workers)
	} else {
		g.SetLimit(1)
	}
	for _, in := range inputs {
		g.Go(func() error {
			c, err := collectFile(ctx, in)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			return total.Merge(c)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("%d events across %d files\n", total.Events(), len(inputs))
	fmt.Printf("%8s %12s %10s %10s %10s %10s %10s\n",
		"status", "particles", "pt mean", "pt p50", "pt p99", "e mean", "e max")
	for _, r := range total.Results() {
		fmt.Printf("%8d %12d %10.4g %10.4g %10.4g %10.4g %10.4g\n",
			r.Status, r.Pt.Count, r.Pt.Mean, r.Pt.P50, r.Pt.P99,
			r.Energy.Mean, r.Energy.Max)
	}
	return nil
}

func collectFile(ctx context.Context, path string) (*stats.Collector, error) {
	r, err := stream.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	c := stats.NewCollector()
	for r.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.AddEvent(r.Event())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// =========================================================================
// export
// =========================================================================

func cmdExport(ctx context.Context, cfg *loader.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	particles := fs.String("particles", "", "particle table output path (required)")
	events := fs.String("events", "", "event summary table output path")
	compression := fs.String("compression", cfg.Export.Compression, "parquet compression (none, snappy, zstd, lz4, gzip)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("export needs exactly one input file")
	}
	if *particles == "" {
		return fmt.Errorf("-particles is required")
	}
	res, err := parquet.Export(ctx, fs.Arg(0), *particles, *events, parquet.Options{
		Compression:  parquet.ParseCompressionType(*compression),
		RowGroupSize: cfg.Export.RowGroupSize,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%d events, %d particle rows -> %s\n", res.Events, res.ParticleRows, *particles)
	return nil
}

// =========================================================================
// query
// =========================================================================

func cmdQuery(ctx context.Context, cfg *loader.Config, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	table := fs.String("table", "", "particle parquet path or glob")
	sqlText := fs.String("sql", "", "raw SQL to execute")
	summary := fs.Bool("summary", false, "per-PDG summary of the particle table")
	pids := fs.String("pid", "", "comma-separated PDG codes")
	statuses := fs.String("status", "", "comma-separated status codes")
	minPt := fs.Float64("min-pt", 0, "minimum transverse momentum")
	maxAbsEta := fs.Float64("max-abs-eta", 0, "maximum absolute pseudorapidity")
	eventNum := fs.Int64("event", -1, "restrict to one event number")
	limit := fs.Int("limit", 0, "row limit (0 uses the configured default)")
	fs.Parse(args)

	svc, err := query.New(query.Options{
		MemoryLimit:  cfg.Query.MemoryLimit,
		DefaultLimit: cfg.Query.DefaultLimit,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	if *sqlText != "" {
		cols, rows, err := svc.Exec(ctx, *sqlText)
		if err != nil {
			return err
		}
		printTable(cols, rows)
		return nil
	}

	if *table == "" {
		return fmt.Errorf("-table is required")
	}
	if *summary {
		rows, err := svc.Summarize(ctx, *table)
		if err != nil {
			return err
		}
		fmt.Printf("%10s %10s %12s %12s\n", "pid", "count", "avg pt", "max pt")
		for _, r := range rows {
			fmt.Printf("%10d %10d %12.4g %12.4g\n", r.PID, r.Count, r.AvgPt, r.MaxPt)
		}
		return nil
	}

	q := query.ParticleQuery{
		MinPt:     *minPt,
		MaxAbsEta: *maxAbsEta,
		Limit:     *limit,
	}
	if q.PIDs, err = parseIntList(*pids); err != nil {
		return fmt.Errorf("-pid: %w", err)
	}
	if q.Statuses, err = parseIntList(*statuses); err != nil {
		return fmt.Errorf("-status: %w", err)
	}
	if *eventNum >= 0 {
		q.EventNumber = eventNum
	}

	rows, err := svc.QueryParticles(ctx, *table, q)
	if err != nil {
		return err
	}
	fmt.Printf("%8s %6s %10s %6s %10s %10s %10s\n",
		"event", "id", "pid", "status", "pt", "eta", "phi")
	for _, r := range rows {
		fmt.Printf("%8d %6d %10d %6d %10.4g %10.4g %10.4g\n",
			r.EventNumber, r.ParticleID, r.PID, r.Status, r.Pt, r.Eta, r.Phi)
	}
	return nil
}

func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func printTable(cols []string, rows [][]string) {
	fmt.Println(strings.Join(cols, "\t"))
	for _, r := range rows {
		fmt.Println(strings.Join(r, "\t"))
	}
	fmt.Printf("(%d rows)\n", len(rows))
}

// =========================================================================
// browse
// =========================================================================

func cmdBrowse(args []string) error {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() > 1 {
		return fmt.Errorf("browse takes at most one file")
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("browse needs an interactive terminal")
	}
	path := ""
	if fs.NArg() == 1 {
		path = fs.Arg(0)
	}
	return browse.Run(path)
}
