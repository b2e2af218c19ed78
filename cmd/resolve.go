package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/StinkyLord/bom-tree-builder/internal/config"
	"github.com/StinkyLord/bom-tree-builder/internal/ingest"
	"github.com/StinkyLord/bom-tree-builder/internal/metrics"
	"github.com/StinkyLord/bom-tree-builder/internal/model"
	"github.com/StinkyLord/bom-tree-builder/internal/output"
	"github.com/StinkyLord/bom-tree-builder/internal/registry"
	"github.com/StinkyLord/bom-tree-builder/internal/resolver"
)

var (
	flagParts          []string
	flagPartsFile      string
	flagPartsColumn    int
	flagPartsDelimiter string
	flagPartsHeader    bool
	flagMode           string
	flagQty            float64
	flagWorkers        int
	flagTimeout        time.Duration
	flagOutput         string
	flagFormat         string
	flagDrawingURL     string
	flagMetricsFile    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [part...]",
	Short: "Resolve the BOM trees of one or more parts",
	Long: `Resolve the multi-level BOM of every requested part across the loaded
sources and write a report.

Examples:
  bomtree resolve -s Denmark.xlsx -s Sweden.txt 100200 100300
  bomtree resolve -c bomtree.yaml --parts-file parts.xlsx --mode first
  bomtree resolve -s erp.csv=ERP -p 100200 --qty 50 --format tree --output -
  bomtree resolve -s erp.csv -p 100200 -f cyclonedx -o 100200.cdx.json`,
	RunE: runResolve,
}

func init() {
	f := resolveCmd.Flags()
	f.StringSliceVarP(&flagParts, "part", "p", nil, "Part number to resolve (repeatable, comma-separated)")
	f.StringVar(&flagPartsFile, "parts-file", "", "Read part numbers from a text file or workbook (column C)")
	f.IntVar(&flagPartsColumn, "parts-column", 0, "1-based column of --parts-file holding part numbers")
	f.StringVar(&flagPartsDelimiter, "parts-delimiter", ",", "Column delimiter of a text --parts-file")
	f.BoolVar(&flagPartsHeader, "parts-skip-header", false, "Skip the first line of a text --parts-file")
	f.StringVarP(&flagMode, "mode", "m", "", "Search mode: all (every source) or first (first matching source)")
	f.Float64VarP(&flagQty, "qty", "q", 0, "Build quantity of every requested part")
	f.IntVarP(&flagWorkers, "workers", "w", 0, "Parts resolved concurrently")
	f.DurationVar(&flagTimeout, "timeout", 0, "Abort the run after this long (e.g. 30s)")
	f.StringVarP(&flagOutput, "output", "o", "", "Output file path (use '-' for stdout; default BOM_Analysis_Report_<time>)")
	f.StringVarP(&flagFormat, "format", "f", "", "Output format: xlsx, json, csv, tree, cyclonedx")
	f.StringVar(&flagDrawingURL, "drawing-url", "", "Drawing link template, {part} is replaced by the part number")
	f.StringVar(&flagMetricsFile, "metrics-file", "", "Write run metrics to this file in Prometheus text format")
}

func applyResolveFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = flagMode
	}
	if flags.Changed("qty") {
		cfg.BuildQuantity = flagQty
	}
	if flags.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flags.Changed("output") {
		cfg.Output.Path = flagOutput
	}
	if flags.Changed("format") {
		cfg.Output.Format = flagFormat
	}
	if flags.Changed("drawing-url") {
		cfg.Report.DrawingURL = flagDrawingURL
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = flagMetricsFile
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyResolveFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(cfg.Sources) == 0 {
		return errors.New("no BOM sources given (use --source or a config file)")
	}
	mode, err := resolver.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	parts, err := requestedParts(args)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return errors.New("no part numbers given (use arguments, --part or --parts-file)")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "bomtree v%s\n", toolVersion)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	m := metrics.NewRegistry()
	reg, err := loadRegistry(ctx, cmd, cfg, logger, m)
	if err != nil {
		return err
	}

	r := resolver.New(reg,
		resolver.WithMode(mode),
		resolver.WithBuildQuantity(cfg.BuildQuantity),
		resolver.WithWorkers(cfg.Workers),
		resolver.WithLogger(logger),
		resolver.WithMetrics(m),
	)
	report, err := r.ResolveMany(ctx, parts)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}

	counts := map[model.PartStatus]int{}
	for _, p := range report.Parts {
		counts[p.Status]++
	}
	fmt.Fprintf(stderr, "Resolved %d part(s): %d found, %d component only, %d not found\n",
		len(report.Parts), counts[model.StatusFound], counts[model.StatusComponentOnly], counts[model.StatusNotFound])
	if flagVerbose {
		for _, f := range report.Failures {
			fmt.Fprintf(stderr, "  not found: %s\n", f.PartNo)
		}
	}

	path, err := output.Write(report, output.Options{
		Format:      cfg.Output.Format,
		Path:        cfg.Output.Path,
		DrawingURL:  cfg.Report.DrawingURL,
		Attributes:  cfg.Report.Attributes,
		ToolVersion: toolVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if path != "-" {
		fmt.Fprintf(stderr, "Report written to: %s\n", path)
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

// loadRegistry loads every configured source and narrows the registry to
// the search-in subset, if any.
func loadRegistry(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *zap.Logger, m *metrics.Registry) (*registry.Registry, error) {
	loaders, err := ingest.NewLoaders(cfg)
	if err != nil {
		return nil, err
	}
	res, err := ingest.Ingest(ctx, loaders, ingest.Options{
		Aliases: ingest.Aliases{
			Product:   cfg.Columns.Product,
			Component: cfg.Columns.Component,
			Quantity:  cfg.Columns.Quantity,
		},
		Logger:  logger,
		Metrics: m,
	})

	stderr := cmd.ErrOrStderr()
	if res != nil {
		for _, f := range res.Failed {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", f.Name, f.Err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	fmt.Fprintf(stderr, "Loaded %d source(s): %s\n", len(res.Loaded), strings.Join(res.Loaded, ", "))

	reg := res.Registry
	if len(cfg.SearchIn) > 0 {
		reg, err = reg.Select(cfg.SearchIn...)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(stderr, "Searching in: %s\n", strings.Join(reg.Names(), ", "))
	}
	return reg, nil
}

// requestedParts merges positional arguments, --part and --parts-file in
// that order. Duplicates are dropped later by the resolver.
func requestedParts(args []string) ([]string, error) {
	parts := append([]string{}, args...)
	parts = append(parts, flagParts...)
	if flagPartsFile != "" {
		fromFile, err := ingest.ReadPartList(flagPartsFile, ingest.PartListOptions{
			Column:     flagPartsColumn,
			Delimiter:  flagPartsDelimiter,
			SkipHeader: flagPartsHeader,
		})
		if err != nil {
			return nil, err
		}
		parts = append(parts, fromFile...)
	}
	return parts, nil
}
