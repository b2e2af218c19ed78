package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/StinkyLord/bom-tree-builder/internal/config"
	"github.com/StinkyLord/bom-tree-builder/internal/logging"
)

const toolVersion = "1.0.0"

var (
	flagConfig    string
	flagSources   []string
	flagSearchIn  []string
	flagLogLevel  string
	flagLogFormat string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "bomtree",
	Short: "Multi-source BOM tree resolver",
	Long: `bomtree loads several bill-of-materials exports and rebuilds the full
multi-level BOM of requested part numbers across all of them.

Supported sources:
  • Delimited text  — CSV/TXT/TSV, delimiter and encoding detected
  • Excel workbooks — .xlsx/.xlsm, first sheet unless one is named
  • SQLite tables   — any table with product/component columns
  • S3 objects      — s3://bucket/key holding a text or XLSX export

Every requested part gets one tree per source that lists it as a product.
Sub-assemblies shared between trees are expanded once and referenced after.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "YAML configuration file")
	pf.StringArrayVarP(&flagSources, "source", "s", nil,
		"BOM source as path[=name] (repeatable, searched in the given order).\n"+
			"s3://bucket/key is fetched with the default AWS credentials.")
	pf.StringSliceVar(&flagSearchIn, "search-in", nil, "Only search these sources (names, comma-separated)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: console, json")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output (debug logging)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config (or the defaults) and applies the persistent
// flags on top. Command-specific overrides are applied by the caller before
// validation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	next := 0
	for _, s := range cfg.Sources {
		if s.Priority >= next {
			next = s.Priority + 1
		}
	}
	for i, value := range flagSources {
		src, err := parseSourceFlag(value)
		if err != nil {
			return nil, err
		}
		src.Priority = next + i
		cfg.Sources = append(cfg.Sources, src)
	}

	flags := cmd.Flags()
	if flags.Changed("search-in") {
		cfg.SearchIn = flagSearchIn
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = flagLogFormat
	}
	if flagVerbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// parseSourceFlag splits "path[=name]". The name defaults to the file name.
func parseSourceFlag(value string) (config.Source, error) {
	value = strings.TrimSpace(value)
	path, name := value, ""
	if i := strings.LastIndex(value, "="); i >= 0 {
		path, name = strings.TrimSpace(value[:i]), strings.TrimSpace(value[i+1:])
	}
	if path == "" {
		return config.Source{}, fmt.Errorf("invalid --source %q: empty path", value)
	}
	return config.Source{Path: path, Name: name}, nil
}
