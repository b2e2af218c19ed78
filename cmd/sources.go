package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagWhere []string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Load the BOM sources and summarize them",
	Long: `Load every configured source and print, in priority order, how many
records, products and components each one holds.

With --where, also print which sources list a part as a product or as a
component.

Examples:
  bomtree sources -s Denmark.xlsx -s Sweden.txt
  bomtree sources -c bomtree.yaml --where 100200`,
	RunE: runSources,
}

func init() {
	sourcesCmd.Flags().StringSliceVar(&flagWhere, "where", nil, "Part numbers to locate (comma-separated)")
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(cfg.Sources) == 0 {
		return errors.New("no BOM sources given (use --source or a config file)")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg, err := loadRegistry(cmd.Context(), cmd, cfg, logger, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-4s %-32s %10s %10s %10s\n", "#", "SOURCE", "RECORDS", "PRODUCTS", "COMPONENTS")
	for i, t := range reg.TablesInPriorityOrder() {
		fmt.Fprintf(out, "%-4d %-32s %10d %10d %10d\n", i+1, t.Name, t.Len(), len(t.Products()), len(t.ComponentNos()))
	}
	fmt.Fprintf(out, "%d distinct part number(s)\n", reg.PartCount())

	for _, part := range flagWhere {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		products, components := reg.Where(part)
		switch {
		case len(products) == 0 && len(components) == 0:
			fmt.Fprintf(out, "%s: not found\n", part)
		default:
			fmt.Fprintf(out, "%s: product in [%s], component in [%s]\n",
				part, strings.Join(products, ", "), strings.Join(components, ", "))
		}
	}
	return nil
}
