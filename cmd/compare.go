package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/forecast"
	"github.com/etnz/forecast/renderer"
)

// compareCmd holds the flags for the 'compare' subcommand.
type compareCmd struct {
	rng          rangeFlags
	scenarioFile string
}

func (*compareCmd) Name() string     { return "compare" }
func (*compareCmd) Synopsis() string { return "compare the forecast under every scenario" }
func (*compareCmd) Usage() string {
	return `fcs compare -scenarios <file> [-from <date>] [-to <date>]

  Runs the forecast once per scenario in the file, plus the baseline, and
  shows their totals side by side. Scenarios are independent transformations
  of the same entity set; the baseline is never modified.
`
}

func (c *compareCmd) SetFlags(f *flag.FlagSet) {
	c.rng.SetFlags(f)
	f.StringVar(&c.scenarioFile, "scenarios", "scenarios.yaml", "Scenario definition file (YAML)")
}

func (c *compareCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, to, err := c.rng.parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	sf, err := os.Open(c.scenarioFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not open scenario file %q: %v\n", c.scenarioFile, err)
		return subcommands.ExitFailure
	}
	scenarios, err := forecast.DecodeScenarios(sf)
	sf.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load entities: %v\n", err)
		return subcommands.ExitFailure
	}
	eng := NewEngine(store)

	names := []string{"baseline"}
	tables := map[string][]forecast.PeriodRow{}
	if tables["baseline"], err = eng.CalculatePeriod(ctx, from, to); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	for i := range scenarios {
		s := &scenarios[i]
		rows, err := s.Calculate(ctx, eng, from, to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: scenario %q: %v\n", s.Name, err)
			return subcommands.ExitFailure
		}
		names = append(names, s.Name)
		tables[s.Name] = rows
	}

	printMarkdown(renderer.ComparisonMarkdown(names, tables, *defaultCurrency))
	return subcommands.ExitSuccess
}
