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

// kpiCmd holds the flags for the 'kpi' subcommand.
type kpiCmd struct {
	rng          rangeFlags
	scenarioFile string
	scenario     string
}

func (*kpiCmd) Name() string     { return "kpi" }
func (*kpiCmd) Synopsis() string { return "display the key performance indicators of the forecast" }
func (*kpiCmd) Usage() string {
	return `fcs kpi [-from <date>] [-to <date>] [-scenario <name> -scenarios <file>]

  Derives the KPI set from the forecast over the date range: burn rate,
  runway, growth rates, cost structure ratios. Threshold alerts (low runway,
  negative cash) are listed below the table.
`
}

func (c *kpiCmd) SetFlags(f *flag.FlagSet) {
	c.rng.SetFlags(f)
	f.StringVar(&c.scenarioFile, "scenarios", "", "Scenario definition file (YAML)")
	f.StringVar(&c.scenario, "scenario", "", "Name of the scenario to evaluate under")
}

func (c *kpiCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, to, err := c.rng.parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load entities: %v\n", err)
		return subcommands.ExitFailure
	}
	eng := NewEngine(store)

	var rows []forecast.PeriodRow
	if c.scenario != "" {
		if c.scenarioFile == "" {
			fmt.Fprintln(os.Stderr, "Error: -scenario requires -scenarios <file>")
			return subcommands.ExitUsageError
		}
		s, err := loadScenario(c.scenarioFile, c.scenario)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		rows, err = s.Calculate(ctx, eng, from, to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	} else if rows, err = eng.CalculatePeriod(ctx, from, to); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	reportDiagnostics(eng)

	k := forecast.CalculateAllKPIs(rows, forecast.M(*startingCash))
	printMarkdown(renderer.KPIMarkdown(k, forecast.KPIAlerts(k)))
	return subcommands.ExitSuccess
}
