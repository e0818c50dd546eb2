package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/etnz/forecast"
	"github.com/etnz/forecast/renderer"
)

// forecastCmd holds the flags for the 'forecast' subcommand.
type forecastCmd struct {
	rng          rangeFlags
	scenarioFile string
	scenario     string
	workers      int
	format       string
	output       string
}

func (*forecastCmd) Name() string     { return "forecast" }
func (*forecastCmd) Synopsis() string { return "display the monthly cash-flow forecast" }
func (*forecastCmd) Usage() string {
	return `fcs forecast [-from <date>] [-to <date>] [-scenario <name> -scenarios <file>] [-workers n] [-format md|csv|html] [-o <file>]

  Computes the month-by-month cash-flow table over the date range: revenue,
  expenses, net cash flow and running cash balance, with per-category
  breakdowns and totals.

Usage Examples:
# Forecast the next twelve months.
$ fcs forecast

# Forecast 2026 under the "downsize" scenario, exported as CSV.
$ fcs forecast -from 2026-01-01 -to 2026-12-31 -scenarios scenarios.yaml -scenario downsize -format csv -o forecast.csv
`
}

func (c *forecastCmd) SetFlags(f *flag.FlagSet) {
	c.rng.SetFlags(f)
	f.StringVar(&c.scenarioFile, "scenarios", "", "Scenario definition file (YAML)")
	f.StringVar(&c.scenario, "scenario", "", "Name of the scenario to forecast under")
	f.IntVar(&c.workers, "workers", 0, "Compute months in parallel with n workers")
	f.StringVar(&c.format, "format", "md", "Output format: md, csv or html")
	f.StringVar(&c.output, "o", "", "Write the report to a file instead of stdout")
}

func (c *forecastCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	rows, err := c.calculate(ctx, eng, from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	reportDiagnostics(eng)

	switch c.format {
	case "md":
		md := renderer.ForecastMarkdown(rows, *defaultCurrency)
		if c.output != "" {
			if err := writeFile(c.output, md); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
			return subcommands.ExitSuccess
		}
		printMarkdown(md)
	case "csv":
		var b strings.Builder
		if err := forecast.ExportCSV(&b, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := writeFile(c.output, b.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	case "html":
		html, err := renderer.HTML(renderer.ForecastMarkdown(rows, *defaultCurrency))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := writeFile(c.output, html); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (want md, csv or html)\n", c.format)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

// calculate picks the execution path: scenario, parallel, or plain.
func (c *forecastCmd) calculate(ctx context.Context, eng *forecast.Engine, from, to forecast.Date) ([]forecast.PeriodRow, error) {
	if c.scenario != "" {
		if c.scenarioFile == "" {
			return nil, fmt.Errorf("-scenario requires -scenarios <file>")
		}
		s, err := loadScenario(c.scenarioFile, c.scenario)
		if err != nil {
			return nil, err
		}
		return s.Calculate(ctx, eng, from, to)
	}
	if c.workers > 0 {
		return eng.CalculateParallel(ctx, from, to, c.workers)
	}
	return eng.CalculatePeriod(ctx, from, to)
}
