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

// captableCmd holds the flags for the 'captable' subcommand.
type captableCmd struct {
	dilute string
}

func (*captableCmd) Name() string     { return "captable" }
func (*captableCmd) Synopsis() string { return "display the capitalization table ownership summary" }
func (*captableCmd) Usage() string {
	return `fcs captable [-dilute <round>]

  Summarizes the cap table built from the shareholder, share class and
  funding round entities: shares outstanding, fully diluted shares,
  per-shareholder ownership, voting control and board control.

  With -dilute, also shows the dilution impact of the named funding round
  on the existing holders.
`
}

func (c *captableCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dilute, "dilute", "", "Show the dilution impact of this funding round")
}

func (c *captableCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load entities: %v\n", err)
		return subcommands.ExitFailure
	}
	entities, err := AllEntities(ctx, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	ct := forecast.NewCapTable(entities)
	for _, issue := range ct.Validate() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", issue)
	}
	printMarkdown(renderer.CapTableMarkdown(ct.Summarize()))

	if c.dilute != "" {
		round, ok := findRound(ct, c.dilute)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: funding round %q not found\n", c.dilute)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.DilutionMarkdown(round, ct.DilutionImpact(round)))
	}
	return subcommands.ExitSuccess
}

func findRound(ct *forecast.CapTable, name string) (forecast.FundingRound, bool) {
	for _, r := range ct.Rounds() {
		if r.Name() == name {
			return r, true
		}
	}
	return forecast.FundingRound{}, false
}
