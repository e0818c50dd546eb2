package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"google.golang.org/genai"

	"github.com/etnz/forecast"
	"github.com/etnz/forecast/agent"
)

// AssistCmd is the subcommand for the AI assistant.
type AssistCmd struct{}

func (*AssistCmd) Name() string     { return "assist" }
func (*AssistCmd) Synopsis() string { return "start an interactive session with the AI assistant" }
func (*AssistCmd) Usage() string {
	return `fcs assist [initial question]

  Starts an interactive session with the AI assistant. The assistant can run
  the forecast, compute KPIs and summarize the cap table on your behalf.
`
}

func (*AssistCmd) SetFlags(_ *flag.FlagSet) {}

func (c *AssistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	initialPrompt := ""
	if f.NArg() > 0 {
		initialPrompt = strings.Join(f.Args(), " ")
	}

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

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	analyst := agent.NewAnalyst(NewEngine(store), forecast.M(*startingCash), entities)
	researcher := agent.NewResearcher()
	a := agent.New(os.Stdout, os.Stdin, analyst, researcher)

	if err := a.Run(ctx, client, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
