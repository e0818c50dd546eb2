package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/etnz/forecast/cmd"
)

// completion describes the CLI for shell completion. Complete returns
// immediately when not running in a completion context.
func completion(name string) {
	sub := map[string]*complete.Command{}
	for _, c := range cmd.Commands {
		sub[c.Name()] = &complete.Command{}
	}
	sub["forecast"].Flags = map[string]complete.Predictor{
		"scenarios": predict.Files("*.yaml"),
		"format":    predict.Set{"md", "csv", "html"},
		"o":         predict.Files("*"),
	}
	sub["compare"].Flags = map[string]complete.Predictor{
		"scenarios": predict.Files("*.yaml"),
	}
	sub["import"].Flags = map[string]complete.Predictor{
		"mapping": predict.Files("*.json"),
		"i":       predict.Files("*.json"),
	}
	c := &complete.Command{
		Sub: sub,
		Flags: map[string]complete.Predictor{
			"entities": predict.Files("*.yaml"),
			"db":       predict.Files("*.db"),
		},
	}
	c.Complete(name)
}

func main() {
	// Local overrides (API keys, entity paths) live in .env during development.
	_ = godotenv.Load()

	name := path.Base(os.Args[0])
	completion(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
