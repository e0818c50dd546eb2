package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/forecast"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	mappingFile string
	inputFile   string
	outputFile  string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import entities from a third-party JSON export" }
func (*importCmd) Usage() string {
	return `fcs import -mapping <file> [-i <json>] [-o <entities.yaml>]

  Extracts entities from a JSON document (an HR system dump, a billing
  report, ...) using jsonpath mappings, and writes them as a YAML entity
  file. The input is read from stdin unless -i is given.

  The mapping file is JSON: a list of objects with "Kind", "Items", "Name",
  "StartDate", optional "EndDate", and a "Fields" object mapping attribute
  names to jsonpath expressions.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.mappingFile, "mapping", "", "Mapping file describing the extraction (JSON)")
	f.StringVar(&c.inputFile, "i", "", "JSON document to import (defaults to stdin)")
	f.StringVar(&c.outputFile, "o", "", "Entity file to write (defaults to the -entities path)")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.mappingFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -mapping is required")
		return subcommands.ExitUsageError
	}
	mappings, err := readMappings(c.mappingFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var in io.Reader = os.Stdin
	if c.inputFile != "" {
		file, err := os.Open(c.inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not open input %q: %v\n", c.inputFile, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		in = file
	}

	entities, err := forecast.ImportJSON(in, mappings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	out := c.outputFile
	if out == "" {
		out = *entitiesPath
	}
	if err := forecast.SaveEntities(out, entities); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Imported %d entities into %s\n", len(entities), out)
	return subcommands.ExitSuccess
}

func readMappings(path string) ([]forecast.ImportMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open mapping file %q: %w", path, err)
	}
	defer f.Close()
	var mappings []forecast.ImportMapping
	if err := json.NewDecoder(f).Decode(&mappings); err != nil {
		return nil, fmt.Errorf("decoding mapping file %q: %w", path, err)
	}
	return mappings, nil
}
