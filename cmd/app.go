// Package cmd implements the CLI application to manage an organization's
// cash-flow forecast.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/forecast"
	"github.com/etnz/forecast/sqlstore"
)

// Environment variables honored by the global flags' defaults.
const (
	EnvEntitiesPath = "FCS_ENTITIES"
	EnvDatabaseFile = "FCS_DB"
	EnvCurrency     = "FCS_CURRENCY"
)

// Commands lists every subcommand. A main package registers them on a
// commander and executes the user-selected one.
var Commands = []subcommands.Command{
	&forecastCmd{},
	&kpiCmd{},
	&captableCmd{},
	&compareCmd{},
	&importCmd{},
	&AssistCmd{},
}

// As a CLI application it has a very short lived lifecycle, so it is ok to
// use global variables for the shared flags.

var entitiesPath = flag.String("entities", envOr(EnvEntitiesPath, "entities.yaml"), "Path to the entity file or directory (YAML)")
var dbFile = flag.String("db", os.Getenv(EnvDatabaseFile), "Path to a SQLite entity database; overrides -entities when set")
var startingCash = flag.Float64("cash", 0, "Cash balance at the start of the forecast range")
var defaultCurrency = flag.String("currency", envOr(EnvCurrency, "USD"), "ISO currency code used for display")

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// OpenStore opens the entity store selected by the global flags: the SQLite
// database when -db is set, the YAML entity path otherwise. A missing YAML
// path yields an empty store with a warning, so read-only commands still run.
func OpenStore() (forecast.EntityStore, error) {
	if *dbFile != "" {
		return sqlstore.Open(*dbFile)
	}
	store, err := forecast.LoadEntities(*entitiesPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning, entity path %q does not exist, using an empty set instead", *entitiesPath)
		return forecast.NewMemoryStore(), nil
	}
	return store, err
}

// AllEntities returns every entity of the store, for the consumers that need
// the full set (the cap table, the assistant).
func AllEntities(ctx context.Context, store forecast.EntityStore) ([]forecast.Entity, error) {
	return store.Query(ctx, forecast.Query{})
}

// NewEngine builds the engine over the store with the global starting cash.
func NewEngine(store forecast.EntityStore) *forecast.Engine {
	eng := forecast.NewEngine(store, forecast.DefaultRegistry())
	eng.SetStartingCash(forecast.M(*startingCash))
	return eng
}

// rangeFlags holds the -from/-to pair shared by the reporting subcommands.
type rangeFlags struct {
	from, to string
}

func (r *rangeFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.from, "from", "", "First month of the range, YYYY-MM-DD (defaults to the current month)")
	f.StringVar(&r.to, "to", "", "Last month of the range, YYYY-MM-DD (defaults to twelve months from -from)")
}

// parse resolves the pair into dates, defaulting to a twelve month window.
func (r *rangeFlags) parse() (from, to forecast.Date, err error) {
	from = forecast.Today().StartOfMonth()
	if r.from != "" {
		if from, err = forecast.ParseDate(r.from); err != nil {
			return from, to, fmt.Errorf("parsing -from: %w", err)
		}
	}
	to = from.AddMonth(11).EndOfMonth()
	if r.to != "" {
		if to, err = forecast.ParseDate(r.to); err != nil {
			return from, to, fmt.Errorf("parsing -to: %w", err)
		}
	}
	return from, to, nil
}

// loadScenario finds one named scenario in a scenario file.
func loadScenario(path, name string) (*forecast.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open scenario file %q: %w", path, err)
	}
	defer f.Close()
	scenarios, err := forecast.DecodeScenarios(f)
	if err != nil {
		return nil, err
	}
	for i := range scenarios {
		if scenarios[i].Name == name {
			return &scenarios[i], nil
		}
	}
	return nil, fmt.Errorf("scenario %q not found in %q", name, path)
}

// reportDiagnostics prints contained calculator failures to stderr, so
// degraded figures never pass silently.
func reportDiagnostics(eng *forecast.Engine) {
	for _, d := range eng.Diagnostics() {
		fmt.Fprintf(os.Stderr, "warning: %s/%s: %v\n", d.Entity, d.Calculator, d.Err)
	}
}
