package forecast

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

// Scenario is a named, declarative transformation of the entity set: tag
// filters, field overrides, and global assumptions. It holds no forecasting
// arithmetic of its own; Calculate delegates to the Engine.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Filters     Filters            `yaml:"entity_filters,omitempty"`
	Overrides   []Override         `yaml:"entity_overrides,omitempty"`
	Assumptions map[string]float64 `yaml:"assumptions,omitempty"`
}

// Filters selects entities by tags.
type Filters struct {
	RequireTags []string `yaml:"require_tags,omitempty"`
	ExcludeTags []string `yaml:"exclude_tags,omitempty"`
}

// Override rewrites one numeric field on every entity of a kind, either to
// an exact value or by a multiplicative factor.
type Override struct {
	Kind       Kind     `yaml:"entity_type"`
	Field      string   `yaml:"field"`
	Value      *float64 `yaml:"value,omitempty"`
	Multiplier *float64 `yaml:"multiplier,omitempty"`
}

// ShouldIncludeEntity reports whether the entity passes the scenario's tag
// filters: every required tag present and no excluded tag present. A tag
// listed in both require and exclude yields exclusion.
func (s *Scenario) ShouldIncludeEntity(e Entity) bool {
	for _, tag := range s.Filters.RequireTags {
		if !e.HasTag(tag) {
			return false
		}
	}
	for _, tag := range s.Filters.ExcludeTags {
		if e.HasTag(tag) {
			return false
		}
	}
	return true
}

// ApplyToEntity returns a new entity with every matching override applied.
// Entities of non-matching kinds pass through structurally unchanged. The
// transform is pure: the input entity is never mutated.
func (s *Scenario) ApplyToEntity(e Entity) Entity {
	for _, o := range s.Overrides {
		if o.Kind != e.Kind() {
			continue
		}
		switch {
		case o.Value != nil:
			e = e.With(o.Field, *o.Value)
		case o.Multiplier != nil:
			e = e.With(o.Field, e.Get(o.Field, 0)*(*o.Multiplier))
		}
	}
	return e
}

// Calculate filters and transforms the full entity set, then delegates the
// forecast to the engine. The engine caches the result under the scenario's
// name, and contained-failure diagnostics land on the engine the caller
// holds (see Engine.Diagnostics).
func (s *Scenario) Calculate(ctx context.Context, engine *Engine, from, to Date) ([]PeriodRow, error) {
	store := &scenarioStore{base: engine.store, scenario: s}
	return engine.forScenario(s.Name, store, s.Assumptions).CalculatePeriod(ctx, from, to)
}

// scenarioStore wraps a store, applying the scenario's filters and overrides
// to every query result. Overrides never touch entity dates, so active-on
// filtering in the base store stays valid.
type scenarioStore struct {
	base     EntityStore
	scenario *Scenario
}

func (s *scenarioStore) Query(ctx context.Context, q Query) ([]Entity, error) {
	entities, err := s.base.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	var out []Entity
	for _, e := range entities {
		if !s.scenario.ShouldIncludeEntity(e) {
			continue
		}
		out = append(out, s.scenario.ApplyToEntity(e))
	}
	return out, nil
}

// DecodeScenarios reads scenario definitions from their YAML declarative
// format.
func DecodeScenarios(r io.Reader) ([]Scenario, error) {
	var file struct {
		Scenarios []Scenario `yaml:"scenarios"`
	}
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding scenarios: %w", err)
	}
	for i, sc := range file.Scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("scenario #%d has no name", i+1)
		}
	}
	return file.Scenarios, nil
}

// EncodeScenarios writes scenario definitions in their YAML declarative
// format.
func EncodeScenarios(w io.Writer, scenarios []Scenario) error {
	file := struct {
		Scenarios []Scenario `yaml:"scenarios"`
	}{Scenarios: scenarios}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(file)
}
