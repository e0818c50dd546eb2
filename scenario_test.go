package forecast

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestScenario_TagFilters(t *testing.T) {
	core := NewEmployee("dev", jan24, Attrs{"salary": 60000}).Tagged("core")
	contractor := NewEmployee("temp", jan24, Attrs{"salary": 60000}).Tagged("contractor")
	both := NewEmployee("lead", jan24, Attrs{"salary": 60000}).Tagged("core", "contractor")

	s := &Scenario{Name: "core-only", Filters: Filters{RequireTags: []string{"core"}}}
	if !s.ShouldIncludeEntity(core) {
		t.Error("entity with the required tag should be included")
	}
	if s.ShouldIncludeEntity(contractor) {
		t.Error("entity missing the required tag should be excluded")
	}

	s = &Scenario{Name: "no-contractors", Filters: Filters{ExcludeTags: []string{"contractor"}}}
	if s.ShouldIncludeEntity(contractor) {
		t.Error("entity with an excluded tag should be excluded")
	}
	if !s.ShouldIncludeEntity(core) {
		t.Error("entity without the excluded tag should be included")
	}

	// A tag in both lists: exclusion wins.
	s = &Scenario{Name: "conflict", Filters: Filters{
		RequireTags: []string{"core"},
		ExcludeTags: []string{"contractor"},
	}}
	if s.ShouldIncludeEntity(both) {
		t.Error("exclusion must win when require and exclude both match")
	}
}

func TestScenario_OverridesArePure(t *testing.T) {
	e := NewEmployee("dev", jan24, Attrs{"salary": 60000})

	s := &Scenario{Name: "raise", Overrides: []Override{
		{Kind: KindEmployee, Field: "salary", Multiplier: f64(1.1)},
	}}
	out := s.ApplyToEntity(e)
	if got := out.Get("salary", 0); got != 66000 {
		t.Errorf("overridden salary = %v, want 66000", got)
	}
	if got := e.Get("salary", 0); got != 60000 {
		t.Errorf("original entity mutated: salary = %v, want 60000", got)
	}

	// Exact-value override, and kind mismatch passes through.
	s = &Scenario{Name: "freeze", Overrides: []Override{
		{Kind: KindEmployee, Field: "salary", Value: f64(50000)},
		{Kind: KindFacility, Field: "monthly_cost", Value: f64(0)},
	}}
	out = s.ApplyToEntity(e)
	if got := out.Get("salary", 0); got != 50000 {
		t.Errorf("overridden salary = %v, want 50000", got)
	}
	if got := out.Get("monthly_cost", -1); got != -1 {
		t.Errorf("facility override leaked onto an employee: %v", got)
	}
}

func TestScenario_Calculate(t *testing.T) {
	store := NewMemoryStore(
		NewEmployee("dev", jan24, Attrs{"salary": 60000}).Until(dec24),
		NewEmployee("temp", jan24, Attrs{"salary": 120000}).Until(dec24).Tagged("contractor"),
		NewFacility("hq", jan24, Attrs{"monthly_cost": 5000}).Until(dec24),
	)
	eng := NewEngine(store, DefaultRegistry())

	baseline, err := eng.CalculatePeriod(context.Background(), jan24, dec24)
	if err != nil {
		t.Fatalf("CalculatePeriod() error = %v", err)
	}
	if want := M(25000); !baseline[0].TotalExpenses.Equal(want) {
		t.Fatalf("baseline expenses = %v, want %v", baseline[0].TotalExpenses, want)
	}

	// Cut the contractor and halve the rent.
	s := &Scenario{
		Name:    "downsize",
		Filters: Filters{ExcludeTags: []string{"contractor"}},
		Overrides: []Override{
			{Kind: KindFacility, Field: "monthly_cost", Multiplier: f64(0.5)},
		},
	}
	rows, err := s.Calculate(context.Background(), eng, jan24, dec24)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	// 5000 salary + 2500 rent.
	if want := M(7500); !rows[0].TotalExpenses.Equal(want) {
		t.Errorf("scenario expenses = %v, want %v", rows[0].TotalExpenses, want)
	}

	// The scenario run must not disturb the baseline cache.
	again, err := eng.CalculatePeriod(context.Background(), jan24, dec24)
	if err != nil {
		t.Fatalf("CalculatePeriod() error = %v", err)
	}
	if !RowsEqual(again, baseline) {
		t.Error("scenario calculation perturbed the baseline")
	}
}

func TestScenario_Calculate_SurfacesDiagnostics(t *testing.T) {
	reg := DefaultRegistry()
	reg.Register(KindEmployee, CalcSpec{
		Name:     "bonus_accrual",
		Category: CategoryEmployeeCosts,
		Flow:     FlowExpense,
		Func: func(e Entity, ctx *Context) (Money, error) {
			return Money{}, errors.New("bonus table unavailable")
		},
	})
	eng := NewEngine(testStore(), reg)

	s := &Scenario{Name: "stressed"}
	if _, err := s.Calculate(context.Background(), eng, jan24, jan24.EndOfMonth()); err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	// The contained failure must be visible on the engine the caller holds,
	// not lost with the scenario's derived engine.
	diags := eng.Diagnostics()
	if len(diags) == 0 {
		t.Fatal("scenario run left no diagnostics on the engine")
	}
	if d := diags[0]; d.Entity != "dev" || d.Calculator != "bonus_accrual" {
		t.Errorf("diagnostic = %v, want dev/bonus_accrual", d)
	}
}

func TestScenario_Calculate_ConcurrentWithBaseline(t *testing.T) {
	store := NewMemoryStore(
		NewEmployee("dev", jan24, Attrs{"salary": 60000}).Until(dec24),
		NewFacility("hq", jan24, Attrs{"monthly_cost": 5000}).Until(dec24).Tagged("office"),
	)
	eng := NewEngine(store, DefaultRegistry())
	s := &Scenario{Name: "remote", Filters: Filters{ExcludeTags: []string{"office"}}}

	// Baseline and scenario calculations share one cache; interleaving them
	// from many goroutines must stay safe under the race detector.
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Calculate(context.Background(), eng, jan24, dec24); err != nil {
				errs <- err
			}
			if _, err := eng.CalculatePeriod(context.Background(), jan24, dec24); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		t.Fatalf("concurrent calculation error = %v", err)
	}

	baseline, err := eng.CalculatePeriod(context.Background(), jan24, dec24)
	if err != nil {
		t.Fatalf("CalculatePeriod() error = %v", err)
	}
	if want := M(10000); !baseline[0].TotalExpenses.Equal(want) {
		t.Errorf("baseline expenses = %v, want %v", baseline[0].TotalExpenses, want)
	}
	rows, err := s.Calculate(context.Background(), eng, jan24, dec24)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := M(5000); !rows[0].TotalExpenses.Equal(want) {
		t.Errorf("scenario expenses = %v, want %v", rows[0].TotalExpenses, want)
	}
}

func TestScenario_AssumptionsReachCalculators(t *testing.T) {
	store := NewMemoryStore(NewEmployee("dev", jan24, Attrs{"salary": 60000}).Until(dec24))
	eng := NewEngine(store, DefaultRegistry())

	s := &Scenario{Name: "loaded-cost", Assumptions: map[string]float64{"overhead_multiplier": 1.4}}
	rows, err := s.Calculate(context.Background(), eng, jan24, jan24.EndOfMonth())
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if want := M(7000); !rows[0].TotalExpenses.Equal(want) {
		t.Errorf("expenses with overhead assumption = %v, want %v", rows[0].TotalExpenses, want)
	}
}

const scenarioYAML = `
scenarios:
  - name: conservative
    description: lose the contract, tighten costs
    entity_filters:
      exclude_tags: [at-risk]
    entity_overrides:
      - entity_type: employee
        field: salary
        multiplier: 0.95
      - entity_type: facility
        field: monthly_cost
        value: 4000
    assumptions:
      overhead_multiplier: 1.2
  - name: optimistic
`

func TestDecodeScenarios(t *testing.T) {
	scenarios, err := DecodeScenarios(strings.NewReader(scenarioYAML))
	if err != nil {
		t.Fatalf("DecodeScenarios() error = %v", err)
	}
	if len(scenarios) != 2 {
		t.Fatalf("got %d scenarios, want 2", len(scenarios))
	}
	s := scenarios[0]
	if s.Name != "conservative" {
		t.Errorf("name = %q, want conservative", s.Name)
	}
	if len(s.Filters.ExcludeTags) != 1 || s.Filters.ExcludeTags[0] != "at-risk" {
		t.Errorf("exclude tags = %v, want [at-risk]", s.Filters.ExcludeTags)
	}
	if len(s.Overrides) != 2 {
		t.Fatalf("got %d overrides, want 2", len(s.Overrides))
	}
	if o := s.Overrides[0]; o.Kind != KindEmployee || o.Field != "salary" || o.Multiplier == nil || *o.Multiplier != 0.95 {
		t.Errorf("override 0 = %+v, want employee salary x0.95", o)
	}
	if o := s.Overrides[1]; o.Value == nil || *o.Value != 4000 {
		t.Errorf("override 1 = %+v, want monthly_cost = 4000", o)
	}
	if s.Assumptions["overhead_multiplier"] != 1.2 {
		t.Errorf("assumptions = %v", s.Assumptions)
	}
}

func TestDecodeScenarios_UnnamedScenario(t *testing.T) {
	_, err := DecodeScenarios(strings.NewReader("scenarios:\n  - description: nameless\n"))
	if err == nil {
		t.Error("a scenario without a name should be rejected")
	}
}

func TestEncodeScenarios_RoundTrip(t *testing.T) {
	in := []Scenario{{
		Name:      "downsize",
		Filters:   Filters{ExcludeTags: []string{"contractor"}},
		Overrides: []Override{{Kind: KindFacility, Field: "monthly_cost", Multiplier: f64(0.5)}},
	}}
	var buf bytes.Buffer
	if err := EncodeScenarios(&buf, in); err != nil {
		t.Fatalf("EncodeScenarios() error = %v", err)
	}
	out, err := DecodeScenarios(&buf)
	if err != nil {
		t.Fatalf("DecodeScenarios() error = %v", err)
	}
	if len(out) != 1 || out[0].Name != "downsize" {
		t.Fatalf("round trip lost the scenario: %v", out)
	}
	if o := out[0].Overrides[0]; o.Multiplier == nil || *o.Multiplier != 0.5 {
		t.Errorf("round trip lost the override: %+v", o)
	}
}
