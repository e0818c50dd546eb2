package forecast

import (
	"fmt"
	"slices"
	"sync"
)

// Calculator computes one named financial quantity for one entity in one
// period. Calculators are pure: they read the entity and the context, never
// mutate either, and report failures through the error return.
type Calculator func(e Entity, ctx *Context) (Money, error)

// Flow classifies a calculator's result into the revenue or expense side of
// the period row.
type Flow int

const (
	// FlowAuto classifies by sign: positive is revenue, negative is expense.
	FlowAuto Flow = iota
	FlowRevenue
	FlowExpense
	// FlowMetric records the value as a metric column (e.g. headcount)
	// without contributing to revenue or expense totals.
	FlowMetric
)

// CalcSpec declares a calculator: its function, its category column in the
// period table, and the calculators it depends on (same entity kind).
type CalcSpec struct {
	Name         string
	Description  string
	Dependencies []string
	Category     string // period-row column, e.g. "employee_costs"
	Flow         Flow
	Func         Calculator
}

// Diagnostic records a contained per-entity calculation failure.
// The batch substitutes 0 for the failed calculator and keeps going; the
// diagnostic is the caller's visibility into what was zeroed.
type Diagnostic struct {
	Entity     string
	Calculator string
	Err        error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s/%s: %v", d.Entity, d.Calculator, d.Err)
}

// Registry maps (entity kind, calculator name) to calculator declarations.
//
// Registration happens at startup; once complete the registry is effectively
// immutable and safe for concurrent reads. It is an explicit object, not a
// package-level singleton, so tests can build independent registries.
type Registry struct {
	calcs map[Kind]map[string]CalcSpec

	mu    sync.Mutex        // guards order, filled lazily under concurrent reads
	order map[Kind][]string // cached topological order per kind
}

func NewRegistry() *Registry {
	return &Registry{
		calcs: make(map[Kind]map[string]CalcSpec),
		order: make(map[Kind][]string),
	}
}

// Register declares a calculator for an entity kind. Re-registering the same
// (kind, name) overwrites the previous declaration.
func (r *Registry) Register(kind Kind, spec CalcSpec) {
	if r.calcs[kind] == nil {
		r.calcs[kind] = make(map[string]CalcSpec)
	}
	r.calcs[kind][spec.Name] = spec
	r.mu.Lock()
	delete(r.order, kind) // stale
	r.mu.Unlock()
}

// Get returns the declaration of a calculator.
func (r *Registry) Get(kind Kind, name string) (CalcSpec, bool) {
	spec, ok := r.calcs[kind][name]
	return spec, ok
}

// List returns the names of all calculators registered for a kind, sorted.
func (r *Registry) List(kind Kind) []string {
	names := make([]string, 0, len(r.calcs[kind]))
	for name := range r.calcs[kind] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDependencies returns the declared dependencies of a calculator that
// are not registered under the same kind, without invoking anything.
func (r *Registry) ValidateDependencies(kind Kind, name string) []string {
	spec, ok := r.calcs[kind][name]
	if !ok {
		return nil
	}
	var missing []string
	for _, dep := range spec.Dependencies {
		if _, ok := r.calcs[kind][dep]; !ok {
			missing = append(missing, dep)
		}
	}
	return missing
}

// resolveOrder returns the calculators of a kind in dependency order,
// computing and caching the topological sort on first use. A missing
// dependency or a cycle is a configuration error.
func (r *Registry) resolveOrder(kind Kind) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order, ok := r.order[kind]; ok {
		return order, nil
	}

	names := r.List(kind) // sorted, so the order is deterministic
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(names))
	order := make([]string, 0, len(names))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle involving calculator %q for kind %q", name, kind)
		}
		state[name] = visiting
		spec := r.calcs[kind][name]
		for _, dep := range spec.Dependencies {
			if _, ok := r.calcs[kind][dep]; !ok {
				return fmt.Errorf("calculator %q for kind %q depends on unregistered %q", name, kind, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	r.order[kind] = order
	return order, nil
}

// Calculate computes one named calculator for the entity, recursively
// computing its declared dependencies first and exposing their results to the
// target function through the context.
func (r *Registry) Calculate(e Entity, name string, ctx *Context) (Money, error) {
	return r.calculate(e, name, ctx, make(map[string]bool))
}

func (r *Registry) calculate(e Entity, name string, ctx *Context, visiting map[string]bool) (Money, error) {
	spec, ok := r.calcs[e.Kind()][name]
	if !ok {
		return Money{}, fmt.Errorf("no calculator %q registered for kind %q", name, e.Kind())
	}
	if visiting[name] {
		return Money{}, fmt.Errorf("dependency cycle involving calculator %q for kind %q", name, e.Kind())
	}
	visiting[name] = true
	defer delete(visiting, name)

	for _, dep := range spec.Dependencies {
		v, err := r.calculate(e, dep, ctx, visiting)
		if err != nil {
			return Money{}, fmt.Errorf("dependency %q of %q: %w", dep, name, err)
		}
		ctx = ctx.WithValue(dep, v)
	}
	return spec.Func(e, ctx)
}

// CalculateAll computes every calculator registered for the entity's kind, in
// dependency order. A calculator that fails contributes 0 and a diagnostic
// instead of aborting the batch; an unresolvable dependency graph is a
// configuration error and aborts immediately.
func (r *Registry) CalculateAll(e Entity, ctx *Context) (map[string]Money, []Diagnostic, error) {
	order, err := r.resolveOrder(e.Kind())
	if err != nil {
		return nil, nil, err
	}

	results := make(map[string]Money, len(order))
	var diags []Diagnostic
	for _, name := range order {
		spec := r.calcs[e.Kind()][name]
		v, err := spec.Func(e, ctx)
		if err != nil {
			diags = append(diags, Diagnostic{Entity: e.Name(), Calculator: name, Err: err})
			v = Money{} // deliberate partial-failure policy: zero and continue
		}
		results[name] = v
		// Running in topological order, each result is available to dependents.
		ctx = ctx.WithValue(name, v)
	}
	return results, diags, nil
}
