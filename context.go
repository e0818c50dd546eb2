package forecast

import "maps"

// Context carries everything a calculator may read for one period: the
// period boundaries, the scenario name, the global assumptions, and the full
// list of entities active in the period (for cross-entity calculators such as
// total compensation or the cap table).
//
// A Context is built once per period and never mutated by calculators:
// dependency results are merged in through WithValue, which returns a copy.
type Context struct {
	Period      Range
	AsOf        Date // first day of the period
	Scenario    string
	Entities    []Entity
	Assumptions map[string]float64

	values map[string]Money // resolved dependency results, keyed by calculator name
}

// NewContext builds the context for one monthly period.
func NewContext(period Range, scenario string, entities []Entity) *Context {
	return &Context{Period: period, AsOf: period.From, Scenario: scenario, Entities: entities}
}

// WithValue returns a copy of the context with a resolved calculator result
// available under the given name. The receiver is left untouched.
func (c *Context) WithValue(name string, v Money) *Context {
	d := *c
	d.values = maps.Clone(c.values)
	if d.values == nil {
		d.values = map[string]Money{}
	}
	d.values[name] = v
	return &d
}

// Value returns the resolved result of a dependency calculator.
func (c *Context) Value(name string) (Money, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Assumption returns a named global assumption, or def when absent.
func (c *Context) Assumption(name string, def float64) float64 {
	if v, ok := c.Assumptions[name]; ok {
		return v
	}
	return def
}
