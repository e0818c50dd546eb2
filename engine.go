package forecast

import (
	"context"
	"fmt"
	"sync"
)

// PeriodRow is one calendar month's aggregated result.
type PeriodRow struct {
	Period        Date             // first day of the month
	Revenue       map[string]Money // per-category revenue, positive magnitudes
	Expenses      map[string]Money // per-category expenses, positive magnitudes
	Metrics       map[string]Money // non-monetary columns such as headcount
	TotalRevenue  Money
	TotalExpenses Money
	NetCashFlow   Money // TotalRevenue - TotalExpenses
	CashBalance   Money // running prefix sum of NetCashFlow plus starting cash
}

// Category returns the named breakdown column, looking at all sides.
func (r PeriodRow) Category(name string) Money {
	if v, ok := r.Revenue[name]; ok {
		return v
	}
	if v, ok := r.Expenses[name]; ok {
		return v
	}
	return r.Metrics[name]
}

// Equal compares two rows by value.
func (r PeriodRow) Equal(o PeriodRow) bool {
	if r.Period != o.Period ||
		!r.TotalRevenue.Equal(o.TotalRevenue) ||
		!r.TotalExpenses.Equal(o.TotalExpenses) ||
		!r.NetCashFlow.Equal(o.NetCashFlow) ||
		!r.CashBalance.Equal(o.CashBalance) {
		return false
	}
	return categoriesEqual(r.Revenue, o.Revenue) &&
		categoriesEqual(r.Expenses, o.Expenses) &&
		categoriesEqual(r.Metrics, o.Metrics)
}

func categoriesEqual(a, b map[string]Money) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}

// RowsEqual compares two period tables by value.
func RowsEqual(a, b []PeriodRow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Engine iterates calendar months over a date range, aggregating every active
// entity's calculators into period rows.
//
// The three execution paths (CalculatePeriod, CalculatePeriodAsync,
// CalculateParallel) produce identical tables for the same inputs: months are
// independent given the active-entity snapshot, and the cash balance prefix
// sum is always a sequential pass after any fan-out. The result cache, keyed
// by (range, scenario), is the only mutable shared structure; concurrent
// computations of the same key may race but results are deterministic, so
// last-writer-wins is harmless.
type Engine struct {
	store        EntityStore
	registry     *Registry
	startingCash Money
	assumptions  map[string]float64
	scenario     string // names the scenario this engine computes under, "" for baseline

	state *engineState
}

// engineState holds the result cache and the diagnostics of the most recent
// calculation. A baseline engine and its scenario-derived engines share one
// state by pointer, so the mutex travels with the map they all write.
type engineState struct {
	mu    sync.Mutex
	cache map[string][]PeriodRow
	diags []Diagnostic
}

func NewEngine(store EntityStore, registry *Registry) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		state:    &engineState{cache: make(map[string][]PeriodRow)},
	}
}

// SetStartingCash sets the cash balance at the start of any forecast range.
func (e *Engine) SetStartingCash(m Money) { e.startingCash = m }

// SetAssumptions sets the global assumptions exposed to calculators.
func (e *Engine) SetAssumptions(a map[string]float64) { e.assumptions = a }

// forScenario returns a derived engine computing under a scenario: same
// registry and shared state (the cache keys embed the scenario name), a
// filtered/transformed store, and the scenario's assumptions.
func (e *Engine) forScenario(name string, store EntityStore, assumptions map[string]float64) *Engine {
	return &Engine{
		store:        store,
		registry:     e.registry,
		startingCash: e.startingCash,
		assumptions:  assumptions,
		scenario:     name,
		state:        e.state,
	}
}

// Diagnostics returns the contained per-entity failures recorded by the most
// recent (non-cached) calculation, including scenario runs derived from this
// engine. One bad calculator zeroes its own contribution; this is where that
// degradation becomes visible.
func (e *Engine) Diagnostics() []Diagnostic {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	return e.state.diags
}

// ClearCache drops every cached period table, scenario entries included.
// Invalidation is explicit; there is no TTL.
func (e *Engine) ClearCache() {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	e.state.cache = make(map[string][]PeriodRow)
}

func (e *Engine) cacheKey(r Range) string {
	return r.Identifier() + "|" + e.scenario
}

func (e *Engine) cached(key string) ([]PeriodRow, bool) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	rows, ok := e.state.cache[key]
	return rows, ok
}

func (e *Engine) storeRows(key string, rows []PeriodRow, diags []Diagnostic) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	e.state.cache[key] = rows
	e.state.diags = diags
}

// validRange checks the invalid-range precondition: start after end is a
// fatal configuration error, not an empty result.
func validRange(from, to Date) (Range, error) {
	if from.After(to) {
		return Range{}, fmt.Errorf("invalid date range: start %s is after end %s", from, to)
	}
	return Range{From: from, To: to}, nil
}

// computeMonth aggregates one month: it queries the active entities, runs
// every applicable calculator, and classifies results into revenue and
// expense categories. CashBalance is left zero; the prefix-sum pass fills it.
func (e *Engine) computeMonth(ctx context.Context, month Date) (PeriodRow, []Diagnostic, error) {
	entities, err := e.store.Query(ctx, Query{ActiveOn: month})
	if err != nil {
		return PeriodRow{}, nil, fmt.Errorf("querying entities for %s: %w", month, err)
	}

	row := PeriodRow{
		Period:   month,
		Revenue:  map[string]Money{},
		Expenses: map[string]Money{},
		Metrics:  map[string]Money{},
	}
	period := Range{From: month, To: month.EndOfMonth()}
	pctx := NewContext(period, e.scenario, entities)
	pctx.Assumptions = e.assumptions

	var diags []Diagnostic
	for _, entity := range entities {
		results, d, err := e.registry.CalculateAll(entity, pctx)
		if err != nil {
			// Unresolvable dependency graph: configuration error, fatal.
			return PeriodRow{}, nil, err
		}
		diags = append(diags, d...)

		for name, value := range results {
			spec, _ := e.registry.Get(entity.Kind(), name)
			if spec.Category == "" {
				continue // informational calculator, not aggregated
			}
			flow := spec.Flow
			if flow == FlowAuto {
				if value.IsNegative() {
					flow, value = FlowExpense, value.Neg()
				} else {
					flow = FlowRevenue
				}
			}
			switch flow {
			case FlowRevenue:
				row.Revenue[spec.Category] = row.Revenue[spec.Category].Add(value)
				row.TotalRevenue = row.TotalRevenue.Add(value)
			case FlowExpense:
				row.Expenses[spec.Category] = row.Expenses[spec.Category].Add(value)
				row.TotalExpenses = row.TotalExpenses.Add(value)
			case FlowMetric:
				row.Metrics[spec.Category] = row.Metrics[spec.Category].Add(value)
			}
		}
	}
	row.NetCashFlow = row.TotalRevenue.Sub(row.TotalExpenses)
	return row, diags, nil
}

// balance fills CashBalance as a strictly sequential prefix sum over the
// per-month net cash flows. Never computed concurrently.
func (e *Engine) balance(rows []PeriodRow) {
	running := e.startingCash
	for i := range rows {
		running = running.Add(rows[i].NetCashFlow)
		rows[i].CashBalance = running
	}
}

// CalculatePeriod produces one row per calendar month from the month of
// 'from' through the month of 'to', inclusive. Repeated calls with identical
// arguments are served from the cache.
func (e *Engine) CalculatePeriod(ctx context.Context, from, to Date) ([]PeriodRow, error) {
	r, err := validRange(from, to)
	if err != nil {
		return nil, err
	}
	key := e.cacheKey(r)
	if rows, ok := e.cached(key); ok {
		return rows, nil
	}

	rows := make([]PeriodRow, 0, r.MonthCount())
	var diags []Diagnostic
	for month := range r.Months() {
		row, d, err := e.computeMonth(ctx, month)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		diags = append(diags, d...)
	}
	e.balance(rows)
	e.storeRows(key, rows, diags)
	return rows, nil
}

// AsyncResult carries the outcome of CalculatePeriodAsync.
type AsyncResult struct {
	Rows []PeriodRow
	Err  error
}

// CalculatePeriodAsync is the cooperative variant: it runs the same
// single-threaded month loop off the caller's goroutine, suspending only at
// entity-store queries (which observe ctx cancellation). The delivered table
// is identical to CalculatePeriod's.
func (e *Engine) CalculatePeriodAsync(ctx context.Context, from, to Date) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		rows, err := e.CalculatePeriod(ctx, from, to)
		ch <- AsyncResult{Rows: rows, Err: err}
		close(ch)
	}()
	return ch
}

// CalculateParallel partitions the range by month across a worker pool.
// Each worker computes independent per-month totals; the cash-balance prefix
// sum is then applied in a sequential reduction pass, so the result is
// identical to the synchronous path.
func (e *Engine) CalculateParallel(ctx context.Context, from, to Date, maxWorkers int) ([]PeriodRow, error) {
	r, err := validRange(from, to)
	if err != nil {
		return nil, err
	}
	key := e.cacheKey(r)
	if rows, ok := e.cached(key); ok {
		return rows, nil
	}

	months := make([]Date, 0, r.MonthCount())
	for m := range r.Months() {
		months = append(months, m)
	}
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if maxWorkers > len(months) {
		maxWorkers = len(months)
	}

	rows := make([]PeriodRow, len(months))
	monthDiags := make([][]Diagnostic, len(months))
	jobs := make(chan int, len(months))
	for i := range months {
		jobs <- i
	}
	close(jobs)

	errs := make(chan error, maxWorkers)
	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				row, d, err := e.computeMonth(ctx, months[i])
				if err != nil {
					errs <- err
					return
				}
				rows[i] = row
				monthDiags[i] = d
			}
		}()
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	e.balance(rows)
	var diags []Diagnostic
	for _, d := range monthDiags {
		diags = append(diags, d...)
	}
	e.storeRows(key, rows, diags)
	return rows, nil
}

// Aggregates groups a period table by category without recomputation.
type Aggregates struct {
	Revenue  map[string]Money // per-category revenue totals over the range
	Expenses map[string]Money // per-category expense totals over the range
	Summary  AggregateSummary
	Growth   []Percent // month-over-month revenue growth, first month is 0
}

// AggregateSummary totals the table.
type AggregateSummary struct {
	TotalRevenue  Money
	TotalExpenses Money
	NetCashFlow   Money
	EndingBalance Money
}

// AggregateByCategory groups the produced table into named sub-tables.
// It is a pure pass over the rows; nothing is recomputed from entities.
func AggregateByCategory(rows []PeriodRow) Aggregates {
	agg := Aggregates{
		Revenue:  map[string]Money{},
		Expenses: map[string]Money{},
		Growth:   make([]Percent, len(rows)),
	}
	for i, row := range rows {
		for cat, v := range row.Revenue {
			agg.Revenue[cat] = agg.Revenue[cat].Add(v)
		}
		for cat, v := range row.Expenses {
			agg.Expenses[cat] = agg.Expenses[cat].Add(v)
		}
		agg.Summary.TotalRevenue = agg.Summary.TotalRevenue.Add(row.TotalRevenue)
		agg.Summary.TotalExpenses = agg.Summary.TotalExpenses.Add(row.TotalExpenses)
		if i > 0 {
			prev := rows[i-1].TotalRevenue.Float64()
			agg.Growth[i] = Ratio(row.TotalRevenue.Float64()-prev, prev)
		}
	}
	agg.Summary.NetCashFlow = agg.Summary.TotalRevenue.Sub(agg.Summary.TotalExpenses)
	if len(rows) > 0 {
		agg.Summary.EndingBalance = rows[len(rows)-1].CashBalance
	}
	return agg
}
