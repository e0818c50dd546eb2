// Package forecast projects organizational cash flow over calendar months.
//
// It composes heterogeneous financial entities (employees, grants,
// investments, facilities, equipment, and cap-table records) into a monthly
// period table, then derives KPIs, scenario comparisons, and ownership
// analyses from it.
//
// The building blocks are:
//
//   - a Registry mapping (entity kind, calculator name) to pure calculator
//     functions with declared dependencies, resolved in topological order,
//   - an Engine iterating calendar months over a date range and aggregating
//     every active entity's calculators into period rows with a running cash
//     balance (synchronous, asynchronous, and parallel execution paths all
//     produce identical tables),
//   - a KPI calculator deriving summary metrics from the period table,
//   - a Scenario manager applying declarative filters and overrides before
//     delegating to the Engine,
//   - a cap-table engine computing ownership, voting, and dilution across
//     shareholders, share classes, and funding rounds.
//
// Entities are read-only inputs supplied by an EntityStore; the in-memory
// store and YAML loader live in this package, a SQLite-backed store in
// sqlstore.
package forecast
