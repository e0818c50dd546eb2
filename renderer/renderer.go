// Package renderer turns forecast results into markdown reports, and
// optionally into standalone HTML documents.
package renderer

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/etnz/forecast"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// mdRenderer accumulates a markdown document.
type mdRenderer struct {
	*strings.Builder
	Currency string
}

func newRenderer(currency string) *mdRenderer {
	if currency == "" {
		currency = "USD"
	}
	return &mdRenderer{Builder: &strings.Builder{}, Currency: currency}
}

// Printf formats according to a format specifier and writes to the renderer's buffer.
func (r *mdRenderer) Printf(format string, args ...any) {
	fmt.Fprintf(r, format, args...)
}

func (r *mdRenderer) money(m forecast.Money) string { return m.Display(r.Currency) }

// ForecastMarkdown renders the monthly period table as a markdown report.
func ForecastMarkdown(rows []forecast.PeriodRow, currency string) string {
	r := newRenderer(currency)
	r.Printf("# Cash Flow Forecast\n\n")
	if len(rows) == 0 {
		r.Printf("No months in range.\n")
		return r.String()
	}
	r.Printf("%s to %s, %d months.\n\n",
		rows[0].Period.Format("January 2006"),
		rows[len(rows)-1].Period.Format("January 2006"),
		len(rows))

	r.Printf("| Month | Revenue | Expenses | Net | Balance |\n")
	r.Printf("|:---|---:|---:|---:|---:|\n")
	for _, row := range rows {
		r.Printf("| %s | %s | %s | %s | %s |\n",
			row.Period.Format("2006-01"),
			r.money(row.TotalRevenue),
			r.money(row.TotalExpenses),
			row.NetCashFlow.SignedString(),
			r.money(row.CashBalance),
		)
	}

	agg := forecast.AggregateByCategory(rows)
	r.Printf("\n## Totals by Category\n\n")
	r.categoryTable("Revenue", agg.Revenue)
	r.categoryTable("Expenses", agg.Expenses)

	r.Printf("### Summary\n\n")
	r.Printf("| | |\n|:---|---:|\n")
	r.Printf("| Total revenue | %s |\n", r.money(agg.Summary.TotalRevenue))
	r.Printf("| Total expenses | %s |\n", r.money(agg.Summary.TotalExpenses))
	r.Printf("| Net cash flow | %s |\n", agg.Summary.NetCashFlow.SignedString())
	r.Printf("| Ending balance | %s |\n", r.money(agg.Summary.EndingBalance))
	r.Printf("\n")
	return r.String()
}

func (r *mdRenderer) categoryTable(title string, categories map[string]forecast.Money) {
	if len(categories) == 0 {
		return
	}
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	r.Printf("**%s**\n\n", title)
	r.Printf("| Category | Amount |\n|:---|---:|\n")
	for _, name := range names {
		r.Printf("| %s | %s |\n", name, r.money(categories[name]))
	}
	r.Printf("\n")
}

// KPIMarkdown renders a KPI set and its alerts as a markdown report.
func KPIMarkdown(k forecast.KPISet, alerts []forecast.Alert) string {
	r := newRenderer("")
	r.Printf("# Key Performance Indicators\n\n")
	r.Printf("| KPI | Value |\n|:---|---:|\n")
	for _, name := range k.Names() {
		r.Printf("| %s | %s |\n", name, kpiValue(name, k[name]))
	}
	r.Printf("\n")

	if len(alerts) > 0 {
		r.Printf("## Alerts\n\n")
		for _, a := range alerts {
			r.Printf("- **%s**: %s\n", a.Level, a.Message)
		}
		r.Printf("\n")
	}
	return r.String()
}

// kpiValue picks a display format per KPI family: ratios as percentages,
// runway with its infinite case spelled out, counts as integers.
func kpiValue(name string, v float64) string {
	switch {
	case name == "runway_months":
		if math.IsInf(v, 1) {
			return "∞ (cash-flow positive)"
		}
		return fmt.Sprintf("%.1f months", v)
	case name == "break_even_month" && v < 0:
		return "never"
	case strings.HasSuffix(name, "_percentage") ||
		strings.HasSuffix(name, "_rate") && name != "burn_rate" ||
		strings.HasSuffix(name, "_share") ||
		strings.HasSuffix(name, "_dependency") ||
		name == "operating_margin":
		return fmt.Sprintf("%.2f%%", v*100)
	case v == math.Trunc(v) && math.Abs(v) < 1e6:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// CapTableMarkdown renders a cap table summary as a markdown report.
func CapTableMarkdown(s forecast.Summary) string {
	r := newRenderer("")
	r.Printf("# Capitalization Table\n\n")
	r.Printf("| | |\n|:---|---:|\n")
	r.Printf("| Shares outstanding | %.0f |\n", s.TotalSharesOutstanding)
	r.Printf("| Fully diluted shares | %.0f |\n", s.FullyDilutedShares)
	r.Printf("| Founder ownership | %s |\n", s.FounderOwnership)
	r.Printf("| Employee ownership | %s |\n", s.EmployeeOwnership)
	r.Printf("| Investor ownership | %s |\n", s.InvestorOwnership)
	r.Printf("\n")

	r.percentTable("Ownership (fully diluted)", s.OwnershipByShareholder)
	r.percentTable("Ownership by Class", s.OwnershipByClass)
	r.percentTable("Voting Control", s.VotingControl)
	r.percentTable("Board Control", s.BoardControl)
	return r.String()
}

func (r *mdRenderer) percentTable(title string, percents map[string]forecast.Percent) {
	if len(percents) == 0 {
		return
	}
	names := make([]string, 0, len(percents))
	for name := range percents {
		names = append(names, name)
	}
	sort.Strings(names)

	r.Printf("## %s\n\n", title)
	r.Printf("| Holder | Share |\n|:---|---:|\n")
	for _, name := range names {
		r.Printf("| %s | %s |\n", name, percents[name])
	}
	r.Printf("\n")
}

// DilutionMarkdown renders a what-if dilution analysis for one funding round.
func DilutionMarkdown(round forecast.FundingRound, impact forecast.DilutionImpact) string {
	r := newRenderer("")
	r.Printf("# Dilution: %s\n\n", round.Name())
	r.Printf("| | |\n|:---|---:|\n")
	r.Printf("| Amount raised | %s |\n", r.money(forecast.M(round.AmountRaised())))
	r.Printf("| Pre-money valuation | %s |\n", r.money(forecast.M(round.PreMoney())))
	r.Printf("| Post-money valuation | %s |\n", r.money(forecast.M(round.PostMoney())))
	r.Printf("| Shares before | %.0f |\n", impact.PreRoundShares)
	r.Printf("| Shares after | %.0f |\n", impact.PostRoundShares)
	r.Printf("| New investor ownership | %s |\n", impact.NewInvestorOwnership.Round())
	r.Printf("| Dilution of existing holders | %s |\n", impact.DilutionPercentage.Round())
	r.Printf("\n")
	return r.String()
}

// ComparisonMarkdown renders several scenario tables side by side: one line
// per scenario with its totals and ending balance. Scenarios appear in the
// given order.
func ComparisonMarkdown(names []string, tables map[string][]forecast.PeriodRow, currency string) string {
	r := newRenderer(currency)
	r.Printf("# Scenario Comparison\n\n")
	r.Printf("| Scenario | Revenue | Expenses | Net | Ending Balance |\n")
	r.Printf("|:---|---:|---:|---:|---:|\n")
	for _, name := range names {
		agg := forecast.AggregateByCategory(tables[name])
		r.Printf("| %s | %s | %s | %s | %s |\n",
			name,
			r.money(agg.Summary.TotalRevenue),
			r.money(agg.Summary.TotalExpenses),
			agg.Summary.NetCashFlow.SignedString(),
			r.money(agg.Summary.EndingBalance),
		)
	}
	r.Printf("\n")
	return r.String()
}

// htmlHeader wraps exported reports into a minimal standalone document.
const htmlHeader = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body { font-family: sans-serif; max-width: 60em; margin: 2em auto; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.3em 0.8em; }
</style></head><body>
`

// HTML converts a markdown report into a standalone HTML document.
// Tables require the GFM extension.
func HTML(md string) (string, error) {
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	buf.WriteString(htmlHeader)
	if err := gm.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("converting markdown to HTML: %w", err)
	}
	buf.WriteString("</body></html>\n")
	return buf.String(), nil
}
