package forecast

import (
	"fmt"
	"math"
	"sort"
)

// burnWindow is the trailing window, in months, used for burn rate and
// runway.
const burnWindow = 3

// KPISet maps KPI names to values. Ratios are fractions (0.25 means 25%),
// runway is in months and may be +Inf.
type KPISet map[string]float64

// Names returns the KPI names in sorted order.
func (k KPISet) Names() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CalculateAllKPIs derives the summary metrics from a period table and the
// cash balance at the start of the range. It is a pure function of the
// table: no entity access, and independent of how the table was produced.
//
// Division-by-zero is always guarded: ratios with a zero denominator are 0,
// and runway is +Inf when the burn rate is non-positive (revenue-positive
// organizations never run out of cash at current rates).
//
// Category-share KPIs read the corresponding expense or revenue column of
// the rows. A column no registered calculator writes reads as zero; in
// particular rd_percentage stays 0 under DefaultRegistry until a caller
// registers a calculator with CategoryRDCosts.
func CalculateAllKPIs(rows []PeriodRow, startingCash Money) KPISet {
	k := KPISet{}
	months := len(rows)
	k["months"] = float64(months)
	k["starting_cash"] = startingCash.Float64()
	if months == 0 {
		return k
	}

	var totalRevenue, totalExpenses, employeeCosts, facilityCosts, equipmentCosts Money
	var grantRevenue, investmentIncome, rdCosts, headcountSum Money
	lowest := rows[0].CashBalance
	lowestMonth := rows[0].Period
	profitable := 0
	breakEven := -1.0
	for i, row := range rows {
		totalRevenue = totalRevenue.Add(row.TotalRevenue)
		totalExpenses = totalExpenses.Add(row.TotalExpenses)
		employeeCosts = employeeCosts.Add(row.Expenses[CategoryEmployeeCosts])
		facilityCosts = facilityCosts.Add(row.Expenses[CategoryFacilityCosts])
		equipmentCosts = equipmentCosts.Add(row.Expenses[CategoryEquipmentCosts])
		grantRevenue = grantRevenue.Add(row.Revenue[CategoryGrantRevenue])
		investmentIncome = investmentIncome.Add(row.Revenue[CategoryInvestmentIncome])
		rdCosts = rdCosts.Add(row.Expenses[CategoryRDCosts])
		headcountSum = headcountSum.Add(row.Metrics[CategoryHeadcount])
		if row.CashBalance.LessThan(lowest) {
			lowest = row.CashBalance
			lowestMonth = row.Period
		}
		if row.NetCashFlow.IsPositive() {
			profitable++
		}
		if breakEven < 0 && row.CashBalance.GreaterThanOrEqual(startingCash) && i > 0 {
			breakEven = float64(i)
		}
	}

	rev := totalRevenue.Float64()
	exp := totalExpenses.Float64()
	k["total_revenue"] = rev
	k["total_expenses"] = exp
	k["net_cash_flow"] = rev - exp
	k["avg_monthly_revenue"] = rev / float64(months)
	k["avg_monthly_expenses"] = exp / float64(months)
	k["avg_net_cash_flow"] = (rev - exp) / float64(months)
	k["ending_cash"] = rows[months-1].CashBalance.Float64()
	k["lowest_cash"] = lowest.Float64()
	k["lowest_cash_month"] = float64(lowestMonth.MonthIndex() - rows[0].Period.MonthIndex())
	k["profitable_months"] = float64(profitable)
	k["break_even_month"] = breakEven

	// Burn rate: average negative net cash flow over the trailing window,
	// reported as a positive magnitude. Positive months count as zero burn.
	burn := burnRate(rows)
	k["burn_rate"] = burn
	k["runway_months"] = runway(rows[months-1].CashBalance.Float64(), burn)

	k["revenue_growth_rate"] = lastGrowth(rows, func(r PeriodRow) float64 { return r.TotalRevenue.Float64() })
	k["expense_growth_rate"] = lastGrowth(rows, func(r PeriodRow) float64 { return r.TotalExpenses.Float64() })

	k["cash_efficiency"] = float64(Ratio(rev, exp))
	k["operating_margin"] = float64(Ratio(rev-exp, rev))
	k["payroll_percentage"] = float64(Ratio(employeeCosts.Float64(), exp))
	k["facility_percentage"] = float64(Ratio(facilityCosts.Float64(), exp))
	k["equipment_percentage"] = float64(Ratio(equipmentCosts.Float64(), exp))
	k["rd_percentage"] = float64(Ratio(rdCosts.Float64(), exp))
	k["grant_dependency"] = float64(Ratio(grantRevenue.Float64(), rev))
	k["investment_income_share"] = float64(Ratio(investmentIncome.Float64(), rev))
	k["revenue_per_payroll_dollar"] = float64(Ratio(rev, employeeCosts.Float64()))

	// Average headcount over the range; revenue_per_employee divides average
	// monthly revenue by it.
	avgHeadcount := headcountSum.Float64() / float64(months)
	k["avg_headcount"] = avgHeadcount
	k["revenue_per_employee"] = float64(Ratio(rev/float64(months), avgHeadcount))

	return k
}

// burnRate averages the negative net cash flows over the trailing window,
// as a positive magnitude.
func burnRate(rows []PeriodRow) float64 {
	window := burnWindow
	if window > len(rows) {
		window = len(rows)
	}
	var burn float64
	for _, row := range rows[len(rows)-window:] {
		if row.NetCashFlow.IsNegative() {
			burn += row.NetCashFlow.Neg().Float64()
		}
	}
	return burn / float64(window)
}

// runway returns cash divided by burn, or +Inf when burn is non-positive.
func runway(cash, burn float64) float64 {
	if burn <= 0 {
		return math.Inf(1)
	}
	if cash <= 0 {
		return 0
	}
	return cash / burn
}

// lastGrowth returns the period-over-period change of the last two rows,
// 0 when the base period is 0.
func lastGrowth(rows []PeriodRow, value func(PeriodRow) float64) float64 {
	if len(rows) < 2 {
		return 0
	}
	prev := value(rows[len(rows)-2])
	return float64(Ratio(value(rows[len(rows)-1])-prev, prev))
}

// AlertLevel grades a KPI alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Alert is a threshold-based advisory derived from a KPI set.
type Alert struct {
	Level   AlertLevel
	Message string
}

// KPIAlerts derives advisories from a KPI set. Purely derived,
// side-effect-free; thresholds are conventional early-warning levels.
func KPIAlerts(k KPISet) []Alert {
	var alerts []Alert
	if r, ok := k["runway_months"]; ok && !math.IsInf(r, 1) {
		switch {
		case r < 3:
			alerts = append(alerts, Alert{AlertCritical, fmt.Sprintf("runway below 3 months (%.1f)", r)})
		case r < 6:
			alerts = append(alerts, Alert{AlertWarning, fmt.Sprintf("runway below 6 months (%.1f)", r)})
		}
	}
	if k["ending_cash"] < 0 {
		alerts = append(alerts, Alert{AlertCritical, fmt.Sprintf("forecast ends with negative cash (%.0f)", k["ending_cash"])})
	} else if k["lowest_cash"] < 0 {
		alerts = append(alerts, Alert{AlertWarning, fmt.Sprintf("cash dips negative in month %0.f", k["lowest_cash_month"])})
	}
	if g := k["grant_dependency"]; g > 0.5 {
		alerts = append(alerts, Alert{AlertInfo, fmt.Sprintf("more than half of revenue comes from grants (%.0f%%)", g*100)})
	}
	if g := k["expense_growth_rate"]; g > 0.1 {
		alerts = append(alerts, Alert{AlertWarning, fmt.Sprintf("expenses growing %.0f%% month over month", g*100)})
	}
	return alerts
}
