package forecast

// Built-in calculators for the operational entity kinds.
//
// Every calculator follows the same contract: it returns 0 when the entity is
// not active on the context's date or is not the expected concrete kind, and
// missing optional attributes fall back to documented defaults instead of
// failing.

// Category column names of the period table.
const (
	CategoryEmployeeCosts    = "employee_costs"
	CategoryFacilityCosts    = "facility_costs"
	CategoryEquipmentCosts   = "equipment_costs"
	CategoryGrantRevenue     = "grant_revenue"
	CategoryInvestmentIncome = "investment_income"
	CategoryHeadcount        = "headcount"

	// CategoryRDCosts is the research and development expense column. No
	// built-in calculator writes it; callers register their own calculators
	// with this category to feed the rd_percentage KPI.
	CategoryRDCosts = "rd_costs"
)

// DefaultRegistry returns a registry with every built-in calculator
// registered. Callers register additional calculators on top before handing
// the registry to an Engine.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(KindEmployee, CalcSpec{
		Name:        "salary_cost",
		Description: "monthly salary cost: salary/12 times the overhead multiplier (default 1.0)",
		Category:    CategoryEmployeeCosts,
		Flow:        FlowExpense,
		Func:        salaryCost,
	})
	r.Register(KindEmployee, CalcSpec{
		Name:        "benefits_cost",
		Description: "monthly benefits: salary/12 times benefits_rate (default 0)",
		Category:    CategoryEmployeeCosts,
		Flow:        FlowExpense,
		Func:        benefitsCost,
	})
	r.Register(KindEmployee, CalcSpec{
		Name:         "total_compensation",
		Description:  "salary plus benefits; informational, not summed into the period row",
		Dependencies: []string{"salary_cost", "benefits_cost"},
		Func:         totalCompensation,
	})

	r.Register(KindEmployee, CalcSpec{
		Name:        "headcount",
		Description: "1 for each active employee; a metric column, not an expense",
		Category:    CategoryHeadcount,
		Flow:        FlowMetric,
		Func:        headcount,
	})

	r.Register(KindGrant, CalcSpec{
		Name:        "grant_revenue",
		Description: "even monthly disbursement of the award over the grant's span",
		Category:    CategoryGrantRevenue,
		Flow:        FlowRevenue,
		Func:        grantRevenue,
	})

	r.Register(KindInvestment, CalcSpec{
		Name:        "investment_return",
		Description: "monthly return: principal times annual_return/12",
		Category:    CategoryInvestmentIncome,
		Flow:        FlowRevenue,
		Func:        investmentReturn,
	})

	r.Register(KindFacility, CalcSpec{
		Name:        "facility_cost",
		Description: "monthly cost plus utilities",
		Category:    CategoryFacilityCosts,
		Flow:        FlowExpense,
		Func:        facilityCost,
	})

	r.Register(KindEquipment, CalcSpec{
		Name:        "equipment_depreciation",
		Description: "linear depreciation of the purchase price over depreciation_months (default 36)",
		Category:    CategoryEquipmentCosts,
		Flow:        FlowExpense,
		Func:        equipmentDepreciation,
	})
	r.Register(KindEquipment, CalcSpec{
		Name:        "equipment_maintenance",
		Description: "flat monthly maintenance cost",
		Category:    CategoryEquipmentCosts,
		Flow:        FlowExpense,
		Func:        equipmentMaintenance,
	})

	return r
}

func salaryCost(e Entity, ctx *Context) (Money, error) {
	emp, ok := e.(Employee)
	if !ok || !emp.IsActive(ctx.AsOf) {
		return Money{}, nil
	}
	monthly := M(emp.Get("salary", 0)).DivInt(12)
	overhead := emp.Get("overhead_multiplier", ctx.Assumption("overhead_multiplier", 1.0))
	return monthly.MulFloat(overhead), nil
}

func benefitsCost(e Entity, ctx *Context) (Money, error) {
	emp, ok := e.(Employee)
	if !ok || !emp.IsActive(ctx.AsOf) {
		return Money{}, nil
	}
	monthly := M(emp.Get("salary", 0)).DivInt(12)
	return monthly.MulFloat(emp.Get("benefits_rate", 0)), nil
}

func headcount(e Entity, ctx *Context) (Money, error) {
	emp, ok := e.(Employee)
	if !ok || !emp.IsActive(ctx.AsOf) {
		return Money{}, nil
	}
	return M(1), nil
}

func totalCompensation(e Entity, ctx *Context) (Money, error) {
	salary, _ := ctx.Value("salary_cost")
	benefits, _ := ctx.Value("benefits_cost")
	return salary.Add(benefits), nil
}

func grantRevenue(e Entity, ctx *Context) (Money, error) {
	g, ok := e.(Grant)
	if !ok || !g.IsActive(ctx.AsOf) {
		return Money{}, nil
	}
	months := 12
	if end, ok := g.EndDate(); ok {
		months = end.MonthIndex() - g.StartDate().MonthIndex() + 1
	} else if m := int(g.Get("disbursement_months", 0)); m > 0 {
		months = m
	}
	if months <= 0 {
		return Money{}, nil
	}
	return M(g.Get("amount", 0)).DivInt(months), nil
}

func investmentReturn(e Entity, ctx *Context) (Money, error) {
	inv, ok := e.(Investment)
	if !ok || !inv.IsActive(ctx.AsOf) {
		return Money{}, nil
	}
	annual := M(inv.Get("principal", 0)).MulFloat(inv.Get("annual_return", 0))
	return annual.DivInt(12), nil
}

func facilityCost(e Entity, ctx *Context) (Money, error) {
	f, ok := e.(Facility)
	if !ok || !f.IsActive(ctx.AsOf) {
		return Money{}, nil
	}
	return M(f.Get("monthly_cost", 0)).Add(M(f.Get("utilities", 0))), nil
}

func equipmentDepreciation(e Entity, ctx *Context) (Money, error) {
	eq, ok := e.(Equipment)
	if !ok || !eq.IsActive(ctx.AsOf) {
		return Money{}, nil
	}
	months := int(eq.Get("depreciation_months", 36))
	if months <= 0 {
		return Money{}, nil
	}
	// Depreciation stops once the asset is written off.
	elapsed := ctx.AsOf.MonthIndex() - eq.StartDate().MonthIndex()
	if elapsed >= months {
		return Money{}, nil
	}
	return M(eq.Get("purchase_price", 0)).DivInt(months), nil
}

func equipmentMaintenance(e Entity, ctx *Context) (Money, error) {
	eq, ok := e.(Equipment)
	if !ok || !eq.IsActive(ctx.AsOf) {
		return Money{}, nil
	}
	return M(eq.Get("monthly_maintenance", 0)), nil
}
