package forecast

import (
	"math"
	"testing"
)

// seedCapTable is the worked example used throughout: two founders holding
// 4M common each out of 15M authorized, a 2M option pool, and a 5M-authorized
// preferred class with a 3M seed investor.
func seedCapTable() *CapTable {
	return NewCapTable([]Entity{
		NewShareClass("common", jan24, Attrs{"shares_authorized": 15000000, "shares_issued": 10000000}),
		NewShareClass("preferred-a", jan24, Attrs{"shares_authorized": 5000000, "shares_issued": 3000000, "voting_rights_per_share": 10}),
		NewShareholder("alice", jan24, "founder", "common", Attrs{"total_shares": 4000000, "board_seats": 1}),
		NewShareholder("bob", jan24, "founder", "common", Attrs{"total_shares": 4000000, "board_seats": 1}),
		NewShareholder("option-pool", jan24, "other", "common", Attrs{"total_shares": 2000000}),
		NewShareholder("seed-fund", jan24, "investor", "preferred-a", Attrs{"total_shares": 3000000, "board_seats": 1}),
	})
}

func sh(ct *CapTable, name string) Shareholder {
	for _, s := range ct.Shareholders() {
		if s.Name() == name {
			return s
		}
	}
	panic("unknown shareholder " + name)
}

func TestCapTable_FullyDilutedOwnership(t *testing.T) {
	// Only Alice and Bob against the common authorization: each owns
	// 4,000,000 / 15,000,000.
	ct := NewCapTable([]Entity{
		NewShareClass("common", jan24, Attrs{"shares_authorized": 15000000}),
		NewShareholder("alice", jan24, "founder", "common", Attrs{"total_shares": 4000000}),
		NewShareholder("bob", jan24, "founder", "common", Attrs{"total_shares": 4000000}),
	})
	got := ct.FullyDilutedOwnership(sh(ct, "alice"))
	if want := Percent(4000000.0 / 15000000.0); !got.Equal(want) {
		t.Errorf("FullyDilutedOwnership(alice) = %v, want %v", got, want)
	}
	if got, want := got.Round(), Percent(0.2667); got != want {
		t.Errorf("rounded ownership = %v, want %v", got, want)
	}
}

func TestCapTable_FullyDilutedIsMaxOfHeldAndAuthorized(t *testing.T) {
	// Holdings above the authorization dominate the class's contribution.
	ct := NewCapTable([]Entity{
		NewShareClass("common", jan24, Attrs{"shares_authorized": 1000}),
		NewShareholder("alice", jan24, "founder", "common", Attrs{"total_shares": 1500}),
		// Shares in an undeclared class still dilute.
		NewShareholder("ghost", jan24, "investor", "phantom", Attrs{"total_shares": 500}),
	})
	if got, want := ct.TotalSharesFullyDiluted(), 2000.0; got != want {
		t.Errorf("TotalSharesFullyDiluted() = %v, want %v", got, want)
	}
}

func TestCapTable_OwnershipConservation(t *testing.T) {
	// Basic ownership over actually-held shares must sum to exactly 1.
	ct := seedCapTable()
	var sum float64
	for _, s := range ct.Shareholders() {
		sum += float64(ct.BasicOwnership(s))
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("basic ownership sums to %v, want 1", sum)
	}

	// Fully diluted ownership sums to at most 1 (the unissued authorized
	// shares absorb the remainder).
	sum = 0
	for _, s := range ct.Shareholders() {
		sum += float64(ct.FullyDilutedOwnership(s))
	}
	if sum > 1+1e-9 {
		t.Errorf("fully diluted ownership sums to %v, want <= 1", sum)
	}
}

func TestCapTable_VotingPower(t *testing.T) {
	ct := seedCapTable()
	// Voting power: common 10M at 1 vote, preferred 3M at 10 votes = 40M.
	if got, want := ct.TotalVotingPower(), 40000000.0; got != want {
		t.Fatalf("TotalVotingPower() = %v, want %v", got, want)
	}
	if got, want := ct.VotingPercentage(sh(ct, "seed-fund")), Percent(0.75); !got.Equal(want) {
		t.Errorf("VotingPercentage(seed-fund) = %v, want %v", got, want)
	}
	if got, want := ct.VotingPercentage(sh(ct, "alice")), Percent(0.1); !got.Equal(want) {
		t.Errorf("VotingPercentage(alice) = %v, want %v", got, want)
	}

	// A shareholder in an unknown class has zero voting power, not an error.
	ct = NewCapTable([]Entity{
		NewShareClass("common", jan24, Attrs{"shares_authorized": 1000}),
		NewShareholder("alice", jan24, "founder", "common", Attrs{"total_shares": 100}),
		NewShareholder("ghost", jan24, "investor", "phantom", Attrs{"total_shares": 900}),
	})
	if got := ct.VotingPercentage(sh(ct, "ghost")); !got.Equal(0) {
		t.Errorf("VotingPercentage(ghost) = %v, want 0", got)
	}
	if got := ct.VotingPercentage(sh(ct, "alice")); !got.Equal(1) {
		t.Errorf("VotingPercentage(alice) = %v, want 1", got)
	}
}

func TestCapTable_BoardControl(t *testing.T) {
	ct := seedCapTable()
	if got, want := ct.BoardControlPercentage(sh(ct, "alice")), Percent(1.0/3.0); !got.Equal(want) {
		t.Errorf("BoardControlPercentage(alice) = %v, want %v", got, want)
	}
	// No board seats anywhere yields zero, not NaN.
	empty := NewCapTable([]Entity{
		NewShareClass("common", jan24, Attrs{"shares_authorized": 1000}),
		NewShareholder("alice", jan24, "founder", "common", Attrs{"total_shares": 100}),
	})
	if got := empty.BoardControlPercentage(sh(empty, "alice")); !got.Equal(0) {
		t.Errorf("BoardControlPercentage() without seats = %v, want 0", got)
	}
}

func TestCapTable_DilutionImpact(t *testing.T) {
	ct := seedCapTable() // 13M shares outstanding
	round := NewFundingRound("series-a", jan24, Attrs{
		"amount_raised":       5000000,
		"shares_issued":       3250000,
		"pre_money_valuation": 20000000,
	})
	impact := ct.DilutionImpact(round)
	want := Percent(3250000.0 / 16250000.0) // exactly 0.2
	if !impact.DilutionPercentage.Equal(want) {
		t.Errorf("DilutionPercentage = %v, want %v", impact.DilutionPercentage, want)
	}
	if !impact.NewInvestorOwnership.Equal(want) {
		t.Errorf("NewInvestorOwnership = %v, want %v", impact.NewInvestorOwnership, want)
	}
	if impact.PreRoundShares != 13000000 || impact.PostRoundShares != 16250000 {
		t.Errorf("shares = %v -> %v, want 13000000 -> 16250000", impact.PreRoundShares, impact.PostRoundShares)
	}
	if got, want := round.PostMoney(), 25000000.0; got != want {
		t.Errorf("PostMoney() = %v, want %v", got, want)
	}
}

func TestCapTable_OwnershipRollups(t *testing.T) {
	ct := seedCapTable()
	// Fully diluted total: max(10M held, 15M authorized) common +
	// max(3M held, 5M authorized) preferred = 20M.
	if got, want := ct.TotalSharesFullyDiluted(), 20000000.0; got != want {
		t.Fatalf("TotalSharesFullyDiluted() = %v, want %v", got, want)
	}
	if got, want := ct.FounderOwnership(), Percent(8000000.0/20000000.0); !got.Equal(want) {
		t.Errorf("FounderOwnership() = %v, want %v", got, want)
	}
	// The employee rollup includes the "other" option pool.
	if got, want := ct.EmployeeOwnership(), Percent(2000000.0/20000000.0); !got.Equal(want) {
		t.Errorf("EmployeeOwnership() = %v, want %v", got, want)
	}
	if got, want := ct.InvestorOwnership(), Percent(3000000.0/20000000.0); !got.Equal(want) {
		t.Errorf("InvestorOwnership() = %v, want %v", got, want)
	}
}

func TestCapTable_Summarize(t *testing.T) {
	s := seedCapTable().Summarize()
	if s.TotalSharesOutstanding != 13000000 {
		t.Errorf("TotalSharesOutstanding = %v, want 13000000", s.TotalSharesOutstanding)
	}
	if s.FullyDilutedShares != 20000000 {
		t.Errorf("FullyDilutedShares = %v, want 20000000", s.FullyDilutedShares)
	}
	// Summary percentages are rounded to 4 decimals.
	if got, want := s.OwnershipByShareholder["alice"], Percent(0.2); got != want {
		t.Errorf("alice ownership = %v, want %v", got, want)
	}
	if got, want := s.BoardControl["alice"], Percent(0.3333); got != want {
		t.Errorf("alice board control = %v, want %v", got, want)
	}
	if got, want := s.OwnershipByClass["common"], Percent(0.5); got != want {
		t.Errorf("common class ownership = %v, want %v", got, want)
	}
	if got, want := s.FounderOwnership, Percent(0.4); got != want {
		t.Errorf("FounderOwnership = %v, want %v", s.FounderOwnership, want)
	}
}

func TestCapTable_SummarizeEmpty(t *testing.T) {
	s := NewCapTable(nil).Summarize()
	if s.TotalSharesOutstanding != 0 || s.FullyDilutedShares != 0 {
		t.Errorf("empty summary has shares: %+v", s)
	}
	if len(s.OwnershipByShareholder) != 0 {
		t.Errorf("empty summary has shareholders: %v", s.OwnershipByShareholder)
	}
}

func TestCapTable_Validate(t *testing.T) {
	ct := seedCapTable()
	if got := ct.Validate(); len(got) != 0 {
		t.Errorf("Validate() on a consistent table = %v, want none", got)
	}
	ct = NewCapTable([]Entity{
		NewShareholder("ghost", jan24, "investor", "phantom", Attrs{"total_shares": 1}),
	})
	if got := ct.Validate(); len(got) != 1 {
		t.Errorf("Validate() = %v, want one dangling reference", got)
	}
}

func TestCapTable_ShareClassUtilization(t *testing.T) {
	c := NewShareClass("common", jan24, Attrs{"shares_authorized": 15000000, "shares_issued": 10000000})
	if got, want := ShareClassUtilization(c), Percent(10.0/15.0); !got.Equal(want) {
		t.Errorf("ShareClassUtilization() = %v, want %v", got, want)
	}
	// Zero authorization is zero utilization, not a division error.
	c = NewShareClass("empty", jan24, nil)
	if got := ShareClassUtilization(c); !got.Equal(0) {
		t.Errorf("ShareClassUtilization() with no authorization = %v, want 0", got)
	}
}

func TestShareholder_VestedShares(t *testing.T) {
	grantee := NewShareholder("carol", jan24, "employee", "common", Attrs{
		"total_shares":   48000,
		"vesting_months": 48,
		"cliff_months":   12,
	})
	cases := []struct {
		on   Date
		want float64
	}{
		{jan24, 0},                     // at grant
		{NewDate(2024, 12, 1), 0},      // month 11, before the cliff
		{NewDate(2025, 1, 1), 12000},   // cliff month vests the accrued year
		{NewDate(2026, 1, 1), 24000},   // halfway
		{NewDate(2028, 1, 1), 48000},   // fully vested
		{NewDate(2030, 6, 1), 48000},   // and stays there
	}
	for _, c := range cases {
		if got := grantee.VestedShares(c.on); got != c.want {
			t.Errorf("VestedShares(%s) = %v, want %v", c.on, got, c.want)
		}
	}
	// No schedule means fully vested.
	founder := NewShareholder("alice", jan24, "founder", "common", Attrs{"total_shares": 100})
	if got := founder.VestedShares(jan24); got != 100 {
		t.Errorf("VestedShares() without schedule = %v, want 100", got)
	}
}
