package forecast

// Cap-table entity kinds. They share the common Entity surface so they can
// live in the same store as operational entities, but the cap-table engine
// consumes them through typed accessors.

// ShareClass describes one class of stock.
// Attributes: "shares_authorized", "shares_issued", "liquidation_preference"
// (multiple, 0..10), "participating" (0 or 1), "participation_cap",
// "voting_rights_per_share" (default 1), "seniority_rank".
type ShareClass struct{ entityBase }

func NewShareClass(name string, start Date, attrs Attrs) ShareClass {
	return ShareClass{newBase(KindShareClass, name, start, attrs)}
}

func (e ShareClass) With(field string, v float64) Entity {
	e.entityBase = e.entityBase.with(field, v)
	return e
}
func (e ShareClass) Until(end Date) ShareClass { e.entityBase = e.entityBase.withEnd(end); return e }
func (e ShareClass) Tagged(tags ...string) ShareClass {
	e.entityBase = e.entityBase.withTags(tags...)
	return e
}

func (e ShareClass) Authorized() float64   { return e.Get("shares_authorized", 0) }
func (e ShareClass) Issued() float64       { return e.Get("shares_issued", 0) }
func (e ShareClass) VotingRights() float64 { return e.Get("voting_rights_per_share", 1) }

// Shareholder holds shares of one class.
// Text attributes: "shareholder_type" (founder, employee, investor, other),
// "share_class" (references a ShareClass name).
// Numeric attributes: "total_shares", "board_seats", and the optional vesting
// schedule "cliff_months", "vesting_months" (acquisition is the start date).
type Shareholder struct{ entityBase }

func NewShareholder(name string, start Date, shareholderType, shareClass string, attrs Attrs) Shareholder {
	b := newBase(KindShareholder, name, start, attrs)
	b = b.withText("shareholder_type", shareholderType)
	b = b.withText("share_class", shareClass)
	return Shareholder{b}
}

func (e Shareholder) With(field string, v float64) Entity {
	e.entityBase = e.entityBase.with(field, v)
	return e
}
func (e Shareholder) Until(end Date) Shareholder { e.entityBase = e.entityBase.withEnd(end); return e }
func (e Shareholder) Tagged(tags ...string) Shareholder {
	e.entityBase = e.entityBase.withTags(tags...)
	return e
}

func (e Shareholder) ShareholderType() string { return e.Text("shareholder_type", "other") }
func (e Shareholder) ShareClass() string      { return e.Text("share_class", "") }
func (e Shareholder) TotalShares() float64    { return e.Get("total_shares", 0) }
func (e Shareholder) BoardSeats() float64     { return e.Get("board_seats", 0) }

// VestedShares returns the shares vested on the given date under a linear
// monthly schedule with a cliff. Without a schedule all shares are vested.
func (e Shareholder) VestedShares(on Date) float64 {
	months := e.Get("vesting_months", 0)
	if months <= 0 {
		return e.TotalShares()
	}
	elapsed := float64(on.MonthIndex() - e.StartDate().MonthIndex())
	if elapsed < e.Get("cliff_months", 0) {
		return 0
	}
	if elapsed >= months {
		return e.TotalShares()
	}
	return e.TotalShares() * elapsed / months
}

// FundingRound records one priced equity round.
// Attributes: "amount_raised", "shares_issued", "price_per_share",
// "pre_money_valuation". Post-money is pre-money plus the amount raised.
type FundingRound struct{ entityBase }

func NewFundingRound(name string, start Date, attrs Attrs) FundingRound {
	return FundingRound{newBase(KindFundingRound, name, start, attrs)}
}

func (e FundingRound) With(field string, v float64) Entity {
	e.entityBase = e.entityBase.with(field, v)
	return e
}
func (e FundingRound) Until(end Date) FundingRound {
	e.entityBase = e.entityBase.withEnd(end)
	return e
}
func (e FundingRound) Tagged(tags ...string) FundingRound {
	e.entityBase = e.entityBase.withTags(tags...)
	return e
}

func (e FundingRound) AmountRaised() float64 { return e.Get("amount_raised", 0) }
func (e FundingRound) SharesIssued() float64 { return e.Get("shares_issued", 0) }
func (e FundingRound) PreMoney() float64     { return e.Get("pre_money_valuation", 0) }
func (e FundingRound) PostMoney() float64    { return e.PreMoney() + e.AmountRaised() }

// CapTable is a stateless calculator over the cap-table entities of a pool.
// A shareholder referencing an unknown share class contributes zero ownership
// and zero voting power here; surfacing the dangling reference is the job of
// Validate.
type CapTable struct {
	shareholders []Shareholder
	classes      []ShareClass
	rounds       []FundingRound
	byName       map[string]ShareClass
}

// NewCapTable extracts the cap-table entities from a mixed entity pool.
// Non cap-table kinds are ignored.
func NewCapTable(entities []Entity) *CapTable {
	ct := &CapTable{byName: make(map[string]ShareClass)}
	for _, e := range entities {
		switch v := e.(type) {
		case Shareholder:
			ct.shareholders = append(ct.shareholders, v)
		case ShareClass:
			ct.classes = append(ct.classes, v)
			ct.byName[v.Name()] = v
		case FundingRound:
			ct.rounds = append(ct.rounds, v)
		}
	}
	return ct
}

// Shareholders returns the shareholders of the cap table.
func (ct *CapTable) Shareholders() []Shareholder { return ct.shareholders }

// Classes returns the share classes of the cap table.
func (ct *CapTable) Classes() []ShareClass { return ct.classes }

// Rounds returns the funding rounds of the cap table.
func (ct *CapTable) Rounds() []FundingRound { return ct.rounds }

// Class returns the share class with the given name.
func (ct *CapTable) Class(name string) (ShareClass, bool) {
	c, ok := ct.byName[name]
	return c, ok
}

// TotalSharesByClass sums shareholder holdings per class name.
func (ct *CapTable) TotalSharesByClass() map[string]float64 {
	held := make(map[string]float64, len(ct.classes))
	for _, sh := range ct.shareholders {
		held[sh.ShareClass()] += sh.TotalShares()
	}
	return held
}

// TotalSharesOutstanding sums all shareholder holdings.
func (ct *CapTable) TotalSharesOutstanding() float64 {
	var total float64
	for _, sh := range ct.shareholders {
		total += sh.TotalShares()
	}
	return total
}

// TotalSharesFullyDiluted computes the fully diluted share count: for each
// class the larger of its authorized count and the shares actually held in
// it, summed across classes. Shares held in an undeclared class still count.
// This is the documented (conservative) definition: it does not model option
// pools or convertibles explicitly.
func (ct *CapTable) TotalSharesFullyDiluted() float64 {
	held := ct.TotalSharesByClass()
	var total float64
	for _, c := range ct.classes {
		h := held[c.Name()]
		delete(held, c.Name())
		total += max(h, c.Authorized())
	}
	for _, h := range held {
		total += h
	}
	return total
}

// FullyDilutedOwnership returns the shareholder's fraction of the fully
// diluted pool, 0 when the pool is empty.
func (ct *CapTable) FullyDilutedOwnership(sh Shareholder) Percent {
	return Ratio(sh.TotalShares(), ct.TotalSharesFullyDiluted())
}

// BasicOwnership returns the shareholder's fraction of all outstanding
// (actually held) shares, 0 when none are outstanding.
func (ct *CapTable) BasicOwnership(sh Shareholder) Percent {
	return Ratio(sh.TotalShares(), ct.TotalSharesOutstanding())
}

// votingPower is shares times the class's voting rights per share.
// An unknown class is zero voting power.
func (ct *CapTable) votingPower(sh Shareholder) float64 {
	c, ok := ct.byName[sh.ShareClass()]
	if !ok {
		return 0
	}
	return sh.TotalShares() * c.VotingRights()
}

// TotalVotingPower sums voting power over all shareholders.
func (ct *CapTable) TotalVotingPower() float64 {
	var total float64
	for _, sh := range ct.shareholders {
		total += ct.votingPower(sh)
	}
	return total
}

// VotingPercentage returns the shareholder's share of total voting power.
func (ct *CapTable) VotingPercentage(sh Shareholder) Percent {
	return Ratio(ct.votingPower(sh), ct.TotalVotingPower())
}

// TotalBoardSeats sums board seats across all shareholders.
func (ct *CapTable) TotalBoardSeats() float64 {
	var total float64
	for _, sh := range ct.shareholders {
		total += sh.BoardSeats()
	}
	return total
}

// BoardControlPercentage returns the shareholder's fraction of all board
// seats, 0 when no seats exist anywhere.
func (ct *CapTable) BoardControlPercentage(sh Shareholder) Percent {
	return Ratio(sh.BoardSeats(), ct.TotalBoardSeats())
}

// ShareClassUtilization returns issued over authorized for a class.
func ShareClassUtilization(c ShareClass) Percent {
	return Ratio(c.Issued(), c.Authorized())
}

// DilutionImpact describes the effect of issuing a funding round's new shares
// on the existing pool.
type DilutionImpact struct {
	DilutionPercentage   Percent
	NewInvestorOwnership Percent
	PreRoundShares       float64
	PostRoundShares      float64
}

// DilutionImpact computes the dilution a round causes: with P pre-round
// shares and S newly issued, both dilution and new-investor ownership are
// S/(P+S).
func (ct *CapTable) DilutionImpact(round FundingRound) DilutionImpact {
	pre := ct.TotalSharesOutstanding()
	post := pre + round.SharesIssued()
	frac := Ratio(round.SharesIssued(), post)
	return DilutionImpact{
		DilutionPercentage:   frac,
		NewInvestorOwnership: frac,
		PreRoundShares:       pre,
		PostRoundShares:      post,
	}
}

// ownershipByType sums holdings of shareholders whose type is in the given
// set, divided by the fully diluted total.
func (ct *CapTable) ownershipByType(types ...string) Percent {
	var held float64
	for _, sh := range ct.shareholders {
		for _, t := range types {
			if sh.ShareholderType() == t {
				held += sh.TotalShares()
				break
			}
		}
	}
	return Ratio(held, ct.TotalSharesFullyDiluted())
}

// FounderOwnership returns the founders' fraction of the fully diluted pool.
func (ct *CapTable) FounderOwnership() Percent { return ct.ownershipByType("founder") }

// EmployeeOwnership returns the employees' fraction of the fully diluted
// pool. The rollup includes the "other" type, which covers option pools.
func (ct *CapTable) EmployeeOwnership() Percent { return ct.ownershipByType("employee", "other") }

// InvestorOwnership returns the investors' fraction of the fully diluted pool.
func (ct *CapTable) InvestorOwnership() Percent { return ct.ownershipByType("investor") }

// Summary is the consolidated ownership view of a cap table.
// All percentages are rounded to 4 decimals at this reporting boundary.
type Summary struct {
	TotalSharesOutstanding float64
	FullyDilutedShares     float64
	OwnershipByShareholder map[string]Percent
	OwnershipByClass       map[string]Percent
	VotingControl          map[string]Percent
	BoardControl           map[string]Percent
	FounderOwnership       Percent
	EmployeeOwnership      Percent
	InvestorOwnership      Percent
}

// Summarize orchestrates the per-shareholder and per-class calculations into
// a consolidated summary. An empty cap table yields an all-zero summary.
//
// The full-set reductions (fully diluted total, voting power, board seats)
// are computed once and reused for every shareholder, keeping the whole pass
// linear in the number of shareholders.
func (ct *CapTable) Summarize() Summary {
	s := Summary{
		OwnershipByShareholder: make(map[string]Percent, len(ct.shareholders)),
		OwnershipByClass:       make(map[string]Percent, len(ct.classes)),
		VotingControl:          make(map[string]Percent, len(ct.shareholders)),
		BoardControl:           make(map[string]Percent, len(ct.shareholders)),
	}
	s.TotalSharesOutstanding = ct.TotalSharesOutstanding()
	s.FullyDilutedShares = ct.TotalSharesFullyDiluted()

	votingTotal := ct.TotalVotingPower()
	boardTotal := ct.TotalBoardSeats()
	for _, sh := range ct.shareholders {
		s.OwnershipByShareholder[sh.Name()] = Ratio(sh.TotalShares(), s.FullyDilutedShares).Round()
		s.VotingControl[sh.Name()] = Ratio(ct.votingPower(sh), votingTotal).Round()
		s.BoardControl[sh.Name()] = Ratio(sh.BoardSeats(), boardTotal).Round()
	}
	held := ct.TotalSharesByClass()
	for class, h := range held {
		s.OwnershipByClass[class] = Ratio(h, s.FullyDilutedShares).Round()
	}
	s.FounderOwnership = ct.FounderOwnership().Round()
	s.EmployeeOwnership = ct.EmployeeOwnership().Round()
	s.InvestorOwnership = ct.InvestorOwnership().Round()
	return s
}

// Validate reports dangling share-class references: shareholders whose class
// is not declared in the entity set. The calculation engine treats those as
// zero ownership; callers should surface them before trusting the numbers.
func (ct *CapTable) Validate() []string {
	var missing []string
	for _, sh := range ct.shareholders {
		if _, ok := ct.byName[sh.ShareClass()]; !ok {
			missing = append(missing, sh.Name()+": unknown share class "+sh.ShareClass())
		}
	}
	return missing
}
