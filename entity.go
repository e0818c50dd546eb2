package forecast

import (
	"maps"
	"slices"
)

// Kind is a typed string identifying the closed set of entity kinds the
// forecast knows about.
type Kind string

const (
	KindEmployee     Kind = "employee"
	KindGrant        Kind = "grant"
	KindInvestment   Kind = "investment"
	KindFacility     Kind = "facility"
	KindEquipment    Kind = "equipment"
	KindShareholder  Kind = "shareholder"
	KindShareClass   Kind = "share_class"
	KindFundingRound Kind = "funding_round"
)

// Kinds lists every entity kind, in a stable order.
var Kinds = []Kind{
	KindEmployee, KindGrant, KindInvestment, KindFacility, KindEquipment,
	KindShareholder, KindShareClass, KindFundingRound,
}

// Attrs holds the numeric attributes of an entity, keyed by field name.
type Attrs map[string]float64

// Entity is the common read-only surface of every forecastable record.
//
// Entities are treated as immutable inputs: With returns a modified copy and
// never mutates the receiver, which keeps scenario application composable.
type Entity interface {
	Kind() Kind
	Name() string
	StartDate() Date
	// EndDate returns the end of life of the entity, ok is false when the
	// entity is open-ended.
	EndDate() (end Date, ok bool)
	Tags() []string
	HasTag(tag string) bool
	// IsActive reports whether the entity exists on the given date:
	// start_date <= on and (no end_date or on <= end_date).
	IsActive(on Date) bool
	// Get returns the named numeric attribute, or def when absent.
	// Missing optional fields are never an error.
	Get(field string, def float64) float64
	// Text returns the named textual attribute, or def when absent.
	Text(field, def string) string
	// With returns a copy of the entity with the numeric field overridden.
	With(field string, value float64) Entity
}

// entityBase carries the fields common to every entity kind.
// It is embedded by value in each concrete kind, so copies are cheap and
// modifications through the with* helpers never alias the original maps.
type entityBase struct {
	kind  Kind
	name  string
	start Date
	end   Date // zero when open-ended
	tags  []string
	attrs Attrs
	texts map[string]string
}

func newBase(kind Kind, name string, start Date, attrs Attrs) entityBase {
	return entityBase{kind: kind, name: name, start: start, attrs: maps.Clone(attrs)}
}

func (b entityBase) Kind() Kind      { return b.kind }
func (b entityBase) Name() string    { return b.name }
func (b entityBase) StartDate() Date { return b.start }

func (b entityBase) EndDate() (Date, bool) { return b.end, !b.end.IsZero() }

func (b entityBase) Tags() []string { return b.tags }

func (b entityBase) HasTag(tag string) bool { return slices.Contains(b.tags, tag) }

func (b entityBase) IsActive(on Date) bool {
	if on.Before(b.start) {
		return false
	}
	return b.end.IsZero() || !on.After(b.end)
}

func (b entityBase) Get(field string, def float64) float64 {
	if v, ok := b.attrs[field]; ok {
		return v
	}
	return def
}

func (b entityBase) Text(field, def string) string {
	if v, ok := b.texts[field]; ok {
		return v
	}
	return def
}

// Attrs returns a copy of the numeric attribute bag.
func (b entityBase) Attrs() Attrs { return maps.Clone(b.attrs) }

func (b entityBase) with(field string, value float64) entityBase {
	attrs := maps.Clone(b.attrs)
	if attrs == nil {
		attrs = Attrs{}
	}
	attrs[field] = value
	b.attrs = attrs
	return b
}

func (b entityBase) withEnd(end Date) entityBase {
	b.end = end
	return b
}

func (b entityBase) withTags(tags ...string) entityBase {
	b.tags = append(slices.Clone(b.tags), tags...)
	return b
}

func (b entityBase) withText(field, value string) entityBase {
	texts := maps.Clone(b.texts)
	if texts == nil {
		texts = map[string]string{}
	}
	texts[field] = value
	b.texts = texts
	return b
}

// Employee is a salaried position. Attributes: "salary" (annual),
// "benefits_rate" (fraction of salary, default 0), "overhead_multiplier"
// (default 1.0).
type Employee struct{ entityBase }

func NewEmployee(name string, start Date, attrs Attrs) Employee {
	return Employee{newBase(KindEmployee, name, start, attrs)}
}

func (e Employee) With(field string, v float64) Entity {
	e.entityBase = e.entityBase.with(field, v)
	return e
}
func (e Employee) Until(end Date) Employee       { e.entityBase = e.entityBase.withEnd(end); return e }
func (e Employee) Tagged(tags ...string) Employee {
	e.entityBase = e.entityBase.withTags(tags...)
	return e
}

// Grant is a funding award disbursed evenly over its lifetime.
// Attributes: "amount" (total award).
type Grant struct{ entityBase }

func NewGrant(name string, start Date, attrs Attrs) Grant {
	return Grant{newBase(KindGrant, name, start, attrs)}
}

func (e Grant) With(field string, v float64) Entity {
	e.entityBase = e.entityBase.with(field, v)
	return e
}
func (e Grant) Until(end Date) Grant        { e.entityBase = e.entityBase.withEnd(end); return e }
func (e Grant) Tagged(tags ...string) Grant { e.entityBase = e.entityBase.withTags(tags...); return e }

// Investment is invested capital yielding a monthly return.
// Attributes: "principal", "annual_return" (fraction, default 0).
type Investment struct{ entityBase }

func NewInvestment(name string, start Date, attrs Attrs) Investment {
	return Investment{newBase(KindInvestment, name, start, attrs)}
}

func (e Investment) With(field string, v float64) Entity {
	e.entityBase = e.entityBase.with(field, v)
	return e
}
func (e Investment) Until(end Date) Investment { e.entityBase = e.entityBase.withEnd(end); return e }
func (e Investment) Tagged(tags ...string) Investment {
	e.entityBase = e.entityBase.withTags(tags...)
	return e
}

// Facility is a rented or owned space. Attributes: "monthly_cost",
// "utilities" (monthly, default 0).
type Facility struct{ entityBase }

func NewFacility(name string, start Date, attrs Attrs) Facility {
	return Facility{newBase(KindFacility, name, start, attrs)}
}

func (e Facility) With(field string, v float64) Entity {
	e.entityBase = e.entityBase.with(field, v)
	return e
}
func (e Facility) Until(end Date) Facility { e.entityBase = e.entityBase.withEnd(end); return e }
func (e Facility) Tagged(tags ...string) Facility {
	e.entityBase = e.entityBase.withTags(tags...)
	return e
}

// Equipment is a purchased asset depreciated linearly.
// Attributes: "purchase_price", "depreciation_months" (default 36),
// "monthly_maintenance" (default 0).
type Equipment struct{ entityBase }

func NewEquipment(name string, start Date, attrs Attrs) Equipment {
	return Equipment{newBase(KindEquipment, name, start, attrs)}
}

func (e Equipment) With(field string, v float64) Entity {
	e.entityBase = e.entityBase.with(field, v)
	return e
}
func (e Equipment) Until(end Date) Equipment { e.entityBase = e.entityBase.withEnd(end); return e }
func (e Equipment) Tagged(tags ...string) Equipment {
	e.entityBase = e.entityBase.withTags(tags...)
	return e
}
