package sqlstore

import (
	"context"
	"testing"

	"github.com/etnz/forecast"
)

var jan24 = forecast.NewDate(2024, 1, 1)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	return s
}

func TestStore_AddAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Add(ctx,
		forecast.NewEmployee("dev", jan24, forecast.Attrs{"salary": 60000}).
			Until(forecast.NewDate(2024, 12, 31)).Tagged("core"),
		forecast.NewFacility("hq", jan24, forecast.Attrs{"monthly_cost": 5000}),
		forecast.NewShareholder("alice", jan24, "founder", "common", forecast.Attrs{"total_shares": 4000000}),
	)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Fatalf("Count() = %d, want 3", n)
	}

	all, err := s.Query(ctx, forecast.Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Query() returned %d entities, want 3", len(all))
	}

	dev, ok := all[0].(forecast.Employee)
	if !ok {
		t.Fatalf("entity 0 is %T, want Employee", all[0])
	}
	if dev.Get("salary", 0) != 60000 || !dev.HasTag("core") {
		t.Errorf("employee round trip lost fields: %+v", dev)
	}
	if end, ok := dev.EndDate(); !ok || end != forecast.NewDate(2024, 12, 31) {
		t.Errorf("end date = %v, %v", end, ok)
	}

	alice, ok := all[2].(forecast.Shareholder)
	if !ok {
		t.Fatalf("entity 2 is %T, want Shareholder", all[2])
	}
	if alice.ShareholderType() != "founder" || alice.ShareClass() != "common" {
		t.Errorf("shareholder texts = %q/%q", alice.ShareholderType(), alice.ShareClass())
	}
}

func TestStore_QueryFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Add(ctx,
		forecast.NewEmployee("early", jan24, nil).Until(forecast.NewDate(2024, 6, 30)).Tagged("core"),
		forecast.NewEmployee("late", forecast.NewDate(2024, 9, 1), nil),
		forecast.NewFacility("hq", jan24, nil),
	)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	byKind, err := s.Query(ctx, forecast.Query{Kind: forecast.KindEmployee})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(byKind) != 2 {
		t.Errorf("kind filter returned %d entities, want 2", len(byKind))
	}

	// Active-on filtering happens in SQL: in July only the open-ended
	// facility is active.
	active, err := s.Query(ctx, forecast.Query{ActiveOn: forecast.NewDate(2024, 7, 15)})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(active) != 1 || active[0].Name() != "hq" {
		t.Errorf("active-on filter returned %v, want [hq]", active)
	}

	tagged, err := s.Query(ctx, forecast.Query{Tags: []string{"core"}})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(tagged) != 1 || tagged[0].Name() != "early" {
		t.Errorf("tag filter returned %v, want [early]", tagged)
	}
}

func TestStore_Replace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Add(ctx, forecast.NewEmployee("old", jan24, nil)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	err := s.Replace(ctx, []forecast.Entity{
		forecast.NewEmployee("new", jan24, nil),
		forecast.NewFacility("hq", jan24, nil),
	})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	all, err := s.Query(ctx, forecast.Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(all) != 2 || all[0].Name() != "new" {
		t.Errorf("Replace() left %v", all)
	}
}

func TestStore_DrivesEngine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.Add(ctx,
		forecast.NewEmployee("dev", jan24, forecast.Attrs{"salary": 60000}),
		forecast.NewFacility("hq", jan24, forecast.Attrs{"monthly_cost": 5000}),
	)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	eng := forecast.NewEngine(s, forecast.DefaultRegistry())
	rows, err := eng.CalculatePeriod(ctx, jan24, forecast.NewDate(2024, 3, 31))
	if err != nil {
		t.Fatalf("CalculatePeriod() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if want := forecast.M(10000); !rows[0].TotalExpenses.Equal(want) {
		t.Errorf("expenses = %v, want %v", rows[0].TotalExpenses, want)
	}
}
