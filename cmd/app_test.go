package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/forecast"
)

func TestRangeFlags_Parse(t *testing.T) {
	r := rangeFlags{from: "2026-01-01", to: "2026-06-30"}
	from, to, err := r.parse()
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if from != forecast.NewDate(2026, 1, 1) || to != forecast.NewDate(2026, 6, 30) {
		t.Errorf("parse() = %v, %v", from, to)
	}

	// Only -from: a twelve month window.
	r = rangeFlags{from: "2026-01-01"}
	from, to, err = r.parse()
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if from != forecast.NewDate(2026, 1, 1) || to != forecast.NewDate(2026, 12, 31) {
		t.Errorf("parse() defaults = %v, %v, want a 12-month window", from, to)
	}

	r = rangeFlags{from: "not-a-date"}
	if _, _, err := r.parse(); err == nil {
		t.Error("parse() should reject malformed dates")
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := "scenarios:\n  - name: downsize\n  - name: growth\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := loadScenario(path, "growth")
	if err != nil {
		t.Fatalf("loadScenario() error = %v", err)
	}
	if s.Name != "growth" {
		t.Errorf("loaded scenario %q, want growth", s.Name)
	}

	if _, err := loadScenario(path, "missing"); err == nil {
		t.Error("loadScenario() should fail on an unknown name")
	}
}

func TestReadMappings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")
	content := `[{"Kind": "employee", "Items": "$.people[*]", "Name": "$.name", "StartDate": "$.hired", "Fields": {"salary": "$.pay"}}]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	mappings, err := readMappings(path)
	if err != nil {
		t.Fatalf("readMappings() error = %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("got %d mappings, want 1", len(mappings))
	}
	m := mappings[0]
	if m.Kind != forecast.KindEmployee || m.Items != "$.people[*]" || m.Fields["salary"] != "$.pay" {
		t.Errorf("mapping decoded wrong: %+v", m)
	}
}
