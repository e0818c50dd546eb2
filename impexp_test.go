package forecast

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
)

const hrExport = `{
  "employees": [
    {"full_name": "dev", "hired": "2024-01-01", "left": "2024-12-31", "compensation": {"base": 60000}},
    {"full_name": "ops", "hired": "2024-04-01", "compensation": {"base": 72000}}
  ],
  "locations": [
    {"site": "hq", "opened": "2024-01-01", "rent": 5000}
  ]
}`

func hrMappings() []ImportMapping {
	return []ImportMapping{
		{
			Kind:      KindEmployee,
			Items:     "$.employees[*]",
			Name:      "$.full_name",
			StartDate: "$.hired",
			EndDate:   "$.left",
			Fields:    map[string]string{"salary": "$.compensation.base"},
		},
		{
			Kind:      KindFacility,
			Items:     "$.locations[*]",
			Name:      "$.site",
			StartDate: "$.opened",
			Fields:    map[string]string{"monthly_cost": "$.rent"},
		},
	}
}

func TestImportJSON(t *testing.T) {
	entities, err := ImportJSON(strings.NewReader(hrExport), hrMappings())
	if err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}
	if len(entities) != 3 {
		t.Fatalf("got %d entities, want 3", len(entities))
	}

	dev := entities[0]
	if dev.Kind() != KindEmployee || dev.Name() != "dev" {
		t.Errorf("entity 0 = %v %v", dev.Kind(), dev.Name())
	}
	if got := dev.Get("salary", 0); got != 60000 {
		t.Errorf("salary = %v, want 60000", got)
	}
	if end, ok := dev.EndDate(); !ok || end != NewDate(2024, 12, 31) {
		t.Errorf("end date = %v, %v", end, ok)
	}

	// ops has no "left" field: the end-date path yields nothing, so the
	// entity is open-ended rather than an error.
	if _, ok := entities[1].EndDate(); ok {
		t.Error("record without an end date should import open-ended")
	}

	hq := entities[2]
	if hq.Kind() != KindFacility || hq.Get("monthly_cost", 0) != 5000 {
		t.Errorf("facility imported wrong: %v", hq)
	}
}

func TestImportJSON_MissingName(t *testing.T) {
	doc := `{"employees": [{"hired": "2024-01-01"}]}`
	if _, err := ImportJSON(strings.NewReader(doc), hrMappings()[:1]); err == nil {
		t.Error("a record without a name should fail the import")
	}
}

func TestImportJSON_AbsentNumericFieldSkipsAttribute(t *testing.T) {
	doc := `{"employees": [{"full_name": "dev", "hired": "2024-01-01"}]}`
	entities, err := ImportJSON(strings.NewReader(doc), hrMappings()[:1])
	if err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}
	if got := entities[0].Get("salary", -1); got != -1 {
		t.Errorf("absent field should leave the attribute unset, got %v", got)
	}
}

func TestExportCSV(t *testing.T) {
	eng := NewEngine(testStore(), DefaultRegistry())
	eng.SetStartingCash(M(50000))
	rows, err := eng.CalculatePeriod(context.Background(), jan24, NewDate(2024, 3, 31))
	if err != nil {
		t.Fatalf("CalculatePeriod() error = %v", err)
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, rows); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading exported CSV: %v", err)
	}
	if len(records) != 4 { // header + 3 months
		t.Fatalf("got %d records, want 4", len(records))
	}

	header := records[0]
	if header[0] != "period" || header[1] != "total_revenue" {
		t.Errorf("header = %v", header)
	}
	col := -1
	for i, name := range header {
		if name == CategoryEmployeeCosts {
			col = i
		}
	}
	if col < 0 {
		t.Fatalf("header %v lacks the %s column", header, CategoryEmployeeCosts)
	}
	if got := records[1][col]; got != "5000" {
		t.Errorf("employee costs cell = %q, want 5000", got)
	}
	if got := records[1][0]; got != "2024-01" {
		t.Errorf("period cell = %q, want 2024-01", got)
	}
	if got := records[3][4]; got != "20000" { // 50000 - 3*10000
		t.Errorf("final cash balance cell = %q, want 20000", got)
	}
}
