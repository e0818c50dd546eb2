package forecast

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/PaesslerAG/jsonpath"
)

// ImportMapping describes how to pluck entities of one kind out of a
// third-party JSON export (an HR system dump, a billing report, ...).
// Paths are jsonpath expressions; Items selects the records and the other
// paths are evaluated against each record.
type ImportMapping struct {
	Kind      Kind
	Items     string            // path to the records, e.g. "$.employees[*]"
	Name      string            // path to the record's name
	StartDate string            // path to the start date (ISO-8601)
	EndDate   string            // optional path to the end date
	Fields    map[string]string // attribute name -> path to its numeric value
}

// ImportJSON reads a JSON document and extracts entities according to the
// mappings. Records missing a mapped numeric field simply omit the
// attribute; a record without a name or start date is an error.
func ImportJSON(r io.Reader, mappings []ImportMapping) ([]Entity, error) {
	var doc interface{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding JSON document: %w", err)
	}

	var entities []Entity
	for _, m := range mappings {
		items, err := jsonpath.Get(m.Items, doc)
		if err != nil {
			return nil, fmt.Errorf("items path %q: %w", m.Items, err)
		}
		// jsonpath returns either a list of matches or a single match.
		records, ok := items.([]interface{})
		if !ok {
			records = []interface{}{items}
		}
		for i, record := range records {
			e, err := m.record(record)
			if err != nil {
				return nil, fmt.Errorf("record #%d of %q: %w", i+1, m.Items, err)
			}
			entities = append(entities, e)
		}
	}
	return entities, nil
}

func (m ImportMapping) record(record interface{}) (Entity, error) {
	name, err := pathString(m.Name, record)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	startStr, err := pathString(m.StartDate, record)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	start, err := ParseDate(startStr)
	if err != nil {
		return nil, err
	}

	attrs := Attrs{}
	for field, path := range m.Fields {
		v, err := jsonpath.Get(path, record)
		if err != nil {
			continue // absent optional field, skip the attribute
		}
		if f, ok := v.(float64); ok {
			attrs[field] = f
		}
	}

	d := entityDecl{Kind: m.Kind, Name: name, StartDate: start, Attributes: attrs}
	if m.EndDate != "" {
		if endStr, err := pathString(m.EndDate, record); err == nil {
			end, err := ParseDate(endStr)
			if err != nil {
				return nil, err
			}
			d.EndDate = &end
		}
	}
	return d.entity()
}

func pathString(path string, record interface{}) (string, error) {
	v, err := jsonpath.Get(path, record)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", path, err)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("path %q: got %T, want string", path, v)
	}
	return s, nil
}

// ExportCSV writes the period table in CSV form: the fixed columns first,
// then one column per category in sorted order. This is the persisted
// forecast output consumed without further access to entities.
func ExportCSV(w io.Writer, rows []PeriodRow) error {
	// Union of category columns across all rows.
	seen := map[string]bool{}
	for _, row := range rows {
		for cat := range row.Revenue {
			seen[cat] = true
		}
		for cat := range row.Expenses {
			seen[cat] = true
		}
		for cat := range row.Metrics {
			seen[cat] = true
		}
	}
	categories := make([]string, 0, len(seen))
	for cat := range seen {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	cw := csv.NewWriter(w)
	header := append([]string{"period", "total_revenue", "total_expenses", "net_cash_flow", "cash_balance"}, categories...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Period.Format("2006-01"),
			row.TotalRevenue.String(),
			row.TotalExpenses.String(),
			row.NetCashFlow.String(),
			row.CashBalance.String(),
		}
		for _, cat := range categories {
			record = append(record, row.Category(cat).String())
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
