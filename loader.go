package forecast

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// entityDecl is the YAML representation of one entity in an entity file.
type entityDecl struct {
	Kind            Kind               `yaml:"kind"`
	Name            string             `yaml:"name"`
	StartDate       Date               `yaml:"start_date"`
	EndDate         *Date              `yaml:"end_date,omitempty"`
	Tags            []string           `yaml:"tags,omitempty"`
	ShareholderType string             `yaml:"shareholder_type,omitempty"`
	ShareClass      string             `yaml:"share_class,omitempty"`
	Attributes      map[string]float64 `yaml:"attributes,omitempty"`
}

// entity builds the typed entity declared by the record.
func (d entityDecl) entity() (Entity, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("entity of kind %q has no name", d.Kind)
	}
	if d.EndDate != nil && d.StartDate.After(*d.EndDate) {
		return nil, fmt.Errorf("entity %q: start_date %s is after end_date %s", d.Name, d.StartDate, *d.EndDate)
	}

	attrs := Attrs(d.Attributes)
	var e Entity
	switch d.Kind {
	case KindEmployee:
		e = NewEmployee(d.Name, d.StartDate, attrs)
	case KindGrant:
		e = NewGrant(d.Name, d.StartDate, attrs)
	case KindInvestment:
		e = NewInvestment(d.Name, d.StartDate, attrs)
	case KindFacility:
		e = NewFacility(d.Name, d.StartDate, attrs)
	case KindEquipment:
		e = NewEquipment(d.Name, d.StartDate, attrs)
	case KindShareClass:
		e = NewShareClass(d.Name, d.StartDate, attrs)
	case KindShareholder:
		e = NewShareholder(d.Name, d.StartDate, d.ShareholderType, d.ShareClass, attrs)
	case KindFundingRound:
		e = NewFundingRound(d.Name, d.StartDate, attrs)
	default:
		return nil, fmt.Errorf("entity %q has unknown kind %q", d.Name, d.Kind)
	}
	e = ApplyLifecycle(e, d.EndDate, d.Tags)
	return e, nil
}

// ApplyLifecycle attaches the optional end date and tags to a freshly built
// entity. Decoders of alternative storage formats share it.
func ApplyLifecycle(e Entity, end *Date, tags []string) Entity {
	switch v := e.(type) {
	case Employee:
		if end != nil {
			v = v.Until(*end)
		}
		return v.Tagged(tags...)
	case Grant:
		if end != nil {
			v = v.Until(*end)
		}
		return v.Tagged(tags...)
	case Investment:
		if end != nil {
			v = v.Until(*end)
		}
		return v.Tagged(tags...)
	case Facility:
		if end != nil {
			v = v.Until(*end)
		}
		return v.Tagged(tags...)
	case Equipment:
		if end != nil {
			v = v.Until(*end)
		}
		return v.Tagged(tags...)
	case ShareClass:
		if end != nil {
			v = v.Until(*end)
		}
		return v.Tagged(tags...)
	case Shareholder:
		if end != nil {
			v = v.Until(*end)
		}
		return v.Tagged(tags...)
	case FundingRound:
		if end != nil {
			v = v.Until(*end)
		}
		return v.Tagged(tags...)
	}
	return e
}

// decl builds the YAML record for an entity.
func decl(e Entity) entityDecl {
	d := entityDecl{
		Kind:      e.Kind(),
		Name:      e.Name(),
		StartDate: e.StartDate(),
		Tags:      e.Tags(),
	}
	if end, ok := e.EndDate(); ok {
		d.EndDate = &end
	}
	type attributed interface{ Attrs() Attrs }
	if a, ok := e.(attributed); ok {
		if attrs := a.Attrs(); len(attrs) > 0 {
			d.Attributes = attrs
		}
	}
	if sh, ok := e.(Shareholder); ok {
		d.ShareholderType = sh.ShareholderType()
		d.ShareClass = sh.ShareClass()
	}
	return d
}

// DecodeEntities reads an entity file in YAML format.
func DecodeEntities(r io.Reader) ([]Entity, error) {
	var file struct {
		Entities []entityDecl `yaml:"entities"`
	}
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding entities: %w", err)
	}
	entities := make([]Entity, 0, len(file.Entities))
	for _, d := range file.Entities {
		e, err := d.entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// EncodeEntities writes the entities in the YAML entity-file format, sorted
// by kind then name so the output is stable.
func EncodeEntities(w io.Writer, entities []Entity) error {
	var file struct {
		Entities []entityDecl `yaml:"entities"`
	}
	file.Entities = make([]entityDecl, 0, len(entities))
	for _, e := range entities {
		file.Entities = append(file.Entities, decl(e))
	}
	sort.SliceStable(file.Entities, func(i, j int) bool {
		if file.Entities[i].Kind != file.Entities[j].Kind {
			return file.Entities[i].Kind < file.Entities[j].Kind
		}
		return file.Entities[i].Name < file.Entities[j].Name
	})
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(file)
}

// LoadEntities discovers and loads every entity file (.yaml or .yml) under
// path, which may also name a single file. All entities end up in one
// in-memory store.
func LoadEntities(path string) (*MemoryStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not open entity path %q: %w", path, err)
	}

	var files []string
	if !info.IsDir() {
		files = []string{path}
	} else {
		err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && (strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml")) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)

	store := NewMemoryStore()
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("could not open entity file %q: %w", file, err)
		}
		entities, err := DecodeEntities(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("entity file %q: %w", file, err)
		}
		store.Add(entities...)
	}
	return store, nil
}

// SaveEntities writes all entities to a single YAML entity file, creating
// parent directories as needed.
func SaveEntities(path string, entities []Entity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create directory for %q: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error opening entity file %q for writing: %w", path, err)
	}
	defer f.Close()
	return EncodeEntities(f, entities)
}
