// Package sqlstore provides a SQLite-backed entity store, for organizations
// whose entity set outgrows flat YAML files.
package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/etnz/forecast"
)

// entityRecord is the database model of one entity. Dates are stored in
// ISO-8601 text so date comparisons work lexically in SQL; the attribute and
// tag bags are stored as JSON.
type entityRecord struct {
	ID              uint   `gorm:"primaryKey"`
	Kind            string `gorm:"index;not null"`
	Name            string `gorm:"index;not null"`
	StartDate       string `gorm:"index;not null"`
	EndDate         string `gorm:"index"` // empty when open-ended
	Tags            string // JSON array
	ShareholderType string
	ShareClass      string
	Attributes      string // JSON object, field -> float64
}

func (entityRecord) TableName() string { return "entities" }

// Store is a forecast.EntityStore on a SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the SQLite database at path. The special path
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening entity database %q: %w", path, err)
	}
	if err := db.AutoMigrate(&entityRecord{}); err != nil {
		return nil, fmt.Errorf("migrating entity database %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Add inserts entities into the database.
func (s *Store) Add(ctx context.Context, entities ...forecast.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	records := make([]entityRecord, 0, len(entities))
	for _, e := range entities {
		rec, err := fromEntity(e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	return s.db.WithContext(ctx).Create(&records).Error
}

// Replace atomically swaps the whole entity set for the given one.
func (s *Store) Replace(ctx context.Context, entities []forecast.Entity) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entityRecord{}).Error; err != nil {
			return err
		}
		for _, e := range entities {
			rec, err := fromEntity(e)
			if err != nil {
				return err
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored entities.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&entityRecord{}).Count(&n).Error
	return n, err
}

// Query implements forecast.EntityStore. Kind and active-on criteria are
// pushed down to SQL; tag filtering happens on the decoded entities because
// tags live in a JSON column.
func (s *Store) Query(ctx context.Context, q forecast.Query) ([]forecast.Entity, error) {
	db := s.db.WithContext(ctx).Model(&entityRecord{}).Order("id ASC")
	if q.Kind != "" {
		db = db.Where("kind = ?", string(q.Kind))
	}
	if !q.ActiveOn.IsZero() {
		on := q.ActiveOn.String()
		db = db.Where("start_date <= ?", on).
			Where("end_date = '' OR end_date >= ?", on)
	}

	var records []entityRecord
	if err := db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}

	var entities []forecast.Entity
	for _, rec := range records {
		e, err := rec.entity()
		if err != nil {
			return nil, err
		}
		for _, tag := range q.Tags {
			if !e.HasTag(tag) {
				e = nil
				break
			}
		}
		if e != nil {
			entities = append(entities, e)
		}
	}
	return entities, nil
}

var _ forecast.EntityStore = (*Store)(nil)

func fromEntity(e forecast.Entity) (entityRecord, error) {
	rec := entityRecord{
		Kind:      string(e.Kind()),
		Name:      e.Name(),
		StartDate: e.StartDate().String(),
	}
	if end, ok := e.EndDate(); ok {
		rec.EndDate = end.String()
	}
	if tags := e.Tags(); len(tags) > 0 {
		b, err := json.Marshal(tags)
		if err != nil {
			return rec, fmt.Errorf("encoding tags of %q: %w", e.Name(), err)
		}
		rec.Tags = string(b)
	}
	type attributed interface{ Attrs() forecast.Attrs }
	if a, ok := e.(attributed); ok {
		if attrs := a.Attrs(); len(attrs) > 0 {
			b, err := json.Marshal(attrs)
			if err != nil {
				return rec, fmt.Errorf("encoding attributes of %q: %w", e.Name(), err)
			}
			rec.Attributes = string(b)
		}
	}
	if sh, ok := e.(forecast.Shareholder); ok {
		rec.ShareholderType = sh.ShareholderType()
		rec.ShareClass = sh.ShareClass()
	}
	return rec, nil
}

func (rec entityRecord) entity() (forecast.Entity, error) {
	start, err := forecast.ParseDate(rec.StartDate)
	if err != nil {
		return nil, fmt.Errorf("entity %q: %w", rec.Name, err)
	}

	attrs := forecast.Attrs{}
	if rec.Attributes != "" {
		if err := json.Unmarshal([]byte(rec.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("decoding attributes of %q: %w", rec.Name, err)
		}
	}

	var e forecast.Entity
	switch forecast.Kind(rec.Kind) {
	case forecast.KindEmployee:
		e = forecast.NewEmployee(rec.Name, start, attrs)
	case forecast.KindGrant:
		e = forecast.NewGrant(rec.Name, start, attrs)
	case forecast.KindInvestment:
		e = forecast.NewInvestment(rec.Name, start, attrs)
	case forecast.KindFacility:
		e = forecast.NewFacility(rec.Name, start, attrs)
	case forecast.KindEquipment:
		e = forecast.NewEquipment(rec.Name, start, attrs)
	case forecast.KindShareClass:
		e = forecast.NewShareClass(rec.Name, start, attrs)
	case forecast.KindShareholder:
		e = forecast.NewShareholder(rec.Name, start, rec.ShareholderType, rec.ShareClass, attrs)
	case forecast.KindFundingRound:
		e = forecast.NewFundingRound(rec.Name, start, attrs)
	default:
		return nil, fmt.Errorf("entity %q has unknown kind %q", rec.Name, rec.Kind)
	}

	var end *forecast.Date
	if rec.EndDate != "" {
		d, err := forecast.ParseDate(rec.EndDate)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", rec.Name, err)
		}
		end = &d
	}
	var tags []string
	if rec.Tags != "" {
		if err := json.Unmarshal([]byte(rec.Tags), &tags); err != nil {
			return nil, fmt.Errorf("decoding tags of %q: %w", rec.Name, err)
		}
	}
	return forecast.ApplyLifecycle(e, end, tags), nil
}
