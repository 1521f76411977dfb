package store

import (
	"database/sql"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

type Store struct {
	Db              *gorm.DB `inject:""`
	StringGenerator interface {
		GenerateUuid() string
	} `inject:""`
}

func (s *Store) Tx() *gorm.DB {
	return s.Db.Begin()
}

func (s *Store) dbOrTx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.Db
}

func DbNullString(value *string) sql.NullString {
	// will update value in db
	if value != nil {
		return sql.NullString{
			String: *value,
			Valid:  true,
		}
	}
	// will ignore this value
	return sql.NullString{
		Valid: false,
	}
}

func DbString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func DbNullInt64(value *int64) sql.NullInt64 {
	if value != nil {
		return sql.NullInt64{
			Int64: *value,
			Valid: true,
		}
	}
	return sql.NullInt64{
		Valid: false,
	}
}

func DbNullFloat64(value *float64) sql.NullFloat64 {
	if value != nil {
		return sql.NullFloat64{
			Float64: *value,
			Valid:   true,
		}
	}
	return sql.NullFloat64{
		Valid: false,
	}
}

func DbTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}

// DATE columns are compared as text so the session timezone never shifts the day.
func dbDate(value time.Time) string {
	return value.Format("2006-01-02")
}

func (s *Store) newId() sql.NullString {
	id := s.StringGenerator.GenerateUuid()
	return DbNullString(&id)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

type SearchOptions struct {
	DaycareId  string
	ChildrenId []string
	ActiveOnly bool
}
