package store

import (
	"database/sql"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

var (
	ErrChildNotFound = errors.New("child not found")
)

type Child struct {
	ChildId   sql.NullString
	DaycareId sql.NullString
	ClassId   sql.NullString
	FirstName sql.NullString
	LastName  sql.NullString
	Active    Flag
}

func (s *Store) AddChild(tx *gorm.DB, child Child) (Child, error) {
	db := s.dbOrTx(tx)

	child.ChildId = s.newId()
	if !child.Active.Valid {
		child.Active = DbBool(true)
	}
	if err := db.Create(&child).Error; err != nil {
		return Child{}, err
	}
	return child, nil
}

func (s *Store) baseChildQuery(tx *gorm.DB, options SearchOptions) *gorm.DB {
	query := s.dbOrTx(tx).Model(&Child{})
	if options.DaycareId != "" {
		query = query.Where("daycare_id = ?", options.DaycareId)
	}
	if len(options.ChildrenId) > 0 {
		query = query.Where("child_id IN (?)", options.ChildrenId)
	}
	if options.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	return query
}

// GetChild only returns a child matching the options; a child of another daycare is not found.
func (s *Store) GetChild(tx *gorm.DB, childId string, options SearchOptions) (Child, error) {
	child := Child{}
	err := s.baseChildQuery(tx, options).Where("child_id = ?", childId).First(&child).Error
	if gorm.IsRecordNotFoundError(err) {
		return Child{}, ErrChildNotFound
	}
	if err != nil {
		return Child{}, err
	}
	return child, nil
}

func (s *Store) ListChildren(tx *gorm.DB, options SearchOptions) ([]Child, error) {
	children := make([]Child, 0)
	if err := s.baseChildQuery(tx, options).Order("last_name, first_name").Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}
