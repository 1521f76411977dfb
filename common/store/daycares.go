package store

import (
	"database/sql"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

var (
	ErrDaycareNotFound = errors.New("daycare not found")
)

type Daycare struct {
	DaycareId sql.NullString
	Name      sql.NullString
	// IANA name, empty means the service default
	Timezone sql.NullString
}

func (s *Store) AddDaycare(tx *gorm.DB, daycare Daycare) (Daycare, error) {
	db := s.dbOrTx(tx)

	daycare.DaycareId = s.newId()
	if err := db.Create(&daycare).Error; err != nil {
		return Daycare{}, err
	}
	return daycare, nil
}

func (s *Store) GetDaycare(tx *gorm.DB, daycareId string) (Daycare, error) {
	db := s.dbOrTx(tx)

	daycare := Daycare{}
	err := db.Where("daycare_id = ?", daycareId).First(&daycare).Error
	if gorm.IsRecordNotFoundError(err) {
		return Daycare{}, ErrDaycareNotFound
	}
	if err != nil {
		return Daycare{}, err
	}
	return daycare, nil
}
