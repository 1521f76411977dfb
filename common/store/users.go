package store

import (
	"database/sql"
	"strings"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

type User struct {
	UserId       sql.NullString
	DaycareId    sql.NullString
	Email        sql.NullString
	PasswordHash sql.NullString
	Name         sql.NullString
	// administrador, academico or familia
	Role        sql.NullString
	StaffId     sql.NullString
	ChildId     sql.NullString
	DeviceToken sql.NullString
	Active      Flag
}

func (s *Store) AddUser(tx *gorm.DB, user User) (User, error) {
	db := s.dbOrTx(tx)

	user.UserId = s.newId()
	user.Email = DbString(strings.ToLower(user.Email.String))
	if !user.Active.Valid {
		user.Active = DbBool(true)
	}
	if err := db.Create(&user).Error; err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Store) GetUserByEmail(tx *gorm.DB, email string) (User, error) {
	db := s.dbOrTx(tx)

	user := User{}
	err := db.Where("email = ?", strings.ToLower(email)).First(&user).Error
	if gorm.IsRecordNotFoundError(err) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Store) GetUser(tx *gorm.DB, userId string, options SearchOptions) (User, error) {
	db := s.dbOrTx(tx)

	query := db.Where("user_id = ?", userId)
	if options.DaycareId != "" {
		query = query.Where("daycare_id = ?", options.DaycareId)
	}

	user := User{}
	err := query.First(&user).Error
	if gorm.IsRecordNotFoundError(err) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// SetUserActive soft (de)activates an account of the daycare.
func (s *Store) SetUserActive(tx *gorm.DB, userId, daycareId string, active bool) error {
	db := s.dbOrTx(tx)

	res := db.Model(&User{}).Where("user_id = ? AND daycare_id = ?", userId, daycareId).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) SetDeviceToken(tx *gorm.DB, userId, daycareId, deviceToken string) error {
	db := s.dbOrTx(tx)

	res := db.Model(&User{}).Where("user_id = ? AND daycare_id = ?", userId, daycareId).Update("device_token", DbString(deviceToken))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListGuardianDeviceTokens returns the push tokens of the active guardians of a child.
func (s *Store) ListGuardianDeviceTokens(tx *gorm.DB, daycareId, childId string) ([]string, error) {
	db := s.dbOrTx(tx)

	var tokens []string
	err := db.Model(&User{}).
		Where("daycare_id = ? AND child_id = ? AND role = ? AND active = ? AND device_token IS NOT NULL AND device_token <> ''",
			daycareId, childId, "familia", true).
		Pluck("device_token", &tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
