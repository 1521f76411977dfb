package store

import (
	"database/sql"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

var (
	ErrCustodyRecordNotFound = errors.New("custody record not found")
	// ErrCustodyConflict is returned when a conditional custody write matched no row.
	ErrCustodyConflict = errors.New("custody record was not in the expected state")
)

// CustodyRecord is the attendance, daily log and departure of one child on one day.
// (daycare_id, child_id, date) is unique.
type CustodyRecord struct {
	CustodyRecordId sql.NullString
	DaycareId       sql.NullString
	ChildId         sql.NullString
	Date            time.Time

	CheckedInAt           *time.Time
	Temperature           sql.NullFloat64
	ArrivedIll            Flag
	IllnessDescription    sql.NullString
	ArrivedClean          Flag
	CompleteBackpack      Flag
	GoodPhysicalCondition Flag
	DroppedOffBy          sql.NullString
	CheckInStaffId        sql.NullString

	LogSubmittedAt      *time.Time
	Breakfast           sql.NullString
	Snack               sql.NullString
	Lunch               sql.NullString
	Slept               Flag
	NapDuration         sql.NullString
	Urinated            Flag
	UrinationCount      sql.NullInt64
	BowelMovement       Flag
	BowelMovementCount  sql.NullInt64
	AskedForToilet      Flag
	AskedForToiletWhen  sql.NullString
	AskedForToiletCount sql.NullInt64
	Mood                sql.NullString
	HadAccident         Flag
	AccidentDescription sql.NullString
	HealthIssue         Flag
	HealthDescription   sql.NullString
	Observations        sql.NullString
	Photo1              sql.NullString
	Photo2              sql.NullString
	Photo3              sql.NullString
	LogStaffId          sql.NullString

	CheckedOutAt           *time.Time
	PickedUpBy             sql.NullString
	ReleasedClean          Flag
	ReleasedWithBelongings Flag
	CheckOutStaffId        sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r CustodyRecord) Photos() []string {
	photos := make([]string, 0, 3)
	for _, photo := range []sql.NullString{r.Photo1, r.Photo2, r.Photo3} {
		if photo.Valid && photo.String != "" {
			photos = append(photos, photo.String)
		}
	}
	return photos
}

func (r *CustodyRecord) SetPhotos(photos []string) {
	slots := []*sql.NullString{&r.Photo1, &r.Photo2, &r.Photo3}
	for i, slot := range slots {
		*slot = sql.NullString{}
		if i < len(photos) {
			*slot = DbString(photos[i])
		}
	}
}

// CheckIn writes the check-in half of the record. It is the first write for the key or it fills a
// record created by an earlier daily log; a key already checked in yields ErrCustodyConflict.
func (s *Store) CheckIn(tx *gorm.DB, record CustodyRecord) (CustodyRecord, error) {
	db := s.dbOrTx(tx)

	res := db.Exec(`INSERT INTO custody_records (
			custody_record_id, daycare_id, child_id, date,
			checked_in_at, temperature, arrived_ill, illness_description, arrived_clean,
			complete_backpack, good_physical_condition, dropped_off_by, check_in_staff_id,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (daycare_id, child_id, date) DO UPDATE SET
			checked_in_at = EXCLUDED.checked_in_at,
			temperature = EXCLUDED.temperature,
			arrived_ill = EXCLUDED.arrived_ill,
			illness_description = EXCLUDED.illness_description,
			arrived_clean = EXCLUDED.arrived_clean,
			complete_backpack = EXCLUDED.complete_backpack,
			good_physical_condition = EXCLUDED.good_physical_condition,
			dropped_off_by = EXCLUDED.dropped_off_by,
			check_in_staff_id = EXCLUDED.check_in_staff_id,
			updated_at = NOW()
		WHERE custody_records.checked_in_at IS NULL`,
		s.newId(), record.DaycareId, record.ChildId, dbDate(record.Date),
		record.CheckedInAt, record.Temperature, record.ArrivedIll, record.IllnessDescription, record.ArrivedClean,
		record.CompleteBackpack, record.GoodPhysicalCondition, record.DroppedOffBy, record.CheckInStaffId,
	)
	if err := s.checkCustodyWrite(res); err != nil {
		return CustodyRecord{}, err
	}

	return s.GetCustodyRecord(tx, record.DaycareId.String, record.ChildId.String, record.Date)
}

// SubmitDailyLog creates or overwrites the daily log of the key. Concurrent submissions
// are last-write-wins.
func (s *Store) SubmitDailyLog(tx *gorm.DB, record CustodyRecord) (CustodyRecord, error) {
	db := s.dbOrTx(tx)

	res := db.Exec(`INSERT INTO custody_records (
			custody_record_id, daycare_id, child_id, date,
			log_submitted_at, breakfast, snack, lunch, slept, nap_duration,
			urinated, urination_count, bowel_movement, bowel_movement_count,
			asked_for_toilet, asked_for_toilet_when, asked_for_toilet_count, mood,
			had_accident, accident_description, health_issue, health_description, observations,
			photo1, photo2, photo3, log_staff_id,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (daycare_id, child_id, date) DO UPDATE SET
			log_submitted_at = EXCLUDED.log_submitted_at,
			breakfast = EXCLUDED.breakfast,
			snack = EXCLUDED.snack,
			lunch = EXCLUDED.lunch,
			slept = EXCLUDED.slept,
			nap_duration = EXCLUDED.nap_duration,
			urinated = EXCLUDED.urinated,
			urination_count = EXCLUDED.urination_count,
			bowel_movement = EXCLUDED.bowel_movement,
			bowel_movement_count = EXCLUDED.bowel_movement_count,
			asked_for_toilet = EXCLUDED.asked_for_toilet,
			asked_for_toilet_when = EXCLUDED.asked_for_toilet_when,
			asked_for_toilet_count = EXCLUDED.asked_for_toilet_count,
			mood = EXCLUDED.mood,
			had_accident = EXCLUDED.had_accident,
			accident_description = EXCLUDED.accident_description,
			health_issue = EXCLUDED.health_issue,
			health_description = EXCLUDED.health_description,
			observations = EXCLUDED.observations,
			photo1 = EXCLUDED.photo1,
			photo2 = EXCLUDED.photo2,
			photo3 = EXCLUDED.photo3,
			log_staff_id = EXCLUDED.log_staff_id,
			updated_at = NOW()`,
		s.newId(), record.DaycareId, record.ChildId, dbDate(record.Date),
		record.LogSubmittedAt, record.Breakfast, record.Snack, record.Lunch, record.Slept, record.NapDuration,
		record.Urinated, record.UrinationCount, record.BowelMovement, record.BowelMovementCount,
		record.AskedForToilet, record.AskedForToiletWhen, record.AskedForToiletCount, record.Mood,
		record.HadAccident, record.AccidentDescription, record.HealthIssue, record.HealthDescription, record.Observations,
		record.Photo1, record.Photo2, record.Photo3, record.LogStaffId,
	)
	if res.Error != nil {
		return CustodyRecord{}, res.Error
	}

	return s.GetCustodyRecord(tx, record.DaycareId.String, record.ChildId.String, record.Date)
}

// CheckOut stamps the departure only if the key is checked in, has a daily log and is not
// checked out yet. Otherwise ErrCustodyConflict is returned and nothing is written.
func (s *Store) CheckOut(tx *gorm.DB, record CustodyRecord) (CustodyRecord, error) {
	db := s.dbOrTx(tx)

	res := db.Exec(`UPDATE custody_records SET
			checked_out_at = ?,
			picked_up_by = ?,
			released_clean = ?,
			released_with_belongings = ?,
			check_out_staff_id = ?,
			updated_at = NOW()
		WHERE daycare_id = ? AND child_id = ? AND date = ?
			AND checked_in_at IS NOT NULL
			AND checked_out_at IS NULL
			AND log_submitted_at IS NOT NULL`,
		record.CheckedOutAt, record.PickedUpBy, record.ReleasedClean, record.ReleasedWithBelongings, record.CheckOutStaffId,
		record.DaycareId, record.ChildId, dbDate(record.Date),
	)
	if err := s.checkCustodyWrite(res); err != nil {
		return CustodyRecord{}, err
	}

	return s.GetCustodyRecord(tx, record.DaycareId.String, record.ChildId.String, record.Date)
}

func (s *Store) checkCustodyWrite(res *gorm.DB) error {
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrCustodyConflict
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCustodyConflict
	}
	return nil
}

func (s *Store) GetCustodyRecord(tx *gorm.DB, daycareId, childId string, date time.Time) (CustodyRecord, error) {
	db := s.dbOrTx(tx)

	record := CustodyRecord{}
	err := db.Where("daycare_id = ? AND child_id = ? AND date = ?", daycareId, childId, dbDate(date)).First(&record).Error
	if gorm.IsRecordNotFoundError(err) {
		return CustodyRecord{}, ErrCustodyRecordNotFound
	}
	if err != nil {
		return CustodyRecord{}, err
	}
	return record, nil
}

func (s *Store) ListCustodyRecords(tx *gorm.DB, daycareId string, date time.Time) ([]CustodyRecord, error) {
	db := s.dbOrTx(tx)

	records := make([]CustodyRecord, 0)
	if err := db.Where("daycare_id = ? AND date = ?", daycareId, dbDate(date)).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
