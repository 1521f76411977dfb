package custody

import (
	"context"
	"strings"
	"time"

	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/custody"
	"github.com/cear54/api-t-cuida/common/dates"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/messaging"
	"github.com/cear54/api-t-cuida/common/metrics"
	"github.com/cear54/api-t-cuida/common/storage"
	"github.com/cear54/api-t-cuida/common/store"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

const defaultPublishTimeout = 500 * time.Millisecond

type Service interface {
	CheckIn(ctx context.Context, request CheckInTransport) (Record, error)
	SubmitDailyLog(ctx context.Context, request DailyLogTransport) (Record, error)
	CheckOut(ctx context.Context, request CheckOutTransport) (Record, error)
	DailyStatus(ctx context.Context, date string) (DailyStatus, error)
	GetRecord(ctx context.Context, childId, date string) (Record, error)
}

// Record is a custody record with its derived state and readable photo urls.
type Record struct {
	store.CustodyRecord
	State     custody.State
	PhotoUrls []string
}

type ChildStatus struct {
	Child   store.Child
	State   custody.State
	Display string
	Record  *Record
}

type Summary struct {
	Total    int
	Present  int
	Absent   int
	Departed int
}

type DailyStatus struct {
	Date     dates.Date
	Children []ChildStatus
	Summary  Summary
}

type CustodyService struct {
	Store interface {
		GetDaycare(tx *gorm.DB, daycareId string) (store.Daycare, error)
		GetChild(tx *gorm.DB, childId string, options store.SearchOptions) (store.Child, error)
		ListChildren(tx *gorm.DB, options store.SearchOptions) ([]store.Child, error)
		CheckIn(tx *gorm.DB, record store.CustodyRecord) (store.CustodyRecord, error)
		SubmitDailyLog(tx *gorm.DB, record store.CustodyRecord) (store.CustodyRecord, error)
		CheckOut(tx *gorm.DB, record store.CustodyRecord) (store.CustodyRecord, error)
		GetCustodyRecord(tx *gorm.DB, daycareId, childId string, date time.Time) (store.CustodyRecord, error)
		ListCustodyRecords(tx *gorm.DB, daycareId string, date time.Time) ([]store.CustodyRecord, error)
	} `inject:""`
	Storage   storage.Storage     `inject:""`
	Publisher messaging.Publisher `inject:""`
	Calendar  *dates.Calendar     `inject:""`
	Logger    *log.Logger         `inject:""`

	// PublishTimeout bounds how long a custody write waits on the event bus.
	PublishTimeout time.Duration
}

func authorizedFromContext(ctx context.Context) (claims.AuthorizedContext, error) {
	authorized, ok := claims.FromContext(ctx)
	if !ok || authorized.DaycareId == "" {
		return claims.AuthorizedContext{}, claims.ErrMissingTenant
	}
	return authorized, nil
}

// location returns the daycare timezone, the service default when the daycare has none.
func (c *CustodyService) location(ctx context.Context, daycareId string) (*time.Location, error) {
	daycare, err := c.Store.GetDaycare(nil, daycareId)
	if err != nil && err != store.ErrDaycareNotFound {
		return nil, errors.Wrap(err, "failed to get daycare")
	}
	return c.Calendar.Location(daycare.Timezone.String), nil
}

// target resolves the child and the day a custody operation applies to.
func (c *CustodyService) target(ctx context.Context, authorized claims.AuthorizedContext, childId, date string) (store.Child, dates.Date, *time.Location, error) {
	if strings.TrimSpace(childId) == "" {
		return store.Child{}, dates.Date{}, nil, custody.ErrEmptyChild
	}
	loc, err := c.location(ctx, authorized.DaycareId)
	if err != nil {
		return store.Child{}, dates.Date{}, nil, err
	}
	day, err := c.Calendar.Resolve(date, loc)
	if err != nil {
		return store.Child{}, dates.Date{}, nil, err
	}
	child, err := c.Store.GetChild(nil, childId, authorized.SearchOptions())
	if err != nil {
		return store.Child{}, dates.Date{}, nil, errors.Wrap(err, "failed to get child")
	}
	return child, day, loc, nil
}

func (c *CustodyService) CheckIn(ctx context.Context, request CheckInTransport) (Record, error) {
	authorized, err := authorizedFromContext(ctx)
	if err != nil {
		return Record{}, err
	}

	child, day, loc, err := c.target(ctx, authorized, request.ChildId, request.Date)
	if err != nil {
		return Record{}, err
	}
	if err := custody.ValidateVitals(request.Temperature, request.ArrivedIll.Value, request.IllnessDescription); err != nil {
		return Record{}, err
	}
	arrivedAt, err := dates.At(day, request.Time, loc)
	if err != nil {
		return Record{}, err
	}

	record, err := c.Store.CheckIn(nil, store.CustodyRecord{
		DaycareId:             child.DaycareId,
		ChildId:               child.ChildId,
		Date:                  day.Time(),
		CheckedInAt:           &arrivedAt,
		Temperature:           store.DbNullFloat64(request.Temperature),
		ArrivedIll:            request.ArrivedIll.Db(),
		IllnessDescription:    store.DbString(request.IllnessDescription),
		ArrivedClean:          request.ArrivedClean.Db(),
		CompleteBackpack:      request.CompleteBackpack.Db(),
		GoodPhysicalCondition: request.GoodPhysicalCondition.Db(),
		DroppedOffBy:          store.DbString(request.DroppedOffBy),
		CheckInStaffId:        store.DbString(authorized.StaffId),
	})
	if err == store.ErrCustodyConflict {
		err = c.refusal(custody.ActionCheckIn, child, day)
		c.countTransition(custody.ActionCheckIn, err)
		return Record{}, err
	}
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to check in")
	}
	c.countTransition(custody.ActionCheckIn, nil)

	c.publish(ctx, authorized, messaging.CustodyCheckedInEventType, record, "")
	return c.toRecord(ctx, record), nil
}

func (c *CustodyService) SubmitDailyLog(ctx context.Context, request DailyLogTransport) (Record, error) {
	authorized, err := authorizedFromContext(ctx)
	if err != nil {
		return Record{}, err
	}

	child, day, _, err := c.target(ctx, authorized, request.ChildId, request.Date)
	if err != nil {
		return Record{}, err
	}
	if err := custody.ValidateDailyLog(request.Breakfast, len(request.Images)); err != nil {
		return Record{}, err
	}

	photos, err := c.storePhotos(ctx, request.Images, storage.LogFolder(authorized.DaycareId, child.ChildId.String, day.String()))
	if err != nil {
		return Record{}, err
	}

	now := time.Now()
	dailyLog := store.CustodyRecord{
		DaycareId:           child.DaycareId,
		ChildId:             child.ChildId,
		Date:                day.Time(),
		LogSubmittedAt:      &now,
		Breakfast:           store.DbString(request.Breakfast),
		Snack:               store.DbString(request.Snack),
		Lunch:               store.DbString(request.Lunch),
		Slept:               request.Slept.Db(),
		NapDuration:         store.DbString(request.NapDuration),
		Urinated:            request.Urinated.Db(),
		UrinationCount:      store.DbNullInt64(request.UrinationCount),
		BowelMovement:       request.BowelMovement.Db(),
		BowelMovementCount:  store.DbNullInt64(request.BowelMovementCount),
		AskedForToilet:      request.AskedForToilet.Db(),
		AskedForToiletWhen:  store.DbString(request.AskedForToiletWhen),
		AskedForToiletCount: store.DbNullInt64(request.AskedForToiletCount),
		Mood:                store.DbString(request.Mood),
		HadAccident:         request.HadAccident.Db(),
		AccidentDescription: store.DbString(request.AccidentDescription),
		HealthIssue:         request.HealthIssue.Db(),
		HealthDescription:   store.DbString(request.HealthDescription),
		Observations:        store.DbString(request.Observations),
		LogStaffId:          store.DbString(authorized.StaffId),
	}
	dailyLog.SetPhotos(photos)

	record, err := c.Store.SubmitDailyLog(nil, dailyLog)
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to submit daily log")
	}
	c.countTransition(custody.ActionDailyLog, nil)

	return c.toRecord(ctx, record), nil
}

// storePhotos uploads new images and keeps references to images already stored.
func (c *CustodyService) storePhotos(ctx context.Context, images []string, folder string) ([]string, error) {
	photos := make([]string, 0, len(images))
	for _, image := range images {
		if image == "" {
			continue
		}
		if !storage.IsEncodedImage(image) {
			photos = append(photos, image)
			continue
		}
		fileName, err := c.Storage.Store(ctx, image, folder)
		if err != nil {
			if err == storage.ErrUnsupportedFileFormat || err == storage.ErrInvalidEncoding {
				return nil, err
			}
			return nil, errors.Wrap(err, "failed to store photo")
		}
		photos = append(photos, fileName)
	}
	return photos, nil
}

func (c *CustodyService) CheckOut(ctx context.Context, request CheckOutTransport) (Record, error) {
	authorized, err := authorizedFromContext(ctx)
	if err != nil {
		return Record{}, err
	}

	child, day, loc, err := c.target(ctx, authorized, request.ChildId, request.Date)
	if err != nil {
		return Record{}, err
	}
	if err := custody.ValidateDeparture(request.PickedUpBy); err != nil {
		return Record{}, err
	}
	leftAt, err := dates.At(day, request.Time, loc)
	if err != nil {
		return Record{}, err
	}

	record, err := c.Store.CheckOut(nil, store.CustodyRecord{
		DaycareId:              child.DaycareId,
		ChildId:                child.ChildId,
		Date:                   day.Time(),
		CheckedOutAt:           &leftAt,
		PickedUpBy:             store.DbString(strings.TrimSpace(request.PickedUpBy)),
		ReleasedClean:          request.ReleasedClean.Db(),
		ReleasedWithBelongings: request.ReleasedWithBelongings.Db(),
		CheckOutStaffId:        store.DbString(authorized.StaffId),
	})
	if err == store.ErrCustodyConflict {
		err = c.refusal(custody.ActionCheckOut, child, day)
		c.countTransition(custody.ActionCheckOut, err)
		return Record{}, err
	}
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to check out")
	}
	c.countTransition(custody.ActionCheckOut, nil)

	c.publish(ctx, authorized, messaging.CustodyCheckedOutEventType, record, record.PickedUpBy.String)
	return c.toRecord(ctx, record), nil
}

// refusal names why the store refused action, reading the key as it stands now.
func (c *CustodyService) refusal(action custody.Action, child store.Child, day dates.Date) error {
	var current *store.CustodyRecord
	record, err := c.Store.GetCustodyRecord(nil, child.DaycareId.String, child.ChildId.String, day.Time())
	switch err {
	case nil:
		current = &record
	case store.ErrCustodyRecordNotFound:
	default:
		return errors.Wrap(err, "failed to get custody record")
	}
	if _, err := custody.Next(action, current); err != nil {
		return err
	}
	return store.ErrCustodyConflict
}

func (c *CustodyService) DailyStatus(ctx context.Context, date string) (DailyStatus, error) {
	authorized, err := authorizedFromContext(ctx)
	if err != nil {
		return DailyStatus{}, err
	}

	loc, err := c.location(ctx, authorized.DaycareId)
	if err != nil {
		return DailyStatus{}, err
	}
	day, err := c.Calendar.Resolve(date, loc)
	if err != nil {
		return DailyStatus{}, err
	}

	children, err := c.Store.ListChildren(nil, authorized.SearchOptions())
	if err != nil {
		return DailyStatus{}, errors.Wrap(err, "failed to list children")
	}
	records, err := c.Store.ListCustodyRecords(nil, authorized.DaycareId, day.Time())
	if err != nil {
		return DailyStatus{}, errors.Wrap(err, "failed to list custody records")
	}
	byChild := make(map[string]store.CustodyRecord, len(records))
	for _, record := range records {
		byChild[record.ChildId.String] = record
	}

	status := DailyStatus{
		Date:     day,
		Children: make([]ChildStatus, 0, len(children)),
	}
	for _, child := range children {
		childStatus := ChildStatus{Child: child, State: custody.Absent}
		if record, ok := byChild[child.ChildId.String]; ok {
			r := c.toRecord(ctx, record)
			childStatus.Record = &r
			childStatus.State = r.State
		}
		childStatus.Display = custody.Display(childStatus.State)

		status.Summary.Total++
		switch childStatus.Display {
		case custody.DisplayPresent:
			status.Summary.Present++
		case custody.DisplayComplete:
			status.Summary.Departed++
		default:
			status.Summary.Absent++
		}
		status.Children = append(status.Children, childStatus)
	}
	return status, nil
}

func (c *CustodyService) GetRecord(ctx context.Context, childId, date string) (Record, error) {
	authorized, err := authorizedFromContext(ctx)
	if err != nil {
		return Record{}, err
	}
	if err := authorized.CanSeeChild(childId); err != nil {
		return Record{}, err
	}

	child, day, _, err := c.target(ctx, authorized, childId, date)
	if err != nil {
		return Record{}, err
	}
	record, err := c.Store.GetCustodyRecord(nil, authorized.DaycareId, child.ChildId.String, day.Time())
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to get custody record")
	}
	return c.toRecord(ctx, record), nil
}

func (c *CustodyService) toRecord(ctx context.Context, record store.CustodyRecord) Record {
	r := Record{
		CustodyRecord: record,
		State:         custody.StateOf(&record),
		PhotoUrls:     make([]string, 0, custody.MaxPhotos),
	}
	for _, photo := range record.Photos() {
		url, err := c.Storage.Get(ctx, photo)
		if err != nil {
			c.Logger.Warn(ctx, "failed to sign photo url", "photo", photo, "err", err)
			continue
		}
		r.PhotoUrls = append(r.PhotoUrls, url)
	}
	return r
}

func (c *CustodyService) countTransition(action custody.Action, err error) {
	outcome := metrics.OutcomeOk
	if err != nil {
		outcome = metrics.OutcomeRejected
	}
	metrics.CustodyTransitions.WithLabelValues(string(action), outcome).Inc()
}

// publish notifies the event bus of a transition. A failure is logged and does not fail the request.
func (c *CustodyService) publish(ctx context.Context, authorized claims.AuthorizedContext, eventType string, record store.CustodyRecord, pickedUpBy string) {
	if c.Publisher == nil {
		return
	}
	at := record.UpdatedAt
	if eventType == messaging.CustodyCheckedInEventType && record.CheckedInAt != nil {
		at = *record.CheckedInAt
	}
	if eventType == messaging.CustodyCheckedOutEventType && record.CheckedOutAt != nil {
		at = *record.CheckedOutAt
	}

	msg, err := messaging.NewEventMessage(messaging.Event{
		Type:     eventType,
		SenderId: authorized.UserId,
		CustodyEvent: &messaging.CustodyEvent{
			DaycareId:  record.DaycareId.String,
			ChildId:    record.ChildId.String,
			Date:       dates.FromTime(record.Date).String(),
			At:         at,
			PickedUpBy: pickedUpBy,
		},
	})
	if err != nil {
		c.Logger.Err(ctx, "failed to build custody event", "err", err)
		return
	}

	timeout := c.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Publisher.Publish(ctx, msg); err != nil {
		c.Logger.Warn(ctx, "failed to publish custody event", "type", eventType, "childId", record.ChildId.String, "err", err)
	}
}
