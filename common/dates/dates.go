package dates

import (
	"regexp"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

const (
	Layout          = "2006-01-02"
	DefaultTimezone = "America/Mexico_City"
)

var (
	ErrInvalidDate  = errors.New("date must follow the YYYY-MM-DD format")
	ErrInvalidClock = errors.New("time must follow the HH:MM format")

	dateRegexp  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRegexp = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
)

// Date is a calendar day without time of day or location.
type Date struct {
	year  int
	month time.Month
	day   int
}

func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func FromTime(t time.Time) Date {
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// Parse accepts strictly YYYY-MM-DD and never corrects the value.
func Parse(value string) (Date, error) {
	if !dateRegexp.MatchString(value) {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(Layout, value)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return FromTime(t), nil
}

func (d Date) IsZero() bool {
	return d.year == 0
}

func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// Time returns midnight UTC of the day, the form stored in DATE columns.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return d.Time().Format(Layout)
}

// Calendar computes tenant-local days.
type Calendar struct {
	DefaultLocation *time.Location
	Now             func() time.Time
}

func NewCalendar(defaultTimezone string) (*Calendar, error) {
	if defaultTimezone == "" {
		defaultTimezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown timezone %s", defaultTimezone)
	}
	return &Calendar{DefaultLocation: loc, Now: time.Now}, nil
}

// Location resolves a daycare timezone, falling back to the default one when empty or unknown.
func (c *Calendar) Location(timezone string) *time.Location {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			return loc
		}
	}
	if c.DefaultLocation != nil {
		return c.DefaultLocation
	}
	return time.UTC
}

func (c *Calendar) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Calendar) Today(loc *time.Location) Date {
	return FromTime(c.now().In(loc))
}

// Resolve returns the supplied date when present, today in loc otherwise.
func (c *Calendar) Resolve(value string, loc *time.Location) (Date, error) {
	if value == "" {
		return c.Today(loc), nil
	}
	return Parse(value)
}

// At combines a day with a clock value. HH:MM and HH:MM:SS are read in loc,
// anything else must be a full timestamp.
func At(d Date, value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, ErrInvalidClock
	}
	if clockRegexp.MatchString(value) {
		layout := "15:04"
		if len(value) == len("15:04:05") {
			layout = "15:04:05"
		}
		clock, err := time.Parse(layout, value)
		if err != nil {
			return time.Time{}, ErrInvalidClock
		}
		return time.Date(d.year, d.month, d.day, clock.Hour(), clock.Minute(), clock.Second(), 0, loc), nil
	}

	t, err := dateparse.ParseIn(value, loc)
	if err != nil {
		return time.Time{}, ErrInvalidClock
	}
	return t, nil
}
