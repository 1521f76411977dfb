package custody

import (
	"github.com/cear54/api-t-cuida/common/store"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyCheckedIn  = errors.New("the child is already checked in for this date")
	ErrNoCheckIn         = errors.New("check-in required before check-out: no check-in on record")
	ErrAlreadyCheckedOut = errors.New("the child is already checked out for this date")
	ErrDailyLogRequired  = errors.New("daily log required before check-out")
)

// State of one (daycare, child, date) key. The machine is terminal once CheckedOut.
type State string

const (
	Absent          State = "absent"
	CheckedIn       State = "checked_in"
	Logged          State = "logged"
	CheckedInLogged State = "checked_in_logged"
	CheckedOut      State = "checked_out"
)

// Display values of the daily roster.
const (
	DisplayAbsent   = "absent"
	DisplayPresent  = "present"
	DisplayComplete = "complete"
)

type Action string

const (
	ActionCheckIn  Action = "check_in"
	ActionDailyLog Action = "daily_log"
	ActionCheckOut Action = "check_out"
)

// transitions lists, per action, the states it may start from and where it leads.
// A daily log is accepted after check-out and leaves the key checked out.
var transitions = map[Action]map[State]State{
	ActionCheckIn: {
		Absent: CheckedIn,
		Logged: CheckedInLogged,
	},
	ActionDailyLog: {
		Absent:          Logged,
		Logged:          Logged,
		CheckedIn:       CheckedInLogged,
		CheckedInLogged: CheckedInLogged,
		CheckedOut:      CheckedOut,
	},
	ActionCheckOut: {
		CheckedInLogged: CheckedOut,
	},
}

// StateOf derives the state from the timestamps of a record, nil meaning no record.
func StateOf(record *store.CustodyRecord) State {
	if record == nil {
		return Absent
	}
	switch {
	case record.CheckedOutAt != nil:
		return CheckedOut
	case record.CheckedInAt != nil && record.LogSubmittedAt != nil:
		return CheckedInLogged
	case record.CheckedInAt != nil:
		return CheckedIn
	case record.LogSubmittedAt != nil:
		return Logged
	}
	return Absent
}

func Display(state State) string {
	switch state {
	case CheckedOut:
		return DisplayComplete
	case CheckedIn, CheckedInLogged:
		return DisplayPresent
	}
	return DisplayAbsent
}

// Next returns the state reached by applying action to record, or the reason it cannot be applied.
func Next(action Action, record *store.CustodyRecord) (State, error) {
	from := StateOf(record)
	if to, ok := transitions[action][from]; ok {
		return to, nil
	}

	switch action {
	case ActionCheckIn:
		return from, ErrAlreadyCheckedIn
	case ActionCheckOut:
		return from, CanCheckOut(record)
	}
	return from, errors.Errorf("cannot %s from %s", action, from)
}

// CanCheckOut reports the first unmet check-out precondition, in order.
func CanCheckOut(record *store.CustodyRecord) error {
	if record == nil || record.CheckedInAt == nil {
		return ErrNoCheckIn
	}
	if record.CheckedOutAt != nil {
		return ErrAlreadyCheckedOut
	}
	if record.LogSubmittedAt == nil {
		return ErrDailyLogRequired
	}
	return nil
}

func IsConflict(err error) bool {
	switch errors.Cause(err) {
	case ErrAlreadyCheckedIn, ErrAlreadyCheckedOut:
		return true
	}
	return false
}

func IsFailedPrecondition(err error) bool {
	switch errors.Cause(err) {
	case ErrNoCheckIn, ErrDailyLogRequired:
		return true
	}
	return false
}
