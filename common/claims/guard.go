package claims

import (
	"github.com/pkg/errors"
)

var (
	ErrMissingTenant = errors.New("token carries no daycare")
	ErrMissingActor  = errors.New("token carries no identifier for this role")
	ErrForbidden     = errors.New("you are not allowed to perform this action")
)

type Capability int

const (
	ViewSession Capability = iota + 1
	CheckIn
	CheckOut
	SubmitDailyLog
	ReadDailyStatus
	ReadCustodyRecord
	RegisterDevice
	ManageAccounts
)

var capabilityNames = map[Capability]string{
	ViewSession:       "view_session",
	CheckIn:           "check_in",
	CheckOut:          "check_out",
	SubmitDailyLog:    "submit_daily_log",
	ReadDailyStatus:   "read_daily_status",
	ReadCustodyRecord: "read_custody_record",
	RegisterDevice:    "register_device",
	ManageAccounts:    "manage_accounts",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

var (
	guardianCapabilities = capabilities(ViewSession, ReadCustodyRecord, RegisterDevice)
	staffCapabilities    = capabilities(ViewSession, CheckIn, CheckOut, SubmitDailyLog, ReadDailyStatus, ReadCustodyRecord, RegisterDevice)

	// actions recorded against the staff member performing them
	staffIdRequired = capabilities(CheckIn, CheckOut, SubmitDailyLog)
)

func capabilities(list ...Capability) map[Capability]bool {
	set := make(map[Capability]bool, len(list))
	for _, c := range list {
		set[c] = true
	}
	return set
}

// Authorize checks that the claims can exercise the capability and returns
// the context downstream handlers must scope their storage access with.
func Authorize(c Claims, capability Capability) (AuthorizedContext, error) {
	if c.DaycareId == "" {
		return AuthorizedContext{}, ErrMissingTenant
	}
	if c.Actor == nil {
		return AuthorizedContext{}, ErrForbidden
	}

	authorized := AuthorizedContext{
		DaycareId: c.DaycareId,
		UserId:    c.UserId,
		Role:      c.Actor.Role(),
	}

	switch actor := c.Actor.(type) {
	case Guardian:
		if actor.ChildId == "" {
			return AuthorizedContext{}, ErrMissingActor
		}
		if !guardianCapabilities[capability] {
			return AuthorizedContext{}, ErrForbidden
		}
		authorized.ChildId = actor.ChildId
	case Staff:
		if !staffCapabilities[capability] {
			return AuthorizedContext{}, ErrForbidden
		}
		if staffIdRequired[capability] && actor.StaffId == "" {
			return AuthorizedContext{}, ErrMissingActor
		}
		authorized.StaffId = actor.StaffId
	case Admin:
		if staffIdRequired[capability] && actor.StaffId == "" {
			return AuthorizedContext{}, ErrMissingActor
		}
		authorized.StaffId = actor.StaffId
	default:
		return AuthorizedContext{}, ErrForbidden
	}

	return authorized, nil
}
