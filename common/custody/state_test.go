package custody_test

import (
	"time"

	. "github.com/cear54/api-t-cuida/common/custody"
	"github.com/cear54/api-t-cuida/common/store"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var (
	stamp = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

	absent          *store.CustodyRecord
	checkedIn       = &store.CustodyRecord{CheckedInAt: &stamp}
	logged          = &store.CustodyRecord{LogSubmittedAt: &stamp}
	checkedInLogged = &store.CustodyRecord{CheckedInAt: &stamp, LogSubmittedAt: &stamp}
	checkedOut      = &store.CustodyRecord{CheckedInAt: &stamp, LogSubmittedAt: &stamp, CheckedOutAt: &stamp}
)

var _ = Describe("State machine", func() {

	DescribeTable("deriving the state of a record",
		func(record *store.CustodyRecord, state State, display string) {
			Expect(StateOf(record)).To(Equal(state))
			Expect(Display(StateOf(record))).To(Equal(display))
		},
		Entry("no record", absent, Absent, DisplayAbsent),
		Entry("empty record", &store.CustodyRecord{}, Absent, DisplayAbsent),
		Entry("checked in", checkedIn, CheckedIn, DisplayPresent),
		Entry("logged only", logged, Logged, DisplayAbsent),
		Entry("checked in and logged", checkedInLogged, CheckedInLogged, DisplayPresent),
		Entry("checked out", checkedOut, CheckedOut, DisplayComplete),
	)

	DescribeTable("applying an action",
		func(action Action, record *store.CustodyRecord, next State, expectedErr error) {
			state, err := Next(action, record)
			if expectedErr != nil {
				Expect(err).To(Equal(expectedErr))
			} else {
				Expect(err).To(BeNil())
			}
			Expect(state).To(Equal(next))
		},
		Entry("check-in of an absent child", ActionCheckIn, absent, CheckedIn, nil),
		Entry("check-in after an early daily log", ActionCheckIn, logged, CheckedInLogged, nil),
		Entry("second check-in", ActionCheckIn, checkedIn, CheckedIn, ErrAlreadyCheckedIn),
		Entry("check-in after check-out", ActionCheckIn, checkedOut, CheckedOut, ErrAlreadyCheckedIn),

		Entry("daily log of an absent child", ActionDailyLog, absent, Logged, nil),
		Entry("daily log of a present child", ActionDailyLog, checkedIn, CheckedInLogged, nil),
		Entry("daily log revision", ActionDailyLog, checkedInLogged, CheckedInLogged, nil),
		Entry("daily log after check-out", ActionDailyLog, checkedOut, CheckedOut, nil),

		Entry("check-out of an absent child", ActionCheckOut, absent, Absent, ErrNoCheckIn),
		Entry("check-out with only a daily log", ActionCheckOut, logged, Logged, ErrNoCheckIn),
		Entry("check-out without a daily log", ActionCheckOut, checkedIn, CheckedIn, ErrDailyLogRequired),
		Entry("check-out of a logged child", ActionCheckOut, checkedInLogged, CheckedOut, nil),
		Entry("second check-out", ActionCheckOut, checkedOut, CheckedOut, ErrAlreadyCheckedOut),
	)

	It("should report check-out preconditions in order", func() {
		// a record checked out without check-in cannot exist, but the check-in precondition still wins
		Expect(CanCheckOut(&store.CustodyRecord{CheckedOutAt: &stamp})).To(Equal(ErrNoCheckIn))
		Expect(CanCheckOut(&store.CustodyRecord{CheckedInAt: &stamp, CheckedOutAt: &stamp})).To(Equal(ErrAlreadyCheckedOut))
	})

	It("should classify errors", func() {
		Expect(IsConflict(ErrAlreadyCheckedIn)).To(BeTrue())
		Expect(IsConflict(ErrAlreadyCheckedOut)).To(BeTrue())
		Expect(IsFailedPrecondition(ErrNoCheckIn)).To(BeTrue())
		Expect(IsFailedPrecondition(ErrDailyLogRequired)).To(BeTrue())
		Expect(IsConflict(ErrNoCheckIn)).To(BeFalse())
	})
})

var _ = Describe("Validation", func() {

	temperature := func(t float64) *float64 { return &t }

	DescribeTable("vitals",
		func(t *float64, ill bool, description string, expectedErr error) {
			err := ValidateVitals(t, ill, description)
			if expectedErr == nil {
				Expect(err).To(BeNil())
			} else {
				Expect(err).To(Equal(expectedErr))
			}
		},
		Entry("normal temperature", temperature(36.5), false, "", nil),
		Entry("lowest accepted", temperature(30), false, "", nil),
		Entry("highest accepted", temperature(45), false, "", nil),
		Entry("fever is out of range", temperature(50.0), false, "", ErrTemperatureOutOfRange),
		Entry("too cold", temperature(29.9), false, "", ErrTemperatureOutOfRange),
		Entry("missing temperature", nil, false, "", ErrTemperatureRequired),
		Entry("ill without description", temperature(37.8), true, "  ", ErrIllnessDescriptionRequired),
		Entry("ill with description", temperature(37.8), true, "runny nose", nil),
	)

	It("should require breakfast and cap photos", func() {
		Expect(ValidateDailyLog("oatmeal", 3)).To(Succeed())
		Expect(ValidateDailyLog("", 0)).To(Equal(ErrBreakfastRequired))
		Expect(ValidateDailyLog("oatmeal", 4)).To(Equal(ErrTooManyPhotos))
	})

	It("should require the person picking up", func() {
		Expect(ValidateDeparture("Maria")).To(Succeed())
		Expect(ValidateDeparture(" ")).To(Equal(ErrPickupPersonRequired))
		Expect(IsInvalid(ErrPickupPersonRequired)).To(BeTrue())
	})
})
