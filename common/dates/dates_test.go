package dates_test

import (
	"time"

	. "github.com/cear54/api-t-cuida/common/dates"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Dates", func() {

	Describe("Parse", func() {
		It("should accept a YYYY-MM-DD date", func() {
			d, err := Parse("2024-03-01")
			Expect(err).To(BeNil())
			Expect(d).To(Equal(New(2024, time.March, 1)))
			Expect(d.String()).To(Equal("2024-03-01"))
		})

		It("should reject malformed or impossible dates", func() {
			for _, value := range []string{"2024-3-01", "01/03/2024", "2024-02-30", "2024-03-01T10:00:00", " 2024-03-01", ""} {
				_, err := Parse(value)
				Expect(err).To(Equal(ErrInvalidDate), value)
			}
		})
	})

	Describe("Calendar", func() {
		var (
			calendar *Calendar
			mexico   *time.Location
		)

		BeforeEach(func() {
			var err error
			calendar, err = NewCalendar("")
			Expect(err).To(BeNil())
			mexico, err = time.LoadLocation(DefaultTimezone)
			Expect(err).To(BeNil())
			// 2024-01-11 03:30 UTC is still the 10th in Mexico City
			calendar.Now = func() time.Time { return time.Date(2024, time.January, 11, 3, 30, 0, 0, time.UTC) }
		})

		It("should compute the tenant-local day", func() {
			Expect(calendar.Today(mexico)).To(Equal(New(2024, time.January, 10)))
			Expect(calendar.Today(time.UTC)).To(Equal(New(2024, time.January, 11)))
		})

		It("should fall back to the default location", func() {
			Expect(calendar.Location("").String()).To(Equal(DefaultTimezone))
			Expect(calendar.Location("Not/AZone").String()).To(Equal(DefaultTimezone))
			Expect(calendar.Location("UTC").String()).To(Equal("UTC"))
		})

		It("should prefer the supplied date", func() {
			d, err := calendar.Resolve("2024-03-01", mexico)
			Expect(err).To(BeNil())
			Expect(d).To(Equal(New(2024, time.March, 1)))

			d, err = calendar.Resolve("", mexico)
			Expect(err).To(BeNil())
			Expect(d).To(Equal(New(2024, time.January, 10)))

			_, err = calendar.Resolve("2024/03/01", mexico)
			Expect(err).To(Equal(ErrInvalidDate))
		})

		It("should refuse an unknown default timezone", func() {
			_, err := NewCalendar("Mars/Olympus")
			Expect(err).NotTo(BeNil())
		})
	})

	Describe("At", func() {
		day := New(2024, time.March, 1)

		It("should read a clock in the given location", func() {
			t, err := At(day, "08:15", time.UTC)
			Expect(err).To(BeNil())
			Expect(t).To(Equal(time.Date(2024, time.March, 1, 8, 15, 0, 0, time.UTC)))

			t, err = At(day, "17:45:30", time.UTC)
			Expect(err).To(BeNil())
			Expect(t).To(Equal(time.Date(2024, time.March, 1, 17, 45, 30, 0, time.UTC)))
		})

		It("should accept a full timestamp", func() {
			t, err := At(day, "2024-03-01 09:00:00", time.UTC)
			Expect(err).To(BeNil())
			Expect(t).To(Equal(time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)))
		})

		It("should reject an empty or invalid clock", func() {
			_, err := At(day, "", time.UTC)
			Expect(err).To(Equal(ErrInvalidClock))
			_, err = At(day, "after lunch", time.UTC)
			Expect(err).To(Equal(ErrInvalidClock))
		})
	})

	It("should order days", func() {
		Expect(New(2024, time.January, 11).After(New(2024, time.January, 10))).To(BeTrue())
		Expect(New(2024, time.January, 9).After(New(2024, time.January, 10))).To(BeFalse())
		Expect(New(2024, time.January, 9).Before(New(2024, time.January, 10))).To(BeTrue())
	})
})
