package messaging_test

import (
	"time"

	. "github.com/cear54/api-t-cuida/common/messaging"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Events", func() {

	It("should carry a custody event through a message", func() {
		at := time.Date(2024, time.March, 1, 17, 30, 0, 0, time.UTC)
		msg, err := NewEventMessage(Event{
			Type:     CustodyCheckedOutEventType,
			SenderId: "user-1",
			CustodyEvent: &CustodyEvent{
				DaycareId:  "daycare-1",
				ChildId:    "child-1",
				Date:       "2024-03-01",
				At:         at,
				PickedUpBy: "Maria",
			},
		})
		Expect(err).To(BeNil())
		Expect(msg.Attributes).To(Equal(map[string]string{"type": CustodyCheckedOutEventType, "daycareId": "daycare-1"}))
		Expect(msg.Type()).To(Equal(CustodyCheckedOutEventType))
		Expect(msg.DaycareId()).To(Equal("daycare-1"))

		event, err := DecodeEvent(msg)
		Expect(err).To(BeNil())
		Expect(event.Type).To(Equal(CustodyCheckedOutEventType))
		Expect(event.ChildId).To(Equal("child-1"))
		Expect(event.PickedUpBy).To(Equal("Maria"))
		Expect(event.At.Equal(at)).To(BeTrue())
	})

	It("should reject garbage", func() {
		_, err := DecodeEvent(Message{Data: []byte("not json")})
		Expect(err).NotTo(BeNil())
	})

	It("should acknowledge through the registered callbacks", func() {
		acked, nacked := false, false
		msg := Message{}
		Expect(msg.Ack).NotTo(Panic())
		msg.OnAck(func() { acked = true })
		msg.OnNack(func() { nacked = true })
		msg.Ack()
		msg.Nack()
		Expect(acked).To(BeTrue())
		Expect(nacked).To(BeTrue())
	})
})
