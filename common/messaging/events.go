package messaging

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const (
	CustodyCheckedInEventType  = "custodyCheckedIn"
	CustodyCheckedOutEventType = "custodyCheckedOut"

	eventTypeAttribute = "type"
	daycareAttribute   = "daycareId"
)

type Event struct {
	Type     string `json:"type"`
	SenderId string `json:"senderId"`
	*CustodyEvent
}

type CustodyEvent struct {
	DaycareId  string    `json:"daycareId"`
	ChildId    string    `json:"childId"`
	Date       string    `json:"date"`
	At         time.Time `json:"at"`
	PickedUpBy string    `json:"pickedUpBy,omitempty"`
}

func NewEventMessage(event Event) (Message, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return Message{}, errors.Wrap(err, "failed to marshal event")
	}
	msg := Message{
		Data:       b,
		Attributes: map[string]string{eventTypeAttribute: event.Type},
	}
	if event.CustodyEvent != nil {
		msg.Attributes[daycareAttribute] = event.DaycareId
	}
	return msg, nil
}

func DecodeEvent(msg Message) (Event, error) {
	event := Event{}
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, errors.Wrap(err, "failed to unmarshal the message data")
	}
	return event, nil
}
