package messaging

import "time"

// Message is a pub/sub message detached from the client that pulled it.
type Message struct {
	ID          string
	Data        []byte
	Attributes  map[string]string
	PublishTime time.Time

	ack  func()
	nack func()
}

func (m Message) Type() string {
	return m.Attributes[eventTypeAttribute]
}

func (m Message) DaycareId() string {
	return m.Attributes[daycareAttribute]
}

// Ack is a no-op for messages that were not pulled from a subscription.
func (m Message) Ack() {
	if m.ack != nil {
		m.ack()
	}
}

func (m Message) Nack() {
	if m.nack != nil {
		m.nack()
	}
}

func (m *Message) OnAck(f func()) {
	m.ack = f
}

func (m *Message) OnNack(f func()) {
	m.nack = f
}
