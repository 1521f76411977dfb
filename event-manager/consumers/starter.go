package consumers

import (
	"context"
	"time"

	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/messaging"

	"github.com/pkg/errors"
)

type EventHandler interface {
	CanHandle(event messaging.Event) bool
	Handle(ctx context.Context, event messaging.Event) error
	Name() string
}

type Consumer struct {
	Logger     *log.Logger `inject:""`
	Subscriber interface {
		Subscribe(ctx context.Context, callback messaging.SubscribeCallbackFunc) error
	} `inject:""`
	EventHandlers []EventHandler
}

func (c *Consumer) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			c.Logger.Info(ctx, "starting consumer")
			if err := c.Subscriber.Subscribe(ctx, c.Dispatch); err != nil {
				c.Logger.Warn(ctx, "consumer stopped", "err", errors.Wrap(err, "failed to subscribe to the messaging system"))
				time.Sleep(time.Second)
			}
		}
	}
}

// Dispatch acks the message and hands it to the first handler able to consume it.
func (c *Consumer) Dispatch(ctx context.Context, msg messaging.Message) {
	msg.Ack()

	event, err := messaging.DecodeEvent(msg)
	if err != nil {
		c.Logger.Err(ctx, "failed to decode event", "err", err, "messageId", msg.ID)
		return
	}

	for _, eventHandler := range c.EventHandlers {
		if eventHandler.CanHandle(event) {
			if err := eventHandler.Handle(ctx, event); err != nil {
				c.Logger.Err(ctx, "failed to handle message", "err", err, "messageId", msg.ID, "handler", eventHandler.Name())
			} else {
				c.Logger.Info(ctx, "message successfully handled", "messageId", msg.ID, "handler", eventHandler.Name())
			}
			return
		}
	}
	c.Logger.Warn(ctx, "no handlers were able to consume this message", "messageId", msg.ID, "type", msg.Type(), "daycareId", msg.DaycareId())
}
