package consumers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cear54/api-t-cuida/common/dates"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/messaging"
	"github.com/cear54/api-t-cuida/common/notifications"
	"github.com/cear54/api-t-cuida/common/store"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

const custodyNotificationHandlerName = "custodyNotification"

// CustodyNotificationHandler pushes check-in and check-out notices to the guardians of the child.
type CustodyNotificationHandler struct {
	Store interface {
		GetDaycare(tx *gorm.DB, daycareId string) (store.Daycare, error)
		GetChild(tx *gorm.DB, childId string, options store.SearchOptions) (store.Child, error)
		ListGuardianDeviceTokens(tx *gorm.DB, daycareId, childId string) ([]string, error)
	} `inject:""`
	Sender interface {
		Send(ctx context.Context, notification notifications.Notification) (string, error)
	} `inject:""`
	Calendar *dates.Calendar `inject:""`
	Logger   *log.Logger     `inject:""`
}

func (h *CustodyNotificationHandler) CanHandle(event messaging.Event) bool {
	if event.CustodyEvent == nil {
		return false
	}
	return event.Type == messaging.CustodyCheckedInEventType || event.Type == messaging.CustodyCheckedOutEventType
}

func (h *CustodyNotificationHandler) Name() string {
	return custodyNotificationHandlerName
}

func (h *CustodyNotificationHandler) Handle(ctx context.Context, event messaging.Event) error {
	if event.CustodyEvent == nil {
		return errors.New("custody event is empty")
	}
	if event.DaycareId == "" || event.ChildId == "" {
		return errors.New("daycareId and childId are mandatory")
	}

	child, err := h.Store.GetChild(nil, event.ChildId, store.SearchOptions{DaycareId: event.DaycareId})
	if err != nil {
		return errors.Wrap(err, "failed to get child")
	}
	tokens, err := h.Store.ListGuardianDeviceTokens(nil, event.DaycareId, event.ChildId)
	if err != nil {
		return errors.Wrap(err, "failed to list guardian devices")
	}
	if len(tokens) == 0 {
		h.Logger.Info(ctx, "no guardian device to notify", "childId", event.ChildId)
		return nil
	}

	title, body := h.message(event, child)
	failed := 0
	for _, token := range tokens {
		if _, err := h.Sender.Send(ctx, notifications.Notification{
			Token: token,
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":    event.Type,
				"nino_id": event.ChildId,
				"fecha":   event.Date,
			},
		}); err != nil {
			failed++
			h.Logger.Warn(ctx, "failed to notify guardian device", "childId", event.ChildId, "err", err)
		}
	}
	if failed > 0 {
		return errors.Errorf("failed to notify %d of %d devices", failed, len(tokens))
	}
	return nil
}

func (h *CustodyNotificationHandler) message(event messaging.Event, child store.Child) (string, string) {
	name := strings.TrimSpace(child.FirstName.String + " " + child.LastName.String)
	at := event.At.In(h.location(event.DaycareId)).Format("15:04")

	if event.Type == messaging.CustodyCheckedOutEventType {
		body := fmt.Sprintf("%s salió de la guardería a las %s", name, at)
		if event.PickedUpBy != "" {
			body = fmt.Sprintf("%s fue entregado(a) a %s a las %s", name, event.PickedUpBy, at)
		}
		return "Salida registrada", body
	}
	return "Llegada registrada", fmt.Sprintf("%s llegó a la guardería a las %s", name, at)
}

func (h *CustodyNotificationHandler) location(daycareId string) *time.Location {
	daycare, err := h.Store.GetDaycare(nil, daycareId)
	if err != nil {
		return h.Calendar.Location("")
	}
	return h.Calendar.Location(daycare.Timezone.String)
}
