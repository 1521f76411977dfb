package subscriptions

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cear54/api-t-cuida/common/dates"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/metrics"
	"github.com/cear54/api-t-cuida/common/store"

	"github.com/jinzhu/gorm"
)

const (
	ReasonNoSubscription = "no subscription"
	ReasonTrialEnded     = "trial ended"
	ReasonExpired        = "subscription expired"
	ReasonUnavailable    = "subscription could not be verified"
)

type Decision struct {
	Allowed bool
	Reason  string
	Status  int
}

func Allowed() Decision {
	return Decision{Allowed: true, Status: http.StatusOK}
}

func Denied(reason string, status int) Decision {
	return Decision{Reason: reason, Status: status}
}

// Evaluate decides on the latest subscription of a daycare, sub being nil when it has none.
// Missing end dates are open ended. The paid period only matters once the trial is over.
func Evaluate(sub *store.Subscription, today dates.Date) Decision {
	if sub == nil {
		return Denied(ReasonNoSubscription, http.StatusForbidden)
	}
	if sub.Status.Terminal() {
		return Denied(fmt.Sprintf("subscription %s", sub.Status), http.StatusForbidden)
	}
	if sub.Trialing() {
		if sub.TrialEndsOn != nil && today.After(dates.FromTime(*sub.TrialEndsOn)) {
			return Denied(ReasonTrialEnded, http.StatusForbidden)
		}
		return Allowed()
	}
	if sub.PaidUntil != nil && today.After(dates.FromTime(*sub.PaidUntil)) {
		return Denied(ReasonExpired, http.StatusForbidden)
	}
	return Allowed()
}

type Gate struct {
	Store interface {
		GetDaycare(tx *gorm.DB, daycareId string) (store.Daycare, error)
		GetLatestSubscription(tx *gorm.DB, daycareId string) (store.Subscription, error)
	} `inject:""`
	Calendar *dates.Calendar `inject:""`
	Logger   *log.Logger     `inject:""`
}

// Check reads the subscription fresh on every call and evaluates it against the daycare's local day.
func (g *Gate) Check(ctx context.Context, daycareId string) Decision {
	daycare, err := g.Store.GetDaycare(nil, daycareId)
	if err != nil && err != store.ErrDaycareNotFound {
		g.Logger.Err(ctx, "failed to get daycare", "daycareId", daycareId, "err", err)
		return Denied(ReasonUnavailable, http.StatusInternalServerError)
	}
	today := g.Calendar.Today(g.Calendar.Location(daycare.Timezone.String))

	var decision Decision
	subscription, err := g.Store.GetLatestSubscription(nil, daycareId)
	switch err {
	case nil:
		decision = Evaluate(&subscription, today)
	case store.ErrSubscriptionNotFound:
		decision = Evaluate(nil, today)
	default:
		g.Logger.Err(ctx, "failed to get subscription", "daycareId", daycareId, "err", err)
		return Denied(ReasonUnavailable, http.StatusInternalServerError)
	}

	if !decision.Allowed {
		metrics.SubscriptionDenials.WithLabelValues(decision.Reason).Inc()
		g.Logger.Info(ctx, "access denied by subscription", "daycareId", daycareId, "reason", decision.Reason)
	}
	return decision
}
