package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CustodyTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tcuida_custody_transitions_total",
		Help: "Custody transitions by action and outcome.",
	}, []string{"action", "outcome"})

	SubscriptionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tcuida_subscription_denials_total",
		Help: "Requests refused by the subscription gate, by reason.",
	}, []string{"reason"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tcuida_notifications_sent_total",
		Help: "Push notifications handed to the provider, by outcome.",
	}, []string{"outcome"})
)

const (
	OutcomeOk       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func Handler() http.Handler {
	return promhttp.Handler()
}
