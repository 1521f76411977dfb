package notifications

import (
	"context"
	"time"

	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/metrics"

	firebase "firebase.google.com/go/v4"
	fcm "firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"
)

const breakerName = "FCM"

var ErrEmptyToken = errors.New("device token is empty")

type Notification struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type Options struct {
	ProjectID      string
	CredentialPath string
}

type client interface {
	Send(ctx context.Context, message *fcm.Message) (string, error)
}

type Sender struct {
	client  client
	breaker *gobreaker.CircuitBreaker
	Logger  *log.Logger `inject:""`
}

func New(ctx context.Context, options Options) (*Sender, error) {
	var opts []option.ClientOption
	if options.CredentialPath != "" {
		opts = append(opts, option.WithCredentialsFile(options.CredentialPath))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: options.ProjectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create firebase app")
	}
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get messaging client")
	}
	return NewWithClient(messagingClient), nil
}

func NewWithClient(c client) *Sender {
	s := &Sender{client: c}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if s.Logger != nil {
				s.Logger.Warn(context.Background(), "circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return s
}

// Send pushes one notification, failing fast while the provider is considered down.
func (s *Sender) Send(ctx context.Context, notification Notification) (string, error) {
	if notification.Token == "" {
		return "", ErrEmptyToken
	}
	id, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Send(ctx, &fcm.Message{
			Token: notification.Token,
			Notification: &fcm.Notification{
				Title: notification.Title,
				Body:  notification.Body,
			},
			Data: notification.Data,
		})
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			metrics.NotificationsSent.WithLabelValues(metrics.OutcomeRejected).Inc()
		} else {
			metrics.NotificationsSent.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return "", errors.Wrap(err, "failed to send notification")
	}
	metrics.NotificationsSent.WithLabelValues(metrics.OutcomeOk).Inc()
	return id.(string), nil
}
