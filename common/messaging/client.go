package messaging

import (
	"context"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const ackDeadline = 20 * time.Second

var ErrNoTopic = errors.New("client has no topic to publish to")

type Publisher interface {
	Publish(ctx context.Context, message Message) error
}

type Client struct {
	googlePubSubClient *pubsub.Client
	topicName          string
	subscriptionName   string
	topic              *pubsub.Topic
	subscription       *pubsub.Subscription
}

type ClientOptions struct {
	ProjectID      string
	Topic          string
	Subscription   string
	CredentialPath string
}

type SubscribeCallbackFunc func(ctx context.Context, msg Message)

func New(ctx context.Context, config ClientOptions) (*Client, error) {
	var opts []option.ClientOption
	if config.CredentialPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialPath))
	}

	var err error
	client := &Client{
		topicName:        config.Topic,
		subscriptionName: config.Subscription,
	}
	client.googlePubSubClient, err = pubsub.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Google Pub/Sub client")
	}
	if config.Topic != "" {
		client.topic = client.googlePubSubClient.Topic(config.Topic)
	}
	if config.Subscription != "" {
		client.subscription = client.googlePubSubClient.Subscription(config.Subscription)
	}
	return client, nil
}

func (s *Client) Close() error {
	if s.topic != nil {
		s.topic.Stop()
	}
	return s.googlePubSubClient.Close()
}

func (s *Client) Subscribe(ctx context.Context, callback SubscribeCallbackFunc) error {
	if s.subscription == nil {
		return errors.New("client has no subscription to pull from")
	}
	err := s.subscription.Receive(ctx, s.provideReceiveHandler(callback))
	if err != nil {
		return errors.Wrapf(err, "failed to pull messages from Google Pub/Sub subscription %s", s.subscriptionName)
	}

	return nil
}

func (s *Client) provideReceiveHandler(callback SubscribeCallbackFunc) func(ctx context.Context, pubSubMsg *pubsub.Message) {
	return func(ctx context.Context, pubSubMsg *pubsub.Message) {
		callback(ctx, newMessageFromPubSubMessage(pubSubMsg))
	}
}

func newMessageFromPubSubMessage(pubSubMsg *pubsub.Message) (msg Message) {
	msg.ID = pubSubMsg.ID
	msg.Data = pubSubMsg.Data
	msg.Attributes = pubSubMsg.Attributes
	msg.PublishTime = pubSubMsg.PublishTime

	msg.OnAck(pubSubMsg.Ack)
	msg.OnNack(pubSubMsg.Nack)
	if msg.Attributes == nil {
		msg.Attributes = make(map[string]string)
	}
	return
}

func (s *Client) Publish(ctx context.Context, message Message) (err error) {
	if s.topic == nil {
		return ErrNoTopic
	}
	msg := &pubsub.Message{
		Data:       message.Data,
		Attributes: message.Attributes,
	}

	if _, err = s.topic.Publish(ctx, msg).Get(ctx); err != nil {
		err = errors.Wrapf(err, "failed to publish in Google Pub/Sub topic %s", s.topicName)
	}

	return err
}

// EnsureTopicAndSubscription creates the configured topic, and the subscription when one is configured.
func (s *Client) EnsureTopicAndSubscription(ctx context.Context) error {
	topic, err := s.ensureTopic(ctx)
	if err != nil {
		return err
	}
	if s.subscriptionName == "" {
		return nil
	}

	exists, err := s.subscription.Exists(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to check subscription %s", s.subscriptionName)
	}
	if exists {
		return nil
	}
	_, err = s.googlePubSubClient.CreateSubscription(ctx, s.subscriptionName, pubsub.SubscriptionConfig{
		Topic:               topic,
		RetainAckedMessages: false,
		AckDeadline:         ackDeadline,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create subscription %s", s.subscriptionName)
	}
	return nil
}

func (s *Client) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	it := s.googlePubSubClient.Topics(ctx)
	for {
		topic, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to list topics")
		}
		if topic.ID() == s.topicName {
			return topic, nil
		}
	}

	topic, err := s.googlePubSubClient.CreateTopic(ctx, s.topicName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create topic %s", s.topicName)
	}
	return topic, nil
}

// Discard is the publisher used when no topic is configured.
type Discard struct{}

func (Discard) Publish(ctx context.Context, message Message) error {
	return nil
}
