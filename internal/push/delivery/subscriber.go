package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"aura-backend/internal/push/domain"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Classifier is the dispatch port the transports call into.
type Classifier interface {
	Classify(ctx context.Context, msg domain.PushMessage) domain.Outcome
}

// DecodePayload turns an inbound push body into a PushMessage. A body that is
// not a JSON object yields a message with empty data, which the classifier
// routes to its default handler.
func DecodePayload(id string, body []byte) (domain.PushMessage, error) {
	msg := domain.PushMessage{MessageID: id}
	if err := json.Unmarshal(body, &msg); err != nil {
		return domain.PushMessage{MessageID: id, Data: map[string]string{}},
			fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if id != "" {
		msg.MessageID = id
	}
	if msg.Data == nil {
		msg.Data = map[string]string{}
	}
	return msg, nil
}

// Subscriber receives push payloads from a Pub/Sub subscription and hands
// each one to the classifier. Every message is acked.
type Subscriber struct {
	client     *pubsub.Client
	subName    string
	classifier Classifier
	log        *zap.Logger
}

func NewSubscriber(ctx context.Context, projectID, subName, credentialsFile string, classifier Classifier, log *zap.Logger) (*Subscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Subscriber{
		client:     client,
		subName:    subName,
		classifier: classifier,
		log:        log,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("checking subscription %s: %w", s.subName, err)
	}
	if !exists {
		return fmt.Errorf("subscription %s does not exist", s.subName)
	}

	s.log.Info("Listening for push messages", zap.String("subscription", s.subName))
	err = sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		defer m.Ack()
		s.handle(ctx, m.ID, m.Data)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receiving from %s: %w", s.subName, err)
	}
	return nil
}

func (s *Subscriber) handle(ctx context.Context, id string, body []byte) domain.Outcome {
	msg, err := DecodePayload(id, body)
	if err != nil {
		s.log.Warn("Malformed push payload", zap.String("messageID", id), zap.Error(err))
	}
	return s.classifier.Classify(ctx, msg)
}

func (s *Subscriber) Close() error {
	return s.client.Close()
}
