// Package service holds the activation queue publisher.
package service

import (
	"context"

	"gocloud.dev/pubsub"

	"github.com/SuYehTarn/jitr/internal/activation/domain"
	apperrors "github.com/SuYehTarn/jitr/internal/errors"
)

// Message metadata keys.
const (
	MetadataCorrelationID = "correlation_id"
	MetadataCAID          = "ca_id"
	MetadataActivationID  = "activation_id"
)

// TopicPublisher publishes activation requests to a gocloud pubsub topic.
type TopicPublisher struct {
	topic *pubsub.Topic
}

// NewTopicPublisher creates a new TopicPublisher.
func NewTopicPublisher(topic *pubsub.Topic) *TopicPublisher {
	return &TopicPublisher{topic: topic}
}

// Publish sends the request payload. Metadata carries the correlation id so
// the consumer can deduplicate redeliveries.
func (p *TopicPublisher) Publish(ctx context.Context, r *domain.ActivationRequest) error {
	err := p.topic.Send(ctx, &pubsub.Message{
		Body: []byte(r.Payload),
		Metadata: map[string]string{
			MetadataCorrelationID: r.CorrelationID,
			MetadataCAID:          r.CAID,
			MetadataActivationID:  r.ID.String(),
		},
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to publish activation request")
	}
	return nil
}
