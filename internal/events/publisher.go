package events

import (
	"context"

	"medteam/internal/domain/consultation"
	"medteam/pkg/errors"
	"medteam/pkg/logger"
)

// MessagePublisher is the transport used by Publisher; *kafka.Producer satisfies it
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Publisher emits run completion events
type Publisher struct {
	producer MessagePublisher
	topic    string
	log      *logger.Logger
}

var _ consultation.Recorder = (*Publisher)(nil)

// NewPublisher creates a new event publisher writing to topic
func NewPublisher(producer MessagePublisher, topic string) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		log:      logger.Component("event_publisher"),
	}
}

func (p *Publisher) Name() string { return "kafka" }

// Record publishes a ConsultationCompletedEvent keyed by run ID
func (p *Publisher) Record(ctx context.Context, run *consultation.Run) error {
	event := NewConsultationCompleted(run)

	if err := p.producer.Publish(ctx, p.topic, event.RunID, event); err != nil {
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debugf("Event %s published to %s", event.Type, p.topic)
	return nil
}
