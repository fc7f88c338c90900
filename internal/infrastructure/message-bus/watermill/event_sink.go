package watermillbus

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

const (
	DefaultTopic = "coin-selection"

	eventTypeKey = "event_type"
	strategyKey  = "strategy"
)

type eventSink struct {
	publisher message.Publisher
	topic     string
}

// NewEventSink returns a sink that publishes every selection event as a
// JSON message on the given topic.
func NewEventSink(
	publisher message.Publisher, topic string,
) (ports.SelectionEventSink, error) {
	if publisher == nil {
		return nil, fmt.Errorf("missing publisher")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &eventSink{publisher, topic}, nil
}

// NewGoChannelEventSink returns a sink backed by an in-process pubsub. The
// returned subscriber lets consumers within the same process receive the
// events.
func NewGoChannelEventSink(
	topic string,
) (ports.SelectionEventSink, message.Subscriber, error) {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 100}, watermill.NopLogger{},
	)
	sink, err := NewEventSink(pubsub, topic)
	if err != nil {
		return nil, nil, err
	}
	return sink, pubsub, nil
}

func (s *eventSink) PublishSelectionEvent(event domain.SelectionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.ID, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventTypeKey, event.Type.String())
	msg.Metadata.Set(strategyKey, event.Strategy)

	return s.publisher.Publish(s.topic, msg)
}

// ParseSelectionEvent deserializes the payload of a message published by the
// sink.
func ParseSelectionEvent(msg *message.Message) (domain.SelectionEvent, error) {
	var event domain.SelectionEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return domain.SelectionEvent{}, fmt.Errorf(
			"failed to deserialize message %s: %w", msg.UUID, err,
		)
	}
	return event, nil
}
