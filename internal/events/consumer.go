package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"exampro-service/internal/domain"
	"github.com/ThreeDotsLabs/watermill/message"
)

// SubmissionHandler reacts to a decoded submission event.
type SubmissionHandler interface {
	HandleSubmission(ctx context.Context, evt domain.SubmissionEvent) error
}

// Consumer feeds submission events from the broker into a handler.
// Undecodable or invalid events are acked and dropped; handler failures are
// nacked so the broker redelivers them.
type Consumer struct {
	subscriber message.Subscriber
	topic      string
	handler    SubmissionHandler
	logger     *slog.Logger
}

func NewConsumer(subscriber message.Subscriber, topic string, handler SubmissionHandler, logger *slog.Logger) *Consumer {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{subscriber: subscriber, topic: topic, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled or the subscription is closed.
func (c *Consumer) Run(ctx context.Context) error {
	done, err := c.Start(ctx)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Start subscribes before returning, so events published afterwards are not
// missed, and consumes in the background. done is closed when consumption stops.
func (c *Consumer) Start(ctx context.Context) (<-chan struct{}, error) {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c.topic, err)
	}
	c.logger.Info("consuming submission events", "topic", c.topic)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.consume(ctx, messages)
	}()
	return done, nil
}

func (c *Consumer) consume(ctx context.Context, messages <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	var evt domain.SubmissionEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		c.logger.WarnContext(ctx, "dropping undecodable submission event", "message_id", msg.UUID, "error", err)
		msg.Ack()
		return
	}

	err := c.handler.HandleSubmission(ctx, evt)
	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, domain.ErrInvalidArgument):
		c.logger.WarnContext(ctx, "dropping invalid submission event", "message_id", msg.UUID, "error", err)
		msg.Ack()
	default:
		c.logger.ErrorContext(ctx, "submission event handling failed", "message_id", msg.UUID,
			"department_id", evt.DepartmentID, "error", err)
		msg.Nack()
	}
}
