package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"exampro-service/internal/domain"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const eventTypeSubmission = "attempt.submitted"

// Publisher emits submission events onto the configured topic.
type Publisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

func NewPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{publisher: publisher, topic: topic, logger: logger}
}

// PublishSubmission announces that an attempt has been submitted.
func (p *Publisher) PublishSubmission(ctx context.Context, evt domain.SubmissionEvent) error {
	if evt.StudentID == "" || evt.DepartmentID == "" {
		return fmt.Errorf("%w: student and department ids are required", domain.ErrInvalidArgument)
	}
	if evt.SubmittedAt.IsZero() {
		evt.SubmittedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal submission event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", eventTypeSubmission)
	msg.Metadata.Set("department_id", evt.DepartmentID)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish submission event",
			"message_id", msg.UUID, "student_id", evt.StudentID, "error", err)
		return fmt.Errorf("publish submission event: %w", err)
	}
	p.logger.DebugContext(ctx, "published submission event",
		"message_id", msg.UUID, "topic", p.topic, "department_id", evt.DepartmentID)
	return nil
}
