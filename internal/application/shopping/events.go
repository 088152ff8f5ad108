package shopping

import (
	"context"
	"encoding/json"

	"github.com/alchemorsel/mealplan/internal/domain/shared"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventTopic returns the bus topic an event is published on
func EventTopic(prefix string, event shared.DomainEvent) string {
	if prefix == "" {
		return event.EventName()
	}
	return prefix + "." + event.EventName()
}

// publishEvents hands domain events to the bus. Failures are logged and
// counted but never fail the mutation that raised them.
func (s *Service) publishEvents(ctx context.Context, userID uuid.UUID, events []shared.DomainEvent) {
	for _, event := range events {
		err := s.publishEvent(ctx, userID, event)
		s.metrics.EventPublished(event.EventName(), err)
		if err != nil {
			s.logger.Error("Failed to publish event",
				zap.String("event", event.EventName()),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) publishEvent(ctx context.Context, userID uuid.UUID, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.events.Publish(ctx, EventTopic(s.config.SubjectPrefix, event), outbound.Message{
		ID:        uuid.NewString(),
		Type:      event.EventName(),
		Payload:   payload,
		Metadata:  map[string]string{"user_id": userID.String()},
		Timestamp: event.OccurredAt(),
	})
}
