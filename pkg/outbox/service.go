package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// DomainEvent is what a service hands to Emit. Data is any JSON-encodable
// payload from the payloads package.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// Emitter is the write surface domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type eventInserter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

// Service appends domain events to the outbox table.
type Service struct {
	repo eventInserter
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit stores the event inside tx so it commits or rolls back with the state
// change that produced it.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	switch {
	case tx == nil:
		return errors.New("transaction required")
	case !event.EventType.IsValid():
		return fmt.Errorf("unknown event type %q", event.EventType)
	case !event.AggregateType.IsValid():
		return fmt.Errorf("unknown aggregate type %q", event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return errors.New("aggregate id required")
	}

	eventID := uuid.New()
	envelope, err := newEnvelope(eventID, event)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.EventType, err)
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", event.EventType, err)
	}

	if err := s.repo.Insert(tx, models.OutboxEvent{
		ID:            eventID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       body,
	}); err != nil {
		return fmt.Errorf("insert outbox %s: %w", event.EventType, err)
	}

	if s.logg != nil && ctx != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":       eventID.String(),
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

// Actor builds the ActorRef for the caller, or nil for system work.
func Actor(userID uuid.UUID, role enums.UserRole) *ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &ActorRef{UserID: userID, Role: string(role)}
}
