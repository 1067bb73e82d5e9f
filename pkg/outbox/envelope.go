package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// currentPayloadVersion is bumped whenever an event payload changes shape in
// a way consumers must branch on.
const currentPayloadVersion = 1

// ErrEmptyData is returned by DecodeData for an envelope without a payload.
var ErrEmptyData = errors.New("envelope has no data")

// ActorRef names the user whose request produced an event. System events
// such as overdue notices carry none.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is stored in outbox_events.payload and published as the
// Pub/Sub message body. EventID equals the outbox row id.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeData unmarshals the event payload into dst.
func (e PayloadEnvelope) DecodeData(dst any) error {
	trimmed := bytes.TrimSpace(e.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrEmptyData
	}
	return json.Unmarshal(trimmed, dst)
}

func newEnvelope(eventID uuid.UUID, event DomainEvent) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, err
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	version := event.Version
	if version <= 0 {
		version = currentPayloadVersion
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    eventID.String(),
		OccurredAt: occurredAt.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}, nil
}
