// Package queue carries the domain events of the booking service over
// RabbitMQ: a publisher used by the services after commit and an audit
// consumer that turns every event into a structured log line.
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Exchange is the durable topic exchange every event is published to. The
// routing key is the event type.
const Exchange = "sports.booking"

// Event types.
const (
	TypeBookingCreated = "booking.created"
	TypeBookingUpdated = "booking.updated"
	TypeBookingDeleted = "booking.deleted"
	TypeAuthzDenied    = "authz.denied"
)

// Envelope wraps every published event.
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	ActorID    int64           `json:"actor_id"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and stamps a fresh id and the current UTC time.
func NewEnvelope(eventType string, actorID int64, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Payload:    body,
	}, nil
}

// AuthzDenied is the payload of an authz.denied event. The failed rule is
// deliberately absent; only the coordinates of the request are carried.
type AuthzDenied struct {
	Operation  string `json:"operation"`
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id"`
}
