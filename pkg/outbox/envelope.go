package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID   uuid.UUID       `json:"userId"`
	VendorID *uuid.UUID      `json:"vendorId,omitempty"`
	Role     enums.ActorRole `json:"role,omitempty"`
}

// SystemActor is used by scheduled jobs and gateway callbacks.
func SystemActor() *ActorRef {
	return &ActorRef{Role: enums.ActorRoleSystem}
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
