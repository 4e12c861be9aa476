package domain

import "time"

// Event actions. These are part of the wire contract consumed by
// downstream services and must not change without a version bump.
const (
	EventActionCreated  = "created"
	EventActionPosted   = "posted"
	EventActionReversed = "reversed"
)

// Entity types
const (
	EntityTypeJournalEntry = "journal-entry"
)

// ServiceSource identifies this service in published events.
const ServiceSource = "general-ledger"

// EventStatus is the dispatch status of an outbox event.
type EventStatus string

const (
	// EventStatusStaged: written in the mutating transaction by a saga
	// step but not yet released for dispatch.
	EventStatusStaged EventStatus = "staged"
	// EventStatusPending: eligible for dispatch.
	EventStatusPending EventStatus = "pending"
	// EventStatusDispatched: delivery confirmed by the transport.
	EventStatusDispatched EventStatus = "dispatched"
	// EventStatusFailed: last delivery attempt failed; retried with backoff.
	EventStatusFailed EventStatus = "failed"
	// EventStatusDeadLetter: retry budget exhausted; manual intervention.
	EventStatusDeadLetter EventStatus = "dead_letter"
	// EventStatusDropped: the entity left the state the event describes
	// before dispatch (e.g. a compensated saga); never delivered.
	EventStatusDropped EventStatus = "dropped"
)

// OutboxEvent is a domain event awaiting publication. It is created in
// the same transaction as the ledger mutation it describes.
type OutboxEvent struct {
	ID           string
	EntityType   string
	EntityID     string
	Action       string
	Payload      map[string]any
	Status       EventStatus
	Attempts     int
	LastError    string
	CreatedAt    time.Time
	DispatchedAt *time.Time
}

// EventEnvelope is the wire format published to the message bus. Field
// names are a compatibility surface for accounts-payable,
// accounts-receivable and inventory.
type EventEnvelope struct {
	ServiceSource string         `json:"serviceSource"`
	EntityType    string         `json:"entityType"`
	EntityID      string         `json:"entityId"`
	Timestamp     time.Time      `json:"timestamp"`
	Action        string         `json:"action"`
	Data          map[string]any `json:"data"`
}

// Envelope builds the wire envelope for an outbox event.
func (e *OutboxEvent) Envelope() EventEnvelope {
	return EventEnvelope{
		ServiceSource: ServiceSource,
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		Timestamp:     e.CreatedAt,
		Action:        e.Action,
		Data:          e.Payload,
	}
}

// EntryEventPayload builds the data section for journal entry events.
func EntryEventPayload(entry *JournalEntry) map[string]any {
	lines := make([]map[string]any, 0, len(entry.Lines))
	for _, l := range entry.Lines {
		lines = append(lines, map[string]any{
			"account_id": l.AccountID,
			"debit":      l.Debit.String(),
			"credit":     l.Credit.String(),
		})
	}

	payload := map[string]any{
		"entry_id":      entry.ID,
		"entry_number":  entry.EntryNumber,
		"status":        string(entry.Status),
		"description":   entry.Description,
		"is_adjustment": entry.IsAdjustment,
		"lines":         lines,
	}

	if entry.ReversalOfID != nil {
		payload["reversal_of_id"] = *entry.ReversalOfID
	}

	return payload
}
