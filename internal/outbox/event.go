package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types emitted by the booking and mini-site workflows. The Kafka topic equals the event type.
const (
	AppointmentRequested = "appointment.requested.v1"
	AppointmentConfirmed = "appointment.confirmed.v1"
	AppointmentCancelled = "appointment.cancelled.v1"
	MiniSiteCreated      = "minisite.created.v1"
	MiniSitePublished    = "minisite.published.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// NewEvent marshals payload into an event envelope.
func NewEvent(aggregateType, aggregateID, eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{AggregateType: aggregateType, AggregateID: aggregateID, EventType: eventType, Payload: data}, nil
}

// Record is a persisted outbox row.
type Record struct {
	ID            string    `db:"id"`
	AggregateType string    `db:"aggregate_type"`
	AggregateID   string    `db:"aggregate_id"`
	EventType     string    `db:"event_type"`
	Payload       []byte    `db:"payload"`
	Traceparent   string    `db:"traceparent"`
	Tracestate    string    `db:"tracestate"`
	CreatedAt     time.Time `db:"created_at"`
}
