// Package events publishes domain events when clinic records change.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"dental-receptionist-server/internal/config"
)

// Event types
const (
	AppointmentBooked    = "appointment.booked"
	AppointmentUpdated   = "appointment.updated"
	AppointmentCancelled = "appointment.cancelled"
	PatientCreated       = "patient.created"
	ComplaintFiled       = "complaint.filed"
	OrderReady           = "order.ready"
	BusinessCallLogged   = "business_call.logged"
)

// Event is a change notification for downstream consumers.
type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload"`
}

// New stamps an event with the current time.
func New(eventType string, payload map[string]any) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Open builds the publisher selected by EVENTS_BACKEND.
func Open(ctx context.Context, cfg config.EventsConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Backend {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return &Memory{}, nil
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "sqs":
		return NewSQSPublisher(ctx, cfg.SQSQueueName)
	}
	return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
}

// Emit publishes and logs failures. Domain operations never fail because a
// broker is unavailable.
func Emit(ctx context.Context, p Publisher, log *zap.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn("event publish failed", zap.String("event", e.Type), zap.Error(err))
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Memory keeps events in process. Useful for local runs and tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Types lists the published event types in order.
func (m *Memory) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}
