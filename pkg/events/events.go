// Package events defines the registry audit events and their emitters.
//
// Events are the durable audit trail external systems subscribe to. Emission
// is best-effort-once: an event is emitted at the point the corresponding
// state transition commits, and an emitter failure never rolls the
// transition back.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/pkg/credential"
)

// Kind identifies the type of a registry event.
type Kind string

const (
	KindStudentRegistered     Kind = "student_registered"
	KindInvigilatorRegistered Kind = "invigilator_registered"
	KindPassRequested         Kind = "pass_requested"
	KindStudentMarkedPaid     Kind = "student_marked_paid"
	KindEligibilityAdded      Kind = "eligibility_added"
	KindEligibilityRemoved    Kind = "eligibility_removed"
	KindProfileRevoked        Kind = "profile_revoked"
)

// Event represents a single registry audit event.
type Event struct {
	ID          uuid.UUID
	Kind        Kind
	Subject     string
	Role        credential.Role
	Fingerprint string
	Name        string
	NaturalID   string
	SeqNo       int64
	PassID      *uint64
	RecordedAt  time.Time
}

// New creates an event with a fresh ID and timestamp.
func New(kind Kind) *Event {
	return &Event{
		ID:         uuid.New(),
		Kind:       kind,
		RecordedAt: time.Now().UTC(),
	}
}

// Response is the API representation of an event.
type Response struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	Subject     string    `json:"subject,omitzero"`
	Role        string    `json:"role"`
	Fingerprint string    `json:"fingerprint,omitzero"`
	Name        string    `json:"name,omitzero"`
	NaturalID   string    `json:"natural_id,omitzero"`
	SeqNo       int64     `json:"seq_no,omitzero"`
	PassID      *uint64   `json:"pass_id,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ToResponse converts an Event to its API representation.
func (e *Event) ToResponse() *Response {
	return &Response{
		ID:          e.ID,
		Kind:        e.Kind,
		Subject:     e.Subject,
		Role:        string(e.Role),
		Fingerprint: e.Fingerprint,
		Name:        e.Name,
		NaturalID:   e.NaturalID,
		SeqNo:       e.SeqNo,
		PassID:      e.PassID,
		RecordedAt:  e.RecordedAt,
	}
}

// Emitter delivers registry events. Implementations must not fail the
// calling operation: delivery errors are logged and dropped.
type Emitter interface {
	Emit(ctx context.Context, ev *Event)
}

// Recorder persists events. Implemented by the registry store.
type Recorder interface {
	RecordEvent(ctx context.Context, ev *Event) error
}

// LogEmitter writes events to the structured log.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter creates an emitter that logs every event.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the event.
func (e *LogEmitter) Emit(_ context.Context, ev *Event) {
	fields := []zap.Field{
		zap.String("event_id", ev.ID.String()),
		zap.String("kind", string(ev.Kind)),
		zap.String("subject", ev.Subject),
		zap.String("role", string(ev.Role)),
	}
	if ev.Fingerprint != "" {
		fields = append(fields, zap.String("fingerprint", ev.Fingerprint))
	}
	if ev.Name != "" {
		fields = append(fields, zap.String("name", ev.Name))
	}
	if ev.NaturalID != "" {
		fields = append(fields, zap.String("natural_id", ev.NaturalID))
	}
	if ev.SeqNo != 0 {
		fields = append(fields, zap.Int64("seq_no", ev.SeqNo))
	}
	if ev.PassID != nil {
		fields = append(fields, zap.Uint64("pass_id", *ev.PassID))
	}
	e.logger.Info("Registry event", fields...)
}

// StoreEmitter persists events through a Recorder.
type StoreEmitter struct {
	recorder Recorder
	logger   *zap.Logger
}

// NewStoreEmitter creates an emitter that records events in the store.
func NewStoreEmitter(recorder Recorder, logger *zap.Logger) *StoreEmitter {
	return &StoreEmitter{recorder: recorder, logger: logger}
}

// Emit records the event, logging and dropping it on failure.
func (e *StoreEmitter) Emit(ctx context.Context, ev *Event) {
	if err := e.recorder.RecordEvent(ctx, ev); err != nil {
		e.logger.Error("Failed to record registry event",
			zap.String("kind", string(ev.Kind)),
			zap.String("subject", ev.Subject),
			zap.Error(err))
	}
}

// MultiEmitter fans an event out to several emitters.
type MultiEmitter []Emitter

// Emit delivers the event to every emitter in order.
func (m MultiEmitter) Emit(ctx context.Context, ev *Event) {
	for _, e := range m {
		e.Emit(ctx, ev)
	}
}
