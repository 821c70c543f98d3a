package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of domain event.
type EventType string

const (
	// Submission lifecycle
	EventSubmissionCreated   EventType = "SUBMISSION_CREATED"
	EventSubmissionModerated EventType = "SUBMISSION_MODERATED"
	EventSubmissionReopened  EventType = "SUBMISSION_REOPENED"

	// Rate limiting
	EventRateLimitExceeded EventType = "RATE_LIMIT_EXCEEDED"
	EventRateLimitDegraded EventType = "RATE_LIMIT_DEGRADED"
	EventRateLimitReset    EventType = "RATE_LIMIT_RESET"
)

// Aggregate types referenced by events.
const (
	AggregateSubmission = "submission"
	AggregateRateWindow = "rate_window"
)

// DomainEvent is an immutable record of something that happened in the pipeline.
type DomainEvent struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	Payload       []byte    `json:"payload"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewEvent builds a DomainEvent with a fresh id. Payload marshal errors
// leave the payload empty; events are informational.
func NewEvent(eventType EventType, aggregateType, aggregateID, actor string, payload any) *DomainEvent {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	var data []byte
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	return &DomainEvent{
		EventID:       id.String(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       data,
		CreatedBy:     actor,
		CreatedAt:     time.Now().UTC(),
	}
}

// SubmissionCreatedPayload is the payload for EventSubmissionCreated.
type SubmissionCreatedPayload struct {
	Kind          SubmissionKind  `json:"kind"`
	State         ModerationState `json:"state"`
	SpamScore     int             `json:"spam_score"`
	SpamReasons   []string        `json:"spam_reasons,omitempty"`
	SourceAddress string          `json:"source_address,omitempty"`
}

// ModerationPayload is the payload for EventSubmissionModerated and EventSubmissionReopened.
type ModerationPayload struct {
	From  ModerationState `json:"from"`
	To    ModerationState `json:"to"`
	Notes *string         `json:"notes,omitempty"`
}

// RateLimitPayload is the payload for rate limit events.
type RateLimitPayload struct {
	ActionKind ActionKind `json:"action_kind"`
	ResetAt    time.Time  `json:"reset_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}
