package shared

import "time"

// EventType names a domain event.
type EventType string

const (
	// Learner events
	EventLearnerRegistered EventType = "learner.registered"

	// Practice events
	EventBidSubmitted EventType = "practice.bid_submitted"
	EventCommentAdded EventType = "practice.comment_added"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for logging and transport.
	Payload() map[string]any
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a base event stamped with at.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Learner Events
// ═══════════════════════════════════════════════════════════════════════════

// LearnerRegisteredEvent is emitted when a new learner account is created.
type LearnerRegisteredEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	Email     string `json:"email"`
}

// Payload implements Event interface.
func (e LearnerRegisteredEvent) Payload() map[string]any {
	return map[string]any{
		"learner_id": e.LearnerID,
		"email":      e.Email,
	}
}

// NewLearnerRegisteredEvent creates a LearnerRegisteredEvent.
func NewLearnerRegisteredEvent(learnerID, email string, at time.Time) LearnerRegisteredEvent {
	return LearnerRegisteredEvent{
		BaseEvent: NewBaseEvent(EventLearnerRegistered, learnerID, at),
		LearnerID: learnerID,
		Email:     email,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Practice Events
// ═══════════════════════════════════════════════════════════════════════════

// BidSubmittedEvent is emitted once a call and its follow-up are stored.
// FollowUpID is empty when the call ended the auction.
type BidSubmittedEvent struct {
	BaseEvent
	ExerciseBidID string `json:"exercise_bid_id"`
	ExerciseID    string `json:"exercise_id"`
	LearnerID     string `json:"learner_id"`
	Bid           string `json:"bid"`
	FollowUpID    string `json:"follow_up_id,omitempty"`
}

// Payload implements Event interface.
func (e BidSubmittedEvent) Payload() map[string]any {
	return map[string]any{
		"exercise_bid_id": e.ExerciseBidID,
		"exercise_id":     e.ExerciseID,
		"learner_id":      e.LearnerID,
		"bid":             e.Bid,
		"follow_up_id":    e.FollowUpID,
	}
}

// CommentAddedEvent is emitted when a learner annotates an exercise.
type CommentAddedEvent struct {
	BaseEvent
	CommentID  string `json:"comment_id"`
	ExerciseID string `json:"exercise_id"`
	LearnerID  string `json:"learner_id"`
}

// Payload implements Event interface.
func (e CommentAddedEvent) Payload() map[string]any {
	return map[string]any{
		"comment_id":  e.CommentID,
		"exercise_id": e.ExerciseID,
		"learner_id":  e.LearnerID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
