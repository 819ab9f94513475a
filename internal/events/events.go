package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// Source identifies this service in published events
	Source = "flashcard-service"

	// Version of the event envelope
	Version = "1.0"
)

// Event types
const (
	TypeUploadCreated       = "upload.created"
	TypeUploadDeleted       = "upload.deleted"
	TypeUploadStatusChanged = "upload.status_changed"
	TypeCardsGenerated      = "cards.generated"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with a fresh id and timestamp.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    Source,
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// UploadStatusChangedEvent is emitted on every lifecycle transition.
type UploadStatusChangedEvent struct {
	UploadID uint   `json:"upload_id"`
	UserID   uint   `json:"user_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// CardsGeneratedEvent is emitted when a generation run completes.
type CardsGeneratedEvent struct {
	UploadID uint `json:"upload_id"`
	UserID   uint `json:"user_id"`
	Created  int  `json:"created"`
}

// UploadEvent is emitted when an upload record is created or deleted.
type UploadEvent struct {
	UploadID uint   `json:"upload_id"`
	UserID   uint   `json:"user_id"`
	Filename string `json:"filename"`
}

// EventPublisher publishes domain events to the configured transport.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
