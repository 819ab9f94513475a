package streaming

import (
	"github.com/flashdeck-app/flashcard-service/internal/models"
)

// Event kinds carried over the stream. Every event is a JSON payload with a
// "type" discriminator.
const (
	EventConnected    = "connected"
	EventInitial      = "initial"
	EventStatusUpdate = "status_update"
	EventFinal        = "final"
	EventError        = "error"
	EventAuthError    = "auth_error"
)

// Event is one logical notification pushed to the client.
type Event struct {
	Type     string              `json:"type"`
	UploadID uint                `json:"upload_id,omitempty"`
	Status   models.UploadStatus `json:"status,omitempty"`
	UserID   uint                `json:"user_id,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Tracker holds one session's last-known-status map and turns successive
// poll snapshots into events. It is not safe for concurrent use; each session
// owns its tracker.
type Tracker struct {
	initialized bool
	last        map[uint]models.UploadStatus
}

func NewTracker() *Tracker {
	return &Tracker{
		last: make(map[uint]models.UploadStatus),
	}
}

// Diff consumes a snapshot of the user's uploads and returns the events to
// emit for it.
//
// The first snapshot only seeds the map, emitting one initial event per
// upload. Afterwards, active uploads whose status changed produce a
// status_update; uploads that reached a terminal status after having been
// observed active produce a final event and leave the tracked set.
func (t *Tracker) Diff(uploads []*models.Upload) []Event {
	var events []Event

	if !t.initialized {
		for _, upload := range uploads {
			if _, tracked := t.last[upload.ID]; tracked {
				continue
			}
			events = append(events, Event{
				Type:     EventInitial,
				UploadID: upload.ID,
				Status:   upload.Status,
			})
			t.last[upload.ID] = upload.Status
		}
		t.initialized = true
		return events
	}

	for _, upload := range uploads {
		lastStatus, tracked := t.last[upload.ID]

		switch {
		case upload.Status.IsActive():
			if !tracked || lastStatus != upload.Status {
				events = append(events, Event{
					Type:     EventStatusUpdate,
					UploadID: upload.ID,
					Status:   upload.Status,
				})
				t.last[upload.ID] = upload.Status
			}

		case upload.Status.IsTerminal():
			if tracked && lastStatus != upload.Status && lastStatus.IsActive() {
				events = append(events, Event{
					Type:     EventFinal,
					UploadID: upload.ID,
					Status:   upload.Status,
				})
				delete(t.last, upload.ID)
			}
		}
	}

	return events
}

// Tracked returns how many uploads the session still observes.
func (t *Tracker) Tracked() int {
	return len(t.last)
}
