package streaming

import (
	"testing"

	"github.com/flashdeck-app/flashcard-service/internal/models"
)

func upload(id uint, status models.UploadStatus) *models.Upload {
	return &models.Upload{ID: id, Status: status}
}

func TestTracker_Diff(t *testing.T) {
	t.Run("first snapshot emits initial events", func(t *testing.T) {
		tracker := NewTracker()

		events := tracker.Diff([]*models.Upload{
			upload(1, models.UploadStatusUploaded),
			upload(2, models.UploadStatusGenerating),
		})

		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		for i, event := range events {
			if event.Type != EventInitial {
				t.Errorf("event %d type = %s, want %s", i, event.Type, EventInitial)
			}
		}
		if tracker.Tracked() != 2 {
			t.Errorf("tracked = %d, want 2", tracker.Tracked())
		}
	})

	t.Run("empty first snapshot still initializes", func(t *testing.T) {
		tracker := NewTracker()

		if events := tracker.Diff(nil); len(events) != 0 {
			t.Fatalf("expected no events, got %d", len(events))
		}

		// The next snapshot must not be treated as initial again
		events := tracker.Diff([]*models.Upload{upload(1, models.UploadStatusUploaded)})
		if len(events) != 1 || events[0].Type != EventStatusUpdate {
			t.Fatalf("expected one status_update, got %+v", events)
		}
	})

	t.Run("unchanged statuses emit nothing", func(t *testing.T) {
		tracker := NewTracker()
		snapshot := []*models.Upload{upload(1, models.UploadStatusUploaded)}

		tracker.Diff(snapshot)
		if events := tracker.Diff(snapshot); len(events) != 0 {
			t.Fatalf("expected no events, got %+v", events)
		}
	})

	t.Run("active transition emits status_update", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Diff([]*models.Upload{upload(1, models.UploadStatusUploaded)})

		events := tracker.Diff([]*models.Upload{upload(1, models.UploadStatusGenerating)})
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Type != EventStatusUpdate || events[0].Status != models.UploadStatusGenerating {
			t.Errorf("unexpected event %+v", events[0])
		}
	})

	t.Run("new upload appearing mid-session emits status_update", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Diff(nil)

		events := tracker.Diff([]*models.Upload{upload(7, models.UploadStatusUploaded)})
		if len(events) != 1 || events[0].Type != EventStatusUpdate || events[0].UploadID != 7 {
			t.Fatalf("unexpected events %+v", events)
		}
	})

	t.Run("terminal after active emits final and stops tracking", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Diff([]*models.Upload{upload(1, models.UploadStatusGenerating)})

		events := tracker.Diff([]*models.Upload{upload(1, models.UploadStatusDone)})
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Type != EventFinal || events[0].Status != models.UploadStatusDone {
			t.Errorf("unexpected event %+v", events[0])
		}
		if tracker.Tracked() != 0 {
			t.Errorf("tracked = %d, want 0", tracker.Tracked())
		}

		// Terminal uploads need no further observation
		if events := tracker.Diff([]*models.Upload{upload(1, models.UploadStatusDone)}); len(events) != 0 {
			t.Fatalf("expected no events after final, got %+v", events)
		}
	})

	t.Run("error terminal emits final", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Diff([]*models.Upload{upload(3, models.UploadStatusGenerating)})

		events := tracker.Diff([]*models.Upload{upload(3, models.UploadStatusError)})
		if len(events) != 1 || events[0].Type != EventFinal || events[0].Status != models.UploadStatusError {
			t.Fatalf("unexpected events %+v", events)
		}
	})

	t.Run("terminal upload never observed active emits nothing", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Diff(nil)

		if events := tracker.Diff([]*models.Upload{upload(5, models.UploadStatusDone)}); len(events) != 0 {
			t.Fatalf("expected no events, got %+v", events)
		}
	})

	t.Run("terminal upload in first snapshot emits initial", func(t *testing.T) {
		tracker := NewTracker()

		events := tracker.Diff([]*models.Upload{upload(9, models.UploadStatusDone)})
		if len(events) != 1 || events[0].Type != EventInitial || events[0].Status != models.UploadStatusDone {
			t.Fatalf("unexpected events %+v", events)
		}
	})
}
