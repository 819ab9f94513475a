package streaming

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/flashdeck-app/flashcard-service/internal/repositories"
)

// ErrDuplicateSession means the user already holds an active stream session.
var ErrDuplicateSession = errors.New("duplicate stream session")

// Streamer runs the per-session poll loop that diffuses upload status changes
// to one connected client.
type Streamer struct {
	registry Registry
	repo     repositories.Repository
	logger   *slog.Logger
	interval time.Duration
}

func NewStreamer(registry Registry, repo repositories.Repository, logger *slog.Logger, interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Streamer{
		registry: registry,
		repo:     repo,
		logger:   logger,
		interval: interval,
	}
}

// Interval returns the configured poll interval.
func (s *Streamer) Interval() time.Duration {
	return s.interval
}

// Run drives one session until ctx is cancelled (client disconnect) or the
// emit callback fails (transport write error). The session slot is acquired up
// front and released unconditionally on the way out, so an aborted session
// never blocks the user from reconnecting.
//
// Database errors inside a poll iteration are logged and swallowed; only
// cancellation and emit failures end the loop.
func (s *Streamer) Run(ctx context.Context, userID uint, emit func(Event) error) error {
	ok, err := s.registry.Acquire(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateSession
	}
	defer func() {
		// Teardown must succeed even when ctx is already cancelled
		if err := s.registry.Release(context.WithoutCancel(ctx), userID); err != nil {
			s.logger.Error("failed to release stream session", "user_id", userID, "error", err)
		}
	}()

	s.logger.Info("stream session started", "user_id", userID)

	if err := emit(Event{Type: EventConnected, UserID: userID}); err != nil {
		return err
	}

	tracker := NewTracker()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		uploads, err := s.repo.Upload().GetByUserAndStatuses(ctx, nil, userID, nil)
		if err != nil {
			// A transient storage error must not kill the session
			s.logger.Error("stream poll failed", "user_id", userID, "error", err)
		} else {
			for _, event := range tracker.Diff(uploads) {
				if err := emit(event); err != nil {
					return err
				}
			}
		}

		if err := s.registry.Touch(ctx, userID); err != nil {
			s.logger.Warn("failed to refresh stream session", "user_id", userID, "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("stream session closed", "user_id", userID)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
