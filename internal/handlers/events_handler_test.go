package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/services"
	"github.com/flashdeck-app/flashcard-service/internal/streaming"
	"github.com/flashdeck-app/flashcard-service/internal/utils"
)

// ===== MOCK COLLABORATORS =====

type stubAuthService struct {
	user *models.User
}

func (s *stubAuthService) Register(ctx context.Context, req *services.RegisterRequest) (*models.User, error) {
	return nil, services.ErrAuthInvalid
}

func (s *stubAuthService) Login(ctx context.Context, req *services.LoginRequest) (*services.LoginResponse, error) {
	return nil, services.ErrAuthInvalid
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID uint, req *services.ChangePasswordRequest) error {
	return services.ErrAuthInvalid
}

func (s *stubAuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	if s.user != nil && token == "stream-token" {
		return s.user, nil
	}
	return nil, services.ErrAuthInvalid
}

type stubUploadRepo struct{}

func (s *stubUploadRepo) Create(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	return nil
}
func (s *stubUploadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Upload, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubUploadRepo) Update(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	return nil
}
func (s *stubUploadRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.UploadStatus) error {
	return nil
}
func (s *stubUploadRepo) ClaimGenerating(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	return false, nil
}
func (s *stubUploadRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error { return nil }
func (s *stubUploadRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.UploadFilters) ([]*models.Upload, int64, error) {
	return nil, 0, nil
}
func (s *stubUploadRepo) GetByUserAndStatuses(ctx context.Context, tx *gorm.DB, userID uint, statuses []models.UploadStatus) ([]*models.Upload, error) {
	return nil, nil
}

type stubRepo struct{}

func (s *stubRepo) User() repositories.UserRepository           { return nil }
func (s *stubRepo) Upload() repositories.UploadRepository       { return &stubUploadRepo{} }
func (s *stubRepo) Flashcard() repositories.FlashcardRepository { return nil }
func (s *stubRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(s)
}
func (s *stubRepo) Ping(ctx context.Context) error { return nil }
func (s *stubRepo) Close() error                   { return nil }

// ===== HELPERS =====

func newEventsRouter(t *testing.T, auth services.AuthService, registry streaming.Registry) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	streamer := streaming.NewStreamer(registry, &stubRepo{}, slogger, 10*time.Millisecond)
	handler := NewEventsHandler(auth, streamer, utils.NewSlogLogger(slogger))

	router := gin.New()
	router.GET("/events", handler.Stream)
	return router
}

// decodeStreamEvents parses the data lines out of an SSE response body.
func decodeStreamEvents(t *testing.T, body string) []streaming.Event {
	t.Helper()

	var events []streaming.Event
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var event streaming.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &event); err != nil {
			t.Fatalf("undecodable event line %q: %v", line, err)
		}
		events = append(events, event)
	}
	return events
}

// ===== TESTS =====

func TestEventsHandler_Stream(t *testing.T) {
	user := &models.User{ID: 10, Username: "alice", Role: models.RoleUser}

	t.Run("invalid token gets one terminal auth_error event", func(t *testing.T) {
		router := newEventsRouter(t, &stubAuthService{user: user}, streaming.NewMemoryRegistry())

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/events?token=garbage", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
			t.Errorf("content type = %q, want text/event-stream", ct)
		}

		events := decodeStreamEvents(t, w.Body.String())
		if len(events) != 1 {
			t.Fatalf("events = %d, want exactly 1, got %+v", len(events), events)
		}
		if events[0].Type != streaming.EventAuthError {
			t.Errorf("event type = %q, want auth_error", events[0].Type)
		}
	})

	t.Run("second session gets one terminal error event", func(t *testing.T) {
		registry := streaming.NewMemoryRegistry()

		// Simulate an already connected client holding the slot
		if ok, err := registry.Acquire(context.Background(), user.ID); err != nil || !ok {
			t.Fatalf("failed to claim slot: ok=%v err=%v", ok, err)
		}

		router := newEventsRouter(t, &stubAuthService{user: user}, registry)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/events?token=stream-token", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		events := decodeStreamEvents(t, w.Body.String())
		if len(events) != 1 {
			t.Fatalf("events = %d, want exactly 1, got %+v", len(events), events)
		}
		if events[0].Type != streaming.EventError {
			t.Errorf("event type = %q, want error", events[0].Type)
		}

		// The original session must keep its slot
		if registry.Active() != 1 {
			t.Errorf("active sessions = %d, want 1", registry.Active())
		}
	})
}
