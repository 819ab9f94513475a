package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/flashdeck-app/flashcard-service/internal/events"
	"github.com/flashdeck-app/flashcard-service/internal/llm"
	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/storage"
)

// ===== MOCK COLLABORATORS =====

type mockUploadRepo struct {
	mu          sync.Mutex
	upload      *models.Upload
	listFilters *repositories.UploadFilters
}

func (m *mockUploadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upload == nil || m.upload.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *m.upload
	return &copied, nil
}

func (m *mockUploadRepo) ClaimGenerating(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upload == nil || m.upload.ID != id {
		return false, nil
	}
	if m.upload.Status == models.UploadStatusGenerating {
		return false, nil
	}
	m.upload.Status = models.UploadStatusGenerating
	return true, nil
}

func (m *mockUploadRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.UploadStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upload == nil || m.upload.ID != id {
		return gorm.ErrRecordNotFound
	}
	m.upload.Status = status
	return nil
}

func (m *mockUploadRepo) Update(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *upload
	m.upload = &copied
	return nil
}

func (m *mockUploadRepo) status() models.UploadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upload.Status
}

func (m *mockUploadRepo) Create(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	upload.ID = 1
	copied := *upload
	m.upload = &copied
	return nil
}

func (m *mockUploadRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upload == nil || m.upload.ID != id {
		return gorm.ErrRecordNotFound
	}
	m.upload = nil
	return nil
}

func (m *mockUploadRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.UploadFilters) ([]*models.Upload, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listFilters = &filters
	if m.upload == nil {
		return nil, 0, nil
	}
	copied := *m.upload
	return []*models.Upload{&copied}, 1, nil
}
func (m *mockUploadRepo) GetByUserAndStatuses(ctx context.Context, tx *gorm.DB, userID uint, statuses []models.UploadStatus) ([]*models.Upload, error) {
	return nil, nil
}

type mockFlashcardRepo struct {
	mu    sync.Mutex
	cards []*models.Flashcard
	err   error
}

func (m *mockFlashcardRepo) CreateBatch(ctx context.Context, tx *gorm.DB, cards []*models.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cards = append(m.cards, cards...)
	return nil
}

func (m *mockFlashcardRepo) Create(ctx context.Context, tx *gorm.DB, card *models.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	card.ID = uint(len(m.cards) + 1)
	copied := *card
	m.cards = append(m.cards, &copied)
	return nil
}

func (m *mockFlashcardRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, card := range m.cards {
		if card.ID == id {
			copied := *card
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockFlashcardRepo) GetByUpload(ctx context.Context, tx *gorm.DB, uploadID uint) ([]*models.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards, nil
}
func (m *mockFlashcardRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error { return nil }
func (m *mockFlashcardRepo) DeleteByUpload(ctx context.Context, tx *gorm.DB, uploadID uint) error {
	return nil
}
func (m *mockFlashcardRepo) CountByUpload(ctx context.Context, tx *gorm.DB, uploadID uint) (int64, error) {
	return int64(len(m.cards)), nil
}

type mockRepo struct {
	user      *mockUserRepo
	upload    *mockUploadRepo
	flashcard *mockFlashcardRepo
}

func (m *mockRepo) User() repositories.UserRepository {
	if m.user == nil {
		return nil
	}
	return m.user
}
func (m *mockRepo) Upload() repositories.UploadRepository       { return m.upload }
func (m *mockRepo) Flashcard() repositories.FlashcardRepository { return m.flashcard }
func (m *mockRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepo) Ping(ctx context.Context) error { return nil }
func (m *mockRepo) Close() error                   { return nil }

type fakeFileStore struct {
	path string
	err  error
}

func (f *fakeFileStore) Save(name string, data []byte) (string, error) { return name, nil }
func (f *fakeFileStore) Path(name string) (string, error)              { return f.path, f.err }
func (f *fakeFileStore) Delete(name string) error                      { return nil }

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(filePath string, pageLimit int) (string, error) {
	return f.text, f.err
}

type fakeChat struct {
	response string
	err      error
}

func (f *fakeChat) Chat(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

// ===== TESTS =====

type generationFixture struct {
	repo      *mockRepo
	publisher *events.MockEventPublisher
	files     *fakeFileStore
	extractor *fakeExtractor
	chat      *fakeChat
	svc       GenerationService
}

func newGenerationFixture(status models.UploadStatus) *generationFixture {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	f := &generationFixture{
		repo: &mockRepo{
			upload: &mockUploadRepo{upload: &models.Upload{
				ID:       1,
				UserID:   10,
				Filename: "doc.pdf",
				Status:   status,
			}},
			flashcard: &mockFlashcardRepo{},
		},
		publisher: events.NewMockEventPublisher(logger),
		files:     &fakeFileStore{path: "/tmp/doc.pdf"},
		extractor: &fakeExtractor{text: "chapter one"},
		chat:      &fakeChat{response: `{"cards":[{"q":"Q1","a":"A1"},{"q":" ","a":"A2"},{"q":"Q3","a":"A3"}]}`},
	}
	f.svc = NewGenerationService(f.repo, logger, f.files, f.extractor, f.chat, f.publisher, "test-model", 5)
	return f
}

func owner() *models.User {
	return &models.User{ID: 10, Role: models.RoleUser}
}

func TestGenerationService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("success persists trimmed cards and finishes done", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)

		resp, err := f.svc.Generate(ctx, 1, owner())
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		// The blank-question card is dropped, not rejected
		if resp.Created != 2 {
			t.Errorf("created = %d, want 2", resp.Created)
		}
		if got := len(f.repo.flashcard.cards); got != 2 {
			t.Errorf("persisted cards = %d, want 2", got)
		}
		if f.repo.upload.status() != models.UploadStatusDone {
			t.Errorf("status = %s, want done", f.repo.upload.status())
		}
		if len(f.repo.upload.upload.GenerationMeta) == 0 {
			t.Error("generation meta not recorded")
		}

		published := f.publisher.GetPublishedEvents()
		var statusChanges, generated int
		for _, e := range published {
			switch e.Type {
			case events.TypeUploadStatusChanged:
				statusChanges++
			case events.TypeCardsGenerated:
				generated++
			}
		}
		if statusChanges != 2 || generated != 1 {
			t.Errorf("events = %d status changes, %d generated, want 2 and 1", statusChanges, generated)
		}
	})

	t.Run("unknown upload", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)

		_, err := f.svc.Generate(ctx, 99, owner())
		if !errors.Is(err, ErrUploadNotFound) {
			t.Fatalf("Generate() error = %v, want ErrUploadNotFound", err)
		}
	})

	t.Run("foreign upload is forbidden and left untouched", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)

		_, err := f.svc.Generate(ctx, 1, &models.User{ID: 66, Role: models.RoleUser})
		if !IsPermissionError(err) {
			t.Fatalf("Generate() error = %v, want PermissionError", err)
		}
		if f.repo.upload.status() != models.UploadStatusUploaded {
			t.Errorf("status = %s, want uploaded", f.repo.upload.status())
		}
	})

	t.Run("admin may generate for any upload", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)

		_, err := f.svc.Generate(ctx, 1, &models.User{ID: 66, Role: models.RoleAdmin})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	})

	t.Run("concurrent generation is rejected", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusGenerating)

		_, err := f.svc.Generate(ctx, 1, owner())
		if !errors.Is(err, ErrGenerationInProgress) {
			t.Fatalf("Generate() error = %v, want ErrGenerationInProgress", err)
		}
		// A losing request must not disturb the in-flight run
		if f.repo.upload.status() != models.UploadStatusGenerating {
			t.Errorf("status = %s, want generating", f.repo.upload.status())
		}
	})

	t.Run("missing stored file flips to error", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)
		f.files.err = storage.ErrFileNotFound

		_, err := f.svc.Generate(ctx, 1, owner())
		if !errors.Is(err, ErrUploadFileMissing) {
			t.Fatalf("Generate() error = %v, want ErrUploadFileMissing", err)
		}
		if f.repo.upload.status() != models.UploadStatusError {
			t.Errorf("status = %s, want error", f.repo.upload.status())
		}
	})

	t.Run("extraction failure flips to error", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)
		f.extractor.err = errors.New("broken xref table")

		_, err := f.svc.Generate(ctx, 1, owner())
		if !errors.Is(err, ErrExtractionFailed) {
			t.Fatalf("Generate() error = %v, want ErrExtractionFailed", err)
		}
		if f.repo.upload.status() != models.UploadStatusError {
			t.Errorf("status = %s, want error", f.repo.upload.status())
		}
	})

	t.Run("model unavailable flips to error", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)
		f.chat.err = llm.ErrUnavailable

		_, err := f.svc.Generate(ctx, 1, owner())
		if !errors.Is(err, ErrModelUnavailable) {
			t.Fatalf("Generate() error = %v, want ErrModelUnavailable", err)
		}
		if f.repo.upload.status() != models.UploadStatusError {
			t.Errorf("status = %s, want error", f.repo.upload.status())
		}
	})

	t.Run("commentary without JSON flips to error", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)
		f.chat.response = "I could not find anything useful in this document."

		_, err := f.svc.Generate(ctx, 1, owner())
		if !errors.Is(err, ErrMalformedModelOutput) {
			t.Fatalf("Generate() error = %v, want ErrMalformedModelOutput", err)
		}
		if f.repo.upload.status() != models.UploadStatusError {
			t.Errorf("status = %s, want error", f.repo.upload.status())
		}
	})

	t.Run("unparseable JSON span flips to error", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)
		f.chat.response = `{"cards": [}] oops {}`

		_, err := f.svc.Generate(ctx, 1, owner())
		if !errors.Is(err, ErrMalformedModelOutput) {
			t.Fatalf("Generate() error = %v, want ErrMalformedModelOutput", err)
		}
	})

	t.Run("empty cards array flips to error", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)
		f.chat.response = `{"cards":[]}`

		_, err := f.svc.Generate(ctx, 1, owner())
		if !errors.Is(err, ErrNoCardsInModelOutput) {
			t.Fatalf("Generate() error = %v, want ErrNoCardsInModelOutput", err)
		}
		if f.repo.upload.status() != models.UploadStatusError {
			t.Errorf("status = %s, want error", f.repo.upload.status())
		}
	})

	t.Run("all cards blank finishes done with zero created", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)
		f.chat.response = `{"cards":[{"q":"  ","a":"x"},{"q":"y","a":""}]}`

		resp, err := f.svc.Generate(ctx, 1, owner())
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if resp.Created != 0 {
			t.Errorf("created = %d, want 0", resp.Created)
		}
		if f.repo.upload.status() != models.UploadStatusDone {
			t.Errorf("status = %s, want done", f.repo.upload.status())
		}
		if len(f.repo.flashcard.cards) != 0 {
			t.Errorf("persisted cards = %d, want 0", len(f.repo.flashcard.cards))
		}
	})

	t.Run("persistence failure flips to error", func(t *testing.T) {
		f := newGenerationFixture(models.UploadStatusUploaded)
		f.repo.flashcard.err = errors.New("deadlock detected")

		_, err := f.svc.Generate(ctx, 1, owner())
		if err == nil {
			t.Fatal("Generate() error = nil, want persistence error")
		}
		if f.repo.upload.status() != models.UploadStatusError {
			t.Errorf("status = %s, want error", f.repo.upload.status())
		}
	})
}
