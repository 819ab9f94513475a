package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/flashdeck-app/flashcard-service/internal/events"
	"github.com/flashdeck-app/flashcard-service/internal/llm"
	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/pdfext"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/storage"
)

type generationService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	files     storage.FileStore
	extractor pdfext.TextExtractor
	chat      llm.ChatClient
	publisher events.EventPublisher
	model     string
	pageLimit int
}

func NewGenerationService(repo repositories.Repository, logger *slog.Logger, files storage.FileStore, extractor pdfext.TextExtractor, chat llm.ChatClient, publisher events.EventPublisher, model string, pageLimit int) GenerationService {
	return &generationService{
		repo:      repo,
		logger:    logger,
		files:     files,
		extractor: extractor,
		chat:      chat,
		publisher: publisher,
		model:     model,
		pageLimit: pageLimit,
	}
}

// cardsEnvelope is the JSON shape the model is prompted to answer with.
type cardsEnvelope struct {
	Cards []struct {
		Q string `json:"q"`
		A string `json:"a"`
	} `json:"cards"`
}

// generationMeta is persisted onto the upload after a successful run.
type generationMeta struct {
	Model      string `json:"model"`
	Created    int    `json:"created"`
	DurationMS int64  `json:"duration_ms"`
}

func (s *generationService) Generate(ctx context.Context, uploadID uint, user *models.User) (*GenerateResponse, error) {
	upload, err := s.repo.Upload().GetByID(ctx, nil, uploadID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	if upload.UserID != user.ID && !user.IsAdmin() {
		return nil, NewPermissionError(user.ID, uploadID, "upload", "generate cards for", "not owned by user")
	}

	// The claim is a conditional update on the status column, so of two
	// concurrent requests exactly one proceeds.
	claimed, err := s.repo.Upload().ClaimGenerating(ctx, nil, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim upload: %w", err)
	}
	if !claimed {
		return nil, ErrGenerationInProgress
	}

	s.logger.Info("Generation started", "upload_id", uploadID, "user_id", user.ID, "model", s.model)
	s.publishStatusChange(ctx, upload, upload.Status, models.UploadStatusGenerating)

	started := time.Now()
	created, err := s.runPipeline(ctx, upload)
	if err != nil {
		s.finishWithError(ctx, upload, err)
		return nil, err
	}

	meta, merr := json.Marshal(generationMeta{
		Model:      s.model,
		Created:    created,
		DurationMS: time.Since(started).Milliseconds(),
	})
	if merr != nil {
		meta = nil
	}

	upload.Status = models.UploadStatusDone
	upload.GenerationMeta = datatypes.JSON(meta)
	if err := s.repo.Upload().Update(ctx, nil, upload); err != nil {
		s.finishWithError(ctx, upload, err)
		return nil, fmt.Errorf("failed to finish upload: %w", err)
	}

	s.publishStatusChange(ctx, upload, models.UploadStatusGenerating, models.UploadStatusDone)
	s.publish(ctx, events.NewEvent(events.TypeCardsGenerated, events.CardsGeneratedEvent{
		UploadID: uploadID,
		UserID:   upload.UserID,
		Created:  created,
	}))

	s.logger.Info("Generation finished", "upload_id", uploadID, "created", created, "duration", time.Since(started))
	return &GenerateResponse{Created: created}, nil
}

// runPipeline performs extraction, model chat, parsing and card persistence.
// The upload is already in the generating status when this runs.
func (s *generationService) runPipeline(ctx context.Context, upload *models.Upload) (int, error) {
	path, err := s.files.Path(upload.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return 0, ErrUploadFileMissing
		}
		return 0, fmt.Errorf("failed to resolve stored file: %w", err)
	}

	text, err := s.extractor.ExtractText(path, s.pageLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	raw, err := s.chat.Chat(ctx, llm.BuildCardsPrompt(text))
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnavailable):
			return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		case errors.Is(err, llm.ErrResponseTooLarge):
			return 0, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
		}
		return 0, fmt.Errorf("failed to query model: %w", err)
	}

	span, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return 0, ErrMalformedModelOutput
	}

	var envelope cardsEnvelope
	if err := json.Unmarshal([]byte(span), &envelope); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}
	if len(envelope.Cards) == 0 {
		return 0, ErrNoCardsInModelOutput
	}

	// Cards with a blank question or answer are dropped rather than rejected,
	// so a run can legitimately finish with zero cards created
	cards := make([]*models.Flashcard, 0, len(envelope.Cards))
	for _, c := range envelope.Cards {
		q := strings.TrimSpace(c.Q)
		a := strings.TrimSpace(c.A)
		if q == "" || a == "" {
			continue
		}
		cards = append(cards, &models.Flashcard{
			UploadID: upload.ID,
			Question: q,
			Answer:   a,
		})
	}
	if len(cards) == 0 {
		return 0, nil
	}

	if err := s.repo.Flashcard().CreateBatch(ctx, nil, cards); err != nil {
		return 0, fmt.Errorf("failed to persist cards: %w", err)
	}
	return len(cards), nil
}

// finishWithError moves the upload to the error status no matter why the run
// failed, including request cancellation, so it never stays stuck generating.
func (s *generationService) finishWithError(ctx context.Context, upload *models.Upload, cause error) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.repo.Upload().UpdateStatus(cleanupCtx, nil, upload.ID, models.UploadStatusError); err != nil {
		s.logger.Error("Failed to mark upload as errored", "upload_id", upload.ID, "error", err, "cause", cause)
		return
	}

	s.publishStatusChange(cleanupCtx, upload, models.UploadStatusGenerating, models.UploadStatusError)
	s.logger.Warn("Generation failed", "upload_id", upload.ID, "error", cause)
}

func (s *generationService) publishStatusChange(ctx context.Context, upload *models.Upload, from, to models.UploadStatus) {
	s.publish(ctx, events.NewEvent(events.TypeUploadStatusChanged, events.UploadStatusChangedEvent{
		UploadID: upload.ID,
		UserID:   upload.UserID,
		From:     string(from),
		To:       string(to),
	}))
}

func (s *generationService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "type", event.Type, "error", err)
	}
}
