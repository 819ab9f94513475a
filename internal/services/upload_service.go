package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/flashdeck-app/flashcard-service/internal/events"
	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/storage"
	"github.com/flashdeck-app/flashcard-service/internal/validator"
)

type uploadService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	files     storage.FileStore
	publisher events.EventPublisher
}

func NewUploadService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, files storage.FileStore, publisher events.EventPublisher) UploadService {
	return &uploadService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		files:     files,
		publisher: publisher,
	}
}

func (s *uploadService) Create(ctx context.Context, user *models.User, filename string, data []byte) (*models.Upload, error) {
	s.logger.Info("Storing upload", "user_id", user.ID, "filename", filename)

	stored, err := s.files.Save(filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	upload := &models.Upload{
		UserID:   user.ID,
		Filename: stored,
		Status:   models.UploadStatusUploaded,
	}
	if err := s.repo.Upload().Create(ctx, nil, upload); err != nil {
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.TypeUploadCreated, events.UploadEvent{
		UploadID: upload.ID,
		UserID:   user.ID,
		Filename: stored,
	}))

	s.logger.Info("Upload stored", "upload_id", upload.ID, "user_id", user.ID)
	return upload, nil
}

func (s *uploadService) GetByID(ctx context.Context, id uint, user *models.User) (*models.Upload, error) {
	upload, err := s.repo.Upload().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	if upload.UserID != user.ID && !user.IsAdmin() {
		return nil, NewPermissionError(user.ID, id, "upload", "read", "not owned by user")
	}

	return upload, nil
}

func (s *uploadService) List(ctx context.Context, user *models.User, filters repositories.UploadFilters) (*UploadListResponse, error) {
	// Ordinary users only ever see their own uploads; admins may scope freely
	if !user.IsAdmin() {
		filters.UserID = &user.ID
	}
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}

	uploads, total, err := s.repo.Upload().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	page := (filters.Offset / filters.Limit) + 1
	return &UploadListResponse{
		Uploads: uploads,
		Total:   total,
		Page:    page,
		Size:    filters.Limit,
	}, nil
}

func (s *uploadService) Delete(ctx context.Context, id uint, user *models.User) error {
	upload, err := s.GetByID(ctx, id, user)
	if err != nil {
		return err
	}

	// Row first: cards cascade with the upload, the file second
	if err := s.repo.Upload().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	if err := s.files.Delete(upload.Filename); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		s.logger.Warn("Failed to delete stored file", "upload_id", id, "filename", upload.Filename, "error", err)
	}

	s.publish(ctx, events.NewEvent(events.TypeUploadDeleted, events.UploadEvent{
		UploadID: id,
		UserID:   upload.UserID,
		Filename: upload.Filename,
	}))

	s.logger.Info("Upload deleted", "upload_id", id, "user_id", user.ID)
	return nil
}

func (s *uploadService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "type", event.Type, "error", err)
	}
}
