package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/validator"
)

type cardService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) CardService {
	return &cardService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// resolveUpload loads an upload and enforces ownership for card operations.
func (s *cardService) resolveUpload(ctx context.Context, uploadID uint, user *models.User, action string) (*models.Upload, error) {
	upload, err := s.repo.Upload().GetByID(ctx, nil, uploadID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	if upload.UserID != user.ID && !user.IsAdmin() {
		return nil, NewPermissionError(user.ID, uploadID, "upload", action, "not owned by user")
	}
	return upload, nil
}

func (s *cardService) Create(ctx context.Context, uploadID uint, req *CreateCardRequest, user *models.User) (*models.Flashcard, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.resolveUpload(ctx, uploadID, user, "add card to"); err != nil {
		return nil, err
	}

	card := &models.Flashcard{
		UploadID: uploadID,
		Question: strings.TrimSpace(req.Question),
		Answer:   strings.TrimSpace(req.Answer),
	}
	if err := s.repo.Flashcard().Create(ctx, nil, card); err != nil {
		return nil, fmt.Errorf("failed to create flashcard: %w", err)
	}

	s.logger.Info("Flashcard created", "card_id", card.ID, "upload_id", uploadID, "user_id", user.ID)
	return card, nil
}

func (s *cardService) ListByUpload(ctx context.Context, uploadID uint, user *models.User) ([]*models.Flashcard, error) {
	if _, err := s.resolveUpload(ctx, uploadID, user, "list cards of"); err != nil {
		return nil, err
	}

	cards, err := s.repo.Flashcard().GetByUpload(ctx, nil, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards: %w", err)
	}
	return cards, nil
}

func (s *cardService) Delete(ctx context.Context, id uint, user *models.User) error {
	card, err := s.repo.Flashcard().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCardNotFound
		}
		return fmt.Errorf("failed to get flashcard: %w", err)
	}

	if _, err := s.resolveUpload(ctx, card.UploadID, user, "delete card of"); err != nil {
		return err
	}

	if err := s.repo.Flashcard().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete flashcard: %w", err)
	}

	s.logger.Info("Flashcard deleted", "card_id", id, "user_id", user.ID)
	return nil
}

func (s *cardService) ExportXLSX(ctx context.Context, uploadID uint, user *models.User) ([]byte, string, error) {
	upload, err := s.resolveUpload(ctx, uploadID, user, "export cards of")
	if err != nil {
		return nil, "", err
	}

	cards, err := s.repo.Flashcard().GetByUpload(ctx, nil, uploadID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list flashcards: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Flashcards"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Question", "Answer"}); err != nil {
		return nil, "", fmt.Errorf("failed to write header: %w", err)
	}
	for i, card := range cards {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", fmt.Errorf("failed to compute cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{card.Question, card.Answer}); err != nil {
			return nil, "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	name := fmt.Sprintf("%s-cards.xlsx", strings.TrimSuffix(upload.Filename, ".pdf"))
	return buf.Bytes(), name, nil
}
