package services

import (
	"context"

	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use validator request types
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type ChangePasswordRequest = validator.ChangePasswordRequest
type CreateCardRequest = validator.CardCreateRequest

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

type UploadListResponse struct {
	Uploads []*models.Upload `json:"uploads"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Size    int              `json:"size"`
}

type GenerateResponse struct {
	Created int `json:"created"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error

	// ValidateToken is the identity gate: it resolves an opaque bearer token to
	// the user it was issued for, or fails with ErrAuthInvalid.
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

type UploadService interface {
	Create(ctx context.Context, user *models.User, filename string, data []byte) (*models.Upload, error)
	GetByID(ctx context.Context, id uint, user *models.User) (*models.Upload, error)
	List(ctx context.Context, user *models.User, filters repositories.UploadFilters) (*UploadListResponse, error)
	Delete(ctx context.Context, id uint, user *models.User) error
}

type CardService interface {
	Create(ctx context.Context, uploadID uint, req *CreateCardRequest, user *models.User) (*models.Flashcard, error)
	ListByUpload(ctx context.Context, uploadID uint, user *models.User) ([]*models.Flashcard, error)
	Delete(ctx context.Context, id uint, user *models.User) error

	// ExportXLSX renders all cards of an upload as an Excel workbook.
	ExportXLSX(ctx context.Context, uploadID uint, user *models.User) ([]byte, string, error)
}

// GenerationService drives an upload through its lifecycle:
// uploaded → generating → done|error. Each transition is committed before the
// next pipeline step so concurrent readers observe the in-flight state.
type GenerationService interface {
	Generate(ctx context.Context, uploadID uint, user *models.User) (*GenerateResponse, error)
}

// ServiceManager provides access to all services
type ServiceManager interface {
	Auth() AuthService
	Upload() UploadService
	Card() CardService
	Generation() GenerationService

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}
