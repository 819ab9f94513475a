package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/flashdeck-app/flashcard-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type UserFilters struct {
	Role      *models.UserRole `json:"role"`
	Query     *string          `json:"query"` // matches username or email
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	SortBy    string           `json:"sort_by"`
	SortOrder string           `json:"sort_order"`
}

type UploadFilters struct {
	UserID    *uint                 `json:"user_id"`
	Statuses  []models.UploadStatus `json:"statuses"`
	Query     *string               `json:"query"` // matches filename
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// ===== REPOSITORY INTERFACES =====

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)
	UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error
	UpdateRole(ctx context.Context, tx *gorm.DB, id uint, role models.UserRole) error
}

type UploadRepository interface {
	Create(ctx context.Context, tx *gorm.DB, upload *models.Upload) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Upload, error)
	Update(ctx context.Context, tx *gorm.DB, upload *models.Upload) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.UploadStatus) error

	// ClaimGenerating conditionally moves an upload into the generating status.
	// The update only matches rows whose status is not already generating, so
	// two concurrent generation requests for the same upload cannot both win.
	// Returns false when the row was already claimed.
	ClaimGenerating(ctx context.Context, tx *gorm.DB, id uint) (bool, error)

	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters UploadFilters) ([]*models.Upload, int64, error)

	// GetByUserAndStatuses is the stream dispatcher's poll read: all uploads of
	// one user currently in any of the given statuses, unpaginated.
	GetByUserAndStatuses(ctx context.Context, tx *gorm.DB, userID uint, statuses []models.UploadStatus) ([]*models.Upload, error)
}

type FlashcardRepository interface {
	Create(ctx context.Context, tx *gorm.DB, card *models.Flashcard) error
	CreateBatch(ctx context.Context, tx *gorm.DB, cards []*models.Flashcard) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Flashcard, error)
	GetByUpload(ctx context.Context, tx *gorm.DB, uploadID uint) ([]*models.Flashcard, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	DeleteByUpload(ctx context.Context, tx *gorm.DB, uploadID uint) error
	CountByUpload(ctx context.Context, tx *gorm.DB, uploadID uint) (int64, error)
}

// Repository is the storage collaborator surface consumed by the services.
type Repository interface {
	User() UserRepository
	Upload() UploadRepository
	Flashcard() FlashcardRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
