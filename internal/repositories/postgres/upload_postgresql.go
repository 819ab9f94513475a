package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/flashdeck-app/flashcard-service/internal/cache"
	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
)

type UploadPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewUploadPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.UploadRepository {
	return &UploadPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (u *UploadPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

func (u *UploadPostgreSQL) Create(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	db := u.getDB(tx)
	return db.WithContext(ctx).Create(upload).Error
}

func (u *UploadPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Upload, error) {
	db := u.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var upload models.Upload

	err := u.cacheManager.Upload.CacheOrExecute(ctx, cacheKey, &upload, cache.UploadCacheConfig.TTL, func() (interface{}, error) {
		var dbUpload models.Upload
		if err := db.WithContext(ctx).First(&dbUpload, id).Error; err != nil {
			return nil, err
		}
		return &dbUpload, nil
	})

	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (u *UploadPostgreSQL) Update(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	db := u.getDB(tx)
	if err := db.WithContext(ctx).Save(upload).Error; err != nil {
		return err
	}
	u.cacheManager.InvalidateUpload(ctx, upload.ID)
	return nil
}

func (u *UploadPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.UploadStatus) error {
	db := u.getDB(tx)
	res := db.WithContext(ctx).Model(&models.Upload{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	u.cacheManager.InvalidateUpload(ctx, id)
	return nil
}

func (u *UploadPostgreSQL) ClaimGenerating(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := u.getDB(tx)
	// Conditional transition: a row already in generating is not claimable, so
	// concurrent generation requests for the same upload cannot interleave.
	res := db.WithContext(ctx).Model(&models.Upload{}).
		Where("id = ? AND status <> ?", id, models.UploadStatusGenerating).
		Update("status", models.UploadStatusGenerating)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		u.cacheManager.InvalidateUpload(ctx, id)
		return true, nil
	}
	return false, nil
}

func (u *UploadPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := u.getDB(tx)
	// Flashcards are removed explicitly so the cascade does not depend on the
	// foreign key being enforced by the backing database.
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("upload_id = ?", id).Delete(&models.Flashcard{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Upload{}, id).Error
	})
	if err != nil {
		return err
	}
	u.cacheManager.InvalidateUpload(ctx, id)
	return nil
}

func (u *UploadPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.UploadFilters) ([]*models.Upload, int64, error) {
	db := u.getDB(tx)
	var uploads []*models.Upload
	var total int64

	query := db.WithContext(ctx).Model(&models.Upload{})
	query = u.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = u.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&uploads).Error; err != nil {
		return nil, 0, err
	}

	return uploads, total, nil
}

func (u *UploadPostgreSQL) GetByUserAndStatuses(ctx context.Context, tx *gorm.DB, userID uint, statuses []models.UploadStatus) ([]*models.Upload, error) {
	db := u.getDB(tx)
	var uploads []*models.Upload

	query := db.WithContext(ctx).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	if err := query.Order("id ASC").Find(&uploads).Error; err != nil {
		return nil, err
	}
	return uploads, nil
}

func (u *UploadPostgreSQL) applyFilters(query *gorm.DB, filters repositories.UploadFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if len(filters.Statuses) > 0 {
		query = query.Where("status IN ?", filters.Statuses)
	}
	if filters.Query != nil && *filters.Query != "" {
		query = query.Where("filename LIKE ?", "%"+*filters.Query+"%")
	}
	return query
}
