package postgres

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
)

type FlashcardPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewFlashcardPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.FlashcardRepository {
	return &FlashcardPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (f *FlashcardPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return f.db
}

func (f *FlashcardPostgreSQL) Create(ctx context.Context, tx *gorm.DB, card *models.Flashcard) error {
	db := f.getDB(tx)
	return db.WithContext(ctx).Create(card).Error
}

func (f *FlashcardPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, cards []*models.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	db := f.getDB(tx)
	return db.WithContext(ctx).Create(cards).Error
}

func (f *FlashcardPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Flashcard, error) {
	db := f.getDB(tx)
	var card models.Flashcard
	if err := db.WithContext(ctx).First(&card, id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (f *FlashcardPostgreSQL) GetByUpload(ctx context.Context, tx *gorm.DB, uploadID uint) ([]*models.Flashcard, error) {
	db := f.getDB(tx)
	var cards []*models.Flashcard
	if err := db.WithContext(ctx).Where("upload_id = ?", uploadID).Order("id ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (f *FlashcardPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := f.getDB(tx)
	res := db.WithContext(ctx).Delete(&models.Flashcard{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (f *FlashcardPostgreSQL) DeleteByUpload(ctx context.Context, tx *gorm.DB, uploadID uint) error {
	db := f.getDB(tx)
	return db.WithContext(ctx).Where("upload_id = ?", uploadID).Delete(&models.Flashcard{}).Error
}

func (f *FlashcardPostgreSQL) CountByUpload(ctx context.Context, tx *gorm.DB, uploadID uint) (int64, error) {
	db := f.getDB(tx)
	var count int64
	err := db.WithContext(ctx).Model(&models.Flashcard{}).Where("upload_id = ?", uploadID).Count(&count).Error
	return count, err
}
