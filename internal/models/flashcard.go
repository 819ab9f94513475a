package models

import "time"

// Flashcard is a question/answer pair belonging to exactly one upload.
// Cards are created by the generation pipeline or manually by the owner,
// and are removed together with their upload.
type Flashcard struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UploadID uint   `json:"upload_id" gorm:"not null;index"`
	Question string `json:"question" gorm:"not null;type:text"`
	Answer   string `json:"answer" gorm:"not null;type:text"`

	CreatedAt time.Time `json:"created_at"`

	Upload Upload `json:"-" gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}
