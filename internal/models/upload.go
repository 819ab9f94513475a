package models

import (
	"time"

	"gorm.io/datatypes"
)

type UploadStatus string

const (
	UploadStatusUploaded   UploadStatus = "uploaded"
	UploadStatusGenerating UploadStatus = "generating"
	UploadStatusDone       UploadStatus = "done"
	UploadStatusError      UploadStatus = "error"
)

// ActiveUploadStatuses are the statuses the stream dispatcher keeps watching.
var ActiveUploadStatuses = []UploadStatus{UploadStatusUploaded, UploadStatusGenerating}

// TerminalUploadStatuses end observation of an upload within a stream session.
var TerminalUploadStatuses = []UploadStatus{UploadStatusDone, UploadStatusError}

type Upload struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	UserID   uint         `json:"user_id" gorm:"not null;index"`
	Filename string       `json:"filename" gorm:"not null;size:255"`
	Status   UploadStatus `json:"status" gorm:"not null;default:uploaded;index;size:20"`

	// GenerationMeta keeps the outcome of the last generation run (model name,
	// created card count, duration). Informational only.
	GenerationMeta datatypes.JSON `json:"generation_meta,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User       User        `json:"-" gorm:"foreignKey:UserID"`
	Flashcards []Flashcard `json:"-" gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE"`
}

func (Upload) TableName() string {
	return "uploads"
}

// IsTerminal reports whether the status is done or error. There is no
// transition out of a terminal status within one generation attempt.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusDone || s == UploadStatusError
}

// IsActive reports whether the upload still awaits or undergoes generation.
func (s UploadStatus) IsActive() bool {
	return s == UploadStatusUploaded || s == UploadStatusGenerating
}

func (s UploadStatus) Valid() bool {
	switch s {
	case UploadStatusUploaded, UploadStatusGenerating, UploadStatusDone, UploadStatusError:
		return true
	}
	return false
}
