package models

import (
	"time"
)

// UploadedFile records an attachment stored in object storage under the
// session's key namespace.
type UploadedFile struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	SessionID  string `json:"session_id" gorm:"not null;size:36;index"`
	UploaderID string `json:"uploader_id" gorm:"not null;size:255;index"`
	FileName   string `json:"file_name" gorm:"not null;size:255"`
	StorageKey string `json:"-" gorm:"not null;size:500"`
	FileURL    string `json:"file_url" gorm:"not null;size:500"`
	SizeBytes  int64  `json:"size_bytes" gorm:"not null"`

	UploadedAt time.Time `json:"uploaded_at" gorm:"autoCreateTime;index"`

	Session  Session `json:"-" gorm:"foreignKey:SessionID"`
	Uploader User    `json:"uploader" gorm:"foreignKey:UploaderID"`
}

func (UploadedFile) TableName() string {
	return "uploaded_files"
}
