package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/CWB-F-2025/whiteboard-service/internal/models"
	"github.com/CWB-F-2025/whiteboard-service/internal/repositories"
)

type UploadPostgreSQL struct {
	db *gorm.DB
}

func NewUploadPostgreSQL(db *gorm.DB) repositories.UploadRepository {
	return &UploadPostgreSQL{db: db}
}

func (u *UploadPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

func (u *UploadPostgreSQL) Create(ctx context.Context, tx *gorm.DB, upload *models.UploadedFile) error {
	if err := u.getDB(tx).WithContext(ctx).Create(upload).Error; err != nil {
		return fmt.Errorf("failed to create upload record: %w", err)
	}
	return nil
}

func (u *UploadPostgreSQL) ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*models.UploadedFile, error) {
	var uploads []*models.UploadedFile
	err := u.getDB(tx).WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("uploaded_at DESC").
		Find(&uploads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return uploads, nil
}

func (u *UploadPostgreSQL) CountBySession(ctx context.Context, tx *gorm.DB, sessionID string) (int64, error) {
	var count int64
	err := u.getDB(tx).WithContext(ctx).
		Model(&models.UploadedFile{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return count, nil
}
