package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/team-task-api/internal/models"
)

// GormSessionRepository is a GORM implementation of SessionRepository
type GormSessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Add(ctx context.Context, session *models.RefreshSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *GormSessionRepository) Exists(ctx context.Context, userID uint64, tokenHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RefreshSession{}).
		Where("user_id = ? AND token_hash = ?", userID, tokenHash).
		Count(&count).Error
	return count > 0, err
}

func (r *GormSessionRepository) ListByUser(ctx context.Context, userID uint64) ([]models.RefreshSession, error) {
	var sessions []models.RefreshSession
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("issued_at ASC").Order("id ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *GormSessionRepository) Delete(ctx context.Context, userID uint64, tokenHash string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND token_hash = ?", userID, tokenHash).
		Delete(&models.RefreshSession{}).Error
}

func (r *GormSessionRepository) DeleteAll(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshSession{}).Error
}

func (r *GormSessionRepository) DeleteIssuedBefore(ctx context.Context, userID uint64, cutoff time.Time) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND issued_at < ?", userID, cutoff).
		Delete(&models.RefreshSession{}).Error
}

func (r *GormSessionRepository) DeleteByIDs(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.RefreshSession{}).Error
}
