package repository

import (
	"context"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// FollowEventRepository reads and settles outbox rows written by FollowRepository.
type FollowEventRepository interface {
	ListPending(ctx context.Context, limit int) ([]models.FollowEvent, error)
	MarkSent(ctx context.Context, id uint) error
	// MarkAttempt records a failed delivery. The row becomes failed when final is set.
	MarkAttempt(ctx context.Context, id uint, lastErr string, final bool) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type followEventRepository struct {
	db *gorm.DB
}

// NewFollowEventRepository returns a new FollowEventRepository implementation.
func NewFollowEventRepository(db *gorm.DB) FollowEventRepository {
	return &followEventRepository{db: db}
}

func (r *followEventRepository) ListPending(ctx context.Context, limit int) ([]models.FollowEvent, error) {
	var events []models.FollowEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", models.OutboxStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return events, nil
}

func (r *followEventRepository) MarkSent(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.FollowEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   models.OutboxStatusSent,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followEventRepository) MarkAttempt(ctx context.Context, id uint, lastErr string, final bool) error {
	updates := map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": lastErr,
	}
	if final {
		updates["status"] = models.OutboxStatusFailed
	}
	if err := r.db.WithContext(ctx).Model(&models.FollowEvent{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followEventRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.FollowEvent{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
