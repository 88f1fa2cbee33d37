package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository manages follow relationships. Rows are never removed:
// unfollowing flips IsDeleted and following again revives the row.
type FollowRepository interface {
	// Follow makes userID a live follower of authorID. changed is false when
	// the relationship was already live.
	Follow(ctx context.Context, userID, authorID uint) (changed bool, err error)
	// Unfollow soft-deletes the relationship. changed is false when there was
	// no live relationship.
	Unfollow(ctx context.Context, userID, authorID uint) (changed bool, err error)
	IsFollowing(ctx context.Context, userID, authorID uint) (bool, error)
	CountFollowers(ctx context.Context, authorID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
	FollowerIDs(ctx context.Context, authorID uint) ([]uint, error)
}

type followRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, now: time.Now}
}

type followEventPayload struct {
	EventType  string    `json:"event_type"`
	UserID     uint      `json:"user_id"`
	AuthorID   uint      `json:"author_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (r *followRepository) lockPair(tx *gorm.DB, userID, authorID uint) (*models.Follow, error) {
	var follow models.Follow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Take(&follow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &follow, nil
}

func (r *followRepository) Follow(ctx context.Context, userID, authorID uint) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := r.lockPair(tx, userID, authorID)
		if err != nil {
			return err
		}

		if existing == nil {
			follow := models.Follow{UserID: userID, AuthorID: authorID}
			res := tx.Omit("User", "Author").
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&follow)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				changed = true
				return r.recordEvent(tx, models.FollowEventFollow, userID, authorID)
			}
			// Lost the insert race; continue with the row the winner created.
			if existing, err = r.lockPair(tx, userID, authorID); err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("follow %d->%d vanished after conflict", userID, authorID)
			}
		}

		if !existing.IsDeleted {
			return nil
		}
		if err := tx.Model(existing).Updates(map[string]interface{}{
			"is_deleted": false,
			"updated_at": r.now(),
		}).Error; err != nil {
			return err
		}
		changed = true
		return r.recordEvent(tx, models.FollowEventFollow, userID, authorID)
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return changed, nil
}

func (r *followRepository) Unfollow(ctx context.Context, userID, authorID uint) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := r.lockPair(tx, userID, authorID)
		if err != nil {
			return err
		}
		if existing == nil || existing.IsDeleted {
			return nil
		}
		if err := tx.Model(existing).Updates(map[string]interface{}{
			"is_deleted": true,
			"updated_at": r.now(),
		}).Error; err != nil {
			return err
		}
		changed = true
		return r.recordEvent(tx, models.FollowEventUnfollow, userID, authorID)
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return changed, nil
}

// recordEvent appends an outbox row inside the caller's transaction.
func (r *followRepository) recordEvent(tx *gorm.DB, eventType string, userID, authorID uint) error {
	payload, err := json.Marshal(followEventPayload{
		EventType:  eventType,
		UserID:     userID,
		AuthorID:   authorID,
		OccurredAt: r.now().UTC(),
	})
	if err != nil {
		return err
	}
	return tx.Create(&models.FollowEvent{
		EventType: eventType,
		UserID:    userID,
		AuthorID:  authorID,
		Payload:   string(payload),
		Status:    models.OutboxStatusPending,
	}).Error
}

func (r *followRepository) live(ctx context.Context) *gorm.DB {
	return readDB(r.db).WithContext(ctx).Model(&models.Follow{}).Where("is_deleted = ?", false)
}

func (r *followRepository) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	var count int64
	if err := r.live(ctx).Where("user_id = ? AND author_id = ?", userID, authorID).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	if err := r.live(ctx).Where("author_id = ?", authorID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.live(ctx).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *followRepository) FollowerIDs(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	if err := r.live(ctx).Where("author_id = ?", authorID).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
