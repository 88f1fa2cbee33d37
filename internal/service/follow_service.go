package service

import (
	"context"
	"errors"

	"yatube/internal/middleware"
	"yatube/internal/notifications"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

var (
	// ErrSelfFollow is returned when a user tries to follow themself.
	ErrSelfFollow = errors.New("cannot follow yourself")
	// ErrSelfUnfollow is returned when a user tries to unfollow themself.
	ErrSelfUnfollow = errors.New("cannot unfollow yourself")
)

// EventNotifier pushes realtime events to users.
type EventNotifier interface {
	Notify(ctx context.Context, userIDs []uint, eventType string, payload interface{}) error
}

// FollowService manages who follows whom.
type FollowService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	notifier   EventNotifier
}

// NewFollowService creates a FollowService. notifier may be nil.
func NewFollowService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	notifier EventNotifier,
) *FollowService {
	return &FollowService{
		userRepo:   userRepo,
		followRepo: followRepo,
		notifier:   notifier,
	}
}

// Follow makes currentUserID follow the user named targetUsername.
// It reports whether a live follow was created or revived.
func (s *FollowService) Follow(ctx context.Context, currentUserID uint, targetUsername string) (changed bool, err error) {
	ctx, span := observability.GetTraceLayer().TraceService(ctx, "FollowService", "Follow")
	defer func() { observability.EndSpan(span, err) }()

	target, err := s.userRepo.GetByUsername(ctx, targetUsername)
	if err != nil {
		recordFollow("follow", "error")
		return false, err
	}
	if target.ID == currentUserID {
		recordFollow("follow", "self")
		return false, ErrSelfFollow
	}

	changed, err = s.followRepo.Follow(ctx, currentUserID, target.ID)
	if err != nil {
		recordFollow("follow", "error")
		return false, err
	}
	if !changed {
		recordFollow("follow", "noop")
		return false, nil
	}
	recordFollow("follow", "changed")
	s.notifyFollower(ctx, currentUserID, target.ID)
	return true, nil
}

// Unfollow soft-deletes the live follow from currentUserID to targetUsername.
// A missing or already removed follow is not an error.
func (s *FollowService) Unfollow(ctx context.Context, currentUserID uint, targetUsername string) (changed bool, err error) {
	ctx, span := observability.GetTraceLayer().TraceService(ctx, "FollowService", "Unfollow")
	defer func() { observability.EndSpan(span, err) }()

	target, err := s.userRepo.GetByUsername(ctx, targetUsername)
	if err != nil {
		recordFollow("unfollow", "error")
		return false, err
	}
	if target.ID == currentUserID {
		recordFollow("unfollow", "self")
		return false, ErrSelfUnfollow
	}

	changed, err = s.followRepo.Unfollow(ctx, currentUserID, target.ID)
	if err != nil {
		recordFollow("unfollow", "error")
		return false, err
	}
	if changed {
		recordFollow("unfollow", "changed")
	} else {
		recordFollow("unfollow", "noop")
	}
	return changed, nil
}

// FollowersCount counts live followers of authorID.
func (s *FollowService) FollowersCount(ctx context.Context, authorID uint) (int64, error) {
	return s.followRepo.CountFollowers(ctx, authorID)
}

// FollowingCount counts authors userID follows.
func (s *FollowService) FollowingCount(ctx context.Context, userID uint) (int64, error) {
	return s.followRepo.CountFollowing(ctx, userID)
}

// IsFollowing reports whether userID has a live follow on authorID.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == 0 || userID == authorID {
		return false, nil
	}
	return s.followRepo.IsFollowing(ctx, userID, authorID)
}

func (s *FollowService) notifyFollower(ctx context.Context, followerID, authorID uint) {
	if s.notifier == nil {
		return
	}
	payload := map[string]interface{}{"follower_id": followerID}
	if follower, err := s.userRepo.GetByID(ctx, followerID); err == nil {
		payload["follower_username"] = follower.Username
	}
	if err := s.notifier.Notify(ctx, []uint{authorID}, notifications.EventFollowerAdded, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "follower notification failed", "author_id", authorID, "error", err)
	}
}

func recordFollow(action, outcome string) {
	observability.FollowOperations.WithLabelValues(action, outcome).Inc()
}
