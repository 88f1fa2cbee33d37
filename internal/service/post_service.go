package service

import (
	"context"
	"errors"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/notifications"
	"yatube/internal/observability"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// ErrNotAuthor is returned when someone other than the author edits a post.
var ErrNotAuthor = errors.New("only the author can edit this post")

// ImageStore persists uploaded post images and returns their media path.
type ImageStore interface {
	Save(ctx context.Context, in UploadImageInput) (string, error)
}

type PostService struct {
	postRepo   repository.PostRepository
	groupRepo  repository.GroupRepository
	followRepo repository.FollowRepository
	images     ImageStore
	notifier   EventNotifier
}

type CreatePostInput struct {
	AuthorID uint
	Text     string
	GroupID  *uint
	Image    *UploadImageInput
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Text    string
	GroupID *uint
	Image   *UploadImageInput
}

// NewPostService creates a PostService. images and notifier may be nil.
func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	followRepo repository.FollowRepository,
	images ImageStore,
	notifier EventNotifier,
) *PostService {
	return &PostService{
		postRepo:   postRepo,
		groupRepo:  groupRepo,
		followRepo: followRepo,
		images:     images,
		notifier:   notifier,
	}
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// CreatePost validates and stores a post, then tells the author's followers.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.GetTraceLayer().TraceService(ctx, "PostService", "CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	if err := s.validate(ctx, in.Text, in.GroupID); err != nil {
		return nil, err
	}

	post = &models.Post{
		Text:     in.Text,
		AuthorID: in.AuthorID,
		GroupID:  in.GroupID,
	}
	if in.Image != nil {
		if post.Image, err = s.saveImage(ctx, *in.Image); err != nil {
			return nil, err
		}
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	s.notifyFollowers(ctx, created)
	return created, nil
}

// EditablePost returns the post when userID is its author and ErrNotAuthor otherwise.
func (s *PostService) EditablePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return post, ErrNotAuthor
	}
	return post, nil
}

// UpdatePost replaces the text and group of a post. A nil GroupID removes the
// post from its group. The image is replaced only when a new one is given.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.GetTraceLayer().TraceService(ctx, "PostService", "UpdatePost")
	defer func() { observability.EndSpan(span, err) }()

	post, err = s.EditablePost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, in.Text, in.GroupID); err != nil {
		return nil, err
	}

	post.Text = in.Text
	post.GroupID = in.GroupID
	post.Group = nil
	if in.Image != nil {
		if post.Image, err = s.saveImage(ctx, *in.Image); err != nil {
			return nil, err
		}
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) validate(ctx context.Context, text string, groupID *uint) error {
	if err := validation.Struct(validation.PostForm{Text: text, Group: groupID}); err != nil {
		return err
	}
	if groupID == nil {
		return nil
	}
	if _, err := s.groupRepo.GetByID(ctx, *groupID); err != nil {
		if models.IsNotFound(err) {
			return models.NewFieldValidationError(map[string]string{
				"group": "Select a valid choice. That choice is not one of the available choices.",
			})
		}
		return err
	}
	return nil
}

func (s *PostService) saveImage(ctx context.Context, in UploadImageInput) (string, error) {
	if s.images == nil {
		return "", models.NewValidationError("Image uploads are not enabled")
	}
	return s.images.Save(ctx, in)
}

func (s *PostService) notifyFollowers(ctx context.Context, post *models.Post) {
	if s.notifier == nil {
		return
	}
	followerIDs, err := s.followRepo.FollowerIDs(ctx, post.AuthorID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load followers for notification", "post_id", post.ID, "error", err)
		return
	}
	payload := map[string]interface{}{
		"post_id":  post.ID,
		"author":   post.Author.Username,
		"preview":  post.String(),
		"pub_date": post.CreatedAt,
	}
	if err := s.notifier.Notify(ctx, followerIDs, notifications.EventPostCreated, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "post notification failed", "post_id", post.ID, "error", err)
	}
}
