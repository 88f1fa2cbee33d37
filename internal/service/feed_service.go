package service

import (
	"context"
	"encoding/json"
	"time"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/pagination"
	"yatube/internal/repository"
)

// PostPage is one page of a post feed.
type PostPage = pagination.Page[models.Post]

// GroupFeed is a group together with a page of its posts.
type GroupFeed struct {
	Group *models.Group `json:"group"`
	Page  PostPage      `json:"page_obj"`
}

// ProfileFeed is an author's page: their posts plus follow information.
type ProfileFeed struct {
	Author         *models.User `json:"author"`
	FollowersCount int64        `json:"followers_count"`
	FollowingCount int64        `json:"following_count"`
	// Following is true when the viewer has a live follow on the author.
	Following bool     `json:"following"`
	Page      PostPage `json:"page_obj"`
}

// FeedOptions tunes paging and the index cache.
type FeedOptions struct {
	PageSize int
	IndexTTL time.Duration
}

// FeedService builds the paginated post feeds.
type FeedService struct {
	postRepo   repository.PostRepository
	groupRepo  repository.GroupRepository
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	store      cache.Store
	pageSize   int
	indexTTL   time.Duration
}

// NewFeedService creates a FeedService. A nil store disables index caching.
func NewFeedService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	store cache.Store,
	opts FeedOptions,
) *FeedService {
	if opts.PageSize <= 0 {
		opts.PageSize = pagination.PageSize
	}
	if opts.IndexTTL <= 0 {
		opts.IndexTTL = cache.IndexPageTTL
	}
	return &FeedService{
		postRepo:   postRepo,
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		followRepo: followRepo,
		store:      store,
		pageSize:   opts.PageSize,
		indexTTL:   opts.IndexTTL,
	}
}

// GlobalFeed returns a page of every post. Pages are cached under
// index_page:<page> for every viewer and may be stale for up to the TTL.
// A page past the end is served as the last page and is not cached.
func (s *FeedService) GlobalFeed(ctx context.Context, page int) (result PostPage, err error) {
	ctx, span := observability.GetTraceLayer().TraceService(ctx, "FeedService", "GlobalFeed")
	defer func() { observability.EndSpan(span, err) }()

	if page < 1 {
		page = 1
	}
	key := cache.IndexPageKey(page)
	if cache.Load(ctx, s.store, key, &result) {
		return result, nil
	}

	fresh, err := s.page(ctx, repository.PostFilter{}, page)
	if err != nil {
		return result, err
	}
	// Only in-range pages are stored, so the keyspace is bounded by the page count.
	if fresh.Number != page {
		return fresh, nil
	}
	raw, err := cache.Save(ctx, s.store, key, s.indexTTL, fresh)
	if err != nil {
		return result, err
	}
	return result, json.Unmarshal(raw, &result)
}

// GroupFeed returns the group with the given slug and a page of its posts.
func (s *FeedService) GroupFeed(ctx context.Context, slug string, page int) (*GroupFeed, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	p, err := s.page(ctx, repository.PostFilter{GroupID: group.ID}, page)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Page: p}, nil
}

// ProfileFeed returns an author's posts. viewerID is 0 for anonymous viewers.
func (s *FeedService) ProfileFeed(ctx context.Context, username string, viewerID uint, page int) (*ProfileFeed, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	p, err := s.page(ctx, repository.PostFilter{AuthorID: author.ID}, page)
	if err != nil {
		return nil, err
	}
	followers, err := s.followRepo.CountFollowers(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowing(ctx, author.ID)
	if err != nil {
		return nil, err
	}

	feed := &ProfileFeed{
		Author:         author,
		FollowersCount: followers,
		FollowingCount: following,
		Page:           p,
	}
	if viewerID != 0 && viewerID != author.ID {
		if feed.Following, err = s.followRepo.IsFollowing(ctx, viewerID, author.ID); err != nil {
			return nil, err
		}
	}
	return feed, nil
}

// FollowingFeed returns posts by authors userID follows.
func (s *FeedService) FollowingFeed(ctx context.Context, userID uint, page int) (PostPage, error) {
	return s.page(ctx, repository.PostFilter{FollowerID: userID}, page)
}

// InvalidateIndex drops every cached index page.
func (s *FeedService) InvalidateIndex(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Invalidate(ctx, cache.IndexPagePrefix+":")
}

func (s *FeedService) page(ctx context.Context, filter repository.PostFilter, number int) (PostPage, error) {
	total, err := s.postRepo.Count(ctx, filter)
	if err != nil {
		return PostPage{}, err
	}
	offset, limit, clamped := pagination.Window(number, total, s.pageSize)

	var items []models.Post
	if total > 0 {
		if items, err = s.postRepo.List(ctx, filter, offset, limit); err != nil {
			return PostPage{}, err
		}
	}
	return pagination.New(items, clamped, total, s.pageSize), nil
}
