package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newFeedService(t *testing.T, store cache.Store) (*FeedService, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	svc := NewFeedService(
		repository.NewPostRepository(db),
		repository.NewGroupRepository(db),
		repository.NewUserRepository(db),
		repository.NewFollowRepository(db),
		store,
		FeedOptions{},
	)
	return svc, db
}

func TestFeedService_GlobalFeedPaging(t *testing.T) {
	svc, db := newFeedService(t, nil)
	author := testutil.CreateUser(t, db, "author")
	for i := 0; i < 13; i++ {
		testutil.CreatePost(t, db, author, nil, "post")
	}
	ctx := context.Background()

	page1, err := svc.GlobalFeed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 10)
	assert.Equal(t, 2, page1.TotalPages)
	assert.True(t, page1.HasNext)

	page2, err := svc.GlobalFeed(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 3)

	clamped, err := svc.GlobalFeed(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 2, clamped.Number)
	assert.Len(t, clamped.Items, 3)

	assert.True(t, page1.Items[0].CreatedAt.After(page1.Items[9].CreatedAt), "newest first")
	assert.Equal(t, "author", page1.Items[0].Author.Username)
}

func TestFeedService_EmptyFeedHasOneEmptyPage(t *testing.T) {
	svc, _ := newFeedService(t, nil)

	page, err := svc.GlobalFeed(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestFeedService_OutOfRangePagesAreNotCached(t *testing.T) {
	store := cache.NewMemoryStore()
	svc, db := newFeedService(t, store)
	author := testutil.CreateUser(t, db, "author")
	for i := 0; i < 13; i++ {
		testutil.CreatePost(t, db, author, nil, "post")
	}
	ctx := context.Background()

	for n := 1; n <= 500; n++ {
		page, err := svc.GlobalFeed(ctx, n)
		require.NoError(t, err)
		if n >= 2 {
			assert.Equal(t, 2, page.Number)
		}
	}

	assert.Equal(t, 2, store.Len())
	_, found, err := store.Get(ctx, cache.IndexPageKey(3))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFeedService_IndexCacheServesStaleUntilInvalidated(t *testing.T) {
	store := cache.NewMemoryStore()
	svc, db := newFeedService(t, store)
	author := testutil.CreateUser(t, db, "author")
	testutil.CreatePost(t, db, author, nil, "cached")
	ctx := context.Background()

	first, err := svc.GlobalFeed(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	require.NoError(t, db.Where("1 = 1").Delete(&models.Post{}).Error)

	second, err := svc.GlobalFeed(ctx, 1)
	require.NoError(t, err)
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.JSONEq(t, string(a), string(b))

	_, found, err := store.Get(ctx, cache.IndexPageKey(1))
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, svc.InvalidateIndex(ctx))
	third, err := svc.GlobalFeed(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, third.Items)
	assert.Zero(t, third.TotalCount)
}

func TestFeedService_IndexCacheExpires(t *testing.T) {
	store := cache.NewMemoryStore()
	db := testutil.NewSQLiteDB(t)
	svc := NewFeedService(repository.NewPostRepository(db), repository.NewGroupRepository(db),
		repository.NewUserRepository(db), repository.NewFollowRepository(db), store,
		FeedOptions{IndexTTL: 50 * time.Millisecond})
	author := testutil.CreateUser(t, db, "author")
	ctx := context.Background()

	empty, err := svc.GlobalFeed(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, empty.Items)

	testutil.CreatePost(t, db, author, nil, "fresh")
	assert.Eventually(t, func() bool {
		page, err := svc.GlobalFeed(ctx, 1)
		return err == nil && len(page.Items) == 1
	}, time.Second, 20*time.Millisecond)
}

func TestFeedService_GroupFeed(t *testing.T) {
	svc, db := newFeedService(t, nil)
	author := testutil.CreateUser(t, db, "author")
	cats := testutil.CreateGroup(t, db, "cats")
	dogs := testutil.CreateGroup(t, db, "dogs")
	post := testutil.CreatePost(t, db, author, cats, "meow")
	testutil.CreatePost(t, db, author, dogs, "woof")
	ctx := context.Background()

	feed, err := svc.GroupFeed(ctx, "cats", 1)
	require.NoError(t, err)
	assert.Equal(t, cats.ID, feed.Group.ID)
	require.Len(t, feed.Page.Items, 1)

	_, err = svc.GroupFeed(ctx, "missing", 1)
	assert.True(t, models.IsNotFound(err))

	// Moving a post between groups shifts one post across feeds.
	post.GroupID = &dogs.ID
	require.NoError(t, repository.NewPostRepository(db).Update(ctx, post))

	catsFeed, err := svc.GroupFeed(ctx, "cats", 1)
	require.NoError(t, err)
	dogsFeed, err := svc.GroupFeed(ctx, "dogs", 1)
	require.NoError(t, err)
	assert.Zero(t, catsFeed.Page.TotalCount)
	assert.Equal(t, int64(2), dogsFeed.Page.TotalCount)

	all, err := svc.GlobalFeed(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalCount)
}

func TestFeedService_ProfileFeed(t *testing.T) {
	svc, db := newFeedService(t, nil)
	author := testutil.CreateUser(t, db, "author")
	viewer := testutil.CreateUser(t, db, "viewer")
	testutil.CreatePost(t, db, author, nil, "mine")
	testutil.CreatePost(t, db, viewer, nil, "theirs")
	ctx := context.Background()

	follows := repository.NewFollowRepository(db)
	_, err := follows.Follow(ctx, viewer.ID, author.ID)
	require.NoError(t, err)

	feed, err := svc.ProfileFeed(ctx, "author", viewer.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, author.ID, feed.Author.ID)
	assert.Equal(t, int64(1), feed.FollowersCount)
	assert.Zero(t, feed.FollowingCount)
	assert.True(t, feed.Following)
	require.Len(t, feed.Page.Items, 1)
	assert.Equal(t, "mine", feed.Page.Items[0].Text)

	anon, err := svc.ProfileFeed(ctx, "author", 0, 1)
	require.NoError(t, err)
	assert.False(t, anon.Following)

	own, err := svc.ProfileFeed(ctx, "author", author.ID, 1)
	require.NoError(t, err)
	assert.False(t, own.Following)

	viewerProfile, err := svc.ProfileFeed(ctx, "viewer", author.ID, 1)
	require.NoError(t, err)
	assert.False(t, viewerProfile.Following, "following is viewer -> author, not the reverse")
	assert.Equal(t, int64(1), viewerProfile.FollowingCount)

	_, err = svc.ProfileFeed(ctx, "ghost", 0, 1)
	assert.True(t, models.IsNotFound(err))
}

func TestFeedService_FollowingFeed(t *testing.T) {
	svc, db := newFeedService(t, nil)
	reader := testutil.CreateUser(t, db, "reader")
	author := testutil.CreateUser(t, db, "author")
	stranger := testutil.CreateUser(t, db, "stranger")
	testutil.CreatePost(t, db, author, nil, "before follow")
	testutil.CreatePost(t, db, stranger, nil, "unrelated")
	follows := repository.NewFollowRepository(db)
	ctx := context.Background()

	page, err := svc.FollowingFeed(ctx, reader.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = follows.Follow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	page, err = svc.FollowingFeed(ctx, reader.ID, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, author.ID, page.Items[0].AuthorID)

	_, err = follows.Unfollow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	testutil.CreatePost(t, db, author, nil, "after unfollow")

	page, err = svc.FollowingFeed(ctx, reader.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
