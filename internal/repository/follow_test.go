package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"

	"yatube/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_FollowTwiceLeavesOneLiveRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	reader := createUser(t, db, "reader")
	author := createUser(t, db, "author")

	changed, err := repo.Follow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Follow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	var rows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", reader.ID, author.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	count, err := repo.CountFollowers(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFollowRepository_UnfollowSoftDeletesAndRevives(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	reader := createUser(t, db, "reader")
	author := createUser(t, db, "author")

	_, err := repo.Follow(ctx, reader.ID, author.ID)
	require.NoError(t, err)

	changed, err := repo.Unfollow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	following, err := repo.IsFollowing(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, following)

	var row models.Follow
	require.NoError(t, db.Where("user_id = ? AND author_id = ?", reader.ID, author.ID).Take(&row).Error)
	assert.True(t, row.IsDeleted, "unfollow keeps the row")

	count, err := repo.CountFollowers(ctx, author.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	changed, err = repo.Unfollow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, changed, "second unfollow is a no-op")

	changed, err = repo.Follow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	var revived models.Follow
	require.NoError(t, db.Where("user_id = ? AND author_id = ?", reader.ID, author.ID).Take(&revived).Error)
	assert.Equal(t, row.ID, revived.ID)
	assert.False(t, revived.IsDeleted)
}

func TestFollowRepository_UnfollowWithoutRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	reader := createUser(t, db, "reader")
	author := createUser(t, db, "author")

	changed, err := repo.Unfollow(context.Background(), reader.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	var events int64
	require.NoError(t, db.Model(&models.FollowEvent{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestFollowRepository_WritesOutboxEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	reader := createUser(t, db, "reader")
	author := createUser(t, db, "author")

	_, err := repo.Follow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	_, err = repo.Follow(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	_, err = repo.Unfollow(ctx, reader.ID, author.ID)
	require.NoError(t, err)

	var events []models.FollowEvent
	require.NoError(t, db.Order("id").Find(&events).Error)
	require.Len(t, events, 2, "no-op follow writes no event")
	assert.Equal(t, models.FollowEventFollow, events[0].EventType)
	assert.Equal(t, models.FollowEventUnfollow, events[1].EventType)
	assert.Equal(t, models.OutboxStatusPending, events[0].Status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(events[0].Payload), &payload))
	assert.Equal(t, float64(reader.ID), payload["user_id"])
	assert.Equal(t, float64(author.ID), payload["author_id"])
}

func TestFollowRepository_CountsAndFollowerIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	a := createUser(t, db, "a")
	b := createUser(t, db, "b")
	c := createUser(t, db, "c")

	for _, follower := range []*models.User{b, c} {
		_, err := repo.Follow(ctx, follower.ID, a.ID)
		require.NoError(t, err)
	}
	_, err := repo.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = repo.Unfollow(ctx, c.ID, a.ID)
	require.NoError(t, err)

	ids, err := repo.FollowerIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, ids)

	following, err := repo.CountFollowing(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), following)
}

func TestFollowRepository_ConcurrentFollow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	reader := createUser(t, db, "reader")
	author := createUser(t, db, "author")

	var wg sync.WaitGroup
	var mu sync.Mutex
	changedCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := repo.Follow(context.Background(), reader.ID, author.ID)
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				changedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, changedCount)
	var rows int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestFollowRepository_LocksRowOnPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "follows" WHERE user_id = $1 AND author_id = $2 LIMIT $3 FOR UPDATE`)).
		WithArgs(1, 2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "author_id", "is_deleted"}).AddRow(5, 1, 2, false))
	mock.ExpectCommit()

	changed, err := repo.Follow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
