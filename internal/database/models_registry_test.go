package database

import (
	"testing"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentModels_ParentsFirst(t *testing.T) {
	all := PersistentModels()
	index := func(target any) int {
		for i, m := range all {
			if assert.ObjectsAreEqual(m, target) {
				return i
			}
		}
		return -1
	}

	users := index(&models.User{})
	groups := index(&models.Group{})
	posts := index(&models.Post{})
	follows := index(&models.Follow{})
	require.NotEqual(t, -1, users)
	require.NotEqual(t, -1, posts)
	require.NotEqual(t, -1, follows)
	require.NotEqual(t, -1, index(&models.FollowEvent{}))

	assert.Less(t, users, posts)
	assert.Less(t, groups, posts)
	assert.Less(t, posts, index(&models.Comment{}))
	assert.Less(t, users, follows)
}
