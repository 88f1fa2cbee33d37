package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedPage struct {
	Items []string `json:"items"`
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}

func (failingStore) Invalidate(context.Context, string) error { return errors.New("down") }

func TestAside_MissThenHit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	calls := 0
	fetch := func() (any, error) {
		calls++
		return feedPage{Items: []string{"first"}}, nil
	}

	var got feedPage
	hit, err := Aside(ctx, store, "index_page:1", time.Minute, &got, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"first"}, got.Items)

	var again feedPage
	hit, err = Aside(ctx, store, "index_page:1", time.Minute, &again, func() (any, error) {
		calls++
		return feedPage{Items: []string{"changed"}}, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"first"}, again.Items)
	assert.Equal(t, 1, calls)
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	store := NewMemoryStore()
	var got feedPage
	_, err := Aside(context.Background(), store, "k", time.Minute, &got, func() (any, error) {
		return nil, errors.New("db down")
	})
	assert.Error(t, err)

	_, found, _ := store.Get(context.Background(), "k")
	assert.False(t, found)
}

func TestAside_StoreFailureDegradesToMiss(t *testing.T) {
	var got feedPage
	hit, err := Aside(context.Background(), failingStore{}, "k", time.Minute, &got, func() (any, error) {
		return feedPage{Items: []string{"fresh"}}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"fresh"}, got.Items)
}

func TestAside_NilStore(t *testing.T) {
	var got feedPage
	hit, err := Aside(context.Background(), nil, "k", time.Minute, &got, func() (any, error) {
		return feedPage{Items: []string{"x"}}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"x"}, got.Items)
}

func TestIndexPageKey(t *testing.T) {
	assert.Equal(t, "index_page:3", IndexPageKey(3))
	assert.Equal(t, "blacklist:abc", BlacklistKey("abc"))
}

func TestLoadSave(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var got feedPage
	assert.False(t, Load(ctx, store, "index_page:1", &got))

	raw, err := Save(ctx, store, "index_page:1", time.Minute, feedPage{Items: []string{"a"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":["a"]}`, string(raw))

	require.True(t, Load(ctx, store, "index_page:1", &got))
	assert.Equal(t, []string{"a"}, got.Items)

	raw, err = Save(ctx, failingStore{}, "k", time.Minute, feedPage{})
	require.NoError(t, err, "write failures are not returned")
	assert.NotEmpty(t, raw)
}
