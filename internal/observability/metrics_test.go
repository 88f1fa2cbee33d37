package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackQuery_ObservesLatency(t *testing.T) {
	before := testutil.CollectAndCount(DatabaseQueryLatency)
	done := TrackQuery("global_feed", "posts_test")
	done()
	assert.Equal(t, before+1, testutil.CollectAndCount(DatabaseQueryLatency))
}

func TestFeedCacheRequests_Labels(t *testing.T) {
	FeedCacheRequests.WithLabelValues(CacheHit).Add(0)
	start := testutil.ToFloat64(FeedCacheRequests.WithLabelValues(CacheMiss))
	FeedCacheRequests.WithLabelValues(CacheMiss).Inc()
	assert.Equal(t, start+1, testutil.ToFloat64(FeedCacheRequests.WithLabelValues(CacheMiss)))
}
