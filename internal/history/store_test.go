package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EmptyLatest(t *testing.T) {
	s := NewStore(10)
	_, ok := s.Latest()
	assert.False(t, ok)
	_, ok = s.LatestConfirmed()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_AppendAndLatest(t *testing.T) {
	s := NewStore(10)
	s.Append(Record{CorrelationID: "c1", Outcome: OutcomeConfirmed, TxHash: "abc123"})
	s.Append(Record{CorrelationID: "c2", Outcome: OutcomeRejected, Reason: "negative_sentiment"})

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "c2", latest.CorrelationID)
	assert.Equal(t, OutcomeRejected, latest.Outcome)
	assert.False(t, latest.At.IsZero())

	confirmed, ok := s.LatestConfirmed()
	require.True(t, ok)
	assert.Equal(t, "abc123", confirmed.TxHash)
}

func TestStore_CapEvictsOldest(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 5; i++ {
		s.Append(Record{CorrelationID: fmt.Sprintf("c%d", i), Outcome: OutcomeFailed})
	}
	assert.Equal(t, 3, s.Len())

	recent := s.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "c4", recent[0].CorrelationID)
	assert.Equal(t, "c2", recent[2].CorrelationID)
}

func TestStore_RecentLimits(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 4; i++ {
		s.Append(Record{CorrelationID: fmt.Sprintf("c%d", i), Outcome: OutcomeConfirmed, TxHash: "h"})
	}

	assert.Len(t, s.Recent(2), 2)
	assert.Len(t, s.Recent(100), 4)
	assert.Equal(t, "c3", s.Recent(1)[0].CorrelationID)
}

func TestStore_EnableRedisWithoutURL(t *testing.T) {
	s := NewStore(10)
	assert.False(t, s.EnableRedis(RedisConfig{}))
	// Store still works memory-only.
	s.Append(Record{CorrelationID: "c1", Outcome: OutcomeConfirmed, TxHash: "h1"})
	assert.Equal(t, 1, s.Len())
}

func TestStore_EnableRedisBadURL(t *testing.T) {
	s := NewStore(10)
	assert.False(t, s.EnableRedis(RedisConfig{URL: "not-a-url"}))
}
