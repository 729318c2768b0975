package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultScorerPrefersPopularity(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := DefaultScorer{}

	low := s.Score(10, 100, now, now)
	high := s.Score(10000, 100, now, now)
	assert.Greater(t, high, low)
}

func TestDefaultScorerDecaysWithAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := DefaultScorer{}

	fresh := s.Score(100, 0, now, now)
	stale := s.Score(100, 0, now.Add(-90*24*time.Hour), now)
	assert.Greater(t, fresh, stale)

	// Half-life: the freshness term halves every 30 days.
	month := s.Score(0, 0, now.Add(-30*24*time.Hour), now)
	twoMonths := s.Score(0, 0, now.Add(-60*24*time.Hour), now)
	assert.InDelta(t, month/2, twoMonths, 1e-9)
}

func TestDefaultScorerClampsFutureTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := DefaultScorer{}

	future := s.Score(0, 0, now.Add(24*time.Hour), now)
	present := s.Score(0, 0, now, now)
	assert.Equal(t, present, future)
}
