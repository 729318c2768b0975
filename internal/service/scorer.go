package service

import (
	"math"
	"time"
)

// Scorer computes a composite trending score for ranking browse results.
type Scorer interface {
	Score(stars, downloads int, updatedAt, now time.Time) float64
}

// freshnessHalfLife is how long it takes a dormant entry's freshness
// contribution to halve.
const freshnessHalfLife = 30 * 24 * time.Hour

// DefaultScorer weighs log-scaled stars and downloads plus a recency term
// that decays with time since the last update.
type DefaultScorer struct{}

// Score implements Scorer.
func (DefaultScorer) Score(stars, downloads int, updatedAt, now time.Time) float64 {
	score := 2*math.Log10(float64(stars)+1) + math.Log10(float64(downloads)+1)
	age := now.Sub(updatedAt)
	if age < 0 {
		age = 0
	}
	freshness := 3 * math.Exp2(-age.Hours()/freshnessHalfLife.Hours())
	return score + freshness
}
