// Package predictor turns persisted match history into win probabilities.
//
// The model is a fixed weighted heuristic: recent form, overall form and
// tournament tier make up a team's strength, a head-to-head record nudges it,
// and the two strengths are normalised into a distribution.
package predictor

import (
	"math"

	"esports_v1/ingestion/internal/models"
)

const (
	recentWeight = 0.6
	totalWeight  = 0.3
	tierWeight   = 0.1

	// neutral is used for any rate with no history behind it
	neutral = 0.5

	// h2hMinMatches is the fewest decided meetings that earn a bonus
	h2hMinMatches = 2
	h2hScale      = 0.1
)

var tierScores = map[string]float64{
	"S": 1.0,
	"A": 0.8,
	"B": 0.6,
	"C": 0.4,
}

// TierScore maps a tournament tier onto [0.4, 1]. Unknown tiers score 0.5.
func TierScore(tier string) float64 {
	if s, ok := tierScores[models.NormalizeTier(tier)]; ok {
		return s
	}
	return neutral
}

func rate(wins, played int) float64 {
	if played == 0 {
		return neutral
	}
	return float64(wins) / float64(played)
}

// Strength scores a team from its form and the tier of the match's tournament
func Strength(form models.TeamForm, tier string) float64 {
	return recentWeight*rate(form.RecentWins, form.RecentPlayed) +
		totalWeight*rate(form.TotalWins, form.TotalPlayed) +
		tierWeight*TierScore(tier)
}

// HeadToHeadBonus returns the strength adjustment for each side. Fewer than
// two decided meetings give no adjustment; otherwise each bonus lies within
// ±0.05.
func HeadToHeadBonus(h2h models.HeadToHead) (float64, float64) {
	if h2h.Played < h2hMinMatches {
		return 0, 0
	}
	a := (rate(h2h.TeamAWins, h2h.Played) - neutral) * h2hScale
	b := (rate(h2h.TeamBWins, h2h.Played) - neutral) * h2hScale
	return a, b
}

// Compute derives the prediction for a match between A and B, each scored
// against the tier it is credited with. Probabilities always sum to one and
// confidence is their absolute gap.
func Compute(formA, formB models.TeamForm, h2h models.HeadToHead, tierA, tierB string) models.Prediction {
	bonusA, bonusB := HeadToHeadBonus(h2h)
	p := models.Prediction{
		StrengthA: Strength(formA, tierA),
		StrengthB: Strength(formB, tierB),
		BonusA:    bonusA,
		BonusB:    bonusB,
	}

	// a winless team facing a bonus could otherwise go negative
	a := math.Max(p.StrengthA+bonusA, 0)
	b := math.Max(p.StrengthB+bonusB, 0)

	if sum := a + b; sum > 0 {
		p.TeamA = a / sum
	} else {
		p.TeamA = neutral
	}
	p.TeamB = 1 - p.TeamA
	p.Confidence = math.Abs(p.TeamA - p.TeamB)

	return p
}
