// Package rating implements the Elo-derived, damped rating engine (spec
// §4.7-4.9), grounded bit-for-bit in the prior implementation's
// rating_calculation module: win probability, expected rank, a binary-search
// target rating, and a damping factor that shrinks with contest experience.
package rating

import "math"

const (
	ratingSearchLo   = 0.0
	ratingSearchHi   = 4000.0
	ratingSearchIter = 50
)

// WinProb returns the probability that a player rated a beats a player
// rated b, under the standard logistic Elo model.
func WinProb(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/400.0))
}

// ExpectedRank returns the expected finishing rank for a player rated r
// against the field others (every other player's rating).
func ExpectedRank(r float64, others []float64) float64 {
	sum := 0.0
	for _, o := range others {
		sum += WinProb(o, r)
	}
	return 1.0 + sum
}

// TargetRating binary-searches [0, 4000] for the rating whose ExpectedRank
// against others equals targetRank, fixed at 50 iterations.
func TargetRating(targetRank float64, others []float64) float64 {
	lo, hi := ratingSearchLo, ratingSearchHi
	for i := 0; i < ratingSearchIter; i++ {
		mid := (lo + hi) / 2
		if ExpectedRank(mid, others) < targetRank {
			hi = mid
		} else {
			lo = mid
		}
	}
	return (lo + hi) / 2
}

// Damping returns the rating-update damping factor for a player with k
// prior contests: f(k) = max(2/9, 1/(2+0.5k)).
func Damping(k int) float64 {
	f := 1.0 / (2.0 + 0.5*float64(k))
	if f < 2.0/9.0 {
		return 2.0 / 9.0
	}
	return f
}

// Participant is one contestant's inputs to a single rating update.
type Participant struct {
	UserID          string
	CurrentRating   int
	Rank            int
	ContestsPlayed  int // prior contests, excluding this one
}

// Outcome is the rating update computed for one participant.
type Outcome struct {
	UserID       string
	RatingBefore int
	RatingAfter  int
	RatingDelta  int
}

// UpdateRatings applies the rating update to every participant in a single
// contest, per spec §4.8: seed rank is the geometric mean of a player's
// expected rank and their assigned rank, damped by contest experience.
func UpdateRatings(participants []Participant) []Outcome {
	ratings := make([]float64, len(participants))
	for i, p := range participants {
		ratings[i] = float64(p.CurrentRating)
	}

	outcomes := make([]Outcome, len(participants))
	for i, p := range participants {
		others := othersExcluding(ratings, i)
		expectedRank := ExpectedRank(ratings[i], others)
		meanRank := math.Sqrt(expectedRank * float64(p.Rank))
		target := TargetRating(meanRank, others)

		damped := Damping(p.ContestsPlayed)
		newRating := int(math.Round(ratings[i] + damped*(target-ratings[i])))

		outcomes[i] = Outcome{
			UserID:       p.UserID,
			RatingBefore: p.CurrentRating,
			RatingAfter:  newRating,
			RatingDelta:  newRating - p.CurrentRating,
		}
	}
	return outcomes
}

func othersExcluding(ratings []float64, idx int) []float64 {
	others := make([]float64, 0, len(ratings)-1)
	for i, r := range ratings {
		if i != idx {
			others = append(others, r)
		}
	}
	return others
}
