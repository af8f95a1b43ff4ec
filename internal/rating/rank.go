package rating

import "sort"

// Standing is the minimal row shape rank assignment needs: an identity plus
// the score to rank by.
type Standing struct {
	UserID string
	Score  int
}

// AssignRanks sorts standings by score descending and assigns ranks using
// standard competition ranking: equal scores share the lower rank, and the
// next distinct score jumps to the count of rows processed so far, plus one
// (100,100,90 -> 1,1,3). Returns a map from UserID to assigned rank; the
// input slice is left untouched.
func AssignRanks(standings []Standing) map[string]int {
	sorted := make([]Standing, len(standings))
	copy(sorted, standings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	ranks := make(map[string]int, len(sorted))
	for i, s := range sorted {
		if i > 0 && sorted[i-1].Score == s.Score {
			ranks[s.UserID] = ranks[sorted[i-1].UserID]
			continue
		}
		ranks[s.UserID] = i + 1
	}
	return ranks
}
