package rating

// Title tiers, thresholds checked from highest to lowest against
// max_rating (spec §4.9).
const (
	TitleLegendaryGrandmaster = "Legendary Grandmaster"
	TitleGrandmaster          = "Grandmaster"
	TitleMaster               = "Master"
	TitleCandidateMaster      = "Candidate Master"
	TitleExpert               = "Expert"
	TitleSpecialist           = "Specialist"
	TitleNewbie               = "Newbie"
)

// TitleForRating maps a user's max_rating to its title tier.
func TitleForRating(maxRating int) string {
	switch {
	case maxRating >= 2400:
		return TitleLegendaryGrandmaster
	case maxRating >= 2100:
		return TitleGrandmaster
	case maxRating >= 1900:
		return TitleMaster
	case maxRating >= 1600:
		return TitleCandidateMaster
	case maxRating >= 1400:
		return TitleExpert
	case maxRating >= 1200:
		return TitleSpecialist
	default:
		return TitleNewbie
	}
}
