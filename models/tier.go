package models

// Tier classifies a race by prestige.
type Tier string

const (
	TierGrandTour Tier = "grand-tour"
	TierMonument  Tier = "monument"
	TierOther     Tier = "other"
)

// TierTable maps race slugs to tiers. Races absent from the table are
// TierOther.
type TierTable map[string]Tier

// Classify returns the tier for a race slug.
func (t TierTable) Classify(slug string) Tier {
	if tier, ok := t[slug]; ok {
		return tier
	}
	return TierOther
}

// DefaultTierTable returns the built-in membership of the three grand tours
// and the five monuments.
func DefaultTierTable() TierTable {
	return TierTable{
		"tour-de-france":       TierGrandTour,
		"giro-d-italia":        TierGrandTour,
		"vuelta-a-espana":      TierGrandTour,
		"milano-sanremo":       TierMonument,
		"ronde-van-vlaanderen": TierMonument,
		"paris-roubaix":        TierMonument,
		"liege-bastogne-liege": TierMonument,
		"il-lombardia":         TierMonument,
	}
}
