package schedule

// FairnessTracker counts how often each team has been placed in each slot
// tier. It only biases tie-breaks and never rejects a pairing.
type FairnessTracker struct {
	premiumTier int
	tiers       map[string]map[int]int
	played      map[string]int
}

func NewFairnessTracker(premiumTier int) *FairnessTracker {
	return &FairnessTracker{
		premiumTier: premiumTier,
		tiers:       make(map[string]map[int]int),
		played:      make(map[string]int),
	}
}

// PremiumCount returns how often team has had the most desirable slot.
func (f *FairnessTracker) PremiumCount(team string) int {
	return f.tiers[team][f.premiumTier]
}

// Played returns how many matches team has been assigned so far.
func (f *FairnessTracker) Played(team string) int {
	return f.played[team]
}

func (f *FairnessTracker) Record(team string, tier int) {
	if f.tiers[team] == nil {
		f.tiers[team] = make(map[int]int)
	}
	f.tiers[team][tier]++
	f.played[team]++
}
