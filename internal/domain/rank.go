package domain

// Rank is a tier derived from lifetime points. Ranks never decrease
// because lifetime points never decrease.
type Rank int

const (
	RankBronze Rank = iota
	RankSilver
	RankGold
	RankPlatinum
	RankDiamond
	RankLegend
)

var rankNames = map[Rank]string{
	RankBronze:   "bronze",
	RankSilver:   "silver",
	RankGold:     "gold",
	RankPlatinum: "platinum",
	RankDiamond:  "diamond",
	RankLegend:   "legend",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return "unknown"
}

// RankThreshold maps a minimum lifetime-points value to a rank and the
// one-time reward paid out when the rank is first reached.
type RankThreshold struct {
	Rank      Rank
	MinPoints int64
	Reward    int64
}

// DefaultRankTable is ordered ascending by MinPoints. The current rank is
// the last entry whose threshold does not exceed lifetime points.
func DefaultRankTable() []RankThreshold {
	return []RankThreshold{
		{Rank: RankBronze, MinPoints: 0, Reward: 0},
		{Rank: RankSilver, MinPoints: 1_000, Reward: 100},
		{Rank: RankGold, MinPoints: 10_000, Reward: 500},
		{Rank: RankPlatinum, MinPoints: 50_000, Reward: 2_000},
		{Rank: RankDiamond, MinPoints: 200_000, Reward: 10_000},
		{Rank: RankLegend, MinPoints: 1_000_000, Reward: 50_000},
	}
}
