package progression

import "quest_webapp/internal/domain"

// Calculator converts cumulative points into total/lifetime/rank and
// applies the XP curve for user levels.
type Calculator struct {
	ranks  []domain.RankThreshold
	levels LevelPolicy
}

func NewCalculator(ranks []domain.RankThreshold, levels LevelPolicy) *Calculator {
	return &Calculator{ranks: ranks, levels: levels}
}

// PointsOutcome is the side channel of ApplyPoints. A rank reward is
// emitted, never credited here; the caller decides what to do with it.
type PointsOutcome struct {
	RankChanged bool
	NewRank     domain.Rank
	RankReward  int64
}

// ApplyPoints mutates the user's point fields in place. Total floors at
// zero; lifetime is the high-water mark of total and never decreases.
func (c *Calculator) ApplyPoints(u *domain.UserState, delta int64) PointsOutcome {
	total := u.TotalPoints + delta
	if total < 0 {
		total = 0
	}
	u.TotalPoints = total
	if total > u.LifetimePoints {
		u.LifetimePoints = total
	}

	prev := u.CurrentRank
	rank := c.RankFor(u.LifetimePoints)
	out := PointsOutcome{NewRank: rank}
	if rank != prev {
		out.RankChanged = true
		// reward every threshold crossed, so a jump across several
		// ranks does not skip the intermediate payouts
		for _, th := range c.ranks {
			if th.Rank > prev && th.Rank <= rank {
				out.RankReward += th.Reward
			}
		}
		u.CurrentRank = rank
	}
	return out
}

// RankFor picks the highest threshold not exceeding lifetime points.
func (c *Calculator) RankFor(lifetimePoints int64) domain.Rank {
	rank := c.ranks[0].Rank
	for _, th := range c.ranks {
		if lifetimePoints >= th.MinPoints {
			rank = th.Rank
		}
	}
	return rank
}

// AddXP applies earned XP to the user's level bar with carry.
func (c *Calculator) AddXP(u *domain.UserState, earned int64) int {
	level, xp, gained := AddXP(u.Level, u.CurrentXP, earned, c.levels)
	u.Level = level
	u.CurrentXP = xp
	return gained
}
