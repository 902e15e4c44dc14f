package progression

import (
	"time"

	"quest_webapp/internal/domain"
)

// PetPolicy configures accrual and feeding.
type PetPolicy struct {
	FeedCost          int64
	XPPerFeed         int64
	MaxDailySpend     int64
	YieldPerHour      int64
	LevelUpYieldBonus int64
	MaxClaimHours     int
	MinClaimAmount    int64
	ClaimCooldown     time.Duration
	Levels            LevelPolicy
}

// PetEngine computes pet yield and feeding transitions. Methods mutate
// the passed state only on success; every rejection is all-or-nothing.
type PetEngine struct {
	pol PetPolicy
}

func NewPetEngine(pol PetPolicy) *PetEngine {
	return &PetEngine{pol: pol}
}

// Claimable returns the yield pending at now: banked accrual plus one
// YieldPerHour per pet level per whole elapsed hour, with elapsed time
// capped at MaxClaimHours. No infinite backlog.
func (e *PetEngine) Claimable(p *domain.PetState, now time.Time) int64 {
	if !p.Hatched {
		return 0
	}
	elapsed := now.Sub(p.LastClaimAt)
	if elapsed < 0 {
		elapsed = 0
	}
	hours := int64(elapsed / time.Hour)
	if max := int64(e.pol.MaxClaimHours); hours > max {
		hours = max
	}
	return p.AccruedYield + hours*e.pol.YieldPerHour*int64(p.Level)
}

// Claim settles the pending yield. Below-minimum and cooldown
// rejections leave the state untouched.
func (e *PetEngine) Claim(p *domain.PetState, now time.Time) (int64, error) {
	if now.Sub(p.LastClaimAt) < e.pol.ClaimCooldown {
		return 0, domain.ErrClaimCooldown
	}
	amount := e.Claimable(p, now)
	if amount < e.pol.MinClaimAmount {
		return 0, domain.ErrBelowClaimMinimum
	}
	p.LastClaimAt = now
	p.AccruedYield = 0
	return amount, nil
}

// Feed spends FeedCost against the daily cap and grants XP with level
// carry. The daily spend counter resets lazily on the first feed of a
// new UTC calendar day; there is no background timer. A level-up banks
// a yield bonus into the accrual so it is paid out on the next claim.
func (e *PetEngine) Feed(p *domain.PetState, now time.Time) error {
	spend := p.DailySpend
	if !sameUTCDay(p.LastFeedAt, now) {
		spend = 0
	}
	if spend+e.pol.FeedCost > e.pol.MaxDailySpend {
		return domain.ErrDailyCapExceeded
	}

	if !p.Hatched {
		p.Hatched = true
		// accrual starts at hatch, not at row creation
		p.LastClaimAt = now
	}
	p.DailySpend = spend + e.pol.FeedCost
	p.LastFeedAt = now

	level, xp, gained := AddXP(p.Level, p.XP, e.pol.XPPerFeed, e.pol.Levels)
	p.Level = level
	p.XP = xp
	if gained > 0 {
		p.AccruedYield += int64(gained) * e.pol.LevelUpYieldBonus
	}
	return nil
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
