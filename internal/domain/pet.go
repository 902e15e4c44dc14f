package domain

import "time"

// PetState is owned 1:1 by a UserState.
type PetState struct {
	UserID       int64     `db:"user_id"`
	XP           int64     `db:"xp"`
	Level        int       `db:"level"`
	Hatched      bool      `db:"hatched"`
	LastFeedAt   time.Time `db:"last_feed_at"`
	LastClaimAt  time.Time `db:"last_claim_at"`
	AccruedYield int64     `db:"accrued_yield"`
	DailySpend   int64     `db:"daily_spend"`
	Version      int64     `db:"version"`
	CreatedAt    time.Time `db:"created_at"`
}

func (p *PetState) Clone() *PetState {
	cp := *p
	return &cp
}
