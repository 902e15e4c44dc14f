// Package progression holds the pure rules of the quest economy: energy
// regeneration, point/level/rank math, pet accrual and action rate
// limits. Everything here is a synchronous function over explicit
// inputs; persistence and transport live elsewhere.
package progression

import "time"

// EnergyPolicy configures regeneration. The interval is policy, not a
// constant baked into the formula.
type EnergyPolicy struct {
	MaxEnergy     int
	RegenInterval time.Duration
}

// Regenerate returns the energy after applying elapsed wall-clock time.
// Monotonic non-decreasing in now, idempotent for a fixed now, never
// above MaxEnergy. A now before lastUpdate regenerates nothing.
func Regenerate(lastUpdate time.Time, current int, pol EnergyPolicy, now time.Time) int {
	if current >= pol.MaxEnergy {
		return pol.MaxEnergy
	}
	elapsed := now.Sub(lastUpdate)
	if elapsed <= 0 || pol.RegenInterval <= 0 {
		return current
	}
	gained := int(elapsed / pol.RegenInterval)
	if current+gained > pol.MaxEnergy {
		return pol.MaxEnergy
	}
	return current + gained
}

// Advance is Regenerate plus the timestamp bookkeeping a caller needs
// when persisting: the new lastUpdate keeps the partial interval that
// has not yet produced a point, so repeated calls never lose progress.
func Advance(lastUpdate time.Time, current int, pol EnergyPolicy, now time.Time) (int, time.Time) {
	next := Regenerate(lastUpdate, current, pol, now)
	if next >= pol.MaxEnergy {
		return next, now
	}
	gained := next - current
	if gained <= 0 {
		return next, lastUpdate
	}
	return next, lastUpdate.Add(time.Duration(gained) * pol.RegenInterval)
}

// SecondsUntilNext reports how long until the next point appears, or 0
// when energy is already full.
func SecondsUntilNext(lastUpdate time.Time, current int, pol EnergyPolicy, now time.Time) int64 {
	if Regenerate(lastUpdate, current, pol, now) >= pol.MaxEnergy {
		return 0
	}
	elapsed := now.Sub(lastUpdate)
	if elapsed < 0 {
		elapsed = 0
	}
	rem := pol.RegenInterval - elapsed%pol.RegenInterval
	return int64(rem / time.Second)
}
