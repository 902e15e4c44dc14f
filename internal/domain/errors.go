package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDailyCapExceeded   = errors.New("daily feed cap exceeded")
	ErrBelowClaimMinimum  = errors.New("claimable yield below minimum")
	ErrClaimCooldown      = errors.New("claim cooldown active")
	ErrRateLimited        = errors.New("rate limited")
	ErrConflict           = errors.New("concurrent modification")
	ErrNoEnergy           = errors.New("not enough energy")
	ErrInsufficientPoints = errors.New("not enough points")
	ErrImplausibleScore   = errors.New("score not plausible for duration")
)
