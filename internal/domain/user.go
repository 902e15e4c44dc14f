package domain

import "time"

type UserState struct {
	ID               int64     `db:"id"`
	ExternalID       string    `db:"external_id"`
	Username         string    `db:"username"`
	FirstName        string    `db:"first_name"`
	WalletAddress    string    `db:"wallet_address"`
	PublicKey        string    `db:"public_key"`
	TotalPoints      int64     `db:"total_points"`
	LifetimePoints   int64     `db:"lifetime_points"`
	Level            int       `db:"level"`
	CurrentXP        int64     `db:"current_xp"`
	CurrentRank      Rank      `db:"current_rank"`
	CurrentEnergy    int       `db:"current_energy"`
	LastEnergyUpdate time.Time `db:"last_energy_update"`
	Version          int64     `db:"version"`
	CreatedAt        time.Time `db:"created_at"`
}

// Clone returns a copy safe to mutate before a compare-and-swap write.
func (u *UserState) Clone() *UserState {
	cp := *u
	return &cp
}
