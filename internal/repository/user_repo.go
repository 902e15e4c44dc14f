// Package repository implements the persistence primitives the engine
// needs: load, create and versioned compare-and-swap per entity. The
// service layer sees only these; how rows are stored is not its
// business.
package repository

import (
	"context"
	"errors"

	"quest_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, external_id, COALESCE(username, ''), COALESCE(first_name, ''),
	COALESCE(wallet_address, ''), COALESCE(public_key, ''),
	total_points, lifetime_points, level, current_xp, current_rank,
	current_energy, last_energy_update, version, created_at`

func scanUser(row pgx.Row) (*domain.UserState, error) {
	var u domain.UserState
	var rank int
	if err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Username,
		&u.FirstName,
		&u.WalletAddress,
		&u.PublicKey,
		&u.TotalPoints,
		&u.LifetimePoints,
		&u.Level,
		&u.CurrentXP,
		&rank,
		&u.CurrentEnergy,
		&u.LastEnergyUpdate,
		&u.Version,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.CurrentRank = domain.Rank(rank)
	return &u, nil
}

func (r *UserRepository) Load(ctx context.Context, id int64) (*domain.UserState, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM user_states WHERE id = $1`, id)
	return scanUser(row)
}

// Create inserts a fresh user row. The id is the internal key derived
// from the external identity, so it is supplied by the caller.
func (r *UserRepository) Create(ctx context.Context, u *domain.UserState) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO user_states
		   (id, external_id, username, first_name, total_points, lifetime_points,
		    level, current_xp, current_rank, current_energy, last_energy_update, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		 RETURNING version, created_at`,
		u.ID, u.ExternalID, u.Username, u.FirstName,
		u.TotalPoints, u.LifetimePoints, u.Level, u.CurrentXP,
		int(u.CurrentRank), u.CurrentEnergy, u.LastEnergyUpdate,
	).Scan(&u.Version, &u.CreatedAt)
}

// CompareAndSwap writes the full mutable state only if the row version
// is still expectedVersion. Returns false (and writes nothing) when a
// concurrent writer got there first.
func (r *UserRepository) CompareAndSwap(ctx context.Context, u *domain.UserState, expectedVersion int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_states SET
		   username = $1, first_name = $2, wallet_address = $3, public_key = $4,
		   total_points = $5, lifetime_points = $6, level = $7, current_xp = $8,
		   current_rank = $9, current_energy = $10, last_energy_update = $11,
		   version = version + 1
		 WHERE id = $12 AND version = $13`,
		u.Username, u.FirstName, u.WalletAddress, u.PublicKey,
		u.TotalPoints, u.LifetimePoints, u.Level, u.CurrentXP,
		int(u.CurrentRank), u.CurrentEnergy, u.LastEnergyUpdate,
		u.ID, expectedVersion,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	u.Version = expectedVersion + 1
	return true, nil
}

// Top returns the leaderboard ordered by lifetime points.
func (r *UserRepository) Top(ctx context.Context, limit int) ([]*domain.UserState, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM user_states
		 ORDER BY lifetime_points DESC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.UserState
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// CountInvariantViolations reports rows breaking lifetime >= total or
// level >= 1. Used by the nightly audit sweep.
func (r *UserRepository) CountInvariantViolations(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_states
		 WHERE lifetime_points < total_points OR level < 1 OR total_points < 0`,
	).Scan(&n)
	return n, err
}
