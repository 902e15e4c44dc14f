package repository

import (
	"context"
	"errors"

	"quest_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PetRepository struct {
	db *pgxpool.Pool
}

func NewPetRepository(db *pgxpool.Pool) *PetRepository {
	return &PetRepository{db: db}
}

func (r *PetRepository) Load(ctx context.Context, userID int64) (*domain.PetState, error) {
	row := r.db.QueryRow(ctx,
		`SELECT user_id, xp, level, hatched, last_feed_at, last_claim_at,
		        accrued_yield, daily_spend, version, created_at
		 FROM pet_states WHERE user_id = $1`, userID)

	var p domain.PetState
	if err := row.Scan(
		&p.UserID,
		&p.XP,
		&p.Level,
		&p.Hatched,
		&p.LastFeedAt,
		&p.LastClaimAt,
		&p.AccruedYield,
		&p.DailySpend,
		&p.Version,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PetRepository) Create(ctx context.Context, p *domain.PetState) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO pet_states
		   (user_id, xp, level, hatched, last_feed_at, last_claim_at,
		    accrued_yield, daily_spend, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		 RETURNING version, created_at`,
		p.UserID, p.XP, p.Level, p.Hatched, p.LastFeedAt, p.LastClaimAt,
		p.AccruedYield, p.DailySpend,
	).Scan(&p.Version, &p.CreatedAt)
}

func (r *PetRepository) CompareAndSwap(ctx context.Context, p *domain.PetState, expectedVersion int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE pet_states SET
		   xp = $1, level = $2, hatched = $3, last_feed_at = $4,
		   last_claim_at = $5, accrued_yield = $6, daily_spend = $7,
		   version = version + 1
		 WHERE user_id = $8 AND version = $9`,
		p.XP, p.Level, p.Hatched, p.LastFeedAt, p.LastClaimAt,
		p.AccruedYield, p.DailySpend,
		p.UserID, expectedVersion,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	p.Version = expectedVersion + 1
	return true, nil
}
