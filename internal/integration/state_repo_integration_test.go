package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quest_webapp/internal/domain"
	"quest_webapp/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	applyMigrations(t, pool)
	return pool
}

func TestUserRepoVersionedWrite(t *testing.T) {
	pool := testPool(t)
	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	id := time.Now().UnixNano()
	u := &domain.UserState{
		ID:               id,
		ExternalID:       "itest-" + time.Now().Format("150405.000000000"),
		Username:         "itest",
		Level:            1,
		CurrentEnergy:    10,
		LastEnergyUpdate: time.Now().UTC(),
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Version != 1 {
		t.Fatalf("version after create = %d, want 1", u.Version)
	}

	u.TotalPoints = 500
	u.LifetimePoints = 500
	ok, err := repo.CompareAndSwap(ctx, u, 1)
	if err != nil || !ok {
		t.Fatalf("cas: ok=%v err=%v", ok, err)
	}

	// Stale version must not write.
	u.TotalPoints = 999999
	ok, err = repo.CompareAndSwap(ctx, u, 1)
	if err != nil {
		t.Fatalf("stale cas err: %v", err)
	}
	if ok {
		t.Fatal("stale cas succeeded")
	}

	got, err := repo.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TotalPoints != 500 || got.Version != 2 {
		t.Fatalf("row = points %d version %d, want 500/2", got.TotalPoints, got.Version)
	}
}

func TestPetRepoVersionedWrite(t *testing.T) {
	pool := testPool(t)
	users := repository.NewUserRepository(pool)
	pets := repository.NewPetRepository(pool)
	ctx := context.Background()

	id := time.Now().UnixNano()
	owner := &domain.UserState{
		ID:               id,
		ExternalID:       "itest-pet-" + time.Now().Format("150405.000000000"),
		Level:            1,
		LastEnergyUpdate: time.Now().UTC(),
	}
	if err := users.Create(ctx, owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}

	now := time.Now().UTC()
	p := &domain.PetState{
		UserID:      id,
		Level:       1,
		LastFeedAt:  now,
		LastClaimAt: now,
	}
	if err := pets.Create(ctx, p); err != nil {
		t.Fatalf("create pet: %v", err)
	}

	p.Hatched = true
	p.XP = 30
	ok, err := pets.CompareAndSwap(ctx, p, 1)
	if err != nil || !ok {
		t.Fatalf("cas: ok=%v err=%v", ok, err)
	}

	got, err := pets.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Hatched || got.XP != 30 || got.Version != 2 {
		t.Fatalf("pet = hatched %v xp %d version %d", got.Hatched, got.XP, got.Version)
	}
}
