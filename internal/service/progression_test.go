package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quest_webapp/internal/domain"
	"quest_webapp/internal/progression"
	"quest_webapp/internal/telegram"
)

// fakeUserStore is an in-memory UserStore with real CAS semantics so
// conflict paths are exercised without a database.
type fakeUserStore struct {
	mu      sync.Mutex
	rows    map[int64]*domain.UserState
	casFail int // inject this many CAS rejections
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{rows: map[int64]*domain.UserState{}}
}

func (f *fakeUserStore) Load(_ context.Context, id int64) (*domain.UserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (f *fakeUserStore) Create(_ context.Context, u *domain.UserState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.rows[u.ID]; exists {
		return errors.New("duplicate key")
	}
	u.Version = 1
	u.CreatedAt = time.Now()
	f.rows[u.ID] = u.Clone()
	return nil
}

func (f *fakeUserStore) CompareAndSwap(_ context.Context, u *domain.UserState, expected int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casFail > 0 {
		f.casFail--
		return false, nil
	}
	cur, ok := f.rows[u.ID]
	if !ok || cur.Version != expected {
		return false, nil
	}
	u.Version = expected + 1
	f.rows[u.ID] = u.Clone()
	return true, nil
}

type fakePetStore struct {
	mu   sync.Mutex
	rows map[int64]*domain.PetState
}

func newFakePetStore() *fakePetStore {
	return &fakePetStore{rows: map[int64]*domain.PetState{}}
}

func (f *fakePetStore) Load(_ context.Context, userID int64) (*domain.PetState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (f *fakePetStore) Create(_ context.Context, p *domain.PetState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.rows[p.UserID]; exists {
		return errors.New("duplicate key")
	}
	p.Version = 1
	p.CreatedAt = time.Now()
	f.rows[p.UserID] = p.Clone()
	return nil
}

func (f *fakePetStore) CompareAndSwap(_ context.Context, p *domain.PetState, expected int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[p.UserID]
	if !ok || cur.Version != expected {
		return false, nil
	}
	p.Version = expected + 1
	f.rows[p.UserID] = p.Clone()
	return true, nil
}

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Publish(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *captureSink) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

func testConfig() ProgressionConfig {
	return ProgressionConfig{
		Energy:     progression.EnergyPolicy{MaxEnergy: 10, RegenInterval: 30 * time.Minute},
		UserLevels: progression.LevelPolicy{XPPerLevel: 100, MaxLevel: 50},
		Ranks:      domain.DefaultRankTable(),
		Pet: progression.PetPolicy{
			FeedCost:          20,
			XPPerFeed:         10,
			MaxDailySpend:     600,
			YieldPerHour:      50,
			LevelUpYieldBonus: 25,
			MaxClaimHours:     12,
			MinClaimAmount:    100,
			ClaimCooldown:     time.Hour,
			Levels:            progression.LevelPolicy{XPPerLevel: 100, MaxLevel: 20},
		},
		Limits: progression.RateLimits{
			Window:     time.Minute,
			MaxPerKind: map[progression.ActionKind]int{progression.ActionFeed: 100, progression.ActionGame: 100},
		},
		GameEnergyCost:     1,
		MaxPointsPerSecond: 10,
	}
}

type fixture struct {
	svc   *ProgressionService
	users *fakeUserStore
	pets  *fakePetStore
	sink  *captureSink
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users: newFakeUserStore(),
		pets:  newFakePetStore(),
		sink:  &captureSink{},
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewProgressionService(f.users, f.pets, testConfig(), f.sink)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) register(t *testing.T) *domain.UserState {
	t.Helper()
	u, err := f.svc.RegisterPrincipal(context.Background(), &telegram.Principal{
		ID: "777", Username: "player", FirstName: "P",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func TestRegisterPrincipalCreatesOnce(t *testing.T) {
	f := newFixture(t)

	u := f.register(t)
	if u.ID != 777 || u.ExternalID != "777" {
		t.Fatalf("user = %+v", u)
	}
	if u.Level != 1 || u.CurrentEnergy != 10 {
		t.Fatalf("defaults: %+v", u)
	}

	again := f.register(t)
	if again.Version != u.Version {
		t.Fatal("second register must load, not create")
	}
}

func TestRegisterPrincipalNonNumericID(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.RegisterPrincipal(context.Background(), &telegram.Principal{ID: "guest:abc"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID < 0 {
		t.Fatalf("internal key = %d", u.ID)
	}
	if u.ExternalID != "guest:abc" {
		t.Fatalf("external id = %q", u.ExternalID)
	}
}

func TestCompleteGame(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	res, err := f.svc.CompleteGame(context.Background(), 777, 120, 60)
	if err != nil {
		t.Fatalf("complete game: %v", err)
	}
	if res.PointsEarned != 120 {
		t.Fatalf("points = %d", res.PointsEarned)
	}
	if res.User.CurrentEnergy != 9 {
		t.Fatalf("energy = %d", res.User.CurrentEnergy)
	}
	// 120 XP crosses one level at 100 per level
	if res.User.Level != 2 || res.User.CurrentXP != 20 {
		t.Fatalf("level/xp = %d/%d", res.User.Level, res.User.CurrentXP)
	}
}

func TestCompleteGameImplausibleScore(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	// 10 points/sec cap: 601 points in 60s is not a real game
	if _, err := f.svc.CompleteGame(context.Background(), 777, 601, 60); !errors.Is(err, domain.ErrImplausibleScore) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.svc.CompleteGame(context.Background(), 777, 10, 0); !errors.Is(err, domain.ErrImplausibleScore) {
		t.Fatalf("zero duration err = %v", err)
	}

	u, _ := f.svc.GetUser(context.Background(), 777)
	if u.TotalPoints != 0 || u.CurrentEnergy != 10 {
		t.Fatal("rejected game mutated state")
	}
}

func TestCompleteGameDrainsEnergy(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	for i := 0; i < 10; i++ {
		if _, err := f.svc.CompleteGame(context.Background(), 777, 1, 10); err != nil {
			t.Fatalf("game %d: %v", i+1, err)
		}
	}
	if _, err := f.svc.CompleteGame(context.Background(), 777, 1, 10); !errors.Is(err, domain.ErrNoEnergy) {
		t.Fatalf("err = %v", err)
	}

	// half a regen interval later: still empty
	f.clock = f.clock.Add(15 * time.Minute)
	if _, err := f.svc.CompleteGame(context.Background(), 777, 1, 10); !errors.Is(err, domain.ErrNoEnergy) {
		t.Fatalf("err = %v", err)
	}
	// a full interval restores one point
	f.clock = f.clock.Add(15 * time.Minute)
	if _, err := f.svc.CompleteGame(context.Background(), 777, 1, 10); err != nil {
		t.Fatalf("regenerated game: %v", err)
	}
}

func TestCompleteGameRateLimited(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	cfg := testConfig()
	cfg.Limits.MaxPerKind[progression.ActionGame] = 2
	f.svc = NewProgressionService(f.users, f.pets, cfg, f.sink)
	f.svc.now = func() time.Time { return f.clock }

	f.svc.CompleteGame(context.Background(), 777, 1, 10)
	f.svc.CompleteGame(context.Background(), 777, 1, 10)
	if _, err := f.svc.CompleteGame(context.Background(), 777, 1, 10); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v", err)
	}
}

func TestAddPointsCreditsRankReward(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	u, err := f.svc.AddPoints(context.Background(), 777, 1100)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	// silver reached at 1000; its 100-point reward is credited on top
	if u.TotalPoints != 1200 {
		t.Fatalf("total = %d", u.TotalPoints)
	}
	if u.CurrentRank != domain.RankSilver {
		t.Fatalf("rank = %v", u.CurrentRank)
	}

	found := false
	for _, typ := range f.sink.types() {
		if typ == EventRankUp {
			found = true
		}
	}
	if !found {
		t.Fatal("rank_up event not published")
	}
}

func TestFeedPetSpendsPoints(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.svc.AddPoints(context.Background(), 777, 100)

	pet, err := f.svc.FeedPet(context.Background(), 777)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !pet.Hatched || pet.XP != 10 {
		t.Fatalf("pet = %+v", pet)
	}

	u, _ := f.svc.GetUser(context.Background(), 777)
	if u.TotalPoints != 80 {
		t.Fatalf("total after feed = %d", u.TotalPoints)
	}
	// spending must not shrink lifetime
	if u.LifetimePoints != 100 {
		t.Fatalf("lifetime = %d", u.LifetimePoints)
	}
}

func TestFeedPetInsufficientPoints(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	if _, err := f.svc.FeedPet(context.Background(), 777); !errors.Is(err, domain.ErrInsufficientPoints) {
		t.Fatalf("err = %v", err)
	}
}

func TestFeedPetDailyCap(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.svc.AddPoints(context.Background(), 777, 10_000)

	for i := 0; i < 30; i++ {
		f.clock = f.clock.Add(time.Minute)
		if _, err := f.svc.FeedPet(context.Background(), 777); err != nil {
			t.Fatalf("feed %d: %v", i+1, err)
		}
	}
	f.clock = f.clock.Add(time.Minute)
	if _, err := f.svc.FeedPet(context.Background(), 777); !errors.Is(err, domain.ErrDailyCapExceeded) {
		t.Fatalf("31st feed err = %v", err)
	}
}

func TestClaimBelowMinimumNoWrite(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.svc.AddPoints(context.Background(), 777, 100)
	f.svc.FeedPet(context.Background(), 777) // hatch

	f.clock = f.clock.Add(90 * time.Minute) // past cooldown, 1 hour accrued = 50 < 100
	if _, err := f.svc.ClaimPetYield(context.Background(), 777); !errors.Is(err, domain.ErrBelowClaimMinimum) {
		t.Fatalf("err = %v", err)
	}

	pet, _ := f.svc.GetPet(context.Background(), 777)
	hatchedAt := f.clock.Add(-90 * time.Minute)
	if !pet.LastClaimAt.Equal(hatchedAt) {
		t.Fatalf("rejected claim moved lastClaimAt: %v", pet.LastClaimAt)
	}
}

func TestClaimSettlesIntoPoints(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.svc.AddPoints(context.Background(), 777, 100)
	f.svc.FeedPet(context.Background(), 777)

	f.clock = f.clock.Add(3 * time.Hour)
	res, err := f.svc.ClaimPetYield(context.Background(), 777)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Amount != 150 {
		t.Fatalf("amount = %d", res.Amount)
	}
	if res.User.TotalPoints != 100-20+150 {
		t.Fatalf("total = %d", res.User.TotalPoints)
	}
}

// Two concurrent claims for the same user: yield is granted exactly
// once; the loser sees a policy rejection or a conflict, never a second
// payout.
func TestConcurrentClaimSingleGrant(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.svc.AddPoints(context.Background(), 777, 100)
	f.svc.FeedPet(context.Background(), 777)
	f.clock = f.clock.Add(4 * time.Hour)

	baseline, _ := f.svc.GetUser(context.Background(), 777)

	var wg sync.WaitGroup
	results := make([]error, 2)
	amounts := make([]int64, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.ClaimPetYield(context.Background(), 777)
			results[i] = err
			if err == nil {
				amounts[i] = res.Amount
			}
		}(i)
	}
	wg.Wait()

	successes := 0
	var granted int64
	for i, err := range results {
		if err == nil {
			successes++
			granted += amounts[i]
		} else if !errors.Is(err, domain.ErrClaimCooldown) &&
			!errors.Is(err, domain.ErrBelowClaimMinimum) &&
			!errors.Is(err, domain.ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d", successes)
	}

	u, _ := f.svc.GetUser(context.Background(), 777)
	if u.TotalPoints != baseline.TotalPoints+granted {
		t.Fatalf("points %d, want baseline %d + granted %d", u.TotalPoints, baseline.TotalPoints, granted)
	}
}

// A claim whose user-side settlement cannot commit must not destroy
// the yield: the pet write is rolled back, so the accrual is still
// claimable afterwards and no points moved.
func TestClaimConflictPreservesYield(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.svc.AddPoints(context.Background(), 777, 100)
	f.svc.FeedPet(context.Background(), 777)
	hatchedAt := f.clock
	f.clock = f.clock.Add(4 * time.Hour)

	before, _ := f.svc.GetUser(context.Background(), 777)
	f.users.casFail = 10 // every user write loses until the retry budget is gone

	if _, err := f.svc.ClaimPetYield(context.Background(), 777); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v", err)
	}

	pet, _ := f.svc.GetPet(context.Background(), 777)
	if !pet.LastClaimAt.Equal(hatchedAt) {
		t.Fatalf("failed claim moved lastClaimAt: %v", pet.LastClaimAt)
	}
	if got := f.svc.Claimable(pet, f.clock); got != 200 {
		t.Fatalf("claimable after failed claim = %d, want 200", got)
	}

	u, _ := f.svc.GetUser(context.Background(), 777)
	if u.TotalPoints != before.TotalPoints {
		t.Fatalf("points = %d, want %d", u.TotalPoints, before.TotalPoints)
	}
}

// Same guarantee for feeding: a debit that cannot settle rolls the
// feed back instead of leaving a free meal behind.
func TestFeedConflictRevertsPet(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.svc.AddPoints(context.Background(), 777, 100)
	f.svc.FeedPet(context.Background(), 777)

	f.clock = f.clock.Add(time.Minute)
	f.users.casFail = 10

	if _, err := f.svc.FeedPet(context.Background(), 777); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v", err)
	}

	pet, _ := f.svc.GetPet(context.Background(), 777)
	if pet.XP != 10 || pet.DailySpend != 20 {
		t.Fatalf("failed feed left pet mutated: xp=%d spend=%d", pet.XP, pet.DailySpend)
	}
	u, _ := f.svc.GetUser(context.Background(), 777)
	if u.TotalPoints != 80 {
		t.Fatalf("points = %d, want 80", u.TotalPoints)
	}
}

func TestConflictSurfacesAfterRetries(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.users.casFail = 10 // more than the retry budget

	if _, err := f.svc.AddPoints(context.Background(), 777, 10); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestConflictRetriesRecover(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.users.casFail = 2 // within the retry budget

	u, err := f.svc.AddPoints(context.Background(), 777, 10)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if u.TotalPoints != 10 {
		t.Fatalf("total = %d", u.TotalPoints)
	}
}

func TestGetEnergyState(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	f.svc.CompleteGame(context.Background(), 777, 1, 10)

	es, err := f.svc.GetEnergyState(context.Background(), 777)
	if err != nil {
		t.Fatalf("energy state: %v", err)
	}
	if es.CurrentEnergy != 9 || es.MaxEnergy != 10 {
		t.Fatalf("energy = %+v", es)
	}
	if es.SecondsUntilNext != int64((30 * time.Minute).Seconds()) {
		t.Fatalf("seconds until next = %d", es.SecondsUntilNext)
	}
}

func TestConnectWallet(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	u, err := f.svc.ConnectWallet(context.Background(), 777, "EQBx...abc", "pubkey-hex")
	if err != nil {
		t.Fatalf("connect wallet: %v", err)
	}
	if u.WalletAddress != "EQBx...abc" || u.PublicKey != "pubkey-hex" {
		t.Fatalf("wallet fields = %+v", u)
	}
}
