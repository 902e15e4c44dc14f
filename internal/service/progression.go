package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"quest_webapp/internal/domain"
	"quest_webapp/internal/idhash"
	"quest_webapp/internal/logger"
	"quest_webapp/internal/progression"
	"quest_webapp/internal/telegram"
)

// UserStore and PetStore are the only persistence primitives the engine
// assumes: atomic load and versioned compare-and-swap per entity.
type UserStore interface {
	Load(ctx context.Context, id int64) (*domain.UserState, error)
	Create(ctx context.Context, u *domain.UserState) error
	CompareAndSwap(ctx context.Context, u *domain.UserState, expectedVersion int64) (bool, error)
}

type PetStore interface {
	Load(ctx context.Context, userID int64) (*domain.PetState, error)
	Create(ctx context.Context, p *domain.PetState) error
	CompareAndSwap(ctx context.Context, p *domain.PetState, expectedVersion int64) (bool, error)
}

// ProgressionConfig bundles the policy surface the service runs on.
type ProgressionConfig struct {
	Energy             progression.EnergyPolicy
	Pet                progression.PetPolicy
	UserLevels         progression.LevelPolicy
	Ranks              []domain.RankThreshold
	Limits             progression.RateLimits
	GameEnergyCost     int
	MaxPointsPerSecond int64
}

const (
	casRetries   = 3
	storeTimeout = 5 * time.Second
)

// ProgressionService is the facade over stores and calculators. Requests
// run concurrently, but operations for one user serialize on a
// per-principal mutex; the version CAS additionally protects against
// writers in other processes. Policy rejections never reach a write.
type ProgressionService struct {
	users   UserStore
	pets    PetStore
	calc    *progression.Calculator
	pet     *progression.PetEngine
	limiter *progression.RateLimiter
	cfg     ProgressionConfig
	events  EventSink

	locks sync.Map // internal user id -> *sync.Mutex

	// now is swappable in tests
	now func() time.Time
}

func NewProgressionService(users UserStore, pets PetStore, cfg ProgressionConfig, events EventSink) *ProgressionService {
	if events == nil {
		events = nopSink{}
	}
	return &ProgressionService{
		users:   users,
		pets:    pets,
		calc:    progression.NewCalculator(cfg.Ranks, cfg.UserLevels),
		pet:     progression.NewPetEngine(cfg.Pet),
		limiter: progression.NewRateLimiter(cfg.Limits),
		cfg:     cfg,
		events:  events,
		now:     time.Now,
	}
}

// Claimable reports pending yield without touching state.
func (s *ProgressionService) Claimable(p *domain.PetState, now time.Time) int64 {
	return s.pet.Claimable(p, now)
}

// Limiter exposes the action limiter for periodic sweeping.
func (s *ProgressionService) Limiter() *progression.RateLimiter {
	return s.limiter
}

func (s *ProgressionService) lock(userID int64) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *ProgressionService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

// RegisterPrincipal maps an authenticated principal to its persisted
// state, creating the row on first contact. New users start at level 1
// with full energy.
func (s *ProgressionService) RegisterPrincipal(ctx context.Context, p *telegram.Principal) (*domain.UserState, error) {
	id := idhash.InternalKey(p.ID)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.Load(sctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	u = &domain.UserState{
		ID:               id,
		ExternalID:       p.ID,
		Username:         p.Username,
		FirstName:        p.FirstName,
		Level:            1,
		CurrentRank:      s.calc.RankFor(0),
		CurrentEnergy:    s.cfg.Energy.MaxEnergy,
		LastEnergyUpdate: now,
	}
	if err := s.users.Create(sctx, u); err != nil {
		// lost a create race: someone else registered this principal
		if existing, loadErr := s.users.Load(sctx, id); loadErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return u, nil
}

// EnergyState is the read-only energy snapshot.
type EnergyState struct {
	CurrentEnergy    int   `json:"current_energy"`
	MaxEnergy        int   `json:"max_energy"`
	SecondsUntilNext int64 `json:"seconds_until_next"`
}

// GetEnergyState computes regenerated energy at now without writing.
func (s *ProgressionService) GetEnergyState(ctx context.Context, userID int64) (*EnergyState, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.Load(sctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &EnergyState{
		CurrentEnergy:    progression.Regenerate(u.LastEnergyUpdate, u.CurrentEnergy, s.cfg.Energy, now),
		MaxEnergy:        s.cfg.Energy.MaxEnergy,
		SecondsUntilNext: progression.SecondsUntilNext(u.LastEnergyUpdate, u.CurrentEnergy, s.cfg.Energy, now),
	}, nil
}

// GameResult reports a settled game completion.
type GameResult struct {
	PointsEarned int64
	RankReward   int64
	User         *domain.UserState
}

// CompleteGame validates a reported game result, spends energy and
// credits points. Implausible scores for the reported duration are
// rejected outright rather than clamped.
func (s *ProgressionService) CompleteGame(ctx context.Context, userID int64, score int64, durationSeconds int) (*GameResult, error) {
	now := s.now()
	if !s.limiter.Allow(userID, progression.ActionGame, now) {
		return nil, domain.ErrRateLimited
	}
	if durationSeconds <= 0 || score < 0 || score > int64(durationSeconds)*s.cfg.MaxPointsPerSecond {
		return nil, domain.ErrImplausibleScore
	}

	unlock := s.lock(userID)
	defer unlock()

	var result *GameResult
	err := s.retryUser(ctx, userID, func(u *domain.UserState) error {
		energy, lastUpdate := progression.Advance(u.LastEnergyUpdate, u.CurrentEnergy, s.cfg.Energy, now)
		if energy < s.cfg.GameEnergyCost {
			return domain.ErrNoEnergy
		}
		u.CurrentEnergy = energy - s.cfg.GameEnergyCost
		u.LastEnergyUpdate = lastUpdate

		levelsGained := s.calc.AddXP(u, score)
		credit := s.creditPoints(u, score)

		result = &GameResult{PointsEarned: score, RankReward: credit.reward, User: u}
		s.queueUserEvents(u, levelsGained, credit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddPoints applies a raw point delta (quest rewards, admin grants,
// spending). Negative deltas floor at zero total.
func (s *ProgressionService) AddPoints(ctx context.Context, userID int64, delta int64) (*domain.UserState, error) {
	unlock := s.lock(userID)
	defer unlock()

	var updated *domain.UserState
	err := s.retryUser(ctx, userID, func(u *domain.UserState) error {
		credit := s.creditPoints(u, delta)
		s.queueUserEvents(u, 0, credit)
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FeedPet spends points to feed, bounded by the per-day cap and the
// feed rate limit. The user debit and the pet mutation commit under the
// same per-principal lock.
func (s *ProgressionService) FeedPet(ctx context.Context, userID int64) (*domain.PetState, error) {
	now := s.now()
	if !s.limiter.Allow(userID, progression.ActionFeed, now) {
		return nil, domain.ErrRateLimited
	}

	unlock := s.lock(userID)
	defer unlock()

	// affordability check before anything mutates
	sctx, cancel := s.storeCtx(ctx)
	u, err := s.users.Load(sctx, userID)
	cancel()
	if err != nil {
		return nil, err
	}
	if u.TotalPoints < s.cfg.Pet.FeedCost {
		return nil, domain.ErrInsufficientPoints
	}

	var fed *domain.PetState
	var leveledTo int
	err = s.retryPetThenUser(ctx, userID,
		func(p *domain.PetState) error {
			before := p.Level
			if err := s.pet.Feed(p, now); err != nil {
				return err
			}
			if p.Level > before {
				leveledTo = p.Level
			}
			fed = p
			return nil
		},
		func(u *domain.UserState) error {
			credit := s.creditPoints(u, -s.cfg.Pet.FeedCost)
			s.queueUserEvents(u, 0, credit)
			return nil
		})
	if err != nil {
		return nil, err
	}
	if leveledTo > 0 {
		s.events.Publish(Event{Type: EventPetLevelUp, UserID: userID, Level: leveledTo})
	}
	return fed, nil
}

// ClaimResult reports a settled yield claim.
type ClaimResult struct {
	Amount int64
	Pet    *domain.PetState
	User   *domain.UserState
}

// ClaimPetYield settles pending yield into points. All-or-nothing: a
// below-minimum or cooldown rejection mutates nothing, and concurrent
// claims for one user can settle a given accrual exactly once.
func (s *ProgressionService) ClaimPetYield(ctx context.Context, userID int64) (*ClaimResult, error) {
	now := s.now()

	unlock := s.lock(userID)
	defer unlock()

	var result ClaimResult
	err := s.retryPetThenUser(ctx, userID,
		func(p *domain.PetState) error {
			amount, err := s.pet.Claim(p, now)
			if err != nil {
				return err
			}
			result.Amount = amount
			result.Pet = p
			return nil
		},
		func(u *domain.UserState) error {
			credit := s.creditPoints(u, result.Amount)
			s.queueUserEvents(u, 0, credit)
			result.User = u
			return nil
		})
	if err != nil {
		return nil, err
	}
	s.events.Publish(Event{Type: EventYieldClaimed, UserID: userID, Amount: result.Amount})
	return &result, nil
}

// ConnectWallet records the user's wallet address and public key. The
// engine only stores them; transaction submission happens elsewhere.
func (s *ProgressionService) ConnectWallet(ctx context.Context, userID int64, address, publicKey string) (*domain.UserState, error) {
	unlock := s.lock(userID)
	defer unlock()

	var updated *domain.UserState
	err := s.retryUser(ctx, userID, func(u *domain.UserState) error {
		u.WalletAddress = address
		u.PublicKey = publicKey
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetUser loads the current snapshot without mutating anything.
func (s *ProgressionService) GetUser(ctx context.Context, userID int64) (*domain.UserState, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.users.Load(sctx, userID)
}

// GetPet loads the pet snapshot, creating an unhatched pet row on first
// access so the mini-app always has something to render.
func (s *ProgressionService) GetPet(ctx context.Context, userID int64) (*domain.PetState, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	p, err := s.pets.Load(sctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.createPet(sctx, userID)
	}
	return p, err
}

func (s *ProgressionService) createPet(ctx context.Context, userID int64) (*domain.PetState, error) {
	now := s.now()
	p := &domain.PetState{
		UserID:      userID,
		Level:       1,
		LastFeedAt:  now,
		LastClaimAt: now,
	}
	if err := s.pets.Create(ctx, p); err != nil {
		if existing, loadErr := s.pets.Load(ctx, userID); loadErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return p, nil
}

type creditOutcome struct {
	rankChanged bool
	rank        domain.Rank
	reward      int64
}

// creditPoints applies a delta and credits any rank rewards it
// triggers. Crediting a reward can itself cross the next threshold, so
// this loops; it terminates because rank strictly increases.
func (s *ProgressionService) creditPoints(u *domain.UserState, delta int64) creditOutcome {
	out := s.calc.ApplyPoints(u, delta)
	res := creditOutcome{rankChanged: out.RankChanged, rank: out.NewRank}
	for out.RankChanged && out.RankReward > 0 {
		res.reward += out.RankReward
		res.rank = out.NewRank
		out = s.calc.ApplyPoints(u, out.RankReward)
	}
	if out.RankChanged {
		res.rank = out.NewRank
	}
	return res
}

func (s *ProgressionService) queueUserEvents(u *domain.UserState, levelsGained int, credit creditOutcome) {
	if levelsGained > 0 {
		s.events.Publish(Event{Type: EventLevelUp, UserID: u.ID, Level: u.Level})
	}
	if credit.rankChanged {
		s.events.Publish(Event{Type: EventRankUp, UserID: u.ID, Rank: credit.rank.String(), Reward: credit.reward})
	}
}

// retryUser runs mutate against a fresh clone of the user state and
// commits via CAS, retrying on version conflicts. Policy errors from
// mutate abort immediately with nothing written.
func (s *ProgressionService) retryUser(ctx context.Context, userID int64, mutate func(*domain.UserState) error) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		sctx, cancel := s.storeCtx(ctx)
		u, err := s.users.Load(sctx, userID)
		if err != nil {
			cancel()
			return err
		}
		work := u.Clone()
		if err := mutate(work); err != nil {
			cancel()
			return err
		}
		ok, err := s.users.CompareAndSwap(sctx, work, u.Version)
		cancel()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		logger.Debug("user cas conflict, retrying", "user_id", userID, "attempt", attempt+1)
	}
	return domain.ErrConflict
}

// retryPetThenUser commits a two-entity operation in phases: the pet
// transition settles first under its own CAS loop, then the user-side
// point delta settles under retryUser against whatever user state is
// current. Each phase commits exactly once, so a conflict between the
// phases can never double-apply the pet transition. If the user phase
// fails after the pet committed, the pet is written back to its
// pre-commit snapshot, so a failed operation leaves neither side
// changed.
func (s *ProgressionService) retryPetThenUser(ctx context.Context, userID int64, petMutate func(*domain.PetState) error, userMutate func(*domain.UserState) error) error {
	var prev *domain.PetState
	for attempt := 0; attempt < casRetries && prev == nil; attempt++ {
		sctx, cancel := s.storeCtx(ctx)

		p, err := s.pets.Load(sctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			p, err = s.createPet(sctx, userID)
		}
		if err != nil {
			cancel()
			return err
		}

		work := p.Clone()
		if err := petMutate(work); err != nil {
			cancel()
			return err
		}

		ok, err := s.pets.CompareAndSwap(sctx, work, p.Version)
		cancel()
		if err != nil {
			return err
		}
		if ok {
			prev = p
		} else {
			logger.Debug("pet cas conflict, retrying", "user_id", userID, "attempt", attempt+1)
		}
	}
	if prev == nil {
		return domain.ErrConflict
	}

	if err := s.retryUser(ctx, userID, userMutate); err != nil {
		if revertErr := s.revertPet(ctx, prev); revertErr != nil {
			logger.Error("pet revert failed after user settlement failure",
				"user_id", userID, "error", revertErr)
		}
		return err
	}
	return nil
}

// revertPet restores the pet's mutable fields from the snapshot taken
// before a two-phase commit, undoing a pet write whose user-side
// settlement could not complete.
func (s *ProgressionService) revertPet(ctx context.Context, prev *domain.PetState) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		sctx, cancel := s.storeCtx(ctx)
		cur, err := s.pets.Load(sctx, prev.UserID)
		if err != nil {
			cancel()
			return err
		}

		restored := cur.Clone()
		restored.XP = prev.XP
		restored.Level = prev.Level
		restored.Hatched = prev.Hatched
		restored.LastFeedAt = prev.LastFeedAt
		restored.LastClaimAt = prev.LastClaimAt
		restored.AccruedYield = prev.AccruedYield
		restored.DailySpend = prev.DailySpend

		ok, err := s.pets.CompareAndSwap(sctx, restored, cur.Version)
		cancel()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return domain.ErrConflict
}
