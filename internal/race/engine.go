package race

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"xkart/internal/asset"
	"xkart/internal/ids"
	"xkart/internal/token"
)

type AssetRegistry interface {
	OwnerAndType(id string) (string, asset.Type, error)
}

type AdminGate interface {
	IsAdmin(principal string) bool
}

// Engine owns the race store and drives each race through
// upcoming → in progress → completed, escrowing entry fees and bet stakes
// in the race's holding account until settlement. Lock order is always the
// race store first, then the ledger or asset registry; neither collaborator
// calls back into the engine.
type Engine struct {
	mu       sync.Mutex
	races    map[string]*Race
	ledger   *token.Ledger
	assets   AssetRegistry
	admins   AdminGate
	treasury string
}

func NewEngine(ledger *token.Ledger, assets AssetRegistry, admins AdminGate, treasury string) *Engine {
	return &Engine{
		races:    make(map[string]*Race),
		ledger:   ledger,
		assets:   assets,
		admins:   admins,
		treasury: treasury,
	}
}

func raceSub(raceID string) string {
	return "race:" + raceID
}

// Holding returns the escrow account custodying a race's funds.
func (e *Engine) Holding(raceID string) token.Account {
	return token.Account{Owner: e.treasury, Sub: raceSub(raceID)}
}

// Create opens a new race in an arena. Admin only; the arena reference
// must resolve to an arena-typed asset.
func (e *Engine) Create(caller, name, arenaID string, entryFee uint64) (string, error) {
	if !e.admins.IsAdmin(caller) {
		return "", ErrNotAuthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, typ, err := e.assets.OwnerAndType(arenaID)
	if err != nil {
		return "", err
	}
	if typ != asset.TypeArena {
		return "", ErrWrongAssetType
	}

	id := ids.New()
	e.races[id] = &Race{
		ID:       id,
		Name:     name,
		ArenaID:  arenaID,
		EntryFee: entryFee,
		Status:   StatusUpcoming,
	}
	log.Info().Str("race_id", id).Str("name", name).Uint64("entry_fee", entryFee).Msg("race created")
	return id, nil
}

// Join enrolls the caller with their kart and driver and escrows the entry
// fee. The fee payment and the enrollment commit together: a failed
// transfer adds no participant.
func (e *Engine) Join(caller, raceID, kartID, driverID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.races[raceID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusUpcoming {
		return ErrInvalidState
	}
	for _, p := range r.Participants {
		if p.Player == caller {
			return ErrAlreadyJoined
		}
	}
	if err := e.ownedAsset(caller, kartID, asset.TypeKart); err != nil {
		return err
	}
	if err := e.ownedAsset(caller, driverID, asset.TypeDriver); err != nil {
		return err
	}

	if r.EntryFee > 0 {
		_, err := e.ledger.Transfer(caller, token.TransferArgs{
			To:     e.Holding(raceID),
			Amount: r.EntryFee,
		})
		if err != nil {
			return err
		}
	}

	r.Participants = append(r.Participants, Participant{
		Player:   caller,
		KartID:   kartID,
		DriverID: driverID,
	})
	r.Pool += r.EntryFee
	return nil
}

// PlaceBet escrows the stake and records the bet. Betting closes when the
// race leaves upcoming; the predicted winner must already be enrolled.
func (e *Engine) PlaceBet(caller, raceID string, amount uint64, prediction string) error {
	if amount == 0 {
		return ErrZeroStake
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.races[raceID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusUpcoming {
		return ErrInvalidState
	}
	if !hasParticipant(r, prediction) {
		return ErrNotParticipant
	}

	_, err := e.ledger.Transfer(caller, token.TransferArgs{
		To:     e.Holding(raceID),
		Amount: amount,
	})
	if err != nil {
		return err
	}

	r.Bets = append(r.Bets, Bet{
		RaceID:     raceID,
		Bettor:     caller,
		Amount:     amount,
		Prediction: prediction,
	})
	return nil
}

// Start moves the race to in progress. Admin only.
func (e *Engine) Start(caller, raceID string) error {
	if !e.admins.IsAdmin(caller) {
		return ErrNotAuthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.races[raceID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusUpcoming {
		return ErrInvalidState
	}
	r.Status = StatusInProgress
	log.Info().Str("race_id", raceID).Msg("race started")
	return nil
}

// UpdateProgress ingests telemetry while the race runs. Updates keyed to
// players not enrolled in this race are dropped, not rejected.
func (e *Engine) UpdateProgress(caller, raceID string, positions []PositionUpdate, laps []LapTime) error {
	if !e.admins.IsAdmin(caller) {
		return ErrNotAuthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.races[raceID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusInProgress || r.settling {
		return ErrInvalidState
	}

	for _, u := range positions {
		if p := findParticipant(r, u.Player); p != nil {
			p.Position = u.Position
		}
	}
	for _, lt := range laps {
		if p := findParticipant(r, lt.Player); p != nil {
			p.LapTimes = append(p.LapTimes, lt.Duration)
		}
	}
	return nil
}

// Get returns a copy of the race.
func (e *Engine) Get(raceID string) (Race, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.races[raceID]
	if !ok {
		return Race{}, ErrNotFound
	}
	return copyRace(r), nil
}

// All returns copies of every race, ordered by id.
func (e *Engine) All() []Race {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Race, 0, len(e.races))
	for _, r := range e.races {
		out = append(out, copyRace(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) ownedAsset(caller, id string, want asset.Type) error {
	owner, typ, err := e.assets.OwnerAndType(id)
	if err != nil {
		return err
	}
	if typ != want {
		return ErrWrongAssetType
	}
	if owner != caller {
		return ErrNotAssetOwner
	}
	return nil
}

func hasParticipant(r *Race, player string) bool {
	return findParticipant(r, player) != nil
}

func findParticipant(r *Race, player string) *Participant {
	for i := range r.Participants {
		if r.Participants[i].Player == player {
			return &r.Participants[i]
		}
	}
	return nil
}

func copyRace(r *Race) Race {
	out := *r
	out.Participants = make([]Participant, len(r.Participants))
	for i, p := range r.Participants {
		out.Participants[i] = p
		out.Participants[i].LapTimes = append([]time.Duration(nil), p.LapTimes...)
	}
	out.Bets = append([]Bet(nil), r.Bets...)
	return out
}
