package race

import (
	"errors"
	"testing"
	"time"

	"xkart/internal/asset"
	"xkart/internal/authority"
	"xkart/internal/token"
)

type fixture struct {
	admins *authority.Store
	ledger *token.Ledger
	assets *asset.Registry
	eng    *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	admins := authority.New("root")
	ledger := token.New(admins, token.Config{})
	assets := asset.NewRegistry(ledger)
	return &fixture{
		admins: admins,
		ledger: ledger,
		assets: assets,
		eng:    NewEngine(ledger, assets, admins, "treasury"),
	}
}

func (f *fixture) fund(t *testing.T, owner string, amount uint64) {
	t.Helper()
	if err := f.ledger.Mint("root", token.Account{Owner: owner}, amount); err != nil {
		t.Fatalf("fund %s: %v", owner, err)
	}
}

func (f *fixture) gear(t *testing.T, player string) (string, string) {
	t.Helper()
	kart, err := f.assets.Mint(player, asset.TypeKart, "kart")
	if err != nil {
		t.Fatalf("mint kart: %v", err)
	}
	driver, err := f.assets.Mint(player, asset.TypeDriver, "driver")
	if err != nil {
		t.Fatalf("mint driver: %v", err)
	}
	return kart, driver
}

func (f *fixture) newRace(t *testing.T, entryFee uint64) string {
	t.Helper()
	arena, err := f.assets.Mint("root", asset.TypeArena, "speedway")
	if err != nil {
		t.Fatalf("mint arena: %v", err)
	}
	id, err := f.eng.Create("root", "grand prix", arena, entryFee)
	if err != nil {
		t.Fatalf("create race: %v", err)
	}
	return id
}

func (f *fixture) join(t *testing.T, raceID, player string) {
	t.Helper()
	kart, driver := f.gear(t, player)
	if err := f.eng.Join(player, raceID, kart, driver); err != nil {
		t.Fatalf("join %s: %v", player, err)
	}
}

func TestCreateRequiresAdminAndArena(t *testing.T) {
	f := newFixture(t)

	arena, _ := f.assets.Mint("root", asset.TypeArena, "speedway")
	if _, err := f.eng.Create("alice", "race", arena, 10); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	if _, err := f.eng.Create("root", "race", "missing", 10); !errors.Is(err, asset.ErrNotFound) {
		t.Fatalf("expected asset.ErrNotFound, got %v", err)
	}

	kart, _ := f.assets.Mint("root", asset.TypeKart, "kart")
	if _, err := f.eng.Create("root", "race", kart, 10); !errors.Is(err, ErrWrongAssetType) {
		t.Fatalf("expected ErrWrongAssetType, got %v", err)
	}

	if _, err := f.eng.Create("root", "race", arena, 10); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestJoinEscrowsEntryFee(t *testing.T) {
	f := newFixture(t)
	raceID := f.newRace(t, 10)
	f.fund(t, "alice", 100)
	f.join(t, raceID, "alice")

	if got := f.ledger.BalanceOf(token.Account{Owner: "alice"}); got != 90 {
		t.Fatalf("alice balance %d, want 90", got)
	}
	if got := f.ledger.BalanceOf(f.eng.Holding(raceID)); got != 10 {
		t.Fatalf("holding balance %d, want 10", got)
	}
	r, _ := f.eng.Get(raceID)
	if r.Pool != 10 || len(r.Participants) != 1 {
		t.Fatalf("pool=%d participants=%d", r.Pool, len(r.Participants))
	}
}

func TestJoinValidations(t *testing.T) {
	f := newFixture(t)
	raceID := f.newRace(t, 10)
	f.fund(t, "alice", 100)
	f.fund(t, "bob", 100)

	kart, driver := f.gear(t, "alice")

	// Bob cannot enter with Alice's gear.
	if err := f.eng.Join("bob", raceID, kart, driver); !errors.Is(err, ErrNotAssetOwner) {
		t.Fatalf("expected ErrNotAssetOwner, got %v", err)
	}

	// A driver is not a kart.
	if err := f.eng.Join("alice", raceID, driver, driver); !errors.Is(err, ErrWrongAssetType) {
		t.Fatalf("expected ErrWrongAssetType, got %v", err)
	}

	if err := f.eng.Join("alice", raceID, kart, driver); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := f.eng.Join("alice", raceID, kart, driver); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}

	if err := f.eng.Join("bob", "missing", kart, driver); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJoinFailedPaymentAddsNoParticipant(t *testing.T) {
	f := newFixture(t)
	raceID := f.newRace(t, 50)
	f.fund(t, "alice", 10)
	kart, driver := f.gear(t, "alice")

	err := f.eng.Join("alice", raceID, kart, driver)
	if !errors.Is(err, token.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	r, _ := f.eng.Get(raceID)
	if len(r.Participants) != 0 || r.Pool != 0 {
		t.Fatalf("failed join mutated race: %+v", r)
	}
}

func TestPlaceBetEscrowsStake(t *testing.T) {
	f := newFixture(t)
	raceID := f.newRace(t, 10)
	f.fund(t, "alice", 100)
	f.fund(t, "bettor", 100)
	f.join(t, raceID, "alice")

	if err := f.eng.PlaceBet("bettor", raceID, 30, "alice"); err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if got := f.ledger.BalanceOf(token.Account{Owner: "bettor"}); got != 70 {
		t.Fatalf("bettor balance %d, want 70", got)
	}
	r, _ := f.eng.Get(raceID)
	if len(r.Bets) != 1 || r.Bets[0].Amount != 30 {
		t.Fatalf("unexpected bets: %+v", r.Bets)
	}
}

func TestPlaceBetValidations(t *testing.T) {
	f := newFixture(t)
	raceID := f.newRace(t, 10)
	f.fund(t, "alice", 100)
	f.fund(t, "bettor", 20)
	f.join(t, raceID, "alice")

	if err := f.eng.PlaceBet("bettor", raceID, 10, "nobody"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	// A zero stake would distort the winning-bet split; it is rejected
	// before anything is recorded.
	if err := f.eng.PlaceBet("bettor", raceID, 0, "alice"); !errors.Is(err, ErrZeroStake) {
		t.Fatalf("expected ErrZeroStake, got %v", err)
	}

	// A failed stake transfer must leave no bet record.
	if err := f.eng.PlaceBet("bettor", raceID, 500, "alice"); !errors.Is(err, token.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	r, _ := f.eng.Get(raceID)
	if len(r.Bets) != 0 {
		t.Fatalf("failed bet was recorded: %+v", r.Bets)
	}

	if err := f.eng.Start("root", raceID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.eng.PlaceBet("bettor", raceID, 10, "alice"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after start, got %v", err)
	}
}

func TestStartTransitions(t *testing.T) {
	f := newFixture(t)
	raceID := f.newRace(t, 0)

	if err := f.eng.Start("alice", raceID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := f.eng.Start("root", raceID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.eng.Start("root", raceID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double start, got %v", err)
	}

	f.fund(t, "late", 100)
	kart, driver := f.gear(t, "late")
	if err := f.eng.Join("late", raceID, kart, driver); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState joining started race, got %v", err)
	}
}

func TestUpdateProgress(t *testing.T) {
	f := newFixture(t)
	raceID := f.newRace(t, 0)
	f.fund(t, "alice", 10)
	f.fund(t, "bob", 10)
	f.join(t, raceID, "alice")
	f.join(t, raceID, "bob")

	positions := []PositionUpdate{{Player: "alice", Position: 1}}
	if err := f.eng.UpdateProgress("root", raceID, positions, nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState before start, got %v", err)
	}

	if err := f.eng.Start("root", raceID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Unknown players are dropped silently, known ones are applied.
	positions = []PositionUpdate{
		{Player: "alice", Position: 1},
		{Player: "ghost", Position: 2},
		{Player: "bob", Position: 2},
	}
	laps := []LapTime{
		{Player: "alice", Duration: 62 * time.Second},
		{Player: "ghost", Duration: 90 * time.Second},
		{Player: "alice", Duration: 61 * time.Second},
	}
	if err := f.eng.UpdateProgress("root", raceID, positions, laps); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	r, _ := f.eng.Get(raceID)
	if r.Participants[0].Position != 1 || r.Participants[1].Position != 2 {
		t.Fatalf("positions not applied: %+v", r.Participants)
	}
	if len(r.Participants[0].LapTimes) != 2 {
		t.Fatalf("lap times not appended: %+v", r.Participants[0])
	}

	if err := f.eng.UpdateProgress("alice", raceID, positions, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}
