package token

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Account is the unit of balance custody: an owner principal plus an
// optional sub-identifier, so one principal can hold segregated funds
// (each race and campaign escrows under its own sub).
type Account struct {
	Owner string
	Sub   string
}

// TransferArgs carries the full transfer surface. Fee, Memo and CreatedAt
// are optional; CreatedAt opts the transfer into the dedup window.
type TransferArgs struct {
	FromSub   string
	To        Account
	Amount    uint64
	Fee       *uint64
	Memo      []byte
	CreatedAt *time.Time
}

type AdminGate interface {
	IsAdmin(principal string) bool
}

type Config struct {
	// Fee is charged on every transfer in addition to the amount and
	// credited to FeeCollector. A caller-supplied fee must match it.
	Fee          uint64
	FeeCollector Account
	// DedupWindow bounds how old a CreatedAt may be; PermittedDrift bounds
	// how far ahead of the ledger clock it may sit.
	DedupWindow    time.Duration
	PermittedDrift time.Duration
	Clock          clockwork.Clock
}

const (
	defaultDedupWindow    = 24 * time.Hour
	defaultPermittedDrift = 2 * time.Minute
)

type dedupKey struct {
	from      Account
	to        Account
	amount    uint64
	memo      string
	createdAt int64
}

// Ledger maps accounts to balances and tracks the running mint total.
// All mutations happen under one mutex so a transfer's debit and credit
// are never separately observable.
type Ledger struct {
	mu       sync.Mutex
	admins   AdminGate
	clock    clockwork.Clock
	fee      uint64
	collect  Account
	window   time.Duration
	drift    time.Duration
	balances map[Account]uint64
	supply   uint64
	nextIdx  uint64
	recent   map[dedupKey]uint64
}

func New(admins AdminGate, cfg Config) *Ledger {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = defaultDedupWindow
	}
	if cfg.PermittedDrift <= 0 {
		cfg.PermittedDrift = defaultPermittedDrift
	}
	return &Ledger{
		admins:   admins,
		clock:    cfg.Clock,
		fee:      cfg.Fee,
		collect:  cfg.FeeCollector,
		window:   cfg.DedupWindow,
		drift:    cfg.PermittedDrift,
		balances: make(map[Account]uint64),
		recent:   make(map[dedupKey]uint64),
	}
}

// Transfer debits caller's account and credits args.To, atomically. The
// debit covers amount plus the ledger fee; it fails with
// InsufficientFundsError before any state changes.
func (l *Ledger) Transfer(caller string, args TransferArgs) (uint64, error) {
	from := Account{Owner: caller, Sub: args.FromSub}

	l.mu.Lock()
	defer l.mu.Unlock()

	if args.Fee != nil && *args.Fee != l.fee {
		return 0, &BadFeeError{ExpectedFee: l.fee}
	}

	var key dedupKey
	if args.CreatedAt != nil {
		now := l.clock.Now()
		created := *args.CreatedAt
		if created.Before(now.Add(-l.window)) {
			return 0, ErrTooOld
		}
		if created.After(now.Add(l.drift)) {
			return 0, ErrCreatedInFuture
		}
		l.pruneRecent(now)
		key = dedupKey{
			from:      from,
			to:        args.To,
			amount:    args.Amount,
			memo:      string(args.Memo),
			createdAt: created.UnixNano(),
		}
		if idx, ok := l.recent[key]; ok {
			return 0, &DuplicateError{DuplicateOf: idx}
		}
	}

	if args.Amount > math.MaxUint64-l.fee {
		return 0, ErrOverflow
	}
	debit := args.Amount + l.fee
	bal := l.balances[from]
	if bal < debit {
		return 0, &InsufficientFundsError{Balance: bal}
	}
	if args.To != from {
		if l.balances[args.To] > math.MaxUint64-args.Amount {
			return 0, ErrOverflow
		}
	}

	l.balances[from] = bal - debit
	l.balances[args.To] += args.Amount
	if l.fee > 0 {
		l.balances[l.collect] += l.fee
	}

	idx := l.nextIdx
	l.nextIdx++
	if args.CreatedAt != nil {
		l.recent[key] = idx
	}
	return idx, nil
}

// Payout moves escrowed funds out of a system holding account. Unlike
// Transfer it charges no fee: holding accounts custody exactly the pooled
// amounts, so a fee here would strand the tail of every payout run.
func (l *Ledger) Payout(from, to Account, amount uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[from]
	if bal < amount {
		return 0, &InsufficientFundsError{Balance: bal}
	}
	if to != from {
		if l.balances[to] > math.MaxUint64-amount {
			return 0, ErrOverflow
		}
	}

	l.balances[from] = bal - amount
	l.balances[to] += amount

	idx := l.nextIdx
	l.nextIdx++
	return idx, nil
}

// Mint credits to and grows the total supply. Only admins may mint.
func (l *Ledger) Mint(caller string, to Account, amount uint64) error {
	if !l.admins.IsAdmin(caller) {
		return ErrNotAuthorized
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.supply > math.MaxUint64-amount {
		return ErrOverflow
	}
	if l.balances[to] > math.MaxUint64-amount {
		return ErrOverflow
	}
	l.balances[to] += amount
	l.supply += amount
	return nil
}

// BalanceOf returns 0 for accounts the ledger has never seen.
func (l *Ledger) BalanceOf(acct Account) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[acct]
}

func (l *Ledger) TotalSupply() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply
}

// Snapshot copies out every balance, for audits and conservation checks.
func (l *Ledger) Snapshot() map[Account]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Account]uint64, len(l.balances))
	for acct, bal := range l.balances {
		out[acct] = bal
	}
	return out
}

func (l *Ledger) pruneRecent(now time.Time) {
	floor := now.Add(-l.window).UnixNano()
	for key := range l.recent {
		if key.createdAt < floor {
			delete(l.recent, key)
		}
	}
}
