package asset

import (
	"errors"
	"sort"
	"sync"

	"xkart/internal/ids"
	"xkart/internal/token"
)

var (
	ErrNotFound  = errors.New("asset_not_found")
	ErrNotOwner  = errors.New("not_asset_owner")
	ErrNotListed = errors.New("asset_not_listed")
)

type Type string

const (
	TypeKart   Type = "kart"
	TypeDriver Type = "driver"
	TypeArena  Type = "arena"
)

// Asset is an NFT: a kart, driver or arena with an owner, free-form
// metadata and an optional marketplace listing.
type Asset struct {
	ID          string
	Owner       string
	Type        Type
	Metadata    string
	ListedPrice *uint64
}

// Registry keeps the asset records and answers the owner/type lookups the
// settlement engines depend on. Purchases pay sellers through the ledger.
type Registry struct {
	mu     sync.RWMutex
	ledger *token.Ledger
	assets map[string]*Asset
}

func NewRegistry(ledger *token.Ledger) *Registry {
	return &Registry{ledger: ledger, assets: make(map[string]*Asset)}
}

// Mint creates an asset owned by caller and returns its id.
func (r *Registry) Mint(caller string, typ Type, metadata string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := ids.New()
	r.assets[id] = &Asset{ID: id, Owner: caller, Type: typ, Metadata: metadata}
	return id, nil
}

// MintReward issues an asset directly to owner. Used by campaign reward
// settlement; not exposed to external callers.
func (r *Registry) MintReward(owner string, typ Type, metadata string) (string, error) {
	return r.Mint(owner, typ, metadata)
}

// Transfer hands the asset to a new owner and clears any listing.
func (r *Registry) Transfer(caller, id, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return ErrNotFound
	}
	if a.Owner != caller {
		return ErrNotOwner
	}
	a.Owner = to
	a.ListedPrice = nil
	return nil
}

// List puts the asset up for sale at price.
func (r *Registry) List(caller, id string, price uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return ErrNotFound
	}
	if a.Owner != caller {
		return ErrNotOwner
	}
	a.ListedPrice = &price
	return nil
}

// Buy pays the listed price from the caller to the current owner, then
// flips ownership and clears the listing. A failed payment leaves the
// asset untouched.
func (r *Registry) Buy(caller, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return ErrNotFound
	}
	if a.ListedPrice == nil {
		return ErrNotListed
	}
	_, err := r.ledger.Transfer(caller, token.TransferArgs{
		To:     token.Account{Owner: a.Owner},
		Amount: *a.ListedPrice,
	})
	if err != nil {
		return err
	}
	a.Owner = caller
	a.ListedPrice = nil
	return nil
}

// OwnerAndType is the collaborator contract consumed by the race and
// campaign engines.
func (r *Registry) OwnerAndType(id string) (string, Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return "", "", ErrNotFound
	}
	return a.Owner, a.Type, nil
}

func (r *Registry) Get(id string) (Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return copyAsset(a), nil
}

// ByOwner returns the assets owned by a principal, ordered by id.
func (r *Registry) ByOwner(owner string) []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Asset
	for _, a := range r.assets {
		if a.Owner == owner {
			out = append(out, copyAsset(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Listed returns every asset currently for sale, ordered by id.
func (r *Registry) Listed() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Asset
	for _, a := range r.assets {
		if a.ListedPrice != nil {
			out = append(out, copyAsset(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyAsset(a *Asset) Asset {
	out := *a
	if a.ListedPrice != nil {
		price := *a.ListedPrice
		out.ListedPrice = &price
	}
	return out
}
