package campaign

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"xkart/internal/asset"
	"xkart/internal/ids"
	"xkart/internal/token"
)

var (
	ErrNotFound       = errors.New("campaign_not_found")
	ErrNotAuthorized  = errors.New("not_authorized")
	ErrInvalidState   = errors.New("invalid_campaign_state")
	ErrInvalidTarget  = errors.New("invalid_target")
	ErrExpired        = errors.New("campaign_ended")
	ErrNoContribution = errors.New("no_contribution")
	ErrZeroAmount     = errors.New("zero_amount")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Campaign pools investor funds toward a target. Status moves one way:
// active → completed when the target is reached, or active → failed when
// the end time passes first. Failed campaigns pay refunds on demand.
type Campaign struct {
	ID          string
	Name        string
	Description string
	Target      uint64
	Current     uint64
	AssetType   asset.Type
	Status      Status
	Investments map[string]uint64
	EndTime     time.Time

	investors    []string
	rewardIssued bool
	settling     bool
}

type RewardMinter interface {
	MintReward(owner string, typ asset.Type, metadata string) (string, error)
}

type AdminGate interface {
	IsAdmin(principal string) bool
}

// Engine owns the campaign store. Same locking discipline as the race
// engine: campaign store first, then ledger or registry.
type Engine struct {
	mu        sync.Mutex
	campaigns map[string]*Campaign
	ledger    *token.Ledger
	rewards   RewardMinter
	admins    AdminGate
	treasury  string
	clock     clockwork.Clock
}

func NewEngine(ledger *token.Ledger, rewards RewardMinter, admins AdminGate, treasury string, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		campaigns: make(map[string]*Campaign),
		ledger:    ledger,
		rewards:   rewards,
		admins:    admins,
		treasury:  treasury,
		clock:     clock,
	}
}

func campaignSub(id string) string {
	return "campaign:" + id
}

// Holding returns the escrow account custodying a campaign's funds.
func (e *Engine) Holding(id string) token.Account {
	return token.Account{Owner: e.treasury, Sub: campaignSub(id)}
}

// Create opens a campaign running for duration from now. Admin only.
func (e *Engine) Create(caller, name, description string, target uint64, assetType asset.Type, duration time.Duration) (string, error) {
	if !e.admins.IsAdmin(caller) {
		return "", ErrNotAuthorized
	}
	if target == 0 {
		return "", ErrInvalidTarget
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := ids.New()
	e.campaigns[id] = &Campaign{
		ID:          id,
		Name:        name,
		Description: description,
		Target:      target,
		AssetType:   assetType,
		Status:      StatusActive,
		Investments: make(map[string]uint64),
		EndTime:     e.clock.Now().Add(duration),
	}
	log.Info().Str("campaign_id", id).Str("name", name).Uint64("target", target).Msg("campaign created")
	return id, nil
}

// Invest escrows the caller's funds and records the contribution. The
// investment that carries the total past the target completes the
// campaign and issues rewards, exactly once. Investing in an active
// campaign past its end time fails the campaign instead.
func (e *Engine) Invest(caller, id string, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}

	e.mu.Lock()

	c, ok := e.campaigns[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	if c.Status != StatusActive || c.settling {
		e.mu.Unlock()
		return ErrInvalidState
	}
	if e.clock.Now().After(c.EndTime) {
		c.Status = StatusFailed
		e.mu.Unlock()
		log.Info().Str("campaign_id", id).Msg("campaign failed at end time")
		return ErrExpired
	}

	_, err := e.ledger.Transfer(caller, token.TransferArgs{
		To:     e.Holding(id),
		Amount: amount,
	})
	if err != nil {
		e.mu.Unlock()
		return err
	}

	if _, seen := c.Investments[caller]; !seen {
		c.investors = append(c.investors, caller)
	}
	c.Investments[caller] += amount
	c.Current += amount

	if c.Current < c.Target {
		e.mu.Unlock()
		return nil
	}

	// Target reached: flip terminal state under the lock, then issue
	// rewards with the lock released. The settling flag and rewardIssued
	// marker block a second issuance.
	if c.rewardIssued {
		e.mu.Unlock()
		return nil
	}
	c.Status = StatusCompleted
	c.settling = true
	plan := rewardPlan(c)
	e.mu.Unlock()

	e.issueRewards(c, plan)

	e.mu.Lock()
	c.rewardIssued = true
	c.settling = false
	e.mu.Unlock()
	log.Info().Str("campaign_id", id).Uint64("raised", c.Current).Msg("campaign completed")
	return nil
}

type rewardLeg struct {
	investor string
	metadata string
}

func rewardPlan(c *Campaign) []rewardLeg {
	plan := make([]rewardLeg, 0, len(c.investors))
	for _, investor := range c.investors {
		plan = append(plan, rewardLeg{
			investor: investor,
			metadata: fmt.Sprintf("%s reward: %d of %d", c.Name, c.Investments[investor], c.Current),
		})
	}
	return plan
}

func (e *Engine) issueRewards(c *Campaign, plan []rewardLeg) {
	for _, leg := range plan {
		if _, err := e.rewards.MintReward(leg.investor, c.AssetType, leg.metadata); err != nil {
			log.Warn().
				Str("campaign_id", c.ID).
				Str("investor", leg.investor).
				Err(err).
				Msg("reward mint failed")
			continue
		}
		log.Info().
			Str("campaign_id", c.ID).
			Str("investor", leg.investor).
			Msg("campaign reward issued")
	}
}

// Refund pays the caller back exactly their recorded contribution from a
// failed campaign. Each investor can claim once.
func (e *Engine) Refund(caller, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.campaigns[id]
	if !ok {
		return ErrNotFound
	}
	if c.Status != StatusFailed {
		return ErrInvalidState
	}
	amount, ok := c.Investments[caller]
	if !ok || amount == 0 {
		return ErrNoContribution
	}

	_, err := e.ledger.Payout(e.Holding(id), token.Account{Owner: caller}, amount)
	if err != nil {
		return err
	}
	delete(c.Investments, caller)
	log.Info().Str("campaign_id", id).Str("investor", caller).Uint64("amount", amount).Msg("campaign refund")
	return nil
}

// ExpireDue fails every active campaign whose end time has passed and
// returns how many it failed. The daemon's janitor calls this on a timer.
func (e *Engine) ExpireDue() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	n := 0
	for _, c := range e.campaigns {
		if c.Status == StatusActive && !c.settling && now.After(c.EndTime) {
			c.Status = StatusFailed
			n++
			log.Info().Str("campaign_id", c.ID).Msg("campaign failed at end time")
		}
	}
	return n
}

// Get returns a copy of the campaign.
func (e *Engine) Get(id string) (Campaign, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.campaigns[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return copyCampaign(c), nil
}

// All returns copies of every campaign, ordered by id.
func (e *Engine) All() []Campaign {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Campaign, 0, len(e.campaigns))
	for _, c := range e.campaigns {
		out = append(out, copyCampaign(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyCampaign(c *Campaign) Campaign {
	out := *c
	out.Investments = make(map[string]uint64, len(c.Investments))
	for k, v := range c.Investments {
		out.Investments[k] = v
	}
	out.investors = append([]string(nil), c.investors...)
	return out
}
