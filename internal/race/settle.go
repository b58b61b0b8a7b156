package race

import (
	"github.com/rs/zerolog/log"

	"xkart/internal/payout"
	"xkart/internal/token"
)

// Prize pool percentages paid to positions 1, 2 and 3. The integer
// remainder of each cut, and the cut of any unoccupied position, stays in
// the race holding account.
var positionCuts = []uint64{50, 30, 20}

type payoutLeg struct {
	to     token.Account
	amount uint64
	kind   string
}

// EndWithWinner completes the race with an admin-declared winner and pays
// the whole bet pool to the bettors who predicted them, proportional to
// stake. With no winning bets every bettor is refunded their stake.
//
// Settlement runs in two phases: the payout plan is computed and the race
// marked settling under the store lock, the transfers run with no lock
// held, and the terminal state commits afterwards. A payout leg that fails
// is logged and skipped; it never rolls back the completed legs or the
// status transition.
func (e *Engine) EndWithWinner(caller, raceID, winner string) error {
	e.mu.Lock()
	r, err := e.settleable(caller, raceID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !hasParticipant(r, winner) {
		e.mu.Unlock()
		return ErrNotParticipant
	}
	legs := betLegs(r, winner)
	r.settling = true
	e.mu.Unlock()

	e.applyLegs(raceID, legs)

	e.commit(r, winner)
	return nil
}

// EndByPositions completes the race using current positions: the winner is
// whoever holds position 1, and the entry-fee pool is split 50/30/20
// across positions 1/2/3. Bets settle against the derived winner under the
// same proportional rule as EndWithWinner.
func (e *Engine) EndByPositions(caller, raceID string) error {
	e.mu.Lock()
	r, err := e.settleable(caller, raceID)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	winner := ""
	legs := make([]payoutLeg, 0, len(positionCuts)+len(r.Bets))
	for pos, pct := range positionCuts {
		p := participantAt(r, pos+1)
		if p == nil {
			continue
		}
		if pos == 0 {
			winner = p.Player
		}
		legs = append(legs, payoutLeg{
			to:     token.Account{Owner: p.Player},
			amount: payout.Cut(r.Pool, pct),
			kind:   "position_prize",
		})
	}
	legs = append(legs, betLegs(r, winner)...)
	r.settling = true
	e.mu.Unlock()

	e.applyLegs(raceID, legs)

	e.commit(r, winner)
	return nil
}

func (e *Engine) settleable(caller, raceID string) (*Race, error) {
	if !e.admins.IsAdmin(caller) {
		return nil, ErrNotAuthorized
	}
	r, ok := e.races[raceID]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != StatusInProgress || r.settling || r.settled {
		return nil, ErrInvalidState
	}
	return r, nil
}

// betLegs builds the bet payouts for a known winner, or stake refunds when
// no bet predicted the winner (including a race that ended with nobody at
// position 1).
func betLegs(r *Race, winner string) []payoutLeg {
	if len(r.Bets) == 0 {
		return nil
	}

	var total uint64
	var winStakes []uint64
	var winIdx []int
	for i, b := range r.Bets {
		total += b.Amount
		if winner != "" && b.Prediction == winner {
			winStakes = append(winStakes, b.Amount)
			winIdx = append(winIdx, i)
		}
	}

	if len(winIdx) == 0 {
		legs := make([]payoutLeg, 0, len(r.Bets))
		for _, b := range r.Bets {
			legs = append(legs, payoutLeg{
				to:     token.Account{Owner: b.Bettor},
				amount: b.Amount,
				kind:   "bet_refund",
			})
		}
		return legs
	}

	shares := payout.Split(total, winStakes)
	legs := make([]payoutLeg, 0, len(winIdx))
	for i, idx := range winIdx {
		legs = append(legs, payoutLeg{
			to:     token.Account{Owner: r.Bets[idx].Bettor},
			amount: shares[i],
			kind:   "winning_bet",
		})
	}
	return legs
}

func (e *Engine) applyLegs(raceID string, legs []payoutLeg) {
	for _, leg := range legs {
		if leg.amount == 0 {
			continue
		}
		_, err := e.ledger.Payout(e.Holding(raceID), leg.to, leg.amount)
		if err != nil {
			log.Warn().
				Str("race_id", raceID).
				Str("kind", leg.kind).
				Str("to", leg.to.Owner).
				Uint64("amount", leg.amount).
				Err(err).
				Msg("race payout failed")
			continue
		}
		log.Info().
			Str("race_id", raceID).
			Str("kind", leg.kind).
			Str("to", leg.to.Owner).
			Uint64("amount", leg.amount).
			Msg("race payout")
	}
}

func (e *Engine) commit(r *Race, winner string) {
	e.mu.Lock()
	r.settling = false
	r.settled = true
	r.Status = StatusCompleted
	r.Winner = winner
	e.mu.Unlock()
	log.Info().Str("race_id", r.ID).Str("winner", winner).Msg("race settled")
}

func participantAt(r *Race, position int) *Participant {
	for i := range r.Participants {
		if r.Participants[i].Position == position {
			return &r.Participants[i]
		}
	}
	return nil
}
