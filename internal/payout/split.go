package payout

import (
	"math/big"
	"sort"
)

// Split divides total across weights proportionally. Each share is the floor
// of total*weight/sum(weights); the units left over are handed out one at a
// time in largest-remainder order, ties broken by lower index, so the result
// is deterministic and sums to exactly total whenever sum(weights) > 0.
func Split(total uint64, weights []uint64) []uint64 {
	shares := make([]uint64, len(weights))
	sumW := new(big.Int)
	for _, w := range weights {
		sumW.Add(sumW, new(big.Int).SetUint64(w))
	}
	if sumW.Sign() == 0 {
		return shares
	}

	tot := new(big.Int).SetUint64(total)
	type slot struct {
		idx int
		rem *big.Int
	}
	slots := make([]slot, 0, len(weights))
	assigned := uint64(0)
	for i, w := range weights {
		p := new(big.Int).Mul(tot, new(big.Int).SetUint64(w))
		q, r := new(big.Int).QuoRem(p, sumW, new(big.Int))
		shares[i] = q.Uint64()
		assigned += shares[i]
		slots = append(slots, slot{idx: i, rem: r})
	}

	sort.SliceStable(slots, func(a, b int) bool {
		return slots[a].rem.Cmp(slots[b].rem) > 0
	})
	for i := uint64(0); i < total-assigned; i++ {
		shares[slots[i].idx]++
	}
	return shares
}

// Cut returns the floor of pct percent of total.
func Cut(total uint64, pct uint64) uint64 {
	p := new(big.Int).Mul(new(big.Int).SetUint64(total), new(big.Int).SetUint64(pct))
	return p.Div(p, big.NewInt(100)).Uint64()
}
