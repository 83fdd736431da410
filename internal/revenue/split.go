// Package revenue turns withdrawn game revenue into stable-asset proceeds
// and distributes them across the treasury, reserve and retained buckets.
package revenue

import "math/big"

var hundred = big.NewInt(100)

// Split holds the three bucket amounts for a proceeds total.
type Split struct {
	Treasury uint64
	Retained uint64
	Reserve  uint64
}

// ComputeSplit divides total by percentage. Treasury and reserve are floored;
// retained absorbs every rounding remainder so the buckets always sum to total.
// Percentages are expected in [0, 100] and to leave room for the retained share
// (validated once at startup by the config package).
func ComputeSplit(total uint64, treasuryPercent, reservePercent int) Split {
	treasury := percentOf(total, treasuryPercent)
	reserve := percentOf(total, reservePercent)

	return Split{
		Treasury: treasury,
		Reserve:  reserve,
		Retained: total - treasury - reserve,
	}
}

// percentOf returns floor(amount * percent / 100) without overflowing uint64.
func percentOf(amount uint64, percent int) uint64 {
	if percent <= 0 || amount == 0 {
		return 0
	}
	v := new(big.Int).SetUint64(amount)
	v.Mul(v, big.NewInt(int64(percent)))
	v.Quo(v, hundred)
	return v.Uint64()
}

// ShouldSwap reports whether the game balance reached the swap threshold.
func ShouldSwap(balance, threshold uint64) bool {
	return balance >= threshold
}
