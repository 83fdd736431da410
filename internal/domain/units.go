package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Token decimals for the assets the service moves.
const (
	SolBallsDecimals = 6
	USDCDecimals     = 6
	LamportDecimals  = 9
)

// FormatUnits renders an atomic amount as a human-readable decimal string.
// Used for logging only; transaction paths stay in integer units.
func FormatUnits(amount uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals).StringFixed(decimals)
}
