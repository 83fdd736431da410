package domain

import "encoding/json"

// RevenueSwapResult describes a completed SolBalls -> USDC swap.
// All amounts are in the smallest indivisible unit of their asset.
type RevenueSwapResult struct {
	AmountSpent      uint64 `json:"amount_spent"`    // source asset (SolBalls) atomic units
	AmountReceived   uint64 `json:"amount_received"` // destination asset (USDC) atomic units
	TransactionRef   string `json:"transaction_ref"` // confirmed swap signature
	RouteDescription string `json:"route_description"`
}

// SwapQuote is a validated quote returned by the swap service.
// Raw keeps the original quote payload, which the swap-build endpoint expects verbatim.
type SwapQuote struct {
	InputMint   string
	OutputMint  string
	InAmount    uint64
	OutAmount   uint64
	SlippageBps int
	RouteLabel  string
	Raw         json.RawMessage
}
