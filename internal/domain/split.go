package domain

// SplitResult is the outcome of dividing swap proceeds into buckets.
// Invariant: TreasuryAmount + RetainedAmount + ReserveAmount equals the split input.
type SplitResult struct {
	TreasuryAmount         uint64  `json:"treasury_amount"`
	RetainedAmount         uint64  `json:"retained_amount"`
	ReserveAmount          uint64  `json:"reserve_amount"`
	TreasuryTransactionRef string  `json:"treasury_transaction_ref"`
	ReserveConversionRef   *string `json:"reserve_conversion_ref"` // nil when conversion failed or was not needed
}
