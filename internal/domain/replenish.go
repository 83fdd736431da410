package domain

// ReplenishmentResult reports what one replenishment run achieved.
// PacksPurchased and AssetsDeposited are independent counters.
type ReplenishmentResult struct {
	PacksPurchased  int    `json:"packs_purchased"`
	AssetsDeposited int    `json:"assets_deposited"`
	Skipped         bool   `json:"skipped,omitempty"`
	SkipReason      string `json:"skip_reason,omitempty"`
}

// PackState is the lifecycle state of a single gacha pack purchase.
type PackState string

// Pack purchase states, in protocol order.
const (
	PackStateGenerated PackState = "GENERATED"
	PackStateSubmitted PackState = "SUBMITTED"
	PackStateOpened    PackState = "OPENED"
)

// PackPurchase is one purchased pack and the collectible it produced.
type PackPurchase struct {
	PackID       string    `json:"pack_id"`
	AssetID      string    `json:"asset_id"`
	State        PackState `json:"state"`
	PaymentTxRef string    `json:"payment_tx_ref,omitempty"`
}
