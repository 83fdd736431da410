package domain

// VaultSnapshot is a read-only view of the on-chain NFT vault.
// HeldAssets mirrors the fixed-size on-chain array; entries at or beyond
// CurrentCount are empty strings.
type VaultSnapshot struct {
	CurrentCount int
	MaxCapacity  int
	HeldAssets   []string
}

// SlotsAvailable returns the number of free vault slots (may be <= 0).
func (v *VaultSnapshot) SlotsAvailable() int {
	return v.MaxCapacity - v.CurrentCount
}

// Holds reports whether the vault currently tracks the given asset.
func (v *VaultSnapshot) Holds(assetID string) bool {
	for i := 0; i < v.CurrentCount && i < len(v.HeldAssets); i++ {
		if v.HeldAssets[i] == assetID {
			return true
		}
	}
	return false
}
