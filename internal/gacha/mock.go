package gacha

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"pokeball-ops/internal/domain"
)

// Minter mints a placeholder collectible to the operator wallet.
type Minter interface {
	MintPlaceholderCollectible(ctx context.Context) (string, error)
}

// MockService skips the pack service and mints placeholder collectibles
// directly on-chain. Used on devnet where the real service is unavailable.
type MockService struct {
	minter Minter
	logger *log.Logger
	seq    atomic.Uint64
}

// Compile-time interface check.
var _ Service = (*MockService)(nil)

// NewMockService creates a MockService minting through m.
func NewMockService(m Minter, logger *log.Logger) *MockService {
	return &MockService{minter: m, logger: orDiscard(logger)}
}

// PurchasePack mints one placeholder. The signer is unused; the minter
// already acts as the operator.
func (s *MockService) PurchasePack(ctx context.Context, _ Signer) (*domain.PackPurchase, error) {
	packID := fmt.Sprintf("mock-pack-%d", s.seq.Add(1))

	mint, err := s.minter.MintPlaceholderCollectible(ctx)
	if err != nil {
		return nil, &StateError{PackID: packID, State: domain.PackStateGenerated, Err: fmt.Errorf("mint placeholder: %w", err)}
	}
	s.logger.Printf("Minted placeholder collectible %s for %s", mint, packID)

	return &domain.PackPurchase{
		PackID:  packID,
		AssetID: mint,
		State:   domain.PackStateOpened,
	}, nil
}
