// Package replenish buys collectible packs with retained proceeds and
// deposits collectibles into the game's vault.
package replenish

import (
	"context"
	"fmt"
	"io"
	"log"

	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/gacha"
	"pokeball-ops/internal/observability"
)

// Skip reasons reported by the replenishment phase.
const (
	SkipVaultFull        = "vault full"
	SkipBelowMinimum     = "fewer packs affordable than minimum per run"
	SkipNothingToDeposit = "no collectibles to deposit"
)

// Chain is the subset of the chain client used for replenishment.
type Chain interface {
	gacha.Signer
	VaultSnapshot(ctx context.Context) (*domain.VaultSnapshot, error)
	WalletAssetBalance(ctx context.Context, mint string) (uint64, error)
	ListWalletCollectibles(ctx context.Context, exclude map[string]bool) ([]string, error)
	DepositAssetToVault(ctx context.Context, mint string) (string, error)
}

// Options configures Controller.
type Options struct {
	Chain Chain
	Packs gacha.Service

	StableMint     string   // pays for packs (USDC)
	ExcludeMints   []string // fungible mints never deposited
	PackCost       uint64   // atomic stable units per pack
	MinPacksPerRun int
	MaxVaultSize   int // overrides the on-chain capacity when > 0

	Logger *log.Logger
}

// Controller runs the replenishment phase.
type Controller struct {
	chain Chain
	packs gacha.Service

	stableMint     string
	excludeMints   []string
	packCost       uint64
	minPacksPerRun int
	maxVaultSize   int

	logger *log.Logger
}

// New creates a Controller.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	minPacks := opts.MinPacksPerRun
	if minPacks < 1 {
		minPacks = 1
	}
	return &Controller{
		chain:          opts.Chain,
		packs:          opts.Packs,
		stableMint:     opts.StableMint,
		excludeMints:   opts.ExcludeMints,
		packCost:       opts.PackCost,
		minPacksPerRun: minPacks,
		maxVaultSize:   opts.MaxVaultSize,
		logger:         logger,
	}
}

// Run reads the vault, buys up to the minimum batch of packs it can afford and
// fit, then deposits any undeposited collectibles from the operator wallet.
// Pack and deposit failures are isolated per item. Read failures are returned.
func (c *Controller) Run(ctx context.Context) (*domain.ReplenishmentResult, error) {
	vault, err := c.chain.VaultSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}

	capacity := vault.MaxCapacity
	if c.maxVaultSize > 0 && c.maxVaultSize < capacity {
		capacity = c.maxVaultSize
	}
	observability.UpdateVaultFill(vault.CurrentCount)
	slotsAvailable := capacity - vault.CurrentCount
	if slotsAvailable <= 0 {
		c.logger.Printf("Vault full (%d/%d), skipping replenishment", vault.CurrentCount, capacity)
		return &domain.ReplenishmentResult{Skipped: true, SkipReason: SkipVaultFull}, nil
	}

	result := &domain.ReplenishmentResult{}

	balance, err := c.chain.WalletAssetBalance(ctx, c.stableMint)
	if err != nil {
		return nil, fmt.Errorf("read stable balance: %w", err)
	}

	packsToBuy := PacksToBuy(balance, c.packCost, slotsAvailable, c.minPacksPerRun)
	if packsToBuy < c.minPacksPerRun {
		c.logger.Printf("Can buy %d packs (balance %s, cost %s, slots %d), minimum is %d; skipping purchase",
			packsToBuy,
			domain.FormatUnits(balance, domain.USDCDecimals),
			domain.FormatUnits(c.packCost, domain.USDCDecimals),
			slotsAvailable, c.minPacksPerRun)
		result.Skipped = true
		result.SkipReason = SkipBelowMinimum
	} else {
		c.logger.Printf("Purchasing %d packs", packsToBuy)
		purchased := gacha.PurchasePacks(ctx, c.packs, c.chain, packsToBuy, c.logger)
		result.PacksPurchased = len(purchased)
	}

	result.AssetsDeposited = c.depositPending(ctx, vault, slotsAvailable)
	if result.AssetsDeposited > 0 {
		result.Skipped = false
		result.SkipReason = ""
	}

	return result, nil
}

// PacksToBuy is min(balance/packCost, slotsAvailable, minPacksPerRun).
// A zero pack cost buys nothing.
func PacksToBuy(balance, packCost uint64, slotsAvailable, minPacksPerRun int) int {
	if packCost == 0 || slotsAvailable <= 0 || minPacksPerRun <= 0 {
		return 0
	}
	n := slotsAvailable
	if minPacksPerRun < n {
		n = minPacksPerRun
	}
	if affordable := balance / packCost; affordable < uint64(n) {
		n = int(affordable)
	}
	return n
}

// depositPending deposits up to limit collectibles not yet in the vault.
// Returns the number deposited.
func (c *Controller) depositPending(ctx context.Context, vault *domain.VaultSnapshot, limit int) int {
	exclude := make(map[string]bool, len(c.excludeMints)+vault.CurrentCount)
	for _, m := range c.excludeMints {
		if m != "" {
			exclude[m] = true
		}
	}
	for _, m := range vault.HeldAssets {
		if m != "" {
			exclude[m] = true
		}
	}

	candidates, err := c.chain.ListWalletCollectibles(ctx, exclude)
	if err != nil {
		c.logger.Printf("List wallet collectibles failed: %v", err)
		return 0
	}
	if len(candidates) == 0 {
		return 0
	}
	if len(candidates) > limit {
		c.logger.Printf("Found %d collectibles, depositing %d (vault slots available)", len(candidates), limit)
		candidates = candidates[:limit]
	}

	deposited := 0
	for _, mint := range candidates {
		if ctx.Err() != nil {
			break
		}
		sig, err := c.chain.DepositAssetToVault(ctx, mint)
		if err != nil {
			c.logger.Printf("Deposit %s failed: %v", mint, err)
			continue
		}
		c.logger.Printf("Deposited %s (%s)", mint, sig)
		deposited++
	}
	return deposited
}
