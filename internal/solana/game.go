package solana

import (
	"context"

	"pokeball-ops/internal/domain"
)

// GameClient is the operator's view of the game program and its token accounts.
// Write operations block until the transaction is confirmed and return its signature.
type GameClient interface {
	// OperatorPublicKey returns the operator's base58 address.
	OperatorPublicKey() string

	// GameAssetBalance returns the SolBalls balance held by the game account.
	GameAssetBalance(ctx context.Context) (uint64, error)

	// WalletAssetBalance returns the operator's balance of an SPL mint (0 if no account).
	WalletAssetBalance(ctx context.Context, mint string) (uint64, error)

	// WalletNativeBalance returns the operator's balance in lamports.
	WalletNativeBalance(ctx context.Context) (uint64, error)

	// WithdrawFromGame withdraws SolBalls revenue from the game to the operator.
	WithdrawFromGame(ctx context.Context, amount uint64) (string, error)

	// TransferAsset transfers amount of mint from the operator to the wallet "to".
	TransferAsset(ctx context.Context, mint, to string, amount uint64) (string, error)

	// SignAndSubmit signs a serialized transaction as fee payer and submits it.
	SignAndSubmit(ctx context.Context, rawTx []byte) (string, error)

	// VaultSnapshot reads the NFT vault account.
	VaultSnapshot(ctx context.Context) (*domain.VaultSnapshot, error)

	// DepositAssetToVault moves one collectible from the operator into the vault.
	DepositAssetToVault(ctx context.Context, mint string) (string, error)

	// ListWalletCollectibles lists NFT mints held by the operator, minus exclude.
	ListWalletCollectibles(ctx context.Context, exclude map[string]bool) ([]string, error)

	// EntitySlots reads the full spawn table.
	EntitySlots(ctx context.Context) ([]domain.EntitySlot, error)

	// ForceSpawnEntity spawns into an empty slot at (x, y).
	ForceSpawnEntity(ctx context.Context, slot, x, y int) (string, error)

	// RepositionEntity moves an active entity to (x, y).
	RepositionEntity(ctx context.Context, slot, x, y int) (string, error)

	// MaxActiveEntities returns the game's soft cap on active entities.
	MaxActiveEntities(ctx context.Context) (int, error)

	// MintPlaceholderCollectible mints a 0-decimal, supply-1 token to the operator.
	MintPlaceholderCollectible(ctx context.Context) (string, error)
}
