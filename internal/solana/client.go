package solana

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"pokeball-ops/internal/domain"
)

// RPC is the subset of HTTPClient used by Client.
type RPC interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	GetTokenAccountsByOwner(ctx context.Context, owner string) ([]TokenAccount, error)
	GetLatestBlockhash(ctx context.Context) (PublicKey, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	SendTransaction(ctx context.Context, rawTx []byte) (string, error)
}

// ClientOptions configures Client.
type ClientOptions struct {
	RPC       RPC
	Confirmer Confirmer
	ProgramID PublicKey
	Operator  *Keypair
	// SolBallsMint is the game token withdrawn as revenue.
	SolBallsMint PublicKey
	Logger       *log.Logger
}

// Client is the operator's GameClient backed by JSON-RPC.
type Client struct {
	rpc       RPC
	confirmer Confirmer
	accounts  *GameAccounts
	operator  *Keypair
	solBalls  PublicKey
	logger    *log.Logger
}

// Compile-time interface check.
var _ GameClient = (*Client)(nil)

// NewClient derives the game's program addresses and returns a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.RPC == nil || opts.Confirmer == nil || opts.Operator == nil {
		return nil, errors.New("solana client: rpc, confirmer and operator are required")
	}
	accounts, err := DeriveGameAccounts(opts.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive game accounts: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		rpc:       opts.RPC,
		confirmer: opts.Confirmer,
		accounts:  accounts,
		operator:  opts.Operator,
		solBalls:  opts.SolBallsMint,
		logger:    logger,
	}, nil
}

// Accounts returns the derived program addresses.
func (c *Client) Accounts() *GameAccounts {
	return c.accounts
}

// OperatorPublicKey returns the operator's base58 address.
func (c *Client) OperatorPublicKey() string {
	return c.operator.PublicKey().String()
}

// GameAssetBalance reads the game's SolBalls token account.
func (c *Client) GameAssetBalance(ctx context.Context) (uint64, error) {
	ata, err := FindAssociatedTokenAddress(c.accounts.GameConfig, c.solBalls)
	if err != nil {
		return 0, err
	}
	info, err := c.rpc.GetAccountInfo(ctx, ata.String())
	if err != nil {
		return 0, fmt.Errorf("get game token account: %w", err)
	}
	if info == nil {
		return 0, fmt.Errorf("game token account %s: %w", ata, ErrAccountNotFound)
	}
	return DecodeTokenAmount(info.Data)
}

// WalletAssetBalance reads the operator's token account for mint; 0 if absent.
func (c *Client) WalletAssetBalance(ctx context.Context, mint string) (uint64, error) {
	mintKey, err := ParsePublicKey(mint)
	if err != nil {
		return 0, err
	}
	ata, err := FindAssociatedTokenAddress(c.operator.PublicKey(), mintKey)
	if err != nil {
		return 0, err
	}
	info, err := c.rpc.GetAccountInfo(ctx, ata.String())
	if err != nil {
		return 0, fmt.Errorf("get token account: %w", err)
	}
	if info == nil {
		return 0, nil
	}
	return DecodeTokenAmount(info.Data)
}

// WalletNativeBalance returns the operator's lamports.
func (c *Client) WalletNativeBalance(ctx context.Context) (uint64, error) {
	return c.rpc.GetBalance(ctx, c.OperatorPublicKey())
}

// WithdrawFromGame withdraws amount of SolBalls to the operator's token account,
// creating it when missing.
func (c *Client) WithdrawFromGame(ctx context.Context, amount uint64) (string, error) {
	op := c.operator.PublicKey()
	gameATA, err := FindAssociatedTokenAddress(c.accounts.GameConfig, c.solBalls)
	if err != nil {
		return "", err
	}
	opATA, err := FindAssociatedTokenAddress(op, c.solBalls)
	if err != nil {
		return "", err
	}
	return c.send(ctx, "withdraw_revenue", []Instruction{
		CreateAssociatedTokenAccountIdempotentInstruction(op, opATA, op, c.solBalls),
		c.accounts.WithdrawRevenueInstruction(op, gameATA, opATA, amount),
	})
}

// TransferAsset transfers amount of mint to the wallet "to", creating its token account when missing.
func (c *Client) TransferAsset(ctx context.Context, mint, to string, amount uint64) (string, error) {
	mintKey, err := ParsePublicKey(mint)
	if err != nil {
		return "", err
	}
	dest, err := ParsePublicKey(to)
	if err != nil {
		return "", err
	}
	op := c.operator.PublicKey()
	srcATA, err := FindAssociatedTokenAddress(op, mintKey)
	if err != nil {
		return "", err
	}
	dstATA, err := FindAssociatedTokenAddress(dest, mintKey)
	if err != nil {
		return "", err
	}
	return c.send(ctx, "transfer", []Instruction{
		CreateAssociatedTokenAccountIdempotentInstruction(op, dstATA, dest, mintKey),
		TokenTransferInstruction(srcATA, dstATA, op, amount),
	})
}

// SignAndSubmit signs a transaction built by an external service and submits it.
func (c *Client) SignAndSubmit(ctx context.Context, rawTx []byte) (string, error) {
	signed, _, err := SignSerialized(rawTx, c.operator)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	return c.submit(ctx, "external", signed)
}

// VaultSnapshot reads the vault account.
func (c *Client) VaultSnapshot(ctx context.Context) (*domain.VaultSnapshot, error) {
	data, err := c.accountData(ctx, c.accounts.NftVault)
	if err != nil {
		return nil, err
	}
	return DecodeNftVault(data)
}

// DepositAssetToVault moves one collectible from the operator into the vault.
func (c *Client) DepositAssetToVault(ctx context.Context, mint string) (string, error) {
	mintKey, err := ParsePublicKey(mint)
	if err != nil {
		return "", err
	}
	op := c.operator.PublicKey()
	source, err := FindAssociatedTokenAddress(op, mintKey)
	if err != nil {
		return "", err
	}
	vaultATA, err := FindAssociatedTokenAddress(c.accounts.NftVault, mintKey)
	if err != nil {
		return "", err
	}
	return c.send(ctx, "deposit_nft", []Instruction{
		c.accounts.DepositNftInstruction(op, mintKey, source, vaultATA),
	})
}

// ListWalletCollectibles returns mints of 0-decimal, balance-1 accounts not in exclude.
func (c *Client) ListWalletCollectibles(ctx context.Context, exclude map[string]bool) ([]string, error) {
	accounts, err := c.rpc.GetTokenAccountsByOwner(ctx, c.OperatorPublicKey())
	if err != nil {
		return nil, fmt.Errorf("list token accounts: %w", err)
	}
	var mints []string
	for _, a := range accounts {
		if a.Decimals != 0 || a.Amount != 1 || exclude[a.Mint] {
			continue
		}
		mints = append(mints, a.Mint)
	}
	return mints, nil
}

// EntitySlots reads the spawn table.
func (c *Client) EntitySlots(ctx context.Context) ([]domain.EntitySlot, error) {
	data, err := c.accountData(ctx, c.accounts.PokemonSlots)
	if err != nil {
		return nil, err
	}
	ps, err := DecodePokemonSlots(data)
	if err != nil {
		return nil, err
	}
	return ps.Slots, nil
}

// ForceSpawnEntity spawns into an empty slot.
func (c *Client) ForceSpawnEntity(ctx context.Context, slot, x, y int) (string, error) {
	if err := validateSlotArgs(slot, x, y); err != nil {
		return "", err
	}
	return c.send(ctx, "force_spawn_pokemon", []Instruction{
		c.accounts.ForceSpawnInstruction(c.operator.PublicKey(), uint8(slot), uint16(x), uint16(y)),
	})
}

// RepositionEntity moves an active entity.
func (c *Client) RepositionEntity(ctx context.Context, slot, x, y int) (string, error) {
	if err := validateSlotArgs(slot, x, y); err != nil {
		return "", err
	}
	return c.send(ctx, "reposition_pokemon", []Instruction{
		c.accounts.RepositionInstruction(c.operator.PublicKey(), uint8(slot), uint16(x), uint16(y)),
	})
}

func validateSlotArgs(slot, x, y int) error {
	if slot < 0 || slot >= MaxEntitySlots {
		return fmt.Errorf("slot index %d out of range [0, %d)", slot, MaxEntitySlots)
	}
	if x < 0 || x > MaxCoordinate || y < 0 || y > MaxCoordinate {
		return fmt.Errorf("coordinate (%d, %d) out of range [0, %d]", x, y, MaxCoordinate)
	}
	return nil
}

// MaxActiveEntities reads the cap from the game config.
func (c *Client) MaxActiveEntities(ctx context.Context) (int, error) {
	data, err := c.accountData(ctx, c.accounts.GameConfig)
	if err != nil {
		return 0, err
	}
	gc, err := DecodeGameConfig(data)
	if err != nil {
		return 0, err
	}
	return int(gc.MaxActivePokemon), nil
}

// MintPlaceholderCollectible creates a new 0-decimal mint with the operator as
// authority and mints one token to the operator.
func (c *Client) MintPlaceholderCollectible(ctx context.Context) (string, error) {
	mint, err := NewKeypair()
	if err != nil {
		return "", err
	}
	rent, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, MintAccountSize)
	if err != nil {
		return "", fmt.Errorf("rent exemption: %w", err)
	}

	op := c.operator.PublicKey()
	mintKey := mint.PublicKey()
	ata, err := FindAssociatedTokenAddress(op, mintKey)
	if err != nil {
		return "", err
	}

	if _, err := c.send(ctx, "mint_placeholder", []Instruction{
		CreateAccountInstruction(op, mintKey, TokenProgramID, rent, MintAccountSize),
		InitializeMintInstruction(mintKey, op, 0),
		CreateAssociatedTokenAccountIdempotentInstruction(op, ata, op, mintKey),
		MintToInstruction(mintKey, ata, op, 1),
	}, mint); err != nil {
		return "", err
	}
	return mintKey.String(), nil
}

func (c *Client) accountData(ctx context.Context, pk PublicKey) ([]byte, error) {
	info, err := c.rpc.GetAccountInfo(ctx, pk.String())
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", pk, err)
	}
	if info == nil {
		return nil, fmt.Errorf("account %s: %w", pk, ErrAccountNotFound)
	}
	return info.Data, nil
}

// send builds, signs, submits and confirms a transaction paid by the operator.
func (c *Client) send(ctx context.Context, label string, instructions []Instruction, extraSigners ...*Keypair) (string, error) {
	blockhash, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: latest blockhash: %w", label, err)
	}
	msg, err := CompileMessage(c.operator.PublicKey(), blockhash, instructions)
	if err != nil {
		return "", fmt.Errorf("%s: %w", label, err)
	}
	raw, _, err := SignMessage(msg, append([]*Keypair{c.operator}, extraSigners...)...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", label, err)
	}
	return c.submit(ctx, label, raw)
}

func (c *Client) submit(ctx context.Context, label string, raw []byte) (string, error) {
	sig, err := c.rpc.SendTransaction(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("%s: send transaction: %w", label, err)
	}
	if err := c.confirmer.Confirm(ctx, sig); err != nil {
		return sig, fmt.Errorf("%s: confirm %s: %w", label, sig, err)
	}
	c.logger.Printf("%s confirmed: %s", label, sig)
	return sig, nil
}
