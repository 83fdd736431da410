package stub

import (
	"context"
	"fmt"
	"sync"

	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/solana"
)

// Call records one invocation of a GameClient method.
type Call struct {
	Method string
	Args   []any
}

// GameClient is an in-memory solana.GameClient for tests.
// State changes mimic the on-chain program closely enough for the pipeline phases.
type GameClient struct {
	mu sync.Mutex

	Operator       string
	GameBalance    uint64
	WalletBalances map[string]uint64
	NativeBalance  uint64
	Vault          domain.VaultSnapshot
	Collectibles   []string
	Slots          []domain.EntitySlot
	MaxActive      int

	// Hook, when set, runs before every method; a non-nil error fails that call.
	// n is the 1-based count of calls to method so far.
	Hook func(method string, n int) error

	calls  []Call
	counts map[string]int
	seq    int
}

// Compile-time interface check.
var _ solana.GameClient = (*GameClient)(nil)

// NewGameClient creates a stub with an empty 20-slot spawn table and vault.
func NewGameClient() *GameClient {
	slots := make([]domain.EntitySlot, 20)
	for i := range slots {
		slots[i].Index = i
	}
	return &GameClient{
		Operator:       "Operator1111111111111111111111111111111111",
		WalletBalances: make(map[string]uint64),
		Vault:          domain.VaultSnapshot{MaxCapacity: 20, HeldAssets: make([]string, 20)},
		Slots:          slots,
		MaxActive:      20,
		counts:         make(map[string]int),
	}
}

// Calls returns a copy of the recorded calls.
func (c *GameClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns how many times method was invoked.
func (c *GameClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[method]
}

// enter records the call and runs the hook. Must be called without c.mu held.
func (c *GameClient) enter(method string, args ...any) error {
	c.mu.Lock()
	c.counts[method]++
	n := c.counts[method]
	c.calls = append(c.calls, Call{Method: method, Args: args})
	hook := c.Hook
	c.mu.Unlock()

	if hook != nil {
		return hook(method, n)
	}
	return nil
}

func (c *GameClient) nextSig(prefix string) string {
	c.seq++
	return fmt.Sprintf("%s-sig-%d", prefix, c.seq)
}

func (c *GameClient) OperatorPublicKey() string {
	return c.Operator
}

func (c *GameClient) GameAssetBalance(_ context.Context) (uint64, error) {
	if err := c.enter("GameAssetBalance"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.GameBalance, nil
}

func (c *GameClient) WalletAssetBalance(_ context.Context, mint string) (uint64, error) {
	if err := c.enter("WalletAssetBalance", mint); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WalletBalances[mint], nil
}

func (c *GameClient) WalletNativeBalance(_ context.Context) (uint64, error) {
	if err := c.enter("WalletNativeBalance"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.NativeBalance, nil
}

func (c *GameClient) WithdrawFromGame(_ context.Context, amount uint64) (string, error) {
	if err := c.enter("WithdrawFromGame", amount); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount == 0 || amount > c.GameBalance {
		return "", fmt.Errorf("insufficient withdrawal amount")
	}
	c.GameBalance -= amount
	return c.nextSig("withdraw"), nil
}

func (c *GameClient) TransferAsset(_ context.Context, mint, to string, amount uint64) (string, error) {
	if err := c.enter("TransferAsset", mint, to, amount); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WalletBalances[mint] >= amount {
		c.WalletBalances[mint] -= amount
	}
	return c.nextSig("transfer"), nil
}

func (c *GameClient) SignAndSubmit(_ context.Context, rawTx []byte) (string, error) {
	if err := c.enter("SignAndSubmit", rawTx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextSig("submit"), nil
}

func (c *GameClient) VaultSnapshot(_ context.Context) (*domain.VaultSnapshot, error) {
	if err := c.enter("VaultSnapshot"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.Vault
	snap.HeldAssets = append([]string(nil), c.Vault.HeldAssets...)
	return &snap, nil
}

func (c *GameClient) DepositAssetToVault(_ context.Context, mint string) (string, error) {
	if err := c.enter("DepositAssetToVault", mint); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Vault.CurrentCount >= c.Vault.MaxCapacity {
		return "", fmt.Errorf("vault full")
	}
	for len(c.Vault.HeldAssets) <= c.Vault.CurrentCount {
		c.Vault.HeldAssets = append(c.Vault.HeldAssets, "")
	}
	c.Vault.HeldAssets[c.Vault.CurrentCount] = mint
	c.Vault.CurrentCount++
	for i, m := range c.Collectibles {
		if m == mint {
			c.Collectibles = append(c.Collectibles[:i], c.Collectibles[i+1:]...)
			break
		}
	}
	return c.nextSig("deposit"), nil
}

func (c *GameClient) ListWalletCollectibles(_ context.Context, exclude map[string]bool) ([]string, error) {
	if err := c.enter("ListWalletCollectibles", exclude); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.Collectibles {
		if !exclude[m] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *GameClient) EntitySlots(_ context.Context) ([]domain.EntitySlot, error) {
	if err := c.enter("EntitySlots"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.EntitySlot(nil), c.Slots...), nil
}

func (c *GameClient) ForceSpawnEntity(_ context.Context, slot, x, y int) (string, error) {
	if err := c.enter("ForceSpawnEntity", slot, x, y); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot < 0 || slot >= len(c.Slots) {
		return "", fmt.Errorf("invalid slot index %d", slot)
	}
	if c.Slots[slot].IsActive {
		return "", fmt.Errorf("slot %d already occupied", slot)
	}
	c.seq++
	c.Slots[slot] = domain.EntitySlot{Index: slot, ID: uint64(c.seq), X: x, Y: y, IsActive: true}
	return fmt.Sprintf("spawn-sig-%d", c.seq), nil
}

func (c *GameClient) RepositionEntity(_ context.Context, slot, x, y int) (string, error) {
	if err := c.enter("RepositionEntity", slot, x, y); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot < 0 || slot >= len(c.Slots) || !c.Slots[slot].IsActive {
		return "", fmt.Errorf("slot %d not active", slot)
	}
	c.Slots[slot].X = x
	c.Slots[slot].Y = y
	c.Slots[slot].AttemptCount = 0
	return c.nextSig("reposition"), nil
}

func (c *GameClient) MaxActiveEntities(_ context.Context) (int, error) {
	if err := c.enter("MaxActiveEntities"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.MaxActive, nil
}

func (c *GameClient) MintPlaceholderCollectible(_ context.Context) (string, error) {
	if err := c.enter("MintPlaceholderCollectible"); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	mint := fmt.Sprintf("placeholder-mint-%d", c.seq)
	c.Collectibles = append(c.Collectibles, mint)
	return mint, nil
}

// SetSlot places an active entity at (x, y) in slot i.
func (c *GameClient) SetSlot(i, x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.Slots[i] = domain.EntitySlot{Index: i, ID: uint64(c.seq), X: x, Y: y, IsActive: true}
}
