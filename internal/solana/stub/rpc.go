package stub

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"pokeball-ops/internal/solana"
)

// RPC is an in-memory node implementing solana.RPC and solana.StatusReader.
// Sent transactions are recorded and immediately reported as confirmed.
type RPC struct {
	mu sync.Mutex

	Accounts      map[string]*solana.AccountInfo
	Balances      map[string]uint64
	TokenAccounts map[string][]solana.TokenAccount
	Blockhash     solana.PublicKey
	Rent          uint64

	// SendErr fails every SendTransaction call.
	SendErr error
	// TxErr marks sent transactions as failed on-chain.
	TxErr interface{}

	sent [][]byte
}

// Compile-time interface checks.
var (
	_ solana.RPC          = (*RPC)(nil)
	_ solana.StatusReader = (*RPC)(nil)
)

// NewRPC creates an empty node.
func NewRPC() *RPC {
	return &RPC{
		Accounts:      make(map[string]*solana.AccountInfo),
		Balances:      make(map[string]uint64),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Blockhash:     solana.PublicKey(sha256.Sum256([]byte("blockhash"))),
		Rent:          1_461_600,
	}
}

// SetAccount stores raw account data at pubkey.
func (r *RPC) SetAccount(pubkey solana.PublicKey, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Accounts[pubkey.String()] = &solana.AccountInfo{Data: data, Lamports: 1}
}

// Sent returns the raw transactions submitted so far.
func (r *RPC) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *RPC) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Accounts[pubkey], nil
}

func (r *RPC) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Balances[pubkey], nil
}

func (r *RPC) GetTokenAccountsByOwner(_ context.Context, owner string) ([]solana.TokenAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]solana.TokenAccount(nil), r.TokenAccounts[owner]...), nil
}

func (r *RPC) GetLatestBlockhash(_ context.Context) (solana.PublicKey, error) {
	return r.Blockhash, nil
}

func (r *RPC) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	return r.Rent, nil
}

// SendTransaction records rawTx and returns a deterministic signature id.
func (r *RPC) SendTransaction(_ context.Context, rawTx []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return "", r.SendErr
	}
	r.sent = append(r.sent, append([]byte(nil), rawTx...))
	return fmt.Sprintf("stub-sig-%d", len(r.sent)), nil
}

// GetSignatureStatuses reports every known signature as confirmed (or failed when TxErr is set).
func (r *RPC) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		var n int
		if _, err := fmt.Sscanf(sig, "stub-sig-%d", &n); err != nil || n < 1 || n > len(r.sent) {
			continue
		}
		out[i] = &solana.SignatureStatus{Slot: int64(n), ConfirmationStatus: "confirmed", Err: r.TxErr}
	}
	return out, nil
}
