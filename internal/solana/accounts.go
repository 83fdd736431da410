package solana

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"pokeball-ops/internal/domain"
)

// Program limits mirrored from the on-chain program.
const (
	MaxEntitySlots = 20
	MaxVaultSize   = 20
	MaxCoordinate  = 999
)

// Account sizes including the 8-byte discriminator.
const (
	gameConfigSize   = 8 + 32*4 + 8*4 + 4 + 1 + 8 + 8 + 1 + 8 + 1
	slotSize         = 1 + 8 + 2 + 2 + 1 + 8
	pokemonSlotsSize = 8 + slotSize*MaxEntitySlots + 1 + 1
	nftVaultSize     = 8 + 32 + 32*MaxVaultSize + 1 + 1 + 1
	tokenAccountSize = 165
)

// ErrAccountNotFound is returned when a required account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// GameConfig is the decoded global configuration account.
type GameConfig struct {
	Authority        PublicKey
	Treasury         PublicKey
	SolBallsMint     PublicKey
	USDCMint         PublicKey
	BallPrices       [4]uint64
	CatchRates       [4]uint8
	MaxActivePokemon uint8
	PokemonIDCounter uint64
	TotalRevenue     uint64
	IsInitialized    bool
	VRFCounter       uint64
	Bump             uint8
}

// PokemonSlots is the decoded spawn table.
type PokemonSlots struct {
	Slots       []domain.EntitySlot
	ActiveCount int
	Bump        uint8
}

// borshReader reads little-endian fields and remembers the first short read.
type borshReader struct {
	b   []byte
	off int
	err error
}

func (r *borshReader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if r.off+n > len(r.b) {
		r.err = fmt.Errorf("account data truncated at offset %d", r.off)
		return make([]byte, n)
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *borshReader) u8() uint8     { return r.take(1)[0] }
func (r *borshReader) boolean() bool { return r.u8() != 0 }
func (r *borshReader) u16() uint16   { return binary.LittleEndian.Uint16(r.take(2)) }
func (r *borshReader) u64() uint64   { return binary.LittleEndian.Uint64(r.take(8)) }
func (r *borshReader) i64() int64    { return int64(r.u64()) }
func (r *borshReader) pubkey() PublicKey {
	var pk PublicKey
	copy(pk[:], r.take(PublicKeyLength))
	return pk
}

func newAnchorReader(data []byte, account string, minSize int) (*borshReader, error) {
	if len(data) < minSize {
		return nil, fmt.Errorf("%s: expected at least %d bytes, got %d", account, minSize, len(data))
	}
	if !bytes.Equal(data[:8], accountDiscriminator(account)) {
		return nil, fmt.Errorf("%s: discriminator mismatch", account)
	}
	return &borshReader{b: data, off: 8}, nil
}

// DecodeGameConfig decodes a GameConfig account.
func DecodeGameConfig(data []byte) (*GameConfig, error) {
	r, err := newAnchorReader(data, "GameConfig", gameConfigSize)
	if err != nil {
		return nil, err
	}
	gc := &GameConfig{
		Authority:    r.pubkey(),
		Treasury:     r.pubkey(),
		SolBallsMint: r.pubkey(),
		USDCMint:     r.pubkey(),
	}
	for i := range gc.BallPrices {
		gc.BallPrices[i] = r.u64()
	}
	for i := range gc.CatchRates {
		gc.CatchRates[i] = r.u8()
	}
	gc.MaxActivePokemon = r.u8()
	gc.PokemonIDCounter = r.u64()
	gc.TotalRevenue = r.u64()
	gc.IsInitialized = r.boolean()
	gc.VRFCounter = r.u64()
	gc.Bump = r.u8()
	return gc, r.err
}

// DecodePokemonSlots decodes the spawn table account.
func DecodePokemonSlots(data []byte) (*PokemonSlots, error) {
	r, err := newAnchorReader(data, "PokemonSlots", pokemonSlotsSize)
	if err != nil {
		return nil, err
	}
	ps := &PokemonSlots{Slots: make([]domain.EntitySlot, MaxEntitySlots)}
	for i := range ps.Slots {
		active := r.boolean()
		id := r.u64()
		x := r.u16()
		y := r.u16()
		attempts := r.u8()
		_ = r.i64() // spawn timestamp
		ps.Slots[i] = domain.EntitySlot{
			Index:        i,
			ID:           id,
			X:            int(x),
			Y:            int(y),
			IsActive:     active,
			AttemptCount: int(attempts),
		}
	}
	ps.ActiveCount = int(r.u8())
	ps.Bump = r.u8()
	return ps, r.err
}

// DecodeNftVault decodes the vault account into a snapshot.
func DecodeNftVault(data []byte) (*domain.VaultSnapshot, error) {
	r, err := newAnchorReader(data, "NftVault", nftVaultSize)
	if err != nil {
		return nil, err
	}
	_ = r.pubkey() // authority
	mints := make([]PublicKey, MaxVaultSize)
	for i := range mints {
		mints[i] = r.pubkey()
	}
	count := int(r.u8())
	maxSize := int(r.u8())
	if r.err != nil {
		return nil, r.err
	}
	if count > MaxVaultSize {
		return nil, fmt.Errorf("NftVault: count %d exceeds %d", count, MaxVaultSize)
	}

	snap := &domain.VaultSnapshot{
		CurrentCount: count,
		MaxCapacity:  maxSize,
		HeldAssets:   make([]string, MaxVaultSize),
	}
	for i := 0; i < count; i++ {
		snap.HeldAssets[i] = mints[i].String()
	}
	return snap, nil
}

// DecodeTokenAmount returns the amount field of a token account.
// Layout: mint(32) | owner(32) | amount(8) | ...
func DecodeTokenAmount(data []byte) (uint64, error) {
	if len(data) < tokenAccountSize {
		return 0, fmt.Errorf("token account data too short: %d", len(data))
	}
	return binary.LittleEndian.Uint64(data[64:72]), nil
}
