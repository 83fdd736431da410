package solana

import (
	"encoding/binary"
	"errors"
	"testing"

	"pokeball-ops/internal/domain"
)

func encodeGameConfig(gc *GameConfig) []byte {
	b := append([]byte(nil), accountDiscriminator("GameConfig")...)
	b = append(b, gc.Authority[:]...)
	b = append(b, gc.Treasury[:]...)
	b = append(b, gc.SolBallsMint[:]...)
	b = append(b, gc.USDCMint[:]...)
	for _, p := range gc.BallPrices {
		b = binary.LittleEndian.AppendUint64(b, p)
	}
	b = append(b, gc.CatchRates[:]...)
	b = append(b, gc.MaxActivePokemon)
	b = binary.LittleEndian.AppendUint64(b, gc.PokemonIDCounter)
	b = binary.LittleEndian.AppendUint64(b, gc.TotalRevenue)
	if gc.IsInitialized {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	b = binary.LittleEndian.AppendUint64(b, gc.VRFCounter)
	return append(b, gc.Bump)
}

func encodePokemonSlots(slots []domain.EntitySlot) []byte {
	b := append([]byte(nil), accountDiscriminator("PokemonSlots")...)
	active := 0
	for i := 0; i < MaxEntitySlots; i++ {
		var s domain.EntitySlot
		if i < len(slots) {
			s = slots[i]
		}
		if s.IsActive {
			active++
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		b = binary.LittleEndian.AppendUint64(b, s.ID)
		b = binary.LittleEndian.AppendUint16(b, uint16(s.X))
		b = binary.LittleEndian.AppendUint16(b, uint16(s.Y))
		b = append(b, uint8(s.AttemptCount))
		b = binary.LittleEndian.AppendUint64(b, 1_700_000_000)
	}
	return append(b, uint8(active), 254)
}

func encodeNftVault(mints []PublicKey, maxSize int) []byte {
	b := append([]byte(nil), accountDiscriminator("NftVault")...)
	authority := key(7)
	b = append(b, authority[:]...)
	for i := 0; i < MaxVaultSize; i++ {
		var m PublicKey
		if i < len(mints) {
			m = mints[i]
		}
		b = append(b, m[:]...)
	}
	return append(b, uint8(len(mints)), uint8(maxSize), 253)
}

func encodeTokenAccount(amount uint64) []byte {
	b := make([]byte, tokenAccountSize)
	binary.LittleEndian.PutUint64(b[64:], amount)
	return b
}

func TestAccountSizes(t *testing.T) {
	if gameConfigSize != 199 {
		t.Errorf("GameConfig size: got %d, want 199", gameConfigSize)
	}
	if pokemonSlotsSize != 450 {
		t.Errorf("PokemonSlots size: got %d, want 450", pokemonSlotsSize)
	}
	if nftVaultSize != 683 {
		t.Errorf("NftVault size: got %d, want 683", nftVaultSize)
	}
}

func TestDecodeGameConfig(t *testing.T) {
	want := &GameConfig{
		Authority:        key(1),
		Treasury:         key(2),
		SolBallsMint:     key(3),
		USDCMint:         key(4),
		BallPrices:       [4]uint64{1_000_000, 10_000_000, 25_000_000, 49_900_000},
		CatchRates:       [4]uint8{2, 20, 50, 99},
		MaxActivePokemon: 15,
		PokemonIDCounter: 42,
		TotalRevenue:     123_456,
		IsInitialized:    true,
		VRFCounter:       9,
		Bump:             255,
	}

	data := encodeGameConfig(want)
	if len(data) != gameConfigSize {
		t.Fatalf("encoded size %d, want %d", len(data), gameConfigSize)
	}
	if data[172] != 15 {
		t.Fatalf("max_active_pokemon expected at offset 172")
	}

	got, err := DecodeGameConfig(data)
	if err != nil {
		t.Fatalf("DecodeGameConfig: %v", err)
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodeGameConfig_Errors(t *testing.T) {
	data := encodeGameConfig(&GameConfig{})

	if _, err := DecodeGameConfig(data[:100]); err == nil {
		t.Error("expected error for short data")
	}

	bad := append([]byte(nil), data...)
	bad[0] ^= 0xff
	if _, err := DecodeGameConfig(bad); err == nil {
		t.Error("expected discriminator mismatch")
	}

	// a vault account is not a config account
	if _, err := DecodeGameConfig(encodeNftVault(nil, 20)); err == nil {
		t.Error("expected discriminator mismatch for other account type")
	}
}

func TestDecodePokemonSlots(t *testing.T) {
	data := encodePokemonSlots([]domain.EntitySlot{
		{},
		{IsActive: true, ID: 7, X: 999, Y: 0, AttemptCount: 2},
		{},
		{IsActive: true, ID: 8, X: 500, Y: 501},
	})

	ps, err := DecodePokemonSlots(data)
	if err != nil {
		t.Fatalf("DecodePokemonSlots: %v", err)
	}
	if len(ps.Slots) != MaxEntitySlots {
		t.Fatalf("expected %d slots, got %d", MaxEntitySlots, len(ps.Slots))
	}
	if ps.ActiveCount != 2 || ps.Bump != 254 {
		t.Errorf("unexpected trailer: active=%d bump=%d", ps.ActiveCount, ps.Bump)
	}

	s := ps.Slots[1]
	if !s.IsActive || s.ID != 7 || s.X != 999 || s.Y != 0 || s.AttemptCount != 2 || s.Index != 1 {
		t.Errorf("unexpected slot 1: %+v", s)
	}
	if ps.Slots[3].X != 500 || ps.Slots[3].Y != 501 {
		t.Errorf("unexpected slot 3: %+v", ps.Slots[3])
	}
	if ps.Slots[19].IsActive || ps.Slots[19].Index != 19 {
		t.Errorf("unexpected slot 19: %+v", ps.Slots[19])
	}
}

func TestDecodeNftVault(t *testing.T) {
	m1, m2 := key(11), key(12)
	snap, err := DecodeNftVault(encodeNftVault([]PublicKey{m1, m2}, 20))
	if err != nil {
		t.Fatalf("DecodeNftVault: %v", err)
	}
	if snap.CurrentCount != 2 || snap.MaxCapacity != 20 || snap.SlotsAvailable() != 18 {
		t.Errorf("unexpected counts: %+v", snap)
	}
	if len(snap.HeldAssets) != MaxVaultSize {
		t.Fatalf("expected %d entries, got %d", MaxVaultSize, len(snap.HeldAssets))
	}
	if snap.HeldAssets[0] != m1.String() || snap.HeldAssets[1] != m2.String() || snap.HeldAssets[2] != "" {
		t.Errorf("unexpected held assets: %v", snap.HeldAssets[:3])
	}
	if !snap.Holds(m2.String()) {
		t.Error("expected vault to hold m2")
	}
}

func TestDecodeTokenAmount(t *testing.T) {
	amount, err := DecodeTokenAmount(encodeTokenAccount(5_000_000))
	if err != nil {
		t.Fatalf("DecodeTokenAmount: %v", err)
	}
	if amount != 5_000_000 {
		t.Errorf("got %d", amount)
	}
	if _, err := DecodeTokenAmount(make([]byte, 64)); err == nil {
		t.Error("expected error for short token account")
	}
}

func TestBorshReader_Truncated(t *testing.T) {
	r := &borshReader{b: []byte{1, 2}}
	_ = r.u64()
	if r.err == nil {
		t.Fatal("expected truncation error")
	}
	first := r.err
	_ = r.u8()
	if !errors.Is(r.err, first) {
		t.Error("first error should be kept")
	}
}
