package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
)

func testSeed(b byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = b + byte(i)
	}
	return seed
}

func TestParsePublicKey(t *testing.T) {
	pk, err := ParsePublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if pk.String() != "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA" {
		t.Errorf("round trip mismatch: %s", pk)
	}

	if SystemProgramID != (PublicKey{}) {
		t.Errorf("system program id should be all zeros, got %v", SystemProgramID[:])
	}
	if !SystemProgramID.IsZero() {
		t.Error("expected IsZero for system program id")
	}

	if _, err := ParsePublicKey("abc"); err == nil {
		t.Error("expected error for short key")
	}
	if _, err := ParsePublicKey("0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}
}

func TestKeypairFromBytes(t *testing.T) {
	seed := testSeed(1)
	want := ed25519.NewKeyFromSeed(seed)

	fromSeed, err := KeypairFromBytes(seed)
	if err != nil {
		t.Fatalf("KeypairFromBytes(seed): %v", err)
	}
	fromFull, err := KeypairFromBytes(want)
	if err != nil {
		t.Fatalf("KeypairFromBytes(full): %v", err)
	}
	if fromSeed.PublicKey() != fromFull.PublicKey() {
		t.Error("seed and full secret should give the same public key")
	}
	if fromSeed.PublicKey().String() != base58.Encode(want.Public().(ed25519.PublicKey)) {
		t.Error("unexpected public key")
	}

	bad := append([]byte(nil), want...)
	bad[63] ^= 0xff
	if _, err := KeypairFromBytes(bad); err == nil {
		t.Error("expected error for mismatched public half")
	}
	if _, err := KeypairFromBytes(make([]byte, 10)); err == nil {
		t.Error("expected error for wrong length")
	}
}

func TestParseKeypairBase58(t *testing.T) {
	priv := ed25519.NewKeyFromSeed(testSeed(7))
	kp, err := ParseKeypairBase58(base58.Encode(priv))
	if err != nil {
		t.Fatalf("ParseKeypairBase58: %v", err)
	}

	msg := []byte("hello")
	sig := kp.Sign(msg)
	if !ed25519.Verify(priv.Public().(ed25519.PublicKey), msg, sig) {
		t.Error("signature does not verify")
	}
}

func TestLoadKeypairFile(t *testing.T) {
	priv := ed25519.NewKeyFromSeed(testSeed(3))
	ints := make([]int, len(priv))
	for i, b := range priv {
		ints[i] = int(b)
	}
	data, _ := json.Marshal(ints)

	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write keypair: %v", err)
	}

	kp, err := LoadKeypairFile(path)
	if err != nil {
		t.Fatalf("LoadKeypairFile: %v", err)
	}
	if kp.PublicKey().String() != base58.Encode(priv.Public().(ed25519.PublicKey)) {
		t.Error("unexpected public key")
	}

	if _, err := ParseKeypairJSON([]byte(`[1, 2, 300]`)); err == nil {
		t.Error("expected error for out-of-range byte")
	}
	if _, err := LoadKeypairFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
