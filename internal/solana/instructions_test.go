package solana

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestInstructionDiscriminators(t *testing.T) {
	tests := map[string][]byte{
		"withdraw_revenue":    {58, 241, 152, 184, 104, 150, 169, 119},
		"deposit_nft":         {93, 226, 132, 166, 141, 9, 48, 101},
		"force_spawn_pokemon": {109, 48, 238, 210, 113, 28, 172, 142},
		"reposition_pokemon":  {169, 204, 248, 100, 90, 125, 117, 208},
	}
	for name, want := range tests {
		if got := instructionDiscriminator(name); !bytes.Equal(got, want) {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}

	if got := accountDiscriminator("GameConfig"); !bytes.Equal(got, []byte{45, 146, 146, 33, 170, 69, 96, 133}) {
		t.Errorf("GameConfig account discriminator: got %v", got)
	}
}

func testAccounts(t *testing.T) *GameAccounts {
	t.Helper()
	ga, err := DeriveGameAccounts(MustPublicKey(testProgramID))
	if err != nil {
		t.Fatalf("DeriveGameAccounts: %v", err)
	}
	return ga
}

func TestForceSpawnInstruction(t *testing.T) {
	ga := testAccounts(t)
	authority := key(1)

	ix := ga.ForceSpawnInstruction(authority, 3, 500, 999)

	want := append(instructionDiscriminator("force_spawn_pokemon"), 3, 0xf4, 0x01, 0xe7, 0x03)
	if !bytes.Equal(ix.Data, want) {
		t.Errorf("data: got %v, want %v", ix.Data, want)
	}
	if ix.ProgramID != ga.ProgramID {
		t.Error("wrong program id")
	}
	if len(ix.Accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(ix.Accounts))
	}
	if a := ix.Accounts[0]; a.PublicKey != authority || !a.IsSigner || !a.IsWritable {
		t.Errorf("authority meta: %+v", a)
	}
	if a := ix.Accounts[1]; a.PublicKey != ga.GameConfig || !a.IsWritable {
		t.Errorf("game config must be writable (id counter): %+v", a)
	}
	if a := ix.Accounts[2]; a.PublicKey != ga.PokemonSlots || !a.IsWritable {
		t.Errorf("slots meta: %+v", a)
	}
}

func TestRepositionInstruction(t *testing.T) {
	ga := testAccounts(t)
	ix := ga.RepositionInstruction(key(1), 19, 0, 1)

	want := append(instructionDiscriminator("reposition_pokemon"), 19, 0, 0, 1, 0)
	if !bytes.Equal(ix.Data, want) {
		t.Errorf("data: got %v, want %v", ix.Data, want)
	}
	if ix.Accounts[0].IsWritable || !ix.Accounts[0].IsSigner {
		t.Errorf("authority should be a readonly signer: %+v", ix.Accounts[0])
	}
	if ix.Accounts[1].IsWritable {
		t.Error("game config is readonly for reposition")
	}
}

func TestWithdrawRevenueInstruction(t *testing.T) {
	ga := testAccounts(t)
	ix := ga.WithdrawRevenueInstruction(key(1), key(2), key(3), 199_999_999)

	if !bytes.Equal(ix.Data[:8], instructionDiscriminator("withdraw_revenue")) {
		t.Error("wrong discriminator")
	}
	if got := binary.LittleEndian.Uint64(ix.Data[8:]); got != 199_999_999 {
		t.Errorf("amount: got %d", got)
	}

	wantKeys := []PublicKey{key(1), ga.GameConfig, ga.Treasury, key(2), key(3), TokenProgramID}
	for i, k := range wantKeys {
		if ix.Accounts[i].PublicKey != k {
			t.Errorf("account %d mismatch", i)
		}
	}
}

func TestDepositNftInstruction(t *testing.T) {
	ga := testAccounts(t)
	ix := ga.DepositNftInstruction(key(1), key(2), key(3), key(4))

	if !bytes.Equal(ix.Data, instructionDiscriminator("deposit_nft")) {
		t.Error("deposit_nft takes no arguments")
	}
	if len(ix.Accounts) != 9 {
		t.Fatalf("expected 9 accounts, got %d", len(ix.Accounts))
	}
	if ix.Accounts[2].PublicKey != ga.NftVault || !ix.Accounts[2].IsWritable {
		t.Error("vault must be writable")
	}
	if ix.Accounts[8].PublicKey != SystemProgramID {
		t.Error("system program must be last")
	}
}

func TestTokenInstructions(t *testing.T) {
	transfer := TokenTransferInstruction(key(1), key(2), key(3), 300_000)
	if transfer.Data[0] != 3 || binary.LittleEndian.Uint64(transfer.Data[1:]) != 300_000 {
		t.Errorf("transfer data: %v", transfer.Data)
	}
	if !transfer.Accounts[2].IsSigner {
		t.Error("owner must sign a transfer")
	}

	mintTo := MintToInstruction(key(1), key(2), key(3), 1)
	if mintTo.Data[0] != 7 || binary.LittleEndian.Uint64(mintTo.Data[1:]) != 1 {
		t.Errorf("mint_to data: %v", mintTo.Data)
	}

	initMint := InitializeMintInstruction(key(1), key(5), 0)
	if len(initMint.Data) != 35 || initMint.Data[0] != 20 || initMint.Data[1] != 0 || initMint.Data[34] != 0 {
		t.Errorf("initialize_mint2 data: %v", initMint.Data)
	}

	ata := CreateAssociatedTokenAccountIdempotentInstruction(key(1), key(2), key(3), key(4))
	if ata.ProgramID != AssociatedTokenProgramID || !bytes.Equal(ata.Data, []byte{1}) {
		t.Error("expected idempotent create")
	}

	create := CreateAccountInstruction(key(1), key(2), TokenProgramID, 1_461_600, MintAccountSize)
	if len(create.Data) != 52 {
		t.Fatalf("create_account data length %d", len(create.Data))
	}
	if binary.LittleEndian.Uint64(create.Data[4:]) != 1_461_600 || binary.LittleEndian.Uint64(create.Data[12:]) != 82 {
		t.Errorf("create_account data: %v", create.Data)
	}
	if !bytes.Equal(create.Data[20:], TokenProgramID[:]) {
		t.Error("owner program mismatch")
	}
}
