package solana

import (
	"crypto/sha256"
	"encoding/binary"
)

// Seeds of the game program's singleton accounts.
var (
	seedGameConfig   = []byte("game_config")
	seedPokemonSlots = []byte("pokemon_slots")
	seedNftVault     = []byte("nft_vault")
	seedTreasury     = []byte("treasury")
)

// Token program sizes.
const (
	MintAccountSize = 82
)

// instructionDiscriminator is the 8-byte selector of an Anchor instruction.
func instructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

// accountDiscriminator is the 8-byte prefix of an Anchor account.
func accountDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:8]
}

// GameAccounts holds the program-derived addresses of the game program.
type GameAccounts struct {
	ProgramID    PublicKey
	GameConfig   PublicKey
	PokemonSlots PublicKey
	NftVault     PublicKey
	Treasury     PublicKey
}

// DeriveGameAccounts derives all singleton PDAs for programID.
func DeriveGameAccounts(programID PublicKey) (*GameAccounts, error) {
	ga := &GameAccounts{ProgramID: programID}
	for _, d := range []struct {
		seed []byte
		dst  *PublicKey
	}{
		{seedGameConfig, &ga.GameConfig},
		{seedPokemonSlots, &ga.PokemonSlots},
		{seedNftVault, &ga.NftVault},
		{seedTreasury, &ga.Treasury},
	} {
		pk, _, err := FindProgramAddress([][]byte{d.seed}, programID)
		if err != nil {
			return nil, err
		}
		*d.dst = pk
	}
	return ga, nil
}

// WithdrawRevenueInstruction moves amount of the game token from the game's
// token account to the authority's.
func (ga *GameAccounts) WithdrawRevenueInstruction(authority, gameTokenAccount, authorityTokenAccount PublicKey, amount uint64) Instruction {
	data := append(instructionDiscriminator("withdraw_revenue"), u64le(amount)...)
	return Instruction{
		ProgramID: ga.ProgramID,
		Accounts: []AccountMeta{
			{PublicKey: authority, IsSigner: true, IsWritable: true},
			{PublicKey: ga.GameConfig, IsWritable: true},
			{PublicKey: ga.Treasury, IsWritable: true},
			{PublicKey: gameTokenAccount, IsWritable: true},
			{PublicKey: authorityTokenAccount, IsWritable: true},
			{PublicKey: TokenProgramID},
		},
		Data: data,
	}
}

// DepositNftInstruction transfers one collectible from the authority into the vault.
func (ga *GameAccounts) DepositNftInstruction(authority, mint, source, vaultTokenAccount PublicKey) Instruction {
	return Instruction{
		ProgramID: ga.ProgramID,
		Accounts: []AccountMeta{
			{PublicKey: authority, IsSigner: true, IsWritable: true},
			{PublicKey: ga.GameConfig},
			{PublicKey: ga.NftVault, IsWritable: true},
			{PublicKey: mint},
			{PublicKey: source, IsWritable: true},
			{PublicKey: vaultTokenAccount, IsWritable: true},
			{PublicKey: TokenProgramID},
			{PublicKey: AssociatedTokenProgramID},
			{PublicKey: SystemProgramID},
		},
		Data: instructionDiscriminator("deposit_nft"),
	}
}

// ForceSpawnInstruction places a new entity in an empty slot.
func (ga *GameAccounts) ForceSpawnInstruction(authority PublicKey, slot uint8, x, y uint16) Instruction {
	return Instruction{
		ProgramID: ga.ProgramID,
		Accounts: []AccountMeta{
			{PublicKey: authority, IsSigner: true, IsWritable: true},
			{PublicKey: ga.GameConfig, IsWritable: true},
			{PublicKey: ga.PokemonSlots, IsWritable: true},
		},
		Data: slotArgs(instructionDiscriminator("force_spawn_pokemon"), slot, x, y),
	}
}

// RepositionInstruction moves an active entity.
func (ga *GameAccounts) RepositionInstruction(authority PublicKey, slot uint8, x, y uint16) Instruction {
	return Instruction{
		ProgramID: ga.ProgramID,
		Accounts: []AccountMeta{
			{PublicKey: authority, IsSigner: true},
			{PublicKey: ga.GameConfig},
			{PublicKey: ga.PokemonSlots, IsWritable: true},
		},
		Data: slotArgs(instructionDiscriminator("reposition_pokemon"), slot, x, y),
	}
}

func slotArgs(disc []byte, slot uint8, x, y uint16) []byte {
	data := make([]byte, 0, len(disc)+5)
	data = append(data, disc...)
	data = append(data, slot)
	data = binary.LittleEndian.AppendUint16(data, x)
	data = binary.LittleEndian.AppendUint16(data, y)
	return data
}

// TokenTransferInstruction is the token program's Transfer.
func TokenTransferInstruction(source, destination, owner PublicKey, amount uint64) Instruction {
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{PublicKey: source, IsWritable: true},
			{PublicKey: destination, IsWritable: true},
			{PublicKey: owner, IsSigner: true},
		},
		Data: append([]byte{3}, u64le(amount)...),
	}
}

// InitializeMintInstruction is InitializeMint2 with no freeze authority.
func InitializeMintInstruction(mint, authority PublicKey, decimals uint8) Instruction {
	data := []byte{20, decimals}
	data = append(data, authority[:]...)
	data = append(data, 0)
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts:  []AccountMeta{{PublicKey: mint, IsWritable: true}},
		Data:      data,
	}
}

// MintToInstruction mints amount to destination.
func MintToInstruction(mint, destination, authority PublicKey, amount uint64) Instruction {
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{PublicKey: mint, IsWritable: true},
			{PublicKey: destination, IsWritable: true},
			{PublicKey: authority, IsSigner: true},
		},
		Data: append([]byte{7}, u64le(amount)...),
	}
}

// CreateAssociatedTokenAccountIdempotentInstruction creates owner's token
// account for mint if it does not already exist.
func CreateAssociatedTokenAccountIdempotentInstruction(payer, ata, owner, mint PublicKey) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{PublicKey: payer, IsSigner: true, IsWritable: true},
			{PublicKey: ata, IsWritable: true},
			{PublicKey: owner},
			{PublicKey: mint},
			{PublicKey: SystemProgramID},
			{PublicKey: TokenProgramID},
		},
		Data: []byte{1},
	}
}

// CreateAccountInstruction is the system program's CreateAccount.
func CreateAccountInstruction(from, newAccount, owner PublicKey, lamports, space uint64) Instruction {
	data := binary.LittleEndian.AppendUint32(nil, 0)
	data = binary.LittleEndian.AppendUint64(data, lamports)
	data = binary.LittleEndian.AppendUint64(data, space)
	data = append(data, owner[:]...)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PublicKey: from, IsSigner: true, IsWritable: true},
			{PublicKey: newAccount, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}

func u64le(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}
