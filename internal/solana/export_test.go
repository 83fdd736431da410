package solana

// Account encoders for the external client tests.
var (
	EncodeGameConfig   = encodeGameConfig
	EncodePokemonSlots = encodePokemonSlots
	EncodeNftVault     = encodeNftVault
	EncodeTokenAccount = encodeTokenAccount
	TestSeed           = testSeed
)
