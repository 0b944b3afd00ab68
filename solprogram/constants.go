package solprogram

import "github.com/gagliardetto/solana-go"

// Instruction and account names as they appear in the IDL.
const (
	InstructionStartStuffOff = "startStuffOff"
	InstructionAddGif        = "addGif"
	AccountBaseAccount       = "BaseAccount"
)

// Account names used by the instructions above.
const (
	accBaseAccount   = "baseAccount"
	accUser          = "user"
	accSystemProgram = "systemProgram"
)

var SystemProgramID = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")

// Explorer URLs
const (
	explorerTxURL      = "https://explorer.solana.com/tx/%s"
	explorerAddressURL = "https://explorer.solana.com/address/%s"
)

// Networks
const (
	NetworkDevnet   = "devnet"
	NetworkTestnet  = "testnet"
	NetworkMainnet  = "mainnet-beta"
	NetworkLocalnet = "localnet"
)
