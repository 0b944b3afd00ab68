package solprogram

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	StartStuffOffDisc = InstructionDiscriminator(InstructionStartStuffOff)
	AddGifDisc        = InstructionDiscriminator(InstructionAddGif)
	BaseAccountDisc   = AccountDiscriminator(AccountBaseAccount)
)

type addGifArgs struct {
	GifLink string
}

// BuildStartStuffOffInstruction builds the one-time base account creation.
// Both the base account and the user must sign.
func BuildStartStuffOffInstruction(
	idl *IDL,
	programID solana.PublicKey,
	baseAccount solana.PublicKey,
	user solana.PublicKey,
) (solana.Instruction, error) {
	return buildInstruction(idl, programID, InstructionStartStuffOff, map[string]solana.PublicKey{
		accBaseAccount:   baseAccount,
		accUser:          user,
		accSystemProgram: SystemProgramID,
	}, nil)
}

// BuildAddGifInstruction builds add_gif(gif_link).
func BuildAddGifInstruction(
	idl *IDL,
	programID solana.PublicKey,
	baseAccount solana.PublicKey,
	link string,
) (solana.Instruction, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(addGifArgs{GifLink: link}); err != nil {
		return nil, fmt.Errorf("failed to encode add_gif args: %w", err)
	}
	return buildInstruction(idl, programID, InstructionAddGif, map[string]solana.PublicKey{
		accBaseAccount: baseAccount,
	}, buf.Bytes())
}

func buildInstruction(
	idl *IDL,
	programID solana.PublicKey,
	name string,
	accounts map[string]solana.PublicKey,
	args []byte,
) (solana.Instruction, error) {
	ix, ok := idl.Instruction(name)
	if !ok {
		return nil, fmt.Errorf("unknown instruction %s", name)
	}
	metas, err := ix.AccountMetas(accounts)
	if err != nil {
		return nil, err
	}

	disc := InstructionDiscriminator(name)
	data := make([]byte, 0, len(disc)+len(args))
	data = append(data, disc[:]...)
	data = append(data, args...)

	return solana.NewInstruction(programID, metas, data), nil
}
