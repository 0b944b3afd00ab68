package solprogram

import (
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/gagliardetto/solana-go"
)

//go:embed idl.json
var defaultIDL []byte

// IDL is the subset of an Anchor interface description the client needs.
type IDL struct {
	Version      string           `json:"version"`
	Name         string           `json:"name"`
	Instructions []IDLInstruction `json:"instructions"`
	Accounts     []IDLTypeDef     `json:"accounts"`
	Types        []IDLTypeDef     `json:"types"`
	Metadata     struct {
		Address string `json:"address"`
	} `json:"metadata"`
}

type IDLInstruction struct {
	Name     string           `json:"name"`
	Accounts []IDLAccountItem `json:"accounts"`
	Args     []IDLField       `json:"args"`
}

type IDLAccountItem struct {
	Name     string `json:"name"`
	IsMut    bool   `json:"isMut"`
	IsSigner bool   `json:"isSigner"`
}

type IDLField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type IDLTypeDef struct {
	Name string `json:"name"`
	Type struct {
		Kind   string     `json:"kind"`
		Fields []IDLField `json:"fields"`
	} `json:"type"`
}

// DefaultIDL returns the IDL bundled with the binary.
func DefaultIDL() *IDL {
	idl, err := ParseIDL(defaultIDL)
	if err != nil {
		panic(fmt.Sprintf("embedded idl: %v", err))
	}
	return idl
}

// ParseIDL decodes an IDL document and checks the instructions the portal
// relies on are present.
func ParseIDL(data []byte) (*IDL, error) {
	var idl IDL
	if err := json.Unmarshal(data, &idl); err != nil {
		return nil, fmt.Errorf("failed to decode idl: %w", err)
	}
	for _, name := range []string{InstructionStartStuffOff, InstructionAddGif} {
		if _, ok := idl.Instruction(name); !ok {
			return nil, fmt.Errorf("idl %q has no %s instruction", idl.Name, name)
		}
	}
	return &idl, nil
}

// ProgramID returns metadata.address.
func (idl *IDL) ProgramID() (solana.PublicKey, error) {
	if idl.Metadata.Address == "" {
		return solana.PublicKey{}, fmt.Errorf("idl %q has no program address", idl.Name)
	}
	pk, err := solana.PublicKeyFromBase58(idl.Metadata.Address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program address: %w", err)
	}
	return pk, nil
}

func (idl *IDL) Instruction(name string) (*IDLInstruction, bool) {
	for i := range idl.Instructions {
		if idl.Instructions[i].Name == name {
			return &idl.Instructions[i], true
		}
	}
	return nil, false
}

// AccountMetas orders and flags accounts as the IDL declares them for the
// instruction.
func (ix *IDLInstruction) AccountMetas(accounts map[string]solana.PublicKey) (solana.AccountMetaSlice, error) {
	metas := make(solana.AccountMetaSlice, 0, len(ix.Accounts))
	for _, item := range ix.Accounts {
		pk, ok := accounts[item.Name]
		if !ok {
			return nil, fmt.Errorf("instruction %s: missing account %s", ix.Name, item.Name)
		}
		meta := solana.Meta(pk)
		if item.IsMut {
			meta = meta.WRITE()
		}
		if item.IsSigner {
			meta = meta.SIGNER()
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Anchor uses sha256("global:<snake_case_name>")[:8]
func InstructionDiscriminator(name string) [8]byte {
	return sighash("global", toSnakeCase(name))
}

// Anchor uses sha256("account:<AccountName>")[:8]
func AccountDiscriminator(name string) [8]byte {
	return sighash("account", name)
}

func sighash(namespace, name string) [8]byte {
	hash := sha256.Sum256([]byte(namespace + ":" + name))
	var disc [8]byte
	copy(disc[:], hash[:8])
	return disc
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
