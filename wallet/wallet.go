// Package wallet provides the signing capability the portal connects to.
//
// A wallet never hands out its private key. Callers get a Connection that
// exposes the public key and a Signer that signs transaction messages on
// request.
package wallet

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrUnavailable = errors.New("wallet not available")
	ErrNotTrusted  = errors.New("origin is not trusted by wallet")
	ErrRejected    = errors.New("connection rejected by user")
)

// Signer signs serialized transaction messages for a single public key.
type Signer interface {
	PublicKey() solana.PublicKey
	SignMessage(ctx context.Context, message []byte) (solana.Signature, error)
}

// Provider is the wallet capability seen by the portal.
type Provider interface {
	// Available reports whether any wallet is present at all.
	Available() bool
	// Name identifies the wallet implementation (the "brand").
	Name() string
	// ConnectTrusted connects without prompting. It fails with
	// ErrNotTrusted unless the origin was approved before.
	ConnectTrusted(ctx context.Context) (Connection, error)
	// ConnectInteractive may prompt the user and records trust on success.
	ConnectInteractive(ctx context.Context) (Connection, error)
}

// Connection is an authorized session with a wallet.
type Connection struct {
	signer Signer
}

func NewConnection(signer Signer) Connection {
	return Connection{signer: signer}
}

func (c Connection) PublicKey() solana.PublicKey {
	if c.signer == nil {
		return solana.PublicKey{}
	}
	return c.signer.PublicKey()
}

func (c Connection) Signer() Signer {
	return c.signer
}

// IsZero reports whether the connection carries no signer.
func (c Connection) IsZero() bool {
	return c.signer == nil
}

// KeySigner signs with an in-memory private key.
type KeySigner struct {
	key solana.PrivateKey
}

func NewKeySigner(key solana.PrivateKey) *KeySigner {
	return &KeySigner{key: key}
}

func (s *KeySigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *KeySigner) SignMessage(_ context.Context, message []byte) (solana.Signature, error) {
	return s.key.Sign(message)
}
