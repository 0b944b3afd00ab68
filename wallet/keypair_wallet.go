package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

const (
	KeypairWalletName   = "keypair-file"
	EphemeralWalletName = "ephemeral"
)

// Approver asks the user whether origin may connect with key.
type Approver func(ctx context.Context, origin string, key solana.PublicKey) (bool, error)

// AlwaysApprove is used where the connect action itself is the user's consent.
func AlwaysApprove(context.Context, string, solana.PublicKey) (bool, error) {
	return true, nil
}

// KeypairWallet is a file-backed wallet, the local equivalent of a browser
// extension holding a solana-keygen keypair.
type KeypairWallet struct {
	path    string
	origin  string
	trust   *TrustStore
	approve Approver
}

// NewKeypairWallet creates a wallet for the keypair at path. trust may be nil,
// in which case trusted reconnects always fail. approve defaults to
// AlwaysApprove.
func NewKeypairWallet(path, origin string, trust *TrustStore, approve Approver) *KeypairWallet {
	if approve == nil {
		approve = AlwaysApprove
	}
	return &KeypairWallet{
		path:    path,
		origin:  origin,
		trust:   trust,
		approve: approve,
	}
}

func (w *KeypairWallet) Available() bool {
	if w.path == "" {
		return false
	}
	info, err := os.Stat(w.path)
	return err == nil && !info.IsDir()
}

func (w *KeypairWallet) Name() string {
	return KeypairWalletName
}

func (w *KeypairWallet) ConnectTrusted(ctx context.Context) (Connection, error) {
	key, err := w.load()
	if err != nil {
		return Connection{}, err
	}
	if w.trust == nil {
		return Connection{}, ErrNotTrusted
	}
	ok, err := w.trust.IsTrusted(w.origin, key.PublicKey())
	if err != nil {
		return Connection{}, fmt.Errorf("failed to check trust: %w", err)
	}
	if !ok {
		return Connection{}, ErrNotTrusted
	}
	return NewConnection(NewKeySigner(key)), nil
}

func (w *KeypairWallet) ConnectInteractive(ctx context.Context) (Connection, error) {
	key, err := w.load()
	if err != nil {
		return Connection{}, err
	}
	ok, err := w.approve(ctx, w.origin, key.PublicKey())
	if err != nil {
		return Connection{}, fmt.Errorf("failed to ask for approval: %w", err)
	}
	if !ok {
		return Connection{}, ErrRejected
	}
	if w.trust != nil {
		if err := w.trust.Trust(w.origin, key.PublicKey()); err != nil {
			return Connection{}, fmt.Errorf("failed to record trust: %w", err)
		}
	}
	return NewConnection(NewKeySigner(key)), nil
}

func (w *KeypairWallet) load() (solana.PrivateKey, error) {
	if !w.Available() {
		return nil, ErrUnavailable
	}
	key, err := LoadKeypairFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	return key, nil
}

// Ephemeral is an in-memory wallet with a random key that trusts every
// origin. It backs demo mode.
type Ephemeral struct {
	key solana.PrivateKey
}

func NewEphemeral() (*Ephemeral, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Ephemeral{key: key}, nil
}

func (e *Ephemeral) Available() bool { return true }

func (e *Ephemeral) Name() string { return EphemeralWalletName }

func (e *Ephemeral) ConnectTrusted(context.Context) (Connection, error) {
	return NewConnection(NewKeySigner(e.key)), nil
}

func (e *Ephemeral) ConnectInteractive(context.Context) (Connection, error) {
	return NewConnection(NewKeySigner(e.key)), nil
}
