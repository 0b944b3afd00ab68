package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap/zaptest"

	"gifportal/solprogram"
	"gifportal/wallet"
)

func TestSolanaFactory(t *testing.T) {
	base, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("generate base account: %v", err)
	}
	user, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("generate wallet: %v", err)
	}
	factory := SolanaFactory(rpc.LocalNet_RPC, solprogram.Options{
		Network:     solprogram.NetworkLocalnet,
		IDL:         solprogram.DefaultIDL(),
		BaseAccount: wallet.NewKeySigner(base),
	}, zaptest.NewLogger(t))

	if _, err := factory(context.Background(), wallet.Connection{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected for a zero connection, got %v", err)
	}

	conn := wallet.NewConnection(wallet.NewKeySigner(user))
	first, err := factory(context.Background(), conn)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	second, err := factory(context.Background(), conn)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}

	a, ok := first.(*solprogram.Client)
	if !ok {
		t.Fatalf("expected *solprogram.Client, got %T", first)
	}
	b, ok := second.(*solprogram.Client)
	if !ok {
		t.Fatalf("expected *solprogram.Client, got %T", second)
	}
	if a == b {
		t.Fatalf("expected a new client for every call")
	}
	if !a.BaseAccount().Equals(base.PublicKey()) {
		t.Fatalf("expected base account %s, got %s", base.PublicKey(), a.BaseAccount())
	}
}
