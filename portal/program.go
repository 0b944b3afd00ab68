package portal

import (
	"context"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"gifportal/solprogram"
	"gifportal/wallet"
)

// Program is the remote GIF program as seen by the controller.
type Program interface {
	FetchBaseAccount(ctx context.Context) (*solprogram.BaseAccount, error)
	AddGif(ctx context.Context, link string) (*solprogram.TransactionResult, error)
	StartStuffOff(ctx context.Context) (*solprogram.TransactionResult, error)
}

// ClientFactory builds a Program bound to conn's signer. The controller
// calls it once per remote operation.
type ClientFactory func(ctx context.Context, conn wallet.Connection) (Program, error)

// SolanaFactory returns a factory that dials endpoint for every call.
func SolanaFactory(endpoint string, opts solprogram.Options, log *zap.Logger) ClientFactory {
	return func(_ context.Context, conn wallet.Connection) (Program, error) {
		if conn.IsZero() {
			return nil, ErrNotConnected
		}
		client, err := solprogram.NewClient(rpc.New(endpoint), opts, conn.Signer(), log)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
