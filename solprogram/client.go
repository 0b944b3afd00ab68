package solprogram

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"gifportal/wallet"
)

const defaultPollInterval = 500 * time.Millisecond

// RPC is the part of *rpc.Client the program client uses.
type RPC interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetHealth(ctx context.Context) (string, error)
}

// Options binds a client to one program deployment.
type Options struct {
	Network    string
	Commitment rpc.CommitmentType
	ProgramID  solana.PublicKey
	IDL        *IDL
	// BaseAccount is the fixed key pair holding the GIF list. Its public
	// key addresses the account; it co-signs start_stuff_off.
	BaseAccount  wallet.Signer
	PollInterval time.Duration
}

// Client wraps the Solana RPC client for the GIF program, acting on behalf
// of one connected wallet.
type Client struct {
	rpc          RPC
	idl          *IDL
	programID    solana.PublicKey
	baseAccount  wallet.Signer
	user         wallet.Signer
	commitment   rpc.CommitmentType
	network      string
	pollInterval time.Duration
	log          *zap.Logger
}

// NewClient creates a program client. user pays for and signs every
// transaction.
func NewClient(rpcClient RPC, opts Options, user wallet.Signer, log *zap.Logger) (*Client, error) {
	if rpcClient == nil {
		return nil, fmt.Errorf("rpc client is required")
	}
	if opts.BaseAccount == nil {
		return nil, fmt.Errorf("base account is required")
	}
	if user == nil {
		return nil, fmt.Errorf("wallet signer is required")
	}
	if opts.IDL == nil {
		opts.IDL = DefaultIDL()
	}
	if opts.ProgramID.IsZero() {
		pid, err := opts.IDL.ProgramID()
		if err != nil {
			return nil, err
		}
		opts.ProgramID = pid
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentProcessed
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		rpc:          rpcClient,
		idl:          opts.IDL,
		programID:    opts.ProgramID,
		baseAccount:  opts.BaseAccount,
		user:         user,
		commitment:   opts.Commitment,
		network:      opts.Network,
		pollInterval: opts.PollInterval,
		log:          log.With(zap.Stringer("program", opts.ProgramID)),
	}, nil
}

func (c *Client) ProgramID() solana.PublicKey {
	return c.programID
}

func (c *Client) BaseAccount() solana.PublicKey {
	return c.baseAccount.PublicKey()
}

// HealthCheck pings the RPC node.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.rpc.GetHealth(ctx)
	return err
}

// ExplorerURL - Generate explorer URL for a transaction signature
func ExplorerURL(network, signature string) string {
	return withCluster(fmt.Sprintf(explorerTxURL, signature), network)
}

// ExplorerAddressURL - Generate explorer URL for an account
func ExplorerAddressURL(network, address string) string {
	return withCluster(fmt.Sprintf(explorerAddressURL, address), network)
}

func withCluster(url, network string) string {
	switch network {
	case NetworkDevnet, NetworkTestnet:
		return url + "?cluster=" + network
	case NetworkLocalnet:
		return url + "?cluster=custom&customUrl=http%3A%2F%2Flocalhost%3A8899"
	default:
		return url
	}
}
