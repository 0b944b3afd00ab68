package solprogram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"gifportal/wallet"
)

// FetchBaseAccount reads the GIF list. A missing account is reported as
// ErrAccountNotFound; every other failure is returned wrapped.
func (c *Client) FetchBaseAccount(ctx context.Context) (*BaseAccount, error) {
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, c.BaseAccount(), &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get base account: %w", err)
	}
	if out == nil || out.Value == nil {
		return nil, ErrAccountNotFound
	}
	if !out.Value.Owner.Equals(c.programID) {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedOwner, out.Value.Owner)
	}

	acct, err := ParseBaseAccount(out.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to parse base account: %w", err)
	}
	return acct, nil
}

// AddGif appends link to the GIF list.
func (c *Client) AddGif(ctx context.Context, link string) (*TransactionResult, error) {
	instruction, err := BuildAddGifInstruction(c.idl, c.programID, c.BaseAccount(), link)
	if err != nil {
		return nil, fmt.Errorf("failed to build instruction: %w", err)
	}
	return c.send(ctx, instruction)
}

// StartStuffOff creates the base account. The base account key pair
// co-signs alongside the wallet.
func (c *Client) StartStuffOff(ctx context.Context) (*TransactionResult, error) {
	instruction, err := BuildStartStuffOffInstruction(c.idl, c.programID, c.BaseAccount(), c.user.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to build instruction: %w", err)
	}
	return c.send(ctx, instruction, c.baseAccount)
}

func (c *Client) send(ctx context.Context, instruction solana.Instruction, cosigners ...wallet.Signer) (*TransactionResult, error) {
	// Get latest blockhash
	latestBlockhash, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	// Build transaction, the wallet pays
	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		latestBlockhash.Value.Blockhash,
		solana.TransactionPayer(c.user.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	// Sign transaction
	if err := SignTransaction(ctx, tx, append([]wallet.Signer{c.user}, cosigners...)...); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	// Send transaction
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	result := &TransactionResult{
		Signature:   sig.String(),
		Status:      StatusPending,
		ExplorerURL: ExplorerURL(c.network, sig.String()),
	}
	c.log.Debug("transaction sent",
		zap.String("signature", result.Signature),
		zap.String("explorer", result.ExplorerURL),
	)

	status, err := c.WaitForConfirmation(ctx, sig)
	if err != nil {
		msg := err.Error()
		result.Status = StatusFailed
		result.Error = &msg
		return result, err
	}
	result.Status = status
	return result, nil
}

// SignTransaction collects a signature from every signer and places it in
// the slot the message assigns to that signer's key.
func SignTransaction(ctx context.Context, tx *solana.Transaction, signers ...wallet.Signer) error {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != required {
		sigs := make([]solana.Signature, required)
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}

	for _, signer := range signers {
		pub := signer.PublicKey()
		idx := -1
		for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
			if tx.Message.AccountKeys[i].Equals(pub) {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("%s is not a required signer", pub)
		}
		sig, err := signer.SignMessage(ctx, message)
		if err != nil {
			return fmt.Errorf("signer %s: %w", pub, err)
		}
		tx.Signatures[idx] = sig
	}

	for i, sig := range tx.Signatures {
		if sig == (solana.Signature{}) {
			return fmt.Errorf("missing signature for %s", tx.Message.AccountKeys[i])
		}
	}
	return nil
}

// WaitForConfirmation polls the signature status until the client's
// commitment level is reached or ctx ends.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature) (TransactionStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && status != nil && len(status.Value) > 0 && status.Value[0] != nil {
			txStatus := status.Value[0]
			if txStatus.Err != nil {
				return StatusFailed, fmt.Errorf("transaction failed: %v", txStatus.Err)
			}
			if reached(txStatus.ConfirmationStatus, c.commitment) {
				return statusOf(txStatus.ConfirmationStatus), nil
			}
		} else if err != nil {
			c.log.Debug("signature status unavailable", zap.Stringer("signature", sig), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return StatusPending, fmt.Errorf("waiting for confirmation of %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func level(c rpc.ConfirmationStatusType) int {
	switch c {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	}
	return 0
}

func reached(got rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentFinalized:
		return level(got) >= 3
	case rpc.CommitmentConfirmed:
		return level(got) >= 2
	default:
		return level(got) >= 1
	}
}

func statusOf(c rpc.ConfirmationStatusType) TransactionStatus {
	switch c {
	case rpc.ConfirmationStatusFinalized:
		return StatusFinalized
	case rpc.ConfirmationStatusConfirmed:
		return StatusConfirmed
	case rpc.ConfirmationStatusProcessed:
		return StatusProcessed
	}
	return StatusPending
}
