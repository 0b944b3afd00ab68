// Package config resolves the portal's runtime settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"gifportal/solprogram"
	"gifportal/wallet"
)

const (
	defaultNetwork        = solprogram.NetworkDevnet
	defaultCommitment     = rpc.CommitmentProcessed
	defaultBaseAccount    = "keypair.json"
	defaultListenAddr     = "127.0.0.1:8080"
	defaultLogFile        = "gifportal.log"
	defaultLogLevel       = "info"
	defaultCallTimeout    = 60 * time.Second
	defaultTitle          = "GIF Portal"
	defaultSubtitle       = "Connect your wallet and drop your best GIF into the collection"
	defaultCredit         = "built by @0xJosephRoyal"
	defaultCreditURL      = "https://twitter.com/0xJosephRoyal"
	defaultExpectedWallet = wallet.KeypairWalletName

	envNetwork        = "GIFPORTAL_NETWORK"
	envRPCURL         = "GIFPORTAL_RPC_URL"
	envCommitment     = "GIFPORTAL_COMMITMENT"
	envProgramID      = "GIFPORTAL_PROGRAM_ID"
	envBaseAccount    = "GIFPORTAL_BASE_ACCOUNT"
	envWallet         = "GIFPORTAL_WALLET"
	envTrustStore     = "GIFPORTAL_TRUST_STORE"
	envExpectedWallet = "GIFPORTAL_EXPECTED_WALLET"
	envListenAddr     = "GIFPORTAL_LISTEN_ADDR"
	envPort           = "PORT"
	envLogFile        = "GIFPORTAL_LOG_FILE"
	envLogLevel       = "GIFPORTAL_LOG_LEVEL"
	envCallTimeout    = "GIFPORTAL_CALL_TIMEOUT"
	envTitle          = "GIFPORTAL_TITLE"
	envSubtitle       = "GIFPORTAL_SUBTITLE"
	envCredit         = "GIFPORTAL_CREDIT"
	envCreditURL      = "GIFPORTAL_CREDIT_URL"
)

// Config captures runtime settings for the portal.
type Config struct {
	Network    string
	RPCURL     string
	Commitment rpc.CommitmentType
	// ProgramID overrides the address in the embedded IDL when set.
	ProgramID string
	// BaseAccountPath is the key pair file of the account holding the list.
	BaseAccountPath string
	WalletPath      string
	TrustStorePath  string
	ExpectedWallet  string
	ListenAddr      string
	LogFile         string
	LogLevel        string
	CallTimeout     time.Duration
	Title           string
	Subtitle        string
	// Credit is the footer line, linked to CreditURL when that is set.
	Credit    string
	CreditURL string
}

// FromEnv constructs a Config by reading environment variables with defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Network:         defaultNetwork,
		Commitment:      defaultCommitment,
		BaseAccountPath: defaultBaseAccount,
		WalletPath:      defaultWalletPath(),
		TrustStorePath:  defaultTrustStorePath(),
		ExpectedWallet:  defaultExpectedWallet,
		ListenAddr:      defaultListenAddr,
		LogFile:         defaultLogFile,
		LogLevel:        defaultLogLevel,
		CallTimeout:     defaultCallTimeout,
		Title:           defaultTitle,
		Subtitle:        defaultSubtitle,
		Credit:          defaultCredit,
		CreditURL:       defaultCreditURL,
	}

	setString(&cfg.Network, envNetwork)
	setString(&cfg.RPCURL, envRPCURL)
	if v := env(envCommitment); v != "" {
		cfg.Commitment = rpc.CommitmentType(v)
	}
	setString(&cfg.ProgramID, envProgramID)
	setString(&cfg.BaseAccountPath, envBaseAccount)
	setString(&cfg.WalletPath, envWallet)
	setString(&cfg.TrustStorePath, envTrustStore)
	setString(&cfg.ExpectedWallet, envExpectedWallet)

	if v := env(envListenAddr); v != "" {
		cfg.ListenAddr = v
	} else if port := env(envPort); port != "" {
		cfg.ListenAddr = fmt.Sprintf(":%s", port)
	}

	setString(&cfg.LogFile, envLogFile)
	setString(&cfg.LogLevel, envLogLevel)
	if v := env(envCallTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid %s %q: %w", envCallTimeout, v, err)
		}
		cfg.CallTimeout = d
	}
	setString(&cfg.Title, envTitle)
	setString(&cfg.Subtitle, envSubtitle)
	setString(&cfg.Credit, envCredit)
	setString(&cfg.CreditURL, envCreditURL)

	return cfg, nil
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	switch c.Network {
	case solprogram.NetworkDevnet, solprogram.NetworkTestnet, solprogram.NetworkMainnet, solprogram.NetworkLocalnet:
	default:
		return fmt.Errorf("config: unknown network %q", c.Network)
	}
	switch c.Commitment {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("config: unknown commitment %q", c.Commitment)
	}
	if c.ProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
			return fmt.Errorf("config: invalid program id: %w", err)
		}
	}
	if strings.TrimSpace(c.BaseAccountPath) == "" {
		return fmt.Errorf("config: base account key pair is required")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("config: call timeout must be positive")
	}
	return nil
}

// Endpoint returns the RPC URL, derived from the network unless set.
func (c Config) Endpoint() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	switch c.Network {
	case solprogram.NetworkTestnet:
		return rpc.TestNet_RPC
	case solprogram.NetworkMainnet:
		return rpc.MainNetBeta_RPC
	case solprogram.NetworkLocalnet:
		return rpc.LocalNet_RPC
	default:
		return rpc.DevNet_RPC
	}
}

// ResolveProgramID returns the configured program id, falling back to the
// IDL's address.
func (c Config) ResolveProgramID(idl *solprogram.IDL) (solana.PublicKey, error) {
	if c.ProgramID != "" {
		return solana.PublicKeyFromBase58(c.ProgramID)
	}
	return idl.ProgramID()
}

// Origin identifies this deployment to the wallet trust store.
func (c Config) Origin(programID solana.PublicKey) string {
	return programID.String() + "@" + c.Network
}

// ProgramOptions loads the base account key pair and assembles the program
// client settings.
func (c Config) ProgramOptions(idl *solprogram.IDL) (solprogram.Options, error) {
	programID, err := c.ResolveProgramID(idl)
	if err != nil {
		return solprogram.Options{}, fmt.Errorf("failed to resolve program id: %w", err)
	}
	key, err := wallet.LoadKeypairFile(c.BaseAccountPath)
	if err != nil {
		return solprogram.Options{}, fmt.Errorf("failed to load base account: %w", err)
	}
	return solprogram.Options{
		Network:     c.Network,
		Commitment:  c.Commitment,
		ProgramID:   programID,
		IDL:         idl,
		BaseAccount: wallet.NewKeySigner(key),
	}, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func defaultWalletPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "solana", "id.json")
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

func defaultTrustStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".gifportal", "trust.db")
	}
	return filepath.Join(dir, "gifportal", "trust.db")
}
