package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/urfave/cli/v3"

	"gifportal/config"
)

func runLoadConfig(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	var (
		cfg     config.Config
		loadErr error
	)
	cmd := &cli.Command{
		Name:  "test",
		Flags: append(globalFlags(), &cli.StringFlag{Name: flagListen}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, loadErr = loadConfig(cmd)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"test"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
	return cfg, loadErr
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("GIFPORTAL_NETWORK", "testnet")
	t.Setenv("GIFPORTAL_COMMITMENT", "finalized")

	cfg, err := runLoadConfig(t, "--commitment", "confirmed", "--timeout", "3s", "--listen", ":9999")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Network != "testnet" {
		t.Fatalf("expected network from env, got %q", cfg.Network)
	}
	if cfg.Commitment != rpc.CommitmentConfirmed {
		t.Fatalf("expected flag to win, got %q", cfg.Commitment)
	}
	if cfg.CallTimeout != 3*time.Second || cfg.ListenAddr != ":9999" {
		t.Fatalf("unexpected timeout/listen %s %q", cfg.CallTimeout, cfg.ListenAddr)
	}
}

func TestLoadConfigRejectsUnknownNetwork(t *testing.T) {
	if _, err := runLoadConfig(t, "--network", "moon"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestPromptApprover(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	cases := map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false}
	for input, want := range cases {
		var out strings.Builder
		ok, err := promptApprover(newLineReader(strings.NewReader(input)), &out)(context.Background(), "origin", key)
		if err != nil {
			t.Fatalf("%q: %v", input, err)
		}
		if ok != want {
			t.Fatalf("%q: expected %v, got %v", input, want, ok)
		}
		if !strings.Contains(out.String(), key.String()) {
			t.Fatalf("expected prompt to name the key, got %q", out.String())
		}
	}
}

func TestPromptApproverSharesInput(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	approve := promptApprover(newLineReader(strings.NewReader("y\nn\n")), io.Discard)

	for i, want := range []bool{true, false, false} {
		ok, err := approve(context.Background(), "origin", key)
		if err != nil {
			t.Fatalf("prompt %d: %v", i, err)
		}
		if ok != want {
			t.Fatalf("prompt %d: expected %v, got %v", i, want, ok)
		}
	}
}

func TestPromptApproverHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	approve := promptApprover(newLineReader(pr), io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	ok, err := approve(ctx, "origin", solana.NewWallet().PublicKey())
	if ok || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v %v", ok, err)
	}

	go pw.Write([]byte("yes\n"))
	ok, err = approve(context.Background(), "origin", solana.NewWallet().PublicKey())
	if err != nil || !ok {
		t.Fatalf("expected a later answer to be read, got %v %v", ok, err)
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.log")
	log, err := newLogger("debug", path)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	log.Info("hello")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("expected json log line, got %q", data)
	}

	if _, err := newLogger("loud", path); err == nil {
		t.Fatalf("expected error for bad level")
	}
}
