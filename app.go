package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"gifportal/config"
	"gifportal/portal"
	"gifportal/solprogram"
	"gifportal/tui"
	"gifportal/wallet"
	"gifportal/webapp"
)

const (
	flagNetwork     = "network"
	flagRPCURL      = "rpc-url"
	flagCommitment  = "commitment"
	flagProgramID   = "program-id"
	flagBaseAccount = "base-account"
	flagWallet      = "wallet"
	flagTrustStore  = "trust-store"
	flagLogLevel    = "log-level"
	flagLogFile     = "log-file"
	flagTimeout     = "timeout"
	flagListen      = "listen"
	flagDemo        = "demo"
)

func makeApp() *cli.Command {
	return &cli.Command{
		Name:  "gifportal",
		Usage: "share GIF links on a Solana program",
		Flags: globalFlags(),

		DefaultCommand: "tui",
		Commands: []*cli.Command{
			{
				Name:  "tui",
				Usage: "open the terminal portal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagLogFile, Usage: "log file, the terminal is busy with the UI"},
				},
				Action: runTUI,
			},
			{
				Name:  "serve",
				Usage: "serve the portal over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagListen, Usage: "listen address"},
					&cli.BoolFlag{Name: flagDemo, Usage: "serve sample GIFs from memory with a throwaway wallet"},
				},
				Action: runServe,
			},
			{
				Name:   "list",
				Usage:  "print the submitted GIF links",
				Action: runList,
			},
			{
				Name:      "add",
				Usage:     "submit a GIF link",
				ArgsUsage: "<link>",
				Action:    runAdd,
			},
			{
				Name:   "init",
				Usage:  "create the base account (once per deployment)",
				Action: runInit,
			},
			{
				Name:  "trust",
				Usage: "manage origins the wallet trusts",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list trusted origins",
						Action: runTrustList,
					},
					{
						Name:      "revoke",
						Usage:     "forget an origin, the current one by default",
						ArgsUsage: "[origin]",
						Action:    runTrustRevoke,
					},
				},
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: flagNetwork, Usage: "devnet, testnet, mainnet-beta or localnet"},
		&cli.StringFlag{Name: flagRPCURL, Usage: "RPC endpoint, derived from the network when empty"},
		&cli.StringFlag{Name: flagCommitment, Usage: "processed, confirmed or finalized"},
		&cli.StringFlag{Name: flagProgramID, Usage: "program id, defaults to the bundled IDL address"},
		&cli.StringFlag{Name: flagBaseAccount, Usage: "key pair file of the base account"},
		&cli.StringFlag{Name: flagWallet, Aliases: []string{"k"}, Usage: "wallet key pair file"},
		&cli.StringFlag{Name: flagTrustStore, Usage: "path of the wallet trust database"},
		&cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn or error"},
		&cli.DurationFlag{Name: flagTimeout, Usage: "timeout for each remote call"},
	}
}

// loadConfig reads the environment, then applies flags the user set.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}

	stringFlags := map[string]*string{
		flagNetwork:     &cfg.Network,
		flagRPCURL:      &cfg.RPCURL,
		flagProgramID:   &cfg.ProgramID,
		flagBaseAccount: &cfg.BaseAccountPath,
		flagWallet:      &cfg.WalletPath,
		flagTrustStore:  &cfg.TrustStorePath,
		flagLogLevel:    &cfg.LogLevel,
		flagLogFile:     &cfg.LogFile,
		flagListen:      &cfg.ListenAddr,
	}
	for name, dst := range stringFlags {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	if cmd.IsSet(flagCommitment) {
		cfg.Commitment = rpc.CommitmentType(cmd.String(flagCommitment))
	}
	if cmd.IsSet(flagTimeout) {
		cfg.CallTimeout = cmd.Duration(flagTimeout)
	}
	return cfg, cfg.Validate()
}

// session is everything a command needs to drive the controller.
type session struct {
	cfg      config.Config
	log      *zap.Logger
	ctrl     *portal.Controller
	trust    *wallet.TrustStore
	origin   string
	explorer string
}

func (s *session) Close() {
	if s.trust != nil {
		s.trust.Close()
	}
	s.log.Sync()
}

type sessionOptions struct {
	logToFile bool
	approve   wallet.Approver
	notifier  portal.Notifier
	demo      bool
}

func newSession(cmd *cli.Command, so sessionOptions) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logPath := "stderr"
	if so.logToFile {
		logPath = cfg.LogFile
	}
	log, err := newLogger(cfg.LogLevel, logPath)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log}

	if so.demo {
		provider, err := wallet.NewEphemeral()
		if err != nil {
			return nil, err
		}
		s.origin = "demo"
		s.ctrl = portal.New(provider,
			portal.MemoryFactory(portal.NewSeededMemoryProgram(portal.SampleLinks...)),
			portal.Options{Origin: s.origin, Logger: log, Notifier: so.notifier},
		)
		log.Info("demo mode, nothing is sent to the network")
		return s, nil
	}

	opts, err := cfg.ProgramOptions(solprogram.DefaultIDL())
	if err != nil {
		return nil, err
	}
	s.origin = cfg.Origin(opts.ProgramID)
	s.explorer = solprogram.ExplorerAddressURL(cfg.Network, opts.BaseAccount.PublicKey().String())

	s.trust, err = wallet.OpenTrustStore(cfg.TrustStorePath)
	if err != nil {
		return nil, err
	}
	provider := wallet.NewKeypairWallet(cfg.WalletPath, s.origin, s.trust, so.approve)
	s.ctrl = portal.New(provider,
		portal.SolanaFactory(cfg.Endpoint(), opts, log),
		portal.Options{
			Origin:         s.origin,
			ExpectedWallet: cfg.ExpectedWallet,
			Logger:         log,
			Notifier:       so.notifier,
		},
	)
	log.Info("portal ready",
		zap.String("endpoint", cfg.Endpoint()),
		zap.Stringer("program", opts.ProgramID),
		zap.Stringer("base_account", opts.BaseAccount.PublicKey()),
		zap.String("commitment", string(cfg.Commitment)),
	)
	return s, nil
}

func stderrNotifier() portal.Notifier {
	return portal.NotifierFunc(func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	})
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd, sessionOptions{logToFile: true, approve: wallet.AlwaysApprove})
	if err != nil {
		return err
	}
	defer s.Close()

	return tui.Run(ctx, s.ctrl, tui.Options{
		Title:       s.cfg.Title,
		Subtitle:    s.cfg.Subtitle,
		Credit:      s.cfg.Credit,
		CreditURL:   s.cfg.CreditURL,
		CallTimeout: s.cfg.CallTimeout,
	})
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd, sessionOptions{
		approve:  promptApprover(stdin, os.Stderr),
		notifier: stderrNotifier(),
		demo:     cmd.Bool(flagDemo),
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if !cmd.Bool(flagDemo) {
		healthCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		if _, err := rpc.New(s.cfg.Endpoint()).GetHealth(healthCtx); err != nil {
			s.log.Warn("rpc health check failed", zap.Error(err))
		}
		cancel()
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	if err := s.ctrl.ProbeExistingConnection(probeCtx); err != nil {
		s.log.Info("no trusted wallet yet, waiting for a connect request", zap.Error(err))
	}
	cancel()

	srv := webapp.New(s.ctrl, webapp.Options{
		Title:       s.cfg.Title,
		Subtitle:    s.cfg.Subtitle,
		Credit:      s.cfg.Credit,
		CreditURL:   s.cfg.CreditURL,
		Explorer:    s.explorer,
		CallTimeout: s.cfg.CallTimeout,
		Logger:      s.log,
	})
	return srv.ListenAndServe(ctx, s.cfg.ListenAddr)
}

// connectCLI reuses a trusted connection and prompts only if there is none.
func connectCLI(ctx context.Context, s *session) error {
	err := s.ctrl.ProbeExistingConnection(ctx)
	if errors.Is(err, wallet.ErrNotTrusted) {
		err = s.ctrl.RequestConnection(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to connect wallet: %w", err)
	}
	return nil
}

func cliSession(ctx context.Context, cmd *cli.Command) (*session, context.Context, context.CancelFunc, error) {
	s, err := newSession(cmd, sessionOptions{
		approve:  promptApprover(stdin, os.Stderr),
		notifier: stderrNotifier(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	if err := connectCLI(callCtx, s); err != nil {
		cancel()
		s.Close()
		return nil, nil, nil, err
	}
	return s, callCtx, cancel, nil
}

func runList(ctx context.Context, cmd *cli.Command) error {
	s, _, cancel, err := cliSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	defer cancel()

	return printScreen(s.ctrl.Screen())
}

func runAdd(ctx context.Context, cmd *cli.Command) error {
	link := cmd.Args().First()
	if link == "" {
		return portal.ErrEmptyLink
	}
	s, ctx, cancel, err := cliSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	defer cancel()

	if err := s.ctrl.AppendEntry(ctx, link); err != nil {
		return errors.New(solprogram.ParseProgramError(err))
	}
	fmt.Println("GIF successfully sent to program:", link)
	return printScreen(s.ctrl.Screen())
}

func runInit(ctx context.Context, cmd *cli.Command) error {
	s, ctx, cancel, err := cliSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	defer cancel()

	if err := s.ctrl.InitializeAccount(ctx); err != nil {
		if errors.Is(err, portal.ErrNotInitializable) {
			return fmt.Errorf("%w (list is %s)", err, s.ctrl.State().List.Kind)
		}
		return errors.New(solprogram.ParseProgramError(err))
	}
	fmt.Println("Created the base account:", s.explorer)
	return nil
}

func printScreen(scr portal.Screen) error {
	switch scr.Kind {
	case portal.ScreenGallery:
		if len(scr.Entries) == 0 {
			fmt.Println("No GIFs yet.")
		}
		for _, e := range scr.Entries {
			fmt.Printf("%d. %s\n", e.Index+1, e.Link)
		}
		return nil
	case portal.ScreenInitialize:
		fmt.Println("The GIF account has not been created yet. Run `gifportal init`.")
		return nil
	case portal.ScreenUnavailable:
		return fmt.Errorf("could not load the GIF list: %s", scr.Reason)
	}
	return fmt.Errorf("unexpected screen %s", scr.Kind)
}

func runTrustList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	trust, err := wallet.OpenTrustStore(cfg.TrustStorePath)
	if err != nil {
		return err
	}
	defer trust.Close()

	grants, err := trust.List()
	if err != nil {
		return err
	}
	for _, g := range grants {
		fmt.Printf("%s\t%s\t%s\n", g.Origin, g.PublicKey, g.GrantedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runTrustRevoke(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	origin := cmd.Args().First()
	if origin == "" {
		programID, err := cfg.ResolveProgramID(solprogram.DefaultIDL())
		if err != nil {
			return err
		}
		origin = cfg.Origin(programID)
	}

	trust, err := wallet.OpenTrustStore(cfg.TrustStorePath)
	if err != nil {
		return err
	}
	defer trust.Close()

	if err := trust.Revoke(origin); err != nil {
		return err
	}
	fmt.Println("Revoked", origin)
	return nil
}
