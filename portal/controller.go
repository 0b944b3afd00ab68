// Package portal holds the view controller of the GIF portal: wallet
// connection, the remote list, and the screen derived from them.
package portal

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gifportal/solprogram"
	"gifportal/wallet"
)

var (
	ErrEmptyLink        = errors.New("no gif link given")
	ErrNotConnected     = errors.New("wallet not connected")
	ErrNotInitializable = errors.New("base account is not known to be missing")
)

const (
	NoticeWalletMissing = "Solana wallet not found! Create a keypair with solana-keygen."
	NoticeEmptyLink     = "No gif link given!"
)

// Notifier receives user-facing alerts.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

type Options struct {
	// Origin identifies this portal to the wallet, for logging.
	Origin string
	// ExpectedWallet, when set, limits trusted reconnects on load to the
	// wallet with that name.
	ExpectedWallet string
	Logger         *zap.Logger
	Notifier       Notifier
}

// Controller is safe for use from multiple goroutines. Remote calls run
// without holding the lock.
type Controller struct {
	provider wallet.Provider
	factory  ClientFactory
	opts     Options
	log      *zap.Logger

	mu       sync.Mutex
	conn     wallet.Connection
	list     ListState
	draft    string
	notice   string
	fetchSeq uint64
}

func New(provider wallet.Provider, factory ClientFactory, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Origin != "" {
		log = log.With(zap.String("origin", opts.Origin))
	}
	return &Controller{
		provider: provider,
		factory:  factory,
		opts:     opts,
		log:      log,
	}
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.list
	list.Entries = slices.Clone(list.Entries)
	return State{
		Wallet: c.conn.PublicKey(),
		List:   list,
		Draft:  c.draft,
		Notice: c.notice,
	}
}

// Screen renders the current state.
func (c *Controller) Screen() Screen {
	return Render(c.State())
}

func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// ProbeExistingConnection reconnects without prompting if the wallet already
// trusts this portal, then fetches the list. The returned error is for
// callers that need one; the screens only reflect the resulting state.
func (c *Controller) ProbeExistingConnection(ctx context.Context) error {
	if c.provider == nil || !c.provider.Available() {
		c.alert(NoticeWalletMissing)
		return wallet.ErrUnavailable
	}
	if want := c.opts.ExpectedWallet; want != "" && c.provider.Name() != want {
		c.log.Info("wallet found but not the expected one",
			zap.String("wallet", c.provider.Name()),
			zap.String("expected", want),
		)
		return wallet.ErrUnavailable
	}
	c.log.Info("wallet found", zap.String("wallet", c.provider.Name()))

	conn, err := c.provider.ConnectTrusted(ctx)
	if err != nil {
		c.log.Info("trusted reconnect failed", zap.Error(err))
		return err
	}
	c.connected(ctx, conn)
	return nil
}

// RequestConnection connects interactively, then fetches the list.
func (c *Controller) RequestConnection(ctx context.Context) error {
	if c.provider == nil || !c.provider.Available() {
		c.alert(NoticeWalletMissing)
		return wallet.ErrUnavailable
	}
	conn, err := c.provider.ConnectInteractive(ctx)
	if err != nil {
		c.log.Warn("wallet connection failed", zap.Error(err))
		return err
	}
	c.connected(ctx, conn)
	return nil
}

func (c *Controller) connected(ctx context.Context, conn wallet.Connection) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.log.Info("connected", zap.Stringer("wallet", conn.PublicKey()))
	c.FetchList(ctx)
}

// FetchList reads the base account and stores the outcome. A result that
// arrives after a newer fetch started is dropped.
func (c *Controller) FetchList(ctx context.Context) ListState {
	c.mu.Lock()
	conn := c.conn
	c.fetchSeq++
	seq := c.fetchSeq
	c.mu.Unlock()

	if conn.IsZero() {
		return ListState{Kind: ListUnknown}
	}

	next := c.fetch(ctx, conn)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.fetchSeq {
		c.log.Debug("dropping stale list fetch", zap.Uint64("seq", seq), zap.Uint64("latest", c.fetchSeq))
		return next
	}
	c.list = next
	return next
}

func (c *Controller) fetch(ctx context.Context, conn wallet.Connection) ListState {
	program, err := c.factory(ctx, conn)
	if err != nil {
		c.log.Error("failed to create program client", zap.Error(err))
		return ListState{Kind: ListUnavailable, Err: err}
	}

	acct, err := program.FetchBaseAccount(ctx)
	switch {
	case errors.Is(err, solprogram.ErrAccountNotFound):
		c.log.Info("base account not initialized")
		return ListState{Kind: ListNotFound}
	case err != nil:
		c.log.Warn("failed to fetch gif list", zap.Error(err))
		return ListState{Kind: ListUnavailable, Err: err}
	}

	c.log.Debug("got the account", zap.Uint64("total_gifs", acct.TotalGifs))
	return loaded(acct.Links())
}

// Reload invalidates the list and fetches it again.
func (c *Controller) Reload(ctx context.Context) ListState {
	c.mu.Lock()
	c.list = ListState{Kind: ListUnknown}
	c.mu.Unlock()
	return c.FetchList(ctx)
}

// AppendEntry submits link and reloads the list. The draft is cleared only
// after a successful submit.
func (c *Controller) AppendEntry(ctx context.Context, link string) error {
	if strings.TrimSpace(link) == "" {
		c.setNotice(NoticeEmptyLink)
		c.log.Debug("no gif link given")
		return ErrEmptyLink
	}

	conn, ok := c.session()
	if !ok {
		return ErrNotConnected
	}
	log := c.log.With(zap.String("op_id", uuid.NewString()), zap.String("op", "add_gif"))
	log.Info("sending gif", zap.String("link", link))

	program, err := c.factory(ctx, conn)
	if err != nil {
		return c.writeFailed(log, "Failed to send GIF", err)
	}
	res, err := program.AddGif(ctx, link)
	c.Reload(ctx)
	if err != nil {
		return c.writeFailed(log, "Failed to send GIF", err)
	}

	log.Info("gif sent", transactionFields(res)...)
	c.mu.Lock()
	c.draft = ""
	c.notice = ""
	c.mu.Unlock()
	return nil
}

// InitializeAccount creates the base account. It is only allowed while the
// list is known to be missing.
func (c *Controller) InitializeAccount(ctx context.Context) error {
	c.mu.Lock()
	conn, kind := c.conn, c.list.Kind
	c.mu.Unlock()

	if conn.IsZero() {
		return ErrNotConnected
	}
	if kind != ListNotFound {
		return ErrNotInitializable
	}
	log := c.log.With(zap.String("op_id", uuid.NewString()), zap.String("op", "start_stuff_off"))

	program, err := c.factory(ctx, conn)
	if err != nil {
		return c.writeFailed(log, "Failed to create GIF account", err)
	}
	res, err := program.StartStuffOff(ctx)
	c.Reload(ctx)
	if err != nil {
		return c.writeFailed(log, "Failed to create GIF account", err)
	}

	log.Info("created base account", transactionFields(res)...)
	c.setNotice("")
	return nil
}

func (c *Controller) writeFailed(log *zap.Logger, what string, err error) error {
	log.Error(strings.ToLower(what), zap.Error(err), zap.Strings("program_logs", solprogram.ExtractLogMessages(err)))
	c.alert(what + ": " + solprogram.ParseProgramError(err))
	return err
}

func (c *Controller) session() (wallet.Connection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, !c.conn.IsZero()
}

func (c *Controller) setNotice(msg string) {
	c.mu.Lock()
	c.notice = msg
	c.mu.Unlock()
}

func (c *Controller) alert(msg string) {
	c.setNotice(msg)
	if c.opts.Notifier != nil {
		c.opts.Notifier.Notify(msg)
	}
}

func transactionFields(res *solprogram.TransactionResult) []zap.Field {
	if res == nil {
		return nil
	}
	return []zap.Field{
		zap.String("signature", res.Signature),
		zap.String("status", string(res.Status)),
		zap.String("explorer", res.ExplorerURL),
	}
}
