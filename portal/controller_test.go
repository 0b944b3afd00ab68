package portal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gifportal/solprogram"
	"gifportal/wallet"
)

type fakeProvider struct {
	available      bool
	name           string
	trusted        bool
	interactiveErr error
	signer         wallet.Signer

	trustedCalls     int
	interactiveCalls int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &fakeProvider{available: true, name: "fake", signer: wallet.NewKeySigner(key)}
}

func (p *fakeProvider) Available() bool { return p.available }
func (p *fakeProvider) Name() string    { return p.name }

func (p *fakeProvider) ConnectTrusted(context.Context) (wallet.Connection, error) {
	p.trustedCalls++
	if !p.trusted {
		return wallet.Connection{}, wallet.ErrNotTrusted
	}
	return wallet.NewConnection(p.signer), nil
}

func (p *fakeProvider) ConnectInteractive(context.Context) (wallet.Connection, error) {
	p.interactiveCalls++
	if p.interactiveErr != nil {
		return wallet.Connection{}, p.interactiveErr
	}
	return wallet.NewConnection(p.signer), nil
}

type fakeProgram struct {
	mu        sync.Mutex
	links     []string
	fetchErr  error
	writeErr  error
	fetchHook func(call int)

	fetches   int
	adds      []string
	initCalls int
	// fetchesAtWrite is the fetch count when the last write ran.
	fetchesAtWrite int
}

func (p *fakeProgram) FetchBaseAccount(context.Context) (*solprogram.BaseAccount, error) {
	p.mu.Lock()
	p.fetches++
	call, hook := p.fetches, p.fetchHook
	err := p.fetchErr
	links := append([]string(nil), p.links...)
	p.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	acct := &solprogram.BaseAccount{TotalGifs: uint64(len(links))}
	for _, l := range links {
		acct.GifList = append(acct.GifList, solprogram.ItemStruct{GifLink: l})
	}
	return acct, nil
}

func (p *fakeProgram) AddGif(_ context.Context, link string) (*solprogram.TransactionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adds = append(p.adds, link)
	p.fetchesAtWrite = p.fetches
	if p.writeErr != nil {
		return nil, p.writeErr
	}
	p.links = append(p.links, link)
	return &solprogram.TransactionResult{Signature: "sig", Status: solprogram.StatusProcessed}, nil
}

func (p *fakeProgram) StartStuffOff(context.Context) (*solprogram.TransactionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initCalls++
	if p.writeErr != nil {
		return nil, p.writeErr
	}
	p.fetchErr = nil
	return &solprogram.TransactionResult{Signature: "sig", Status: solprogram.StatusProcessed}, nil
}

type recorder struct{ messages []string }

func (r *recorder) Notify(msg string) { r.messages = append(r.messages, msg) }

type harness struct {
	ctrl      *Controller
	provider  *fakeProvider
	program   *fakeProgram
	notes     *recorder
	logs      *observer.ObservedLogs
	factories int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		provider: newFakeProvider(t),
		program:  &fakeProgram{},
		notes:    &recorder{},
	}
	core, logs := observer.New(zap.DebugLevel)
	h.logs = logs
	factory := func(_ context.Context, conn wallet.Connection) (Program, error) {
		if conn.IsZero() {
			return nil, ErrNotConnected
		}
		h.factories++
		return h.program, nil
	}
	h.ctrl = New(h.provider, factory, Options{
		Origin:   "test",
		Logger:   zap.New(core),
		Notifier: h.notes,
	})
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	if err := h.ctrl.RequestConnection(context.Background()); err != nil {
		t.Fatalf("RequestConnection: %v", err)
	}
}

func TestWalletAbsentAlertsOnceOnLoad(t *testing.T) {
	h := newHarness(t)
	h.provider.available = false

	err := h.ctrl.ProbeExistingConnection(context.Background())
	if !errors.Is(err, wallet.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(h.notes.messages) != 1 || h.notes.messages[0] != NoticeWalletMissing {
		t.Fatalf("expected one wallet-missing alert, got %v", h.notes.messages)
	}
	if got := h.ctrl.Screen().Kind; got != ScreenDisconnected {
		t.Fatalf("expected disconnected screen, got %s", got)
	}
	if h.provider.trustedCalls != 0 || h.program.fetches != 0 {
		t.Fatalf("expected no connect or fetch, got %d/%d", h.provider.trustedCalls, h.program.fetches)
	}
}

func TestTrustedWalletConnectsOnLoadAndFetchesOnce(t *testing.T) {
	h := newHarness(t)
	h.provider.trusted = true
	h.program.links = []string{"a.gif", "b.gif"}

	if err := h.ctrl.ProbeExistingConnection(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
	st := h.ctrl.State()
	if !st.Connected() || !st.Wallet.Equals(h.provider.signer.PublicKey()) {
		t.Fatalf("expected session for %s, got %s", h.provider.signer.PublicKey(), st.Wallet)
	}
	if h.program.fetches != 1 {
		t.Fatalf("expected exactly one fetch, got %d", h.program.fetches)
	}
	if h.provider.interactiveCalls != 0 {
		t.Fatalf("probe must not prompt")
	}
	if len(h.notes.messages) != 0 {
		t.Fatalf("unexpected alerts %v", h.notes.messages)
	}
}

func TestUntrustedProbeLeavesSessionUnset(t *testing.T) {
	h := newHarness(t)

	err := h.ctrl.ProbeExistingConnection(context.Background())
	if !errors.Is(err, wallet.ErrNotTrusted) {
		t.Fatalf("expected ErrNotTrusted, got %v", err)
	}
	if h.ctrl.State().Connected() || h.program.fetches != 0 {
		t.Fatalf("expected no session and no fetch")
	}
	if len(h.notes.messages) != 0 {
		t.Fatalf("a failed reconnect must not alert, got %v", h.notes.messages)
	}
	if h.logs.FilterMessage("trusted reconnect failed").Len() != 1 {
		t.Fatalf("expected failure to be logged")
	}
}

func TestProbeSkipsUnexpectedWallet(t *testing.T) {
	h := newHarness(t)
	h.provider.trusted = true
	h.ctrl.opts.ExpectedWallet = "phantom"

	_ = h.ctrl.ProbeExistingConnection(context.Background())
	if h.provider.trustedCalls != 0 || h.ctrl.State().Connected() {
		t.Fatalf("expected no reconnect for a different wallet")
	}
}

func TestRejectedConnectionIsLoggedOnly(t *testing.T) {
	h := newHarness(t)
	h.provider.interactiveErr = wallet.ErrRejected

	if err := h.ctrl.RequestConnection(context.Background()); !errors.Is(err, wallet.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if got := h.ctrl.Screen(); got.Kind != ScreenDisconnected || got.Notice != "" {
		t.Fatalf("expected plain disconnected screen, got %+v", got)
	}
	if h.logs.FilterMessage("wallet connection failed").Len() != 1 {
		t.Fatalf("expected failure to be logged")
	}

	h.provider.interactiveErr = nil
	h.connect(t)
	if !h.ctrl.State().Connected() {
		t.Fatalf("expected retry to connect")
	}
}

func TestGalleryShowsEntriesInOrder(t *testing.T) {
	h := newHarness(t)
	h.program.links = []string{"a.gif", "b.gif"}
	h.connect(t)

	scr := h.ctrl.Screen()
	if scr.Kind != ScreenGallery {
		t.Fatalf("expected gallery, got %s", scr.Kind)
	}
	want := []Entry{{0, "a.gif"}, {1, "b.gif"}}
	if len(scr.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(scr.Entries))
	}
	for i := range want {
		if scr.Entries[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], scr.Entries[i])
		}
	}
}

func TestNotFoundAndTransportErrorAreDistinct(t *testing.T) {
	h := newHarness(t)
	h.program.fetchErr = solprogram.ErrAccountNotFound
	h.connect(t)
	if got := h.ctrl.State().List.Kind; got != ListNotFound {
		t.Fatalf("expected not found, got %s", got)
	}
	if got := h.ctrl.Screen().Kind; got != ScreenInitialize {
		t.Fatalf("expected initialize screen, got %s", got)
	}

	h.program.fetchErr = errors.New("dial tcp: connection refused")
	st := h.ctrl.Reload(context.Background())
	if st.Kind != ListUnavailable || st.Err == nil {
		t.Fatalf("expected unavailable with error, got %+v", st)
	}
	scr := h.ctrl.Screen()
	if scr.Kind != ScreenUnavailable || scr.Reason == "" {
		t.Fatalf("expected unavailable screen with reason, got %+v", scr)
	}
}

func TestEmptyDraftMakesNoRemoteCall(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	before := h.factories

	for _, link := range []string{"", "   "} {
		if err := h.ctrl.AppendEntry(context.Background(), link); !errors.Is(err, ErrEmptyLink) {
			t.Fatalf("expected ErrEmptyLink, got %v", err)
		}
	}
	if h.factories != before || len(h.program.adds) != 0 {
		t.Fatalf("expected no remote calls, got %d factories, %d adds", h.factories-before, len(h.program.adds))
	}
	if h.ctrl.State().Notice != NoticeEmptyLink {
		t.Fatalf("expected empty link notice")
	}
}

func TestAppendRefetchesOnceAndClearsDraft(t *testing.T) {
	h := newHarness(t)
	h.program.links = []string{"a.gif"}
	h.connect(t)
	h.ctrl.SetDraft("b.gif")

	if err := h.ctrl.AppendEntry(context.Background(), "b.gif"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if h.program.fetches != 2 {
		t.Fatalf("expected exactly one re-fetch after append, got %d fetches", h.program.fetches)
	}
	if h.program.fetchesAtWrite != 1 {
		t.Fatalf("expected write before the re-fetch, got %d fetches at write", h.program.fetchesAtWrite)
	}
	st := h.ctrl.State()
	if st.Draft != "" {
		t.Fatalf("expected draft cleared, got %q", st.Draft)
	}
	if len(st.List.Entries) != 2 || st.List.Entries[1].Link != "b.gif" {
		t.Fatalf("expected new entry after re-fetch, got %+v", st.List.Entries)
	}
}

func TestAppendEntryNotVisibleBeforeRefetch(t *testing.T) {
	h := newHarness(t)
	h.program.links = []string{"a.gif"}
	h.connect(t)

	var during State
	h.program.fetchHook = func(call int) {
		if call == 2 {
			during = h.ctrl.State()
		}
	}
	if err := h.ctrl.AppendEntry(context.Background(), "b.gif"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if during.List.Kind == ListLoaded {
		t.Fatalf("expected list invalidated while the re-fetch is in flight, got %+v", during.List)
	}
	for _, e := range during.List.Entries {
		if e.Link == "b.gif" {
			t.Fatalf("entry visible before re-fetch resolved")
		}
	}
}

func TestAppendFailureSurfacesNoticeAndKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.program.links = []string{"a.gif"}
	h.connect(t)
	h.ctrl.SetDraft("b.gif")
	h.program.writeErr = errors.New(`"err": {"InstructionError": [0, {"Custom": 3012}]}`)

	if err := h.ctrl.AppendEntry(context.Background(), "b.gif"); err == nil {
		t.Fatalf("expected error")
	}
	st := h.ctrl.State()
	if st.Draft != "b.gif" {
		t.Fatalf("expected draft kept, got %q", st.Draft)
	}
	want := "Failed to send GIF: " + solprogram.ProgramErrors[3012]
	if st.Notice != want {
		t.Fatalf("expected notice %q, got %q", want, st.Notice)
	}
	if len(h.program.adds) != 1 {
		t.Fatalf("expected no retry, got %d adds", len(h.program.adds))
	}
	if h.logs.FilterField(zap.String("op", "add_gif")).Len() == 0 {
		t.Fatalf("expected failure logged with operation fields")
	}
}

func TestAppendRequiresSession(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.AppendEntry(context.Background(), "a.gif"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestInitializeCreatesAccountThenRefetches(t *testing.T) {
	h := newHarness(t)
	h.program.fetchErr = solprogram.ErrAccountNotFound
	h.connect(t)

	if err := h.ctrl.InitializeAccount(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if h.program.initCalls != 1 || h.program.fetches != 2 {
		t.Fatalf("expected one creation call and one re-fetch, got %d/%d", h.program.initCalls, h.program.fetches)
	}
	scr := h.ctrl.Screen()
	if scr.Kind != ScreenGallery || len(scr.Entries) != 0 {
		t.Fatalf("expected empty gallery, got %+v", scr)
	}
}

func TestInitializeOnlyWhenNotFound(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.InitializeAccount(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	h.program.fetchErr = errors.New("timeout")
	h.connect(t)
	if err := h.ctrl.InitializeAccount(context.Background()); !errors.Is(err, ErrNotInitializable) {
		t.Fatalf("expected ErrNotInitializable for unavailable list, got %v", err)
	}
	if h.program.initCalls != 0 {
		t.Fatalf("expected no creation call")
	}
}

func TestStaleFetchIsDropped(t *testing.T) {
	h := newHarness(t)
	h.program.links = []string{"old.gif"}
	h.connect(t)

	release := make(chan struct{})
	started := make(chan struct{})
	h.program.fetchHook = func(call int) {
		if call == 2 {
			close(started)
			<-release
		}
	}

	done := make(chan struct{})
	go func() {
		h.ctrl.FetchList(context.Background())
		close(done)
	}()
	<-started

	// The slow fetch read "old.gif"; the newer one sees "new.gif".
	h.program.mu.Lock()
	h.program.links = []string{"new.gif"}
	h.program.mu.Unlock()
	h.ctrl.FetchList(context.Background())

	close(release)
	<-done

	entries := h.ctrl.State().List.Entries
	if len(entries) != 1 || entries[0].Link != "new.gif" {
		t.Fatalf("expected newest fetch to win, got %+v", entries)
	}
}

func TestMemoryProgramFlow(t *testing.T) {
	key, _ := solana.NewRandomPrivateKey()
	provider := &fakeProvider{available: true, name: "fake", signer: wallet.NewKeySigner(key)}
	ctrl := New(provider, MemoryFactory(NewMemoryProgram()), Options{})
	ctx := context.Background()

	if err := ctrl.RequestConnection(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := ctrl.Screen().Kind; got != ScreenInitialize {
		t.Fatalf("expected initialize, got %s", got)
	}
	if err := ctrl.AppendEntry(ctx, "a.gif"); err == nil {
		t.Fatalf("expected append to fail before initialization")
	}
	if got := ctrl.State().Notice; got != "Failed to send GIF: "+solprogram.ProgramErrors[3012] {
		t.Fatalf("unexpected notice %q", got)
	}
	if err := ctrl.InitializeAccount(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := ctrl.AppendEntry(ctx, "a.gif"); err != nil {
		t.Fatalf("append: %v", err)
	}
	scr := ctrl.Screen()
	if scr.Kind != ScreenGallery || len(scr.Entries) != 1 || scr.Entries[0].Link != "a.gif" {
		t.Fatalf("unexpected screen %+v", scr)
	}
}
