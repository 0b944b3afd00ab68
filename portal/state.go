package portal

import "github.com/gagliardetto/solana-go"

// ListKind says what is known about the remote GIF list.
type ListKind int

const (
	// ListUnknown means no fetch has completed since the last invalidation.
	ListUnknown ListKind = iota
	// ListNotFound means the base account has not been created yet.
	ListNotFound
	// ListUnavailable means the account could not be read.
	ListUnavailable
	// ListLoaded means Entries holds the account's list.
	ListLoaded
)

func (k ListKind) String() string {
	switch k {
	case ListNotFound:
		return "not_found"
	case ListUnavailable:
		return "unavailable"
	case ListLoaded:
		return "loaded"
	}
	return "unknown"
}

// Entry is one submitted link, in on-chain order.
type Entry struct {
	Index int    `json:"index"`
	Link  string `json:"link"`
}

// ListState is the outcome of the latest list fetch.
type ListState struct {
	Kind    ListKind
	Entries []Entry
	// Err is set for ListUnavailable.
	Err error
}

func loaded(links []string) ListState {
	entries := make([]Entry, len(links))
	for i, l := range links {
		entries[i] = Entry{Index: i, Link: l}
	}
	return ListState{Kind: ListLoaded, Entries: entries}
}

// State is a snapshot of everything the screens are derived from.
type State struct {
	// Wallet is the connected public key. Zero until a connect succeeds.
	Wallet solana.PublicKey
	List   ListState
	Draft  string
	Notice string
}

func (s State) Connected() bool {
	return !s.Wallet.IsZero()
}
