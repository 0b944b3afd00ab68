package portal

import (
	"fmt"

	"gifportal/solprogram"
)

type ScreenKind int

const (
	ScreenDisconnected ScreenKind = iota
	ScreenLoading
	ScreenInitialize
	ScreenGallery
	ScreenUnavailable
)

var screenNames = map[ScreenKind]string{
	ScreenDisconnected: "disconnected",
	ScreenLoading:      "loading",
	ScreenInitialize:   "initialize",
	ScreenGallery:      "gallery",
	ScreenUnavailable:  "unavailable",
}

func (k ScreenKind) String() string {
	if name, ok := screenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("screen(%d)", int(k))
}

func (k ScreenKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Screen is what a surface draws.
type Screen struct {
	Kind    ScreenKind `json:"screen"`
	Wallet  string     `json:"wallet,omitempty"`
	Entries []Entry    `json:"entries,omitempty"`
	Draft   string     `json:"draft,omitempty"`
	Notice  string     `json:"notice,omitempty"`
	// Reason explains ScreenUnavailable.
	Reason string `json:"reason,omitempty"`
}

// Render maps a state to its screen. Without a wallet the list is ignored.
func Render(s State) Screen {
	scr := Screen{Notice: s.Notice}
	if !s.Connected() {
		scr.Kind = ScreenDisconnected
		return scr
	}

	scr.Wallet = s.Wallet.String()
	switch s.List.Kind {
	case ListNotFound:
		scr.Kind = ScreenInitialize
	case ListUnavailable:
		scr.Kind = ScreenUnavailable
		if s.List.Err != nil {
			scr.Reason = solprogram.ParseProgramError(s.List.Err)
		}
	case ListLoaded:
		scr.Kind = ScreenGallery
		scr.Entries = s.List.Entries
		scr.Draft = s.Draft
	default:
		scr.Kind = ScreenLoading
	}
	return scr
}
