package portal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gifportal/solprogram"
	"gifportal/wallet"
)

// SampleLinks seed the demo gallery.
var SampleLinks = []string{
	"https://media.giphy.com/media/6swcfDQHr3UTm/giphy.gif",
	"https://media.giphy.com/media/YVo52twuQhSE0/giphy.gif",
	"https://media.giphy.com/media/iR7CXoOGlv8hG/giphy.gif",
	"https://media.giphy.com/media/abgxkEiJQjaSY/giphy.gif",
	"https://media.giphy.com/media/CbLiD6gmoadi0/giphy.gif",
	"https://media.giphy.com/media/y5ZmWdzXf5pNm/giphy.gif",
}

// MemoryProgram keeps the GIF list in process memory and answers the way
// the on-chain program does, including its error codes.
type MemoryProgram struct {
	mu          sync.Mutex
	initialized bool
	links       []string
	txs         int
}

// NewMemoryProgram returns an uninitialized program.
func NewMemoryProgram() *MemoryProgram {
	return &MemoryProgram{}
}

// NewSeededMemoryProgram returns an initialized program holding links.
func NewSeededMemoryProgram(links ...string) *MemoryProgram {
	return &MemoryProgram{initialized: true, links: slices.Clone(links)}
}

func (p *MemoryProgram) FetchBaseAccount(ctx context.Context) (*solprogram.BaseAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, solprogram.ErrAccountNotFound
	}
	acct := &solprogram.BaseAccount{TotalGifs: uint64(len(p.links))}
	for _, l := range p.links {
		acct.GifList = append(acct.GifList, solprogram.ItemStruct{GifLink: l})
	}
	return acct, nil
}

func (p *MemoryProgram) AddGif(ctx context.Context, link string) (*solprogram.TransactionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, errors.New("AnchorError caused by account: base_account. Error Number: 3012")
	}
	p.links = append(p.links, link)
	return p.result(), nil
}

func (p *MemoryProgram) StartStuffOff(ctx context.Context) (*solprogram.TransactionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil, errors.New("Program failed: custom program error: 0x0")
	}
	p.initialized = true
	return p.result(), nil
}

func (p *MemoryProgram) result() *solprogram.TransactionResult {
	p.txs++
	return &solprogram.TransactionResult{
		Signature: fmt.Sprintf("memory-%d", p.txs),
		Status:    solprogram.StatusFinalized,
	}
}

// MemoryFactory hands out p for every connected wallet.
func MemoryFactory(p *MemoryProgram) ClientFactory {
	return func(_ context.Context, conn wallet.Connection) (Program, error) {
		if conn.IsZero() {
			return nil, ErrNotConnected
		}
		return p, nil
	}
}
