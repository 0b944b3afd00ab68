package solprogram

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// ParseBaseAccount - Parse base account data
// Layout: discriminator(8) + total_gifs(u64) + gif_list(vec<ItemStruct>)
func ParseBaseAccount(data []byte) (*BaseAccount, error) {
	if len(data) < 8+8+4 {
		return nil, fmt.Errorf("%w: base account data length %d", ErrInvalidAccountData, len(data))
	}
	if !bytes.Equal(data[:8], BaseAccountDisc[:]) {
		return nil, fmt.Errorf("%w: discriminator %v is not %s", ErrInvalidAccountData, data[:8], AccountBaseAccount)
	}

	var acct BaseAccount
	if err := bin.NewBorshDecoder(data[8:]).Decode(&acct); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	return &acct, nil
}

// Links returns the submitted links in on-chain order.
func (a *BaseAccount) Links() []string {
	links := make([]string, len(a.GifList))
	for i, item := range a.GifList {
		links[i] = item.GifLink
	}
	return links
}
