package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"

	"gifportal/wallet"
)

var stdin = newLineReader(os.Stdin)

// lineReader hands the lines of one input to successive prompts. A single
// goroutine reads for the life of the process.
type lineReader struct {
	in    *bufio.Reader
	once  sync.Once
	lines chan string
}

func newLineReader(in io.Reader) *lineReader {
	return &lineReader{in: bufio.NewReader(in), lines: make(chan string)}
}

func (r *lineReader) pump() {
	defer close(r.lines)
	for {
		line, err := r.in.ReadString('\n')
		if line != "" {
			r.lines <- line
		}
		if err != nil {
			return
		}
	}
}

// next waits for the next line. ok is false once the input has ended.
func (r *lineReader) next(ctx context.Context) (line string, ok bool, err error) {
	r.once.Do(func() { go r.pump() })
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, ok = <-r.lines:
		return line, ok, nil
	}
}

// promptApprover asks on the terminal before a wallet trusts a new origin.
func promptApprover(in *lineReader, out io.Writer) wallet.Approver {
	return func(ctx context.Context, origin string, key solana.PublicKey) (bool, error) {
		fmt.Fprintf(out, "Allow %s to connect with wallet %s? [y/N] ", origin, key)

		line, _, err := in.next(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
