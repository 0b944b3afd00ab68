package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

// LoadKeypairFile reads a keypair from disk. See ParseKeypair for the
// accepted formats.
func LoadKeypairFile(path string) (solana.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}
	key, err := ParseKeypair(data)
	if err != nil {
		return nil, fmt.Errorf("invalid keypair file %s: %w", path, err)
	}
	return key, nil
}

// ParseKeypair accepts:
//   - the solana-keygen JSON array of 64 bytes,
//   - a web3.js dump {"_keypair":{"secretKey":{"0":12,"1":34,...}}},
//   - a base58 encoded secret key.
func ParseKeypair(data []byte) (solana.PrivateKey, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty keypair")
	}

	var raw []byte
	switch data[0] {
	case '[':
		var arr []int
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, fmt.Errorf("failed to decode key array: %w", err)
		}
		b, err := intsToBytes(arr)
		if err != nil {
			return nil, err
		}
		raw = b
	case '{':
		var dump struct {
			Keypair struct {
				SecretKey map[string]int `json:"secretKey"`
			} `json:"_keypair"`
		}
		if err := json.Unmarshal(data, &dump); err != nil {
			return nil, fmt.Errorf("failed to decode keypair object: %w", err)
		}
		b, err := indexedToBytes(dump.Keypair.SecretKey)
		if err != nil {
			return nil, err
		}
		raw = b
	default:
		key, err := solana.PrivateKeyFromBase58(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode base58 key: %w", err)
		}
		raw = key
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

// WriteKeypairFile stores key in the solana-keygen array format.
func WriteKeypairFile(path string, key solana.PrivateKey) error {
	arr := make([]int, len(key))
	for i, b := range key {
		arr[i] = int(b)
	}
	data, err := json.Marshal(arr)
	if err != nil {
		return fmt.Errorf("failed to encode keypair: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create keypair directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write keypair file: %w", err)
	}
	return nil
}

func intsToBytes(arr []int) ([]byte, error) {
	out := make([]byte, len(arr))
	for i, v := range arr {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func indexedToBytes(m map[string]int) ([]byte, error) {
	if len(m) == 0 {
		return nil, fmt.Errorf("missing secretKey")
	}
	idx := make([]int, 0, len(m))
	vals := make(map[int]int, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid secretKey index %q", k)
		}
		idx = append(idx, i)
		vals[i] = v
	}
	sort.Ints(idx)
	arr := make([]int, len(idx))
	for pos, i := range idx {
		if i != pos {
			return nil, fmt.Errorf("secretKey index %d missing", pos)
		}
		arr[pos] = vals[i]
	}
	return intsToBytes(arr)
}
