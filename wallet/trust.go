package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	bolt "go.etcd.io/bbolt"
)

const (
	schemaVersion = "v1"
	metaBucket    = "__meta"
	versionKey    = "version"
	trustBucket   = "trusted_origins"
)

// Grant records that a wallet key approved an origin.
type Grant struct {
	Origin    string    `json:"origin"`
	PublicKey string    `json:"public_key"`
	GrantedAt time.Time `json:"granted_at"`
}

// TrustStore remembers which origins a wallet has approved, so later
// visits can reconnect without prompting.
type TrustStore struct {
	db *bolt.DB
}

// OpenTrustStore opens (or creates) the bolt database at path.
func OpenTrustStore(path string) (*TrustStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create trust store directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open trust store: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return fmt.Errorf("failed to get/create meta bucket: %w", err)
		}

		switch v := b.Get([]byte(versionKey)); string(v) {
		case "":
			if err := b.Put([]byte(versionKey), []byte(schemaVersion)); err != nil {
				return fmt.Errorf("failed to set version key: %w", err)
			}
			if _, err := tx.CreateBucketIfNotExists([]byte(trustBucket)); err != nil {
				return fmt.Errorf("failed to create trust bucket: %w", err)
			}
		case schemaVersion:
		default:
			return fmt.Errorf("unsupported trust store version %q", v)
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &TrustStore{db: db}, nil
}

func (s *TrustStore) Close() error {
	return s.db.Close()
}

// IsTrusted reports whether origin was approved for key.
func (s *TrustStore) IsTrusted(origin string, key solana.PublicKey) (bool, error) {
	g, err := s.get(origin)
	if err != nil || g == nil {
		return false, err
	}
	return g.PublicKey == key.String(), nil
}

// Trust records an approval, replacing any previous grant for origin.
func (s *TrustStore) Trust(origin string, key solana.PublicKey) error {
	data, err := json.Marshal(Grant{
		Origin:    origin,
		PublicKey: key.String(),
		GrantedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode grant: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(trustBucket)).Put([]byte(origin), data)
	})
}

// Revoke forgets origin. Revoking an unknown origin is not an error.
func (s *TrustStore) Revoke(origin string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(trustBucket)).Delete([]byte(origin))
	})
}

// List returns every grant ordered by origin.
func (s *TrustStore) List() ([]Grant, error) {
	var grants []Grant
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(trustBucket)).ForEach(func(k, v []byte) error {
			var g Grant
			if err := json.Unmarshal(v, &g); err != nil {
				return fmt.Errorf("failed to decode grant %q: %w", k, err)
			}
			grants = append(grants, g)
			return nil
		})
	})
	return grants, err
}

func (s *TrustStore) get(origin string) (*Grant, error) {
	var g *Grant
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(trustBucket)).Get([]byte(origin))
		if v == nil {
			return nil
		}
		g = &Grant{}
		if err := json.Unmarshal(v, g); err != nil {
			return fmt.Errorf("failed to decode grant: %w", err)
		}
		return nil
	})
	return g, err
}
