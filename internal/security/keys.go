package security

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"secured-auction/internal/auctionerrors"
)

// minModulusBits keeps the hex SHA-256 digest (64 ASCII bytes) strictly below n
const minModulusBits = 512

// PublicKey is the (e, n) half of a keypair
type PublicKey struct {
	E *big.Int
	N *big.Int
}

// PrivateKey is the (d, n) half of a keypair
type PrivateKey struct {
	D *big.Int
	N *big.Int
}

// KeyStore holds the service keypair. It is built once at startup and never mutated;
// accessors hand out copies.
type KeyStore struct {
	e, d, n *big.Int
}

type keyFile struct {
	E string `json:"e"`
	D string `json:"d"`
	N string `json:"n"`
}

// NewKeyStore builds a KeyStore from raw exponents and modulus
func NewKeyStore(e, d, n *big.Int) (*KeyStore, error) {
	if e == nil || d == nil || n == nil {
		return nil, errors.New("keystore: incomplete keypair")
	}
	if e.Cmp(big.NewInt(1)) <= 0 || d.Sign() <= 0 || n.Cmp(e) <= 0 {
		return nil, errors.New("keystore: invalid keypair")
	}
	if n.BitLen() < minModulusBits {
		return nil, fmt.Errorf("keystore: modulus must be at least %d bits", minModulusBits)
	}
	return &KeyStore{
		e: new(big.Int).Set(e),
		d: new(big.Int).Set(d),
		n: new(big.Int).Set(n),
	}, nil
}

// GenerateKeyStore creates a fresh keypair of the given size
func GenerateKeyStore(bits int) (*KeyStore, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("keystore: generate key: %w", err)
	}
	return NewKeyStore(big.NewInt(int64(key.E)), key.D, key.N)
}

// LoadOrCreateKeyStore reads the keypair file at path, generating and persisting
// a new keypair when the file does not exist yet.
func LoadOrCreateKeyStore(path string, bits int) (ks *KeyStore, created bool, err error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		ks, err = GenerateKeyStore(bits)
		if err != nil {
			return nil, false, err
		}
		if err := ks.Save(path); err != nil {
			return nil, false, err
		}
		return ks, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("keystore: read %s: %w", path, err)
	}

	var kf keyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, false, fmt.Errorf("keystore: parse %s: %w", path, err)
	}
	e, okE := new(big.Int).SetString(kf.E, 10)
	d, okD := new(big.Int).SetString(kf.D, 10)
	n, okN := new(big.Int).SetString(kf.N, 10)
	if !okE || !okD || !okN {
		return nil, false, fmt.Errorf("keystore: %s holds non-decimal key material", path)
	}
	ks, err = NewKeyStore(e, d, n)
	return ks, false, err
}

// Save writes the keypair to path with owner-only permissions
func (k *KeyStore) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("keystore: create %s: %w", dir, err)
		}
	}
	raw, err := json.Marshal(keyFile{E: k.e.String(), D: k.d.String(), N: k.n.String()})
	if err != nil {
		return fmt.Errorf("keystore: encode: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("keystore: write %s: %w", path, err)
	}
	return nil
}

// Public returns the service public key
func (k *KeyStore) Public() PublicKey {
	return PublicKey{E: new(big.Int).Set(k.e), N: new(big.Int).Set(k.n)}
}

// Private returns the service private key
func (k *KeyStore) Private() PrivateKey {
	return PrivateKey{D: new(big.Int).Set(k.d), N: new(big.Int).Set(k.n)}
}

// ParseInt decodes a non-negative decimal integer as carried on the wire
func ParseInt(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// ParsePublicKey validates a client-supplied public key given as decimal strings
func ParsePublicKey(e, n string) (PublicKey, error) {
	ev, okE := ParseInt(e)
	nv, okN := ParseInt(n)
	if !okE || !okN {
		return PublicKey{}, auctionerrors.ErrInvalidPublicKey
	}
	if ev.Cmp(big.NewInt(1)) <= 0 || nv.Cmp(ev) <= 0 || nv.BitLen() < minModulusBits {
		return PublicKey{}, auctionerrors.ErrInvalidPublicKey
	}
	return PublicKey{E: ev, N: nv}, nil
}
