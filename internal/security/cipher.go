package security

import (
	"fmt"
	"math/big"
	"unicode/utf8"

	"secured-auction/internal/auctionerrors"
)

// Encrypt computes c = m^e mod n where m is the big-endian integer of the UTF-8 bytes of plaintext.
// Plaintexts whose encoding is not strictly below n are rejected.
func Encrypt(plaintext string, pub PublicKey) (*big.Int, error) {
	m := new(big.Int).SetBytes([]byte(plaintext))
	if m.Cmp(pub.N) >= 0 {
		return nil, fmt.Errorf("encrypt %d bytes: %w", len(plaintext), auctionerrors.ErrPlaintextTooLarge)
	}
	return new(big.Int).Exp(m, pub.E, pub.N), nil
}

// Decrypt computes m = c^d mod n and decodes m back into a UTF-8 string.
// Leading zero bytes of the original plaintext do not survive the round trip.
func Decrypt(ciphertext *big.Int, priv PrivateKey) (string, error) {
	if ciphertext == nil || ciphertext.Sign() < 0 || ciphertext.Cmp(priv.N) >= 0 {
		return "", fmt.Errorf("decrypt: ciphertext out of range: %w", auctionerrors.ErrDecode)
	}
	raw := new(big.Int).Exp(ciphertext, priv.D, priv.N).Bytes()
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("decrypt: plaintext is not UTF-8: %w", auctionerrors.ErrDecode)
	}
	return string(raw), nil
}

// DecryptString parses a decimal ciphertext from the wire and decrypts it
func DecryptString(ciphertext string, priv PrivateKey) (string, error) {
	c, ok := ParseInt(ciphertext)
	if !ok {
		return "", fmt.Errorf("decrypt: ciphertext is not a decimal integer: %w", auctionerrors.ErrDecode)
	}
	return Decrypt(c, priv)
}
