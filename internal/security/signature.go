package security

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// Digest is the integer the protocol signs: the big-endian value of the
// lowercase hex SHA-256 digest of message, taken as ASCII bytes.
func Digest(message string) *big.Int {
	sum := sha256.Sum256([]byte(message))
	return new(big.Int).SetBytes([]byte(hex.EncodeToString(sum[:])))
}

// Sign returns Digest(message)^d mod n
func Sign(message string, priv PrivateKey) *big.Int {
	return new(big.Int).Exp(Digest(message), priv.D, priv.N)
}

// Verify checks signature^e mod n == Digest(message)
func Verify(message string, signature *big.Int, pub PublicKey) bool {
	if signature == nil || pub.N == nil || pub.E == nil {
		return false
	}
	if signature.Sign() <= 0 || signature.Cmp(pub.N) >= 0 {
		return false
	}
	recovered := new(big.Int).Exp(signature, pub.E, pub.N)
	return recovered.Cmp(Digest(message)) == 0
}

// VerifyString parses a decimal signature from the wire and verifies it
func VerifyString(message, signature string, pub PublicKey) bool {
	sig, ok := ParseInt(signature)
	if !ok {
		return false
	}
	return Verify(message, sig, pub)
}
