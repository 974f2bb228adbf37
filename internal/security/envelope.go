package security

import "fmt"

// Envelope is the detached-signature wire form of every protected request and response
type Envelope struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Seal canonicalizes v and signs the result with priv
func Seal(v any, priv PrivateKey) (Envelope, error) {
	msg, err := Canonical(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("seal: %w", err)
	}
	return Envelope{Message: msg, Signature: Sign(msg, priv).String()}, nil
}

// Valid reports whether the envelope's signature matches its message under pub
func (e Envelope) Valid(pub PublicKey) bool {
	return VerifyString(e.Message, e.Signature, pub)
}

// Seal signs v with the service private key
func (k *KeyStore) Seal(v any) (Envelope, error) {
	return Seal(v, k.Private())
}
