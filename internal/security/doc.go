// Package security holds the service keypair and the textbook RSA primitives the
// wire protocol is built on: credential encryption for register/login and
// detached signatures over canonical JSON messages.
//
// The scheme is kept byte-compatible with existing clients and is NOT a modern
// construction. Encryption is unpadded (c = m^e mod n), so it is deterministic
// and malleable. Signatures raise the integer value of the ASCII hex SHA-256
// digest to the private exponent with no structured padding, which leaves them
// open to the standard textbook RSA forgery and blinding attacks. Do not reuse
// these primitives outside this protocol.
package security
