package pkt

import "github.com/go-kit/log"

// Token is the cryptographic service the envelope layer calls into to
// encrypt, decrypt, sign and verify SK payload contents. A concrete
// implementation lives outside this package (see softtoken); pkt only
// depends on this interface so the codec stays testable without a real
// crypto backend and swappable for a hardware-backed one.
type Token interface {
	// SessionAcquire returns a handle good for one or more operations
	// against alg/mode. Callers must SessionRelease it when done.
	SessionAcquire(alg EncrID, mode CipherMode) (Session, error)
	// SessionRelease returns a handle to the pool (or discards it).
	SessionRelease(s Session)
}

// Session is a single cryptographic session bound to one key and
// algorithm. EncryptInit/DecryptInit (re-)key it; Encrypt/Decrypt operate
// one buffer at a time. Sign/Verify compute or check a MAC independent of
// any encryption state on the same session.
type Session interface {
	EncryptInit(key, iv []byte) error
	Encrypt(plaintext []byte) (ciphertext []byte, err error)
	DecryptInit(key, iv []byte) error
	Decrypt(ciphertext []byte) (plaintext []byte, err error)

	// EncryptBlock runs one raw ECB-mode block encryption under key,
	// independent of any chained Encrypt session. Used for the CBC IV
	// derivation described in the crypto envelope (encrypting the
	// zero-extended message ID), not for bulk data.
	EncryptBlock(key, block []byte) ([]byte, error)

	// SealInit/Seal/Open are used for AEAD modes (CCM/GCM), where
	// authentication is bound to the cipher operation rather than a
	// separate MAC. aad is authenticated but not encrypted.
	SealInit(key []byte) error
	Seal(nonce, plaintext, aad []byte) (ciphertext []byte, err error)
	Open(nonce, ciphertext, aad []byte) (plaintext []byte, err error)

	SignInit(alg AuthID, key []byte) error
	Sign(data []byte) (mac []byte, err error)
	VerifyInit(alg AuthID, key []byte) error
	Verify(data, mac []byte) error
}

// RNG supplies cryptographically secure random bytes for Nonce payloads.
type RNG interface {
	FillRandom(b []byte) error
}

// SA is the minimal view of a negotiated Security Association the crypto
// envelope needs: the directional keys, the chosen algorithms, whether
// the peer is known to share this implementation's padding convention,
// and where to log envelope-level events. Key management (derivation,
// rekey, lifetime) lives above this package.
type SA interface {
	Registry() *AlgEntry
	IntegAlg() AuthID
	EncrKey(initiator bool) []byte
	IntegKey(initiator bool) []byte
	Salt(initiator bool) []byte

	// VendorPeer reports whether the peer has identified itself (e.g. via
	// a Vendor ID payload) as sharing this implementation's padding-byte
	// convention, making ValidatePadding meaningful to enforce on decrypt.
	VendorPeer() bool

	// LogSink is where the envelope logs events such as integrity
	// failures.
	LogSink() log.Logger
}
