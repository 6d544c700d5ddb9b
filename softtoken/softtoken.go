// Package softtoken implements pkt.Token entirely in software, for
// testing and for deployments with no hardware cryptographic module.
package softtoken

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/dgryski/go-camellia"
	"github.com/dn0/ikev2/pkt"
)

// Token is a software-only pkt.Token backed by the Go standard library's
// AES implementations, go-camellia, and the package's own CCM.
type Token struct{}

// New returns a ready-to-use software token.
func New() *Token { return &Token{} }

func (t *Token) SessionAcquire(alg pkt.EncrID, mode pkt.CipherMode) (pkt.Session, error) {
	return &session{alg: alg, mode: mode}, nil
}

func (t *Token) SessionRelease(pkt.Session) {}

type session struct {
	alg  pkt.EncrID
	mode pkt.CipherMode

	block  cipher.Block
	stream cipher.Stream
	bm     cipher.BlockMode
	aead   cipher.AEAD

	signHash hash.Hash
	icvLen   int
}

func newBlock(alg pkt.EncrID, key []byte) (cipher.Block, error) {
	switch alg {
	case pkt.ENCR_AES_CBC, pkt.ENCR_AES_CTR, pkt.ENCR_AES_CCM_8, pkt.ENCR_AES_CCM_12, pkt.ENCR_AES_CCM_16,
		pkt.ENCR_AES_GCM_8, pkt.ENCR_AES_GCM_12, pkt.ENCR_AES_GCM_16, pkt.ENCR_NULL_AUTH_AES_GMAC:
		return aes.NewCipher(key)
	case pkt.ENCR_CAMELLIA_CBC, pkt.ENCR_CAMELLIA_CTR,
		pkt.ENCR_CAMELLIA_CCM_8, pkt.ENCR_CAMELLIA_CCM_12, pkt.ENCR_CAMELLIA_CCM_16:
		return camellia.New(key)
	default:
		return nil, pkt.ErrF(pkt.ErrUnsupported, "softtoken: no block cipher for algorithm %d", alg)
	}
}

func (s *session) EncryptInit(key, iv []byte) error {
	block, err := newBlock(s.alg, key)
	if err != nil {
		return err
	}
	s.block = block
	switch s.mode {
	case pkt.ModeCBC:
		s.bm = cipher.NewCBCEncrypter(block, iv)
	case pkt.ModeCTR:
		s.stream = cipher.NewCTR(block, iv)
	case pkt.ModeNone:
		// identity: Encrypt below passes plaintext through unchanged
	default:
		return pkt.ErrF(pkt.ErrUnsupported, "softtoken: EncryptInit: mode %s", s.mode)
	}
	return nil
}

func (s *session) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	switch s.mode {
	case pkt.ModeCBC:
		if len(plaintext)%s.block.BlockSize() != 0 {
			return nil, pkt.ErrF(pkt.ErrCryptoOpFailed, "softtoken: CBC input not block aligned")
		}
		s.bm.CryptBlocks(out, plaintext)
	case pkt.ModeCTR:
		s.stream.XORKeyStream(out, plaintext)
	case pkt.ModeNone:
		copy(out, plaintext)
	default:
		return nil, pkt.ErrF(pkt.ErrUnsupported, "softtoken: Encrypt: mode %s", s.mode)
	}
	return out, nil
}

func (s *session) DecryptInit(key, iv []byte) error {
	block, err := newBlock(s.alg, key)
	if err != nil {
		return err
	}
	s.block = block
	switch s.mode {
	case pkt.ModeCBC:
		s.bm = cipher.NewCBCDecrypter(block, iv)
	case pkt.ModeCTR:
		s.stream = cipher.NewCTR(block, iv)
	case pkt.ModeNone:
	default:
		return pkt.ErrF(pkt.ErrUnsupported, "softtoken: DecryptInit: mode %s", s.mode)
	}
	return nil
}

func (s *session) Decrypt(ciphertext []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	switch s.mode {
	case pkt.ModeCBC:
		if len(ciphertext)%s.block.BlockSize() != 0 {
			return nil, pkt.ErrF(pkt.ErrCryptoOpFailed, "softtoken: CBC input not block aligned")
		}
		s.bm.CryptBlocks(out, ciphertext)
	case pkt.ModeCTR:
		s.stream.XORKeyStream(out, ciphertext)
	case pkt.ModeNone:
		copy(out, ciphertext)
	default:
		return nil, pkt.ErrF(pkt.ErrUnsupported, "softtoken: Decrypt: mode %s", s.mode)
	}
	return out, nil
}

func (s *session) EncryptBlock(key, block []byte) ([]byte, error) {
	b, err := newBlock(s.alg, key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(block))
	b.Encrypt(out, block)
	return out, nil
}

func entryFor(alg pkt.EncrID) (pkt.AlgEntry, error) { return pkt.LookupAlg(alg) }

func (s *session) SealInit(key []byte) error {
	block, err := newBlock(s.alg, key)
	if err != nil {
		return err
	}
	entry, err := entryFor(s.alg)
	if err != nil {
		return err
	}
	nonceLen := entry.SaltLen + entry.IVLen
	switch entry.Mode {
	case pkt.ModeGCM:
		aead, err := cipher.NewGCMWithNonceSize(block, nonceLen)
		if err != nil {
			return pkt.ErrF(pkt.ErrCryptoInitFailed, "softtoken: %v", err)
		}
		s.aead = aead
	case pkt.ModeCCM:
		aead, err := pkt.NewCCM(block, nonceLen, entry.ICVLen)
		if err != nil {
			return err
		}
		s.aead = aead
	default:
		return pkt.ErrF(pkt.ErrUnsupported, "softtoken: SealInit: mode %s", entry.Mode)
	}
	return nil
}

func (s *session) Seal(nonce, plaintext, aad []byte) ([]byte, error) {
	if s.aead == nil {
		return nil, pkt.ErrF(pkt.ErrCryptoInitFailed, "softtoken: Seal without SealInit")
	}
	return s.aead.Seal(nil, nonce, plaintext, aad), nil
}

func (s *session) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if s.aead == nil {
		return nil, pkt.ErrF(pkt.ErrCryptoInitFailed, "softtoken: Open without SealInit")
	}
	pt, err := s.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, pkt.ErrF(pkt.ErrIntegrityFailed, "softtoken: %v", err)
	}
	return pt, nil
}

func newHasher(alg pkt.AuthID) (func() hash.Hash, error) {
	switch alg {
	case pkt.AUTH_HMAC_MD5_96, pkt.AUTH_HMAC_MD5_128:
		return md5.New, nil
	case pkt.AUTH_HMAC_SHA1_96, pkt.AUTH_HMAC_SHA1_160:
		return sha1.New, nil
	case pkt.AUTH_HMAC_SHA2_256_128:
		return sha256.New, nil
	case pkt.AUTH_HMAC_SHA2_384_192:
		return sha512.New384, nil
	case pkt.AUTH_HMAC_SHA2_512_256:
		return sha512.New, nil
	default:
		return nil, pkt.ErrF(pkt.ErrUnsupported, "softtoken: no HMAC for auth algorithm %d", alg)
	}
}

func (s *session) SignInit(alg pkt.AuthID, key []byte) error {
	newH, err := newHasher(alg)
	if err != nil {
		return err
	}
	icvLen, err := pkt.LookupAuthICV(alg)
	if err != nil {
		return err
	}
	s.signHash = hmac.New(newH, key)
	s.icvLen = icvLen
	return nil
}

// Sign returns the HMAC truncated to the ICV length carried by the
// algorithm's name (e.g. the 96 bits of HMAC_SHA1_96), not the hash
// function's native digest size.
func (s *session) Sign(data []byte) ([]byte, error) {
	if s.signHash == nil {
		return nil, pkt.ErrF(pkt.ErrCryptoInitFailed, "softtoken: Sign without SignInit")
	}
	s.signHash.Reset()
	s.signHash.Write(data)
	full := s.signHash.Sum(nil)
	if s.icvLen > len(full) {
		return nil, pkt.ErrF(pkt.ErrCryptoOpFailed, "softtoken: ICV length %d exceeds digest size %d", s.icvLen, len(full))
	}
	return full[:s.icvLen], nil
}

func (s *session) VerifyInit(alg pkt.AuthID, key []byte) error { return s.SignInit(alg, key) }

func (s *session) Verify(data, mac []byte) error {
	got, err := s.Sign(data)
	if err != nil {
		return err
	}
	if !hmac.Equal(got, mac) {
		return pkt.ErrF(pkt.ErrIntegrityFailed, "softtoken: mac mismatch")
	}
	return nil
}
