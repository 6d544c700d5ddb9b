package pkt

import (
	"encoding/binary"

	"github.com/go-kit/log/level"
	"github.com/msgboxio/packets"
)

// paddingBytes fills n bytes with the constant value n itself: the amount
// of padding and the value of each padding byte are the same, the
// convention RFC 7296 section 3.14 documents and most IKEv2 stacks both
// emit and validate when the peer is known to be a compatible
// implementation.
func paddingBytes(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(n)
	}
	return p
}

// cbcIV derives the CBC mode IV by ECB-encrypting the zero-extended
// message ID under the directional encryption key (SP 800-38A appendix C
// counter-generation technique, repurposed here as a deterministic IV
// rather than a random one).
func cbcIV(sess Session, key []byte, blockLen int, msgID uint32) ([]byte, error) {
	block := make([]byte, blockLen)
	binary.BigEndian.PutUint32(block[blockLen-4:], msgID)
	return sess.EncryptBlock(key, block)
}

// CloseSK seals the inner payloads appended since BeginSK into the
// Encrypted and Authenticated payload's IV/ciphertext/padding/ICV framing,
// and patches both the SK payload's and the IKE header's Length fields
// before encryption so that AEAD additional data covers the final values.
func (b *Builder) CloseSK(sa SA, rng RNG, tok Token, initiator bool) error {
	f := b.top()
	if f == nil || f.kind != frameSK {
		return ErrF(ErrOutOfSpace, "CloseSK: no open SK payload")
	}
	b.stack = b.stack[:len(b.stack)-1]

	entry := sa.Registry()
	mode := entry.Mode
	plainStart := f.start + PayloadHeaderLen
	plaintext := append([]byte(nil), b.buf[plainStart:]...)

	blockLen := entry.BlockLen
	if blockLen == 0 {
		blockLen = 1
	}
	padLen := (blockLen - (len(plaintext)+1)%blockLen) % blockLen
	padded := append(append(plaintext, paddingBytes(padLen)...), byte(padLen))

	var icvLen int
	if mode.IsAEAD() {
		icvLen = entry.ICVLen
	} else {
		n, err := LookupAuthICV(sa.IntegAlg())
		if err != nil {
			return err
		}
		icvLen = n
	}

	ivLen := entry.IVLen
	finalTotal := plainStart + ivLen + len(padded) + icvLen

	b.buf = b.buf[:plainStart]
	packets.WriteB16(b.buf, f.start+2, uint16(finalTotal-f.start))
	packets.WriteB32(b.buf, 24, uint32(finalTotal))

	encrKey := sa.EncrKey(initiator)
	salt := sa.Salt(initiator)

	sess, err := tok.SessionAcquire(entry.Encr, mode)
	if err != nil {
		return ErrF(ErrCryptoInitFailed, "CloseSK: %v", err)
	}
	defer tok.SessionRelease(sess)

	switch mode {
	case ModeNone:
		b.buf = append(b.buf, padded...)

	case ModeCBC:
		iv, err := cbcIV(sess, encrKey, blockLen, b.header.MsgID)
		if err != nil {
			return ErrF(ErrCryptoOpFailed, "CloseSK: derive IV: %v", err)
		}
		if err := sess.EncryptInit(encrKey, iv); err != nil {
			return ErrF(ErrCryptoInitFailed, "CloseSK: %v", err)
		}
		ct, err := sess.Encrypt(padded)
		if err != nil {
			return ErrF(ErrCryptoOpFailed, "CloseSK: %v", err)
		}
		b.buf = append(b.buf, iv...)
		b.buf = append(b.buf, ct...)
		if err := b.appendMAC(sa, sess, initiator, plainStart, ivLen, len(ct)); err != nil {
			return err
		}

	case ModeCTR:
		// the explicit IV is the zero-extended message ID
		explicit := make([]byte, ivLen)
		if ivLen >= 4 {
			binary.BigEndian.PutUint32(explicit[ivLen-4:], b.header.MsgID)
		}
		iv := append(append([]byte(nil), salt...), explicit...)
		iv = append(iv, 0, 0, 0, 1) // 32-bit big-endian counter starting at 1
		if err := sess.EncryptInit(encrKey, iv); err != nil {
			return ErrF(ErrCryptoInitFailed, "CloseSK: %v", err)
		}
		ct, err := sess.Encrypt(padded)
		if err != nil {
			return ErrF(ErrCryptoOpFailed, "CloseSK: %v", err)
		}
		b.buf = append(b.buf, explicit...)
		b.buf = append(b.buf, ct...)
		if err := b.appendMAC(sa, sess, initiator, plainStart, ivLen, len(ct)); err != nil {
			return err
		}

	case ModeCCM, ModeGCM:
		// the explicit IV is the zero-extended message ID
		explicit := make([]byte, ivLen)
		if ivLen >= 4 {
			binary.BigEndian.PutUint32(explicit[ivLen-4:], b.header.MsgID)
		}
		nonce := append(append([]byte(nil), salt...), explicit...)
		aad := b.buf[:plainStart]
		if err := sess.SealInit(encrKey); err != nil {
			return ErrF(ErrCryptoInitFailed, "CloseSK: %v", err)
		}
		sealed, err := sess.Seal(nonce, padded, aad)
		if err != nil {
			return ErrF(ErrCryptoOpFailed, "CloseSK: %v", err)
		}
		b.buf = append(b.buf, explicit...)
		b.buf = append(b.buf, sealed...)

	default:
		return ErrF(ErrUnsupported, "CloseSK: mode %s", mode)
	}
	return nil
}

// appendMAC computes the integrity checksum over everything from the start
// of the IKE header through the end of the ciphertext just appended, and
// appends it as the ICV.
func (b *Builder) appendMAC(sa SA, sess Session, initiator bool, plainStart, ivLen, ctLen int) error {
	if err := sess.SignInit(sa.IntegAlg(), sa.IntegKey(initiator)); err != nil {
		return ErrF(ErrCryptoInitFailed, "appendMAC: %v", err)
	}
	signedRange := b.buf[:plainStart+ivLen+ctLen]
	mac, err := sess.Sign(signedRange)
	if err != nil {
		return ErrF(ErrCryptoOpFailed, "appendMAC: %v", err)
	}
	b.buf = append(b.buf, mac...)
	return nil
}

// OpenSK locates the SK payload inside buf, verifies and decrypts it, and
// returns the recovered inner-payload plaintext (ready to be fed back
// through the generic payload walk the caller uses for the outer message).
// ikeHeader must already have been decoded and validated by the caller.
func OpenSK(buf []byte, skHeaderOffset int, sa SA, tok Token, initiator bool) ([]byte, error) {
	entry := sa.Registry()
	mode := entry.Mode
	plainStart := skHeaderOffset + PayloadHeaderLen

	var icvLen int
	if mode.IsAEAD() {
		icvLen = entry.ICVLen
	} else {
		n, err := LookupAuthICV(sa.IntegAlg())
		if err != nil {
			return nil, err
		}
		icvLen = n
	}
	if len(buf) < plainStart+icvLen {
		return nil, ErrF(ErrParseMalformed, "OpenSK: message shorter than minimum SK framing")
	}

	ivLen := entry.IVLen
	if len(buf) < plainStart+ivLen+icvLen {
		return nil, ErrF(ErrParseMalformed, "OpenSK: message shorter than IV+ICV")
	}
	iv := buf[plainStart : plainStart+ivLen]
	ct := buf[plainStart+ivLen : len(buf)-icvLen]
	icv := buf[len(buf)-icvLen:]

	encrKey := sa.EncrKey(initiator)
	salt := sa.Salt(initiator)

	sess, err := tok.SessionAcquire(entry.Encr, mode)
	if err != nil {
		return nil, ErrF(ErrCryptoInitFailed, "OpenSK: %v", err)
	}
	defer tok.SessionRelease(sess)

	var padded []byte
	switch mode {
	case ModeNone:
		padded = ct

	case ModeCBC:
		if err := verifyMAC(sess, sa, initiator, buf[:len(buf)-icvLen], icv); err != nil {
			return nil, err
		}
		if err := sess.DecryptInit(encrKey, iv); err != nil {
			return nil, ErrF(ErrCryptoInitFailed, "OpenSK: %v", err)
		}
		padded, err = sess.Decrypt(ct)
		if err != nil {
			return nil, ErrF(ErrCryptoOpFailed, "OpenSK: %v", err)
		}

	case ModeCTR:
		if err := verifyMAC(sess, sa, initiator, buf[:len(buf)-icvLen], icv); err != nil {
			return nil, err
		}
		counterIV := append(append([]byte(nil), salt...), iv...)
		counterIV = append(counterIV, 0, 0, 0, 1)
		if err := sess.DecryptInit(encrKey, counterIV); err != nil {
			return nil, ErrF(ErrCryptoInitFailed, "OpenSK: %v", err)
		}
		padded, err = sess.Decrypt(ct)
		if err != nil {
			return nil, ErrF(ErrCryptoOpFailed, "OpenSK: %v", err)
		}

	case ModeCCM, ModeGCM:
		nonce := append(append([]byte(nil), salt...), iv...)
		aad := buf[:plainStart]
		if err := sess.SealInit(encrKey); err != nil {
			return nil, ErrF(ErrCryptoInitFailed, "OpenSK: %v", err)
		}
		padded, err = sess.Open(nonce, append(append([]byte(nil), ct...), icv...), aad)
		if err != nil {
			level.Info(sa.LogSink()).Log("msg", "SK integrity check failed", "err", err)
			return nil, ErrF(ErrIntegrityFailed, "OpenSK: %v", err)
		}

	default:
		return nil, ErrF(ErrUnsupported, "OpenSK: mode %s", mode)
	}

	if sa.VendorPeer() {
		if err := ValidatePadding(padded); err != nil {
			return nil, err
		}
	}

	if len(padded) == 0 {
		return nil, ErrF(ErrParseMalformed, "OpenSK: empty decrypted body")
	}
	padLen := int(padded[len(padded)-1])
	if padLen+1 > len(padded) {
		return nil, ErrF(ErrParseMalformed, "OpenSK: pad_len %d exceeds body", padLen)
	}
	plaintext := padded[:len(padded)-1-padLen]
	return plaintext, nil
}

// verifyMAC recomputes the integrity checksum over signedRange and
// compares it against the ICV carried on the wire.
func verifyMAC(sess Session, sa SA, initiator bool, signedRange, icv []byte) error {
	if err := sess.VerifyInit(sa.IntegAlg(), sa.IntegKey(initiator)); err != nil {
		return ErrF(ErrCryptoInitFailed, "verifyMAC: %v", err)
	}
	if err := sess.Verify(signedRange, icv); err != nil {
		level.Info(sa.LogSink()).Log("msg", "SK integrity check failed", "err", err)
		return ErrF(ErrIntegrityFailed, "verifyMAC: %v", err)
	}
	return nil
}

// ValidatePadding checks that every padding byte equals pad_len itself,
// the constant-fill convention this package emits. Call only when the
// peer is known to be a compatible implementation (VendorPeer); RFC 7296
// permits arbitrary padding content otherwise.
func ValidatePadding(padded []byte) error {
	if len(padded) == 0 {
		return ErrF(ErrParseMalformed, "ValidatePadding: empty body")
	}
	padLen := int(padded[len(padded)-1])
	if padLen+1 > len(padded) {
		return ErrF(ErrParseMalformed, "ValidatePadding: pad_len %d exceeds body", padLen)
	}
	pad := padded[len(padded)-1-padLen : len(padded)-1]
	for i, v := range pad {
		if v != byte(padLen) {
			return ErrF(ErrParseMalformed, "ValidatePadding: byte %d is %#x, want %#x", i, v, byte(padLen))
		}
	}
	return nil
}
