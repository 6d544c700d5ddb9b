package pkt_test

import "github.com/dn0/ikev2/pkt"

// fixedRNG fills buffers with an incrementing byte sequence so crypto
// tests are reproducible without needing real randomness.
type fixedRNG struct{}

func (fixedRNG) FillRandom(b []byte) error {
	for i := range b {
		b[i] = byte(i)
	}
	return nil
}

// noAuthToken is a pkt.Token whose sessions pass plaintext straight
// through, for exercising the SK framing (padding, length patching,
// AAD scope) independent of any real cipher.
type noAuthToken struct{}

func (noAuthToken) SessionAcquire(pkt.EncrID, pkt.CipherMode) (pkt.Session, error) {
	return &passthroughSession{}, nil
}
func (noAuthToken) SessionRelease(pkt.Session) {}

type passthroughSession struct{}

func (*passthroughSession) EncryptInit(key, iv []byte) error { return nil }
func (*passthroughSession) Encrypt(pt []byte) ([]byte, error) {
	return append([]byte(nil), pt...), nil
}
func (*passthroughSession) DecryptInit(key, iv []byte) error { return nil }
func (*passthroughSession) Decrypt(ct []byte) ([]byte, error) {
	return append([]byte(nil), ct...), nil
}
func (*passthroughSession) EncryptBlock(key, block []byte) ([]byte, error) {
	return append([]byte(nil), block...), nil
}
func (*passthroughSession) SealInit(key []byte) error { return nil }
func (*passthroughSession) Seal(nonce, pt, aad []byte) ([]byte, error) {
	return append([]byte(nil), pt...), nil
}
func (*passthroughSession) Open(nonce, ct, aad []byte) ([]byte, error) {
	return append([]byte(nil), ct...), nil
}
func (*passthroughSession) SignInit(alg pkt.AuthID, key []byte) error { return nil }
func (*passthroughSession) Sign(data []byte) ([]byte, error)         { return nil, nil }
func (*passthroughSession) VerifyInit(alg pkt.AuthID, key []byte) error { return nil }
func (*passthroughSession) Verify(data, mac []byte) error             { return nil }
