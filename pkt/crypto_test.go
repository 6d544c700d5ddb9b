package pkt_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dn0/ikev2/pkt"
	"github.com/dn0/ikev2/softtoken"
)

type realRNG struct{}

func (realRNG) FillRandom(b []byte) error {
	_, err := rand.Read(b)
	return err
}

func buildAndOpenSK(t *testing.T, sa *testSA, addBody func(b *pkt.Builder)) []byte {
	t.Helper()
	tok := softtoken.New()
	b := pkt.NewBuilder(pkt.Spi{1}, pkt.Spi{2}, pkt.IKE_AUTH, pkt.FlagInitiator, 7)
	require.NoError(t, b.BeginSK())
	addBody(b)
	require.NoError(t, b.CloseSK(sa, realRNG{}, tok, true))
	out, err := b.Finalize()
	require.NoError(t, err)

	p, err := pkt.ParseInbound(out)
	require.NoError(t, err)
	require.Equal(t, 0, p.SKIndex)

	plaintext, err := pkt.OpenSK(out, pkt.IkeHeaderLen, sa, tok, true)
	require.NoError(t, err)

	inner, err := pkt.DecodeInnerPayloads(plaintext, p.SKInnerFirst)
	require.NoError(t, err)
	require.Len(t, inner.Payloads, 1)
	require.Equal(t, pkt.PayloadNotify, inner.Payloads[0].Type)
	return out
}

func TestSKEnvelopeCBC(t *testing.T) {
	sa := &testSA{
		entry:   pkt.AlgEntry{Encr: pkt.ENCR_AES_CBC, Mode: pkt.ModeCBC, BlockLen: 16, IVLen: 16},
		authAlg: pkt.AUTH_HMAC_SHA2_256_128,
		keyI:    make([]byte, 16), integI: make([]byte, 32),
	}
	buildAndOpenSK(t, sa, func(b *pkt.Builder) {
		require.NoError(t, b.AddNotify(pkt.ProtoIKE, nil, pkt.AUTHENTICATION_FAILED, nil))
	})
}

func TestSKEnvelopeCTR(t *testing.T) {
	sa := &testSA{
		entry:   pkt.AlgEntry{Encr: pkt.ENCR_AES_CTR, Mode: pkt.ModeCTR, BlockLen: 16, IVLen: 8, SaltLen: 4},
		authAlg: pkt.AUTH_HMAC_SHA1_96,
		keyI:    make([]byte, 16), integI: make([]byte, 20), saltI: []byte{9, 9, 9, 9},
	}
	buildAndOpenSK(t, sa, func(b *pkt.Builder) {
		require.NoError(t, b.AddNotify(pkt.ProtoIKE, nil, pkt.AUTHENTICATION_FAILED, []byte("ctr-mode")))
	})
}

func TestSKEnvelopeGCM(t *testing.T) {
	sa := &testSA{
		entry: pkt.AlgEntry{Encr: pkt.ENCR_AES_GCM_16, Mode: pkt.ModeGCM, BlockLen: 16, IVLen: 8, SaltLen: 4, ICVLen: 16},
		keyI:  make([]byte, 16), saltI: []byte{1, 2, 3, 4},
	}
	buildAndOpenSK(t, sa, func(b *pkt.Builder) {
		require.NoError(t, b.AddNotify(pkt.ProtoIKE, nil, pkt.AUTHENTICATION_FAILED, []byte("gcm-mode")))
	})
}

func TestSKEnvelopeCCM(t *testing.T) {
	sa := &testSA{
		entry: pkt.AlgEntry{Encr: pkt.ENCR_AES_CCM_16, Mode: pkt.ModeCCM, BlockLen: 16, IVLen: 8, SaltLen: 3, ICVLen: 16},
		keyI:  make([]byte, 16), saltI: []byte{1, 2, 3},
	}
	buildAndOpenSK(t, sa, func(b *pkt.Builder) {
		require.NoError(t, b.AddNotify(pkt.ProtoIKE, nil, pkt.AUTHENTICATION_FAILED, []byte("ccm-mode")))
	})
}

func TestSKEnvelopeTamperedAADFails(t *testing.T) {
	sa := &testSA{
		entry: pkt.AlgEntry{Encr: pkt.ENCR_AES_GCM_16, Mode: pkt.ModeGCM, BlockLen: 16, IVLen: 8, SaltLen: 4, ICVLen: 16},
		keyI:  make([]byte, 16), saltI: []byte{1, 2, 3, 4},
	}
	out := buildAndOpenSK(t, sa, func(b *pkt.Builder) {
		require.NoError(t, b.AddNotify(pkt.ProtoIKE, nil, pkt.AUTHENTICATION_FAILED, nil))
	})
	tampered := append([]byte(nil), out...)
	tampered[0] ^= 0xff // flips a byte of the initiator SPI, part of the AEAD's AAD

	tok := softtoken.New()
	_, err := pkt.OpenSK(tampered, pkt.IkeHeaderLen, sa, tok, true)
	require.Error(t, err)
	kind, ok := pkt.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pkt.ErrIntegrityFailed, kind)
}

func TestValidatePaddingRejectsNonConstantFill(t *testing.T) {
	// pad_len 2, two padding bytes both required to equal 2.
	require.NoError(t, pkt.ValidatePadding([]byte{0xaa, 2, 2, 2}))
	require.Error(t, pkt.ValidatePadding([]byte{0xaa, 0, 2, 2}))
	require.Error(t, pkt.ValidatePadding([]byte{0xaa, 2, 1, 2}))
}

// TestSKEnvelopeVendorPeerRejectsTamperedPadding forges a correctly
// encrypted, correctly authenticated message whose padding bytes were
// tampered, to isolate ValidatePadding's contribution: the cipher and the
// ICV both accept it, so only wiring ValidatePadding into OpenSK (gated on
// SA.VendorPeer) catches it.
func TestSKEnvelopeVendorPeerRejectsTamperedPadding(t *testing.T) {
	sa := &testSA{
		entry:   pkt.AlgEntry{Encr: pkt.ENCR_AES_CBC, Mode: pkt.ModeCBC, BlockLen: 16, IVLen: 16},
		authAlg: pkt.AUTH_HMAC_SHA2_256_128,
		keyI:    make([]byte, 16), integI: make([]byte, 32),
	}
	tok := softtoken.New()
	b := pkt.NewBuilder(pkt.Spi{1}, pkt.Spi{2}, pkt.IKE_AUTH, pkt.FlagInitiator, 7)
	require.NoError(t, b.BeginSK())
	require.NoError(t, b.AddNotify(pkt.ProtoIKE, nil, pkt.AUTHENTICATION_FAILED, []byte("abcde")))
	require.NoError(t, b.CloseSK(sa, realRNG{}, tok, true))
	out, err := b.Finalize()
	require.NoError(t, err)

	icvLen, err := pkt.LookupAuthICV(sa.IntegAlg())
	require.NoError(t, err)
	plainStart := pkt.IkeHeaderLen + pkt.PayloadHeaderLen
	iv := out[plainStart : plainStart+16]
	ct := out[plainStart+16 : len(out)-icvLen]

	sess, err := tok.SessionAcquire(sa.Registry().Encr, sa.Registry().Mode)
	require.NoError(t, err)
	defer tok.SessionRelease(sess)

	require.NoError(t, sess.DecryptInit(sa.EncrKey(true), iv))
	padded, err := sess.Decrypt(ct)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(padded), 3)
	padded[len(padded)-2] ^= 0xff // corrupt a padding byte, not the pad_len field itself

	require.NoError(t, sess.EncryptInit(sa.EncrKey(true), iv))
	newCT, err := sess.Encrypt(padded)
	require.NoError(t, err)
	require.Equal(t, len(ct), len(newCT))

	tampered := append([]byte(nil), out[:plainStart]...)
	tampered = append(tampered, iv...)
	tampered = append(tampered, newCT...)
	require.NoError(t, sess.SignInit(sa.IntegAlg(), sa.IntegKey(true)))
	mac, err := sess.Sign(tampered)
	require.NoError(t, err)
	tampered = append(tampered, mac...)
	require.Equal(t, len(out), len(tampered))

	sa.vendorPeer = false
	_, err = pkt.OpenSK(tampered, pkt.IkeHeaderLen, sa, tok, true)
	require.NoError(t, err, "non-vendor peer: arbitrary padding content is allowed")

	sa.vendorPeer = true
	_, err = pkt.OpenSK(tampered, pkt.IkeHeaderLen, sa, tok, true)
	require.Error(t, err)
	kind, ok := pkt.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pkt.ErrParseMalformed, kind)
}

func TestSKEnvelopeTamperedICVFails(t *testing.T) {
	sa := &testSA{
		entry: pkt.AlgEntry{Encr: pkt.ENCR_AES_GCM_16, Mode: pkt.ModeGCM, BlockLen: 16, IVLen: 8, SaltLen: 4, ICVLen: 16},
		keyI:  make([]byte, 16), saltI: []byte{1, 2, 3, 4},
	}
	out := buildAndOpenSK(t, sa, func(b *pkt.Builder) {
		require.NoError(t, b.AddNotify(pkt.ProtoIKE, nil, pkt.AUTHENTICATION_FAILED, nil))
	})
	tampered := append([]byte(nil), out...)
	tampered[len(tampered)-1] ^= 0xff

	tok := softtoken.New()
	_, err := pkt.OpenSK(tampered, pkt.IkeHeaderLen, sa, tok, true)
	require.Error(t, err)
	kind, ok := pkt.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pkt.ErrIntegrityFailed, kind)
}
