package pkt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dn0/ikev2/pkt"
)

func TestLookupAlgCoversLegacyDesFamily(t *testing.T) {
	for _, id := range []pkt.EncrID{
		pkt.ENCR_DES, pkt.ENCR_3DES, pkt.ENCR_RC5, pkt.ENCR_IDEA,
		pkt.ENCR_CAST, pkt.ENCR_BLOWFISH, pkt.ENCR_3IDEA,
	} {
		entry, err := pkt.LookupAlg(id)
		require.NoError(t, err, "id %d", id)
		require.Equal(t, pkt.ModeCBC, entry.Mode)
		require.Equal(t, 8, entry.BlockLen)
		require.Equal(t, 8, entry.IVLen)
		require.Equal(t, 0, entry.SaltLen)
		require.Equal(t, 0, entry.ICVLen)
	}
}

func TestLookupAlgRejectsUnknownID(t *testing.T) {
	_, err := pkt.LookupAlg(pkt.EncrID(255))
	require.Error(t, err)
	kind, ok := pkt.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pkt.ErrUnsupported, kind)
}

func TestLookupAuthICVGmacLengths(t *testing.T) {
	n, err := pkt.LookupAuthICV(pkt.AUTH_AES_128_GMAC)
	require.NoError(t, err)
	require.Equal(t, 16, n)

	n, err = pkt.LookupAuthICV(pkt.AUTH_AES_192_GMAC)
	require.NoError(t, err)
	require.Equal(t, 24, n)

	n, err = pkt.LookupAuthICV(pkt.AUTH_AES_256_GMAC)
	require.NoError(t, err)
	require.Equal(t, 32, n)
}

func TestIsAEAD(t *testing.T) {
	require.True(t, pkt.ModeCCM.IsAEAD())
	require.True(t, pkt.ModeGCM.IsAEAD())
	require.False(t, pkt.ModeCBC.IsAEAD())
	require.False(t, pkt.ModeCTR.IsAEAD())
	require.False(t, pkt.ModeNone.IsAEAD())
}
