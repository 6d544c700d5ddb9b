package pkt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dn0/ikev2/pkt"
)

func TestPacketStringSummary(t *testing.T) {
	b := pkt.NewBuilder(pkt.Spi{1, 2, 3, 4, 5, 6, 7, 8}, pkt.Spi{9}, pkt.IKE_SA_INIT, pkt.FlagInitiator, 3)
	b.AddSA()
	require.NoError(t, b.AddProposal(1, pkt.ProtoIKE, nil))
	require.NoError(t, b.AddXformEncr(pkt.ENCR_AES_CBC, 128, 128))
	require.NoError(t, b.AddTransform(pkt.XfPrf, uint16(pkt.PRF_HMAC_SHA2_256)))
	require.NoError(t, b.AddTransform(pkt.XfInteg, uint16(pkt.AUTH_HMAC_SHA2_256_128)))
	require.NoError(t, b.AddTransform(pkt.XfDh, uint16(pkt.MODP_2048)))
	require.NoError(t, b.EndProposal())
	require.NoError(t, b.EndSA())
	require.NoError(t, b.AddKE(pkt.MODP_2048, make([]byte, 256)))
	require.NoError(t, b.AddNonce(fixedRNG{}, 16))
	out, err := b.Finalize()
	require.NoError(t, err)

	p, err := pkt.ParseInbound(out)
	require.NoError(t, err)

	s := p.String()
	require.Contains(t, s, "IKE_SA_INIT")
	require.Contains(t, s, "[I]")
	require.True(t, strings.Contains(s, "SA,KE,Ni/Nr"))
}

func TestBuildNotifyOnly(t *testing.T) {
	out, err := pkt.BuildNotifyOnly(pkt.Spi{1}, pkt.Spi{}, pkt.IKE_SA_INIT, pkt.FlagInitiator, 0,
		pkt.ProtoIKE, nil, pkt.COOKIE, []byte("challenge"))
	require.NoError(t, err)

	p, err := pkt.ParseInbound(out)
	require.NoError(t, err)
	require.Len(t, p.Payloads, 1)
	n := p.Payloads[0].Body.(*pkt.NotifyPayload)
	require.Equal(t, pkt.COOKIE, n.Type)
	require.Equal(t, []byte("challenge"), n.Data)
}

func TestNatDetectionHashDeterministic(t *testing.T) {
	spiI := pkt.Spi{1, 2, 3, 4, 5, 6, 7, 8}
	spiR := pkt.Spi{8, 7, 6, 5, 4, 3, 2, 1}
	addr := []byte{192, 0, 2, 1}

	h1 := pkt.NatDetectionHash(spiI, spiR, addr, 500)
	h2 := pkt.NatDetectionHash(spiI, spiR, addr, 500)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 20)

	h3 := pkt.NatDetectionHash(spiI, spiR, addr, 4500)
	require.NotEqual(t, h1, h3)
}
