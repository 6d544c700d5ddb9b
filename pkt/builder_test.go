package pkt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dn0/ikev2/pkt"
)

func TestBuilderSAProposalTransformRoundTrip(t *testing.T) {
	spiI := pkt.Spi{1, 2, 3, 4, 5, 6, 7, 8}
	spiR := pkt.Spi{}
	b := pkt.NewBuilder(spiI, spiR, pkt.IKE_SA_INIT, pkt.FlagInitiator, 1)

	b.AddSA()
	require.NoError(t, b.AddProposal(1, pkt.ProtoIKE, nil))
	require.NoError(t, b.AddXformEncr(pkt.ENCR_AES_CBC, 128, 256))
	require.NoError(t, b.AddTransform(pkt.XfPrf, uint16(pkt.PRF_HMAC_SHA2_256)))
	require.NoError(t, b.AddTransform(pkt.XfInteg, uint16(pkt.AUTH_HMAC_SHA2_256_128)))
	require.NoError(t, b.AddTransform(pkt.XfDh, uint16(pkt.MODP_2048)))
	require.NoError(t, b.EndProposal())
	require.NoError(t, b.EndSA())

	require.NoError(t, b.AddKE(pkt.MODP_2048, make([]byte, 256)))
	require.NoError(t, b.AddNonce(fixedRNG{}, 32))

	out, err := b.Finalize()
	require.NoError(t, err)

	p, err := pkt.ParseInbound(out)
	require.NoError(t, err)
	require.Len(t, p.Payloads, 3)
	require.Equal(t, pkt.PayloadSA, p.Payloads[0].Type)

	sa := p.Payloads[0].Body.(*pkt.SAPayload)
	require.Len(t, sa.Proposals, 1)
	prop := sa.Proposals[0]
	require.Equal(t, uint8(1), prop.Number)
	require.Equal(t, pkt.ProtoIKE, prop.Protocol)
	// 3 encr transforms (128,192,256 on the 64-bit step) + prf + integ + dh = 6
	require.Len(t, prop.Transforms, 6)
	require.Equal(t, pkt.XfEncr, prop.Transforms[0].Type)
	require.Equal(t, uint16(pkt.ENCR_AES_CBC), prop.Transforms[0].ID)
	require.Len(t, prop.Transforms[0].Attributes, 1)
	require.Equal(t, uint16(128), prop.Transforms[0].Attributes[0].Value)

	ke := p.Payloads[1].Body.(*pkt.KEPayload)
	require.Equal(t, pkt.MODP_2048, ke.Group)

	nonce := p.Payloads[2].Body.(*pkt.NoncePayload)
	require.Len(t, nonce.Data, 32)
}

func TestAddXformEncrFixedKeyRejectsKeylen(t *testing.T) {
	b := pkt.NewBuilder(pkt.Spi{}, pkt.Spi{}, pkt.IKE_SA_INIT, 0, 0)
	b.AddSA()
	require.NoError(t, b.AddProposal(1, pkt.ProtoIKE, nil))
	err := b.AddXformEncr(pkt.ENCR_3DES, 64, 64)
	require.Error(t, err)
}

func TestDeletePayloadRoundTrip(t *testing.T) {
	b := pkt.NewBuilder(pkt.Spi{}, pkt.Spi{}, pkt.INFORMATIONAL, 0, 2)
	require.NoError(t, b.BeginSK())
	b.AddDelete(pkt.ProtoESP)
	require.NoError(t, b.AddDeleteSPI([]byte{0xaa, 0xbb, 0xcc, 0xdd}))
	require.NoError(t, b.AddDeleteSPI([]byte{1, 2, 3, 4}))
	require.NoError(t, b.EndDelete())

	sa := &testSA{entry: pkt.AlgEntry{Encr: pkt.ENCR_NULL, Mode: pkt.ModeNone, BlockLen: 1}, authAlg: pkt.AUTH_NONE}
	require.NoError(t, b.CloseSK(sa, fixedRNG{}, noAuthToken{}, true))
	out, err := b.Finalize()
	require.NoError(t, err)

	inner, err := pkt.OpenSK(out, pkt.IkeHeaderLen, sa, noAuthToken{}, true)
	require.NoError(t, err)

	p, err := pkt.DecodeInnerPayloads(inner, pkt.PayloadDelete)
	require.NoError(t, err)
	require.Len(t, p.Payloads, 1)
	del := p.Payloads[0].Body.(*pkt.DeletePayload)
	require.Equal(t, pkt.ProtoESP, del.Protocol)
	require.Len(t, del.SPIs, 2)
}
