package pkt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dn0/ikev2/pkt"
)

func TestSessionPoolGetPutReuse(t *testing.T) {
	pool := pkt.NewSessionPool(noAuthToken{}, pkt.ENCR_AES_CBC, pkt.ModeCBC)

	s1, err := pool.Get()
	require.NoError(t, err)
	require.Equal(t, 1, pool.OnLoan())

	s2, err := pool.Get()
	require.NoError(t, err)
	require.Equal(t, 2, pool.OnLoan())

	pool.Put(s1)
	require.Equal(t, 1, pool.OnLoan())
	pool.Put(s2)
	require.Equal(t, 0, pool.OnLoan())

	s3, err := pool.Get()
	require.NoError(t, err)
	require.NotNil(t, s3)
	require.Equal(t, 1, pool.OnLoan())
}

type failingToken struct{ calls int }

func (t *failingToken) SessionAcquire(pkt.EncrID, pkt.CipherMode) (pkt.Session, error) {
	t.calls++
	if t.calls > 2 {
		return nil, pkt.ErrF(pkt.ErrCryptoInitFailed, "out of handles")
	}
	return &passthroughSession{}, nil
}
func (*failingToken) SessionRelease(pkt.Session) {}

func TestSessionPoolKeepsPartialChunkOnGrowthFailure(t *testing.T) {
	tok := &failingToken{}
	pool := pkt.NewSessionPool(tok, pkt.ENCR_AES_CBC, pkt.ModeCBC)

	s, err := pool.Get()
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, 1, pool.OnLoan())

	_, err = pool.Get()
	require.NoError(t, err)
	require.Equal(t, 2, pool.OnLoan())
}

func TestSessionPoolGrowthFailsWithNoIdleSessions(t *testing.T) {
	tok := &failingToken{calls: 2}
	pool := pkt.NewSessionPool(tok, pkt.ENCR_AES_CBC, pkt.ModeCBC)

	_, err := pool.Get()
	require.Error(t, err)
	kind, ok := pkt.KindOf(err)
	require.True(t, ok)
	require.Equal(t, pkt.ErrCryptoInitFailed, kind)
}
