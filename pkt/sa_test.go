package pkt_test

import (
	"github.com/go-kit/log"

	"github.com/dn0/ikev2/pkt"
)

// testSA is a minimal pkt.SA backed by already-derived keying material,
// used across this package's tests instead of running a real DH exchange.
type testSA struct {
	entry      pkt.AlgEntry
	authAlg    pkt.AuthID
	keyI       []byte
	keyR       []byte
	integI     []byte
	integR     []byte
	saltI      []byte
	saltR      []byte
	vendorPeer bool
}

func (s *testSA) Registry() *pkt.AlgEntry { return &s.entry }
func (s *testSA) IntegAlg() pkt.AuthID    { return s.authAlg }
func (s *testSA) VendorPeer() bool        { return s.vendorPeer }
func (s *testSA) LogSink() log.Logger     { return log.NewNopLogger() }

func (s *testSA) EncrKey(initiator bool) []byte {
	if initiator {
		return s.keyI
	}
	return s.keyR
}

func (s *testSA) IntegKey(initiator bool) []byte {
	if initiator {
		return s.integI
	}
	return s.integR
}

func (s *testSA) Salt(initiator bool) []byte {
	if initiator {
		return s.saltI
	}
	return s.saltR
}
