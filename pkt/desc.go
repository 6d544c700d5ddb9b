package pkt

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// String renders a one-line summary of the message: exchange type, flags
// and the ordered list of top-level payload kinds, in the style used for
// protocol trace logging.
func (p *Packet) String() string {
	kinds := make([]string, len(p.Payloads))
	for i, e := range p.Payloads {
		kinds[i] = e.Type.String()
	}
	dir := "I"
	if p.Header.Flags.IsResponse() {
		dir = "R"
	}
	return fmt.Sprintf("%s[%s] msgid=%d spi_i=%x spi_r=%x payloads=[%s]",
		p.Header.ExchangeType, dir, p.Header.MsgID, p.Header.SpiI, p.Header.SpiR,
		strings.Join(kinds, ","))
}

// BuildNotifyOnly produces a minimal IKE_SA_INIT-style message carrying a
// single Notify payload and nothing else, the shape used for cookie
// challenges and INVALID_KE_PAYLOAD retries.
func BuildNotifyOnly(spiI, spiR Spi, exch ExchangeType, flags Flags, msgID uint32,
	proto ProtocolID, spi []byte, typ NotifyType, data []byte) ([]byte, error) {
	b := NewBuilder(spiI, spiR, exch, flags, msgID)
	if err := b.AddNotify(proto, spi, typ, data); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// NatDetectionHash computes the NAT_DETECTION_SOURCE_IP/DESTINATION_IP
// notify data: SHA-1 over SPI_I || SPI_R || address || port (RFC 7296
// section 2.23).
func NatDetectionHash(spiI, spiR Spi, addr []byte, port uint16) []byte {
	h := sha1.New()
	h.Write(spiI[:])
	h.Write(spiR[:])
	h.Write(addr)
	h.Write([]byte{byte(port >> 8), byte(port)})
	return h.Sum(nil)
}
