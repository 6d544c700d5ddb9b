package pkt

import (
	"github.com/msgboxio/packets"
)

const (
	// IkeHeaderLen is the fixed size of the IKE header (RFC 7296 section 3.1).
	IkeHeaderLen = 28
	// PayloadHeaderLen is the fixed size of the generic payload header
	// (RFC 7296 section 3.2).
	PayloadHeaderLen = 4

	ikeMajorVersion = 2
)

// IkeHeader is the 28-octet fixed header every IKEv2 datagram begins with.
type IkeHeader struct {
	SpiI, SpiR   Spi
	NextPayload  PayloadType
	MajorVersion uint8
	MinorVersion uint8
	ExchangeType ExchangeType
	Flags        Flags
	MsgID        uint32
	Length       uint32
}

// DecodeIkeHeader parses the fixed header from the start of b. It does not
// validate policy (version, flag conflicts, length-vs-buffer) -- that is
// the Parser's job, so this stays reusable for the post-decrypt re-parse.
func DecodeIkeHeader(b []byte) (*IkeHeader, error) {
	if len(b) < IkeHeaderLen {
		return nil, ErrF(ErrParseMalformed, "header: %d bytes < %d", len(b), IkeHeaderLen)
	}
	h := &IkeHeader{}
	copy(h.SpiI[:], b[0:8])
	copy(h.SpiR[:], b[8:16])
	nh, _ := packets.ReadB8(b, 16)
	h.NextPayload = PayloadType(nh)
	ver, _ := packets.ReadB8(b, 17)
	h.MajorVersion = ver >> 4
	h.MinorVersion = ver & 0x0f
	et, _ := packets.ReadB8(b, 18)
	h.ExchangeType = ExchangeType(et)
	fl, _ := packets.ReadB8(b, 19)
	h.Flags = Flags(fl)
	h.MsgID, _ = packets.ReadB32(b, 20)
	h.Length, _ = packets.ReadB32(b, 24)
	return h, nil
}

// Encode renders the header to a fresh 28-byte slice.
func (h *IkeHeader) Encode() []byte {
	b := make([]byte, IkeHeaderLen)
	copy(b[0:8], h.SpiI[:])
	copy(b[8:16], h.SpiR[:])
	packets.WriteB8(b, 16, uint8(h.NextPayload))
	packets.WriteB8(b, 17, h.MajorVersion<<4|h.MinorVersion&0x0f)
	packets.WriteB8(b, 18, uint8(h.ExchangeType))
	packets.WriteB8(b, 19, uint8(h.Flags))
	packets.WriteB32(b, 20, h.MsgID)
	packets.WriteB32(b, 24, h.Length)
	return b
}

// PayloadHeader is the 4-octet generic header prefixing every payload.
type PayloadHeader struct {
	NextPayload PayloadType
	Critical    bool
	Length      uint16 // includes this 4-octet header
}

func decodePayloadHeader(b []byte) (*PayloadHeader, error) {
	if len(b) < PayloadHeaderLen {
		return nil, ErrF(ErrParseMalformed, "payload header: %d bytes < %d", len(b), PayloadHeaderLen)
	}
	h := &PayloadHeader{}
	nh, _ := packets.ReadB8(b, 0)
	h.NextPayload = PayloadType(nh)
	fl, _ := packets.ReadB8(b, 1)
	h.Critical = fl&0x80 != 0
	h.Length, _ = packets.ReadB16(b, 2)
	return h, nil
}
