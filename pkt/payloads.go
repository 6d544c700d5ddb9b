package pkt

import "github.com/msgboxio/packets"

// Attribute is one decoded transform attribute. Only TV (type/value,
// 16-bit) attributes are defined by this registry (KEYLEN); TLV attributes
// would carry Data instead of Value.
type Attribute struct {
	Type  AttributeType
	Value uint16
	Data  []byte // non-nil only for TLV-form attributes
}

// Transform is one decoded SA transform substructure.
type Transform struct {
	Type       TransformType
	ID         uint16
	Attributes []Attribute
}

// Proposal is one decoded SA proposal substructure.
type Proposal struct {
	Number     uint8
	Protocol   ProtocolID
	SPI        []byte
	Transforms []Transform
}

// SAPayload is a decoded Security Association payload.
type SAPayload struct {
	Proposals []Proposal
}

func decodeAttribute(b []byte) (Attribute, int, error) {
	if len(b) < 4 {
		return Attribute{}, 0, ErrF(ErrParseMalformed, "attribute: %d bytes < 4", len(b))
	}
	typeField, _ := packets.ReadB16(b, 0)
	if typeField&0x8000 != 0 {
		val, _ := packets.ReadB16(b, 2)
		return Attribute{Type: AttributeType(typeField &^ 0x8000), Value: val}, 4, nil
	}
	length, _ := packets.ReadB16(b, 2)
	if len(b) < 4+int(length) {
		return Attribute{}, 0, ErrF(ErrParseMalformed, "TLV attribute: declared length %d exceeds buffer", length)
	}
	data := append([]byte(nil), b[4:4+int(length)]...)
	return Attribute{Type: AttributeType(typeField), Data: data}, 4 + int(length), nil
}

func decodeTransform(b []byte) (Transform, int, error) {
	if len(b) < minTransformLen {
		return Transform{}, 0, ErrF(ErrParseMalformed, "transform: %d bytes < %d", len(b), minTransformLen)
	}
	length, _ := packets.ReadB16(b, 2)
	if int(length) < minTransformLen || int(length) > len(b) {
		return Transform{}, 0, ErrF(ErrParseMalformed, "transform: bad length %d", length)
	}
	t := Transform{Type: TransformType(b[4])}
	t.ID, _ = packets.ReadB16(b, 6)
	rest := b[minTransformLen:length]
	for len(rest) > 0 {
		attr, n, err := decodeAttribute(rest)
		if err != nil {
			return Transform{}, 0, err
		}
		t.Attributes = append(t.Attributes, attr)
		rest = rest[n:]
	}
	return t, int(length), nil
}

func decodeProposal(b []byte) (Proposal, int, error) {
	if len(b) < minProposalLen {
		return Proposal{}, 0, ErrF(ErrParseMalformed, "proposal: %d bytes < %d", len(b), minProposalLen)
	}
	length, _ := packets.ReadB16(b, 2)
	if int(length) < minProposalLen || int(length) > len(b) {
		return Proposal{}, 0, ErrF(ErrParseMalformed, "proposal: bad length %d", length)
	}
	p := Proposal{Number: b[4], Protocol: ProtocolID(b[5])}
	spiLen := int(b[6])
	numXf := int(b[7])
	off := minProposalLen
	if off+spiLen > int(length) {
		return Proposal{}, 0, ErrF(ErrParseMalformed, "proposal: spi length %d overruns proposal", spiLen)
	}
	p.SPI = append([]byte(nil), b[off:off+spiLen]...)
	off += spiLen
	for i := 0; i < numXf; i++ {
		xf, n, err := decodeTransform(b[off:length])
		if err != nil {
			return Proposal{}, 0, err
		}
		p.Transforms = append(p.Transforms, xf)
		off += n
	}
	if len(p.Transforms) != numXf {
		return Proposal{}, 0, ErrF(ErrParseMalformed, "proposal: declared %d transforms, decoded %d", numXf, len(p.Transforms))
	}
	return p, int(length), nil
}

func decodeSA(body []byte) (*SAPayload, error) {
	sa := &SAPayload{}
	off := 0
	for off < len(body) {
		p, n, err := decodeProposal(body[off:])
		if err != nil {
			return nil, err
		}
		sa.Proposals = append(sa.Proposals, p)
		off += n
	}
	if len(sa.Proposals) == 0 {
		return nil, ErrF(ErrParseMalformed, "SA: no proposals")
	}
	return sa, nil
}

// KEPayload is a decoded Key Exchange payload.
type KEPayload struct {
	Group DhID
	Data  []byte
}

func decodeKE(body []byte) (*KEPayload, error) {
	if len(body) < 4 {
		return nil, ErrF(ErrParseMalformed, "KE: %d bytes < 4", len(body))
	}
	g, _ := packets.ReadB16(body, 0)
	return &KEPayload{Group: DhID(g), Data: append([]byte(nil), body[4:]...)}, nil
}

// IDPayload is a decoded Identification payload (IDi or IDr).
type IDPayload struct {
	Kind IDType
	Data []byte
}

func decodeID(body []byte) (*IDPayload, error) {
	if len(body) < 4 {
		return nil, ErrF(ErrParseMalformed, "ID: %d bytes < 4", len(body))
	}
	id := &IDPayload{Kind: IDType(body[0]), Data: append([]byte(nil), body[4:]...)}
	if _, err := idBodyLen(id.Kind, id.Data); err != nil {
		return nil, err
	}
	return id, nil
}

// CertPayload is a decoded Certificate or Certificate Request payload.
type CertPayload struct {
	Encoding uint8
	Data     []byte
}

func decodeCert(body []byte) (*CertPayload, error) {
	if len(body) < 1 {
		return nil, ErrF(ErrParseMalformed, "CERT: empty body")
	}
	return &CertPayload{Encoding: body[0], Data: append([]byte(nil), body[1:]...)}, nil
}

// AuthPayload is a decoded Authentication payload.
type AuthPayload struct {
	Method AuthMethod
	Data   []byte
}

func decodeAuth(body []byte) (*AuthPayload, error) {
	if len(body) < 4 {
		return nil, ErrF(ErrParseMalformed, "AUTH: %d bytes < 4", len(body))
	}
	return &AuthPayload{Method: AuthMethod(body[0]), Data: append([]byte(nil), body[4:]...)}, nil
}

// NoncePayload is a decoded Nonce payload.
type NoncePayload struct {
	Data []byte
}

func decodeNonce(body []byte) (*NoncePayload, error) {
	if len(body) < 16 || len(body) > 256 {
		return nil, ErrF(ErrParseMalformed, "Nonce: length %d out of [16,256]", len(body))
	}
	return &NoncePayload{Data: append([]byte(nil), body...)}, nil
}

// NotifyPayload is a decoded Notify payload.
type NotifyPayload struct {
	Protocol ProtocolID
	SPI      []byte
	Type     NotifyType
	Data     []byte
}

func decodeNotify(body []byte) (*NotifyPayload, error) {
	if len(body) < 4 {
		return nil, ErrF(ErrParseMalformed, "Notify: %d bytes < 4", len(body))
	}
	spiLen := int(body[1])
	if len(body) < 4+spiLen {
		return nil, ErrF(ErrParseMalformed, "Notify: spi length %d overruns payload", spiLen)
	}
	typ, _ := packets.ReadB16(body, 2)
	n := &NotifyPayload{
		Protocol: ProtocolID(body[0]),
		SPI:      append([]byte(nil), body[4:4+spiLen]...),
		Type:     NotifyType(typ),
		Data:     append([]byte(nil), body[4+spiLen:]...),
	}
	return n, nil
}

// DeletePayload is a decoded Delete payload.
type DeletePayload struct {
	Protocol ProtocolID
	SPIs     [][]byte
}

func decodeDelete(body []byte) (*DeletePayload, error) {
	if len(body) < 4 {
		return nil, ErrF(ErrParseMalformed, "Delete: %d bytes < 4", len(body))
	}
	proto := ProtocolID(body[0])
	spiLen := int(body[1])
	count, _ := packets.ReadB16(body, 2)
	off := 4
	d := &DeletePayload{Protocol: proto}
	for i := 0; i < int(count); i++ {
		if off+spiLen > len(body) {
			return nil, ErrF(ErrParseMalformed, "Delete: spi %d overruns payload", i)
		}
		d.SPIs = append(d.SPIs, append([]byte(nil), body[off:off+spiLen]...))
		off += spiLen
	}
	if off != len(body) {
		return nil, ErrF(ErrParseMalformed, "Delete: trailing bytes after declared SPI count")
	}
	return d, nil
}

// VendorPayload is a decoded Vendor ID payload.
type VendorPayload struct {
	Data []byte
}

func decodeVendor(body []byte) (*VendorPayload, error) {
	return &VendorPayload{Data: append([]byte(nil), body...)}, nil
}

// Selector is one decoded traffic selector.
type Selector struct {
	Type      SelectorType
	IPProto   uint8
	StartPort uint16
	EndPort   uint16
	Start     []byte
	End       []byte
}

// TSPayload is a decoded Traffic Selector payload (TSi or TSr).
type TSPayload struct {
	Selectors []Selector
}

func decodeSelector(b []byte) (Selector, int, error) {
	if len(b) < 8 {
		return Selector{}, 0, ErrF(ErrParseMalformed, "selector: %d bytes < 8", len(b))
	}
	length, _ := packets.ReadB16(b, 2)
	if int(length) < 8 || int(length) > len(b) {
		return Selector{}, 0, ErrF(ErrParseMalformed, "selector: bad length %d", length)
	}
	s := Selector{Type: SelectorType(b[0]), IPProto: b[1]}
	s.StartPort, _ = packets.ReadB16(b, 4)
	s.EndPort, _ = packets.ReadB16(b, 6)
	var addrLen int
	switch s.Type {
	case TS_IPV4_ADDR_RANGE:
		addrLen = 4
	case TS_IPV6_ADDR_RANGE:
		addrLen = 16
	default:
		return Selector{}, 0, ErrF(ErrUnsupported, "selector: unknown type %d", s.Type)
	}
	if int(length) != 8+2*addrLen {
		return Selector{}, 0, ErrF(ErrParseMalformed, "selector: length %d inconsistent with type %d", length, s.Type)
	}
	s.Start = append([]byte(nil), b[8:8+addrLen]...)
	s.End = append([]byte(nil), b[8+addrLen:8+2*addrLen]...)
	return s, int(length), nil
}

func decodeTS(body []byte) (*TSPayload, error) {
	if len(body) < 4 {
		return nil, ErrF(ErrParseMalformed, "TS: %d bytes < 4", len(body))
	}
	count := int(body[0])
	ts := &TSPayload{}
	off := 4
	for i := 0; i < count; i++ {
		sel, n, err := decodeSelector(body[off:])
		if err != nil {
			return nil, err
		}
		ts.Selectors = append(ts.Selectors, sel)
		off += n
	}
	if off != len(body) {
		return nil, ErrF(ErrParseMalformed, "TS: trailing bytes after declared selector count")
	}
	return ts, nil
}

// RawPayload holds the undecoded body of payload kinds this package treats
// opaquely (CP, EAP): consumed by higher layers, not interpreted here.
type RawPayload struct {
	Data []byte
}

func decodeRaw(body []byte) (*RawPayload, error) {
	return &RawPayload{Data: append([]byte(nil), body...)}, nil
}
