package pkt

// PayloadEntry is one decoded payload in message order.
type PayloadEntry struct {
	Type     PayloadType
	Critical bool
	Body     interface{} // one of the *Payload types in payloads.go, or nil for an undecoded SK body
	Raw      []byte       // body bytes, excluding the 4-octet generic header
}

// Packet is a fully walked inbound IKEv2 message: header plus its
// top-level payload chain, with a couple of indices kept for cheap lookup.
type Packet struct {
	Header   *IkeHeader
	Payloads []PayloadEntry
	// NotifyIdx holds the index into Payloads of every Notify payload, in
	// order, so callers processing NAT-detection/cookie/error signaling
	// don't have to rescan the whole chain.
	NotifyIdx []int
	// SKIndex is the index of the Encrypted and Authenticated payload, or
	// -1 if the message carries none.
	SKIndex int
	// SKInnerFirst is the payload type of the first payload inside the SK
	// payload's encrypted portion, carried (per RFC 7296 section 3.14) in
	// the SK payload's own generic header's Next Payload field -- that
	// field does not mean "what follows SK" here, since SK is always last.
	SKInnerFirst PayloadType
}

// SK returns the packet's SK payload entry, if any.
func (p *Packet) SK() (PayloadEntry, bool) {
	if p.SKIndex < 0 {
		return PayloadEntry{}, false
	}
	return p.Payloads[p.SKIndex], true
}

func decodePayloadBody(pt PayloadType, body []byte) (interface{}, error) {
	switch pt {
	case PayloadSA:
		return decodeSA(body)
	case PayloadKE:
		return decodeKE(body)
	case PayloadIDi, PayloadIDr:
		return decodeID(body)
	case PayloadCERT, PayloadCERTREQ:
		return decodeCert(body)
	case PayloadAUTH:
		return decodeAuth(body)
	case PayloadNonce:
		return decodeNonce(body)
	case PayloadNotify:
		return decodeNotify(body)
	case PayloadDelete:
		return decodeDelete(body)
	case PayloadVendor:
		return decodeVendor(body)
	case PayloadTSi, PayloadTSr:
		return decodeTS(body)
	case PayloadCP, PayloadEAP:
		return decodeRaw(body)
	case PayloadSK:
		return nil, nil // encrypted; caller decrypts separately via OpenSK
	default:
		return nil, ErrF(ErrUnsupported, "payload type %d", pt)
	}
}

// ParseInbound walks buf's generic payload chain, decoding every payload
// it understands and enforcing the per-exchange payload-set policy. It
// does not decrypt SK payloads; callers do that with OpenSK and then pass
// the recovered plaintext to DecodeInnerPayloads to get the inner payload
// chain.
func ParseInbound(buf []byte) (*Packet, error) {
	header, err := DecodeIkeHeader(buf)
	if err != nil {
		return nil, err
	}
	if header.MajorVersion != ikeMajorVersion {
		return nil, ErrF(ErrParseMalformed, "unsupported major version %d", header.MajorVersion)
	}
	if header.Flags.IsInitiator() == header.Flags.IsResponse() {
		return nil, ErrF(ErrParseMalformed, "header flags: exactly one of INITIATOR/RESPONSE must be set")
	}
	if int(header.Length) != len(buf) {
		return nil, ErrF(ErrParseMalformed, "header length %d != buffer length %d", header.Length, len(buf))
	}

	pkt := &Packet{Header: header, SKIndex: -1}
	if err := walkPayloads(buf, IkeHeaderLen, header.NextPayload, pkt); err != nil {
		return nil, err
	}
	if err := validateExchangePolicy(pkt); err != nil {
		return nil, err
	}
	return pkt, nil
}

// walkPayloads decodes the generic payload chain starting at off with the
// given first payload kind, appending to pkt.Payloads. Used both for the
// outer message and, by callers, for the plaintext recovered from an SK
// payload (pass the inner NextPayload recorded in the SK's own generic
// header and an offset of 0 into the decrypted slice).
func walkPayloads(buf []byte, off int, next PayloadType, pkt *Packet) error {
	for next != PayloadNone {
		if off+PayloadHeaderLen > len(buf) {
			return ErrF(ErrParseMalformed, "payload chain: header overruns buffer at %d", off)
		}
		hdr, err := decodePayloadHeader(buf[off:])
		if err != nil {
			return err
		}
		if int(hdr.Length) < PayloadHeaderLen || off+int(hdr.Length) > len(buf) {
			return ErrF(ErrParseMalformed, "payload chain: bad length %d at %d", hdr.Length, off)
		}
		body := buf[off+PayloadHeaderLen : off+int(hdr.Length)]

		if next == PayloadSK {
			pkt.SKIndex = len(pkt.Payloads)
			pkt.SKInnerFirst = hdr.NextPayload
			pkt.Payloads = append(pkt.Payloads, PayloadEntry{Type: next, Critical: hdr.Critical, Raw: body})
			return nil
		}

		decoded, err := decodePayloadBody(next, body)
		if err != nil {
			// Only payloads this package does not understand are kept raw;
			// a malformed body of a known kind rejects the message.
			if kind, _ := KindOf(err); hdr.Critical || kind != ErrUnsupported {
				return err
			}
			raw, _ := decodeRaw(body)
			decoded = raw
		}
		idx := len(pkt.Payloads)
		pkt.Payloads = append(pkt.Payloads, PayloadEntry{Type: next, Critical: hdr.Critical, Body: decoded, Raw: body})
		if next == PayloadNotify {
			pkt.NotifyIdx = append(pkt.NotifyIdx, idx)
		}

		off += int(hdr.Length)
		next = hdr.NextPayload
	}
	if off != len(buf) {
		return ErrF(ErrParseMalformed, "payload chain: %d trailing bytes after last payload", len(buf)-off)
	}
	return nil
}

// DecodeInnerPayloads walks the payload chain recovered from an SK
// payload's plaintext, starting at the first-payload type carried in the
// SK payload's own generic header (Packet.SKInnerFirst).
func DecodeInnerPayloads(plaintext []byte, first PayloadType) (*Packet, error) {
	inner := &Packet{SKIndex: -1}
	if err := walkPayloads(plaintext, 0, first, inner); err != nil {
		return nil, err
	}
	return inner, nil
}

func countKind(pkt *Packet, pt PayloadType) int {
	n := 0
	for _, e := range pkt.Payloads {
		if e.Type == pt {
			n++
		}
	}
	return n
}

// validateExchangePolicy enforces the fixed payload-set rules per exchange
// type described for the parser: protected exchanges carry exactly one SK
// payload and nothing else at the top level; IKE_SA_INIT allows its
// unencrypted negotiation payloads with relaxed SA/KE/Nonce multiplicity
// when a Notify is present (cookie/NAT-detection/retry exchanges send just
// a Notify, or a Notify alongside a fresh proposal).
func validateExchangePolicy(pkt *Packet) error {
	switch pkt.Header.ExchangeType {
	case IKE_AUTH, CREATE_CHILD_SA, INFORMATIONAL:
		if len(pkt.Payloads) != 1 || pkt.SKIndex != 0 {
			return ErrF(ErrParsePolicy, "%s requires exactly one SK payload and nothing else", pkt.Header.ExchangeType)
		}
		return nil

	case IKE_SA_INIT:
		if pkt.SKIndex >= 0 {
			return ErrF(ErrParsePolicy, "IKE_SA_INIT must not carry an SK payload")
		}
		allowed := map[PayloadType]bool{
			PayloadSA: true, PayloadKE: true, PayloadNonce: true,
			PayloadNotify: true, PayloadVendor: true, PayloadCERTREQ: true,
		}
		for _, e := range pkt.Payloads {
			if !allowed[e.Type] {
				return ErrF(ErrParsePolicy, "IKE_SA_INIT: payload kind %s not allowed", e.Type)
			}
		}
		relaxed := len(pkt.NotifyIdx) > 0
		for _, pt := range []PayloadType{PayloadSA, PayloadKE, PayloadNonce} {
			n := countKind(pkt, pt)
			if relaxed {
				if n > 1 {
					return ErrF(ErrParsePolicy, "IKE_SA_INIT: more than one %s payload", pt)
				}
			} else if n != 1 {
				return ErrF(ErrParsePolicy, "IKE_SA_INIT: requires exactly one %s payload, got %d", pt, n)
			}
		}
		return nil

	case IKE_SESSION_RESUME:
		return ErrF(ErrParsePolicy, "IKE_SESSION_RESUME is not supported")

	default:
		return ErrF(ErrParsePolicy, "unrecognized exchange type %d", pkt.Header.ExchangeType)
	}
}
