package pkt

import (
	"github.com/msgboxio/packets"
)

// frameKind tags a container-stack entry. Names mirror the data-model
// container kinds: an SA payload's proposal list, a proposal's transform
// list, a DELETE payload's SPI list, a TS payload's selector list, and the
// SK payload awaiting encryption.
type frameKind uint8

const (
	frameSAProp frameKind = iota
	framePropXform
	frameDelete
	frameTS
	frameSK
)

// frameData is one entry of the builder's container stack: a kind tag, the
// offset of the container's own record in the buffer, a running child
// counter, and whatever extra bookkeeping that kind needs.
type frameData struct {
	kind frameKind
	// start is the offset of this container's own record (proposal or
	// transform header, or the SK generic payload header).
	start int
	// lastChildSlot is the offset of the "last substruc" byte belonging to
	// the most recently appended child (proposal or transform); -1 if no
	// child has been appended yet. Only used by frameSAProp/framePropXform.
	lastChildSlot int
	// moreMarker is the byte value written into a sibling's last-substruc
	// slot to mean "another one follows" (2 for proposals, 3 for
	// transforms).
	moreMarker uint8
	// childCount is incremented once per child; finalize writes it into
	// countField if countField >= 0.
	childCount int
	// countField is the offset of the count byte/u16 to patch at close,
	// or -1 if this container has no count field of its own.
	countField int
	// openTransform is the offset of a transform header inside the current
	// proposal whose Length has not yet been patched, or -1. Only used by
	// framePropXform.
	openTransform int
}

// Builder accumulates an outbound IKEv2 datagram. Zero value is not usable;
// create with NewBuilder.
type Builder struct {
	buf []byte
	// prevNext is the offset of the "Next Payload" byte slot that must be
	// patched to the kind of the next payload appended at the *outer*
	// level. It starts out pointing at the IKE header's own NextPayload
	// byte (offset 16), per the wire-primitives contract.
	prevNext int
	stack    []frameData

	header IkeHeader
}

// NewBuilder starts a packet with the given header fields. Length and
// NextPayload are computed by the builder and must not be set by the
// caller.
func NewBuilder(spiI, spiR Spi, exch ExchangeType, flags Flags, msgID uint32) *Builder {
	b := &Builder{
		header: IkeHeader{
			SpiI: spiI, SpiR: spiR,
			MajorVersion: ikeMajorVersion,
			ExchangeType: exch,
			Flags:        flags,
			MsgID:        msgID,
		},
	}
	b.buf = b.header.Encode()
	b.prevNext = 16 // offset of NextPayload byte in the IKE header
	return b
}

// chainNext patches the previously-recorded Next-Payload slot to pt. It
// leaves the slot pointer unchanged; beginPayload moves it to the new
// payload's own NextPayload byte.
func (b *Builder) chainNext(pt PayloadType) {
	packets.WriteB8(b.buf, b.prevNext, uint8(pt))
}

// beginPayload appends a zeroed generic payload header, chains the
// previous slot to pt, and returns the header's offset.
func (b *Builder) beginPayload(pt PayloadType, critical bool) int {
	b.chainNext(pt)
	off := len(b.buf)
	hdr := make([]byte, PayloadHeaderLen)
	if critical {
		hdr[1] = 0x80
	}
	b.buf = append(b.buf, hdr...)
	b.prevNext = off // next sibling chains from *this* header's NextPayload byte
	return off
}

// endPayload back-patches the Length field of the payload header at off
// using the current cursor.
func (b *Builder) endPayload(off int) {
	packets.WriteB16(b.buf, off+2, uint16(len(b.buf)-off))
}

// appendPayload is the common path for flat (non-container) payloads: open
// a generic header, let body append the payload's bytes, close the header.
func (b *Builder) appendPayload(pt PayloadType, critical bool, body func(*Builder)) {
	off := b.beginPayload(pt, critical)
	body(b)
	b.endPayload(off)
}

// Finalize patches the IKE header's Length field and returns the finished
// byte buffer. The builder must not be used afterward.
func (b *Builder) Finalize() ([]byte, error) {
	if len(b.stack) != 0 {
		return nil, ErrF(ErrOutOfSpace, "finalize: %d container(s) still open", len(b.stack))
	}
	packets.WriteB32(b.buf, 24, uint32(len(b.buf)))
	return b.buf, nil
}

func (b *Builder) top() *frameData {
	if len(b.stack) == 0 {
		return nil
	}
	return &b.stack[len(b.stack)-1]
}

// ---- SA / Proposal / Transform ----

// AddSA opens an SA payload and pushes the proposal-list container.
func (b *Builder) AddSA() {
	off := b.beginPayload(PayloadSA, false)
	b.stack = append(b.stack, frameData{kind: frameSAProp, start: off, lastChildSlot: -1, moreMarker: 2, countField: -1})
}

// EndSA closes the proposal-list container and the SA payload.
func (b *Builder) EndSA() error {
	f := b.top()
	if f == nil || f.kind != frameSAProp {
		return ErrF(ErrOutOfSpace, "EndSA: no open SA container")
	}
	if f.childCount == 0 {
		return ErrF(ErrOutOfSpace, "EndSA: SA has no proposals")
	}
	// last proposal's last-substruc byte must read 0 (this is the last one)
	packets.WriteB8(b.buf, f.lastChildSlot, 0)
	b.stack = b.stack[:len(b.stack)-1]
	b.endPayload(f.start)
	return nil
}

const minProposalLen = 8

// spiLenForProto returns the SPI size the C source fixes per protocol: IKE
// proposals carry either no SPI (initial negotiation) or the full 8-octet
// IKE SPI; AH/ESP child SAs always carry a 4-octet SPI. The original
// add_prop() used "==" where "=" was intended when computing this for the
// IKE case; this assigns it directly instead of copying that bug.
func spiLenForProto(proto ProtocolID, spi []byte) int {
	if proto == ProtoIKE {
		if len(spi) == 0 {
			return 0
		}
		return 8
	}
	return 4
}

// AddProposal opens a proposal inside the current SA container and pushes
// its transform-list container. spi must already be sized per
// spiLenForProto (the builder does not silently truncate/pad it).
func (b *Builder) AddProposal(num uint8, proto ProtocolID, spi []byte) error {
	f := b.top()
	if f == nil || f.kind != frameSAProp {
		return ErrF(ErrOutOfSpace, "AddProposal: no open SA container")
	}
	want := spiLenForProto(proto, spi)
	if len(spi) != want {
		return ErrF(ErrOutOfSpace, "AddProposal: spi len %d != %d for proto %d", len(spi), want, proto)
	}
	if f.lastChildSlot >= 0 {
		packets.WriteB8(b.buf, f.lastChildSlot, f.moreMarker)
	}
	start := len(b.buf)
	hdr := make([]byte, minProposalLen)
	hdr[4] = num
	hdr[5] = uint8(proto)
	hdr[6] = uint8(len(spi))
	b.buf = append(b.buf, hdr...)
	b.buf = append(b.buf, spi...)

	f.lastChildSlot = start
	f.childCount++

	b.stack = append(b.stack, frameData{
		kind: framePropXform, start: start, lastChildSlot: -1, moreMarker: 3,
		countField: start + 7, openTransform: -1,
	})
	return nil
}

const minTransformLen = 8

// closeOpenTransform patches the Length field of the transform currently
// being built, if any.
func (b *Builder) closeOpenTransform(f *frameData) {
	if f.openTransform < 0 {
		return
	}
	packets.WriteB16(b.buf, f.openTransform+2, uint16(len(b.buf)-f.openTransform))
	f.openTransform = -1
}

// AddTransform opens a transform inside the current proposal. Any
// previously open transform (and its optional KEYLEN attribute, added via
// AddXformAttrKeylen) is closed first.
func (b *Builder) AddTransform(xfType TransformType, xfID uint16) error {
	f := b.top()
	if f == nil || f.kind != framePropXform {
		return ErrF(ErrOutOfSpace, "AddTransform: no open proposal")
	}
	b.closeOpenTransform(f)
	if f.lastChildSlot >= 0 {
		packets.WriteB8(b.buf, f.lastChildSlot, f.moreMarker)
	}
	start := len(b.buf)
	hdr := make([]byte, minTransformLen)
	hdr[4] = uint8(xfType)
	packets.WriteB16(hdr, 6, xfID)
	b.buf = append(b.buf, hdr...)

	f.lastChildSlot = start
	f.openTransform = start
	f.childCount++
	return nil
}

// AddXformAttrKeylen appends a 4-octet TV KEYLEN attribute (bits<65536) to
// the transform opened by the most recent AddTransform call.
func (b *Builder) AddXformAttrKeylen(bits int) error {
	f := b.top()
	if f == nil || f.kind != framePropXform || f.openTransform < 0 {
		return ErrF(ErrOutOfSpace, "AddXformAttrKeylen: no open transform")
	}
	if bits < 0 || bits >= 65536 {
		return ErrF(ErrOutOfSpace, "AddXformAttrKeylen: %d out of range", bits)
	}
	attr := make([]byte, 4)
	packets.WriteB16(attr, 0, 0x8000|uint16(AttrKeyLength))
	packets.WriteB16(attr, 2, uint16(bits))
	b.buf = append(b.buf, attr...)
	return nil
}

// EndProposal closes the transform-list container and patches the
// proposal's Length and transform-count fields.
func (b *Builder) EndProposal() error {
	f := b.top()
	if f == nil || f.kind != framePropXform {
		return ErrF(ErrOutOfSpace, "EndProposal: no open proposal")
	}
	b.closeOpenTransform(f)
	if f.childCount == 0 {
		return ErrF(ErrOutOfSpace, "EndProposal: proposal has no transforms")
	}
	packets.WriteB8(b.buf, f.lastChildSlot, 0)
	packets.WriteB8(b.buf, f.countField, uint8(f.childCount))
	packets.WriteB16(b.buf, f.start+2, uint16(len(b.buf)-f.start))
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

// ---- encryption-transform expansion, section 4.2.1 ----

// encrKeyFamily classifies how an encryption algorithm's key-length
// attribute behaves, driving AddXformEncr's expansion.
type encrKeyFamily uint8

const (
	keyFixed encrKeyFamily = iota // forbids KEYLEN: min==max==0
	keyArbitrary                  // at most two (min,max) transforms
	keyStep64                     // one pair per 64-bit step
	keyNone                       // pseudo-cipher, no-op (NULL_AES_GMAC)
)

func encrKeyFamilyOf(alg EncrID) (encrKeyFamily, bool) {
	switch alg {
	case ENCR_DES_IV64, ENCR_DES, ENCR_3DES, ENCR_IDEA, ENCR_3IDEA, ENCR_DES_IV32, ENCR_NULL:
		return keyFixed, true
	case ENCR_RC5, ENCR_BLOWFISH, ENCR_CAST:
		return keyArbitrary, true
	case ENCR_AES_CBC, ENCR_AES_CTR, ENCR_AES_CCM_8, ENCR_AES_CCM_12, ENCR_AES_CCM_16,
		ENCR_AES_GCM_8, ENCR_AES_GCM_12, ENCR_AES_GCM_16,
		ENCR_CAMELLIA_CBC, ENCR_CAMELLIA_CTR,
		ENCR_CAMELLIA_CCM_8, ENCR_CAMELLIA_CCM_12, ENCR_CAMELLIA_CCM_16:
		return keyStep64, true
	case ENCR_NULL_AUTH_AES_GMAC:
		return keyNone, true
	default:
		return 0, false
	}
}

// AddXformEncr expands an encryption algorithm choice into one or more
// (transform, KEYLEN) pairs per section 4.2.1, opening and closing each
// transform itself (the caller must not call AddTransform for this slot).
func (b *Builder) AddXformEncr(alg EncrID, minBits, maxBits int) error {
	fam, ok := encrKeyFamilyOf(alg)
	if !ok {
		return ErrF(ErrUnsupported, "AddXformEncr: unknown algorithm %d", alg)
	}
	add := func(bits int) error {
		if err := b.AddTransform(XfEncr, uint16(alg)); err != nil {
			return err
		}
		if bits != 0 {
			return b.AddXformAttrKeylen(bits)
		}
		return nil
	}
	switch fam {
	case keyFixed:
		if minBits != 0 || maxBits != 0 {
			return ErrF(ErrParseMalformed, "AddXformEncr: %d requires min==max==0", alg)
		}
		return add(0)
	case keyNone:
		return add(0)
	case keyArbitrary:
		if minBits == 0 && maxBits == 0 {
			return add(0)
		}
		if err := add(minBits); err != nil {
			return err
		}
		if maxBits != minBits {
			return add(maxBits)
		}
		return nil
	case keyStep64:
		if minBits < 128 || maxBits > 256 || minBits > maxBits || (maxBits-minBits)%64 != 0 {
			return ErrF(ErrParseMalformed, "AddXformEncr: %d requires 128<=min<=max<=256 on a 64-bit step", alg)
		}
		for bits := minBits; bits <= maxBits; bits += 64 {
			if err := add(bits); err != nil {
				return err
			}
		}
		return nil
	default:
		return ErrF(ErrUnsupported, "AddXformEncr: unhandled family for %d", alg)
	}
}

// ---- flat payloads ----

// AddKE appends a Key Exchange payload.
func (b *Builder) AddKE(group DhID, data []byte) error {
	b.appendPayload(PayloadKE, false, func(b *Builder) {
		hdr := make([]byte, 4)
		packets.WriteB16(hdr, 0, uint16(group))
		b.buf = append(b.buf, hdr...)
		b.buf = append(b.buf, data...)
	})
	return nil
}

// AddNonce appends a Nonce payload filled from rng. 16 <= len(nonce) <= 256.
func (b *Builder) AddNonce(rng RNG, length int) error {
	if length < 16 || length > 256 {
		return ErrF(ErrParseMalformed, "AddNonce: length %d out of [16,256]", length)
	}
	n := make([]byte, length)
	if err := rng.FillRandom(n); err != nil {
		return ErrF(ErrCryptoOpFailed, "AddNonce: %v", err)
	}
	b.appendPayload(PayloadNonce, false, func(b *Builder) {
		b.buf = append(b.buf, n...)
	})
	return nil
}

// idBodyLen validates/derives the body length for an ID kind, per the
// table in section 4.2 ("body length derived from kind").
func idBodyLen(kind IDType, data []byte) (int, error) {
	switch kind {
	case ID_IPV4_ADDR:
		if len(data) != 4 {
			return 0, ErrF(ErrParseMalformed, "ID_IPV4_ADDR requires 4 bytes, got %d", len(data))
		}
	case ID_IPV6_ADDR:
		if len(data) != 16 {
			return 0, ErrF(ErrParseMalformed, "ID_IPV6_ADDR requires 16 bytes, got %d", len(data))
		}
	case ID_FQDN, ID_RFC822_ADDR, ID_DER_ASN1_DN, ID_KEY_ID:
		// explicit/free-form length
	default:
		return 0, ErrF(ErrUnsupported, "unsupported ID kind %d", kind)
	}
	return len(data), nil
}

func (b *Builder) addID(pt PayloadType, kind IDType, data []byte) error {
	if _, err := idBodyLen(kind, data); err != nil {
		return err
	}
	b.appendPayload(pt, false, func(b *Builder) {
		hdr := make([]byte, 4)
		hdr[0] = uint8(kind)
		b.buf = append(b.buf, hdr...)
		b.buf = append(b.buf, data...)
	})
	return nil
}

// AddIDi appends an Identification - Initiator payload.
func (b *Builder) AddIDi(kind IDType, data []byte) error { return b.addID(PayloadIDi, kind, data) }

// AddIDr appends an Identification - Responder payload.
func (b *Builder) AddIDr(kind IDType, data []byte) error { return b.addID(PayloadIDr, kind, data) }

// AddCert appends a Certificate payload: 1-octet encoding + raw cert bytes.
func (b *Builder) AddCert(encoding uint8, data []byte) {
	b.appendPayload(PayloadCERT, false, func(b *Builder) {
		b.buf = append(b.buf, encoding)
		b.buf = append(b.buf, data...)
	})
}

// AddCertReq appends a Certificate Request payload.
func (b *Builder) AddCertReq(encoding uint8, data []byte) {
	b.appendPayload(PayloadCERTREQ, false, func(b *Builder) {
		b.buf = append(b.buf, encoding)
		b.buf = append(b.buf, data...)
	})
}

// AddAuth appends an Authentication payload.
func (b *Builder) AddAuth(method AuthMethod, data []byte) {
	b.appendPayload(PayloadAUTH, false, func(b *Builder) {
		hdr := make([]byte, 4)
		hdr[0] = uint8(method)
		b.buf = append(b.buf, hdr...)
		b.buf = append(b.buf, data...)
	})
}

// AddNotify appends a Notify payload. spi must be empty or 4 bytes.
func (b *Builder) AddNotify(proto ProtocolID, spi []byte, typ NotifyType, data []byte) error {
	if len(spi) != 0 && len(spi) != 4 {
		return ErrF(ErrParseMalformed, "AddNotify: spi len %d not in {0,4}", len(spi))
	}
	b.appendPayload(PayloadNotify, false, func(b *Builder) {
		hdr := make([]byte, 4)
		hdr[0] = uint8(proto)
		hdr[1] = uint8(len(spi))
		packets.WriteB16(hdr, 2, uint16(typ))
		b.buf = append(b.buf, hdr...)
		b.buf = append(b.buf, spi...)
		b.buf = append(b.buf, data...)
	})
	return nil
}

// AddVendor appends a Vendor ID payload.
func (b *Builder) AddVendor(data []byte) {
	b.appendPayload(PayloadVendor, false, func(b *Builder) {
		b.buf = append(b.buf, data...)
	})
}

// ---- DELETE ----

func deleteSpiLen(proto ProtocolID) int {
	if proto == ProtoIKE {
		return 0
	}
	return 4
}

// AddDelete opens a DELETE payload for proto and pushes its SPI-list
// container; proto determines the fixed SPI size for every entry.
func (b *Builder) AddDelete(proto ProtocolID) {
	off := b.beginPayload(PayloadDelete, false)
	spiLen := deleteSpiLen(proto)
	hdr := make([]byte, 4)
	hdr[0] = uint8(proto)
	hdr[1] = uint8(spiLen)
	b.buf = append(b.buf, hdr...)
	b.stack = append(b.stack, frameData{kind: frameDelete, start: off, countField: off + 6})
}

// AddDeleteSPI appends one SPI to the open DELETE payload.
func (b *Builder) AddDeleteSPI(spi []byte) error {
	f := b.top()
	if f == nil || f.kind != frameDelete {
		return ErrF(ErrOutOfSpace, "AddDeleteSPI: no open DELETE")
	}
	want := deleteSpiLen(ProtocolID(b.buf[f.start+4]))
	if len(spi) != want {
		return ErrF(ErrParseMalformed, "AddDeleteSPI: spi len %d != %d", len(spi), want)
	}
	b.buf = append(b.buf, spi...)
	f.childCount++
	return nil
}

// EndDelete closes the DELETE payload, patching its SPI count and length.
func (b *Builder) EndDelete() error {
	f := b.top()
	if f == nil || f.kind != frameDelete {
		return ErrF(ErrOutOfSpace, "EndDelete: no open DELETE")
	}
	packets.WriteB16(b.buf, f.countField, uint16(f.childCount))
	b.stack = b.stack[:len(b.stack)-1]
	b.endPayload(f.start)
	return nil
}

// ---- Traffic Selectors ----

// SelectorType is the Traffic Selector Type field.
type SelectorType uint8

const (
	TS_IPV4_ADDR_RANGE SelectorType = 7
	TS_IPV6_ADDR_RANGE SelectorType = 8
)

func (b *Builder) addTS(pt PayloadType) {
	off := b.beginPayload(pt, false)
	hdr := make([]byte, 4) // num_ts(1) + reserved(3); count patched at close
	b.buf = append(b.buf, hdr...)
	b.stack = append(b.stack, frameData{kind: frameTS, start: off, countField: off + 4})
}

// AddTSi opens a TSi payload.
func (b *Builder) AddTSi() { b.addTS(PayloadTSi) }

// AddTSr opens a TSr payload.
func (b *Builder) AddTSr() { b.addTS(PayloadTSr) }

// AddTS appends one traffic selector to the open TSi/TSr payload. start/end
// are 4 bytes (v4) or 16 bytes (v6) IP addresses.
func (b *Builder) AddTS(typ SelectorType, ipProto uint8, startPort, endPort uint16, start, end []byte) error {
	f := b.top()
	if f == nil || f.kind != frameTS {
		return ErrF(ErrOutOfSpace, "AddTS: no open TS payload")
	}
	var addrLen int
	switch typ {
	case TS_IPV4_ADDR_RANGE:
		addrLen = 4
	case TS_IPV6_ADDR_RANGE:
		addrLen = 16
	default:
		return ErrF(ErrUnsupported, "AddTS: unknown selector type %d", typ)
	}
	if len(start) != addrLen || len(end) != addrLen {
		return ErrF(ErrParseMalformed, "AddTS: address length mismatch for type %d", typ)
	}
	sel := make([]byte, 8)
	sel[0] = uint8(typ)
	sel[1] = ipProto
	packets.WriteB16(sel, 2, uint16(8+2*addrLen))
	packets.WriteB16(sel, 4, startPort)
	packets.WriteB16(sel, 6, endPort)
	b.buf = append(b.buf, sel...)
	b.buf = append(b.buf, start...)
	b.buf = append(b.buf, end...)
	f.childCount++
	return nil
}

// ---- Encrypted and Authenticated (SK) ----

// BeginSK opens the SK payload. Subsequent Add* calls append the inner
// payloads that will be encrypted; CloseSK seals them and must be the last
// builder call before Finalize.
func (b *Builder) BeginSK() error {
	if b.top() != nil {
		return ErrF(ErrOutOfSpace, "BeginSK: another container is still open")
	}
	off := b.beginPayload(PayloadSK, false)
	b.stack = append(b.stack, frameData{kind: frameSK, start: off})
	return nil
}

// EndTS closes the open TSi/TSr payload.
func (b *Builder) EndTS() error {
	f := b.top()
	if f == nil || f.kind != frameTS {
		return ErrF(ErrOutOfSpace, "EndTS: no open TS payload")
	}
	b.buf[f.countField] = uint8(f.childCount)
	b.stack = b.stack[:len(b.stack)-1]
	b.endPayload(f.start)
	return nil
}
