package pkt

// Spi is an IKE SA security parameter index. Child SAs (AH/ESP) use the low
// 4 octets only.
type Spi [8]byte

// ExchangeType identifies the IKEv2 exchange an IkeHeader belongs to.
type ExchangeType uint8

const (
	IKE_SA_INIT        ExchangeType = 34
	IKE_AUTH           ExchangeType = 35
	CREATE_CHILD_SA    ExchangeType = 36
	INFORMATIONAL      ExchangeType = 37
	IKE_SESSION_RESUME ExchangeType = 38
)

func (e ExchangeType) String() string {
	switch e {
	case IKE_SA_INIT:
		return "IKE_SA_INIT"
	case IKE_AUTH:
		return "IKE_AUTH"
	case CREATE_CHILD_SA:
		return "CREATE_CHILD_SA"
	case INFORMATIONAL:
		return "INFORMATIONAL"
	case IKE_SESSION_RESUME:
		return "IKE_SESSION_RESUME"
	default:
		return "UNKNOWN_EXCHANGE"
	}
}

// PayloadType is the 8-bit "Next Payload"/payload-kind field. Values per
// RFC 7296 section 3.2.
type PayloadType uint8

const (
	PayloadNone PayloadType = 0

	PayloadSA      PayloadType = 33
	PayloadKE      PayloadType = 34
	PayloadIDi     PayloadType = 35
	PayloadIDr     PayloadType = 36
	PayloadCERT    PayloadType = 37
	PayloadCERTREQ PayloadType = 38
	PayloadAUTH    PayloadType = 39
	PayloadNonce   PayloadType = 40
	PayloadNotify  PayloadType = 41
	PayloadDelete  PayloadType = 42
	PayloadVendor  PayloadType = 43
	PayloadTSi     PayloadType = 44
	PayloadTSr     PayloadType = 45
	PayloadSK      PayloadType = 46
	PayloadCP      PayloadType = 47
	PayloadEAP     PayloadType = 48

	payloadMin = PayloadSA
	payloadMax = PayloadEAP
)

func (t PayloadType) String() string {
	switch t {
	case PayloadNone:
		return "NONE"
	case PayloadSA:
		return "SA"
	case PayloadKE:
		return "KE"
	case PayloadIDi:
		return "IDi"
	case PayloadIDr:
		return "IDr"
	case PayloadCERT:
		return "CERT"
	case PayloadCERTREQ:
		return "CERTREQ"
	case PayloadAUTH:
		return "AUTH"
	case PayloadNonce:
		return "Ni/Nr"
	case PayloadNotify:
		return "N"
	case PayloadDelete:
		return "D"
	case PayloadVendor:
		return "V"
	case PayloadTSi:
		return "TSi"
	case PayloadTSr:
		return "TSr"
	case PayloadSK:
		return "SK"
	case PayloadCP:
		return "CP"
	case PayloadEAP:
		return "EAP"
	default:
		return "UNKNOWN"
	}
}

// Flags is the IKE header's one-octet flag field.
type Flags uint8

const (
	FlagResponse  Flags = 1 << 5
	FlagVersion   Flags = 1 << 4
	FlagInitiator Flags = 1 << 3
)

func (f Flags) IsResponse() bool   { return f&FlagResponse != 0 }
func (f Flags) IsInitiator() bool  { return f&FlagInitiator != 0 }

// ProtocolID names the protocol an SA proposal, delete payload or notify is
// about.
type ProtocolID uint8

const (
	ProtoIKE ProtocolID = 1
	ProtoAH  ProtocolID = 2
	ProtoESP ProtocolID = 3
)

// TransformType is the Transform Type field of an SA transform substructure.
type TransformType uint8

const (
	XfEncr TransformType = 1
	XfPrf  TransformType = 2
	XfInteg TransformType = 3
	XfDh   TransformType = 4
	XfEsn  TransformType = 5
)

// EncrID is an encryption-transform identifier (RFC 7296 section 3.3.2).
type EncrID uint16

const (
	ENCR_DES_IV64            EncrID = 1
	ENCR_DES                 EncrID = 2
	ENCR_3DES                EncrID = 3
	ENCR_RC5                 EncrID = 4
	ENCR_IDEA                EncrID = 5
	ENCR_CAST                EncrID = 6
	ENCR_BLOWFISH            EncrID = 7
	ENCR_3IDEA               EncrID = 8
	ENCR_DES_IV32            EncrID = 9
	ENCR_NULL                EncrID = 11
	ENCR_AES_CBC             EncrID = 12
	ENCR_AES_CTR             EncrID = 13
	ENCR_AES_CCM_8           EncrID = 14
	ENCR_AES_CCM_12          EncrID = 15
	ENCR_AES_CCM_16          EncrID = 16
	ENCR_AES_GCM_8           EncrID = 18
	ENCR_AES_GCM_12          EncrID = 19
	ENCR_AES_GCM_16          EncrID = 20
	ENCR_NULL_AUTH_AES_GMAC  EncrID = 21
	ENCR_CAMELLIA_CBC        EncrID = 23
	ENCR_CAMELLIA_CTR        EncrID = 24
	ENCR_CAMELLIA_CCM_8      EncrID = 25
	ENCR_CAMELLIA_CCM_12     EncrID = 26
	ENCR_CAMELLIA_CCM_16     EncrID = 27
)

// PrfID is a pseudo-random-function transform identifier.
type PrfID uint16

const (
	PRF_HMAC_MD5      PrfID = 1
	PRF_HMAC_SHA1     PrfID = 2
	PRF_AES128_XCBC   PrfID = 4
	PRF_HMAC_SHA2_256 PrfID = 5
	PRF_HMAC_SHA2_384 PrfID = 6
	PRF_HMAC_SHA2_512 PrfID = 7
	PRF_AES128_CMAC   PrfID = 8
)

// AuthID is an integrity-transform identifier.
type AuthID uint16

const (
	AUTH_NONE              AuthID = 0
	AUTH_HMAC_MD5_96       AuthID = 1
	AUTH_HMAC_SHA1_96      AuthID = 2
	AUTH_DES_MAC           AuthID = 3
	AUTH_KPDK_MD5          AuthID = 4
	AUTH_AES_XCBC_96       AuthID = 5
	AUTH_HMAC_MD5_128      AuthID = 6
	AUTH_HMAC_SHA1_160     AuthID = 7
	AUTH_AES_CMAC_96       AuthID = 8
	AUTH_AES_128_GMAC      AuthID = 9
	AUTH_AES_192_GMAC      AuthID = 10
	AUTH_AES_256_GMAC      AuthID = 11
	AUTH_HMAC_SHA2_256_128 AuthID = 12
	AUTH_HMAC_SHA2_384_192 AuthID = 13
	AUTH_HMAC_SHA2_512_256 AuthID = 14
)

// DhID is a Diffie-Hellman group identifier.
type DhID uint16

const (
	MODP_768  DhID = 1
	MODP_1024 DhID = 2
	MODP_1536 DhID = 5
	MODP_2048 DhID = 14
	MODP_3072 DhID = 15
	MODP_4096 DhID = 16
	ECP_256   DhID = 19
	ECP_384   DhID = 20
	ECP_521   DhID = 21
)

// NotifyType is the Notify Message Type field (status and error codes).
type NotifyType uint16

const (
	UNSUPPORTED_CRITICAL_PAYLOAD NotifyType = 1
	INVALID_IKE_SPI              NotifyType = 4
	INVALID_MAJOR_VERSION        NotifyType = 5
	INVALID_SYNTAX               NotifyType = 7
	INVALID_MESSAGE_ID           NotifyType = 9
	INVALID_SPI                  NotifyType = 11
	NO_PROPOSAL_CHOSEN           NotifyType = 14
	INVALID_KE_PAYLOAD           NotifyType = 17
	AUTHENTICATION_FAILED        NotifyType = 24
	SINGLE_PAIR_REQUIRED         NotifyType = 34
	NO_ADDITIONAL_SAS            NotifyType = 35
	TS_UNACCEPTABLE              NotifyType = 38
	INVALID_SELECTORS            NotifyType = 39
	TEMPORARY_FAILURE            NotifyType = 43
	CHILD_SA_NOT_FOUND           NotifyType = 44

	INITIAL_CONTACT              NotifyType = 16384
	NAT_DETECTION_SOURCE_IP      NotifyType = 16388
	NAT_DETECTION_DESTINATION_IP NotifyType = 16389
	COOKIE                       NotifyType = 16390
	SIGNATURE_HASH_ALGORITHMS    NotifyType = 16431
)

// AttributeType is the Transform Attribute Type field.
type AttributeType uint16

const (
	AttrKeyLength AttributeType = 14
)

// IDType is the Identification payload's ID Type field.
type IDType uint8

const (
	ID_IPV4_ADDR   IDType = 1
	ID_FQDN        IDType = 2
	ID_RFC822_ADDR IDType = 3
	ID_IPV6_ADDR   IDType = 5
	ID_DER_ASN1_DN IDType = 9
	ID_KEY_ID      IDType = 11
)

// AuthMethod is the AUTH payload's Auth Method field.
type AuthMethod uint8

const (
	AUTH_RSA_DIGITAL_SIGNATURE          AuthMethod = 1
	AUTH_SHARED_KEY_MESSAGE_INTEGRITY   AuthMethod = 2
	AUTH_DSS_DIGITAL_SIGNATURE          AuthMethod = 3
	AUTH_DIGITAL_SIGNATURE              AuthMethod = 14
)

// CipherMode is the block-cipher mode an EncrID operates in.
type CipherMode uint8

const (
	ModeNone CipherMode = iota
	ModeCBC
	ModeCTR
	ModeCCM
	ModeGCM
)

func (m CipherMode) String() string {
	switch m {
	case ModeNone:
		return "NONE"
	case ModeCBC:
		return "CBC"
	case ModeCTR:
		return "CTR"
	case ModeCCM:
		return "CCM"
	case ModeGCM:
		return "GCM"
	default:
		return "UNKNOWN_MODE"
	}
}
