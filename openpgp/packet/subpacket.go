package packet

import "nullprogram.com/x/opengpg-core/pgperr"

// Subpacket types this engine recognises.
const (
	SubSignatureCreationTime = 2
	SubSignatureExpiration   = 3
	SubKeyExpiration         = 9
	SubPreferredSymmetric    = 11
	SubRevocationKey         = 12
	SubIssuerKeyID           = 16
	SubNotationData          = 20
	SubPreferredHash         = 21
	SubPreferredCompression  = 22
	SubKeyserverPreferences  = 23
	SubPreferredKeyserver    = 24
	SubPolicyURL             = 26
	SubKeyFlags              = 27
	SubSignerUserID          = 28
	SubReasonForRevocation   = 29
	SubFeatures              = 30
	SubEmbeddedSignature     = 32
)

// Key flag bits.
const (
	KeyFlagCertify               = 0x01
	KeyFlagSign                  = 0x02
	KeyFlagEncryptCommunications = 0x04
	KeyFlagEncryptStorage        = 0x08
	KeyFlagAuthenticate          = 0x20
)

const keyFlagsMask = KeyFlagCertify | KeyFlagSign | KeyFlagEncryptCommunications | KeyFlagEncryptStorage | KeyFlagAuthenticate

// FeatureMDC is the single bit the Features subpacket carries today.
const FeatureMDC = 0x01

// Subpacket is one TLV entry of a signature's hashed or unhashed
// area: subpacket-length || type-byte (top bit = CRITICAL) || body.
type Subpacket struct {
	Type     byte
	Critical bool
	Data     []byte
}

// Encode serializes one subpacket, including its own new-format-style
// length prefix (RFC 4880 §5.2.3.1): 1/2/5-byte length of (type+body).
func (s Subpacket) Encode() []byte {
	typeByte := s.Type
	if s.Critical {
		typeByte |= 0x80
	}
	body := append([]byte{typeByte}, s.Data...)
	return append(encodeSubpacketLength(len(body)), body...)
}

func encodeSubpacketLength(n int) []byte {
	switch {
	case n < 192:
		return []byte{byte(n)}
	case n < 16320:
		n -= 192
		return []byte{byte(192 + (n >> 8)), byte(n)}
	default:
		return []byte{0xFF, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

// DecodeSubpackets parses a hashed or unhashed subpacket area.
// Duplicate handling (hashed wins over unhashed, last occurrence wins
// within an area, notation accumulates) is the caller's
// responsibility.
func DecodeSubpackets(buf []byte) ([]Subpacket, error) {
	var out []Subpacket
	for len(buf) > 0 {
		n, headerLen, ok := decodeSubpacketLength(buf)
		if !ok || len(buf) < headerLen+n || n < 1 {
			return nil, pgperr.E("packet.DecodeSubpackets", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "truncated subpacket")
		}
		body := buf[headerLen : headerLen+n]
		typeByte := body[0]
		out = append(out, Subpacket{
			Type:     typeByte &^ 0x80,
			Critical: typeByte&0x80 != 0,
			Data:     body[1:],
		})
		buf = buf[headerLen+n:]
	}
	return out, nil
}

func decodeSubpacketLength(buf []byte) (n, headerLen int, ok bool) {
	if len(buf) < 1 {
		return 0, 0, false
	}
	l0 := buf[0]
	switch {
	case l0 < 192:
		return int(l0), 1, true
	case l0 < 255:
		if len(buf) < 2 {
			return 0, 0, false
		}
		return (int(l0)-192)<<8 + int(buf[1]) + 192, 2, true
	default:
		if len(buf) < 5 {
			return 0, 0, false
		}
		return int(buf[1])<<24 | int(buf[2])<<16 | int(buf[3])<<8 | int(buf[4]), 5, true
	}
}

// RevocationKey is a Revocation Key subpacket, carried in the hashed
// area of a direct-key self-signature.
type RevocationKey struct {
	Class       byte // bit 0x80 required; 0x40 marks it sensitive/private
	AlgoID      Algorithm
	Fingerprint [20]byte
}

func (r RevocationKey) Encode() []byte {
	out := make([]byte, 0, 22)
	out = append(out, r.Class|0x80, byte(r.AlgoID))
	out = append(out, r.Fingerprint[:]...)
	return out
}

func DecodeRevocationKey(data []byte) (RevocationKey, error) {
	if len(data) != 22 {
		return RevocationKey{}, pgperr.E("packet.DecodeRevocationKey", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "bad length")
	}
	var rk RevocationKey
	rk.Class = data[0]
	rk.AlgoID = Algorithm(data[1])
	copy(rk.Fingerprint[:], data[2:22])
	return rk, nil
}

// KeyFlagsValid reports whether flags is a subset of the known bits.
func KeyFlagsValid(flags byte) bool {
	return flags&^keyFlagsMask == 0
}

// KnownSubpacketType reports whether this engine can interpret a
// subpacket of the given type. A CRITICAL subpacket of an unknown type
// must fail verification of its signature.
func KnownSubpacketType(t byte) bool {
	switch t {
	case SubSignatureCreationTime, SubSignatureExpiration, SubKeyExpiration,
		SubPreferredSymmetric, SubRevocationKey, SubIssuerKeyID,
		SubNotationData, SubPreferredHash, SubPreferredCompression,
		SubKeyserverPreferences, SubPreferredKeyserver, SubPolicyURL,
		SubKeyFlags, SubSignerUserID, SubReasonForRevocation,
		SubFeatures, SubEmbeddedSignature:
		return true
	}
	return false
}
