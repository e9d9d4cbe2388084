package packet

import (
	"encoding/binary"
	"math/big"

	"nullprogram.com/x/opengpg-core/openpgp"
	"nullprogram.com/x/opengpg-core/pgperr"
)

// Signature class byte values this engine builds or verifies.
const (
	SigGenericCertification  = 0x10
	SigPersonaCertification  = 0x11
	SigCasualCertification   = 0x12
	SigPositiveCertification = 0x13
	SigSubkeyBinding         = 0x18
	SigPrimaryKeyBinding     = 0x19
	SigDirectKey             = 0x1F
	SigKeyRevocation         = 0x20
	SigSubkeyRevocation      = 0x28
	SigCertRevocation        = 0x30
)

// SigValue is the per-algorithm signature integer tuple.
type SigValue interface {
	Encode() []byte
}

// OneInt is the RSA signature value: a single MPI.
type OneInt struct{ S *big.Int }

func (v OneInt) Encode() []byte { return openpgp.MPIInt(v.S) }

// TwoInt is the DSA/ECDSA/EdDSA/Elgamal signature value: r then s, each
// an MPI (for EdDSA the underlying r/s are fixed-width native values
// wrapped as MPIs).
type TwoInt struct{ R, S *big.Int }

func (v TwoInt) Encode() []byte {
	return append(openpgp.MPIInt(v.R), openpgp.MPIInt(v.S)...)
}

// Signature is a decoded v3 or v4 signature packet body.
type Signature struct {
	Version    byte // 3 or 4; this engine only constructs v4
	Class      byte
	PKAlgo     Algorithm
	HashAlgo   byte
	Hashed     []Subpacket
	Unhashed   []Subpacket
	HashPrefix [2]byte
	Value      SigValue

	// v3-only fields, populated when Parse sees version 3 so the
	// engine can still verify legacy signatures.
	V3Timestamp uint32
	V3KeyID     [8]byte
}

// Find returns one subpacket of the given type, preferring the hashed
// area over the unhashed one and, within an area, the LAST occurrence.
// It treats every type alike, notation data (type 20) included; FindAll
// returns every occurrence instead.
func (s *Signature) Find(subType byte) (Subpacket, bool) {
	if sp, ok := lastOfType(s.Hashed, subType); ok {
		return sp, true
	}
	return lastOfType(s.Unhashed, subType)
}

func lastOfType(list []Subpacket, subType byte) (Subpacket, bool) {
	var found Subpacket
	ok := false
	for _, sp := range list {
		if sp.Type == subType {
			found = sp
			ok = true
		}
	}
	return found, ok
}

// FindAll returns every occurrence of subType across hashed then
// unhashed areas, in order - used for notation data, which accumulates
// rather than overwriting.
func (s *Signature) FindAll(subType byte) []Subpacket {
	var out []Subpacket
	for _, sp := range s.Hashed {
		if sp.Type == subType {
			out = append(out, sp)
		}
	}
	for _, sp := range s.Unhashed {
		if sp.Type == subType {
			out = append(out, sp)
		}
	}
	return out
}

// IssuerKeyID reads the Issuer subpacket (type 16).
func (s *Signature) IssuerKeyID() ([8]byte, bool) {
	sp, ok := s.Find(SubIssuerKeyID)
	if !ok || len(sp.Data) != 8 {
		return [8]byte{}, false
	}
	var id [8]byte
	copy(id[:], sp.Data)
	return id, true
}

// CreationTime reads the Signature Creation Time subpacket (type 2).
func (s *Signature) CreationTime() (uint32, bool) {
	sp, ok := s.Find(SubSignatureCreationTime)
	if !ok || len(sp.Data) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(sp.Data), true
}

// KeyFlags reads the Key Flags subpacket (type 27), returning the
// first data byte.
func (s *Signature) KeyFlags() (byte, bool) {
	sp, ok := s.Find(SubKeyFlags)
	if !ok || len(sp.Data) == 0 {
		return 0, false
	}
	return sp.Data[0], true
}

// EmbeddedSignature decodes a type-32 back-signature from the hashed
// area, if present.
func (s *Signature) EmbeddedSignature() (*Signature, bool) {
	sp, ok := lastOfType(s.Hashed, SubEmbeddedSignature)
	if !ok {
		return nil, false
	}
	sig, err := ParseSignatureBody(sp.Data)
	if err != nil {
		return nil, false
	}
	return sig, true
}

// hashedAreaBytes encodes every hashed subpacket back to back, the
// shared prefix of both the wire body and the v4 hash input.
func (s *Signature) hashedAreaBytes() []byte {
	var out []byte
	for _, sp := range s.Hashed {
		out = append(out, sp.Encode()...)
	}
	return out
}

func (s *Signature) unhashedAreaBytes() []byte {
	var out []byte
	for _, sp := range s.Unhashed {
		out = append(out, sp.Encode()...)
	}
	return out
}

// HashInput returns the bytes a verifier/builder must feed into the
// signature's hash, EXCLUDING the target material (primary key, uid,
// subkey) that sigbuilder hashes first depending on Class. This is
// version||class||pk_algo||hash_algo||hashed-len||hashed-subpackets
// followed by the six-byte trailer. v3 signatures omit
// the hashed area and trailer entirely.
func (s *Signature) HashInput() []byte {
	if s.Version == 3 {
		out := []byte{s.Class}
		out = append(out, openpgp.Marshal32BE(s.V3Timestamp)...)
		return out
	}
	hashed := s.hashedAreaBytes()
	out := make([]byte, 0, 6+len(hashed)+6)
	out = append(out, s.Version, s.Class, byte(s.PKAlgo), s.HashAlgo)
	out = append(out, byte(len(hashed)>>8), byte(len(hashed)))
	out = append(out, hashed...)
	// Trailer: (version, 0xFF, 4-byte BE length of the hashed area).
	hashedLen := uint32(len(hashed))
	out = append(out, 4, 0xFF, byte(hashedLen>>24), byte(hashedLen>>16), byte(hashedLen>>8), byte(hashedLen))
	return out
}

// Body serializes the full wire form of the signature packet body
// (v4 only; this engine does not construct v3 signatures).
func (s *Signature) Body() ([]byte, error) {
	if s.Version != 4 {
		return nil, pgperr.E("packet.Signature.Body", pgperr.SourceCore, pgperr.UnsupportedVersion, "version", s.Version)
	}
	if s.Value == nil {
		return nil, pgperr.E("packet.Signature.Body", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "missing signature value")
	}
	hashed := s.hashedAreaBytes()
	unhashed := s.unhashedAreaBytes()
	out := make([]byte, 0, 10+len(hashed)+len(unhashed)+64)
	out = append(out, s.Version, s.Class, byte(s.PKAlgo), s.HashAlgo)
	out = append(out, byte(len(hashed)>>8), byte(len(hashed)))
	out = append(out, hashed...)
	out = append(out, byte(len(unhashed)>>8), byte(len(unhashed)))
	out = append(out, unhashed...)
	out = append(out, s.HashPrefix[0], s.HashPrefix[1])
	out = append(out, s.Value.Encode()...)
	return out, nil
}

// Packet frames Body as a Signature packet.
func (s *Signature) Packet() (openpgp.Packet, error) {
	body, err := s.Body()
	if err != nil {
		return openpgp.Packet{}, err
	}
	return openpgp.Packet{Tag: openpgp.TagSignature, Body: body}, nil
}

// ParseSignatureBody decodes a Signature packet body (v3 or v4).
func ParseSignatureBody(body []byte) (*Signature, error) {
	if len(body) < 1 {
		return nil, pgperr.E("packet.ParseSignatureBody", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "empty body")
	}
	switch body[0] {
	case 3:
		return parseV3Signature(body)
	case 4:
		return parseV4Signature(body)
	default:
		return nil, pgperr.E("packet.ParseSignatureBody", pgperr.SourceCore, pgperr.UnsupportedVersion, "version", body[0])
	}
}

func parseV3Signature(body []byte) (*Signature, error) {
	// version(1) hashed-material-len(1, always 5) class(1) timestamp(4)
	// keyid(8) pkalgo(1) hashalgo(1) hashprefix(2) value...
	if len(body) < 19 {
		return nil, pgperr.E("packet.ParseSignatureBody", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "truncated v3 header")
	}
	s := &Signature{Version: 3, Class: body[2]}
	s.V3Timestamp = binary.BigEndian.Uint32(body[3:7])
	copy(s.V3KeyID[:], body[7:15])
	algo, err := ParseAlgorithm(body[15])
	if err != nil {
		return nil, err
	}
	s.PKAlgo = algo
	s.HashAlgo = body[16]
	copy(s.HashPrefix[:], body[17:19])
	value, err := decodeSigValue(algo, body[19:])
	if err != nil {
		return nil, err
	}
	s.Value = value
	return s, nil
}

func parseV4Signature(body []byte) (*Signature, error) {
	if len(body) < 6 {
		return nil, pgperr.E("packet.ParseSignatureBody", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "truncated v4 header")
	}
	s := &Signature{Version: 4, Class: body[1]}
	algo, err := ParseAlgorithm(body[2])
	if err != nil {
		return nil, err
	}
	s.PKAlgo = algo
	s.HashAlgo = body[3]
	hashedLen := int(binary.BigEndian.Uint16(body[4:6]))
	if len(body) < 6+hashedLen+2 {
		return nil, pgperr.E("packet.ParseSignatureBody", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "truncated hashed area")
	}
	hashed, err := DecodeSubpackets(body[6 : 6+hashedLen])
	if err != nil {
		return nil, err
	}
	s.Hashed = hashed
	rest := body[6+hashedLen:]
	unhashedLen := int(binary.BigEndian.Uint16(rest[0:2]))
	if len(rest) < 2+unhashedLen+2 {
		return nil, pgperr.E("packet.ParseSignatureBody", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "truncated unhashed area")
	}
	unhashed, err := DecodeSubpackets(rest[2 : 2+unhashedLen])
	if err != nil {
		return nil, err
	}
	s.Unhashed = unhashed
	rest = rest[2+unhashedLen:]
	if len(rest) < 2 {
		return nil, pgperr.E("packet.ParseSignatureBody", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "missing hash prefix")
	}
	copy(s.HashPrefix[:], rest[0:2])
	value, err := decodeSigValue(algo, rest[2:])
	if err != nil {
		return nil, err
	}
	s.Value = value
	return s, nil
}

func decodeSigValue(algo Algorithm, buf []byte) (SigValue, error) {
	switch algo {
	case AlgoRSAEncryptSign, AlgoRSASignOnly:
		s, _, ok := openpgp.DecodeMPIBig(buf)
		if !ok {
			return nil, malformed("RSA signature value")
		}
		return OneInt{S: s}, nil
	case AlgoDSA, AlgoECDSA, AlgoEdDSA:
		r, rest, ok := openpgp.DecodeMPIBig(buf)
		if !ok {
			return nil, malformed("signature r")
		}
		s, _, ok := openpgp.DecodeMPIBig(rest)
		if !ok {
			return nil, malformed("signature s")
		}
		return TwoInt{R: r, S: s}, nil
	default:
		return nil, pgperr.E("packet.decodeSigValue", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "algo", byte(algo))
	}
}
