package packet

import (
	"math/big"

	"nullprogram.com/x/opengpg-core/openpgp"
	"nullprogram.com/x/opengpg-core/pgperr"
)

// RSAMaterial is the key_material tuple for the three RSA algorithm
// variants: modulus then public exponent.
type RSAMaterial struct {
	AlgoID Algorithm // one of AlgoRSAEncryptSign/Only/SignOnly
	N, E   *big.Int
}

func (m *RSAMaterial) Algo() Algorithm { return m.AlgoID }
func (m *RSAMaterial) Encode() []byte {
	return append(openpgp.MPIInt(m.N), openpgp.MPIInt(m.E)...)
}

// DSAMaterial is p, q, g, y in that order.
type DSAMaterial struct{ P, Q, G, Y *big.Int }

func (m *DSAMaterial) Algo() Algorithm { return AlgoDSA }
func (m *DSAMaterial) Encode() []byte {
	out := openpgp.MPIInt(m.P)
	out = append(out, openpgp.MPIInt(m.Q)...)
	out = append(out, openpgp.MPIInt(m.G)...)
	out = append(out, openpgp.MPIInt(m.Y)...)
	return out
}

// ElgamalMaterial is p, g, y. Elgamal signatures are deprecated and
// never emitted by this engine; only encrypt-only use
// is supported, so this variant never appears with CanSign true.
type ElgamalMaterial struct{ P, G, Y *big.Int }

func (m *ElgamalMaterial) Algo() Algorithm { return AlgoElgamalEncrypt }
func (m *ElgamalMaterial) Encode() []byte {
	out := openpgp.MPIInt(m.P)
	out = append(out, openpgp.MPIInt(m.G)...)
	out = append(out, openpgp.MPIInt(m.Y)...)
	return out
}

// ECDSAMaterial / EdDSAMaterial are curve OID + point Q.
type ECDSAMaterial struct {
	Curve Curve
	Q     []byte // raw point bytes (already including the 0x04/0x40 prefix)
}

func (m *ECDSAMaterial) Algo() Algorithm { return AlgoECDSA }
func (m *ECDSAMaterial) Encode() []byte  { return encodeCurveAndPoint(m.Curve, m.Q) }

type EdDSAMaterial struct {
	Curve Curve
	Q     []byte
}

func (m *EdDSAMaterial) Algo() Algorithm { return AlgoEdDSA }
func (m *EdDSAMaterial) Encode() []byte  { return encodeCurveAndPoint(m.Curve, m.Q) }

// KDFParams is the ECDH KDF-parameters blob (RFC 4880 §13.3): a
// length byte (always 3), a reserved byte (1), the hash algorithm id,
// and the symmetric algorithm id used to wrap the session key.
type KDFParams struct {
	HashAlgo   byte
	SymAlgo    byte
}

func (p KDFParams) Encode() []byte {
	return []byte{3, 1, p.HashAlgo, p.SymAlgo}
}

func decodeKDFParams(b []byte) (KDFParams, []byte, bool) {
	if len(b) < 4 || b[0] != 3 || b[1] != 1 {
		return KDFParams{}, b, false
	}
	return KDFParams{HashAlgo: b[2], SymAlgo: b[3]}, b[4:], true
}

// ECDHMaterial is curve OID, point Q, and the KDF parameters blob.
type ECDHMaterial struct {
	Curve Curve
	Q     []byte
	KDF   KDFParams
}

func (m *ECDHMaterial) Algo() Algorithm { return AlgoECDH }
func (m *ECDHMaterial) Encode() []byte {
	out := encodeCurveAndPoint(m.Curve, m.Q)
	out = append(out, m.KDF.Encode()...)
	return out
}

func encodeCurveAndPoint(c Curve, q []byte) []byte {
	out := make([]byte, 0, 1+len(c.OID)+2+len(q))
	out = append(out, byte(len(c.OID)))
	out = append(out, c.OID...)
	out = append(out, openpgp.MPI(q)...)
	return out
}

// DecodeKeyMaterial parses key_material for algo out of buf, returning
// the remaining bytes (used for trailing signature-specific bytes in
// callers that embed a public key inside a larger structure; PublicKey
// itself expects buf to be exhausted).
func DecodeKeyMaterial(algo Algorithm, buf []byte) (KeyMaterial, []byte, error) {
	switch algo {
	case AlgoRSAEncryptSign, AlgoRSAEncryptOnly, AlgoRSASignOnly:
		n, rest, ok := openpgp.DecodeMPIBig(buf)
		if !ok {
			return nil, buf, malformed("RSA n")
		}
		e, rest, ok := openpgp.DecodeMPIBig(rest)
		if !ok {
			return nil, buf, malformed("RSA e")
		}
		return &RSAMaterial{AlgoID: algo, N: n, E: e}, rest, nil
	case AlgoDSA:
		p, rest, ok := openpgp.DecodeMPIBig(buf)
		if !ok {
			return nil, buf, malformed("DSA p")
		}
		q, rest, ok := openpgp.DecodeMPIBig(rest)
		if !ok {
			return nil, buf, malformed("DSA q")
		}
		g, rest, ok := openpgp.DecodeMPIBig(rest)
		if !ok {
			return nil, buf, malformed("DSA g")
		}
		y, rest, ok := openpgp.DecodeMPIBig(rest)
		if !ok {
			return nil, buf, malformed("DSA y")
		}
		return &DSAMaterial{P: p, Q: q, G: g, Y: y}, rest, nil
	case AlgoElgamalEncrypt:
		p, rest, ok := openpgp.DecodeMPIBig(buf)
		if !ok {
			return nil, buf, malformed("Elgamal p")
		}
		g, rest, ok := openpgp.DecodeMPIBig(rest)
		if !ok {
			return nil, buf, malformed("Elgamal g")
		}
		y, rest, ok := openpgp.DecodeMPIBig(rest)
		if !ok {
			return nil, buf, malformed("Elgamal y")
		}
		return &ElgamalMaterial{P: p, G: g, Y: y}, rest, nil
	case AlgoECDSA, AlgoEdDSA, AlgoECDH:
		if len(buf) < 1 {
			return nil, buf, malformed("curve OID length")
		}
		oidLen := int(buf[0])
		if len(buf) < 1+oidLen {
			return nil, buf, malformed("curve OID")
		}
		oid := buf[1 : 1+oidLen]
		curve, ok := CurveByOID(oid)
		if !ok {
			return nil, buf, pgperr.E("packet.DecodeKeyMaterial", pgperr.SourceCore, pgperr.UnsupportedCurve, "oid", oid)
		}
		q, rest, ok := openpgp.DecodeMPI(buf[1+oidLen:])
		if !ok {
			return nil, buf, malformed("EC point")
		}
		switch algo {
		case AlgoECDSA:
			return &ECDSAMaterial{Curve: curve, Q: q}, rest, nil
		case AlgoEdDSA:
			return &EdDSAMaterial{Curve: curve, Q: q}, rest, nil
		default:
			kdf, rest2, ok := decodeKDFParams(rest)
			if !ok {
				return nil, buf, malformed("ECDH KDF params")
			}
			return &ECDHMaterial{Curve: curve, Q: q, KDF: kdf}, rest2, nil
		}
	default:
		return nil, buf, pgperr.E("packet.DecodeKeyMaterial", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "algo", byte(algo))
	}
}

func malformed(what string) error {
	return pgperr.E("packet.DecodeKeyMaterial", pgperr.SourceCore, pgperr.MalformedPacket, "reason", what)
}
