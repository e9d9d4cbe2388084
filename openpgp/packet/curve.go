package packet

import "bytes"

// Curve names the ECC curves this engine recognises, by both their
// OpenPGP OID encoding and their symbolic agent-facing name: the
// curve NAME passed to the agent is the symbolic name, not the OID.
type Curve struct {
	OID        []byte // raw OID bytes, as they appear on the wire (no length prefix)
	Name       string // symbolic name used in keygrip S-expressions and display strings
	FieldBytes int    // field element width in bytes, used by keygen.ECCBitSize and for fixed-width signature values in localsign
	EdDSA      bool   // native (compressed) point encoding, 0x40 prefix
	X25519     bool
	X448       bool
}

var curves = []Curve{
	{OID: []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0xDA, 0x47, 0x0F, 0x01}, Name: "Ed25519", FieldBytes: 32, EdDSA: true},
	{OID: []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}, Name: "Curve25519", FieldBytes: 32, X25519: true},
	{OID: []byte{0x2B, 0x65, 0x71}, Name: "Ed448", FieldBytes: 57, EdDSA: true},
	{OID: []byte{0x2B, 0x65, 0x6F}, Name: "X448", FieldBytes: 56, X448: true},
	{OID: []byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}, Name: "NIST P-256", FieldBytes: 32},
	{OID: []byte{0x2B, 0x81, 0x04, 0x00, 0x22}, Name: "NIST P-384", FieldBytes: 48},
	{OID: []byte{0x2B, 0x81, 0x04, 0x00, 0x23}, Name: "NIST P-521", FieldBytes: 66},
	{OID: []byte{0x2B, 0x24, 0x03, 0x03, 0x02, 0x08, 0x01, 0x01, 0x07}, Name: "brainpoolP256r1", FieldBytes: 32},
	{OID: []byte{0x2B, 0x24, 0x03, 0x03, 0x02, 0x08, 0x01, 0x01, 0x0B}, Name: "brainpoolP384r1", FieldBytes: 48},
	{OID: []byte{0x2B, 0x24, 0x03, 0x03, 0x02, 0x08, 0x01, 0x01, 0x0D}, Name: "brainpoolP512r1", FieldBytes: 64},
	{OID: []byte{0x2B, 0x81, 0x04, 0x00, 0x0A}, Name: "secp256k1", FieldBytes: 32},
}

// CurveByOID looks up a curve by its raw (unprefixed) OID bytes.
func CurveByOID(oid []byte) (Curve, bool) {
	for _, c := range curves {
		if bytes.Equal(c.OID, oid) {
			return c, true
		}
	}
	return Curve{}, false
}

// CurveByName looks up a curve by its symbolic name, as used in
// Key-Curve/Subkey-Curve parameter-file values.
func CurveByName(name string) (Curve, bool) {
	for _, c := range curves {
		if c.Name == name {
			return c, true
		}
	}
	return Curve{}, false
}
