// Package identity computes stable key identifiers derived purely from
// public-key material. Fingerprint/KeyID/ShortKeyID
// live as cached methods directly on packet.PublicKey (they are a
// byte-for-byte function of its own Body); this package adds the
// identifiers that need extra machinery - the keygrip S-expression,
// and the human-readable algorithm/curve/usage strings GnuPG's
// keyid.c (pubkey_letter, pubkey_string, usagestr_from_pk, keystr)
// exposes to callers and to this engine's status output.
package identity

import (
	"crypto/sha1" //nolint:gosec // mandated by the OpenPGP keygrip format
	"fmt"

	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/pgperr"
)

// Keygrip is the 20-byte SHA-1 over a canonical S-expression of the
// public parameters. It depends only on algorithm and
// key material, never on Timestamp.
func Keygrip(pk *packet.PublicKey) ([20]byte, error) {
	if g, ok := pk.CachedKeygrip(); ok {
		return g, nil
	}
	sexpr, err := sExpr(pk)
	if err != nil {
		return [20]byte{}, err
	}
	g := sha1.Sum(sexpr)
	pk.SetKeygrip(g)
	return g, nil
}

func sExpr(pk *packet.PublicKey) ([]byte, error) {
	switch m := pk.Material.(type) {
	case *packet.RSAMaterial:
		n, e := m.N.Bytes(), m.E.Bytes()
		return []byte(fmt.Sprintf("(10:public-key(3:rsa(1:n%d:%s)(1:e%d:%s)))",
			len(n), n, len(e), e)), nil
	case *packet.DSAMaterial:
		p, q, g, y := m.P.Bytes(), m.Q.Bytes(), m.G.Bytes(), m.Y.Bytes()
		return []byte(fmt.Sprintf("(10:public-key(3:dsa(1:p%d:%s)(1:q%d:%s)(1:g%d:%s)(1:y%d:%s)))",
			len(p), p, len(q), q, len(g), g, len(y), y)), nil
	case *packet.ElgamalMaterial:
		p, g, y := m.P.Bytes(), m.G.Bytes(), m.Y.Bytes()
		return []byte(fmt.Sprintf("(10:public-key(3:elg(1:p%d:%s)(1:g%d:%s)(1:y%d:%s)))",
			len(p), p, len(g), g, len(y), y)), nil
	case *packet.ECDSAMaterial:
		return eccSExpr(m.Curve.Name, m.Q, false), nil
	case *packet.ECDHMaterial:
		return eccSExpr(m.Curve.Name, m.Q, false), nil
	case *packet.EdDSAMaterial:
		return eccSExpr(m.Curve.Name, m.Q, true), nil
	default:
		return nil, pgperr.E("identity.Keygrip", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "algo", byte(pk.Algo()))
	}
}

func eccSExpr(curveName string, q []byte, eddsa bool) []byte {
	if eddsa {
		return []byte(fmt.Sprintf(`(10:public-key(3:ecc(5:curve%d:%s)(5:flags5:eddsa)(1:q%d:%s)))`,
			len(curveName), curveName, len(q), q))
	}
	return []byte(fmt.Sprintf(`(10:public-key(3:ecc(5:curve%d:%s)(1:q%d:%s)))`,
		len(curveName), curveName, len(q), q))
}

// AlgoString is the display grammar for algorithm/size strings: "rsa2048",
// "dsa3072", "ed25519", "nistp384", or "E_<oid>" for an unrecognised
// curve. It never silently substitutes another name.
func AlgoString(pk *packet.PublicKey) string {
	switch m := pk.Material.(type) {
	case *packet.RSAMaterial:
		return fmt.Sprintf("rsa%d", m.N.BitLen())
	case *packet.DSAMaterial:
		return fmt.Sprintf("dsa%d", m.P.BitLen())
	case *packet.ElgamalMaterial:
		return fmt.Sprintf("elg%d", m.P.BitLen())
	case *packet.ECDSAMaterial:
		return CurveString(m.Curve)
	case *packet.ECDHMaterial:
		return CurveString(m.Curve)
	case *packet.EdDSAMaterial:
		return CurveString(m.Curve)
	default:
		return "unknown"
	}
}

// CurveString maps a recognised curve to its short display name
// (ed25519, nistp384, ...) and falls back to E_<oid> in hex for an
// unrecognised one.
func CurveString(c packet.Curve) string {
	switch c.Name {
	case "Ed25519":
		return "ed25519"
	case "Ed448":
		return "ed448"
	case "Curve25519":
		return "cv25519"
	case "X448":
		return "cv448"
	case "NIST P-256":
		return "nistp256"
	case "NIST P-384":
		return "nistp384"
	case "NIST P-521":
		return "nistp521"
	case "brainpoolP256r1":
		return "brainpoolP256r1"
	case "brainpoolP384r1":
		return "brainpoolP384r1"
	case "brainpoolP512r1":
		return "brainpoolP512r1"
	case "secp256k1":
		return "secp256k1"
	default:
		return fmt.Sprintf("E_%X", c.OID)
	}
}

// Letter is GnuPG's keyid.c pubkey_letter: a single display character
// per algorithm family.
func Letter(a packet.Algorithm) byte {
	switch a {
	case packet.AlgoRSAEncryptSign, packet.AlgoRSAEncryptOnly, packet.AlgoRSASignOnly:
		return 'R'
	case packet.AlgoElgamalEncrypt:
		return 'g'
	case packet.AlgoDSA:
		return 'D'
	case packet.AlgoECDH:
		return 'e'
	case packet.AlgoECDSA:
		return 'E'
	case packet.AlgoEdDSA:
		return '@'
	default:
		return '?'
	}
}

// UsageString renders key flag bits as GnuPG's usagestr_from_pk does:
// one character per enabled usage, in "scea" order (sign, certify,
// encrypt, authenticate).
func UsageString(flags byte) string {
	var out []byte
	if flags&packet.KeyFlagSign != 0 {
		out = append(out, 's')
	}
	if flags&packet.KeyFlagCertify != 0 {
		out = append(out, 'c')
	}
	if flags&(packet.KeyFlagEncryptCommunications|packet.KeyFlagEncryptStorage) != 0 {
		out = append(out, 'e')
	}
	if flags&packet.KeyFlagAuthenticate != 0 {
		out = append(out, 'a')
	}
	if len(out) == 0 {
		return "-"
	}
	return string(out)
}

// DualKeyIDString renders "mainkeyid/subkeyid" the way keystr_with_sub
// does, for status/verbose output naming both a primary and a subkey.
func DualKeyIDString(mainID, subID [8]byte) string {
	return fmt.Sprintf("%X/%X", mainID[4:8], subID[4:8])
}
