// Package packet is the typed OpenPGP packet model: a closed tagged
// union of public-key algorithms (RSA, DSA, Elgamal, ECDSA, EdDSA,
// ECDH), each with its own canonical key-material encoding. This
// canonical serialization is identical to the hash input signature
// construction consumes.
package packet

import "nullprogram.com/x/opengpg-core/pgperr"

// Algorithm is the OpenPGP public-key algorithm id (RFC 4880 §9.1,
// plus the EdDSA id from the later drafts GnuPG implements).
type Algorithm byte

const (
	AlgoRSAEncryptSign Algorithm = 1
	AlgoRSAEncryptOnly Algorithm = 2
	AlgoRSASignOnly    Algorithm = 3
	AlgoElgamalEncrypt Algorithm = 16
	AlgoDSA            Algorithm = 17
	AlgoECDH           Algorithm = 18
	AlgoECDSA          Algorithm = 19
	AlgoEdDSA          Algorithm = 22
)

func (a Algorithm) String() string {
	switch a {
	case AlgoRSAEncryptSign:
		return "RSA"
	case AlgoRSAEncryptOnly:
		return "RSA-E"
	case AlgoRSASignOnly:
		return "RSA-S"
	case AlgoElgamalEncrypt:
		return "ELG-E"
	case AlgoDSA:
		return "DSA"
	case AlgoECDH:
		return "ECDH"
	case AlgoECDSA:
		return "ECDSA"
	case AlgoEdDSA:
		return "EDDSA"
	default:
		return "UNKNOWN"
	}
}

// CanSign reports whether the algorithm family can produce signatures.
// Pure encryption algorithms (Elgamal-encrypt-only, ECDH, RSA-encrypt-
// only) cannot.
func (a Algorithm) CanSign() bool {
	switch a {
	case AlgoRSAEncryptSign, AlgoRSASignOnly, AlgoDSA, AlgoECDSA, AlgoEdDSA:
		return true
	default:
		return false
	}
}

// CanEncrypt reports whether the algorithm family can encrypt.
func (a Algorithm) CanEncrypt() bool {
	switch a {
	case AlgoRSAEncryptSign, AlgoRSAEncryptOnly, AlgoElgamalEncrypt, AlgoECDH:
		return true
	default:
		return false
	}
}

// ParseAlgorithm validates a wire algorithm id against the closed set
// this engine supports.
func ParseAlgorithm(b byte) (Algorithm, error) {
	a := Algorithm(b)
	switch a {
	case AlgoRSAEncryptSign, AlgoRSAEncryptOnly, AlgoRSASignOnly,
		AlgoElgamalEncrypt, AlgoDSA, AlgoECDH, AlgoECDSA, AlgoEdDSA:
		return a, nil
	default:
		return 0, pgperr.E("packet.ParseAlgorithm", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "algo", b)
	}
}

// KeyMaterial is the tagged-union payload of a PublicKey: each variant
// below knows its own canonical MPI ordering. The keygrip S-expression
// of each variant is built by identity.Keygrip, not by the variant.
type KeyMaterial interface {
	Algo() Algorithm
	// Encode returns the canonical key_material bytes, in the fixed
	// per-algorithm order. This is both the wire form and the
	// fingerprint hash input.
	Encode() []byte
}
