package localsign

import (
	"crypto/ecdh"
	"crypto/ed25519"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/curve25519"

	"nullprogram.com/x/opengpg-core/openpgp/identity"
	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/pgperr"
)

const (
	kdfTime   = 8
	kdfMemory = 1024 * 1024 // 1 GB
)

// KDF derives a 64-byte seed from the given passphrase with the user
// id as salt. The scale factor scales up the difficulty proportional
// to scale*scale.
func KDF(passphrase, uid []byte, scale int) []byte {
	time := uint32(kdfTime * scale)
	memory := uint32(kdfMemory * scale)
	threads := uint8(1)
	return argon2.IDKey(passphrase, uid, time, memory, threads, 64)
}

// Derive runs the passphrase through KDF and hands the seed to
// DeriveFromSeed: the same passphrase and uid always reproduce the
// same key pair, so a derived key never has to be stored at rest.
func (s *Signer) Derive(passphrase, uid []byte, scale int, created int64) (sign, encrypt *packet.PublicKey, err error) {
	seed := KDF(passphrase, uid, scale)
	defer wipe(seed)
	return s.DeriveFromSeed(seed, created)
}

// DeriveFromSeed builds an Ed25519 signing key from the first half of
// a 64-byte seed and a Curve25519 encryption subkey from the second
// half, registers both secrets with the signer, and returns their
// public halves.
func (s *Signer) DeriveFromSeed(seed []byte, created int64) (sign, encrypt *packet.PublicKey, err error) {
	if len(seed) != 64 {
		return nil, nil, pgperr.E("localsign.DeriveFromSeed", pgperr.SourceCore, pgperr.Internal,
			"reason", "seed must be 64 bytes", "len", len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed[:32])
	pub := priv.Public().(ed25519.PublicKey)
	edCurve, _ := packet.CurveByName("Ed25519")
	sign = &packet.PublicKey{
		Version:   4,
		Timestamp: uint32(created),
		Material:  &packet.EdDSAMaterial{Curve: edCurve, Q: append([]byte{0x40}, pub...)},
	}
	grip, err := identity.Keygrip(sign)
	if err != nil {
		return nil, nil, err
	}
	s.Add(Key{Grip: grip, Algo: packet.AlgoEdDSA, Ed25519: priv})

	var scalar [32]byte
	copy(scalar[:], seed[32:])
	defer wipe(scalar[:])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	point, err := curve25519.X25519(scalar[:], curve25519.Basepoint)
	if err != nil {
		return nil, nil, pgperr.E("localsign.DeriveFromSeed", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
	}
	ecdhPriv, err := ecdh.X25519().NewPrivateKey(scalar[:])
	if err != nil {
		return nil, nil, pgperr.E("localsign.DeriveFromSeed", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
	}
	xCurve, _ := packet.CurveByName("Curve25519")
	encrypt = &packet.PublicKey{
		Version:   4,
		Timestamp: uint32(created),
		IsSubkey:  true,
		Material:  &packet.ECDHMaterial{Curve: xCurve, Q: append([]byte{0x40}, point...), KDF: packet.KDFParams{HashAlgo: 8, SymAlgo: 9}},
	}
	egrip, err := identity.Keygrip(encrypt)
	if err != nil {
		return nil, nil, err
	}
	s.Add(Key{Grip: egrip, Algo: packet.AlgoECDH, ECDH: ecdhPriv})
	return sign, encrypt, nil
}

// wipe zeroises a buffer that held secret material before it goes out
// of scope.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
