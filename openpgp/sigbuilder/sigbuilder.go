// Package sigbuilder hashes the right bytes in the right order for
// every signature class, and encodes or decodes the hashed/unhashed
// subpacket sets that classify a signature's intent. Actually
// producing or checking the cryptographic signature value is
// delegated to a Signer (for signing, which touches secret material
// and so belongs to the agent) or a Verifier, which is pure and
// requires no agent involvement.
package sigbuilder

import (
	"crypto/sha1"  //nolint:gosec // RFC 4880 hash algorithm id 2
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"time"

	"nullprogram.com/x/opengpg-core/openpgp"
	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/pgperr"
)

// Hash algorithm ids this engine uses (RFC 4880 §9.4).
const (
	HashSHA1   = 2
	HashSHA256 = 8
	HashSHA384 = 9
	HashSHA512 = 10
	HashSHA224 = 11
)

func newHash(algo byte) (hash.Hash, error) {
	switch algo {
	case HashSHA1:
		return sha1.New(), nil //nolint:gosec // verification must support legacy SHA-1 signatures
	case HashSHA256:
		return sha256.New(), nil
	case HashSHA384:
		return sha512.New384(), nil
	case HashSHA512:
		return sha512.New(), nil
	case HashSHA224:
		return sha256.New224(), nil
	default:
		return nil, pgperr.E("sigbuilder.newHash", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "hash_algo", algo)
	}
}

// Target bundles the packets a given signature class hashes alongside
// its own trailer.
type Target struct {
	Primary *packet.PublicKey
	Subkey  *packet.PublicKey // non-nil for 0x18/0x19/0x28
	UserID  *packet.UserID    // non-nil for 0x10-0x13/0x30
}

// Digest computes the bytes the signature algorithm actually signs:
// the class-ordered target material, followed by sig's own
// HashInput (header + hashed subpackets + trailer).
func Digest(t Target, sig *packet.Signature) ([]byte, error) {
	h, err := newHash(sig.HashAlgo)
	if err != nil {
		return nil, err
	}
	if err := writeTargets(h, t, sig.Class); err != nil {
		return nil, err
	}
	h.Write(sig.HashInput())
	return h.Sum(nil), nil
}

func writeTargets(h hash.Hash, t Target, class byte) error {
	switch class {
	case packet.SigGenericCertification, packet.SigPersonaCertification,
		packet.SigCasualCertification, packet.SigPositiveCertification,
		packet.SigCertRevocation:
		if t.Primary == nil || t.UserID == nil {
			return missingTarget("primary key and user id")
		}
		if err := t.Primary.WriteHashed(h); err != nil {
			return err
		}
		return t.UserID.WriteHashed(h)
	case packet.SigSubkeyBinding, packet.SigPrimaryKeyBinding, packet.SigSubkeyRevocation:
		if t.Primary == nil || t.Subkey == nil {
			return missingTarget("primary key and subkey")
		}
		if err := t.Primary.WriteHashed(h); err != nil {
			return err
		}
		return t.Subkey.WriteHashed(h)
	case packet.SigDirectKey, packet.SigKeyRevocation:
		if t.Primary == nil {
			return missingTarget("primary key")
		}
		return t.Primary.WriteHashed(h)
	default:
		return pgperr.E("sigbuilder.writeTargets", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "unsupported signature class", "class", class)
	}
}

func missingTarget(what string) error {
	return pgperr.E("sigbuilder.writeTargets", pgperr.SourceCore, pgperr.Internal, "reason", "missing "+what)
}

// Signer performs the secret-key operation a Sign call needs: compute
// a raw cryptographic signature over digest, under the key named by
// keygrip, for the given public-key algorithm and hash algorithm id.
// The agent package implements this over the line protocol; a local
// in-process signer (used for software-generated demo keys) may
// implement it directly.
type Signer interface {
	Sign(keygrip [20]byte, pkAlgo packet.Algorithm, hashAlgo byte, digest []byte) (packet.SigValue, error)
}

// Verifier checks a raw cryptographic signature. It is pure: no agent
// connection is ever required.
type Verifier interface {
	Verify(pk *packet.PublicKey, hashAlgo byte, digest []byte, value packet.SigValue) error
}

// Options configures a Sign call's subpacket content.
type Options struct {
	Created  time.Time
	Hashed   []packet.Subpacket // caller-supplied hashed subpackets, appended after creation time
	Unhashed []packet.Subpacket // caller-supplied unhashed subpackets, appended after the issuer keyid
}

// Sign builds and signs a v4 signature of the given class over t,
// using keygrip via signer. It always emits the Signature Creation
// Time subpacket first in the hashed area and the Issuer subpacket
// first in the unhashed area, callers
// supply the rest through Options.
func Sign(t Target, class byte, hashAlgo byte, signer Signer, keygrip [20]byte, opts Options) (*packet.Signature, error) {
	if t.Primary == nil {
		return nil, missingTarget("primary key")
	}
	issuerID, err := t.Primary.KeyID()
	if err != nil {
		return nil, err
	}
	issuerAlgo := t.Primary.Algo()
	// For a 0x19 back-signature, the issuer is the subkey, not the
	// primary: it is the signing subkey certifying its primary.
	if class == packet.SigPrimaryKeyBinding {
		if t.Subkey == nil {
			return nil, missingTarget("subkey")
		}
		issuerID, err = t.Subkey.KeyID()
		if err != nil {
			return nil, err
		}
		issuerAlgo = t.Subkey.Algo()
	}

	created := opts.Created
	if created.IsZero() {
		created = openpgp.Now()
	}

	hashed := make([]packet.Subpacket, 0, len(opts.Hashed)+1)
	hashed = append(hashed, packet.Subpacket{
		Type: packet.SubSignatureCreationTime,
		Data: openpgp.Marshal32BE(uint32(created.Unix())),
	})
	hashed = append(hashed, opts.Hashed...)

	unhashed := make([]packet.Subpacket, 0, len(opts.Unhashed)+1)
	unhashed = append(unhashed, packet.Subpacket{Type: packet.SubIssuerKeyID, Data: issuerID[:]})
	unhashed = append(unhashed, opts.Unhashed...)

	sig := &packet.Signature{
		Version:  4,
		Class:    class,
		PKAlgo:   issuerAlgo,
		HashAlgo: hashAlgo,
		Hashed:   hashed,
		Unhashed: unhashed,
	}

	digest, err := Digest(t, sig)
	if err != nil {
		return nil, err
	}
	sig.HashPrefix[0], sig.HashPrefix[1] = digest[0], digest[1]

	value, err := signer.Sign(keygrip, issuerAlgo, hashAlgo, digest)
	if err != nil {
		return nil, err
	}
	sig.Value = value
	return sig, nil
}

// Verify recomputes the digest for t/sig and checks the hash-prefix
// fast-reject plus the cryptographic signature via verifier. A
// CRITICAL hashed subpacket of a type this engine cannot interpret
// fails the signature; other signatures in the same keyblock are
// unaffected.
func Verify(t Target, sig *packet.Signature, verifier Verifier) error {
	for _, sp := range sig.Hashed {
		if sp.Critical && !packet.KnownSubpacketType(sp.Type) {
			return pgperr.E("sigbuilder.Verify", pgperr.SourceCore, pgperr.CriticalSubpacketUnknown, "type", sp.Type)
		}
	}
	digest, err := Digest(t, sig)
	if err != nil {
		return err
	}
	if digest[0] != sig.HashPrefix[0] || digest[1] != sig.HashPrefix[1] {
		return pgperr.E("sigbuilder.Verify", pgperr.SourceCore, pgperr.BadSignature, "reason", "hash prefix mismatch")
	}
	pk := t.Primary
	if sig.Class == packet.SigPrimaryKeyBinding {
		pk = t.Subkey
	}
	if err := verifier.Verify(pk, sig.HashAlgo, digest, sig.Value); err != nil {
		return err
	}
	return checkTimeValidity(sig)
}

func checkTimeValidity(sig *packet.Signature) error {
	created, ok := sig.CreationTime()
	if !ok {
		return pgperr.E("sigbuilder.Verify", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "missing signature creation time")
	}
	expSP, hasExp := sig.Find(packet.SubSignatureExpiration)
	if !hasExp {
		return nil
	}
	if len(expSP.Data) != 4 {
		return nil
	}
	delta := openpgp.DecodeUint32(expSP.Data)
	if delta == 0 {
		return nil
	}
	expiresAt := int64(created) + int64(delta)
	if openpgp.Now().Unix() > expiresAt {
		return pgperr.E("sigbuilder.Verify", pgperr.SourceCore, pgperr.SignatureExpired, "expired_at", expiresAt)
	}
	return nil
}

// VerifyCrossCert rejects a subkey binding that advertises signing
// capability but lacks a valid 0x19 back-signature, as tampered.
func VerifyCrossCert(primary, subkey *packet.PublicKey, binding *packet.Signature, verifier Verifier) error {
	flags, _ := binding.KeyFlags()
	if flags&packet.KeyFlagSign == 0 {
		return nil // subkey does not advertise signing capability, no back-sig required
	}
	embedded, ok := binding.EmbeddedSignature()
	if !ok {
		return pgperr.E("sigbuilder.VerifyCrossCert", pgperr.SourceCore, pgperr.MissingCrossCert)
	}
	if embedded.Class != packet.SigPrimaryKeyBinding {
		return pgperr.E("sigbuilder.VerifyCrossCert", pgperr.SourceCore, pgperr.MissingCrossCert, "reason", "embedded signature has wrong class")
	}
	return Verify(Target{Primary: primary, Subkey: subkey}, embedded, verifier)
}
