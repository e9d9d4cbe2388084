// Package keyblock stitches a primary key, its user ids and
// their certifications, and its subkeys with their bindings into a
// tree whose in-order traversal matches the on-wire packet layout
// (primary, then each user-id followed by its certifications, then
// each subkey followed by its binding). It checks the structural
// invariants the engine requires before emitting a keyblock, and
// offers an append-only editing API mirroring OpenPGP's own history
// model: mutations always add a new signature, never touch an
// existing one.
package keyblock

import (
	"time"

	"nullprogram.com/x/opengpg-core/openpgp"
	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/openpgp/sigbuilder"
	"nullprogram.com/x/opengpg-core/pgperr"
	"nullprogram.com/x/opengpg-core/pgplog"
)

// UIDNode pairs a user id with every certification that targets it, in
// the order they should appear on the wire.
type UIDNode struct {
	UserID *packet.UserID
	Certs  []*packet.Signature
}

// SubkeyNode pairs a subkey with its binding signature and any
// revocations issued against it, in the order they should appear on
// the wire (binding first, revocations after - append-only, never
// replacing the binding).
type SubkeyNode struct {
	Key         *packet.PublicKey
	Binding     *packet.Signature
	Revocations []*packet.Signature
}

// Keyblock is the assembled tree: one primary key, its direct-key and
// revocation signatures, its user ids, and its subkeys.
type Keyblock struct {
	Primary       *packet.PublicKey
	DirectSigs    []*packet.Signature // class 0x1F, 0x20
	UIDs          []*UIDNode
	Subkeys       []*SubkeyNode
	primaryFpr    [20]byte
	primaryFprSet bool
}

// Assemble builds a Keyblock from already-signed parts, checking
// structural invariants before returning it: every invariant check
// happens before a keyblock is ever handed back to a caller.
func Assemble(primary *packet.PublicKey, uids []*UIDNode, subkeys []*SubkeyNode, directSigs []*packet.Signature) (*Keyblock, error) {
	kb := &Keyblock{Primary: primary, UIDs: uids, Subkeys: subkeys, DirectSigs: directSigs}
	if err := kb.propagateFingerprint(); err != nil {
		return nil, err
	}
	if err := kb.checkInvariants(); err != nil {
		return nil, err
	}
	return kb, nil
}

func (kb *Keyblock) propagateFingerprint() error {
	if kb.Primary == nil {
		return pgperr.E("keyblock.Assemble", pgperr.SourceCore, pgperr.Internal, "reason", "missing primary key")
	}
	fpr, err := kb.Primary.Fingerprint()
	if err != nil {
		return err
	}
	kb.primaryFpr = fpr
	kb.primaryFprSet = true
	return nil
}

// PrimaryFingerprint returns the cached fingerprint computed while
// assembling or parsing this keyblock, so repeated signature lookups
// never re-hash the primary key body.
func (kb *Keyblock) PrimaryFingerprint() ([20]byte, bool) {
	return kb.primaryFpr, kb.primaryFprSet
}

// checkInvariants enforces the structural laws a keyblock must hold:
// the primary node is not marked as a subkey, there is at least one
// user id, every user id carries a certification and at least one
// certification grants the certify flag, and every subkey carries a
// class-0x18 binding. It verifies no signatures: binding signatures
// and embedded back-signatures are checked by VerifyBindings.
func (kb *Keyblock) checkInvariants() error {
	if kb.Primary.IsSubkey {
		return pgperr.E("keyblock.checkInvariants", pgperr.SourceCore, pgperr.Internal, "reason", "primary key node is marked as subkey")
	}
	if len(kb.UIDs) == 0 {
		return pgperr.E("keyblock.checkInvariants", pgperr.SourceCore, pgperr.InvalidUserID, "reason", "keyblock has no user ids")
	}
	certifyCapable := false
	for _, u := range kb.UIDs {
		if len(u.Certs) == 0 {
			return pgperr.E("keyblock.checkInvariants", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "user id has no certification")
		}
		for _, cert := range u.Certs {
			if flags, ok := cert.KeyFlags(); ok && flags&packet.KeyFlagCertify != 0 {
				certifyCapable = true
			}
		}
	}
	if !certifyCapable {
		return pgperr.E("keyblock.checkInvariants", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "primary key carries no certify-capable self-signature")
	}
	for _, sk := range kb.Subkeys {
		if sk.Binding == nil {
			return pgperr.E("keyblock.checkInvariants", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "subkey missing binding signature")
		}
		if sk.Binding.Class != packet.SigSubkeyBinding {
			return pgperr.E("keyblock.checkInvariants", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "subkey binding has wrong class")
		}
	}
	return nil
}

// CheckCreationTime rejects a keyblock whose primary key claims a
// creation time in the future (time warp or clock problem). When
// tolerant is set the conflict is downgraded to a warning and the
// keyblock is accepted anyway.
func (kb *Keyblock) CheckCreationTime(now time.Time, tolerant bool) error {
	created := int64(kb.Primary.Timestamp)
	if created <= now.Unix() {
		return nil
	}
	if tolerant {
		pgplog.Log.Warn("key was created in the future (time warp or clock problem)",
			"created", created, "now", now.Unix())
		return nil
	}
	return pgperr.E("keyblock.CheckCreationTime", pgperr.SourceCore, pgperr.TimeConflict,
		"created", created, "now", now.Unix())
}

// VerifyBindings checks every subkey's binding signature and, where
// the subkey advertises signing capability, its embedded back-signature.
func (kb *Keyblock) VerifyBindings(verifier sigbuilder.Verifier) error {
	for _, sk := range kb.Subkeys {
		target := sigbuilder.Target{Primary: kb.Primary, Subkey: sk.Key}
		if err := sigbuilder.Verify(target, sk.Binding, verifier); err != nil {
			return err
		}
		if err := sigbuilder.VerifyCrossCert(kb.Primary, sk.Key, sk.Binding, verifier); err != nil {
			return err
		}
	}
	return nil
}

// Encode serializes the keyblock in on-wire order: primary, then each
// user id followed by its certifications, then each subkey followed
// by its binding.
func (kb *Keyblock) Encode() ([]byte, error) {
	var out []byte
	pkPkt, err := kb.Primary.Packet()
	if err != nil {
		return nil, err
	}
	out = append(out, pkPkt.Encode()...)
	for _, sig := range kb.DirectSigs {
		sp, err := sig.Packet()
		if err != nil {
			return nil, err
		}
		out = append(out, sp.Encode()...)
	}
	for _, u := range kb.UIDs {
		out = append(out, u.UserID.Packet().Encode()...)
		for _, sig := range u.Certs {
			sp, err := sig.Packet()
			if err != nil {
				return nil, err
			}
			out = append(out, sp.Encode()...)
		}
	}
	for _, sk := range kb.Subkeys {
		skPkt, err := sk.Key.Packet()
		if err != nil {
			return nil, err
		}
		out = append(out, skPkt.Encode()...)
		bPkt, err := sk.Binding.Packet()
		if err != nil {
			return nil, err
		}
		out = append(out, bPkt.Encode()...)
		for _, rev := range sk.Revocations {
			rPkt, err := rev.Packet()
			if err != nil {
				return nil, err
			}
			out = append(out, rPkt.Encode()...)
		}
	}
	return out, nil
}

// Parse decodes a keyblock from its on-wire packet sequence. It does
// not verify signatures; callers that need that call VerifyBindings
// and verify certifications with sigbuilder.Verify themselves.
func Parse(data []byte) (*Keyblock, error) {
	var kb Keyblock
	var curUID *UIDNode
	var curSubkey *SubkeyNode

	for len(data) > 0 {
		pkt, rest, err := openpgp.ParsePacket(data)
		if err != nil {
			return nil, err
		}
		data = rest

		switch pkt.Tag {
		case openpgp.TagPublicKey:
			if kb.Primary != nil {
				return nil, pgperr.E("keyblock.Parse", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "multiple primary keys")
			}
			pk, err := packet.ParsePublicKey(pkt.Body, false)
			if err != nil {
				return nil, err
			}
			kb.Primary = pk
		case openpgp.TagPublicSubkey:
			pk, err := packet.ParsePublicKey(pkt.Body, true)
			if err != nil {
				return nil, err
			}
			curSubkey = &SubkeyNode{Key: pk}
			kb.Subkeys = append(kb.Subkeys, curSubkey)
			curUID = nil
		case openpgp.TagUserID, openpgp.TagUserAttribute:
			uid, err := packet.ParseUserID(pkt.Tag, pkt.Body)
			if err != nil {
				return nil, err
			}
			curUID = &UIDNode{UserID: uid}
			kb.UIDs = append(kb.UIDs, curUID)
			curSubkey = nil
		case openpgp.TagSignature:
			sig, err := packet.ParseSignatureBody(pkt.Body)
			if err != nil {
				return nil, err
			}
			switch {
			case curSubkey != nil && curSubkey.Binding == nil:
				curSubkey.Binding = sig
			case curSubkey != nil:
				curSubkey.Revocations = append(curSubkey.Revocations, sig)
			case curUID != nil:
				curUID.Certs = append(curUID.Certs, sig)
			default:
				kb.DirectSigs = append(kb.DirectSigs, sig)
			}
		default:
			return nil, pgperr.E("keyblock.Parse", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "unexpected packet in keyblock", "tag", pkt.Tag)
		}
	}

	if err := kb.propagateFingerprint(); err != nil {
		return nil, err
	}
	if err := kb.checkInvariants(); err != nil {
		return nil, err
	}
	return &kb, nil
}

// AddUserID appends a new, already-certified user id node. Per
// the append-only editing convention every mutator here follows, this
// never touches an existing node.
func (kb *Keyblock) AddUserID(uid *packet.UserID, cert *packet.Signature) {
	kb.UIDs = append(kb.UIDs, &UIDNode{UserID: uid, Certs: []*packet.Signature{cert}})
}

// AddSubkey appends a new subkey with its binding signature.
func (kb *Keyblock) AddSubkey(key *packet.PublicKey, binding *packet.Signature) error {
	if binding.Class != packet.SigSubkeyBinding {
		return pgperr.E("keyblock.AddSubkey", pgperr.SourceCore, pgperr.Internal, "reason", "binding has wrong class")
	}
	kb.Subkeys = append(kb.Subkeys, &SubkeyNode{Key: key, Binding: binding})
	return nil
}

// ExpireSubkey appends a fresh binding signature carrying an updated
// Key Expiration subpacket for the named subkey, without removing the
// old binding - history stays append-only. Callers are
// expected to have produced newBinding via sigbuilder.Sign with the
// updated expiration subpacket.
func (kb *Keyblock) ExpireSubkey(fingerprint [20]byte, newBinding *packet.Signature) error {
	for _, sk := range kb.Subkeys {
		fpr, err := sk.Key.Fingerprint()
		if err != nil {
			return err
		}
		if fpr == fingerprint {
			kb.Subkeys = append(kb.Subkeys, &SubkeyNode{Key: sk.Key, Binding: newBinding})
			return nil
		}
	}
	return pgperr.E("keyblock.ExpireSubkey", pgperr.SourceCore, pgperr.NoSecretKey, "reason", "subkey not found")
}

// Revoke appends a revocation signature (class 0x20 direct-key
// revocation, 0x28 subkey revocation, or 0x30 cert revocation),
// without removing anything it targets.
func (kb *Keyblock) Revoke(revocation *packet.Signature) error {
	switch revocation.Class {
	case packet.SigKeyRevocation:
		kb.DirectSigs = append(kb.DirectSigs, revocation)
	case packet.SigSubkeyRevocation:
		if len(kb.Subkeys) == 0 {
			return pgperr.E("keyblock.Revoke", pgperr.SourceCore, pgperr.NoSecretKey, "reason", "no subkey to attach revocation to")
		}
		last := kb.Subkeys[len(kb.Subkeys)-1]
		last.Revocations = append(last.Revocations, revocation)
	case packet.SigCertRevocation:
		if len(kb.UIDs) == 0 {
			return pgperr.E("keyblock.Revoke", pgperr.SourceCore, pgperr.InvalidUserID, "reason", "no user id to attach revocation to")
		}
		last := kb.UIDs[len(kb.UIDs)-1]
		last.Certs = append(last.Certs, revocation)
	default:
		return pgperr.E("keyblock.Revoke", pgperr.SourceCore, pgperr.Internal, "reason", "not a revocation class", "class", revocation.Class)
	}
	return nil
}
