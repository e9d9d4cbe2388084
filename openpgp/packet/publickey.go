package packet

import (
	"crypto/sha1" //nolint:gosec // mandated by the OpenPGP v4 fingerprint/keygrip formats
	"encoding/binary"

	"nullprogram.com/x/opengpg-core/openpgp"
	"nullprogram.com/x/opengpg-core/pgperr"
)

// PublicKey is a decoded Public-Key or Public-Subkey packet.
// ParsePublicKey accepts version 3 keys as well as version 4, but Body,
// and with it Fingerprint, KeyID and WriteHashed, handles only version
// 4; this engine never constructs a v3 key.
type PublicKey struct {
	Version     byte
	Timestamp   uint32 // seconds since Unix epoch; part of the v4 fingerprint
	ExpiresAfter uint32 // 0 = never; seconds after Timestamp. Cached metadata, not part of the packet body.
	Material    KeyMaterial
	IsSubkey    bool // true for a Public-Subkey packet (tag 14) rather than Public-Key (tag 6)

	fingerprint *[20]byte
	keyID       *[8]byte
	keygrip     *[20]byte
}

// Algo is a convenience accessor for Material.Algo.
func (pk *PublicKey) Algo() Algorithm {
	if pk.Material == nil {
		return 0
	}
	return pk.Material.Algo()
}

// Body returns the canonical v4 public-key packet body: version,
// timestamp, algorithm, key material - the same bytes that feed both
// the wire packet and the fingerprint hash.
func (pk *PublicKey) Body() ([]byte, error) {
	if pk.Version != 4 {
		return nil, pgperr.E("packet.PublicKey.Body", pgperr.SourceCore, pgperr.UnsupportedVersion, "version", pk.Version)
	}
	if pk.Material == nil {
		return nil, pgperr.E("packet.PublicKey.Body", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "missing key material")
	}
	out := make([]byte, 0, 6+64)
	out = append(out, pk.Version)
	out = append(out, openpgp.Marshal32BE(pk.Timestamp)...)
	out = append(out, byte(pk.Algo()))
	out = append(out, pk.Material.Encode()...)
	return out, nil
}

// Packet frames Body as a Public-Key (or Public-Subkey) packet.
func (pk *PublicKey) Packet() (openpgp.Packet, error) {
	body, err := pk.Body()
	if err != nil {
		return openpgp.Packet{}, err
	}
	tag := byte(openpgp.TagPublicKey)
	if pk.IsSubkey {
		tag = openpgp.TagPublicSubkey
	}
	return openpgp.Packet{Tag: tag, Body: body}, nil
}

// ParsePublicKey decodes a Public-Key/Public-Subkey packet body
// (the bytes after the packet header) into a PublicKey.
func ParsePublicKey(body []byte, isSubkey bool) (*PublicKey, error) {
	if len(body) < 6 {
		return nil, pgperr.E("packet.ParsePublicKey", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "truncated header")
	}
	version := body[0]
	if version != 4 && version != 3 {
		return nil, pgperr.E("packet.ParsePublicKey", pgperr.SourceCore, pgperr.UnsupportedVersion, "version", version)
	}
	timestamp := binary.BigEndian.Uint32(body[1:5])
	// A v3 key carries a 2-byte validity period (days) before the algorithm.
	algoAt := 5
	if version == 3 {
		algoAt = 7
		if len(body) < 8 {
			return nil, pgperr.E("packet.ParsePublicKey", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "truncated header")
		}
	}
	algo, err := ParseAlgorithm(body[algoAt])
	if err != nil {
		return nil, err
	}
	material, rest, err := DecodeKeyMaterial(algo, body[algoAt+1:])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, pgperr.E("packet.ParsePublicKey", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "trailing bytes after key material")
	}
	return &PublicKey{Version: version, Timestamp: timestamp, Material: material, IsSubkey: isSubkey}, nil
}

// hashPrefixed is the "0x99 || len(2BE) || body" form every signature
// class hashes a public key under.
func (pk *PublicKey) hashPrefixed() ([]byte, error) {
	body, err := pk.Body()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 3+len(body))
	out = append(out, 0x99, byte(len(body)>>8), byte(len(body)))
	out = append(out, body...)
	return out, nil
}

// WriteHashed appends this key's hash-prefixed canonical form to h, as
// every certification/binding/revocation class requires.
func (pk *PublicKey) WriteHashed(h interface{ Write([]byte) (int, error) }) error {
	b, err := pk.hashPrefixed()
	if err != nil {
		return err
	}
	_, err = h.Write(b)
	return err
}

// Fingerprint is the v4 20-byte SHA-1 fingerprint, cached after first
// computation.
func (pk *PublicKey) Fingerprint() ([20]byte, error) {
	if pk.fingerprint != nil {
		return *pk.fingerprint, nil
	}
	b, err := pk.hashPrefixed()
	if err != nil {
		return [20]byte{}, err
	}
	sum := sha1.Sum(b)
	pk.fingerprint = &sum
	return sum, nil
}

// KeyID is the low 64 bits of the fingerprint. It is a
// lossy identifier: callers must confirm the full fingerprint before
// relying on it for a security decision.
func (pk *PublicKey) KeyID() ([8]byte, error) {
	if pk.keyID != nil {
		return *pk.keyID, nil
	}
	fp, err := pk.Fingerprint()
	if err != nil {
		return [8]byte{}, err
	}
	var id [8]byte
	copy(id[:], fp[12:20])
	pk.keyID = &id
	return id, nil
}

// ShortKeyID is the lower 4 bytes of the Key ID.
func (pk *PublicKey) ShortKeyID() ([4]byte, error) {
	id, err := pk.KeyID()
	if err != nil {
		return [4]byte{}, err
	}
	var short [4]byte
	copy(short[:], id[4:8])
	return short, nil
}

// InvalidateCache clears cached identifiers, required after mutating
// Timestamp or Material: the keygrip is independent of Timestamp, but
// Fingerprint and KeyID are not.
func (pk *PublicKey) InvalidateCache() {
	pk.fingerprint = nil
	pk.keyID = nil
	pk.keygrip = nil
}

// SetKeygrip caches a keygrip computed elsewhere (identity.Keygrip
// lives in a separate package to avoid an import cycle with the
// S-expression builder, which also serves agent.GenKey parameter
// construction).
func (pk *PublicKey) SetKeygrip(g [20]byte) { pk.keygrip = &g }

// CachedKeygrip returns the keygrip if SetKeygrip was previously
// called, for callers that want to avoid recomputation.
func (pk *PublicKey) CachedKeygrip() ([20]byte, bool) {
	if pk.keygrip == nil {
		return [20]byte{}, false
	}
	return *pk.keygrip, true
}
