package packet

import (
	"encoding/binary"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // the name-hash format is fixed externally

	"nullprogram.com/x/opengpg-core/openpgp"
	"nullprogram.com/x/opengpg-core/pgperr"
)

// UserID is a decoded User ID (plain UTF-8 text) or User Attribute
// (opaque image data) packet body.
type UserID struct {
	ID          []byte // UTF-8 text, unset if Attribute is used
	Attribute   []byte // opaque image data, unset if ID is used
	IsAttribute bool
}

// Packet frames this UserID/UserAttribute as its own packet.
func (u *UserID) Packet() openpgp.Packet {
	if u.IsAttribute {
		return openpgp.Packet{Tag: openpgp.TagUserAttribute, Body: u.Attribute}
	}
	return openpgp.Packet{Tag: openpgp.TagUserID, Body: u.ID}
}

// ParseUserID decodes a User ID or User Attribute packet body.
func ParseUserID(tag byte, body []byte) (*UserID, error) {
	switch tag {
	case openpgp.TagUserID:
		return &UserID{ID: body}, nil
	case openpgp.TagUserAttribute:
		return &UserID{Attribute: body, IsAttribute: true}, nil
	default:
		return nil, pgperr.E("packet.ParseUserID", pgperr.SourceCore, pgperr.MalformedPacket, "tag", tag)
	}
}

// hashPrefixed is the hash input certification classes sign over:
// 0xB4 for a text user id, 0xD1 for an attribute, each followed by a
// 4-byte big-endian length and the raw body.
func (u *UserID) hashPrefixed() []byte {
	body := u.ID
	tagByte := byte(0xB4)
	if u.IsAttribute {
		body = u.Attribute
		tagByte = 0xD1
	}
	out := make([]byte, 0, 5+len(body))
	out = append(out, tagByte, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(out[1:5], uint32(len(body)))
	out = append(out, body...)
	return out
}

// WriteHashed appends this user id's hash-prefixed form to h.
func (u *UserID) WriteHashed(h interface{ Write([]byte) (int, error) }) error {
	_, err := h.Write(u.hashPrefixed())
	return err
}

// NameHash is the RIPEMD-160 "name-hash" cached for correlation with
// external trust records.
func (u *UserID) NameHash() [20]byte {
	body := u.ID
	if u.IsAttribute {
		body = u.Attribute
	}
	h := ripemd160.New()
	h.Write(body)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}
