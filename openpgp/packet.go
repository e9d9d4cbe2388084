package openpgp

import (
	"encoding/binary"

	"nullprogram.com/x/opengpg-core/pgperr"
)

// Packet tags this engine produces or consumes (RFC 4880 §4.3).
const (
	TagSignature     = 2
	TagSecretKey     = 5
	TagPublicKey     = 6
	TagSecretSubkey  = 7
	TagUserID        = 13
	TagPublicSubkey  = 14
	TagUserAttribute = 17
)

// Packet is the generic tag+body view of one OpenPGP packet. Every
// typed packet in openpgp/packet round-trips through this before
// interpretation.
type Packet struct {
	Tag  byte
	Body []byte
}

// Encode frames Body under Tag using new-format packet length encoding
// (RFC 4880 §4.2.2): one byte for length < 192, two bytes for
// 192-8383, and a 5-byte (0xFF + 4BE) header for anything larger. This
// engine never emits partial-length packets.
func (p Packet) Encode() []byte {
	header := encodeNewFormatHeader(p.Tag, len(p.Body))
	out := make([]byte, 0, len(header)+len(p.Body))
	out = append(out, header...)
	out = append(out, p.Body...)
	return out
}

func encodeNewFormatHeader(tag byte, bodyLen int) []byte {
	tagByte := 0xC0 | tag
	switch {
	case bodyLen < 192:
		return []byte{tagByte, byte(bodyLen)}
	case bodyLen < 8384:
		n := bodyLen - 192
		return []byte{tagByte, byte(192 + (n >> 8)), byte(n)}
	default:
		h := make([]byte, 6)
		h[0] = tagByte
		h[1] = 0xFF
		binary.BigEndian.PutUint32(h[2:], uint32(bodyLen))
		return h
	}
}

// ParsePacket reads one packet (new or old format header) from buf,
// returning the packet and the remaining bytes.
func ParsePacket(buf []byte) (pkt Packet, rest []byte, err error) {
	if len(buf) < 1 {
		return Packet{}, buf, pgperr.E("openpgp.ParsePacket", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "empty input")
	}
	first := buf[0]
	if first&0xC0 == 0xC0 {
		return parseNewFormat(buf)
	}
	if first&0x80 == 0 {
		return Packet{}, buf, pgperr.E("openpgp.ParsePacket", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "missing packet tag bit")
	}
	return parseOldFormat(buf)
}

func parseNewFormat(buf []byte) (Packet, []byte, error) {
	tag := buf[0] & 0x3F
	if len(buf) < 2 {
		return Packet{}, buf, pgperr.E("openpgp.ParsePacket", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "truncated header")
	}
	l0 := buf[1]
	switch {
	case l0 < 192:
		n := int(l0)
		if len(buf) < 2+n {
			return Packet{}, buf, truncated()
		}
		return Packet{Tag: tag, Body: buf[2 : 2+n]}, buf[2+n:], nil
	case l0 < 224:
		if len(buf) < 3 {
			return Packet{}, buf, truncated()
		}
		n := (int(l0)-192)<<8 + int(buf[2]) + 192
		if len(buf) < 3+n {
			return Packet{}, buf, truncated()
		}
		return Packet{Tag: tag, Body: buf[3 : 3+n]}, buf[3+n:], nil
	case l0 == 255:
		if len(buf) < 6 {
			return Packet{}, buf, truncated()
		}
		n := int(binary.BigEndian.Uint32(buf[2:6]))
		if len(buf) < 6+n {
			return Packet{}, buf, truncated()
		}
		return Packet{Tag: tag, Body: buf[6 : 6+n]}, buf[6+n:], nil
	default:
		return Packet{}, buf, pgperr.E("openpgp.ParsePacket", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "partial body length unsupported")
	}
}

func parseOldFormat(buf []byte) (Packet, []byte, error) {
	tag := (buf[0] >> 2) & 0x0F
	lengthType := buf[0] & 0x03
	switch lengthType {
	case 0:
		if len(buf) < 2 {
			return Packet{}, buf, truncated()
		}
		n := int(buf[1])
		if len(buf) < 2+n {
			return Packet{}, buf, truncated()
		}
		return Packet{Tag: tag, Body: buf[2 : 2+n]}, buf[2+n:], nil
	case 1:
		if len(buf) < 3 {
			return Packet{}, buf, truncated()
		}
		n := int(binary.BigEndian.Uint16(buf[1:3]))
		if len(buf) < 3+n {
			return Packet{}, buf, truncated()
		}
		return Packet{Tag: tag, Body: buf[3 : 3+n]}, buf[3+n:], nil
	case 2:
		if len(buf) < 5 {
			return Packet{}, buf, truncated()
		}
		n := int(binary.BigEndian.Uint32(buf[1:5]))
		if len(buf) < 5+n {
			return Packet{}, buf, truncated()
		}
		return Packet{Tag: tag, Body: buf[5 : 5+n]}, buf[5+n:], nil
	default:
		return Packet{}, buf, pgperr.E("openpgp.ParsePacket", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "indeterminate length unsupported")
	}
}

func truncated() error {
	return pgperr.E("openpgp.ParsePacket", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "truncated body")
}
