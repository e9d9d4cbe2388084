package openpgp

import (
	"bytes"
	"encoding/base64"
)

// Armor wraps a binary OpenPGP message in ASCII armor (RFC 4880 §6).
// Armored transport encoding is a thin convenience on top of the
// engine's binary output, used only by the demo CLI in
// cmd/gpg-keyengine.
func Armor(data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("-----BEGIN PGP PUBLIC KEY BLOCK-----\n\n")
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 64 {
		buf.WriteString(enc[:64])
		buf.WriteByte('\n')
		enc = enc[64:]
	}
	buf.WriteString(enc)
	buf.WriteByte('\n')

	crc := crc24(data)
	var crcBytes [3]byte
	crcBytes[0] = byte(crc >> 16)
	crcBytes[1] = byte(crc >> 8)
	crcBytes[2] = byte(crc)
	buf.WriteByte('=')
	buf.WriteString(base64.StdEncoding.EncodeToString(crcBytes[:]))
	buf.WriteByte('\n')
	buf.WriteString("-----END PGP PUBLIC KEY BLOCK-----\n")
	return buf.Bytes()
}

const crc24Init = 0x00B704CE
const crc24Poly = 0x01864CFB

func crc24(data []byte) uint32 {
	crc := uint32(crc24Init)
	for _, b := range data {
		crc ^= uint32(b) << 16
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x01000000 != 0 {
				crc ^= crc24Poly
			}
		}
	}
	return crc & 0x00FFFFFF
}
