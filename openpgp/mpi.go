// Package openpgp holds the low-level byte-format helpers every
// higher-level package shares: MPI encoding, the generic new-format
// packet header, and ASCII armor. It generalizes the hand-rolled
// mpi/mpiDecode/ParsePacket/Armor helpers of
// nullprogram.com/x/passphrase2pgp/openpgp, lifted out of that
// single-algorithm SignKey/EncryptKey file so every algorithm in
// openpgp/packet can reuse them.
package openpgp

import (
	"encoding/binary"
	"math/big"
)

// MPI encodes a big-endian, leading-zero-stripped integer as an
// OpenPGP multiprecision integer: a 2-byte bit length followed by the
// value bytes (RFC 4880 §3.2).
func MPI(v []byte) []byte {
	b := stripLeadingZeros(v)
	out := make([]byte, 2+len(b))
	binary.BigEndian.PutUint16(out, uint16(bitLen(b)))
	copy(out[2:], b)
	return out
}

// MPIInt encodes a math/big.Int the same way, used by the
// arbitrary-precision algorithms (RSA, DSA, Elgamal).
func MPIInt(v *big.Int) []byte {
	return MPI(v.Bytes())
}

func stripLeadingZeros(v []byte) []byte {
	i := 0
	for i < len(v) && v[i] == 0 {
		i++
	}
	return v[i:]
}

func bitLen(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	n := (len(b) - 1) * 8
	top := b[0]
	for top != 0 {
		n++
		top >>= 1
	}
	return n
}

// DecodeMPI reads one MPI from buf, returning its value bytes (the
// bit length rounded up to whole bytes, exactly as they appear in buf;
// leading zero bytes are not stripped) and the remaining bytes. It reports false if buf is too short for the
// encoded bit length.
func DecodeMPI(buf []byte) (value []byte, rest []byte, ok bool) {
	if len(buf) < 2 {
		return nil, buf, false
	}
	bits := int(binary.BigEndian.Uint16(buf))
	nbytes := (bits + 7) / 8
	if len(buf) < 2+nbytes {
		return nil, buf, false
	}
	return buf[2 : 2+nbytes], buf[2+nbytes:], true
}

// DecodeMPIBig is DecodeMPI followed by big.Int interpretation, for the
// arbitrary-precision algorithms.
func DecodeMPIBig(buf []byte) (*big.Int, []byte, bool) {
	v, rest, ok := DecodeMPI(buf)
	if !ok {
		return nil, buf, false
	}
	return new(big.Int).SetBytes(v), rest, true
}

// DecodeFixed decodes a fixed-width field that is nonetheless encoded
// as an MPI (such as an EdDSA native point encoding, where the bit
// length varies but the caller knows the expected byte length). It
// left-pads the result to n bytes.
func DecodeFixed(buf []byte, n int) (value []byte, rest []byte, ok bool) {
	v, rest, ok := DecodeMPI(buf)
	if !ok {
		return nil, buf, false
	}
	if len(v) > n {
		return nil, buf, false
	}
	out := make([]byte, n)
	copy(out[n-len(v):], v)
	return out, rest, true
}

// Marshal32BE big-endian-encodes a uint32, used for timestamps and
// durations in packet bodies and subpackets.
func Marshal32BE(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// DecodeUint32 reads a 4-byte big-endian value, used for durations
// stored in signature subpackets (key/signature expiration).
func DecodeUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// Checksum is the simple 16-bit sum-of-bytes checksum OpenPGP uses to
// protect unencrypted secret-key material (RFC 4880 §5.5.3).
func Checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}
