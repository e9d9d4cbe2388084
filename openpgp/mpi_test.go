package openpgp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMPIRoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x01},
		{0xFF},
		{0x01, 0x00},
		{0x00, 0x00, 0x01, 0x23},
		{},
	}
	for _, v := range cases {
		enc := MPI(v)
		value, rest, ok := DecodeMPI(enc)
		require.True(t, ok)
		assert.Empty(t, rest)
		assert.Equal(t, stripLeadingZeros(v), value)
	}
}

func TestMPIBitLength(t *testing.T) {
	// 0x01 is 1 bit, 0xFF is 8 bits, 0x0100 is 9 bits.
	assert.Equal(t, []byte{0x00, 0x01, 0x01}, MPI([]byte{0x01}))
	assert.Equal(t, []byte{0x00, 0x08, 0xFF}, MPI([]byte{0xFF}))
	assert.Equal(t, []byte{0x00, 0x09, 0x01, 0x00}, MPI([]byte{0x01, 0x00}))
}

func TestMPIIntRoundTrip(t *testing.T) {
	n := big.NewInt(0).SetBytes([]byte{0x12, 0x34, 0x56, 0x78, 0x9A})
	enc := MPIInt(n)
	got, rest, ok := DecodeMPIBig(enc)
	require.True(t, ok)
	assert.Empty(t, rest)
	assert.Equal(t, 0, n.Cmp(got))
}

func TestDecodeMPITruncated(t *testing.T) {
	_, _, ok := DecodeMPI([]byte{0x00})
	assert.False(t, ok)

	_, _, ok = DecodeMPI([]byte{0x00, 0x10, 0x01}) // claims 16 bits, only 1 byte follows
	assert.False(t, ok)
}

func TestDecodeFixedPadsToWidth(t *testing.T) {
	enc := MPI([]byte{0x01, 0x02}) // 2 significant bytes
	value, rest, ok := DecodeFixed(enc, 4)
	require.True(t, ok)
	assert.Empty(t, rest)
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x02}, value)
}

func TestDecodeFixedRejectsOverflow(t *testing.T) {
	enc := MPI([]byte{0x01, 0x02, 0x03})
	_, _, ok := DecodeFixed(enc, 2)
	assert.False(t, ok)
}

func TestMarshal32BERoundTrip(t *testing.T) {
	b := Marshal32BE(0x01020304)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, b)
	assert.Equal(t, uint32(0x01020304), DecodeUint32(b))
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, uint16(0), Checksum(nil))
	assert.Equal(t, uint16(3), Checksum([]byte{1, 2}))
	assert.Equal(t, uint16(255*3), Checksum([]byte{255, 255, 255}))
}
