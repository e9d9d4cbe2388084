package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubpacketEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"short", []byte{1, 2, 3}},
		{"exactly-190-body", make([]byte, 190)},
		{"two-byte-length", make([]byte, 1000)},
		{"five-byte-length", make([]byte, 20000)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sp := Subpacket{Type: SubKeyFlags, Critical: true, Data: c.data}
			encoded := sp.Encode()
			decoded, err := DecodeSubpackets(encoded)
			require.NoError(t, err)
			require.Len(t, decoded, 1)
			assert.Equal(t, SubKeyFlags, int(decoded[0].Type))
			assert.True(t, decoded[0].Critical)
			assert.Equal(t, sp.Data, decoded[0].Data)
		})
	}
}

func TestSubpacketCriticalBitClearedOnType(t *testing.T) {
	sp := Subpacket{Type: SubIssuerKeyID, Critical: false, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	decoded, err := DecodeSubpackets(sp.Encode())
	require.NoError(t, err)
	assert.Equal(t, SubIssuerKeyID, int(decoded[0].Type))
	assert.False(t, decoded[0].Critical)
}

func TestDecodeSubpacketsMultiple(t *testing.T) {
	a := Subpacket{Type: SubSignatureCreationTime, Data: []byte{0, 0, 0, 1}}
	b := Subpacket{Type: SubKeyFlags, Data: []byte{0x03}}
	buf := append(a.Encode(), b.Encode()...)
	decoded, err := DecodeSubpackets(buf)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, SubSignatureCreationTime, int(decoded[0].Type))
	assert.Equal(t, SubKeyFlags, int(decoded[1].Type))
}

func TestDecodeSubpacketsRejectsTruncated(t *testing.T) {
	_, err := DecodeSubpackets([]byte{5, 1, 2})
	assert.Error(t, err)
}

func TestRevocationKeyEncodeDecodeRoundTrip(t *testing.T) {
	rk := RevocationKey{Class: 0x40, AlgoID: AlgoEdDSA, Fingerprint: [20]byte{1, 2, 3}}
	encoded := rk.Encode()
	assert.Equal(t, byte(0xC0), encoded[0])

	decoded, err := DecodeRevocationKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, AlgoEdDSA, decoded.AlgoID)
	assert.Equal(t, rk.Fingerprint, decoded.Fingerprint)
}

func TestDecodeRevocationKeyRejectsBadLength(t *testing.T) {
	_, err := DecodeRevocationKey([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestKeyFlagsValid(t *testing.T) {
	assert.True(t, KeyFlagsValid(KeyFlagCertify|KeyFlagSign))
	assert.True(t, KeyFlagsValid(KeyFlagEncryptCommunications|KeyFlagEncryptStorage|KeyFlagAuthenticate))
	assert.False(t, KeyFlagsValid(0x80))
}
