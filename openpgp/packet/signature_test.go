package packet

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignature(t *testing.T) *Signature {
	t.Helper()
	return &Signature{
		Version:  4,
		Class:    SigPositiveCertification,
		PKAlgo:   AlgoRSAEncryptSign,
		HashAlgo: 8,
		Hashed: []Subpacket{
			{Type: SubSignatureCreationTime, Data: []byte{0, 0, 0, 1}},
			{Type: SubKeyFlags, Data: []byte{KeyFlagCertify | KeyFlagSign}},
		},
		Unhashed: []Subpacket{
			{Type: SubIssuerKeyID, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		},
		HashPrefix: [2]byte{0xAB, 0xCD},
		Value:      OneInt{S: big.NewInt(12345)},
	}
}

func TestSignatureBodyAndPacketRoundTrip(t *testing.T) {
	s := testSignature(t)
	body, err := s.Body()
	require.NoError(t, err)

	pkt, err := s.Packet()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), pkt.Tag)
	assert.Equal(t, body, pkt.Body)

	parsed, err := ParseSignatureBody(body)
	require.NoError(t, err)
	assert.Equal(t, s.Class, parsed.Class)
	assert.Equal(t, s.PKAlgo, parsed.PKAlgo)
	assert.Equal(t, s.HashPrefix, parsed.HashPrefix)
	require.Len(t, parsed.Hashed, 2)
	require.Len(t, parsed.Unhashed, 1)

	value, ok := parsed.Value.(OneInt)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(12345), value.S)
}

func TestSignatureFindPrefersHashedOverUnhashed(t *testing.T) {
	s := &Signature{
		Hashed:   []Subpacket{{Type: SubKeyFlags, Data: []byte{1}}},
		Unhashed: []Subpacket{{Type: SubKeyFlags, Data: []byte{2}}},
	}
	sp, ok := s.Find(SubKeyFlags)
	require.True(t, ok)
	assert.Equal(t, []byte{1}, sp.Data)
}

func TestSignatureFindReturnsLastOccurrenceWithinArea(t *testing.T) {
	s := &Signature{Hashed: []Subpacket{
		{Type: SubKeyFlags, Data: []byte{1}},
		{Type: SubKeyFlags, Data: []byte{2}},
	}}
	sp, ok := s.Find(SubKeyFlags)
	require.True(t, ok)
	assert.Equal(t, []byte{2}, sp.Data)
}

func TestSignatureFindAllCollectsAcrossAreas(t *testing.T) {
	s := &Signature{
		Hashed:   []Subpacket{{Type: SubNotationData, Data: []byte("a")}},
		Unhashed: []Subpacket{{Type: SubNotationData, Data: []byte("b")}},
	}
	all := s.FindAll(SubNotationData)
	require.Len(t, all, 2)
	assert.Equal(t, []byte("a"), all[0].Data)
	assert.Equal(t, []byte("b"), all[1].Data)
}

func TestSignatureIssuerKeyIDAndCreationTimeAndKeyFlags(t *testing.T) {
	s := testSignature(t)
	id, ok := s.IssuerKeyID()
	require.True(t, ok)
	assert.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, id)

	ts, ok := s.CreationTime()
	require.True(t, ok)
	assert.Equal(t, uint32(1), ts)

	flags, ok := s.KeyFlags()
	require.True(t, ok)
	assert.Equal(t, byte(KeyFlagCertify|KeyFlagSign), flags)
}

func TestSignatureEmbeddedSignature(t *testing.T) {
	inner := testSignature(t)
	inner.Class = SigPrimaryKeyBinding
	body, err := inner.Body()
	require.NoError(t, err)

	outer := testSignature(t)
	outer.Hashed = append(outer.Hashed, Subpacket{Type: SubEmbeddedSignature, Data: body})

	embedded, ok := outer.EmbeddedSignature()
	require.True(t, ok)
	assert.Equal(t, SigPrimaryKeyBinding, int(embedded.Class))
}

func TestSignatureHashInputMatchesTrailerLength(t *testing.T) {
	s := testSignature(t)
	input := s.HashInput()
	hashedLen := len(s.hashedAreaBytes())
	assert.Equal(t, byte(4), input[len(input)-6])
	assert.Equal(t, byte(0xFF), input[len(input)-5])
	assert.Equal(t, uint32(hashedLen), uint32(input[len(input)-4])<<24|uint32(input[len(input)-3])<<16|uint32(input[len(input)-2])<<8|uint32(input[len(input)-1]))
}

func TestSignatureBodyRejectsMissingValue(t *testing.T) {
	s := testSignature(t)
	s.Value = nil
	_, err := s.Body()
	assert.Error(t, err)
}

func TestParseSignatureBodyRejectsUnsupportedVersion(t *testing.T) {
	_, err := ParseSignatureBody([]byte{9, 0, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestParseSignatureBodyRejectsEmpty(t *testing.T) {
	_, err := ParseSignatureBody(nil)
	assert.Error(t, err)
}

func TestSignatureDSAValueRoundTrip(t *testing.T) {
	s := testSignature(t)
	s.PKAlgo = AlgoDSA
	s.Value = TwoInt{R: big.NewInt(111), S: big.NewInt(222)}
	body, err := s.Body()
	require.NoError(t, err)
	parsed, err := ParseSignatureBody(body)
	require.NoError(t, err)
	v, ok := parsed.Value.(TwoInt)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(111), v.R)
	assert.Equal(t, big.NewInt(222), v.S)
}
