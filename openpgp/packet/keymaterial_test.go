package packet

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSAMaterialEncodeDecodeRoundTrip(t *testing.T) {
	m := &RSAMaterial{AlgoID: AlgoRSAEncryptSign, N: big.NewInt(65537 * 12345), E: big.NewInt(65537)}
	decoded, rest, err := DecodeKeyMaterial(AlgoRSAEncryptSign, m.Encode())
	require.NoError(t, err)
	assert.Empty(t, rest)
	got := decoded.(*RSAMaterial)
	assert.Equal(t, m.N, got.N)
	assert.Equal(t, m.E, got.E)
	assert.Equal(t, AlgoRSAEncryptSign, decoded.Algo())
}

func TestDSAMaterialEncodeDecodeRoundTrip(t *testing.T) {
	m := &DSAMaterial{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(4), Y: big.NewInt(9)}
	decoded, rest, err := DecodeKeyMaterial(AlgoDSA, m.Encode())
	require.NoError(t, err)
	assert.Empty(t, rest)
	got := decoded.(*DSAMaterial)
	assert.Equal(t, m.P, got.P)
	assert.Equal(t, m.Q, got.Q)
	assert.Equal(t, m.G, got.G)
	assert.Equal(t, m.Y, got.Y)
}

func TestElgamalMaterialAlgoIsAlwaysEncryptOnly(t *testing.T) {
	m := &ElgamalMaterial{}
	assert.Equal(t, AlgoElgamalEncrypt, m.Algo())
}

func TestElgamalMaterialEncodeDecodeRoundTrip(t *testing.T) {
	m := &ElgamalMaterial{P: big.NewInt(23), G: big.NewInt(4), Y: big.NewInt(9)}
	decoded, rest, err := DecodeKeyMaterial(AlgoElgamalEncrypt, m.Encode())
	require.NoError(t, err)
	assert.Empty(t, rest)
	got := decoded.(*ElgamalMaterial)
	assert.Equal(t, m.P, got.P)
	assert.Equal(t, m.G, got.G)
	assert.Equal(t, m.Y, got.Y)
}

func TestEdDSAMaterialEncodeDecodeRoundTrip(t *testing.T) {
	curve, ok := CurveByName("Ed25519")
	require.True(t, ok)
	m := &EdDSAMaterial{Curve: curve, Q: []byte{0x40, 1, 2, 3}}
	decoded, rest, err := DecodeKeyMaterial(AlgoEdDSA, m.Encode())
	require.NoError(t, err)
	assert.Empty(t, rest)
	got := decoded.(*EdDSAMaterial)
	assert.Equal(t, "Ed25519", got.Curve.Name)
	assert.Equal(t, m.Q, got.Q)
}

func TestECDSAMaterialEncodeDecodeRoundTrip(t *testing.T) {
	curve, ok := CurveByName("NIST P-256")
	require.True(t, ok)
	m := &ECDSAMaterial{Curve: curve, Q: append([]byte{0x04}, make([]byte, 64)...)}
	decoded, rest, err := DecodeKeyMaterial(AlgoECDSA, m.Encode())
	require.NoError(t, err)
	assert.Empty(t, rest)
	got := decoded.(*ECDSAMaterial)
	assert.Equal(t, "NIST P-256", got.Curve.Name)
	assert.Equal(t, m.Q, got.Q)
}

func TestECDHMaterialEncodeDecodeRoundTrip(t *testing.T) {
	curve, ok := CurveByName("Curve25519")
	require.True(t, ok)
	m := &ECDHMaterial{Curve: curve, Q: []byte{0x40, 9, 9}, KDF: KDFParams{HashAlgo: 8, SymAlgo: 9}}
	decoded, rest, err := DecodeKeyMaterial(AlgoECDH, m.Encode())
	require.NoError(t, err)
	assert.Empty(t, rest)
	got := decoded.(*ECDHMaterial)
	assert.Equal(t, "Curve25519", got.Curve.Name)
	assert.Equal(t, m.Q, got.Q)
	assert.Equal(t, m.KDF, got.KDF)
}

func TestDecodeKeyMaterialRejectsUnknownCurveOID(t *testing.T) {
	buf := append([]byte{3, 0xAA, 0xBB, 0xCC}, []byte{1, 0x40}...)
	_, _, err := DecodeKeyMaterial(AlgoECDSA, buf)
	assert.Error(t, err)
}

func TestDecodeKeyMaterialRejectsTruncatedRSA(t *testing.T) {
	_, _, err := DecodeKeyMaterial(AlgoRSAEncryptSign, []byte{0, 1})
	assert.Error(t, err)
}

func TestDecodeKeyMaterialRejectsUnsupportedAlgorithm(t *testing.T) {
	_, _, err := DecodeKeyMaterial(Algorithm(99), []byte{1, 2, 3})
	assert.Error(t, err)
}
