package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgorithmStringNames(t *testing.T) {
	cases := map[Algorithm]string{
		AlgoRSAEncryptSign: "RSA",
		AlgoRSAEncryptOnly: "RSA-E",
		AlgoRSASignOnly:    "RSA-S",
		AlgoElgamalEncrypt: "ELG-E",
		AlgoDSA:            "DSA",
		AlgoECDH:           "ECDH",
		AlgoECDSA:          "ECDSA",
		AlgoEdDSA:          "EDDSA",
		Algorithm(99):      "UNKNOWN",
	}
	for algo, want := range cases {
		assert.Equal(t, want, algo.String())
	}
}

func TestAlgorithmCanSign(t *testing.T) {
	assert.True(t, AlgoRSAEncryptSign.CanSign())
	assert.True(t, AlgoDSA.CanSign())
	assert.True(t, AlgoECDSA.CanSign())
	assert.True(t, AlgoEdDSA.CanSign())
	assert.False(t, AlgoRSAEncryptOnly.CanSign())
	assert.False(t, AlgoElgamalEncrypt.CanSign())
	assert.False(t, AlgoECDH.CanSign())
}

func TestAlgorithmCanEncrypt(t *testing.T) {
	assert.True(t, AlgoRSAEncryptSign.CanEncrypt())
	assert.True(t, AlgoRSAEncryptOnly.CanEncrypt())
	assert.True(t, AlgoElgamalEncrypt.CanEncrypt())
	assert.True(t, AlgoECDH.CanEncrypt())
	assert.False(t, AlgoDSA.CanEncrypt())
	assert.False(t, AlgoRSASignOnly.CanEncrypt())
	assert.False(t, AlgoEdDSA.CanEncrypt())
}

func TestParseAlgorithmAcceptsKnownIDs(t *testing.T) {
	algo, err := ParseAlgorithm(22)
	require.NoError(t, err)
	assert.Equal(t, AlgoEdDSA, algo)
}

func TestParseAlgorithmRejectsUnknownID(t *testing.T) {
	_, err := ParseAlgorithm(255)
	assert.Error(t, err)
}
