package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurveByNameAndByOIDAgree(t *testing.T) {
	byName, ok := CurveByName("Ed25519")
	require.True(t, ok)

	byOID, ok := CurveByOID(byName.OID)
	require.True(t, ok)
	assert.Equal(t, byName, byOID)
	assert.True(t, byOID.EdDSA)
}

func TestCurveByNameUnknown(t *testing.T) {
	_, ok := CurveByName("nonexistent-curve")
	assert.False(t, ok)
}

func TestCurveByOIDUnknown(t *testing.T) {
	_, ok := CurveByOID([]byte{0x00, 0x01})
	assert.False(t, ok)
}

func TestCurve25519IsX25519NotEdDSA(t *testing.T) {
	c, ok := CurveByName("Curve25519")
	require.True(t, ok)
	assert.True(t, c.X25519)
	assert.False(t, c.EdDSA)
}
