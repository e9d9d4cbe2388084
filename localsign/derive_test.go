package localsign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nullprogram.com/x/opengpg-core/openpgp/identity"
	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/openpgp/sigbuilder"
)

func testSeed(fill byte) []byte {
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = fill ^ byte(i)
	}
	return seed
}

func TestDeriveFromSeedDeterministic(t *testing.T) {
	s1 := NewSigner()
	sign1, enc1, err := s1.DeriveFromSeed(testSeed(0xA5), 1700000000)
	require.NoError(t, err)

	s2 := NewSigner()
	sign2, enc2, err := s2.DeriveFromSeed(testSeed(0xA5), 1700000000)
	require.NoError(t, err)

	f1, err := sign1.Fingerprint()
	require.NoError(t, err)
	f2, err := sign2.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)

	e1, err := enc1.Fingerprint()
	require.NoError(t, err)
	e2, err := enc2.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, e1, e2)
}

func TestDeriveFromSeedDistinctSeeds(t *testing.T) {
	s := NewSigner()
	sign1, _, err := s.DeriveFromSeed(testSeed(0x00), 1700000000)
	require.NoError(t, err)
	sign2, _, err := s.DeriveFromSeed(testSeed(0xFF), 1700000000)
	require.NoError(t, err)

	f1, err := sign1.Fingerprint()
	require.NoError(t, err)
	f2, err := sign2.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, f1, f2)
}

func TestDeriveKeygripIgnoresTimestamp(t *testing.T) {
	s1 := NewSigner()
	sign1, _, err := s1.DeriveFromSeed(testSeed(0x42), 1700000000)
	require.NoError(t, err)
	s2 := NewSigner()
	sign2, _, err := s2.DeriveFromSeed(testSeed(0x42), 1800000000)
	require.NoError(t, err)

	g1, err := identity.Keygrip(sign1)
	require.NoError(t, err)
	g2, err := identity.Keygrip(sign2)
	require.NoError(t, err)
	assert.Equal(t, g1, g2)
}

func TestDerivedKeySigns(t *testing.T) {
	s := NewSigner()
	sign, enc, err := s.DeriveFromSeed(testSeed(0x17), 1700000000)
	require.NoError(t, err)
	require.IsType(t, &packet.EdDSAMaterial{}, sign.Material)
	require.IsType(t, &packet.ECDHMaterial{}, enc.Material)
	assert.True(t, enc.IsSubkey)

	uid := &packet.UserID{ID: []byte("Derive <derive@example.com>")}
	grip, err := identity.Keygrip(sign)
	require.NoError(t, err)

	sig, err := sigbuilder.Sign(
		sigbuilder.Target{Primary: sign, UserID: uid},
		packet.SigPositiveCertification, sigbuilder.HashSHA256, s, grip,
		sigbuilder.Options{Hashed: []packet.Subpacket{
			{Type: packet.SubKeyFlags, Data: []byte{packet.KeyFlagCertify | packet.KeyFlagSign}},
		}},
	)
	require.NoError(t, err)

	err = sigbuilder.Verify(sigbuilder.Target{Primary: sign, UserID: uid}, sig, Verifier{})
	require.NoError(t, err)
}

func TestDeriveFromSeedRejectsShortSeed(t *testing.T) {
	s := NewSigner()
	_, _, err := s.DeriveFromSeed(make([]byte, 32), 1700000000)
	require.Error(t, err)
}
