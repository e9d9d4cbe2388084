package localsign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nullprogram.com/x/opengpg-core/openpgp/identity"
	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/openpgp/sigbuilder"
)

func TestGenKeyAndSignVerifyRSA(t *testing.T) {
	src := NewLocalSource()
	res, err := src.GenKey(`(genkey(rsa(nbits "1024")))`, true, "")
	require.NoError(t, err)
	require.IsType(t, &packet.RSAMaterial{}, res.PublicKey.Material)

	grip, err := identity.Keygrip(res.PublicKey)
	require.NoError(t, err)

	digest := []byte("0123456789012345678901234567890123456789")[:32]
	val, err := src.Signer.Sign(grip, packet.AlgoRSAEncryptSign, sigbuilder.HashSHA256, digest)
	require.NoError(t, err)

	require.NoError(t, Verifier{}.Verify(res.PublicKey, sigbuilder.HashSHA256, digest, val))
}

func TestGenKeyAndSignVerifyDSA(t *testing.T) {
	src := NewLocalSource()
	res, err := src.GenKey(`(genkey(dsa(nbits "1024")(qbits "160")))`, true, "")
	require.NoError(t, err)
	require.IsType(t, &packet.DSAMaterial{}, res.PublicKey.Material)

	grip, err := identity.Keygrip(res.PublicKey)
	require.NoError(t, err)

	digest := make([]byte, 20)
	val, err := src.Signer.Sign(grip, packet.AlgoDSA, sigbuilder.HashSHA1, digest)
	require.NoError(t, err)

	require.NoError(t, Verifier{}.Verify(res.PublicKey, sigbuilder.HashSHA1, digest, val))
}

func TestGenKeyAndSignVerifyECDSA(t *testing.T) {
	src := NewLocalSource()
	res, err := src.GenKey(`(genkey(ecc(curve "NIST P-256")))`, true, "")
	require.NoError(t, err)
	require.IsType(t, &packet.ECDSAMaterial{}, res.PublicKey.Material)

	grip, err := identity.Keygrip(res.PublicKey)
	require.NoError(t, err)

	digest := make([]byte, 32)
	val, err := src.Signer.Sign(grip, packet.AlgoECDSA, sigbuilder.HashSHA256, digest)
	require.NoError(t, err)

	require.NoError(t, Verifier{}.Verify(res.PublicKey, sigbuilder.HashSHA256, digest, val))
}

func TestGenKeyAndSignVerifyEdDSA25519(t *testing.T) {
	src := NewLocalSource()
	res, err := src.GenKey(`(genkey(ecc(curve "Ed25519")(flags eddsa)))`, true, "")
	require.NoError(t, err)
	require.IsType(t, &packet.EdDSAMaterial{}, res.PublicKey.Material)

	grip, err := identity.Keygrip(res.PublicKey)
	require.NoError(t, err)

	digest := []byte("some digest bytes to sign")
	val, err := src.Signer.Sign(grip, packet.AlgoEdDSA, sigbuilder.HashSHA256, digest)
	require.NoError(t, err)

	require.NoError(t, Verifier{}.Verify(res.PublicKey, sigbuilder.HashSHA256, digest, val))
}

func TestGenKeyAndSignVerifyEdDSA448(t *testing.T) {
	src := NewLocalSource()
	res, err := src.GenKey(`(genkey(ecc(curve "Ed448")(flags eddsa)))`, true, "")
	require.NoError(t, err)
	require.IsType(t, &packet.EdDSAMaterial{}, res.PublicKey.Material)

	grip, err := identity.Keygrip(res.PublicKey)
	require.NoError(t, err)

	digest := []byte("some digest bytes to sign")
	val, err := src.Signer.Sign(grip, packet.AlgoEdDSA, sigbuilder.HashSHA256, digest)
	require.NoError(t, err)

	require.NoError(t, Verifier{}.Verify(res.PublicKey, sigbuilder.HashSHA256, digest, val))
}

func TestGenKeyECDHCurve25519HasNoSigningPath(t *testing.T) {
	src := NewLocalSource()
	res, err := src.GenKey(`(genkey(ecc(curve "Curve25519")(flags djb-tweak)))`, true, "")
	require.NoError(t, err)
	require.IsType(t, &packet.ECDHMaterial{}, res.PublicKey.Material)

	grip, err := identity.Keygrip(res.PublicKey)
	require.NoError(t, err)
	_, err = src.Signer.Sign(grip, packet.AlgoECDH, sigbuilder.HashSHA256, make([]byte, 32))
	assert.Error(t, err)
}

func TestGenKeyECDHX448HasNoSigningPath(t *testing.T) {
	src := NewLocalSource()
	res, err := src.GenKey(`(genkey(ecc(curve "X448")))`, true, "")
	require.NoError(t, err)
	require.IsType(t, &packet.ECDHMaterial{}, res.PublicKey.Material)

	grip, err := identity.Keygrip(res.PublicKey)
	require.NoError(t, err)
	key, ok := src.Signer.keys[grip]
	require.True(t, ok)
	require.NotNil(t, key.X448)
	require.Nil(t, key.ECDH)

	_, err = src.Signer.Sign(grip, packet.AlgoECDH, sigbuilder.HashSHA256, make([]byte, 32))
	assert.Error(t, err)
}

func TestGenKeyElgamalUnsupported(t *testing.T) {
	src := NewLocalSource()
	_, err := src.GenKey(`(genkey(elg(nbits "2048")))`, true, "")
	assert.Error(t, err)
}

func TestSignUnknownKeygrip(t *testing.T) {
	s := NewSigner()
	_, err := s.Sign([20]byte{1, 2, 3}, packet.AlgoRSAEncryptSign, sigbuilder.HashSHA256, make([]byte, 32))
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedDigest(t *testing.T) {
	src := NewLocalSource()
	res, err := src.GenKey(`(genkey(ecc(curve "Ed25519")(flags eddsa)))`, true, "")
	require.NoError(t, err)
	grip, err := identity.Keygrip(res.PublicKey)
	require.NoError(t, err)

	digest := []byte("original digest content padded")
	val, err := src.Signer.Sign(grip, packet.AlgoEdDSA, sigbuilder.HashSHA256, digest)
	require.NoError(t, err)

	tampered := []byte("tampered digest content padded!")
	err = Verifier{}.Verify(res.PublicKey, sigbuilder.HashSHA256, tampered, val)
	assert.Error(t, err)
}

func TestVerifyRejectsUnsupportedAlgorithm(t *testing.T) {
	pk := &packet.PublicKey{Material: &packet.ElgamalMaterial{}}
	err := Verifier{}.Verify(pk, sigbuilder.HashSHA256, make([]byte, 32), packet.OneInt{})
	assert.Error(t, err)
}

func TestParseGenKeyParams(t *testing.T) {
	kind, nbits, curve := parseGenKeyParams(`(genkey(rsa(nbits "2048")))`)
	assert.Equal(t, "rsa", kind)
	assert.Equal(t, 2048, nbits)
	assert.Empty(t, curve)

	kind, _, curve = parseGenKeyParams(`(genkey(ecc(curve "Ed25519")(flags eddsa)))`)
	assert.Equal(t, "ecc", kind)
	assert.Equal(t, "Ed25519", curve)
}
