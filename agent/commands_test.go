package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nullprogram.com/x/opengpg-core/openpgp/packet"
)

func TestHaveKeySuccess(t *testing.T) {
	c, _ := newScriptConn("OK")
	err := c.HaveKey([20]byte{1, 2, 3})
	assert.NoError(t, err)
}

func TestHaveKeyFailure(t *testing.T) {
	c, _ := newScriptConn("ERR 67108924 No secret key")
	err := c.HaveKey([20]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestKeyInfo(t *testing.T) {
	c, _ := newScriptConn("S KEYINFO DEADBEEF D - - - P - - -", "OK")
	res, err := c.KeyInfo([20]byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, err)
	assert.Equal(t, "DEADBEEF", res.Grip)
	assert.Equal(t, "D", res.Storage)
}

func TestKeyInfoMissingStatus(t *testing.T) {
	c, _ := newScriptConn("OK")
	_, err := c.KeyInfo([20]byte{1})
	assert.Error(t, err)
}

func TestGenKeyParsesPublicKeyAndCreatedAt(t *testing.T) {
	c, _ := newScriptConn(
		"D (10:public-key(3:rsa(1:nN)(1:eE)))",
		"S KEY-CREATED-AT 1700000000",
		"S CACHE_NONCE abc123",
		"OK",
	)
	res, err := c.GenKey(`(genkey(rsa(nbits "1024")))`, true, "")
	require.NoError(t, err)
	require.IsType(t, &packet.RSAMaterial{}, res.PublicKey.Material)
	assert.Equal(t, uint32(1700000000), res.CreatedAt)
	assert.Equal(t, "abc123", res.CacheNonce)
}

func TestSignRunsFullSequence(t *testing.T) {
	c, sc := newScriptConn(
		"OK",
		"OK",
		"OK",
		"D (7:sig-val(3:rsa(1:s1:Z)))",
		"OK",
	)
	val, err := c.Sign([20]byte{1}, packet.AlgoRSAEncryptSign, 8, []byte{0xAA, 0xBB})
	require.NoError(t, err)
	_, ok := val.(packet.OneInt)
	assert.True(t, ok)
	assert.Contains(t, sc.out.String(), "SIGKEY")
	assert.Contains(t, sc.out.String(), "SETKEYDESC")
	assert.Contains(t, sc.out.String(), "SETHASH 8 AABB")
	assert.Contains(t, sc.out.String(), "PKSIGN")
}

func TestPKDecrypt(t *testing.T) {
	c, _ := newScriptConn(
		"OK",
		"D (5:value7:decoded)",
		"OK",
	)
	plain, err := c.PKDecrypt([20]byte{1}, []byte("ciphertext"))
	require.NoError(t, err)
	assert.Equal(t, "decoded", string(plain))
}

func TestExportAndDeleteKey(t *testing.T) {
	c, _ := newScriptConn("D rawkeydata", "OK")
	data, err := c.ExportKey([20]byte{1})
	require.NoError(t, err)
	assert.Equal(t, "rawkeydata", string(data))
}

func TestDeleteKey(t *testing.T) {
	c, _ := newScriptConn("OK")
	require.NoError(t, c.DeleteKey([20]byte{1}))
}
