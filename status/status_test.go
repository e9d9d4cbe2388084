package status

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyCreatedWithAndWithoutHandle(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	fpr := [20]byte{0xAB, 0xCD}
	w.KeyCreated(KeyCreatedPrimary, fpr, "")
	assert.Equal(t, "[GNUPG:] KEY_CREATED P ABCD000000000000000000000000000000000000\n", buf.String())

	buf.Reset()
	w.KeyCreated(KeyCreatedBoth, fpr, "handle-1")
	assert.Equal(t, "[GNUPG:] KEY_CREATED B ABCD000000000000000000000000000000000000 handle-1\n", buf.String())
}

func TestKeyNotCreated(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	w.KeyNotCreated("")
	assert.Equal(t, "[GNUPG:] KEY_NOT_CREATED\n", buf.String())

	buf.Reset()
	w.KeyNotCreated("handle-2")
	assert.Equal(t, "[GNUPG:] KEY_NOT_CREATED handle-2\n", buf.String())
}

func TestSCOpFailure(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	w.SCOpFailure(ScOpBadPIN)
	assert.Equal(t, "[GNUPG:] SC_OP_FAILURE 2\n", buf.String())
}

func TestCardCtrl(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	w.CardCtrl(CardCtrlPresent, "")
	assert.Equal(t, "[GNUPG:] CARDCTRL 3\n", buf.String())

	buf.Reset()
	w.CardCtrl(CardCtrlPresent, "D2760001240102000000000000000000")
	assert.Equal(t, "[GNUPG:] CARDCTRL 3 D2760001240102000000000000000000\n", buf.String())
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	w.Progress()
	assert.Equal(t, "[GNUPG:] PROGRESS tick ? 0 0\n", buf.String())
}

func TestNeedPassphrase(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	keyID := [8]byte{0, 0, 0, 0, 0x12, 0x34, 0x56, 0x78}
	mainKeyID := [8]byte{0, 0, 0, 0, 0x9A, 0xBC, 0xDE, 0xF0}
	w.NeedPassphrase(keyID, mainKeyID, 1)
	assert.Equal(t, "[GNUPG:] NEED_PASSPHRASE 0000000012345678 000000009ABCDEF0 1\n", buf.String())
}
