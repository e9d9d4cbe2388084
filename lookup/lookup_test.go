package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyExactText(t *testing.T) {
	q := Classify("=Alice Example <alice@example.com>")
	assert.Equal(t, KindExactText, q.Kind)
	assert.Equal(t, "Alice Example <alice@example.com>", q.Value)
}

func TestClassifyEmail(t *testing.T) {
	q := Classify("alice@example.com")
	assert.Equal(t, KindEmail, q.Kind)
	assert.Equal(t, "alice@example.com", q.Value)

	q = Classify("<bob@example.com>")
	assert.Equal(t, KindEmail, q.Kind)
	assert.Equal(t, "bob@example.com", q.Value)
}

func TestClassifySubstringPrefix(t *testing.T) {
	q := Classify("*partial name")
	assert.Equal(t, KindSubstring, q.Kind)
	assert.Equal(t, "partial name", q.Value)
}

func TestClassifyKeyIDForms(t *testing.T) {
	q := Classify("0x12345678")
	assert.Equal(t, KindShortKid, q.Kind)
	assert.Equal(t, "12345678", q.Value)

	q = Classify("1234567890ABCDEF")
	assert.Equal(t, KindLongKid, q.Kind)
	assert.Equal(t, "1234567890ABCDEF", q.Value)
}

func TestClassifyFingerprintForms(t *testing.T) {
	fpr16 := "0123456789ABCDEF0123456789ABCDEF"
	q := Classify(fpr16)
	assert.Equal(t, KindFpr16, q.Kind)
	assert.Equal(t, fpr16, q.Value)

	fpr20 := "0123456789ABCDEF0123456789ABCDEF01234567"
	q = Classify(fpr20)
	assert.Equal(t, KindFpr20, q.Kind)
	assert.Equal(t, fpr20, q.Value)
}

func TestClassifyFingerprintWithSeparators(t *testing.T) {
	withColons := "0123 4567 89AB CDEF 0123  4567 89AB CDEF 0123 4567"
	q := Classify(withColons)
	assert.Equal(t, KindFpr20, q.Kind)
	assert.Equal(t, "0123456789ABCDEF0123456789ABCDEF01234567", q.Value)
}

func TestClassifyKeygrip(t *testing.T) {
	grip := "0123456789ABCDEF0123456789ABCDEF01234567"
	q := Classify("&" + grip)
	assert.Equal(t, KindKeygrip, q.Kind)
	assert.Equal(t, grip, q.Value)
}

func TestClassifyKeygripFallsBackToSubstring(t *testing.T) {
	q := Classify("&not-hex-at-all")
	assert.Equal(t, KindSubstring, q.Kind)
	assert.Equal(t, "&not-hex-at-all", q.Value)
}

func TestClassifyMalformedHexFallsBackToSubstring(t *testing.T) {
	q := Classify("0xZZZZ")
	assert.Equal(t, KindSubstring, q.Kind)
}

func TestClassifyPlainSubstring(t *testing.T) {
	q := Classify("just some name fragment")
	assert.Equal(t, KindSubstring, q.Kind)
	assert.Equal(t, "just some name fragment", q.Value)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Email", KindEmail.String())
	assert.Equal(t, "Unknown", Kind(999).String())
}
