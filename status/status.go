// Package status writes the caller-facing status-line protocol in
// GnuPG's stable keyword-first format, so a wrapping process can parse
// progress without scraping human text. Grounded on
// original_source/gnupg-2.1.6/g10/call-agent.c's own smartcard/progress
// status lines and the GNUPG_STATUS_FD convention they implement.
package status

import (
	"fmt"
	"io"
)

// Writer emits status lines to an underlying stream, normally a
// dedicated status file descriptor distinct from stdout (which may
// carry packet bytes) and stderr (human text).
type Writer struct {
	w io.Writer
}

// New wraps w as a status Writer.
func New(w io.Writer) *Writer { return &Writer{w: w} }

func (s *Writer) line(format string, args ...interface{}) {
	fmt.Fprintf(s.w, "[GNUPG:] "+format+"\n", args...)
}

// KeyCreatedLetter names which half of a primary+subkey generation a
// KEY_CREATED line reports.
type KeyCreatedLetter byte

const (
	KeyCreatedPrimary KeyCreatedLetter = 'P'
	KeyCreatedSubkey  KeyCreatedLetter = 'S'
	KeyCreatedBoth    KeyCreatedLetter = 'B'
)

// KeyCreated emits KEY_CREATED <letter> <hex-fingerprint> [<handle>].
func (s *Writer) KeyCreated(letter KeyCreatedLetter, fingerprint [20]byte, handle string) {
	if handle == "" {
		s.line("KEY_CREATED %c %X", letter, fingerprint)
		return
	}
	s.line("KEY_CREATED %c %X %s", letter, fingerprint, handle)
}

// KeyNotCreated emits KEY_NOT_CREATED [<handle>] on generation failure.
func (s *Writer) KeyNotCreated(handle string) {
	if handle == "" {
		s.line("KEY_NOT_CREATED")
		return
	}
	s.line("KEY_NOT_CREATED %s", handle)
}

// Smartcard operation failure reasons (SC_OP_FAILURE <n>).
const (
	ScOpCanceled = 1
	ScOpBadPIN   = 2
	ScOpGeneric  = 3
)

// SCOpFailure emits SC_OP_FAILURE <n>.
func (s *Writer) SCOpFailure(reason int) { s.line("SC_OP_FAILURE %d", reason) }

// Smartcard discovery outcomes (CARDCTRL <n>).
const (
	CardCtrlPresent   = 3
	CardCtrlError     = 4
	CardCtrlNoSCD     = 6
	CardCtrlTerminated = 7
)

// CardCtrl emits CARDCTRL <n>, optionally with a serial number.
func (s *Writer) CardCtrl(n int, serial string) {
	if serial == "" {
		s.line("CARDCTRL %d", n)
		return
	}
	s.line("CARDCTRL %d %s", n, serial)
}

// Progress emits a PROGRESS heartbeat the caller may poll.
func (s *Writer) Progress() { s.line("PROGRESS tick ? 0 0") }

// NeedPassphrase emits NEED_PASSPHRASE <keyid> <mainkeyid> <pkalgo>,
// sent before each passphrase request while loopback pinentry is on.
func (s *Writer) NeedPassphrase(keyID, mainKeyID [8]byte, pkAlgo byte) {
	s.line("NEED_PASSPHRASE %X %X %d", keyID, mainKeyID, pkAlgo)
}
