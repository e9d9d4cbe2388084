// Package pgplog centralizes logging for the key and signature engine.
//
// Packet bytes and signature output are the actual product of this
// engine and routinely travel over stdout/the agent connection. Log is
// a named github.com/eluv-io/log-go logger at the warn level; SetDebug
// raises it to debug. Where its lines go is decided by log-go's own
// configuration: SetOutput does not redirect it.
package pgplog

import (
	"io"

	"github.com/eluv-io/log-go"
)

// Log is the package-level logger used by agent, keygen, and the demo
// CLI for protocol tracing (agent lines, INQUIRE dispatch, key
// generation progress).
var Log = log.Get("/opengpg/core")

func init() {
	Log.SetLevel("warn")
}

// SetOutput takes the writer a caller wants engine logging sent to, but
// leaves Log's output unchanged: github.com/eluv-io/log-go's *Log
// exposes no handler/writer setter, so there is no library-level way to
// retarget an existing named logger's output.
func SetOutput(w io.Writer) {
	_ = w
}

// SetDebug toggles verbose protocol tracing (agent lines, inquiry
// dispatch) on or off.
func SetDebug(on bool) {
	if on {
		Log.SetLevel("debug")
	} else {
		Log.SetLevel("warn")
	}
}
