package openpgp

import (
	"sync/atomic"
	"time"
)

// fakedTime is the process-wide faked-system-time epoch second, for
// testing and replay runs. 0 means the live clock.
var fakedTime atomic.Int64

// SetFakedSystemTime pins Now to a fixed instant so signature and key
// timestamps become reproducible.
func SetFakedSystemTime(t time.Time) {
	fakedTime.Store(t.Unix())
}

// ClearFakedSystemTime returns Now to the live clock.
func ClearFakedSystemTime() {
	fakedTime.Store(0)
}

// Now is the engine's clock: the live wall clock unless a faked system
// time has been pinned.
func Now() time.Time {
	if s := fakedTime.Load(); s != 0 {
		return time.Unix(s, 0).UTC()
	}
	return time.Now()
}
