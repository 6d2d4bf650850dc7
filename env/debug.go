package env

import (
	"fmt"

	"github.com/govm-net/guestenv/types"
)

// debugGate remembers whether the host accepts debug messages. The first
// message is always offered; once the host rejected it with LoggingDisabled
// no further message reaches it.
type debugGate struct {
	enabled  bool
	firstRun bool
}

func newDebugGate() debugGate {
	return debugGate{firstRun: true}
}

// DebugMessage hands msg to the host's debug log when debugging is enabled.
func (e *EnvInstance) DebugMessage(msg string) {
	if !e.cfg.Debug {
		return
	}
	if !e.debug.enabled && !e.debug.firstRun {
		return
	}
	if code := e.host.DebugMessage([]byte(msg)); code != types.LoggingDisabled {
		e.debug.enabled = true
	}
	e.debug.firstRun = false
}

// Debugf formats according to a format specifier and passes the result to
// DebugMessage. Nothing is formatted when debugging is disabled.
func (e *EnvInstance) Debugf(format string, args ...any) {
	if !e.cfg.Debug {
		return
	}
	e.DebugMessage(fmt.Sprintf(format, args...))
}
