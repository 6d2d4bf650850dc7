// Package env is the environment a contract runs in. It turns typed
// operations (storage access, calls, events, hashing, instantiation) into
// calls against the buffer based host ABI of package hostfn.
//
// All data exchanged with the host goes through one static buffer owned by
// the EnvInstance. Every operation starts a fresh ScopedBuffer over it, so
// the contents of a region are only valid until the next operation.
//
// Fatal conditions (buffer overrun, host status codes an operation does not
// expect, undecodable caller ids) panic. The host aborts the invocation and
// rolls back its changes.
package env

import (
	"github.com/govm-net/guestenv/hostfn"
	"github.com/govm-net/guestenv/types"
)

// Config controls optional behaviour of an environment instance.
type Config struct {
	// Debug enables DebugMessage. When false debug messages are dropped
	// without reaching the host.
	Debug bool
}

// DefaultConfig returns the configuration of a production contract.
func DefaultConfig() Config {
	return Config{}
}

// EnvInstance owns the static buffer and the debug gate of one contract
// execution. It is not safe for concurrent use.
type EnvInstance struct {
	host   hostfn.Host
	cfg    Config
	debug  debugGate
	buffer [types.BufferSize]byte
}

// NewInstance returns an environment talking to host.
func NewInstance(host hostfn.Host, cfg Config) *EnvInstance {
	return &EnvInstance{
		host:  host,
		cfg:   cfg,
		debug: newDebugGate(),
	}
}

// Host returns the host the instance talks to.
func (e *EnvInstance) Host() hostfn.Host {
	return e.host
}

func (e *EnvInstance) scopedBuffer() ScopedBuffer {
	return NewScopedBuffer(e.buffer[:])
}
