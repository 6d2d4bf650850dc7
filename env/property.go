package env

import (
	"fmt"

	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
)

// maxPropertyWidth bounds the fixed-width properties read onto the stack.
const maxPropertyWidth = 32

// propertyLE reads a fixed-width little-endian property. The value never
// touches the static buffer.
func propertyLE[T core.FromLittleEndian[T]](read func(out []byte) int) T {
	var zero T
	size := zero.LittleEndianSize()
	if size > maxPropertyWidth {
		panic(fmt.Sprintf("env: property width %d exceeds %d", size, maxPropertyWidth))
	}
	var raw [maxPropertyWidth]byte
	read(raw[:size])
	return zero.FromLittleEndian(raw[:size])
}

// propertyDecode lets the host fill the whole buffer and decodes the
// written bytes into dst.
func (e *EnvInstance) propertyDecode(read func(out []byte) int, dst any) error {
	buf := e.scopedBuffer()
	full := buf.TakeRest()
	n := read(full)
	return codec.DecodeAll(full[:n], dst)
}

// mustPropertyDecode is propertyDecode for properties the host always
// provides in a valid form.
func (e *EnvInstance) mustPropertyDecode(name string, read func(out []byte) int, dst any) {
	if err := e.propertyDecode(read, dst); err != nil {
		panic(fmt.Errorf("env: %s: %w", name, err))
	}
}

// GasLeft returns the gas remaining for the current call.
func (e *EnvInstance) GasLeft() core.Gas {
	return propertyLE[core.Gas](e.host.GasLeft)
}
