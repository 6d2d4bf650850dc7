package vm

import (
	"errors"
	"fmt"

	"github.com/govm-net/guestenv/types"
	"github.com/tetratelabs/wazero/api"
)

// ErrMemoryAccess traps a guest that passed a region outside its memory.
var ErrMemoryAccess = errors.New("guest memory access out of bounds")

// guestMemory reads and writes the linear memory of the calling module.
// Every failure panics, which wazero turns into a trap of the guest.
type guestMemory struct {
	mem api.Memory
}

func memoryOf(m api.Module) guestMemory {
	mem := m.Memory()
	if mem == nil {
		panic(fmt.Errorf("%w: module %q exports no memory", ErrMemoryAccess, m.Name()))
	}
	return guestMemory{mem: mem}
}

// read copies n bytes at ptr.
func (g guestMemory) read(ptr, n uint32) []byte {
	b, ok := g.mem.Read(ptr, n)
	if !ok {
		panic(fmt.Errorf("%w: read %d bytes at %d", ErrMemoryAccess, n, ptr))
	}
	return append([]byte(nil), b...)
}

func (g guestMemory) write(ptr uint32, b []byte) {
	if !g.mem.Write(ptr, b) {
		panic(fmt.Errorf("%w: write %d bytes at %d", ErrMemoryAccess, len(b), ptr))
	}
}

func (g guestMemory) readU32(ptr uint32) uint32 {
	v, ok := g.mem.ReadUint32Le(ptr)
	if !ok {
		panic(fmt.Errorf("%w: read u32 at %d", ErrMemoryAccess, ptr))
	}
	return v
}

func (g guestMemory) writeU32(ptr, v uint32) {
	if !g.mem.WriteUint32Le(ptr, v) {
		panic(fmt.Errorf("%w: write u32 at %d", ErrMemoryAccess, ptr))
	}
}

// array reads a fixed width argument such as an account id or a balance.
func (g guestMemory) array(ptr uint32, n int) []byte {
	return g.read(ptr, uint32(n))
}

// output is an out region: the guest stores its capacity at lenPtr and the
// host answers with the data at ptr and the written length at lenPtr.
type output struct {
	g      guestMemory
	ptr    uint32
	lenPtr uint32
	buf    []byte
}

func (g guestMemory) output(ptr, lenPtr uint32) *output {
	capacity := g.readU32(lenPtr)
	if _, ok := g.mem.Read(ptr, capacity); !ok {
		panic(fmt.Errorf("%w: output of %d bytes at %d", ErrMemoryAccess, capacity, ptr))
	}
	return &output{g: g, ptr: ptr, lenPtr: lenPtr, buf: make([]byte, capacity)}
}

// commit copies the first n bytes back to the guest and stores n.
func (o *output) commit(n int) {
	o.g.write(o.ptr, o.buf[:n])
	o.g.writeU32(o.lenPtr, uint32(n))
}

// sentinelPtr marks an out region the guest does not want filled.
const sentinelPtr = ^uint32(0)

// optionalOutput is output for regions the guest may skip by passing
// sentinelPtr as pointer. The host still gets a scratch buffer.
func (g guestMemory) optionalOutput(ptr, lenPtr uint32) *output {
	if ptr == sentinelPtr {
		return &output{g: g, ptr: ptr, lenPtr: lenPtr, buf: make([]byte, types.BufferSize)}
	}
	return g.output(ptr, lenPtr)
}

func (o *output) commitOptional(n int) {
	if o.ptr == sentinelPtr {
		return
	}
	o.commit(n)
}
