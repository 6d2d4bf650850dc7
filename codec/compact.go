package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/govm-net/guestenv/core"
)

// Compact integer modes, selected by the two low bits of the first byte.
const (
	compactSingle = 0b00
	compactTwo    = 0b01
	compactFour   = 0b10
	compactBig    = 0b11
)

// AppendCompact appends the compact encoding of n to dst.
func AppendCompact(dst []byte, n uint64) []byte {
	switch {
	case n < 1<<6:
		return append(dst, byte(n)<<2|compactSingle)
	case n < 1<<14:
		return binary.LittleEndian.AppendUint16(dst, uint16(n)<<2|compactTwo)
	case n < 1<<30:
		return binary.LittleEndian.AppendUint32(dst, uint32(n)<<2|compactFour)
	}
	size := (bits.Len64(n) + 7) / 8
	dst = append(dst, byte(size-4)<<2|compactBig)
	for i := 0; i < size; i++ {
		dst = append(dst, byte(n>>(8*i)))
	}
	return dst
}

// WriteCompact writes the compact encoding of n to w.
func WriteCompact(w io.Writer, n uint64) error {
	var scratch [9]byte
	_, err := w.Write(AppendCompact(scratch[:0], n))
	return err
}

// ReadCompact decodes a compact integer from the start of data and returns
// it with the number of bytes consumed.
func ReadCompact(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("%w: empty compact", core.ErrDecode)
	}
	switch data[0] & 0b11 {
	case compactSingle:
		return uint64(data[0] >> 2), 1, nil
	case compactTwo:
		if len(data) < 2 {
			return 0, 0, fmt.Errorf("%w: short compact", core.ErrDecode)
		}
		return uint64(binary.LittleEndian.Uint16(data) >> 2), 2, nil
	case compactFour:
		if len(data) < 4 {
			return 0, 0, fmt.Errorf("%w: short compact", core.ErrDecode)
		}
		return uint64(binary.LittleEndian.Uint32(data) >> 2), 4, nil
	}
	size := int(data[0]>>2) + 4
	if size > 8 {
		return 0, 0, fmt.Errorf("%w: compact wider than 64 bits", core.ErrDecode)
	}
	if len(data) < 1+size {
		return 0, 0, fmt.Errorf("%w: short compact", core.ErrDecode)
	}
	var n uint64
	for i := 0; i < size; i++ {
		n |= uint64(data[1+i]) << (8 * i)
	}
	return n, 1 + size, nil
}
