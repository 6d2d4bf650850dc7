package env

import (
	"fmt"
	"io"

	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
)

// ScopedBuffer hands out disjoint regions of a borrowed byte slice. The
// cursor only moves forward, so a region returned by one of the Take
// methods is never handed out again while the scope lives.
//
// Bytes added with the Append methods stay pending until TakeAppended
// claims them. Taking anything else while bytes are pending panics.
type ScopedBuffer struct {
	buf      []byte
	appended int
	taken    int
}

// NewScopedBuffer returns a scope over buf.
func NewScopedBuffer(buf []byte) ScopedBuffer {
	return ScopedBuffer{buf: buf}
}

func overrun(need, left int) error {
	return fmt.Errorf("%w: need %d bytes, %d left", core.ErrBufferOverrun, need, left)
}

func (b *ScopedBuffer) assertNoAppended(op string) {
	if b.appended != 0 {
		panic(fmt.Sprintf("env: %s with %d appended bytes pending", op, b.appended))
	}
}

// Used is the number of bytes taken so far.
func (b *ScopedBuffer) Used() int {
	return b.taken
}

// Remaining is the number of bytes that can still be taken or appended.
func (b *ScopedBuffer) Remaining() int {
	return len(b.buf) - b.appended
}

// Split returns a nested scope over everything after the pending appended
// bytes. b must not be used until the nested scope is discarded.
func (b *ScopedBuffer) Split() ScopedBuffer {
	return ScopedBuffer{buf: b.buf[b.appended:]}
}

// Take returns the next n bytes.
func (b *ScopedBuffer) Take(n int) []byte {
	b.assertNoAppended("Take")
	if n < 0 || n > len(b.buf) {
		panic(overrun(n, len(b.buf)))
	}
	region := b.buf[:n:n]
	b.buf = b.buf[n:]
	b.taken += n
	return region
}

// TakeRest returns everything that is left.
func (b *ScopedBuffer) TakeRest() []byte {
	b.assertNoAppended("TakeRest")
	return b.Take(len(b.buf))
}

// TakeEncodedFunc lets encode write into the remainder and takes exactly
// the bytes it wrote.
func (b *ScopedBuffer) TakeEncodedFunc(encode func(w io.Writer) error) []byte {
	b.assertNoAppended("TakeEncoded")
	scope := codec.NewEncodeScope(b.buf)
	if err := encode(scope); err != nil {
		panic(fmt.Errorf("env: encode: %w", err))
	}
	return b.Take(scope.Len())
}

// TakeEncoded encodes v into the remainder and returns the encoded bytes.
func (b *ScopedBuffer) TakeEncoded(v any) []byte {
	return b.TakeEncodedFunc(func(w io.Writer) error {
		return codec.EncodeTo(w, v)
	})
}

// TakeStorableEncoded is TakeEncoded for values that may implement
// core.Storable.
func (b *ScopedBuffer) TakeStorableEncoded(v any) []byte {
	return b.TakeEncodedFunc(func(w io.Writer) error {
		return codec.EncodeStorableTo(w, v)
	})
}

// AppendBytes adds p to the pending appended bytes.
func (b *ScopedBuffer) AppendBytes(p []byte) {
	left := len(b.buf) - b.appended
	if len(p) > left {
		panic(overrun(len(p), left))
	}
	b.appended += copy(b.buf[b.appended:], p)
}

// AppendEncoded adds the encoding of v to the pending appended bytes.
func (b *ScopedBuffer) AppendEncoded(v any) {
	scope := codec.NewEncodeScope(b.buf[b.appended:])
	if err := codec.EncodeTo(scope, v); err != nil {
		panic(fmt.Errorf("env: encode: %w", err))
	}
	b.appended += scope.Len()
}

// TakeAppended claims every pending appended byte as one region.
func (b *ScopedBuffer) TakeAppended() []byte {
	n := b.appended
	b.appended = 0
	return b.Take(n)
}
