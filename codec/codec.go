// Package codec is the canonical encoding shared by the guest environment and
// its hosts. Values are SCALE encoded through github.com/ChainSafe/gossamer/pkg/scale;
// this package only adds the pieces the environment needs around it: writing
// into a fixed region, decode-all semantics, compact integers, Storable
// values and Result discriminants.
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ChainSafe/gossamer/pkg/scale"
	"github.com/govm-net/guestenv/core"
)

// Result discriminants of an encoded Result<T, E>.
const (
	ResultOk  byte = 0
	ResultErr byte = 1
)

// Encode returns the canonical encoding of v.
func Encode(v any) ([]byte, error) {
	if s, ok := v.(core.Storable); ok {
		var buf bytes.Buffer
		if err := s.EncodeStorable(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return scale.Marshal(v)
}

// EncodeTo writes the canonical encoding of v to w.
func EncodeTo(w io.Writer, v any) error {
	return scale.NewEncoder(w).Encode(v)
}

// EncodeStorableTo writes v to w using its own storage encoding when it
// implements core.Storable and the canonical encoding otherwise.
func EncodeStorableTo(w io.Writer, v any) error {
	if s, ok := v.(core.Storable); ok {
		return s.EncodeStorable(w)
	}
	return EncodeTo(w, v)
}

// EncodeResult writes a Result discriminant followed by v. A nil v encodes
// the unit payload.
func EncodeResult(w io.Writer, isErr bool, v any) error {
	disc := ResultOk
	if isErr {
		disc = ResultErr
	}
	if _, err := w.Write([]byte{disc}); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return EncodeTo(w, v)
}

// Decode decodes a prefix of data into dst and reports how many bytes
// it consumed. dst must be a non-nil pointer.
func Decode(data []byte, dst any) (int, error) {
	r := bytes.NewReader(data)
	if err := DecodeFrom(r, dst); err != nil {
		return 0, err
	}
	return len(data) - r.Len(), nil
}

// DecodeFrom decodes one value from r into dst.
func DecodeFrom(r io.Reader, dst any) error {
	if s, ok := dst.(core.Storable); ok {
		return core.DecodeError(s.DecodeStorable(r))
	}
	return core.DecodeError(scale.NewDecoder(fullReader{r}).Decode(dst))
}

// fullReader fills every read completely. The scale decoder reads fixed
// width integers with a single Read and ignores short counts.
type fullReader struct {
	r io.Reader
}

func (f fullReader) Read(p []byte) (int, error) {
	n, err := io.ReadFull(f.r, p)
	if err == io.EOF && len(p) > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// DecodeAll decodes data into dst and fails if any input is left over.
func DecodeAll(data []byte, dst any) error {
	n, err := Decode(data, dst)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("%w: %d trailing bytes", core.ErrDecode, len(data)-n)
	}
	return nil
}

// EncodeScope is an io.Writer over a fixed region. Writing past the end
// panics with core.ErrBufferOverrun; there is no way to recover the region.
type EncodeScope struct {
	buf []byte
	n   int
}

// NewEncodeScope returns a scope writing into buf from its start.
func NewEncodeScope(buf []byte) *EncodeScope {
	return &EncodeScope{buf: buf}
}

func (s *EncodeScope) Write(p []byte) (int, error) {
	if len(p) > len(s.buf)-s.n {
		panic(fmt.Errorf("%w: need %d bytes, %d left", core.ErrBufferOverrun, len(p), len(s.buf)-s.n))
	}
	copy(s.buf[s.n:], p)
	s.n += len(p)
	return len(p), nil
}

// Len is the number of bytes written so far.
func (s *EncodeScope) Len() int {
	return s.n
}

// Bytes returns the written prefix of the region.
func (s *EncodeScope) Bytes() []byte {
	return s.buf[:s.n]
}
