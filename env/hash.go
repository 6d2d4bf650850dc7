package env

import (
	"fmt"

	"github.com/govm-net/guestenv/hostfn"
)

// Output widths of the supported hash functions.
const (
	Blake2x128Len = 16
	Blake2x256Len = 32
	Sha2x256Len   = 32
	Keccak256Len  = 32
)

// CryptoHash is a hash function the host computes.
type CryptoHash interface {
	// OutputLen is the width of the digest in bytes.
	OutputLen() int
	hash(h hostfn.Host, input, output []byte)
}

// Each adapter converts the output region to the array type of its host
// primitive. The conversions only compile while the declared widths match
// the host signatures.
type (
	Blake2x128 struct{}
	Blake2x256 struct{}
	Sha2x256   struct{}
	Keccak256  struct{}
)

func (Blake2x128) OutputLen() int { return Blake2x128Len }

func (Blake2x128) hash(h hostfn.Host, input, output []byte) {
	h.HashBlake2x128(input, (*[Blake2x128Len]byte)(output))
}

func (Blake2x256) OutputLen() int { return Blake2x256Len }

func (Blake2x256) hash(h hostfn.Host, input, output []byte) {
	h.HashBlake2x256(input, (*[Blake2x256Len]byte)(output))
}

func (Sha2x256) OutputLen() int { return Sha2x256Len }

func (Sha2x256) hash(h hostfn.Host, input, output []byte) {
	h.HashSha2x256(input, (*[Sha2x256Len]byte)(output))
}

func (Keccak256) OutputLen() int { return Keccak256Len }

func (Keccak256) hash(h hostfn.Host, input, output []byte) {
	h.HashKeccak256(input, (*[Keccak256Len]byte)(output))
}

var (
	_ CryptoHash = Blake2x128{}
	_ CryptoHash = Blake2x256{}
	_ CryptoHash = Sha2x256{}
	_ CryptoHash = Keccak256{}
)

func checkOutput(h CryptoHash, output []byte) {
	if len(output) != h.OutputLen() {
		panic(fmt.Sprintf("env: hash output is %d bytes, want %d", len(output), h.OutputLen()))
	}
}

// HashBytes hashes input with h into output, which must be exactly
// h.OutputLen() bytes.
func (e *EnvInstance) HashBytes(h CryptoHash, input, output []byte) {
	checkOutput(h, output)
	h.hash(e.host, input, output)
}

// HashEncoded hashes the encoding of v with h into output.
func (e *EnvInstance) HashEncoded(h CryptoHash, v any, output []byte) {
	checkOutput(h, output)
	buf := e.scopedBuffer()
	enc := buf.TakeEncoded(v)
	h.hash(e.host, enc, output)
}
