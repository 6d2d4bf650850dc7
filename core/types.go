// Package core defines the value types contracts exchange with the host:
// account ids, hashes, balances, timestamps and block numbers, plus the
// error model of the environment.
package core

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"math/big"
	"math/bits"
	"strings"
)

// AccountID identifies an account or a contract on chain.
type AccountID [32]byte

// Hash is the default 256 bit hash type. Code hashes use it too.
type Hash [32]byte

var (
	ZeroAccountID = AccountID{}
	ZeroHash      = Hash{}
)

func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// AccountIDFromString parses a hex string with or without 0x prefix.
// Invalid input yields the zero account id.
func AccountIDFromString(str string) AccountID {
	var out AccountID
	b, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return ZeroAccountID
	}
	copy(out[:], b)
	return out
}

// HashFromString parses a hex string with or without 0x prefix.
// Invalid input yields the zero hash.
func HashFromString(str string) Hash {
	var out Hash
	b, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return ZeroHash
	}
	copy(out[:], b)
	return out
}

// FromLittleEndian is implemented by the numeric environment types the host
// hands over as raw fixed-width little-endian bytes.
//
// FromLittleEndian is called on the zero value and returns the decoded value,
// so the constraint can be used as T FromLittleEndian[T].
type FromLittleEndian[T any] interface {
	// LittleEndianSize is the width of the host representation in bytes.
	LittleEndianSize() int
	// FromLittleEndian decodes exactly LittleEndianSize bytes.
	FromLittleEndian(b []byte) T
}

// Timestamp is milliseconds since the unix epoch.
type Timestamp uint64

func (Timestamp) LittleEndianSize() int { return 8 }

func (Timestamp) FromLittleEndian(b []byte) Timestamp {
	return Timestamp(binary.LittleEndian.Uint64(b))
}

// BlockNumber is the height of a block.
type BlockNumber uint32

func (BlockNumber) LittleEndianSize() int { return 4 }

func (BlockNumber) FromLittleEndian(b []byte) BlockNumber {
	return BlockNumber(binary.LittleEndian.Uint32(b))
}

// Gas is an amount of execution weight.
type Gas uint64

func (Gas) LittleEndianSize() int { return 8 }

func (Gas) FromLittleEndian(b []byte) Gas {
	return Gas(binary.LittleEndian.Uint64(b))
}

// Balance is an unsigned 128 bit amount. The field order matches the
// little-endian wire layout, so the canonical encoding is 16 raw bytes.
type Balance struct {
	Lo uint64
	Hi uint64
}

// NewBalance returns v as a Balance.
func NewBalance(v uint64) Balance {
	return Balance{Lo: v}
}

func (Balance) LittleEndianSize() int { return 16 }

func (Balance) FromLittleEndian(b []byte) Balance {
	return Balance{
		Lo: binary.LittleEndian.Uint64(b[:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// PutLittleEndian writes the 16 byte host representation into b.
func (v Balance) PutLittleEndian(b []byte) {
	binary.LittleEndian.PutUint64(b[:8], v.Lo)
	binary.LittleEndian.PutUint64(b[8:16], v.Hi)
}

// Bytes returns the 16 byte little-endian representation.
func (v Balance) Bytes() []byte {
	b := make([]byte, 16)
	v.PutLittleEndian(b)
	return b
}

// IsZero reports whether v is zero.
func (v Balance) IsZero() bool {
	return v.Lo == 0 && v.Hi == 0
}

// Cmp returns -1, 0 or +1.
func (v Balance) Cmp(o Balance) int {
	switch {
	case v.Hi < o.Hi:
		return -1
	case v.Hi > o.Hi:
		return 1
	case v.Lo < o.Lo:
		return -1
	case v.Lo > o.Lo:
		return 1
	}
	return 0
}

// Add returns v+o and false on overflow.
func (v Balance) Add(o Balance) (Balance, bool) {
	lo, carry := bits.Add64(v.Lo, o.Lo, 0)
	hi, overflow := bits.Add64(v.Hi, o.Hi, carry)
	return Balance{Lo: lo, Hi: hi}, overflow == 0
}

// Sub returns v-o and false on underflow.
func (v Balance) Sub(o Balance) (Balance, bool) {
	lo, borrow := bits.Sub64(v.Lo, o.Lo, 0)
	hi, underflow := bits.Sub64(v.Hi, o.Hi, borrow)
	return Balance{Lo: lo, Hi: hi}, underflow == 0
}

// Uint64 returns the low 64 bits.
func (v Balance) Uint64() uint64 {
	return v.Lo
}

// Big returns v as a big.Int.
func (v Balance) Big() *big.Int {
	hi := new(big.Int).SetUint64(v.Hi)
	hi.Lsh(hi, 64)
	return hi.Or(hi, new(big.Int).SetUint64(v.Lo))
}

func (v Balance) String() string {
	return v.Big().String()
}

// Storable is implemented by values that control their own storage
// encoding. Everything else is stored with the canonical encoding.
type Storable interface {
	EncodeStorable(w io.Writer) error
	DecodeStorable(r io.Reader) error
}

// Selector is the 4 byte identifier of a constructor or message.
type Selector [4]byte

func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// SelectorFromString parses a hex selector such as "0x9bae9d5e".
func SelectorFromString(str string) (Selector, error) {
	var s Selector
	b, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return s, err
	}
	if len(b) != len(s) {
		return s, ErrInvalidSelector
	}
	copy(s[:], b)
	return s, nil
}
