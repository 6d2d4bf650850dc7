package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/govm-net/guestenv/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountIDFromString(t *testing.T) {
	id := AccountIDFromString("0x0102")
	assert.Equal(t, byte(1), id[0])
	assert.Equal(t, byte(2), id[1])
	assert.Equal(t, ZeroAccountID, AccountIDFromString("zz"))

	h := HashFromString("ff")
	assert.Equal(t, byte(0xff), h[0])
	assert.Equal(t, "ff"+fmt.Sprintf("%062d", 0), h.String())
}

func TestBalanceArithmetic(t *testing.T) {
	max64 := NewBalance(^uint64(0))
	sum, ok := max64.Add(NewBalance(1))
	require.True(t, ok)
	assert.Equal(t, Balance{Lo: 0, Hi: 1}, sum)
	assert.Equal(t, "18446744073709551616", sum.String())

	back, ok := sum.Sub(NewBalance(1))
	require.True(t, ok)
	assert.Equal(t, max64, back)

	_, ok = NewBalance(1).Sub(NewBalance(2))
	assert.False(t, ok)

	_, ok = Balance{Lo: ^uint64(0), Hi: ^uint64(0)}.Add(NewBalance(1))
	assert.False(t, ok)

	assert.Equal(t, -1, NewBalance(5).Cmp(sum))
	assert.Equal(t, 1, sum.Cmp(NewBalance(5)))
	assert.Equal(t, 0, sum.Cmp(sum))
	assert.True(t, Balance{}.IsZero())
}

func TestLittleEndian(t *testing.T) {
	b := Balance{Lo: 0x0102, Hi: 7}
	raw := b.Bytes()
	require.Len(t, raw, 16)
	assert.Equal(t, byte(0x02), raw[0])
	assert.Equal(t, byte(7), raw[8])
	assert.Equal(t, b, Balance{}.FromLittleEndian(raw))

	assert.Equal(t, Timestamp(0x0807060504030201), Timestamp(0).FromLittleEndian([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.Equal(t, BlockNumber(0x04030201), BlockNumber(0).FromLittleEndian([]byte{1, 2, 3, 4}))
	assert.Equal(t, 4, BlockNumber(0).LittleEndianSize())
}

func TestSelectorFromString(t *testing.T) {
	s, err := SelectorFromString("0x9bae9d5e")
	require.NoError(t, err)
	assert.Equal(t, Selector{0x9b, 0xae, 0x9d, 0x5e}, s)
	assert.Equal(t, "0x9bae9d5e", s.String())

	_, err = SelectorFromString("0x01")
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestHostErrors(t *testing.T) {
	assert.NoError(t, StatusError(types.Success))

	err := fmt.Errorf("call: %w", StatusError(types.CalleeTrapped))
	assert.ErrorIs(t, err, ErrCalleeTrapped)
	assert.False(t, errors.Is(err, ErrTransferFailed))

	var hostErr *HostError
	require.True(t, errors.As(err, &hostErr))
	assert.Equal(t, types.CalleeTrapped, hostErr.Code)

	unexpected := &UnexpectedStatusError{Op: "get_storage", Code: types.TransferFailed}
	assert.ErrorIs(t, unexpected, ErrUnexpectedStatus)
	assert.Contains(t, unexpected.Error(), "TransferFailed")
}

func TestDecodeErrorAndTermination(t *testing.T) {
	assert.NoError(t, DecodeError(nil))
	err := DecodeError(errors.New("short input"))
	assert.ErrorIs(t, err, ErrDecode)
	assert.Same(t, err, DecodeError(err))

	term := &Terminated{Flags: types.Revert}
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", term), ErrTerminated)
	assert.Equal(t, "returned with revert flag", term.Error())
	assert.Equal(t, "could not read input", CouldNotReadInput.Error())
}
