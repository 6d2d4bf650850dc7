package env

import (
	"testing"

	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var flipSelector = core.Selector{0x63, 0x3a, 0xa5, 0x51}

func TestExecutionInputEncoding(t *testing.T) {
	in := NewExecutionInput(flipSelector, uint32(1)).Push(true)
	buf := NewScopedBuffer(make([]byte, 16))
	enc := buf.TakeEncodedFunc(in.EncodeTo)
	assert.Equal(t, []byte{0x63, 0x3a, 0xa5, 0x51, 1, 0, 0, 0, 1}, enc)
}

func TestInvokeContract(t *testing.T) {
	h := newFakeHost()
	h.callOut = []byte{0x00, 42, 0, 0, 0}
	e := newTestEnv(h, false)
	callee := core.AccountIDFromString("0x0e")

	var out uint32
	res, err := e.InvokeContract(CallParams[core.AccountID, core.Balance]{
		Callee:           callee,
		GasLimit:         5000,
		TransferredValue: core.NewBalance(3),
		Input:            NewExecutionInput(flipSelector, uint8(7)),
	}, &out)
	require.NoError(t, err)
	assert.False(t, res.Reverted)
	assert.Nil(t, res.LangError)
	assert.Equal(t, uint32(42), out)

	assert.Equal(t, callee[:], h.lastCall.target)
	assert.Equal(t, uint64(5000), h.lastCall.gas)
	assert.Equal(t, core.NewBalance(3).Bytes(), h.lastCall.value)
	assert.Equal(t, []byte{0x63, 0x3a, 0xa5, 0x51, 7}, h.lastCall.input)
}

func TestInvokeContractTruncatedOutput(t *testing.T) {
	h := newFakeHost()
	// Ok followed by 9 of the 16 bytes of a Balance.
	h.callOut = append([]byte{0x00}, core.NewBalance(500).Bytes()[:9]...)
	e := newTestEnv(h, false)

	var out core.Balance
	_, err := e.InvokeContract(CallParams[core.AccountID, core.Balance]{
		Callee: core.AccountIDFromString("0x0e"),
		Input:  NewExecutionInput(flipSelector),
	}, &out)
	assert.ErrorIs(t, err, core.ErrDecode)
}

func TestInvokeContractReverted(t *testing.T) {
	h := newFakeHost()
	// Ok(Err(7u8)): the message ran and returned its own error.
	h.callOut = []byte{0x00, 0x01, 7}
	h.callCode = types.CalleeReverted
	e := newTestEnv(h, false)

	var out struct {
		IsErr bool
		Code  uint8
	}
	res, err := e.InvokeContract(CallParams[core.AccountID, core.Balance]{}, &out)
	require.NoError(t, err)
	assert.True(t, res.Reverted)
	assert.True(t, out.IsErr)
	assert.Equal(t, uint8(7), out.Code)
}

func TestInvokeContractLangError(t *testing.T) {
	h := newFakeHost()
	h.callOut = []byte{0x01, 0x01}
	h.callCode = types.CalleeReverted
	e := newTestEnv(h, false)

	var out uint32
	res, err := e.InvokeContract(CallParams[core.AccountID, core.Balance]{}, &out)
	require.NoError(t, err)
	require.NotNil(t, res.LangError)
	assert.Equal(t, core.CouldNotReadInput, *res.LangError)

	h.callOut = []byte{0x02}
	_, err = e.InvokeContract(CallParams[core.AccountID, core.Balance]{}, &out)
	assert.ErrorIs(t, err, core.ErrDecode)
}

func TestInvokeContractHostErrors(t *testing.T) {
	for _, code := range []types.ReturnCode{types.CalleeTrapped, types.TransferFailed, types.NotCallable, types.ReturnCode(99)} {
		h := newFakeHost()
		h.callCode = code
		e := newTestEnv(h, false)

		_, err := e.InvokeContract(CallParams[core.AccountID, core.Balance]{}, nil)
		require.Error(t, err, code.String())
		assert.ErrorIs(t, err, &core.HostError{Code: code})
	}
}

func TestInvokeContractForwardInput(t *testing.T) {
	h := newFakeHost()
	h.callOut = []byte{0x00}
	e := newTestEnv(h, false)

	_, err := e.InvokeContract(CallParams[core.AccountID, core.Balance]{
		Flags: types.ForwardInput | types.TailCall,
		Input: NewExecutionInput(flipSelector),
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, h.lastCall.input)
	assert.Equal(t, types.ForwardInput|types.TailCall, h.lastCall.flags)
}

func TestInvokeContractDelegate(t *testing.T) {
	h := newFakeHost()
	h.callOut = []byte{0x00, 1}
	e := newTestEnv(h, false)
	codeHash := core.HashFromString("0xaa")

	var ok bool
	res, err := e.InvokeContractDelegate(DelegateCallParams[core.Hash]{
		CodeHash: codeHash,
		Input:    NewExecutionInput(flipSelector),
	}, &ok)
	require.NoError(t, err)
	assert.False(t, res.Reverted)
	assert.True(t, ok)
	assert.Equal(t, codeHash[:], h.lastCall.target)

	h.callCode = types.CodeNotFound
	_, err = e.InvokeContractDelegate(DelegateCallParams[core.Hash]{}, &ok)
	assert.ErrorIs(t, err, core.ErrCodeNotFound)
}

func createParams() CreateParams[core.Hash, core.Balance] {
	return CreateParams[core.Hash, core.Balance]{
		CodeHash:  core.HashFromString("0xc0de"),
		GasLimit:  0,
		Endowment: core.NewBalance(100),
		Input:     ExecutionInput{},
	}
}

func TestInstantiateContract(t *testing.T) {
	h := newFakeHost()
	addr := core.AccountIDFromString("0xfeed")
	h.instAddress = addr[:]
	h.instOut = []byte{0x00, 0x00}
	e := newTestEnv(h, false)

	res, err := e.InstantiateContract(createParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, addr, res.Address)
	assert.False(t, res.Reverted)

	assert.Equal(t, core.NewBalance(100).Bytes(), h.lastCall.value)
	assert.Equal(t, []byte{0, 0, 0, 0}, h.lastCall.input)
	assert.Empty(t, h.lastCall.salt)
}

func TestInstantiateContractShortAddress(t *testing.T) {
	h := newFakeHost()
	addr := core.AccountIDFromString("0xfeed")
	h.instAddress = addr[:20]
	h.instOut = []byte{0x00, 0x00}
	e := newTestEnv(h, false)

	_, err := e.InstantiateContract(createParams(), nil)
	assert.ErrorIs(t, err, core.ErrDecode)
}

func TestInstantiateContractHostFailure(t *testing.T) {
	h := newFakeHost()
	h.instCode = types.CodeNotFound
	e := newTestEnv(h, false)

	assert.NotPanics(t, func() {
		_, err := e.InstantiateContract(createParams(), nil)
		assert.ErrorIs(t, err, core.ErrCodeNotFound)
	})
}

func TestInstantiateContractReverted(t *testing.T) {
	h := newFakeHost()
	h.instCode = types.CalleeReverted
	e := newTestEnv(h, false)

	// Ok(Err("nope")): the constructor returned its error.
	errPayload, err := codec.Encode("nope")
	require.NoError(t, err)
	h.instOut = append([]byte{0x00, 0x01}, errPayload...)

	var contractErr string
	res, err := e.InstantiateContract(createParams(), &contractErr)
	require.NoError(t, err)
	assert.True(t, res.Reverted)
	assert.Equal(t, "nope", contractErr)
	assert.Equal(t, core.ZeroAccountID, res.Address)

	_, err = e.InstantiateContract(createParams(), nil)
	assert.ErrorIs(t, err, core.ErrDecode)

	h.instOut = []byte{0x01, 0x01}
	res, err = e.InstantiateContract(createParams(), &contractErr)
	require.NoError(t, err)
	require.NotNil(t, res.LangError)
	assert.Equal(t, core.CouldNotReadInput, *res.LangError)

	h.instOut = []byte{0x05}
	_, err = e.InstantiateContract(createParams(), &contractErr)
	assert.ErrorIs(t, err, core.ErrDecode)

	h.instOut = []byte{0x00, 0x00}
	assert.Panics(t, func() { _, _ = e.InstantiateContract(createParams(), &contractErr) })
}
