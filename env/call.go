package env

import (
	"fmt"
	"io"

	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/types"
)

// ExecutionInput selects a message or constructor and carries its
// arguments. It encodes as the selector followed by each argument.
type ExecutionInput struct {
	Selector core.Selector
	Args     []any
}

// NewExecutionInput returns the input calling selector with args.
func NewExecutionInput(selector core.Selector, args ...any) ExecutionInput {
	return ExecutionInput{Selector: selector, Args: args}
}

// Push appends an argument.
func (in ExecutionInput) Push(arg any) ExecutionInput {
	in.Args = append(in.Args, arg)
	return in
}

// EncodeTo writes the encoded input to w.
func (in ExecutionInput) EncodeTo(w io.Writer) error {
	if _, err := w.Write(in.Selector[:]); err != nil {
		return err
	}
	for i, arg := range in.Args {
		if err := codec.EncodeTo(w, arg); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}

// CallParams describes a call to the contract at Callee.
type CallParams[A, B any] struct {
	Flags            types.CallFlags
	Callee           A
	GasLimit         uint64
	TransferredValue B
	// Input is ignored when Flags forward or clone the current input.
	Input ExecutionInput
}

// DelegateCallParams describes running the code at CodeHash in the
// context of the executing contract.
type DelegateCallParams[H any] struct {
	Flags    types.CallFlags
	CodeHash H
	Input    ExecutionInput
}

// CreateParams describes the instantiation of a new contract.
type CreateParams[H, B any] struct {
	CodeHash  H
	GasLimit  uint64
	Endowment B
	Input     ExecutionInput
	// Salt is passed to the host as is and takes part in the address.
	Salt []byte
}

// CallResult is the outcome of a call that reached the callee's
// dispatcher.
type CallResult struct {
	// Reverted is set when the callee returned with the revert flag and
	// every change it made was rolled back.
	Reverted bool
	// LangError is set when the callee could not dispatch the call. The
	// return value was not decoded then.
	LangError *core.LangError
}

// InstantiateResult is the outcome of an instantiation that reached the
// constructor.
type InstantiateResult[A any] struct {
	// Address of the new contract. Only set on success.
	Address A
	// Reverted is set when the constructor returned its error; it was
	// decoded into the caller supplied target.
	Reverted bool
	// LangError is set when the constructor could not be dispatched.
	LangError *core.LangError
}

// decodeMessageResult decodes an encoded Result<R, LangError>. A nil dst
// skips the Ok payload.
func decodeMessageResult(out []byte, dst any) (*core.LangError, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty call result", core.ErrDecode)
	}
	switch out[0] {
	case codec.ResultOk:
		if dst == nil {
			return nil, nil
		}
		return nil, codec.DecodeAll(out[1:], dst)
	case codec.ResultErr:
		return decodeLangError(out[1:])
	}
	return nil, fmt.Errorf("%w: invalid result discriminant %d", core.ErrDecode, out[0])
}

func decodeLangError(out []byte) (*core.LangError, error) {
	var raw uint8
	if err := codec.DecodeAll(out, &raw); err != nil {
		return nil, err
	}
	le := core.LangError(raw)
	if le != core.CouldNotReadInput {
		return nil, fmt.Errorf("%w: unknown language error %d", core.ErrDecode, raw)
	}
	return &le, nil
}

func callOutcome(code types.ReturnCode, out []byte, dst any) (CallResult, error) {
	switch code {
	case types.Success, types.CalleeReverted:
	default:
		return CallResult{}, core.StatusError(code)
	}
	le, err := decodeMessageResult(out, dst)
	if err != nil {
		return CallResult{}, err
	}
	return CallResult{Reverted: code == types.CalleeReverted, LangError: le}, nil
}

// InvokeContract calls a contract and decodes its return value into dst.
// A callee that reverted still yields its decoded return value.
func (t *Typed[A, B, H, T, N]) InvokeContract(params CallParams[A, B], dst any) (CallResult, error) {
	buf := t.scopedBuffer()
	callee := buf.TakeEncoded(params.Callee)
	value := buf.TakeEncoded(params.TransferredValue)
	var input []byte
	if !params.Flags.ReusesInput() {
		input = buf.TakeEncodedFunc(params.Input.EncodeTo)
	}
	out := buf.TakeRest()
	n, code := t.host.Call(params.Flags, callee, params.GasLimit, value, input, out)
	return callOutcome(code, out[:n], dst)
}

// InvokeContractDelegate runs foreign code on the executing contract's
// storage and decodes its return value into dst.
func (t *Typed[A, B, H, T, N]) InvokeContractDelegate(params DelegateCallParams[H], dst any) (CallResult, error) {
	buf := t.scopedBuffer()
	codeHash := buf.TakeEncoded(params.CodeHash)
	var input []byte
	if !params.Flags.ReusesInput() {
		input = buf.TakeEncodedFunc(params.Input.EncodeTo)
	}
	out := buf.TakeRest()
	n, code := t.host.DelegateCall(params.Flags, codeHash, input, out)
	return callOutcome(code, out[:n], dst)
}

// InstantiateContract creates a contract. When the constructor reverts
// with an error it is decoded into contractErr.
func (t *Typed[A, B, H, T, N]) InstantiateContract(params CreateParams[H, B], contractErr any) (InstantiateResult[A], error) {
	var res InstantiateResult[A]
	buf := t.scopedBuffer()
	codeHash := buf.TakeEncoded(params.CodeHash)
	endowment := buf.TakeEncoded(params.Endowment)
	input := buf.TakeEncodedFunc(params.Input.EncodeTo)
	outAddress := buf.Take(types.MaxAddressLen)
	outReturn := buf.TakeRest()

	addrLen, retLen, code := t.host.Instantiate(codeHash, params.GasLimit, endowment, input, outAddress, outReturn, params.Salt)
	if addrLen > types.MaxAddressLen {
		panic(fmt.Errorf("%w: address of %d bytes", core.ErrBufferOverrun, addrLen))
	}

	switch code {
	case types.Success:
		err := codec.DecodeAll(outAddress[:addrLen], &res.Address)
		return res, err
	case types.CalleeReverted:
		return t.instantiateReverted(outReturn[:retLen], contractErr)
	}
	return res, core.StatusError(code)
}

// instantiateReverted decodes the Result<Result<(), E>, LangError> a
// reverted constructor returns.
func (t *Typed[A, B, H, T, N]) instantiateReverted(out []byte, contractErr any) (InstantiateResult[A], error) {
	var res InstantiateResult[A]
	if len(out) == 0 {
		return res, fmt.Errorf("%w: empty constructor result", core.ErrDecode)
	}
	switch out[0] {
	case codec.ResultOk:
		if len(out) < 2 {
			return res, fmt.Errorf("%w: short constructor result", core.ErrDecode)
		}
		switch out[1] {
		case codec.ResultOk:
			panic("env: constructor reverted without an error")
		case codec.ResultErr:
			if contractErr == nil {
				return res, fmt.Errorf("%w: constructor error without target", core.ErrDecode)
			}
			if err := codec.DecodeAll(out[2:], contractErr); err != nil {
				return res, err
			}
			res.Reverted = true
			return res, nil
		}
		return res, fmt.Errorf("%w: invalid constructor result discriminant %d", core.ErrDecode, out[1])
	case codec.ResultErr:
		le, err := decodeLangError(out[1:])
		res.LangError = le
		return res, err
	}
	return res, fmt.Errorf("%w: invalid result discriminant %d", core.ErrDecode, out[0])
}
