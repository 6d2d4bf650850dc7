package core

import (
	"errors"
	"fmt"

	"github.com/govm-net/guestenv/types"
)

// Common errors of the environment.
var (
	// ErrBufferOverrun is fatal: an operation needed more than the static buffer.
	ErrBufferOverrun = errors.New("static buffer overrun")
	// ErrDecode wraps every canonical decoding failure.
	ErrDecode = errors.New("decode failed")
	// ErrUnexpectedStatus is fatal: the host answered outside the documented set.
	ErrUnexpectedStatus = errors.New("unexpected host status")
	// ErrTerminated marks the end of an invocation through ReturnValue or Terminate.
	ErrTerminated = errors.New("invocation terminated")
	// ErrInvalidSelector is returned for malformed selectors.
	ErrInvalidSelector = errors.New("invalid selector")
)

// HostError is a non-success status code propagated to the caller.
type HostError struct {
	Code types.ReturnCode
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host returned %s", e.Code)
}

// Is matches any HostError carrying the same code.
func (e *HostError) Is(target error) bool {
	t, ok := target.(*HostError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is checks against host errors.
var (
	ErrCalleeTrapped       = &HostError{Code: types.CalleeTrapped}
	ErrCalleeReverted      = &HostError{Code: types.CalleeReverted}
	ErrKeyNotFound         = &HostError{Code: types.KeyNotFound}
	ErrTransferFailed      = &HostError{Code: types.TransferFailed}
	ErrCodeNotFound        = &HostError{Code: types.CodeNotFound}
	ErrNotCallable         = &HostError{Code: types.NotCallable}
	ErrLoggingDisabled     = &HostError{Code: types.LoggingDisabled}
	ErrCallRuntimeFailed   = &HostError{Code: types.CallRuntimeFailed}
	ErrEcdsaRecoveryFailed = &HostError{Code: types.EcdsaRecoveryFailed}
	ErrSr25519VerifyFailed = &HostError{Code: types.Sr25519VerifyFailed}
)

// StatusError converts a status code into an error, nil for Success.
func StatusError(code types.ReturnCode) error {
	if code == types.Success {
		return nil
	}
	return &HostError{Code: code}
}

// UnexpectedStatusError is raised (as a panic value) when a host function
// reports a status its call site does not handle. It signals a host/guest
// protocol mismatch and is never retryable.
type UnexpectedStatusError struct {
	Op   string
	Code types.ReturnCode
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrUnexpectedStatus, e.Code)
}

func (e *UnexpectedStatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// DecodeError wraps err with ErrDecode.
func DecodeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDecode) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDecode, err)
}

// LangError is the error a dispatcher reports when it could not even run
// the requested message.
type LangError uint8

const (
	// CouldNotReadInput means the selector or the arguments did not decode.
	CouldNotReadInput LangError = 1
)

func (e LangError) Error() string {
	switch e {
	case CouldNotReadInput:
		return "could not read input"
	}
	return fmt.Sprintf("language error %d", uint8(e))
}

// Terminated is the outcome of ReturnValue and TerminateContract. On wasm
// the host never hands control back; natively it surfaces as this error and
// the driver must end the invocation.
type Terminated struct {
	Flags types.ReturnFlags
	// Data is the encoded return value. It aliases the environment buffer
	// and is only valid until the next environment call.
	Data []byte
	// Beneficiary is set when the contract terminated itself.
	Beneficiary []byte
}

func (t *Terminated) Error() string {
	if t.Beneficiary != nil {
		return "contract terminated"
	}
	if t.Flags.Reverted() {
		return "returned with revert flag"
	}
	return "returned"
}

func (t *Terminated) Is(target error) bool {
	return target == ErrTerminated
}
