package env

import (
	"bytes"
	"io"

	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/types"
)

// Input returns the raw input of the current call. The slice aliases the
// static buffer.
func (e *EnvInstance) Input() []byte {
	buf := e.scopedBuffer()
	full := buf.TakeRest()
	return full[:e.host.Input(full)]
}

// DecodeInput decodes the start of the call input into dst.
func (e *EnvInstance) DecodeInput(dst any) error {
	_, err := codec.Decode(e.Input(), dst)
	return err
}

// DecodeInputWith passes the call input to decode as a reader.
func (e *EnvInstance) DecodeInputWith(decode func(r io.Reader) error) error {
	return core.DecodeError(decode(bytes.NewReader(e.Input())))
}

// ReturnValue ends the call with the encoding of v. On wasm the host never
// returns; otherwise the outcome is reported as a *core.Terminated the
// driver must hand back to the host unchanged.
func (e *EnvInstance) ReturnValue(flags types.ReturnFlags, v any) error {
	buf := e.scopedBuffer()
	data := buf.TakeEncoded(v)
	return e.returnData(flags, data)
}

// ReturnRaw ends the call with data as is.
func (e *EnvInstance) ReturnRaw(flags types.ReturnFlags, data []byte) error {
	return e.returnData(flags, data)
}

// ReturnEncoded ends the call with whatever encode writes.
func (e *EnvInstance) ReturnEncoded(flags types.ReturnFlags, encode func(w io.Writer) error) error {
	buf := e.scopedBuffer()
	data := buf.TakeEncodedFunc(encode)
	return e.returnData(flags, data)
}

func (e *EnvInstance) returnData(flags types.ReturnFlags, data []byte) error {
	e.host.ReturnValue(flags, data)
	return &core.Terminated{Flags: flags, Data: data}
}

// CallerIsOrigin reports whether the caller is the origin of the whole
// call chain, i.e. not a contract.
func (e *EnvInstance) CallerIsOrigin() bool {
	return e.host.CallerIsOrigin()
}

// CallRuntime dispatches the encoded runtime call.
func (e *EnvInstance) CallRuntime(call any) error {
	buf := e.scopedBuffer()
	enc := buf.TakeEncoded(call)
	return core.StatusError(e.host.CallRuntime(enc))
}

// CallChainExtension calls chain extension id with the encoding of input.
// statusToResult maps the extension status to an error; only when it
// returns nil is the output handed to decode.
func (e *EnvInstance) CallChainExtension(id uint32, input any, statusToResult func(status uint32) error, decode func(out []byte) error) error {
	buf := e.scopedBuffer()
	enc := buf.TakeEncoded(input)
	out := buf.TakeRest()
	n, status := e.host.CallChainExtension(id, enc, out)
	if err := statusToResult(status); err != nil {
		return err
	}
	return decode(out[:n])
}

// EcdsaRecover recovers the compressed public key that signed messageHash.
func (e *EnvInstance) EcdsaRecover(signature *[65]byte, messageHash *[32]byte) ([33]byte, error) {
	var out [33]byte
	err := core.StatusError(e.host.EcdsaRecover(signature, messageHash, &out))
	return out, err
}

// EcdsaToEthAddress converts a compressed public key to an Ethereum address.
func (e *EnvInstance) EcdsaToEthAddress(publicKey *[33]byte) ([20]byte, error) {
	var out [20]byte
	err := core.StatusError(e.host.EcdsaToEthAddress(publicKey, &out))
	return out, err
}

// Sr25519Verify checks an sr25519 signature of message.
func (e *EnvInstance) Sr25519Verify(signature *[64]byte, message []byte, publicKey *[32]byte) error {
	return core.StatusError(e.host.Sr25519Verify(signature, message, publicKey))
}
