//go:build tinygo || wasip1

package hostfn

import (
	"unsafe"

	"github.com/govm-net/guestenv/types"
)

func ptr(b []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
}

func lenPtr(n *uint32) uint32 {
	return uint32(uintptr(unsafe.Pointer(n)))
}

//go:wasmimport seal2 set_storage
func sealSetStorage(keyPtr, keyLen, valuePtr, valueLen uint32) uint32

//go:wasmimport seal1 get_storage
func sealGetStorage(keyPtr, keyLen, outPtr, outLenPtr uint32) uint32

//go:wasmimport seal0 take_storage
func sealTakeStorage(keyPtr, keyLen, outPtr, outLenPtr uint32) uint32

//go:wasmimport seal1 contains_storage
func sealContainsStorage(keyPtr, keyLen uint32) uint32

//go:wasmimport seal1 clear_storage
func sealClearStorage(keyPtr, keyLen uint32) uint32

//go:wasmimport seal0 input
func sealInput(outPtr, outLenPtr uint32)

//go:wasmimport seal0 seal_return
func sealReturn(flags, dataPtr, dataLen uint32)

//go:wasmimport seal0 caller
func sealCaller(outPtr, outLenPtr uint32)

//go:wasmimport seal0 value_transferred
func sealValueTransferred(outPtr, outLenPtr uint32)

//go:wasmimport seal0 gas_left
func sealGasLeft(outPtr, outLenPtr uint32)

//go:wasmimport seal0 now
func sealNow(outPtr, outLenPtr uint32)

//go:wasmimport seal0 address
func sealAddress(outPtr, outLenPtr uint32)

//go:wasmimport seal0 balance
func sealBalance(outPtr, outLenPtr uint32)

//go:wasmimport seal0 block_number
func sealBlockNumber(outPtr, outLenPtr uint32)

//go:wasmimport seal0 minimum_balance
func sealMinimumBalance(outPtr, outLenPtr uint32)

//go:wasmimport seal0 weight_to_fee
func sealWeightToFee(gas uint64, outPtr, outLenPtr uint32)

//go:wasmimport seal0 own_code_hash
func sealOwnCodeHash(outPtr, outLenPtr uint32)

//go:wasmimport seal0 code_hash
func sealCodeHash(accountPtr, outPtr, outLenPtr uint32) uint32

//go:wasmimport seal0 debug_message
func sealDebugMessage(msgPtr, msgLen uint32) uint32

//go:wasmimport seal0 hash_blake2_128
func sealHashBlake2x128(inPtr, inLen, outPtr uint32)

//go:wasmimport seal0 hash_blake2_256
func sealHashBlake2x256(inPtr, inLen, outPtr uint32)

//go:wasmimport seal0 hash_sha2_256
func sealHashSha2x256(inPtr, inLen, outPtr uint32)

//go:wasmimport seal0 hash_keccak_256
func sealHashKeccak256(inPtr, inLen, outPtr uint32)

//go:wasmimport seal0 deposit_event
func sealDepositEvent(topicsPtr, topicsLen, dataPtr, dataLen uint32)

//go:wasmimport seal1 call
func sealCall(flags, calleePtr uint32, gas uint64, valuePtr, inputPtr, inputLen, outPtr, outLenPtr uint32) uint32

//go:wasmimport seal0 delegate_call
func sealDelegateCall(flags, codeHashPtr, inputPtr, inputLen, outPtr, outLenPtr uint32) uint32

//go:wasmimport seal1 instantiate
func sealInstantiate(codeHashPtr uint32, gas uint64, valuePtr, inputPtr, inputLen, addressPtr, addressLenPtr, outPtr, outLenPtr, saltPtr, saltLen uint32) uint32

//go:wasmimport seal1 terminate
func sealTerminate(beneficiaryPtr uint32)

//go:wasmimport seal0 transfer
func sealTransfer(accountPtr, accountLen, valuePtr, valueLen uint32) uint32

//go:wasmimport seal0 is_contract
func sealIsContract(accountPtr uint32) uint32

//go:wasmimport seal0 caller_is_origin
func sealCallerIsOrigin() uint32

//go:wasmimport seal0 call_runtime
func sealCallRuntime(callPtr, callLen uint32) uint32

//go:wasmimport seal0 call_chain_extension
func sealCallChainExtension(id, inputPtr, inputLen, outPtr, outLenPtr uint32) uint32

//go:wasmimport seal0 set_code_hash
func sealSetCodeHash(codeHashPtr uint32) uint32

//go:wasmimport seal0 ecdsa_recover
func sealEcdsaRecover(signaturePtr, messageHashPtr, outPtr uint32) uint32

//go:wasmimport seal0 ecdsa_to_eth_address
func sealEcdsaToEthAddress(keyPtr, outPtr uint32) uint32

//go:wasmimport seal0 sr25519_verify
func sealSr25519Verify(signaturePtr, publicKeyPtr, messageLen, messagePtr uint32) uint32

// wasmHost forwards every call to the imports above.
type wasmHost struct{}

// Default returns the host the module was instantiated against.
func Default() Host {
	return wasmHost{}
}

func readInto(fn func(outPtr, outLenPtr uint32), out []byte) int {
	n := uint32(len(out))
	fn(ptr(out), lenPtr(&n))
	return int(n)
}

func (wasmHost) SetStorage(key, value []byte) uint32 {
	return sealSetStorage(ptr(key), uint32(len(key)), ptr(value), uint32(len(value)))
}

func (wasmHost) GetStorage(key, out []byte) (int, types.ReturnCode) {
	n := uint32(len(out))
	code := sealGetStorage(ptr(key), uint32(len(key)), ptr(out), lenPtr(&n))
	return int(n), types.ReturnCode(code)
}

func (wasmHost) TakeStorage(key, out []byte) (int, types.ReturnCode) {
	n := uint32(len(out))
	code := sealTakeStorage(ptr(key), uint32(len(key)), ptr(out), lenPtr(&n))
	return int(n), types.ReturnCode(code)
}

func (wasmHost) ContainsStorage(key []byte) uint32 {
	return sealContainsStorage(ptr(key), uint32(len(key)))
}

func (wasmHost) ClearStorage(key []byte) uint32 {
	return sealClearStorage(ptr(key), uint32(len(key)))
}

func (wasmHost) Input(out []byte) int { return readInto(sealInput, out) }

func (wasmHost) ReturnValue(flags types.ReturnFlags, data []byte) {
	sealReturn(uint32(flags), ptr(data), uint32(len(data)))
}

func (wasmHost) Caller(out []byte) int           { return readInto(sealCaller, out) }
func (wasmHost) ValueTransferred(out []byte) int { return readInto(sealValueTransferred, out) }
func (wasmHost) GasLeft(out []byte) int          { return readInto(sealGasLeft, out) }
func (wasmHost) Now(out []byte) int              { return readInto(sealNow, out) }
func (wasmHost) Address(out []byte) int          { return readInto(sealAddress, out) }
func (wasmHost) Balance(out []byte) int          { return readInto(sealBalance, out) }
func (wasmHost) BlockNumber(out []byte) int      { return readInto(sealBlockNumber, out) }
func (wasmHost) MinimumBalance(out []byte) int   { return readInto(sealMinimumBalance, out) }
func (wasmHost) OwnCodeHash(out []byte) int      { return readInto(sealOwnCodeHash, out) }

func (wasmHost) WeightToFee(gas uint64, out []byte) int {
	n := uint32(len(out))
	sealWeightToFee(gas, ptr(out), lenPtr(&n))
	return int(n)
}

func (wasmHost) CodeHash(account, out []byte) (int, types.ReturnCode) {
	n := uint32(len(out))
	code := sealCodeHash(ptr(account), ptr(out), lenPtr(&n))
	return int(n), types.ReturnCode(code)
}

func (wasmHost) DebugMessage(msg []byte) types.ReturnCode {
	return types.ReturnCode(sealDebugMessage(ptr(msg), uint32(len(msg))))
}

func (wasmHost) HashBlake2x128(input []byte, out *[16]byte) {
	sealHashBlake2x128(ptr(input), uint32(len(input)), ptr(out[:]))
}

func (wasmHost) HashBlake2x256(input []byte, out *[32]byte) {
	sealHashBlake2x256(ptr(input), uint32(len(input)), ptr(out[:]))
}

func (wasmHost) HashSha2x256(input []byte, out *[32]byte) {
	sealHashSha2x256(ptr(input), uint32(len(input)), ptr(out[:]))
}

func (wasmHost) HashKeccak256(input []byte, out *[32]byte) {
	sealHashKeccak256(ptr(input), uint32(len(input)), ptr(out[:]))
}

func (wasmHost) DepositEvent(topics, data []byte) {
	sealDepositEvent(ptr(topics), uint32(len(topics)), ptr(data), uint32(len(data)))
}

func (wasmHost) Call(flags types.CallFlags, callee []byte, gas uint64, value, input, out []byte) (int, types.ReturnCode) {
	n := uint32(len(out))
	code := sealCall(uint32(flags), ptr(callee), gas, ptr(value), ptr(input), uint32(len(input)), ptr(out), lenPtr(&n))
	return int(n), types.ReturnCode(code)
}

func (wasmHost) DelegateCall(flags types.CallFlags, codeHash, input, out []byte) (int, types.ReturnCode) {
	n := uint32(len(out))
	code := sealDelegateCall(uint32(flags), ptr(codeHash), ptr(input), uint32(len(input)), ptr(out), lenPtr(&n))
	return int(n), types.ReturnCode(code)
}

func (wasmHost) Instantiate(codeHash []byte, gas uint64, endowment, input, outAddress, outReturn, salt []byte) (int, int, types.ReturnCode) {
	addrLen := uint32(len(outAddress))
	retLen := uint32(len(outReturn))
	code := sealInstantiate(ptr(codeHash), gas, ptr(endowment), ptr(input), uint32(len(input)),
		ptr(outAddress), lenPtr(&addrLen), ptr(outReturn), lenPtr(&retLen), ptr(salt), uint32(len(salt)))
	return int(addrLen), int(retLen), types.ReturnCode(code)
}

func (wasmHost) Terminate(beneficiary []byte) {
	sealTerminate(ptr(beneficiary))
}

func (wasmHost) Transfer(dest, value []byte) types.ReturnCode {
	return types.ReturnCode(sealTransfer(ptr(dest), uint32(len(dest)), ptr(value), uint32(len(value))))
}

func (wasmHost) IsContract(account []byte) bool {
	return sealIsContract(ptr(account)) != 0
}

func (wasmHost) CallerIsOrigin() bool {
	return sealCallerIsOrigin() != 0
}

func (wasmHost) CallRuntime(call []byte) types.ReturnCode {
	return types.ReturnCode(sealCallRuntime(ptr(call), uint32(len(call))))
}

func (wasmHost) CallChainExtension(id uint32, input, out []byte) (int, uint32) {
	n := uint32(len(out))
	status := sealCallChainExtension(id, ptr(input), uint32(len(input)), ptr(out), lenPtr(&n))
	return int(n), status
}

func (wasmHost) SetCodeHash(codeHash []byte) types.ReturnCode {
	return types.ReturnCode(sealSetCodeHash(ptr(codeHash)))
}

func (wasmHost) EcdsaRecover(signature *[65]byte, messageHash *[32]byte, out *[33]byte) types.ReturnCode {
	return types.ReturnCode(sealEcdsaRecover(ptr(signature[:]), ptr(messageHash[:]), ptr(out[:])))
}

func (wasmHost) EcdsaToEthAddress(publicKey *[33]byte, out *[20]byte) types.ReturnCode {
	return types.ReturnCode(sealEcdsaToEthAddress(ptr(publicKey[:]), ptr(out[:])))
}

func (wasmHost) Sr25519Verify(signature *[64]byte, message []byte, publicKey *[32]byte) types.ReturnCode {
	return types.ReturnCode(sealSr25519Verify(ptr(signature[:]), ptr(publicKey[:]), uint32(len(message)), ptr(message)))
}
