// Package hostfn is the host function ABI seen from the guest. Every
// function either reads caller supplied input regions or writes into caller
// supplied output regions and reports how many bytes it wrote. Nothing in
// here allocates.
//
// On wasm targets the functions are bound to the imports of the host with
// //go:wasmimport. On every other target a Host is installed at runtime,
// which is how tests and the reference host in package hostsim drive the
// environment natively.
package hostfn

import "github.com/govm-net/guestenv/types"

// Host is the closed set of host functions a contract can call.
//
// Output regions are filled from their start. The returned length is the
// number of bytes written; a host must never write more than len(out).
type Host interface {
	// SetStorage stores value under key and returns the size of the
	// previous value, or types.SentinelSize if there was none.
	SetStorage(key, value []byte) uint32
	// GetStorage copies the value stored under key into out.
	GetStorage(key, out []byte) (int, types.ReturnCode)
	// TakeStorage is GetStorage followed by ClearStorage.
	TakeStorage(key, out []byte) (int, types.ReturnCode)
	// ContainsStorage returns the size of the value under key, or
	// types.SentinelSize.
	ContainsStorage(key []byte) uint32
	// ClearStorage removes key and returns the size of the removed value,
	// or types.SentinelSize.
	ClearStorage(key []byte) uint32

	// Input copies the input of the current call into out.
	Input(out []byte) int
	// ReturnValue ends the current call with data. On wasm it never returns.
	ReturnValue(flags types.ReturnFlags, data []byte)

	Caller(out []byte) int
	ValueTransferred(out []byte) int
	GasLeft(out []byte) int
	Now(out []byte) int
	Address(out []byte) int
	Balance(out []byte) int
	BlockNumber(out []byte) int
	MinimumBalance(out []byte) int
	WeightToFee(gas uint64, out []byte) int
	OwnCodeHash(out []byte) int
	CodeHash(account, out []byte) (int, types.ReturnCode)

	// DebugMessage hands msg to the host's debug log. LoggingDisabled means
	// the host dropped it and will keep doing so.
	DebugMessage(msg []byte) types.ReturnCode

	HashBlake2x128(input []byte, out *[16]byte)
	HashBlake2x256(input []byte, out *[32]byte)
	HashSha2x256(input []byte, out *[32]byte)
	HashKeccak256(input []byte, out *[32]byte)

	// DepositEvent emits an event. topics is the encoded topic list.
	DepositEvent(topics, data []byte)

	Call(flags types.CallFlags, callee []byte, gas uint64, value, input, out []byte) (int, types.ReturnCode)
	DelegateCall(flags types.CallFlags, codeHash, input, out []byte) (int, types.ReturnCode)
	// Instantiate writes the new contract's encoded account id into
	// outAddress and its return data into outReturn.
	Instantiate(codeHash []byte, gas uint64, endowment, input, outAddress, outReturn, salt []byte) (addressLen, returnLen int, code types.ReturnCode)
	// Terminate removes the calling contract and sends its balance to
	// beneficiary. On wasm it never returns.
	Terminate(beneficiary []byte)
	Transfer(dest, value []byte) types.ReturnCode

	IsContract(account []byte) bool
	CallerIsOrigin() bool
	CallRuntime(call []byte) types.ReturnCode
	// CallChainExtension returns the extension specific status next to the
	// written length.
	CallChainExtension(id uint32, input, out []byte) (int, uint32)
	SetCodeHash(codeHash []byte) types.ReturnCode

	EcdsaRecover(signature *[65]byte, messageHash *[32]byte, out *[33]byte) types.ReturnCode
	EcdsaToEthAddress(publicKey *[33]byte, out *[20]byte) types.ReturnCode
	Sr25519Verify(signature *[64]byte, message []byte, publicKey *[32]byte) types.ReturnCode
}
