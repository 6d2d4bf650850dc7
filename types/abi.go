// Package types contains the shared definitions of the host function ABI:
// status codes, call and return flags, buffer limits and import names.
// They must be identical on the guest side and on every host that serves it.
package types

import "fmt"

// ReturnCode is the status a host function reports back to the guest.
//
// IMPORTANT: the numeric values are part of the wire contract with the host.
// Never reorder them; retired codes keep their slot.
type ReturnCode uint32

const (
	// Success means the host function completed.
	Success ReturnCode = 0
	// CalleeTrapped means the called contract trapped and all its changes were reverted.
	CalleeTrapped ReturnCode = 1
	// CalleeReverted means the called contract returned with the revert flag set.
	// The output buffer holds the callee's return data.
	CalleeReverted ReturnCode = 2
	// KeyNotFound means the storage key (or code hash lookup) has no entry.
	KeyNotFound ReturnCode = 3
	// 4 was BelowSubsistenceThreshold and is retired.

	// TransferFailed means a balance transfer could not be performed.
	TransferFailed ReturnCode = 5
	// 6 was EndowmentTooLow and is retired.

	// CodeNotFound means no code is stored under the supplied code hash.
	CodeNotFound ReturnCode = 7
	// NotCallable means the account exists but has no contract code.
	NotCallable ReturnCode = 8
	// LoggingDisabled means the host discarded a debug message.
	LoggingDisabled ReturnCode = 9
	// CallRuntimeFailed means a dispatched runtime call returned an error.
	CallRuntimeFailed ReturnCode = 10
	// EcdsaRecoveryFailed means no public key could be recovered from the signature.
	EcdsaRecoveryFailed ReturnCode = 11
	// Sr25519VerifyFailed means the sr25519 signature did not verify.
	Sr25519VerifyFailed ReturnCode = 12
)

var returnCodeNames = map[ReturnCode]string{
	Success:             "Success",
	CalleeTrapped:       "CalleeTrapped",
	CalleeReverted:      "CalleeReverted",
	KeyNotFound:         "KeyNotFound",
	TransferFailed:      "TransferFailed",
	CodeNotFound:        "CodeNotFound",
	NotCallable:         "NotCallable",
	LoggingDisabled:     "LoggingDisabled",
	CallRuntimeFailed:   "CallRuntimeFailed",
	EcdsaRecoveryFailed: "EcdsaRecoveryFailed",
	Sr25519VerifyFailed: "Sr25519VerifyFailed",
}

// Known reports whether c belongs to the closed set of status codes.
func (c ReturnCode) Known() bool {
	_, ok := returnCodeNames[c]
	return ok
}

func (c ReturnCode) String() string {
	if name, ok := returnCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint32(c))
}

// CallFlags controls how a cross-contract call treats the caller's input
// and reentrancy.
type CallFlags uint32

const (
	// ForwardInput hands the current input to the callee. The caller can no
	// longer read it afterwards.
	ForwardInput CallFlags = 1 << iota
	// CloneInput copies the current input to the callee.
	CloneInput
	// TailCall makes the callee's output the caller's output.
	TailCall
	// AllowReentry permits the callee to call back into the caller.
	AllowReentry
)

// Contains reports whether all bits of other are set in f.
func (f CallFlags) Contains(other CallFlags) bool {
	return f&other == other
}

// ReusesInput reports whether the host reuses the executing input instead
// of an explicitly encoded one.
func (f CallFlags) ReusesInput() bool {
	return f.Contains(ForwardInput) || f.Contains(CloneInput)
}

// ReturnFlags accompanies the data handed back with ReturnValue.
type ReturnFlags uint32

const (
	// Revert makes the host roll back every change of the current call
	// while still delivering the return data to the caller.
	Revert ReturnFlags = 1
)

// Reverted reports whether the revert bit is set.
func (f ReturnFlags) Reverted() bool {
	return f&Revert != 0
}

const (
	// BufferSize is the size of the static buffer every environment
	// instance exchanges data with the host through.
	BufferSize = 16 * 1024

	// MaxAddressLen bounds the encoded length of an account id returned by
	// instantiate. Longer encodings trap.
	MaxAddressLen = 1024

	// SentinelSize is what the storage functions report when no previous
	// value existed.
	SentinelSize uint32 = ^uint32(0)

	// HashWidth is the width of the default hash type and of every event topic.
	HashWidth = 32
)

// Import modules of the host functions. Newer versions of a function live
// in the module with the higher suffix.
const (
	ModuleSeal0 = "seal0"
	ModuleSeal1 = "seal1"
	ModuleSeal2 = "seal2"
)

// HostFunction names an import a guest links against.
type HostFunction struct {
	Module string
	Name   string
}

func (f HostFunction) String() string {
	return f.Module + "." + f.Name
}

// Host functions served to wasm guests. The guest side binding in package
// hostfn and the wazero bridge in package vm both use these.
var (
	FnSetStorage         = HostFunction{ModuleSeal2, "set_storage"}
	FnGetStorage         = HostFunction{ModuleSeal1, "get_storage"}
	FnTakeStorage        = HostFunction{ModuleSeal0, "take_storage"}
	FnContainsStorage    = HostFunction{ModuleSeal1, "contains_storage"}
	FnClearStorage       = HostFunction{ModuleSeal1, "clear_storage"}
	FnInput              = HostFunction{ModuleSeal0, "input"}
	FnReturn             = HostFunction{ModuleSeal0, "seal_return"}
	FnCaller             = HostFunction{ModuleSeal0, "caller"}
	FnValueTransferred   = HostFunction{ModuleSeal0, "value_transferred"}
	FnGasLeft            = HostFunction{ModuleSeal0, "gas_left"}
	FnNow                = HostFunction{ModuleSeal0, "now"}
	FnAddress            = HostFunction{ModuleSeal0, "address"}
	FnBalance            = HostFunction{ModuleSeal0, "balance"}
	FnBlockNumber        = HostFunction{ModuleSeal0, "block_number"}
	FnMinimumBalance     = HostFunction{ModuleSeal0, "minimum_balance"}
	FnWeightToFee        = HostFunction{ModuleSeal0, "weight_to_fee"}
	FnOwnCodeHash        = HostFunction{ModuleSeal0, "own_code_hash"}
	FnCodeHash           = HostFunction{ModuleSeal0, "code_hash"}
	FnDebugMessage       = HostFunction{ModuleSeal0, "debug_message"}
	FnHashBlake2x128     = HostFunction{ModuleSeal0, "hash_blake2_128"}
	FnHashBlake2x256     = HostFunction{ModuleSeal0, "hash_blake2_256"}
	FnHashSha2x256       = HostFunction{ModuleSeal0, "hash_sha2_256"}
	FnHashKeccak256      = HostFunction{ModuleSeal0, "hash_keccak_256"}
	FnDepositEvent       = HostFunction{ModuleSeal0, "deposit_event"}
	FnCall               = HostFunction{ModuleSeal1, "call"}
	FnDelegateCall       = HostFunction{ModuleSeal0, "delegate_call"}
	FnInstantiate        = HostFunction{ModuleSeal1, "instantiate"}
	FnTerminate          = HostFunction{ModuleSeal1, "terminate"}
	FnTransfer           = HostFunction{ModuleSeal0, "transfer"}
	FnIsContract         = HostFunction{ModuleSeal0, "is_contract"}
	FnCallerIsOrigin     = HostFunction{ModuleSeal0, "caller_is_origin"}
	FnCallRuntime        = HostFunction{ModuleSeal0, "call_runtime"}
	FnCallChainExtension = HostFunction{ModuleSeal0, "call_chain_extension"}
	FnSetCodeHash        = HostFunction{ModuleSeal0, "set_code_hash"}
	FnEcdsaRecover       = HostFunction{ModuleSeal0, "ecdsa_recover"}
	FnEcdsaToEthAddress  = HostFunction{ModuleSeal0, "ecdsa_to_eth_address"}
	FnSr25519Verify      = HostFunction{ModuleSeal0, "sr25519_verify"}
)

// Guest exports the host calls into.
const (
	ExportDeploy = "deploy"
	ExportCall   = "call"
	ExportMemory = "memory"
)
