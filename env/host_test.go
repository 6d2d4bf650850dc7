package env

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/hostfn"
	"github.com/govm-net/guestenv/types"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

type depositedEvent struct {
	topics []byte
	data   []byte
}

type hostCall struct {
	flags  types.CallFlags
	target []byte
	gas    uint64
	value  []byte
	input  []byte
	salt   []byte
}

// fakeHost serves the environment from plain fields so tests can force
// every status code.
type fakeHost struct {
	hostfn.Host

	storage     map[string][]byte
	storageCode types.ReturnCode

	input   []byte
	caller  []byte
	address []byte
	balance core.Balance
	value   core.Balance
	gas     uint64
	now     uint64
	block   uint32

	debugCode types.ReturnCode
	debugLog  []string

	events []depositedEvent

	callCode types.ReturnCode
	callOut  []byte
	lastCall hostCall

	instAddress []byte
	instOut     []byte
	instCode    types.ReturnCode

	returnedFlags types.ReturnFlags
	returnedData  []byte
	terminatedTo  []byte

	cryptoCode types.ReturnCode
}

func newFakeHost() *fakeHost {
	return &fakeHost{storage: map[string][]byte{}}
}

func storageSize(v []byte, ok bool) uint32 {
	if !ok {
		return types.SentinelSize
	}
	return uint32(len(v))
}

func (h *fakeHost) SetStorage(key, value []byte) uint32 {
	prev, ok := h.storage[string(key)]
	h.storage[string(key)] = append([]byte(nil), value...)
	return storageSize(prev, ok)
}

func (h *fakeHost) GetStorage(key, out []byte) (int, types.ReturnCode) {
	if h.storageCode != types.Success {
		return 0, h.storageCode
	}
	v, ok := h.storage[string(key)]
	if !ok {
		return 0, types.KeyNotFound
	}
	return copy(out, v), types.Success
}

func (h *fakeHost) TakeStorage(key, out []byte) (int, types.ReturnCode) {
	n, code := h.GetStorage(key, out)
	if code == types.Success {
		delete(h.storage, string(key))
	}
	return n, code
}

func (h *fakeHost) ContainsStorage(key []byte) uint32 {
	v, ok := h.storage[string(key)]
	return storageSize(v, ok)
}

func (h *fakeHost) ClearStorage(key []byte) uint32 {
	v, ok := h.storage[string(key)]
	delete(h.storage, string(key))
	return storageSize(v, ok)
}

func (h *fakeHost) Input(out []byte) int   { return copy(out, h.input) }
func (h *fakeHost) Caller(out []byte) int  { return copy(out, h.caller) }
func (h *fakeHost) Address(out []byte) int { return copy(out, h.address) }

func (h *fakeHost) Balance(out []byte) int {
	h.balance.PutLittleEndian(out)
	return 16
}

func (h *fakeHost) ValueTransferred(out []byte) int {
	h.value.PutLittleEndian(out)
	return 16
}

func (h *fakeHost) MinimumBalance(out []byte) int {
	core.NewBalance(1).PutLittleEndian(out)
	return 16
}

func (h *fakeHost) WeightToFee(gas uint64, out []byte) int {
	core.NewBalance(gas*2).PutLittleEndian(out)
	return 16
}

func (h *fakeHost) GasLeft(out []byte) int {
	binary.LittleEndian.PutUint64(out, h.gas)
	return 8
}

func (h *fakeHost) Now(out []byte) int {
	binary.LittleEndian.PutUint64(out, h.now)
	return 8
}

func (h *fakeHost) BlockNumber(out []byte) int {
	binary.LittleEndian.PutUint32(out, h.block)
	return 4
}

func (h *fakeHost) OwnCodeHash(out []byte) int {
	return copy(out, h.address)
}

func (h *fakeHost) CodeHash(account, out []byte) (int, types.ReturnCode) {
	if string(account) != string(h.address) {
		return 0, types.KeyNotFound
	}
	return copy(out, h.address), types.Success
}

func (h *fakeHost) IsContract(account []byte) bool {
	return string(account) == string(h.address)
}

func (h *fakeHost) CallerIsOrigin() bool { return true }

func (h *fakeHost) DebugMessage(msg []byte) types.ReturnCode {
	h.debugLog = append(h.debugLog, string(msg))
	return h.debugCode
}

func (h *fakeHost) HashBlake2x128(input []byte, out *[16]byte) {
	d, _ := blake2b.New(16, nil)
	d.Write(input)
	copy(out[:], d.Sum(nil))
}

func (h *fakeHost) HashBlake2x256(input []byte, out *[32]byte) { *out = blake2b.Sum256(input) }
func (h *fakeHost) HashSha2x256(input []byte, out *[32]byte)   { *out = sha256.Sum256(input) }

func (h *fakeHost) HashKeccak256(input []byte, out *[32]byte) {
	d := sha3.NewLegacyKeccak256()
	d.Write(input)
	copy(out[:], d.Sum(nil))
}

func (h *fakeHost) DepositEvent(topics, data []byte) {
	h.events = append(h.events, depositedEvent{
		topics: append([]byte(nil), topics...),
		data:   append([]byte(nil), data...),
	})
}

func (h *fakeHost) Call(flags types.CallFlags, callee []byte, gas uint64, value, input, out []byte) (int, types.ReturnCode) {
	h.lastCall = hostCall{flags: flags, target: callee, gas: gas, value: value, input: input}
	return copy(out, h.callOut), h.callCode
}

func (h *fakeHost) DelegateCall(flags types.CallFlags, codeHash, input, out []byte) (int, types.ReturnCode) {
	h.lastCall = hostCall{flags: flags, target: codeHash, input: input}
	return copy(out, h.callOut), h.callCode
}

func (h *fakeHost) Instantiate(codeHash []byte, gas uint64, endowment, input, outAddress, outReturn, salt []byte) (int, int, types.ReturnCode) {
	h.lastCall = hostCall{target: codeHash, gas: gas, value: endowment, input: input, salt: salt}
	return copy(outAddress, h.instAddress), copy(outReturn, h.instOut), h.instCode
}

func (h *fakeHost) Transfer(dest, value []byte) types.ReturnCode {
	h.lastCall = hostCall{target: dest, value: value}
	return h.callCode
}

func (h *fakeHost) ReturnValue(flags types.ReturnFlags, data []byte) {
	h.returnedFlags = flags
	h.returnedData = append([]byte(nil), data...)
}

func (h *fakeHost) Terminate(beneficiary []byte) {
	h.terminatedTo = append([]byte(nil), beneficiary...)
}

func (h *fakeHost) CallRuntime(call []byte) types.ReturnCode {
	h.lastCall = hostCall{input: call}
	return h.callCode
}

func (h *fakeHost) CallChainExtension(id uint32, input, out []byte) (int, uint32) {
	h.lastCall = hostCall{gas: uint64(id), input: input}
	return copy(out, h.callOut), uint32(h.callCode)
}

func (h *fakeHost) SetCodeHash(codeHash []byte) types.ReturnCode {
	h.lastCall = hostCall{target: codeHash}
	return h.callCode
}

func (h *fakeHost) EcdsaRecover(signature *[65]byte, messageHash *[32]byte, out *[33]byte) types.ReturnCode {
	out[0] = 0x02
	copy(out[1:], messageHash[:])
	return h.cryptoCode
}

func (h *fakeHost) EcdsaToEthAddress(publicKey *[33]byte, out *[20]byte) types.ReturnCode {
	copy(out[:], publicKey[13:])
	return h.cryptoCode
}

func (h *fakeHost) Sr25519Verify(signature *[64]byte, message []byte, publicKey *[32]byte) types.ReturnCode {
	return h.cryptoCode
}
