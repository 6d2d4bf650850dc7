// Package hostsim is an in-process host for contracts. It implements
// hostfn.Host on top of a store.Store, keeps accounts, balances and code in
// memory and runs nested calls on a frame stack. Every frame buffers its
// changes; a frame that reverts or traps drops them together with the
// changes of everything it called.
//
// Contracts are anything implementing Contract: Go code driving package env
// directly, or wasm code run through package vm.
package hostsim

import (
	"errors"
	"fmt"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/hostfn"
	"github.com/govm-net/guestenv/store"
	"github.com/govm-net/guestenv/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrTrapped wraps the cause of every trap.
	ErrTrapped = errors.New("contract trapped")
	// ErrOutOfGas traps a frame that exceeded its gas.
	ErrOutOfGas = errors.New("out of gas")
	// ErrOutputTooSmall traps a frame whose output region cannot hold the result.
	ErrOutputTooSmall = errors.New("output buffer too small")
	// ErrInvalidInput traps a frame that passed malformed data to the host.
	ErrInvalidInput = errors.New("invalid host function input")
	// ErrCodeNotFound is returned when no code is stored under a hash.
	ErrCodeNotFound = errors.New("code not found")
	// ErrNotCallable is returned when calling an account without code.
	ErrNotCallable = errors.New("account is not a contract")
	// ErrDuplicateContract is returned when the derived address is taken.
	ErrDuplicateContract = errors.New("contract already exists")
	// ErrInsufficientBalance is returned when a transfer cannot be paid.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNoFrame is the panic value of host functions called outside a call.
	ErrNoFrame = errors.New("no active call frame")
	// ErrNoChainExtension traps calls to unregistered chain extensions.
	ErrNoChainExtension = errors.New("chain extension not registered")
	// ErrTerminateReentered traps a contract terminating while it is on the stack twice.
	ErrTerminateReentered = errors.New("terminated contract is still executing")
)

var logger = zap.NewNop()

// Logger returns the package logger. It is a no-op logger by default.
func Logger() *zap.Logger {
	return logger
}

// SetLogger replaces the package logger. A nil logger disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Contract is executable contract code.
type Contract interface {
	// Deploy runs the constructor selected by the call input.
	Deploy(h hostfn.Host) error
	// Call runs the message selected by the call input.
	Call(h hostfn.Host) error
}

// ContractFuncs adapts plain functions to Contract. A nil function
// succeeds without output.
type ContractFuncs struct {
	OnDeploy func(h hostfn.Host) error
	OnCall   func(h hostfn.Host) error
}

func (c ContractFuncs) Deploy(h hostfn.Host) error {
	if c.OnDeploy == nil {
		return nil
	}
	return c.OnDeploy(h)
}

func (c ContractFuncs) Call(h hostfn.Host) error {
	if c.OnCall == nil {
		return nil
	}
	return c.OnCall(h)
}

// ChainExtension serves one chain extension id. It returns the output
// and the extension specific status.
type ChainExtension func(input []byte) (output []byte, status uint32)

// Event is a deposited event.
type Event struct {
	Contract core.AccountID
	Topics   []core.Hash
	Data     []byte
}

// account is the state of one account. Accounts are copied by value into
// frame snapshots, so it must not hold references.
type account struct {
	balance  core.Balance
	codeHash core.Hash
	contract bool
}

type cell struct {
	value   []byte
	deleted bool
}

type frame struct {
	caller   core.AccountID
	address  core.AccountID
	codeHash core.Hash
	value    core.Balance
	input    []byte
	gas      *GasMeter

	writes map[core.AccountID]map[string]cell

	accounts map[core.AccountID]account
	events   int

	output []byte
	flags  types.ReturnFlags
}

// ExecResult is the outcome of one frame.
type ExecResult struct {
	Flags   types.ReturnFlags
	Data    []byte
	GasUsed uint64
	// Err is set when the frame trapped. It wraps ErrTrapped.
	Err error
}

// Reverted reports whether the frame's changes were rolled back.
func (r ExecResult) Reverted() bool {
	return r.Err != nil || r.Flags.Reverted()
}

// Host is the reference host. It is not safe for concurrent use.
type Host struct {
	cfg        Config
	store      store.Store
	codes      map[core.Hash]Contract
	accounts   map[core.AccountID]account
	frames     []*frame
	events     []Event
	debug      []string
	extensions map[uint32]ChainExtension
	runtime    func(call []byte) error
	origin     core.AccountID
}

var _ hostfn.Host = (*Host)(nil)

// New returns a host over st.
func New(cfg Config, st store.Store) *Host {
	return &Host{
		cfg:        cfg,
		store:      st,
		codes:      make(map[core.Hash]Contract),
		accounts:   make(map[core.AccountID]account),
		extensions: make(map[uint32]ChainExtension),
	}
}

// Config returns the host configuration.
func (h *Host) Config() Config {
	return h.cfg
}

// CodeHashOf returns the Blake2x256 hash code is stored under.
func CodeHashOf(code []byte) core.Hash {
	return blake2b.Sum256(code)
}

// PutCode stores c under hash, replacing what was there.
func (h *Host) PutCode(hash core.Hash, c Contract) {
	h.codes[hash] = c
}

// UploadCode stores c under the hash of name and returns the hash.
func (h *Host) UploadCode(name string, c Contract) core.Hash {
	hash := CodeHashOf([]byte(name))
	h.PutCode(hash, c)
	return hash
}

// RegisterChainExtension serves chain extension id with ext.
func (h *Host) RegisterChainExtension(id uint32, ext ChainExtension) {
	h.extensions[id] = ext
}

// SetRuntimeCall installs the dispatcher of CallRuntime.
func (h *Host) SetRuntimeCall(fn func(call []byte) error) {
	h.runtime = fn
}

// SetBalance sets the free balance of acct.
func (h *Host) SetBalance(acct core.AccountID, balance core.Balance) {
	a := h.accounts[acct]
	a.balance = balance
	h.accounts[acct] = a
}

// BalanceOf returns the balance of acct.
func (h *Host) BalanceOf(acct core.AccountID) core.Balance {
	return h.accounts[acct].balance
}

// ContractCodeHash returns the code hash of the contract at acct.
func (h *Host) ContractCodeHash(acct core.AccountID) (core.Hash, bool) {
	a, ok := h.accounts[acct]
	if !ok || !a.contract {
		return core.ZeroHash, false
	}
	return a.codeHash, true
}

// Events returns the events deposited by committed frames.
func (h *Host) Events() []Event {
	return h.events
}

// DebugMessages returns every accepted debug message.
func (h *Host) DebugMessages() []string {
	return h.debug
}

// Storage reads contract storage as the current frame sees it.
func (h *Host) Storage(contract core.AccountID, key []byte) ([]byte, bool) {
	return h.readStorage(contract, key)
}

// DeriveAddress returns the address of a contract instantiated by
// deployer from codeHash with input and salt.
func DeriveAddress(deployer core.AccountID, codeHash core.Hash, input, salt []byte) core.AccountID {
	d, _ := blake2b.New256(nil)
	d.Write(deployer[:])
	d.Write(codeHash[:])
	d.Write(input)
	d.Write(salt)
	var out core.AccountID
	copy(out[:], d.Sum(nil))
	return out
}

func (h *Host) current() *frame {
	if len(h.frames) == 0 {
		panic(ErrNoFrame)
	}
	return h.frames[len(h.frames)-1]
}

func (h *Host) cloneAccounts() map[core.AccountID]account {
	out := make(map[core.AccountID]account, len(h.accounts))
	for k, v := range h.accounts {
		out[k] = v
	}
	return out
}

func (h *Host) push(fr *frame) {
	fr.accounts = h.cloneAccounts()
	fr.events = len(h.events)
	fr.writes = make(map[core.AccountID]map[string]cell)
	h.frames = append(h.frames, fr)
}

// pop removes the top frame, committing its changes into the frame below
// or the store, or rolling them back.
func (h *Host) pop(commit bool) error {
	fr := h.current()
	h.frames = h.frames[:len(h.frames)-1]
	if !commit {
		h.accounts = fr.accounts
		h.events = h.events[:fr.events]
		return nil
	}
	if len(h.frames) > 0 {
		parent := h.current()
		for contract, cells := range fr.writes {
			dst, ok := parent.writes[contract]
			if !ok {
				dst = make(map[string]cell, len(cells))
				parent.writes[contract] = dst
			}
			for k, c := range cells {
				dst[k] = c
			}
		}
		return nil
	}
	for contract, cells := range fr.writes {
		for k, c := range cells {
			var err error
			if c.deleted {
				err = h.store.Delete(contract, []byte(k))
			} else {
				err = h.store.Set(contract, []byte(k), c.value)
			}
			if err != nil {
				return fmt.Errorf("commit storage of %s: %w", contract, err)
			}
		}
	}
	return nil
}

func trapError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrTrapped, err)
	}
	return fmt.Errorf("%w: %v", ErrTrapped, r)
}

// execute runs fn in fr. Panics and errors other than *core.Terminated
// trap the frame.
func (h *Host) execute(fr *frame, fn func() error) (res ExecResult) {
	h.push(fr)
	defer func() {
		if r := recover(); r != nil {
			res = ExecResult{Err: trapError(r)}
		}
		res.GasUsed = fr.gas.Used()
		if res.Err != nil {
			logger.Debug("contract trapped", zap.Stringer("contract", fr.address), zap.Error(res.Err))
		}
		if err := h.pop(!res.Reverted()); err != nil {
			res = ExecResult{Err: fmt.Errorf("%w: %w", ErrTrapped, err), GasUsed: res.GasUsed}
		}
	}()

	err := fn()
	if err != nil && !errors.Is(err, core.ErrTerminated) {
		return ExecResult{Err: fmt.Errorf("%w: %w", ErrTrapped, err)}
	}
	return ExecResult{Flags: fr.flags, Data: fr.output}
}

// Enter starts a frame of the contract at address without running code,
// so tests can drive the environment directly. Exit must follow.
func (h *Host) Enter(caller, address core.AccountID, value core.Balance, input []byte) {
	if len(h.frames) == 0 {
		h.origin = caller
	}
	h.push(&frame{
		caller:   caller,
		address:  address,
		codeHash: h.accounts[address].codeHash,
		value:    value,
		input:    append([]byte(nil), input...),
		gas:      NewGasMeter(h.cfg.GasLimit),
	})
}

// Exit ends the frame started by Enter and commits or drops its changes.
func (h *Host) Exit(commit bool) error {
	return h.pop(commit)
}

// DeployContract instantiates the code at codeHash on behalf of origin.
func (h *Host) DeployContract(origin core.AccountID, codeHash core.Hash, value core.Balance, input, salt []byte) (core.AccountID, ExecResult, error) {
	code, ok := h.codes[codeHash]
	if !ok {
		return core.ZeroAccountID, ExecResult{}, fmt.Errorf("%w: %s", ErrCodeNotFound, codeHash)
	}
	addr := DeriveAddress(origin, codeHash, input, salt)
	if h.accounts[addr].contract {
		return core.ZeroAccountID, ExecResult{}, fmt.Errorf("%w: %s", ErrDuplicateContract, addr)
	}
	if h.accounts[origin].balance.Cmp(value) < 0 {
		return core.ZeroAccountID, ExecResult{}, ErrInsufficientBalance
	}
	h.origin = origin

	logger.Debug("deploy", zap.Stringer("origin", origin), zap.Stringer("code_hash", codeHash), zap.Stringer("address", addr))
	res := h.instantiate(origin, addr, codeHash, code, value, input, NewGasMeter(h.cfg.GasLimit))
	if res.Reverted() {
		return core.ZeroAccountID, res, res.Err
	}
	return addr, res, nil
}

// CallContract calls the contract at dest on behalf of origin.
func (h *Host) CallContract(origin, dest core.AccountID, value core.Balance, input []byte) (ExecResult, error) {
	acct := h.accounts[dest]
	if !acct.contract {
		return ExecResult{}, fmt.Errorf("%w: %s", ErrNotCallable, dest)
	}
	code, ok := h.codes[acct.codeHash]
	if !ok {
		return ExecResult{}, fmt.Errorf("%w: %s", ErrCodeNotFound, acct.codeHash)
	}
	if h.accounts[origin].balance.Cmp(value) < 0 {
		return ExecResult{}, ErrInsufficientBalance
	}
	h.origin = origin

	logger.Debug("call", zap.Stringer("origin", origin), zap.Stringer("contract", dest))
	res := h.call(origin, dest, acct.codeHash, code, value, input, NewGasMeter(h.cfg.GasLimit))
	return res, res.Err
}

func (h *Host) instantiate(deployer, addr core.AccountID, codeHash core.Hash, code Contract, value core.Balance, input []byte, gas *GasMeter) ExecResult {
	fr := &frame{
		caller:   deployer,
		address:  addr,
		codeHash: codeHash,
		value:    value,
		input:    input,
		gas:      gas,
	}
	return h.execute(fr, func() error {
		a := h.accounts[addr]
		a.contract = true
		a.codeHash = codeHash
		h.accounts[addr] = a
		if err := h.transfer(deployer, addr, value, false); err != nil {
			return err
		}
		return code.Deploy(h)
	})
}

func (h *Host) call(caller, dest core.AccountID, codeHash core.Hash, code Contract, value core.Balance, input []byte, gas *GasMeter) ExecResult {
	fr := &frame{
		caller:   caller,
		address:  dest,
		codeHash: codeHash,
		value:    value,
		input:    input,
		gas:      gas,
	}
	return h.execute(fr, func() error {
		if err := h.transfer(caller, dest, value, false); err != nil {
			return err
		}
		return code.Call(h)
	})
}

// transfer moves value between accounts. keepAlive refuses to drop the
// sender below the existential deposit.
func (h *Host) transfer(from, to core.AccountID, value core.Balance, keepAlive bool) error {
	if value.IsZero() {
		return nil
	}
	src := h.accounts[from]
	left, ok := src.balance.Sub(value)
	if !ok {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, src.balance, value)
	}
	if keepAlive && left.Cmp(core.NewBalance(h.cfg.ExistentialDeposit)) < 0 {
		return fmt.Errorf("%w: %s would drop below the existential deposit", ErrInsufficientBalance, from)
	}
	dst := h.accounts[to]
	sum, ok := dst.balance.Add(value)
	if !ok {
		return fmt.Errorf("%w: balance overflow", ErrInsufficientBalance)
	}
	src.balance = left
	h.accounts[from] = src
	dst.balance = sum
	h.accounts[to] = dst
	return nil
}

func (h *Host) charge(extra uint64, bytes int) {
	s := h.cfg.Schedule
	h.current().gas.Consume(s.HostCall + extra + s.PerByte*uint64(bytes))
}

// writeOut copies data into out and traps if it does not fit.
func writeOut(out, data []byte) int {
	if len(data) > len(out) {
		panic(fmt.Errorf("%w: need %d bytes, have %d", ErrOutputTooSmall, len(data), len(out)))
	}
	return copy(out, data)
}

func accountFrom(b []byte) core.AccountID {
	var a core.AccountID
	if len(b) != len(a) {
		panic(fmt.Errorf("%w: account id of %d bytes", ErrInvalidInput, len(b)))
	}
	copy(a[:], b)
	return a
}

func hashFrom(b []byte) core.Hash {
	var hash core.Hash
	if len(b) != len(hash) {
		panic(fmt.Errorf("%w: hash of %d bytes", ErrInvalidInput, len(b)))
	}
	copy(hash[:], b)
	return hash
}

func balanceFrom(b []byte) core.Balance {
	if len(b) != 16 {
		panic(fmt.Errorf("%w: balance of %d bytes", ErrInvalidInput, len(b)))
	}
	return core.Balance{}.FromLittleEndian(b)
}
