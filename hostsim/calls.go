package hostsim

import (
	"fmt"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/types"
	"go.uber.org/zap"
)

// childGas returns the meter of a nested frame. A limit of zero forwards
// everything that is left.
func (h *Host) childGas(limit uint64) *GasMeter {
	left := h.current().gas.Left()
	if limit == 0 || limit > left {
		limit = left
	}
	return NewGasMeter(limit)
}

func (h *Host) onStack(addr core.AccountID) bool {
	for _, fr := range h.frames {
		if fr.address == addr {
			return true
		}
	}
	return false
}

// resultCode maps the outcome of a nested frame to the status the caller sees.
func resultCode(res ExecResult) types.ReturnCode {
	switch {
	case res.Err != nil:
		return types.CalleeTrapped
	case res.Flags.Reverted():
		return types.CalleeReverted
	}
	return types.Success
}

// callInput resolves the input of a nested call.
func (h *Host) callInput(flags types.CallFlags, input []byte) []byte {
	fr := h.current()
	switch {
	case flags.Contains(types.ForwardInput):
		in := fr.input
		fr.input = nil
		return in
	case flags.Contains(types.CloneInput):
		return append([]byte(nil), fr.input...)
	}
	return append([]byte(nil), input...)
}

func (h *Host) Call(flags types.CallFlags, callee []byte, gas uint64, value, input, out []byte) (int, types.ReturnCode) {
	h.charge(h.cfg.Schedule.Call, len(input))
	dest := accountFrom(callee)
	amount := balanceFrom(value)
	caller := h.current().address

	if flags.Contains(types.TailCall) {
		logger.Debug("tail call rejected", zap.Stringer("contract", caller))
		return 0, types.CalleeTrapped
	}
	if len(h.frames) > h.cfg.MaxCallDepth {
		return 0, types.CalleeTrapped
	}
	if h.onStack(dest) && !flags.Contains(types.AllowReentry) {
		logger.Debug("reentrant call rejected", zap.Stringer("contract", dest))
		return 0, types.CalleeTrapped
	}
	acct := h.accounts[dest]
	if !acct.contract {
		return 0, types.NotCallable
	}
	code, ok := h.codes[acct.codeHash]
	if !ok {
		return 0, types.CodeNotFound
	}
	if h.accounts[caller].balance.Cmp(amount) < 0 {
		return 0, types.TransferFailed
	}

	in := h.callInput(flags, input)
	res := h.call(caller, dest, acct.codeHash, code, amount, in, h.childGas(gas))
	h.current().gas.Consume(res.GasUsed)

	rc := resultCode(res)
	if rc == types.CalleeTrapped {
		return 0, rc
	}
	return writeOut(out, res.Data), rc
}

func (h *Host) DelegateCall(flags types.CallFlags, codeHash, input, out []byte) (int, types.ReturnCode) {
	h.charge(h.cfg.Schedule.Call, len(input))
	hash := hashFrom(codeHash)
	if flags.Contains(types.TailCall) {
		return 0, types.CalleeTrapped
	}
	if len(h.frames) > h.cfg.MaxCallDepth {
		return 0, types.CalleeTrapped
	}
	code, ok := h.codes[hash]
	if !ok {
		return 0, types.CodeNotFound
	}

	cur := h.current()
	fr := &frame{
		caller:   cur.caller,
		address:  cur.address,
		codeHash: cur.codeHash,
		value:    cur.value,
		input:    h.callInput(flags, input),
		gas:      h.childGas(0),
	}
	res := h.execute(fr, func() error { return code.Call(h) })
	h.current().gas.Consume(res.GasUsed)

	rc := resultCode(res)
	if rc == types.CalleeTrapped {
		return 0, rc
	}
	return writeOut(out, res.Data), rc
}

func (h *Host) Instantiate(codeHash []byte, gas uint64, endowment, input, outAddress, outReturn, salt []byte) (int, int, types.ReturnCode) {
	h.charge(h.cfg.Schedule.Instantiate, len(input)+len(salt))
	hash := hashFrom(codeHash)
	amount := balanceFrom(endowment)
	deployer := h.current().address

	if len(h.frames) > h.cfg.MaxCallDepth {
		return 0, 0, types.CalleeTrapped
	}
	code, ok := h.codes[hash]
	if !ok {
		return 0, 0, types.CodeNotFound
	}
	if h.accounts[deployer].balance.Cmp(amount) < 0 {
		return 0, 0, types.TransferFailed
	}
	addr := DeriveAddress(deployer, hash, input, salt)
	if h.accounts[addr].contract {
		logger.Debug("instantiate collides with existing contract", zap.Stringer("address", addr))
		return 0, 0, types.CalleeTrapped
	}

	res := h.instantiate(deployer, addr, hash, code, amount, append([]byte(nil), input...), h.childGas(gas))
	h.current().gas.Consume(res.GasUsed)

	rc := resultCode(res)
	switch rc {
	case types.CalleeTrapped:
		return 0, 0, rc
	case types.CalleeReverted:
		return 0, writeOut(outReturn, res.Data), rc
	}
	return writeOut(outAddress, addr[:]), writeOut(outReturn, res.Data), rc
}

func (h *Host) Terminate(beneficiary []byte) {
	h.charge(0, 0)
	to := accountFrom(beneficiary)
	fr := h.current()
	for _, other := range h.frames[:len(h.frames)-1] {
		if other.address == fr.address {
			panic(fmt.Errorf("%w: %s", ErrTerminateReentered, fr.address))
		}
	}
	balance := h.accounts[fr.address].balance
	if err := h.transfer(fr.address, to, balance, false); err != nil {
		panic(err)
	}
	delete(h.accounts, fr.address)
	fr.flags = 0
	fr.output = nil
	logger.Debug("contract terminated", zap.Stringer("contract", fr.address), zap.Stringer("beneficiary", to))
}

func (h *Host) Transfer(dest, value []byte) types.ReturnCode {
	h.charge(0, 0)
	to := accountFrom(dest)
	amount := balanceFrom(value)
	if err := h.transfer(h.current().address, to, amount, true); err != nil {
		logger.Debug("transfer failed", zap.Error(err))
		return types.TransferFailed
	}
	return types.Success
}

func (h *Host) CallRuntime(call []byte) types.ReturnCode {
	h.charge(0, len(call))
	if h.runtime == nil {
		return types.CallRuntimeFailed
	}
	if err := h.runtime(call); err != nil {
		logger.Debug("runtime call failed", zap.Error(err))
		return types.CallRuntimeFailed
	}
	return types.Success
}

func (h *Host) CallChainExtension(id uint32, input, out []byte) (int, uint32) {
	h.charge(0, len(input))
	ext, ok := h.extensions[id]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrNoChainExtension, id))
	}
	output, status := ext(append([]byte(nil), input...))
	return writeOut(out, output), status
}

func (h *Host) SetCodeHash(codeHash []byte) types.ReturnCode {
	h.charge(0, 0)
	hash := hashFrom(codeHash)
	if _, ok := h.codes[hash]; !ok {
		return types.CodeNotFound
	}
	addr := h.current().address
	a := h.accounts[addr]
	a.codeHash = hash
	h.accounts[addr] = a
	return types.Success
}
