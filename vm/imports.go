package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/hostfn"
	"github.com/govm-net/guestenv/types"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

const (
	accountLen = len(core.AccountID{})
	balanceLen = 16
	hashLen    = types.HashWidth
)

var errNoInvocation = errors.New("host function called outside an invocation")

// invocation is the state of one guest execution, carried in the context
// wazero hands to every host function.
type invocation struct {
	host       hostfn.Host
	terminated *core.Terminated
}

type invocationKey struct{}

func withInvocation(ctx context.Context, inv *invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

func invocationOf(ctx context.Context) *invocation {
	inv, ok := ctx.Value(invocationKey{}).(*invocation)
	if !ok {
		panic(errNoInvocation)
	}
	return inv
}

// terminate records how the guest ended and unwinds it.
func (inv *invocation) terminate(t *core.Terminated) {
	inv.terminated = t
	panic(t)
}

func boolCode(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

type hostFunc struct {
	fn   types.HostFunction
	impl any
}

// property serves the functions that only fill an out region.
func property(read func(h hostfn.Host, out []byte) int) func(ctx context.Context, m api.Module, outPtr, outLenPtr uint32) {
	return func(ctx context.Context, m api.Module, outPtr, outLenPtr uint32) {
		inv := invocationOf(ctx)
		out := memoryOf(m).output(outPtr, outLenPtr)
		out.commit(read(inv.host, out.buf))
	}
}

// storageRead serves get_storage and take_storage.
func storageRead(read func(h hostfn.Host, key, out []byte) (int, types.ReturnCode)) func(ctx context.Context, m api.Module, keyPtr, keyLen, outPtr, outLenPtr uint32) uint32 {
	return func(ctx context.Context, m api.Module, keyPtr, keyLen, outPtr, outLenPtr uint32) uint32 {
		inv := invocationOf(ctx)
		g := memoryOf(m)
		key := g.read(keyPtr, keyLen)
		out := g.output(outPtr, outLenPtr)
		n, code := read(inv.host, key, out.buf)
		if code == types.Success {
			out.commit(n)
		}
		return uint32(code)
	}
}

func hash32(sum func(h hostfn.Host, input []byte, out *[32]byte)) func(ctx context.Context, m api.Module, inPtr, inLen, outPtr uint32) {
	return func(ctx context.Context, m api.Module, inPtr, inLen, outPtr uint32) {
		inv := invocationOf(ctx)
		g := memoryOf(m)
		var out [32]byte
		sum(inv.host, g.read(inPtr, inLen), &out)
		g.write(outPtr, out[:])
	}
}

func callReturned(code types.ReturnCode) bool {
	return code == types.Success || code == types.CalleeReverted
}

// hostFunctions lists every import served to guests.
func hostFunctions() []hostFunc {
	return []hostFunc{
		{types.FnSetStorage, func(ctx context.Context, m api.Module, keyPtr, keyLen, valuePtr, valueLen uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			return inv.host.SetStorage(g.read(keyPtr, keyLen), g.read(valuePtr, valueLen))
		}},
		{types.FnGetStorage, storageRead(hostfn.Host.GetStorage)},
		{types.FnTakeStorage, storageRead(hostfn.Host.TakeStorage)},
		{types.FnContainsStorage, func(ctx context.Context, m api.Module, keyPtr, keyLen uint32) uint32 {
			return invocationOf(ctx).host.ContainsStorage(memoryOf(m).read(keyPtr, keyLen))
		}},
		{types.FnClearStorage, func(ctx context.Context, m api.Module, keyPtr, keyLen uint32) uint32 {
			return invocationOf(ctx).host.ClearStorage(memoryOf(m).read(keyPtr, keyLen))
		}},
		{types.FnInput, property(hostfn.Host.Input)},
		{types.FnReturn, func(ctx context.Context, m api.Module, flags, dataPtr, dataLen uint32) {
			inv := invocationOf(ctx)
			data := memoryOf(m).read(dataPtr, dataLen)
			inv.host.ReturnValue(types.ReturnFlags(flags), data)
			inv.terminate(&core.Terminated{Flags: types.ReturnFlags(flags), Data: data})
		}},
		{types.FnCaller, property(hostfn.Host.Caller)},
		{types.FnValueTransferred, property(hostfn.Host.ValueTransferred)},
		{types.FnGasLeft, property(hostfn.Host.GasLeft)},
		{types.FnNow, property(hostfn.Host.Now)},
		{types.FnAddress, property(hostfn.Host.Address)},
		{types.FnBalance, property(hostfn.Host.Balance)},
		{types.FnBlockNumber, property(hostfn.Host.BlockNumber)},
		{types.FnMinimumBalance, property(hostfn.Host.MinimumBalance)},
		{types.FnOwnCodeHash, property(hostfn.Host.OwnCodeHash)},
		{types.FnWeightToFee, func(ctx context.Context, m api.Module, gas uint64, outPtr, outLenPtr uint32) {
			inv := invocationOf(ctx)
			out := memoryOf(m).output(outPtr, outLenPtr)
			out.commit(inv.host.WeightToFee(gas, out.buf))
		}},
		{types.FnCodeHash, func(ctx context.Context, m api.Module, accountPtr, outPtr, outLenPtr uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			account := g.array(accountPtr, accountLen)
			out := g.output(outPtr, outLenPtr)
			n, code := inv.host.CodeHash(account, out.buf)
			if code == types.Success {
				out.commit(n)
			}
			return uint32(code)
		}},
		{types.FnDebugMessage, func(ctx context.Context, m api.Module, msgPtr, msgLen uint32) uint32 {
			return uint32(invocationOf(ctx).host.DebugMessage(memoryOf(m).read(msgPtr, msgLen)))
		}},
		{types.FnHashBlake2x128, func(ctx context.Context, m api.Module, inPtr, inLen, outPtr uint32) {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			var out [16]byte
			inv.host.HashBlake2x128(g.read(inPtr, inLen), &out)
			g.write(outPtr, out[:])
		}},
		{types.FnHashBlake2x256, hash32(hostfn.Host.HashBlake2x256)},
		{types.FnHashSha2x256, hash32(hostfn.Host.HashSha2x256)},
		{types.FnHashKeccak256, hash32(hostfn.Host.HashKeccak256)},
		{types.FnDepositEvent, func(ctx context.Context, m api.Module, topicsPtr, topicsLen, dataPtr, dataLen uint32) {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			inv.host.DepositEvent(g.read(topicsPtr, topicsLen), g.read(dataPtr, dataLen))
		}},
		{types.FnCall, func(ctx context.Context, m api.Module, flags, calleePtr uint32, gas uint64, valuePtr, inputPtr, inputLen, outPtr, outLenPtr uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			callee := g.array(calleePtr, accountLen)
			value := g.array(valuePtr, balanceLen)
			input := g.read(inputPtr, inputLen)
			out := g.optionalOutput(outPtr, outLenPtr)
			n, code := inv.host.Call(types.CallFlags(flags), callee, gas, value, input, out.buf)
			if callReturned(code) {
				out.commitOptional(n)
			}
			return uint32(code)
		}},
		{types.FnDelegateCall, func(ctx context.Context, m api.Module, flags, codeHashPtr, inputPtr, inputLen, outPtr, outLenPtr uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			codeHash := g.array(codeHashPtr, hashLen)
			input := g.read(inputPtr, inputLen)
			out := g.optionalOutput(outPtr, outLenPtr)
			n, code := inv.host.DelegateCall(types.CallFlags(flags), codeHash, input, out.buf)
			if callReturned(code) {
				out.commitOptional(n)
			}
			return uint32(code)
		}},
		{types.FnInstantiate, func(ctx context.Context, m api.Module, codeHashPtr uint32, gas uint64, valuePtr, inputPtr, inputLen, addressPtr, addressLenPtr, outPtr, outLenPtr, saltPtr, saltLen uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			codeHash := g.array(codeHashPtr, hashLen)
			value := g.array(valuePtr, balanceLen)
			input := g.read(inputPtr, inputLen)
			salt := g.read(saltPtr, saltLen)
			address := g.optionalOutput(addressPtr, addressLenPtr)
			ret := g.optionalOutput(outPtr, outLenPtr)
			an, rn, code := inv.host.Instantiate(codeHash, gas, value, input, address.buf, ret.buf, salt)
			if code == types.Success {
				address.commitOptional(an)
			}
			if callReturned(code) {
				ret.commitOptional(rn)
			}
			return uint32(code)
		}},
		{types.FnTerminate, func(ctx context.Context, m api.Module, beneficiaryPtr uint32) {
			inv := invocationOf(ctx)
			beneficiary := memoryOf(m).array(beneficiaryPtr, accountLen)
			inv.host.Terminate(beneficiary)
			inv.terminate(&core.Terminated{Beneficiary: beneficiary})
		}},
		{types.FnTransfer, func(ctx context.Context, m api.Module, destPtr, destLen, valuePtr, valueLen uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			return uint32(inv.host.Transfer(g.read(destPtr, destLen), g.read(valuePtr, valueLen)))
		}},
		{types.FnIsContract, func(ctx context.Context, m api.Module, accountPtr uint32) uint32 {
			return boolCode(invocationOf(ctx).host.IsContract(memoryOf(m).array(accountPtr, accountLen)))
		}},
		{types.FnCallerIsOrigin, func(ctx context.Context, _ api.Module) uint32 {
			return boolCode(invocationOf(ctx).host.CallerIsOrigin())
		}},
		{types.FnCallRuntime, func(ctx context.Context, m api.Module, callPtr, callLen uint32) uint32 {
			return uint32(invocationOf(ctx).host.CallRuntime(memoryOf(m).read(callPtr, callLen)))
		}},
		{types.FnCallChainExtension, func(ctx context.Context, m api.Module, id, inputPtr, inputLen, outPtr, outLenPtr uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			input := g.read(inputPtr, inputLen)
			out := g.output(outPtr, outLenPtr)
			n, status := inv.host.CallChainExtension(id, input, out.buf)
			out.commit(n)
			return status
		}},
		{types.FnSetCodeHash, func(ctx context.Context, m api.Module, codeHashPtr uint32) uint32 {
			return uint32(invocationOf(ctx).host.SetCodeHash(memoryOf(m).array(codeHashPtr, hashLen)))
		}},
		{types.FnEcdsaRecover, func(ctx context.Context, m api.Module, signaturePtr, messageHashPtr, outPtr uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			var (
				sig [65]byte
				msg [32]byte
				pub [33]byte
			)
			copy(sig[:], g.array(signaturePtr, len(sig)))
			copy(msg[:], g.array(messageHashPtr, len(msg)))
			code := inv.host.EcdsaRecover(&sig, &msg, &pub)
			if code == types.Success {
				g.write(outPtr, pub[:])
			}
			return uint32(code)
		}},
		{types.FnEcdsaToEthAddress, func(ctx context.Context, m api.Module, keyPtr, outPtr uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			var (
				key  [33]byte
				addr [20]byte
			)
			copy(key[:], g.array(keyPtr, len(key)))
			code := inv.host.EcdsaToEthAddress(&key, &addr)
			if code == types.Success {
				g.write(outPtr, addr[:])
			}
			return uint32(code)
		}},
		{types.FnSr25519Verify, func(ctx context.Context, m api.Module, signaturePtr, publicKeyPtr, messageLen, messagePtr uint32) uint32 {
			inv := invocationOf(ctx)
			g := memoryOf(m)
			var (
				sig [64]byte
				pub [32]byte
			)
			copy(sig[:], g.array(signaturePtr, len(sig)))
			copy(pub[:], g.array(publicKeyPtr, len(pub)))
			return uint32(inv.host.Sr25519Verify(&sig, g.read(messagePtr, messageLen), &pub))
		}},
	}
}

// instantiateImports registers the host modules on rt.
func instantiateImports(ctx context.Context, rt wazero.Runtime) error {
	builders := make(map[string]wazero.HostModuleBuilder)
	var order []string
	for _, f := range hostFunctions() {
		b, ok := builders[f.fn.Module]
		if !ok {
			b = rt.NewHostModuleBuilder(f.fn.Module)
			builders[f.fn.Module] = b
			order = append(order, f.fn.Module)
		}
		b.NewFunctionBuilder().WithFunc(f.impl).Export(f.fn.Name)
	}
	for _, name := range order {
		if _, err := builders[name].Instantiate(ctx); err != nil {
			return fmt.Errorf("instantiate host module %s: %w", name, err)
		}
	}
	return nil
}
