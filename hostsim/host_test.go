package hostsim

import (
	"errors"
	"io"
	"testing"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/env"
	"github.com/govm-net/guestenv/hostfn"
	"github.com/govm-net/guestenv/store/memory"
	"github.com/govm-net/guestenv/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

var (
	alice   = core.AccountIDFromString("0xa1")
	bob     = core.AccountIDFromString("0xb0")
	anySel  = core.Selector{1, 2, 3, 4}
	balance = core.NewBalance
)

func newHost(t *testing.T, cfg Config) (*Host, *memory.Store) {
	t.Helper()
	st := memory.New()
	h := New(cfg, st)
	h.SetBalance(alice, balance(1_000_000))
	return h, st
}

func envOf(h hostfn.Host) *env.Default {
	return env.NewDefault(h, env.Config{Debug: true})
}

func encodedKey(t *testing.T, key any) []byte {
	k, err := codec.Encode(key)
	require.NoError(t, err)
	return k
}

func returnOk(e *env.Default, v any) error {
	return e.ReturnEncoded(0, func(w io.Writer) error {
		return codec.EncodeResult(w, false, v)
	})
}

func TestEnterExitStorage(t *testing.T) {
	h, st := newHost(t, DefaultConfig())
	contract := core.AccountIDFromString("0xc1")
	key := []byte{1, 2, 3}
	e := envOf(h)

	h.Enter(alice, contract, core.Balance{}, nil)
	_, existed := e.SetContractStorage(key, uint32(42))
	assert.False(t, existed)

	var v uint32
	found, err := e.GetContractStorage(key, &v)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint32(42), v)
	assert.Equal(t, alice, e.Caller())
	assert.Equal(t, contract, e.AccountID())
	assert.True(t, e.CallerIsOrigin())

	_, ok, _ := st.Get(contract, encodedKey(t, key))
	assert.False(t, ok, "nothing reaches the store before the frame commits")
	require.NoError(t, h.Exit(true))

	raw, ok, err := st.Get(contract, encodedKey(t, key))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{42, 0, 0, 0}, raw)

	h.Enter(alice, contract, core.Balance{}, nil)
	size, existed := e.ClearContractStorage(key)
	assert.True(t, existed)
	assert.Equal(t, uint32(4), size)
	found, err = e.GetContractStorage(key, &v)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, h.Exit(false))

	_, ok, _ = st.Get(contract, encodedKey(t, key))
	assert.True(t, ok, "dropped frame leaves the store alone")
}

func TestProperties(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlockNumber = 77
	cfg.Timestamp = 123456
	cfg.ExistentialDeposit = 3
	cfg.FeePerGas = 2
	h, _ := newHost(t, cfg)
	contract := core.AccountIDFromString("0xc1")
	h.SetBalance(contract, balance(500))
	e := envOf(h)

	h.Enter(alice, contract, balance(5), nil)
	defer h.Exit(false)

	assert.Equal(t, core.BlockNumber(77), e.BlockNumber())
	assert.Equal(t, core.Timestamp(123456), e.BlockTimestamp())
	assert.Equal(t, balance(3), e.MinimumBalance())
	assert.Equal(t, balance(20), e.WeightToFee(10))
	assert.Equal(t, balance(500), e.Balance())
	assert.Equal(t, balance(5), e.TransferredValue())

	first := e.GasLeft()
	second := e.GasLeft()
	assert.Less(t, uint64(second), uint64(first))
}

// callee writes its mode under key mode and then succeeds, reverts or
// traps depending on it.
func callee(t *testing.T) Contract {
	return ContractFuncs{
		OnCall: func(host hostfn.Host) error {
			e := envOf(host)
			var mode uint8
			err := e.DecodeInputWith(func(r io.Reader) error {
				var sel core.Selector
				if _, err := io.ReadFull(r, sel[:]); err != nil {
					return err
				}
				return codec.DecodeFrom(r, &mode)
			})
			require.NoError(t, err)
			e.SetContractStorage(mode, "written")
			switch mode {
			case 0:
				return returnOk(e, uint32(7))
			case 1:
				return e.ReturnEncoded(types.Revert, func(w io.Writer) error {
					return codec.EncodeResult(w, false, uint32(8))
				})
			}
			panic("boom")
		},
	}
}

func TestNestedCallRollback(t *testing.T) {
	h, st := newHost(t, DefaultConfig())
	code := h.UploadCode("callee", callee(t))
	target, res, err := h.DeployContract(alice, code, balance(10), nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Reverted())

	caller := core.AccountIDFromString("0xc2")
	h.SetBalance(caller, balance(100))
	e := envOf(h)
	h.Enter(alice, caller, core.Balance{}, nil)

	call := func(mode uint8) (env.CallResult, uint32, error) {
		var out uint32
		res, err := e.InvokeContract(env.CallParams[core.AccountID, core.Balance]{
			Callee:           target,
			TransferredValue: balance(1),
			Input:            env.NewExecutionInput(anySel, mode),
		}, &out)
		return res, out, err
	}

	res0, out, err := call(0)
	require.NoError(t, err)
	assert.False(t, res0.Reverted)
	assert.Equal(t, uint32(7), out)
	_, ok := h.Storage(target, encodedKey(t, uint8(0)))
	assert.True(t, ok)

	res1, out, err := call(1)
	require.NoError(t, err)
	assert.True(t, res1.Reverted)
	assert.Equal(t, uint32(8), out)
	_, ok = h.Storage(target, encodedKey(t, uint8(1)))
	assert.False(t, ok)

	_, _, err = call(2)
	assert.ErrorIs(t, err, core.ErrCalleeTrapped)
	_, ok = h.Storage(target, encodedKey(t, uint8(2)))
	assert.False(t, ok)

	require.NoError(t, h.Exit(true))
	assert.Equal(t, 1, st.Len(target))
	assert.Equal(t, balance(11), h.BalanceOf(target), "only the committed call keeps its value")
	assert.Equal(t, balance(99), h.BalanceOf(caller))
}

func TestReentrancy(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	var self core.AccountID
	depth := 0
	code := h.UploadCode("reentrant", ContractFuncs{
		OnCall: func(host hostfn.Host) error {
			depth++
			if depth > 1 {
				return returnOk(envOf(host), nil)
			}
			e := envOf(host)
			_, err := e.InvokeContract(env.CallParams[core.AccountID, core.Balance]{Callee: self}, nil)
			require.ErrorIs(t, err, core.ErrCalleeTrapped)
			_, err = e.InvokeContract(env.CallParams[core.AccountID, core.Balance]{Callee: self, Flags: types.AllowReentry}, nil)
			require.NoError(t, err)
			return returnOk(e, nil)
		},
	})
	addr, _, err := h.DeployContract(alice, code, core.Balance{}, nil, nil)
	require.NoError(t, err)
	self = addr

	res, err := h.CallContract(alice, addr, core.Balance{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, res.Data)
	assert.Equal(t, 2, depth)
}

func TestInstantiateFromContract(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	var seen []byte
	code := h.UploadCode("child", ContractFuncs{
		OnDeploy: func(host hostfn.Host) error {
			seen = append([]byte(nil), envOf(host).Input()...)
			return nil
		},
	})
	parent := core.AccountIDFromString("0xc3")
	h.SetBalance(parent, balance(1000))
	e := envOf(h)
	h.Enter(alice, parent, core.Balance{}, nil)

	params := env.CreateParams[core.Hash, core.Balance]{CodeHash: code, Endowment: balance(100)}
	res, err := e.InstantiateContract(params, nil)
	require.NoError(t, err)
	want := DeriveAddress(parent, code, []byte{0, 0, 0, 0}, nil)
	assert.Equal(t, want, res.Address)
	assert.Equal(t, []byte{0, 0, 0, 0}, seen)
	assert.Equal(t, balance(100), h.BalanceOf(want))
	assert.Equal(t, balance(900), h.BalanceOf(parent))
	assert.True(t, e.IsContract(want))

	got, err := e.CodeHash(want)
	require.NoError(t, err)
	assert.Equal(t, code, got)

	assert.NotPanics(t, func() {
		_, err = e.InstantiateContract(env.CreateParams[core.Hash, core.Balance]{
			CodeHash:  core.HashFromString("0xdead"),
			Endowment: balance(100),
		}, nil)
	})
	assert.ErrorIs(t, err, core.ErrCodeNotFound)

	_, err = e.InstantiateContract(params, nil)
	assert.ErrorIs(t, err, core.ErrCalleeTrapped, "same deployer, code, input and salt")

	params.Salt = []byte("again")
	res, err = e.InstantiateContract(params, nil)
	require.NoError(t, err)
	assert.NotEqual(t, want, res.Address)

	require.NoError(t, h.Exit(true))
}

func TestConstructorRevert(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	code := h.UploadCode("failing", ContractFuncs{
		OnDeploy: func(host hostfn.Host) error {
			e := envOf(host)
			e.SetContractStorage(uint8(1), uint8(1))
			return e.ReturnEncoded(types.Revert, func(w io.Writer) error {
				if err := codec.EncodeResult(w, false, nil); err != nil {
					return err
				}
				return codec.EncodeResult(w, true, "denied")
			})
		},
	})

	addr, res, err := h.DeployContract(alice, code, balance(10), nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Reverted())
	assert.Equal(t, core.ZeroAccountID, addr)
	assert.Equal(t, balance(1_000_000), h.BalanceOf(alice))

	parent := core.AccountIDFromString("0xc4")
	h.SetBalance(parent, balance(1000))
	e := envOf(h)
	h.Enter(alice, parent, core.Balance{}, nil)
	defer h.Exit(false)

	var reason string
	ires, err := e.InstantiateContract(env.CreateParams[core.Hash, core.Balance]{CodeHash: code, Endowment: balance(10)}, &reason)
	require.NoError(t, err)
	assert.True(t, ires.Reverted)
	assert.Equal(t, "denied", reason)
	assert.Equal(t, balance(1000), h.BalanceOf(parent))
}

func TestDelegateCall(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	lib := h.UploadCode("lib", ContractFuncs{
		OnCall: func(host hostfn.Host) error {
			e := envOf(host)
			e.SetContractStorage("lib", uint8(9))
			return returnOk(e, true)
		},
	})
	contract := core.AccountIDFromString("0xc5")
	e := envOf(h)
	h.Enter(alice, contract, core.Balance{}, nil)
	defer h.Exit(false)

	var ok bool
	res, err := e.InvokeContractDelegate(env.DelegateCallParams[core.Hash]{CodeHash: lib, Input: env.NewExecutionInput(anySel)}, &ok)
	require.NoError(t, err)
	assert.False(t, res.Reverted)
	assert.True(t, ok)

	var v uint8
	found, err := e.GetContractStorage("lib", &v)
	require.NoError(t, err)
	assert.True(t, found, "delegate call writes to the caller's storage")
	assert.Equal(t, uint8(9), v)
}

type stored struct {
	Key   uint32
	Value [48]byte
}

func (stored) TopicsLen() int { return 2 }

func (ev stored) Topics(b *env.TopicsBuilder) {
	b.PushTopic(ev.Key)
	b.PushTopic(ev.Value)
}

func TestEventsAndDebug(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	contract := core.AccountIDFromString("0xc6")
	e := envOf(h)

	h.Enter(alice, contract, core.Balance{}, nil)
	ev := stored{Key: 5}
	ev.Value[0] = 1
	e.EmitEvent(ev)
	e.DebugMessage("hello")
	require.NoError(t, h.Exit(true))

	require.Len(t, h.Events(), 1)
	got := h.Events()[0]
	assert.Equal(t, contract, got.Contract)
	require.Len(t, got.Topics, 2)
	assert.Equal(t, core.Hash{5}, got.Topics[0])
	assert.Equal(t, core.Hash(blake2b.Sum256(ev.Value[:])), got.Topics[1])
	assert.Equal(t, []string{"hello"}, h.DebugMessages())

	h.Enter(alice, contract, core.Balance{}, nil)
	e.EmitEvent(ev)
	require.NoError(t, h.Exit(false))
	assert.Len(t, h.Events(), 1, "dropped frame drops its events")
}

func TestLoggingDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoggingEnabled = false
	h, _ := newHost(t, cfg)
	e := envOf(h)

	h.Enter(alice, bob, core.Balance{}, nil)
	defer h.Exit(false)
	e.DebugMessage("a")
	e.DebugMessage("b")
	assert.Empty(t, h.DebugMessages())
}

func TestOutOfGas(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GasLimit = 50_000
	h, st := newHost(t, cfg)
	code := h.UploadCode("hungry", ContractFuncs{
		OnCall: func(host hostfn.Host) error {
			e := envOf(host)
			for i := uint32(0); ; i++ {
				e.SetContractStorage(i, i)
			}
		},
	})
	addr, _, err := h.DeployContract(alice, code, core.Balance{}, nil, nil)
	require.NoError(t, err)

	res, err := h.CallContract(alice, addr, core.Balance{}, nil)
	assert.ErrorIs(t, err, ErrOutOfGas)
	assert.ErrorIs(t, err, ErrTrapped)
	assert.True(t, res.Reverted())
	assert.Equal(t, 0, st.Len(addr))
}

func TestTransferKeepAlive(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	contract := core.AccountIDFromString("0xc7")
	h.SetBalance(contract, balance(10))
	e := envOf(h)
	h.Enter(alice, contract, core.Balance{}, nil)
	defer h.Exit(false)

	require.NoError(t, e.Transfer(bob, balance(9)))
	assert.Equal(t, balance(9), h.BalanceOf(bob))
	assert.ErrorIs(t, e.Transfer(bob, balance(1)), core.ErrTransferFailed)
	assert.ErrorIs(t, e.Transfer(bob, balance(100)), core.ErrTransferFailed)
}

func TestTerminate(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	code := h.UploadCode("mortal", ContractFuncs{
		OnCall: func(host hostfn.Host) error {
			return envOf(host).TerminateContract(bob)
		},
	})
	addr, _, err := h.DeployContract(alice, code, balance(50), nil, nil)
	require.NoError(t, err)

	res, err := h.CallContract(alice, addr, core.Balance{}, nil)
	require.NoError(t, err)
	assert.False(t, res.Reverted())
	assert.Equal(t, balance(50), h.BalanceOf(bob))
	_, ok := h.ContractCodeHash(addr)
	assert.False(t, ok)

	_, err = h.CallContract(alice, addr, core.Balance{}, nil)
	assert.ErrorIs(t, err, ErrNotCallable)
}

func TestTopLevelErrors(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	_, _, err := h.DeployContract(alice, core.HashFromString("0x01"), core.Balance{}, nil, nil)
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = h.CallContract(alice, bob, core.Balance{}, nil)
	assert.ErrorIs(t, err, ErrNotCallable)

	code := h.UploadCode("noop", ContractFuncs{})
	_, _, err = h.DeployContract(bob, code, balance(1), nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, _, err = h.DeployContract(alice, code, core.Balance{}, nil, nil)
	require.NoError(t, err)
	_, _, err = h.DeployContract(alice, code, core.Balance{}, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateContract)

	assert.PanicsWithValue(t, ErrNoFrame, func() { h.GasLeft(make([]byte, 8)) })
}

func TestChainExtensionAndRuntime(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	h.RegisterChainExtension(7, func(input []byte) ([]byte, uint32) {
		return append([]byte{0xee}, input...), 0
	})
	var dispatched []byte
	h.SetRuntimeCall(func(call []byte) error {
		dispatched = call
		if len(call) != 2 || call[0] != 3 {
			return errors.New("unknown runtime call")
		}
		return nil
	})
	e := envOf(h)
	h.Enter(alice, bob, core.Balance{}, nil)
	defer h.Exit(false)

	var out []byte
	err := e.CallChainExtension(7, uint8(1), func(uint32) error { return nil }, func(b []byte) error {
		out = append(out, b...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xee, 1}, out)

	assert.Panics(t, func() {
		_ = e.CallChainExtension(8, uint8(1), func(uint32) error { return nil }, func([]byte) error { return nil })
	})

	require.NoError(t, e.CallRuntime(uint16(3)))
	assert.Equal(t, []byte{3, 0}, dispatched)
	assert.ErrorIs(t, e.CallRuntime(uint16(4)), core.ErrCallRuntimeFailed)
}

func TestSetCodeHash(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	v1 := h.UploadCode("v1", ContractFuncs{})
	v2 := h.UploadCode("v2", ContractFuncs{})
	addr, _, err := h.DeployContract(alice, v1, core.Balance{}, nil, nil)
	require.NoError(t, err)

	e := envOf(h)
	h.Enter(alice, addr, core.Balance{}, nil)
	own, err := e.OwnCodeHash()
	require.NoError(t, err)
	assert.Equal(t, v1, own)
	require.NoError(t, e.SetCodeHash(v2))
	assert.ErrorIs(t, e.SetCodeHash(core.HashFromString("0x02")), core.ErrCodeNotFound)
	require.NoError(t, h.Exit(true))

	got, ok := h.ContractCodeHash(addr)
	require.True(t, ok)
	assert.Equal(t, v2, got)
}

func TestEcdsa(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	e := envOf(h)
	h.Enter(alice, bob, core.Balance{}, nil)
	defer h.Exit(false)

	priv := secp256k1.PrivKeyFromBytes([]byte{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1,
	})
	msg := blake2b.Sum256([]byte("message"))
	compact := ecdsa.SignCompact(priv, msg[:], true)

	var sig [65]byte
	copy(sig[:64], compact[1:])
	sig[64] = compact[0] - 27 - 4

	pub, err := e.EcdsaRecover(&sig, &msg)
	require.NoError(t, err)
	assert.Equal(t, priv.PubKey().SerializeCompressed(), pub[:])

	addr, err := e.EcdsaToEthAddress(&pub)
	require.NoError(t, err)
	assert.Equal(t, "7e5f4552091a69125d5dfcb7b8c2659029395bdf", hexString(addr[:]))

	sig[64] = 99
	_, err = e.EcdsaRecover(&sig, &msg)
	assert.ErrorIs(t, err, core.ErrEcdsaRecoveryFailed)
}

func TestSr25519(t *testing.T) {
	h, _ := newHost(t, DefaultConfig())
	e := envOf(h)
	h.Enter(alice, bob, core.Balance{}, nil)
	defer h.Exit(false)

	kp, err := sr25519.GenerateKeypair()
	require.NoError(t, err)
	msg := []byte("hello sr25519")
	raw, err := kp.Sign(msg)
	require.NoError(t, err)

	var sig [64]byte
	var pub [32]byte
	copy(sig[:], raw)
	copy(pub[:], kp.Public().Encode())

	require.NoError(t, e.Sr25519Verify(&sig, msg, &pub))
	assert.ErrorIs(t, e.Sr25519Verify(&sig, []byte("other"), &pub), core.ErrSr25519VerifyFailed)
}

func hexString(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0xf])
	}
	return string(out)
}
