package env

import (
	"fmt"

	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/hostfn"
)

// Types carries the parameters of an environment that are not types.
type Types struct {
	// MaxEventTopics bounds the number of topics of one event.
	MaxEventTopics int
}

// DefaultTypes returns the parameters of the default environment.
func DefaultTypes() Types {
	return Types{MaxEventTopics: 4}
}

// Typed is the contract facing environment over the account id type A,
// balance type B, hash type H, timestamp type T and block number type N.
// Balances, timestamps and block numbers are read from the host as raw
// little-endian values; account ids and hashes are decoded.
type Typed[A any, B core.FromLittleEndian[B], H any, T core.FromLittleEndian[T], N core.FromLittleEndian[N]] struct {
	*EnvInstance
	types     Types
	hashWidth int
}

// Default is the environment of most chains.
type Default = Typed[core.AccountID, core.Balance, core.Hash, core.Timestamp, core.BlockNumber]

// NewTyped returns a typed environment over host.
func NewTyped[A any, B core.FromLittleEndian[B], H any, T core.FromLittleEndian[T], N core.FromLittleEndian[N]](host hostfn.Host, cfg Config, types Types) *Typed[A, B, H, T, N] {
	var zero H
	enc, err := codec.Encode(zero)
	if err != nil {
		panic(fmt.Errorf("env: hash type: %w", err))
	}
	return &Typed[A, B, H, T, N]{
		EnvInstance: NewInstance(host, cfg),
		types:       types,
		hashWidth:   len(enc),
	}
}

// NewDefault returns the default environment over host.
func NewDefault(host hostfn.Host, cfg Config) *Default {
	return NewTyped[core.AccountID, core.Balance, core.Hash, core.Timestamp, core.BlockNumber](host, cfg, DefaultTypes())
}

// Types returns the parameters of the environment.
func (t *Typed[A, B, H, T, N]) Types() Types {
	return t.types
}

// HashWidth is the encoded width of H and of every event topic.
func (t *Typed[A, B, H, T, N]) HashWidth() int {
	return t.hashWidth
}

// Caller returns the account that called the executing contract.
func (t *Typed[A, B, H, T, N]) Caller() A {
	var a A
	t.mustPropertyDecode("caller", t.host.Caller, &a)
	return a
}

// AccountID returns the account of the executing contract.
func (t *Typed[A, B, H, T, N]) AccountID() A {
	var a A
	t.mustPropertyDecode("address", t.host.Address, &a)
	return a
}

// OwnCodeHash returns the code hash of the executing contract.
func (t *Typed[A, B, H, T, N]) OwnCodeHash() (H, error) {
	var h H
	err := t.propertyDecode(t.host.OwnCodeHash, &h)
	return h, err
}

// Balance returns the balance of the executing contract.
func (t *Typed[A, B, H, T, N]) Balance() B {
	return propertyLE[B](t.host.Balance)
}

// TransferredValue returns the value sent along with the current call.
func (t *Typed[A, B, H, T, N]) TransferredValue() B {
	return propertyLE[B](t.host.ValueTransferred)
}

// MinimumBalance returns the existential deposit.
func (t *Typed[A, B, H, T, N]) MinimumBalance() B {
	return propertyLE[B](t.host.MinimumBalance)
}

// WeightToFee returns the price of gas.
func (t *Typed[A, B, H, T, N]) WeightToFee(gas uint64) B {
	return propertyLE[B](func(out []byte) int {
		return t.host.WeightToFee(gas, out)
	})
}

// BlockTimestamp returns the timestamp of the current block.
func (t *Typed[A, B, H, T, N]) BlockTimestamp() T {
	return propertyLE[T](t.host.Now)
}

// BlockNumber returns the number of the current block.
func (t *Typed[A, B, H, T, N]) BlockNumber() N {
	return propertyLE[N](t.host.BlockNumber)
}

// CodeHash returns the code hash of the contract at account.
func (t *Typed[A, B, H, T, N]) CodeHash(account A) (H, error) {
	var h H
	buf := t.scopedBuffer()
	enc := buf.TakeEncoded(account)
	out := buf.TakeRest()
	n, code := t.host.CodeHash(enc, out)
	if err := core.StatusError(code); err != nil {
		return h, err
	}
	return h, codec.DecodeAll(out[:n], &h)
}

// IsContract reports whether account is a contract.
func (t *Typed[A, B, H, T, N]) IsContract(account A) bool {
	buf := t.scopedBuffer()
	return t.host.IsContract(buf.TakeEncoded(account))
}

// Transfer sends value from the executing contract to dest.
func (t *Typed[A, B, H, T, N]) Transfer(dest A, value B) error {
	buf := t.scopedBuffer()
	d := buf.TakeEncoded(dest)
	v := buf.TakeEncoded(value)
	return core.StatusError(t.host.Transfer(d, v))
}

// TerminateContract removes the executing contract and sends its balance
// to beneficiary. Like ReturnValue it ends the call.
func (t *Typed[A, B, H, T, N]) TerminateContract(beneficiary A) error {
	buf := t.scopedBuffer()
	enc := buf.TakeEncoded(beneficiary)
	t.host.Terminate(enc)
	return &core.Terminated{Beneficiary: enc}
}

// SetCodeHash replaces the code of the executing contract.
func (t *Typed[A, B, H, T, N]) SetCodeHash(codeHash H) error {
	buf := t.scopedBuffer()
	return core.StatusError(t.host.SetCodeHash(buf.TakeEncoded(codeHash)))
}

// EmitEvent deposits ev with the topics it selects.
func (t *Typed[A, B, H, T, N]) EmitEvent(ev Event) {
	b := newTopicsBuilder(t.host, t.scopedBuffer(), t.hashWidth, t.types.MaxEventTopics)
	b.Expect(ev.TopicsLen())
	ev.Topics(b)
	scope, topics := b.Output()
	data := scope.TakeEncoded(ev)
	t.host.DepositEvent(topics, data)
}
