// Package dispatch routes a call to the constructor or message its input
// selects. Input is a 4 byte selector followed by the encoded arguments;
// output is Result<R, LangError> for messages and
// Result<Result<(), E>, LangError> for constructors.
package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/env"
	"github.com/govm-net/guestenv/hostfn"
	"github.com/govm-net/guestenv/types"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrNotPayable traps a call that transferred value to a message not
	// marked payable.
	ErrNotPayable = errors.New("paid an unpayable message")
	// ErrDuplicateSelector is the panic value of registering a selector twice.
	ErrDuplicateSelector = errors.New("duplicate selector")
)

// Handler runs one constructor or message. args holds the encoded
// arguments. The returned value is encoded as the Ok payload, nil meaning
// unit.
type Handler func(e *env.Default, args io.Reader) (any, error)

// Revert ends a call with the revert flag. Messages return Value as their
// Ok payload; constructors return it as their error.
type Revert struct {
	Value any
}

func (r *Revert) Error() string {
	return fmt.Sprintf("reverted: %v", r.Value)
}

// Entry describes a registered constructor or message.
type Entry struct {
	Name     string
	Selector core.Selector
	Payable  bool
	handler  Handler
}

// Option configures an Entry.
type Option func(*Entry)

// Payable lets the entry accept transferred value.
func Payable() Option {
	return func(e *Entry) {
		e.Payable = true
	}
}

// Contract is a set of constructors and messages. It implements the
// Deploy/Call pair hosts run contract code through.
type Contract struct {
	cfg          env.Config
	constructors map[core.Selector]*Entry
	messages     map[core.Selector]*Entry
}

// New returns an empty contract whose handlers get environments created
// with cfg.
func New(cfg env.Config) *Contract {
	return &Contract{
		cfg:          cfg,
		constructors: make(map[core.Selector]*Entry),
		messages:     make(map[core.Selector]*Entry),
	}
}

func register(table map[core.Selector]*Entry, name string, sel core.Selector, h Handler, opts []Option) {
	if _, ok := table[sel]; ok {
		panic(fmt.Errorf("%w: %s (%s)", ErrDuplicateSelector, sel, name))
	}
	e := &Entry{Name: name, Selector: sel, handler: h}
	for _, opt := range opts {
		opt(e)
	}
	table[sel] = e
}

// Constructor registers a constructor.
func (c *Contract) Constructor(name string, sel core.Selector, h Handler, opts ...Option) *Contract {
	register(c.constructors, name, sel, h, opts)
	return c
}

// Message registers a message.
func (c *Contract) Message(name string, sel core.Selector, h Handler, opts ...Option) *Contract {
	register(c.messages, name, sel, h, opts)
	return c
}

func sorted(table map[core.Selector]*Entry) []Entry {
	out := make([]Entry, 0, len(table))
	for _, e := range table {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Selector[:], out[j].Selector[:]) < 0
	})
	return out
}

// Constructors lists the constructors ordered by selector.
func (c *Contract) Constructors() []Entry {
	return sorted(c.constructors)
}

// Messages lists the messages ordered by selector.
func (c *Contract) Messages() []Entry {
	return sorted(c.messages)
}

func (c *Contract) Deploy(h hostfn.Host) error {
	return c.dispatch(h, c.constructors, true)
}

func (c *Contract) Call(h hostfn.Host) error {
	return c.dispatch(h, c.messages, false)
}

func (c *Contract) dispatch(h hostfn.Host, table map[core.Selector]*Entry, constructor bool) error {
	e := env.NewDefault(h, c.cfg)
	input := append([]byte(nil), e.Input()...)
	if len(input) < len(core.Selector{}) {
		e.DebugMessage("input too short for a selector")
		return couldNotReadInput(e)
	}
	var sel core.Selector
	copy(sel[:], input)
	entry, ok := table[sel]
	if !ok {
		e.Debugf("unknown selector %s", sel)
		return couldNotReadInput(e)
	}
	if !entry.Payable && !e.TransferredValue().IsZero() {
		return fmt.Errorf("%w: %s", ErrNotPayable, entry.Name)
	}

	out, err := entry.handler(e, bytes.NewReader(input[len(sel):]))
	var (
		rev   *Revert
		flags types.ReturnFlags
	)
	switch {
	case err == nil:
	case errors.As(err, &rev):
		flags = types.Revert
		out = rev.Value
	case errors.Is(err, core.ErrTerminated):
		return err
	case errors.Is(err, core.ErrDecode):
		e.Debugf("%s: %v", entry.Name, err)
		return couldNotReadInput(e)
	default:
		return fmt.Errorf("%s: %w", entry.Name, err)
	}

	return e.ReturnEncoded(flags, func(w io.Writer) error {
		if err := codec.EncodeResult(w, false, nil); err != nil {
			return err
		}
		switch {
		case !constructor:
			return encodeOutput(w, out)
		case rev != nil:
			if r, ok := out.(Result); ok {
				out = r.Value
			}
			return codec.EncodeResult(w, true, out)
		}
		return codec.EncodeResult(w, false, nil)
	})
}

func encodeOutput(w io.Writer, out any) error {
	switch v := out.(type) {
	case nil:
		return nil
	case Result:
		return codec.EncodeResult(w, v.Err, v.Value)
	}
	return codec.EncodeTo(w, out)
}

// Result is the output of a message returning a Result. A nil Value is
// the unit payload.
type Result struct {
	Err   bool
	Value any
}

// Ok returns the successful Result v.
func Ok(v any) Result {
	return Result{Value: v}
}

// Fail reverts the message and returns the error Result v.
func Fail(v any) *Revert {
	return &Revert{Value: Result{Err: true, Value: v}}
}

// SelectorOf derives the selector of a constructor or message from its
// name: the first four bytes of its Blake2x256 hash.
func SelectorOf(name string) core.Selector {
	sum := blake2b.Sum256([]byte(name))
	return core.Selector(sum[:4])
}

func couldNotReadInput(e *env.Default) error {
	return e.ReturnEncoded(types.Revert, func(w io.Writer) error {
		return codec.EncodeResult(w, true, uint8(core.CouldNotReadInput))
	})
}

// Func adapts a typed function to a Handler. The arguments are decoded
// into A; an A of struct{} takes no arguments and an R of struct{} returns
// unit.
func Func[A, R any](fn func(e *env.Default, args A) (R, error)) Handler {
	return func(e *env.Default, r io.Reader) (any, error) {
		var args A
		if _, unit := any(args).(struct{}); !unit {
			if err := codec.DecodeFrom(r, &args); err != nil {
				return nil, err
			}
		}
		res, err := fn(e, args)
		if err != nil {
			return nil, err
		}
		if _, unit := any(res).(struct{}); unit {
			return nil, nil
		}
		return res, nil
	}
}
