package hostsim

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/types"
	"go.uber.org/zap"
)

func (h *Host) Input(out []byte) int {
	fr := h.current()
	h.charge(0, len(fr.input))
	return writeOut(out, fr.input)
}

func (h *Host) ReturnValue(flags types.ReturnFlags, data []byte) {
	h.charge(0, len(data))
	fr := h.current()
	fr.flags = flags
	fr.output = append([]byte{}, data...)
}

func (h *Host) Caller(out []byte) int {
	h.charge(0, 0)
	caller := h.current().caller
	return writeOut(out, caller[:])
}

func (h *Host) Address(out []byte) int {
	h.charge(0, 0)
	addr := h.current().address
	return writeOut(out, addr[:])
}

func (h *Host) OwnCodeHash(out []byte) int {
	h.charge(0, 0)
	hash := h.current().codeHash
	return writeOut(out, hash[:])
}

func (h *Host) CodeHash(account, out []byte) (int, types.ReturnCode) {
	h.charge(0, 0)
	a, ok := h.accounts[accountFrom(account)]
	if !ok || !a.contract {
		return 0, types.KeyNotFound
	}
	return writeOut(out, a.codeHash[:]), types.Success
}

func writeBalance(out []byte, v core.Balance) int {
	var raw [16]byte
	v.PutLittleEndian(raw[:])
	return writeOut(out, raw[:])
}

func writeU64(out []byte, v uint64) int {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], v)
	return writeOut(out, raw[:])
}

func (h *Host) ValueTransferred(out []byte) int {
	h.charge(0, 0)
	return writeBalance(out, h.current().value)
}

func (h *Host) Balance(out []byte) int {
	h.charge(0, 0)
	return writeBalance(out, h.accounts[h.current().address].balance)
}

func (h *Host) MinimumBalance(out []byte) int {
	h.charge(0, 0)
	return writeBalance(out, core.NewBalance(h.cfg.ExistentialDeposit))
}

func (h *Host) WeightToFee(gas uint64, out []byte) int {
	h.charge(0, 0)
	hi, lo := bits.Mul64(gas, h.cfg.FeePerGas)
	return writeBalance(out, core.Balance{Lo: lo, Hi: hi})
}

func (h *Host) GasLeft(out []byte) int {
	h.charge(0, 0)
	return writeU64(out, h.current().gas.Left())
}

func (h *Host) Now(out []byte) int {
	h.charge(0, 0)
	return writeU64(out, h.cfg.Timestamp)
}

func (h *Host) BlockNumber(out []byte) int {
	h.charge(0, 0)
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], h.cfg.BlockNumber)
	return writeOut(out, raw[:])
}

func (h *Host) IsContract(account []byte) bool {
	h.charge(0, 0)
	return h.accounts[accountFrom(account)].contract
}

// CallerIsOrigin is true when the executing frame was entered by the
// origin itself.
func (h *Host) CallerIsOrigin() bool {
	h.charge(0, 0)
	return len(h.frames) == 1 && h.current().caller == h.origin
}

func (h *Host) DebugMessage(msg []byte) types.ReturnCode {
	h.charge(0, len(msg))
	if !h.cfg.LoggingEnabled {
		return types.LoggingDisabled
	}
	h.debug = append(h.debug, string(msg))
	logger.Info("contract debug message",
		zap.Stringer("contract", h.current().address),
		zap.String("message", string(msg)))
	return types.Success
}

// DepositEvent records an event. topics must be a compact count followed
// by that many 32 byte topics.
func (h *Host) DepositEvent(topics, data []byte) {
	h.charge(h.cfg.Schedule.Event, len(topics)+len(data))
	n, used, err := codec.ReadCompact(topics)
	if err != nil {
		panic(fmt.Errorf("%w: event topics: %w", ErrInvalidInput, err))
	}
	if n > uint64(h.cfg.MaxEventTopics) {
		panic(fmt.Errorf("%w: %d event topics, at most %d", ErrInvalidInput, n, h.cfg.MaxEventTopics))
	}
	rest := topics[used:]
	if uint64(len(rest)) != n*types.HashWidth {
		panic(fmt.Errorf("%w: %d topic bytes for %d topics", ErrInvalidInput, len(rest), n))
	}
	ev := Event{
		Contract: h.current().address,
		Topics:   make([]core.Hash, n),
		Data:     append([]byte{}, data...),
	}
	for i := range ev.Topics {
		copy(ev.Topics[i][:], rest[i*types.HashWidth:])
	}
	h.events = append(h.events, ev)
	logger.Debug("event deposited", zap.Stringer("contract", ev.Contract), zap.Int("topics", len(ev.Topics)))
}
