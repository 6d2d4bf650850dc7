package hostsim

import (
	"fmt"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/types"
)

// readStorage resolves key through the frame overlays, newest first, and
// falls back to the store.
func (h *Host) readStorage(contract core.AccountID, key []byte) ([]byte, bool) {
	for i := len(h.frames) - 1; i >= 0; i-- {
		if c, ok := h.frames[i].writes[contract][string(key)]; ok {
			if c.deleted {
				return nil, false
			}
			return c.value, true
		}
	}
	v, ok, err := h.store.Get(contract, key)
	if err != nil {
		panic(fmt.Errorf("read storage: %w", err))
	}
	return v, ok
}

func (h *Host) writeStorage(contract core.AccountID, key, value []byte, deleted bool) {
	fr := h.current()
	cells, ok := fr.writes[contract]
	if !ok {
		cells = make(map[string]cell)
		fr.writes[contract] = cells
	}
	c := cell{deleted: deleted}
	if !deleted {
		c.value = append([]byte{}, value...)
	}
	cells[string(key)] = c
}

func sizeOf(v []byte, ok bool) uint32 {
	if !ok {
		return types.SentinelSize
	}
	return uint32(len(v))
}

func (h *Host) SetStorage(key, value []byte) uint32 {
	h.charge(h.cfg.Schedule.StorageWrite, len(key)+len(value))
	addr := h.current().address
	prev, ok := h.readStorage(addr, key)
	h.writeStorage(addr, key, value, false)
	return sizeOf(prev, ok)
}

func (h *Host) GetStorage(key, out []byte) (int, types.ReturnCode) {
	h.charge(0, len(key))
	v, ok := h.readStorage(h.current().address, key)
	if !ok {
		return 0, types.KeyNotFound
	}
	h.charge(0, len(v))
	return writeOut(out, v), types.Success
}

func (h *Host) TakeStorage(key, out []byte) (int, types.ReturnCode) {
	h.charge(h.cfg.Schedule.StorageWrite, len(key))
	addr := h.current().address
	v, ok := h.readStorage(addr, key)
	if !ok {
		return 0, types.KeyNotFound
	}
	n := writeOut(out, v)
	h.writeStorage(addr, key, nil, true)
	return n, types.Success
}

func (h *Host) ContainsStorage(key []byte) uint32 {
	h.charge(0, len(key))
	return sizeOf(h.readStorage(h.current().address, key))
}

func (h *Host) ClearStorage(key []byte) uint32 {
	h.charge(h.cfg.Schedule.StorageWrite, len(key))
	addr := h.current().address
	prev, ok := h.readStorage(addr, key)
	if ok {
		h.writeStorage(addr, key, nil, true)
	}
	return sizeOf(prev, ok)
}
