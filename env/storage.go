package env

import (
	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/types"
)

func sizeResult(size uint32) (uint32, bool) {
	if size == types.SentinelSize {
		return 0, false
	}
	return size, true
}

// SetContractStorage stores value under key and returns the size of the
// previous value, if there was one.
func (e *EnvInstance) SetContractStorage(key, value any) (prevSize uint32, existed bool) {
	buf := e.scopedBuffer()
	k := buf.TakeEncoded(key)
	v := buf.TakeStorableEncoded(value)
	return sizeResult(e.host.SetStorage(k, v))
}

// GetContractStorage decodes the value stored under key into dst. A missing
// key reports found == false and leaves dst alone.
func (e *EnvInstance) GetContractStorage(key, dst any) (found bool, err error) {
	buf := e.scopedBuffer()
	k := buf.TakeEncoded(key)
	out := buf.TakeRest()
	n, code := e.host.GetStorage(k, out)
	return storageResult("get_storage", code, out[:n], dst)
}

// TakeContractStorage is GetContractStorage that also removes the value.
func (e *EnvInstance) TakeContractStorage(key, dst any) (found bool, err error) {
	buf := e.scopedBuffer()
	k := buf.TakeEncoded(key)
	out := buf.TakeRest()
	n, code := e.host.TakeStorage(k, out)
	return storageResult("take_storage", code, out[:n], dst)
}

// ContainsContractStorage reports the size of the value under key.
func (e *EnvInstance) ContainsContractStorage(key any) (size uint32, found bool) {
	buf := e.scopedBuffer()
	k := buf.TakeEncoded(key)
	return sizeResult(e.host.ContainsStorage(k))
}

// ClearContractStorage removes key and returns the size of the removed
// value, if there was one.
func (e *EnvInstance) ClearContractStorage(key any) (prevSize uint32, existed bool) {
	buf := e.scopedBuffer()
	k := buf.TakeEncoded(key)
	return sizeResult(e.host.ClearStorage(k))
}

// storageResult panics on any status besides Success and KeyNotFound: the
// storage functions document no other outcome.
func storageResult(op string, code types.ReturnCode, out []byte, dst any) (bool, error) {
	switch code {
	case types.Success:
	case types.KeyNotFound:
		return false, nil
	default:
		panic(&core.UnexpectedStatusError{Op: op, Code: code})
	}
	if err := codec.DecodeAll(out, dst); err != nil {
		return false, err
	}
	return true, nil
}
