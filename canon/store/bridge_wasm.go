//go:build wasm

package store

import (
	"unsafe"

	"synnergy-canon/canon"
)

// bridgeBufSize is the guest's static shared page, per spec.md §4.2/§9: a
// process-wide mutable resource, safe because the guest is single-threaded
// cooperative and each host call completes before the next guest
// instruction runs.
const bridgeBufSize = 32 * 1024

var bridgeBuf [bridgeBufSize]byte

//go:wasmimport canon put
func hostPut(ptr unsafe.Pointer, length uint32, retPtr unsafe.Pointer)

//go:wasmimport canon get
func hostGet(ptr unsafe.Pointer)

//go:wasmimport canon hash
func hostHash(ptr unsafe.Pointer, length uint32, retPtr unsafe.Pointer)

//go:wasmimport canon sig
func hostSig(ptr unsafe.Pointer, length uint32)

// BridgeStore is the guest-side Store realization: it owns no state of its
// own and forwards every operation through the three imported host
// functions (put, get, hash), marshaling through the single bridgeBuf
// page. It must never be shared across two in-flight operations: the
// guest's cooperative, single-threaded execution model is what makes that
// safe.
type BridgeStore struct{}

var _ canon.Store = BridgeStore{}

// PutRaw copies bytes into bridgeBuf and asks the host to hash-and-store
// it; the host writes the resulting digest directly into the returned Id.
func (BridgeStore) PutRaw(bytes []byte) (canon.Id, error) {
	if len(bytes) > bridgeBufSize {
		return canon.Id{}, canon.ErrInvalidEncoding
	}
	copy(bridgeBuf[:], bytes)
	var id canon.Id
	hostPut(unsafe.Pointer(&bridgeBuf[0]), uint32(len(bytes)), unsafe.Pointer(&id[0]))
	return id, nil
}

// Put encodes v into bridgeBuf then delegates to PutRaw.
func (s BridgeStore) Put(v canon.Canon) (canon.Id, error) {
	n := v.EncodedLen()
	if n > bridgeBufSize {
		return canon.Id{}, canon.ErrInvalidEncoding
	}
	sink := canon.NewByteSink(bridgeBuf[:n], s)
	if err := v.WriteTo(sink); err != nil {
		return canon.Id{}, err
	}
	return s.PutRaw(bridgeBuf[:n])
}

// Get writes id into bridgeBuf, asks the host to overwrite the page with
// the raw bytes stored under it, then decodes from the page.
func (s BridgeStore) Get(id canon.Id, decode func(canon.Source) error) error {
	copy(bridgeBuf[:canon.IDLen], id[:])
	hostGet(unsafe.Pointer(&bridgeBuf[0]))
	src := canon.NewByteSource(bridgeBuf[:], s)
	return decode(src)
}

// Fetch writes id into bridgeBuf, asks the host for the raw bytes, and
// copies them into buf.
func (s BridgeStore) Fetch(id canon.Id, buf []byte) (int, error) {
	copy(bridgeBuf[:canon.IDLen], id[:])
	hostGet(unsafe.Pointer(&bridgeBuf[0]))
	return copy(buf, bridgeBuf[:]), nil
}

// IdOf asks the host to hash v's encoding without persisting it.
func (s BridgeStore) IdOf(v canon.Canon) (canon.Id, error) {
	n := v.EncodedLen()
	if n > bridgeBufSize {
		return canon.Id{}, canon.ErrInvalidEncoding
	}
	sink := canon.NewByteSink(bridgeBuf[:n], s)
	if err := v.WriteTo(sink); err != nil {
		return canon.Id{}, err
	}
	var id canon.Id
	hostHash(unsafe.Pointer(&bridgeBuf[0]), uint32(n), unsafe.Pointer(&id[0]))
	return id, nil
}

// signal kind tags carried as the first byte of the sig buffer, since
// sig's guest ABI (ptr, len) has no room for a separate isPanic argument:
// spec.md §6 fixes sig at two parameters, so the Panic/Error sub-kind
// supplement from canon_host/src/wasm.rs travels inside the payload
// instead.
const (
	signalKindError = 0
	signalKindPanic = 1
)

// Panic sends a fatal diagnostic to the host via the sig import and never
// returns: the host traps the guest, captures msg, and surfaces it to the
// caller as a canon.Signal with Panic set.
func Panic(msg string) {
	sendSignal(signalKindPanic, msg)
	for {
	}
}

// Fail sends a recoverable diagnostic to the host via the sig import and
// returns normally: the caller observes a canon.Signal with Panic unset,
// but the guest is free to continue running.
func Fail(msg string) {
	sendSignal(signalKindError, msg)
}

func sendSignal(kind byte, msg string) {
	bridgeBuf[0] = kind
	n := copy(bridgeBuf[1:], msg)
	hostSig(unsafe.Pointer(&bridgeBuf[0]), uint32(n+1))
}
