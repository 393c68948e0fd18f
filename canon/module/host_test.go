package module

import (
	"testing"

	"github.com/wasmerio/wasmer-go/wasmer"

	"synnergy-canon/canon"
)

// guestWat is a minimal hand-written guest: it exports memory, q, and t,
// and calls the canon.hash host import on its query path. Compiling and
// instantiating it against HostInvoker's registerHost is what would have
// caught the put/get/hash/sig import-type mismatch a guest written to
// bridge_wasm.go's //go:wasmimport declarations hits at instantiation
// time: wasmer rejects an import whose function type doesn't match the
// module's declared import signature exactly.
const guestWat = `
(module
  (import "canon" "put" (func $put (param i32 i32 i32)))
  (import "canon" "get" (func $get (param i32)))
  (import "canon" "hash" (func $hash (param i32 i32 i32)))
  (import "canon" "sig" (func $sig (param i32 i32)))
  (memory (export "memory") 1)
  ;; q: hash the 4 bytes at offset 0 into offset 4, return 36 (4 + 32).
  (func (export "q") (param $ptr i32) (param $len i32) (result i32)
    (call $hash (local.get $ptr) (i32.const 4) (i32.const 4))
    (i32.const 36))
  ;; t: round-trip len bytes unchanged.
  (func (export "t") (param $ptr i32) (param $len i32) (result i32)
    (local.get $len))
)
`

func compileGuest(t *testing.T, store canon.Store) *GuestInstance {
	t.Helper()
	wasmBytes, err := wasmer.Wat2Wasm(guestWat)
	if err != nil {
		t.Fatalf("Wat2Wasm: %v", err)
	}
	invoker := NewHostInvoker(store, nil)
	mod, err := invoker.Compile(wasmBytes)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	inst, err := mod.Instantiate()
	if err != nil {
		t.Fatalf("Instantiate: %v (this is exactly the failure an ABI mismatch between host.go and bridge_wasm.go would produce)", err)
	}
	return inst
}

func TestGuestInstantiatesAgainstHostABI(t *testing.T) {
	store := newTestStore()
	compileGuest(t, store)
}

func TestCallQueryInvokesHashImport(t *testing.T) {
	store := newTestStore()
	inst := compileGuest(t, store)

	page := make([]byte, 4096)
	copy(page, []byte{1, 2, 3, 4})

	out, err := inst.CallQuery(page)
	if err != nil {
		t.Fatalf("CallQuery: %v", err)
	}
	if len(out) != 36 {
		t.Fatalf("expected 36 bytes (4 input + 32 digest), got %d", len(out))
	}
	want := canon.IdOfRaw([]byte{1, 2, 3, 4})
	var got canon.Id
	copy(got[:], out[4:])
	if got != want {
		t.Fatalf("hash mismatch: got %x want %x", got, want)
	}
}

func TestCallTransactionRoundTripsPage(t *testing.T) {
	store := newTestStore()
	inst := compileGuest(t, store)

	page := make([]byte, 8)
	copy(page, []byte{9, 8, 7, 6, 5, 4, 3, 2})

	out, err := inst.CallTransaction(page)
	if err != nil {
		t.Fatalf("CallTransaction: %v", err)
	}
	if len(out) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(out))
	}
}
