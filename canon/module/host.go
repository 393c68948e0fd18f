package module

import (
	"errors"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"

	"synnergy-canon/canon"
)

// HostInvoker compiles and runs guest WASM modules against a canon.Store,
// registering the put/get/hash/sig/debug host imports named in spec.md
// §4.4/§6 under the import module name "canon". Grounded on
// core/virtual_machine.go's HeavyVM/registerHost (the wasmer-go host
// binding pattern), re-pointed from that file's bespoke
// host_consume_gas/host_read/host_write/host_log ABI to the canon ABI.
type HostInvoker struct {
	engine *wasmer.Engine
	store  canon.Store
	log    *zap.SugaredLogger
}

// NewHostInvoker creates an invoker whose guest modules resolve put/get
// against store. log may be nil, in which case debug calls are discarded.
func NewHostInvoker(store canon.Store, log *zap.SugaredLogger) *HostInvoker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &HostInvoker{engine: wasmer.NewEngine(), store: store, log: log}
}

// GuestModule is a compiled, not-yet-instantiated guest. A module can be
// instantiated many times against independent pages.
type GuestModule struct {
	invoker *HostInvoker
	store   *wasmer.Store
	module  *wasmer.Module
}

// Compile parses and validates code. It does not run guest code.
func (h *HostInvoker) Compile(code []byte) (*GuestModule, error) {
	wstore := wasmer.NewStore(h.engine)
	mod, err := wasmer.NewModule(wstore, code)
	if err != nil {
		return nil, fmt.Errorf("canon: compile guest module: %w", err)
	}
	return &GuestModule{invoker: h, store: wstore, module: mod}, nil
}

// hostCtx is the per-instance state the host import closures capture. It is
// intentionally unexported: guest code only ever sees it through the ABI
// functions below, never directly.
type hostCtx struct {
	mem    *wasmer.Memory
	store  canon.Store
	log    *zap.SugaredLogger
	signal *canon.Signal
}

func i32ValueTypes(n int) []*wasmer.ValueType {
	vt := make([]*wasmer.ValueType, n)
	for i := range vt {
		vt[i] = wasmer.NewValueType(wasmer.I32)
	}
	return vt
}

// registerHost wires put/get/hash/sig/debug into wstore under the "canon"
// import module name, mirroring registerHost's "env" namespace convention
// from the teacher but with the ABI spec.md §4.4 names for a content-
// addressed store instead of a key/value ledger.
func registerHost(wstore *wasmer.Store, h *hostCtx) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	read := func(ptr, ln int32) []byte {
		b := h.mem.Data()[ptr : ptr+ln]
		out := make([]byte, ln)
		copy(out, b)
		return out
	}
	write := func(ptr int32, data []byte) { copy(h.mem.Data()[ptr:], data) }

	// put(srcPtr, srcLen, idOutPtr i32). Matches bridge_wasm.go's
	// hostPut declaration exactly: no result. A store failure traps the
	// guest (returned as a Go error, surfaced by call() as ErrHost)
	// rather than smuggling a status code through an undeclared result,
	// per spec.md §6's void-returning put/get/hash signatures.
	hostPut := wasmer.NewFunction(
		wstore,
		wasmer.NewFunctionType(i32ValueTypes(3), i32ValueTypes(0)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			srcPtr, srcLen, idOut := args[0].I32(), args[1].I32(), args[2].I32()
			raw := read(srcPtr, srcLen)
			id, err := h.store.PutRaw(raw)
			if err != nil {
				return nil, fmt.Errorf("canon: host put: %w", err)
			}
			write(idOut, id[:])
			return []wasmer.Value{}, nil
		},
	)

	// get(ptr i32). Matches bridge_wasm.go's hostGet declaration: the
	// guest writes the digest into the page at ptr, the host overwrites
	// that same page with the raw bytes starting at ptr, offset zero. A
	// single shared buffer serves both directions rather than separate
	// id/dst pointers. A miss traps the guest rather than returning a
	// status code the guest import never declares.
	hostGet := wasmer.NewFunction(
		wstore,
		wasmer.NewFunctionType(i32ValueTypes(1), i32ValueTypes(0)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			ptr := args[0].I32()
			var id canon.Id
			copy(id[:], read(ptr, int32(canon.IDLen)))
			buf := make([]byte, len(h.mem.Data())-int(ptr))
			n, err := h.store.Fetch(id, buf)
			if err != nil {
				return nil, fmt.Errorf("canon: host get: %w", err)
			}
			write(ptr, buf[:n])
			return []wasmer.Value{}, nil
		},
	)

	// hash(srcPtr, srcLen, outPtr i32). Never touches the store: this is
	// the guest's id_of, not a put. Matches bridge_wasm.go's hostHash.
	hostHash := wasmer.NewFunction(
		wstore,
		wasmer.NewFunctionType(i32ValueTypes(3), i32ValueTypes(0)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			srcPtr, srcLen, outPtr := args[0].I32(), args[1].I32(), args[2].I32()
			raw := read(srcPtr, srcLen)
			id := canon.IdOfRaw(raw)
			write(outPtr, id[:])
			return []wasmer.Value{}, nil
		},
	)

	// sig(ptr, len i32). Matches bridge_wasm.go's hostSig declaration:
	// spec.md §6 fixes sig at two parameters, so the Panic/Error
	// sub-kind (SPEC_FULL §6's supplement over the spec's Panic-only
	// sig) travels as the payload's first byte rather than a third
	// argument. Records a Signal for the caller. A panic-kind signal
	// also traps the guest, so a guest that loops after sig (store.Panic)
	// does not run on; an error-kind signal returns to the guest.
	hostSig := wasmer.NewFunction(
		wstore,
		wasmer.NewFunctionType(i32ValueTypes(2), i32ValueTypes(0)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			ptr, ln := args[0].I32(), args[1].I32()
			payload := read(ptr, ln)
			if len(payload) == 0 {
				return nil, fmt.Errorf("%w: empty sig payload", canon.ErrHost)
			}
			h.signal = &canon.Signal{Panic: payload[0] != 0, Message: string(payload[1:])}
			if h.signal.Panic {
				return nil, h.signal
			}
			return []wasmer.Value{}, nil
		},
	)

	// debug(ptr, len i32). Supplements the original four-function ABI:
	// the original_source's guest interpreter traces every host call at
	// debug level, which spec.md's distillation dropped but SPEC_FULL.md
	// §6 restores as a no-op-unless-logging host import.
	hostDebug := wasmer.NewFunction(
		wstore,
		wasmer.NewFunctionType(i32ValueTypes(2), i32ValueTypes(0)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			ptr, ln := args[0].I32(), args[1].I32()
			h.log.Debugw("guest debug", "msg", string(read(ptr, ln)))
			return []wasmer.Value{}, nil
		},
	)

	imports.Register("canon", map[string]wasmer.IntoExtern{
		"put":   hostPut,
		"get":   hostGet,
		"hash":  hostHash,
		"sig":   hostSig,
		"debug": hostDebug,
	})
	return imports
}

// GuestInstance is one instantiation of a GuestModule, holding its own
// linear memory and host call state.
type GuestInstance struct {
	instance *wasmer.Instance
	ctx      *hostCtx
}

// Instantiate creates a fresh, independent instance of m.
func (m *GuestModule) Instantiate() (*GuestInstance, error) {
	hctx := &hostCtx{store: m.invoker.store, log: m.invoker.log}
	imports := registerHost(m.store, hctx)

	inst, err := wasmer.NewInstance(m.module, imports)
	if err != nil {
		return nil, fmt.Errorf("canon: instantiate guest module: %w", err)
	}
	mem, err := inst.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("%w: guest module exports no memory", canon.ErrHost)
	}
	hctx.mem = mem
	return &GuestInstance{instance: inst, ctx: hctx}, nil
}

// call drives page through the named guest export (q or t per spec.md
// §4.4), writing page into the instance's linear memory at offset 0,
// invoking export(ptr, len), and returning whatever the guest wrote back
// into the same region, truncated to the bytes the call actually produced.
func (g *GuestInstance) call(export string, page []byte) ([]byte, error) {
	fn, err := g.instance.Exports.GetFunction(export)
	if err != nil {
		return nil, fmt.Errorf("%w: guest module exports no %q", canon.ErrHost, export)
	}
	if int32(len(page)) > int32(len(g.ctx.mem.Data())) {
		if err := g.ctx.mem.Grow(1); err != nil {
			return nil, fmt.Errorf("%w: growing guest memory: %v", canon.ErrHost, err)
		}
	}
	copy(g.ctx.mem.Data(), page)

	ret, err := fn(int32(0), int32(len(page)))
	if err != nil {
		if g.ctx.signal != nil {
			return nil, g.ctx.signal
		}
		return nil, fmt.Errorf("%w: %v", canon.ErrHost, err)
	}
	if g.ctx.signal != nil {
		return nil, g.ctx.signal
	}

	n, ok := ret.(int32)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned non-i32 result", canon.ErrHost, export)
	}
	if n < 0 {
		return nil, errors.New("canon: guest export reported failure")
	}
	out := make([]byte, n)
	copy(out, g.ctx.mem.Data()[:n])
	return out, nil
}

// CallQuery invokes the guest's "q" export against page, the
// [receiver][method id][args] buffer spec.md §4.4 describes, returning the
// guest-produced result bytes.
func (g *GuestInstance) CallQuery(page []byte) ([]byte, error) {
	return g.call("q", page)
}

// CallTransaction invokes the guest's "t" export, returning the
// [new receiver][result] buffer it writes back.
func (g *GuestInstance) CallTransaction(page []byte) ([]byte, error) {
	return g.call("t", page)
}
