package canon

import (
	"errors"
	"fmt"
)

// Error taxonomy. The codec and store never retry; every fault is
// surfaced immediately as one of these sentinels, wrapped with context
// via fmt.Errorf("...: %w", ...) in the style of pkg/utils.Wrap.
var (
	// ErrInvalidEncoding covers any codec-level fault: a short read, an
	// out-of-range boolean, or an unknown sum-type variant tag.
	ErrInvalidEncoding = errors.New("canon: invalid encoding")

	// ErrNotFound is returned by a Store whose digest lookup misses.
	ErrNotFound = errors.New("canon: not found")

	// ErrSignal wraps a diagnostic sent from a guest module via the sig
	// host import. It is fatal for the current invocation only.
	ErrSignal = errors.New("canon: signal")

	// ErrHost covers a fault in the guest interpreter itself: module
	// instantiation failure, a missing export, or a trap unrelated to
	// a Signal.
	ErrHost = errors.New("canon: host error")
)

// Signal distinguishes a guest panic from a guest-reported recoverable
// error. Both carry a UTF-8 message transmitted through the shared page
// by the sig host import (see the hostSig import in canon/module/host.go
// and Panic/Fail in canon/store/bridge_wasm.go).
type Signal struct {
	Panic   bool
	Message string
}

func (s *Signal) Error() string {
	kind := "error"
	if s.Panic {
		kind = "panic"
	}
	return fmt.Sprintf("canon: signal %s: %s", kind, s.Message)
}

func (s *Signal) Unwrap() error { return ErrSignal }

// wrap adds context to err in the style of pkg/utils.Wrap. It returns nil
// if err is nil.
func wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
