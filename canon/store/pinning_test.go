package store

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"synnergy-canon/internal/testutil"
)

func TestPinningStoreMirrorsToGateway(t *testing.T) {
	var pins int32
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pins, 1)
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			t.Errorf("expected non-empty body forwarded to gateway")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	under := NewMemStore()
	ps, err := NewPinningStore(under, PinningConfig{GatewayURL: gw.URL, CacheDir: sb.Root}, nil)
	if err != nil {
		t.Fatalf("NewPinningStore: %v", err)
	}

	if _, err := ps.PutRaw([]byte("pin me")); err != nil {
		t.Fatalf("PutRaw: %v", err)
	}
	if atomic.LoadInt32(&pins) != 1 {
		t.Fatalf("expected exactly one gateway pin call, got %d", pins)
	}

	// A second PutRaw of the same bytes hits the disk cache and skips the
	// gateway.
	if _, err := ps.PutRaw([]byte("pin me")); err != nil {
		t.Fatalf("PutRaw (repeat): %v", err)
	}
	if atomic.LoadInt32(&pins) != 1 {
		t.Fatalf("expected the cache to skip the repeat pin, got %d calls", pins)
	}
}

func TestPinningStoreGatewayFailureDoesNotFailPutRaw(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gw.Close()

	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	under := NewMemStore()
	ps, err := NewPinningStore(under, PinningConfig{GatewayURL: gw.URL, CacheDir: sb.Root}, nil)
	if err != nil {
		t.Fatalf("NewPinningStore: %v", err)
	}

	if _, err := ps.PutRaw([]byte("still stored locally")); err != nil {
		t.Fatalf("PutRaw must succeed even if the gateway 500s: %v", err)
	}
	if under.Len() != 1 {
		t.Fatalf("expected the underlying store to have the blob regardless")
	}
}
