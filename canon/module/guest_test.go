package module

import (
	"errors"
	"sync"
	"testing"

	"synnergy-canon/canon"
)

type memTestStore struct {
	mu   sync.Mutex
	data map[canon.Id][]byte
}

func newTestStore() *memTestStore { return &memTestStore{data: make(map[canon.Id][]byte)} }

func (m *memTestStore) PutRaw(b []byte) (canon.Id, error) {
	id := canon.IdOfRaw(b)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = append([]byte(nil), b...)
	return id, nil
}
func (m *memTestStore) Put(v canon.Canon) (canon.Id, error) {
	buf := make([]byte, v.EncodedLen())
	if err := v.WriteTo(canon.NewByteSink(buf, m)); err != nil {
		return canon.Id{}, err
	}
	return m.PutRaw(buf)
}
func (m *memTestStore) Get(id canon.Id, decode func(canon.Source) error) error {
	m.mu.Lock()
	raw, ok := m.data[id]
	m.mu.Unlock()
	if !ok {
		return canon.ErrNotFound
	}
	return decode(canon.NewByteSource(raw, m))
}
func (m *memTestStore) Fetch(id canon.Id, buf []byte) (int, error) {
	m.mu.Lock()
	raw, ok := m.data[id]
	m.mu.Unlock()
	if !ok {
		return 0, canon.ErrNotFound
	}
	return copy(buf, raw), nil
}
func (m *memTestStore) IdOf(v canon.Canon) (canon.Id, error) { return canon.IdOf(m, v) }

// counter is the receiver type for a toy guest module: a single u64 that
// queries report and transactions increment by an argument amount.
type counter struct{ n canon.U64 }

func (c counter) EncodedLen() int          { return c.n.EncodedLen() }
func (c counter) WriteTo(s canon.Sink) error { return c.n.WriteTo(s) }

func decodeCounter(s canon.Source) (counter, error) {
	n, err := canon.DecodeU64(s)
	return counter{n: n}, err
}

const methodGet MethodID = 0
const methodAdd MethodID = 0

func TestHandleQueryDispatch(t *testing.T) {
	store := newTestStore()
	receiver := counter{n: 41}

	page := make([]byte, 64)
	sink := canon.NewByteSink(page, store)
	if err := receiver.WriteTo(sink); err != nil {
		t.Fatalf("encode receiver: %v", err)
	}
	page[receiver.EncodedLen()] = byte(methodGet) // method id

	methods := map[MethodID]QueryHandler[counter]{
		methodGet: func(receiver counter, src canon.Source, sink canon.Sink) error {
			return receiver.n.WriteTo(sink)
		},
	}

	if err := HandleQuery[counter](page, store, decodeCounter, methods); err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}
	got, err := canon.DecodeU64(canon.NewByteSource(page, store))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got != 41 {
		t.Fatalf("got %d", got)
	}
}

func TestHandleQueryUnknownMethodIsSignal(t *testing.T) {
	store := newTestStore()
	receiver := counter{n: 1}
	page := make([]byte, 64)
	if err := receiver.WriteTo(canon.NewByteSink(page, store)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	page[receiver.EncodedLen()] = 0xFF

	err := HandleQuery[counter](page, store, decodeCounter, map[MethodID]QueryHandler[counter]{})
	var sig *canon.Signal
	if !errors.As(err, &sig) {
		t.Fatalf("expected a *canon.Signal, got %v", err)
	}
}

func TestHandleTransactionMutatesReceiver(t *testing.T) {
	store := newTestStore()
	receiver := counter{n: 10}

	page := make([]byte, 64)
	sink := canon.NewByteSink(page, store)
	if err := receiver.WriteTo(sink); err != nil {
		t.Fatalf("encode receiver: %v", err)
	}
	page[receiver.EncodedLen()] = byte(methodAdd)
	binArg := canon.U64(5)
	argBuf := make([]byte, binArg.EncodedLen())
	if err := binArg.WriteTo(canon.NewByteSink(argBuf, store)); err != nil {
		t.Fatalf("encode arg: %v", err)
	}
	copy(page[receiver.EncodedLen()+1:], argBuf)

	methods := map[MethodID]TransactionHandler[counter]{
		methodAdd: func(receiver *counter, src canon.Source, sink canon.Sink) error {
			amount, err := canon.DecodeU64(src)
			if err != nil {
				return err
			}
			receiver.n += amount
			return receiver.n.WriteTo(sink)
		},
	}

	if err := HandleTransaction[counter](page, store, decodeCounter, methods); err != nil {
		t.Fatalf("HandleTransaction: %v", err)
	}

	newReceiver, err := decodeCounter(canon.NewByteSource(page, store))
	if err != nil {
		t.Fatalf("decode new receiver: %v", err)
	}
	if newReceiver.n != 15 {
		t.Fatalf("got %d want 15", newReceiver.n)
	}
}
