package module

import "synnergy-canon/canon"

// QueryHandler decodes a query's arguments from src and writes its result
// to sink, given the already-decoded receiver. It must not mutate state
// visible outside the call.
type QueryHandler[S canon.Canon] func(receiver S, src canon.Source, sink canon.Sink) error

// TransactionHandler decodes a transaction's arguments from src, mutates
// *receiver in place, and writes its result to sink.
type TransactionHandler[S canon.Canon] func(receiver *S, src canon.Source, sink canon.Sink) error

// DecodeReceiver is the package-level decoder for a guest module's state
// type S (typically a canon-derive generated Decode<S> function).
type DecodeReceiver[S canon.Canon] func(canon.Source) (S, error)

// HandleQuery implements the guest entry-point convention for the q(buf)
// export, per spec.md §4.4:
//  1. page is a Source containing [encoded receiver S][method id][encoded
//     args A].
//  2. decodeReceiver parses S, methods[id] is looked up and invoked with
//     the remaining bytes as its argument source.
//  3. the handler's result is written to page as a fresh Sink over the
//     same buffer.
//
// An unregistered method id is a Signal, not an InvalidEncoding: the wire
// format itself is fine, the guest module simply has no such operation.
func HandleQuery[S canon.Canon](page []byte, store canon.Store, decodeReceiver DecodeReceiver[S], methods map[MethodID]QueryHandler[S]) error {
	src := canon.NewByteSource(page, store)
	receiver, err := decodeReceiver(src)
	if err != nil {
		return err
	}
	idB, err := src.ReadBytes(1)
	if err != nil {
		return err
	}
	handler, ok := methods[idB[0]]
	if !ok {
		return &canon.Signal{Panic: false, Message: "unknown query method id"}
	}
	sink := canon.NewByteSink(page, store)
	return handler(receiver, src, sink)
}

// HandleTransaction implements the guest entry-point convention for the
// t(buf) export. On success it writes [encoded new receiver S'][encoded
// result R] back to the page, in that order, per spec.md §4.4 point 3.
func HandleTransaction[S canon.Canon](page []byte, store canon.Store, decodeReceiver DecodeReceiver[S], methods map[MethodID]TransactionHandler[S]) error {
	src := canon.NewByteSource(page, store)
	receiver, err := decodeReceiver(src)
	if err != nil {
		return err
	}
	idB, err := src.ReadBytes(1)
	if err != nil {
		return err
	}
	handler, ok := methods[idB[0]]
	if !ok {
		return &canon.Signal{Panic: false, Message: "unknown transaction method id"}
	}

	// The result is written after the updated receiver, so first buffer
	// the result separately, then lay both out in the page in order.
	resultBuf := make([]byte, 0, len(page))
	resultSink := canon.NewByteSink(resultBuf[:cap(resultBuf)], store)
	if err := handler(&receiver, src, resultSink); err != nil {
		return err
	}

	stateSink := canon.NewByteSink(page, store)
	if err := receiver.WriteTo(stateSink); err != nil {
		return err
	}
	stateLen := receiver.EncodedLen()
	resultLen := resultSink.Written()
	copy(page[stateLen:], resultBuf[:resultLen])
	return nil
}
