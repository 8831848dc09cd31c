package websocket

import (
	"context"
	"sync"
)

// Message is a lazy handle to an inbound TEXT or BINARY message. The
// Endpoint delivers it to Application.OnData as soon as its first chunk is
// available rather than waiting for the whole message to assemble, so a
// large message streams to its consumer incrementally. Chunks arrive in
// order; the last one is marked Fin.
//
// Modeled on the teacher's channel-based Message/IncomingMessages shape
// (pkg/websocket/message.go in the retrieval pack), adapted from
// whole-message delivery to incremental per-chunk delivery, and from a
// channel to an unbounded queue: push must never block the Endpoint's run
// loop, so a slow consumer only grows memory, it never stalls the socket
// read (see the package doc's note on inbound backpressure).
type Message struct {
	// Opcode is OpcodeText or OpcodeBinary for the whole logical message.
	Opcode Opcode

	mu      sync.Mutex
	chunks  []messageChunk
	ready   chan struct{}
	ended   bool // a Fin chunk has been pushed, or abort was called
	aborted bool
}

type messageChunk struct {
	payload []byte
	fin     bool
}

func newMessage(opcode Opcode) *Message {
	return &Message{Opcode: opcode, ready: make(chan struct{}, 1)}
}

// push delivers one chunk. It never blocks. It must not be called again
// after a chunk with fin=true.
func (m *Message) push(payload []byte, fin bool) {
	m.mu.Lock()
	m.chunks = append(m.chunks, messageChunk{payload: payload, fin: fin})
	if fin {
		m.ended = true
	}
	m.mu.Unlock()
	m.signal()
}

// abort marks the message as having ended abnormally, for Next calls
// already in flight when the connection tears down mid-message.
func (m *Message) abort() {
	m.mu.Lock()
	m.ended = true
	m.aborted = true
	m.mu.Unlock()
	m.signal()
}

func (m *Message) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Next blocks for the next chunk, or until ctx is done. ok is false once the
// message has been fully delivered (err is nil) or the connection closed
// before it completed (err is errClientDisconnected).
func (m *Message) Next(ctx context.Context) (payload []byte, fin bool, ok bool, err error) {
	for {
		m.mu.Lock()
		if len(m.chunks) > 0 {
			c := m.chunks[0]
			m.chunks = m.chunks[1:]
			m.mu.Unlock()
			return c.payload, c.fin, true, nil
		}
		ended, aborted := m.ended, m.aborted
		m.mu.Unlock()

		if ended {
			if aborted {
				return nil, false, false, errClientDisconnected
			}
			return nil, false, false, nil
		}

		select {
		case <-m.ready:
			continue
		case <-ctx.Done():
			return nil, false, false, ctx.Err()
		}
	}
}
