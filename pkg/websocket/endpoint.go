package websocket

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Socket is the minimal duplex byte stream an Endpoint drives. A TCP (or
// TLS) connection already satisfies it once an HTTP Upgrade has handed it
// off; see package httpws.
type Socket interface {
	io.Reader
	io.Writer
	Close() error
}

// Application is the callback surface an Endpoint drives. Its
// implementation lives outside this package entirely; only the interface is
// defined here (see package doc).
type Application interface {
	// OnOpen is called once, before any inbound data is parsed, with the
	// headers negotiated during the HTTP Upgrade handshake.
	OnOpen(ep *Endpoint, headers http.Header)
	// OnData is called once per inbound message, as soon as its first chunk
	// is available. It runs on its own goroutine so it may block on
	// msg.Next without stalling the Endpoint's run loop.
	OnData(ep *Endpoint, msg *Message)
	// OnClose is called exactly once, after the Endpoint has torn down.
	OnClose(ep *Endpoint, code StatusCode, reason string)
}

type cmdKind int

const (
	cmdSend cmdKind = iota
	cmdClose
	cmdGetInfo
	cmdInbound
	cmdReadErr
	cmdWriteResult
)

// command is the single kind of value serialized through an Endpoint's run
// loop, whatever its source: a public method call, the read pump, or the
// write pump. Keeping every external interaction as one of these preserves
// the "single logical task, no data race" property spec.md requires of an
// Endpoint, translated from an explicit reactor/registration API into a
// dedicated goroutine per blocking syscall reporting back over a channel.
type command struct {
	kind cmdKind

	opcode      Opcode // cmdSend
	data        []byte // cmdSend
	done        chan error
	closeCode   StatusCode // cmdClose
	closeReason string     // cmdClose
	info        chan Stats // cmdGetInfo
	chunk       []byte     // cmdInbound
	err         error      // cmdReadErr, cmdWriteResult
}

// Endpoint is the RFC 6455 endpoint state machine: one Parser, one
// Compiler, one write queue, and the Application and Socket it mediates
// between. Everything that touches its mutable state runs on a single
// goroutine (Run); every other method is safe to call concurrently because
// it only ever hands a command to that goroutine.
type Endpoint struct {
	ID string

	cfg     Config
	sock    Socket
	app     Application
	headers http.Header
	log     *slog.Logger

	parser   *Parser
	compiler *Compiler

	// mu guards torndown, which gates enqueue: once Run's loop has
	// stopped reading cmds, a successful send into its buffer would sit
	// there forever with nothing to resolve its done channel. Checking
	// and sending under the same lock that teardown flips closes that
	// race instead of selecting against a channel close.
	mu       sync.Mutex
	torndown bool
	cmds     chan command

	counters statsCounters

	// eventSink is set for the duration of Run and is only ever written or
	// read from Run's own goroutine: the Parser's emit callback runs
	// synchronously inside the cmdInbound handler, never concurrently with
	// Run's loop.
	eventSink func(Event)

	// tick overrides the real 1Hz ticker Run would otherwise create. For
	// unit-testing only; nil means use newRealTicker.
	tick ticker
}

// errMissingHeaders is returned by NewEndpoint when handed an empty header
// set: the negotiated headers are required input, not optional metadata.
var errMissingHeaders = fmt.Errorf("websocket: headers must be non-empty")

// NewEndpoint constructs an Endpoint from an owned socket, the headers
// negotiated during the HTTP Upgrade handshake, and the Application it
// drives. log is optional; a nil logger defaults to slog.Default(), and
// Endpoint logs connection lifecycle events (open, protocol violation,
// forced close, unload) through it without ever substituting for what
// Application itself reports. Call Run to start the Endpoint; Run blocks
// until the connection tears down.
func NewEndpoint(id string, cfg Config, sock Socket, headers http.Header, app Application, log *slog.Logger) (*Endpoint, error) {
	if len(headers) == 0 {
		return nil, errMissingHeaders
	}
	if log == nil {
		log = slog.Default()
	}
	ep := &Endpoint{
		ID:       id,
		cfg:      cfg,
		sock:     sock,
		app:      app,
		headers:  headers,
		log:      log.With("endpoint_id", id),
		compiler: NewCompiler(cfg.Role),
		cmds:     make(chan command, 32),
	}
	ep.parser = NewParser(cfg, func(e Event) { ep.eventSink(e) })
	return ep, nil
}

// enqueue hands cmd to the run loop, reporting false (without sending)
// once the Endpoint has torn down. mu makes the check-and-send atomic
// with respect to teardown flipping torndown, so a caller never races a
// Run goroutine that has already stopped draining cmds.
func (ep *Endpoint) enqueue(cmd command) bool {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.torndown {
		return false
	}
	ep.cmds <- cmd
	return true
}

// Send enqueues payload as a TEXT or BINARY message, auto-fragmenting it
// into AutoFrameSize-ish chunks once it crosses the fragmentation
// threshold. The returned channel receives the outcome once every fragment
// has been written, or the connection fails first.
func (ep *Endpoint) Send(opcode Opcode, payload []byte) <-chan error {
	done := make(chan error, 1)
	if !ep.enqueue(command{kind: cmdSend, opcode: opcode, data: payload, done: done}) {
		done <- errClientDisconnected
	}
	return done
}

// SendText enqueues a TEXT message.
func (ep *Endpoint) SendText(s string) <-chan error { return ep.Send(OpcodeText, []byte(s)) }

// SendBinary enqueues a BINARY message.
func (ep *Endpoint) SendBinary(b []byte) <-chan error { return ep.Send(OpcodeBinary, b) }

// Close starts the close handshake with the given status code and reason.
// It does not block; OnClose reports when teardown actually completes.
func (ep *Endpoint) Close(code StatusCode, reason string) {
	ep.enqueue(command{kind: cmdClose, closeCode: code, closeReason: reason})
}

// GetInfo returns a snapshot of the Endpoint's running Stats.
func (ep *Endpoint) GetInfo() Stats {
	info := make(chan Stats, 1)
	if !ep.enqueue(command{kind: cmdGetInfo, info: info}) {
		return Stats{ClosedAt: time.Now()}
	}
	return <-info
}

// Run drives the Endpoint until the connection tears down: the peer closed
// it, a protocol error occurred, ctx was canceled, or Close was called and
// acknowledged (or timed out waiting for the peer's echo). It must be
// called exactly once, and returns only after OnClose has been invoked.
func (ep *Endpoint) Run(ctx context.Context) {
	stats := Stats{ConnectedAt: time.Now()}
	var queue writeQueue
	var writeInFlight, writeInFlightData bool
	var curMsg *Message
	var pingCount, pongCount int
	var closeSent, closeRecvd, loopDone bool
	var closedAt time.Time

	jobs := make(chan writeJob, 1)
	readDone := make(chan struct{})
	writeDone := make(chan struct{})
	stopPumps := make(chan struct{})

	tick := ep.tick
	if tick == nil {
		tick = newRealTicker(tickPeriod)
	}
	defer tick.Stop()

	go ep.readPump(stopPumps, readDone)
	go ep.writePump(jobs, stopPumps, writeDone)

	pumpQueue := func() {
		if writeInFlight {
			return
		}
		job, ok := queue.pop()
		if !ok {
			return
		}
		writeInFlight = true
		writeInFlightData = job.isData
		jobs <- job
	}

	sendControlFrame := func(opcode Opcode, payload []byte) {
		frame, _ := ep.compiler.CompileControl(opcode, payload)
		queue.pushControl(writeJob{frame: frame})
		pumpQueue()
	}

	beginLocalClose := func(code StatusCode, reason string) {
		if closeSent {
			return
		}
		sendControlFrame(OpcodeClose, encodeClosePayload(code, reason))
		closeSent = true
		closedAt = time.Now()
	}

	teardown := func(code StatusCode, reason string) {
		if loopDone {
			return
		}
		loopDone = true
		ep.mu.Lock()
		ep.torndown = true
		ep.mu.Unlock()
		close(stopPumps)
		_ = ep.sock.Close()
		queue.failAll(errClientDisconnected)
		if curMsg != nil {
			curMsg.abort()
			curMsg = nil
		}
		stats.ClosedAt = time.Now()
		if code == NormalClose {
			ep.log.Debug("connection closed", "code", code, "reason", reason)
		} else {
			ep.log.Warn("connection forced closed", "code", code, "reason", reason)
		}
		ep.app.OnClose(ep, code, reason)
	}

	ep.eventSink = func(e Event) {
		switch e.Kind {
		case EventControl:
			switch e.Opcode {
			case OpcodePing:
				sendControlFrame(OpcodePong, e.Payload)
			case OpcodePong:
				// Payload carries the peer's integer count, clamped to
				// pingCount so it can never report more acks than we've
				// actually sent pings for.
				received := decodePingCount(e.Payload)
				if received > pingCount {
					received = pingCount
				}
				pongCount = received
			case OpcodeClose:
				code, reason := decodeClosePayload(e.Payload)
				closeRecvd = true
				if !closeSent {
					// Best-effort synchronous echo: the peer is already
					// tearing down, so there is no point queuing it behind
					// the async write pump only to race the socket close.
					frame, _ := ep.compiler.CompileControl(OpcodeClose, encodeClosePayload(code, reason))
					_, _ = ep.sock.Write(frame)
					closeSent = true
				}
				teardown(code, reason)
			}
		case EventData:
			if curMsg == nil {
				curMsg = newMessage(e.Opcode)
				go ep.app.OnData(ep, curMsg)
			}
			curMsg.push(e.Payload, e.Fin)
			if e.Fin {
				stats.MessagesRead++
				stats.LastDataReadAt = time.Now()
				curMsg = nil
			}
		case EventError:
			ep.log.Warn("protocol violation", "code", e.Code, "reason", e.Reason)
			beginLocalClose(e.Code, e.Reason)
		}
	}

	ep.log.Debug("connection opened")
	ep.app.OnOpen(ep, ep.headers)

	for !loopDone {
		select {
		case <-ctx.Done():
			teardown(AbnormalClose, "context canceled")

		case c := <-ep.cmds:
			switch c.kind {
			case cmdSend:
				frames, _ := ep.compiler.Fragment(c.opcode, c.data, fragmentSize(len(c.data), ep.cfg.AutoFrameSize))
				for i, f := range frames {
					var d chan error
					if i == len(frames)-1 {
						d = c.done
					}
					queue.pushData(writeJob{frame: f, done: d})
				}
				stats.MessagesSent++
				pumpQueue()

			case cmdClose:
				beginLocalClose(c.closeCode, c.closeReason)

			case cmdGetInfo:
				snap := stats
				br, bs, fr, fs := ep.counters.snapshot()
				snap.BytesRead, snap.BytesSent = br, bs
				snap.FramesRead, snap.FramesSent = fr, fs
				c.info <- snap

			case cmdInbound:
				n, _ := ep.parser.Feed(c.chunk)
				stats.FramesRead += int64(n)
				stats.LastReadAt = time.Now()
				ep.counters.addRead(n, len(c.chunk))

			case cmdReadErr:
				teardown(AbnormalClose, "read error")

			case cmdWriteResult:
				writeInFlight = false
				if c.err != nil {
					teardown(AbnormalClose, "write error")
				} else {
					now := time.Now()
					stats.LastSentAt = now
					if writeInFlightData {
						stats.LastDataSentAt = now
					}
					pumpQueue()
				}
			}

		case now := <-tick.C():
			if ep.cfg.HeartbeatPeriod > 0 && now.Sub(stats.LastSentAt) >= ep.cfg.HeartbeatPeriod {
				if pingCount-pongCount > ep.cfg.QueuedPingLimit {
					beginLocalClose(GoingAway, "ping timeout")
				} else {
					pingCount++
					sendControlFrame(OpcodePing, encodePingCount(pingCount))
				}
			}
			if closeSent && !closeRecvd && now.Sub(closedAt) >= ep.cfg.ClosePeriod {
				teardown(AbnormalClose, "close handshake timeout")
			}
		}
	}

	// A caller's enqueue can win its lock race against teardown's own
	// lock acquisition and land one last command in the buffer after the
	// loop has already decided to stop reading it. torndown is true by
	// now, so no further sends can land; drain whatever is left so none
	// of those callers block forever waiting on a reply.
	for {
		select {
		case c := <-ep.cmds:
			failStrandedCommand(c)
		default:
			<-readDone
			<-writeDone
			ep.log.Debug("connection unloaded")
			return
		}
	}
}

// failStrandedCommand resolves a command that arrived (or was already
// queued) after the run loop stopped servicing cmds, so its caller never
// blocks waiting on a reply that will never come.
func failStrandedCommand(c command) {
	switch c.kind {
	case cmdSend:
		resolve(c.done, errClientDisconnected)
	case cmdGetInfo:
		c.info <- Stats{ClosedAt: time.Now()}
	}
}

// readPump owns the only blocking Read call on the socket, translating each
// chunk (or terminal error) into a command for the run loop.
func (ep *Endpoint) readPump(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, 32*1024)
	for {
		n, err := ep.sock.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case ep.cmds <- command{kind: cmdInbound, chunk: chunk}:
			case <-stop:
				return
			}
		}
		if err != nil {
			select {
			case ep.cmds <- command{kind: cmdReadErr, err: err}:
			case <-stop:
			}
			return
		}
	}
}

// writePump owns the only blocking Write call on the socket. io.Writer
// guarantees a short write returns a non-nil error, so one Write call per
// frame is enough; no partial-write bookkeeping is needed here.
func (ep *Endpoint) writePump(jobs <-chan writeJob, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case job := <-jobs:
			_, err := ep.sock.Write(job.frame)
			if err == nil {
				ep.counters.addSent(len(job.frame))
			}
			resolve(job.done, err)
			select {
			case ep.cmds <- command{kind: cmdWriteResult, err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// fragmentSize returns the per-frame payload size Fragment should use for a
// message of the given total length: 0 (meaning "one frame") if it is under
// 1.5x AutoFrameSize, else ceil(total / ceil(total/AutoFrameSize)) so every
// resulting frame is as close to AutoFrameSize as an even split allows,
// never exceeding it.
func fragmentSize(total, autoFrameSize int) int {
	if autoFrameSize <= 0 || total <= (autoFrameSize*3)/2 {
		return 0
	}
	frames := (total + autoFrameSize - 1) / autoFrameSize
	return (total + frames - 1) / frames
}

func encodeClosePayload(code StatusCode, reason string) []byte {
	out := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(out, uint16(code))
	copy(out[2:], reason)
	return out
}

// encodePingCount encodes a heartbeat ping's running count as its payload.
// This counting liveness protocol is project-local, not RFC 6455 semantics
// (a standard peer would instead echo the PING payload verbatim); see
// Config.Role's doc for the other place this package reproduces observed
// rather than standard behavior.
func encodePingCount(n int) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(n))
	return out
}

// decodePingCount decodes a PONG payload as the integer count encodePingCount
// produced. A short or missing payload decodes as 0, so a non-conformant
// peer's PONG never advances pongCount.
func decodePingCount(payload []byte) int {
	if len(payload) < 4 {
		return 0
	}
	return int(binary.BigEndian.Uint32(payload))
}

func decodeClosePayload(payload []byte) (StatusCode, string) {
	if len(payload) < 2 {
		return NormalClose, ""
	}
	return StatusCode(binary.BigEndian.Uint16(payload[:2])), string(payload[2:])
}
