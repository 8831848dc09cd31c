// Package httpws performs the RFC 6455 HTTP Upgrade handshake and hands the
// resulting connection to a websocket.Endpoint. It is a separate package
// from websocket deliberately: the handshake is HTTP, not WebSocket wire
// protocol, and a caller fronted by something other than net/http (a raw
// listener that already knows its peers are WebSocket clients, say) has no
// reason to depend on it.
//
// Grounded on the retrieval pack's pascaldekloe/websocket httpws
// subpackage: the RFC 7230 header-list parsing and the Sec-WebSocket-Accept
// challenge computation follow its shape, adapted here to hijack into a
// websocket.Socket instead of a client-only Conn type.
package httpws

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrNotUpgrade means the request did not ask for a WebSocket upgrade, or
// asked for one this package cannot satisfy (not a GET, wrong version,
// missing key). A ResponseWriter that is not an http.Hijacker yields a
// different error; bytes pipelined after the handshake request are not an
// error and are handed on through the returned Socket.
var ErrNotUpgrade = errors.New("httpws: request is not a valid WebSocket upgrade")

const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// IsUpgradeRequest reports whether r asks to upgrade to the WebSocket
// protocol, per RFC 6455 §4.2.1.
func IsUpgradeRequest(r *http.Request) bool {
	return headerTokenContains(r, "Connection", "upgrade") &&
		headerTokenContains(r, "Upgrade", "websocket")
}

// Subprotocols returns the application subprotocols the client offered via
// Sec-WebSocket-Protocol, in the order it listed them.
func Subprotocols(r *http.Request) []string {
	return splitHeaderList(joinHeader(r, "Sec-Websocket-Protocol"))
}

// headerTokenContains reports whether any comma-separated token in the
// named header equals want, case-insensitively.
func headerTokenContains(r *http.Request, name, want string) bool {
	for _, tok := range splitHeaderList(joinHeader(r, name)) {
		if strings.EqualFold(tok, want) {
			return true
		}
	}
	return false
}

// splitHeaderList splits a comma-separated header value into trimmed,
// non-empty tokens.
func splitHeaderList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// joinHeader combines every occurrence of a header into one comma-separated
// value, per RFC 7230 §3.2.2.
func joinHeader(r *http.Request, name string) string {
	return strings.Join(r.Header[http.CanonicalHeaderKey(name)], ",")
}

// Upgrade completes the WebSocket handshake for r, hijacking the underlying
// connection. On success it returns a Socket ready to be handed to
// websocket.NewEndpoint, plus the negotiated request headers (r.Header, as
// they stood at the moment of the handshake) for the Application's OnOpen.
// responseHeader, if non-nil, is included in the 101 response (e.g.
// Sec-WebSocket-Protocol for the subprotocol chosen from Subprotocols).
// writeTimeout bounds how long the handshake response itself may take to
// flush.
func Upgrade(w http.ResponseWriter, r *http.Request, responseHeader http.Header, writeTimeout time.Duration) (*Socket, http.Header, error) {
	if r.Method != http.MethodGet {
		http.Error(w, "WebSocket upgrade requires GET", http.StatusMethodNotAllowed)
		return nil, nil, ErrNotUpgrade
	}
	if !IsUpgradeRequest(r) {
		h := w.Header()
		h.Set("Connection", "Upgrade")
		h.Set("Upgrade", "websocket")
		http.Error(w, "this endpoint requires the WebSocket protocol", http.StatusUpgradeRequired)
		return nil, nil, ErrNotUpgrade
	}
	if joinHeader(r, "Sec-Websocket-Version") != "13" {
		http.Error(w, "Sec-WebSocket-Version must be 13", http.StatusBadRequest)
		return nil, nil, ErrNotUpgrade
	}
	challengeKey := joinHeader(r, "Sec-Websocket-Key")
	if challengeKey == "" {
		http.Error(w, "Sec-WebSocket-Key is required", http.StatusBadRequest)
		return nil, nil, ErrNotUpgrade
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "server cannot hijack this connection", http.StatusInternalServerError)
		return nil, nil, errors.New("httpws: ResponseWriter does not implement http.Hijacker")
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		return nil, nil, err
	}

	var pipelined []byte
	if n := rw.Reader.Buffered(); n > 0 {
		pipelined, _ = rw.Reader.Peek(n)
		pipelined = append([]byte(nil), pipelined...)
	}

	_ = conn.SetDeadline(time.Time{})
	if writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	}

	if err := writeHandshakeResponse(rw.Writer, challengeKey, responseHeader); err != nil {
		conn.Close()
		return nil, nil, err
	}
	_ = conn.SetWriteDeadline(time.Time{})

	return newSocket(conn, pipelined), r.Header.Clone(), nil
}

func writeHandshakeResponse(w *bufio.Writer, challengeKey string, header http.Header) error {
	if _, err := w.WriteString("HTTP/1.1 101 Switching Protocols\r\n" +
		"Connection: Upgrade\r\n" +
		"Upgrade: websocket\r\n" +
		"Sec-WebSocket-Accept: "); err != nil {
		return err
	}

	digest := sha1.New()
	digest.Write([]byte(challengeKey))
	digest.Write([]byte(acceptGUID))
	var sum [sha1.Size]byte
	copy(sum[:], digest.Sum(nil))
	var encoded [28]byte
	base64.StdEncoding.Encode(encoded[:], sum[:])
	if _, err := w.Write(encoded[:]); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}

	if len(header) > 0 {
		if err := header.Write(w); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

// Socket adapts a hijacked net.Conn, plus any bytes the HTTP server already
// buffered past the end of the handshake request, to websocket.Socket.
type Socket struct {
	conn      net.Conn
	pipelined []byte
}

func newSocket(conn net.Conn, pipelined []byte) *Socket {
	return &Socket{conn: conn, pipelined: pipelined}
}

// Read implements websocket.Socket, draining any pipelined bytes left over
// from the hijack before reading fresh ones off the wire.
func (s *Socket) Read(p []byte) (int, error) {
	if len(s.pipelined) > 0 {
		n := copy(p, s.pipelined)
		s.pipelined = s.pipelined[n:]
		return n, nil
	}
	return s.conn.Read(p)
}

// Write implements websocket.Socket.
func (s *Socket) Write(p []byte) (int, error) { return s.conn.Write(p) }

// Close implements websocket.Socket.
func (s *Socket) Close() error { return s.conn.Close() }
