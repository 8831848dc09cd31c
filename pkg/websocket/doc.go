// Package websocket implements the endpoint side of "The WebSocket Protocol"
// RFC 6455: once an HTTP layer has upgraded a TCP (or TLS) connection, an
// Endpoint owns that socket and mediates all further communication. It
// parses inbound frames into application messages, serializes outbound
// messages into frames, and drives the close handshake.
//
// Design goals, in order: wire-format correctness under arbitrary TCP
// fragmentation, incremental delivery of large messages without breaking
// UTF-8 boundaries, and keeping control frames ahead of data frames without
// starving either.
//
// Out of scope: the HTTP Upgrade handshake itself (see package httpws),
// the Application callback surface's implementation (only its interface is
// defined here), and any WebSocket extension (permessage-deflate included —
// Compile exposes a pluggable transform pipeline but ships none).
//
// Known limitation: inbound backpressure is not implemented. A slow
// Application consuming an inbound Message does not pause the underlying
// socket read; chunks accumulate in the Message until consumed. Callers that
// need a strict bound must gate reads themselves upstream of this package.
package websocket
