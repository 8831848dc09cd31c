package websocket

import "strconv"

// Opcode denotes the interpretation of a frame's payload, as defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-5.2 and
// https://datatracker.ietf.org/doc/html/rfc6455#section-11.8.
type Opcode int

const (
	// OpcodeContinuation carries on a fragmented message. Legal only as a
	// non-final or final frame following a non-final data frame.
	OpcodeContinuation Opcode = iota
	// OpcodeText carries a UTF-8 encoded message.
	OpcodeText
	// OpcodeBinary carries an opaque message.
	OpcodeBinary
	// 3-7 are reserved for further non-control frames.
	_
	_
	_
	_
	_
	// OpcodeClose requests or confirms connection termination.
	OpcodeClose
	// OpcodePing requests an OpcodePong with the same payload.
	OpcodePing
	// OpcodePong may be sent unsolicited too.
	OpcodePong
	// 11-15 are reserved for further control frames.
)

// IsControl reports whether o is a control opcode (CLOSE, PING, or PONG).
// Control frames are never fragmented and carry at most 125 payload bytes.
func (o Opcode) IsControl() bool { return o&0x8 != 0 }

// String returns the opcode's RFC name, or its number if unrecognized.
func (o Opcode) String() string {
	switch o {
	case OpcodeContinuation:
		return "continuation"
	case OpcodeText:
		return "text"
	case OpcodeBinary:
		return "binary"
	case OpcodeClose:
		return "close"
	case OpcodePing:
		return "ping"
	case OpcodePong:
		return "pong"
	default:
		return strconv.Itoa(int(o))
	}
}
