package websocket

import "strconv"

// StatusCode is a WebSocket close status code, as defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.4.
type StatusCode uint16

// Close codes referenced by this package. Only the subset spec.md names is
// defined; RFC 6455 reserves the rest (3000-3999 for libraries/frameworks,
// 4000-4999 for private use).
const (
	// NormalClose means the purpose the connection was established for has
	// been fulfilled.
	NormalClose StatusCode = 1000
	// GoingAway signals a leave, such as a server going down or a peer
	// navigating away. Also used for a failed heartbeat liveness check.
	GoingAway StatusCode = 1001
	// ProtocolError rejects a standard violation.
	ProtocolError StatusCode = 1002
	// UnacceptableType rejects a data type the endpoint cannot accept (e.g.
	// BINARY when textOnly is set).
	UnacceptableType StatusCode = 1003
	// AbnormalClose signals a disconnect without a Close frame exchange.
	// Never sent on the wire; used locally to represent the condition.
	AbnormalClose StatusCode = 1006
	// InconsistentFrameDataType rejects data inconsistent with its declared
	// type, such as an invalid UTF-8 sequence in a TEXT message.
	InconsistentFrameDataType StatusCode = 1007
	// MessageTooLarge rejects a message exceeding configured size limits.
	MessageTooLarge StatusCode = 1009
)

// String returns the status code's name, or its number if unrecognized.
func (s StatusCode) String() string {
	switch s {
	case NormalClose:
		return "normal close"
	case GoingAway:
		return "going away"
	case ProtocolError:
		return "protocol error"
	case UnacceptableType:
		return "unacceptable type"
	case AbnormalClose:
		return "abnormal close"
	case InconsistentFrameDataType:
		return "inconsistent frame data type"
	case MessageTooLarge:
		return "message too large"
	default:
		return strconv.Itoa(int(s))
	}
}
