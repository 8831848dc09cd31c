package websocket

import (
	"crypto/rand"
	"encoding/binary"
)

// TransformFunc rewrites an outbound frame's payload before it is framed and
// masked, the pluggable hook a WebSocket extension (permessage-deflate being
// the obvious one) would occupy. Compile's default is the identity
// transform; no extension ships with this package.
type TransformFunc func(opcode Opcode, payload []byte) ([]byte, error)

// identityTransform returns payload unchanged.
func identityTransform(_ Opcode, payload []byte) ([]byte, error) { return payload, nil }

// Compiler turns application payloads into wire-ready frames for a given
// Role, applying an optional transform pipeline first.
type Compiler struct {
	role      Role
	transform TransformFunc
}

// NewCompiler returns a Compiler for role using the identity transform.
func NewCompiler(role Role) *Compiler {
	return &Compiler{role: role, transform: identityTransform}
}

// SetTransform installs t as the outbound payload transform. A nil t resets
// to the identity transform.
func (c *Compiler) SetTransform(t TransformFunc) {
	if t == nil {
		t = identityTransform
	}
	c.transform = t
}

// Compile frames a single payload as opcode with the given fin bit, masking
// it if c.role requires outbound masking. It does not auto-fragment; callers
// that need AutoFrameSize-based fragmentation call Compile once per fragment
// with the appropriate opcode (CONTINUATION after the first) and fin value.
func (c *Compiler) Compile(opcode Opcode, payload []byte, fin bool) ([]byte, error) {
	payload, err := c.transform(opcode, payload)
	if err != nil {
		return nil, err
	}
	return compileFrame(c.role, opcode, payload, fin), nil
}

// compileFrame builds the wire bytes for one frame, independent of any
// transform pipeline. Masking is applied per RFC 6455 §5.3 when role masks
// outbound frames (RoleClient; see Config.Role's doc for the inversion this
// package's default reproduces).
func compileFrame(role Role, opcode Opcode, payload []byte, fin bool) []byte {
	mask := role == RoleClient

	hdrLen := 2
	n := len(payload)
	switch {
	case n > 65535:
		hdrLen += 8
	case n > 125:
		hdrLen += 2
	}
	if mask {
		hdrLen += 4
	}

	out := make([]byte, hdrLen+n)

	b0 := byte(opcode) & 0x0f
	if fin {
		b0 |= 0x80
	}
	out[0] = b0

	off := 2
	switch {
	case n > 65535:
		out[1] = 127
		binary.BigEndian.PutUint64(out[off:off+8], uint64(n))
		off += 8
	case n > 125:
		out[1] = 126
		binary.BigEndian.PutUint16(out[off:off+2], uint16(n))
		off += 2
	default:
		out[1] = byte(n)
	}

	if mask {
		out[1] |= 0x80
		var key [4]byte
		_, _ = rand.Read(key[:])
		copy(out[off:off+4], key[:])
		off += 4
		copy(out[off:], payload)
		unmask(out[off:off+n], key, 0) // XOR-mask is its own inverse
	} else {
		copy(out[off:], payload)
	}

	return out
}

// Fragment splits payload into a sequence of compiled frames no larger than
// frameSize bytes of payload each (the last may be shorter), the shape
// Compile callers use once an outbound message crosses AutoFrameSize*1.5.
// An empty payload yields a single empty-payload frame.
func (c *Compiler) Fragment(opcode Opcode, payload []byte, frameSize int) ([][]byte, error) {
	if frameSize <= 0 {
		frameSize = len(payload)
		if frameSize == 0 {
			frameSize = 1
		}
	}
	if len(payload) == 0 {
		frame, err := c.Compile(opcode, nil, true)
		if err != nil {
			return nil, err
		}
		return [][]byte{frame}, nil
	}

	var frames [][]byte
	for off := 0; off < len(payload); off += frameSize {
		end := off + frameSize
		if end > len(payload) {
			end = len(payload)
		}
		op := opcode
		if off > 0 {
			op = OpcodeContinuation
		}
		fin := end == len(payload)
		frame, err := c.Compile(op, payload[off:end], fin)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// CompileControl frames a control frame (CLOSE, PING, or PONG). Payload must
// be at most 125 bytes; callers are responsible for that invariant since
// close payloads carry a 2-byte status code prefix callers build themselves.
func (c *Compiler) CompileControl(opcode Opcode, payload []byte) ([]byte, error) {
	return compileFrame(c.role, opcode, payload, true), nil
}
