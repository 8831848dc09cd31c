package websocket

import "time"

// Role decides which side of the connection must mask outbound frames and
// which side must reject masked inbound frames. RFC 6455 assigns these
// asymmetrically: a client masks everything it sends and a server never
// masks; a server fails the connection on an unmasked frame, a client fails
// it on a masked one.
//
// spec.md's own reference implementation inverts the usual server posture
// (it masks outbound and rejects masked inbound, i.e. client-role wire
// behavior, despite running after an HTTP Upgrade it served) and flags this
// as likely accidental. RoleClient reproduces that externally observed
// behavior; RoleServer gives the conventional orientation for a listener
// that performed the Upgrade itself.
type Role int

const (
	// RoleClient masks every outbound frame and fails the connection on a
	// masked inbound frame. Matches spec.md's default, externally observed
	// wire behavior.
	RoleClient Role = iota
	// RoleServer never masks outbound frames and fails the connection on an
	// unmasked inbound frame. The conventional RFC 6455 server posture.
	RoleServer
)

// Config holds the immutable, per-Endpoint tunables from spec.md §3. The
// zero value is not meaningful; use DefaultConfig and the With* options.
type Config struct {
	// AutoFrameSize is the target per-frame payload size once an outbound
	// message crosses the auto-fragmentation threshold (1.5x this value).
	AutoFrameSize int
	// MaxFrameSize rejects any inbound frame whose payload exceeds it with
	// MessageTooLarge.
	MaxFrameSize int
	// MaxMsgSize rejects any inbound message whose cumulative payload
	// exceeds it with MessageTooLarge.
	MaxMsgSize int
	// HeartbeatPeriod is how long the Endpoint may go without sending a
	// frame before it sends a heartbeat ping; 0 disables heartbeat pings.
	HeartbeatPeriod time.Duration
	// ClosePeriod bounds how long the local side waits for the peer to
	// confirm a close handshake before a forced teardown.
	ClosePeriod time.Duration
	// ValidateUTF8, when true, validates TEXT payloads as UTF-8 at emit
	// boundaries.
	ValidateUTF8 bool
	// TextOnly, when true, rejects BINARY opcodes as UnacceptableType.
	TextOnly bool
	// QueuedPingLimit is the number of outstanding, unacknowledged pings
	// tolerated before the peer is considered unresponsive.
	QueuedPingLimit int
	// ParserEmitThreshold is the payload byte count the parser accumulates
	// before emitting a partial DATA slice to the application.
	ParserEmitThreshold int
	// Role selects the masking policy; see the Role docs.
	Role Role
}

// DefaultConfig returns the spec.md §3 default configuration.
func DefaultConfig() Config {
	return Config{
		AutoFrameSize:       32768,
		MaxFrameSize:        2097152,
		MaxMsgSize:          10485760,
		HeartbeatPeriod:     10 * time.Second,
		ClosePeriod:         3 * time.Second,
		ValidateUTF8:        false,
		TextOnly:            false,
		QueuedPingLimit:     3,
		ParserEmitThreshold: 32768,
		Role:                RoleClient,
	}
}

// Option configures a Config in place, in the style of the teacher's
// DialOpt functions (pkg/websocket/dial.go in the retrieval pack).
type Option func(*Config)

// WithAutoFrameSize overrides AutoFrameSize.
func WithAutoFrameSize(n int) Option { return func(c *Config) { c.AutoFrameSize = n } }

// WithMaxFrameSize overrides MaxFrameSize.
func WithMaxFrameSize(n int) Option { return func(c *Config) { c.MaxFrameSize = n } }

// WithMaxMsgSize overrides MaxMsgSize.
func WithMaxMsgSize(n int) Option { return func(c *Config) { c.MaxMsgSize = n } }

// WithHeartbeatPeriod overrides HeartbeatPeriod.
func WithHeartbeatPeriod(d time.Duration) Option {
	return func(c *Config) { c.HeartbeatPeriod = d }
}

// WithClosePeriod overrides ClosePeriod.
func WithClosePeriod(d time.Duration) Option { return func(c *Config) { c.ClosePeriod = d } }

// WithValidateUTF8 overrides ValidateUTF8.
func WithValidateUTF8(v bool) Option { return func(c *Config) { c.ValidateUTF8 = v } }

// WithTextOnly overrides TextOnly.
func WithTextOnly(v bool) Option { return func(c *Config) { c.TextOnly = v } }

// WithQueuedPingLimit overrides QueuedPingLimit.
func WithQueuedPingLimit(n int) Option { return func(c *Config) { c.QueuedPingLimit = n } }

// WithParserEmitThreshold overrides ParserEmitThreshold.
func WithParserEmitThreshold(n int) Option {
	return func(c *Config) { c.ParserEmitThreshold = n }
}

// WithRole overrides the masking Role.
func WithRole(r Role) Option { return func(c *Config) { c.Role = r } }

// NewConfig builds a Config from DefaultConfig with opts applied in order.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
