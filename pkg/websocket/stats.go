package websocket

import (
	"sync/atomic"
	"time"
)

// Stats holds plain running counters for one Endpoint, per spec.md §3. Every
// field is updated only from the Endpoint's run loop and read via GetInfo.
// The byte and frame counts (BytesRead/FramesRead, BytesSent/FramesSent) are
// filled in from statsCounters by GetInfo instead, since the write pump (a
// separate goroutine) is what learns a write succeeded.
type Stats struct {
	BytesRead    int64
	BytesSent    int64
	FramesRead   int64
	FramesSent   int64
	MessagesRead int64
	MessagesSent int64

	ConnectedAt    time.Time
	ClosedAt       time.Time
	LastReadAt     time.Time
	LastSentAt     time.Time
	LastDataReadAt time.Time
	LastDataSentAt time.Time
}

// statsCounters are the byte and frame counts of Stats, kept atomic because
// the write pump increments the sent counts concurrently with the run loop
// (which increments the read counts); Endpoint.GetInfo snapshots them into a
// Stats value on request.
type statsCounters struct {
	bytesRead  atomic.Int64
	bytesSent  atomic.Int64
	framesRead atomic.Int64
	framesSent atomic.Int64
}

func (c *statsCounters) addRead(frames int, bytes int) {
	c.framesRead.Add(int64(frames))
	c.bytesRead.Add(int64(bytes))
}

func (c *statsCounters) addSent(bytes int) {
	c.framesSent.Add(1)
	c.bytesSent.Add(int64(bytes))
}

func (c *statsCounters) snapshot() (bytesRead, bytesSent int64, framesRead, framesSent int64) {
	return c.bytesRead.Load(), c.bytesSent.Load(), c.framesRead.Load(), c.framesSent.Load()
}
