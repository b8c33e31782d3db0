package engine

import "sync/atomic"

// Bounded, non-blocking message queues connecting the real-time engine to
// the host. Both directions are single-producer: the host writes the inbox,
// the engine writes the outbox. Neither endpoint ever blocks — the inbox
// rejects on overflow, the outbox drops its oldest message.

// DefaultQueueCapacity is the buffer size of both queues unless overridden
// via [WithQueueCapacity].
const DefaultQueueCapacity = 64

// Inbox is the host-facing control queue. Safe for a single host goroutine
// to send on while the engine drains it between blocks.
type Inbox struct {
	ch chan ControlMessage
}

func newInbox(capacity int) *Inbox {
	return &Inbox{ch: make(chan ControlMessage, capacity)}
}

// TrySend enqueues msg without blocking. Returns false if the queue is
// full, in which case the message is discarded — the host should clamp and
// retry on its own schedule rather than stall.
func (in *Inbox) TrySend(msg ControlMessage) bool {
	select {
	case in.ch <- msg:
		return true
	default:
		return false
	}
}

// tryRecv dequeues the next pending message, if any. Engine side only.
func (in *Inbox) tryRecv() (ControlMessage, bool) {
	select {
	case msg := <-in.ch:
		return msg, true
	default:
		return nil, false
	}
}

// Outbox is the engine-facing telemetry queue. The engine publishes with
// drop-oldest semantics; the host consumes via [Outbox.Receive].
type Outbox struct {
	ch      chan Message
	dropped atomic.Uint64
}

func newOutbox(capacity int) *Outbox {
	return &Outbox{ch: make(chan Message, capacity)}
}

// Receive returns the channel the host reads telemetry from.
func (o *Outbox) Receive() <-chan Message {
	return o.ch
}

// Dropped returns the number of messages discarded because the host fell
// behind. Diagnostic only.
func (o *Outbox) Dropped() uint64 {
	return o.dropped.Load()
}

// publish enqueues msg, evicting the oldest queued message when full.
// Never blocks. Engine side only — single writer, so the evict-then-send
// loop always terminates.
func (o *Outbox) publish(msg Message) {
	for {
		select {
		case o.ch <- msg:
			return
		default:
		}
		select {
		case <-o.ch:
			o.dropped.Add(1)
		default:
		}
	}
}
