package bridge

import (
	"sync"
	"sync/atomic"
)

// clientBufferSize bounds each subscriber's outbound queue. A client that
// cannot keep up loses messages rather than slowing the drain loop — the
// same policy the engine applies to the bridge itself.
const clientBufferSize = 32

// hub fans telemetry frames out to websocket subscribers.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	dropped atomic.Uint64
}

// client is one websocket subscriber's outbound queue.
type client struct {
	frames chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

// subscribe registers a new client and returns it. The caller must
// unsubscribe when the connection ends.
func (h *hub) subscribe() *client {
	c := &client{frames: make(chan []byte, clientBufferSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// unsubscribe removes c and drains its queue so the writer goroutine can
// exit promptly.
func (h *hub) unsubscribe(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.frames)
}

// broadcast delivers frame to every subscriber without blocking. Slow
// subscribers drop the frame.
func (h *hub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.frames <- frame:
		default:
			h.dropped.Add(1)
		}
	}
}

// count returns the number of attached subscribers.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
