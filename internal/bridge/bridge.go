// Package bridge implements the non-real-time host side of the quartet
// message protocol: an HTTP server exposing Prometheus metrics and health
// probes, and a websocket endpoint that streams engine telemetry out to UI
// clients and forwards their control messages into the engine's inbox.
//
// The bridge only ever touches the engine through its two queues. It never
// blocks the processing goroutine: the telemetry channel is drained
// continuously, and per-client fan-out drops frames for slow consumers.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/quartet/internal/health"
	"github.com/MrWong99/quartet/internal/observe"
	"github.com/MrWong99/quartet/pkg/engine"
)

// shutdownTimeout bounds graceful HTTP shutdown once Run's context ends;
// writeTimeout bounds a single websocket frame write so a stalled client
// cannot wedge its writer goroutine.
const (
	shutdownTimeout = 5 * time.Second
	writeTimeout    = 5 * time.Second
)

// Server is the host bridge. Construct with [New], start with [Server.Run].
type Server struct {
	addr    string
	eng     *engine.Engine
	metrics *observe.Metrics
	hub     *hub

	ready         atomic.Bool   // set once the engine's Ready message arrives
	lastDropped   uint64        // previous TelemetryDropped reading
	lastFrames    uint64        // frame count at the previous stats digest
	drainStopped  chan struct{} // closed when the drain loop exits
}

// New creates a bridge for eng listening on addr. metrics may be nil, in
// which case [observe.DefaultMetrics] is used.
func New(addr string, eng *engine.Engine, metrics *observe.Metrics) *Server {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Server{
		addr:         addr,
		eng:          eng,
		metrics:      metrics,
		hub:          newHub(),
		drainStopped: make(chan struct{}),
	}
}

// Run serves HTTP and drains engine telemetry until ctx is cancelled.
// Always returns a non-nil error; context.Canceled signals a clean stop.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", s.handleWS)

	probes := health.New()
	probes.Add("engine", s.checkEngineReady)
	probes.Add("telemetry_drain", s.checkDrain)
	probes.Register(mux)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.drain(ctx)
		return ctx.Err()
	})

	g.Go(func() error {
		slog.Info("bridge listening", "addr", s.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("bridge: shutdown: %w", err)
		}
		return ctx.Err()
	})

	return g.Wait()
}

// drain consumes the engine's telemetry channel, records metrics, and fans
// frames out to websocket subscribers. This is the only reader of the
// engine outbox.
func (s *Server) drain(ctx context.Context) {
	defer close(s.drainStopped)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.eng.Telemetry():
			if !ok {
				return
			}
			s.observe(ctx, msg)

			frame, err := encodeTelemetry(msg)
			if err != nil {
				slog.Warn("bridge: dropping unencodable telemetry", "err", err)
				continue
			}
			s.hub.broadcast(frame)
		}
	}
}

// observe records the metric view of one telemetry message.
func (s *Server) observe(ctx context.Context, msg engine.Message) {
	switch m := msg.(type) {
	case engine.Ready:
		s.ready.Store(true)
		slog.Info("engine ready", "sample_rate", m.SampleRate, "buffer_size", m.BufferSize)
	case engine.RealtimeData:
		s.metrics.RecordSnapshot(ctx, m.Voice.Voiced)
	case engine.Stats:
		s.metrics.BlockDuration.Record(ctx, m.AverageProcessingTime.Seconds())
		if m.FrameCount > s.lastFrames {
			s.metrics.BlocksProcessed.Add(ctx, int64(m.FrameCount-s.lastFrames))
			s.lastFrames = m.FrameCount
		}
		s.metrics.EstimatedCPUUsage.Record(ctx, m.EstimatedCPUUsage)
		if dropped := s.eng.TelemetryDropped(); dropped > s.lastDropped {
			s.metrics.TelemetryDropped.Add(ctx, int64(dropped-s.lastDropped))
			s.lastDropped = dropped
		}
	case engine.ProcessingError:
		s.metrics.ProcessingErrors.Add(ctx, 1)
		slog.Warn("engine processing fault", "message", m.Message)
	}
}

// checkEngineReady passes once the engine has announced itself.
func (s *Server) checkEngineReady(context.Context) error {
	if !s.ready.Load() {
		return errors.New("engine has not published Ready")
	}
	return nil
}

// checkDrain passes while the telemetry drain loop is still running.
func (s *Server) checkDrain(context.Context) error {
	select {
	case <-s.drainStopped:
		return errors.New("telemetry drain stopped")
	default:
		return nil
	}
}

// handleWS upgrades the connection, subscribes it to the telemetry fan-out,
// and forwards its inbound control envelopes to the engine inbox.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("bridge: websocket accept failed", "err", err)
		return
	}

	ctx := r.Context()
	c := s.hub.subscribe()
	s.metrics.ConnectedClients.Add(ctx, 1)
	slog.Debug("bridge: client connected", "clients", s.hub.count())

	// Writer: telemetry frames out. Exits when the subscription is closed
	// or the connection dies.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for frame := range c.frames {
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}()

	// Reader: control envelopes in. TrySend keeps the inbox contract — a
	// full queue discards, it never stalls the socket.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		msg, err := decodeControl(data)
		if err != nil {
			slog.Debug("bridge: rejecting control message", "err", err)
			continue
		}
		if !s.eng.Control().TrySend(msg) {
			slog.Warn("bridge: control inbox full, message discarded")
		}
	}

	// Unsubscribing closes the frame queue, which releases the writer.
	s.hub.unsubscribe(c)
	<-writeDone
	s.metrics.ConnectedClients.Add(context.Background(), -1)
	conn.Close(websocket.StatusNormalClosure, "")
}
