// Command quartet runs the audio separation and noise-cancellation engine
// over a WAV file, optionally serving the host bridge (websocket telemetry,
// Prometheus metrics, health probes) while processing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/quartet/internal/bridge"
	"github.com/MrWong99/quartet/internal/config"
	"github.com/MrWong99/quartet/internal/observe"
	"github.com/MrWong99/quartet/pkg/audio"
	"github.com/MrWong99/quartet/pkg/engine"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults apply when empty)")
	inPath := flag.String("in", "", "input WAV file to process (required)")
	outPath := flag.String("out", "", "output WAV file (omit to discard processed audio)")
	listenAddr := flag.String("listen", "", "bridge listen address (overrides server.listen_addr)")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "quartet: -in is required")
		flag.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "quartet: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
			} else {
				fmt.Fprintf(os.Stderr, "quartet: %v\n", err)
			}
			return 1
		}
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	// ── Input audio ───────────────────────────────────────────────────────────
	in, format, err := audio.ReadWAV(*inPath)
	if err != nil {
		slog.Error("failed to read input", "err", err)
		return 1
	}
	if format.SampleRate != cfg.Engine.SampleRate {
		slog.Warn("input sample rate differs from configuration, using the file's",
			"file", format.SampleRate, "config", cfg.Engine.SampleRate)
		cfg.Engine.SampleRate = format.SampleRate
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	eng := engine.New(
		engine.WithSampleRate(cfg.Engine.SampleRate),
		engine.WithBufferSize(cfg.Engine.BufferSize),
		engine.WithFFTSize(cfg.Engine.FFTSize),
		engine.WithQueueCapacity(cfg.Telemetry.QueueCapacity),
		engine.WithTelemetryIntervals(
			uint64(cfg.Telemetry.RealtimeInterval),
			uint64(cfg.Telemetry.StatsInterval),
		),
		engine.WithSettings(engine.Settings{
			Enabled:        true,
			ANCEnabled:     cfg.ANC.Enabled,
			ANCIntensity:   cfg.ANC.Intensity,
			VoiceThreshold: cfg.ANC.VoiceThreshold,
			AdaptiveMode:   cfg.ANC.Adaptive,
		}),
	)

	printStartupSummary(cfg, format, in.Samples())

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serving := cfg.Server.ListenAddr != ""
	g, ctx := errgroup.WithContext(ctx)

	// ── Bridge (optional) ─────────────────────────────────────────────────────
	if serving {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "quartet"})
		if err != nil {
			slog.Error("failed to initialise metrics provider", "err", err)
			return 1
		}
		defer func() {
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shCtx); err != nil {
				slog.Warn("metrics shutdown error", "err", err)
			}
		}()

		br := bridge.New(cfg.Server.ListenAddr, eng, nil)
		g.Go(func() error { return br.Run(ctx) })
	} else {
		// Offline runs still drain telemetry so the protocol is exercised
		// and the final summary has numbers.
		g.Go(func() error { return drainTelemetry(ctx, eng) })
	}

	// ── Processing ────────────────────────────────────────────────────────────
	g.Go(func() error {
		out, err := processFile(ctx, eng, in, cfg.Engine.BufferSize, serving)
		if err != nil {
			return err
		}
		if *outPath != "" {
			if err := audio.WriteWAV(*outPath, out, format); err != nil {
				return err
			}
			slog.Info("output written", "path", *outPath)
		}
		if serving {
			slog.Info("processing finished — bridge still serving, press Ctrl+C to exit")
			<-ctx.Done()
		}
		stop() // offline: all done, release the signal context
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// processFile drives the engine block by block over the input. When paced
// is set, blocks are fed at the real-time rate so bridge clients see a live
// stream; otherwise processing runs flat out.
func processFile(ctx context.Context, eng *engine.Engine, in audio.Block, blockSize int, paced bool) (audio.Block, error) {
	channels := in.Channels()
	total := in.Samples()
	out := audio.NewBlock(channels, total)

	var ticker *time.Ticker
	if paced {
		period := time.Duration(float64(blockSize) / float64(eng.SampleRate()) * float64(time.Second))
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	inView := make(audio.Block, channels)
	outView := make(audio.Block, channels)

	blocks := 0
	for off := 0; off < total; off += blockSize {
		end := off + blockSize
		if end > total {
			end = total
		}
		for ch := 0; ch < channels; ch++ {
			inView[ch] = in[ch][off:end]
			outView[ch] = out[ch][off:end]
		}
		eng.Process(inView, outView)
		blocks++

		if paced {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return out, ctx.Err()
		}
	}

	slog.Info("processing complete", "blocks", blocks, "samples", total, "channels", channels)
	return out, nil
}

// drainTelemetry consumes engine telemetry in offline mode and logs the
// periodic digests.
func drainTelemetry(ctx context.Context, eng *engine.Engine) error {
	snapshots, faults := 0, 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("telemetry summary",
				"snapshots", snapshots,
				"faults", faults,
				"dropped", eng.TelemetryDropped(),
			)
			return ctx.Err()
		case msg := <-eng.Telemetry():
			switch m := msg.(type) {
			case engine.Ready:
				slog.Info("engine ready", "sample_rate", m.SampleRate, "buffer_size", m.BufferSize)
			case engine.RealtimeData:
				snapshots++
			case engine.Stats:
				slog.Info("processing stats",
					"frames", m.FrameCount,
					"avg", m.AverageProcessingTime,
					"max", m.MaxProcessingTime,
					"cpu_pct", fmt.Sprintf("%.2f", m.EstimatedCPUUsage),
				)
			case engine.ProcessingError:
				faults++
				slog.Warn("processing fault", "message", m.Message)
			}
		}
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, format audio.Format, samples int) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          quartet — startup            ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Sample rate   : %-20d ║\n", cfg.Engine.SampleRate)
	fmt.Printf("║  Block size    : %-20d ║\n", cfg.Engine.BufferSize)
	fmt.Printf("║  FFT size      : %-20d ║\n", cfg.Engine.FFTSize)
	fmt.Printf("║  Channels      : %-20d ║\n", format.Channels)
	fmt.Printf("║  Input samples : %-20d ║\n", samples)
	fmt.Printf("║  ANC           : %-20s ║\n", ancSummary(cfg.ANC))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Bridge        : %-20s ║\n", cfg.Server.ListenAddr)
	} else {
		fmt.Printf("║  Bridge        : %-20s ║\n", "(offline)")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func ancSummary(anc config.ANCConfig) string {
	if !anc.Enabled {
		return "disabled"
	}
	mode := "static"
	if anc.Adaptive {
		mode = "adaptive"
	}
	return fmt.Sprintf("%s @ %.2f", mode, anc.Intensity)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
