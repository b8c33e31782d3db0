package engine

import "time"

// statsWindowCap bounds the rolling window of per-block processing
// durations. Once full, the oldest observation is overwritten.
const statsWindowCap = 100

// statsWindow is a fixed-capacity ring of block-processing durations owned
// by the engine goroutine. No synchronisation: digests leave the engine as
// value-typed telemetry messages.
type statsWindow struct {
	durations [statsWindowCap]time.Duration
	next      int
	count     int
}

func (w *statsWindow) record(d time.Duration) {
	w.durations[w.next] = d
	w.next = (w.next + 1) % statsWindowCap
	if w.count < statsWindowCap {
		w.count++
	}
}

// digest returns the mean and maximum duration over the current window
// contents. A zero count yields zero values.
func (w *statsWindow) digest() (mean, max time.Duration) {
	if w.count == 0 {
		return 0, 0
	}
	var sum time.Duration
	for i := 0; i < w.count; i++ {
		d := w.durations[i]
		sum += d
		if d > max {
			max = d
		}
	}
	return sum / time.Duration(w.count), max
}

// reset clears the window. Called after each stats digest is emitted so
// successive digests cover disjoint spans.
func (w *statsWindow) reset() {
	w.next = 0
	w.count = 0
}
