package highlight

import (
	"sync"
	"time"
)

// WriterConfig bundles the Writer's pacing inputs (spec §4.5).
type WriterConfig struct {
	Duration    time.Duration
	OutputFPS   float64
	FallbackFPS float64 // used if the initial stream's FPS is unusable
}

// Sink is the output video sink the Writer appends frames to. Implemented
// by gocvSink (writer_gocv.go) over gocv.VideoWriter; a recording test sink
// lives in writer_test.go.
type Sink interface {
	// Init lazily initializes the sink on the first frame, so resolution and
	// pixel format match the stream (spec §4.5).
	Init(width, height int, fps float64) error
	// Write appends one frame.
	Write(frame Frame) error
	// Close finalizes the sink.
	Close() error
}

// Writer implements deterministic frame pacing to a fixed duration (spec
// §4.5): elapsed wall-clock time never influences stopping, only the
// written frame count does.
type Writer struct {
	mu sync.Mutex

	sink Sink
	fOut float64

	nTarget  int64
	written  int64
	initDone bool

	startedAt time.Time
}

// NewWriter computes N_target = floor(D * f_out) up front (spec §4.5).
// f_out is the first positive value of cfg.OutputFPS, streamFPS and
// cfg.FallbackFPS, or 30 if none is positive.
func NewWriter(sink Sink, cfg WriterConfig, streamFPS float64) *Writer {
	fOut := cfg.OutputFPS
	if fOut <= 0 {
		fOut = streamFPS
	}
	if fOut <= 0 {
		fOut = cfg.FallbackFPS
	}
	if fOut <= 0 {
		fOut = 30
	}

	nTarget := int64(cfg.Duration.Seconds() * fOut)

	return &Writer{sink: sink, fOut: fOut, nTarget: nTarget, startedAt: time.Now()}
}

// WriteFrame appends frame if the target frame count hasn't been reached.
// Returns false once the run should stop (caller must not write further
// frames and should finalize).
func (w *Writer) WriteFrame(frame Frame) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written >= w.nTarget {
		return false, nil
	}

	if !w.initDone {
		if err := w.sink.Init(frame.Pixels.Width, frame.Pixels.Height, w.fOut); err != nil {
			return false, &RunError{Kind: KindIO, TRef: frame.TimelineIndex, Wrapped: err}
		}
		w.initDone = true
	}

	if err := w.sink.Write(frame); err != nil {
		return false, &RunError{Kind: KindIO, TRef: frame.TimelineIndex, Wrapped: err}
	}
	w.written++

	return w.written < w.nTarget, nil
}

// Written returns the number of frames written so far.
func (w *Writer) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// NTarget returns the precomputed target frame count.
func (w *Writer) NTarget() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nTarget
}

// DurationWritten returns written / f_out, the actual output duration.
func (w *Writer) DurationWritten() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fOut <= 0 {
		return 0
	}
	return time.Duration(float64(w.written) / w.fOut * float64(time.Second))
}

// ProcessingTime returns wall-clock elapsed since the writer was created.
// Reported for diagnostics only; it never influences stopping (spec §4.5).
func (w *Writer) ProcessingTime() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Since(w.startedAt)
}

// Finalize closes the sink. Safe to call once the run has ended on any exit
// path.
func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.initDone {
		return nil
	}
	if err := w.sink.Close(); err != nil {
		return &RunError{Kind: KindIO, Wrapped: err}
	}
	return nil
}
