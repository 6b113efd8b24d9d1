//go:build cgo
// +build cgo

package highlight

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// StreamSource is the Orchestrator's abstraction over one camera's video
// file/URL handle. Implementations must be safe to Seek (hard-sync) between
// any two Read calls. Each StreamSource opens one pre-recorded, pre-aligned
// file or URL and exposes its true decoder position so the Orchestrator can
// derive t_ref from it rather than from an internal counter.
type StreamSource interface {
	// Open initializes the underlying decoder for the given source.
	Open(source string) error
	// Read decodes the next frame. TimelineIndex on the returned Frame is
	// the decoder's true position after the read, not a counter.
	Read() (Frame, error)
	// Seek hard-syncs the decoder to an absolute frame index.
	Seek(index int64) error
	// Position returns the decoder's true current frame index.
	Position() (int64, error)
	// FPS returns the stream's observed frame rate.
	FPS() float64
	// Close releases decoder resources. Safe to call multiple times.
	Close() error
}

// gocvStream implements StreamSource using gocv.VideoCapture. A single
// mutex guards all decoder operations, and every Read/Seek creates or
// reuses a scratch gocv.Mat rather than leaking one across calls.
type gocvStream struct {
	mu sync.Mutex

	cameraID int
	source   string
	fps      float64

	cap    *gocv.VideoCapture
	scratch gocv.Mat
	opened bool
}

// NewGoCVStream creates a stream source for the given camera id. Open must
// be called before Read/Seek.
func NewGoCVStream(cameraID int) StreamSource {
	return &gocvStream{cameraID: cameraID, scratch: gocv.NewMat()}
}

func (s *gocvStream) Open(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return &RunError{Kind: KindIO, Wrapped: fmt.Errorf("stream %d already opened", s.cameraID)}
	}

	cap, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return &RunError{Kind: KindIO, Wrapped: fmt.Errorf("opening stream %d (%s): %w", s.cameraID, source, err)}
	}
	if !cap.IsOpened() {
		cap.Close()
		return &RunError{Kind: KindIO, Wrapped: fmt.Errorf("stream %d (%s) not available", s.cameraID, source)}
	}

	s.source = source
	s.fps = cap.Get(gocv.VideoCaptureFPS)
	s.cap = cap
	s.opened = true
	return nil
}

// Read decodes the next frame and converts it to RGB (OpenCV decodes BGR by
// default; the rest of this package, including the pitch mask's HSV
// conversion, assumes RGB).
func (s *gocvStream) Read() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return Frame{}, &RunError{Kind: KindIO, Wrapped: fmt.Errorf("stream %d not opened", s.cameraID)}
	}

	if ok := s.cap.Read(&s.scratch); !ok || s.scratch.Empty() {
		return Frame{}, &RunError{Kind: KindIO, Wrapped: fmt.Errorf("stream %d: read failed or frame empty", s.cameraID)}
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(s.scratch, &rgb, gocv.ColorBGRToRGB) //nolint:errcheck // CvtColor has no error return

	pos := int64(s.cap.Get(gocv.VideoCapturePosFrames))

	return Frame{
		CameraID:      s.cameraID,
		TimelineIndex: pos,
		Pixels: FramePixels{
			Width:  rgb.Cols(),
			Height: rgb.Rows(),
			Handle: &rgb,
		},
	}, nil
}

// Seek hard-syncs the decoder to an absolute frame index (spec's "hard
// sync": the true position equals the requested index after this call
// returns, which the Orchestrator's pre-flight depends on).
func (s *gocvStream) Seek(index int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return &RunError{Kind: KindIO, Wrapped: fmt.Errorf("stream %d not opened", s.cameraID)}
	}
	if ok := s.cap.Set(gocv.VideoCapturePosFrames, float64(index)); !ok {
		return &RunError{Kind: KindIO, Wrapped: fmt.Errorf("stream %d: seek to %d failed", s.cameraID, index)}
	}
	return nil
}

func (s *gocvStream) Position() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return 0, &RunError{Kind: KindIO, Wrapped: fmt.Errorf("stream %d not opened", s.cameraID)}
	}
	return int64(s.cap.Get(gocv.VideoCapturePosFrames)), nil
}

func (s *gocvStream) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *gocvStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}
	s.scratch.Close()
	err := s.cap.Close()
	s.opened = false
	if err != nil {
		return &RunError{Kind: KindIO, Wrapped: fmt.Errorf("closing stream %d: %w", s.cameraID, err)}
	}
	return nil
}

// FrameMat extracts the underlying gocv.Mat from a Frame produced by
// gocvStream, for components (Detector backend, Writer, debug preview) that
// need direct pixel access. Returns false if the frame wasn't produced by a
// gocv-backed StreamSource.
func FrameMat(f Frame) (*gocv.Mat, bool) {
	m, ok := f.Pixels.Handle.(*gocv.Mat)
	return m, ok
}
