//go:build cgo
// +build cgo

package highlight

import (
	"fmt"

	"gocv.io/x/gocv"
)

// gocvSink implements Sink over gocv.VideoWriter.
type gocvSink struct {
	path   string
	writer *gocv.VideoWriter
}

// NewGoCVSink creates a Sink that writes to path. The writer itself is
// opened lazily on the first frame (Init), once resolution and framerate
// are known.
func NewGoCVSink(path string) Sink {
	return &gocvSink{path: path}
}

func (s *gocvSink) Init(width, height int, fps float64) error {
	writer, err := gocv.VideoWriterFile(s.path, "mp4v", fps, width, height, true)
	if err != nil {
		return fmt.Errorf("opening output sink %q: %w", s.path, err)
	}
	s.writer = writer
	return nil
}

func (s *gocvSink) Write(frame Frame) error {
	mat, ok := FrameMat(frame)
	if !ok || mat == nil || mat.Empty() {
		return fmt.Errorf("writer: frame %d has no backing mat", frame.CameraID)
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(*mat, &bgr, gocv.ColorRGBToBGR)

	return s.writer.Write(bgr)
}

func (s *gocvSink) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
