package highlight

import (
	"context"
	"testing"
)

type fakePhase0Stream struct {
	id      int
	frames  []Candidate // one entry per Read call; only the count matters, detections come from the backend
	readIdx int
}

func (f *fakePhase0Stream) CameraID() int { return f.id }
func (f *fakePhase0Stream) Read(ctx context.Context) (Frame, error) {
	if f.readIdx >= len(f.frames) {
		return Frame{}, errBoom{}
	}
	f.readIdx++
	return Frame{CameraID: f.id, TimelineIndex: int64(f.readIdx)}, nil
}

func TestRunPhase0NoStreamsErrors(t *testing.T) {
	detector := NewDetector(&StaticBackend{}, nil, DetectorConfig{})
	_, err := RunPhase0(context.Background(), nil, detector, Phase0Config{NScan: 10})
	if err == nil {
		t.Error("expected an error with zero streams")
	}
}

func TestRunPhase0SelectsArgmaxByValidDetections(t *testing.T) {
	backend := &scriptedCameraBackend{
		byCamera: map[int][]BackendResult{
			0: {{Candidates: nil}, {Candidates: nil}},
			1: {
				{Candidates: []Candidate{{Box: BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Conf: 0.6, Class: "ball"}}},
				{Candidates: []Candidate{{Box: BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Conf: 0.7, Class: "ball"}}},
			},
		},
	}
	detector := NewDetector(backend, nil, DetectorConfig{TauConf: 0.3, TauHigh: 0.7, DeltaMax: 150, BallClass: "ball"})

	s0 := &fakePhase0Stream{id: 0, frames: []Candidate{{}, {}}}
	s1 := &fakePhase0Stream{id: 1, frames: []Candidate{{}, {}}}

	best, err := RunPhase0(context.Background(), []Phase0Stream{s0, s1}, detector, Phase0Config{NScan: 2})
	if err != nil {
		t.Fatalf("RunPhase0: %v", err)
	}
	if best != 1 {
		t.Errorf("expected camera 1 (more valid detections) to win Phase 0, got %d", best)
	}
}

// scriptedCameraBackend returns results keyed by the frame's camera id, so
// each candidate stream in a Phase0 scan gets its own scripted sequence.
type scriptedCameraBackend struct {
	byCamera map[int][]BackendResult
	calls    map[int]int
}

func (b *scriptedCameraBackend) Infer(frame Frame) ([]Candidate, error) {
	if b.calls == nil {
		b.calls = map[int]int{}
	}
	results := b.byCamera[frame.CameraID]
	idx := b.calls[frame.CameraID]
	b.calls[frame.CameraID]++
	if idx >= len(results) {
		return nil, nil
	}
	return results[idx].Candidates, results[idx].Err
}
