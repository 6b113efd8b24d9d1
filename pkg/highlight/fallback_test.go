package highlight

import (
	"context"
	"testing"
)

func defaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		TFbSec:        1,
		DProx:         0.15,
		KSame:         3,
		KAlt:          4,
		Rho:           0.5,
		TimeWindowSec: 2,
		AMax:          5,
		PSec:          1,
		CMax:          3,
		OnePerTick:    false,
	}
}

type fakeCandidateStream struct {
	id   int
	box  BBox
	conf float64
	err  error
}

func (f *fakeCandidateStream) CameraID() int { return f.id }
func (f *fakeCandidateStream) SyncAndRead(ctx context.Context, tRef int64) (Frame, error) {
	if f.err != nil {
		return Frame{}, f.err
	}
	return Frame{CameraID: f.id, TimelineIndex: tRef, Pixels: FramePixels{Width: 640, Height: 480}}, nil
}

func TestPassesSanityAcceptsInBoundsBox(t *testing.T) {
	box := BBox{X1: 100, Y1: 100, X2: 120, Y2: 120} // 20x20
	if !passesSanity(box, 640, 480, defaultSanityBounds()) {
		t.Error("expected a 20x20 box to pass sanity bounds")
	}
}

func TestPassesSanityRejectsTooLarge(t *testing.T) {
	box := BBox{X1: 0, Y1: 0, X2: 400, Y2: 400}
	if passesSanity(box, 640, 480, defaultSanityBounds()) {
		t.Error("expected an oversized box to fail sanity bounds")
	}
}

func TestPassesSanityRejectsBadAspect(t *testing.T) {
	box := BBox{X1: 0, Y1: 0, X2: 10, Y2: 100} // very tall, thin
	if passesSanity(box, 640, 480, defaultSanityBounds()) {
		t.Error("expected a thin box to fail aspect-ratio bounds")
	}
}

func TestFallbackShouldTriggerRequiresMissStreakAndProximity(t *testing.T) {
	f := NewFallbackScanner(nil, defaultFallbackConfig())
	f.SetFPS(30)

	zones := []Zone{{Label: ZoneRight, X1: 0.85, Y1: 0, X2: 1, Y2: 1}}

	if f.ShouldTrigger(40, 30, false, Point{X: 0.5, Y: 0.5}, zones) {
		t.Error("expected no trigger when far from any zone even with high miss streak")
	}
	if f.ShouldTrigger(10, 30, false, Point{X: 0.9, Y: 0.5}, zones) {
		t.Error("expected no trigger when miss streak below threshold despite proximity")
	}
	if !f.ShouldTrigger(40, 30, false, Point{X: 0.9, Y: 0.5}, zones) {
		t.Error("expected trigger when miss streak exceeds threshold and near a zone")
	}
}

func TestFallbackShouldNotTriggerDuringCooldown(t *testing.T) {
	f := NewFallbackScanner(nil, defaultFallbackConfig())
	f.SetFPS(30)
	zones := []Zone{{Label: ZoneRight, X1: 0.85, Y1: 0, X2: 1, Y2: 1}}

	if f.ShouldTrigger(40, 30, true, Point{X: 0.9, Y: 0.5}, zones) {
		t.Error("expected no trigger during cooldown")
	}
}

func TestFallbackProbeConfirmsSameCandidate(t *testing.T) {
	backend := &StaticBackend{Candidates: []Candidate{
		{Box: BBox{X1: 100, Y1: 100, X2: 120, Y2: 120}, Conf: 0.5, Class: "ball"},
	}}
	detector := NewDetector(backend, nil, DetectorConfig{TauConf: 0.3, TauHigh: 0.7, DeltaMax: 150, BallClass: "ball"})
	f := NewFallbackScanner(detector, defaultFallbackConfig())
	f.SetFPS(30)

	streams := []CandidateStream{&fakeCandidateStream{id: 1, box: BBox{X1: 100, Y1: 100, X2: 120, Y2: 120}, conf: 0.5}}

	var confirmedCam int
	var confirmed bool
	for i := 0; i < 3; i++ {
		cam, ok, err := f.Probe(context.Background(), streams, int64(i))
		if err != nil {
			t.Fatalf("Probe: %v", err)
		}
		if ok {
			confirmedCam, confirmed = cam, true
			break
		}
	}
	if !confirmed {
		t.Fatal("expected confirmation after K_same repeated hits on the same candidate")
	}
	if confirmedCam != 1 {
		t.Errorf("expected confirmed camera 1, got %d", confirmedCam)
	}
}

func TestFallbackProbeRejectsInsaneCandidates(t *testing.T) {
	backend := &StaticBackend{Candidates: []Candidate{
		{Box: BBox{X1: 0, Y1: 0, X2: 600, Y2: 400}, Conf: 0.9, Class: "ball"}, // way too large
	}}
	detector := NewDetector(backend, nil, DetectorConfig{TauConf: 0.3, TauHigh: 0.7, DeltaMax: 150, BallClass: "ball"})
	f := NewFallbackScanner(detector, defaultFallbackConfig())
	f.SetFPS(30)

	streams := []CandidateStream{&fakeCandidateStream{id: 1}}

	for i := 0; i < 5; i++ {
		_, ok, err := f.Probe(context.Background(), streams, int64(i))
		if err != nil {
			t.Fatalf("Probe: %v", err)
		}
		if ok {
			t.Fatal("expected no confirmation from candidates failing sanity checks")
		}
	}
}

func TestFallbackSuppressesAfterCMaxPauseCycles(t *testing.T) {
	backend := &StaticBackend{} // never returns a candidate
	detector := NewDetector(backend, nil, DetectorConfig{TauConf: 0.3, TauHigh: 0.7, DeltaMax: 150, BallClass: "ball"})
	cfg := defaultFallbackConfig()
	cfg.AMax = 2
	cfg.CMax = 2
	cfg.PSec = 0
	f := NewFallbackScanner(detector, cfg)
	f.SetFPS(30)

	streams := []CandidateStream{&fakeCandidateStream{id: 1}}

	for i := 0; i < 10; i++ {
		f.Probe(context.Background(), streams, int64(i))
	}

	zones := []Zone{{Label: ZoneRight, X1: 0.85, Y1: 0, X2: 1, Y2: 1}}
	if f.ShouldTrigger(100, 30, false, Point{X: 0.9, Y: 0.5}, zones) {
		t.Error("expected fallback to be suppressed after C_max pause cycles")
	}
}

func TestFallbackReactivateClearsSuppression(t *testing.T) {
	f := NewFallbackScanner(nil, defaultFallbackConfig())
	f.SetFPS(30)
	f.suppressed = true

	f.Reactivate()

	zones := []Zone{{Label: ZoneRight, X1: 0.85, Y1: 0, X2: 1, Y2: 1}}
	if !f.ShouldTrigger(40, 30, false, Point{X: 0.9, Y: 0.5}, zones) {
		t.Error("expected ShouldTrigger to work again after Reactivate")
	}
}
