package highlight

import "testing"

func defaultStickyConfig() StickyConfig {
	return StickyConfig{
		TauExcludeOverride: 0.85,
		TauStatLow:         0.40,
		DeltaStat:          8,
		DeltaJump:          60,
		IotaMin:            0.1,
		TauGate:            0.35,
		NStatSeconds:       3, // at 30fps -> 90 frames
		HMaxSeconds:        1, // at 30fps -> 30 frames
		SuspectConfirmSec:  1.0 / 30,
		Alpha:              0.5,
	}
}

func newTestSticky() *StickyTracker {
	s := NewStickyTracker(0, defaultStickyConfig())
	s.SetFPS(30)
	return s
}

func TestStickyAcceptsConfidentDetection(t *testing.T) {
	s := newTestSticky()
	out := s.Update(Detection{Box: BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, Center: Point{X: 15, Y: 15}, Conf: 0.8}, 640, 480)
	if out.Origin != OriginAccepted {
		t.Errorf("expected accepted, got %v", out.Origin)
	}
	if out.HoldAge != 0 || out.MissStreak != 0 {
		t.Errorf("expected zeroed counters on accept, got hold=%d miss=%d", out.HoldAge, out.MissStreak)
	}
}

func TestStickyHoldsBelowConfidenceGate(t *testing.T) {
	s := newTestSticky()
	s.Update(Detection{Box: BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, Center: Point{X: 15, Y: 15}, Conf: 0.8}, 640, 480)

	out := s.Update(Detection{Box: BBox{X1: 12, Y1: 12, X2: 22, Y2: 22}, Center: Point{X: 17, Y: 17}, Conf: 0.1}, 640, 480)
	if out.Origin != OriginNone && out.HoldAge == 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Box != (BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}) {
		t.Errorf("expected held outcome to carry last accepted bbox, got %+v", out.Box)
	}
	if out.HoldAge != 1 {
		t.Errorf("expected hold_age=1, got %d", out.HoldAge)
	}
}

func TestStickyEmitsNoneAfterHoldBudgetExhausted(t *testing.T) {
	s := newTestSticky()
	s.Update(Detection{Box: BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, Center: Point{X: 15, Y: 15}, Conf: 0.8}, 640, 480)

	var last StickyOutcome
	for i := 0; i < 40; i++ {
		last = s.Update(Detection{}, 640, 480)
	}
	if last.Origin != OriginNone {
		t.Errorf("expected none after hold budget exhausted, got %v", last.Origin)
	}
	if last.MissStreak == 0 {
		t.Error("expected miss_streak to be incrementing")
	}
}

func TestStickyExclusionZoneRejection(t *testing.T) {
	cfg := defaultStickyConfig()
	cfg.ExclusionZones = map[int][]Zone{0: {{Label: ZoneNone, X1: 0, Y1: 0, X2: 0.2, Y2: 0.2}}}
	s := NewStickyTracker(0, cfg)
	s.SetFPS(30)

	out := s.Update(Detection{Box: BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, Center: Point{X: 15, Y: 15}, Conf: 0.5}, 100, 100)
	if out.Origin != OriginRejectedExclusion && out.Origin != OriginNone {
		t.Errorf("expected rejected_exclusion (or none with no prior), got %v", out.Origin)
	}
}

func TestStickyExclusionOverrideByHighConfidence(t *testing.T) {
	cfg := defaultStickyConfig()
	cfg.ExclusionZones = map[int][]Zone{0: {{Label: ZoneNone, X1: 0, Y1: 0, X2: 0.2, Y2: 0.2}}}
	s := NewStickyTracker(0, cfg)
	s.SetFPS(30)

	out := s.Update(Detection{Box: BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, Center: Point{X: 15, Y: 15}, Conf: 0.9}, 100, 100)
	if out.Origin != OriginAccepted {
		t.Errorf("expected override by confidence above tau_exclude_override, got %v", out.Origin)
	}
}

func TestStickyJumpGateRequiresConfirmation(t *testing.T) {
	s := newTestSticky()
	s.Update(Detection{Box: BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, Center: Point{X: 15, Y: 15}, Conf: 0.8}, 640, 480)

	jumpDet := Detection{Box: BBox{X1: 200, Y1: 200, X2: 210, Y2: 210}, Center: Point{X: 205, Y: 205}, Conf: 0.8}
	first := s.Update(jumpDet, 640, 480)
	if first.Origin != OriginConfirming && first.Origin != OriginRejectedExclusion {
		t.Fatalf("expected suspect/confirming on first jump, got %v", first.Origin)
	}

	second := s.Update(jumpDet, 640, 480)
	if second.Origin != OriginAccepted {
		t.Errorf("expected confirmed jump to be accepted, got %v", second.Origin)
	}
}

func TestStickyStationaryLowConfidenceRejected(t *testing.T) {
	cfg := defaultStickyConfig()
	cfg.NStatSeconds = 2.0 / 30 // 2 frames for a fast test
	s := NewStickyTracker(0, cfg)
	s.SetFPS(30)

	// 0.38 passes the 0.35 gate (so the first frame is accepted into the
	// history) but sits below tau_stat_low 0.40.
	det := Detection{Box: BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, Center: Point{X: 15, Y: 15}, Conf: 0.38}
	s.Update(det, 640, 480)
	s.Update(det, 640, 480)
	out := s.Update(det, 640, 480)

	if out.Origin != OriginRejectedStationary {
		t.Errorf("expected rejected_stationary for consistently low confidence, got %v", out.Origin)
	}
}

func TestStickyStationaryHighConfidencePasses(t *testing.T) {
	cfg := defaultStickyConfig()
	cfg.NStatSeconds = 2.0 / 30
	s := NewStickyTracker(0, cfg)
	s.SetFPS(30)

	det := Detection{Box: BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, Center: Point{X: 15, Y: 15}, Conf: 0.75}
	s.Update(det, 640, 480)
	s.Update(det, 640, 480)
	out := s.Update(det, 640, 480)

	if out.Origin != OriginAccepted {
		t.Errorf("legitimate set-piece (high confidence, stationary) must still be accepted, got %v", out.Origin)
	}
}

func TestStickyNotifyCameraChangeResetsState(t *testing.T) {
	s := newTestSticky()
	s.Update(Detection{Box: BBox{X1: 10, Y1: 10, X2: 20, Y2: 20}, Center: Point{X: 15, Y: 15}, Conf: 0.8}, 640, 480)

	s.NotifyCameraChange(1)

	out := s.Update(Detection{}, 640, 480)
	if out.Origin != OriginNone || out.HoldAge != 0 {
		t.Errorf("expected fresh state after camera change, got %+v", out)
	}
}

func TestStickyFoundHelper(t *testing.T) {
	out := StickyOutcome{Detection: Detection{Conf: 0.8}, Origin: OriginAccepted}
	if !out.Found(0.5) {
		t.Error("expected Found to be true for accepted outcome above threshold")
	}
	if out.Found(0.9) {
		t.Error("expected Found to be false when confidence below threshold")
	}
}
