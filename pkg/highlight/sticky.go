package highlight

import "sync"

// StickyConfig bundles the Sticky Tracker's thresholds (spec §4.2, §6.4).
// Count-like fields (NStatSeconds, HMaxSeconds, SuspectConfirmSec) are expressed in
// seconds at configuration time and converted to frames via SetFPS, mirroring
// the Switcher's own "time-based thresholds" treatment.
type StickyConfig struct {
	TauExcludeOverride float64
	TauStatLow         float64
	DeltaStat          float64
	DeltaJump          float64
	IotaMin            float64
	TauGate            float64

	NStatSeconds      float64
	HMaxSeconds       float64
	SuspectConfirmSec float64

	Alpha float64 // EMA smoothing factor for SmoothedCenter

	// ExclusionZones maps camera id to its normalized exclusion rectangles.
	ExclusionZones map[int][]Zone
}

// StickyTracker stabilizes a noisy per-frame Detection stream into
// accept/hold/reject outcomes with an ordered rule cascade, guarding all of
// its state behind a single mutex.
type StickyTracker struct {
	mu sync.Mutex

	cfg StickyConfig

	nStatFrames     int
	hMaxFrames      int
	suspectConfirmN int
	fps             float64

	cameraID int

	hasLast    bool
	last       Detection
	holdAge    int
	missStreak int

	hasSuspect bool
	suspect    Candidate
	suspectHit int

	posHistory  []Point
	confHistory []float64

	smoother *PointSmoother
}

// NewStickyTracker constructs a tracker for one camera. SetFPS must be
// called before Update so time-based thresholds convert to frame counts.
func NewStickyTracker(cameraID int, cfg StickyConfig) *StickyTracker {
	return &StickyTracker{
		cameraID: cameraID,
		cfg:      cfg,
		smoother: NewPointSmoother(cfg.Alpha),
	}
}

// SetFPS (re)converts every time-based threshold to frame counts (spec
// §4.2's "thresholds are time-based... converted via the active stream's
// FPS at startup and whenever FPS is re-observed").
func (s *StickyTracker) SetFPS(fps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fps <= 0 {
		fps = 30
	}
	s.fps = fps
	s.nStatFrames = secondsToFrames(s.cfg.NStatSeconds, fps)
	s.hMaxFrames = secondsToFrames(s.cfg.HMaxSeconds, fps)
	s.suspectConfirmN = secondsToFrames(s.cfg.SuspectConfirmSec, fps)
	if s.suspectConfirmN < 1 {
		s.suspectConfirmN = 1
	}
}

func secondsToFrames(seconds, fps float64) int {
	n := int(seconds*fps + 0.5)
	if n < 0 {
		n = 0
	}
	return n
}

// Update runs the ordered acceptance cascade over one frame's Detection
// (spec §4.2). frameW and frameH supply the frame size used to normalize
// the detection's pixel-space center against exclusion zones.
func (s *StickyTracker) Update(det Detection, frameW, frameH float64) StickyOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if det.Empty() {
		return s.holdOrMiss(OriginHeld)
	}

	norm := det.Center
	if frameW > 0 && frameH > 0 {
		norm = Point{X: det.Center.X / frameW, Y: det.Center.Y / frameH}
	}

	if s.inExclusionZone(norm) && det.Conf < s.cfg.TauExcludeOverride {
		return s.holdOrMiss(OriginRejectedExclusion)
	}

	if s.isStationaryReject(det, frameW, frameH) {
		return s.holdOrMiss(OriginRejectedStationary)
	}

	if s.hasLast {
		dist := det.Center.Dist(s.last.Center)
		iou := det.Box.IoU(s.last.Box)
		if dist > s.cfg.DeltaJump && iou < s.cfg.IotaMin {
			return s.handleSuspect(det)
		}
	}
	s.hasSuspect = false
	s.suspectHit = 0

	if det.Conf < s.cfg.TauGate {
		return s.holdOrMiss(OriginHeld)
	}

	return s.accept(det)
}

func (s *StickyTracker) inExclusionZone(norm Point) bool {
	zones := s.cfg.ExclusionZones[s.cameraID]
	for _, z := range zones {
		if z.Contains(norm) {
			return true
		}
	}
	return false
}

// isStationaryReject implements spec §4.2 rule 2: only fires when confidence
// is consistently low or the stationary cluster sits in an exclusion zone,
// never on stationarity alone so legitimate set-pieces still pass.
func (s *StickyTracker) isStationaryReject(det Detection, frameW, frameH float64) bool {
	if s.nStatFrames <= 0 || len(s.posHistory) < s.nStatFrames-1 {
		return false
	}

	window := append(append([]Point{}, s.posHistory[len(s.posHistory)-(s.nStatFrames-1):]...), det.Center)
	confWindow := append(append([]float64{}, s.confHistory[len(s.confHistory)-(s.nStatFrames-1):]...), det.Conf)

	ref := window[0]
	for _, p := range window[1:] {
		if p.Dist(ref) > s.cfg.DeltaStat {
			return false
		}
	}

	mean := meanPoint(window)
	meanConf := meanFloat(confWindow)

	normMean := mean
	if frameW > 0 && frameH > 0 {
		normMean = Point{X: mean.X / frameW, Y: mean.Y / frameH}
	}

	return s.inExclusionZone(normMean) || meanConf < s.cfg.TauStatLow
}

func meanPoint(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return Point{X: sx / n, Y: sy / n}
}

func meanFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// handleSuspect implements spec §4.2 rule 3: a jump beyond DeltaJump with
// low IoU is held as a suspect candidate until it reappears near itself on
// the next frame.
func (s *StickyTracker) handleSuspect(det Detection) StickyOutcome {
	candidate := Candidate{Box: det.Box, Conf: det.Conf}

	if s.hasSuspect && det.Center.Dist(s.suspect.Box.Center()) <= s.cfg.DeltaJump {
		s.suspectHit++
		if s.suspectHit >= s.suspectConfirmN {
			s.hasSuspect = false
			s.suspectHit = 0
			return s.accept(det)
		}
	} else {
		s.hasSuspect = true
		s.suspect = candidate
		s.suspectHit = 1
	}

	return s.holdOrMiss(OriginConfirming)
}

// accept implements spec §4.2 rule 5: update L, reset hold_age and
// miss_streak, push to the histories, and smooth the center.
func (s *StickyTracker) accept(det Detection) StickyOutcome {
	s.hasLast = true
	s.last = det
	s.holdAge = 0
	s.missStreak = 0

	s.posHistory = appendBounded(s.posHistory, det.Center, s.nStatFrames)
	s.confHistory = appendBoundedFloat(s.confHistory, det.Conf, s.nStatFrames)

	smoothed := s.smoother.Update(det.Center)

	return StickyOutcome{
		Detection:      det,
		Origin:         OriginAccepted,
		HoldAge:        0,
		MissStreak:     0,
		SmoothedCenter: smoothed,
	}
}

// holdOrMiss implements the hold budget (spec §4.2): emit held while
// hold_age < HMax and L exists; otherwise emit none and grow miss_streak.
func (s *StickyTracker) holdOrMiss(origin StickyOrigin) StickyOutcome {
	if s.hasLast && s.holdAge < s.hMaxFrames {
		s.holdAge++
		smoothed := s.smoother.State()
		return StickyOutcome{
			Detection:      s.last,
			Origin:         origin,
			HoldAge:        s.holdAge,
			MissStreak:     s.missStreak,
			SmoothedCenter: smoothed,
		}
	}

	s.missStreak++
	return StickyOutcome{
		Origin:     OriginNone,
		HoldAge:    s.holdAge,
		MissStreak: s.missStreak,
	}
}

// NotifyCameraChange resets all tracker state; a cross-camera coordinate
// comparison is meaningless (spec §4.2).
func (s *StickyTracker) NotifyCameraChange(newCameraID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cameraID = newCameraID
	s.hasLast = false
	s.last = Detection{}
	s.holdAge = 0
	s.missStreak = 0
	s.hasSuspect = false
	s.suspect = Candidate{}
	s.suspectHit = 0
	s.posHistory = nil
	s.confHistory = nil
	s.smoother.Reset()
}

func appendBounded(s []Point, v Point, max int) []Point {
	s = append(s, v)
	if max > 0 && len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

func appendBoundedFloat(s []float64, v float64, max int) []float64 {
	s = append(s, v)
	if max > 0 && len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}
