package highlight

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FallbackConfig bundles the fallback scanner's thresholds (spec §4.4, §6.4).
type FallbackConfig struct {
	TFbSec        float64 // miss_streak duration that triggers a scan
	DProx         float64 // proximity (normalized) to an exit zone required to trigger
	KSame         int     // confirmations needed in one candidate (stationary pattern)
	KAlt          int     // confirmations needed across candidates (alternating pattern)
	Rho           float64 // decay weight applied after half the confirmation window
	TimeWindowSec float64 // confirmation window
	AMax          int     // scan attempts before pausing
	PSec          float64 // pause duration after AMax attempts
	CMax          int     // pause cycles before suppressing fallback entirely
	OnePerTick    bool    // round-robin one candidate probed per tick
}

// sanityBounds are the fallback candidate sanity-check bounds (spec §6.2),
// normalized against the probed frame's dimensions.
type sanityBounds struct {
	minSide, maxSide     float64
	minArea, maxArea     float64
	minAspect, maxAspect float64
	maxRelArea           float64
}

func defaultSanityBounds() sanityBounds {
	return sanityBounds{
		minSide: 8, maxSide: 150,
		minArea: 64, maxArea: 22500,
		minAspect: 0.5, maxAspect: 2.0,
		maxRelArea: 0.15,
	}
}

// passesSanity implements spec §6.2's bbox sanity checks for a fallback
// candidate detection.
func passesSanity(box BBox, frameW, frameH float64, b sanityBounds) bool {
	w, h := box.Width(), box.Height()
	if w < b.minSide || w > b.maxSide || h < b.minSide || h > b.maxSide {
		return false
	}
	area := box.Area()
	if area < b.minArea || area > b.maxArea {
		return false
	}
	aspect := w / h
	if aspect < b.minAspect || aspect > b.maxAspect {
		return false
	}
	if frameW > 0 && frameH > 0 {
		frameArea := frameW * frameH
		if frameArea > 0 && area/frameArea > b.maxRelArea {
			return false
		}
	}
	return true
}

// candidateHit is one confirmed, sanity-passing detection observed on a
// fallback candidate camera during a scan cycle.
type candidateHit struct {
	cameraID int
	frameIdx int // position within the confirmation window, for decay weighting
	weight   float64
}

// FallbackScanner implements the Orchestrator's fallback scan: it probes
// non-active streams for a reappearing ball and confirms a candidate across
// a bounded time window before recommending a switch. Candidate probing runs
// concurrently, joined before the tick ends, using a bounded errgroup
// fan-out.
type FallbackScanner struct {
	mu sync.Mutex

	cfg     FallbackConfig
	bounds  sanityBounds
	detector *Detector

	hits       []candidateHit
	windowSize int // frames, precomputed from TimeWindowSec via FPS

	tFbFrames int64

	attempts            int
	pauseCycles         int
	pauseDurationFrames int
	pauseRemaining      int
	suppressed          bool
	roundRobinIdx       int
}

// NewFallbackScanner constructs a scanner sharing the Orchestrator's
// Detector instance (the same model backend, so fallback probes use
// identical scoring to the main path).
func NewFallbackScanner(detector *Detector, cfg FallbackConfig) *FallbackScanner {
	return &FallbackScanner{cfg: cfg, bounds: defaultSanityBounds(), detector: detector}
}

// SetFPS precomputes the confirmation window length in frames.
func (f *FallbackScanner) SetFPS(fps float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fps <= 0 {
		fps = 30
	}
	f.windowSize = secondsToFrames(f.cfg.TimeWindowSec, fps)
	if f.windowSize < 1 {
		f.windowSize = 1
	}
	f.pauseDurationFrames = secondsToFrames(f.cfg.PSec, fps)
	f.tFbFrames = int64(secondsToFrames(f.cfg.TFbSec, fps))
}

// TFbFrames returns the precomputed miss-streak-duration trigger threshold,
// in frames.
func (f *FallbackScanner) TFbFrames() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tFbFrames
}

// ShouldTrigger reports whether a fallback scan should run this tick, per
// spec §4.4: miss_streak has exceeded T_fb seconds, the switcher isn't in
// cooldown, and the last known ball center was near an exit zone (avoiding
// center-field churn).
func (f *FallbackScanner) ShouldTrigger(missStreakFrames int64, tFbFrames int64, inCooldown bool, lastCenter Point, activeZones []Zone) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.suppressed || inCooldown {
		return false
	}
	if f.pauseRemaining > 0 {
		f.pauseRemaining--
		return false
	}
	if missStreakFrames < tFbFrames {
		return false
	}
	return f.nearAnyZone(lastCenter, activeZones)
}

func (f *FallbackScanner) nearAnyZone(p Point, zones []Zone) bool {
	for _, z := range zones {
		if z.Contains(p) {
			return true
		}
		cx, cy := (z.X1+z.X2)/2, (z.Y1+z.Y2)/2
		if p.Dist(Point{X: cx, Y: cy}) <= f.cfg.DProx {
			return true
		}
	}
	return false
}

// CandidateStream is the minimal view of a non-active stream the scanner
// needs: hard-sync, read one frame.
type CandidateStream interface {
	CameraID() int
	SyncAndRead(ctx context.Context, tRef int64) (Frame, error)
}

// Probe runs one scan attempt across the given candidate streams (bounded by
// OnePerTick via round-robin if configured), running Detector on each frame
// concurrently and recording sanity-passing hits. Returns the confirmed
// target camera id and true once K_same or K_alt confirmations accumulate
// within the time window.
func (f *FallbackScanner) Probe(ctx context.Context, streams []CandidateStream, tRef int64) (int, bool, error) {
	f.mu.Lock()
	if f.suppressed {
		f.mu.Unlock()
		return 0, false, nil
	}
	targets := streams
	if f.cfg.OnePerTick && len(streams) > 0 {
		idx := f.roundRobinIdx % len(streams)
		targets = []CandidateStream{streams[idx]}
		f.roundRobinIdx++
	}
	f.mu.Unlock()

	type probeResult struct {
		cameraID int
		box      BBox
		conf     float64
		w, h     float64
		ok       bool
	}

	results := make([]probeResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, cs := range targets {
		i, cs := i, cs
		g.Go(func() error {
			frame, err := cs.SyncAndRead(gctx, tRef)
			if err != nil {
				return nil // a failed candidate read is just a non-hit, not a scan failure
			}
			det := f.detector.Detect(frame)
			if det.Empty() {
				return nil
			}
			if !passesSanity(det.Box, float64(frame.Pixels.Width), float64(frame.Pixels.Height), f.bounds) {
				return nil
			}
			results[i] = probeResult{cameraID: cs.CameraID(), box: det.Box, conf: det.Conf, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts++
	for _, r := range results {
		if !r.ok {
			continue
		}
		f.hits = appendBoundedHit(f.hits, candidateHit{cameraID: r.cameraID, frameIdx: f.attempts}, f.windowSize)
	}
	f.pruneWindow()

	if target, confirmed := f.checkConfirmation(); confirmed {
		f.resetAfterConfirmation()
		return target, true, nil
	}

	if f.attempts >= f.cfg.AMax {
		f.pauseCycles++
		f.attempts = 0
		f.hits = nil
		if f.pauseCycles >= f.cfg.CMax {
			f.suppressed = true
		} else {
			f.pauseRemaining = f.pauseDurationFrames
		}
	}

	return 0, false, nil
}

func appendBoundedHit(hits []candidateHit, h candidateHit, max int) []candidateHit {
	hits = append(hits, h)
	if max > 0 && len(hits) > max*4 {
		hits = hits[len(hits)-max*4:]
	}
	return hits
}

// pruneWindow drops hits that fell outside the confirmation window and
// assigns each remaining hit its decay weight: full weight for the first
// half of the window, linearly decaying toward Rho over the second half
// (spec §4.4 and §9's resolved open question on the decay curve).
func (f *FallbackScanner) pruneWindow() {
	if f.windowSize <= 0 {
		return
	}
	cutoff := f.attempts - f.windowSize
	kept := f.hits[:0]
	half := float64(f.windowSize) / 2
	for _, h := range f.hits {
		if h.frameIdx <= cutoff {
			continue
		}
		age := float64(f.attempts - h.frameIdx)
		if age <= half {
			h.weight = 1
		} else {
			frac := (age - half) / half
			if frac > 1 {
				frac = 1
			}
			h.weight = 1 - frac*(1-f.cfg.Rho)
		}
		kept = append(kept, h)
	}
	f.hits = kept
}

// checkConfirmation implements spec §4.4's two confirmation patterns:
// K_same weighted hits concentrated in one candidate, or K_alt weighted hits
// distributed across candidates.
func (f *FallbackScanner) checkConfirmation() (int, bool) {
	perCamera := map[int]float64{}
	for _, h := range f.hits {
		perCamera[h.cameraID] += h.weight
	}

	var bestCam int
	var bestWeight float64
	var totalWeight float64
	distinctCams := 0
	for cam, w := range perCamera {
		totalWeight += w
		if w > 0 {
			distinctCams++
		}
		if w > bestWeight {
			bestCam, bestWeight = cam, w
		}
	}

	if bestWeight >= float64(f.cfg.KSame) {
		return bestCam, true
	}
	if distinctCams > 1 && totalWeight >= float64(f.cfg.KAlt) {
		return bestCam, true
	}
	return 0, false
}

func (f *FallbackScanner) resetAfterConfirmation() {
	f.hits = nil
	f.attempts = 0
	f.pauseCycles = 0
}

// Reactivate clears fallback suppression, called by the Orchestrator on
// recovery (e.g. after a successful switch via any path).
func (f *FallbackScanner) Reactivate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suppressed = false
	f.attempts = 0
	f.pauseCycles = 0
	f.hits = nil
}
